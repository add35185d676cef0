// Package nodeset implements the compact-range node-name algebra used
// throughout Cumin: parsing strings like "host[10-42,50].dom" into an
// expanded, ordered set of hostnames, folding an expanded set back into
// its compact form, and the set operations (union, intersect,
// difference, symmetric difference) the query grammar composes.
//
// A Set is represented as a sorted slice alongside a hash index, per
// the "NodeSet as sorted-vector+hashset" design note: membership tests
// are O(1) via the index, ordered iteration and stable rendering use
// the slice.
package nodeset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Set is an ordered collection of unique host names.
type Set struct {
	order []string
	index map[string]struct{}
}

// New returns an empty Set.
func New() *Set {
	return &Set{index: make(map[string]struct{})}
}

// FromList builds a Set from a slice of bare hostnames (no range
// expansion is performed; each entry is taken literally). This mirrors
// nodeset_fromlist in the original Python implementation.
func FromList(hosts []string) *Set {
	s := New()
	for _, h := range hosts {
		s.Add(h)
	}
	return s
}

// Parse expands a ClusterShell-style compact range expression into a
// Set. Supported syntax: comma-separated items, each either a bare
// hostname or a hostname containing one or more bracketed range/list
// expressions, e.g. "host[10-42,50].dom", "host[01-03]"; several
// bracket groups are expanded into every combination, so
// "rack[1-2]u[1-3]" yields six hosts.
func Parse(expr string) (*Set, error) {
	s := New()
	for _, item := range splitTopLevel(expr, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		expanded, err := expandItem(item)
		if err != nil {
			return nil, fmt.Errorf("nodeset: %w", err)
		}
		for _, h := range expanded {
			s.Add(h)
		}
	}
	return s, nil
}

// splitTopLevel splits on sep but ignores separators inside brackets.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// itemSegment is one piece of a literal split by bracketSegments: either
// plain text carried through unchanged, or the body of a "[...]" group
// still to be range-expanded.
type itemSegment struct {
	text    string
	isRange bool
}

// bracketSegments walks item left to right and splits it into
// alternating plain-text and bracket-group segments, e.g.
// "rack[1-2]u[1-3]" becomes {"rack"}, {"1-2", range}, {"u"},
// {"1-3", range}. Multiple groups are returned in order so the caller
// can Cartesian-multiply their expansions together.
func bracketSegments(item string) ([]itemSegment, error) {
	var segments []itemSegment
	for i := 0; i < len(item); {
		open := strings.IndexByte(item[i:], '[')
		if open < 0 {
			segments = append(segments, itemSegment{text: item[i:]})
			break
		}
		open += i
		if open > i {
			segments = append(segments, itemSegment{text: item[i:open]})
		}
		closeIdx := strings.IndexByte(item[open+1:], ']')
		if closeIdx < 0 {
			return nil, fmt.Errorf("unbalanced brackets in %q", item)
		}
		closeIdx += open + 1
		segments = append(segments, itemSegment{text: item[open+1 : closeIdx], isRange: true})
		i = closeIdx + 1
	}
	return segments, nil
}

// expandItem expands every bracketed range/list group in item,
// Cartesian-multiplying the expansions of each group in order, per
// spec's requirement that multiple bracket groups in one literal
// ("rack[1-2]u[1-3]") multiply out rather than only honoring the
// first/last bracket pair.
func expandItem(item string) ([]string, error) {
	segments, err := bracketSegments(item)
	if err != nil {
		return nil, err
	}

	results := []string{""}
	for _, seg := range segments {
		values := []string{seg.text}
		if seg.isRange {
			values = nil
			for _, rangeExpr := range strings.Split(seg.text, ",") {
				rangeExpr = strings.TrimSpace(rangeExpr)
				expanded, err := expandRange(rangeExpr)
				if err != nil {
					return nil, fmt.Errorf("invalid range %q in %q: %w", rangeExpr, item, err)
				}
				values = append(values, expanded...)
			}
		}

		next := make([]string, 0, len(results)*len(values))
		for _, r := range results {
			for _, v := range values {
				next = append(next, r+v)
			}
		}
		results = next
	}
	return results, nil
}

func expandRange(rangeExpr string) ([]string, error) {
	parts := strings.SplitN(rangeExpr, "-", 2)
	if len(parts) == 1 {
		if _, err := strconv.Atoi(parts[0]); err != nil {
			return nil, fmt.Errorf("not a number: %q", parts[0])
		}
		return []string{parts[0]}, nil
	}

	loStr, hiStr := parts[0], parts[1]
	lo, err := strconv.Atoi(loStr)
	if err != nil {
		return nil, fmt.Errorf("invalid range start: %w", err)
	}
	hi, err := strconv.Atoi(hiStr)
	if err != nil {
		return nil, fmt.Errorf("invalid range end: %w", err)
	}
	if hi < lo {
		return nil, fmt.Errorf("range end %d before start %d", hi, lo)
	}

	width := len(loStr)
	zeroPadded := strings.HasPrefix(loStr, "0") && width > 1

	var values []string
	for n := lo; n <= hi; n++ {
		if zeroPadded {
			values = append(values, fmt.Sprintf("%0*d", width, n))
		} else {
			values = append(values, strconv.Itoa(n))
		}
	}
	return values, nil
}

// Add inserts host into the set if not already present.
func (s *Set) Add(host string) {
	if _, ok := s.index[host]; ok {
		return
	}
	s.index[host] = struct{}{}
	pos := sort.SearchStrings(s.order, host)
	s.order = append(s.order, "")
	copy(s.order[pos+1:], s.order[pos:])
	s.order[pos] = host
}

// Contains reports whether host is a member of the set.
func (s *Set) Contains(host string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[host]
	return ok
}

// Len returns the number of hosts in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Hosts returns the hosts in sorted order. The returned slice must not
// be mutated by the caller.
func (s *Set) Hosts() []string {
	if s == nil {
		return nil
	}
	return s.order
}

// Union returns a new Set containing every host in s or other.
func (s *Set) Union(other *Set) *Set {
	out := New()
	for _, h := range s.Hosts() {
		out.Add(h)
	}
	for _, h := range other.Hosts() {
		out.Add(h)
	}
	return out
}

// Intersect returns a new Set containing hosts present in both s and other.
func (s *Set) Intersect(other *Set) *Set {
	out := New()
	for _, h := range s.Hosts() {
		if other.Contains(h) {
			out.Add(h)
		}
	}
	return out
}

// Difference returns a new Set containing hosts in s but not in other
// ("and not" in the query grammar).
func (s *Set) Difference(other *Set) *Set {
	out := New()
	for _, h := range s.Hosts() {
		if !other.Contains(h) {
			out.Add(h)
		}
	}
	return out
}

// SymmetricDifference returns a new Set containing hosts in exactly one
// of s or other ("xor" in the query grammar).
func (s *Set) SymmetricDifference(other *Set) *Set {
	out := New()
	for _, h := range s.Hosts() {
		if !other.Contains(h) {
			out.Add(h)
		}
	}
	for _, h := range other.Hosts() {
		if !s.Contains(h) {
			out.Add(h)
		}
	}
	return out
}

// String renders the set in its compact, folded form, e.g.
// "host[10-12,42].dom". Hosts that do not share a common non-numeric
// prefix/suffix pattern with any neighbor are rendered individually.
func (s *Set) String() string {
	if s.Len() == 0 {
		return ""
	}

	groups := make(map[string][]int)
	var order []string
	var literals []string

	for _, h := range s.order {
		prefix, num, width, suffix, ok := splitTrailingNumber(h)
		if !ok {
			literals = append(literals, h)
			continue
		}
		// Only zero-padded numbers keep their width in the grouping key,
		// so "host1" and "host10" fold into the same range.
		if len(strconv.Itoa(num)) == width {
			width = 0
		}
		key := prefix + "\x00" + suffix + "\x00" + strconv.Itoa(width)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], num)
	}

	var rendered []string
	for _, key := range order {
		parts := strings.SplitN(key, "\x00", 3)
		prefix, suffix, widthStr := parts[0], parts[1], parts[2]
		width, _ := strconv.Atoi(widthStr)
		nums := groups[key]
		sort.Ints(nums)
		rendered = append(rendered, prefix+"["+foldRanges(nums, width)+"]"+suffix)
	}
	rendered = append(rendered, literals...)
	sort.Strings(rendered)
	return strings.Join(rendered, ",")
}

// splitTrailingNumber finds the last maximal run of digits preceded by
// a non-digit (or start of string) and followed by the remainder of
// the string, returning prefix/number/width/suffix.
func splitTrailingNumber(host string) (prefix string, num int, width int, suffix string, ok bool) {
	// Find the last contiguous digit run anywhere, preferring one
	// immediately before a non-digit boundary sequence.
	end := -1
	start := -1
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] >= '0' && host[i] <= '9' {
			if end == -1 {
				end = i
			}
			start = i
		} else if end != -1 {
			break
		}
	}
	if end == -1 {
		return "", 0, 0, "", false
	}
	digits := host[start : end+1]
	n, err := strconv.Atoi(digits)
	if err != nil {
		return "", 0, 0, "", false
	}
	return host[:start], n, len(digits), host[end+1:], true
}

// foldRanges renders a sorted slice of ints as comma-separated
// contiguous ranges, padding to width when the original values used
// leading zeros.
func foldRanges(nums []int, width int) string {
	var parts []string
	i := 0
	for i < len(nums) {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		if j == i {
			parts = append(parts, pad(nums[i], width))
		} else {
			parts = append(parts, pad(nums[i], width)+"-"+pad(nums[j], width))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	if width > len(s) {
		return strings.Repeat("0", width-len(s)) + s
	}
	return s
}
