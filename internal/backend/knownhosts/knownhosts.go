// Package knownhosts implements the "knownhosts" backend: target
// selection from one or more OpenSSH known_hosts-formatted files. It
// is grounded on the original project's knownhosts.py backend,
// including its per-line skip rules (comments, hashed entries, revoked
// markers, IP-address-only entries).
package knownhosts

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"context"

	"github.com/go-cumin/cumin/internal/logger"
	"github.com/go-cumin/cumin/internal/nodeset"
	"github.com/go-cumin/cumin/internal/query/boolexpr"
)

// GrammarPrefix is the single-letter prefix this backend registers
// under in the global grammar ("K{...}").
const GrammarPrefix = "K"

// Name is the backend's configuration-facing name.
const Name = "knownhosts"

// Query evaluates knownhosts-backend query strings against the
// configured known_hosts file set.
type Query struct {
	files  []string
	log    *logger.Logger
	known  map[string]struct{}
}

// New constructs a knownhosts backend Query from the "knownhosts"
// configuration section. Expected shape:
//
//	knownhosts:
//	  files: ["/etc/ssh/ssh_known_hosts"]
func New(config map[string]any) (*Query, error) {
	q := &Query{known: make(map[string]struct{})}

	section, _ := config["knownhosts"].(map[string]any)
	if section != nil {
		if rawFiles, ok := section["files"].([]any); ok {
			for _, f := range rawFiles {
				if s, ok := f.(string); ok {
					q.files = append(q.files, s)
				}
			}
		}
	}

	if log, ok := config["__logger"].(*logger.Logger); ok {
		q.log = log
	}

	return q, nil
}

// Execute parses raw as a boolean expression of literal/glob host
// tokens and returns only the hosts present in the loaded known_hosts
// files.
func (q *Query) Execute(ctx context.Context, raw string) (*nodeset.Set, error) {
	if len(q.known) == 0 {
		if err := q.load(); err != nil {
			return nil, err
		}
	}

	matched, err := boolexpr.Evaluate(raw, func(leaf string) (*nodeset.Set, error) {
		return q.matchLeaf(leaf)
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

// matchLeaf expands leaf (which may itself be a compact range
// expression, and may contain glob characters * and ?) and keeps only
// the expansions present in the known_hosts set.
func (q *Query) matchLeaf(leaf string) (*nodeset.Set, error) {
	out := nodeset.New()

	if !strings.ContainsAny(leaf, "*?") {
		candidates, err := nodeset.Parse(leaf)
		if err != nil {
			return nil, err
		}
		for _, h := range candidates.Hosts() {
			if _, ok := q.known[h]; ok {
				out.Add(h)
			}
		}
		return out, nil
	}

	for known := range q.known {
		if ok, _ := filepath.Match(leaf, known); ok {
			out.Add(known)
		}
	}
	return out, nil
}

func (q *Query) load() error {
	for _, filename := range q.files {
		f, err := os.Open(filename)
		if err != nil {
			return fmt.Errorf("knownhosts: %w", err)
		}

		scanner := bufio.NewScanner(f)
		lineno := 0
		count := 0
		for scanner.Scan() {
			lineno++
			line := scanner.Text()
			found, skipped, skipReason, err := parseLine(line)
			if err != nil {
				if q.log != nil {
					q.log.Warn(fmt.Sprintf("discarded invalid line %d (%v) in known hosts file %q", lineno, err, filename))
				}
				continue
			}
			if skipReason != "" && q.log != nil {
				q.log.Trace(fmt.Sprintf("skipped %s line %d in known hosts file %q", skipReason, lineno, filename))
			}
			if len(skipped) > 0 && q.log != nil {
				q.log.Trace(fmt.Sprintf("skipped patterns at line %d in known hosts file %q: %s", lineno, filename, strings.Join(skipped, ", ")))
			}
			for _, h := range found {
				q.known[h] = struct{}{}
				count++
			}
		}
		f.Close()

		if q.log != nil {
			q.log.Debug(fmt.Sprintf("loaded %d hosts from %q", count, filename))
		}
	}
	return nil
}

// parseLine parses a single OpenSSH known_hosts line per the format
// documented in sshd(8). It returns the hostnames it grants (found),
// the glob/IP patterns it recognized but could not resolve to a
// concrete host (skipped), a non-empty skipReason when the entire line
// was intentionally ignored (empty, comment, hashed, revoked), and err
// when the line was malformed.
func parseLine(line string) (found []string, skipped []string, skipReason string, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil, "empty line", nil
	}
	if line[0] == '#' {
		return nil, nil, "comment", nil
	}
	if line[0] == '|' {
		return nil, nil, "hashed", nil
	}

	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, nil, "", fmt.Errorf("not enough fields")
	}

	var lineHosts string
	if line[0] == '@' {
		if len(fields) < 4 {
			return nil, nil, "", fmt.Errorf("not enough fields")
		}
		switch fields[0] {
		case "@cert-authority":
			lineHosts = fields[1]
		case "@revoked":
			return nil, nil, "revoked", nil
		default:
			return nil, nil, "", fmt.Errorf("unknown marker %q", fields[0])
		}
	} else {
		lineHosts = fields[0]
	}

	found, skipped = parseLineHosts(lineHosts)
	return found, skipped, "", nil
}

func parseLineHosts(lineHosts string) (found []string, skipped []string) {
	for _, host := range strings.Split(lineHosts, ",") {
		if host == "" {
			continue
		}
		if host[0] == '!' {
			host = host[1:]
		}
		if len(host) > 0 && host[0] == '[' {
			host = strings.SplitN(host[1:], "]", 2)[0]
		}
		if strings.ContainsAny(host, "*?") {
			skipped = append(skipped, host)
			continue
		}
		if net.ParseIP(host) != nil {
			skipped = append(skipped, host)
			continue
		}
		found = append(found, host)
	}
	return found, skipped
}
