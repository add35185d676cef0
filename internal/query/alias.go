package query

import "github.com/go-cumin/cumin/pkg/cuminerr"

// AliasSet holds the named query fragments loaded from aliases.yaml.
// Aliases may reference other aliases; resolution detects cycles via
// an explicit visited-name set rather than recursion depth, per the
// original's _replace_alias (which relies on Python's call stack and
// would otherwise recurse indefinitely on a cycle).
type AliasSet struct {
	values map[string]string
}

// NewAliasSet builds an AliasSet from a name->query-string map.
func NewAliasSet(values map[string]string) *AliasSet {
	if values == nil {
		values = map[string]string{}
	}
	return &AliasSet{values: values}
}

// Resolve returns the query string an alias expands to, detecting
// unknown aliases and cycles. visited accumulates the chain of alias
// names already expanded on this path.
func (a *AliasSet) Resolve(name string, visited map[string]bool) (string, error) {
	if visited[name] {
		chain := make([]string, 0, len(visited)+1)
		for v := range visited {
			chain = append(chain, v)
		}
		chain = append(chain, name)
		return "", cuminerr.NewCyclicAliasError(chain)
	}

	value, ok := a.values[name]
	if !ok {
		return "", cuminerr.NewUnknownAliasError(name)
	}
	return value, nil
}
