// Package direct implements Cumin's dependency-free backend: queries
// are pure NodeSet boolean expressions over literal hostnames, with no
// external service involved. It is grounded on the original project's
// direct.py backend and is the natural fallback when no other backend
// is reachable.
package direct

import (
	"context"

	"github.com/go-cumin/cumin/internal/nodeset"
	"github.com/go-cumin/cumin/internal/query/boolexpr"
)

// GrammarPrefix is the single-letter prefix this backend registers
// under in the global grammar ("D{...}").
const GrammarPrefix = "D"

// Name is the backend's configuration-facing name.
const Name = "direct"

// Query evaluates direct-backend query strings.
type Query struct{}

// New constructs a direct backend Query. Direct takes no
// configuration.
func New(map[string]any) (*Query, error) {
	return &Query{}, nil
}

// Execute parses raw as a boolean expression of literal/range host
// tokens and returns the resulting NodeSet.
func (q *Query) Execute(ctx context.Context, raw string) (*nodeset.Set, error) {
	return boolexpr.Evaluate(raw, func(token string) (*nodeset.Set, error) {
		return nodeset.Parse(token)
	})
}
