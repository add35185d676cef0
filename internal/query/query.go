package query

import (
	"context"

	"github.com/go-cumin/cumin/internal/backend"
	"github.com/go-cumin/cumin/internal/nodeset"
	"github.com/go-cumin/cumin/pkg/cuminerr"
)

// evalContext threads the caller's context and the set of alias names
// already expanded on the current resolution path through grammar
// evaluation, so cycle detection works across nested alias expansions.
type evalContext struct {
	ctx     context.Context
	visited map[string]bool
}

// Query is Cumin's top-level query orchestrator: it resolves a query
// string against an optional default backend first, falling back to
// the global multi-backend grammar, mirroring the original's
// query.Query.execute.
type Query struct {
	grammar        *Grammar
	defaultBackend string
	defaultQuery   backend.Query // constructed instance of the default backend, if any
}

// NewQuery constructs a Query. defaultBackend and defaultQuery are
// both empty/nil when no default_backend is configured.
func NewQuery(grammar *Grammar, defaultBackend string, defaultQuery backend.Query) *Query {
	return &Query{grammar: grammar, defaultBackend: defaultBackend, defaultQuery: defaultQuery}
}

// Execute resolves raw into the set of matching hosts.
func (q *Query) Execute(ctx context.Context, raw string) (*nodeset.Set, error) {
	ec := evalContext{ctx: ctx, visited: map[string]bool{}}

	if q.defaultQuery == nil {
		set, err := q.grammar.Evaluate(ec, raw)
		if err != nil {
			return nil, cuminerr.NewInvalidQueryError(raw,
				"unable to parse with the global grammar and no default backend is set", err)
		}
		return set, nil
	}

	set, defaultErr := q.defaultQuery.Execute(ctx, raw)
	if defaultErr == nil {
		return set, nil
	}

	set, globalErr := q.grammar.Evaluate(ec, raw)
	if globalErr == nil {
		return set, nil
	}

	return nil, cuminerr.NewInvalidQueryError(raw,
		"unable to parse neither with the default backend nor with the global grammar",
		combinedError{defaultErr: defaultErr, globalErr: globalErr})
}

type combinedError struct {
	defaultErr error
	globalErr  error
}

func (c combinedError) Error() string {
	return "default backend: " + c.defaultErr.Error() + "; global grammar: " + c.globalErr.Error()
}
