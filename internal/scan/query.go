package scan

import (
	"errors"
	"slices"

	"typescan/internal/matcher"
)

var (
	// ErrNoNamespaces is returned when a query names no namespace.
	ErrNoNamespaces = errors.New("at least one namespace is required")
	// ErrNoContext is returned when a query has no loading context.
	ErrNoContext = errors.New("a loading context is required")
)

// Query is a validated set of namespaces bound to an engine. The empty
// namespace stands for the lookup roots themselves.
type Query struct {
	engine     *Engine
	namespaces []string
}

// From starts a query over namespaces with default engine settings.
func From(ctx Context, namespaces ...string) (*Query, error) {
	if ctx == nil {
		return nil, ErrNoContext
	}
	return NewEngine(ctx).Query(namespaces...)
}

// Query validates namespaces and binds them to e. Nothing is traversed until
// a terminal operation runs.
func (e *Engine) Query(namespaces ...string) (*Query, error) {
	if e == nil || e.ctx == nil {
		return nil, ErrNoContext
	}
	if len(namespaces) == 0 {
		return nil, ErrNoNamespaces
	}
	return &Query{engine: e, namespaces: slices.Clone(namespaces)}, nil
}

func (q *Query) Namespaces() []string {
	return slices.Clone(q.namespaces)
}

// MarkedWith returns the types carrying the marker.
func (q *Query) MarkedWith(marker string) *MatchSet {
	return q.Matching(matcher.Marker(marker))
}

// AssignableTo returns the types assignable to base, base included.
func (q *Query) AssignableTo(base string) *MatchSet {
	return q.Matching(matcher.AssignableTo(base))
}

func (q *Query) Matching(m matcher.Matcher) *MatchSet {
	return q.engine.Find(m, q.namespaces...)
}
