// Package matcher provides predicates over type handles.
package matcher

import (
	"reflect"

	"typescan/internal/typeinfo"
)

// Matcher decides whether a type handle belongs in a result set.
// Implementations must be total and free of side effects.
type Matcher interface {
	Matches(h typeinfo.Handle) bool
}

// Func adapts an ordinary function to a Matcher. A nil handle never matches.
type Func func(h typeinfo.Handle) bool

func (f Func) Matches(h typeinfo.Handle) bool {
	if isNil(h) || f == nil {
		return false
	}
	return f(h)
}

type markerMatcher struct {
	marker string
}

// Marker matches handles that declare the marker with the given qualified identifier.
func Marker(id string) Matcher {
	return markerMatcher{marker: id}
}

func (m markerMatcher) Matches(h typeinfo.Handle) bool {
	return !isNil(h) && h.HasMarker(m.marker)
}

type assignableMatcher struct {
	base string
}

// AssignableTo matches handles that are the base type or a subtype/implementor of it.
func AssignableTo(id string) Matcher {
	return assignableMatcher{base: id}
}

func (m assignableMatcher) Matches(h typeinfo.Handle) bool {
	return !isNil(h) && h.AssignableTo(m.base)
}

// isNil also catches typed nil pointers stored in the interface.
func isNil(h typeinfo.Handle) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
