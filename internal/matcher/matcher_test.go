package matcher

import (
	"slices"
	"testing"

	"typescan/internal/typeinfo"

	"github.com/stretchr/testify/assert"
)

type fakeHandle struct {
	id      string
	markers []string
	bases   []string
}

func (f *fakeHandle) ID() string { return f.id }
func (f *fakeHandle) Name() string {
	_, n := typeinfo.Split(f.id)
	return n
}

func (f *fakeHandle) Namespace() string {
	ns, _ := typeinfo.Split(f.id)
	return ns
}

func (f *fakeHandle) Kind() typeinfo.Kind { return typeinfo.KindStruct }
func (f *fakeHandle) Markers() []string { return f.markers }
func (f *fakeHandle) HasMarker(id string) bool { return slices.Contains(f.markers, id) }
func (f *fakeHandle) AssignableTo(id string) bool {
	return id == f.id || slices.Contains(f.bases, id)
}
func (f *fakeHandle) Source() string { return "mem://" + f.id }

func TestMarker(t *testing.T) {
	dog := &fakeHandle{id: "zoo.mock.Dog", markers: []string{"zoo.mock.Canine"}}
	snake := &fakeHandle{id: "zoo.mock.Snake"}

	m := Marker("zoo.mock.Canine")
	assert.True(t, m.Matches(dog))
	assert.False(t, m.Matches(snake))
	assert.False(t, m.Matches(nil))

	var typedNil *fakeHandle
	assert.False(t, m.Matches(typedNil))
}

func TestAssignableTo(t *testing.T) {
	animal := &fakeHandle{id: "zoo.mock.Animal"}
	cat := &fakeHandle{id: "zoo.mock.Cat", bases: []string{"zoo.mock.Animal"}}
	rock := &fakeHandle{id: "zoo.mock.Rock"}

	m := AssignableTo("zoo.mock.Animal")
	assert.True(t, m.Matches(animal), "a type is assignable to itself")
	assert.True(t, m.Matches(cat))
	assert.False(t, m.Matches(rock))
	assert.False(t, m.Matches(nil))
}

func TestFunc(t *testing.T) {
	calls := 0
	m := Func(func(h typeinfo.Handle) bool {
		calls++
		return h.Name() == "Dog"
	})

	assert.True(t, m.Matches(&fakeHandle{id: "zoo.mock.Dog"}))
	assert.False(t, m.Matches(&fakeHandle{id: "zoo.mock.Cat"}))
	assert.False(t, m.Matches(nil))
	assert.Equal(t, 2, calls, "nil handles never reach the predicate")

	var none Func
	assert.False(t, none.Matches(&fakeHandle{id: "zoo.mock.Dog"}))
}
