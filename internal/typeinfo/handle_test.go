package typeinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	ns, name := Split("zoo.mock.Dog")
	assert.Equal(t, "zoo.mock", ns)
	assert.Equal(t, "Dog", name)

	ns, name = Split("Dog")
	assert.Equal(t, "", ns)
	assert.Equal(t, "Dog", name)
}

func TestQualify(t *testing.T) {
	assert.Equal(t, "zoo.mock.Dog", Qualify("zoo.mock", "Dog"))
	assert.Equal(t, "Dog", Qualify("", "Dog"))
}

func TestNamespacePath(t *testing.T) {
	assert.Equal(t, "zoo/mock", NamespacePath("zoo.mock"))
	assert.Equal(t, "zoo/mock", NamespacePath("/zoo/mock/"))
	assert.Equal(t, "zoo/mock", NamespacePath(`zoo\mock`))
	assert.Equal(t, "", NamespacePath(""))
	assert.Equal(t, "zoo.mock", PathNamespace("zoo/mock/"))
}
