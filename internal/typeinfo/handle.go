// Package typeinfo defines the materialized view of a type that discovery
// queries inspect.
package typeinfo

import "strings"

// Kind classifies a declared type.
type Kind string

const (
	KindStruct    Kind = "struct"
	KindInterface Kind = "interface"
	KindAlias     Kind = "alias"
	KindOther     Kind = "type"
)

// Handle is an introspectable type obtained from a loading context.
type Handle interface {
	// ID is the qualified identifier, e.g. "zoo.mock.Dog".
	ID() string
	Name() string
	Namespace() string
	Kind() Kind
	// Markers returns the qualified identifiers of the markers declared on the type.
	Markers() []string
	HasMarker(id string) bool
	// AssignableTo reports whether the type is the given base type or
	// embeds, asserts or structurally implements it.
	AssignableTo(id string) bool
	// Source is the location the type was materialized from.
	Source() string
}

// Method is a single method signature in a method set.
type Method struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
}

// Key identifies a method regardless of parameter names and spacing.
func (m Method) Key() string {
	return m.Name + m.Signature
}

// Qualify joins a namespace and a simple name into an identifier.
func Qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// Split separates an identifier into its namespace and simple name.
func Split(id string) (namespace, name string) {
	idx := strings.LastIndex(id, ".")
	if idx < 0 {
		return "", id
	}
	return id[:idx], id[idx+1:]
}

// NamespacePath converts a dotted or slashed namespace into a slash path
// without surrounding separators.
func NamespacePath(namespace string) string {
	p := strings.ReplaceAll(namespace, "\\", "/")
	p = strings.ReplaceAll(p, ".", "/")
	return strings.Trim(p, "/")
}

// PathNamespace converts a slash path into a dotted namespace.
func PathNamespace(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", ".")
}
