// Package scan discovers the types of one or more namespaces that satisfy a
// matcher, across directory trees and zip archives alike.
package scan

import (
	"io"
	"strings"

	"typescan/internal/resource"
	"typescan/internal/typeinfo"
)

// Context is the loading context a query runs against.
type Context interface {
	// Resources returns every location associated with a slash-separated
	// path. No locations is not an error.
	Resources(path string) ([]resource.Location, error)
	// Open returns the content of a location handed out by Resources. A
	// directory reads as its child names, one per line.
	Open(loc resource.Location) (io.ReadCloser, error)
	// Load materializes the type with the given identifier.
	Load(id string) (typeinfo.Handle, error)
}

// DirectoryProber is implemented by contexts that can tell directories from
// leaves directly. When present, the directory adapter uses it instead of
// probing child listings.
type DirectoryProber interface {
	IsDirectory(loc resource.Location) (bool, error)
}

// Resolver maps paths to the locations the context associates with them.
type Resolver struct {
	ctx Context
}

func NewResolver(ctx Context) *Resolver {
	return &Resolver{ctx: ctx}
}

// Resolve returns all locations for p. Backslashes are converted and
// surrounding separators trimmed first.
func (r *Resolver) Resolve(p string) ([]resource.Location, error) {
	return r.ctx.Resources(normalizePath(p))
}

func normalizePath(p string) string {
	return strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "/" + child
}
