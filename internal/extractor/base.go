package extractor

import (
	sitter "github.com/smacker/go-tree-sitter"

	"typescan/internal/typeinfo"
)

// File is everything extracted from a single source file.
type File struct {
	Path    string            `json:"path"`
	Package string            `json:"package"`
	Imports map[string]string `json:"imports"` // local name -> import path
	Types   []*TypeDecl       `json:"types"`
}

// Type returns the declaration of the named type, if the file declares it.
func (f *File) Type(name string) (*TypeDecl, bool) {
	for _, t := range f.Types {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// TypeDecl is a single type declaration. Names in Markers, Embeds and
// Asserts are kept as written in the source; qualifying them is up to the
// caller, which knows the namespace the file was loaded from.
type TypeDecl struct {
	Name        string            `json:"name"`
	Kind        typeinfo.Kind     `json:"kind"`
	StartLine   int               `json:"start_line"`
	EndLine     int               `json:"end_line"`
	Description string            `json:"description"`
	Markers     []string          `json:"markers,omitempty"`
	Embeds      []string          `json:"embeds,omitempty"`
	Methods     []typeinfo.Method `json:"methods,omitempty"`
	Asserts     []string          `json:"asserts,omitempty"` // interfaces named in `var _ I = T{}`
}

// Param is a single parameter or result of a signature.
type Param struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	GetQuery() string
	NewCollector(path string, sourceCode []byte) Collector
}

// Collector accumulates query captures for one file.
type Collector interface {
	Collect(captureName string, node *sitter.Node)
	File() *File
}
