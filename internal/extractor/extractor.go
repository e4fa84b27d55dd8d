package extractor

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrSyntax is returned for sources the parser could not read cleanly.
var ErrSyntax = errors.New("source has syntax errors")

// Extractor orchestrates the extraction process using language-specific extractors.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
	query         *sitter.Query
	pkgQuery      *sitter.Query
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "go":
		langExt = &GoExtractor{}
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}

	query, err := sitter.NewQuery([]byte(langExt.GetQuery()), langExt.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	pkgQuery, err := sitter.NewQuery([]byte(`(package_clause (package_identifier) @pkg)`), langExt.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("failed to create package query: %w", err)
	}

	return &Extractor{langExtractor: langExt, langName: lang, query: query, pkgQuery: pkgQuery}, nil
}

// ExtractFromSource parses a single source file and extracts its type declarations.
// path is only used for reporting.
func (e *Extractor) ExtractFromSource(ctx context.Context, path string, sourceCode []byte) (*File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(e.langExtractor.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
	}

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("failed to parse file %s: %w", path, ErrSyntax)
	}

	collector := e.langExtractor.NewCollector(path, sourceCode)

	qc := sitter.NewQueryCursor()
	qc.Exec(e.query, root)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			collector.Collect(e.query.CaptureNameForId(c.Index), c.Node)
		}
	}

	file := collector.File()
	file.Package = e.detectPackageName(root, sourceCode)
	return file, nil
}

func (e *Extractor) detectPackageName(root *sitter.Node, sourceCode []byte) string {
	pqc := sitter.NewQueryCursor()
	pqc.Exec(e.pkgQuery, root)
	if m, ok := pqc.NextMatch(); ok && len(m.Captures) > 0 {
		return m.Captures[0].Node.Content(sourceCode)
	}
	return ""
}
