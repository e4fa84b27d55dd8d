package loadpath

import (
	"go/scanner"
	"go/token"
	"strings"

	"typescan/internal/typeinfo"
)

var predeclared = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true,
	"complex64": true, "complex128": true, "error": true,
	"float32": true, "float64": true, "int": true, "int8": true,
	"int16": true, "int32": true, "int64": true, "rune": true,
	"string": true, "uint": true, "uint8": true, "uint16": true,
	"uint32": true, "uint64": true, "uintptr": true,
}

type sigToken struct {
	tok token.Token
	lit string
}

// qualifySignature rewrites every named type in a canonical signature to its
// qualified identifier, resolving names the way qualify does: "Food" in
// namespace zoo.mock becomes "zoo.mock.Food", "base.Food" goes through the
// import table. Predeclared types are left alone, as are parameter and
// field names inside func and struct types.
func qualifySignature(ns string, imports map[string]string, sig string) string {
	toks := scanSignature(sig)

	var b strings.Builder
	prevWord := false
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		lit := t.lit
		if t.tok == token.IDENT {
			switch {
			case i+2 < len(toks) && toks[i+1].tok == token.PERIOD && toks[i+2].tok == token.IDENT:
				lit = qualifySelector(imports, t.lit, toks[i+2].lit)
				i += 2
			case predeclared[t.lit] || isFieldName(toks, i):
			default:
				lit = typeinfo.Qualify(ns, t.lit)
			}
		}
		word := t.tok.IsLiteral() || t.tok.IsKeyword()
		if word && prevWord {
			b.WriteByte(' ')
		}
		b.WriteString(lit)
		prevWord = word
	}
	return b.String()
}

func scanSignature(sig string) []sigToken {
	src := []byte(sig)
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))

	var s scanner.Scanner
	s.Init(file, src, nil, 0)

	var toks []sigToken
	for {
		_, tok, lit := s.Scan()
		if tok == token.EOF {
			return toks
		}
		// Automatic semicolons carry "\n" as their literal.
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		if lit == "" {
			lit = tok.String()
		}
		toks = append(toks, sigToken{tok: tok, lit: lit})
	}
}

// isFieldName reports whether the identifier at i is a parameter or field
// name, i.e. the start of a type follows it directly.
func isFieldName(toks []sigToken, i int) bool {
	if i+1 >= len(toks) {
		return false
	}
	switch toks[i+1].tok {
	case token.IDENT, token.MUL, token.ELLIPSIS, token.ARROW,
		token.FUNC, token.MAP, token.CHAN, token.STRUCT, token.INTERFACE:
		return true
	}
	return false
}

func qualifySelector(imports map[string]string, pkg, name string) string {
	if importPath, ok := imports[pkg]; ok {
		return typeinfo.Qualify(typeinfo.PathNamespace(importPath), name)
	}
	return pkg + "." + name
}
