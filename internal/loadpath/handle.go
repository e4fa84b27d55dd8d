package loadpath

import (
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"typescan/internal/extractor"
	"typescan/internal/resource"
	"typescan/internal/typeinfo"
)

// maxUnitSize bounds how much of a unit is read before parsing.
var maxUnitSize = 16 << 20

// TypeHandle is a type materialized from a unit on the lookup path.
type TypeHandle struct {
	loader      *Path
	id          string
	name        string
	namespace   string
	kind        typeinfo.Kind
	description string
	markers     []string
	embeds      []string
	asserts     []string
	methods     []typeinfo.Method
	source      resource.Location
}

var _ typeinfo.Handle = (*TypeHandle)(nil)

func (h *TypeHandle) ID() string          { return h.id }
func (h *TypeHandle) Name() string        { return h.name }
func (h *TypeHandle) Namespace() string   { return h.namespace }
func (h *TypeHandle) Kind() typeinfo.Kind { return h.kind }
func (h *TypeHandle) Description() string { return h.description }
func (h *TypeHandle) Source() string      { return h.source.String() }

func (h *TypeHandle) Markers() []string {
	return slices.Clone(h.markers)
}

// Supertypes returns the qualified embedded and asserted types.
func (h *TypeHandle) Supertypes() []string {
	return slices.Concat(h.embeds, h.asserts)
}

// Methods returns the declared methods, value and pointer receivers alike,
// with every type in their signatures qualified.
func (h *TypeHandle) Methods() []typeinfo.Method {
	return slices.Clone(h.methods)
}

func (h *TypeHandle) HasMarker(id string) bool {
	return h != nil && slices.Contains(h.markers, id)
}

// AssignableTo reports whether h is the base type, reaches it through
// embedding or assertions, or (for an interface base) has every method the
// base requires. Method sets are those of *T, so pointer receivers count.
// Supertypes that cannot be loaded are ignored.
func (h *TypeHandle) AssignableTo(base string) bool {
	if h == nil || base == "" {
		return false
	}
	if h.reaches(base, make(map[string]bool)) {
		return true
	}
	target, err := h.loader.load(base)
	if err != nil || target.kind != typeinfo.KindInterface {
		return false
	}
	have := h.methodSet(make(map[string]bool))
	for key := range target.methodSet(make(map[string]bool)) {
		if !have[key] {
			return false
		}
	}
	return true
}

func (h *TypeHandle) reaches(base string, seen map[string]bool) bool {
	if h.id == base {
		return true
	}
	if seen[h.id] {
		return false
	}
	seen[h.id] = true
	for _, st := range h.Supertypes() {
		if st == base {
			return true
		}
		sup, err := h.loader.load(st)
		if err != nil {
			continue
		}
		if sup.reaches(base, seen) {
			return true
		}
	}
	return false
}

// methodSet collects own and promoted method keys.
func (h *TypeHandle) methodSet(seen map[string]bool) map[string]bool {
	set := make(map[string]bool)
	if seen[h.id] {
		return set
	}
	seen[h.id] = true
	for _, m := range h.methods {
		set[m.Key()] = true
	}
	if h.kind != typeinfo.KindStruct && h.kind != typeinfo.KindInterface {
		return set
	}
	// Only embedding promotes methods; asserted interfaces add none.
	for _, st := range h.embeds {
		sup, err := h.loader.load(st)
		if err != nil {
			continue
		}
		for key := range sup.methodSet(seen) {
			set[key] = true
		}
	}
	return set
}

// Load materializes the type with the given qualified identifier.
func (p *Path) Load(id string) (typeinfo.Handle, error) {
	h, err := p.load(id)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (p *Path) load(id string) (*TypeHandle, error) {
	if p.handles != nil {
		if h, ok := p.handles.Get(id); ok {
			return h, nil
		}
	}

	ns, name := typeinfo.Split(id)
	if name == "" {
		return nil, fmt.Errorf("%w: %q is not a type identifier", ErrTypeNotFound, id)
	}
	unit := path.Join(typeinfo.NamespacePath(ns), name+p.unitSuffix)
	locs, err := p.Resources(unit)
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, fmt.Errorf("%w: %s (no %s on the lookup path)", ErrTypeNotFound, id, unit)
	}

	src, err := p.read(locs[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", locs[0], err)
	}
	file, err := p.ext.ExtractFromSource(context.Background(), locs[0].String(), src)
	if err != nil {
		return nil, err
	}
	decl, ok := file.Type(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not declare type %s", ErrTypeNotFound, locs[0], name)
	}

	h := newTypeHandle(p, ns, decl, file.Imports, locs[0])
	if p.handles != nil {
		p.handles.Add(id, h)
	}
	return h, nil
}

func (p *Path) read(loc resource.Location) ([]byte, error) {
	rc, err := p.Open(loc)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	src, err := io.ReadAll(io.LimitReader(rc, int64(maxUnitSize)+1))
	if err != nil {
		return nil, err
	}
	if len(src) > maxUnitSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrUnitTooLarge, loc, maxUnitSize)
	}
	return src, nil
}

func newTypeHandle(loader *Path, ns string, decl *extractor.TypeDecl, imports map[string]string, source resource.Location) *TypeHandle {
	h := &TypeHandle{
		loader:      loader,
		id:          typeinfo.Qualify(ns, decl.Name),
		name:        decl.Name,
		namespace:   ns,
		kind:        decl.Kind,
		description: decl.Description,
		source:      source,
	}
	for _, m := range decl.Methods {
		m.Signature = qualifySignature(ns, imports, m.Signature)
		h.methods = append(h.methods, m)
	}
	for _, m := range decl.Markers {
		h.markers = append(h.markers, qualify(ns, imports, m))
	}
	for _, e := range decl.Embeds {
		h.embeds = append(h.embeds, qualify(ns, imports, e))
	}
	for _, a := range decl.Asserts {
		h.asserts = append(h.asserts, qualify(ns, imports, a))
	}
	return h
}

// qualify resolves a type or marker name as written in a unit of namespace ns.
// "Animal" becomes "ns.Animal"; "base.Animal" goes through the import table;
// a dotted name with no matching import is taken as already qualified.
func qualify(ns string, imports map[string]string, name string) string {
	name = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(name), "*"))
	if idx := strings.Index(name, "["); idx >= 0 {
		name = name[:idx]
	}
	prefix, rest, dotted := strings.Cut(name, ".")
	if !dotted {
		return typeinfo.Qualify(ns, name)
	}
	if importPath, ok := imports[prefix]; ok {
		return typeinfo.Qualify(typeinfo.PathNamespace(importPath), rest)
	}
	return name
}
