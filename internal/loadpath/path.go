// Package loadpath implements the loading context discovery runs against: an
// ordered lookup path of directory trees and zip archives from which resources
// are resolved and opened and type handles are materialized.
package loadpath

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"typescan/internal/extractor"
	"typescan/internal/resource"
	"typescan/internal/zipstream"
)

var (
	// ErrTypeNotFound is returned when no unit on the lookup path declares the requested type.
	ErrTypeNotFound = errors.New("type not found")
	// ErrUnsupportedLocation is returned for locations this lookup path did not hand out.
	ErrUnsupportedLocation = errors.New("unsupported location")
	// ErrUnitTooLarge is returned for units too large to parse.
	ErrUnitTooLarge = errors.New("unit too large")
)

const (
	DefaultUnitSuffix = ".go"
	DefaultCacheSize  = 256
)

type rootKind int

const (
	rootDirectory rootKind = iota
	rootArchive
)

func (k rootKind) String() string {
	if k == rootArchive {
		return "archive"
	}
	return "directory"
}

type root struct {
	path string
	kind rootKind
	loc  resource.Location
	// Archive index: file entries and implied directories ("" is the archive root).
	files map[string]bool
	dirs  map[string]bool
}

func (r *root) join(p string) string {
	if p == "" {
		return r.path
	}
	return filepath.Join(r.path, filepath.FromSlash(p))
}

// Path is an ordered lookup path. It is safe for concurrent use once built.
type Path struct {
	fs         afero.Fs
	roots      []*root
	ext        *extractor.Extractor
	handles    *lru.Cache[string, *TypeHandle]
	unitSuffix string
	cacheSize  int
	logger     *log.Logger
}

// Option configures a Path.
type Option func(*Path)

// WithLogger sets the logger used for skipped roots.
func WithLogger(l *log.Logger) Option {
	return func(p *Path) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCacheSize bounds the table of materialized handles. Zero disables it.
func WithCacheSize(n int) Option {
	return func(p *Path) { p.cacheSize = n }
}

// WithUnitSuffix sets the file suffix of type-defining units.
func WithUnitSuffix(suffix string) Option {
	return func(p *Path) {
		if suffix != "" {
			p.unitSuffix = suffix
		}
	}
}

// New builds a lookup path from roots, in order. Each root is classified by
// content: a directory, or a file starting with the zip magic. Roots that are
// missing or neither are logged and left out.
func New(fsys afero.Fs, roots []string, opts ...Option) (*Path, error) {
	p := &Path{
		fs:         fsys,
		unitSuffix: DefaultUnitSuffix,
		cacheSize:  DefaultCacheSize,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	ext, err := extractor.NewExtractor("go")
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	p.ext = ext

	if p.cacheSize > 0 {
		p.handles, err = lru.New[string, *TypeHandle](p.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create handle cache: %w", err)
		}
	}

	for _, r := range roots {
		rt, err := p.classify(r)
		if err != nil {
			p.logger.Warn("skipping lookup root", "root", r, "err", err)
			continue
		}
		p.logger.Debug("lookup root", "root", rt.path, "kind", rt.kind)
		p.roots = append(p.roots, rt)
	}
	return p, nil
}

// Roots returns the locations of the usable roots, in lookup order.
func (p *Path) Roots() []resource.Location {
	out := make([]resource.Location, 0, len(p.roots))
	for _, r := range p.roots {
		out = append(out, r.loc)
	}
	return out
}

func (p *Path) classify(name string) (*root, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}
	info, err := p.fs.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &root{path: abs, kind: rootDirectory, loc: resource.File(abs)}, nil
	}

	f, err := p.fs.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ok, err := zipstream.HasMagic(f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s is neither a directory nor a zip archive", abs)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	r := &root{
		path:  abs,
		kind:  rootArchive,
		loc:   resource.File(abs),
		files: make(map[string]bool),
		dirs:  map[string]bool{"": true},
	}
	if err := r.index(f); err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", abs, err)
	}
	return r, nil
}

// Resources returns every location on the lookup path that defines the
// slash-separated path p. An empty result is not an error.
func (p *Path) Resources(name string) ([]resource.Location, error) {
	name = strings.Trim(filepath.ToSlash(name), "/")
	var locs []resource.Location
	for _, r := range p.roots {
		switch r.kind {
		case rootDirectory:
			full := r.join(name)
			if _, err := p.fs.Stat(full); err != nil {
				if os.IsPermission(err) {
					return nil, fmt.Errorf("failed to resolve %s in %s: %w", name, r.path, err)
				}
				continue
			}
			locs = append(locs, resource.File(full))
		case rootArchive:
			if r.files[name] || r.dirs[name] {
				locs = append(locs, resource.ArchiveEntry(r.loc, name))
			}
		}
	}
	return locs, nil
}

// Open returns the content of loc. Directories, in the filesystem or implied
// inside an archive, read as their sorted child names, one per line.
func (p *Path) Open(loc resource.Location) (io.ReadCloser, error) {
	if archive, entry, ok := loc.SplitArchive(); ok {
		return p.openArchiveEntry(archive, entry)
	}

	name, err := loc.FilePath()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedLocation, err)
	}
	info, err := p.fs.Stat(name)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return p.fs.Open(name)
	}

	infos, err := afero.ReadDir(p.fs, name)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	return listing(names), nil
}

// IsDirectory reports whether loc is a directory rather than a leaf.
func (p *Path) IsDirectory(loc resource.Location) (bool, error) {
	if archive, entry, ok := loc.SplitArchive(); ok {
		r := p.archiveRoot(archive)
		if r == nil {
			return false, fmt.Errorf("%w: %s", ErrUnsupportedLocation, loc)
		}
		return r.dirs[entry] && !r.files[entry], nil
	}

	name, err := loc.FilePath()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnsupportedLocation, err)
	}
	info, err := p.fs.Stat(name)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func listing(names []string) io.ReadCloser {
	sort.Strings(names)
	return io.NopCloser(strings.NewReader(strings.Join(names, "\n")))
}
