package scan

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"typescan/internal/resource"
	"typescan/internal/zipstream"
)

// DefaultArchiveSuffixes are the file name suffixes that can end an archive
// boundary inside a nested location.
var DefaultArchiveSuffixes = []string{".zip", ".jar"}

// ArchiveAdapter detects archive-backed roots and lists their entries in a
// single forward pass.
type ArchiveAdapter struct {
	ctx      Context
	suffixes []string
}

func NewArchiveAdapter(ctx Context, suffixes ...string) *ArchiveAdapter {
	if len(suffixes) == 0 {
		suffixes = DefaultArchiveSuffixes
	}
	return &ArchiveAdapter{ctx: ctx, suffixes: suffixes}
}

// IsArchive reports whether loc lies inside an archive and, if so, returns
// the location of the archive itself. The location is unwrapped down to its
// innermost URL, cut after the last archive suffix, and the result is opened
// and checked for the zip magic. Any failure along the way means "no".
func (a *ArchiveAdapter) IsArchive(loc resource.Location) (resource.Location, bool) {
	candidate := resource.Location(a.boundary(resource.Unwrap(loc)))

	rc, err := a.ctx.Open(candidate)
	if err != nil {
		return "", false
	}
	defer rc.Close()

	ok, err := zipstream.HasMagic(rc)
	if err != nil || !ok {
		return "", false
	}
	return candidate, true
}

func (a *ArchiveAdapter) boundary(s string) string {
	cut := -1
	for _, suffix := range a.suffixes {
		if idx := strings.LastIndex(s, suffix); idx >= 0 && idx+len(suffix) > cut {
			cut = idx + len(suffix)
		}
	}
	if cut < 0 {
		return s
	}
	return s[:cut]
}

// ListEntries returns the path of every file entry under prefix, relative to
// the archive root. Directory markers are skipped.
func (a *ArchiveAdapter) ListEntries(archive resource.Location, prefix string) (entries []string, err error) {
	rc, err := a.ctx.Open(archive)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", archive, err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close archive %s: %w", archive, cerr)
		}
	}()

	prefix = normalizePrefix(prefix)
	z := zipstream.NewReader(rc)
	for {
		hdr, err := z.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive %s: %w", archive, err)
		}
		if hdr.IsDir() {
			continue
		}
		name := hdr.Name
		if !strings.HasPrefix(name, "/") {
			name = "/" + name
		}
		if strings.HasPrefix(name, prefix) {
			entries = append(entries, strings.TrimPrefix(name, "/"))
		}
	}
}

// normalizePrefix returns prefix with exactly one leading and one trailing
// slash; the empty prefix becomes "/".
func normalizePrefix(prefix string) string {
	prefix = normalizePath(prefix)
	if prefix == "" {
		return "/"
	}
	return "/" + prefix + "/"
}
