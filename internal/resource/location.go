// Package resource models the locations a loading context hands out for
// directories, files and archive entries.
package resource

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

const (
	SchemeFile    = "file"
	SchemeArchive = "zip"

	// entrySeparator splits an archive location into archive and entry parts.
	entrySeparator = "!/"
)

// Location is the external form of a resource, e.g. "file:///src/zoo/mock"
// or "zip:file:///lib/zoo.zip!/zoo/mock".
type Location string

func (l Location) String() string { return string(l) }

// File returns the location of a filesystem path.
func File(p string) Location {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: SchemeFile, Path: p}
	return Location(u.String())
}

// ArchiveEntry returns the location of entry inside the archive at archive.
func ArchiveEntry(archive Location, entry string) Location {
	return Location(SchemeArchive + ":" + string(archive) + entrySeparator + strings.TrimPrefix(entry, "/"))
}

// FilePath returns the filesystem path of a file location.
func (l Location) FilePath() (string, error) {
	u, err := url.Parse(string(l))
	if err != nil {
		return "", fmt.Errorf("invalid location %q: %w", l, err)
	}
	if u.Scheme != SchemeFile || u.Opaque != "" {
		return "", fmt.Errorf("not a file location: %q", l)
	}
	return filepath.FromSlash(u.Path), nil
}

// SplitArchive separates an archive entry location into the archive location
// and the entry path (without leading slash).
func (l Location) SplitArchive() (archive Location, entry string, ok bool) {
	s := string(l)
	if !strings.HasPrefix(s, SchemeArchive+":") {
		return "", "", false
	}
	s = strings.TrimPrefix(s, SchemeArchive+":")
	idx := strings.LastIndex(s, entrySeparator)
	if idx < 0 {
		return "", "", false
	}
	return Location(s[:idx]), s[idx+len(entrySeparator):], true
}

// Join returns the location of a child below l.
func (l Location) Join(child string) Location {
	child = strings.Trim(child, "/")
	if archive, entry, ok := l.SplitArchive(); ok {
		return ArchiveEntry(archive, path.Join(entry, child))
	}
	if u, err := url.Parse(string(l)); err == nil && u.Opaque == "" && u.Scheme != "" {
		u.Path = path.Join(u.Path, child)
		return Location(u.String())
	}
	return Location(strings.TrimSuffix(string(l), "/") + "/" + child)
}

// Unwrap strips nested URL forms from the location until the remainder is no
// longer itself a URL with a scheme. "zip:file:///a.zip!/x" unwraps to
// "file:///a.zip!/x". The last successfully parsed form is returned.
func Unwrap(l Location) string {
	s := string(l)
	for {
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Opaque == "" {
			return s
		}
		inner := s[len(u.Scheme)+1:]
		next, err := url.Parse(inner)
		if err != nil || next.Scheme == "" {
			return s
		}
		s = inner
	}
}
