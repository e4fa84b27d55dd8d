package loadpath

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"typescan/internal/resource"
	"typescan/internal/zipstream"
)

// index records entry names and the directories they imply.
func (r *root) index(rd io.Reader) error {
	z := zipstream.NewReader(rd)
	for {
		hdr, err := z.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(hdr.Name, "/")
		if hdr.IsDir() {
			name = strings.TrimSuffix(name, "/")
		} else {
			r.files[name] = true
			name = path.Dir(name)
		}
		for name != "." && name != "" && !r.dirs[name] {
			r.dirs[name] = true
			name = path.Dir(name)
		}
	}
}

func (r *root) children(dir string) []string {
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name == dir || !strings.HasPrefix(name, prefix) {
			return
		}
		child, _, _ := strings.Cut(strings.TrimPrefix(name, prefix), "/")
		if child != "" && !seen[child] {
			seen[child] = true
			names = append(names, child)
		}
	}
	for name := range r.files {
		add(name)
	}
	for name := range r.dirs {
		add(name)
	}
	return names
}

func (p *Path) archiveRoot(loc resource.Location) *root {
	for _, r := range p.roots {
		if r.kind == rootArchive && r.loc == loc {
			return r
		}
	}
	return nil
}

type entryReader struct {
	io.Reader
	io.Closer
}

func (p *Path) openArchiveEntry(archive resource.Location, entry string) (io.ReadCloser, error) {
	entry = strings.Trim(entry, "/")
	if r := p.archiveRoot(archive); r != nil && r.dirs[entry] && !r.files[entry] {
		return listing(r.children(entry)), nil
	}

	name, err := archive.FilePath()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedLocation, err)
	}
	f, err := p.fs.Open(name)
	if err != nil {
		return nil, err
	}

	z := zipstream.NewReader(f)
	for {
		hdr, err := z.Next()
		if err != nil {
			f.Close()
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%s in %s: %w", entry, name, fs.ErrNotExist)
			}
			return nil, err
		}
		if !hdr.IsDir() && strings.TrimPrefix(hdr.Name, "/") == entry {
			return entryReader{Reader: z, Closer: f}, nil
		}
	}
}
