package scan

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"typescan/internal/resource"
	"typescan/internal/typeinfo"
)

var (
	errDenied   = errors.New("permission denied")
	errNotFound = errors.New("not found")
)

// memContext is a loading context over in-memory trees, one per root. Its
// locations look like "mem://r0/zoo/mock".
type memContext struct {
	roots      []map[string]string
	handles    map[string]*stubHandle
	unreadable map[string]bool
	loadErrs   map[string]error
	panics     map[string]bool
	resolveErr error
	opened     int
	closed     int
}

func newMemContext(roots ...map[string]string) *memContext {
	return &memContext{
		roots:      roots,
		handles:    make(map[string]*stubHandle),
		unreadable: make(map[string]bool),
		loadErrs:   make(map[string]error),
		panics:     make(map[string]bool),
	}
}

func (c *memContext) define(h *stubHandle) *memContext {
	c.handles[h.id] = h
	return c
}

func (c *memContext) isDir(root map[string]string, p string) bool {
	if p == "" {
		return true
	}
	for name := range root {
		if strings.HasPrefix(name, p+"/") {
			return true
		}
	}
	return false
}

func (c *memContext) Resources(p string) ([]resource.Location, error) {
	if c.resolveErr != nil {
		return nil, c.resolveErr
	}
	var locs []resource.Location
	for i, root := range c.roots {
		if _, ok := root[p]; ok || c.isDir(root, p) {
			locs = append(locs, resource.Location(fmt.Sprintf("mem://r%d/%s", i, p)))
		}
	}
	return locs, nil
}

func (c *memContext) locate(loc resource.Location) (map[string]string, string, error) {
	u, err := url.Parse(loc.String())
	if err != nil || u.Scheme != "mem" {
		return nil, "", fmt.Errorf("%s: %w", loc, errNotFound)
	}
	var i int
	if _, err := fmt.Sscanf(u.Host, "r%d", &i); err != nil || i >= len(c.roots) {
		return nil, "", fmt.Errorf("%s: %w", loc, errNotFound)
	}
	return c.roots[i], strings.Trim(u.Path, "/"), nil
}

func (c *memContext) Open(loc resource.Location) (io.ReadCloser, error) {
	root, p, err := c.locate(loc)
	if err != nil {
		return nil, err
	}
	if c.unreadable[p] {
		return nil, fmt.Errorf("%s: %w", p, errDenied)
	}
	if content, ok := root[p]; ok {
		return c.track(content), nil
	}
	if !c.isDir(root, p) {
		return nil, fmt.Errorf("%s: %w", p, errNotFound)
	}
	prefix := ""
	if p != "" {
		prefix = p + "/"
	}
	var names []string
	for name := range root {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			child, _, _ := strings.Cut(rest, "/")
			if !slices.Contains(names, child) {
				names = append(names, child)
			}
		}
	}
	sort.Strings(names)
	return c.track(strings.Join(names, "\n")), nil
}

func (c *memContext) track(content string) io.ReadCloser {
	c.opened++
	return &trackedReader{Reader: strings.NewReader(content), onClose: func() { c.closed++ }}
}

func (c *memContext) Load(id string) (typeinfo.Handle, error) {
	if c.panics[id] {
		panic("loader exploded on " + id)
	}
	if err := c.loadErrs[id]; err != nil {
		return nil, err
	}
	h, ok := c.handles[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, errNotFound)
	}
	return h, nil
}

// proberContext adds directory detection to memContext.
type proberContext struct {
	*memContext
}

func (c proberContext) IsDirectory(loc resource.Location) (bool, error) {
	root, p, err := c.locate(loc)
	if err != nil {
		return false, err
	}
	if c.unreadable[p] {
		return false, fmt.Errorf("%s: %w", p, errDenied)
	}
	_, leaf := root[p]
	return !leaf && c.isDir(root, p), nil
}

type trackedReader struct {
	io.Reader
	onClose func()
}

func (r *trackedReader) Close() error {
	r.onClose()
	return nil
}

type stubHandle struct {
	id      string
	markers []string
	bases   []string
}

func stub(id string, markers []string, bases ...string) *stubHandle {
	return &stubHandle{id: id, markers: markers, bases: bases}
}

func (h *stubHandle) ID() string { return h.id }

func (h *stubHandle) Name() string {
	_, name := typeinfo.Split(h.id)
	return name
}

func (h *stubHandle) Namespace() string {
	ns, _ := typeinfo.Split(h.id)
	return ns
}

func (h *stubHandle) Kind() typeinfo.Kind      { return typeinfo.KindStruct }
func (h *stubHandle) Markers() []string        { return h.markers }
func (h *stubHandle) HasMarker(id string) bool { return slices.Contains(h.markers, id) }
func (h *stubHandle) Source() string           { return "mem:" + h.id }

func (h *stubHandle) AssignableTo(id string) bool {
	return id == h.id || slices.Contains(h.bases, id)
}

func quietEngine(ctx Context, opts ...Option) (*Engine, *Collector) {
	collector := &Collector{}
	opts = append([]Option{WithLogger(log.New(io.Discard)), WithSink(collector)}, opts...)
	return NewEngine(ctx, opts...), collector
}

func mustQuery(t *testing.T, e *Engine, namespaces ...string) *Query {
	t.Helper()
	q, err := e.Query(namespaces...)
	require.NoError(t, err)
	return q
}
