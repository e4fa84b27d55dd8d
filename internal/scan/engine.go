package scan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"typescan/internal/matcher"
	"typescan/internal/resource"
	"typescan/internal/typeinfo"
)

// DefaultUnitSuffix is the file suffix of type-defining units.
const DefaultUnitSuffix = ".go"

var errMalformed = errors.New("malformed candidate path")

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets where diagnostics go. The default logs them.
func WithSink(s Sink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithUnitSuffix sets the suffix of type-defining units. Files ending in
// "_test" plus the suffix are never units.
func WithUnitSuffix(suffix string) Option {
	return func(e *Engine) {
		if suffix != "" {
			e.unitSuffix = suffix
		}
	}
}

func WithArchiveSuffixes(suffixes ...string) Option {
	return func(e *Engine) {
		if len(suffixes) > 0 {
			e.archiveSuffixes = suffixes
		}
	}
}

func WithMaxDepth(depth int) Option {
	return func(e *Engine) { e.maxDepth = depth }
}

// Engine runs discovery queries against a loading context. It holds no
// per-query state and may be reused.
type Engine struct {
	ctx             Context
	logger          *log.Logger
	sink            Sink
	unitSuffix      string
	archiveSuffixes []string
	maxDepth        int
}

func NewEngine(ctx Context, opts ...Option) *Engine {
	e := &Engine{
		ctx:             ctx,
		logger:          log.Default(),
		unitSuffix:      DefaultUnitSuffix,
		archiveSuffixes: DefaultArchiveSuffixes,
		maxDepth:        DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sink == nil {
		e.sink = LogSink{Logger: e.logger}
	}
	return e
}

// Find returns every type in the given namespaces that m accepts. Failures
// are reported to the sink and skipped; Find itself never fails.
func (e *Engine) Find(m matcher.Matcher, namespaces ...string) *MatchSet {
	resolver := NewResolver(e.ctx)
	archives := NewArchiveAdapter(e.ctx, e.archiveSuffixes...)
	dirs := NewDirectoryAdapter(e.ctx, resolver, e.maxDepth, e.sink.Report)

	acc := newAccumulator(e.sink.Report)
	examined := make(map[string]bool)

	for _, ns := range namespaces {
		acc.stats.Namespaces++
		nsPath := typeinfo.NamespacePath(ns)

		roots, err := resolver.Resolve(nsPath)
		if err != nil {
			e.sink.Report(Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeNamespaceUnresolved,
				Message:  "skipping namespace that could not be resolved",
				Path:     ns,
				Cause:    err,
			})
			continue
		}
		e.logger.Debug("resolved namespace", "namespace", ns, "roots", len(roots))

		for _, root := range roots {
			acc.stats.Roots++
			candidates, err := e.candidates(archives, dirs, root, nsPath)
			if err != nil {
				e.sink.Report(Diagnostic{
					Severity: SeverityError,
					Code:     CodeRootUnreadable,
					Message:  "skipping unreadable root",
					Path:     root.String(),
					Cause:    err,
				})
				continue
			}
			for _, c := range candidates {
				if !e.isUnit(c) {
					continue
				}
				acc.add(e.examine(m, ns, c, examined))
			}
		}
	}

	set := acc.result()
	e.logger.Debug("query finished", "matched", set.Len(), "skipped", set.stats.Skipped)
	return set
}

func (e *Engine) candidates(archives *ArchiveAdapter, dirs *DirectoryAdapter, root resource.Location, nsPath string) ([]string, error) {
	if archive, ok := archives.IsArchive(root); ok {
		return archives.ListEntries(archive, nsPath)
	}
	return dirs.ListChildren(root, nsPath)
}

func (e *Engine) isUnit(p string) bool {
	return strings.HasSuffix(p, e.unitSuffix) && !strings.HasSuffix(p, "_test"+e.unitSuffix)
}

func (e *Engine) examine(m matcher.Matcher, ns, p string, examined map[string]bool) Outcome {
	o := Outcome{Namespace: ns, Path: p}

	id, err := e.identify(p)
	if err != nil {
		o.Status, o.Stage, o.Cause = StatusSkipped, StageIdentify, err
		return o
	}
	o.ID = id
	if examined[id] {
		o.Status = StatusDuplicate
		return o
	}
	examined[id] = true

	h, err := e.load(id)
	if err != nil {
		o.Status, o.Stage, o.Cause = StatusSkipped, StageLoad, err
		return o
	}
	o.Handle = h
	if m != nil && m.Matches(h) {
		o.Status = StatusMatched
	} else {
		o.Status = StatusRejected
	}
	return o
}

// identify turns "zoo/mock/Dog.go" into "zoo.mock.Dog".
func (e *Engine) identify(p string) (string, error) {
	segments := strings.Split(strings.TrimSuffix(p, e.unitSuffix), "/")
	for _, s := range segments {
		if s == "" || strings.Contains(s, ".") {
			return "", fmt.Errorf("%w: %q", errMalformed, p)
		}
	}
	return strings.Join(segments, "."), nil
}

func (e *Engine) load(id string) (h typeinfo.Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("loading %s panicked: %v", id, r)
		}
	}()
	h, err = e.ctx.Load(id)
	if err == nil && h == nil {
		err = fmt.Errorf("loading %s returned no handle", id)
	}
	return h, err
}
