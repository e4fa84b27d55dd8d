package scan

import (
	"fmt"
	"io"
	"strings"

	"typescan/internal/resource"
)

// DefaultMaxDepth bounds directory descent below a root.
const DefaultMaxDepth = 64

// DirectoryAdapter enumerates directory-backed roots through their listing
// content: a directory reads as its child names, one per line.
//
// Without a DirectoryProber, every child is probed by resolving its path. If
// any child of a listing does not resolve, the listing was not a directory
// after all (it was a leaf's own content) and is discarded whole. A genuinely
// empty directory is therefore indistinguishable from a leaf.
type DirectoryAdapter struct {
	ctx      Context
	resolver *Resolver
	prober   DirectoryProber
	maxDepth int
	report   func(Diagnostic)
}

func NewDirectoryAdapter(ctx Context, resolver *Resolver, maxDepth int, report func(Diagnostic)) *DirectoryAdapter {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if report == nil {
		report = func(Diagnostic) {}
	}
	prober, _ := ctx.(DirectoryProber)
	return &DirectoryAdapter{
		ctx:      ctx,
		resolver: resolver,
		prober:   prober,
		maxDepth: maxDepth,
		report:   report,
	}
}

// ListChildren returns every path reachable below loc, which is the location
// of p. Directories and leaves are both included. Failed branches are
// reported and skipped; only a failure to read loc itself is returned.
func (a *DirectoryAdapter) ListChildren(loc resource.Location, p string) ([]string, error) {
	return a.list(loc, normalizePath(p), 0)
}

func (a *DirectoryAdapter) list(loc resource.Location, p string, depth int) ([]string, error) {
	names, err := a.readListing(loc)
	if err != nil {
		return nil, err
	}
	if a.prober != nil {
		return a.listProbed(loc, p, names, depth), nil
	}

	for _, name := range names {
		locs, err := a.resolver.Resolve(joinPath(p, name))
		if err != nil {
			return nil, err
		}
		if len(locs) == 0 {
			return nil, nil
		}
	}

	var out []string
	for _, name := range names {
		child := joinPath(p, name)
		out = append(out, child)
		if depth+1 > a.maxDepth {
			a.report(depthDiagnostic(loc.Join(name), a.maxDepth))
			continue
		}
		sub, err := a.list(loc.Join(name), child, depth+1)
		if err != nil {
			a.report(branchDiagnostic(loc.Join(name), err))
			continue
		}
		out = append(out, sub...)
	}
	return out, nil
}

func (a *DirectoryAdapter) listProbed(loc resource.Location, p string, names []string, depth int) []string {
	var out []string
	for _, name := range names {
		child := joinPath(p, name)
		childLoc := loc.Join(name)
		out = append(out, child)

		dir, err := a.prober.IsDirectory(childLoc)
		if err != nil {
			a.report(branchDiagnostic(childLoc, err))
			continue
		}
		if !dir {
			continue
		}
		if depth+1 > a.maxDepth {
			a.report(depthDiagnostic(childLoc, a.maxDepth))
			continue
		}
		sub, err := a.list(childLoc, child, depth+1)
		if err != nil {
			a.report(branchDiagnostic(childLoc, err))
			continue
		}
		out = append(out, sub...)
	}
	return out
}

// readListing reads the whole listing and closes it before returning.
func (a *DirectoryAdapter) readListing(loc resource.Location) ([]string, error) {
	rc, err := a.ctx.Open(loc)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing of %s: %w", loc, err)
	}
	var names []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

func branchDiagnostic(loc resource.Location, err error) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Code:     CodeBranchUnreadable,
		Message:  "skipping unreadable branch",
		Path:     loc.String(),
		Cause:    err,
	}
}

func depthDiagnostic(loc resource.Location, limit int) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Code:     CodeBranchUnreadable,
		Message:  fmt.Sprintf("not descending past depth %d", limit),
		Path:     loc.String(),
	}
}
