package scan

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
)

const (
	// SeverityWarning marks a skipped namespace, root, branch or candidate.
	SeverityWarning Severity = "warning"
	// SeverityError marks a failure that cost the query a whole root.
	SeverityError Severity = "error"
)

// Diagnostic codes.
const (
	CodeNamespaceUnresolved = "namespace_unresolved"
	CodeRootUnreadable      = "root_unreadable"
	CodeBranchUnreadable    = "branch_unreadable"
	CodeCandidateMalformed  = "candidate_malformed"
	CodeCandidateUnloadable = "candidate_unloadable"
)

type (
	// Severity represents diagnostic severity.
	Severity string

	// Diagnostic describes something a query skipped. Diagnostics never turn
	// into query failures.
	Diagnostic struct {
		Severity Severity
		// Code is a machine-readable identifier (e.g., "candidate_unloadable").
		Code    string
		Message string
		// Path is the namespace, location, candidate path or identifier concerned.
		Path  string
		Cause error
	}

	// Sink receives diagnostics as a query produces them.
	Sink interface {
		Report(d Diagnostic)
	}

	// SinkFunc adapts a function to a Sink.
	SinkFunc func(d Diagnostic)
)

func (d Diagnostic) String() string {
	if d.Cause != nil {
		return fmt.Sprintf("%s: %s (%s): %v", d.Code, d.Message, d.Path, d.Cause)
	}
	return fmt.Sprintf("%s: %s (%s)", d.Code, d.Message, d.Path)
}

func (f SinkFunc) Report(d Diagnostic) {
	if f != nil {
		f(d)
	}
}

// LogSink writes diagnostics to a logger.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Report(d Diagnostic) {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	kv := []any{"code", d.Code, "path", d.Path}
	if d.Cause != nil {
		kv = append(kv, "err", d.Cause)
	}
	if d.Severity == SeverityError {
		logger.Error(d.Message, kv...)
		return
	}
	logger.Warn(d.Message, kv...)
}

// Collector keeps every diagnostic it receives. It is safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, d)
}

// Diagnostics returns a copy of what was reported, in order.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// Codes returns the code of every diagnostic, in order.
func (c *Collector) Codes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.diags))
	for _, d := range c.diags {
		out = append(out, d.Code)
	}
	return out
}

// Err aggregates all diagnostics into a single error, or nil if none were
// reported.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result *multierror.Error
	for _, d := range c.diags {
		result = multierror.Append(result, diagnosticError{d})
	}
	return result.ErrorOrNil()
}

type diagnosticError struct {
	d Diagnostic
}

func (e diagnosticError) Error() string { return e.d.String() }
func (e diagnosticError) Unwrap() error { return e.d.Cause }

// Tee fans a diagnostic out to several sinks.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(d Diagnostic) {
		for _, s := range sinks {
			if s != nil {
				s.Report(d)
			}
		}
	})
}
