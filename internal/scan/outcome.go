package scan

import "typescan/internal/typeinfo"

// Status is what happened to one candidate.
type Status int

const (
	StatusMatched Status = iota
	StatusRejected
	StatusSkipped
	// StatusDuplicate marks an identifier already examined by the same query.
	StatusDuplicate
)

func (s Status) String() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusRejected:
		return "rejected"
	case StatusSkipped:
		return "skipped"
	case StatusDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Stage names the step a skipped candidate failed at.
type Stage string

const (
	StageIdentify Stage = "identify"
	StageLoad     Stage = "load"
)

// Outcome is the result of examining one candidate.
type Outcome struct {
	Namespace string
	// Path is the candidate path relative to the lookup root, e.g. "zoo/mock/Dog.go".
	Path   string
	ID     string
	Status Status
	Stage  Stage
	Handle typeinfo.Handle
	Cause  error
}

func (o Outcome) diagnostic() Diagnostic {
	d := Diagnostic{Severity: SeverityWarning, Path: o.Path, Cause: o.Cause}
	switch o.Stage {
	case StageIdentify:
		d.Code = CodeCandidateMalformed
		d.Message = "skipping malformed candidate"
	default:
		d.Code = CodeCandidateUnloadable
		d.Message = "skipping candidate that could not be loaded"
		if o.ID != "" {
			d.Path = o.ID
		}
	}
	return d
}

// accumulator folds outcomes into a match set.
type accumulator struct {
	matches map[string]typeinfo.Handle
	stats   Stats
	report  func(Diagnostic)
}

func newAccumulator(report func(Diagnostic)) *accumulator {
	return &accumulator{matches: make(map[string]typeinfo.Handle), report: report}
}

func (a *accumulator) add(o Outcome) {
	a.stats.Candidates++
	switch o.Status {
	case StatusMatched:
		a.stats.Matched++
		a.matches[o.ID] = o.Handle
	case StatusRejected:
		a.stats.Rejected++
	case StatusDuplicate:
		a.stats.Duplicates++
	case StatusSkipped:
		a.stats.Skipped++
		a.report(o.diagnostic())
	}
}

func (a *accumulator) result() *MatchSet {
	return &MatchSet{handles: a.matches, stats: a.stats}
}
