package storage

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Store keeps a record of finished discovery runs. It is a report only;
// discovery never reads it back.
type Store interface {
	RunStore
	Close() error
}

// RunStore defines operations for persisting query runs.
type RunStore interface {
	// SaveRun stores a run with its matches and returns the assigned ID.
	SaveRun(ctx context.Context, run *Run) (int64, error)

	// ListRuns returns the most recent runs, newest first, without matches.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// LoadRun retrieves a run and its matches.
	LoadRun(ctx context.Context, id int64) (*Run, error)
}

// Run is one executed query.
type Run struct {
	ID         int64          `json:"id"`
	Kind       string         `json:"kind"`   // "marked" or "assignable"
	Target     string         `json:"target"` // marker or base type identifier
	Namespaces []string       `json:"namespaces"`
	Roots      []string       `json:"roots"`
	StartedAt  time.Time      `json:"started_at"`
	Duration   time.Duration  `json:"duration"`
	Stats      map[string]int `json:"stats"`
	Matches    []Match        `json:"matches,omitempty"`
}

// Match is one type a run found.
type Match struct {
	TypeID  string   `json:"type_id"`
	Kind    string   `json:"kind"`
	Source  string   `json:"source"`
	Markers []string `json:"markers,omitempty"`
}
