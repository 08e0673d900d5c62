package types

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage names, in pipeline order.
const (
	StageAnalyzer   = "agent1"
	StageReAnalyzer = "agent2"
	StageRewriter   = "agent3"
	StageReviewer   = "agent4"
)

// StageNames lists every stage a completed run must contain.
var StageNames = []string{StageAnalyzer, StageReAnalyzer, StageRewriter, StageReviewer}

// PipelineContext holds the outputs of stages that already ran, keyed by stage name.
type PipelineContext map[string]string

// Filter returns a copy containing only the given keys.
func (c PipelineContext) Filter(keys []string) PipelineContext {
	out := make(PipelineContext, len(keys))
	for _, k := range keys {
		if v, ok := c[k]; ok {
			out[k] = v
		}
	}
	return out
}

// RunResult is the complete output of one successful pipeline execution.
type RunResult struct {
	ID        uuid.UUID         `json:"id"`
	Profile   Profile           `json:"profile"`
	Results   map[string]string `json:"results"`
	Model     string            `json:"model,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Complete reports whether every stage has an output.
func (r *RunResult) Complete() bool {
	if r == nil || len(r.Results) != len(StageNames) {
		return false
	}
	for _, name := range StageNames {
		if _, ok := r.Results[name]; !ok {
			return false
		}
	}
	return true
}

// ActivityEntry is one line of the per-run activity log.
type ActivityEntry struct {
	Agent     string    `json:"agent"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// ActivityLog is an append-only log for a single run. It is safe for concurrent use.
type ActivityLog struct {
	mu      sync.Mutex
	entries []ActivityEntry
	onAdd   func(ActivityEntry)
}

// NewActivityLog returns an empty log. onAdd, if non-nil, is called for every appended entry.
func NewActivityLog(onAdd func(ActivityEntry)) *ActivityLog {
	return &ActivityLog{onAdd: onAdd}
}

// Add appends an entry stamped with the current time.
func (l *ActivityLog) Add(agent, message string) {
	entry := ActivityEntry{
		Agent:     agent,
		Timestamp: time.Now(),
		Message:   message,
	}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	if l.onAdd != nil {
		l.onAdd(entry)
	}
}

// Entries returns a copy of the log in append order.
func (l *ActivityLog) Entries() []ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ActivityEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *ActivityLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
