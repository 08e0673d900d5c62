package server

import (
	"sync"
	"time"

	"github.com/jonathan/linkedin-optimizer/internal/types"
)

// Session holds the state of the single interactive user: the profile being edited,
// the last completed run and its activity log.
type Session struct {
	mu       sync.RWMutex
	profile  types.Profile
	last     *types.RunResult
	activity []types.ActivityEntry

	// running is held for the duration of a pipeline run.
	running sync.Mutex
}

// NewSession returns an empty session
func NewSession() *Session {
	return &Session{}
}

// Profile returns a copy of the current profile
func (s *Session) Profile() types.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// SetProfile replaces the whole profile
func (s *Session) SetProfile(p types.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
}

// UpdateProfile applies fn to the profile under the session lock.
func (s *Session) UpdateProfile(fn func(p *types.Profile)) types.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.profile)
	return s.profile
}

// LastResult returns the most recent completed run, or nil
func (s *Session) LastResult() *types.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// SetLastResult records a completed run
func (s *Session) SetLastResult(r *types.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = r
}

// StartActivity clears the activity log at the start of a run.
func (s *Session) StartActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = nil
}

// AppendActivity adds an entry to the current run's activity log
func (s *Session) AppendActivity(e types.ActivityEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, e)
}

// Activity returns a copy of the activity log
func (s *Session) Activity() []types.ActivityEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.ActivityEntry, len(s.activity))
	copy(out, s.activity)
	return out
}

// TryStartRun claims the session for a run. It returns false if a run is in progress.
func (s *Session) TryStartRun() bool {
	return s.running.TryLock()
}

// FinishRun releases the claim taken by TryStartRun
func (s *Session) FinishRun() {
	s.running.Unlock()
}

// stamp sets the profile timestamp if it is unset.
func stamp(p *types.Profile) {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}
}
