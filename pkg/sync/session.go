package sync

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Run phases, for session error attribution.
const (
	PhaseFetch     = "fetch"
	PhaseNormalize = "normalize"
	PhaseDiff      = "diff"
	PhaseApply     = "apply"
)

// EntityCounts aggregates mutations for one entity kind.
type EntityCounts struct {
	Added     int
	Updated   int
	Completed int
	Deleted   int
}

// SessionError is one collected failure; failures never abort sibling
// sources or destinations.
type SessionError struct {
	Phase   string
	Source  string
	Message string
}

func (e SessionError) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Source, e.Message)
}

// UpdatedField records which fields changed on one updated task, for
// reporting.
type UpdatedField struct {
	TaskID string
	Fields []string
}

// Session is the per-run statistics accumulator, built fresh each run and
// threaded explicitly through the pipeline. Methods are safe for concurrent
// use because destinations apply in parallel.
type Session struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time

	mu         sync.Mutex
	Tasks      EntityCounts
	Commits    EntityCounts
	Updates    []UpdatedField
	Errors     []SessionError
	FatalError error
}

func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
}

func (s *Session) RecordTaskAdded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tasks.Added++
}

func (s *Session) RecordTaskUpdated(taskID string, fields []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tasks.Updated++
	s.Updates = append(s.Updates, UpdatedField{TaskID: taskID, Fields: fields})
}

func (s *Session) RecordTaskCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tasks.Completed++
}

func (s *Session) RecordCommitAdded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Commits.Added++
}

func (s *Session) RecordCommitDeleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Commits.Deleted++
}

func (s *Session) RecordError(phase, source string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, SessionError{Phase: phase, Source: source, Message: err.Error()})
}

// Fail marks the run terminally failed. Mutations already applied stay
// applied; the next run reconciles from the calendar snapshot.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FatalError = err
}

func (s *Session) Finish() {
	s.FinishedAt = time.Now()
}

// HasMutations reports whether the run changed anything.
func (s *Session) HasMutations() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Tasks != (EntityCounts{}) || s.Commits != (EntityCounts{})
}

// ErrorStrings flattens the collected errors for reporting.
func (s *Session) ErrorStrings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.Errors))
	for _, e := range s.Errors {
		out = append(out, e.String())
	}
	return out
}
