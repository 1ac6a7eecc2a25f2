package harness

import "github.com/google/uuid"

// Trace event types.
const (
	EventCommit   = "commit"
	EventRejected = "rejected"
)

// TraceEvent records the outcome of one step.
type TraceEvent struct {
	Step      int       `json:"step"`
	Type      string    `json:"type"` // "commit" or "rejected"
	Timestamp int64     `json:"timestamp,omitempty"`
	Revision  uuid.UUID `json:"revision,omitempty"`
	Inserts   []string  `json:"inserts,omitempty"`   // id@version
	Updates   []string  `json:"updates,omitempty"`   // id@version
	Deletions []string  `json:"deletions,omitempty"` // ids actually deleted
	Code      string    `json:"code,omitempty"`      // error code when rejected
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success: every step behaved as expected
	// and every assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// revisionOf returns the revision committed by step, uuid.Nil if the step
// was rejected.
func (r *Result) revisionOf(step int) uuid.UUID {
	for _, ev := range r.Trace {
		if ev.Step == step && ev.Type == EventCommit {
			return ev.Revision
		}
	}
	return uuid.Nil
}
