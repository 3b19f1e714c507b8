// Package audit records every committed change set in a JSON-lines log.
package audit

import (
	"fmt"
	"time"

	"github.com/newtron-network/netedit/pkg/mutation"
)

// Event is one commit attempt against a node.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	User      string            `json:"user"`
	Node      string            `json:"node"`
	Operation string            `json:"operation"`
	Changes   []mutation.Change `json:"changes"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	DryRun    bool              `json:"dry_run"`
	Duration  time.Duration     `json:"duration"`
	ClientIP  string            `json:"client_ip,omitempty"`
}

// Filter defines criteria for querying audit events
type Filter struct {
	Node        string
	User        string
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
	// Last keeps only the newest Last matches; applied before Offset and Limit.
	Last int
}

// NewEvent creates a new audit event
func NewEvent(user, node, operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      user,
		Node:      node,
		Operation: operation,
	}
}

// WithChanges sets the changes
func (e *Event) WithChanges(changes []mutation.Change) *Event {
	e.Changes = changes
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithDryRun marks a change set that was previewed, not applied.
func (e *Event) WithDryRun(dryRun bool) *Event {
	e.DryRun = dryRun
	return e
}

// WithClientIP records the remote address of an API caller.
func (e *Event) WithClientIP(ip string) *Event {
	e.ClientIP = ip
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
