// Package audit provides audit logging for policy configuration changes.
package audit

import (
	"fmt"
	"time"
)

// Change describes one delta applied to a compiled filter image as part of a
// commit, e.g. a policy recompile or a relinked target.
type Change struct {
	Target string `json:"target"` // "protocol/filter-kind", e.g. "bgp/export"
	Kind   string `json:"kind"`   // "recompile", "relink", "tag-alloc"
	Detail string `json:"detail,omitempty"`
}

// Event represents an auditable configuration change event
type Event struct {
	ID          string        `json:"id"`
	Timestamp   time.Time     `json:"timestamp"`
	User        string        `json:"user"`
	Target      string        `json:"target"`
	Operation   string        `json:"operation"`
	Policy      string        `json:"policy,omitempty"`
	Protocol    string        `json:"protocol,omitempty"`
	Changes     []Change      `json:"changes"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	ExecuteMode bool          `json:"execute_mode"` // true if the commit linked and handed off images
	DryRun      bool          `json:"dry_run"`
	Duration    time.Duration `json:"duration"`
	ClientIP    string        `json:"client_ip,omitempty"`
	SessionID   string        `json:"session_id,omitempty"`
}

// EventType categorizes audit events
type EventType string

const (
	EventTypeConnect    EventType = "connect"
	EventTypeDisconnect EventType = "disconnect"
	EventTypeLock       EventType = "lock"
	EventTypeUnlock     EventType = "unlock"
	EventTypePreview    EventType = "preview"
	EventTypeExecute    EventType = "execute"
	EventTypeRollback   EventType = "rollback"
)

// Severity indicates the importance of an audit event
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Filter defines criteria for querying audit events
type Filter struct {
	Target      string
	User        string
	Operation   string
	Policy      string
	Protocol    string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event
func NewEvent(user, target, operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      user,
		Target:    target,
		Operation: operation,
	}
}

// WithPolicy sets the policy name
func (e *Event) WithPolicy(policy string) *Event {
	e.Policy = policy
	return e
}

// WithProtocol sets the protocol name
func (e *Event) WithProtocol(protocol string) *Event {
	e.Protocol = protocol
	return e
}

// WithChanges sets the changes
func (e *Event) WithChanges(changes []Change) *Event {
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

// WithExecuteMode marks whether the commit actually linked and handed off new images
func (e *Event) WithExecuteMode(execute bool) *Event {
	e.ExecuteMode = execute
	e.DryRun = !execute
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
