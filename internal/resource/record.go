package resource

import "time"

// Status is the lifecycle state of one provisioning record.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCreated    Status = "CREATED"
	StatusFailed     Status = "FAILED"
)

// Record is the persisted lifecycle state of one resource instance.
// Valid transitions: NOT_STARTED -> IN_PROGRESS -> {CREATED, FAILED};
// FAILED may re-enter IN_PROGRESS on retry; CREATED is terminal until an
// explicit forced teardown.
type Record struct {
	Type       Type              `json:"type"`
	Status     Status            `json:"status"`
	ExternalID string            `json:"externalId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  *time.Time        `json:"createdAt,omitempty"`
	LastError  string            `json:"lastError,omitempty"`
}

// NewRecord returns a NOT_STARTED placeholder for a descriptor.
func NewRecord(t Type) *Record {
	return &Record{Type: t, Status: StatusNotStarted}
}

// MarkInProgress moves the record into IN_PROGRESS, clearing any stale error.
func (r *Record) MarkInProgress() {
	r.Status = StatusInProgress
	r.LastError = ""
}

// MarkCreated records a successful create with the returned handle.
func (r *Record) MarkCreated(h *Handle) {
	now := time.Now().UTC()
	r.Status = StatusCreated
	r.ExternalID = h.ID
	r.Metadata = h.Metadata
	r.CreatedAt = &now
	r.LastError = ""
}

// MarkFailed records a terminal failure for this attempt.
func (r *Record) MarkFailed(err error) {
	r.Status = StatusFailed
	r.LastError = err.Error()
}
