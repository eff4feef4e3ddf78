package events

import "time"

// VacationRequestTopic carries every vacation request state transition,
// using the same event-type names as the audit trail's action log so a
// downstream consumer can match on EventType without a translation table.
const VacationRequestTopic = "vacations.request.lifecycle.v1"

const (
	EventRequestApproved  = "vacation_request.approved"
	EventRequestRejected  = "vacation_request.rejected"
	EventRequestCancelled = "vacation_request.cancelled"
	EventRequestWithdrawn = "vacation_request.withdrawn"
)

type VacationRequestEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id"`
	UserID     string    `json:"user_id"`
	CompanyID  string    `json:"company_id"`
	ApproverID string    `json:"approver_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AuditEventTopic is the outbox mirror destination for every committed
// audit.Event, independent of VacationRequestTopic — consumers that only
// care about the compliance trail (SIEM ingestion, export pipelines)
// subscribe here instead of filtering the lifecycle stream.
const AuditEventTopic = "vacations.audit.v1"

// UserCreatedTopic fires once a user is provisioned (invite accepted),
// consumed by the allocation-provisioning worker the same way an
// employee-created topic elsewhere drives default-salary provisioning.
const UserCreatedTopic = "vacations.user.lifecycle.v1"

type UserCreatedEvent struct {
	EventType  string    `json:"event_type"`
	UserID     string    `json:"user_id"`
	CompanyID  string    `json:"company_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
