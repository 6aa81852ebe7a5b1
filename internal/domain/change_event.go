package domain

import "time"

// ChangeOperation describes a persisted activity operation for a task.
type ChangeOperation string

// ChangeOperation values used by the local activity ledger.
const (
	ChangeOperationCreate  ChangeOperation = "create"
	ChangeOperationMove    ChangeOperation = "move"
	ChangeOperationReorder ChangeOperation = "reorder"
	ChangeOperationUpdate  ChangeOperation = "update"
	ChangeOperationDelete  ChangeOperation = "delete"
)

// ActorType describes the actor class that triggered a change.
type ActorType string

// ActorType values.
const (
	ActorTypeUser   ActorType = "user"
	ActorTypeAgent  ActorType = "agent"
	ActorTypeSystem ActorType = "system"
)

// ChangeEvent is a single activity-log entry for a board task.
type ChangeEvent struct {
	ID         int64             `json:"id"`
	TaskID     string            `json:"task_id"`
	Operation  ChangeOperation   `json:"operation"`
	ActorID    string            `json:"actor_id"`
	ActorType  ActorType         `json:"actor_type"`
	Metadata   map[string]string `json:"metadata"`
	OccurredAt time.Time         `json:"occurred_at"`
}
