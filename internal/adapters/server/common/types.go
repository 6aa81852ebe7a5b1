// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"

	"github.com/hylla/dragboard/internal/domain"
	"github.com/hylla/dragboard/internal/reorder"
)

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotDragging reports a hover or drop with no drag in progress.
var ErrNotDragging = errors.New("no drag in progress")

// ErrDragConflict reports a drag start while another drag is active.
var ErrDragConflict = errors.New("drag already in progress")

// Actor identifies the caller a mutation is attributed to.
type Actor struct {
	ActorID   string `json:"actor_id,omitempty"`
	ActorType string `json:"actor_type,omitempty"`
}

// CreateTaskRequest creates one task at the end of a column or after an anchor task.
type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Status      string   `json:"status,omitempty"`
	Assignees   []string `json:"assignees,omitempty"`
	AfterTaskID string   `json:"after_task_id,omitempty"`
	Actor       Actor    `json:"actor"`
}

// MoveTasksRequest moves a block of tasks into one column position.
type MoveTasksRequest struct {
	TaskIDs  []string `json:"task_ids"`
	ToStatus string   `json:"to_status"`
	Index    int      `json:"index"`
	Actor    Actor    `json:"actor"`
}

// DragStartRequest begins a remote drag. SelectedIDs seeds the multi-select set.
type DragStartRequest struct {
	ActiveID    string   `json:"active_id"`
	SelectedIDs []string `json:"selected_ids,omitempty"`
}

// DragOverRequest reports one hover. OverID uses the same id space as the board:
// a task id, a column id or label, or "placeholder:<column>".
type DragOverRequest struct {
	ActiveID string              `json:"active_id,omitempty"`
	OverID   string              `json:"over_id,omitempty"`
	Pointer  *reorder.Point      `json:"pointer,omitempty"`
	OverRect *reorder.Rect       `json:"over_rect,omitempty"`
	Hints    *reorder.IndexHints `json:"hints,omitempty"`
}

// DragEndRequest drops the active drag. An empty OverID drops outside the board.
type DragEndRequest struct {
	ActiveID string              `json:"active_id,omitempty"`
	OverID   string              `json:"over_id,omitempty"`
	Hints    *reorder.IndexHints `json:"hints,omitempty"`
	Actor    Actor               `json:"actor"`
}

// DragState is the transport view of the remote drag session.
type DragState struct {
	State       string               `json:"state"`
	ActiveID    string               `json:"active_id,omitempty"`
	MovingIDs   []string             `json:"moving_ids,omitempty"`
	Placeholder *reorder.Placeholder `json:"placeholder"`
}

// BoardService exposes board reads and writes to transport adapters.
type BoardService interface {
	Columns() []domain.Column
	ListTasks(context.Context) ([]domain.Task, error)
	CreateTask(context.Context, CreateTaskRequest) (domain.Task, error)
	MoveTasks(context.Context, MoveTasksRequest) (reorder.Outcome, error)
	ListChangeEvents(ctx context.Context, taskID string, limit int) ([]domain.ChangeEvent, error)
}

// DragService exposes the process-wide remote drag session.
type DragService interface {
	StartDrag(context.Context, DragStartRequest) (DragState, error)
	OverDrag(context.Context, DragOverRequest) (DragState, error)
	EndDrag(context.Context, DragEndRequest) (reorder.Outcome, error)
	CancelDrag(context.Context) DragState
	DragState(context.Context) DragState
}
