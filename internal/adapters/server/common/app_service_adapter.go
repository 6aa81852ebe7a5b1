package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hylla/dragboard/internal/app"
	"github.com/hylla/dragboard/internal/domain"
	"github.com/hylla/dragboard/internal/reorder"
)

// AppServiceAdapter maps transport contracts onto app.Service and owns the one
// remote drag session a server process exposes.
type AppServiceAdapter struct {
	service *app.Service

	mu          sync.Mutex
	session     *reorder.Session
	selection   *reorder.Selection
	placeholder *reorder.PlaceholderCell
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{
		service:     service,
		selection:   reorder.NewSelection(),
		placeholder: &reorder.PlaceholderCell{},
	}
}

// Columns returns the configured board columns.
func (a *AppServiceAdapter) Columns() []domain.Column {
	if a == nil || a.service == nil {
		return nil
	}
	return a.service.Columns()
}

// ListTasks returns every task in board order.
func (a *AppServiceAdapter) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	tasks, err := a.service.ListTasks(ctx)
	if err != nil {
		return nil, mapAppError("list tasks", err)
	}
	return tasks, nil
}

// CreateTask creates one task.
func (a *AppServiceAdapter) CreateTask(ctx context.Context, in CreateTaskRequest) (domain.Task, error) {
	if err := a.ready(); err != nil {
		return domain.Task{}, err
	}
	status, err := parseOptionalStatus(in.Status)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := a.service.CreateTask(withActor(ctx, in.Actor), app.CreateTaskInput{
		Title:       strings.TrimSpace(in.Title),
		Status:      status,
		Assignees:   append([]string(nil), in.Assignees...),
		AfterTaskID: strings.TrimSpace(in.AfterTaskID),
	})
	if err != nil {
		return domain.Task{}, mapAppError("create task", err)
	}
	return task, nil
}

// MoveTasks moves a block of tasks to one column position.
func (a *AppServiceAdapter) MoveTasks(ctx context.Context, in MoveTasksRequest) (reorder.Outcome, error) {
	if err := a.ready(); err != nil {
		return reorder.Outcome{}, err
	}
	status, ok := domain.ParseStatus(in.ToStatus)
	if !ok {
		return reorder.Outcome{}, fmt.Errorf("move tasks: status %q: %w", in.ToStatus, errors.Join(ErrInvalidRequest, domain.ErrInvalidStatus))
	}
	out, err := a.service.MoveTasks(withActor(ctx, in.Actor), app.MoveTasksInput{
		TaskIDs:  in.TaskIDs,
		ToStatus: status,
		Index:    in.Index,
	})
	if err != nil {
		return reorder.Outcome{}, mapAppError("move tasks", err)
	}
	return out, nil
}

// ListChangeEvents lists recent board activity.
func (a *AppServiceAdapter) ListChangeEvents(ctx context.Context, taskID string, limit int) ([]domain.ChangeEvent, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	events, err := a.service.ListChangeEvents(ctx, taskID, limit)
	if err != nil {
		return nil, mapAppError("list change events", err)
	}
	return events, nil
}

// StartDrag begins the remote drag. SelectedIDs replaces the current selection.
func (a *AppServiceAdapter) StartDrag(ctx context.Context, in DragStartRequest) (DragState, error) {
	if err := a.ready(); err != nil {
		return DragState{}, err
	}
	activeID := strings.TrimSpace(in.ActiveID)
	if activeID == "" {
		return DragState{}, fmt.Errorf("start drag: %w", errors.Join(ErrInvalidRequest, domain.ErrInvalidID))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	session, err := a.sessionLocked()
	if err != nil {
		return DragState{}, err
	}
	if session.State() != reorder.StateIdle {
		return DragState{}, fmt.Errorf("start drag: %w", ErrDragConflict)
	}
	a.selection.Clear()
	for _, id := range in.SelectedIDs {
		a.selection.Add(id)
	}
	if err := session.Start(ctx, reorder.StartEvent{ActiveID: activeID}); err != nil {
		a.selection.Clear()
		return DragState{}, mapAppError("start drag", err)
	}
	return a.stateLocked(), nil
}

// OverDrag reports one hover to the remote drag.
func (a *AppServiceAdapter) OverDrag(_ context.Context, in DragOverRequest) (DragState, error) {
	if err := a.ready(); err != nil {
		return DragState{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	session, err := a.sessionLocked()
	if err != nil {
		return DragState{}, err
	}
	err = session.Over(reorder.HoverEvent{
		ActiveID: in.ActiveID,
		Over:     reorder.ParseTarget(in.OverID),
		Pointer:  in.Pointer,
		OverRect: in.OverRect,
		Hints:    in.Hints,
	})
	if err != nil {
		return DragState{}, mapAppError("drag over", err)
	}
	return a.stateLocked(), nil
}

// EndDrag drops the remote drag and commits its projection.
func (a *AppServiceAdapter) EndDrag(ctx context.Context, in DragEndRequest) (reorder.Outcome, error) {
	if err := a.ready(); err != nil {
		return reorder.Outcome{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	session, err := a.sessionLocked()
	if err != nil {
		return reorder.Outcome{}, err
	}
	out, err := session.End(withActor(ctx, in.Actor), reorder.DropEvent{
		ActiveID: in.ActiveID,
		Over:     reorder.ParseTarget(in.OverID),
		Hints:    in.Hints,
	})
	if err != nil {
		return reorder.Outcome{}, mapAppError("drag end", err)
	}
	return out, nil
}

// CancelDrag abandons any remote drag. It is a no-op when idle.
func (a *AppServiceAdapter) CancelDrag(_ context.Context) DragState {
	if a == nil {
		return DragState{State: reorder.StateIdle.String()}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		a.session.Cancel()
	}
	return a.stateLocked()
}

// DragState returns the remote drag's current phase and placeholder.
func (a *AppServiceAdapter) DragState(_ context.Context) DragState {
	if a == nil {
		return DragState{State: reorder.StateIdle.String()}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

// ready reports whether the adapter has a backing service.
func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	return nil
}

// sessionLocked lazily builds the drag session. Callers hold a.mu.
func (a *AppServiceAdapter) sessionLocked() (*reorder.Session, error) {
	if a.session != nil {
		return a.session, nil
	}
	session, err := a.service.NewSession(a.selection, a.placeholder)
	if err != nil {
		return nil, fmt.Errorf("new drag session: %w", err)
	}
	a.session = session
	return session, nil
}

// stateLocked snapshots the drag state. Callers hold a.mu.
func (a *AppServiceAdapter) stateLocked() DragState {
	if a.session == nil {
		return DragState{State: reorder.StateIdle.String()}
	}
	out := DragState{
		State:       a.session.State().String(),
		ActiveID:    a.session.ActiveID(),
		Placeholder: a.placeholder.Current(),
	}
	if proj := a.session.Projection(); proj != nil {
		out.MovingIDs = append([]string(nil), proj.MovingIDs...)
	}
	return out
}

// withActor attaches caller identity so change events attribute the write.
func withActor(ctx context.Context, actor Actor) context.Context {
	if strings.TrimSpace(actor.ActorID) == "" {
		return ctx
	}
	return app.WithMutationActor(ctx, app.MutationActor{
		ActorID:   actor.ActorID,
		ActorType: domain.ActorType(actor.ActorType),
	})
}

// parseOptionalStatus resolves a status id or label; blank means the first column.
func parseOptionalStatus(raw string) (domain.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	status, ok := domain.ParseStatus(raw)
	if !ok {
		return "", fmt.Errorf("status %q: %w", raw, errors.Join(ErrInvalidRequest, domain.ErrInvalidStatus))
	}
	return status, nil
}

// mapAppError maps app/domain/engine errors into transport-layer error sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrNotFound):
		return fmt.Errorf("%s: %w", operation, err)
	case errors.Is(err, app.ErrNotFound), errors.Is(err, reorder.ErrTaskNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, reorder.ErrNotDragging):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotDragging, err))
	case errors.Is(err, reorder.ErrDragActive):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrDragConflict, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidOrder),
		errors.Is(err, app.ErrInvalidMove),
		errors.Is(err, reorder.ErrNoProjection):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
