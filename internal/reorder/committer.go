package reorder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hylla/dragboard/internal/domain"
)

// Labeler maps a status to the label written into history entries.
type Labeler func(domain.Status) string

// Outcome reports what a commit changed.
type Outcome struct {
	Changed       bool                  `json:"changed"`
	SameColumn    bool                  `json:"same_column"`
	MovedIDs      []string              `json:"moved_ids"`
	TargetStatus  domain.Status         `json:"target_status"`
	InsertIndex   int                   `json:"insert_index"`
	ChangedIDs    []string              `json:"changed_ids"`
	HistoryEvents []domain.HistoryEvent `json:"history_events"`
}

// Committer applies a projection to the task collection.
type Committer struct {
	Clock        Clock
	IDGen        IDGenerator
	Labeler      Labeler
	SystemAuthor string
}

// NewCommitter returns a committer with defaults filled in for zero fields.
func NewCommitter(clock Clock, idGen IDGenerator, labeler Labeler, systemAuthor string) Committer {
	if clock == nil {
		clock = time.Now
	}
	if idGen == nil {
		idGen = uuid.NewString
	}
	if labeler == nil {
		labeler = domain.Status.Label
	}
	systemAuthor = strings.TrimSpace(systemAuthor)
	if systemAuthor == "" {
		systemAuthor = domain.SystemAuthor
	}
	return Committer{Clock: clock, IDGen: idGen, Labeler: labeler, SystemAuthor: systemAuthor}
}

// Commit plans the drop inside a single store.ApplyUpdate call. A drop that
// would change nothing returns an unchanged Outcome without writing.
func (c Committer) Commit(ctx context.Context, store TaskStore, proj *Projection, drop DropEvent) (Outcome, error) {
	if proj == nil {
		return Outcome{}, ErrNoProjection
	}
	var out Outcome
	err := store.ApplyUpdate(ctx, func(tasks []domain.Task) ([]domain.Task, error) {
		next, planned, err := c.Plan(tasks, proj, drop)
		if err != nil {
			return nil, err
		}
		out = planned
		if !planned.Changed {
			return nil, errNoChange
		}
		return next, nil
	})
	if errors.Is(err, errNoChange) {
		return out, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// Plan returns the task list after applying proj. The input slice is not
// modified; the result keeps the input's element positions. Any missing moving
// task aborts the whole plan with ErrTaskNotFound.
func (c Committer) Plan(tasks []domain.Task, proj *Projection, drop DropEvent) ([]domain.Task, Outcome, error) {
	if proj == nil {
		return nil, Outcome{}, ErrNoProjection
	}
	c = NewCommitter(c.Clock, c.IDGen, c.Labeler, c.SystemAuthor)

	activeID := strings.TrimSpace(drop.ActiveID)
	if activeID == "" && len(proj.MovingIDs) > 0 {
		activeID = proj.MovingIDs[0]
	}
	active, ok := findTask(tasks, activeID)
	if !ok {
		return nil, Outcome{}, ErrTaskNotFound
	}

	moving := make([]domain.Task, 0, len(proj.MovingIDs))
	for _, id := range proj.MovingIDs {
		task, ok := findTask(tasks, id)
		if !ok {
			return nil, Outcome{}, ErrTaskNotFound
		}
		moving = append(moving, task)
	}
	if len(moving) == 0 {
		moving = append(moving, active)
	}
	movingIDs := make([]string, 0, len(moving))
	for _, task := range moving {
		movingIDs = append(movingIDs, task.ID)
	}
	excluded := idSet(movingIDs)
	sameColumn := inColumn(tasks, movingIDs, proj.TargetStatus)

	out := Outcome{
		SameColumn:   sameColumn,
		MovedIDs:     movingIDs,
		TargetStatus: proj.TargetStatus,
	}
	// Dropping onto any task of the moving block leaves the board as it is.
	if drop.Over.Kind == TargetTask {
		if _, inBlock := excluded[drop.Over.TaskID]; inBlock {
			out.InsertIndex = stationaryAbove(tasks, active.ID, excluded)
			return tasks, out, nil
		}
	}

	var placed map[string]placement
	if sameColumn {
		placed, out.InsertIndex = c.planSameColumn(tasks, active, moving, excluded, proj, drop)
	} else {
		placed, out.InsertIndex = c.planCrossColumn(tasks, moving, excluded, proj)
	}

	now := c.Clock().UTC()
	next := make([]domain.Task, len(tasks))
	for idx, task := range tasks {
		p, touched := placed[task.ID]
		if !touched || (p.status == task.Status && p.order == task.Order) {
			next[idx] = task
			continue
		}
		updated := task.Clone()
		if p.status != task.Status {
			ev := domain.NewStatusChangeEvent(
				c.IDGen(),
				c.Labeler(task.Status),
				c.Labeler(p.status),
				task.Author(c.SystemAuthor),
				now,
			)
			updated.AppendHistory(ev)
			out.HistoryEvents = append(out.HistoryEvents, ev)
		}
		if err := updated.Move(p.status, p.order, now); err != nil {
			return nil, Outcome{}, err
		}
		next[idx] = updated
		out.ChangedIDs = append(out.ChangedIDs, task.ID)
	}
	out.Changed = len(out.ChangedIDs) > 0
	if !out.Changed {
		return tasks, out, nil
	}
	return next, out, nil
}

type placement struct {
	status domain.Status
	order  float64
}

func (c Committer) planSameColumn(tasks []domain.Task, active domain.Task, moving []domain.Task, excluded map[string]struct{}, proj *Projection, drop DropEvent) (map[string]placement, int) {
	status := proj.TargetStatus
	column := ColumnTasks(tasks, status, nil)
	stationary := ColumnTasks(tasks, status, excluded)

	insertAt := proj.InsertIndex
	if drop.Over.Kind == TargetTask && drop.Over != proj.Over && IndexOf(stationary, drop.Over.TaskID) >= 0 {
		insertAt = overTaskIndex(tasks, active, stationary, drop.Over.TaskID)
	}
	insertAt = clamp(insertAt, 0, len(stationary))

	sequence := make([]domain.Task, 0, len(column))
	sequence = append(sequence, stationary[:insertAt]...)
	sequence = append(sequence, moving...)
	sequence = append(sequence, stationary[insertAt:]...)

	placed := make(map[string]placement, len(sequence))
	for idx, task := range sequence {
		placed[task.ID] = placement{status: status, order: float64(idx)}
	}
	return placed, insertAt
}

func (c Committer) planCrossColumn(tasks []domain.Task, moving []domain.Task, excluded map[string]struct{}, proj *Projection) (map[string]placement, int) {
	placed := map[string]placement{}

	sources := map[domain.Status]struct{}{}
	for _, task := range moving {
		if task.Status != proj.TargetStatus {
			sources[task.Status] = struct{}{}
		}
	}
	for status := range sources {
		for idx, task := range ColumnTasks(tasks, status, excluded) {
			placed[task.ID] = placement{status: status, order: float64(idx)}
		}
	}

	target := ColumnTasks(tasks, proj.TargetStatus, excluded)
	insertAt := clamp(proj.InsertIndex, 0, len(target))
	for idx, task := range target[:insertAt] {
		placed[task.ID] = placement{status: proj.TargetStatus, order: float64(idx)}
	}
	for offset, task := range moving {
		placed[task.ID] = placement{status: proj.TargetStatus, order: float64(insertAt + offset)}
	}
	for offset, task := range target[insertAt:] {
		placed[task.ID] = placement{status: proj.TargetStatus, order: float64(insertAt + len(moving) + offset)}
	}
	return placed, insertAt
}
