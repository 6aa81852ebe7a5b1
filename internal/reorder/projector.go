package reorder

import (
	"slices"

	"github.com/hylla/dragboard/internal/domain"
)

// Projection is the speculative landing spot for an in-flight drag. It is never
// applied to the task list until a Committer consumes it. InsertIndex counts
// positions in the target column with the moving tasks taken out.
type Projection struct {
	MovingIDs    []string      `json:"moving_ids"`
	TargetStatus domain.Status `json:"target_status"`
	InsertIndex  int           `json:"insert_index"`
	SourceStatus domain.Status `json:"source_status"`
	Over         DropTarget    `json:"-"`
}

// Placeholder describes the drop gap the rendering layer draws in the target column.
type Placeholder struct {
	Status      domain.Status `json:"status"`
	InsertIndex int           `json:"insert_index"`
	Count       int           `json:"count"`
}

// Placeholder derives the gap descriptor for p, or nil for a nil projection.
func (p *Projection) Placeholder() *Placeholder {
	if p == nil {
		return nil
	}
	return &Placeholder{
		Status:      p.TargetStatus,
		InsertIndex: p.InsertIndex,
		Count:       len(p.MovingIDs),
	}
}

// SameColumn reports whether every moving task already sits in the target
// column. Committer.Plan splices same-column moves with the same test.
func (p *Projection) SameColumn(tasks []domain.Task) bool {
	return p != nil && inColumn(tasks, p.MovingIDs, p.TargetStatus)
}

// InPlace reports whether p keeps the block where it is: the hovered target is
// one of the moving tasks.
func (p *Projection) InPlace() bool {
	return p != nil && p.Over.Kind == TargetTask && slices.Contains(p.MovingIDs, p.Over.TaskID)
}

// Projector resolves hover events into projections. It holds no state; the
// previous projection is passed in so placeholder hovers can be debounced.
type Projector struct {
	Selection SelectionSource
}

// NewProjector returns a projector reading multi-select membership from selection.
func NewProjector(selection SelectionSource) Projector {
	return Projector{Selection: selection}
}

// MovingIDs returns the block that moves when activeID is dragged: the ordered
// selection when activeID is part of it, otherwise just activeID.
func (p Projector) MovingIDs(tasks []domain.Task, activeID string) []string {
	if p.Selection != nil && p.Selection.IsSelected(activeID) {
		if ids := p.Selection.IDsOrderedBy(tasks); len(ids) > 0 {
			return ids
		}
	}
	return []string{activeID}
}

// Seed returns the projection for a drag that has not moved yet. It hovers the
// active task itself, so dropping straight away is a no-op.
func (p Projector) Seed(tasks []domain.Task, activeID string) *Projection {
	active, ok := findTask(tasks, activeID)
	if !ok {
		return nil
	}
	return p.inPlace(tasks, active, p.MovingIDs(tasks, activeID), activeID)
}

func (p Projector) inPlace(tasks []domain.Task, active domain.Task, moving []string, overID string) *Projection {
	return &Projection{
		MovingIDs:    moving,
		TargetStatus: active.Status,
		InsertIndex:  stationaryAbove(tasks, active.ID, idSet(moving)),
		SourceStatus: active.Status,
		Over:         TaskTarget(overID),
	}
}

// Project computes where ev would drop. It returns nil when the active task is
// unknown or nothing droppable is under the pointer.
func (p Projector) Project(tasks []domain.Task, ev HoverEvent, prev *Projection) *Projection {
	active, ok := findTask(tasks, ev.ActiveID)
	if !ok || !ev.Over.Valid() {
		return nil
	}

	moving := p.MovingIDs(tasks, active.ID)
	excluded := idSet(moving)
	proj := &Projection{
		MovingIDs:    moving,
		SourceStatus: active.Status,
		Over:         ev.Over,
	}

	switch ev.Over.Kind {
	case TargetTask:
		if _, inBlock := excluded[ev.Over.TaskID]; inBlock {
			return p.inPlace(tasks, active, moving, ev.Over.TaskID)
		}
		overTask, ok := findTask(tasks, ev.Over.TaskID)
		if !ok {
			// Hovering something we cannot resolve leaves the card where it is.
			return p.inPlace(tasks, active, moving, active.ID)
		}
		proj.TargetStatus = overTask.Status
	case TargetColumn, TargetPlaceholder:
		proj.TargetStatus = ev.Over.Status
	}

	target := ColumnTasks(tasks, proj.TargetStatus, excluded)
	if proj.SameColumn(tasks) {
		proj.InsertIndex = sameColumnIndex(tasks, active, target, ev, prev)
	} else {
		proj.InsertIndex = crossColumnIndex(target, ev, proj.TargetStatus, prev)
	}
	proj.InsertIndex = clamp(proj.InsertIndex, 0, len(target))
	return proj
}

// sameColumnIndex resolves a hover inside the block's own column. A hovered task
// takes the block's place: the block lands after it when the active task started
// above it, before it otherwise. Hints already count positions without the block.
func sameColumnIndex(tasks []domain.Task, active domain.Task, stationary []domain.Task, ev HoverEvent, prev *Projection) int {
	switch ev.Over.Kind {
	case TargetTask:
		if ev.Hints != nil {
			return ev.Hints.OverIndex
		}
		return overTaskIndex(tasks, active, stationary, ev.Over.TaskID)
	case TargetPlaceholder:
		if prev != nil && prev.TargetStatus == ev.Over.Status {
			return prev.InsertIndex
		}
	}
	return len(stationary)
}

// overTaskIndex is the same-column insert index for a drop on overID.
func overTaskIndex(tasks []domain.Task, active domain.Task, stationary []domain.Task, overID string) int {
	pos := IndexOf(stationary, overID)
	if pos < 0 {
		return len(stationary)
	}
	column := ColumnTasks(tasks, active.Status, nil)
	if IndexOf(column, active.ID) < IndexOf(column, overID) {
		pos++
	}
	return pos
}

func crossColumnIndex(target []domain.Task, ev HoverEvent, status domain.Status, prev *Projection) int {
	switch ev.Over.Kind {
	case TargetTask:
		idx := IndexOf(target, ev.Over.TaskID)
		if idx < 0 {
			return len(target)
		}
		if ev.Pointer != nil && ev.OverRect != nil && ev.Pointer.Y > ev.OverRect.MidY() {
			idx++
		}
		return idx
	case TargetPlaceholder:
		if prev != nil && prev.TargetStatus == status {
			return prev.InsertIndex
		}
	}
	return len(target)
}
