package reorder

import (
	"strings"

	"github.com/hylla/dragboard/internal/domain"
)

// PlaceholderPrefix marks an over id that points at a column's drop gap.
const PlaceholderPrefix = "placeholder:"

// TargetKind tags what a pointer is hovering.
type TargetKind int

// TargetKind values.
const (
	TargetNone TargetKind = iota
	TargetTask
	TargetColumn
	TargetPlaceholder
)

// String returns the wire name of k.
func (k TargetKind) String() string {
	switch k {
	case TargetTask:
		return "task"
	case TargetColumn:
		return "column"
	case TargetPlaceholder:
		return "placeholder"
	default:
		return "none"
	}
}

// DropTarget is the decoded form of an event source's over id.
type DropTarget struct {
	Kind   TargetKind
	TaskID string
	Status domain.Status
}

// TaskTarget targets a task card.
func TaskTarget(id string) DropTarget {
	id = strings.TrimSpace(id)
	if id == "" {
		return DropTarget{}
	}
	return DropTarget{Kind: TargetTask, TaskID: id}
}

// ColumnTarget targets the empty area of a column.
func ColumnTarget(status domain.Status) DropTarget {
	if !status.Valid() {
		return DropTarget{}
	}
	return DropTarget{Kind: TargetColumn, Status: status}
}

// PlaceholderTarget targets the drop gap rendered in a column.
func PlaceholderTarget(status domain.Status) DropTarget {
	if !status.Valid() {
		return DropTarget{}
	}
	return DropTarget{Kind: TargetPlaceholder, Status: status}
}

// ParseTarget decodes an over id once at the event boundary. Empty ids decode to
// TargetNone, "placeholder:<column>" to a placeholder, a column id or label to a
// column, and anything else to a task id.
func ParseTarget(overID string) DropTarget {
	overID = strings.TrimSpace(overID)
	if overID == "" {
		return DropTarget{}
	}
	if rest, ok := strings.CutPrefix(overID, PlaceholderPrefix); ok {
		status, valid := domain.ParseStatus(rest)
		if !valid {
			return DropTarget{}
		}
		return PlaceholderTarget(status)
	}
	if status, ok := domain.ParseStatus(overID); ok {
		return ColumnTarget(status)
	}
	return TaskTarget(overID)
}

// Valid reports whether t names something droppable.
func (t DropTarget) Valid() bool {
	return t.Kind != TargetNone
}

// String encodes t back into over-id form.
func (t DropTarget) String() string {
	switch t.Kind {
	case TargetTask:
		return t.TaskID
	case TargetColumn:
		return string(t.Status)
	case TargetPlaceholder:
		return PlaceholderPrefix + string(t.Status)
	default:
		return ""
	}
}
