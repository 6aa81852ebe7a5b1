// Package reorder implements drag-and-drop reordering for the task board: hover
// projection, atomic drop commits, and the session state machine that ties them
// to a pointer event stream.
package reorder

import (
	"cmp"
	"math"
	"slices"

	"github.com/hylla/dragboard/internal/domain"
)

// compareByOrder sorts by order key. Ties fall back to id so the result is deterministic.
func compareByOrder(a, b domain.Task) int {
	if c := cmp.Compare(a.Order, b.Order); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// ColumnTasks returns the tasks in status sorted top-to-bottom, skipping ids in exclude.
func ColumnTasks(tasks []domain.Task, status domain.Status, exclude map[string]struct{}) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Status != status {
			continue
		}
		if _, skip := exclude[task.ID]; skip {
			continue
		}
		out = append(out, task)
	}
	slices.SortStableFunc(out, compareByOrder)
	return out
}

// DenseRenumber assigns order = index to every task in column, preserving sequence.
func DenseRenumber(column []domain.Task) []domain.Task {
	out := make([]domain.Task, len(column))
	for idx, task := range column {
		task.Order = float64(idx)
		out[idx] = task
	}
	return out
}

// IsDense reports whether the status column holds exactly the keys 0..n-1.
func IsDense(tasks []domain.Task, status domain.Status) bool {
	for idx, task := range ColumnTasks(tasks, status, nil) {
		if task.Order != float64(idx) {
			return false
		}
	}
	return true
}

// IndexOf returns the position of id in column, or -1.
func IndexOf(column []domain.Task, id string) int {
	return slices.IndexFunc(column, func(task domain.Task) bool {
		return task.ID == id
	})
}

// NextKey returns a key that sorts after every task currently in status.
func NextKey(tasks []domain.Task, status domain.Status) float64 {
	column := ColumnTasks(tasks, status, nil)
	if len(column) == 0 {
		return 0
	}
	return math.Floor(column[len(column)-1].Order) + 1
}

// Between returns a key strictly between lower and upper. Pass math.Inf(-1) or
// math.Inf(1) for an open end. Keys produced here are fractional until the next
// commit renumbers the column.
func Between(lower, upper float64) float64 {
	switch {
	case math.IsInf(lower, -1) && math.IsInf(upper, 1):
		return 0
	case math.IsInf(lower, -1):
		return upper - 1
	case math.IsInf(upper, 1):
		return lower + 1
	default:
		return lower + (upper-lower)/2
	}
}

func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func idSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func findTask(tasks []domain.Task, id string) (domain.Task, bool) {
	idx := IndexOf(tasks, id)
	if idx < 0 {
		return domain.Task{}, false
	}
	return tasks[idx], true
}

// inColumn reports whether every id in ids is a task sitting in status.
func inColumn(tasks []domain.Task, ids []string, status domain.Status) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		task, ok := findTask(tasks, id)
		if !ok || task.Status != status {
			return false
		}
	}
	return true
}

// stationaryAbove counts the tasks above activeID in its column that are not
// part of the moving block.
func stationaryAbove(tasks []domain.Task, activeID string, excluded map[string]struct{}) int {
	active, ok := findTask(tasks, activeID)
	if !ok {
		return 0
	}
	count := 0
	for _, task := range ColumnTasks(tasks, active.Status, nil) {
		if task.ID == activeID {
			break
		}
		if _, moving := excluded[task.ID]; !moving {
			count++
		}
	}
	return count
}
