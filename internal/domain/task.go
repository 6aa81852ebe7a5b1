package domain

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Task is one card on the board.
type Task struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Status    Status         `json:"status"`
	Order     float64        `json:"order"`
	Assignees []string       `json:"assignees"`
	History   []HistoryEvent `json:"history"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TaskInput holds the caller-supplied fields for NewTask.
type TaskInput struct {
	ID        string
	Title     string
	Status    Status
	Order     float64
	Assignees []string
}

// NewTask validates in and returns a task with normalized fields.
func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Title == "" {
		return Task{}, ErrInvalidTitle
	}
	if in.Status == "" {
		in.Status = StatusToDo
	}
	if !in.Status.Valid() {
		return Task{}, ErrInvalidStatus
	}
	if !validOrder(in.Order) {
		return Task{}, ErrInvalidOrder
	}

	return Task{
		ID:        in.ID,
		Title:     in.Title,
		Status:    in.Status,
		Order:     in.Order,
		Assignees: normalizeAssignees(in.Assignees),
		History:   []HistoryEvent{},
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Move places the task in status at order.
func (t *Task) Move(status Status, order float64, now time.Time) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if !validOrder(order) {
		return ErrInvalidOrder
	}
	t.Status = status
	t.Order = order
	t.UpdatedAt = now.UTC()
	return nil
}

// Rename updates the title.
func (t *Task) Rename(title string, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	t.Title = title
	t.UpdatedAt = now.UTC()
	return nil
}

// AppendHistory adds ev to the end of the task history without sharing the previous backing array.
func (t *Task) AppendHistory(ev HistoryEvent) {
	history := make([]HistoryEvent, 0, len(t.History)+1)
	history = append(history, t.History...)
	t.History = append(history, ev)
}

// Author returns the first assignee, or fallback when the task is unassigned.
func (t Task) Author(fallback string) string {
	for _, assignee := range t.Assignees {
		if assignee = strings.TrimSpace(assignee); assignee != "" {
			return assignee
		}
	}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return fallback
	}
	return SystemAuthor
}

// Clone returns a deep copy so callers can mutate slices freely.
func (t Task) Clone() Task {
	t.Assignees = slices.Clone(t.Assignees)
	t.History = slices.Clone(t.History)
	return t
}

// CloneTasks deep-copies a task list.
func CloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for idx, task := range tasks {
		out[idx] = task.Clone()
	}
	return out
}

func validOrder(order float64) bool {
	return !math.IsNaN(order) && !math.IsInf(order, 0)
}

func normalizeAssignees(assignees []string) []string {
	out := make([]string, 0, len(assignees))
	seen := map[string]struct{}{}
	for _, raw := range assignees {
		assignee := strings.TrimSpace(raw)
		if assignee == "" {
			continue
		}
		if _, ok := seen[assignee]; ok {
			continue
		}
		seen[assignee] = struct{}{}
		out = append(out, assignee)
	}
	return out
}
