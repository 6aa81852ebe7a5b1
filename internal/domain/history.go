package domain

import (
	"strings"
	"time"
)

// HistoryType classifies one task audit entry.
type HistoryType string

// HistoryTypeStatusChange marks an entry appended when a move changes a task's column.
const HistoryTypeStatusChange HistoryType = "status_change"

// SystemAuthor attributes history entries for tasks without assignees.
const SystemAuthor = "System"

// HistoryEvent is one append-only audit entry on a task.
type HistoryEvent struct {
	ID        string      `json:"id"`
	Type      HistoryType `json:"type"`
	Content   string      `json:"content"`
	Author    string      `json:"author"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewStatusChangeEvent builds the entry recorded when a task moves between columns.
func NewStatusChangeEvent(id, fromLabel, toLabel, author string, now time.Time) HistoryEvent {
	author = strings.TrimSpace(author)
	if author == "" {
		author = SystemAuthor
	}
	return HistoryEvent{
		ID:        strings.TrimSpace(id),
		Type:      HistoryTypeStatusChange,
		Content:   StatusTransitionContent(fromLabel, toLabel),
		Author:    author,
		Timestamp: now.UTC(),
	}
}

// StatusTransitionContent renders the "<from> → <to>" transition text.
func StatusTransitionContent(fromLabel, toLabel string) string {
	return strings.TrimSpace(fromLabel) + " → " + strings.TrimSpace(toLabel)
}
