package domain

import "strings"

// Status identifies the board column a task renders under.
type Status string

// Canonical board columns, in left-to-right order.
const (
	StatusToDo       Status = "todo"
	StatusInProgress Status = "progress"
	StatusDone       Status = "done"
)

var orderedStatuses = []Status{StatusToDo, StatusInProgress, StatusDone}

var defaultStatusLabels = map[Status]string{
	StatusToDo:       "ToDo",
	StatusInProgress: "InProgress",
	StatusDone:       "Done",
}

// Statuses returns every column in display order.
func Statuses() []Status {
	return append([]Status(nil), orderedStatuses...)
}

// Valid reports whether s is one of the canonical columns.
func (s Status) Valid() bool {
	return s.Index() >= 0
}

// Index returns the column position of s, or -1 when s is unknown.
func (s Status) Index() int {
	for idx, status := range orderedStatuses {
		if status == s {
			return idx
		}
	}
	return -1
}

// Label returns the default human label used in history entries.
func (s Status) Label() string {
	if label, ok := defaultStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseStatus resolves ids and labels ("ToDo", "in progress", "done") to a canonical Status.
func ParseStatus(raw string) (Status, bool) {
	switch normalizeStatusKey(raw) {
	case "todo", "to-do":
		return StatusToDo, true
	case "progress", "in-progress", "inprogress", "doing":
		return StatusInProgress, true
	case "done", "complete", "completed":
		return StatusDone, true
	default:
		return "", false
	}
}

// normalizeStatusKey lowercases raw and collapses separators to single dashes.
func normalizeStatusKey(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ""
	}
	var b strings.Builder
	lastDash := false
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
