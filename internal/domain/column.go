package domain

import "strings"

// Column describes how one status renders on the board.
type Column struct {
	Status   Status `json:"status"`
	Label    string `json:"label"`
	WIPLimit int    `json:"wip_limit"`
}

// NewColumn validates and normalizes a board column definition.
func NewColumn(status Status, label string, wipLimit int) (Column, error) {
	if !status.Valid() {
		return Column{}, ErrInvalidStatus
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = status.Label()
	}
	if wipLimit < 0 {
		wipLimit = 0
	}
	return Column{Status: status, Label: label, WIPLimit: wipLimit}, nil
}

// DefaultColumns returns the three canonical columns with default labels.
func DefaultColumns() []Column {
	out := make([]Column, 0, len(orderedStatuses))
	for _, status := range orderedStatuses {
		out = append(out, Column{Status: status, Label: status.Label()})
	}
	return out
}

// ColumnLabels maps each status to its label, falling back to the default for missing entries.
func ColumnLabels(columns []Column) map[Status]string {
	out := make(map[Status]string, len(orderedStatuses))
	for _, status := range orderedStatuses {
		out[status] = status.Label()
	}
	for _, column := range columns {
		if column.Status.Valid() && strings.TrimSpace(column.Label) != "" {
			out[column.Status] = strings.TrimSpace(column.Label)
		}
	}
	return out
}
