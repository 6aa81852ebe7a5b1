package tui

import (
	"github.com/hylla/dragboard/internal/domain"
	"github.com/hylla/dragboard/internal/reorder"
)

// Board geometry, in terminal cells. Mouse coordinates are zero-based.
const (
	// header line plus one spacer
	boardTopRow = 2
	// top border plus top padding of a column box
	columnChromeTop = 2
	// column title plus one spacer
	columnHeaderRows = 2
	// title line plus meta line
	cardRows     = 2
	columnMargin = 1
	minColWidth  = 24
	maxColWidth  = 42
)

// rowKind distinguishes cards from the drop gap.
type rowKind int

const (
	rowCard rowKind = iota
	rowPlaceholder
)

// columnRow is one rendered entry of a column.
type columnRow struct {
	kind rowKind
	task domain.Task
	// index is the card's position among the column's stationary cards.
	index  int
	ghosts []domain.Task
	top    int
	height int
}

// hitResult describes what sits under one terminal cell.
type hitResult struct {
	column int
	status domain.Status
	row    int
	rows   []columnRow
	rect   reorder.Rect
}

// overRow returns the row under the pointer, if any.
func (h hitResult) overRow() (columnRow, bool) {
	if h.row < 0 || h.row >= len(h.rows) {
		return columnRow{}, false
	}
	return h.rows[h.row], true
}

// columnWidthFor returns the outer width of one column box, borders and padding included.
func (m Model) columnWidthFor(boardWidth int) int {
	if len(m.columns) == 0 {
		return minColWidth
	}
	w := 28
	if boardWidth > 0 {
		candidate := boardWidth/len(m.columns) - columnMargin
		if candidate > 0 {
			w = candidate
		}
	}
	return clamp(w, minColWidth, maxColWidth)
}

// columnWidth returns column width.
func (m Model) columnWidth() int {
	return m.columnWidthFor(m.width)
}

// columnSpan is the horizontal distance between the left edges of adjacent columns.
func (m Model) columnSpan() int {
	return m.columnWidth() + columnMargin
}

// columnHeight returns column height.
func (m Model) columnHeight() int {
	footerLines := 4
	if m.detailOpen {
		footerLines += detailPaneLines
	}
	h := m.height - boardTopRow - footerLines
	if h < 10 {
		return 10
	}
	return h
}

// cardsTop returns the screen row of the first card line.
func (m Model) cardsTop() int {
	return boardTopRow + columnChromeTop + columnHeaderRows
}

// columnRows lays out one column as rendered. While a drag is active the
// moving cards leave their slots and travel inside the placeholder gap.
func (m Model) columnRows(status domain.Status) []columnRow {
	var moving map[string]struct{}
	if m.dragging {
		moving = make(map[string]struct{}, len(m.movingIDs))
		for _, id := range m.movingIDs {
			moving[id] = struct{}{}
		}
	}
	stationary := reorder.ColumnTasks(m.tasks, status, moving)

	gapAt := -1
	var ghosts []domain.Task
	if m.dragging {
		if ph := m.placeholder.Current(); ph != nil && ph.Status == status {
			gapAt = clamp(ph.InsertIndex, 0, len(stationary))
			for _, id := range m.movingIDs {
				if task, ok := m.taskByID(id); ok {
					ghosts = append(ghosts, task)
				}
			}
		}
	}

	rows := make([]columnRow, 0, len(stationary)+1)
	top := 0
	for idx := 0; idx <= len(stationary); idx++ {
		if idx == gapAt {
			height := max(1, len(ghosts))
			rows = append(rows, columnRow{kind: rowPlaceholder, index: idx, ghosts: ghosts, top: top, height: height})
			top += height
		}
		if idx == len(stationary) {
			break
		}
		rows = append(rows, columnRow{kind: rowCard, task: stationary[idx], index: idx, top: top, height: cardRows})
		top += cardRows
	}
	return rows
}

// stationaryTasks returns the column's cards that are not part of the active drag.
func (m Model) stationaryTasks(status domain.Status) []domain.Task {
	out := make([]domain.Task, 0)
	for _, row := range m.columnRows(status) {
		if row.kind == rowCard {
			out = append(out, row.task)
		}
	}
	return out
}

// hitTest resolves a screen cell to a column and, when one is under it, a row.
func (m Model) hitTest(x, y int) (hitResult, bool) {
	if len(m.columns) == 0 || x < 0 || y < boardTopRow {
		return hitResult{}, false
	}
	span := m.columnSpan()
	col := x / span
	if col >= len(m.columns) || x-col*span >= m.columnWidth() {
		return hitResult{}, false
	}
	if y >= boardTopRow+m.columnHeight() {
		return hitResult{}, false
	}
	status := m.columns[col].Status
	out := hitResult{column: col, status: status, row: -1, rows: m.columnRows(status)}

	line := y - m.cardsTop()
	if line < 0 {
		return out, true
	}
	for idx, row := range out.rows {
		if line >= row.top && line < row.top+row.height {
			out.row = idx
			out.rect = reorder.Rect{
				X:      float64(col * span),
				Y:      float64(m.cardsTop() + row.top),
				Width:  float64(m.columnWidth()),
				Height: float64(row.height),
			}
			break
		}
	}
	return out, true
}

// rowScreenY returns the first screen row of the task's card, or -1.
func (m Model) rowScreenY(status domain.Status, taskID string) int {
	for _, row := range m.columnRows(status) {
		if row.kind == rowCard && row.task.ID == taskID {
			return m.cardsTop() + row.top
		}
	}
	return -1
}

// clamp clamps the requested operation.
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
