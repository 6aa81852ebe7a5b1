package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hylla/dragboard/internal/domain"
	"github.com/hylla/dragboard/internal/reorder"
)

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	tableMutedStyle  = tableCellStyle.Foreground(lipgloss.Color("241"))
)

// renderTaskTable lists tasks column by column in board order. An empty filter
// lists every column.
func renderTaskTable(columns []domain.Column, tasks []domain.Task, filter domain.Status) string {
	rows := make([][]string, 0, len(tasks))
	for _, column := range columns {
		if filter != "" && column.Status != filter {
			continue
		}
		for idx, task := range reorder.ColumnTasks(tasks, column.Status, nil) {
			assignees := "unassigned"
			if len(task.Assignees) > 0 {
				assignees = "@" + strings.Join(task.Assignees, " @")
			}
			rows = append(rows, []string{
				column.Label,
				fmt.Sprintf("%d", idx),
				task.ID,
				task.Title,
				assignees,
			})
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("239"))).
		Headers("COLUMN", "#", "ID", "TITLE", "ASSIGNEES").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 2:
				return tableMutedStyle
			default:
				return tableCellStyle
			}
		})
	return t.Render()
}
