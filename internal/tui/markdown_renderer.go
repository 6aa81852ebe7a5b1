package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/hylla/dragboard/internal/domain"
)

// minDetailWrap is the narrowest wrap width the detail pane renders at.
const minDetailWrap = 24

// detailTimeLayout formats history and activity timestamps.
const detailTimeLayout = "2006-01-02 15:04"

// markdownRenderer renders the detail pane through glamour. The term renderer is
// rebuilt only when the wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// renderDetail renders a task's history and activity for the detail pane.
func (r *markdownRenderer) renderDetail(task domain.Task, events []domain.ChangeEvent, label func(domain.Status) string, width int) string {
	return r.render(detailMarkdown(task, events, label), width)
}

func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	wrapWidth := max(width, minDetailWrap)
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}
	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}

// detailMarkdown lists status history newest first, then ledger activity.
func detailMarkdown(task domain.Task, events []domain.ChangeEvent, label func(domain.Status) string) string {
	if label == nil {
		label = domain.Status.Label
	}
	var b strings.Builder
	if len(task.History) > 0 {
		b.WriteString("**History**\n\n")
		for idx := len(task.History) - 1; idx >= 0; idx-- {
			ev := task.History[idx]
			fmt.Fprintf(&b, "- `%s` **%s** %s\n", ev.Timestamp.Local().Format(detailTimeLayout), ev.Author, ev.Content)
		}
	}
	if len(events) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("**Activity**\n\n")
		for _, ev := range events {
			fmt.Fprintf(&b, "- `%s` %s by %s (%s)", ev.OccurredAt.Local().Format(detailTimeLayout), ev.Operation, ev.ActorID, ev.ActorType)
			if move := activityMove(ev, label); move != "" {
				b.WriteString(": " + move)
			}
			b.WriteString("\n")
		}
	}
	if b.Len() == 0 {
		return "_no history yet_"
	}
	return b.String()
}

// activityMove summarizes the column and position change recorded on a ledger row.
func activityMove(ev domain.ChangeEvent, label func(domain.Status) string) string {
	from, to := ev.Metadata["from_status"], ev.Metadata["to_status"]
	fromOrder, toOrder := ev.Metadata["from_order"], ev.Metadata["to_order"]
	switch {
	case from != "" && to != "" && from != to:
		return fmt.Sprintf("%s → %s #%s", label(domain.Status(from)), label(domain.Status(to)), toOrder)
	case fromOrder != "" && toOrder != "" && fromOrder != toOrder:
		return fmt.Sprintf("#%s → #%s", fromOrder, toOrder)
	}
	return ""
}
