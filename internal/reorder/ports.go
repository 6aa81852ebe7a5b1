package reorder

import (
	"context"
	"sync"
	"time"

	"github.com/hylla/dragboard/internal/domain"
)

// TaskStore owns the task collection. ApplyUpdate must run update against the
// current collection and persist the result atomically; when update returns an
// error nothing is written.
type TaskStore interface {
	Tasks(context.Context) ([]domain.Task, error)
	ApplyUpdate(context.Context, func([]domain.Task) ([]domain.Task, error)) error
}

// SelectionSource is the multi-select the engine reads at drag start and clears after every drop.
type SelectionSource interface {
	IsSelected(string) bool
	IDsOrderedBy([]domain.Task) []string
	Clear()
}

// PlaceholderSink receives the drop-gap descriptor; nil hides the gap.
type PlaceholderSink interface {
	SetPlaceholder(*Placeholder)
}

// PlaceholderFunc adapts a function to PlaceholderSink.
type PlaceholderFunc func(*Placeholder)

// SetPlaceholder calls f.
func (f PlaceholderFunc) SetPlaceholder(p *Placeholder) {
	if f != nil {
		f(p)
	}
}

// PlaceholderCell is a PlaceholderSink that remembers the latest descriptor.
type PlaceholderCell struct {
	mu      sync.Mutex
	current *Placeholder
}

// SetPlaceholder stores a copy of p.
func (c *PlaceholderCell) SetPlaceholder(p *Placeholder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == nil {
		c.current = nil
		return
	}
	copied := *p
	c.current = &copied
}

// Current returns a copy of the latest descriptor, or nil.
func (c *PlaceholderCell) Current() *Placeholder {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	copied := *c.current
	return &copied
}

// IDGenerator returns unique identifiers for new history entries.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Point is a pointer position in the event source's coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is the bounding box of the hovered element.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MidY returns the vertical midpoint of r.
func (r Rect) MidY() float64 {
	return r.Y + r.Height/2
}

// IndexHints carries sortable indexes reported by the event source for the active and hovered items.
type IndexHints struct {
	ActiveIndex int `json:"active_index"`
	OverIndex   int `json:"over_index"`
}

// StartEvent begins a drag of ActiveID.
type StartEvent struct {
	ActiveID string
}

// HoverEvent reports what the dragged card is over.
type HoverEvent struct {
	ActiveID string
	Over     DropTarget
	Pointer  *Point
	OverRect *Rect
	Hints    *IndexHints
}

// DropEvent ends a drag. A TargetNone Over means the card was released outside every column.
type DropEvent struct {
	ActiveID string
	Over     DropTarget
	Hints    *IndexHints
}
