package reorder

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/hylla/dragboard/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// recordingLogger keeps warnings so tests can assert recoverable failures were logged.
type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.warnings = append(l.warnings, msg)
}

type sessionFixture struct {
	logger    *recordingLogger
	store     *MemoryStore
	selection *Selection
	cell      *PlaceholderCell
	clock     *fakeClock
	session   *Session
}

func newSessionFixture(t *testing.T, tasks []domain.Task, frame time.Duration) sessionFixture {
	t.Helper()
	fx := sessionFixture{
		store:     NewMemoryStore(tasks),
		selection: NewSelection(),
		cell:      &PlaceholderCell{},
		clock:     &fakeClock{now: testNow},
		logger:    &recordingLogger{},
	}
	session, err := NewSession(SessionConfig{
		Store:         fx.store,
		Selection:     fx.selection,
		Sink:          fx.cell,
		Logger:        fx.logger,
		Clock:         fx.clock.Now,
		FrameInterval: frame,
	})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	fx.session = session
	return fx
}

// TestSessionDropOutsideBoard verifies a drop with no target changes nothing and resets state.
func TestSessionDropOutsideBoard(t *testing.T) {
	tasks := []domain.Task{
		newTestTask("T1", domain.StatusToDo, 0),
		newTestTask("T2", domain.StatusToDo, 1),
	}
	fx := newSessionFixture(t, tasks, 0)
	fx.selection.Add("T1")
	ctx := context.Background()

	if err := fx.session.Start(ctx, StartEvent{ActiveID: "T1"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if fx.cell.Current() == nil {
		t.Fatal("expected placeholder published at start")
	}
	if err := fx.session.Over(HoverEvent{ActiveID: "T1", Over: ColumnTarget(domain.StatusDone)}); err != nil {
		t.Fatalf("Over() error = %v", err)
	}
	if got := fx.cell.Current(); got == nil || got.Status != domain.StatusDone {
		t.Fatalf("unexpected placeholder %#v", got)
	}

	out, err := fx.session.End(ctx, DropEvent{ActiveID: "T1"})
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if out.Changed {
		t.Fatal("expected no change")
	}
	after, _ := fx.store.Tasks(ctx)
	if !reflect.DeepEqual(after, tasks) {
		t.Fatalf("expected tasks unchanged, got %#v", after)
	}
	if fx.store.Updates() != 0 {
		t.Fatalf("expected no store writes, got %d", fx.store.Updates())
	}
	if fx.selection.Len() != 0 {
		t.Fatal("expected selection cleared")
	}
	if fx.cell.Current() != nil {
		t.Fatal("expected placeholder cleared")
	}
	if fx.session.State() != StateIdle || fx.session.Projection() != nil {
		t.Fatal("expected idle session")
	}
}

// TestSessionCrossColumnDrop runs a full drag through the session.
func TestSessionCrossColumnDrop(t *testing.T) {
	tasks := []domain.Task{
		newTestTask("T1", domain.StatusInProgress, 0),
		newTestTask("T2", domain.StatusInProgress, 1),
		newTestTask("T3", domain.StatusInProgress, 2),
		newTestTask("T4", domain.StatusInProgress, 3),
		newTestTask("T5", domain.StatusDone, 0),
		newTestTask("T6", domain.StatusDone, 1),
	}
	fx := newSessionFixture(t, tasks, 0)
	fx.selection.Add("T2")
	fx.selection.Add("T3")
	ctx := context.Background()

	if err := fx.session.Start(ctx, StartEvent{ActiveID: "T2"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	hover := HoverEvent{ActiveID: "T2", Over: TaskTarget("T6"), Pointer: &Point{Y: 0}, OverRect: &Rect{Y: 0, Height: 2}}
	if err := fx.session.Over(hover); err != nil {
		t.Fatalf("Over() error = %v", err)
	}
	ph := fx.session.Placeholder()
	if ph == nil || ph.Status != domain.StatusDone || ph.InsertIndex != 1 || ph.Count != 2 {
		t.Fatalf("unexpected placeholder %#v", ph)
	}
	if err := fx.session.Over(HoverEvent{ActiveID: "T2", Over: PlaceholderTarget(domain.StatusDone)}); err != nil {
		t.Fatalf("Over() error = %v", err)
	}

	out, err := fx.session.End(ctx, DropEvent{ActiveID: "T2", Over: PlaceholderTarget(domain.StatusDone)})
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if !out.Changed || len(out.HistoryEvents) != 2 {
		t.Fatalf("unexpected outcome %#v", out)
	}
	after, _ := fx.store.Tasks(ctx)
	if got := columnIDs(after, domain.StatusDone); !slices.Equal(got, []string{"T5", "T2", "T3", "T6"}) {
		t.Fatalf("Done = %v", got)
	}
	if fx.store.Updates() != 1 {
		t.Fatalf("expected exactly one update, got %d", fx.store.Updates())
	}
	if fx.selection.Len() != 0 || fx.cell.Current() != nil {
		t.Fatal("expected selection and placeholder cleared")
	}
	if !fx.session.LastInteraction().Equal(testNow) {
		t.Fatalf("LastInteraction() = %v", fx.session.LastInteraction())
	}
}

// TestSessionImmediateDropIsNoOp verifies the seeded projection keeps the board intact.
func TestSessionImmediateDropIsNoOp(t *testing.T) {
	tasks := []domain.Task{
		newTestTask("a", domain.StatusToDo, 0),
		newTestTask("b", domain.StatusToDo, 1),
	}
	fx := newSessionFixture(t, tasks, 0)
	ctx := context.Background()
	if err := fx.session.Start(ctx, StartEvent{ActiveID: "b"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	out, err := fx.session.End(ctx, DropEvent{ActiveID: "b", Over: TaskTarget("b")})
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if out.Changed {
		t.Fatal("expected no change")
	}
	after, _ := fx.store.Tasks(ctx)
	if !reflect.DeepEqual(after, tasks) {
		t.Fatal("expected tasks unchanged")
	}
}

// TestSessionImmediateDropKeepsSplitSelection verifies a grab and drop without
// movement leaves a non-adjacent selection where it is, whatever the drop names.
func TestSessionImmediateDropKeepsSplitSelection(t *testing.T) {
	cases := []struct {
		name     string
		selected []string
		active   string
		over     DropTarget
	}{
		{name: "gap below block", selected: []string{"t1", "t3"}, active: "t3", over: PlaceholderTarget(domain.StatusToDo)},
		{name: "gap from top card", selected: []string{"t1", "t3"}, active: "t1", over: PlaceholderTarget(domain.StatusToDo)},
		{name: "own column", selected: []string{"t1", "t3"}, active: "t3", over: ColumnTarget(domain.StatusToDo)},
		{name: "other block member", selected: []string{"t1", "t3"}, active: "t3", over: TaskTarget("t1")},
		{name: "selection across columns", selected: []string{"t1", "t5"}, active: "t1", over: PlaceholderTarget(domain.StatusToDo)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tasks := []domain.Task{
				newTestTask("t1", domain.StatusToDo, 0),
				newTestTask("t2", domain.StatusToDo, 1),
				newTestTask("t3", domain.StatusToDo, 2),
				newTestTask("t5", domain.StatusDone, 0),
			}
			fx := newSessionFixture(t, tasks, 0)
			for _, id := range tc.selected {
				fx.selection.Add(id)
			}
			ctx := context.Background()
			if err := fx.session.Start(ctx, StartEvent{ActiveID: tc.active}); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			out, err := fx.session.End(ctx, DropEvent{ActiveID: tc.active, Over: tc.over})
			if err != nil {
				t.Fatalf("End() error = %v", err)
			}
			if out.Changed || len(out.HistoryEvents) != 0 {
				t.Fatalf("expected no change, got %#v", out)
			}
			after, _ := fx.store.Tasks(ctx)
			if !reflect.DeepEqual(after, tasks) {
				t.Fatalf("to do = %v, want [t1 t2 t3]", columnIDs(after, domain.StatusToDo))
			}
			if fx.selection.Len() != 0 || fx.cell.Current() != nil {
				t.Fatal("expected selection and placeholder cleared")
			}
		})
	}
}

// TestSessionHoverBackOntoBlockIsNoOp verifies returning to the block after a
// hover elsewhere restores the in-place drop.
func TestSessionHoverBackOntoBlockIsNoOp(t *testing.T) {
	tasks := []domain.Task{
		newTestTask("t1", domain.StatusToDo, 0),
		newTestTask("t2", domain.StatusToDo, 1),
		newTestTask("t3", domain.StatusToDo, 2),
		newTestTask("t4", domain.StatusToDo, 3),
	}
	fx := newSessionFixture(t, tasks, 0)
	fx.selection.Add("t1")
	fx.selection.Add("t3")
	ctx := context.Background()
	if err := fx.session.Start(ctx, StartEvent{ActiveID: "t1"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := fx.session.Over(HoverEvent{ActiveID: "t1", Over: TaskTarget("t4")}); err != nil {
		t.Fatalf("Over() error = %v", err)
	}
	if err := fx.session.Over(HoverEvent{ActiveID: "t1", Over: TaskTarget("t3")}); err != nil {
		t.Fatalf("Over() error = %v", err)
	}
	out, err := fx.session.End(ctx, DropEvent{ActiveID: "t1", Over: PlaceholderTarget(domain.StatusToDo)})
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if out.Changed {
		t.Fatalf("expected no change, got %#v", out)
	}
	after, _ := fx.store.Tasks(ctx)
	if got := columnIDs(after, domain.StatusToDo); !slices.Equal(got, []string{"t1", "t2", "t3", "t4"}) {
		t.Fatalf("to do = %v, want [t1 t2 t3 t4]", got)
	}
}

// TestSessionThrottleFlushesPendingHover verifies a held hover is applied at drop.
func TestSessionThrottleFlushesPendingHover(t *testing.T) {
	tasks := []domain.Task{
		newTestTask("a", domain.StatusToDo, 0),
		newTestTask("x", domain.StatusDone, 0),
		newTestTask("y", domain.StatusDone, 1),
	}
	fx := newSessionFixture(t, tasks, DefaultFrameInterval)
	ctx := context.Background()
	if err := fx.session.Start(ctx, StartEvent{ActiveID: "a"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := fx.session.Over(HoverEvent{ActiveID: "a", Over: TaskTarget("y")}); err != nil {
		t.Fatalf("Over() error = %v", err)
	}
	if got := fx.session.Placeholder(); got.Status != domain.StatusDone || got.InsertIndex != 1 {
		t.Fatalf("unexpected first placeholder %#v", got)
	}

	fx.clock.Advance(time.Millisecond)
	if err := fx.session.Over(HoverEvent{ActiveID: "a", Over: TaskTarget("x")}); err != nil {
		t.Fatalf("Over() error = %v", err)
	}
	if got := fx.session.Placeholder(); got.InsertIndex != 1 {
		t.Fatalf("expected throttled hover to leave placeholder stale, got %#v", got)
	}

	out, err := fx.session.End(ctx, DropEvent{ActiveID: "a", Over: TaskTarget("x")})
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if out.InsertIndex != 0 {
		t.Fatalf("expected pending hover to be flushed, got index %d", out.InsertIndex)
	}
	after, _ := fx.store.Tasks(ctx)
	if got := columnIDs(after, domain.StatusDone); !slices.Equal(got, []string{"a", "x", "y"}) {
		t.Fatalf("Done = %v", got)
	}
}

// TestSessionLifecycleErrors verifies out-of-order events are rejected.
func TestSessionLifecycleErrors(t *testing.T) {
	fx := newSessionFixture(t, []domain.Task{newTestTask("a", domain.StatusToDo, 0)}, 0)
	ctx := context.Background()

	if err := fx.session.Over(HoverEvent{ActiveID: "a"}); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("expected ErrNotDragging from Over, got %v", err)
	}
	if _, err := fx.session.End(ctx, DropEvent{ActiveID: "a"}); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("expected ErrNotDragging from End, got %v", err)
	}
	if err := fx.session.Start(ctx, StartEvent{ActiveID: "missing"}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if len(fx.logger.warnings) != 1 {
		t.Fatalf("warnings = %v, want one for the missing task", fx.logger.warnings)
	}
	if err := fx.session.Start(ctx, StartEvent{ActiveID: "a"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := fx.session.Start(ctx, StartEvent{ActiveID: "a"}); !errors.Is(err, ErrDragActive) {
		t.Fatalf("expected ErrDragActive, got %v", err)
	}
	fx.session.Cancel()
	fx.session.Cancel()
	if fx.session.State() != StateIdle || fx.cell.Current() != nil {
		t.Fatal("expected idle session after cancel")
	}
}

// TestSessionDropAfterTaskRemoved verifies a vanished task aborts without writing.
func TestSessionDropAfterTaskRemoved(t *testing.T) {
	fx := newSessionFixture(t, []domain.Task{
		newTestTask("a", domain.StatusToDo, 0),
		newTestTask("b", domain.StatusDone, 0),
	}, 0)
	ctx := context.Background()
	if err := fx.session.Start(ctx, StartEvent{ActiveID: "a"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := fx.session.Over(HoverEvent{ActiveID: "a", Over: ColumnTarget(domain.StatusDone)}); err != nil {
		t.Fatalf("Over() error = %v", err)
	}
	err := fx.store.ApplyUpdate(ctx, func(tasks []domain.Task) ([]domain.Task, error) {
		return tasks[1:], nil
	})
	if err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}

	_, err = fx.session.End(ctx, DropEvent{ActiveID: "a", Over: ColumnTarget(domain.StatusDone)})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	after, _ := fx.store.Tasks(ctx)
	if len(after) != 1 || after[0].ID != "b" || after[0].Order != 0 {
		t.Fatalf("unexpected store contents %#v", after)
	}
	if fx.session.State() != StateIdle {
		t.Fatal("expected idle session")
	}
	if len(fx.logger.warnings) != 1 {
		t.Fatalf("warnings = %v, want the aborted drop logged", fx.logger.warnings)
	}
}

// TestRecentlyInteracted verifies the post-drop click window.
func TestRecentlyInteracted(t *testing.T) {
	fx := newSessionFixture(t, []domain.Task{newTestTask("a", domain.StatusToDo, 0)}, 0)
	if fx.session.RecentlyInteracted(testNow, time.Second) {
		t.Fatal("expected no interaction before any drag")
	}
	if err := fx.session.Start(context.Background(), StartEvent{ActiveID: "a"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	fx.session.Cancel()
	if !fx.session.RecentlyInteracted(testNow.Add(100*time.Millisecond), time.Second) {
		t.Fatal("expected recent interaction")
	}
	if fx.session.RecentlyInteracted(testNow.Add(2*time.Second), time.Second) {
		t.Fatal("expected interaction window to lapse")
	}
}

// TestThrottleAllow verifies frame gating.
func TestThrottleAllow(t *testing.T) {
	th := NewThrottle(10 * time.Millisecond)
	if !th.Allow(testNow) {
		t.Fatal("expected first event allowed")
	}
	if th.Allow(testNow.Add(5 * time.Millisecond)) {
		t.Fatal("expected event inside interval to be held")
	}
	if !th.Allow(testNow.Add(10 * time.Millisecond)) {
		t.Fatal("expected event after interval allowed")
	}
	if !NewThrottle(0).Allow(testNow) || !NewThrottle(0).Allow(testNow) {
		t.Fatal("expected zero interval to allow everything")
	}
}
