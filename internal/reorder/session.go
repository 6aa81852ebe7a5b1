package reorder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hylla/dragboard/internal/domain"
)

// State is the lifecycle phase of a Session.
type State int

// State values.
const (
	StateIdle State = iota
	StateDragging
	StateCommitting
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StateCommitting:
		return "committing"
	default:
		return "idle"
	}
}

// Logger is the structured logging surface a Session writes to.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
}

// DefaultLogger returns a Logger writing through the process-wide charm logger.
func DefaultLogger() Logger {
	return charmLogger{}
}

type charmLogger struct{}

func (charmLogger) Debug(msg string, keyvals ...any) { log.Debug(msg, keyvals...) }
func (charmLogger) Info(msg string, keyvals ...any)  { log.Info(msg, keyvals...) }
func (charmLogger) Warn(msg string, keyvals ...any)  { log.Warn(msg, keyvals...) }

// SessionConfig wires a Session to its collaborators. Store is required.
type SessionConfig struct {
	Store         TaskStore
	Selection     SelectionSource
	Sink          PlaceholderSink
	Logger        Logger
	Clock         Clock
	IDGen         IDGenerator
	Labeler       Labeler
	SystemAuthor  string
	FrameInterval time.Duration
}

// Session drives one drag at a time through start, over, and end. It is not
// safe for concurrent use; callers serialize events the way a UI thread does.
type Session struct {
	store     TaskStore
	selection SelectionSource
	sink      PlaceholderSink
	logger    Logger
	clock     Clock
	projector Projector
	committer Committer
	throttle  *Throttle

	state           State
	activeID        string
	snapshot        []domain.Task
	projection      *Projection
	pending         *HoverEvent
	lastInteraction time.Time
}

// NewSession constructs an idle session.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Store == nil {
		return nil, errors.New("reorder: task store is required")
	}
	if cfg.Selection == nil {
		cfg.Selection = NewSelection()
	}
	if cfg.Sink == nil {
		cfg.Sink = PlaceholderFunc(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = DefaultLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Session{
		store:     cfg.Store,
		selection: cfg.Selection,
		sink:      cfg.Sink,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		projector: NewProjector(cfg.Selection),
		committer: NewCommitter(cfg.Clock, cfg.IDGen, cfg.Labeler, cfg.SystemAuthor),
		throttle:  NewThrottle(cfg.FrameInterval),
	}, nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	return s.state
}

// ActiveID returns the id being dragged, or "" when idle.
func (s *Session) ActiveID() string {
	return s.activeID
}

// Projection returns a copy of the stored projection.
func (s *Session) Projection() *Projection {
	if s.projection == nil {
		return nil
	}
	copied := *s.projection
	copied.MovingIDs = append([]string(nil), s.projection.MovingIDs...)
	return &copied
}

// Placeholder returns the gap descriptor for the stored projection.
func (s *Session) Placeholder() *Placeholder {
	return s.projection.Placeholder()
}

// LastInteraction returns when the most recent drag ended.
func (s *Session) LastInteraction() time.Time {
	return s.lastInteraction
}

// RecentlyInteracted reports whether a drag ended within window before now.
// Click handlers use it to ignore the click that trails a drop.
func (s *Session) RecentlyInteracted(now time.Time, window time.Duration) bool {
	if s.lastInteraction.IsZero() {
		return false
	}
	return now.Sub(s.lastInteraction) < window
}

// Start begins dragging ev.ActiveID. The seeded projection keeps the card in
// place so an immediate drop is a no-op.
func (s *Session) Start(ctx context.Context, ev StartEvent) error {
	activeID := strings.TrimSpace(ev.ActiveID)
	if s.state != StateIdle {
		return ErrDragActive
	}
	tasks, err := s.store.Tasks(ctx)
	if err != nil {
		return err
	}
	seed := s.projector.Seed(tasks, activeID)
	if seed == nil {
		s.logger.Warn("drag start ignored", "task_id", activeID, "err", ErrTaskNotFound)
		return ErrTaskNotFound
	}
	s.state = StateDragging
	s.activeID = activeID
	s.snapshot = tasks
	s.projection = seed
	s.pending = nil
	s.throttle.Reset()
	s.sink.SetPlaceholder(seed.Placeholder())
	s.logger.Debug("drag started", "task_id", activeID, "moving", len(seed.MovingIDs), "status", seed.SourceStatus)
	return nil
}

// Over recomputes the projection for a hover. Hovers inside the frame interval
// are held and applied by the next admitted hover or by End.
func (s *Session) Over(ev HoverEvent) error {
	if s.state != StateDragging {
		return ErrNotDragging
	}
	if ev.ActiveID = strings.TrimSpace(ev.ActiveID); ev.ActiveID == "" {
		ev.ActiveID = s.activeID
	}
	if !s.throttle.Allow(s.clock()) {
		held := ev
		s.pending = &held
		return nil
	}
	s.pending = nil
	s.apply(ev)
	return nil
}

func (s *Session) apply(ev HoverEvent) {
	s.projection = s.projector.Project(s.snapshot, ev, s.projection)
	s.sink.SetPlaceholder(s.projection.Placeholder())
}

// End finishes the drag. Dropping outside every target cancels; otherwise the
// stored projection is committed. Selection and placeholder are cleared either way.
func (s *Session) End(ctx context.Context, ev DropEvent) (Outcome, error) {
	if s.state != StateDragging {
		return Outcome{}, ErrNotDragging
	}
	if s.pending != nil {
		s.apply(*s.pending)
		s.pending = nil
	}
	if ev.ActiveID = strings.TrimSpace(ev.ActiveID); ev.ActiveID == "" {
		ev.ActiveID = s.activeID
	}
	if !ev.Over.Valid() {
		s.logger.Debug("drop outside board", "task_id", ev.ActiveID)
		s.reset()
		return Outcome{}, nil
	}

	proj := s.projection
	if proj == nil {
		proj = s.projector.Project(s.snapshot, HoverEvent{ActiveID: ev.ActiveID, Over: ev.Over, Hints: ev.Hints}, nil)
	}
	if proj == nil {
		s.reset()
		return Outcome{}, nil
	}
	// The gap or column of a block still held in place drops onto the block itself.
	if proj.InPlace() && (ev.Over.Kind == TargetPlaceholder || ev.Over.Kind == TargetColumn) && ev.Over.Status == proj.TargetStatus {
		ev.Over = proj.Over
	}

	s.state = StateCommitting
	out, err := s.committer.Commit(ctx, s.store, proj, ev)
	s.reset()
	if err != nil {
		s.logger.Warn("drop not applied", "task_id", ev.ActiveID, "err", err)
		return Outcome{}, err
	}
	if out.Changed {
		s.logger.Info(
			"tasks moved",
			"moved", len(out.MovedIDs),
			"status", out.TargetStatus,
			"index", out.InsertIndex,
			"history", len(out.HistoryEvents),
		)
	}
	return out, nil
}

// Cancel abandons the drag without touching the store. It is safe to call when idle.
func (s *Session) Cancel() {
	if s.state == StateIdle {
		return
	}
	s.logger.Debug("drag cancelled", "task_id", s.activeID)
	s.reset()
}

func (s *Session) reset() {
	s.selection.Clear()
	s.sink.SetPlaceholder(nil)
	s.state = StateIdle
	s.activeID = ""
	s.snapshot = nil
	s.projection = nil
	s.pending = nil
	s.lastInteraction = s.clock()
}
