package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hylla/dragboard/internal/domain"
	"github.com/hylla/dragboard/internal/reorder"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	Columns       []domain.Column
	SystemAuthor  string
	FrameInterval time.Duration
	Logger        reorder.Logger
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service owns the board's task collection. It is the TaskStore every drag
// session commits through, so all writes are serialized here.
type Service struct {
	repo          Repository
	idGen         IDGenerator
	clock         Clock
	columns       []domain.Column
	labels        map[domain.Status]string
	systemAuthor  string
	frameInterval time.Duration
	logger        reorder.Logger

	mu sync.Mutex
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	columns := sanitizeColumns(cfg.Columns)
	if cfg.Logger == nil {
		cfg.Logger = reorder.DefaultLogger()
	}
	systemAuthor := strings.TrimSpace(cfg.SystemAuthor)
	if systemAuthor == "" {
		systemAuthor = domain.SystemAuthor
	}
	return &Service{
		repo:          repo,
		idGen:         idGen,
		clock:         clock,
		columns:       columns,
		labels:        domain.ColumnLabels(columns),
		systemAuthor:  systemAuthor,
		frameInterval: cfg.FrameInterval,
		logger:        cfg.Logger,
	}
}

// Columns returns the board columns in display order.
func (s *Service) Columns() []domain.Column {
	return slices.Clone(s.columns)
}

// Label returns the configured label for status.
func (s *Service) Label(status domain.Status) string {
	if label, ok := s.labels[status]; ok {
		return label
	}
	return status.Label()
}

// Tasks returns every task on the board.
func (s *Service) Tasks(ctx context.Context) ([]domain.Task, error) {
	return s.repo.ListTasks(ctx)
}

// ApplyUpdate runs update against the stored board and persists only the tasks
// it changed. An update error leaves storage untouched.
func (s *Service) ApplyUpdate(ctx context.Context, update func([]domain.Task) ([]domain.Task, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.repo.ListTasks(ctx)
	if err != nil {
		return err
	}
	next, err := update(domain.CloneTasks(prev))
	if err != nil {
		return err
	}
	changed, err := diffTasks(prev, next)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}
	return s.repo.SaveTasks(ctx, changed)
}

// NewSession returns a drag session committing through this service.
func (s *Service) NewSession(selection reorder.SelectionSource, sink reorder.PlaceholderSink) (*reorder.Session, error) {
	return reorder.NewSession(reorder.SessionConfig{
		Store:         s,
		Selection:     selection,
		Sink:          sink,
		Logger:        s.logger,
		Clock:         reorder.Clock(s.clock),
		IDGen:         reorder.IDGenerator(s.idGen),
		Labeler:       s.Label,
		SystemAuthor:  s.systemAuthor,
		FrameInterval: s.frameInterval,
	})
}

// CreateTaskInput holds input values for create task operations.
type CreateTaskInput struct {
	Title     string
	Status    domain.Status
	Assignees []string
	// AfterTaskID places the new task directly below an existing task in the same column.
	AfterTaskID string
}

// CreateTask creates task. New tasks append to the column unless AfterTaskID
// names an anchor, in which case the key sits between the anchor and its successor.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	status := in.Status
	if status == "" {
		status = domain.StatusToDo
	}
	order := reorder.NextKey(tasks, status)

	if anchorID := strings.TrimSpace(in.AfterTaskID); anchorID != "" {
		column := reorder.ColumnTasks(tasks, status, nil)
		idx := reorder.IndexOf(column, anchorID)
		if idx < 0 {
			return domain.Task{}, fmt.Errorf("%w: anchor task %q in %s", ErrNotFound, anchorID, status)
		}
		upper := math.Inf(1)
		if idx+1 < len(column) {
			upper = column[idx+1].Order
		}
		order = reorder.Between(column[idx].Order, upper)
	}

	task, err := domain.NewTask(domain.TaskInput{
		ID:        s.idGen(),
		Title:     in.Title,
		Status:    status,
		Order:     order,
		Assignees: in.Assignees,
	}, s.clock())
	if err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// MoveTasksInput holds input values for a programmatic move.
type MoveTasksInput struct {
	TaskIDs  []string
	ToStatus domain.Status
	Index    int
}

// MoveTasks moves a block of tasks into ToStatus at Index, using the same
// commit path as a pointer drag dropped on the column.
func (s *Service) MoveTasks(ctx context.Context, in MoveTasksInput) (reorder.Outcome, error) {
	if !in.ToStatus.Valid() {
		return reorder.Outcome{}, domain.ErrInvalidStatus
	}
	ids := make([]string, 0, len(in.TaskIDs))
	for _, id := range in.TaskIDs {
		if id = strings.TrimSpace(id); id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return reorder.Outcome{}, fmt.Errorf("%w: no task ids", ErrInvalidMove)
	}

	tasks, err := s.Tasks(ctx)
	if err != nil {
		return reorder.Outcome{}, err
	}
	moving := reorder.NewSelection(ids...).IDsOrderedBy(tasks)
	if len(moving) != len(ids) {
		for _, id := range ids {
			if !slices.Contains(moving, id) {
				return reorder.Outcome{}, fmt.Errorf("%w: task %q", ErrNotFound, id)
			}
		}
	}
	active, _ := findTask(tasks, moving[0])

	committer := reorder.NewCommitter(reorder.Clock(s.clock), reorder.IDGenerator(s.idGen), s.Label, s.systemAuthor)
	proj := &reorder.Projection{
		MovingIDs:    moving,
		TargetStatus: in.ToStatus,
		InsertIndex:  in.Index,
		SourceStatus: active.Status,
		Over:         reorder.ColumnTarget(in.ToStatus),
	}
	out, err := committer.Commit(ctx, s, proj, reorder.DropEvent{ActiveID: active.ID, Over: proj.Over})
	if errors.Is(err, reorder.ErrTaskNotFound) {
		return reorder.Outcome{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return out, err
}

// GetTask returns task.
func (s *Service) GetTask(ctx context.Context, taskID string) (domain.Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.Task{}, domain.ErrInvalidID
	}
	return s.repo.GetTask(ctx, taskID)
}

// DeleteTask deletes task.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.DeleteTask(ctx, taskID)
}

// ListTasks lists tasks column by column, top to bottom.
func (s *Service) ListTasks(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(tasks, func(a, b domain.Task) int {
		if c := cmp.Compare(a.Status.Index(), b.Status.Index()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return tasks, nil
}

// ListChangeEvents lists recent activity, optionally for one task.
func (s *Service) ListChangeEvents(ctx context.Context, taskID string, limit int) ([]domain.ChangeEvent, error) {
	return s.repo.ListChangeEvents(ctx, strings.TrimSpace(taskID), limit)
}

// diffTasks returns the tasks in next that differ from prev. The update may
// reorder the slice but must not add or drop tasks.
func diffTasks(prev, next []domain.Task) ([]domain.Task, error) {
	if len(prev) != len(next) {
		return nil, ErrInvalidUpdate
	}
	byID := make(map[string]domain.Task, len(prev))
	for _, task := range prev {
		byID[task.ID] = task
	}
	changed := make([]domain.Task, 0)
	for _, task := range next {
		before, ok := byID[task.ID]
		if !ok {
			return nil, ErrInvalidUpdate
		}
		delete(byID, task.ID)
		if taskChanged(before, task) {
			changed = append(changed, task)
		}
	}
	return changed, nil
}

// taskChanged reports whether any persisted field moved.
func taskChanged(prev, next domain.Task) bool {
	return prev.Status != next.Status ||
		prev.Order != next.Order ||
		prev.Title != next.Title ||
		len(prev.History) != len(next.History) ||
		!slices.Equal(prev.Assignees, next.Assignees)
}

func findTask(tasks []domain.Task, id string) (domain.Task, bool) {
	for _, task := range tasks {
		if task.ID == id {
			return task, true
		}
	}
	return domain.Task{}, false
}

// sanitizeColumns keeps one column per valid status in canonical order and fills gaps with defaults.
func sanitizeColumns(in []domain.Column) []domain.Column {
	byStatus := map[domain.Status]domain.Column{}
	for _, column := range in {
		normalized, err := domain.NewColumn(column.Status, column.Label, column.WIPLimit)
		if err != nil {
			continue
		}
		if _, seen := byStatus[normalized.Status]; !seen {
			byStatus[normalized.Status] = normalized
		}
	}
	out := make([]domain.Column, 0, len(domain.Statuses()))
	for _, fallback := range domain.DefaultColumns() {
		if column, ok := byStatus[fallback.Status]; ok {
			out = append(out, column)
			continue
		}
		out = append(out, fallback)
	}
	return out
}
