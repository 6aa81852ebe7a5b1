package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hylla/dragboard/internal/app"
	"github.com/hylla/dragboard/internal/domain"
	"github.com/hylla/dragboard/internal/reorder"
)

// Service represents service data used by this package.
type Service interface {
	Columns() []domain.Column
	ListTasks(context.Context) ([]domain.Task, error)
	CreateTask(context.Context, app.CreateTaskInput) (domain.Task, error)
	DeleteTask(context.Context, string) error
	ListChangeEvents(context.Context, string, int) ([]domain.ChangeEvent, error)
	NewSession(reorder.SelectionSource, reorder.PlaceholderSink) (*reorder.Session, error)
}

// inputMode represents a selectable mode.
type inputMode int

const (
	modeNone inputMode = iota
	modeAddTask
)

const (
	detailPaneLines = 12
	activityLimit   = 8
)

// Model represents model data used by this package.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	err    error

	status string

	help  help.Model
	keys  keyMap
	input textinput.Model
	mode  inputMode

	columns        []domain.Column
	tasks          []domain.Task
	selectedColumn int
	selectedTask   int

	selection   *reorder.Selection
	placeholder *reorder.PlaceholderCell
	session     *reorder.Session

	dragging        bool
	dropPending     bool
	dragPointer     bool
	dragOutside     bool
	dragActiveID    string
	dragSource      domain.Status
	dragOriginIndex int
	movingIDs       []string
	kbColumn        int
	kbIndex         int
	lastHover       *reorder.HoverEvent
	flushPending    bool
	pressTaskID     string

	detailOpen         bool
	activity           []domain.ChangeEvent
	activityTaskID     string
	markdown           *markdownRenderer
	pendingFocusTaskID string

	clickCooldown time.Duration
	hoverFlush    time.Duration
	copyText      func(string) error
	now           func() time.Time
}

// loadedMsg carries message data through update handling.
type loadedMsg struct {
	columns []domain.Column
	tasks   []domain.Task
	err     error
}

// actionMsg carries message data through update handling.
type actionMsg struct {
	err         error
	status      string
	reload      bool
	focusTaskID string
}

// dropMsg reports the result of committing a drag.
type dropMsg struct {
	activeID string
	outcome  reorder.Outcome
	err      error
}

// activityLoadedMsg carries recent change events for the focused task.
type activityLoadedMsg struct {
	taskID string
	events []domain.ChangeEvent
	err    error
}

// hoverFlushMsg re-sends the last hover so a throttled one is not lost.
type hoverFlushMsg struct{}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	input := textinput.New()
	input.Prompt = "title: "
	input.Placeholder = "what needs doing"
	input.CharLimit = 200
	inputStyles := input.Styles()
	inputStyles.Cursor.Blink = false
	input.SetStyles(inputStyles)
	m := Model{
		svc:           svc,
		status:        "loading...",
		help:          h,
		keys:          newKeyMap(),
		input:         input,
		selection:     reorder.NewSelection(),
		placeholder:   &reorder.PlaceholderCell{},
		markdown:      &markdownRenderer{},
		clickCooldown: 250 * time.Millisecond,
		hoverFlush:    reorder.DefaultFrameInterval,
		copyText:      defaultClipboard,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.columns = msg.columns
		m.tasks = msg.tasks
		if !m.dragging && !m.dropPending {
			m.selection.Retain(m.tasks)
		}
		if m.pendingFocusTaskID != "" {
			m.focusTaskByID(m.pendingFocusTaskID)
			m.pendingFocusTaskID = ""
		}
		m.clampSelections()
		if m.status == "" || m.status == "loading..." {
			m.status = "ready"
		}
		if m.detailOpen {
			cmd := m.loadActivity()
			return m, cmd
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.focusTaskID != "" {
			m.pendingFocusTaskID = msg.focusTaskID
		}
		if msg.reload {
			return m, m.loadData
		}
		return m, nil

	case dropMsg:
		m.dropPending = false
		m.pendingFocusTaskID = msg.activeID
		switch {
		case msg.err != nil:
			m.status = "drop failed: " + msg.err.Error()
		case !msg.outcome.Changed:
			m.status = "no change"
		default:
			m.status = fmt.Sprintf("moved %d to %s", len(msg.outcome.MovedIDs), m.columnLabel(msg.outcome.TargetStatus))
		}
		return m, m.loadData

	case activityLoadedMsg:
		if msg.taskID != m.activityTaskID {
			return m, nil
		}
		if msg.err != nil {
			m.status = "activity: " + msg.err.Error()
			return m, nil
		}
		m.activity = msg.events
		return m, nil

	case hoverFlushMsg:
		m.flushPending = false
		if m.dragging && m.lastHover != nil && m.session != nil {
			_ = m.session.Over(*m.lastHover)
		}
		return m, nil

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		if m.dragging {
			return m.handleDragKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	default:
		return m, nil
	}
}

// loadData loads required data for the current operation.
func (m Model) loadData() tea.Msg {
	tasks, err := m.svc.ListTasks(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{
		columns: m.svc.Columns(),
		tasks:   tasks,
	}
}

// loadActivity loads the focused task's recent change events.
func (m *Model) loadActivity() tea.Cmd {
	task, ok := m.focusedTask()
	if !ok {
		m.activityTaskID = ""
		m.activity = nil
		return nil
	}
	if m.activityTaskID != task.ID {
		m.activity = nil
	}
	m.activityTaskID = task.ID
	svc := m.svc
	taskID := task.ID
	return func() tea.Msg {
		events, err := svc.ListChangeEvents(context.Background(), taskID, activityLimit)
		return activityLoadedMsg{taskID: taskID, events: events, err: err}
	}
}

// handleNormalModeKey handles normal mode key.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		if m.help.ShowAll {
			m.status = "help"
		} else {
			m.status = "ready"
		}
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		if m.help.ShowAll {
			m.help.ShowAll = false
			m.status = "ready"
			return m, nil
		}
		if count := m.selection.Len(); count > 0 {
			m.selection.Clear()
			m.status = fmt.Sprintf("cleared %d selected tasks", count)
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	}
	if m.dropPending {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.moveLeft):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.selectedTask = 0
		}
		cmd := m.refreshDetail()
		return m, cmd
	case key.Matches(msg, m.keys.moveRight):
		if m.selectedColumn < len(m.columns)-1 {
			m.selectedColumn++
			m.selectedTask = 0
		}
		cmd := m.refreshDetail()
		return m, cmd
	case key.Matches(msg, m.keys.moveDown):
		tasks := m.currentColumnTasks()
		if len(tasks) > 0 && m.selectedTask < len(tasks)-1 {
			m.selectedTask++
		}
		cmd := m.refreshDetail()
		return m, cmd
	case key.Matches(msg, m.keys.moveUp):
		if m.selectedTask > 0 {
			m.selectedTask--
		}
		cmd := m.refreshDetail()
		return m, cmd
	case key.Matches(msg, m.keys.toggleSelect):
		task, ok := m.focusedTask()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		if m.selection.Toggle(task.ID) {
			m.status = fmt.Sprintf("selected %q (%d)", truncate(task.Title, 24), m.selection.Len())
		} else {
			m.status = fmt.Sprintf("unselected %q (%d)", truncate(task.Title, 24), m.selection.Len())
		}
		return m, nil
	case key.Matches(msg, m.keys.grab):
		task, ok := m.focusedTask()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		if err := m.beginDrag(task.ID, false); err != nil {
			m.status = "grab failed: " + err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("dragging %d • hjkl move • enter drop • esc cancel", len(m.movingIDs))
		return m, nil
	case key.Matches(msg, m.keys.addTask):
		cmd := m.startAddTask()
		return m, cmd
	case key.Matches(msg, m.keys.deleteTask):
		task, ok := m.focusedTask()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		m.selection.Remove(task.ID)
		return m, m.deleteTaskCmd(task)
	case key.Matches(msg, m.keys.taskInfo):
		m.detailOpen = !m.detailOpen
		if !m.detailOpen {
			return m, nil
		}
		cmd := m.loadActivity()
		return m, cmd
	case key.Matches(msg, m.keys.copyID):
		task, ok := m.focusedTask()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		if err := m.copyText(task.ID); err != nil {
			m.status = "copy failed: " + err.Error()
			return m, nil
		}
		m.status = "copied " + task.ID
		return m, nil
	default:
		return m, nil
	}
}

// handleDragKey moves the drop gap with the keyboard while a drag is active.
func (m Model) handleDragKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.cancelDrag()
		return m, tea.Quit
	case key.Matches(msg, m.keys.cancel):
		m.cancelDrag()
		m.status = "drag cancelled"
		return m, nil
	case key.Matches(msg, m.keys.drop):
		return m.drop(false)
	}
	if m.dragPointer {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.moveLeft):
		if m.kbColumn == 0 {
			return m, nil
		}
		m.kbColumn--
	case key.Matches(msg, m.keys.moveRight):
		if m.kbColumn >= len(m.columns)-1 {
			return m, nil
		}
		m.kbColumn++
	case key.Matches(msg, m.keys.moveUp):
		if m.kbIndex == 0 {
			return m, nil
		}
		m.kbIndex--
	case key.Matches(msg, m.keys.moveDown):
		m.kbIndex++
	default:
		return m, nil
	}
	status := m.columns[m.kbColumn].Status
	m.kbIndex = clamp(m.kbIndex, 0, len(m.stationaryTasks(status)))
	cmd := m.sendHover(m.keyboardHover())
	return m, cmd
}

// handleInputModeKey handles input mode key.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.input.Blur()
		m.status = "cancelled"
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.input.Value())
		if title == "" {
			m.status = "title required"
			return m, nil
		}
		m.mode = modeNone
		m.input.Blur()
		return m, m.createTaskCmd(title)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startAddTask opens the new-task prompt for the focused column.
func (m *Model) startAddTask() tea.Cmd {
	if len(m.columns) == 0 {
		m.status = "no columns"
		return nil
	}
	m.mode = modeAddTask
	m.input.SetValue("")
	m.status = "new task in " + m.columns[m.selectedColumn].Label
	return m.input.Focus()
}

// createTaskCmd creates a task below the focused card, or at the end of an empty column.
func (m Model) createTaskCmd(title string) tea.Cmd {
	in := app.CreateTaskInput{
		Title:  title,
		Status: m.columns[m.selectedColumn].Status,
	}
	if task, ok := m.focusedTask(); ok {
		in.AfterTaskID = task.ID
	}
	svc := m.svc
	return func() tea.Msg {
		task, err := svc.CreateTask(context.Background(), in)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "created " + truncate(task.Title, 32), reload: true, focusTaskID: task.ID}
	}
}

// deleteTaskCmd deletes one task.
func (m Model) deleteTaskCmd(task domain.Task) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if err := svc.DeleteTask(context.Background(), task.ID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "deleted " + truncate(task.Title, 32), reload: true}
	}
}

// ensureSession creates the drag session on first use.
func (m *Model) ensureSession() (*reorder.Session, error) {
	if m.session != nil {
		return m.session, nil
	}
	if m.svc == nil {
		return nil, errors.New("board service is not configured")
	}
	session, err := m.svc.NewSession(m.selection, m.placeholder)
	if err != nil {
		return nil, err
	}
	m.session = session
	return session, nil
}

// beginDrag starts a drag of taskID. Pointer drags follow the mouse; the rest
// follow hjkl.
func (m *Model) beginDrag(taskID string, pointer bool) error {
	session, err := m.ensureSession()
	if err != nil {
		return err
	}
	if err := session.Start(context.Background(), reorder.StartEvent{ActiveID: taskID}); err != nil {
		return err
	}
	proj := session.Projection()
	m.dragging = true
	m.dragPointer = pointer
	m.dragOutside = false
	m.dragActiveID = taskID
	m.dragSource = proj.SourceStatus
	m.movingIDs = proj.MovingIDs
	m.lastHover = nil
	m.pressTaskID = ""

	column := reorder.ColumnTasks(m.tasks, proj.SourceStatus, nil)
	m.dragOriginIndex = reorder.IndexOf(column, taskID)
	m.kbColumn = max(m.columnIndex(proj.SourceStatus), 0)
	m.kbIndex = 0
	for _, task := range column[:max(m.dragOriginIndex, 0)] {
		if !m.isMoving(task.ID) {
			m.kbIndex++
		}
	}
	return nil
}

// keyboardHover builds the hover for the keyboard cursor position.
func (m Model) keyboardHover() reorder.HoverEvent {
	status := m.columns[m.kbColumn].Status
	stationary := m.stationaryTasks(status)
	ev := reorder.HoverEvent{ActiveID: m.dragActiveID}
	if m.kbIndex < len(stationary) {
		ev.Over = reorder.TaskTarget(stationary[m.kbIndex].ID)
		ev.Hints = &reorder.IndexHints{ActiveIndex: m.dragOriginIndex, OverIndex: m.kbIndex}
		return ev
	}
	ev.Over = reorder.ColumnTarget(status)
	return ev
}

// pointerHover builds the hover for the cell under the mouse. ok is false outside every column.
func (m Model) pointerHover(x, y int) (reorder.HoverEvent, bool) {
	hit, ok := m.hitTest(x, y)
	if !ok {
		return reorder.HoverEvent{}, false
	}
	ev := reorder.HoverEvent{
		ActiveID: m.dragActiveID,
		Pointer:  &reorder.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5},
	}
	row, onRow := hit.overRow()
	switch {
	case onRow && row.kind == rowPlaceholder:
		ev.Over = reorder.PlaceholderTarget(hit.status)
	case onRow:
		ev.Over = reorder.TaskTarget(row.task.ID)
		rect := hit.rect
		ev.OverRect = &rect
		if hit.status == m.dragSource {
			over := row.index
			if ev.Pointer.Y > rect.MidY() {
				over++
			}
			ev.Hints = &reorder.IndexHints{ActiveIndex: m.dragOriginIndex, OverIndex: over}
		}
	default:
		ev.Over = reorder.ColumnTarget(hit.status)
	}
	return ev, true
}

// sendHover forwards one hover to the session.
func (m *Model) sendHover(ev reorder.HoverEvent) tea.Cmd {
	if err := m.session.Over(ev); err != nil {
		m.status = "hover: " + err.Error()
		return nil
	}
	held := ev
	m.lastHover = &held
	if m.hoverFlush <= 0 || m.flushPending {
		return nil
	}
	m.flushPending = true
	return tea.Tick(m.hoverFlush, func(time.Time) tea.Msg {
		return hoverFlushMsg{}
	})
}

// drop ends the drag. Dropping outside the board cancels it.
func (m Model) drop(outside bool) (tea.Model, tea.Cmd) {
	ev := reorder.DropEvent{ActiveID: m.dragActiveID}
	if !outside {
		status := m.dragSource
		if ph := m.placeholder.Current(); ph != nil {
			status = ph.Status
		}
		ev.Over = reorder.PlaceholderTarget(status)
	}
	session := m.session
	m.resetDrag()
	m.dropPending = true
	m.status = "dropping..."
	return m, func() tea.Msg {
		out, err := session.End(context.Background(), ev)
		return dropMsg{activeID: ev.ActiveID, outcome: out, err: err}
	}
}

// cancelDrag abandons the active drag.
func (m *Model) cancelDrag() {
	if m.session != nil && m.dragging {
		m.session.Cancel()
	}
	m.resetDrag()
}

// resetDrag clears model-side drag state.
func (m *Model) resetDrag() {
	m.dragging = false
	m.dragPointer = false
	m.dragOutside = false
	m.dragActiveID = ""
	m.dragSource = ""
	m.movingIDs = nil
	m.lastHover = nil
	m.pressTaskID = ""
}

// handleMouseWheel handles mouse wheel.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll || m.mode != modeNone || m.dragging {
		return m, nil
	}
	tasks := m.currentColumnTasks()
	if len(tasks) == 0 {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		if m.selectedTask > 0 {
			m.selectedTask--
		}
	case tea.MouseWheelDown:
		if m.selectedTask < len(tasks)-1 {
			m.selectedTask++
		}
	}
	cmd := m.refreshDetail()
	return m, cmd
}

// handleMouseClick focuses the card under the pointer and arms a drag.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll || m.mode != modeNone || m.dragging || m.dropPending {
		return m, nil
	}
	if msg.Button != tea.MouseLeft {
		return m, nil
	}
	if m.session != nil && m.session.RecentlyInteracted(m.now(), m.clickCooldown) {
		return m, nil
	}
	hit, ok := m.hitTest(msg.X, msg.Y)
	if !ok {
		return m, nil
	}
	m.selectedColumn = hit.column
	if row, onRow := hit.overRow(); onRow && row.kind == rowCard {
		m.selectedTask = row.index
		m.pressTaskID = row.task.ID
	}
	m.clampSelections()
	cmd := m.refreshDetail()
	return m, cmd
}

// handleMouseMotion starts a pending drag and tracks the pointer during one.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.pressTaskID != "" && !m.dragging {
		if err := m.beginDrag(m.pressTaskID, true); err != nil {
			m.pressTaskID = ""
			m.status = "drag failed: " + err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("dragging %d • release to drop", len(m.movingIDs))
	}
	if !m.dragging || !m.dragPointer {
		return m, nil
	}
	ev, inside := m.pointerHover(msg.X, msg.Y)
	m.dragOutside = !inside
	if !inside {
		return m, nil
	}
	cmd := m.sendHover(ev)
	return m, cmd
}

// handleMouseRelease drops a pointer drag.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	m.pressTaskID = ""
	if !m.dragging || !m.dragPointer {
		return m, nil
	}
	if _, inside := m.hitTest(msg.X, msg.Y); !inside {
		m.dragOutside = true
	}
	return m.drop(m.dragOutside)
}

// refreshDetail reloads activity when the detail pane is open.
func (m *Model) refreshDetail() tea.Cmd {
	if !m.detailOpen {
		return nil
	}
	return m.loadActivity()
}

// clampSelections clamps selections.
func (m *Model) clampSelections() {
	if len(m.columns) == 0 {
		m.selectedColumn = 0
		m.selectedTask = 0
		return
	}
	m.selectedColumn = clamp(m.selectedColumn, 0, len(m.columns)-1)
	colTasks := m.currentColumnTasks()
	if len(colTasks) == 0 {
		m.selectedTask = 0
		return
	}
	m.selectedTask = clamp(m.selectedTask, 0, len(colTasks)-1)
}

// currentColumnTasks returns the focused column's tasks in display order.
func (m Model) currentColumnTasks() []domain.Task {
	if len(m.columns) == 0 {
		return nil
	}
	idx := clamp(m.selectedColumn, 0, len(m.columns)-1)
	return reorder.ColumnTasks(m.tasks, m.columns[idx].Status, nil)
}

// focusedTask returns the task under the cursor.
func (m Model) focusedTask() (domain.Task, bool) {
	tasks := m.currentColumnTasks()
	if len(tasks) == 0 {
		return domain.Task{}, false
	}
	return tasks[clamp(m.selectedTask, 0, len(tasks)-1)], true
}

// focusTaskByID moves the cursor to taskID.
func (m *Model) focusTaskByID(taskID string) bool {
	task, ok := m.taskByID(taskID)
	if !ok {
		return false
	}
	col := m.columnIndex(task.Status)
	if col < 0 {
		return false
	}
	m.selectedColumn = col
	m.selectedTask = max(reorder.IndexOf(reorder.ColumnTasks(m.tasks, task.Status, nil), taskID), 0)
	return true
}

// taskByID returns task by id.
func (m Model) taskByID(taskID string) (domain.Task, bool) {
	for _, task := range m.tasks {
		if task.ID == taskID {
			return task, true
		}
	}
	return domain.Task{}, false
}

// columnIndex returns the position of status on the board, or -1.
func (m Model) columnIndex(status domain.Status) int {
	for idx, column := range m.columns {
		if column.Status == status {
			return idx
		}
	}
	return -1
}

// columnLabel returns the configured label for status.
func (m Model) columnLabel(status domain.Status) string {
	if idx := m.columnIndex(status); idx >= 0 {
		return m.columns[idx].Label
	}
	return status.Label()
}

// isMoving reports whether taskID travels with the active drag.
func (m Model) isMoving(taskID string) bool {
	for _, id := range m.movingIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

// isMarked reports whether taskID is multi-selected. The selection is owned by
// the drop command while one is in flight.
func (m Model) isMarked(taskID string) bool {
	if m.dropPending {
		return false
	}
	return m.selection.IsSelected(taskID)
}

// View handles view.
func (m Model) View() tea.View {
	return newView(m.renderContent())
}

// renderContent renders the full screen as text.
func (m Model) renderContent() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	}
	if !m.ready {
		return "loading..."
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render("dragboard")
	switch {
	case m.dragging:
		header += statusStyle.Render(fmt.Sprintf("  [dragging %d]", len(m.movingIDs)))
	case m.dropPending:
		header += statusStyle.Render("  [dropping]")
	default:
		header += statusStyle.Render("  [board]")
	}
	if count := m.selection.Len(); count > 0 && !m.dropPending {
		header += statusStyle.Render(fmt.Sprintf("  selected: %d", count))
	}

	board := m.renderBoard(accent, muted, dim)
	sections := []string{header, "", board}
	if m.mode == modeAddTask {
		sections = append(sections, m.input.View())
	}
	if m.detailOpen {
		sections = append(sections, m.renderTaskDetails(accent, muted, dim))
	}
	if s := strings.TrimSpace(m.status); s != "" && s != "ready" {
		sections = append(sections, statusStyle.Render(s))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	return content + "\n" + helpLine
}

// newView wraps content with the board's terminal modes.
func newView(content string) tea.View {
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// renderBoard renders every column side by side.
func (m Model) renderBoard(accent, muted, dim color.Color) string {
	if len(m.columns) == 0 {
		return lipgloss.NewStyle().Foreground(muted).Render("no columns configured")
	}
	colWidth := m.columnWidth()
	colHeight := m.columnHeight()
	innerWidth := max(1, colWidth-6)
	baseColStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(1, 2).
		MarginRight(columnMargin).
		Width(colWidth).
		Height(colHeight)
	selColStyle := baseColStyle.BorderForeground(accent)
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	selectedTaskStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	markedTaskStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("237")).Bold(true)
	itemSubStyle := lipgloss.NewStyle().Foreground(muted)
	gapStyle := lipgloss.NewStyle().Foreground(accent).Faint(true)

	focused, hasFocus := m.focusedTask()
	views := make([]string, 0, len(m.columns))
	for colIdx, column := range m.columns {
		count := len(reorder.ColumnTasks(m.tasks, column.Status, nil))
		title := fmt.Sprintf("%s (%d)", column.Label, count)
		if column.WIPLimit > 0 {
			title = fmt.Sprintf("%s (%d/%d)", column.Label, count, column.WIPLimit)
		}
		lines := []string{colTitle.Render(truncate(title, innerWidth)), ""}
		for _, row := range m.columnRows(column.Status) {
			if row.kind == rowPlaceholder {
				if len(row.ghosts) == 0 {
					lines = append(lines, gapStyle.Render(strings.Repeat("┄", innerWidth)))
					continue
				}
				for _, ghost := range row.ghosts {
					lines = append(lines, gapStyle.Render(truncate("┆ "+ghost.Title, innerWidth)))
				}
				continue
			}
			task := row.task
			prefix := "  "
			if m.isMarked(task.ID) {
				prefix = "• "
			}
			titleLine := truncate(prefix+task.Title, innerWidth)
			isFocused := hasFocus && !m.dragging && task.ID == focused.ID
			switch {
			case isFocused:
				titleLine = selectedTaskStyle.Render(titleLine)
			case m.isMarked(task.ID):
				titleLine = markedTaskStyle.Render(titleLine)
			}
			lines = append(lines, titleLine, itemSubStyle.Render(truncate("  "+taskMeta(task), innerWidth)))
		}
		body := fitLines(strings.Join(lines, "\n"), max(1, colHeight-4))
		style := baseColStyle
		if (!m.dragging && colIdx == m.selectedColumn) || (m.dragging && !m.dragPointer && colIdx == m.kbColumn) {
			style = selColStyle
		}
		views = append(views, style.Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// taskMeta renders the secondary card line.
func taskMeta(task domain.Task) string {
	if len(task.Assignees) == 0 {
		return "unassigned"
	}
	return "@" + strings.Join(task.Assignees, " @")
}

// renderTaskDetails renders the focused task with its history as markdown.
func (m Model) renderTaskDetails(accent, muted, dim color.Color) string {
	task, ok := m.focusedTask()
	if !ok {
		return lipgloss.NewStyle().Foreground(muted).Render("no task selected")
	}
	width := max(24, m.width-2)
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render("Task Details"),
		task.Title,
		lipgloss.NewStyle().Foreground(muted).Render(fmt.Sprintf("%s  •  %s  •  %s", m.columnLabel(task.Status), taskMeta(task), task.ID)),
	}
	if rendered := m.markdown.renderDetail(task, m.activityFor(task.ID), m.columnLabel, width-4); rendered != "" {
		lines = append(lines, rendered)
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		Width(width)
	return style.Render(fitLines(strings.Join(lines, "\n"), detailPaneLines-2))
}

// activityFor returns loaded change events when they belong to taskID.
func (m Model) activityFor(taskID string) []domain.ChangeEvent {
	if m.activityTaskID != taskID {
		return nil
	}
	return m.activity
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
