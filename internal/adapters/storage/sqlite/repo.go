package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/dragboard/internal/app"
	"github.com/hylla/dragboard/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// defaultChangeEventLimit caps change-event listings when callers pass no limit.
const defaultChangeEventLimit = 50

// errHistoryRewrite reports an attempt to shrink a task's append-only history.
var errHistoryRewrite = errors.New("task history is append-only")

// Repository stores board tasks, their history, and the change-event ledger.
type Repository struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path, creating parent directories.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'todo',
			sort_order REAL NOT NULL DEFAULT 0,
			assignees_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS task_history (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			author TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE(task_id, seq),
			FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			actor_type TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status_order ON tasks(status, sort_order);`,
		`CREATE INDEX IF NOT EXISTS idx_task_history_task_seq ON task_history(task_id, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_task_created_at ON change_events(task_id, created_at DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateTask creates task.
func (r *Repository) CreateTask(ctx context.Context, t domain.Task) error {
	assigneesJSON, err := json.Marshal(nonNilStrings(t.Assignees))
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks(id, title, status, sort_order, assignees_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID,
		t.Title,
		string(t.Status),
		t.Order,
		string(assigneesJSON),
		ts(t.CreatedAt),
		ts(t.UpdatedAt),
	)
	if err != nil {
		return err
	}
	if err = insertHistory(ctx, tx, t.ID, 0, t.History); err != nil {
		return err
	}

	actor := app.ActorOrDefault(ctx)
	err = insertTaskChangeEvent(ctx, tx, domain.ChangeEvent{
		TaskID:    t.ID,
		Operation: domain.ChangeOperationCreate,
		ActorID:   actor.ActorID,
		ActorType: actor.ActorType,
		Metadata: map[string]string{
			"status": string(t.Status),
			"order":  formatOrder(t.Order),
			"title":  t.Title,
		},
		OccurredAt: t.CreatedAt,
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// SaveTasks writes every task in one transaction. History entries beyond the
// stored count are appended; a shorter history is rejected.
func (r *Repository) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	actor := app.ActorOrDefault(ctx)
	for _, t := range tasks {
		if err = saveTask(ctx, tx, t, actor); err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

// saveTask updates one row inside tx and records its change event.
func saveTask(ctx context.Context, tx *sql.Tx, t domain.Task, actor app.MutationActor) error {
	prev, err := getTaskByID(ctx, tx, t.ID)
	if err != nil {
		return err
	}
	if len(t.History) < len(prev.History) {
		return fmt.Errorf("save task %s: %w", t.ID, errHistoryRewrite)
	}
	assigneesJSON, err := json.Marshal(nonNilStrings(t.Assignees))
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, status = ?, sort_order = ?, assignees_json = ?, updated_at = ?
		WHERE id = ?
	`,
		t.Title,
		string(t.Status),
		t.Order,
		string(assigneesJSON),
		ts(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		return err
	}
	if err := translateNoRows(res); err != nil {
		return err
	}
	if err := insertHistory(ctx, tx, t.ID, len(prev.History), t.History[len(prev.History):]); err != nil {
		return err
	}

	op, metadata := classifyTaskTransition(prev, t)
	return insertTaskChangeEvent(ctx, tx, domain.ChangeEvent{
		TaskID:     t.ID,
		Operation:  op,
		ActorID:    actor.ActorID,
		ActorType:  actor.ActorType,
		Metadata:   metadata,
		OccurredAt: t.UpdatedAt,
	})
}

// GetTask returns task.
func (r *Repository) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return getTaskByID(ctx, r.db, id)
}

// ListTasks lists every task with its history.
func (r *Repository) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, status, sort_order, assignees_json, created_at, updated_at
		FROM tasks
		ORDER BY status ASC, sort_order ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	out := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, task)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	history, err := listHistory(ctx, r.db, "")
	if err != nil {
		return nil, err
	}
	for idx := range out {
		if events, ok := history[out[idx].ID]; ok {
			out[idx].History = events
		}
	}
	return out, nil
}

// DeleteTask deletes task.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	task, err := getTaskByID(ctx, tx, id)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}
	// SQLite only cascades when foreign_keys is on for this connection.
	if _, err = tx.ExecContext(ctx, `DELETE FROM task_history WHERE task_id = ?`, id); err != nil {
		return err
	}

	actor := app.ActorOrDefault(ctx)
	err = insertTaskChangeEvent(ctx, tx, domain.ChangeEvent{
		TaskID:    task.ID,
		Operation: domain.ChangeOperationDelete,
		ActorID:   actor.ActorID,
		ActorType: actor.ActorType,
		Metadata: map[string]string{
			"status": string(task.Status),
			"order":  formatOrder(task.Order),
			"title":  task.Title,
		},
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// ListChangeEvents lists recent change events, newest first. An empty taskID lists the whole board.
func (r *Repository) ListChangeEvents(ctx context.Context, taskID string, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = defaultChangeEventLimit
	}
	query := `
		SELECT id, task_id, operation, actor_id, actor_type, metadata_json, created_at
		FROM change_events
	`
	args := []any{}
	if taskID = strings.TrimSpace(taskID); taskID != "" {
		query += ` WHERE task_id = ?`
		args = append(args, taskID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event       domain.ChangeEvent
			opRaw       string
			actorType   string
			metadataRaw string
			createdRaw  string
		)
		if err := rows.Scan(&event.ID, &event.TaskID, &opRaw, &event.ActorID, &actorType, &metadataRaw, &createdRaw); err != nil {
			return nil, err
		}
		event.Operation = normalizeChangeOperation(opRaw)
		event.ActorType = normalizeActorType(domain.ActorType(actorType))
		event.OccurredAt = parseTS(createdRaw)
		if strings.TrimSpace(metadataRaw) == "" {
			metadataRaw = "{}"
		}
		if err := json.Unmarshal([]byte(metadataRaw), &event.Metadata); err != nil {
			return nil, fmt.Errorf("decode change_events.metadata_json: %w", err)
		}
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// queryer represents a read-only DB contract used by DB and Tx implementations.
type queryer interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}

// getTaskByID returns a task and its history.
func getTaskByID(ctx context.Context, q queryer, id string) (domain.Task, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, title, status, sort_order, assignees_json, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`, id)
	task, err := scanTask(row)
	if err != nil {
		return domain.Task{}, err
	}
	history, err := listHistory(ctx, q, id)
	if err != nil {
		return domain.Task{}, err
	}
	if events, ok := history[id]; ok {
		task.History = events
	}
	return task, nil
}

// listHistory loads history grouped by task id, oldest first. An empty taskID loads every task.
func listHistory(ctx context.Context, q queryer, taskID string) (map[string][]domain.HistoryEvent, error) {
	query := `SELECT task_id, id, type, content, author, created_at FROM task_history`
	args := []any{}
	if taskID != "" {
		query += ` WHERE task_id = ?`
		args = append(args, taskID)
	}
	query += ` ORDER BY task_id ASC, seq ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]domain.HistoryEvent{}
	for rows.Next() {
		var (
			owner      string
			event      domain.HistoryEvent
			typeRaw    string
			createdRaw string
		)
		if err := rows.Scan(&owner, &event.ID, &typeRaw, &event.Content, &event.Author, &createdRaw); err != nil {
			return nil, err
		}
		event.Type = domain.HistoryType(typeRaw)
		event.Timestamp = parseTS(createdRaw)
		out[owner] = append(out[owner], event)
	}
	return out, rows.Err()
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// insertHistory appends events to a task's history starting at sequence number from.
func insertHistory(ctx context.Context, execer execerContext, taskID string, from int, events []domain.HistoryEvent) error {
	for offset, event := range events {
		_, err := execer.ExecContext(ctx, `
			INSERT INTO task_history(id, task_id, seq, type, content, author, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			event.ID,
			taskID,
			from+offset,
			string(event.Type),
			event.Content,
			event.Author,
			ts(normalizeEventTS(event.Timestamp)),
		)
		if err != nil {
			return fmt.Errorf("insert task history: %w", err)
		}
	}
	return nil
}

// insertTaskChangeEvent inserts a change-event ledger record.
func insertTaskChangeEvent(ctx context.Context, execer execerContext, event domain.ChangeEvent) error {
	metadataJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("encode change event metadata: %w", err)
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO change_events(task_id, operation, actor_id, actor_type, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		event.TaskID,
		string(event.Operation),
		chooseActorID(event.ActorID),
		string(normalizeActorType(event.ActorType)),
		string(metadataJSON),
		ts(normalizeEventTS(event.OccurredAt)),
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// classifyTaskTransition derives the best operation category and metadata for a task update.
func classifyTaskTransition(prev, next domain.Task) (domain.ChangeOperation, map[string]string) {
	if prev.Status != next.Status {
		return domain.ChangeOperationMove, map[string]string{
			"from_status": string(prev.Status),
			"to_status":   string(next.Status),
			"from_order":  formatOrder(prev.Order),
			"to_order":    formatOrder(next.Order),
		}
	}
	if prev.Order != next.Order {
		return domain.ChangeOperationReorder, map[string]string{
			"status":     string(next.Status),
			"from_order": formatOrder(prev.Order),
			"to_order":   formatOrder(next.Order),
		}
	}
	fields := changedTaskFields(prev, next)
	metadata := map[string]string{}
	if len(fields) > 0 {
		metadata["changed_fields"] = strings.Join(fields, ",")
	}
	return domain.ChangeOperationUpdate, metadata
}

// changedTaskFields identifies a deterministic set of meaningful changes for metadata.
func changedTaskFields(prev, next domain.Task) []string {
	changed := make([]string, 0)
	if prev.Title != next.Title {
		changed = append(changed, "title")
	}
	if !equalStringSlices(prev.Assignees, next.Assignees) {
		changed = append(changed, "assignees")
	}
	if len(prev.History) != len(next.History) {
		changed = append(changed, "history")
	}
	return changed
}

// equalStringSlices compares string slices by value and order.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// chooseActorID returns the first non-empty actor id or the default local actor.
func chooseActorID(candidates ...string) string {
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" {
			return candidate
		}
	}
	return app.DefaultActorID
}

// normalizeActorType applies a default when actor type is unset or unsupported.
func normalizeActorType(actorType domain.ActorType) domain.ActorType {
	switch strings.TrimSpace(strings.ToLower(string(actorType))) {
	case string(domain.ActorTypeUser):
		return domain.ActorTypeUser
	case string(domain.ActorTypeAgent):
		return domain.ActorTypeAgent
	case string(domain.ActorTypeSystem):
		return domain.ActorTypeSystem
	default:
		return domain.ActorTypeUser
	}
}

// normalizeChangeOperation canonicalizes persisted operation values.
func normalizeChangeOperation(raw string) domain.ChangeOperation {
	raw = strings.TrimSpace(strings.ToLower(raw))
	switch raw {
	case string(domain.ChangeOperationCreate):
		return domain.ChangeOperationCreate
	case string(domain.ChangeOperationMove):
		return domain.ChangeOperationMove
	case string(domain.ChangeOperationReorder):
		return domain.ChangeOperationReorder
	case string(domain.ChangeOperationDelete):
		return domain.ChangeOperationDelete
	default:
		return domain.ChangeOperationUpdate
	}
}

// normalizeEventTS ensures event timestamps are always populated and UTC-normalized.
func normalizeEventTS(in time.Time) time.Time {
	if in.IsZero() {
		return time.Now().UTC()
	}
	return in.UTC()
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanTask handles scan task.
func scanTask(s scanner) (domain.Task, error) {
	var (
		t            domain.Task
		status       string
		assigneesRaw string
		createdRaw   string
		updatedRaw   string
	)
	if err := s.Scan(&t.ID, &t.Title, &status, &t.Order, &assigneesRaw, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, app.ErrNotFound
		}
		return domain.Task{}, err
	}
	t.Status = domain.Status(status)
	if !t.Status.Valid() {
		t.Status = domain.StatusToDo
	}
	if strings.TrimSpace(assigneesRaw) == "" {
		assigneesRaw = "[]"
	}
	if err := json.Unmarshal([]byte(assigneesRaw), &t.Assignees); err != nil {
		return domain.Task{}, fmt.Errorf("decode assignees_json: %w", err)
	}
	t.History = []domain.HistoryEvent{}
	t.CreatedAt = parseTS(createdRaw)
	t.UpdatedAt = parseTS(updatedRaw)
	return t, nil
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// nonNilStrings keeps JSON encoding as [] rather than null.
func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// formatOrder renders an order key without trailing zeros.
func formatOrder(order float64) string {
	return strconv.FormatFloat(order, 'f', -1, 64)
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
