package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	serveradapter "github.com/hylla/dragboard/internal/adapters/server"
	"github.com/hylla/dragboard/internal/config"
	"github.com/hylla/dragboard/internal/domain"
	"github.com/hylla/dragboard/internal/tui"
)

// TestMain sets deterministic environment defaults for CLI tests.
func TestMain(m *testing.M) {
	_ = os.Setenv("DRAGBOARD_DEV_MODE", "false")
	os.Exit(m.Run())
}

// fakeProgram represents fake program data used by this package.
type fakeProgram struct {
	runErr error
}

// Run runs the requested command flow.
func (f fakeProgram) Run() (tea.Model, error) {
	return nil, f.runErr
}

// boardArgs returns the storage flags pointing at a fresh temp workspace.
func boardArgs(t *testing.T) []string {
	t.Helper()
	tmp := t.TempDir()
	return []string{"--db", filepath.Join(tmp, "dragboard.db"), "--config", filepath.Join(tmp, "missing.toml")}
}

// runOK runs one command and returns its stdout.
func runOK(t *testing.T, args ...string) string {
	t.Helper()
	var out strings.Builder
	if err := run(context.Background(), args, &out, io.Discard); err != nil {
		t.Fatalf("run(%v) error = %v", args, err)
	}
	return out.String()
}

// TestRunVersion verifies behavior for the covered scenario.
func TestRunVersion(t *testing.T) {
	out := runOK(t, "--version")
	if !strings.Contains(out, "dragboard") || !strings.Contains(out, version) {
		t.Fatalf("expected version output, got %q", out)
	}
}

// TestRunStartsProgram verifies the root command builds the board model and runs it.
func TestRunStartsProgram(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })

	var started tea.Model
	programFactory = func(m tea.Model) program {
		started = m
		return fakeProgram{}
	}
	runOK(t, boardArgs(t)...)
	if _, ok := started.(tui.Model); !ok {
		t.Fatalf("expected tui.Model, got %T", started)
	}
}

// TestRunProgramError verifies program failures surface as errors.
func TestRunProgramError(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program { return fakeProgram{runErr: errors.New("boom")} }

	err := run(context.Background(), boardArgs(t), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "run tui program") {
		t.Fatalf("expected tui program error, got %v", err)
	}
}

// TestRunInvalidFlag verifies behavior for the covered scenario.
func TestRunInvalidFlag(t *testing.T) {
	err := run(context.Background(), []string{"--unknown-flag"}, io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected flag parse error")
	}
}

// TestRunUnknownCommand verifies behavior for the covered scenario.
func TestRunUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"unknown-command"}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

// TestRunAddListAndMove verifies the task commands share one board and commit path.
func TestRunAddListAndMove(t *testing.T) {
	base := boardArgs(t)
	firstID := strings.TrimSpace(runOK(t, append(base, "add", "Write", "docs", "--assignee", "alice")...))
	secondID := strings.TrimSpace(runOK(t, append(base, "add", "Fix login")...))
	if firstID == "" || secondID == "" || firstID == secondID {
		t.Fatalf("expected two distinct task ids, got %q and %q", firstID, secondID)
	}
	thirdID := strings.TrimSpace(runOK(t, append(base, "add", "Hotfix", "--after", firstID)...))

	listed := runOK(t, append(base, "tasks")...)
	for _, want := range []string{"ToDo", "Write docs", "@alice", "unassigned", firstID} {
		if !strings.Contains(listed, want) {
			t.Fatalf("tasks output missing %q:\n%s", want, listed)
		}
	}
	if strings.Index(listed, "Write docs") > strings.Index(listed, "Hotfix") || strings.Index(listed, "Hotfix") > strings.Index(listed, "Fix login") {
		t.Fatalf("expected Write docs, Hotfix, Fix login order:\n%s", listed)
	}

	moved := runOK(t, append(base, "move", firstID, thirdID, "--to", "done")...)
	if !strings.Contains(moved, "moved 2 to Done at 0") {
		t.Fatalf("unexpected move output %q", moved)
	}
	done := runOK(t, append(base, "tasks", "--status", "done")...)
	if !strings.Contains(done, "Write docs") || !strings.Contains(done, "Hotfix") || strings.Contains(done, "Fix login") {
		t.Fatalf("unexpected done listing:\n%s", done)
	}

	again := runOK(t, append(base, "move", secondID, "--to", "todo", "--index", "0")...)
	if !strings.Contains(again, "no change") {
		t.Fatalf("expected no change for a move in place, got %q", again)
	}
}

// TestRunTaskCommandErrors verifies argument and lookup failures.
func TestRunTaskCommandErrors(t *testing.T) {
	base := boardArgs(t)
	cases := [][]string{
		append(append([]string(nil), base...), "add"),
		append(append([]string(nil), base...), "add", "x", "--status", "blocked"),
		append(append([]string(nil), base...), "move", "missing", "--to", "done"),
		append(append([]string(nil), base...), "move", "missing"),
		append(append([]string(nil), base...), "tasks", "--status", "later"),
	}
	for _, args := range cases {
		if err := run(context.Background(), args, io.Discard, io.Discard); err == nil {
			t.Fatalf("run(%v) expected error", args[len(base):])
		}
	}
}

// TestRunServeUsesConfigDefaults verifies serve wiring without binding a port.
func TestRunServeUsesConfigDefaults(t *testing.T) {
	origRunner := serveCommandRunner
	t.Cleanup(func() { serveCommandRunner = origRunner })

	var (
		gotCfg  serveradapter.Config
		gotDeps serveradapter.Dependencies
	)
	serveCommandRunner = func(_ context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
		gotCfg = cfg
		gotDeps = deps
		return nil
	}

	runOK(t, append(boardArgs(t), "serve", "--mcp-endpoint", "/agent")...)
	if gotCfg.HTTPBind != "127.0.0.1:5437" || gotCfg.APIEndpoint != "/api/v1" || gotCfg.MCPEndpoint != "/agent" {
		t.Fatalf("unexpected serve config %#v", gotCfg)
	}
	if gotCfg.ServerName != "dragboard" || gotCfg.ServerVersion != version {
		t.Fatalf("unexpected server identity %#v", gotCfg)
	}
	if gotDeps.Board == nil || gotDeps.Drag == nil || gotDeps.Logger == nil {
		t.Fatalf("expected board, drag, and logger dependencies, got %#v", gotDeps)
	}
	if got := gotDeps.Board.Columns(); len(got) != 3 || got[1].Status != domain.StatusInProgress {
		t.Fatalf("unexpected served columns %#v", got)
	}

	serveCommandRunner = func(context.Context, serveradapter.Config, serveradapter.Dependencies) error {
		return errors.New("address in use")
	}
	err := run(context.Background(), append(boardArgs(t), "serve"), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "run serve command") {
		t.Fatalf("expected wrapped serve error, got %v", err)
	}
}

// TestRunConfigAndDBEnvOverrides verifies behavior for the covered scenario.
func TestRunConfigAndDBEnvOverrides(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "env.db")
	cfgPath := filepath.Join(tmp, "env.toml")
	cfgContent := "[database]\npath = \"/tmp/ignore-me.db\"\n\n[[board.columns]]\nstatus = \"todo\"\nlabel = \"Backlog\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("DRAGBOARD_CONFIG", cfgPath)
	t.Setenv("DRAGBOARD_DB_PATH", dbPath)

	runOK(t, "add", "Env task")
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected db created at env path, stat error %v", err)
	}
	if listed := runOK(t, "tasks"); !strings.Contains(listed, "Backlog") {
		t.Fatalf("expected configured column label, got:\n%s", listed)
	}
}

// TestRunPathsCommand verifies behavior for the covered scenario.
func TestRunPathsCommand(t *testing.T) {
	output := runOK(t, "--app", "dragx", "--dev", "paths")
	if !strings.Contains(output, "app: dragx") {
		t.Fatalf("expected app name in paths output, got %q", output)
	}
	if !strings.Contains(output, "dev_mode: true") {
		t.Fatalf("expected dev mode in paths output, got %q", output)
	}
	if !strings.Contains(output, "dragx-dev") {
		t.Fatalf("expected dev suffix in resolved paths, got %q", output)
	}
}

// TestParseBoolEnv verifies behavior for the covered scenario.
func TestParseBoolEnv(t *testing.T) {
	t.Setenv("DRAGBOARD_BOOL_TEST", "true")
	got, ok := parseBoolEnv("DRAGBOARD_BOOL_TEST")
	if !ok || !got {
		t.Fatalf("expected true bool env parse, got value=%t ok=%t", got, ok)
	}

	t.Setenv("DRAGBOARD_BOOL_TEST", "not-bool")
	if _, ok = parseBoolEnv("DRAGBOARD_BOOL_TEST"); ok {
		t.Fatal("expected invalid bool env to return ok=false")
	}
}

// TestRunTUIModeWritesRuntimeLogsToFileOnly verifies TUI runtime logs stay out of stderr and persist to the dev log file.
func TestRunTUIModeWritesRuntimeLogsToFileOnly(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program { return fakeProgram{} }

	workspace := t.TempDir()
	t.Chdir(workspace)

	dbPath := filepath.Join(workspace, "dragboard.db")
	cfgPath := filepath.Join(workspace, "config.toml")
	var stderr bytes.Buffer
	if err := run(context.Background(), []string{"--dev", "--db", dbPath, "--config", cfgPath}, io.Discard, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := strings.TrimSpace(stderr.String()); got != "" {
		t.Fatalf("expected no runtime stderr output in TUI mode, got %q", got)
	}

	logDir := filepath.Join(workspace, ".dragboard", "log")
	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	var logPath string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".log") {
			logPath = filepath.Join(logDir, entry.Name())
			break
		}
	}
	if logPath == "" {
		t.Fatalf("expected a .log file in %s", logDir)
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "starting tui program loop") {
		t.Fatalf("expected runtime log file to include TUI lifecycle entries, got %q", content)
	}
}

// TestWorkspaceRootFromUsesNearestMarker verifies workspace-root resolution behavior.
func TestWorkspaceRootFromUsesNearestMarker(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/test\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	nested := filepath.Join(root, "cmd", "dragboard")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if got := workspaceRootFrom(nested); filepath.Clean(got) != filepath.Clean(root) {
		t.Fatalf("expected workspace root %q, got %q", root, got)
	}
}

// TestDevLogFilePathResolvesAgainstWorkspaceRoot verifies relative log dirs anchor at workspace root.
func TestDevLogFilePathResolvesAgainstWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/test\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	nested := filepath.Join(root, "cmd", "dragboard")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	t.Chdir(nested)

	got, err := devLogFilePath("", "drag board", time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("devLogFilePath() error = %v", err)
	}
	normalize := func(p string) string {
		return strings.TrimPrefix(filepath.Clean(p), "/private")
	}
	want := filepath.Join(root, ".dragboard", "log", "drag-board-20260222.log")
	if normalize(got) != normalize(want) {
		t.Fatalf("devLogFilePath() = %q, want %q", got, want)
	}
	if stem := sanitizeLogFileStem(" / "); stem != "dragboard" {
		t.Fatalf("sanitizeLogFileStem() = %q, want dragboard", stem)
	}
}

// TestRunRejectsInvalidLoggingLevelFromConfig verifies behavior for the covered scenario.
func TestRunRejectsInvalidLoggingLevelFromConfig(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "dragboard.toml")
	if err := os.WriteFile(cfgPath, []byte("[logging]\nlevel = \"verbose\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	err := run(context.Background(), []string{"--db", filepath.Join(tmp, "dragboard.db"), "--config", cfgPath, "tasks"}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "invalid logging.level") {
		t.Fatalf("expected logging level validation error, got %v", err)
	}
}

// TestRuntimeLoggerCanMuteConsoleSink verifies console output can be suppressed while other sinks remain active.
func TestRuntimeLoggerCanMuteConsoleSink(t *testing.T) {
	var console bytes.Buffer
	cfg := config.Default("/tmp/dragboard.db").Logging

	logger, err := newRuntimeLogger(&console, "dragboard", false, cfg, func() time.Time {
		return time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC)
	})
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}

	logger.Info("before")
	logger.SetConsoleEnabled(false)
	logger.Warn("during")
	logger.SetConsoleEnabled(true)
	logger.Error("after")

	out := console.String()
	if !strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Fatalf("expected console log to include before and after, got %q", out)
	}
	if strings.Contains(out, "during") {
		t.Fatalf("expected muted console log to omit 'during', got %q", out)
	}
	if logger.DevLogPath() != "" || logger.Close() != nil {
		t.Fatal("expected no dev file sink outside dev mode")
	}
}

// TestRenderTaskTable verifies rows follow column and order position.
func TestRenderTaskTable(t *testing.T) {
	now := time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC)
	mk := func(id, title string, status domain.Status, order float64) domain.Task {
		task, err := domain.NewTask(domain.TaskInput{ID: id, Title: title, Status: status, Order: order}, now)
		if err != nil {
			t.Fatalf("NewTask() error = %v", err)
		}
		return task
	}
	tasks := []domain.Task{
		mk("t2", "Second", domain.StatusToDo, 1),
		mk("t3", "Shipped", domain.StatusDone, 0),
		mk("t1", "First", domain.StatusToDo, 0),
	}

	out := renderTaskTable(domain.DefaultColumns(), tasks, "")
	if strings.Index(out, "First") > strings.Index(out, "Second") || strings.Index(out, "Second") > strings.Index(out, "Shipped") {
		t.Fatalf("unexpected row order:\n%s", out)
	}
	filtered := renderTaskTable(domain.DefaultColumns(), tasks, domain.StatusDone)
	if strings.Contains(filtered, "First") || !strings.Contains(filtered, "Shipped") {
		t.Fatalf("unexpected filtered table:\n%s", filtered)
	}
}
