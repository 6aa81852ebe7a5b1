package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	serveradapter "github.com/hylla/dragboard/internal/adapters/server"
	servercommon "github.com/hylla/dragboard/internal/adapters/server/common"
	"github.com/hylla/dragboard/internal/adapters/storage/sqlite"
	"github.com/hylla/dragboard/internal/app"
	"github.com/hylla/dragboard/internal/config"
	"github.com/hylla/dragboard/internal/domain"
	"github.com/hylla/dragboard/internal/platform"
	"github.com/hylla/dragboard/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version), fang.WithNotifySignal(os.Interrupt))
}

// newRootCommand builds the command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{appName: platform.DefaultAppName}
	if envApp := strings.TrimSpace(os.Getenv("DRAGBOARD_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("DRAGBOARD_DEV_MODE"); ok {
		defaultDevMode = envDev
	}

	root := &cobra.Command{
		Use:   "dragboard",
		Short: "A three-column kanban board with drag and drop reordering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts, stdout),
		newServeCommand(opts, stderr),
		newTasksCommand(opts, stdout, stderr),
		newAddCommand(opts, stdout, stderr),
		newMoveCommand(opts, stdout, stderr),
	)
	return root
}

// newPathsCommand prints the resolved config and data locations.
func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data, and database paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, _, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			return nil
		},
	}
}

// newServeCommand serves the HTTP API and MCP endpoints.
func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var (
		httpBind    string
		apiEndpoint string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRuntime(opts, stderr, false)
			if err != nil {
				return err
			}
			defer env.Close()

			serveCfg := serveradapter.Config{
				HTTPBind:      firstNonEmpty(httpBind, env.cfg.Server.HTTPBind),
				APIEndpoint:   firstNonEmpty(apiEndpoint, env.cfg.Server.APIEndpoint),
				MCPEndpoint:   firstNonEmpty(mcpEndpoint, env.cfg.Server.MCPEndpoint),
				ServerName:    opts.appName,
				ServerVersion: version,
			}
			appAdapter := servercommon.NewAppServiceAdapter(env.svc)
			env.logger.Info("command flow start", "command", "serve", "http", serveCfg.HTTPBind)
			if err := serveCommandRunner(cmd.Context(), serveCfg, serveradapter.Dependencies{
				Board:  appAdapter,
				Drag:   appAdapter,
				Logger: env.logger,
			}); err != nil {
				env.logger.Error("command flow failed", "command", "serve", "err", err)
				return fmt.Errorf("run serve command: %w", err)
			}
			env.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "HTTP API base endpoint (default from config)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint (default from config)")
	return cmd
}

// newTasksCommand prints the board as a table.
func newTasksCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var statusFilter string
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks in board order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter domain.Status
			if strings.TrimSpace(statusFilter) != "" {
				status, ok := domain.ParseStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				filter = status
			}

			env, err := openRuntime(opts, stderr, false)
			if err != nil {
				return err
			}
			defer env.Close()

			tasks, err := env.svc.ListTasks(cmd.Context())
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			_, err = fmt.Fprintln(stdout, renderTaskTable(env.svc.Columns(), tasks, filter))
			return err
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "only list tasks in this column (todo, progress, done)")
	return cmd
}

// newAddCommand creates one task.
func newAddCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		rawStatus string
		assignees []string
		afterID   string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := domain.ParseStatus(rawStatus)
			if !ok {
				return fmt.Errorf("unknown status %q", rawStatus)
			}
			env, err := openRuntime(opts, stderr, false)
			if err != nil {
				return err
			}
			defer env.Close()

			task, err := env.svc.CreateTask(cmd.Context(), app.CreateTaskInput{
				Title:       strings.Join(args, " "),
				Status:      status,
				Assignees:   assignees,
				AfterTaskID: afterID,
			})
			if err != nil {
				return fmt.Errorf("create task: %w", err)
			}
			env.logger.Info("task created", "task_id", task.ID, "status", task.Status)
			_, err = fmt.Fprintln(stdout, task.ID)
			return err
		},
	}
	cmd.Flags().StringVar(&rawStatus, "status", string(domain.StatusToDo), "column to create the task in")
	cmd.Flags().StringSliceVar(&assignees, "assignee", nil, "assignee name (repeatable)")
	cmd.Flags().StringVar(&afterID, "after", "", "place the task directly after this task id")
	return cmd
}

// newMoveCommand moves tasks through the same commit path as a drag.
func newMoveCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		rawStatus string
		index     int
	)
	cmd := &cobra.Command{
		Use:   "move <task-id>...",
		Short: "Move tasks into a column at an index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := domain.ParseStatus(rawStatus)
			if !ok {
				return fmt.Errorf("unknown status %q", rawStatus)
			}
			env, err := openRuntime(opts, stderr, false)
			if err != nil {
				return err
			}
			defer env.Close()

			if index < 0 {
				tasks, err := env.svc.ListTasks(cmd.Context())
				if err != nil {
					return fmt.Errorf("list tasks: %w", err)
				}
				index = countStatus(tasks, status)
			}
			out, err := env.svc.MoveTasks(cmd.Context(), app.MoveTasksInput{
				TaskIDs:  args,
				ToStatus: status,
				Index:    index,
			})
			if err != nil {
				return fmt.Errorf("move tasks: %w", err)
			}
			if !out.Changed {
				_, err = fmt.Fprintln(stdout, "no change")
				return err
			}
			env.logger.Info("tasks moved", "count", len(out.MovedIDs), "status", out.TargetStatus, "index", out.InsertIndex)
			_, err = fmt.Fprintf(stdout, "moved %d to %s at %d\n", len(out.MovedIDs), env.svc.Label(out.TargetStatus), out.InsertIndex)
			return err
		},
	}
	cmd.Flags().StringVar(&rawStatus, "to", "", "target column (todo, progress, done)")
	cmd.Flags().IntVar(&index, "index", -1, "insert index among the column's remaining tasks (default: end)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// runTUI opens the board in the terminal UI.
func runTUI(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	env, err := openRuntime(opts, stderr, true)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	m := tui.NewModel(
		env.svc,
		tui.WithClickCooldown(env.cfg.ClickCooldown()),
		tui.WithHoverFlush(env.cfg.FrameInterval()),
	)
	env.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		env.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	env.logger.Info("command flow complete", "command", "tui")
	return nil
}

// runtimeEnv bundles the resources one command flow needs.
type runtimeEnv struct {
	cfg    config.Config
	paths  platform.Paths
	logger *runtimeLogger
	repo   *sqlite.Repository
	svc    *app.Service
	stderr io.Writer
}

// resolvePaths resolves platform paths, then applies env and flag overrides.
func resolvePaths(opts *rootOptions) (platform.Paths, bool, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return platform.Paths{}, false, err
	}
	paths, dbOverridden := platform.ApplyEnv(paths, os.Getenv)
	if strings.TrimSpace(opts.configPath) != "" {
		paths.ConfigPath = opts.configPath
	}
	if strings.TrimSpace(opts.dbPath) != "" {
		paths.DBPath = opts.dbPath
		dbOverridden = true
	}
	return paths, dbOverridden, nil
}

// openRuntime loads config, configures logging, and opens storage. When
// quietConsole is set, runtime logs go to the dev file sink only.
func openRuntime(opts *rootOptions, stderr io.Writer, quietConsole bool) (*runtimeEnv, error) {
	paths, dbOverridden, err := resolvePaths(opts)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(paths.ConfigPath, config.Default(paths.DBPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", paths.ConfigPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = paths.DBPath
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if quietConsole {
		// Keep TUI rendering clean: runtime logs stay in the dev-file sink while the board is active.
		logger.SetConsoleEnabled(false)
	}
	env := &runtimeEnv{cfg: cfg, paths: paths, logger: logger, stderr: stderr}

	logger.Debug("runtime paths resolved", "config_path", paths.ConfigPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	logger.Info("configuration loaded", "config_path", paths.ConfigPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		env.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	env.repo = repo
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	env.svc = app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		Columns:       cfg.BoardColumns(),
		SystemAuthor:  cfg.Board.SystemAuthor,
		FrameInterval: cfg.FrameInterval(),
		Logger:        logger,
	})
	logger.Debug("application service initialized", "columns", len(cfg.Board.Columns), "frame_interval", cfg.FrameInterval())
	return env, nil
}

// Close releases storage and log sinks.
func (e *runtimeEnv) Close() {
	if e == nil {
		return
	}
	if e.repo != nil {
		if err := e.repo.Close(); err != nil {
			e.logger.Warn("sqlite close failed", "db_path", e.cfg.Database.Path, "err", err)
		}
	}
	if err := e.logger.Close(); err != nil && e.logger.shouldLogToSink(e.logger.consoleSink) {
		// Keep TUI shutdown quiet on the terminal when console logging is intentionally muted.
		_, _ = fmt.Fprintf(e.stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// countStatus counts tasks in one column.
func countStatus(tasks []domain.Task, status domain.Status) int {
	n := 0
	for _, task := range tasks {
		if task.Status == status {
			n++
		}
	}
	return n
}

// firstNonEmpty returns the first trimmed non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
