// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/dragboard/internal/adapters/server/common"
	"github.com/hylla/dragboard/internal/domain"
	"github.com/hylla/dragboard/internal/reorder"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// defaultAgentID attributes MCP writes that do not name an actor.
const defaultAgentID = "mcp-agent"

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter with board tools and, when drag is set, remote drag tools.
func NewHandler(cfg Config, board common.BoardService, drag common.DragService) (*Handler, error) {
	if board == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerBoardTools(mcpSrv, board)
	if drag != nil {
		registerDragTools(mcpSrv, drag)
	}

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "dragboard"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerBoardTools registers list/create/move and change-feed tools.
func registerBoardTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"board.list_tasks",
			mcp.WithDescription("List board columns and every task in column order."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			tasks, err := board.ListTasks(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"columns": board.Columns(),
				"tasks":   tasks,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_tasks result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"board.create_task",
			mcp.WithDescription("Create one task at the end of a column, or directly below an anchor task."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("status", mcp.Description("Column id"), mcp.Enum(statusIDs()...)),
			mcp.WithArray("assignees", mcp.Description("Optional assignee names"), mcp.WithStringItems()),
			mcp.WithString("after_task_id", mcp.Description("Anchor task to insert below")),
			mcp.WithString("actor_id", mcp.Description("Agent name recorded in the change feed")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				Title       string   `json:"title"`
				Status      string   `json:"status"`
				Assignees   []string `json:"assignees"`
				AfterTaskID string   `json:"after_task_id"`
				ActorID     string   `json:"actor_id"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.Title) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "title" not found`), nil
			}
			task, err := board.CreateTask(ctx, common.CreateTaskRequest{
				Title:       args.Title,
				Status:      args.Status,
				Assignees:   args.Assignees,
				AfterTaskID: args.AfterTaskID,
				Actor:       agentActor(args.ActorID),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(task)
			if err != nil {
				return nil, fmt.Errorf("encode create_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"board.move_tasks",
			mcp.WithDescription("Move a block of tasks into one column at an index. Columns are renumbered densely."),
			mcp.WithArray("task_ids", mcp.Required(), mcp.Description("Tasks to move, kept in board order"), mcp.WithStringItems()),
			mcp.WithString("to_status", mcp.Required(), mcp.Description("Destination column id or label")),
			mcp.WithNumber("index", mcp.Description("Destination index among the remaining tasks; clamped")),
			mcp.WithString("actor_id", mcp.Description("Agent name recorded in the change feed")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				TaskIDs  []string `json:"task_ids"`
				ToStatus string   `json:"to_status"`
				Index    int      `json:"index"`
				ActorID  string   `json:"actor_id"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if len(args.TaskIDs) == 0 {
				return mcp.NewToolResultError(`invalid_request: required argument "task_ids" not found`), nil
			}
			out, err := board.MoveTasks(ctx, common.MoveTasksRequest{
				TaskIDs:  args.TaskIDs,
				ToStatus: args.ToStatus,
				Index:    args.Index,
				Actor:    agentActor(args.ActorID),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode move_tasks result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"board.list_changes",
			mcp.WithDescription("List recent board change events, newest first."),
			mcp.WithString("task_id", mcp.Description("Optional task filter")),
			mcp.WithNumber("limit", mcp.Description("Maximum rows to return")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			events, err := board.ListChangeEvents(ctx, req.GetString("task_id", ""), req.GetInt("limit", 25))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"events": events})
			if err != nil {
				return nil, fmt.Errorf("encode list_changes result: %w", err)
			}
			return result, nil
		},
	)
}

// registerDragTools registers the remote drag lifecycle tools.
func registerDragTools(srv *mcpserver.MCPServer, drag common.DragService) {
	srv.AddTool(
		mcp.NewTool(
			"board.drag_start",
			mcp.WithDescription("Pick up a task. When selected_ids includes the task, the whole selection moves as a block."),
			mcp.WithString("active_id", mcp.Required(), mcp.Description("Task being dragged")),
			mcp.WithArray("selected_ids", mcp.Description("Multi-select set"), mcp.WithStringItems()),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				ActiveID    string   `json:"active_id"`
				SelectedIDs []string `json:"selected_ids"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			state, err := drag.StartDrag(ctx, common.DragStartRequest{
				ActiveID:    args.ActiveID,
				SelectedIDs: args.SelectedIDs,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return dragStateResult(state)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"board.drag_over",
			mcp.WithDescription("Hover the dragged task over a task, a column, or placeholder:<column>. Returns the placeholder."),
			mcp.WithString("over_id", mcp.Required(), mcp.Description("Hovered task id, column id, or placeholder sentinel")),
			mcp.WithNumber("pointer_y", mcp.Description("Pointer Y, used with over_top and over_height to pick above or below")),
			mcp.WithNumber("over_top", mcp.Description("Top edge of the hovered task")),
			mcp.WithNumber("over_height", mcp.Description("Height of the hovered task")),
			mcp.WithNumber("over_index", mcp.Description("Hovered task's index in its column")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				OverID     string   `json:"over_id"`
				PointerY   *float64 `json:"pointer_y"`
				OverTop    *float64 `json:"over_top"`
				OverHeight *float64 `json:"over_height"`
				OverIndex  *int     `json:"over_index"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			in := common.DragOverRequest{OverID: args.OverID}
			if args.PointerY != nil && args.OverTop != nil && args.OverHeight != nil {
				in.Pointer = &reorder.Point{Y: *args.PointerY}
				in.OverRect = &reorder.Rect{Y: *args.OverTop, Height: *args.OverHeight}
			}
			if args.OverIndex != nil {
				in.Hints = &reorder.IndexHints{ActiveIndex: -1, OverIndex: *args.OverIndex}
			}
			state, err := drag.OverDrag(ctx, in)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return dragStateResult(state)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"board.drag_end",
			mcp.WithDescription("Drop the dragged task. Omitting over_id drops outside the board and cancels."),
			mcp.WithString("over_id", mcp.Description("Drop target: task id, column id, or placeholder sentinel")),
			mcp.WithString("actor_id", mcp.Description("Agent name recorded in the change feed")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			out, err := drag.EndDrag(ctx, common.DragEndRequest{
				OverID: req.GetString("over_id", ""),
				Actor:  agentActor(req.GetString("actor_id", "")),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode drag_end result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"board.drag_cancel",
			mcp.WithDescription("Abandon the active drag without changing the board."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return dragStateResult(drag.CancelDrag(ctx))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"board.placeholder",
			mcp.WithDescription("Return the active drag's phase and the placeholder gap to draw."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return dragStateResult(drag.DragState(ctx))
		},
	)
}

// dragStateResult encodes one drag state snapshot.
func dragStateResult(state common.DragState) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(state)
	if err != nil {
		return nil, fmt.Errorf("encode drag state: %w", err)
	}
	return result, nil
}

// agentActor attributes one MCP write to an agent.
func agentActor(actorID string) common.Actor {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		actorID = defaultAgentID
	}
	return common.Actor{ActorID: actorID, ActorType: string(domain.ActorTypeAgent)}
}

// statusIDs lists accepted status ids for tool schemas.
func statusIDs() []string {
	out := make([]string, 0, len(domain.Statuses()))
	for _, status := range domain.Statuses() {
		out = append(out, string(status))
	}
	return out
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrNotDragging):
		return mcp.NewToolResultError("not_dragging: " + err.Error())
	case errors.Is(err, common.ErrDragConflict):
		return mcp.NewToolResultError("drag_in_progress: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}

// invalidRequestToolResult wraps argument-binding failures as deterministic tool errors.
func invalidRequestToolResult(err error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultError("invalid_request: malformed arguments")
	}
	return mcp.NewToolResultError("invalid_request: " + err.Error())
}
