// Package mcp implements the Model Context Protocol server for uvb.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajitpratap0/uvb/internal/metrics"
	"github.com/ajitpratap0/uvb/internal/registry"
)

// defaultLeaderboardLimit is how many counters the leaderboard tool returns by default.
const defaultLeaderboardLimit = 10

// Server wraps an MCPServer with the counter registry.
type Server struct {
	mcp    *mcpserver.MCPServer
	st     *registry.Store
	logger *slog.Logger
}

// NewServer creates a new MCP server. If st is nil, tool calls return an
// error response instead of panicking.
func NewServer(st *registry.Store, logger *slog.Logger) *Server {
	s := &Server{
		st:     st,
		logger: logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"uvb",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildRegisterTool(), s.handleRegister)
	mcpSrv.AddTool(buildIncrementTool(), s.handleIncrement)
	mcpSrv.AddTool(buildGetTool(), s.handleGet)
	mcpSrv.AddTool(buildLeaderboardTool(), s.handleLeaderboard)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleRegister is the exported handler for the "register" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleRegister(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRegister(ctx, req)
}

// HandleIncrement is the exported handler for the "increment" tool.
func (s *Server) HandleIncrement(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleIncrement(ctx, req)
}

// HandleGet is the exported handler for the "get" tool.
func (s *Server) HandleGet(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGet(ctx, req)
}

// HandleLeaderboard is the exported handler for the "leaderboard" tool.
func (s *Server) HandleLeaderboard(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleLeaderboard(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// counterName extracts and validates the "name" argument. It accepts exactly
// the names the HTTP protocol can address as a single path segment.
func counterName(req mcpgo.CallToolRequest) (string, *mcpgo.CallToolResult) {
	name := req.GetString("name", "")
	if err := registry.ValidateName(name); err != nil {
		return "", mcpgo.NewToolResultError(err.Error())
	}
	return name, nil
}

// --- tool definitions ---

func buildRegisterTool() mcpgo.Tool {
	return mcpgo.NewTool("register",
		mcpgo.WithDescription("Register a new counter. Fails if the name is already registered."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The counter name"),
		),
	)
}

func buildIncrementTool() mcpgo.Tool {
	return mcpgo.NewTool("increment",
		mcpgo.WithDescription("Increment a registered counter by one."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The counter name"),
		),
	)
}

func buildGetTool() mcpgo.Tool {
	return mcpgo.NewTool("get",
		mcpgo.WithDescription("Get the count and current rate of a counter."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The counter name"),
		),
	)
}

func buildLeaderboardTool() mcpgo.Tool {
	return mcpgo.NewTool("leaderboard",
		mcpgo.WithDescription("List counters by count, highest first, with the current leader."),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Maximum number of counters (default: 10)"),
		),
	)
}

// --- tool handlers ---

func (s *Server) handleRegister(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}
	name, errResult := counterName(req)
	if errResult != nil {
		return errResult, nil
	}

	_, err := s.st.Register(name)
	switch {
	case errors.Is(err, registry.ErrAlreadyExists):
		metrics.RegisterTotal.WithLabelValues(metrics.OutcomeExists).Inc()
		return mcpgo.NewToolResultErrorf("counter %q already exists", name), nil
	case errors.Is(err, registry.ErrKeyCollision):
		metrics.RegisterTotal.WithLabelValues(metrics.OutcomeCollision).Inc()
		s.logger.Warn("mcp: counter name collides with a registered name", "name", name)
		return mcpgo.NewToolResultErrorf("counter name %q is unavailable", name), nil
	case err != nil:
		return mcpgo.NewToolResultErrorf("register failed: %s", err.Error()), nil
	}

	metrics.RegisterTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	metrics.LiveCounters.Inc()
	return toolResultJSON(map[string]any{"name": name, "registered": true})
}

func (s *Server) handleIncrement(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}
	name, errResult := counterName(req)
	if errResult != nil {
		return errResult, nil
	}

	count, err := s.st.Increment(name)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		metrics.IncrementTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return mcpgo.NewToolResultErrorf("counter %q not found", name), nil
	case errors.Is(err, registry.ErrOverflow):
		metrics.IncrementTotal.WithLabelValues(metrics.OutcomeOverflow).Inc()
		s.logger.Error("mcp: refusing increment that would overflow counter", "name", name)
		return mcpgo.NewToolResultErrorf("counter %q is at its maximum", name), nil
	case err != nil:
		return mcpgo.NewToolResultErrorf("increment failed: %s", err.Error()), nil
	}

	metrics.IncrementTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	return toolResultJSON(map[string]any{"name": name, "count": count})
}

func (s *Server) handleGet(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}
	name, errResult := counterName(req)
	if errResult != nil {
		return errResult, nil
	}

	e, err := s.st.Get(name)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return mcpgo.NewToolResultErrorf("counter %q not found", name), nil
		}
		return mcpgo.NewToolResultErrorf("get failed: %s", err.Error()), nil
	}
	return toolResultJSON(e)
}

// leaderboardResponse is returned by the leaderboard tool.
type leaderboardResponse struct {
	Leader   string           `json:"leader,omitempty"`
	Total    int              `json:"total"`
	Counters []registry.Entry `json:"counters"`
}

func (s *Server) handleLeaderboard(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}

	limit := int(req.GetFloat("limit", defaultLeaderboardLimit))
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	entries := s.st.Snapshot()
	resp := leaderboardResponse{Total: len(entries)}
	if leader, ok := registry.Leader(entries); ok {
		resp.Leader = leader.Name
	}

	ranked := registry.Rank(entries)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	resp.Counters = ranked
	return toolResultJSON(resp)
}
