package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	uvbmcp "github.com/ajitpratap0/uvb/internal/mcp"
	"github.com/ajitpratap0/uvb/internal/registry"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

The server owns its own in-memory registry, with the same rate sampling and
idle reclamation as "uvb serve".

Tools exposed:
  register     register a new counter
  increment    increment a counter by one
  get          count and rate of one counter
  leaderboard  counters ranked by count, with the current leader`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			st := registry.NewStore()
			lm, err := newLifecycle(st, logger)
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() { _ = lm.Run(ctx) }()

			srv := uvbmcp.NewServer(st, logger)

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: uvb MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
