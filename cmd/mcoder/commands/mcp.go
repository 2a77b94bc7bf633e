// ABOUTME: MCP command starts the Model Context Protocol server
// ABOUTME: Exposes project memory to LLM agents over stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/sisyph/mcoder/internal/llm"
	"github.com/sisyph/mcoder/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs mcoder as an MCP (Model Context Protocol) server so agents can create
projects, log messages, track modules and export reports over stdio.
The generate_code tool is only offered when OPENAI_API_KEY or GEMINI_API_KEY is set.

Logs go to stderr; stdout carries the protocol.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically launched by the agent host)
  mcoder mcp

  # Agent host configuration:
  # {
  #   "mcpServers": {
  #     "mcoder": {
  #       "command": "mcoder",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var codegen *llm.CodeService
	if s.cfg.OpenAI.APIKey != "" || s.cfg.Gemini.APIKey != "" {
		codegen, err = newCodeService(cmd.Context(), s, nil)
		if err != nil {
			s.logger.Warn("code generation disabled", "err", err)
			codegen = nil
		}
	} else {
		s.logger.Info("no model provider key set, generate_code tool disabled")
	}

	server := mcpserver.NewMCPServer("mcoder", versionInfo.Version)

	handlers := mcp.RegisterTools(server, s.store, mcp.Options{
		HistoryLimit: s.cfg.HistoryLimit,
		Exporter:     newExporter(s),
		CodeService:  codegen,
		Logger:       s.logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := startPruner(ctx, s, nil); err != nil {
		return err
	}

	s.logger.Info("MCP server starting on stdio", "db", s.store.Path())

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining tool calls")
		handlers.Shutdown()
		s.logger.Info("shutdown complete")
	case err := <-serverErr:
		handlers.Shutdown()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
