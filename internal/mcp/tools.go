// ABOUTME: MCP tool definitions and registration for the mcoder server
// ABOUTME: Declares JSON schemas for the project memory, tracker, ledger and report tools
package mcp

import (
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/sisyph/mcoder/internal/llm"
	"github.com/sisyph/mcoder/internal/report"
	"github.com/sisyph/mcoder/internal/storage/sqlite"
)

// Options configures the tool handlers
type Options struct {
	HistoryLimit int
	Exporter     *report.Exporter
	CodeService  *llm.CodeService
	Logger       *slog.Logger
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func projectIDProp() map[string]interface{} {
	return prop("number", "Project ID")
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, store *sqlite.Storage, opts Options) *Handlers {
	h := newHandlers(store, opts)

	server.AddTool(mcp.Tool{
		Name:        "create_project",
		Description: "Create a project. The name and description are screened; flagged content is rejected and logged.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name":        prop("string", "Project name"),
				"description": prop("string", "What the project is about"),
			},
			Required: []string{"name"},
		},
	}, h.CreateProject)

	server.AddTool(mcp.Tool{
		Name:        "add_message",
		Description: "Append a message to a project's log. Messages are always kept; flagged content is recorded in the security log.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id":   projectIDProp(),
				"sender":       prop("string", "Who wrote the message (default: user)"),
				"content":      prop("string", "Message text"),
				"message_type": prop("string", "Free-form type tag (default: text)"),
				"importance":   prop("number", "Search ranking weight, higher first (default: 1)"),
			},
			Required: []string{"project_id", "content"},
		},
	}, h.AddMessage)

	server.AddTool(mcp.Tool{
		Name:        "project_history",
		Description: "Get a project's messages, most recent first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": projectIDProp(),
				"limit":      prop("number", "Maximum number of messages"),
			},
			Required: []string{"project_id"},
		},
	}, h.ProjectHistory)

	server.AddTool(mcp.Tool{
		Name:        "search_memory",
		Description: "Case-insensitive substring search over messages, ranked by importance then recency.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query":      prop("string", "Text to look for"),
				"project_id": prop("number", "Limit the search to one project (optional)"),
			},
			Required: []string{"query"},
		},
	}, h.SearchMemory)

	server.AddTool(mcp.Tool{
		Name:        "project_status",
		Description: "Get a project's metadata with live message and file counts.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"project_id": projectIDProp()},
			Required:   []string{"project_id"},
		},
	}, h.ProjectStatus)

	server.AddTool(mcp.Tool{
		Name:        "build_progress",
		Description: "Percentage of a project's modules that are done.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"project_id": projectIDProp()},
			Required:   []string{"project_id"},
		},
	}, h.BuildProgress)

	server.AddTool(mcp.Tool{
		Name:        "set_module_status",
		Description: "Set the status of a project build module, overwriting the current row.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id":  projectIDProp(),
				"module_name": prop("string", "Module name, unique within the project"),
				"status":      prop("string", "e.g. not_started, in_progress, done, failed"),
				"log":         prop("string", "Optional log text"),
			},
			Required: []string{"project_id", "module_name", "status"},
		},
	}, h.SetModuleStatus)

	server.AddTool(mcp.Tool{
		Name:        "list_modules",
		Description: "List a project's build modules.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"project_id": projectIDProp()},
			Required:   []string{"project_id"},
		},
	}, h.ListModules)

	server.AddTool(mcp.Tool{
		Name:        "set_system_module_status",
		Description: "Set the status of a system module. Every call is also appended to the status history.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"module_name": prop("string", "Module name"),
				"status":      prop("string", "New status"),
				"log":         prop("string", "Optional log text"),
			},
			Required: []string{"module_name", "status"},
		},
	}, h.SetSystemModuleStatus)

	server.AddTool(mcp.Tool{
		Name:        "system_status",
		Description: "List the current status of every system module.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, h.SystemStatus)

	server.AddTool(mcp.Tool{
		Name:        "system_status_history",
		Description: "System module transitions, most recent first. Omit module_name for the global timeline.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"module_name": prop("string", "Module name (optional)"),
				"limit":       prop("number", "Maximum number of entries (default: 50)"),
			},
		},
	}, h.SystemStatusHistory)

	server.AddTool(mcp.Tool{
		Name:        "security_events",
		Description: "Recent security log entries, most recent first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": prop("number", "Maximum number of events (default: 50)"),
			},
		},
	}, h.SecurityEvents)

	if opts.Exporter != nil {
		server.AddTool(mcp.Tool{
			Name:        "export_report",
			Description: "Write a project report to disk and return the file paths.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{"project_id": projectIDProp()},
				Required:   []string{"project_id"},
			},
		}, h.ExportReport)
	}

	if opts.CodeService != nil {
		server.AddTool(mcp.Tool{
			Name:        "generate_code",
			Description: "Generate code for a prompt using the configured model chain and store it in the project log.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"project_id": projectIDProp(),
					"prompt":     prop("string", "What the code should do"),
				},
				Required: []string{"project_id", "prompt"},
			},
		}, h.GenerateCode)
	}

	return h
}

func newHandlers(store *sqlite.Storage, opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = 100
	}
	return &Handlers{
		storage:      store,
		exporter:     opts.Exporter,
		codegen:      opts.CodeService,
		historyLimit: limit,
		logger:       logger,
		inflight:     &sync.WaitGroup{},
	}
}
