// ABOUTME: MCP tool handler implementations for the mcoder server
// ABOUTME: Store failures become tool errors carrying the error code, never protocol errors
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sisyph/mcoder/internal/errs"
	"github.com/sisyph/mcoder/internal/llm"
	"github.com/sisyph/mcoder/internal/models"
	"github.com/sisyph/mcoder/internal/report"
	"github.com/sisyph/mcoder/internal/storage/sqlite"
)

const defaultListLimit = 50

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	storage      *sqlite.Storage
	exporter     *report.Exporter
	codegen      *llm.CodeService
	historyLimit int
	logger       *slog.Logger
	inflight     *sync.WaitGroup // writes still running at shutdown
}

// CreateProject handles the create_project tool
func (h *Handlers) CreateProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name argument is required and must be a string"), nil
	}
	description := request.GetString("description", "")

	h.inflight.Add(1)
	defer h.inflight.Done()

	id, err := h.storage.CreateProject(name, description)
	if err != nil {
		return h.toolError("create_project", err), nil
	}
	return jsonResult(map[string]interface{}{"project_id": id})
}

// AddMessage handles the add_message tool
func (h *Handlers) AddMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireInt("project_id")
	if err != nil {
		return mcp.NewToolResultError("project_id argument is required and must be a number"), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content argument is required and must be a string"), nil
	}

	h.inflight.Add(1)
	defer h.inflight.Done()

	msg, err := h.storage.AddMessage(int64(projectID),
		request.GetString("sender", "user"),
		content,
		request.GetString("message_type", ""),
		request.GetInt("importance", models.DefaultImportance))
	if err != nil {
		return h.toolError("add_message", err), nil
	}
	return jsonResult(msg)
}

// ProjectHistory handles the project_history tool
func (h *Handlers) ProjectHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireInt("project_id")
	if err != nil {
		return mcp.NewToolResultError("project_id argument is required and must be a number"), nil
	}

	messages, err := h.storage.History(int64(projectID), request.GetInt("limit", h.historyLimit))
	if err != nil {
		return h.toolError("project_history", err), nil
	}
	return jsonResult(map[string]interface{}{"messages": messages})
}

// SearchMemory handles the search_memory tool
func (h *Handlers) SearchMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	messages, err := h.storage.SearchMessages(query, int64(request.GetInt("project_id", 0)))
	if err != nil {
		return h.toolError("search_memory", err), nil
	}
	return jsonResult(map[string]interface{}{"messages": messages, "count": len(messages)})
}

// ProjectStatus handles the project_status tool
func (h *Handlers) ProjectStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireInt("project_id")
	if err != nil {
		return mcp.NewToolResultError("project_id argument is required and must be a number"), nil
	}

	status, err := h.storage.GetProjectStatus(int64(projectID))
	if err != nil {
		return h.toolError("project_status", err), nil
	}
	return jsonResult(status)
}

// BuildProgress handles the build_progress tool
func (h *Handlers) BuildProgress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireInt("project_id")
	if err != nil {
		return mcp.NewToolResultError("project_id argument is required and must be a number"), nil
	}

	progress, err := h.storage.BuildProgress(int64(projectID))
	if err != nil {
		return h.toolError("build_progress", err), nil
	}
	return jsonResult(map[string]interface{}{"project_id": projectID, "progress": progress})
}

// SetModuleStatus handles the set_module_status tool
func (h *Handlers) SetModuleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireInt("project_id")
	if err != nil {
		return mcp.NewToolResultError("project_id argument is required and must be a number"), nil
	}
	name, err := request.RequireString("module_name")
	if err != nil {
		return mcp.NewToolResultError("module_name argument is required and must be a string"), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("status argument is required and must be a string"), nil
	}

	h.inflight.Add(1)
	defer h.inflight.Done()

	module, err := h.storage.SetModuleStatus(int64(projectID), name, status, request.GetString("log", ""))
	if err != nil {
		return h.toolError("set_module_status", err), nil
	}
	return jsonResult(module)
}

// ListModules handles the list_modules tool
func (h *Handlers) ListModules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireInt("project_id")
	if err != nil {
		return mcp.NewToolResultError("project_id argument is required and must be a number"), nil
	}

	modules, err := h.storage.ListModules(int64(projectID))
	if err != nil {
		return h.toolError("list_modules", err), nil
	}
	return jsonResult(map[string]interface{}{"modules": modules})
}

// SetSystemModuleStatus handles the set_system_module_status tool
func (h *Handlers) SetSystemModuleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("module_name")
	if err != nil {
		return mcp.NewToolResultError("module_name argument is required and must be a string"), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("status argument is required and must be a string"), nil
	}

	h.inflight.Add(1)
	defer h.inflight.Done()

	module, err := h.storage.SetSystemModuleStatus(name, status, request.GetString("log", ""))
	if err != nil {
		return h.toolError("set_system_module_status", err), nil
	}
	return jsonResult(module)
}

// SystemStatus handles the system_status tool
func (h *Handlers) SystemStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modules, err := h.storage.ListSystemModules()
	if err != nil {
		return h.toolError("system_status", err), nil
	}
	return jsonResult(map[string]interface{}{"modules": modules})
}

// SystemStatusHistory handles the system_status_history tool
func (h *Handlers) SystemStatusHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := h.storage.SystemStatusHistory(
		request.GetString("module_name", ""),
		request.GetInt("limit", defaultListLimit))
	if err != nil {
		return h.toolError("system_status_history", err), nil
	}
	return jsonResult(map[string]interface{}{"history": entries})
}

// SecurityEvents handles the security_events tool
func (h *Handlers) SecurityEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	events, err := h.storage.RecentSecurityEvents(request.GetInt("limit", defaultListLimit))
	if err != nil {
		return h.toolError("security_events", err), nil
	}
	return jsonResult(map[string]interface{}{"events": events})
}

// ExportReport handles the export_report tool
func (h *Handlers) ExportReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireInt("project_id")
	if err != nil {
		return mcp.NewToolResultError("project_id argument is required and must be a number"), nil
	}
	if h.exporter == nil {
		return mcp.NewToolResultError("report export is not configured"), nil
	}

	result, err := h.exporter.Export(int64(projectID))
	if err != nil {
		return h.toolError("export_report", err), nil
	}
	return jsonResult(result)
}

// GenerateCode handles the generate_code tool
func (h *Handlers) GenerateCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireInt("project_id")
	if err != nil {
		return mcp.NewToolResultError("project_id argument is required and must be a number"), nil
	}
	prompt, err := request.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError("prompt argument is required and must be a string"), nil
	}
	if h.codegen == nil {
		return mcp.NewToolResultError("code generation is not configured (set OPENAI_API_KEY)"), nil
	}

	h.inflight.Add(1)
	defer h.inflight.Done()

	gen, err := h.codegen.GenerateForProject(ctx, h.storage, int64(projectID), prompt)
	if err != nil {
		return h.toolError("generate_code", err), nil
	}
	return jsonResult(gen)
}

// Shutdown waits for in-flight writes to finish so the store can be closed safely
func (h *Handlers) Shutdown() {
	h.logger.Info("waiting for in-flight tool calls")
	h.inflight.Wait()
}

func (h *Handlers) toolError(tool string, err error) *mcp.CallToolResult {
	if errs.Is(err, errs.CodeStorageUnavailable) {
		h.logger.Error("tool failed", "tool", tool, "err", err)
	} else {
		h.logger.Debug("tool rejected", "tool", tool, "err", err)
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
