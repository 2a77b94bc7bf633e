// ABOUTME: Tests for the MCP tool handlers
// ABOUTME: Drives handlers with CallToolRequests against an in-memory store
package mcp

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/sisyph/mcoder/internal/llm"
	"github.com/sisyph/mcoder/internal/report"
	"github.com/sisyph/mcoder/internal/storage/sqlite"
)

type stubCompleter struct{ reply string }

func (s stubCompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	return s.reply, nil
}

func newTestHandlers(t *testing.T) (*Handlers, *sqlite.Storage) {
	t.Helper()
	store, err := sqlite.NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	exporter := report.NewExporter(store, t.TempDir())
	codegen := llm.NewCodeService(stubCompleter{reply: "```go\nfunc Add(a, b int) int { return a + b }\n```"}, []string{"m1"}, store)

	server := mcpserver.NewMCPServer("mcoder-test", "0.0.0")
	h := RegisterTools(server, store, Options{HistoryLimit: 10, Exporter: exporter, CodeService: codegen})
	return h, store
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if result == nil || len(result.Content) == 0 {
		t.Fatal("handler returned empty result")
	}
	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		return c.Text, result.IsError
	case *mcp.TextContent:
		return c.Text, result.IsError
	default:
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return "", false
}

func decode(t *testing.T, text string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("decode %q: %v", text, err)
	}
}

func createProject(t *testing.T, h *Handlers, name string) float64 {
	t.Helper()
	text, isErr := call(t, h.CreateProject, map[string]any{"name": name, "description": "test project"})
	if isErr {
		t.Fatalf("create_project failed: %s", text)
	}
	var out struct {
		ProjectID float64 `json:"project_id"`
	}
	decode(t, text, &out)
	return out.ProjectID
}

func TestCreateProject(t *testing.T) {
	h, _ := newTestHandlers(t)

	if id := createProject(t, h, "calculator"); id <= 0 {
		t.Errorf("project_id = %v, want > 0", id)
	}

	text, isErr := call(t, h.CreateProject, map[string]any{"name": "keylogger toolkit"})
	if !isErr {
		t.Fatal("flagged project should be rejected")
	}
	if !strings.Contains(text, "POLICY_VIOLATION") || !strings.Contains(text, "keylogger") {
		t.Errorf("error text = %q, want code and factor", text)
	}

	if _, isErr := call(t, h.CreateProject, map[string]any{}); !isErr {
		t.Error("missing name should be a tool error")
	}
}

func TestMessagesAndSearch(t *testing.T) {
	h, _ := newTestHandlers(t)
	id := createProject(t, h, "notes")

	for _, args := range []map[string]any{
		{"project_id": id, "content": "Parser handles unicode", "importance": float64(1)},
		{"project_id": id, "content": "UNICODE normalisation done", "importance": float64(3)},
		{"project_id": id, "content": "unrelated"},
	} {
		if text, isErr := call(t, h.AddMessage, args); isErr {
			t.Fatalf("add_message failed: %s", text)
		}
	}

	text, isErr := call(t, h.ProjectHistory, map[string]any{"project_id": id, "limit": float64(2)})
	if isErr {
		t.Fatalf("project_history failed: %s", text)
	}
	var history struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	decode(t, text, &history)
	if len(history.Messages) != 2 || history.Messages[0].Content != "unrelated" {
		t.Errorf("history = %+v, want 2 messages newest first", history.Messages)
	}

	text, _ = call(t, h.SearchMemory, map[string]any{"query": "unicode"})
	var search struct {
		Count    int `json:"count"`
		Messages []struct {
			Importance int `json:"importance"`
		} `json:"messages"`
	}
	decode(t, text, &search)
	if search.Count != 2 || search.Messages[0].Importance != 3 {
		t.Errorf("search = %+v, want 2 hits with importance 3 first", search)
	}
}

func TestAddMessage_UnknownProject(t *testing.T) {
	h, _ := newTestHandlers(t)

	text, isErr := call(t, h.AddMessage, map[string]any{"project_id": float64(404), "content": "hello"})
	if !isErr || !strings.Contains(text, "NOT_FOUND") {
		t.Errorf("got (%q, %v), want NOT_FOUND tool error", text, isErr)
	}
}

func TestModulesAndProgress(t *testing.T) {
	h, _ := newTestHandlers(t)
	id := createProject(t, h, "builder")

	for _, m := range []struct{ name, status string }{
		{"lexer", "done"},
		{"parser", "in_progress"},
	} {
		if text, isErr := call(t, h.SetModuleStatus, map[string]any{"project_id": id, "module_name": m.name, "status": m.status}); isErr {
			t.Fatalf("set_module_status failed: %s", text)
		}
	}

	text, _ := call(t, h.BuildProgress, map[string]any{"project_id": id})
	var progress struct {
		Progress float64 `json:"progress"`
	}
	decode(t, text, &progress)
	if progress.Progress != 50 {
		t.Errorf("progress = %v, want 50", progress.Progress)
	}

	text, _ = call(t, h.ListModules, map[string]any{"project_id": id})
	if !strings.Contains(text, "lexer") || !strings.Contains(text, "parser") {
		t.Errorf("list_modules = %s, want both modules", text)
	}

	text, _ = call(t, h.ProjectStatus, map[string]any{"project_id": id})
	if !strings.Contains(text, "builder") {
		t.Errorf("project_status = %s, want project name", text)
	}
}

func TestSystemModules(t *testing.T) {
	h, _ := newTestHandlers(t)

	call(t, h.SetSystemModuleStatus, map[string]any{"module_name": "indexer", "status": "starting"})
	call(t, h.SetSystemModuleStatus, map[string]any{"module_name": "indexer", "status": "running"})

	text, _ := call(t, h.SystemStatus, map[string]any{})
	var current struct {
		Modules []struct {
			Status string `json:"status"`
		} `json:"modules"`
	}
	decode(t, text, &current)
	if len(current.Modules) != 1 || current.Modules[0].Status != "running" {
		t.Errorf("system_status = %s, want one running module", text)
	}

	text, _ = call(t, h.SystemStatusHistory, map[string]any{"module_name": "indexer"})
	var history struct {
		History []struct {
			Status string `json:"status"`
		} `json:"history"`
	}
	decode(t, text, &history)
	if len(history.History) != 2 || history.History[0].Status != "running" {
		t.Errorf("history = %s, want 2 entries newest first", text)
	}
}

func TestSecurityEvents(t *testing.T) {
	h, _ := newTestHandlers(t)
	id := createProject(t, h, "ledger")
	call(t, h.AddMessage, map[string]any{"project_id": id, "content": "how does malware spread"})

	text, isErr := call(t, h.SecurityEvents, map[string]any{"limit": float64(10)})
	if isErr {
		t.Fatalf("security_events failed: %s", text)
	}
	var out struct {
		Events []struct {
			Action    string `json:"action"`
			RiskLevel string `json:"risk_level"`
		} `json:"events"`
	}
	decode(t, text, &out)
	if len(out.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(out.Events))
	}
	if out.Events[0].Action != sqlite.ActionAddMessage || out.Events[0].RiskLevel != "HIGH" {
		t.Errorf("latest event = %+v, want HIGH add_message", out.Events[0])
	}
}

func TestExportReport(t *testing.T) {
	h, _ := newTestHandlers(t)
	id := createProject(t, h, "exported")

	text, isErr := call(t, h.ExportReport, map[string]any{"project_id": id})
	if isErr {
		t.Fatalf("export_report failed: %s", text)
	}
	var result report.Result
	decode(t, text, &result)
	if _, err := os.Stat(result.TextPath); err != nil {
		t.Errorf("text report missing: %v", err)
	}

	if _, isErr := call(t, h.ExportReport, map[string]any{"project_id": float64(999)}); !isErr {
		t.Error("export of a missing project should fail")
	}
}

func TestGenerateCode(t *testing.T) {
	h, store := newTestHandlers(t)
	id := createProject(t, h, "codegen")

	text, isErr := call(t, h.GenerateCode, map[string]any{"project_id": id, "prompt": "add two ints"})
	if isErr {
		t.Fatalf("generate_code failed: %s", text)
	}
	var gen llm.Generation
	decode(t, text, &gen)
	if gen.Model != "m1" || !strings.Contains(gen.Code, "func Add") {
		t.Errorf("generation = %+v", gen)
	}

	messages, err := store.History(int64(id), 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(messages) != 2 {
		t.Errorf("messages = %d, want prompt and generated code", len(messages))
	}

	h.Shutdown()
}

func TestRegisterTools_WithoutOptionalServices(t *testing.T) {
	store, err := sqlite.NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory() error = %v", err)
	}
	defer store.Close()

	h := RegisterTools(mcpserver.NewMCPServer("mcoder-test", "0.0.0"), store, Options{})
	if h.historyLimit != 100 {
		t.Errorf("historyLimit = %d, want default 100", h.historyLimit)
	}

	text, isErr := call(t, h.GenerateCode, map[string]any{"project_id": float64(1), "prompt": "x"})
	if !isErr || !strings.Contains(text, "not configured") {
		t.Errorf("got (%q, %v), want not configured error", text, isErr)
	}
}
