// ABOUTME: Tests for the code generation service
// ABOUTME: Fallback order, caching, fence extraction and project log writes
package llm

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sisyph/mcoder/internal/storage/sqlite"
)

type scriptedCompleter struct {
	fail  map[string]bool
	calls []string
}

func (s *scriptedCompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	s.calls = append(s.calls, model)
	if s.fail[model] {
		return "", errors.New(model + " unavailable")
	}
	return "```go\n// " + model + "\nfunc main() {}\n```", nil
}

func TestGenerate_FallsBackInOrder(t *testing.T) {
	c := &scriptedCompleter{fail: map[string]bool{"first": true}}
	svc := NewCodeService(c, []string{"first", "second", "third"}, nil)

	gen, err := svc.Generate(context.Background(), "write main")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gen.Model != "second" {
		t.Errorf("Model = %q, want second", gen.Model)
	}
	if want := []string{"first", "second"}; !reflect.DeepEqual(c.calls, want) {
		t.Errorf("calls = %v, want %v", c.calls, want)
	}
	if gen.Code != "// second\nfunc main() {}" {
		t.Errorf("Code = %q", gen.Code)
	}
}

func TestGenerate_AllFail(t *testing.T) {
	c := &scriptedCompleter{fail: map[string]bool{"a": true, "b": true}}
	svc := NewCodeService(c, []string{"a", "b"}, nil)

	if _, err := svc.Generate(context.Background(), "x"); err == nil {
		t.Error("expected error when every model fails")
	}
	if _, err := NewCodeService(c, nil, nil).Generate(context.Background(), "x"); !errors.Is(err, ErrNoModels) {
		t.Errorf("Generate() with no models error = %v, want ErrNoModels", err)
	}
	if _, err := svc.Generate(context.Background(), "  "); err == nil {
		t.Error("expected error for blank prompt")
	}
}

func TestGenerate_UsesCache(t *testing.T) {
	store, err := sqlite.NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory() error = %v", err)
	}
	defer func() { _ = store.Close() }()

	c := &scriptedCompleter{}
	svc := NewCodeService(c, []string{"only"}, store)

	first, err := svc.Generate(context.Background(), "cache me")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, err := svc.Generate(context.Background(), "cache me")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !second.Cached || second.Code != first.Code {
		t.Errorf("second run = %+v, want cached copy of first", second)
	}
	if len(c.calls) != 1 {
		t.Errorf("completer calls = %d, want 1", len(c.calls))
	}
}

func TestGenerateForProject(t *testing.T) {
	store, err := sqlite.NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory() error = %v", err)
	}
	defer func() { _ = store.Close() }()

	id, err := store.CreateProject("gen", "generated code")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	svc := NewCodeService(&scriptedCompleter{}, []string{"m"}, nil)
	gen, err := svc.GenerateForProject(context.Background(), store, id, "write a main function")
	if err != nil {
		t.Fatalf("GenerateForProject() error = %v", err)
	}
	if !gen.Verdict.Accepted || gen.Message == nil {
		t.Errorf("gen = %+v", gen)
	}

	history, _ := store.History(id, 10)
	if len(history) != 2 {
		t.Fatalf("history = %d, want prompt and answer", len(history))
	}
	if history[0].Sender != "assistant" || history[0].MessageType != ContentTypeCode {
		t.Errorf("latest message = %+v, want assistant code", history[0])
	}

	events, _ := store.RecentSecurityEvents(1)
	if events[0].Action != sqlite.ActionAnalyzeCode {
		t.Errorf("latest ledger action = %s, want analyze_code", events[0].Action)
	}
}

func TestGenerateForProject_FailureKeepsPrompt(t *testing.T) {
	store, err := sqlite.NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory() error = %v", err)
	}
	defer func() { _ = store.Close() }()

	id, _ := store.CreateProject("gen", "generated code")
	svc := NewCodeService(&scriptedCompleter{fail: map[string]bool{"m": true}}, []string{"m"}, nil)

	if _, err := svc.GenerateForProject(context.Background(), store, id, "anything"); err == nil {
		t.Fatal("expected error")
	}
	history, _ := store.History(id, 10)
	if len(history) != 1 || history[0].Sender != "user" {
		t.Errorf("history = %+v, want only the prompt", history)
	}
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  x := 1  \n", "x := 1"},
		{"fenced", "Here:\n```go\nx := 1\n```\nbye", "x := 1"},
		{"no tag", "```\na\nb\n```", "a\nb"},
		{"unterminated", "```go\nx := 1", "```go\nx := 1"},
		{"single line fence", "```x```", "```x```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCode(tt.in); got != tt.want {
				t.Errorf("ExtractCode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

var _ ProjectLog = (*sqlite.Storage)(nil)
var _ Cache = (*sqlite.Storage)(nil)
