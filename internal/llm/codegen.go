// ABOUTME: Code generation service with an ordered model fallback chain and a content cache
// ABOUTME: Generated code is screened and recorded in a project's message log
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sisyph/mcoder/internal/models"
)

// ContentTypeCode tags cached and stored generated code
const ContentTypeCode = "code"

// Completer produces a completion for a prompt with a named model
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Cache stores generated content keyed by an arbitrary string
type Cache interface {
	CacheGet(key string) (*models.CacheEntry, error)
	CachePut(key, content, contentType string) error
}

// ProjectLog is the part of the store a generation run writes to
type ProjectLog interface {
	AddMessage(projectID int64, sender, content, messageType string, importance int) (*models.Message, error)
	AnalyzeContent(action, content, kind string) (models.Verdict, error)
}

// ErrNoModels is returned when the fallback chain is empty
var ErrNoModels = errors.New("no code generation models configured")

// Generation is the outcome of one generation run
type Generation struct {
	Model   string          `json:"model"`
	Code    string          `json:"code"`
	Cached  bool            `json:"cached"`
	Verdict models.Verdict  `json:"verdict"`
	Message *models.Message `json:"message,omitempty"`
}

// CodeService tries each model in order until one returns code
type CodeService struct {
	completer Completer
	models    []string
	cache     Cache
	logger    *slog.Logger
}

// NewCodeService creates a service over the given fallback chain. cache may be nil.
func NewCodeService(completer Completer, modelChain []string, cache Cache) *CodeService {
	return &CodeService{
		completer: completer,
		models:    append([]string(nil), modelChain...),
		cache:     cache,
		logger:    slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the operational logger
func (s *CodeService) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Generate returns code for prompt from the first model that succeeds
func (s *CodeService) Generate(ctx context.Context, prompt string) (*Generation, error) {
	if len(s.models) == 0 {
		return nil, ErrNoModels
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt cannot be empty")
	}

	key := s.cacheKey(prompt)
	if s.cache != nil {
		entry, err := s.cache.CacheGet(key)
		if err != nil {
			s.logger.Warn("cache lookup failed", "err", err)
		} else if entry != nil {
			return &Generation{Model: "cache", Code: entry.Content, Cached: true}, nil
		}
	}

	var errs []error
	for _, model := range s.models {
		raw, err := s.completer.Complete(ctx, model, prompt)
		if err != nil {
			s.logger.Warn("model failed, trying next", "model", model, "err", err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		code := ExtractCode(raw)
		if s.cache != nil {
			if err := s.cache.CachePut(key, code, ContentTypeCode); err != nil {
				s.logger.Warn("cache store failed", "err", err)
			}
		}
		return &Generation{Model: model, Code: code}, nil
	}

	return nil, fmt.Errorf("all models failed: %w", errors.Join(errs...))
}

// GenerateForProject records prompt as a user message, generates code, screens it and
// stores it as an assistant message. A failed generation leaves only the user message.
func (s *CodeService) GenerateForProject(ctx context.Context, log ProjectLog, projectID int64, prompt string) (*Generation, error) {
	if _, err := log.AddMessage(projectID, "user", prompt, models.DefaultMessageType, models.DefaultImportance); err != nil {
		return nil, err
	}

	gen, err := s.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	verdict, err := log.AnalyzeContent("analyze_code", gen.Code, ContentTypeCode)
	if err != nil {
		return nil, err
	}
	gen.Verdict = verdict

	msg, err := log.AddMessage(projectID, "assistant", gen.Code, ContentTypeCode, 2)
	if err != nil {
		return nil, err
	}
	gen.Message = msg
	return gen, nil
}

func (s *CodeService) cacheKey(prompt string) string {
	return "codegen:" + strings.Join(s.models, ",") + ":" + prompt
}

// ExtractCode returns the body of the first fenced block in text, or the trimmed text
// when there is no complete fence
func ExtractCode(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return strings.TrimSpace(text)
	}
	rest := text[start+3:]
	// skip the language tag line
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return strings.TrimSpace(text)
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return strings.TrimSpace(text)
	}
	return strings.TrimRight(rest[:end], "\n")
}
