// ABOUTME: CLI command to generate code into a project's message log
// ABOUTME: Tries each configured model in order and screens the result
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sisyph/mcoder/internal/llm"
)

var (
	generateProject int64
	generateModels  []string
)

// NewGenerateCmd creates the generate command
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate code for a project",
		Long: `Generate code with the configured OpenAI and Gemini models.

The prompt is stored as a user message, each model in MCODER_CODEGEN_MODELS
is tried in order until one answers, the code is screened by the classifier
and the result is stored as an assistant message of type "code".
Identical prompts are served from the content cache.

Models named gemini-* go to Gemini (GEMINI_API_KEY), all others to OpenAI
(OPENAI_API_KEY). A .env file in the working directory is read.
MCODER_CODEGEN_RPS caps model calls per second.

Examples:
  mcoder generate --project 1 "a Go function that reverses a string"
  mcoder generate --project 1 --models gemini-2.0-flash,gpt-4o-mini "fizzbuzz in Python"`,
		Args: cobra.ExactArgs(1),
		RunE: runGenerate,
	}

	cmd.Flags().Int64VarP(&generateProject, "project", "p", 0, "Project to record the exchange in (required)")
	cmd.Flags().StringSliceVar(&generateModels, "models", nil, "Model fallback chain (default from config)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if generateProject <= 0 {
		return fmt.Errorf("project must be positive, got %d", generateProject)
	}
	prompt := strings.TrimSpace(args[0])
	if prompt == "" {
		return fmt.Errorf("no prompt provided")
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	service, err := newCodeService(cmd.Context(), s, generateModels)
	if err != nil {
		return err
	}

	gen, err := service.GenerateForProject(cmd.Context(), s.store, generateProject, prompt)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), gen)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, gen.Code)
	if !quiet {
		source := gen.Model
		if gen.Cached {
			source += ", cached"
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "\n✓ Stored as message %d (%s, risk %s)\n", gen.Message.ID, source, gen.Verdict.RiskLevel)
	}
	return nil
}

// newCodeService builds the generation service from config. models overrides the configured chain.
// Each model is routed to OpenAI or Gemini by name; at least one provider key must be set.
func newCodeService(ctx context.Context, s *session, models []string) (*llm.CodeService, error) {
	oc := s.cfg.OpenAI
	gc := s.cfg.Gemini
	if oc.APIKey == "" && gc.APIKey == "" {
		return nil, fmt.Errorf("neither OPENAI_API_KEY nor GEMINI_API_KEY is set")
	}

	var openAI, gemini llm.Completer
	if oc.APIKey != "" {
		client, err := llm.NewOpenAIClientWithConfig(&llm.ClientConfig{
			APIKey:     oc.APIKey,
			BaseURL:    oc.BaseURL,
			Timeout:    oc.Timeout,
			MaxRetries: oc.MaxRetries,
			RetryDelay: oc.RetryDelay,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing OpenAI client: %w", err)
		}
		openAI = client
	}
	if gc.APIKey != "" {
		client, err := llm.NewGeminiClient(ctx, &llm.ClientConfig{
			APIKey:     gc.APIKey,
			BaseURL:    gc.BaseURL,
			Timeout:    oc.Timeout,
			MaxRetries: oc.MaxRetries,
			RetryDelay: oc.RetryDelay,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing Gemini client: %w", err)
		}
		gemini = client
	}

	router := llm.NewRouter(openAI, gemini)
	router.SetRateLimit(oc.RPS)

	chain := oc.Models
	if len(models) > 0 {
		chain = models
	}
	service := llm.NewCodeService(router, chain, s.store)
	service.SetLogger(s.logger)
	return service, nil
}
