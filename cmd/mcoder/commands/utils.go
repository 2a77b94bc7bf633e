// ABOUTME: Shared runtime setup and output helpers for CLI commands
// ABOUTME: Loads .env and config, configures logging and opens the store
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sisyph/mcoder/internal/classifier"
	"github.com/sisyph/mcoder/internal/config"
	"github.com/sisyph/mcoder/internal/logging"
	"github.com/sisyph/mcoder/internal/models"
	"github.com/sisyph/mcoder/internal/storage/sqlite"
)

// session bundles what a command needs to talk to the store
type session struct {
	cfg      *config.Config
	store    *sqlite.Storage
	logger   *slog.Logger
	closeLog func()
}

func (r *session) Close() {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn("error closing storage", "err", err)
		}
	}
	r.closeLog()
}

// loadConfig reads .env, the optional config file and the environment
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openSession loads configuration, sets up logging and opens the store
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	switch {
	case verbose:
		level = "debug"
	case quiet:
		level = "error"
	}
	logger, closeLog, err := logging.Setup(level, cfg.LogFile, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	store, err := sqlite.NewStorageWithPath(cfg.DBPath)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	store.SetLogger(logger)
	store.SetClassifier(buildClassifier(cfg))
	logger.Debug("storage opened", "path", store.Path())

	return &session{cfg: cfg, store: store, logger: logger, closeLog: closeLog}, nil
}

// buildClassifier extends the default term table with configured extras
func buildClassifier(cfg *config.Config) classifier.Classifier {
	if len(cfg.Classifier.ExtraPatterns) == 0 {
		return classifier.New()
	}
	patterns := append([]string(nil), classifier.DefaultPatterns...)
	patterns = append(patterns, cfg.Classifier.ExtraPatterns...)
	return classifier.NewWithPatterns(patterns, models.MaxFileSize)
}

func jsonOutput() bool {
	return outputFormat == "json"
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// note prints an informational line unless --quiet is set
func note(cmd *cobra.Command, format string, args ...interface{}) {
	if !quiet {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}

// parseID parses a positive entity ID argument
func parseID(arg, name string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, arg)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", name, id)
	}
	return id, nil
}

// truncate shortens a string to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatTime formats a time relative to now for table output
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
	return t.Local().Format("2006-01-02")
}

var errMaxAge = errors.New("max-age must be positive")

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}
