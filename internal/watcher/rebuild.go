// ABOUTME: Rebuild runner driven by watcher change batches
// ABOUTME: Each run is tracked as transitions of a system module
package watcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sisyph/mcoder/internal/models"
)

const (
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusFailed     = "failed"

	// logTail bounds the command output kept in the status log
	logTail = 2000
)

// StatusSink records system module transitions
type StatusSink interface {
	SetSystemModuleStatus(moduleName, status, log string) (*models.SystemModuleStatus, error)
}

// CommandFunc runs a command and returns its combined output
type CommandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecCommand runs the command with os/exec
func ExecCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// RunObserver is told the outcome and wall time of each finished run
type RunObserver func(module, status string, elapsed time.Duration)

// Rebuilder runs a build command and mirrors its lifecycle into a system module
type Rebuilder struct {
	sink    StatusSink
	module  string
	command []string
	run     CommandFunc
	logger  *slog.Logger
	observe RunObserver
	mu      sync.Mutex
}

// NewRebuilder creates a rebuilder for the given command line. run may be nil to use ExecCommand.
func NewRebuilder(sink StatusSink, module string, command []string, run CommandFunc) (*Rebuilder, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, fmt.Errorf("rebuild command is required")
	}
	if strings.TrimSpace(module) == "" {
		return nil, fmt.Errorf("module name is required")
	}
	if run == nil {
		run = ExecCommand
	}
	return &Rebuilder{
		sink:    sink,
		module:  module,
		command: append([]string(nil), command...),
		run:     run,
		logger:  slog.New(slog.DiscardHandler),
	}, nil
}

func (r *Rebuilder) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetObserver registers fn to be called after each run is recorded
func (r *Rebuilder) SetObserver(fn RunObserver) {
	r.observe = fn
}

// Rebuild marks the module in progress, runs the command and records done or failed.
// Runs are serialized.
func (r *Rebuilder) Rebuild(ctx context.Context, changed []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.sink.SetSystemModuleStatus(r.module, StatusInProgress, describeChanges(changed)); err != nil {
		return err
	}
	r.logger.Info("rebuild started", "module", r.module, "changed", len(changed))

	start := time.Now()
	out, runErr := r.run(ctx, r.command[0], r.command[1:]...)
	elapsed := time.Since(start)
	status := StatusDone
	log := tail(string(out), logTail)
	if runErr != nil {
		status = StatusFailed
		log = strings.TrimSpace(fmt.Sprintf("%v\n%s", runErr, log))
		r.logger.Warn("rebuild failed", "module", r.module, "err", runErr)
	} else {
		r.logger.Info("rebuild finished", "module", r.module)
	}

	if _, err := r.sink.SetSystemModuleStatus(r.module, status, log); err != nil {
		return err
	}
	if r.observe != nil {
		r.observe(r.module, status, elapsed)
	}
	return nil
}

func describeChanges(changed []string) string {
	switch len(changed) {
	case 0:
		return "manual trigger"
	case 1:
		return "changed: " + changed[0]
	default:
		return fmt.Sprintf("changed: %s and %d more", changed[0], len(changed)-1)
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return "..." + string(runes[len(runes)-n:])
}
