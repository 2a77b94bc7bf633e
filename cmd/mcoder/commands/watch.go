// ABOUTME: Watch command runs the rebuild daemon
// ABOUTME: Re-runs a build command on file changes and records each run as system module status
package commands

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sisyph/mcoder/internal/httpapi"
	"github.com/sisyph/mcoder/internal/metrics"
	"github.com/sisyph/mcoder/internal/watcher"
)

var (
	watchExec   string
	watchPaths  []string
	watchModule string
	watchOnce   bool
	watchHTTP   string
)

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [pattern...]",
		Short: "Rebuild when watched files change",
		Long: `Watch files and run a build command when they change.

Changes are debounced (MCODER_WATCH_DEBOUNCE). Each run marks the system
module in_progress and then done or failed, with the tail of the command
output as the log, so "mcoder system history auto_build" shows every build.

Patterns are globs matched against file names or slash-separated paths.
Without patterns every file is watched.

Examples:
  mcoder watch --exec "go build ./..." "*.go"
  mcoder watch --exec "make test" --path ./src --path ./lib "*.c" "*.h"
  mcoder watch --exec "go vet ./..." --once
  mcoder watch --exec "go build ./..." --http-addr 127.0.0.1:8088 "*.go"`,
		RunE: runWatch,
	}

	cmd.Flags().StringVar(&watchExec, "exec", "", "Build command to run (default from config)")
	cmd.Flags().StringSliceVar(&watchPaths, "path", []string{"."}, "Directories to watch")
	cmd.Flags().StringVar(&watchModule, "module", "", "System module to record runs under (default from config)")
	cmd.Flags().BoolVar(&watchOnce, "once", false, "Run the build once and exit")
	cmd.Flags().StringVar(&watchHTTP, "http-addr", "", "Also serve the HTTP API and rebuild metrics on this address")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	execLine := watchExec
	if execLine == "" {
		execLine = s.cfg.Watch.Exec
	}
	module := watchModule
	if module == "" {
		module = s.cfg.Watch.Module
	}
	patterns := args
	if len(patterns) == 0 {
		patterns = s.cfg.Watch.Patterns
	}

	rebuilder, err := watcher.NewRebuilder(s.store, module, strings.Fields(execLine), nil)
	if err != nil {
		return err
	}
	rebuilder.SetLogger(s.logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watchOnce {
		if err := rebuilder.Rebuild(ctx, nil); err != nil {
			return err
		}
		return reportLastRun(cmd, s, module)
	}

	var api *httpapi.Server
	if watchHTTP != "" {
		m := metrics.New()
		s.store.SetVerdictHook(m.ObserveVerdict)
		rebuilder.SetObserver(m.ObserveRebuild)
		api = httpapi.NewServer(s.store, m, s.logger)
	}

	w, err := watcher.NewWatcher(s.cfg.Watch.Debounce, patterns, watcher.DefaultExcludeDirs, func(changed []string) {
		if err := rebuilder.Rebuild(ctx, changed); err != nil {
			s.logger.Error("recording rebuild failed", "module", module, "err", err)
			return
		}
		if err := reportLastRun(cmd, s, module); err != nil {
			s.logger.Warn("reading rebuild status failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	w.SetLogger(s.logger)
	defer w.Close()

	if err := w.Watch(watchPaths); err != nil {
		return fmt.Errorf("watching %v: %w", watchPaths, err)
	}

	var apiDone chan struct{}
	if api != nil {
		apiDone = make(chan struct{})
		go func() {
			defer close(apiDone)
			if err := api.ListenAndServe(ctx, watchHTTP); err != nil {
				s.logger.Error("http api stopped", "addr", watchHTTP, "err", err)
			}
		}()
	}

	note(cmd, "Watching %s for changes (module %s, Ctrl-C to stop)\n", strings.Join(watchPaths, ", "), module)
	<-ctx.Done()
	if apiDone != nil {
		<-apiDone
	}
	note(cmd, "Stopped watching\n")
	return nil
}

func reportLastRun(cmd *cobra.Command, s *session, module string) error {
	entries, err := s.store.SystemStatusHistory(module, 1)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	last := entries[0]
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), last)
	}
	note(cmd, "%s %s: %s\n", last.UpdatedAt.Local().Format("15:04:05"), module, last.Status)
	return nil
}
