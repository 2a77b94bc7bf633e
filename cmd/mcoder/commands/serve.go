// ABOUTME: Serve command runs the read-only HTTP API
// ABOUTME: Exposes project status, the security log and Prometheus metrics, and prunes the cache on schedule
package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sisyph/mcoder/internal/httpapi"
	"github.com/sisyph/mcoder/internal/maintenance"
	"github.com/sisyph/mcoder/internal/metrics"
)

var serveAddr string

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only HTTP API",
		Long: `Serve project status over HTTP.

Endpoints:
  GET /healthz                       database liveness
  GET /metrics                       Prometheus metrics
  GET /api/projects                  all projects
  GET /api/projects/{id}             status with message and file counts
  GET /api/projects/{id}/progress    build progress percentage
  GET /api/projects/{id}/messages    recent messages (?limit=)
  GET /api/projects/{id}/files       file records
  GET /api/projects/{id}/modules     build modules
  GET /api/search?q=&project=        ranked message search
  GET /api/system/modules            current system modules
  GET /api/system/history?module=    system module transitions (?limit=)
  GET /api/security/events           security log (?limit=)

The generation cache is pruned on MCODER_CACHE_PRUNE_SCHEDULE while serving.

Examples:
  mcoder serve
  mcoder serve --addr :8088`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, 127.0.0.1:8088)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	addr := serveAddr
	if addr == "" {
		addr = s.cfg.Serve.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	s.store.SetVerdictHook(m.ObserveVerdict)

	if err := startPruner(ctx, s, m); err != nil {
		return err
	}

	note(cmd, "Serving on http://%s (Ctrl-C to stop)\n", addr)
	return httpapi.NewServer(s.store, m, s.logger).ListenAndServe(ctx, addr)
}

// startPruner schedules cache pruning for the life of ctx. m may be nil.
func startPruner(ctx context.Context, s *session, m *metrics.Metrics) error {
	pruner, err := maintenance.NewScheduler(s.store, s.cfg.Cache.PruneSchedule, s.cfg.Cache.MaxAge, s.logger)
	if err != nil {
		return err
	}
	if m != nil {
		pruner.OnPruned(func(n int64) { m.CachePruned.Add(float64(n)) })
	}
	pruner.Start(ctx)
	return nil
}
