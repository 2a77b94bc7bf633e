// ABOUTME: CLI commands for the generated-content cache
// ABOUTME: Reports the entry count and evicts entries not read recently
package commands

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	cacheMaxAge time.Duration
)

// NewCacheCmd creates the cache command group
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the generated-content cache",
		Long: `Manage the cache of generated code.

Examples:
  mcoder cache stats
  mcoder cache prune --max-age 168h`,
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Evict entries not accessed within --max-age",
		Args:  cobra.NoArgs,
		RunE:  runCachePrune,
	}
	prune.Flags().DurationVar(&cacheMaxAge, "max-age", 0, "Keep entries accessed within this window (default MCODER_CACHE_MAX_AGE, 720h)")

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show the number of cached entries",
		Args:  cobra.NoArgs,
		RunE:  runCacheStats,
	}, prune)
	return cmd
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	count, err := s.store.CacheCount()
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), map[string]int{"entries": count})
	}
	note(cmd, "%d cached entr%s\n", count, plural(count, "y", "ies"))
	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	maxAgeSet := cmd.Flags().Changed("max-age")
	if maxAgeSet && cacheMaxAge <= 0 {
		return errMaxAge
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	maxAge := s.cfg.Cache.MaxAge
	if maxAgeSet {
		maxAge = cacheMaxAge
	}
	removed, err := s.store.CachePrune(maxAge)
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), map[string]int64{"removed": removed})
	}
	note(cmd, "✓ Removed %d entr%s\n", removed, plural(int(removed), "y", "ies"))
	return nil
}
