// ABOUTME: CLI commands for system module status and its history
// ABOUTME: Every status change also lands in the append-only history
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	systemLog          string
	systemHistoryLimit int
)

// NewSystemCmd creates the system command group
func NewSystemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Track system module status",
		Long: `Track system-wide modules such as the rebuild daemon.

The current status is overwritten on each update and every update is also
appended to the status history.

Examples:
  mcoder system set indexer running
  mcoder system status
  mcoder system history indexer --limit 10`,
	}

	set := &cobra.Command{
		Use:   "set [module] [status]",
		Short: "Set a system module's status",
		Args:  cobra.ExactArgs(2),
		RunE:  runSystemSet,
	}
	set.Flags().StringVar(&systemLog, "log", "", "Log text stored with the status")

	history := &cobra.Command{
		Use:   "history [module]",
		Short: "Show status transitions, newest first (all modules when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSystemHistory,
	}
	history.Flags().IntVarP(&systemHistoryLimit, "limit", "n", 50, "Maximum entries")

	cmd.AddCommand(set, &cobra.Command{
		Use:   "status",
		Short: "Show the current status of every system module",
		Args:  cobra.NoArgs,
		RunE:  runSystemStatus,
	}, history)
	return cmd
}

func runSystemSet(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	module, err := s.store.SetSystemModuleStatus(args[0], args[1], systemLog)
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), module)
	}
	note(cmd, "✓ %s is %s\n", module.ModuleName, module.Status)
	return nil
}

func runSystemStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	modules, err := s.store.ListSystemModules()
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), modules)
	}
	if len(modules) == 0 {
		note(cmd, "No system modules tracked\n")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "MODULE\tSTATUS\tUPDATED\tLOG\n")
	fmt.Fprintf(w, "------\t------\t-------\t---\n")
	for _, m := range modules {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ModuleName, m.Status, formatTime(m.UpdatedAt), truncate(m.Log, 50))
	}
	return w.Flush()
}

func runSystemHistory(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(systemHistoryLimit, "limit"); err != nil {
		return err
	}
	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.store.SystemStatusHistory(name, systemHistoryLimit)
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), entries)
	}
	if len(entries) == 0 {
		note(cmd, "No history\n")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "WHEN\tMODULE\tSTATUS\tLOG\n")
	fmt.Fprintf(w, "----\t------\t------\t---\n")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.UpdatedAt.Local().Format("2006-01-02 15:04:05"), e.ModuleName, e.Status, truncate(e.Log, 50))
	}
	return w.Flush()
}
