// ABOUTME: CLI commands for a project's build modules
// ABOUTME: Sets module status in place and lists the current rows
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	moduleLog string
)

// NewModuleCmd creates the module command group
func NewModuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module",
		Short: "Track a project's build modules",
		Long: `Track build modules within a project.

Each (project, module) pair has one current row that is overwritten on every
update. Build progress is the share of modules whose status is "done".

Examples:
  mcoder module set 1 lexer done
  mcoder module set 1 parser in_progress --log "grammar half done"
  mcoder module list 1`,
	}

	set := &cobra.Command{
		Use:   "set [project-id] [module] [status]",
		Short: "Set a module's status",
		Args:  cobra.ExactArgs(3),
		RunE:  runModuleSet,
	}
	set.Flags().StringVar(&moduleLog, "log", "", "Log text stored with the status")

	cmd.AddCommand(set, &cobra.Command{
		Use:   "list [project-id]",
		Short: "List a project's modules",
		Args:  cobra.ExactArgs(1),
		RunE:  runModuleList,
	})
	return cmd
}

func runModuleSet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	module, err := s.store.SetModuleStatus(id, args[1], args[2], moduleLog)
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), module)
	}
	note(cmd, "✓ %s is %s\n", module.ModuleName, module.Status)
	return nil
}

func runModuleList(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	modules, err := s.store.ListModules(id)
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), modules)
	}
	if len(modules) == 0 {
		note(cmd, "No modules tracked\n")
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
