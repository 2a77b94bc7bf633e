// ABOUTME: CLI commands to create, inspect and retire projects
// ABOUTME: Creation goes through the classifier gate; rejections print the risk factors
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sisyph/mcoder/internal/errs"
)

var (
	projectDescription string
)

// NewProjectCmd creates the project command group
func NewProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
		Long: `Create, list and inspect projects.

Examples:
  mcoder project create calculator --description "Four-function calculator"
  mcoder project list
  mcoder project show 1
  mcoder project progress 1
  mcoder project set-status 1 archived`,
	}

	create := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectCreate,
	}
	create.Flags().StringVarP(&projectDescription, "description", "d", "", "Project description")

	cmd.AddCommand(
		create,
		&cobra.Command{
			Use:   "list",
			Short: "List projects, newest first",
			Args:  cobra.NoArgs,
			RunE:  runProjectList,
		},
		&cobra.Command{
			Use:   "show [id]",
			Short: "Show a project with message and file counts",
			Args:  cobra.ExactArgs(1),
			RunE:  runProjectShow,
		},
		&cobra.Command{
			Use:   "progress [id]",
			Short: "Show the percentage of build modules that are done",
			Args:  cobra.ExactArgs(1),
			RunE:  runProjectProgress,
		},
		&cobra.Command{
			Use:   "set-status [id] [status]",
			Short: "Change a project's status label",
			Args:  cobra.ExactArgs(2),
			RunE:  runProjectSetStatus,
		},
	)

	return cmd
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.store.CreateProject(args[0], projectDescription)
	if err != nil {
		if factors := errs.Factors(err); len(factors) > 0 && !quiet {
			fmt.Fprintln(cmd.ErrOrStderr(), "Project rejected by the content classifier:")
			for _, f := range factors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", f)
			}
		}
		return err
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), map[string]int64{"project_id": id})
	}
	if quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", id)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created project %d (%s)\n", id, args[0])
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	projects, err := s.store.ListProjects()
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), projects)
	}
	if len(projects) == 0 {
		note(cmd, "No projects found\n")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tSTATUS\tRISK\tCREATED\n")
	fmt.Fprintf(w, "--\t----\t------\t----\t-------\n")
	for _, p := range projects {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.ID, truncate(p.Name, 40), p.Status, p.SecurityLevel, formatTime(p.CreatedAt))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	note(cmd, "\nTotal: %d project(s)\n", len(projects))
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	status, err := s.store.GetProjectStatus(id)
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), status)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project #%d: %s\n", status.ID, status.Name)
	if status.Description != "" {
		fmt.Fprintf(out, "  %s\n", status.Description)
	}
	fmt.Fprintf(out, "Status:   %s\n", status.Status)
	fmt.Fprintf(out, "Created:  %s\n", formatTime(status.CreatedAt))
	fmt.Fprintf(out, "Messages: %d\n", status.MessageCount)
	fmt.Fprintf(out, "Files:    %d\n", status.FileCount)
	return nil
}

func runProjectProgress(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	progress, err := s.store.BuildProgress(id)
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{"project_id": id, "progress": progress})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%.1f%%\n", progress)
	return nil
}

func runProjectSetStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.store.SetProjectStatus(id, args[1]); err != nil {
		return err
	}
	note(cmd, "✓ Project %d is now %s\n", id, args[1])
	return nil
}
