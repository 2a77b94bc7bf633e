// ABOUTME: CLI commands for the file registry
// ABOUTME: Registers files with their SHA-256 digest and lists a project's files
package commands

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// NewFileCmd creates the file command group
func NewFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Register and list project files",
		Long: `Register files against a project.

Only metadata and a SHA-256 digest are stored; the file itself stays where it
is. Files over 50 MiB are refused.

Examples:
  mcoder file add 1 ./src/main.go
  mcoder file list 1`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add [project-id] [path]",
			Short: "Register a file",
			Args:  cobra.ExactArgs(2),
			RunE:  runFileAdd,
		},
		&cobra.Command{
			Use:   "list [project-id]",
			Short: "List registered files in upload order",
			Args:  cobra.ExactArgs(1),
			RunE:  runFileList,
		},
	)
	return cmd
}

func runFileAdd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project id")
	if err != nil {
		return err
	}
	path, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.store.AddFile(id, path); err != nil {
		return err
	}

	files, err := s.store.ListFiles(id)
	if err != nil {
		return err
	}
	record := files[len(files)-1]

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), record)
	}
	note(cmd, "✓ Registered %s (%s, sha256 %s, scan %s)\n",
		record.Filename, humanize.IBytes(uint64(record.SizeBytes)), truncate(record.ContentHash, 16), record.SecurityScan)
	return nil
}

func runFileList(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	files, err := s.store.ListFiles(id)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), files)
	}
	if len(files) == 0 {
		note(cmd, "No files registered\n")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tSIZE\tSCAN\tUPLOADED\tSHA256\n")
	fmt.Fprintf(w, "--\t----\t----\t----\t--------\t------\n")
	for _, f := range files {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			f.ID, truncate(f.Filename, 40), humanize.IBytes(uint64(f.SizeBytes)), f.SecurityScan, formatTime(f.UploadedAt), truncate(f.ContentHash, 16))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	note(cmd, "\nTotal: %d file(s)\n", len(files))
	return nil
}
