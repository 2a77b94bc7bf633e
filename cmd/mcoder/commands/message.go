// ABOUTME: CLI commands for a project's message log
// ABOUTME: Adds messages, shows recent history and searches across projects
package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sisyph/mcoder/internal/models"
)

var (
	messageSender     string
	messageType       string
	messageImportance int
	historyLimit      int
	searchProject     int64
	importSender      string
	importType        string
)

// maxImportLine bounds one imported line
const maxImportLine = 1024 * 1024

// NewMessageCmd creates the message command group
func NewMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Work with a project's message log",
		Long: `Append to, read and search project message logs.

Messages are always stored. Content the classifier flags is still kept
and the verdict is recorded in the security log.

Examples:
  mcoder message add 1 "Parser now handles unicode identifiers"
  echo "long note" | mcoder message add 1 --importance 3
  mcoder message history 1 --limit 20
  mcoder message search unicode --project 1
  mcoder message import 1 transcript.txt`,
	}

	add := &cobra.Command{
		Use:   "add [project-id] [text]",
		Short: "Append a message (reads stdin when text is omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runMessageAdd,
	}
	add.Flags().StringVar(&messageSender, "sender", "user", "Message author")
	add.Flags().StringVar(&messageType, "type", models.DefaultMessageType, "Message type tag")
	add.Flags().IntVar(&messageImportance, "importance", models.DefaultImportance, "Search ranking weight")

	history := &cobra.Command{
		Use:   "history [project-id]",
		Short: "Show recent messages, newest first",
		Args:  cobra.ExactArgs(1),
		RunE:  runMessageHistory,
	}
	history.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Maximum messages (default from config)")

	search := &cobra.Command{
		Use:   "search [query]",
		Short: "Search messages by substring, ranked by importance",
		Args:  cobra.ExactArgs(1),
		RunE:  runMessageSearch,
	}
	search.Flags().Int64Var(&searchProject, "project", 0, "Limit to one project")

	imp := &cobra.Command{
		Use:   "import [project-id] [file]",
		Short: "Import a text file, one message per non-blank line",
		Long: `Import a plain text log into a project. Each non-blank line becomes one
message, in file order. Use "-" to read stdin.`,
		Args: cobra.ExactArgs(2),
		RunE: runMessageImport,
	}
	imp.Flags().StringVar(&importSender, "sender", "import", "Author recorded on every line")
	imp.Flags().StringVar(&importType, "type", models.DefaultMessageType, "Message type tag")

	cmd.AddCommand(add, history, search, imp)
	return cmd
}

func runMessageAdd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project id")
	if err != nil {
		return err
	}

	var text string
	if len(args) > 1 {
		text = args[1]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no text provided")
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	msg, err := s.store.AddMessage(id, messageSender, text, messageType, messageImportance)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), msg)
	}
	note(cmd, "✓ Added message %d to project %d\n", msg.ID, id)
	return nil
}

func runMessageHistory(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	limit := historyLimit
	if limit == 0 {
		limit = s.cfg.HistoryLimit
	}
	if err := validatePositiveInt(limit, "limit"); err != nil {
		return err
	}

	messages, err := s.store.History(id, limit)
	if err != nil {
		return err
	}
	return printMessages(cmd, messages)
}

func runMessageSearch(cmd *cobra.Command, args []string) error {
	if searchProject < 0 {
		return fmt.Errorf("project must be positive, got %d", searchProject)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	messages, err := s.store.SearchMessages(args[0], searchProject)
	if err != nil {
		return err
	}
	return printMessages(cmd, messages)
}

func printMessages(cmd *cobra.Command, messages []models.Message) error {
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), messages)
	}
	if len(messages) == 0 {
		note(cmd, "No messages found\n")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tPROJECT\tSENDER\tTYPE\tIMP\tWHEN\tCONTENT\n")
	fmt.Fprintf(w, "--\t-------\t------\t----\t---\t----\t-------\n")
	for _, m := range messages {
		content := strings.ReplaceAll(m.Content, "\n", " ")
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%d\t%s\t%s\n",
			m.ID, m.ProjectID, m.Sender, m.MessageType, m.Importance, formatTime(m.CreatedAt), truncate(content, 60))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	note(cmd, "\nTotal: %d message(s)\n", len(messages))
	return nil
}

func runMessageImport(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project id")
	if err != nil {
		return err
	}

	var in io.Reader
	if args[1] == "-" {
		in = cmd.InOrStdin()
	} else {
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[1], err)
		}
		defer f.Close()
		in = f
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	imported, err := importLines(in, func(line string) error {
		_, err := s.store.AddMessage(id, importSender, line, importType, models.DefaultImportance)
		return err
	})
	if err != nil {
		return fmt.Errorf("import stopped after %d messages: %w", imported, err)
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{"project_id": id, "imported": imported})
	}
	note(cmd, "✓ Imported %d message%s into project %d\n", imported, plural(imported, "", "s"), id)
	return nil
}

// importLines calls add for each non-blank line of r and returns how many succeeded
func importLines(r io.Reader, add func(line string) error) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)

	n := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := add(line); err != nil {
			return n, err
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("reading input: %w", err)
	}
	return n, nil
}
