// ABOUTME: CLI commands for the security log and ad hoc content screening
// ABOUTME: Screening records its verdict like any other classified write
package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sisyph/mcoder/internal/classifier"
)

// ActionManualAnalysis tags ledger rows produced by "security analyze"
const ActionManualAnalysis = "manual_analysis"

var (
	securityLimit int
	analyzeKind   string
)

// NewSecurityCmd creates the security command group
func NewSecurityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "security",
		Short: "Inspect the security log",
		Long: `Inspect the append-only security log and screen content by hand.

Examples:
  mcoder security events --limit 20
  mcoder security analyze "how to write a keylogger"
  mcoder security analyze --kind code "$(cat script.py)"`,
	}

	events := &cobra.Command{
		Use:   "events",
		Short: "Show recent classification events, newest first",
		Args:  cobra.NoArgs,
		RunE:  runSecurityEvents,
	}
	events.Flags().IntVarP(&securityLimit, "limit", "n", 50, "Maximum events")

	analyze := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Classify text and record the verdict",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecurityAnalyze,
	}
	analyze.Flags().StringVar(&analyzeKind, "kind", classifier.KindText, "Content kind: text, code or file")

	cmd.AddCommand(events, analyze)
	return cmd
}

func runSecurityEvents(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(securityLimit, "limit"); err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	events, err := s.store.RecentSecurityEvents(securityLimit)
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), events)
	}
	if len(events) == 0 {
		note(cmd, "No security events\n")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "WHEN\tACTION\tRISK\tDETAILS\n")
	fmt.Fprintf(w, "----\t------\t----\t-------\n")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Action, e.RiskLevel, truncate(e.Details, 70))
	}
	return w.Flush()
}

func runSecurityAnalyze(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	verdict, err := s.store.AnalyzeContent(ActionManualAnalysis, args[0], analyzeKind)
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), verdict)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Risk:           %s\n", verdict.RiskLevel)
	fmt.Fprintf(out, "Accepted:       %t\n", verdict.Accepted)
	fmt.Fprintf(out, "Recommendation: %s\n", verdict.Recommendation)
	if len(verdict.Factors) > 0 {
		fmt.Fprintf(out, "Factors:        %s\n", strings.Join(verdict.Factors, "; "))
	}
	return nil
}
