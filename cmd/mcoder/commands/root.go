// ABOUTME: Root CLI command and global flags
// ABOUTME: Wires every subcommand and the verbose/quiet/format switches
package commands

import (
	"github.com/spf13/cobra"

	"github.com/sisyph/mcoder/internal/errs"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	configPath   string
)

const banner = `
 ███╗   ███╗ ██████╗ ██████╗ ██████╗ ███████╗██████╗
 ████╗ ████║██╔════╝██╔═══██╗██╔══██╗██╔════╝██╔══██╗
 ██╔████╔██║██║     ██║   ██║██║  ██║█████╗  ██████╔╝
 ██║╚██╔╝██║██║     ██║   ██║██║  ██║██╔══╝  ██╔══██╗
 ██║ ╚═╝ ██║╚██████╗╚██████╔╝██████╔╝███████╗██║  ██║
 ╚═╝     ╚═╝ ╚═════╝ ╚═════╝ ╚═════╝ ╚══════╝╚═╝  ╚═╝`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcoder",
		Short: "Project memory with a content safety gate",
		Long: banner + `

mcoder keeps a durable memory of software projects: their message log,
registered files, build modules and system status. Every piece of incoming
content is screened by a pattern classifier and each verdict is kept in an
append-only security log.

Data lives in a single SQLite file (default ~/.local/share/mcoder/mcoder.db,
override with MCODER_DB_PATH or db_path in the config file).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print results and errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, text or json")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file (default $MCODER_CONFIG)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		NewProjectCmd(),
		NewMessageCmd(),
		NewFileCmd(),
		NewModuleCmd(),
		NewSystemCmd(),
		NewSecurityCmd(),
		NewReportCmd(),
		NewCacheCmd(),
		NewGenerateCmd(),
		NewWatchCmd(),
		NewServeCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// ExitCode maps an error to a process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errs.Is(err, errs.CodePolicyViolation):
		return 3
	case errs.Is(err, errs.CodeNotFound):
		return 4
	case errs.Is(err, errs.CodeSizeLimitExceeded):
		return 5
	case errs.Is(err, errs.CodeStorageUnavailable):
		return 6
	default:
		return 1
	}
}
