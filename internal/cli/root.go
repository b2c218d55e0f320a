// Package cli wires the docfind command-line front-end: the build,
// inspect, and search subcommands are assembled into a small cobra tree.
package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hypnagonia/docfind/config"
)

// Process exit codes returned by Execute.
const (
	ExitOK              = 0
	ExitInvalidArgs     = 1
	ExitInputParseError = 2
	ExitTemplateInvalid = 3
	ExitIOError         = 4
)

var (
	cfgFile string
	verbose bool
	log     = logrus.New()
)

// NewRootCmd builds the docfind command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docfind",
		Short: "Static-site search engine: builds a WebAssembly search artifact from a document corpus",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to docfind.yaml (defaults to <input_dir>/docfind.yaml when omitted)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newBuildCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newSearchCmd())

	return root
}

func configureLogging() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose || os.Getenv("DOCFIND_DEBUG") != "" {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// loadConfig returns the file named by --config when one is given, and
// the defaults otherwise. No subcommand calls it; build resolves its
// configuration through resolveBuildConfig instead.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.DefaultConfig(), nil
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		if code, ok := err.(exitCoder); ok {
			return code.ExitCode()
		}
		return ExitInvalidArgs
	}
	return ExitOK
}

// exitCoder lets subcommands attach a specific exit code to an error
// without cobra swallowing it into a generic non-zero exit.
type exitCoder interface {
	error
	ExitCode() int
}

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) ExitCode() int { return e.code }
func (e *cliError) Unwrap() error { return e.err }

func exitError(code int, err error) error {
	return &cliError{code: code, err: err}
}
