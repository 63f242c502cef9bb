package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/viewdiff/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬  ┬┬┌─┐┬ ┬┌┬┐┬┌─┐┌─┐
  └┐┌┘│├┤ │││ │││├┤ ├┤
   └┘ ┴└─┘└┴┘─┴┘┴└  └
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.FprintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "viewdiff",
		Short: "Diff view trees into host mutations",
		Long: `viewdiff computes the mutations that turn one generation of a
view tree into the next, and serves them to remote hosts.

  • Flattens layout-only nodes before diffing
  • Classic and move-optimized diff modes
  • Convergence checks against a stub host
  • Binary WebSocket stream of numbered transactions`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || os.Getenv("NO_COLOR") != "" {
				colors = false
				errors.DisableColors()
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		diffCmd(),
		serveCmd(),
		versionCmd(),
	)
	return rootCmd
}

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// colors is cleared by --no-color and NO_COLOR.
var colors = true

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	mark := "✓"
	if colors {
		mark = "\033[32m✓\033[0m"
	}
	fmt.Fprintf(w, "%s %s\n", mark, fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
