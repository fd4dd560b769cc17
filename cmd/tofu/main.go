// Tofu CLI for working with compiled template corpora.
//
// Usage:
//
//	tofu --corpus FILE [--log-level LEVEL] [--log-format FORMAT] <command> [flags]
//
// Commands:
//
//	inspect   List the templates of a corpus
//	closure   Show transitive template dependencies
//	render    Render a template to stdout
//	explore   Interactive corpus browser
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	tofu "github.com/goliatone/go-tofu"
	"github.com/goliatone/go-tofu/internal/cli"
	"github.com/goliatone/go-tofu/internal/telemetry"
)

// version is overridden via ldflags at build time.
var version = tofu.Version

func main() {
	var corpusPath string
	var logLevel string
	var logFormat string

	rootCmd := &cobra.Command{
		Use:           "tofu",
		Short:         "Runtime tooling for compiled template corpora",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			telemetry.Setup(logLevel, logFormat)
		},
	}

	rootCmd.PersistentFlags().StringVar(&corpusPath, "corpus", "", "Path to the corpus manifest (YAML or JSON, \"-\" for stdin)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (json, text)")

	runtimeFn := func() (*tofu.Runtime, error) {
		if corpusPath == "" {
			return nil, errors.New("--corpus is required")
		}
		if corpusPath == "-" {
			return tofu.New(tofu.WithCorpusReader(os.Stdin))
		}
		return tofu.New(tofu.WithCorpusFile(corpusPath))
	}

	rootCmd.AddCommand(
		cli.NewInspectCmd(runtimeFn),
		cli.NewClosureCmd(runtimeFn),
		cli.NewRenderCmd(runtimeFn),
		cli.NewExploreCmd(runtimeFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
