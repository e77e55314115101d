// Package cmd provides the CLI commands for tschunk.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Consiliency/treesitter-chunker-sub001/internal/logging"
	"github.com/Consiliency/treesitter-chunker-sub001/pkg/version"
)

var (
	flagConfig   string
	flagLogLevel string

	loggingCleanup func()
)

// NewRootCmd creates the root command for the tschunk CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tschunk",
		Short: "Split source files into semantically meaningful chunks",
		Long: `tschunk converts source files into an ordered sequence of semantic
chunks for embeddings, code search, and LLM context windows.

Syntax-aware chunking uses tree-sitter where a grammar is available and
falls back to sliding windows otherwise; oversized chunks are split to a
token budget.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := logging.DefaultConfig()
			cfg.Level = flagLogLevel
			cfg.WriteToStderr = false
			logger, cleanup, err := logging.Setup(cfg)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			loggingCleanup = cleanup
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if loggingCleanup != nil {
				loggingCleanup()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(newChunkCmd())
	cmd.AddCommand(newLanguagesCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}
