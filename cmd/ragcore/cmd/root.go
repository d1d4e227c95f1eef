// Package cmd provides the ragcore CLI commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ragcore/ragcore/internal/obslog"
	"github.com/ragcore/ragcore/pkg/version"
)

var (
	logLevel  string
	logFormat string
)

// NewRootCmd builds the root ragcore command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ragcore",
		Short:   "Local-first RAG retrieval core",
		Version: version.Version,
		Long: `ragcore ingests a folder of documents into a vector index, a lexical
index, and a chunk store kept in identifier lockstep, then answers questions
by retrieving grounded passages and asking a local LLM to synthesize an
answer.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			obslog.SetupDefault(obslog.Config{Level: logLevel, Format: logFormat})
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "text or json (default: auto-detect by TTY)")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newQueryCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
