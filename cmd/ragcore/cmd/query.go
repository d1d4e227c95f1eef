package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <question...>",
		Short: "Answer a question by retrieving and synthesizing over the ingested corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runQuery(ctx, cmd, strings.Join(args, " "))
		},
	}
	return cmd
}

func runQuery(ctx context.Context, cmd *cobra.Command, question string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	sess, closeSession, err := openSession(ctx, root)
	if err != nil {
		return err
	}
	defer closeSession()

	result, err := sess.pipeline.Run(ctx, question)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
	return nil
}
