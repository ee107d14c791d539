package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/balance/internal/cli"
)

func embedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Compute embeddings for purchases that are missing one",
		Long: `Similarity search only sees purchases that have an embedding. Imports
embed as they go, but a provider outage or a model change leaves gaps; this
command fills them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				bar := cli.NewProgressBar(cmd.ErrOrStderr(), -1, "Embedding")
				defer func() { _ = bar.Finish() }()

				n, err := a.coach.BackfillEmbeddings(ctx, userID, limit, cli.ProgressUpdater(bar))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Embedded %d purchases", n)))
				return nil
			})
		},
	}
	cmd.Flags().Int("limit", 0, "maximum purchases to embed (0 for all)")
	return cmd
}
