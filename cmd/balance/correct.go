package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/balance/internal/cli"
	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/model"
)

func correctCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "correct MERCHANT need|want",
		Short: "Tell balance whether a merchant is a need or a want for you",
		Long: `Append a correction to your label history. After a few consistent
corrections your history outweighs the generic rules for that merchant.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			label, err := model.ParseLabel(args[1])
			if err != nil || !label.IsDecisive() {
				return common.NewUserError(fmt.Sprintf("Label must be need or want, got %q", args[1]), common.ErrInvalidLabel)
			}

			userID, err := currentUser()
			if err != nil {
				return err
			}

			a, err := buildApp(ctx, appCfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.coach.RecordCorrection(ctx, userID, args[0], label); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Recorded %s as a %s", args[0], label)))
			return nil
		},
	}
}
