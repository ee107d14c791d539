package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/balance/internal/cli"
	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/engine"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify MERCHANT AMOUNT",
		Short: "Classify a purchase as a need or a want",
		Long: `Run a purchase through every enabled source, merge their opinions and
record the result.

Examples:
  balance classify Starbucks 5.25 --category coffee
  balance classify "Bike Shop" 30 --item "road bike tire" --date 2024-05-02`,
		Args: cobra.ExactArgs(2),
		RunE: runClassify,
	}

	cmd.Flags().String("category", "", "spending category (inferred from the merchant when empty)")
	cmd.Flags().String("item", "", "what was bought, used for similarity search")
	cmd.Flags().String("date", "", "purchase date (YYYY-MM-DD or RFC3339, default now)")
	cmd.Flags().Bool("json", false, "print the result as JSON")
	cmd.Flags().Bool("confirm", false, "ask for a verdict when confidence is low")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Amount %q is not a number", args[1]), err)
	}

	userID, err := currentUser()
	if err != nil {
		return err
	}

	category, _ := cmd.Flags().GetString("category")
	item, _ := cmd.Flags().GetString("item")
	dateStr, _ := cmd.Flags().GetString("date")
	asJSON, _ := cmd.Flags().GetBool("json")
	confirm, _ := cmd.Flags().GetBool("confirm")

	var ts time.Time
	if dateStr != "" {
		ts, err = parseDate(dateStr)
		if err != nil {
			return err
		}
	}

	a, err := buildApp(ctx, appCfg)
	if err != nil {
		return err
	}
	defer a.Close()

	classified, err := a.coach.ClassifyTransaction(ctx, engine.TransactionInput{
		UserID:    userID,
		Merchant:  args[0],
		Amount:    amount,
		Category:  category,
		ItemText:  item,
		Timestamp: ts,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, classified.Result)
	}

	fmt.Fprintln(out, cli.RenderClassification(classified.Transaction, classified.Result))

	if confirm && classified.Result.NeedsReview {
		reader := cli.NewNonBlockingReader(os.Stdin)
		label, ok, err := reader.PromptLabel(ctx, out, fmt.Sprintf("Was %s a need or a want?", classified.Transaction.Merchant))
		if err != nil || !ok {
			return err
		}
		if err := a.coach.RecordCorrection(ctx, userID, classified.Transaction.Merchant, label); err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Recorded %s as a %s", classified.Transaction.Merchant, label)))
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, common.NewUserError(fmt.Sprintf("Could not parse date %q; use YYYY-MM-DD", s), common.ErrInvalidTransaction)
}
