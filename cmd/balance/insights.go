package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/balance/internal/cli"
	"github.com/Veraticus/balance/internal/model"
)

func overspendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overspending",
		Short: "Show categories where this week's spend is unusually high",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			weeks, _ := cmd.Flags().GetInt("weeks")
			threshold, _ := cmd.Flags().GetFloat64("threshold")

			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				alerts, err := a.coach.FindOverspending(ctx, userID, weeks, threshold)
				if err != nil {
					return err
				}
				return output(cmd, alerts, cli.RenderOverspending(alerts))
			})
		},
	}
	cmd.Flags().Int("weeks", 0, "weeks of baseline (default from config)")
	cmd.Flags().Float64("threshold", 0, "z-score threshold (default from config)")
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func cancellationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancellations",
		Short: "List recurring discretionary merchants worth cancelling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			minWeeks, _ := cmd.Flags().GetInt("min-weeks")

			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				candidates, err := a.coach.FindCancellationCandidates(ctx, userID, minWeeks)
				if err != nil {
					return err
				}
				return output(cmd, candidates, cli.RenderCancellations(candidates))
			})
		},
	}
	cmd.Flags().Int("min-weeks", 0, "distinct weeks a merchant must recur in (default from config)")
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find past purchases similar to a description",
		Example: `  balance search "running shoes"
  balance search "streaming subscription" --limit 10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			query := strings.Join(args, " ")

			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				items, err := a.coach.SearchSimilarItems(ctx, query, userID, limit)
				if err != nil {
					return err
				}
				return output(cmd, items, cli.RenderSimilar(query, items))
			})
		},
	}
	cmd.Flags().Int("limit", 0, "maximum results (default from config)")
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Guess the category of your next purchase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				p, err := a.coach.PredictNextPurchase(ctx, userID)
				if err != nil {
					return err
				}
				return output(cmd, p, cli.RenderPrediction(p))
			})
		},
	}
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

// insightsReport is the combined JSON shape of the insights command.
type insightsReport struct {
	Overspending  []model.OverspendingAlert     `json:"overspending"`
	Cancellations []model.CancellationCandidate `json:"cancellation_candidates"`
	Prediction    model.PurchasePrediction      `json:"prediction"`
}

func insightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Overspending, cancellation candidates and a prediction in one report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				var report insightsReport

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					alerts, err := a.coach.FindOverspending(gctx, userID, 0, 0)
					report.Overspending = alerts
					return err
				})
				g.Go(func() error {
					candidates, err := a.coach.FindCancellationCandidates(gctx, userID, 0)
					report.Cancellations = candidates
					return err
				})
				g.Go(func() error {
					p, err := a.coach.PredictNextPurchase(gctx, userID)
					report.Prediction = p
					return err
				})
				if err := g.Wait(); err != nil {
					return err
				}

				text := strings.Join([]string{
					cli.RenderOverspending(report.Overspending),
					cli.RenderCancellations(report.Cancellations),
					cli.RenderPrediction(report.Prediction),
				}, "\n\n")
				return output(cmd, report, text)
			})
		},
	}
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

// withUser resolves the acting user, builds the app and hands both to fn.
func withUser(cmd *cobra.Command, fn func(ctx context.Context, a *app, userID string) error) error {
	userID, err := currentUser()
	if err != nil {
		return err
	}

	a, err := buildApp(cmd.Context(), appCfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(cmd.Context(), a, userID)
}

// output prints v as JSON when --json is set, otherwise the rendered text.
func output(cmd *cobra.Command, v any, text string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
