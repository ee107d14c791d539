package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/balance/internal/cli"
	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/model"
	"github.com/Veraticus/balance/internal/ofx"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import and classify purchases from OFX/QFX bank exports",
		Long: `Parse one or more OFX or QFX files, skip purchases that were already
imported and classify the rest.

Examples:
  balance import ~/Downloads/checking.qfx
  balance import statements/*.ofx --dry-run
  balance import checking.qfx --list-accounts`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}
	cmd.Flags().Bool("dry-run", false, "parse and list purchases without saving")
	cmd.Flags().Bool("list-accounts", false, "list the account IDs in each file and exit")
	cmd.Flags().Bool("no-progress", false, "hide the progress bar")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	listAccounts, _ := cmd.Flags().GetBool("list-accounts")
	out := cmd.OutOrStdout()

	parser := ofx.NewParser(nil)
	if listAccounts {
		return printAccounts(cmd, parser, args)
	}

	userID, err := currentUser()
	if err != nil {
		return err
	}

	var transactions []model.Transaction
	for _, path := range args {
		txns, err := parseOFXFile(cmd, parser, path)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%s: %d purchases", filepath.Base(path), len(txns))))
		transactions = append(transactions, txns...)
	}

	if dryRun {
		for _, txn := range transactions {
			fmt.Fprintf(out, "  %s  %-30s %10.2f  %s\n",
				txn.Timestamp.Format("2006-01-02"), txn.Merchant, txn.Amount, txn.Category)
		}
		return nil
	}

	a, err := buildApp(cmd.Context(), appCfg)
	if err != nil {
		return err
	}
	defer a.Close()

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := interrupts.HandleInterrupts(cmd.Context(), "Run the same import again; purchases already saved are skipped.")

	var progress func(done, total int)
	if !noProgress {
		bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(transactions), "Classifying")
		progress = cli.ProgressUpdater(bar)
		defer func() { _ = bar.Finish() }()
	}

	stats, err := a.coach.ImportTransactions(ctx, userID, transactions, progress)
	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderImportStats(stats))
	if err != nil && interrupts.WasInterrupted() {
		return nil
	}
	return err
}

func printAccounts(cmd *cobra.Command, parser *ofx.Parser, paths []string) error {
	out := cmd.OutOrStdout()
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return common.NewUserError(fmt.Sprintf("Cannot open %s", path), err)
		}
		accounts, err := parser.GetAccounts(cmd.Context(), f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		fmt.Fprintln(out, cli.FormatInfo(filepath.Base(path)))
		for _, acct := range accounts {
			fmt.Fprintf(out, "  %s\n", acct)
		}
	}
	return nil
}

func parseOFXFile(cmd *cobra.Command, parser *ofx.Parser, path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("Cannot open %s", path), err)
	}
	defer func() { _ = f.Close() }()

	txns, err := parser.ParseFile(cmd.Context(), f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return txns, nil
}
