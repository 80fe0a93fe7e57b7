package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/sharefile-go/internal/journal"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently journaled operations",
		Long: `Show the operations this machine performed against ShareFile, newest
first. Only mutating commands (create, delete, disable, upload) are journaled.`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().String("operation", "", `only show one operation (e.g. "employees.delete")`)
	cmd.Flags().Int("limit", journal.DefaultLimit, "maximum number of entries")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)
	op, _ := cmd.Flags().GetString("operation")
	limit, _ := cmd.Flags().GetInt("limit")

	if !cc.Cfg.Journal {
		return fmt.Errorf("history: the journal is disabled (journal = false or --no-journal)")
	}

	if limit <= 0 {
		return fmt.Errorf("history: --limit must be positive")
	}

	entries, err := listJournal(ctx, cc, journal.Filter{Operation: op, Limit: limit})
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), entries)
	}

	if len(entries) == 0 {
		cc.Statusf("No journaled operations.\n")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{formatTime(e.At), e.Operation, e.Target, string(e.Outcome), e.Detail})
	}

	printTable(cmd.OutOrStdout(), []string{"TIME", "OPERATION", "TARGET", "OUTCOME", "DETAIL"}, rows)

	return nil
}

// listJournal opens the journal without an account session, so history works
// even when credentials are not configured.
func listJournal(ctx context.Context, cc *CLIContext, f journal.Filter) ([]journal.Entry, error) {
	j, err := journal.Open(ctx, cc.Cfg.JournalPath(), cc.Logger)
	if err != nil {
		return nil, err
	}
	defer j.Close()

	return j.List(ctx, f)
}
