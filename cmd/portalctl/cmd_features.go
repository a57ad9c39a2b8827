package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"bizportal/internal/features"
	"bizportal/internal/repository"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dryRun bool

var migrateFeaturesCmd = &cobra.Command{
	Use:   "migrate-features",
	Short: "Parse legacy feature strings into feature lists",
	Long: `Rewrites every lead and project that still stores its features as one
legacy string (for example "contact-formblogseo") into a list of keywords,
then clears the legacy column.

Use --dry-run to print the parsed result without writing it.`,
	Args: cobra.NoArgs,
	RunE: runMigrateFeatures,
}

func init() {
	migrateFeaturesCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the parsed features without saving")
}

type featureStore interface {
	ListUnmigratedFeatures(ctx context.Context) (map[int]string, error)
	UpdateFeatures(ctx context.Context, id int, features []string) error
}

func runMigrateFeatures(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	stores := []struct {
		table string
		store featureStore
	}{
		{"leads", repository.NewLeadRepository(pool, log)},
		{"projects", repository.NewProjectRepository(pool, log)},
	}

	out := cmd.OutOrStdout()
	for _, s := range stores {
		n, err := migrateFeatures(ctx, s.table, s.store, dryRun, out)
		if err != nil {
			return err
		}
		log.Info("Feature migration finished",
			zap.String("table", s.table),
			zap.Int("rows", n),
			zap.Bool("dry_run", dryRun),
		)
	}
	return nil
}

// migrateFeatures parses every legacy row of one table and reports what it did.
// It returns the number of rows handled.
func migrateFeatures(ctx context.Context, table string, store featureStore, dryRun bool, out io.Writer) (int, error) {
	rows, err := store.ListUnmigratedFeatures(ctx)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", table, err)
	}
	if len(rows) == 0 {
		fmt.Fprintf(out, "%s: nothing to migrate\n", table)
		return 0, nil
	}

	ids := make([]int, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tID\tLEGACY\tFEATURES\n", strings.ToUpper(table))
	for _, id := range ids {
		parsed := features.ParseFeatures(rows[id])
		if !dryRun {
			if err := store.UpdateFeatures(ctx, id, parsed); err != nil {
				tw.Flush()
				return 0, fmt.Errorf("update %s %d: %w", table, id, err)
			}
		}
		fmt.Fprintf(tw, "\t%d\t%s\t%s\n", id, rows[id], strings.Join(parsed, ", "))
	}
	return len(ids), tw.Flush()
}
