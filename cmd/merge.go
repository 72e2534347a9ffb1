package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gigboard/directory-cli/internal/model"
	"github.com/gigboard/directory-cli/internal/quality"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge duplicate groups into their most complete record",
	Long:  "Clusters the directory, keeps the most complete record of each duplicate group, backfills its missing fields from the others, and deletes the rest. Use --dry-run to preview the groups without changing anything.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("scan"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		companies, err := st.ListCompanies(ctx)
		if err != nil {
			return eris.Wrap(err, "merge: list companies")
		}

		threshold, _ := cmd.Flags().GetFloat64("threshold")
		if threshold == 0 {
			threshold = cfg.Quality.DuplicateThreshold
		}

		dupes := quality.NewClusterer(threshold).Cluster(companies)

		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			zap.L().Info("dry run, no changes applied",
				zap.Int("groups", len(dupes.DuplicateGroups)),
			)
			return writeReport(dupes)
		}

		report := quality.NewMerger(st).MergeAll(ctx, dupes.DuplicateGroups)

		zap.L().Info("merge complete",
			zap.Int("merged_groups", report.MergedGroups),
			zap.Int("deleted_companies", report.DeletedCompanies),
			zap.Int("failed_groups", len(report.FailedGroups)),
		)

		if save, _ := cmd.Flags().GetBool("save"); save {
			if _, err := saveScanRun(ctx, st, model.ScanMerge, dupes.TotalCompanies, report); err != nil {
				return eris.Wrap(err, "merge: save scan run")
			}
		}

		return writeReport(report)
	},
}

func init() {
	mergeCmd.Flags().Float64("threshold", 0, "similarity threshold for grouping (default from config)")
	mergeCmd.Flags().Bool("dry-run", false, "report the duplicate groups without merging")
	mergeCmd.Flags().Bool("save", false, "persist the report as a scan run")
	rootCmd.AddCommand(mergeCmd)
}
