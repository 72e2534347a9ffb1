package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gigboard/directory-cli/internal/model"
	"github.com/gigboard/directory-cli/internal/quality"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Scan the directory for duplicate company listings",
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
			return eris.Wrap(err, "dedupe: list companies")
		}

		threshold, _ := cmd.Flags().GetFloat64("threshold")
		if threshold == 0 {
			threshold = cfg.Quality.DuplicateThreshold
		}

		report := quality.NewClusterer(threshold).Cluster(companies)

		zap.L().Info("duplicate scan complete",
			zap.Int("total", report.TotalCompanies),
			zap.Int("groups", len(report.DuplicateGroups)),
			zap.Int("potential_duplicates", report.PotentialDuplicates),
		)

		if save, _ := cmd.Flags().GetBool("save"); save {
			if _, err := saveScanRun(ctx, st, model.ScanDuplicates, report.TotalCompanies, report); err != nil {
				return eris.Wrap(err, "dedupe: save scan run")
			}
		}

		return writeReport(report)
	},
}

func init() {
	dedupeCmd.Flags().Float64("threshold", 0, "similarity threshold for grouping (default from config)")
	dedupeCmd.Flags().Bool("save", false, "persist the report as a scan run")
	rootCmd.AddCommand(dedupeCmd)
}
