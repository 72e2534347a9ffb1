package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gigboard/directory-cli/internal/model"
	"github.com/gigboard/directory-cli/internal/quality"
)

var fraudCmd = &cobra.Command{
	Use:   "fraud",
	Short: "Scan the directory for fraud indicators",
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
			return eris.Wrap(err, "fraud: list companies")
		}

		report := quality.NewScanner().Scan(companies)

		zap.L().Info("fraud scan complete",
			zap.Int("total", report.TotalCompanies),
			zap.Int("suspicious", len(report.SuspiciousCompanies)),
			zap.Int("high_risk", report.HighRiskCount),
		)

		if save, _ := cmd.Flags().GetBool("save"); save {
			if _, err := saveScanRun(ctx, st, model.ScanFraud, report.TotalCompanies, report); err != nil {
				return eris.Wrap(err, "fraud: save scan run")
			}
		}

		return writeReport(report)
	},
}

func init() {
	fraudCmd.Flags().Bool("save", false, "persist the report as a scan run")
	rootCmd.AddCommand(fraudCmd)
}
