package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gigboard/directory-cli/internal/directory"
)

var importCSVPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import company listings from CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		companies, err := directory.ParseCSV(importCSVPath)
		if err != nil {
			return eris.Wrap(err, "import csv")
		}
		if len(companies) == 0 {
			zap.L().Warn("no importable rows found", zap.String("csv", importCSVPath))
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		imported, err := st.ImportCompanies(ctx, companies)
		if err != nil {
			return eris.Wrap(err, "import companies")
		}

		zap.L().Info("import complete",
			zap.Int64("imported", imported),
			zap.String("csv", importCSVPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
