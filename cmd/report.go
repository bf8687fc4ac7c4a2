package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/report"
)

var (
	reportRunID   string
	reportOutPath string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export a persisted run as an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, reportRunID)
		if err != nil {
			return eris.Wrap(err, "report")
		}
		results, err := st.ListPeriodResults(ctx, reportRunID)
		if err != nil {
			return eris.Wrap(err, "report")
		}

		if err := report.WriteXLSX(reportOutPath, run.Deal, results); err != nil {
			return err
		}

		zap.L().Info("report written",
			zap.String("run", run.ID),
			zap.String("deal", run.Deal),
			zap.String("path", reportOutPath),
		)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run ID to export (required)")
	reportCmd.Flags().StringVar(&reportOutPath, "out", "", "output XLSX path (required)")
	_ = reportCmd.MarkFlagRequired("run")
	_ = reportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(reportCmd)
}
