package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/collateral"
	"github.com/sells-group/dealflow-cli/internal/compliance"
	"github.com/sells-group/dealflow-cli/internal/deal"
	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/report"
	"github.com/sells-group/dealflow-cli/internal/store"
)

var (
	runDealPath        string
	runCollectionsPath string
	runRulesPath       string
	runOutPath         string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the waterfall for a single deal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		results, run, err := executeDeal(ctx, st, runDealPath, runCollectionsPath, runRulesPath)
		if err != nil {
			return err
		}

		if runOutPath != "" {
			if err := report.WriteXLSX(runOutPath, run.Deal, results); err != nil {
				return err
			}
			zap.L().Info("report written", zap.String("path", runOutPath))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func init() {
	runCmd.Flags().StringVar(&runDealPath, "deal", "", "deal definition YAML (required)")
	runCmd.Flags().StringVar(&runCollectionsPath, "collections", "", "per-period collateral collections CSV (required)")
	runCmd.Flags().StringVar(&runRulesPath, "rules", "", "compliance rule table YAML")
	runCmd.Flags().StringVar(&runOutPath, "out", "", "write an XLSX report to this path")
	_ = runCmd.MarkFlagRequired("deal")
	_ = runCmd.MarkFlagRequired("collections")
	rootCmd.AddCommand(runCmd)
}

// executeDeal runs one deal end to end and persists every period result.
// A fault fails the stored run with the offending period in its message;
// the error is also returned so callers can decide whether to abort.
func executeDeal(ctx context.Context, st store.Store, dealPath, collectionsPath, rulesPath string) ([]model.PeriodResult, *model.Run, error) {
	dealCfg, err := deal.Load(dealPath)
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := deal.Build(dealCfg)
	if err != nil {
		return nil, nil, err
	}
	pool, err := collateral.ParseCSV(collectionsPath)
	if err != nil {
		return nil, nil, err
	}

	var rules []compliance.Rule
	if rulesPath != "" {
		rules, err = compliance.LoadRules(rulesPath)
		if err != nil {
			return nil, nil, err
		}
	}

	run, err := st.CreateRun(ctx, dealCfg.Name)
	if err != nil {
		return nil, nil, err
	}
	if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning, ""); err != nil {
		return nil, nil, err
	}

	log := zap.L().With(zap.String("deal", dealCfg.Name), zap.String("run", run.ID))
	log.Info("deal run started", zap.Int("periods", dealCfg.Periods))

	results, runErr := ctrl.Run(ctx, pool)

	for i := range results {
		res := &results[i]
		if len(rules) > 0 {
			in, pErr := pool.Period(res.Period)
			if pErr == nil {
				metrics := compliance.PeriodMetrics(res, in.DefaultedBalance, in.RecoveryAmount, in.CollateralParBalance)
				res.Compliance = compliance.Evaluate(rules, metrics)
			}
		}
		if err := st.SavePeriodResult(ctx, run.ID, res); err != nil {
			return results, run, err
		}
	}

	if runErr != nil {
		log.Error("deal run failed", zap.Error(runErr))
		if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed, runErr.Error()); err != nil {
			return results, run, err
		}
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
		run.Periods = len(results)
		return results, run, eris.Wrapf(runErr, "run %s", run.ID)
	}

	if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusComplete, ""); err != nil {
		return results, run, err
	}
	run.Status = model.RunStatusComplete
	run.Periods = len(results)
	return results, run, nil
}
