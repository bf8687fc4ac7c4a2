package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealflow-cli/internal/report"
	"github.com/sells-group/dealflow-cli/internal/store"
)

var (
	batchDir         string
	batchRulesPath   string
	batchOutDir      string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the waterfall for every deal in a directory",
	Long:  "Each subdirectory of --deals holds one deal: a deal.yaml definition and a collections.csv of per-period collateral inputs. Deals run concurrently; one deal's fault never aborts its siblings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		dirs, err := dealDirs(batchDir)
		if err != nil {
			return err
		}
		concurrency := cfg.Batch.MaxConcurrentDeals
		if batchConcurrency > 0 {
			concurrency = batchConcurrency
		}
		return processBatch(ctx, st, dirs, concurrency)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "deals", "", "directory of deal subdirectories (required)")
	batchCmd.Flags().StringVar(&batchRulesPath, "rules", "", "compliance rule table YAML applied to every deal")
	batchCmd.Flags().StringVar(&batchOutDir, "out", "", "write one XLSX report per deal into this directory")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max deals in flight (default from config)")
	_ = batchCmd.MarkFlagRequired("deals")
	rootCmd.AddCommand(batchCmd)
}

// dealDirs returns the subdirectories of root that contain a deal.yaml.
func dealDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read deals directory %s", root)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, "deal.yaml")); err == nil {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		return nil, eris.Errorf("batch: no deal directories under %s", root)
	}
	return dirs, nil
}

// processBatch runs each deal directory concurrently. Individual deal
// faults are recorded against their run and logged, not propagated.
func processBatch(ctx context.Context, st store.Store, dirs []string, concurrency int) error {
	zap.L().Info("processing batch",
		zap.Int("deals", len(dirs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, dir := range dirs {
		g.Go(func() error {
			log := zap.L().With(zap.String("dir", dir))

			results, run, err := executeDeal(gctx,
				st,
				filepath.Join(dir, "deal.yaml"),
				filepath.Join(dir, "collections.csv"),
				batchRulesPath,
			)
			if err != nil {
				failed.Add(1)
				log.Error("deal failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			if batchOutDir != "" {
				out := filepath.Join(batchOutDir, run.Deal+".xlsx")
				if rErr := report.WriteXLSX(out, run.Deal, results); rErr != nil {
					log.Warn("report write failed", zap.Error(rErr))
				}
			}

			succeeded.Add(1)
			log.Info("deal complete",
				zap.String("deal", run.Deal),
				zap.Int("periods", run.Periods),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}
