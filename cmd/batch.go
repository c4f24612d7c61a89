package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/wo-matcher/internal/export"
	"github.com/sells-group/wo-matcher/internal/model"
)

var (
	batchOut   string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Match every billing text file in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		files, err := batchFiles(args[0], cfg.Batch.Pattern, batchLimit)
		if err != nil {
			return err
		}

		env, err := initMatchEnv(ctx, "batch")
		if err != nil {
			return err
		}

		outDir := batchOut
		if outDir == "" {
			outDir = args[0]
		}

		_, err = processBatch(ctx, files, cfg.Batch.MaxConcurrent, outDir, func(ctx context.Context, text string) (*model.MatchingResult, error) {
			res, err := env.Engine.Match(ctx, text, env.Orders, 0)
			if err != nil {
				return nil, err
			}
			return applyThreshold(res, cfg.Matching.ConfidenceThreshold), nil
		})
		return err
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchOut, "out", "", "directory for result files (default: input directory)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 100, "max number of files to process")
	rootCmd.AddCommand(batchCmd)
}

// matchFunc runs one matching pass over text.
type matchFunc func(ctx context.Context, text string) (*model.MatchingResult, error)

// batchSummary counts batch outcomes.
type batchSummary struct {
	Succeeded int64
	Failed    int64
	Rejected  int64
}

// batchFiles lists files in dir matching pattern, sorted, capped at limit.
func batchFiles(dir, pattern string, limit int) ([]string, error) {
	if pattern == "" {
		pattern = "*.txt"
	}
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, eris.Wrap(err, "batch: glob input files")
	}
	sort.Strings(files)
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// resultPath is where the result for input is written.
func resultPath(outDir, input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(outDir, base+".result.json")
}

// processBatch runs match over each file concurrently and writes one result
// file per input. Individual failures never abort the batch.
func processBatch(ctx context.Context, files []string, concurrency int, outDir string, match matchFunc) (batchSummary, error) {
	var summary batchSummary
	if len(files) == 0 {
		zap.L().Info("no billing text files found")
		return summary, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return summary, eris.Wrap(err, "batch: create output directory")
	}

	zap.L().Info("processing batch",
		zap.Int("files", len(files)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed, rejected atomic.Int64

	for _, file := range files {
		g.Go(func() error {
			log := zap.L().With(zap.String("file", file))

			data, err := os.ReadFile(file)
			if err != nil {
				failed.Add(1)
				log.Error("read billing text failed", zap.Error(err))
				return nil
			}

			res, err := match(gctx, string(data))
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				rejected.Add(1)
				log.Warn("billing text rejected", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			out, err := export.Encode(res)
			if err != nil {
				failed.Add(1)
				log.Error("encode result failed", zap.Error(err))
				return nil
			}
			if err := os.WriteFile(resultPath(outDir, file), out, 0o644); err != nil {
				failed.Add(1)
				log.Error("write result failed", zap.Error(err))
				return nil
			}

			if !res.Success {
				failed.Add(1)
				log.Error("matching failed", zap.String("error", res.Error))
				return nil
			}
			succeeded.Add(1)
			log.Info("matching complete",
				zap.Int("matches", res.TotalMatchCount()),
				zap.Int("unmatched", res.UnmatchedCount()),
			)
			return nil
		})
	}

	err := g.Wait()
	summary = batchSummary{
		Succeeded: succeeded.Load(),
		Failed:    failed.Load(),
		Rejected:  rejected.Load(),
	}
	if err != nil {
		return summary, eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", summary.Succeeded),
		zap.Int64("failed", summary.Failed),
		zap.Int64("rejected", summary.Rejected),
	)
	return summary, nil
}
