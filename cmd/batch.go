package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/firm-research/internal/model"
)

var (
	batchFile  string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Research firms from a CSV file",
	Long:  "Reads subjects from a CSV with columns url,name,city,region,country and researches each one. Column order is taken from the header row.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		subjects, err := readSubjectsCSV(batchFile)
		if err != nil {
			return err
		}
		if batchLimit > 0 && len(subjects) > batchLimit {
			subjects = subjects[:batchLimit]
		}
		if len(subjects) == 0 {
			zap.L().Info("batch: no subjects to process")
			return nil
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		return processBatch(ctx, e, subjects, cfg.Batch.MaxConcurrentSubjects)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "CSV file of subjects (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of subjects to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// processBatch researches each subject with bounded concurrency. Each
// subject gets its own pipeline (and scrape chain); one subject's
// fatal failure does not stop the rest.
func processBatch(ctx context.Context, e *env, subjects []model.Subject, maxConcurrent int) error {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	var succeeded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for _, subject := range subjects {
		g.Go(func() error {
			if err := researchOne(gctx, e, subject); err != nil {
				failed.Add(1)
				zap.L().Error("batch: subject failed",
					zap.String("url", subject.URL),
					zap.Error(err),
				)
				return nil // keep going
			}
			succeeded.Add(1)
			return nil
		})
	}

	err := g.Wait()
	zap.L().Info("batch: complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return err
}

func researchOne(ctx context.Context, e *env, subject model.Subject) error {
	run, err := e.store.CreateRun(ctx, subject)
	if err != nil {
		return eris.Wrap(err, "create run")
	}
	if err := e.store.UpdateRunStatus(ctx, run.ID, model.RunStatusDiscovering); err != nil {
		return eris.Wrap(err, "update run status")
	}

	rec, err := e.newPipeline().Run(ctx, subject)
	if err != nil {
		if failErr := e.store.FailRun(ctx, run.ID, err.Error()); failErr != nil {
			zap.L().Error("mark run failed", zap.Error(failErr))
		}
		return err
	}
	return e.store.UpdateRunResult(ctx, run.ID, rec)
}

// readSubjectsCSV parses subjects from a CSV file with a header row.
func readSubjectsCSV(path string) ([]model.Subject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open batch file %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read csv header")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["url"]; !ok {
		return nil, eris.New("batch csv: missing required column: url")
	}

	field := func(record []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var subjects []model.Subject
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read csv record")
		}
		s := model.Subject{
			URL:     field(record, "url"),
			Name:    field(record, "name"),
			Contact: field(record, "contact"),
			City:    field(record, "city"),
			Region:  field(record, "region"),
			Country: field(record, "country"),
		}
		if s.URL == "" {
			continue
		}
		subjects = append(subjects, s)
	}
	return subjects, nil
}
