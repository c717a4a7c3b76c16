package sampledata

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/okian/perfboard/internal/adapters/cache"
	"github.com/okian/perfboard/internal/adapters/repository"
	"github.com/okian/perfboard/internal/domain/model"
	"github.com/okian/perfboard/pkg/logger"
)

// ErrNoData is returned when no source file yielded a record.
var ErrNoData = errors.New("sampledata: no records found")

const loadedBy = "load-sample"

// Run loads the sample sources from config.Dir into store and prints a
// report to out. summaries, when not nil, is invalidated after the write.
func Run(ctx context.Context, config *Config, store repository.Store, summaries cache.SummaryCache, out io.Writer) (*Stats, error) {
	stats := &Stats{}
	log := orNop(config.Logger)

	log.Info(ctx, "starting sample data load",
		logger.String("dir", config.Dir),
		logger.Bool("clear", config.Clear),
		logger.Bool("generate", config.Generate))

	// Step 1: write fixtures when asked
	if config.Generate {
		if err := Generate(ctx, config.Dir, config.Seed, log); err != nil {
			return stats, fmt.Errorf("fixture generation failed: %w", err)
		}
	}

	// Step 2: aggregate the sources
	rows, err := Aggregate(ctx, config.Dir, stats, log)
	if err != nil {
		return stats, fmt.Errorf("aggregation failed: %w", err)
	}
	if len(rows) == 0 {
		return stats, ErrNoData
	}
	if config.Verbose {
		for _, r := range rows {
			log.Debug(ctx, "record",
				logger.String("reference_date", r.ReferenceDate),
				logger.String("department", r.Department),
				logger.Float64("revenue", r.Revenue),
				logger.Int("paper_count", r.PaperCount))
		}
	}

	// Step 3: store
	if config.Clear {
		n, err := store.ClearPerformance(ctx)
		if err != nil {
			return stats, fmt.Errorf("clear failed: %w", err)
		}
		stats.Cleared = n
		log.Info(ctx, "cleared existing records", logger.Int64("count", n))
	}
	entry := &model.UploadLog{
		UploadID:       uuid.NewString(),
		Kind:           model.KindPerformance,
		ReferenceDate:  rows[0].ReferenceDate,
		Filename:       sampleFilename,
		RowCount:       len(rows),
		Status:         model.UploadSuccess,
		UploadedByName: loadedBy,
	}
	if err := store.ReplaceMonths(ctx, rows, entry); err != nil {
		return stats, fmt.Errorf("store failed: %w", err)
	}

	if summaries != nil {
		if err := summaries.Invalidate(ctx); err != nil {
			log.Warn(ctx, "summary cache invalidation failed", logger.Error(err))
		}
	}

	// Step 4: report
	if err := WriteReport(out, stats, rows); err != nil {
		log.Warn(ctx, "failed to write report", logger.Error(err))
	}
	log.Info(ctx, "sample data loaded", logger.Int("records", stats.Records))
	return stats, nil
}
