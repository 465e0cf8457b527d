package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/logger"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/organizer"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/report"
	"github.com/samber/lo"
)

type stateStore interface {
	Load(ctx context.Context) domain.RunState
	Save(ctx context.Context, st domain.RunState) bool
}

type boundsComputer interface {
	ComputeBounds(filter domain.DateFilter, state domain.RunState) (domain.Bounds, error)
}

type predictionFetcher interface {
	FetchAll(ctx context.Context, bounds domain.Bounds) []domain.Prediction
}

type metadataWriter interface {
	Write(predictions []domain.Prediction) (string, error)
}

type outputOrganizer interface {
	Run(ctx context.Context, predictions []domain.Prediction) (*organizer.Result, error)
}

type summaryPrinter interface {
	Print(s *domain.Summary)
}

type summaryNotifier interface {
	Notify(ctx context.Context, s *domain.Summary) error
}

type Dependencies struct {
	State     stateStore
	Bounds    boundsComputer
	Fetcher   predictionFetcher
	Metadata  metadataWriter
	Organizer outputOrganizer
	Printer   summaryPrinter

	// Notifier is optional.
	Notifier summaryNotifier
}

type Options struct {
	Filter     domain.DateFilter
	HTMLReport bool
	Now        func() time.Time
}

type Downloader struct {
	deps Dependencies
	opts Options
}

func NewDownloader(deps Dependencies, opts Options) *Downloader {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Downloader{deps: deps, opts: opts}
}

// Run performs one export: fetch, snapshot metadata, download and organize
// outputs, report, and checkpoint the run when anything succeeded. A
// cancelled context is returned as an error and leaves the state untouched.
// Contained failures (a page, a file, an archive, the state backend) are
// logged and counted; only errors that make the export meaningless are
// returned.
func (d *Downloader) Run(ctx context.Context) (*domain.Summary, error) {
	startedAt := d.opts.Now().UTC()

	st := d.deps.State.Load(ctx)
	if d.opts.Filter.LastRun {
		if st.LastSuccessfulRun == nil {
			slog.InfoContext(ctx, "no previous run found, downloading all predictions")
		} else {
			slog.InfoContext(ctx, "using last run date", "since", st.LastSuccessfulRun.Format(time.RFC3339))
		}
	}

	bounds, err := d.deps.Bounds.ComputeBounds(d.opts.Filter, st)
	if err != nil {
		return nil, fmt.Errorf("computing date bounds: %w", err)
	}

	predictions := d.deps.Fetcher.FetchAll(ctx, bounds)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetching predictions: %w", err)
	}

	summary := &domain.Summary{TotalPredictions: len(predictions)}
	summary.Succeeded = countStatus(predictions, domain.PredictionStatusSucceeded)
	summary.Failed = countStatus(predictions, domain.PredictionStatusFailed)
	summary.Canceled = countStatus(predictions, domain.PredictionStatusCanceled)

	if summary.Empty() {
		d.deps.Printer.Print(summary)
		return summary, nil
	}

	summary.MetadataFile, err = d.deps.Metadata.Write(predictions)
	if err != nil {
		return nil, fmt.Errorf("writing metadata: %w", err)
	}
	slog.InfoContext(ctx, "saved metadata", "file", summary.MetadataFile)

	res, err := d.deps.Organizer.Run(ctx, predictions)
	if err != nil {
		return nil, fmt.Errorf("organizing outputs: %w", err)
	}
	if res.Err != nil {
		slog.WarnContext(ctx, "some outputs were not saved", "errors", res.Errors, logger.Err(res.Err))
	}

	summary.BaseDir = res.BaseDir
	summary.ModelCount = res.ModelCount
	summary.Downloaded = res.Downloaded
	summary.Skipped = res.Skipped
	summary.Errors = res.Errors
	summary.Stats = res.Stats
	summary.Archives = res.Archives

	// An interrupted run must not be checkpointed: the next incremental run
	// would skip everything that was never downloaded.
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("organizing outputs: %w", err)
	}

	if d.opts.HTMLReport {
		if path, err := report.WriteHTML(summary, startedAt); err != nil {
			slog.WarnContext(ctx, "could not write html report", logger.Err(err))
		} else {
			slog.InfoContext(ctx, "wrote html report", "file", path)
		}
	}

	if summary.Succeeded > 0 {
		summary.StateSaved = d.deps.State.Save(ctx, domain.RunState{
			LastSuccessfulRun:     &startedAt,
			TotalPredictions:      summary.TotalPredictions,
			SuccessfulPredictions: summary.Succeeded,
		})
	}

	d.deps.Printer.Print(summary)

	if d.deps.Notifier != nil {
		if err := d.deps.Notifier.Notify(ctx, summary); err != nil {
			slog.WarnContext(ctx, "could not send notification", logger.Err(err))
		}
	}

	return summary, nil
}

func countStatus(predictions []domain.Prediction, status domain.PredictionStatus) int {
	return lo.CountBy(predictions, func(p domain.Prediction) bool {
		return p.Status == status
	})
}
