// Package fetcher walks the paginated predictions listing.
package fetcher

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/datefilter"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/logger"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/replicate"
	"golang.org/x/time/rate"
)

type pageLister interface {
	PredictionsURL(params url.Values) string
	ListPredictions(ctx context.Context, pageURL string) (*replicate.PredictionsPage, error)
}

type Config struct {
	// RequestDelay is the fixed minimum gap between two page requests.
	RequestDelay time.Duration

	// EarlyStop ends pagination on the first page made only of records older
	// than the lower bound. It relies on the listing being sorted newest
	// first, which the API does not guarantee.
	EarlyStop bool
}

type Fetcher struct {
	lister  pageLister
	cfg     Config
	limiter *rate.Limiter
}

func New(lister pageLister, cfg Config) *Fetcher {
	return &Fetcher{
		lister:  lister,
		cfg:     cfg,
		limiter: NewLimiter(cfg.RequestDelay),
	}
}

// NewLimiter allows one event per interval with no burst; a non-positive
// interval disables throttling.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// FetchAll accumulates every page of the listing and returns the records that
// fall within bounds, in source order. A failed page ends pagination and the
// records gathered so far are returned.
func (f *Fetcher) FetchAll(ctx context.Context, bounds domain.Bounds) []domain.Prediction {
	params := datefilter.QueryParams(bounds)
	encoded := params.Encode()
	if encoded != "" {
		slog.InfoContext(ctx, "applying date filters", "params", encoded)
	}

	var all []domain.Prediction
	nextURL := f.lister.PredictionsURL(params)

	for page := 1; nextURL != ""; page++ {
		if err := f.limiter.Wait(ctx); err != nil {
			slog.WarnContext(ctx, "stopping pagination", "page", page, logger.Err(err))
			break
		}

		slog.InfoContext(ctx, "fetching page", "page", page)
		resp, err := f.lister.ListPredictions(ctx, nextURL)
		if err != nil {
			slog.WarnContext(ctx, "error fetching page, keeping results so far", "page", page, "fetched", len(all), logger.Err(err))
			break
		}

		all = append(all, resp.Results...)
		slog.InfoContext(ctx, "page fetched", "page", page, "count", len(resp.Results), "total", len(all))

		nextURL = withDateParams(resp.Next, encoded)

		if f.cfg.EarlyStop && bounds.Since != nil && datefilter.OlderThan(resp.Results, *bounds.Since) {
			slog.InfoContext(ctx, "reached records older than the lower bound, stopping pagination early", "page", page)
			break
		}
	}

	filtered := datefilter.Filter(all, bounds)
	if !bounds.IsZero() {
		slog.InfoContext(ctx, "applied client-side date filter", "before", len(all), "after", len(filtered))
	}
	slog.InfoContext(ctx, "predictions fetched", "total", len(filtered))

	return filtered
}

// withDateParams re-attaches the date filters to a next link that lost them.
func withDateParams(next, encoded string) string {
	if next == "" || encoded == "" || strings.Contains(next, "created_at") {
		return next
	}
	sep := "?"
	if strings.Contains(next, "?") {
		sep = "&"
	}
	return next + sep + encoded
}
