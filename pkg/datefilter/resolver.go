// Package datefilter turns user date expressions into absolute bounds and
// applies them to prediction records.
package datefilter

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/samber/lo"
)

const (
	// SinceBuffer widens the lower bound to absorb clock and boundary skew.
	SinceBuffer = time.Second

	// QueryTimeLayout matches the millisecond ISO-8601 form the API accepts.
	QueryTimeLayout = "2006-01-02T15:04:05.000Z07:00"

	day = 24 * time.Hour
)

// month and year are fixed approximations, not calendar arithmetic.
var unitDurations = map[string]time.Duration{
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    day,
	"week":   7 * day,
	"month":  30 * day,
	"year":   365 * day,
}

var relativePattern = regexp.MustCompile(`^(\d+)\s*(minute|hour|day|week|month|year)s?\s+ago$`)

var absoluteLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	"2006/01/02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC850,
	time.ANSIC,
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

type Resolver struct {
	now func() time.Time
}

// NewResolver returns a resolver reading the current time from now.
// A nil now falls back to time.Now.
func NewResolver(now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{now: now}
}

// Resolve parses "yesterday", "<n> <unit> ago" or an absolute date.
func (r *Resolver) Resolve(expr string) (time.Time, error) {
	input := strings.ToLower(strings.TrimSpace(expr))
	if input == "" {
		return time.Time{}, fmt.Errorf("%w: empty expression", domain.ErrInvalidDateExpression)
	}

	now := r.now().UTC()

	if input == "yesterday" {
		return now.Add(-day), nil
	}

	if m := relativePattern.FindStringSubmatch(input); m != nil {
		amount, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil && amount > 0 {
			return now.Add(-time.Duration(amount) * unitDurations[m[2]]), nil
		}
	}

	raw := strings.TrimSpace(expr)
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf(
		"%w: %q, use formats like \"2024-01-15\", \"2024-01-15T10:30:00Z\" or \"2 days ago\"",
		domain.ErrInvalidDateExpression, expr)
}

// ComputeBounds normalizes a filter against the persisted state. With LastRun
// set and a previous run recorded, the lower bound is that run's timestamp;
// otherwise it comes from Since. The lower bound is shifted back by
// SinceBuffer.
func (r *Resolver) ComputeBounds(filter domain.DateFilter, state domain.RunState) (domain.Bounds, error) {
	var bounds domain.Bounds

	var since *time.Time
	switch {
	case filter.LastRun && state.LastSuccessfulRun != nil:
		since = lo.ToPtr(state.LastSuccessfulRun.UTC())
	case filter.Since != "":
		t, err := r.Resolve(filter.Since)
		if err != nil {
			return domain.Bounds{}, fmt.Errorf("resolving since: %w", err)
		}
		since = &t
	}
	if since != nil {
		bounds.Since = lo.ToPtr(since.Add(-SinceBuffer))
	}

	if filter.Until != "" {
		t, err := r.Resolve(filter.Until)
		if err != nil {
			return domain.Bounds{}, fmt.Errorf("resolving until: %w", err)
		}
		bounds.Until = &t
	}

	return bounds, nil
}

// QueryParams renders bounds as the listing endpoint's created_at filters.
func QueryParams(bounds domain.Bounds) url.Values {
	params := url.Values{}
	if bounds.Since != nil {
		params.Set("created_at.gte", bounds.Since.UTC().Format(QueryTimeLayout))
	}
	if bounds.Until != nil {
		params.Set("created_at.lte", bounds.Until.UTC().Format(QueryTimeLayout))
	}
	return params
}

// Filter keeps the records whose timestamp lies within bounds. Records
// without a timestamp are kept. Order is preserved.
func Filter(predictions []domain.Prediction, bounds domain.Bounds) []domain.Prediction {
	if bounds.IsZero() {
		return predictions
	}
	return lo.Filter(predictions, func(p domain.Prediction, _ int) bool {
		return bounds.Contains(p.CreatedAt)
	})
}

// OlderThan reports whether every record of a non-empty page is dated
// strictly before since.
func OlderThan(page []domain.Prediction, since time.Time) bool {
	if len(page) == 0 {
		return false
	}
	return lo.EveryBy(page, func(p domain.Prediction) bool {
		return p.HasTimestamp() && p.CreatedAt.Before(since)
	})
}
