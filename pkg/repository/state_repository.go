package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/uptrace/bun"
)

type runStateRow struct {
	bun.BaseModel `bun:"table:run_states"`

	ID                    int64      `bun:"id,pk,autoincrement"`
	LastSuccessfulRun     *time.Time `bun:"last_successful_run"`
	TotalPredictions      int        `bun:"total_predictions,notnull"`
	SuccessfulPredictions int        `bun:"successful_predictions,notnull"`
	CreatedAt             time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type stateRepository struct {
	db *bun.DB
}

// NewStateRepository keeps one row per successful run; Load returns the latest.
func NewStateRepository(db *bun.DB) *stateRepository {
	return &stateRepository{db: db}
}

func (s *stateRepository) Save(ctx context.Context, st domain.RunState) error {
	row := &runStateRow{
		LastSuccessfulRun:     st.LastSuccessfulRun,
		TotalPredictions:      st.TotalPredictions,
		SuccessfulPredictions: st.SuccessfulPredictions,
	}

	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("inserting run state: %w", err)
	}
	return nil
}

func (s *stateRepository) Load(ctx context.Context) (domain.RunState, error) {
	var row runStateRow

	err := s.db.NewSelect().
		Model(&row).
		Order("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RunState{}, domain.ErrNotFound
		}
		return domain.RunState{}, fmt.Errorf("fetching run state: %w", err)
	}

	return domain.RunState{
		LastSuccessfulRun:     row.LastSuccessfulRun,
		TotalPredictions:      row.TotalPredictions,
		SuccessfulPredictions: row.SuccessfulPredictions,
	}, nil
}
