// Package state loads and persists the incremental-run checkpoint. Backend
// failures never abort a run: they are logged and the default state is used.
package state

import (
	"context"
	"errors"
	"log/slog"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/logger"
)

type Backend interface {
	Load(ctx context.Context) (domain.RunState, error)
	Save(ctx context.Context, st domain.RunState) error
}

type Store struct {
	backend Backend
}

func NewStore(b Backend) *Store {
	return &Store{backend: b}
}

func (s *Store) Load(ctx context.Context) domain.RunState {
	st, err := s.backend.Load(ctx)
	switch {
	case err == nil:
		return st
	case errors.Is(err, domain.ErrNotFound):
		slog.InfoContext(ctx, "no saved state found, starting fresh")
	default:
		slog.WarnContext(ctx, "could not load state, starting fresh", logger.Err(err))
	}
	return domain.RunState{}
}

// Save reports whether the state was persisted.
func (s *Store) Save(ctx context.Context, st domain.RunState) bool {
	if err := s.backend.Save(ctx, st); err != nil {
		slog.WarnContext(ctx, "could not save state", logger.Err(err))
		return false
	}
	return true
}
