package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidDateExpression = errors.New("invalid date expression")
	ErrConflictingFilters    = errors.New("--last-run cannot be combined with --since or --until")
)
