package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidOptions = errors.New("invalid selection options")
	ErrNotDailyMode   = errors.New("selection is not in daily mode")
)
