package service

import (
	"errors"

	"github.com/samwel-gachiri/digital-sales-agent/internal/adapters/repository"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/model"
)

// Sentinel kinds returned by Service methods.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrBackpressure    = errors.New("scoring queue is full")
	ErrBatchTooLarge   = errors.New("batch too large")
	ErrUnknownCategory = errors.New("unknown category")

	ErrNotFound        = repository.ErrNotFound
	ErrConflict        = repository.ErrConflict
	ErrInvalidLimit    = repository.ErrInvalidLimit
	ErrInvalidProspect = model.ErrInvalidProspect
)
