package engine

import "errors"

var (
	// ErrNilRepository is returned by New without a repository.
	ErrNilRepository = errors.New("engine: repository is nil")

	// ErrNilScheduler is returned by New without a scheduler.
	ErrNilScheduler = errors.New("engine: scheduler is nil")
)
