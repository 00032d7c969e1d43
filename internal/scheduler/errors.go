package scheduler

import "errors"

var (
	// ErrNoCapacity is returned by Start when MaxCapacity tasks are running.
	ErrNoCapacity = errors.New("scheduler: no remaining capacity")

	// ErrClosed is returned by Start after Shutdown was called.
	ErrClosed = errors.New("scheduler: closed")

	// ErrInvalidCapacity is returned when a capacity is outside
	// MinCapacity..MaxCapacityLimit.
	ErrInvalidCapacity = errors.New("scheduler: invalid capacity")

	// ErrNilCrawlFunc is returned by New without a crawl function.
	ErrNilCrawlFunc = errors.New("scheduler: crawl function is nil")
)
