package core

import (
	"context"
	"time"
)

// Scheduler defers work and runs blocking work off the session loop. Callbacks
// passed to After and the then continuation of Await run on the session loop.
type Scheduler interface {
	After(d time.Duration, fn func())
	Await(ctx context.Context, work func(context.Context) (string, error), then func(string, error))
}

// SyncScheduler runs everything inline on the caller's goroutine. It is meant for
// headless tests of the controller and router.
type SyncScheduler struct{}

func (SyncScheduler) After(_ time.Duration, fn func()) {
	fn()
}

func (SyncScheduler) Await(ctx context.Context, work func(context.Context) (string, error), then func(string, error)) {
	then(work(ctx))
}
