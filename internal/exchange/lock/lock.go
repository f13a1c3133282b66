// Package lock serializes cycle generation per cycle key.
package lock

import "context"

// Release gives a held lock back.
type Release func(ctx context.Context) error

// Locker hands out exclusive locks by name.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}
