package keylock

import (
	"context"
	"errors"
)

var ErrNotObtained = errors.New("lock_not_obtained")

// ReleaseFunc releases a lock obtained through Locker.Obtain.
type ReleaseFunc func(ctx context.Context) error

// Locker serializes work on a single key across goroutines and, for the
// redis implementation, across processes.
type Locker interface {
	Obtain(ctx context.Context, key string) (ReleaseFunc, error)
}
