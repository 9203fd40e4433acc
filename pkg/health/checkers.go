package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when the process runs more than threshold
// goroutines.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// Pinger is implemented by pgxpool.Pool and the redis cart store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck fails when p cannot be reached.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// StateFunc reports a component's state as a string plus whether it is
// usable.
type StateFunc func() (state string, ok bool)

// StateCheck fails while state reports the component unusable.
func StateCheck(state StateFunc) CheckFunc {
	return func(context.Context) error {
		if s, ok := state(); !ok {
			return errors.Errorf("state is %s", s)
		}
		return nil
	}
}
