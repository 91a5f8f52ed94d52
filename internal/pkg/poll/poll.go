// Package poll implements bounded wait loops for asynchronous upstream jobs.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrTimeout = errors.New("poll: attempts exhausted")

type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

// CheckFunc reports whether the awaited job has finished. Returning an error
// stops polling immediately and Until returns that error unchanged.
type CheckFunc func(ctx context.Context, attempt int) (done bool, err error)

// Until waits Interval before every check and gives up after MaxAttempts
// checks with an error wrapping ErrTimeout. Context cancellation is returned
// as ctx.Err().
func Until(ctx context.Context, cfg Config, check CheckFunc) error {
	max := cfg.MaxAttempts
	if max <= 0 {
		max = 1
	}
	for attempt := 1; attempt <= max; attempt++ {
		if err := sleep(ctx, cfg.Interval); err != nil {
			return err
		}
		done, err := check(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrTimeout, max)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
