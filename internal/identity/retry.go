package identity

import (
	"context"
	"time"
)

// withRetry runs fn up to attempts times with a fixed delay between
// tries. Once started a try is not cancelable; the context is only
// consulted between tries. The last error is returned after
// exhaustion.
func withRetry(ctx context.Context, attempts int, delay time.Duration, sleep func(time.Duration), fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			sleep(delay)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
