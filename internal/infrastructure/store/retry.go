package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// maxAppendAttempts bounds how often an append may lose the race for the next version.
const maxAppendAttempts = 10

// appendWithRetry runs try until it succeeds, fails with an error conflict does
// not accept, or runs out of attempts. Retries back off with jitter so the
// losers of one race do not collide again.
func appendWithRetry(ctx context.Context, conflict func(error) bool, try func() error) error {
	var err error
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		if err = try(); err == nil || !conflict(err) {
			return err
		}
		backoff := time.Duration(attempt+1) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + time.Duration(rand.Int63n(int64(backoff)))):
		}
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}
