package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	listenRetryMin = time.Second
	listenRetryMax = 30 * time.Second
)

// Listen relays change notifications from other writers into local live
// queries until ctx is done. It reconnects with capped backoff.
func (s *DocumentStore) Listen(ctx context.Context) {
	var backoff time.Duration
	for {
		connected, err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		backoff = nextBackoff(backoff, connected)
		s.logger.Warn("change listener disconnected", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

// nextBackoff doubles prev up to listenRetryMax. A session that got as far
// as waiting for notifications starts over from listenRetryMin.
func nextBackoff(prev time.Duration, connected bool) time.Duration {
	if connected || prev < listenRetryMin {
		return listenRetryMin
	}
	return min(prev*2, listenRetryMax)
}

// listenOnce reports whether LISTEN succeeded before the session ended.
func (s *DocumentStore) listenOnce(ctx context.Context) (bool, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	channel := pgx.Identifier{s.tables.Channel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return false, err
	}
	s.logger.Info("listening for document changes", "channel", s.tables.Channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return true, err
		}
		s.hub.Publish(n.Payload)
	}
}
