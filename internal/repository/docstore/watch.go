package docstore

import (
	"context"
	"log/slog"

	"scorelib/internal/domain/repositories"
)

// QueryFn runs a one-shot query for a live subscription.
type QueryFn func(ctx context.Context) ([]repositories.Document, error)

// Watch turns a one-shot query into a live stream driven by hub signals for
// collection. The first result is computed before Watch returns so that a
// failing store surfaces to the subscriber. Emissions are latest-wins: a slow
// reader only ever sees the newest result.
func Watch(ctx context.Context, hub *Hub, collection string, query QueryFn, logger *slog.Logger) (<-chan []repositories.Document, error) {
	signals, unsubscribe := hub.Subscribe(collection)

	first, err := query(ctx)
	if err != nil {
		unsubscribe()
		return nil, err
	}

	out := make(chan []repositories.Document, 1)
	out <- first

	go func() {
		defer close(out)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-signals:
				docs, err := query(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Warn("live query failed", "collection", collection, "error", err)
					continue
				}
				replaceLatest(out, docs)
			}
		}
	}()

	return out, nil
}

// replaceLatest sends docs, discarding an unread older result. out must have
// a single writer.
func replaceLatest(out chan []repositories.Document, docs []repositories.Document) {
	select {
	case out <- docs:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	out <- docs
}
