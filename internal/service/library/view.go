package library

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	models "scorelib/internal/domain/models/library"
	libsvc "scorelib/internal/domain/services/library"
)

var errViewClosed = errors.New("view closed")

// View follows one user's position in the library tree. Every Navigate opens
// a new live subscription tagged with a generation number and cancels the
// previous one; snapshots carrying an older generation are discarded.
type View struct {
	loader libsvc.TreeLoader
	userID string
	logger *slog.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current *models.TreeSnapshot
	updates chan models.TreeSnapshot
	closed  bool
}

func NewView(loader libsvc.TreeLoader, userID string, logger *slog.Logger) *View {
	return &View{
		loader:  loader,
		userID:  userID,
		logger:  logger,
		updates: make(chan models.TreeSnapshot, 1),
	}
}

// Navigate switches the view to folderID (nil for root).
func (v *View) Navigate(ctx context.Context, folderID *string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return errViewClosed
	}
	if v.cancel != nil {
		v.cancel()
	}
	v.gen++
	gen := v.gen
	v.current = nil
	lctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.mu.Unlock()

	ch, err := v.loader.Load(lctx, v.userID, folderID)
	if err != nil {
		cancel()
		return err
	}

	v.logger.Debug("view navigated", "user_id", v.userID, "folder_id", folderID, "generation", gen)
	go func() {
		for snap := range ch {
			if !v.apply(gen, snap) {
				v.logger.Debug("stale snapshot dropped", "user_id", v.userID, "generation", gen)
			}
		}
	}()
	return nil
}

// apply publishes snap if gen is still the current generation.
func (v *View) apply(gen uint64, snap models.TreeSnapshot) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || gen != v.gen {
		return false
	}
	snap.Generation = gen
	v.current = &snap
	sendLatest(v.updates, snap)
	return true
}

// Current returns the last applied snapshot, or nil before the first one.
func (v *View) Current() *models.TreeSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == nil {
		return nil
	}
	snap := *v.current
	return &snap
}

// Updates delivers applied snapshots, latest first. It is closed by Close.
func (v *View) Updates() <-chan models.TreeSnapshot {
	return v.updates
}

func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	if v.cancel != nil {
		v.cancel()
	}
	close(v.updates)
}
