package library

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	models "scorelib/internal/domain/models/library"
	"scorelib/internal/domain/repositories"
	libsvc "scorelib/internal/domain/services/library"
)

type sourceKind int

const (
	folderSource sourceKind = iota
	fileSource
)

// source is one live query feeding a tree view.
type source struct {
	kind       sourceKind
	collection string
	filters    []repositories.Filter
}

type treeLoader struct {
	locator
	overlays libsvc.OverlayService
	logger   *slog.Logger
}

// NewTreeLoader creates the tree view loader
func NewTreeLoader(store repositories.DocumentStore, overlays libsvc.OverlayService, logger *slog.Logger) libsvc.TreeLoader {
	return &treeLoader{
		locator:  locator{store: store},
		overlays: overlays,
		logger:   logger,
	}
}

func (l *treeLoader) ResolveFolder(ctx context.Context, userID string, folderID *string) (*models.Folder, error) {
	return l.resolveFolder(ctx, userID, folderID)
}

// sources lists the queries for a tree position. Folder sources are ordered
// so that ownership-sourced folders come first and win de-duplication.
func sources(userID string, folder *models.Folder) []source {
	switch {
	case folder == nil:
		return []source{
			{folderSource, privateFolders(userID), []repositories.Filter{
				repositories.Where("parentFolderId", nil),
			}},
			{folderSource, foldersCollection, []repositories.Filter{
				repositories.Where("ownerUserId", userID),
				repositories.Where("parentFolderId", nil),
			}},
			{folderSource, foldersCollection, []repositories.Filter{
				repositories.ArrayContains("sharedWithUserIds", userID),
				repositories.Where("parentFolderId", nil),
			}},
			{fileSource, privateFiles(userID), []repositories.Filter{
				repositories.Where("parentFolderId", nil),
			}},
		}
	case folder.IsShared:
		return []source{
			{folderSource, foldersCollection, []repositories.Filter{
				repositories.Where("parentFolderId", folder.ID),
			}},
			{fileSource, sharedFiles(folder.ID), nil},
		}
	default:
		return []source{
			{folderSource, privateFolders(folder.OwnerUserID), []repositories.Filter{
				repositories.Where("parentFolderId", folder.ID),
			}},
			{fileSource, privateFiles(folder.OwnerUserID), []repositories.Filter{
				repositories.Where("parentFolderId", folder.ID),
			}},
		}
	}
}

type sourceUpdate struct {
	index int
	docs  []repositories.Document
}

// Load subscribes to every source of the position and emits a merged,
// grouped snapshot once all of them have reported.
func (l *treeLoader) Load(ctx context.Context, userID string, folderID *string) (<-chan models.TreeSnapshot, error) {
	folder, err := l.resolveFolder(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}
	if err := authorize("view", userID, folder, models.RoleViewer); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	srcs := sources(userID, folder)
	updates := make(chan sourceUpdate)
	for i, src := range srcs {
		ch, err := l.store.Subscribe(ctx, src.collection, src.filters...)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("subscribe %s: %w", src.collection, err)
		}
		go forward(ctx, i, ch, updates)
	}

	out := make(chan models.TreeSnapshot, 1)
	go l.run(ctx, cancel, userID, folder, srcs, updates, out)
	return out, nil
}

func forward(ctx context.Context, index int, in <-chan []repositories.Document, out chan<- sourceUpdate) {
	for docs := range in {
		select {
		case out <- sourceUpdate{index: index, docs: docs}:
		case <-ctx.Done():
			return
		}
	}
}

// run owns the merged state of one live view.
func (l *treeLoader) run(
	ctx context.Context,
	cancel context.CancelFunc,
	userID string,
	folder *models.Folder,
	srcs []source,
	updates <-chan sourceUpdate,
	out chan models.TreeSnapshot,
) {
	defer close(out)
	defer cancel()

	latest := make([][]repositories.Document, len(srcs))
	seen := make([]bool, len(srcs))
	pending := len(srcs)

	shared := folder != nil && folder.IsShared
	refresh := make(chan struct{}, 1)
	watchers := newOverlayWatchers(l.store, refresh)
	defer watchers.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			latest[u.index] = u.docs
			if !seen[u.index] {
				seen[u.index] = true
				pending--
			}
		case <-refresh:
		}
		if pending > 0 {
			continue
		}

		snap, err := l.build(ctx, userID, folder, srcs, latest)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Warn("tree snapshot failed", "user_id", userID, "error", err)
			continue
		}
		if shared {
			watchers.sync(ctx, snap.Files)
		}
		sendLatest(out, *snap)
	}
}

func (l *treeLoader) build(
	ctx context.Context,
	userID string,
	folder *models.Folder,
	srcs []source,
	latest [][]repositories.Document,
) (*models.TreeSnapshot, error) {
	var folders []models.Folder
	var files []models.FileRecord
	seen := make(map[string]bool)

	for i, src := range srcs {
		for _, doc := range latest[i] {
			switch src.kind {
			case folderSource:
				if seen[doc.ID] {
					continue
				}
				f, err := models.DecodeFolder(doc.ID, doc.Data)
				if err != nil {
					return nil, fmt.Errorf("folder %s: %w", doc.Path, err)
				}
				seen[doc.ID] = true
				folders = append(folders, *f)
			case fileSource:
				r, err := models.DecodeFileRecord(doc.ID, doc.Data)
				if err != nil {
					return nil, fmt.Errorf("file %s: %w", doc.Path, err)
				}
				files = append(files, *r)
			}
		}
	}

	if folder != nil && folder.IsShared && len(files) > 0 {
		ids := make([]string, len(files))
		for i := range files {
			ids[i] = files[i].ID
		}
		patches, err := l.overlays.GetOverlays(ctx, ids, userID)
		if err != nil {
			return nil, err
		}
		for i := range files {
			files[i].ApplyOverlay(patches[files[i].ID].Resolve())
		}
	}

	snap := &models.TreeSnapshot{}
	if folder != nil {
		id := folder.ID
		snap.FolderID = &id
		active := *folder
		snap.Folder = &active
	}
	snap.Folders, snap.Files = GroupFiles(folders, files, snap.Folder)
	return snap, nil
}

// Snapshot reads the current view once, surfacing store errors directly.
func (l *treeLoader) Snapshot(ctx context.Context, userID string, folderID *string) (*models.TreeSnapshot, error) {
	folder, err := l.resolveFolder(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}
	if err := authorize("view", userID, folder, models.RoleViewer); err != nil {
		return nil, err
	}

	srcs := sources(userID, folder)
	latest := make([][]repositories.Document, len(srcs))
	for i, src := range srcs {
		docs, err := l.store.Query(ctx, src.collection, src.filters...)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", src.collection, err)
		}
		latest[i] = docs
	}
	return l.build(ctx, userID, folder, srcs, latest)
}

// GroupFiles sorts both lists and attaches to every folder the files whose
// parentFolderId is that folder's id. The input slices are not modified;
// active, if given, gets its Files set in place. Grouping an already grouped
// result yields the same output.
func GroupFiles(folders []models.Folder, files []models.FileRecord, active *models.Folder) ([]models.Folder, []models.FileRecord) {
	outFiles := make([]models.FileRecord, len(files))
	copy(outFiles, files)
	sort.SliceStable(outFiles, func(i, j int) bool {
		a, b := outFiles[i], outFiles[j]
		if !a.UploadedAt.Equal(b.UploadedAt) {
			return a.UploadedAt.Before(b.UploadedAt)
		}
		return a.ID < b.ID
	})

	byParent := make(map[string][]models.FileRecord)
	for _, f := range outFiles {
		if f.ParentFolderID != nil {
			byParent[*f.ParentFolderID] = append(byParent[*f.ParentFolderID], f)
		}
	}

	outFolders := make([]models.Folder, len(folders))
	copy(outFolders, folders)
	sort.SliceStable(outFolders, func(i, j int) bool {
		a, b := outFolders[i], outFolders[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	for i := range outFolders {
		outFolders[i].Files = cloneFiles(byParent[outFolders[i].ID])
	}
	if active != nil {
		active.Files = cloneFiles(byParent[active.ID])
	}
	return outFolders, outFiles
}

func cloneFiles(files []models.FileRecord) []models.FileRecord {
	out := make([]models.FileRecord, len(files))
	copy(out, files)
	return out
}

// sendLatest replaces an unread snapshot with snap. out has a single writer.
func sendLatest(out chan models.TreeSnapshot, snap models.TreeSnapshot) {
	select {
	case out <- snap:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	out <- snap
}

// overlayWatchers re-triggers a shared view when any overlay of a listed
// file changes.
type overlayWatchers struct {
	store   repositories.DocumentStore
	refresh chan struct{}
	cancels map[string]context.CancelFunc
}

func newOverlayWatchers(store repositories.DocumentStore, refresh chan struct{}) *overlayWatchers {
	return &overlayWatchers{
		store:   store,
		refresh: refresh,
		cancels: make(map[string]context.CancelFunc),
	}
}

func (w *overlayWatchers) sync(ctx context.Context, files []models.FileRecord) {
	keep := make(map[string]bool, len(files))
	for _, f := range files {
		keep[f.ID] = true
		if _, ok := w.cancels[f.ID]; ok {
			continue
		}
		wctx, cancel := context.WithCancel(ctx)
		ch, err := w.store.Subscribe(wctx, overlays(f.ID))
		if err != nil {
			cancel()
			continue
		}
		w.cancels[f.ID] = cancel
		// The initial result also triggers a rebuild so a write landing
		// between the overlay read and this subscription is not missed.
		go w.watch(ch)
	}
	for id, cancel := range w.cancels {
		if !keep[id] {
			cancel()
			delete(w.cancels, id)
		}
	}
}

func (w *overlayWatchers) watch(ch <-chan []repositories.Document) {
	for range ch {
		select {
		case w.refresh <- struct{}{}:
		default:
		}
	}
}

func (w *overlayWatchers) stop() {
	for id, cancel := range w.cancels {
		cancel()
		delete(w.cancels, id)
	}
}
