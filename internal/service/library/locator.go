package library

import (
	"context"
	"errors"
	"fmt"

	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
	"scorelib/internal/domain/repositories"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/repository/docstore"
)

// locator finds folders and files in whichever namespace holds them.
type locator struct {
	store repositories.DocumentStore
}

// resolveFolder loads folderID as seen by userID. Shared folders are looked up
// first, then the user's private namespace. Root resolves to nil.
func (l *locator) resolveFolder(ctx context.Context, userID string, folderID *string) (*models.Folder, error) {
	if folderID == nil || *folderID == "" {
		return nil, nil
	}
	for _, collection := range []string{foldersCollection, privateFolders(userID)} {
		doc, err := l.store.Get(ctx, docstore.Join(collection, *folderID))
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return models.DecodeFolder(doc.ID, doc.Data)
	}
	return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", *folderID)}
}

// fileLocation is a file's document path plus the folder that gates it.
type fileLocation struct {
	folder *models.Folder
	path   string
	shared bool
	owner  string
}

func (l *locator) locateFile(ctx context.Context, userID string, ref libsvc.FileRef) (*fileLocation, error) {
	if ref.FileID == "" {
		return nil, &domain.ValidationError{Message: "file id is required"}
	}
	folder, err := l.resolveFolder(ctx, userID, ref.FolderID)
	if err != nil {
		return nil, err
	}
	return fileLocationIn(userID, folder, ref.FileID), nil
}

func fileLocationIn(userID string, folder *models.Folder, fileID string) *fileLocation {
	loc := &fileLocation{folder: folder, owner: userID}
	if folder != nil && folder.IsShared {
		loc.shared = true
		loc.owner = folder.OwnerUserID
		loc.path = docstore.Join(sharedFiles(folder.ID), fileID)
		return loc
	}
	if folder != nil {
		loc.owner = folder.OwnerUserID
	}
	loc.path = docstore.Join(privateFiles(loc.owner), fileID)
	return loc
}

func (l *locator) loadFile(ctx context.Context, loc *fileLocation) (*models.FileRecord, error) {
	doc, err := l.store.Get(ctx, loc.path)
	if err != nil {
		return nil, err
	}
	return models.DecodeFileRecord(doc.ID, doc.Data)
}
