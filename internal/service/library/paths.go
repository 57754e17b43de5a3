package library

import (
	"fmt"

	"scorelib/internal/repository/docstore"
)

const (
	usersCollection   = "users"
	foldersCollection = "folders"
	filesCollection   = "files"
	overlaySub        = "userMetadata"
	usageSub          = "usageRecords"
)

func privateFolders(ownerID string) string {
	return docstore.Join(usersCollection, ownerID, foldersCollection)
}

func privateFiles(ownerID string) string {
	return docstore.Join(usersCollection, ownerID, filesCollection)
}

func sharedFiles(folderID string) string {
	return docstore.Join(foldersCollection, folderID, filesCollection)
}

func overlays(fileID string) string {
	return docstore.Join(filesCollection, fileID, overlaySub)
}

func usageRecords(userID string) string {
	return docstore.Join(usersCollection, userID, usageSub)
}

// folderCollection is the namespace holding a folder's subfolders.
func folderCollection(ownerID string, shared bool) string {
	if shared {
		return foldersCollection
	}
	return privateFolders(ownerID)
}

// fileCollection is the namespace holding the files directly inside folder.
// Private files of every depth share one collection per owner; shared files
// are keyed by their direct parent.
func fileCollection(ownerID string, folderID *string, shared bool) string {
	if shared && folderID != nil {
		return sharedFiles(*folderID)
	}
	return privateFiles(ownerID)
}

// contentPath is where a file's bytes live in the content store.
func contentPath(ownerID, fileID string, sharedFolderID *string) string {
	if sharedFolderID != nil {
		return fmt.Sprintf("shared/%s/%s", *sharedFolderID, fileID)
	}
	return fmt.Sprintf("%s/%s", ownerID, fileID)
}
