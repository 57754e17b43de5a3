package library

import (
	"time"
)

// Collaborator is one entry of a folder's share list.
type Collaborator struct {
	UserID string `json:"userId" doc:"userId"`
	Email  string `json:"email" doc:"email"`
	Role   Role   `json:"role" doc:"role"`
}

type Folder struct {
	ID             string         `json:"id" doc:"-"`
	Name           string         `json:"name" doc:"name"`
	ParentFolderID *string        `json:"parentFolderId" doc:"parentFolderId"` // nil = root level
	OwnerUserID    string         `json:"ownerUserId" doc:"ownerUserId"`
	IsShared       bool           `json:"isShared" doc:"isShared"`
	SharedWith     []Collaborator `json:"sharedWith" doc:"sharedWith"`
	CreatedBy      string         `json:"createdBy,omitempty" doc:"createdBy"`
	CreatedAt      time.Time      `json:"createdAt" doc:"createdAt"`
	Files          []FileRecord   `json:"files,omitempty" doc:"-"` // computed on load, never stored
}

// Collaborator returns the share entry for userID, if any.
func (f *Folder) Collaborator(userID string) (Collaborator, bool) {
	for _, c := range f.SharedWith {
		if c.UserID == userID {
			return c, true
		}
	}
	return Collaborator{}, false
}

// Data encodes the folder for the document store. isShared is derived from
// the share list and sharedWithUserIds is kept as a query index.
func (f *Folder) Data() map[string]any {
	shared := make([]any, 0, len(f.SharedWith))
	userIDs := make([]any, 0, len(f.SharedWith))
	for _, c := range f.SharedWith {
		shared = append(shared, map[string]any{
			"userId": c.UserID,
			"email":  c.Email,
			"role":   string(c.Role),
		})
		userIDs = append(userIDs, c.UserID)
	}
	return map[string]any{
		"name":              f.Name,
		"parentFolderId":    nullable(f.ParentFolderID),
		"ownerUserId":       f.OwnerUserID,
		"isShared":          len(f.SharedWith) > 0,
		"sharedWith":        shared,
		"sharedWithUserIds": userIDs,
		"createdBy":         f.CreatedBy,
		"createdAt":         f.CreatedAt.UnixMilli(),
	}
}

// DecodeFolder builds a Folder from a stored document.
func DecodeFolder(id string, data map[string]any) (*Folder, error) {
	var f Folder
	if err := decode(data, &f); err != nil {
		return nil, err
	}
	f.ID = id
	f.IsShared = len(f.SharedWith) > 0
	return &f, nil
}
