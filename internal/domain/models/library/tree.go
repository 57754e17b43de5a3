package library

// TreeSnapshot is one emission of a live tree view.
type TreeSnapshot struct {
	FolderID   *string      `json:"folderId"`
	Generation uint64       `json:"generation"`
	Folder     *Folder      `json:"folder,omitempty"` // active folder, nil at root
	Folders    []Folder     `json:"folders"`
	Files      []FileRecord `json:"files"`
}

// SearchResult is the filtered projection of a loaded snapshot.
type SearchResult struct {
	Query        string       `json:"query"`
	SearchActive bool         `json:"searchActive"`
	Folders      []Folder     `json:"folders"`
	Files        []FileRecord `json:"files"`
}
