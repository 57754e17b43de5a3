package library

import (
	"strings"

	models "scorelib/internal/domain/models/library"
)

// Filter narrows already loaded folders and files to names containing query,
// ignoring case. A blank query returns the lists unchanged with SearchActive
// unset.
func Filter(folders []models.Folder, files []models.FileRecord, query string) models.SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return models.SearchResult{Folders: folders, Files: files}
	}

	result := models.SearchResult{
		Query:        q,
		SearchActive: true,
		Folders:      []models.Folder{},
		Files:        []models.FileRecord{},
	}
	for _, f := range folders {
		if strings.Contains(strings.ToLower(f.Name), q) {
			result.Folders = append(result.Folders, f)
		}
	}
	for _, f := range files {
		if strings.Contains(strings.ToLower(f.FileName), q) {
			result.Files = append(result.Files, f)
		}
	}
	return result
}
