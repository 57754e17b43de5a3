package library

import (
	"testing"

	"github.com/stretchr/testify/assert"

	models "scorelib/internal/domain/models/library"
)

func TestFilter(t *testing.T) {
	folders := []models.Folder{{ID: "a", Name: "Bach Partitas"}, {ID: "b", Name: "Scales"}}
	files := []models.FileRecord{{ID: "x", FileName: "partita-2.pdf"}, {ID: "y", FileName: "etude.pdf"}}

	tests := []struct {
		name        string
		query       string
		wantActive  bool
		wantFolders []string
		wantFiles   []string
	}{
		{"blank restores all", "   ", false, []string{"a", "b"}, []string{"x", "y"}},
		{"case insensitive", "PARTITA", true, []string{"a"}, []string{"x"}},
		{"trimmed", "  etude ", true, []string{}, []string{"y"}},
		{"no match", "chopin", true, []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(folders, files, tt.query)
			assert.Equal(t, tt.wantActive, got.SearchActive)

			folderIDs := []string{}
			for _, f := range got.Folders {
				folderIDs = append(folderIDs, f.ID)
			}
			fileIDs := []string{}
			for _, f := range got.Files {
				fileIDs = append(fileIDs, f.ID)
			}
			assert.Equal(t, tt.wantFolders, folderIDs)
			assert.Equal(t, tt.wantFiles, fileIDs)
		})
	}
}
