package library

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
	"scorelib/internal/domain/repositories"
	"scorelib/internal/repository/docstore"
)

// buildTree creates depth levels of width folders under parent, with files
// in every folder, and returns every folder and file record path created.
func buildTree(t *testing.T, env *testEnv, user string, parent *models.Folder, depth, width, filesPer int) (folders, files []string) {
	t.Helper()
	for i := 0; i < filesPer; i++ {
		rec := env.upload(t, user, fmt.Sprintf("%s-%d.pdf", parent.Name, i), &parent.ID)
		files = append(files, docstore.Join(fileCollection(parent.OwnerUserID, &parent.ID, parent.IsShared), rec.ID))
	}
	if depth == 0 {
		return folders, files
	}
	for i := 0; i < width; i++ {
		child := env.mkdir(t, user, fmt.Sprintf("%s.%d", parent.Name, i), &parent.ID)
		folders = append(folders, folderPath(child))
		f, fl := buildTree(t, env, user, child, depth-1, width, filesPer)
		folders = append(folders, f...)
		files = append(files, fl...)
	}
	return folders, files
}

func TestDeleteFolderRecursively(t *testing.T) {
	for _, shared := range []bool{false, true} {
		t.Run(fmt.Sprintf("shared=%v", shared), func(t *testing.T) {
			env := newTestEnv(t)
			var root *models.Folder
			if shared {
				env.addUser(t, "u2", "u2@example.com")
				root = env.share(t, "u1", "root", map[string]models.Role{"u2": models.RoleEditor})
			} else {
				root = env.mkdir(t, "u1", "root", nil)
			}
			folders, files := buildTree(t, env, "u1", root, 3, 2, 2)
			outside := env.upload(t, "u1", "outside.pdf", nil)

			err := env.engine.DeleteFolderRecursively(context.Background(), "u1", root.ID, shared)
			require.NoError(t, err)

			assert.False(t, env.exists(t, folderPath(root)))
			for _, p := range append(folders, files...) {
				assert.False(t, env.exists(t, p), p)
			}
			assert.True(t, env.exists(t, docstore.Join("users", "u1", "files", outside.ID)))
			assert.Len(t, env.content.blobs, 1)
		})
	}
}

func TestDeleteFolderRecursively_ContinuesPastFailure(t *testing.T) {
	tests := []struct {
		name  string
		stuck func(a, a1 *models.Folder, file string) string
	}{
		{
			name:  "file record",
			stuck: func(_, _ *models.Folder, file string) string { return file },
		},
		{
			name:  "child folder record",
			stuck: func(_, a1 *models.Folder, _ string) string { return folderPath(a1) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fs *failingStore
			env := newTestEnvWith(t, func(s repositories.DocumentStore) repositories.DocumentStore {
				fs = newFailingStore(s)
				return fs
			})
			ctx := context.Background()
			root := env.mkdir(t, "u1", "root", nil)
			a := env.mkdir(t, "u1", "a", &root.ID)
			a1 := env.mkdir(t, "u1", "a1", &a.ID)
			b := env.mkdir(t, "u1", "b", &root.ID)
			deep := env.upload(t, "u1", "deep.pdf", &a1.ID)
			other := env.upload(t, "u1", "other.pdf", &b.ID)
			deepPath := docstore.Join(fileCollection("u1", &a1.ID, false), deep.ID)
			otherPath := docstore.Join(fileCollection("u1", &b.ID, false), other.ID)

			stuck := tt.stuck(a, a1, deepPath)
			fs.failDelete[stuck] = true

			err := env.engine.DeleteFolderRecursively(ctx, "u1", root.ID, false)
			var partial *domain.PartialFailureError
			require.True(t, errors.As(err, &partial))
			assert.Equal(t, []string{stuck}, partial.Paths())
			assert.True(t, errors.Is(err, errInjected))

			assert.True(t, env.exists(t, stuck))
			assert.True(t, env.exists(t, folderPath(a1)))
			assert.True(t, env.exists(t, folderPath(a)))
			assert.True(t, env.exists(t, folderPath(root)))
			assert.False(t, env.exists(t, folderPath(b)))
			assert.False(t, env.exists(t, otherPath))

			delete(fs.failDelete, stuck)
			require.NoError(t, env.engine.DeleteFolderRecursively(ctx, "u1", root.ID, false))
			for _, p := range []string{folderPath(root), folderPath(a), folderPath(a1), deepPath} {
				assert.False(t, env.exists(t, p), p)
			}
		})
	}
}

func TestDeleteFolderRecursively_LargeTreeWithOneFailure(t *testing.T) {
	var fs *failingStore
	env := newTestEnvWith(t, func(s repositories.DocumentStore) repositories.DocumentStore {
		fs = newFailingStore(s)
		return fs
	})
	ctx := context.Background()
	root := env.mkdir(t, "u1", "root", nil)
	folders, files := buildTree(t, env, "u1", root, 2, 3, 2)
	require.NotEmpty(t, files)

	stuck := files[len(files)/2]
	fs.failDelete[stuck] = true

	err := env.engine.DeleteFolderRecursively(ctx, "u1", root.ID, false)
	var partial *domain.PartialFailureError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, []string{stuck}, partial.Paths())
	assert.True(t, env.exists(t, stuck))
	assert.True(t, env.exists(t, folderPath(root)))

	delete(fs.failDelete, stuck)
	require.NoError(t, env.engine.DeleteFolderRecursively(ctx, "u1", root.ID, false))
	for _, p := range append(append(folders, files...), folderPath(root)) {
		assert.False(t, env.exists(t, p), p)
	}
}

func TestDeleteFolderRecursively_EnumerationFailureKeepsAncestors(t *testing.T) {
	var fs *failingStore
	env := newTestEnvWith(t, func(s repositories.DocumentStore) repositories.DocumentStore {
		fs = newFailingStore(s)
		return fs
	})
	env.addUser(t, "u2", "u2@example.com")
	root := env.share(t, "u1", "root", map[string]models.Role{"u2": models.RoleEditor})
	child := env.mkdir(t, "u1", "child", &root.ID)
	sibling := env.mkdir(t, "u1", "sibling", &root.ID)
	env.upload(t, "u1", "deep.pdf", &child.ID)
	fs.failQuery[sharedFiles(child.ID)] = true

	err := env.engine.DeleteFolderRecursively(context.Background(), "u1", root.ID, true)

	var partial *domain.PartialFailureError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, []string{sharedFiles(child.ID)}, partial.Paths())
	assert.True(t, env.exists(t, folderPath(child)))
	assert.True(t, env.exists(t, folderPath(root)))
	assert.False(t, env.exists(t, folderPath(sibling)))
}
