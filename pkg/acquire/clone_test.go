package acquire

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The fallback acquisition path assumes every pinned tree hash is reachable
// from a full clone of the repository. Verify that premise against an
// in-memory clone of a fixture repo.
func TestPinnedTreeReachableFromClone(t *testing.T) {
	dir, hash := fixtureRepo(t)

	repo, err := git.Clone(memory.NewStorage(), memfs.New(), &git.CloneOptions{URL: dir})
	require.NoError(t, err)

	tree, err := repo.TreeObject(plumbing.NewHash(hash))
	require.NoError(t, err, "commit tree must be addressable by its hash")
	assert.Equal(t, hash, tree.Hash.String())

	// Subtrees are addressable too; a registry may pin a package subdirectory.
	seen := false
	for _, entry := range tree.Entries {
		if entry.Mode.IsFile() {
			continue
		}
		_, subErr := repo.TreeObject(entry.Hash)
		require.NoError(t, subErr)
		seen = true
	}
	assert.True(t, seen, "fixture repo should contain at least one subtree")
}
