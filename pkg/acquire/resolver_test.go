package acquire

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/pkgscout/pkg/descriptor"
	"github.com/fulmenhq/pkgscout/pkg/treehash"
)

var testUUID = uuid.MustParse("7876af07-e0b5-4d0f-8ccc-7be0e97e4a43")

// fixtureRepo creates a local git repository with a small source tree and
// returns its path and the tree hash of its initial commit.
func fixtureRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Example\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "example.txt"), []byte("content\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)

	commitHash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	commit, err := repo.CommitObject(commitHash)
	require.NoError(t, err)

	return dir, commit.TreeHash.String()
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return &Resolver{
		CacheRoot:   filepath.Join(t.TempDir(), "cache"),
		ScratchRoot: t.TempDir(),
		Fetcher:     NewMockHTTPFetcher(),
	}
}

func TestTreeHashAgreesWithGit(t *testing.T) {
	dir, want := fixtureRepo(t)
	got, err := treehash.Hash(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got, "directory hash must equal the commit's tree hash")
}

func TestResolveDev(t *testing.T) {
	dir, _ := fixtureRepo(t)
	r := newTestResolver(t)

	res, err := r.Resolve(context.Background(), descriptor.Dev{Name: "Example", Path: dir})
	require.NoError(t, err)
	assert.True(t, res.Reachable)
	assert.Equal(t, dir, res.Path)
	assert.Zero(t, r.Acquisitions(), "dev resolution must not invoke a strategy")

	res, err = r.Resolve(context.Background(), descriptor.Dev{Name: "Gone", Path: filepath.Join(dir, "missing")})
	require.NoError(t, err)
	assert.False(t, res.Reachable)
}

func TestResolveTrunk(t *testing.T) {
	dir, _ := fixtureRepo(t)
	r := newTestResolver(t)

	res, err := r.Resolve(context.Background(), descriptor.Trunk{RepoURL: dir, Subdir: "src"})
	require.NoError(t, err)
	require.True(t, res.Reachable)
	assert.Equal(t, "src", res.Subdir)
	assert.FileExists(t, filepath.Join(res.Path, "README.md"))

	// Trunk is floating: a second resolve fetches again into a new dir.
	res2, err := r.Resolve(context.Background(), descriptor.Trunk{RepoURL: dir})
	require.NoError(t, err)
	assert.NotEqual(t, res.Path, res2.Path)
	assert.EqualValues(t, 2, r.Acquisitions())
}

func TestResolveTrunkUnreachable(t *testing.T) {
	r := newTestResolver(t)

	res, err := r.Resolve(context.Background(), descriptor.Trunk{RepoURL: filepath.Join(t.TempDir(), "no-such-repo")})
	require.NoError(t, err, "unreachability must not surface as an error")
	assert.False(t, res.Reachable)
}

func TestResolvePinnedFallbackCloneAndReuse(t *testing.T) {
	repoDir, hash := fixtureRepo(t)
	r := newTestResolver(t)

	rel := descriptor.Added{
		Name:     "Example",
		UUID:     testUUID,
		Path:     repoDir,
		TreeHash: hash,
	}

	res, err := r.Resolve(context.Background(), rel)
	require.NoError(t, err)
	require.True(t, res.Reachable)
	assert.FileExists(t, filepath.Join(res.Path, "src", "example.txt"))
	assert.EqualValues(t, 1, r.Acquisitions())

	got, err := treehash.Hash(res.Path)
	require.NoError(t, err)
	assert.Equal(t, hash, got)

	// Second resolve is a pure cache hit: no further strategy invocations.
	res2, err := r.Resolve(context.Background(), rel)
	require.NoError(t, err)
	assert.True(t, res2.Reachable)
	assert.Equal(t, res.Path, res2.Path)
	assert.EqualValues(t, 1, r.Acquisitions())
}

func TestResolvePinnedDepotHit(t *testing.T) {
	repoDir, hash := fixtureRepo(t)
	r := newTestResolver(t)

	// Materialize the exact content in a depot at the shared tail path.
	depot := t.TempDir()
	tail := descriptor.CacheRelPath("Example", testUUID, hash)
	depotCopy := filepath.Join(depot, filepath.FromSlash(tail))
	require.NoError(t, os.MkdirAll(filepath.Join(depotCopy, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(depotCopy, "README.md"), []byte("# Example\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(depotCopy, "src", "example.txt"), []byte("content\n"), 0o644))
	r.Depots = []string{depot}

	res, err := r.Resolve(context.Background(), descriptor.Added{
		Name: "Example", UUID: testUUID, Path: repoDir, TreeHash: hash,
	})
	require.NoError(t, err)
	require.True(t, res.Reachable)
	assert.Equal(t, depotCopy, res.Path)
	assert.Zero(t, r.Acquisitions(), "depot hit must cost zero acquisitions")
}

func TestResolvePinnedCorruptionSelfHeals(t *testing.T) {
	repoDir, hash := fixtureRepo(t)
	r := newTestResolver(t)

	// Pre-populate the destination with content that does not match.
	tail := descriptor.CacheRelPath("Example", testUUID, hash)
	dest := filepath.Join(r.CacheRoot, filepath.FromSlash(tail))
	require.NoError(t, os.MkdirAll(dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "junk.txt"), []byte("corrupt\n"), 0o644))

	res, err := r.Resolve(context.Background(), descriptor.Added{
		Name: "Example", UUID: testUUID, Path: repoDir, TreeHash: hash,
	})
	require.NoError(t, err)
	require.True(t, res.Reachable)

	got, err := treehash.Hash(res.Path)
	require.NoError(t, err)
	assert.Equal(t, hash, got, "re-acquired tree must match the expected hash")
	assert.NoFileExists(t, filepath.Join(dest, "junk.txt"))
	assert.EqualValues(t, 1, r.Acquisitions())
}

func TestResolvePinnedHashMismatchUnreachable(t *testing.T) {
	repoDir, _ := fixtureRepo(t)
	r := newTestResolver(t)

	// Expect a hash the repository does not contain.
	res, err := r.Resolve(context.Background(), descriptor.Added{
		Name:     "Example",
		UUID:     testUUID,
		Path:     repoDir,
		TreeHash: "0123456789abcdef0123456789abcdef01234567",
	})
	require.NoError(t, err)
	assert.False(t, res.Reachable)

	// Nothing half-populated may remain under the cache root.
	entries, err := os.ReadDir(r.CacheRoot)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, "Example", e.Name())
	}
}

func TestResolvePinnedInvalidDescriptor(t *testing.T) {
	r := newTestResolver(t)

	_, err := r.Resolve(context.Background(), descriptor.Added{
		Name:     "Example",
		UUID:     testUUID,
		TreeHash: "not-a-hash",
	})
	assert.Error(t, err, "malformed descriptors are programmer errors, not unreachability")
}

// buildTarball produces a forge-style tar.gz of dir wrapped in a single
// top-level directory.
func buildTarball(t *testing.T, dir, wrapper string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if relPath == "." || relPath == ".git" || strings.HasPrefix(relPath, ".git"+string(filepath.Separator)) {
			return nil
		}
		name := wrapper + "/" + filepath.ToSlash(relPath)
		if info.IsDir() {
			return tw.WriteHeader(&tar.Header{Name: name + "/", Typeflag: tar.TypeDir, Mode: 0o755})
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		hdr := &tar.Header{Name: name, Typeflag: tar.TypeReg, Mode: int64(info.Mode().Perm()), Size: int64(len(data))}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		_, err = tw.Write(data)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestFastPathAndFallbackHashInvariance(t *testing.T) {
	repoDir, hash := fixtureRepo(t)

	// Fast path: a recognized forge URL served by the mock fetcher.
	fast := newTestResolver(t)
	mock := fast.Fetcher.(*MockHTTPFetcher)
	tarURL := "https://api.github.com/repos/example/Example/tarball/" + hash
	mock.AddResponse(tarURL, 200, buildTarball(t, repoDir, "example-Example-"+hash[:7]))

	resFast, err := fast.Resolve(context.Background(), descriptor.Release{
		Name:     "Example",
		UUID:     testUUID,
		RepoURL:  "https://github.com/example/Example.git",
		TreeHash: hash,
		Version:  "1.0.0",
	})
	require.NoError(t, err)
	require.True(t, resFast.Reachable)
	assert.Equal(t, []string{tarURL}, mock.Requests)
	assert.Equal(t, "1.0.0", resFast.Version)

	// Fallback path: unrecognized host forces clone + tree extraction.
	fallback := newTestResolver(t)
	resSlow, err := fallback.Resolve(context.Background(), descriptor.Added{
		Name: "Example", UUID: testUUID, Path: repoDir, TreeHash: hash,
	})
	require.NoError(t, err)
	require.True(t, resSlow.Reachable)

	hFast, err := treehash.Hash(resFast.Path)
	require.NoError(t, err)
	hSlow, err := treehash.Hash(resSlow.Path)
	require.NoError(t, err)
	assert.Equal(t, hFast, hSlow, "both acquisition paths must materialize identical trees")
	assert.Equal(t, hash, hFast)
}

func TestFastPathFailureFallsBackToClone(t *testing.T) {
	// The forge answers 403 (rate limited); the repo URL is not cloneable
	// either, so the package is unreachable but the batch lives on.
	r := newTestResolver(t)
	hash := "0123456789abcdef0123456789abcdef01234567"
	mock := r.Fetcher.(*MockHTTPFetcher)
	mock.AddResponse("https://api.github.com/repos/gone/Gone/tarball/"+hash, 403, nil)

	res, err := r.Resolve(context.Background(), descriptor.Release{
		Name:     "Gone",
		UUID:     testUUID,
		RepoURL:  "https://github.com/gone/Gone",
		TreeHash: hash,
		Version:  "0.1.0",
	})
	require.NoError(t, err)
	assert.False(t, res.Reachable)
	assert.Len(t, mock.Requests, 1, "fast path must have been attempted first")
}

func TestForgeTarballURL(t *testing.T) {
	url, ok := forgeTarballURL("https://github.com/owner/repo.git", "abc123")
	assert.True(t, ok)
	assert.Equal(t, "https://api.github.com/repos/owner/repo/tarball/abc123", url)

	_, ok = forgeTarballURL("https://gitlab.com/owner/repo", "abc123")
	assert.False(t, ok)

	_, ok = forgeTarballURL("/local/path", "abc123")
	assert.False(t, ok)
}
