package registry_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/pkgscout/pkg/registry"
	"github.com/fulmenhq/pkgscout/pkg/registry/registrytest"
)

var (
	regUUID = uuid.MustParse("23338594-aafe-5451-b93e-139f81909106")
	exUUID  = uuid.MustParse("7876af07-e0b5-4d0f-8ccc-7be0e97e4a43")
	dupUUID = uuid.MustParse("febc3c94-7a21-4f0a-9a3c-6a20b74f0ba1")
)

const (
	hashV1 = "a94a8fe5ccb19ba61c4c0873d391e987982fbbd3"
	hashV2 = "b858cb282617fb0956d960215c8e84d1ccf909c6"
)

func fixtureRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	root := registrytest.Write(t, "General", regUUID, []registrytest.Package{
		{
			Name:    "Example",
			UUID:    exUUID,
			RepoURL: "https://example.com/Example.git",
			Versions: map[string]string{
				"0.9.0":  hashV1,
				"0.10.0": hashV2,
			},
		},
		{
			Name:     "Example",
			UUID:     dupUUID,
			RepoURL:  "https://example.com/other/Example.git",
			Versions: map[string]string{"1.0.0": hashV1},
		},
	})

	reg, err := registry.Load(root)
	require.NoError(t, err)
	return reg
}

func TestLoad(t *testing.T) {
	reg := fixtureRegistry(t)
	assert.Equal(t, "General", reg.Name)
	assert.Equal(t, regUUID, reg.UUID)
}

func TestLoadMissingRoot(t *testing.T) {
	_, err := registry.Load(t.TempDir())
	assert.Error(t, err)
}

func TestUUIDsByName(t *testing.T) {
	reg := fixtureRegistry(t)

	ids := reg.UUIDsByName("Example")
	assert.Len(t, ids, 2)
	assert.Empty(t, reg.UUIDsByName("Nonexistent"))

	// Deterministic order across calls.
	assert.Equal(t, ids, reg.UUIDsByName("Example"))
}

func TestPackage(t *testing.T) {
	reg := fixtureRegistry(t)

	info, ok := reg.Package(exUUID)
	require.True(t, ok)
	assert.Equal(t, "Example", info.Name)
	assert.Equal(t, "https://example.com/Example.git", info.RepoURL)

	_, ok = reg.Package(uuid.New())
	assert.False(t, ok)
}

func TestVersionTreeHashes(t *testing.T) {
	reg := fixtureRegistry(t)

	hashes, err := reg.VersionTreeHashes(exUUID)
	require.NoError(t, err)
	assert.Equal(t, hashV1, hashes["0.9.0"])
	assert.Equal(t, hashV2, hashes["0.10.0"])

	// Second call is served from cache and must agree.
	again, err := reg.VersionTreeHashes(exUUID)
	require.NoError(t, err)
	assert.Equal(t, hashes, again)
}

func TestLatestVersion(t *testing.T) {
	reg := fixtureRegistry(t)

	version, hash, err := reg.LatestVersion(exUUID)
	require.NoError(t, err)
	assert.Equal(t, "0.10.0", version, "0.10.0 sorts above 0.9.0 numerically")
	assert.Equal(t, hashV2, hash)
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"0.9.0", "0.10.0", -1},
		{"1.2.3", "1.2", 1},
		{"v2.0.0", "1.9.9", 1},
		{"1.0.0-alpha", "1.0.0-beta", -1},
	}
	for _, c := range cases {
		got := registry.CompareVersions(c.a, c.b)
		assert.Equalf(t, c.want, got, "CompareVersions(%q, %q)", c.a, c.b)
	}
}

func TestSetFindByName(t *testing.T) {
	reg := fixtureRegistry(t)
	set := registry.Set{reg}

	matches := set.FindByName("Example")
	assert.Len(t, matches, 2)

	_, ok := set.FindByUUID(exUUID)
	assert.True(t, ok)
}

func TestSetTreeHashFor(t *testing.T) {
	reg := fixtureRegistry(t)
	set := registry.Set{reg}

	h, err := set.TreeHashFor(exUUID, "0.9.0")
	require.NoError(t, err)
	assert.Equal(t, hashV1, h)

	_, err = set.TreeHashFor(exUUID, "9.9.9")
	assert.Error(t, err)
}

func TestIsStdlib(t *testing.T) {
	sha := uuid.MustParse("ea8e919c-243c-51af-8825-aaa63cd721ce")
	assert.True(t, registry.IsStdlib(sha))

	name, ok := registry.StdlibName(sha)
	assert.True(t, ok)
	assert.Equal(t, "SHA", name)

	assert.False(t, registry.IsStdlib(exUUID))
}
