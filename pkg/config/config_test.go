package config

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetScoutHomeEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PKGSCOUT_HOME", dir)

	home, err := GetScoutHome()
	require.NoError(t, err)
	assert.Equal(t, dir, home)
}

func TestEnsureScoutHomeCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "home")
	t.Setenv("PKGSCOUT_HOME", dir)

	home, err := EnsureScoutHome()
	require.NoError(t, err)
	assert.DirExists(t, home)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PKGSCOUT_HOME", t.TempDir())
	t.Setenv("GITHUB_TOKEN", "tok-123")

	opts, err := Load(viper.New())
	require.NoError(t, err)

	assert.NotEmpty(t, opts.CacheRoot)
	assert.Equal(t, "tok-123", opts.AuthToken)
	assert.Equal(t, runtime.NumCPU(), opts.EffectiveWorkers())
}

func TestLoadExplicitValues(t *testing.T) {
	t.Setenv("PKGSCOUT_HOME", t.TempDir())

	v := viper.New()
	v.Set("workers", 3)
	v.Set("cache_root", "/tmp/elsewhere")

	opts, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 3, opts.EffectiveWorkers())
	assert.Equal(t, "/tmp/elsewhere", opts.CacheRoot)
}
