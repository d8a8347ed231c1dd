package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Options carries the runtime configuration for an analysis session. It is
// constructed once at process start and handed down explicitly; nothing in
// the resolution pipeline reads process-global state.
type Options struct {
	// CacheRoot is where pinned package trees are materialized and reused
	// across invocations.
	CacheRoot string `mapstructure:"cache_root"`
	// DepotPaths are pre-existing install locations scanned before any
	// network fetch (e.g. a host package manager's package store).
	DepotPaths []string `mapstructure:"depot_paths"`
	// RegistryPaths are locally-installed registry copies.
	RegistryPaths []string `mapstructure:"registry_paths"`
	// Workers bounds the analysis worker pool. Zero means NumCPU.
	Workers int `mapstructure:"workers"`
	// AuthToken authenticates forge API requests. Resolved from config or
	// the GITHUB_TOKEN environment variable.
	AuthToken string `mapstructure:"auth_token"`
	// ContribDelay is an optional politeness pause before each
	// contributor-statistics request, to stay under upstream rate limits.
	ContribDelay time.Duration `mapstructure:"contrib_delay"`
}

// EffectiveWorkers returns the worker pool size to use.
func (o Options) EffectiveWorkers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// GetScoutHome returns the pkgscout home directory.
func GetScoutHome() (string, error) {
	// Check environment variable first
	if home := os.Getenv("PKGSCOUT_HOME"); home != "" {
		return home, nil
	}

	// Use standard dev tool convention: ~/.pkgscout
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}

	return filepath.Join(homeDir, ".pkgscout"), nil
}

// EnsureScoutHome creates the pkgscout home directory if it doesn't exist.
func EnsureScoutHome() (string, error) {
	homeDir, err := GetScoutHome()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(homeDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create pkgscout home directory: %v", err)
	}

	return homeDir, nil
}

// GetCacheDir returns the package cache directory within the pkgscout home.
func GetCacheDir() (string, error) {
	homeDir, err := EnsureScoutHome()
	if err != nil {
		return "", err
	}
	cacheDir := filepath.Join(homeDir, "cache", "packages")
	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %v", err)
	}
	return cacheDir, nil
}

// GetScratchDir returns a per-invocation scratch directory within the
// pkgscout home. Contents are transient; floating checkouts land here.
func GetScratchDir() (string, error) {
	homeDir, err := EnsureScoutHome()
	if err != nil {
		return "", err
	}
	scratchDir := filepath.Join(homeDir, "scratch")
	if err := os.MkdirAll(scratchDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %v", err)
	}
	return scratchDir, nil
}

// Load builds Options from viper state, the environment, and defaults.
func Load(v *viper.Viper) (Options, error) {
	v.SetDefault("workers", 0)
	v.SetDefault("contrib_delay", time.Duration(0))

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if opts.CacheRoot == "" {
		cacheDir, err := GetCacheDir()
		if err != nil {
			return Options{}, err
		}
		opts.CacheRoot = cacheDir
	}

	if opts.AuthToken == "" {
		opts.AuthToken = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	}

	return opts, nil
}
