// Package acquire turns provenance descriptors into verified source trees on
// disk. Pinned descriptors (releases, direct adds) are content-addressed:
// every materialized tree is checked against its expected git tree hash, so
// a previously downloaded copy can be reused without trusting how it got
// there. Floating descriptors (dev paths, trunk checkouts) bypass the cache
// entirely.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/fulmenhq/pkgscout/pkg/descriptor"
	"github.com/fulmenhq/pkgscout/pkg/logger"
	"github.com/fulmenhq/pkgscout/pkg/treehash"
)

// Result describes where a descriptor's source tree was materialized.
// Ownership of the path is transient: read it now, or lose it when the
// scratch root is discarded.
type Result struct {
	// Path is the package root on the local filesystem. Empty when the
	// source was unreachable.
	Path string
	// Reachable reports whether the source tree was obtained and, for
	// pinned descriptors, verified against the expected tree hash.
	Reachable bool
	// Version is the resolved version identifier, when one exists.
	Version string
	// Subdir is the path component within Path still to be applied by the
	// caller. Pinned trees are already rooted at the package, so it is only
	// set for floating checkouts.
	Subdir string
}

// Resolver decides how to satisfy a descriptor: reuse from an install depot,
// reuse from the cache root, or invoke an acquisition strategy. It is safe
// for concurrent use; racing workers that populate the same destination both
// write hash-verified content through a private staging directory, so the
// last rename wins harmlessly.
type Resolver struct {
	// CacheRoot holds pinned package trees keyed by name/slug.
	CacheRoot string
	// Depots are pre-existing install locations searched before any
	// network I/O.
	Depots []string
	// ScratchRoot receives transient clones and staging directories.
	// Defaults to os.TempDir().
	ScratchRoot string
	// Fetcher serves forge tarball requests.
	Fetcher HTTPFetcher
	// AuthToken is attached to forge API requests when set.
	AuthToken string

	acquisitions atomic.Int64
}

// NewResolver builds a Resolver with a production HTTP fetcher.
func NewResolver(cacheRoot string, depots []string, token string) *Resolver {
	return &Resolver{
		CacheRoot: cacheRoot,
		Depots:    depots,
		Fetcher:   NewRealHTTPFetcher(),
		AuthToken: token,
	}
}

// Acquisitions returns how many times an acquisition strategy has run. Cache
// and depot hits do not count; the idempotence of pinned resolution shows up
// as this number staying flat across repeated calls.
func (r *Resolver) Acquisitions() int64 {
	return r.acquisitions.Load()
}

// Resolve materializes the descriptor's source tree. Ordinary acquisition
// failure is reported via Result.Reachable, never as an error; errors are
// reserved for malformed descriptors and local I/O faults.
func (r *Resolver) Resolve(ctx context.Context, desc descriptor.Descriptor) (Result, error) {
	switch d := desc.(type) {
	case descriptor.Dev:
		// The live filesystem is the source of truth; no cache interaction.
		info, err := os.Stat(d.Path)
		if err != nil || !info.IsDir() {
			return Result{Reachable: false}, nil
		}
		return Result{Path: d.Path, Reachable: true, Version: "dev"}, nil

	case descriptor.Trunk:
		return r.resolveTrunk(ctx, d)

	case descriptor.Release:
		if err := d.Validate(); err != nil {
			return Result{}, err
		}
		return r.resolvePinned(ctx, d.Name, d.UUID, d.TreeHash, d.RepoURL, d.Version)

	case descriptor.Added:
		if err := d.Validate(); err != nil {
			return Result{}, err
		}
		source := d.RepoURL
		if source == "" {
			source = d.Path
		}
		return r.resolvePinned(ctx, d.Name, d.UUID, d.TreeHash, source, "")

	default:
		return Result{}, fmt.Errorf("unhandled descriptor type %T", desc)
	}
}

// resolveTrunk always re-fetches: "latest" is only valid for the instant of
// the call, so nothing from previous runs can be reused.
func (r *Resolver) resolveTrunk(ctx context.Context, d descriptor.Trunk) (Result, error) {
	dest, err := os.MkdirTemp(r.scratch(), "trunk-")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create trunk checkout dir: %w", err)
	}

	r.acquisitions.Add(1)
	if err := cloneTrunk(ctx, d.RepoURL, dest); err != nil {
		var ue *UnreachableError
		if errors.As(err, &ue) {
			logger.Debug("trunk unreachable", logger.String("url", d.RepoURL), logger.Err(err))
			return Result{Reachable: false, Subdir: d.Subdir}, nil
		}
		return Result{}, err
	}
	return Result{Path: dest, Reachable: true, Version: "dev", Subdir: d.Subdir}, nil
}

// resolvePinned implements the reuse ladder for content-addressed
// descriptors: depot hit, cache hit, then acquisition with verification.
func (r *Resolver) resolvePinned(ctx context.Context, name string, id uuid.UUID, expectedHash, source, version string) (Result, error) {
	expected := strings.ToLower(expectedHash)
	rel := descriptor.CacheRelPath(name, id, expected)

	// 1. Install depots: content the host environment already has. A match
	// here costs one hash recomputation and zero network I/O.
	for _, depot := range r.Depots {
		candidate := filepath.Join(depot, filepath.FromSlash(rel))
		if hashMatches(candidate, expected) {
			logger.Debug("depot hit", logger.String("pkg", name), logger.String("path", candidate))
			return Result{Path: candidate, Reachable: true, Version: version}, nil
		}
	}

	// 2. Destination cache. A hash mismatch means a corrupt or partial
	// earlier write: discard and re-acquire.
	dest := filepath.Join(r.CacheRoot, filepath.FromSlash(rel))
	if _, err := os.Stat(dest); err == nil {
		if hashMatches(dest, expected) {
			return Result{Path: dest, Reachable: true, Version: version}, nil
		}
		logger.Warn("cached tree hash mismatch, discarding",
			logger.String("pkg", name), logger.String("path", dest))
		if err := os.RemoveAll(dest); err != nil {
			return Result{}, fmt.Errorf("failed to remove corrupt cache entry %s: %w", dest, err)
		}
	}

	// 3. Acquire into a process-unique staging dir, verify, then rename
	// into place. Staging lives next to the destination so the rename stays
	// on one filesystem.
	if err := os.MkdirAll(r.CacheRoot, 0o750); err != nil {
		return Result{}, fmt.Errorf("failed to create cache root: %w", err)
	}
	staging, err := os.MkdirTemp(r.CacheRoot, ".staging-")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	r.acquisitions.Add(1)
	if err := r.acquirePinned(ctx, expected, source, staging); err != nil {
		var ue *UnreachableError
		if errors.As(err, &ue) {
			logger.Info("package unreachable",
				logger.String("pkg", name), logger.String("source", source), logger.Err(err))
			return Result{Reachable: false, Version: version}, nil
		}
		return Result{}, err
	}

	got, err := treehash.Hash(staging)
	if err != nil {
		return Result{}, fmt.Errorf("failed to hash acquired tree: %w", err)
	}
	if got != expected {
		// Surface the mismatch; the staging dir is discarded so nothing
		// partially-correct-looking lands in the cache.
		logger.Warn("acquired tree hash mismatch",
			logger.String("pkg", name), logger.String("want", expected), logger.String("got", got))
		return Result{Reachable: false, Version: version}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return Result{}, fmt.Errorf("failed to create cache subpath: %w", err)
	}
	if err := os.Rename(staging, dest); err != nil {
		// A concurrent worker may have renamed its own verified copy into
		// place first. Both copies are byte-identical by construction, so
		// reuse theirs.
		if hashMatches(dest, expected) {
			return Result{Path: dest, Reachable: true, Version: version}, nil
		}
		return Result{}, fmt.Errorf("failed to move acquired tree into cache: %w", err)
	}
	return Result{Path: dest, Reachable: true, Version: version}, nil
}

// acquirePinned runs the two-tier fetch: forge tarball of the exact tree
// hash when the host is recognized, full clone plus tree extraction
// otherwise or on fast-path failure.
func (r *Resolver) acquirePinned(ctx context.Context, treeHash, source, dest string) error {
	if url, ok := forgeTarballURL(source, treeHash); ok {
		err := fetchTarball(ctx, r.Fetcher, url, r.AuthToken, dest)
		if err == nil {
			return nil
		}
		logger.Debug("tarball fast path failed, falling back to clone",
			logger.String("source", source), logger.Err(err))
		if err := clearDir(dest); err != nil {
			return err
		}
	}
	return cloneAndExtractTree(ctx, source, treeHash, r.scratch(), dest)
}

func (r *Resolver) scratch() string {
	if r.ScratchRoot != "" {
		return r.ScratchRoot
	}
	return os.TempDir()
}

// hashMatches recomputes the tree hash of dir and compares it to expected.
// Any error (missing dir, unreadable files) counts as a mismatch.
func hashMatches(dir, expected string) bool {
	got, err := treehash.Hash(dir)
	if err != nil {
		return false
	}
	return got == expected
}

// clearDir empties dir without removing it, so a retried strategy starts
// from a clean slate in the same staging location.
func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
