// Package registry reads locally-installed package registry copies and
// answers name and version queries against them. Registries are read-only
// from this package's point of view; the only mutable state is a lazily
// built name index and a bounded version-map cache, both internal.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/fulmenhq/pkgscout/pkg/safeio"
)

const versionCacheSize = 256

// PackageInfo is the registry's record for a single package.
type PackageInfo struct {
	Name    string
	UUID    uuid.UUID
	RepoURL string
	Subdir  string
}

type registryFile struct {
	Name     string                  `toml:"name"`
	UUID     string                  `toml:"uuid"`
	Packages map[string]packageEntry `toml:"packages"`
}

type packageEntry struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

type packageFile struct {
	Name   string `toml:"name"`
	UUID   string `toml:"uuid"`
	Repo   string `toml:"repo"`
	Subdir string `toml:"subdir"`
}

type versionEntry struct {
	TreeHash string `toml:"git-tree-sha1"`
}

// Registry is one locally-installed registry copy.
type Registry struct {
	Name string
	UUID uuid.UUID

	root     string
	packages map[uuid.UUID]packageEntry

	mu        sync.Mutex
	nameIndex map[string][]uuid.UUID

	versions *lru.Cache[uuid.UUID, map[string]string]
}

// Load reads the registry rooted at dir. The registry.toml file and the
// package table are read eagerly; per-package version maps are read on
// demand.
func Load(dir string) (*Registry, error) {
	data, err := os.ReadFile(filepath.Join(dir, "registry.toml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read registry at %s: %w", dir, err)
	}

	var rf registryFile
	if err := toml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse registry.toml at %s: %w", dir, err)
	}

	regID, err := uuid.Parse(rf.UUID)
	if err != nil {
		return nil, fmt.Errorf("registry %s: invalid uuid %q: %w", rf.Name, rf.UUID, err)
	}

	packages := make(map[uuid.UUID]packageEntry, len(rf.Packages))
	for rawID, entry := range rf.Packages {
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("registry %s: invalid package uuid %q: %w", rf.Name, rawID, err)
		}
		packages[id] = entry
	}

	cache, err := lru.New[uuid.UUID, map[string]string](versionCacheSize)
	if err != nil {
		return nil, err
	}

	return &Registry{
		Name:     rf.Name,
		UUID:     regID,
		root:     dir,
		packages: packages,
		versions: cache,
	}, nil
}

// UUIDsByName returns all package UUIDs registered under name. The name
// index is built on first use; the mutex guards only the build, reads of the
// finished map happen under the same lock because builds and lookups race
// across analysis workers.
func (r *Registry) UUIDsByName(name string) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameIndex == nil {
		r.nameIndex = make(map[string][]uuid.UUID, len(r.packages))
		for id, entry := range r.packages {
			r.nameIndex[entry.Name] = append(r.nameIndex[entry.Name], id)
		}
		for _, ids := range r.nameIndex {
			sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		}
	}
	return r.nameIndex[name]
}

// Package returns the registry record for the given package UUID.
func (r *Registry) Package(id uuid.UUID) (PackageInfo, bool) {
	entry, ok := r.packages[id]
	if !ok {
		return PackageInfo{}, false
	}

	info := PackageInfo{Name: entry.Name, UUID: id}
	data, err := safeio.ReadFileContained(r.root, filepath.Join(r.root, entry.Path, "package.toml"))
	if err != nil {
		// Package listed but metadata missing; return what we know.
		return info, true
	}
	var pf packageFile
	if err := toml.Unmarshal(data, &pf); err != nil {
		return info, true
	}
	info.RepoURL = pf.Repo
	info.Subdir = pf.Subdir
	return info, true
}

// VersionTreeHashes returns the version → tree hash map for the package.
// Results are cached per UUID.
func (r *Registry) VersionTreeHashes(id uuid.UUID) (map[string]string, error) {
	if cached, ok := r.versions.Get(id); ok {
		return cached, nil
	}

	entry, ok := r.packages[id]
	if !ok {
		return nil, fmt.Errorf("registry %s: unknown package %s", r.Name, id)
	}

	data, err := safeio.ReadFileContained(r.root, filepath.Join(r.root, entry.Path, "versions.toml"))
	if err != nil {
		return nil, fmt.Errorf("registry %s: failed to read versions for %s: %w", r.Name, entry.Name, err)
	}

	var raw map[string]versionEntry
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("registry %s: failed to parse versions for %s: %w", r.Name, entry.Name, err)
	}

	out := make(map[string]string, len(raw))
	for version, ve := range raw {
		out[version] = strings.ToLower(ve.TreeHash)
	}

	r.versions.Add(id, out)
	return out, nil
}

// LatestVersion returns the highest registered version of the package and
// its tree hash.
func (r *Registry) LatestVersion(id uuid.UUID) (version, treeHash string, err error) {
	hashes, err := r.VersionTreeHashes(id)
	if err != nil {
		return "", "", err
	}
	if len(hashes) == 0 {
		return "", "", fmt.Errorf("registry %s: no versions recorded for %s", r.Name, id)
	}

	for v := range hashes {
		if version == "" || CompareVersions(v, version) > 0 {
			version = v
		}
	}
	return version, hashes[version], nil
}

// CompareVersions orders dotted numeric versions. Non-numeric segments fall
// back to string comparison, so pre-release tags sort predictably if crudely.
func CompareVersions(a, b string) int {
	as := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bs := strings.Split(strings.TrimPrefix(b, "v"), ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var sa, sb string
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}
		na, errA := strconv.Atoi(sa)
		nb, errB := strconv.Atoi(sb)
		switch {
		case errA == nil && errB == nil:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		default:
			if sa != sb {
				if sa < sb {
					return -1
				}
				return 1
			}
		}
	}
	return 0
}
