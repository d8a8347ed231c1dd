package resolve

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/fulmenhq/pkgscout/pkg/descriptor"
	"github.com/fulmenhq/pkgscout/pkg/registry"
)

// TreeHashMismatchError reports a manifest entry whose pinned tree hash
// disagrees with the registry's record for that exact version. Continuing
// would silently analyze the wrong code, so this is fatal.
type TreeHashMismatchError struct {
	Name     string
	Version  string
	Manifest string
	Registry string
}

func (e *TreeHashMismatchError) Error() string {
	return fmt.Sprintf("manifest integrity violation for %s@%s: manifest records tree %s, registry records %s",
		e.Name, e.Version, e.Manifest, e.Registry)
}

type manifestFile struct {
	ManifestFormat string                     `toml:"manifest_format"`
	Deps           map[string][]manifestEntry `toml:"deps"`
}

type manifestEntry struct {
	UUID     string `toml:"uuid"`
	TreeHash string `toml:"git-tree-sha1"`
	Version  string `toml:"version"`
	RepoURL  string `toml:"repo-url"`
	Path     string `toml:"path"`
	Subdir   string `toml:"subdir"`
}

// Manifest resolves every pinned entry of a manifest file into a
// descriptor, ordered by package name. Standard-library entries are skipped
// silently: they ship with the language distribution and have no source
// tree of their own.
//
// Classification is by field presence: no tree hash means a development
// checkout (which must carry a path), a tree hash plus repo-url means a
// direct add, and a tree hash alone means a registry release, cross-checked
// against the registry's recorded hash for that exact version.
func Manifest(regs registry.Set, path string) ([]descriptor.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var mf manifestFile
	if err := toml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if !supportedManifestFormat(mf.ManifestFormat) {
		return nil, fmt.Errorf("unsupported manifest format %q in %s", mf.ManifestFormat, path)
	}

	names := make([]string, 0, len(mf.Deps))
	for name := range mf.Deps {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []descriptor.Descriptor
	for _, name := range names {
		for _, entry := range mf.Deps[name] {
			d, err := classifyEntry(regs, name, entry)
			if err != nil {
				return nil, err
			}
			if d != nil {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func classifyEntry(regs registry.Set, name string, entry manifestEntry) (descriptor.Descriptor, error) {
	id, err := uuid.Parse(entry.UUID)
	if err != nil {
		return nil, fmt.Errorf("manifest entry %s: invalid uuid %q: %w", name, entry.UUID, err)
	}
	if registry.IsStdlib(id) {
		return nil, nil
	}

	if entry.TreeHash == "" {
		if entry.Path == "" {
			return nil, fmt.Errorf("manifest entry %s: no tree hash and no path", name)
		}
		return descriptor.Dev{Name: name, UUID: id, Path: entry.Path}, nil
	}

	treeHash := strings.ToLower(entry.TreeHash)
	if !descriptor.ValidTreeHash(treeHash) {
		return nil, fmt.Errorf("manifest entry %s: invalid tree hash %q", name, entry.TreeHash)
	}

	if entry.RepoURL != "" || entry.Path != "" {
		added := descriptor.Added{
			Name:     name,
			UUID:     id,
			Path:     entry.Path,
			RepoURL:  entry.RepoURL,
			Subdir:   entry.Subdir,
			TreeHash: treeHash,
		}
		if err := added.Validate(); err != nil {
			return nil, err
		}
		return added, nil
	}

	// Release: the registry is the authority on the repo URL and on what
	// tree hash this version should have.
	if entry.Version == "" {
		return nil, fmt.Errorf("manifest entry %s: release pin without a version", name)
	}
	recorded, err := regs.TreeHashFor(id, entry.Version)
	if err != nil {
		return nil, fmt.Errorf("manifest entry %s@%s: %w", name, entry.Version, err)
	}
	if recorded != treeHash {
		return nil, &TreeHashMismatchError{
			Name:     name,
			Version:  entry.Version,
			Manifest: treeHash,
			Registry: recorded,
		}
	}

	match, ok := regs.FindByUUID(id)
	if !ok {
		return nil, fmt.Errorf("manifest entry %s: uuid %s not in any registry", name, id)
	}
	return descriptor.Release{
		Name:     name,
		UUID:     id,
		RepoURL:  match.Info.RepoURL,
		Subdir:   match.Info.Subdir,
		TreeHash: treeHash,
		Version:  entry.Version,
	}, nil
}

// supportedManifestFormat accepts format 1.x.
func supportedManifestFormat(format string) bool {
	if format == "" {
		return false
	}
	major, _, _ := strings.Cut(format, ".")
	return major == "1"
}
