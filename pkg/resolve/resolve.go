// Package resolve turns user-facing inputs (a package name, a filesystem
// path, a URL, a manifest file) into typed provenance descriptors, consulting
// the installed registries.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/fulmenhq/pkgscout/pkg/descriptor"
	"github.com/fulmenhq/pkgscout/pkg/registry"
)

// DevVersion requests trunk semantics instead of a released version.
const DevVersion = "dev"

var identifierRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// AmbiguousNameError reports a bare package name that matches entries with
// different UUIDs across the installed registries. Resolving it silently
// would risk analyzing the wrong package, so the caller must disambiguate.
type AmbiguousNameError struct {
	Name  string
	UUIDs []uuid.UUID
}

func (e *AmbiguousNameError) Error() string {
	ids := make([]string, len(e.UUIDs))
	for i, id := range e.UUIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("package name %q is ambiguous across registries: %s", e.Name, strings.Join(ids, ", "))
}

// Input resolves a single user input into a descriptor. version may be
// empty (latest release), an explicit version number, or DevVersion for
// trunk semantics. Passing an explicit version with a path or URL input is a
// contract violation and returns an error.
func Input(regs registry.Set, input, version string) (descriptor.Descriptor, error) {
	if identifierRe.MatchString(input) {
		return byName(regs, input, version)
	}

	if info, err := os.Stat(input); err == nil && info.IsDir() {
		if version != "" {
			return nil, fmt.Errorf("cannot request version %q of local path %s", version, input)
		}
		return devFromPath(input)
	}

	if version != "" && version != DevVersion {
		return nil, fmt.Errorf("cannot request version %q of URL %s", version, input)
	}
	return descriptor.Trunk{RepoURL: input}, nil
}

func byName(regs registry.Set, name, version string) (descriptor.Descriptor, error) {
	matches := regs.FindByName(name)
	if len(matches) == 0 {
		return nil, fmt.Errorf("package %q not found in any installed registry", name)
	}

	// The same package may legitimately appear in several registries under
	// one UUID. Different UUIDs sharing a name is a collision and an error.
	distinct := make(map[uuid.UUID]registry.NameMatch)
	for _, m := range matches {
		if _, seen := distinct[m.Info.UUID]; !seen {
			distinct[m.Info.UUID] = m
		}
	}
	if len(distinct) > 1 {
		ids := make([]uuid.UUID, 0, len(distinct))
		for id := range distinct {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		return nil, &AmbiguousNameError{Name: name, UUIDs: ids}
	}

	match := matches[0]
	if version == DevVersion {
		if match.Info.RepoURL == "" {
			return nil, fmt.Errorf("registry records no repository URL for %s", name)
		}
		return descriptor.Trunk{RepoURL: match.Info.RepoURL, Subdir: match.Info.Subdir}, nil
	}

	var treeHash string
	var err error
	if version == "" {
		version, treeHash, err = match.Registry.LatestVersion(match.Info.UUID)
		if err != nil {
			return nil, err
		}
	} else {
		treeHash, err = regs.TreeHashFor(match.Info.UUID, version)
		if err != nil {
			return nil, err
		}
	}

	rel := descriptor.Release{
		Name:     match.Info.Name,
		UUID:     match.Info.UUID,
		RepoURL:  match.Info.RepoURL,
		Subdir:   match.Info.Subdir,
		TreeHash: treeHash,
		Version:  version,
	}
	if err := rel.Validate(); err != nil {
		return nil, err
	}
	return rel, nil
}

// devFromPath builds a Dev descriptor for an existing directory, picking up
// name and UUID from its project file when one parses. Malformed or missing
// project metadata degrades to sentinel values; many real-world trees are
// malformed and reporting on them is the job.
func devFromPath(path string) (descriptor.Descriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	name, id := projectMeta(abs)
	if name == "" {
		name = filepath.Base(abs)
	}
	return descriptor.Dev{Name: name, UUID: id, Path: abs}, nil
}

// projectMeta reads name and UUID from the project.toml of a source tree.
// Returns zero values when the file is absent or unparseable.
func projectMeta(dir string) (string, uuid.UUID) {
	data, err := os.ReadFile(filepath.Join(dir, "project.toml"))
	if err != nil {
		return "", uuid.Nil
	}
	var pf struct {
		Name string `toml:"name"`
		UUID string `toml:"uuid"`
	}
	if err := toml.Unmarshal(data, &pf); err != nil {
		return "", uuid.Nil
	}
	id, err := uuid.Parse(pf.UUID)
	if err != nil {
		id = uuid.Nil
	}
	return pf.Name, id
}

// Inputs resolves a batch of user inputs, preserving order.
func Inputs(regs registry.Set, inputs []string, version string) ([]descriptor.Descriptor, error) {
	out := make([]descriptor.Descriptor, 0, len(inputs))
	for _, in := range inputs {
		d, err := Input(regs, in, version)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
