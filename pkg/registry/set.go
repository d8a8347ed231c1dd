package registry

import (
	"fmt"

	"github.com/google/uuid"
)

// Set is the ordered collection of installed registries consulted during
// resolution.
type Set []*Registry

// LoadAll loads every registry root in paths, in order.
func LoadAll(paths []string) (Set, error) {
	set := make(Set, 0, len(paths))
	for _, p := range paths {
		reg, err := Load(p)
		if err != nil {
			return nil, err
		}
		set = append(set, reg)
	}
	return set, nil
}

// NameMatch is one registry's answer for a package name.
type NameMatch struct {
	Registry *Registry
	Info     PackageInfo
}

// FindByName queries every registry for name. Each (registry, uuid) pair
// found contributes one match.
func (s Set) FindByName(name string) []NameMatch {
	var matches []NameMatch
	for _, reg := range s {
		for _, id := range reg.UUIDsByName(name) {
			info, ok := reg.Package(id)
			if !ok {
				continue
			}
			matches = append(matches, NameMatch{Registry: reg, Info: info})
		}
	}
	return matches
}

// FindByUUID returns the first registry record for the given package UUID.
func (s Set) FindByUUID(id uuid.UUID) (NameMatch, bool) {
	for _, reg := range s {
		if info, ok := reg.Package(id); ok {
			return NameMatch{Registry: reg, Info: info}, true
		}
	}
	return NameMatch{}, false
}

// TreeHashFor returns the registry-recorded tree hash for an exact version
// of a package.
func (s Set) TreeHashFor(id uuid.UUID, version string) (string, error) {
	for _, reg := range s {
		if _, ok := reg.Package(id); !ok {
			continue
		}
		hashes, err := reg.VersionTreeHashes(id)
		if err != nil {
			return "", err
		}
		if h, ok := hashes[version]; ok {
			return h, nil
		}
	}
	return "", fmt.Errorf("no registry records version %s of %s", version, id)
}
