// Package descriptor defines the typed provenance descriptors the resolution
// pipeline operates on. A descriptor answers "where do I find this code" in
// one of exactly four ways: a registry release, a pinned non-release add, a
// live development checkout, or the trunk of a remote repository.
package descriptor

import (
	"fmt"

	"github.com/google/uuid"
)

// Descriptor is the closed set of package provenance variants. The four
// implementations in this package are the only ones; the unexported marker
// method keeps the set sealed so consumers can type-switch exhaustively.
type Descriptor interface {
	// Pinned reports whether the descriptor carries a fixed content tree
	// hash. Pinned descriptors are cacheable indefinitely; floating ones
	// must be treated as always stale.
	Pinned() bool

	// DisplayName returns a human-oriented identifier for logs and reports.
	DisplayName() string

	sealed()
}

// Release identifies a registry-published version of a package.
type Release struct {
	Name     string
	UUID     uuid.UUID
	RepoURL  string
	Subdir   string
	TreeHash string
	Version  string
}

// Added identifies a non-release pinned reference, added directly at an
// arbitrary commit. Exactly one of Path and RepoURL is populated.
type Added struct {
	Name     string
	UUID     uuid.UUID
	Path     string
	RepoURL  string
	Subdir   string
	TreeHash string
}

// Dev identifies a development checkout tracked by live filesystem path.
// Content may change between invocations.
type Dev struct {
	Name string
	UUID uuid.UUID
	Path string
}

// Trunk identifies the latest commit on the default branch of a remote
// repository.
type Trunk struct {
	RepoURL string
	Subdir  string
}

func (Release) Pinned() bool { return true }
func (Added) Pinned() bool   { return true }
func (Dev) Pinned() bool     { return false }
func (Trunk) Pinned() bool   { return false }

func (r Release) DisplayName() string { return fmt.Sprintf("%s@%s", r.Name, r.Version) }
func (a Added) DisplayName() string   { return fmt.Sprintf("%s#%s", a.Name, shortHash(a.TreeHash)) }
func (d Dev) DisplayName() string     { return fmt.Sprintf("%s (dev)", d.Name) }
func (t Trunk) DisplayName() string   { return t.RepoURL }

func (Release) sealed() {}
func (Added) sealed()   {}
func (Dev) sealed()     {}
func (Trunk) sealed()   {}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

// Validate checks the structural invariants of a Release.
func (r Release) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("release descriptor missing package name")
	}
	if !ValidTreeHash(r.TreeHash) {
		return fmt.Errorf("release %s: invalid tree hash %q", r.Name, r.TreeHash)
	}
	return nil
}

// Validate checks the structural invariants of an Added descriptor, in
// particular that exactly one of Path and RepoURL is set.
func (a Added) Validate() error {
	if !ValidTreeHash(a.TreeHash) {
		return fmt.Errorf("added %s: invalid tree hash %q", a.Name, a.TreeHash)
	}
	if (a.Path == "") == (a.RepoURL == "") {
		return fmt.Errorf("added %s: exactly one of path and repo URL must be set", a.Name)
	}
	return nil
}

// ValidTreeHash reports whether s is a hex-encoded git tree digest
// (40 hex characters, SHA-1).
func ValidTreeHash(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}
