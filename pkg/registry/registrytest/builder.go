// Package registrytest builds throwaway on-disk registry fixtures for
// tests in this module.
package registrytest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// Package describes one package to place in a fixture registry.
type Package struct {
	Name     string
	UUID     uuid.UUID
	RepoURL  string
	Subdir   string
	Versions map[string]string // version -> tree hash
}

// Write materializes a registry with the given packages under a temp dir
// and returns its root.
func Write(t *testing.T, regName string, regUUID uuid.UUID, pkgs []Package) string {
	t.Helper()
	root := t.TempDir()

	var b strings.Builder
	fmt.Fprintf(&b, "name = %q\nuuid = %q\n\n", regName, regUUID)
	for _, p := range pkgs {
		// Include the UUID so same-named packages get distinct directories.
		relPath := strings.ToUpper(p.Name[:1]) + "/" + p.Name + "-" + p.UUID.String()
		fmt.Fprintf(&b, "[packages.%q]\nname = %q\npath = %q\n\n", p.UUID, p.Name, relPath)

		pkgDir := filepath.Join(root, filepath.FromSlash(relPath))
		if err := os.MkdirAll(pkgDir, 0o755); err != nil {
			t.Fatal(err)
		}

		pkgToml := fmt.Sprintf("name = %q\nuuid = %q\nrepo = %q\n", p.Name, p.UUID, p.RepoURL)
		if p.Subdir != "" {
			pkgToml += fmt.Sprintf("subdir = %q\n", p.Subdir)
		}
		if err := os.WriteFile(filepath.Join(pkgDir, "package.toml"), []byte(pkgToml), 0o644); err != nil {
			t.Fatal(err)
		}

		var vb strings.Builder
		for version, hash := range p.Versions {
			fmt.Fprintf(&vb, "[%q]\ngit-tree-sha1 = %q\n\n", version, hash)
		}
		if err := os.WriteFile(filepath.Join(pkgDir, "versions.toml"), []byte(vb.String()), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := os.WriteFile(filepath.Join(root, "registry.toml"), []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}
