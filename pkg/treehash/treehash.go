// Package treehash computes the git tree object hash of an on-disk
// directory. The digest depends only on file paths, contents, and the
// executable bit, so a tarball extraction and a git checkout of the same
// tree hash identically. That equivalence is what lets every acquisition
// strategy be verified against one expected hash.
package treehash

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// Hash returns the hex-encoded git tree hash of dir. The .git directory is
// excluded; empty directories are not tracked, matching git semantics.
func Hash(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("tree hash: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("tree hash: %s is not a directory", dir)
	}

	h, _, err := hashDir(dir)
	if err != nil {
		return "", err
	}
	return h.String(), nil
}

type treeEntry struct {
	name string
	mode filemode.FileMode
	hash plumbing.Hash
}

// sortKey implements git's tree-entry ordering: directories compare as if
// their name had a trailing slash.
func (e treeEntry) sortKey() string {
	if e.mode == filemode.Dir {
		return e.name + "/"
	}
	return e.name
}

// hashDir returns the tree hash of dir and whether the tree is empty.
// Empty subtrees are omitted from their parent.
func hashDir(dir string) (plumbing.Hash, bool, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("tree hash: %w", err)
	}

	entries := make([]treeEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		full := filepath.Join(dir, name)

		switch {
		case de.IsDir():
			if name == ".git" {
				continue
			}
			sub, empty, err := hashDir(full)
			if err != nil {
				return plumbing.ZeroHash, false, err
			}
			if empty {
				continue
			}
			entries = append(entries, treeEntry{name: name, mode: filemode.Dir, hash: sub})

		case de.Type()&os.ModeSymlink != 0:
			target, err := os.Readlink(full)
			if err != nil {
				return plumbing.ZeroHash, false, fmt.Errorf("tree hash: %w", err)
			}
			entries = append(entries, treeEntry{
				name: name,
				mode: filemode.Symlink,
				hash: blobHash([]byte(target)),
			})

		case de.Type().IsRegular():
			data, err := os.ReadFile(full)
			if err != nil {
				return plumbing.ZeroHash, false, fmt.Errorf("tree hash: %w", err)
			}
			mode := filemode.Regular
			if info, err := de.Info(); err == nil && info.Mode()&0o100 != 0 {
				mode = filemode.Executable
			}
			entries = append(entries, treeEntry{name: name, mode: mode, hash: blobHash(data)})

		default:
			// Sockets, devices, fifos: git does not track these.
			continue
		}
	}

	if len(entries) == 0 {
		return plumbing.ZeroHash, true, nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].sortKey() < entries[j].sortKey()
	})

	return treeObjectHash(entries), false, nil
}

func blobHash(data []byte) plumbing.Hash {
	return plumbing.ComputeHash(plumbing.BlobObject, data)
}

// treeObjectHash serializes entries in git tree object format
// ("<octal mode> <name>\0<20 raw hash bytes>" per entry) and hashes it.
func treeObjectHash(entries []treeEntry) plumbing.Hash {
	var payload []byte
	for _, e := range entries {
		payload = append(payload, strconv.FormatUint(uint64(e.mode), 8)...)
		payload = append(payload, ' ')
		payload = append(payload, e.name...)
		payload = append(payload, 0)
		payload = append(payload, e.hash[:]...)
	}
	return plumbing.ComputeHash(plumbing.TreeObject, payload)
}
