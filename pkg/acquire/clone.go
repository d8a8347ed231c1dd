package acquire

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/fulmenhq/pkgscout/pkg/logger"
)

// cloneTrunk performs a shallow depth-1 clone of the remote's default branch
// into dest. go-git runs the transport in-process: no credential helper is
// consulted and no secret ever appears in an argument list, so a private or
// deleted repository fails fast with a transport error instead of hanging on
// a prompt.
func cloneTrunk(ctx context.Context, repoURL, dest string) error {
	logger.Debug("cloning trunk", logger.String("url", repoURL), logger.String("dest", dest))
	opts := &git.CloneOptions{
		URL:          repoURL,
		SingleBranch: true,
		Tags:         git.NoTags,
		Progress:     nil,
	}
	// Shallow fetch is a network optimization; local sources clone fully.
	if strings.HasPrefix(repoURL, "http://") || strings.HasPrefix(repoURL, "https://") {
		opts.Depth = 1
	}
	_, err := git.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		_ = os.RemoveAll(dest)
		return unreachable("trunk clone", repoURL, err)
	}
	return nil
}

// cloneAndExtractTree performs a full clone of source into a scratch
// directory, then materializes the tree object with the given hash into
// dest. The tree is located in the object store directly, so it is found no
// matter which branch currently holds the commit that introduced it.
func cloneAndExtractTree(ctx context.Context, source, treeHash, scratch, dest string) error {
	cloneDir, err := os.MkdirTemp(scratch, "clone-")
	if err != nil {
		return fmt.Errorf("failed to create scratch clone dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(cloneDir) }()

	logger.Debug("full clone for tree extraction",
		logger.String("source", source), logger.String("tree", treeHash))
	repo, err := git.PlainCloneContext(ctx, cloneDir, true, &git.CloneOptions{
		URL:      source,
		Tags:     git.AllTags,
		Progress: nil,
	})
	if err != nil {
		return unreachable("clone", source, err)
	}

	tree, err := repo.TreeObject(plumbing.NewHash(treeHash))
	if err != nil {
		return unreachable("tree lookup", source, fmt.Errorf("tree %s not present in clone: %w", treeHash, err))
	}

	if err := materializeTree(tree, dest); err != nil {
		return fmt.Errorf("failed to materialize tree %s: %w", treeHash, err)
	}
	return nil
}

// materializeTree writes every entry of tree under dest, honoring the
// executable bit and symlinks. Submodule (gitlink) entries are skipped; git
// archive does the same.
func materializeTree(tree *object.Tree, dest string) error {
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(dest, filepath.FromSlash(name))

		switch entry.Mode {
		case filemode.Dir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return err
			}
		case filemode.Regular, filemode.Executable:
			blob, err := tree.TreeEntryFile(&entry)
			if err != nil {
				return err
			}
			if err := writeBlob(blob, target, entry.Mode == filemode.Executable); err != nil {
				return err
			}
		case filemode.Symlink:
			blob, err := tree.TreeEntryFile(&entry)
			if err != nil {
				return err
			}
			linkTarget, err := blob.Contents()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return err
			}
			if err := os.Symlink(linkTarget, target); err != nil {
				return err
			}
		default:
			continue
		}
	}
}

func writeBlob(file *object.File, target string, executable bool) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	reader, err := file.Reader()
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	mode := os.FileMode(0o644)
	if executable {
		mode = 0o755
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, reader); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
