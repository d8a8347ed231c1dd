package acquire

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/fulmenhq/pkgscout/pkg/contrib"
	"github.com/fulmenhq/pkgscout/pkg/safeio"
)

// forgeTarballURL maps a recognized hosted-forge repository URL to its REST
// tarball endpoint for an exact tree hash. Returns false for hosts we do not
// recognize; the caller falls back to a full clone.
func forgeTarballURL(repoURL, treeHash string) (string, bool) {
	slug, ok := contrib.SlugFromURL(repoURL)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("https://api.github.com/repos/%s/tarball/%s", slug, treeHash), true
}

// fetchTarball downloads url and extracts its contents into dest, stripping
// the single top-level wrapper directory the forge puts around the tree.
// The auth token travels in a request header, never in a URL or argv.
func fetchTarball(ctx context.Context, fetcher HTTPFetcher, url, token, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build tarball request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := fetcher.Do(req)
	if err != nil {
		return unreachable("tarball fetch", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return unreachable("tarball fetch", url, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	if err := extractTarGz(resp.Body, dest); err != nil {
		return unreachable("tarball extract", url, err)
	}
	return nil
}

// extractTarGz unpacks a gzipped tarball into dest with the first path
// component removed.
func extractTarGz(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("bad gzip stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("bad tar stream: %w", err)
		}

		rel, ok := stripWrapper(hdr.Name)
		if !ok {
			continue
		}

		target, err := safeio.ContainedPath(dest, rel)
		if err != nil {
			return fmt.Errorf("entry %q: %w", hdr.Name, err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return err
			}
			mode := os.FileMode(0o644)
			if hdr.FileInfo().Mode()&0o100 != 0 {
				mode = 0o755
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
			if err != nil {
				return err
			}
			// #nosec G110 -- source trees are bounded; analysis runs in a sandboxed cache dir
			if _, err := io.Copy(f, tr); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			// Hard links and special files do not appear in forge tarballs.
			continue
		}
	}
}

// stripWrapper removes the "owner-repo-hash/" prefix from a tarball entry
// name. Entries without a wrapper component (the wrapper dir itself, pax
// headers) are skipped.
func stripWrapper(name string) (string, bool) {
	clean := strings.TrimPrefix(name, "./")
	idx := strings.IndexByte(clean, '/')
	if idx < 0 {
		return "", false
	}
	rest := clean[idx+1:]
	if rest == "" {
		return "", false
	}
	return rest, true
}
