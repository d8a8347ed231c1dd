package safeio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// CleanUserPath cleans a user-provided path and rejects traversal attempts.
// Returns paths with forward slashes for cross-platform consistency.
func CleanUserPath(p string) (string, error) {
	c := filepath.Clean(p)
	if strings.Contains(c, "..") {
		return "", errors.New("path traversal detected")
	}
	return filepath.ToSlash(c), nil
}

// ContainedPath joins rel onto baseDir and verifies the result stays inside
// baseDir. Used when materializing archive entries whose names come from the
// network.
func ContainedPath(baseDir, rel string) (string, error) {
	joined := filepath.Join(baseDir, filepath.FromSlash(rel))
	baseAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", errors.New("failed to resolve base directory")
	}
	joinedAbs, err := filepath.Abs(joined)
	if err != nil {
		return "", errors.New("failed to resolve entry path")
	}
	relBack, err := filepath.Rel(baseAbs, joinedAbs)
	if err != nil {
		return "", errors.New("failed to compute relative path")
	}
	if relBack == ".." || strings.HasPrefix(relBack, ".."+string(filepath.Separator)) {
		return "", errors.New("entry path escapes base directory")
	}
	return joined, nil
}

// ReadFileContained reads a file only if it is contained within baseDir.
// Returns an error if the file is outside baseDir or cannot be read.
func ReadFileContained(baseDir, filePath string) ([]byte, error) {
	baseDirAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, errors.New("failed to resolve base directory")
	}
	filePathAbs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, errors.New("failed to resolve file path")
	}

	rel, err := filepath.Rel(baseDirAbs, filePathAbs)
	if err != nil {
		return nil, errors.New("failed to compute relative path")
	}
	if strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return nil, errors.New("file path is outside base directory")
	}

	// #nosec G304 -- filePathAbs has been verified to be contained within baseDirAbs
	return os.ReadFile(filePathAbs)
}
