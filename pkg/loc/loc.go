// Package loc produces a lines-of-code breakdown for a source tree. The
// heavy lifting for the long tail of languages is delegated to an external
// counting tool (tokei); the primary source language is counted by a
// same-process categorizer so the numbers do not depend on the external
// tool's language detection.
package loc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fulmenhq/pkgscout/pkg/logger"
)

// PrimaryLanguage is counted in-process; the external tool's rows for it are
// discarded to avoid double counting.
const PrimaryLanguage = "Julia"

// Row is one line-count aggregate: a (directory, language) pair within the
// scanned tree. Directory is the top-level directory relative to the scan
// root, or "." for files at the root.
type Row struct {
	Directory    string `json:"directory"`
	Language     string `json:"language"`
	SubLanguage  string `json:"sublanguage,omitempty"`
	FileCount    int    `json:"files"`
	CodeLines    int    `json:"code"`
	CommentLines int    `json:"comments"`
	BlankLines   int    `json:"blanks"`
}

// Counter merges the external tool's output with the in-process primary
// language count.
type Counter struct {
	toolPath string
}

// NewCounter locates the external counting tool. The binary path can be
// overridden via PKGSCOUT_TOOL_TOKEI; otherwise PATH is searched. A missing
// tool is not fatal: counting degrades to the primary language only.
func NewCounter() *Counter {
	if override := os.Getenv("PKGSCOUT_TOOL_TOKEI"); override != "" {
		return &Counter{toolPath: override}
	}
	path, err := exec.LookPath("tokei")
	if err != nil {
		logger.Debug("tokei not found on PATH, counting primary language only")
		return &Counter{}
	}
	return &Counter{toolPath: path}
}

// Count scans dir and returns rows sorted by (directory, language).
func (c *Counter) Count(ctx context.Context, dir string) ([]Row, error) {
	rows, err := CountPrimary(dir)
	if err != nil {
		return nil, err
	}

	if c.toolPath != "" {
		toolRows, err := c.runTool(ctx, dir)
		if err != nil {
			// The external tool failing is a degradation, not a failure:
			// primary-language numbers are still valid.
			logger.Warn("external line counter failed", logger.Err(err))
		} else {
			for _, row := range toolRows {
				if row.Language == PrimaryLanguage {
					continue
				}
				rows = append(rows, row)
			}
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Directory != rows[j].Directory {
			return rows[i].Directory < rows[j].Directory
		}
		return rows[i].Language < rows[j].Language
	})
	return rows, nil
}

// tokei JSON output: language name -> stats with per-file reports.
type toolLanguage struct {
	Blanks   int          `json:"blanks"`
	Code     int          `json:"code"`
	Comments int          `json:"comments"`
	Reports  []toolReport `json:"reports"`
}

type toolReport struct {
	Name  string    `json:"name"`
	Stats toolStats `json:"stats"`
}

type toolStats struct {
	Blanks   int `json:"blanks"`
	Code     int `json:"code"`
	Comments int `json:"comments"`
}

func (c *Counter) runTool(ctx context.Context, dir string) ([]Row, error) {
	cmd := exec.CommandContext(ctx, c.toolPath, "--output", "json", dir) // #nosec G204 -- tool path resolved at construction
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", c.toolPath, err)
	}

	if err := validateToolOutput(output); err != nil {
		return nil, err
	}

	var parsed map[string]toolLanguage
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse line counter output: %w", err)
	}

	// Aggregate per (top-level directory, language).
	type key struct{ dir, lang string }
	agg := make(map[key]*Row)
	for lang, stats := range parsed {
		for _, report := range stats.Reports {
			topDir := topLevelDir(dir, report.Name)
			k := key{topDir, lang}
			row, ok := agg[k]
			if !ok {
				row = &Row{Directory: topDir, Language: lang}
				agg[k] = row
			}
			row.FileCount++
			row.CodeLines += report.Stats.Code
			row.CommentLines += report.Stats.Comments
			row.BlankLines += report.Stats.Blanks
		}
	}

	rows := make([]Row, 0, len(agg))
	for _, row := range agg {
		rows = append(rows, *row)
	}
	return rows, nil
}

// topLevelDir maps an absolute or root-relative file path to its top-level
// directory within root, or "." for root-level files.
func topLevelDir(root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		rel = file
	}
	rel = filepath.ToSlash(rel)
	if idx := strings.IndexByte(rel, '/'); idx >= 0 {
		return rel[:idx]
	}
	return "."
}
