// Package license identifies licenses present in a source tree. It wraps
// the licenseclassifier engine and reports findings per file with SPDX
// identifiers and the fraction of the file covered by license text.
package license

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	classifier "github.com/google/licenseclassifier/v2"
	"github.com/google/licenseclassifier/v2/assets"

	"github.com/fulmenhq/pkgscout/pkg/logger"
	"github.com/fulmenhq/pkgscout/pkg/safeio"
)

// Finding is the license report for one file.
type Finding struct {
	File           string   `json:"file"`
	LicensesFound  []string `json:"licenses_found"`
	PercentCovered float64  `json:"percent_covered"`
}

// Candidate file names scanned for license text, case-insensitive.
var candidateNames = []string{"license", "licence", "copying", "copyright", "notice", "unlicense"}

const maxLicenseFileSize = 1 << 20

// Scanner classifies license files in a directory.
type Scanner struct {
	classifier *classifier.Classifier
}

// NewScanner builds a Scanner backed by the default embedded license corpus.
func NewScanner() (*Scanner, error) {
	c, err := assets.DefaultClassifier()
	if err != nil {
		return nil, fmt.Errorf("failed to load license classifier: %w", err)
	}
	return &Scanner{classifier: c}, nil
}

// Scan classifies every license-candidate file directly under dir and
// returns findings sorted by file name. Unreadable candidates are skipped;
// a tree with a broken license file is something to report on, not crash on.
func (s *Scanner) Scan(dir string) ([]Finding, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s for licenses: %w", dir, err)
	}

	var findings []Finding
	for _, entry := range entries {
		if entry.IsDir() || !isCandidate(entry.Name()) {
			continue
		}
		if info, err := entry.Info(); err != nil || info.Size() > maxLicenseFileSize {
			continue
		}

		data, err := safeio.ReadFileContained(dir, filepath.Join(dir, entry.Name()))
		if err != nil {
			logger.Debug("skipping unreadable license candidate",
				logger.String("file", entry.Name()), logger.Err(err))
			continue
		}

		finding := s.classify(entry.Name(), data)
		if len(finding.LicensesFound) > 0 {
			findings = append(findings, finding)
		}
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].File < findings[j].File })
	return findings, nil
}

func (s *Scanner) classify(name string, data []byte) Finding {
	results := s.classifier.Match(data)

	totalLines := strings.Count(string(data), "\n") + 1
	coveredLines := 0
	seen := make(map[string]struct{})
	var found []string

	for _, m := range results.Matches {
		if m.MatchType != "License" {
			continue
		}
		if _, dup := seen[m.Name]; !dup {
			seen[m.Name] = struct{}{}
			found = append(found, m.Name)
		}
		if m.EndLine >= m.StartLine {
			coveredLines += m.EndLine - m.StartLine + 1
		}
	}
	sort.Strings(found)

	percent := 0.0
	if totalLines > 0 {
		percent = float64(coveredLines) / float64(totalLines) * 100
		if percent > 100 {
			percent = 100
		}
	}

	return Finding{File: name, LicensesFound: found, PercentCovered: percent}
}

func isCandidate(name string) bool {
	lower := strings.ToLower(name)
	for _, candidate := range candidateNames {
		if lower == candidate || strings.HasPrefix(lower, candidate+".") {
			return true
		}
	}
	return false
}
