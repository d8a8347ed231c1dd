package analyze

import (
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Health captures the presence signals a package tree is audited for:
// documentation, tests, and CI configuration.
type Health struct {
	HasReadme bool     `json:"has_readme"`
	HasDocs   bool     `json:"has_docs"`
	HasTests  bool     `json:"has_tests"`
	CI        []string `json:"ci,omitempty"`
}

var docPatterns = []string{"docs/**/*.md", "doc/**/*.md", "docs/src/**", "doc/src/**"}

var testPatterns = []string{"test/**", "tests/**"}

// ciPatterns maps a CI provider name to the config paths that indicate it.
var ciPatterns = map[string][]string{
	"GitHub Actions":  {".github/workflows/*.yml", ".github/workflows/*.yaml"},
	"Travis":          {".travis.yml"},
	"GitLab CI":       {".gitlab-ci.yml"},
	"AppVeyor":        {"appveyor.yml", ".appveyor.yml"},
	"Cirrus":          {".cirrus.yml"},
	"Azure Pipelines": {"azure-pipelines.yml"},
	"Buildkite":       {".buildkite/pipeline.yml"},
	"Drone":           {".drone.yml"},
}

// DetectHealth inspects dir for documentation, test, and CI presence.
// Detection is purely structural; it never fails, an unreadable tree just
// reports everything absent.
func DetectHealth(dir string) Health {
	var h Health
	fsys := os.DirFS(dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return h
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(strings.ToLower(entry.Name()), "readme") {
			h.HasReadme = true
			break
		}
	}

	for _, pattern := range docPatterns {
		if matches, err := doublestar.Glob(fsys, pattern); err == nil && len(matches) > 0 {
			h.HasDocs = true
			break
		}
	}

	for _, pattern := range testPatterns {
		if matches, err := doublestar.Glob(fsys, pattern); err == nil && hasFile(dir, matches) {
			h.HasTests = true
			break
		}
	}

	for provider, patterns := range ciPatterns {
		for _, pattern := range patterns {
			matches, err := doublestar.Glob(fsys, pattern)
			if err != nil || len(matches) == 0 {
				continue
			}
			if provider == "GitHub Actions" && !anyValidWorkflow(dir, matches) {
				continue
			}
			h.CI = append(h.CI, provider)
			break
		}
	}
	sort.Strings(h.CI)

	return h
}

// hasFile reports whether any match is a regular file (a bare empty test
// directory does not count as having tests).
func hasFile(dir string, matches []string) bool {
	for _, m := range matches {
		if info, err := os.Stat(dir + "/" + m); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// anyValidWorkflow requires at least one workflow file to parse as YAML; a
// directory of broken workflows is not a working CI setup.
func anyValidWorkflow(dir string, matches []string) bool {
	for _, m := range matches {
		data, err := os.ReadFile(dir + "/" + m) // #nosec G304 -- path produced by our own glob
		if err != nil {
			continue
		}
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err == nil && len(doc) > 0 {
			return true
		}
	}
	return false
}
