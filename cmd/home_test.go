/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHomeCommand(t *testing.T) {
	isolateHome(t)
	out, err := execRoot(t, []string{"home"})
	if err != nil {
		t.Fatalf("home failed: %v", err)
	}
	if !strings.Contains(out, "Home:") || !strings.Contains(out, "none installed") {
		t.Errorf("unexpected home output:\n%s", out)
	}
}

func TestHomeInitCreatesLayout(t *testing.T) {
	isolateHome(t)
	_, err := execRoot(t, []string{"home", "--init"})
	if err != nil {
		t.Fatalf("home --init failed: %v", err)
	}
	home := os.Getenv("PKGSCOUT_HOME")
	for _, rel := range []string{"cache/packages", "scratch"} {
		if _, err := os.Stat(filepath.Join(home, filepath.FromSlash(rel))); err != nil {
			t.Errorf("expected %s to exist: %v", rel, err)
		}
	}
}

func TestHomeJSON(t *testing.T) {
	isolateHome(t)
	out, err := execRoot(t, []string{"home", "--json"})
	if err != nil {
		t.Fatalf("home --json failed: %v", err)
	}
	var v map[string]interface{}
	if json.Unmarshal([]byte(out), &v) != nil {
		t.Fatalf("home output is not valid JSON: %s", out)
	}
	if _, ok := v["cacheDir"]; !ok {
		t.Errorf("expected cacheDir key in home JSON")
	}
}
