/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fulmenhq/pkgscout/pkg/analyze"
	"github.com/fulmenhq/pkgscout/pkg/buildinfo"
)

// OutputFormat represents the format for analysis output
type OutputFormat string

const (
	FormatMarkdown OutputFormat = "markdown"
	FormatJSON     OutputFormat = "json"
	// Concise is a short, colorized per-package summary ideal for terminals
	FormatConcise OutputFormat = "concise"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatMarkdown:
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatConcise:
		return FormatConcise, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Formatter renders analysis reports in the configured output format.
type Formatter struct {
	format OutputFormat
}

// NewFormatter creates a new report formatter
func NewFormatter(format OutputFormat) *Formatter {
	return &Formatter{format: format}
}

// Format renders the batch according to the configured format.
func (f *Formatter) Format(reports []analyze.Report) (string, error) {
	switch f.format {
	case FormatConcise:
		return f.formatConcise(reports), nil
	case FormatMarkdown:
		return f.formatMarkdown(reports)
	case FormatJSON:
		return f.formatJSON(reports)
	default:
		return "", fmt.Errorf("unsupported format: %s", f.format)
	}
}

// jsonEnvelope wraps the reports with generation metadata so consumers can
// tell which tool version produced a document.
type jsonEnvelope struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Tool        string           `json:"tool"`
	Version     string           `json:"version"`
	Packages    []analyze.Report `json:"packages"`
}

func (f *Formatter) formatJSON(reports []analyze.Report) (string, error) {
	env := jsonEnvelope{
		GeneratedAt: time.Now().UTC(),
		Tool:        "pkgscout",
		Version:     buildinfo.BinaryVersion,
		Packages:    reports,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal reports: %w", err)
	}
	return string(data), nil
}

// formatConcise prints one colorized line per package plus a footer.
func (f *Formatter) formatConcise(reports []analyze.Report) string {
	color := func(code string, s string) string {
		if os.Getenv("NO_COLOR") != "" {
			return s
		}
		return "\x1b[" + code + "m" + s + "\x1b[0m"
	}
	bold := func(s string) string { return color("1", s) }
	green := func(s string) string { return color("32", s) }
	red := func(s string) string { return color("31", s) }

	var sb strings.Builder

	nameWidth := 0
	for _, r := range reports {
		if w := runewidth.StringWidth(r.Name); w > nameWidth {
			nameWidth = w
		}
	}

	reachable := 0
	for _, r := range reports {
		status := red("unreachable")
		if r.Reachable {
			reachable++
			status = green("ok")
		}
		line := runewidth.FillRight(r.Name, nameWidth)
		fmt.Fprintf(&sb, "%s  %s", bold(line), status)
		if r.Version != "" {
			fmt.Fprintf(&sb, "  v=%s", r.Version)
		}
		if r.Reachable {
			fmt.Fprintf(&sb, "  loc=%s  %s", numPrinter.Sprint(totalCode(r)), healthSummary(r.Health))
			if len(r.Licenses) > 0 {
				fmt.Fprintf(&sb, "  license=%s", strings.Join(r.Licenses[0].LicensesFound, ","))
			}
		}
		fmt.Fprintf(&sb, "  (%s)\n", r.Duration.Round(time.Millisecond))
	}

	fmt.Fprintf(&sb, "%s %d/%d packages reachable\n", bold("Scout:"), reachable, len(reports))
	return sb.String()
}

var numPrinter = message.NewPrinter(language.English)

func totalCode(r analyze.Report) int {
	total := 0
	for _, row := range r.Lines {
		total += row.CodeLines
	}
	return total
}

// healthSummary compresses the health booleans into a compact flag string,
// e.g. "docs+tests+ci" or "no-docs".
func healthSummary(h analyze.Health) string {
	var parts []string
	if h.HasDocs {
		parts = append(parts, "docs")
	}
	if h.HasTests {
		parts = append(parts, "tests")
	}
	if len(h.CI) > 0 {
		parts = append(parts, "ci")
	}
	if len(parts) == 0 {
		return "bare"
	}
	return strings.Join(parts, "+")
}
