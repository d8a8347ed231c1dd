/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package report

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aymerick/raymond"
	"github.com/mattn/go-runewidth"

	"github.com/fulmenhq/pkgscout/pkg/analyze"
	"github.com/fulmenhq/pkgscout/pkg/loc"
)

// markdownTemplate is a Handlebars document; per-package sections are
// prebuilt maps so the template stays declarative.
const markdownTemplate = `# Package Analysis Report

**Generated:** {{generatedAt}}
**Packages:** {{total}} ({{reachable}} reachable)

{{#each packages}}
## {{name}}{{#if version}} v{{version}}{{/if}}

{{#if reachable}}
- **Repository:** {{#if repoURL}}{{repoURL}}{{else}}local{{/if}}
- **Docs:** {{yesno hasDocs}} | **Tests:** {{yesno hasTests}} | **CI:** {{#if ci}}{{ci}}{{else}}none{{/if}}
{{#if licenses}}
- **License:** {{licenses}}
{{/if}}
{{#if locTable}}

{{{locTable}}}
{{/if}}
{{#if contributors}}
- **Top contributors:** {{contributors}}
{{/if}}
{{else}}
*Unreachable.*
{{/if}}

{{/each}}
`

var registerHelpersOnce sync.Once

func registerHelpers() {
	raymond.RegisterHelper("yesno", func(v bool) string {
		if v {
			return "yes"
		}
		return "no"
	})
}

func (f *Formatter) formatMarkdown(reports []analyze.Report) (string, error) {
	registerHelpersOnce.Do(registerHelpers)

	reachable := 0
	packages := make([]map[string]interface{}, 0, len(reports))
	for _, r := range reports {
		if r.Reachable {
			reachable++
		}
		packages = append(packages, packageContext(r))
	}

	data := map[string]interface{}{
		"generatedAt": time.Now().UTC().Format(time.RFC3339),
		"total":       len(reports),
		"reachable":   reachable,
		"packages":    packages,
	}

	out, err := raymond.Render(markdownTemplate, data)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return out, nil
}

func packageContext(r analyze.Report) map[string]interface{} {
	ctx := map[string]interface{}{
		"name":      r.Name,
		"version":   r.Version,
		"repoURL":   r.RepoURL,
		"reachable": r.Reachable,
		"hasDocs":   r.Health.HasDocs,
		"hasTests":  r.Health.HasTests,
		"ci":        strings.Join(r.Health.CI, ", "),
	}

	var licenses []string
	for _, finding := range r.Licenses {
		licenses = append(licenses, finding.LicensesFound...)
	}
	ctx["licenses"] = strings.Join(licenses, ", ")

	ctx["locTable"] = locTable(r.Lines)

	var contributors []string
	for i, c := range r.Contributors {
		if i == 5 {
			break
		}
		contributors = append(contributors, fmt.Sprintf("%s (%s)", c.Login, numPrinter.Sprint(c.Contributions)))
	}
	ctx["contributors"] = strings.Join(contributors, ", ")

	return ctx
}

// locTable renders the lines-of-code rows as an aligned code block. Widths
// are computed with runewidth so non-ASCII directory names stay aligned.
func locTable(rows []loc.Row) string {
	if len(rows) == 0 {
		return ""
	}

	type cells struct{ dir, lang, files, code, comments, blanks string }
	header := cells{"Directory", "Language", "Files", "Code", "Comments", "Blanks"}
	out := make([]cells, 0, len(rows)+1)
	out = append(out, header)
	for _, row := range rows {
		lang := row.Language
		if row.SubLanguage != "" {
			lang += "/" + row.SubLanguage
		}
		out = append(out, cells{
			dir:      row.Directory,
			lang:     lang,
			files:    numPrinter.Sprint(row.FileCount),
			code:     numPrinter.Sprint(row.CodeLines),
			comments: numPrinter.Sprint(row.CommentLines),
			blanks:   numPrinter.Sprint(row.BlankLines),
		})
	}

	width := func(pick func(cells) string) int {
		w := 0
		for _, c := range out {
			if cw := runewidth.StringWidth(pick(c)); cw > w {
				w = cw
			}
		}
		return w
	}
	dirW := width(func(c cells) string { return c.dir })
	langW := width(func(c cells) string { return c.lang })
	filesW := width(func(c cells) string { return c.files })
	codeW := width(func(c cells) string { return c.code })
	commentsW := width(func(c cells) string { return c.comments })
	blanksW := width(func(c cells) string { return c.blanks })

	var sb strings.Builder
	sb.WriteString("```\n")
	for _, c := range out {
		fmt.Fprintf(&sb, "%s  %s  %s  %s  %s  %s\n",
			runewidth.FillRight(c.dir, dirW),
			runewidth.FillRight(c.lang, langW),
			runewidth.FillLeft(c.files, filesW),
			runewidth.FillLeft(c.code, codeW),
			runewidth.FillLeft(c.comments, commentsW),
			runewidth.FillLeft(c.blanks, blanksW))
	}
	sb.WriteString("```")
	return sb.String()
}
