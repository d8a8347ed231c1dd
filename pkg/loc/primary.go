package loc

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// CountPrimary counts code, comment, and blank lines of the primary source
// language in-process. Line comments (#), block comments (#= =# with
// nesting), and blank lines are distinguished; anything else is code. A line
// carrying code before a trailing comment counts as code.
func CountPrimary(dir string) ([]Row, error) {
	agg := make(map[string]*Row)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".jl") {
			return nil
		}

		code, comments, blanks, err := countFile(path)
		if err != nil {
			return err
		}

		topDir := topLevelDir(dir, path)
		row, ok := agg[topDir]
		if !ok {
			row = &Row{Directory: topDir, Language: PrimaryLanguage}
			agg[topDir] = row
		}
		row.FileCount++
		row.CodeLines += code
		row.CommentLines += comments
		row.BlankLines += blanks
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(agg))
	for _, row := range agg {
		rows = append(rows, *row)
	}
	return rows, nil
}

func countFile(path string) (code, comments, blanks int, err error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from our own directory walk
	if err != nil {
		return 0, 0, 0, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	blockDepth := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if blockDepth > 0 {
			comments++
			blockDepth += strings.Count(line, "#=") - strings.Count(line, "=#")
			if blockDepth < 0 {
				blockDepth = 0
			}
			continue
		}

		switch {
		case line == "":
			blanks++
		case strings.HasPrefix(line, "#="):
			comments++
			blockDepth = strings.Count(line, "#=") - strings.Count(line, "=#")
			if blockDepth < 0 {
				blockDepth = 0
			}
		case strings.HasPrefix(line, "#"):
			comments++
		default:
			code++
		}
	}
	return code, comments, blanks, scanner.Err()
}
