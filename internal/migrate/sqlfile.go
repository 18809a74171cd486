package migrate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mallardhq/mallard/pkg/schema"
)

// markerRe matches the section markers that split a SQL migration into its
// up and down halves:
//
//	-- +mallard up
//	-- +mallard down
var markerRe = regexp.MustCompile(`^\s*--\s*\+mallard\s+(up|down)\s*$`)

// parseSQLSections splits a SQL migration file into up and down statement
// lists. The up section is required; statements are split on top-level
// semicolons.
func parseSQLSections(content string) (up, down []string, err error) {
	var (
		upBuf, downBuf strings.Builder
		section        string
		seen           = map[string]bool{}
	)

	for _, line := range strings.Split(content, "\n") {
		if m := markerRe.FindStringSubmatch(line); m != nil {
			if seen[m[1]] {
				return nil, nil, fmt.Errorf("duplicate -- +mallard %s marker", m[1])
			}
			seen[m[1]] = true
			section = m[1]
			continue
		}
		switch section {
		case "up":
			upBuf.WriteString(line)
			upBuf.WriteByte('\n')
		case "down":
			downBuf.WriteString(line)
			downBuf.WriteByte('\n')
		default:
			if strings.TrimSpace(line) != "" && !strings.HasPrefix(strings.TrimSpace(line), "--") {
				return nil, nil, fmt.Errorf("statement before -- +mallard up marker")
			}
		}
	}

	if !seen["up"] {
		return nil, nil, fmt.Errorf("missing -- +mallard up marker")
	}
	return schema.SplitStatements(upBuf.String()), schema.SplitStatements(downBuf.String()), nil
}
