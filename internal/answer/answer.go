// Package answer turns query results into the plain-text reply shown to the
// person who asked.
package answer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/askdb/askdb/internal/query"
)

const NoResults = "No results found."

// Render writes one line per row as "column: value" pairs. Ranked answers
// prefix each line with its 1-based position.
func Render(result query.Result, ranking bool) string {
	if len(result.Rows) == 0 {
		return NoResults
	}

	lines := make([]string, 0, len(result.Rows))
	for i, row := range result.Rows {
		pairs := make([]string, 0, len(row))
		for j, value := range row {
			pairs = append(pairs, columnName(result.Columns, j)+": "+FormatValue(value))
		}
		line := strings.Join(pairs, ", ")
		if ranking {
			line = "Rank " + strconv.Itoa(i+1) + ": " + line
		}
		lines = append(lines, line)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \t\r\n")
}

var lineBreakEscaper = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\r`)

// FormatValue renders one cell. Line breaks inside text are escaped so a
// row always renders as a single line.
func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case []byte:
		return lineBreakEscaper.Replace(string(typed))
	case string:
		return lineBreakEscaper.Replace(typed)
	default:
		return lineBreakEscaper.Replace(fmt.Sprint(typed))
	}
}

func columnName(columns []string, index int) string {
	if index < len(columns) {
		return columns[index]
	}
	return "column" + strconv.Itoa(index+1)
}
