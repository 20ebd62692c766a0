package answer

import (
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/query"
)

func TestRenderEmptyResult(t *testing.T) {
	for _, ranking := range []bool{true, false} {
		got := Render(query.Result{Columns: []string{"name"}}, ranking)
		if got != NoResults {
			t.Fatalf("Render(ranking=%v) = %q", ranking, got)
		}
	}
}

func TestRenderRankedRows(t *testing.T) {
	result := query.Result{
		Columns: []string{"name", "salary"},
		Rows: [][]any{
			{"Ann", int64(9000)},
			{"Bob", int64(8000)},
		},
	}
	want := "Rank 1: name: Ann, salary: 9000\nRank 2: name: Bob, salary: 8000"
	if got := Render(result, true); got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRenderUnrankedRows(t *testing.T) {
	result := query.Result{
		Columns: []string{"count"},
		Rows:    [][]any{{int64(42)}},
	}
	if got := Render(result, false); got != "count: 42" {
		t.Fatalf("Render() = %q", got)
	}
}

func TestRenderLineCountAndRankPrefix(t *testing.T) {
	rows := make([][]any, 7)
	for i := range rows {
		rows[i] = []any{i}
	}
	result := query.Result{Columns: []string{"n"}, Rows: rows}

	for _, ranking := range []bool{true, false} {
		lines := strings.Split(Render(result, ranking), "\n")
		if len(lines) != len(rows) {
			t.Fatalf("ranking=%v: %d lines, want %d", ranking, len(lines), len(rows))
		}
		for _, line := range lines {
			if strings.HasPrefix(line, "Rank ") != ranking {
				t.Fatalf("ranking=%v: unexpected line %q", ranking, line)
			}
		}
	}
}

func TestRenderNullAndBytes(t *testing.T) {
	result := query.Result{
		Columns: []string{"name", "manager"},
		Rows:    [][]any{{[]byte("Ann"), nil}},
	}
	if got := Render(result, false); got != "name: Ann, manager: NULL" {
		t.Fatalf("Render() = %q", got)
	}
}

func TestRenderTrimsTrailingWhitespace(t *testing.T) {
	result := query.Result{Columns: []string{"note"}, Rows: [][]any{{"padded   "}}}
	if got := Render(result, false); got != "note: padded" {
		t.Fatalf("Render() = %q", got)
	}
}

func TestRenderEscapesLineBreaksInValues(t *testing.T) {
	result := query.Result{
		Columns: []string{"name", "address"},
		Rows: [][]any{
			{"Ann", "1 Main St\nSpringfield"},
			{"Bob", []byte("2 Side St\r\nShelbyville\r")},
		},
	}
	got := Render(result, true)
	want := "Rank 1: name: Ann, address: 1 Main St\\nSpringfield\n" +
		"Rank 2: name: Bob, address: 2 Side St\\nShelbyville\\r"
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
	if lines := strings.Count(got, "\n") + 1; lines != len(result.Rows) {
		t.Fatalf("line count = %d, want %d", lines, len(result.Rows))
	}
}
