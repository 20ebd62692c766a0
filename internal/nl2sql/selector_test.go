package nl2sql

import (
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/metadata"
)

func sampleTables() []metadata.TableDescriptor {
	return []metadata.TableDescriptor{
		{Name: "orders", Description: "customer purchase orders", Columns: []metadata.ColumnDescriptor{{Name: "id"}, {Name: "total"}}},
		{Name: "employees", Description: "staff directory", Columns: []metadata.ColumnDescriptor{{Name: "name"}, {Name: "salary"}}},
		{Name: "products", Description: "catalogue items", Columns: []metadata.ColumnDescriptor{{Name: "sku"}, {Name: "price"}}},
		{Name: "customers", Description: "customer accounts", Columns: []metadata.ColumnDescriptor{{Name: "email"}}},
	}
}

func names(tables []metadata.TableDescriptor) string {
	out := make([]string, 0, len(tables))
	for _, table := range tables {
		out = append(out, table.Name)
	}
	return strings.Join(out, ",")
}

func TestSelectTablesRanksByKeywordOverlap(t *testing.T) {
	got := SelectTables("what is the total of customer orders", sampleTables(), 3)
	if names(got) != "orders,customers" {
		t.Fatalf("SelectTables() = %s", names(got))
	}
}

func TestSelectTablesScenarioSalary(t *testing.T) {
	tables := []metadata.TableDescriptor{
		{Name: "employees", Columns: []metadata.ColumnDescriptor{{Name: "name"}, {Name: "salary"}}},
	}
	got := SelectTables("top employees by salary", tables, 3)
	if names(got) != "employees" {
		t.Fatalf("SelectTables() = %s", names(got))
	}
}

func TestHighestAmountOrderQuestion(t *testing.T) {
	tables := []metadata.TableDescriptor{
		{Name: "orders", Columns: []metadata.ColumnDescriptor{{Name: "id"}, {Name: "amount"}}},
	}
	question := "what is the highest amount order"

	if !Classify(question).Ranking {
		t.Fatal("Classify().Ranking = false, want true")
	}
	selection := Select(question, tables, DefaultTableLimit)
	if selection.Fallback {
		t.Fatal("orders should be selected by score, not by fallback")
	}
	if names(selection.Tables) != "orders" {
		t.Fatalf("Select() = %s", names(selection.Tables))
	}
	scored := ScoreTables(question, tables)
	if len(scored) != 1 || scored[0].Score < 1 {
		t.Fatalf("ScoreTables() = %+v", scored)
	}
}

func TestSelectTablesFallbackReturnsLoadOrderPrefix(t *testing.T) {
	selection := Select("weather forecast tomorrow", sampleTables(), 2)
	if !selection.Fallback {
		t.Fatal("expected fallback selection")
	}
	if names(selection.Tables) != "orders,employees" {
		t.Fatalf("fallback tables = %s", names(selection.Tables))
	}
}

func TestSelectTablesRespectsLimit(t *testing.T) {
	tables := sampleTables()
	question := "orders employees products customers"
	for limit := 1; limit <= 5; limit++ {
		got := SelectTables(question, tables, limit)
		want := limit
		if want > len(tables) {
			want = len(tables)
		}
		if len(got) != want {
			t.Fatalf("limit %d: len = %d, want %d", limit, len(got), want)
		}
	}
	if got := SelectTables(question, tables, 0); len(got) != DefaultTableLimit {
		t.Fatalf("default limit: len = %d", len(got))
	}
}

func TestSelectTablesReturnsSubsetOfInput(t *testing.T) {
	tables := sampleTables()
	known := map[string]bool{}
	for _, table := range tables {
		known[table.Name] = true
	}
	for _, question := range []string{"salary", "price of items", "nothing relevant", ""} {
		for _, table := range SelectTables(question, tables, 3) {
			if !known[table.Name] {
				t.Fatalf("question %q selected unknown table %q", question, table.Name)
			}
		}
	}
}

func TestSelectTablesIsCaseInsensitive(t *testing.T) {
	lower := SelectTables("employee salary", sampleTables(), 3)
	upper := SelectTables("EMPLOYEE SALARY", sampleTables(), 3)
	if names(lower) != names(upper) {
		t.Fatalf("case mismatch: %s vs %s", names(lower), names(upper))
	}
}

func TestSelectTablesTiesKeepLoadOrder(t *testing.T) {
	tables := []metadata.TableDescriptor{
		{Name: "a", Columns: []metadata.ColumnDescriptor{{Name: "id"}}},
		{Name: "b", Columns: []metadata.ColumnDescriptor{{Name: "id"}}},
		{Name: "c", Columns: []metadata.ColumnDescriptor{{Name: "id"}}},
	}
	if got := names(SelectTables("id", tables, 3)); got != "a,b,c" {
		t.Fatalf("SelectTables() = %s", got)
	}
}

func TestSelectTablesEmptyInput(t *testing.T) {
	if got := SelectTables("anything", nil, 3); len(got) != 0 {
		t.Fatalf("SelectTables() = %+v", got)
	}
}

func TestSelectTablesNamelessTableStillSelectable(t *testing.T) {
	tables := []metadata.TableDescriptor{
		{Description: "mystery data", Columns: []metadata.ColumnDescriptor{{Name: "widget"}}},
		{Name: "orders"},
	}
	got := SelectTables("widget counts", tables, 3)
	if len(got) != 1 || got[0].Name != "" {
		t.Fatalf("SelectTables() = %+v", got)
	}
}
