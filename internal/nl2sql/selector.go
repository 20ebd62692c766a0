package nl2sql

import (
	"sort"
	"strings"

	"github.com/askdb/askdb/internal/metadata"
)

const DefaultTableLimit = 3

type ScoredTable struct {
	Table metadata.TableDescriptor
	Score int
}

type Selection struct {
	Tables []metadata.TableDescriptor
	// Fallback is set when no table shared a keyword with the question and
	// the first tables in load order were returned instead.
	Fallback bool
}

func SelectTables(question string, tables []metadata.TableDescriptor, limit int) []metadata.TableDescriptor {
	return Select(question, tables, limit).Tables
}

func Select(question string, tables []metadata.TableDescriptor, limit int) Selection {
	if limit <= 0 {
		limit = DefaultTableLimit
	}
	if len(tables) == 0 {
		return Selection{Tables: []metadata.TableDescriptor{}}
	}

	scored := ScoreTables(question, tables)
	if len(scored) == 0 {
		return Selection{Tables: firstN(tables, limit), Fallback: true}
	}

	if len(scored) > limit {
		scored = scored[:limit]
	}
	selected := make([]metadata.TableDescriptor, 0, len(scored))
	for _, item := range scored {
		selected = append(selected, item.Table)
	}
	return Selection{Tables: selected}
}

// ScoreTables returns the tables that share at least one keyword with the
// question, best first. Ties keep load order.
func ScoreTables(question string, tables []metadata.TableDescriptor) []ScoredTable {
	queryWords := wordSet(question)
	scored := make([]ScoredTable, 0, len(tables))
	for _, table := range tables {
		score := 0
		for keyword := range tableKeywords(table) {
			if _, ok := queryWords[keyword]; ok {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, ScoredTable{Table: table, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func tableKeywords(table metadata.TableDescriptor) map[string]struct{} {
	keywords := wordSet(table.Name)
	for word := range wordSet(table.Description) {
		keywords[word] = struct{}{}
	}
	for _, column := range table.Columns {
		if column.Name == "" {
			continue
		}
		keywords[strings.ToLower(column.Name)] = struct{}{}
	}
	return keywords
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}

func firstN(tables []metadata.TableDescriptor, n int) []metadata.TableDescriptor {
	if n > len(tables) {
		n = len(tables)
	}
	out := make([]metadata.TableDescriptor, n)
	copy(out, tables[:n])
	return out
}
