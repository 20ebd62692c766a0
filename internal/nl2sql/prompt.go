package nl2sql

import (
	"strings"

	"github.com/askdb/askdb/internal/metadata"
)

var promptRules = []string{
	"Use only the tables and columns listed in the schema.",
	"Return a SELECT statement only. Never modify data or schema.",
	"Return a single statement.",
	"Do not include any explanation or commentary.",
	"Do not use markdown formatting.",
}

// BuildPrompt renders the instruction text sent to the model. The output
// depends only on its arguments.
func BuildPrompt(question string, tables []metadata.TableDescriptor, dialect string) string {
	dialect = strings.TrimSpace(dialect)
	if dialect == "" {
		dialect = "SQL"
	}

	var b strings.Builder
	b.WriteString("You are a senior ")
	b.WriteString(dialect)
	b.WriteString(" expert. Generate ONLY a single valid read-only SELECT query.\n\n")

	b.WriteString(dialect)
	b.WriteString(" Schema:\n")
	for _, table := range tables {
		b.WriteString("Table: ")
		b.WriteString(table.Name)
		b.WriteString("\n")
		for _, column := range table.Columns {
			b.WriteString("  - ")
			b.WriteString(column.Name)
			if column.Type != "" {
				b.WriteString(" (")
				b.WriteString(column.Type)
				b.WriteString(")")
			}
			b.WriteString("\n")
		}
		if table.Description != "" {
			b.WriteString("  Description: ")
			b.WriteString(table.Description)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nRules:\n")
	for _, rule := range promptRules {
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteString("\n")
	}
	return b.String()
}
