package nl2sql

import (
	"fmt"
	"strings"
)

// writeKeywords change data wherever they appear in a statement, including
// data-modifying CTEs and SELECT ... INTO.
var writeKeywords = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "MERGE": {}, "UPSERT": {},
	"INTO": {},
}

// commandKeywords can only start a statement or a parenthesized
// sub-statement, so they are rejected in those positions and otherwise read
// as plain identifiers (a column named "set", for example).
var commandKeywords = map[string]struct{}{
	"DROP": {}, "ALTER": {}, "CREATE": {}, "TRUNCATE": {}, "RENAME": {},
	"GRANT": {}, "REVOKE": {}, "COPY": {}, "CALL": {}, "EXEC": {},
	"EXECUTE": {}, "DO": {}, "SET": {}, "RESET": {}, "LOCK": {},
	"VACUUM": {}, "ANALYZE": {}, "ATTACH": {}, "DETACH": {}, "INSTALL": {},
	"LOAD": {}, "PRAGMA": {}, "EXPORT": {}, "IMPORT": {}, "CHECKPOINT": {},
	"HANDLER": {},
}

const openParen = "("

type RejectedQueryError struct {
	SQL    string
	Reason string
}

func (e *RejectedQueryError) Error() string {
	return "query rejected: " + e.Reason
}

// ValidateReadOnly accepts exactly one SELECT or WITH statement. Comments
// and quoted text are ignored when looking for keywords.
func ValidateReadOnly(sql string) error {
	reject := func(format string, args ...any) error {
		return &RejectedQueryError{SQL: sql, Reason: fmt.Sprintf(format, args...)}
	}

	statements, err := scanStatements(sql)
	if err != nil {
		return reject("%v", err)
	}
	if len(statements) == 0 {
		return reject("query is empty")
	}
	if len(statements) > 1 {
		return reject("expected a single statement, found %d", len(statements))
	}

	tokens := statements[0]
	first := ""
	for _, token := range tokens {
		if token != openParen {
			first = token
			break
		}
	}
	switch first {
	case "SELECT", "WITH":
	default:
		if first == "" {
			return reject("query is empty")
		}
		return reject("statement must start with SELECT or WITH, found %s", first)
	}
	for i, token := range tokens {
		if _, write := writeKeywords[token]; write {
			return reject("keyword %s is not allowed in a read-only query", token)
		}
		if _, command := commandKeywords[token]; command && (i == 0 || tokens[i-1] == openParen) {
			return reject("keyword %s is not allowed in a read-only query", token)
		}
	}
	return nil
}

// scanStatements splits sql on semicolons and returns, for every non-empty
// statement, its upper-cased bare words and opening parentheses in order.
func scanStatements(sql string) ([][]string, error) {
	var (
		statements [][]string
		current    []string
	)
	flush := func() {
		if len(current) > 0 {
			statements = append(statements, current)
			current = nil
		}
	}

	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				i = len(sql)
			} else {
				i += end + 1
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated block comment")
			}
			i += 2 + end + 2
		case c == '\'':
			next, err := skipStringLiteral(sql, i, hasEscapePrefix(sql, i))
			if err != nil {
				return nil, err
			}
			i = next
		case c == '"' || c == '`':
			next, err := skipQuoted(sql, i, c)
			if err != nil {
				return nil, err
			}
			i = next
		case c == '$' && dollarTag(sql, i) != "":
			tag := dollarTag(sql, i)
			end := strings.Index(sql[i+len(tag):], tag)
			if end < 0 {
				return nil, fmt.Errorf("unterminated dollar-quoted string")
			}
			i += len(tag) + end + len(tag)
		case c == '(':
			current = append(current, openParen)
			i++
		case c == ';':
			flush()
			i++
		case isWordStart(c):
			start := i
			for i < len(sql) && isWordPart(sql[i]) {
				i++
			}
			if start > 0 && sql[start-1] == '.' {
				continue
			}
			current = append(current, strings.ToUpper(sql[start:i]))
		default:
			i++
		}
	}
	flush()
	return statements, nil
}

// skipStringLiteral returns the index after the single-quoted literal that
// opens at start. In E'...' literals a backslash escapes the next byte. In
// plain literals a backslash is rejected: whether it escapes depends on
// server settings, so the literal's end cannot be known.
func skipStringLiteral(sql string, start int, escapes bool) (int, error) {
	for i := start + 1; i < len(sql); i++ {
		switch sql[i] {
		case '\\':
			if !escapes {
				return 0, fmt.Errorf("backslash in string literal")
			}
			i++
		case '\'':
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("unterminated quoted text")
}

// hasEscapePrefix reports whether the quote at i opens an E'...' literal.
func hasEscapePrefix(sql string, i int) bool {
	if i == 0 || (sql[i-1] != 'E' && sql[i-1] != 'e') {
		return false
	}
	return i == 1 || !isWordPart(sql[i-2])
}

func skipQuoted(sql string, start int, quote byte) (int, error) {
	for i := start + 1; i < len(sql); i++ {
		if sql[i] != quote {
			continue
		}
		if i+1 < len(sql) && sql[i+1] == quote {
			i++
			continue
		}
		return i + 1, nil
	}
	return 0, fmt.Errorf("unterminated quoted text")
}

// dollarTag returns the opening $tag$ at position i, or "" when there is none.
func dollarTag(sql string, i int) string {
	j := i + 1
	for j < len(sql) && isWordPart(sql[j]) && sql[j] != '$' {
		j++
	}
	if j < len(sql) && sql[j] == '$' {
		if j > i+1 && sql[i+1] >= '0' && sql[i+1] <= '9' {
			return ""
		}
		return sql[i : j+1]
	}
	return ""
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordPart(c byte) bool {
	return isWordStart(c) || (c >= '0' && c <= '9') || c == '$'
}
