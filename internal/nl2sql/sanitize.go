package nl2sql

import (
	"strings"
	"unicode"
)

const fence = "```"

// StripCodeFences extracts the query from a model response. When the
// response holds a fenced block, only the body of the first block is kept
// and any surrounding prose is dropped. Stray fence markers are removed.
func StripCodeFences(raw string) string {
	text := raw
	if start := strings.Index(text, fence); start >= 0 {
		rest := text[start+len(fence):]
		if end := strings.Index(rest, fence); end >= 0 {
			text = dropLanguageTag(rest[:end])
		} else if strings.TrimSpace(text[:start]) == "" {
			text = dropLanguageTag(rest)
		}
	}
	text = strings.ReplaceAll(text, fence, "")
	return strings.TrimSpace(text)
}

func dropLanguageTag(body string) string {
	newline := strings.IndexByte(body, '\n')
	if newline < 0 {
		return body
	}
	tag := strings.TrimSpace(body[:newline])
	if tag == "" || isLanguageTag(tag) {
		return body[newline+1:]
	}
	return body
}

func isLanguageTag(word string) bool {
	switch strings.ToUpper(word) {
	case "SELECT", "WITH":
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' && r != '+' {
			return false
		}
	}
	return true
}
