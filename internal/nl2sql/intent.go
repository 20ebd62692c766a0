package nl2sql

import "strings"

var rankingMarkers = []string{
	"top",
	"highest",
	"lowest",
	"most",
	"least",
	"maximum",
	"minimum",
	"rank",
	"order",
}

type Intent struct {
	Ranking bool `json:"ranking"`
}

// Classify flags questions that ask for an ordered answer. Matching is a
// plain substring test on the lower-cased question.
func Classify(question string) Intent {
	lowered := strings.ToLower(question)
	for _, marker := range rankingMarkers {
		if strings.Contains(lowered, marker) {
			return Intent{Ranking: true}
		}
	}
	return Intent{}
}
