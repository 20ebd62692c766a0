// Package chat implements the interactive question loop. The conversation
// history belongs to the caller; the pipeline itself never sees it.
package chat

import (
	"time"

	"github.com/google/uuid"
)

type Turn struct {
	ID       string
	Question string
	SQL      string
	Answer   string
	Error    string
	At       time.Time
}

// History is an append-only list of turns, bounded to the most recent max
// entries when max is positive. It is not safe for concurrent use.
type History struct {
	max   int
	turns []Turn
	now   func() time.Time
}

func NewHistory(max int) *History {
	return &History{max: max, now: time.Now}
}

func (h *History) Add(turn Turn) Turn {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.At.IsZero() {
		turn.At = h.now().UTC()
	}
	h.turns = append(h.turns, turn)
	if h.max > 0 && len(h.turns) > h.max {
		h.turns = append([]Turn(nil), h.turns[len(h.turns)-h.max:]...)
	}
	return turn
}

func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	return len(h.turns)
}

func (h *History) Clear() {
	h.turns = nil
}
