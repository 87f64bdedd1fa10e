package models

import "time"

// SessionKind tells which study loop produced a ReviewSession.
type SessionKind string

const (
	SessionDeckPass   SessionKind = "deck_pass"
	SessionHardReview SessionKind = "hard_review"
)

// ReviewSession summarises the ratings given during one pass through a deck
// or one hard-card review loop.
type ReviewSession struct {
	ID         string      `json:"id"`
	CategoryID string      `json:"category_id"`
	Kind       SessionKind `json:"kind"`
	Easy       int         `json:"easy"`
	Medium     int         `json:"medium"`
	Hard       int         `json:"hard"`
	StartedAt  time.Time   `json:"started_at"`
	EndedAt    time.Time   `json:"ended_at"`
	Completed  bool        `json:"completed"`
}

// Total is the number of ratings recorded in the session.
func (s ReviewSession) Total() int {
	return s.Easy + s.Medium + s.Hard
}

// Count adds one rating to the matching counter.
func (s *ReviewSession) Count(d Difficulty) {
	switch d {
	case DifficultyEasy:
		s.Easy++
	case DifficultyMedium:
		s.Medium++
	case DifficultyHard:
		s.Hard++
	}
}

// SessionTotals aggregates the whole session log.
type SessionTotals struct {
	Sessions int `json:"sessions"`
	Easy     int `json:"easy"`
	Medium   int `json:"medium"`
	Hard     int `json:"hard"`
	Reviewed int `json:"reviewed"`
}

// SumSessions builds SessionTotals from a list of sessions.
func SumSessions(sessions []ReviewSession) SessionTotals {
	var t SessionTotals
	for _, s := range sessions {
		t.Sessions++
		t.Easy += s.Easy
		t.Medium += s.Medium
		t.Hard += s.Hard
	}
	t.Reviewed = t.Easy + t.Medium + t.Hard
	return t
}
