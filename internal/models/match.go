package models

import "time"

// MatchType distinguishes interest-based pairings from random low-affinity ones.
type MatchType string

const (
	MatchTypeInterest MatchType = "interest_based"
	MatchTypeRandom   MatchType = "random"
)

// QueueEntry is one user waiting in the matching queue. Owned exclusively by
// the matcher; destroyed on match, cancel or disconnect.
type QueueEntry struct {
	ConnID     string
	UserID     string
	User       *UserProfile
	EnqueuedAt time.Time
}

// ActiveMatch is one side of a live 1:1 chat session. Entries always come in
// symmetric pairs: the entry keyed by PartnerConnID references this side back.
type ActiveMatch struct {
	ConnID        string
	PartnerConnID string
	UserID        string
	PartnerUserID string
	Compatibility int
	Type          MatchType
}

// SharedUniverse is the overlap payload delivered alongside match_found.
type SharedUniverse struct {
	SharedAnime          []string  `json:"shared_anime"`
	SharedGenres         []string  `json:"shared_genres"`
	SharedThemes         []string  `json:"shared_themes"`
	ConversationStarters []string  `json:"conversation_starters"`
	MatchType            MatchType `json:"match_type"`
	MatchMessage         string    `json:"match_message"`
}
