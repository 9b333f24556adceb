// Package matching owns the waiting queue and the live 1:1 match registry.
//
// Both structures sit behind a single mutex so that selecting a candidate,
// removing it from the queue and creating the symmetric match pair is one
// atomic step: two concurrent match requests can never claim the same queued
// user, and a teardown always removes both sides of a pair.
package matching

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"animechat-service/internal/models"
	"animechat-service/internal/scoring"
)

// ErrNotInMatch is returned when a connection without an active match tries to
// send a message.
var ErrNotInMatch = errors.New("not in an active match")

// Keyword flagging for 1:1 chat. Purely advisory: the message is delivered
// either way, the client just renders a spoiler warning.
var spoilerKeywords = []string{"dies", "killed", "death", "ending", "finale", "spoiler"}

const (
	randomScoreMin = 10
	randomScoreMax = 25
)

// Result describes a formed match from the requester's perspective.
type Result struct {
	PartnerConnID string
	Partner       *models.UserProfile
	Score         int
	Band          scoring.Band
	Type          models.MatchType
}

// Relay describes a 1:1 message accepted for delivery. Match messages are
// never persisted; the relay is the whole lifecycle.
type Relay struct {
	PartnerConnID string
	SenderUserID  string
	IsSpoiler     bool
}

// Service is the queue-based matchmaker plus the active-match registry.
type Service struct {
	mu      sync.Mutex
	queue   []*models.QueueEntry
	matches map[string]*models.ActiveMatch // keyed by conn id
	now     func() time.Time
}

// NewService creates an empty matcher.
func NewService() *Service {
	return &Service{
		matches: make(map[string]*models.ActiveMatch),
		now:     time.Now,
	}
}

// RequestMatch evaluates the arriving user against the queue. It returns a
// Result when a partner was selected, or (nil, false) when the requester was
// enqueued instead.
//
// Candidates are partitioned into score bands; the best-scoring candidate of
// the highest non-empty band wins, ties broken by earliest arrival. If only
// the low band is populated the candidate is picked uniformly at random so the
// same least-bad user is not matched over and over. The displayed score for a
// random pick is cosmetic.
func (s *Service) RequestMatch(connID, userID string, user *models.UserProfile) (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A re-request replaces the connection's stale queue entry.
	s.removeQueuedLocked(connID)

	type candidate struct {
		entry *models.QueueEntry
		score int
	}
	var candidates []candidate
	for _, entry := range s.queue {
		// Self-matching is excluded by identity, not connection: two tabs
		// of the same user never pair up.
		if entry.UserID == userID {
			continue
		}
		candidates = append(candidates, candidate{entry, scoring.Score(user, entry.User)})
	}

	if len(candidates) == 0 {
		s.queue = append(s.queue, &models.QueueEntry{
			ConnID:     connID,
			UserID:     userID,
			User:       user,
			EnqueuedAt: s.now(),
		})
		return nil, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		// Queue order is arrival order, so a strict improvement is required
		// to beat an earlier entry.
		if c.score > best.score {
			best = c
		}
	}

	score := best.score
	band := scoring.BandFor(score)
	matchType := models.MatchTypeInterest
	if band == scoring.BandLow {
		best = candidates[rand.Intn(len(candidates))]
		score = randomScoreMin + rand.Intn(randomScoreMax-randomScoreMin+1)
		matchType = models.MatchTypeRandom
	}

	s.removeQueuedLocked(best.entry.ConnID)
	s.createPairLocked(connID, userID, best.entry.ConnID, best.entry.UserID, score, matchType)

	return &Result{
		PartnerConnID: best.entry.ConnID,
		Partner:       best.entry.User,
		Score:         score,
		Band:          band,
		Type:          matchType,
	}, true
}

func (s *Service) createPairLocked(connID, userID, partnerConn, partnerUser string, score int, matchType models.MatchType) {
	s.matches[connID] = &models.ActiveMatch{
		ConnID:        connID,
		PartnerConnID: partnerConn,
		UserID:        userID,
		PartnerUserID: partnerUser,
		Compatibility: score,
		Type:          matchType,
	}
	s.matches[partnerConn] = &models.ActiveMatch{
		ConnID:        partnerConn,
		PartnerConnID: connID,
		UserID:        partnerUser,
		PartnerUserID: userID,
		Compatibility: score,
		Type:          matchType,
	}
}

// Cancel removes the connection's queue entry if present. Safe no-op
// otherwise.
func (s *Service) Cancel(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeQueuedLocked(connID)
}

// Teardown ends the connection's active match, removing both sides. It returns
// the partner's connection and user id so the caller can notify them. Safe
// no-op when the connection has no match.
func (s *Service) Teardown(connID string) (partnerConnID, userID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, found := s.matches[connID]
	if !found {
		return "", "", false
	}
	delete(s.matches, connID)
	delete(s.matches, match.PartnerConnID)
	return match.PartnerConnID, match.UserID, true
}

// Send accepts a 1:1 message for relay to the partner. Returns ErrNotInMatch
// when the sender has no active match.
func (s *Service) Send(connID, text string) (Relay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[connID]
	if !ok {
		return Relay{}, ErrNotInMatch
	}
	return Relay{
		PartnerConnID: match.PartnerConnID,
		SenderUserID:  match.UserID,
		IsSpoiler:     FlagSpoiler(text),
	}, nil
}

// MatchFor returns a copy of the connection's active match entry.
func (s *Service) MatchFor(connID string) (models.ActiveMatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[connID]
	if !ok {
		return models.ActiveMatch{}, false
	}
	return *match, true
}

// QueueSize returns the number of waiting users.
func (s *Service) QueueSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// ActiveMatches returns the number of match entries (two per live pair).
func (s *Service) ActiveMatches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}

// QueueSnapshot lists waiting users for the debug endpoint.
func (s *Service) QueueSnapshot() []models.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]models.QueueEntry, 0, len(s.queue))
	for _, entry := range s.queue {
		snapshot = append(snapshot, *entry)
	}
	return snapshot
}

// Clear drops all queue entries and matches. Debug use only.
func (s *Service) Clear() (queued, matched int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queued, matched = len(s.queue), len(s.matches)
	s.queue = nil
	s.matches = make(map[string]*models.ActiveMatch)
	return queued, matched
}

func (s *Service) removeQueuedLocked(connID string) bool {
	for i, entry := range s.queue {
		if entry.ConnID == connID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return true
		}
	}
	return false
}

// FlagSpoiler reports whether the text trips the 1:1 spoiler keyword
// heuristic (case-insensitive substring match).
func FlagSpoiler(text string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range spoilerKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
