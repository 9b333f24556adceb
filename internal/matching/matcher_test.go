package matching

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animechat-service/internal/models"
	"animechat-service/internal/scoring"
)

func user(id string, genres ...string) *models.UserProfile {
	return &models.UserProfile{ID: id, DisplayName: id, FavoriteGenres: genres}
}

func animeFan(id string, anime ...string) *models.UserProfile {
	return &models.UserProfile{ID: id, DisplayName: id, FavoriteAnime: anime}
}

func TestFirstRequesterIsEnqueued(t *testing.T) {
	s := NewService()

	result, matched := s.RequestMatch("conn-a", "alice", user("alice", "Action"))
	assert.False(t, matched)
	assert.Nil(t, result)
	assert.Equal(t, 1, s.QueueSize())
}

func TestSecondRequesterMatchesLoneCandidate(t *testing.T) {
	s := NewService()

	s.RequestMatch("conn-a", "alice", user("alice", "Action"))
	result, matched := s.RequestMatch("conn-b", "bob", user("bob", "Romance"))

	require.True(t, matched)
	assert.Equal(t, "conn-a", result.PartnerConnID)
	assert.Equal(t, "alice", result.Partner.ID)
	// Zero shared interests still pairs the only candidate, as a random match.
	assert.Equal(t, models.MatchTypeRandom, result.Type)
	assert.Equal(t, scoring.BandLow, result.Band)
	assert.GreaterOrEqual(t, result.Score, 10)
	assert.LessOrEqual(t, result.Score, 25)

	assert.Equal(t, 0, s.QueueSize())
	assert.Equal(t, 2, s.ActiveMatches())
}

func TestMatchPairIsSymmetric(t *testing.T) {
	s := NewService()

	s.RequestMatch("conn-a", "alice", user("alice", "Action", "Thriller", "Drama"))
	result, matched := s.RequestMatch("conn-b", "bob", user("bob", "Action", "Thriller", "Comedy"))
	require.True(t, matched)

	// Genre-only users share two genres at the boosted weight: 2 x 20 = 40.
	assert.Equal(t, 40, result.Score)
	assert.Equal(t, scoring.BandGood, result.Band)
	assert.Equal(t, models.MatchTypeInterest, result.Type)

	a, ok := s.MatchFor("conn-a")
	require.True(t, ok)
	b, ok := s.MatchFor("conn-b")
	require.True(t, ok)

	assert.Equal(t, "conn-b", a.PartnerConnID)
	assert.Equal(t, "conn-a", b.PartnerConnID)
	assert.Equal(t, a.UserID, b.PartnerUserID)
	assert.Equal(t, b.UserID, a.PartnerUserID)
	assert.Equal(t, a.Compatibility, b.Compatibility)
}

func TestHighestBandWins(t *testing.T) {
	s := NewService()

	// carol shares one anime with frank (10, low), dave shares three
	// (30, good), erin shares six (60, great).
	s.RequestMatch("conn-c", "carol", animeFan("carol", "a1"))
	s.RequestMatch("conn-d", "dave", animeFan("dave", "a1", "a2", "a3"))
	s.RequestMatch("conn-e", "erin", animeFan("erin", "a1", "a2", "a3", "a4", "a5", "a6"))

	result, matched := s.RequestMatch("conn-f", "frank",
		animeFan("frank", "a1", "a2", "a3", "a4", "a5", "a6"))
	require.True(t, matched)
	assert.Equal(t, "conn-e", result.PartnerConnID)
	assert.Equal(t, 60, result.Score)
	assert.Equal(t, scoring.BandGreat, result.Band)
}

func TestTieBrokenByEarliestQueued(t *testing.T) {
	s := NewService()

	s.RequestMatch("conn-a", "alice", animeFan("alice", "a1", "a2"))
	s.RequestMatch("conn-b", "bob", animeFan("bob", "a1", "a2"))

	// Both queued users score 20 against carol; alice queued first.
	result, matched := s.RequestMatch("conn-c", "carol", animeFan("carol", "a1", "a2"))
	require.True(t, matched)
	assert.Equal(t, "conn-a", result.PartnerConnID)
}

func TestNoSelfMatchAcrossTabs(t *testing.T) {
	s := NewService()

	// Same user queued from another tab.
	s.RequestMatch("conn-tab1", "alice", user("alice", "Action"))
	result, matched := s.RequestMatch("conn-tab2", "alice", user("alice", "Action"))

	assert.False(t, matched)
	assert.Nil(t, result)
	assert.Equal(t, 2, s.QueueSize())
}

func TestReRequestPurgesStaleEntry(t *testing.T) {
	s := NewService()

	s.RequestMatch("conn-a", "alice", user("alice", "Action"))
	s.RequestMatch("conn-a", "alice", user("alice", "Action", "Drama"))

	assert.Equal(t, 1, s.QueueSize())
	assert.Equal(t, "Drama", s.QueueSnapshot()[0].User.FavoriteGenres[1])
}

func TestCancelIsIdempotent(t *testing.T) {
	s := NewService()

	s.RequestMatch("conn-a", "alice", user("alice"))
	assert.True(t, s.Cancel("conn-a"))
	assert.False(t, s.Cancel("conn-a"))
	assert.False(t, s.Cancel("never-queued"))
	assert.Equal(t, 0, s.QueueSize())
}

func TestTeardownRemovesBothSides(t *testing.T) {
	s := NewService()

	s.RequestMatch("conn-a", "alice", user("alice"))
	_, matched := s.RequestMatch("conn-b", "bob", user("bob"))
	require.True(t, matched)

	partnerConn, userID, ok := s.Teardown("conn-a")
	require.True(t, ok)
	assert.Equal(t, "conn-b", partnerConn)
	assert.Equal(t, "alice", userID)

	_, ok = s.MatchFor("conn-a")
	assert.False(t, ok)
	_, ok = s.MatchFor("conn-b")
	assert.False(t, ok)

	// A second teardown (e.g. the partner leaving after a disconnect) is a no-op.
	_, _, ok = s.Teardown("conn-b")
	assert.False(t, ok)
}

func TestSendRequiresActiveMatch(t *testing.T) {
	s := NewService()

	_, err := s.Send("conn-a", "hello")
	assert.ErrorIs(t, err, ErrNotInMatch)

	s.RequestMatch("conn-a", "alice", user("alice"))
	s.RequestMatch("conn-b", "bob", user("bob"))

	relay, err := s.Send("conn-a", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "conn-b", relay.PartnerConnID)
	assert.Equal(t, "alice", relay.SenderUserID)
	assert.False(t, relay.IsSpoiler)

	relay, err = s.Send("conn-b", "He DIES in the finale")
	require.NoError(t, err)
	assert.True(t, relay.IsSpoiler)
}

func TestFlagSpoiler(t *testing.T) {
	assert.True(t, FlagSpoiler("the ENDING was wild"))
	assert.True(t, FlagSpoiler("she gets killed off"))
	assert.False(t, FlagSpoiler("best opening song ever"))
}

func TestConcurrentRequestsNeverDoubleClaim(t *testing.T) {
	s := NewService()
	s.RequestMatch("conn-queued", "queued", user("queued", "Action"))

	const requesters = 16
	var wg sync.WaitGroup
	winners := make(chan string, requesters)

	for i := 0; i < requesters; i++ {
		connID := fmt.Sprintf("conn-%d", i)
		userID := fmt.Sprintf("user-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if result, ok := s.RequestMatch(connID, userID, user(userID, "Action")); ok && result.PartnerConnID == "conn-queued" {
				winners <- connID
			}
		}()
	}
	wg.Wait()
	close(winners)

	count := 0
	for range winners {
		count++
	}
	assert.Equal(t, 1, count, "exactly one requester may claim the queued user")

	// Every match entry must reference a partner that references it back.
	for i := 0; i < requesters; i++ {
		connID := fmt.Sprintf("conn-%d", i)
		if match, ok := s.MatchFor(connID); ok {
			partner, ok := s.MatchFor(match.PartnerConnID)
			require.True(t, ok, "dangling one-sided match for %s", connID)
			assert.Equal(t, connID, partner.PartnerConnID)
		}
	}
}
