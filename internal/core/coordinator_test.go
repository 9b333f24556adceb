package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"animechat-service/internal/matching"
	"animechat-service/internal/mocks"
	"animechat-service/internal/models"
	"animechat-service/internal/presence"
	"animechat-service/internal/rooms"
)

type sinkRecorder struct {
	mu      sync.Mutex
	records []sinkRecord
}

type sinkRecord struct {
	Kind    string
	Payload map[string]any
}

func (s *sinkRecorder) Record(_ context.Context, kind string, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, sinkRecord{Kind: kind, Payload: payload})
}

func profile(id string, anime ...string) *models.UserProfile {
	return &models.UserProfile{ID: id, DisplayName: id, FavoriteAnime: anime}
}

type fixture struct {
	coordinator *Coordinator
	transport   *mocks.TransportRecorder
	users       *mocks.UserRepositoryMock
	roomRepo    *mocks.RoomRepositoryMock
	progress    *mocks.ProgressRepositoryMock
	sink        *sinkRecorder
	matcher     *matching.Service
	registry    *presence.Registry
}

func newFixture() *fixture {
	transport := mocks.NewTransportRecorder()
	users := new(mocks.UserRepositoryMock)
	roomRepo := new(mocks.RoomRepositoryMock)
	progress := new(mocks.ProgressRepositoryMock)
	sink := &sinkRecorder{}
	matcher := matching.NewService()
	registry := presence.NewRegistry()
	engine := rooms.NewEngine(roomRepo, progress)

	return &fixture{
		coordinator: NewCoordinator(registry, matcher, engine, transport, sink, users),
		transport:   transport,
		users:       users,
		roomRepo:    roomRepo,
		progress:    progress,
		sink:        sink,
		matcher:     matcher,
		registry:    registry,
	}
}

func TestJoinMatchingUnknownUser(t *testing.T) {
	f := newFixture()
	f.users.On("GetUser", mock.Anything, "ghost").
		Return((*models.UserProfile)(nil), assert.AnError).Once()

	f.coordinator.JoinMatching(context.Background(), "conn-a", "ghost")

	_, found := f.transport.Find("conn-a", EventError)
	assert.True(t, found)
	assert.False(t, f.registry.IsOnline("ghost"))
}

func TestJoinMatchingFirstUserSearches(t *testing.T) {
	f := newFixture()
	f.users.On("GetUser", mock.Anything, "alice").Return(profile("alice", "One Piece"), nil).Once()

	f.coordinator.JoinMatching(context.Background(), "conn-a", "alice")

	assert.Equal(t, []string{EventMatchingStats, EventSearching}, f.transport.EventsTo("conn-a"))
	assert.True(t, f.registry.IsOnline("alice"))
	_, online := f.transport.Find("", EventUserOnline)
	assert.True(t, online)
}

func TestJoinMatchingRepeatRequestAnnouncesPresenceOnce(t *testing.T) {
	f := newFixture()
	f.users.On("GetUser", mock.Anything, "alice").Return(profile("alice", "One Piece"), nil).Twice()

	f.coordinator.JoinMatching(context.Background(), "conn-a", "alice")
	f.coordinator.JoinMatching(context.Background(), "conn-a", "alice")

	online := 0
	for _, e := range f.transport.Emissions {
		if e.ConnID == "" && e.Event == EventUserOnline {
			online++
		}
	}
	assert.Equal(t, 1, online)
}

func TestJoinMatchingPairsTwoUsers(t *testing.T) {
	f := newFixture()
	f.users.On("GetUser", mock.Anything, "alice").Return(profile("alice", "One Piece", "Naruto"), nil).Once()
	f.users.On("GetUser", mock.Anything, "bob").Return(profile("bob", "One Piece", "Naruto"), nil).Once()

	f.coordinator.JoinMatching(context.Background(), "conn-a", "alice")
	f.coordinator.JoinMatching(context.Background(), "conn-b", "bob")

	emA, okA := f.transport.Find("conn-a", EventMatchFound)
	emB, okB := f.transport.Find("conn-b", EventMatchFound)
	require.True(t, okA)
	require.True(t, okB)

	payloadB := emB.Payload.(map[string]any)
	assert.Equal(t, 20, payloadB["compatibility"])
	partner := payloadB["partner"].(*models.UserProfile)
	assert.Equal(t, "alice", partner.ID)
	partnerOfA := emA.Payload.(map[string]any)["partner"].(*models.UserProfile)
	assert.Equal(t, "bob", partnerOfA.ID)

	require.Len(t, f.sink.records, 2)
	for _, rec := range f.sink.records {
		assert.Equal(t, KindMatchStarted, rec.Kind)
	}
}

func TestSendMessageRelaysAndNeverHitsSink(t *testing.T) {
	f := newFixture()
	f.users.On("GetUser", mock.Anything, "alice").Return(profile("alice", "One Piece"), nil).Once()
	f.users.On("GetUser", mock.Anything, "bob").Return(profile("bob", "One Piece"), nil).Once()
	f.coordinator.JoinMatching(context.Background(), "conn-a", "alice")
	f.coordinator.JoinMatching(context.Background(), "conn-b", "bob")

	f.coordinator.SendMessage(context.Background(), "conn-a", "hidden leaf village forever")

	relayed, ok := f.transport.Find("conn-b", EventReceiveMessage)
	require.True(t, ok)
	assert.Equal(t, "hidden leaf village forever", relayed.Payload.(map[string]any)["message"])
	_, echoed := f.transport.Find("conn-a", EventMessageSent)
	assert.True(t, echoed)

	// The sink sees that a message happened, never what it said.
	for _, rec := range f.sink.records {
		assert.NotContains(t, rec.Payload, "message")
		assert.NotContains(t, rec.Payload, "text")
	}
}

func TestSendMessageWithoutMatch(t *testing.T) {
	f := newFixture()
	f.coordinator.SendMessage(context.Background(), "conn-x", "hello?")

	_, found := f.transport.Find("conn-x", EventError)
	assert.True(t, found)
}

func TestLeaveChatNotifiesPartner(t *testing.T) {
	f := newFixture()
	f.users.On("GetUser", mock.Anything, "alice").Return(profile("alice", "One Piece"), nil).Once()
	f.users.On("GetUser", mock.Anything, "bob").Return(profile("bob", "One Piece"), nil).Once()
	f.coordinator.JoinMatching(context.Background(), "conn-a", "alice")
	f.coordinator.JoinMatching(context.Background(), "conn-b", "bob")

	f.coordinator.LeaveChat("conn-a")

	_, partnerTold := f.transport.Find("conn-b", EventPartnerLeft)
	assert.True(t, partnerTold)
	_, ended := f.transport.Find("conn-a", EventChatEnded)
	assert.True(t, ended)
	assert.Equal(t, 0, f.matcher.ActiveMatches())
}

func TestSkipPartnerRequeuesSkipper(t *testing.T) {
	f := newFixture()
	f.users.On("GetUser", mock.Anything, "alice").Return(profile("alice", "One Piece"), nil).Twice()
	f.users.On("GetUser", mock.Anything, "bob").Return(profile("bob", "One Piece"), nil).Once()
	f.coordinator.JoinMatching(context.Background(), "conn-a", "alice")
	f.coordinator.JoinMatching(context.Background(), "conn-b", "bob")

	f.coordinator.SkipPartner(context.Background(), "conn-a")

	_, skipped := f.transport.Find("conn-b", EventYouWereSkipped)
	assert.True(t, skipped)
	// The partner is gone, so the skipper waits in the queue again.
	assert.Contains(t, f.transport.EventsTo("conn-a"), EventSearching)
	assert.Equal(t, 1, f.matcher.QueueSize())
}

func TestDisconnectCascade(t *testing.T) {
	f := newFixture()
	f.users.On("GetUser", mock.Anything, "alice").Return(profile("alice", "One Piece"), nil).Once()
	f.users.On("GetUser", mock.Anything, "bob").Return(profile("bob", "One Piece"), nil).Once()
	f.coordinator.JoinMatching(context.Background(), "conn-a", "alice")
	f.coordinator.JoinMatching(context.Background(), "conn-b", "bob")

	f.coordinator.OnDisconnect(context.Background(), "conn-a")

	_, partnerTold := f.transport.Find("conn-b", EventPartnerDisconnect)
	assert.True(t, partnerTold)
	assert.False(t, f.registry.IsOnline("alice"))
	assert.True(t, f.registry.IsOnline("bob"))
	assert.Equal(t, 0, f.matcher.ActiveMatches())

	// The surviving side leaving afterwards must not notify the dead conn.
	before := len(f.transport.Emissions)
	f.coordinator.LeaveChat("conn-b")
	events := f.transport.EventsTo("conn-b")
	assert.Equal(t, EventChatEnded, events[len(events)-1])
	for _, e := range f.transport.Emissions[before:] {
		assert.NotEqual(t, EventPartnerLeft, e.Event)
	}
}

func TestDisconnectWhileQueuedDrainsQueue(t *testing.T) {
	f := newFixture()
	f.users.On("GetUser", mock.Anything, "alice").Return(profile("alice", "One Piece"), nil).Once()
	f.coordinator.JoinMatching(context.Background(), "conn-a", "alice")
	require.Equal(t, 1, f.matcher.QueueSize())

	f.coordinator.OnDisconnect(context.Background(), "conn-a")
	assert.Equal(t, 0, f.matcher.QueueSize())
}

func TestJoinEpisodeRoomEmitsToRoomAndSink(t *testing.T) {
	f := newFixture()
	room := &models.EpisodeRoom{
		ID: "room-1", AnimeID: "anime-1", AnimeTitle: "Frieren",
		EpisodeNumber: 3, ExpiresAt: time.Now().Add(time.Hour),
	}
	f.users.On("GetUser", mock.Anything, "alice").Return(profile("alice"), nil).Once()
	f.roomRepo.On("GetRoom", mock.Anything, "room-1").Return(room, nil).Once()
	f.roomRepo.On("WriteMemberCount", mock.Anything, "room-1", 1).Return(nil).Once()
	f.progress.On("GetWatchedEpisodes", mock.Anything, "alice", "anime-1").
		Return(map[int]bool{1: true, 2: true, 3: true}, nil).Once()

	f.coordinator.JoinEpisodeRoom(context.Background(), "conn-a", "alice", "room-1")

	joined, ok := f.transport.Find("conn-a", EventRoomJoined)
	require.True(t, ok)
	payload := joined.Payload.(map[string]any)
	assert.Equal(t, true, payload["can_see_spoilers"])
	assert.True(t, f.transport.InRoom("room-1", "conn-a"))

	require.Len(t, f.sink.records, 1)
	assert.Equal(t, KindRoomJoined, f.sink.records[0].Kind)
}

func TestJoinEpisodeRoomExpired(t *testing.T) {
	f := newFixture()
	stale := &models.EpisodeRoom{ID: "room-1", AnimeID: "anime-1", ExpiresAt: time.Now().Add(-time.Minute)}
	f.users.On("GetUser", mock.Anything, "alice").Return(profile("alice"), nil).Once()
	f.roomRepo.On("GetRoom", mock.Anything, "room-1").Return(stale, nil).Once()

	f.coordinator.JoinEpisodeRoom(context.Background(), "conn-a", "alice", "room-1")

	em, ok := f.transport.Find("conn-a", EventError)
	require.True(t, ok)
	assert.Equal(t, "Room has expired", em.Payload.(map[string]any)["message"])
}

func TestSendRoomMessageDeliversPerRecipient(t *testing.T) {
	f := newFixture()
	room := &models.EpisodeRoom{
		ID: "room-1", AnimeID: "anime-1", EpisodeNumber: 3,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	f.users.On("GetUser", mock.Anything, "caught-up").Return(profile("caught-up"), nil).Once()
	f.users.On("GetUser", mock.Anything, "behind").Return(profile("behind"), nil).Once()
	f.roomRepo.On("GetRoom", mock.Anything, "room-1").Return(room, nil)
	f.roomRepo.On("WriteMemberCount", mock.Anything, "room-1", mock.Anything).Return(nil)
	f.roomRepo.On("SaveMessage", mock.Anything, mock.Anything).Return(nil)
	f.progress.On("GetWatchedEpisodes", mock.Anything, "caught-up", "anime-1").
		Return(map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}, nil)
	f.progress.On("GetWatchedEpisodes", mock.Anything, "behind", "anime-1").
		Return(map[int]bool{1: true}, nil)

	f.coordinator.JoinEpisodeRoom(context.Background(), "conn-a", "caught-up", "room-1")
	f.coordinator.JoinEpisodeRoom(context.Background(), "conn-b", "behind", "room-1")

	episode := 5
	f.coordinator.SendRoomMessage(context.Background(), "conn-a", "the twist in episode 5!", &episode)

	toSender, ok := f.transport.Find("conn-a", EventRoomMessage)
	require.True(t, ok)
	assert.Equal(t, "the twist in episode 5!", toSender.Payload.(map[string]any)["message"])

	toBehind, ok := f.transport.Find("conn-b", EventRoomMessage)
	require.True(t, ok)
	behindPayload := toBehind.Payload.(map[string]any)
	assert.Equal(t, true, behindPayload["is_locked"])
	assert.Equal(t, 5, behindPayload["locked_until_episode"])
	assert.NotContains(t, behindPayload["message"], "twist")
}

func TestOnlineUsersResync(t *testing.T) {
	f := newFixture()
	f.registry.Register("alice", "conn-a")
	f.registry.Register("bob", "conn-b")

	f.coordinator.OnlineUsers("conn-a")

	em, ok := f.transport.Find("conn-a", EventOnlineUsers)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"alice", "bob"}, em.Payload.([]string))
}

func TestCancelMatchingAlwaysAcknowledges(t *testing.T) {
	f := newFixture()
	f.coordinator.CancelMatching("conn-a")

	_, ok := f.transport.Find("conn-a", EventMatchingCancelled)
	assert.True(t, ok)
}
