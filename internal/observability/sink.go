package observability

import (
	"context"
	"log"

	"animechat-service/internal/repositories"
)

// Stat columns bumped per recorded event kind.
var statForKind = map[string]string{
	"match_started": "matches_made",
	"message_sent":  "messages_sent",
	"room_joined":   "rooms_joined",
}

// GamificationSink forwards activity events to the stats store and onto the
// message bus for downstream consumers (badges, leaderboards). Failures are
// logged and swallowed; gamification never blocks the chat path.
type GamificationSink struct {
	stats repositories.StatsRepository
}

func NewGamificationSink(stats repositories.StatsRepository) *GamificationSink {
	return &GamificationSink{stats: stats}
}

func (s *GamificationSink) Record(ctx context.Context, kind string, payload map[string]any) {
	userID, _ := payload["user_id"].(string)

	if stat, ok := statForKind[kind]; ok && userID != "" && s.stats != nil {
		if err := s.stats.IncrementStat(ctx, userID, stat, 1); err != nil {
			log.Printf("gamification: increment %s for %s: %v", stat, userID, err)
		}
	}

	envelope := EventEnvelope{EventType: "gamification", EventName: kind, Payload: payload}
	if err := PublishEvent(ctx, "gamification."+kind, envelope, nil); err != nil {
		log.Printf("gamification: publish %s: %v", kind, err)
	}
}
