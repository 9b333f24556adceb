package rooms

import (
	"context"
	"log"
	"time"

	"animechat-service/internal/notify"
	"animechat-service/internal/repositories"
)

// Sweeper periodically evicts expired rooms: cache entries are purged,
// remaining members get a room_expired event, and the durable record is
// deleted. The engine itself never watches the clock; it only honors these
// eviction signals.
type Sweeper struct {
	engine    *Engine
	repo      repositories.RoomRepository
	transport notify.Transport
	interval  time.Duration
}

// NewSweeper constructs a sweeper; interval is how often expiry is checked.
func NewSweeper(engine *Engine, repo repositories.RoomRepository, transport notify.Transport, interval time.Duration) *Sweeper {
	return &Sweeper{engine: engine, repo: repo, transport: transport, interval: interval}
}

// Run blocks until ctx is done, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce evicts every room past its expiry.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	expired, err := s.repo.ExpiredRooms(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("rooms: expiry sweep failed: %v", err)
		return
	}

	for _, room := range expired {
		members := s.engine.Evict(room.ID)
		for _, m := range members {
			s.transport.EmitTo(m.ConnID, "room_expired", map[string]any{
				"room_id": room.ID,
				"message": "This episode room has expired",
			})
			s.transport.LeaveRoom(room.ID, m.ConnID)
		}
		if err := s.repo.DeleteRoom(ctx, room.ID); err != nil {
			log.Printf("rooms: delete expired room %s failed: %v", room.ID, err)
			continue
		}
		if len(members) > 0 {
			log.Printf("rooms: evicted expired room %s with %d members", room.ID, len(members))
		}
	}
}
