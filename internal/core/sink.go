package core

import "context"

// EventSink is the narrow interface the gamification side-channel consumes.
// Record is fire-and-forget: the core never blocks on, or fails because of,
// stats bookkeeping. Payloads carry identifiers and counters only, never
// message text.
type EventSink interface {
	Record(ctx context.Context, kind string, payload map[string]any)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Record(context.Context, string, map[string]any) {}
