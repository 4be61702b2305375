package server

import (
	"context"
	"encoding/json"

	"skillswap/internal/notifications"
	"skillswap/internal/observability"
)

// Event type constants prevent typos in event names.
const (
	EventSwapUpdated        = "swap_updated"
	EventApplicationUpdated = "application_updated"
	EventMessageCreated     = "message_created"
)

// realtimePublisher fans payloads out through Redis when it is available, so
// every API instance's hub sees them, and straight into the local hub otherwise.
type realtimePublisher struct {
	hub      *notifications.Hub
	notifier *notifications.Notifier
}

func (p realtimePublisher) PublishUser(ctx context.Context, userID string, payload string) error {
	if p.notifier != nil {
		return p.notifier.PublishUser(ctx, userID, payload)
	}
	if p.hub != nil {
		p.hub.Broadcast(userID, payload)
	}
	return nil
}

// publishUserEvent pushes eventType to each user. Failures are logged and dropped.
func (s *Server) publishUserEvent(ctx context.Context, eventType string, payload any, userIDs ...string) {
	eventJSON, err := json.Marshal(map[string]any{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		observability.LogBestEffortFailure(ctx, "realtime.marshal", err, map[string]any{"event": eventType})
		return
	}

	pub := realtimePublisher{hub: s.hub, notifier: s.notifier}
	ctx = context.WithoutCancel(ctx)
	for _, userID := range userIDs {
		if userID == "" {
			continue
		}
		if err := pub.PublishUser(ctx, userID, string(eventJSON)); err != nil {
			observability.LogBestEffortFailure(ctx, "realtime.publish", err, map[string]any{
				"event":   eventType,
				"user_id": userID,
			})
		}
	}
}
