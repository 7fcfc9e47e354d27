package server

import (
	"context"

	"readit/internal/featureflags"
	"readit/internal/middleware"
	"readit/internal/notifications"
	"readit/internal/observability"
	"readit/internal/service"
)

// PublishScoreUpdate announces a target's new score to websocket clients.
// With redis the event goes through the broadcast channel, which every
// instance's hub (this one included) relays; without it only local clients
// are reached.
func (s *Server) PublishScoreUpdate(ctx context.Context, update service.ScoreUpdate) {
	if !s.featureFlags.Enabled(featureflags.RealtimeVotes, 0) {
		return
	}
	s.publishBroadcastEvent(ctx, notifications.Event{
		Type:    notifications.EventVoteScoreUpdated,
		Payload: update,
	})
}

func (s *Server) publishBroadcastEvent(ctx context.Context, event notifications.Event) {
	message, err := event.Encode()
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode event", "event_type", event.Type, "error", err)
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(event.Type).Inc()

	if s.notifier.Enabled() {
		err = s.notifier.PublishBroadcast(ctx, message)
		if err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "failed to publish broadcast event, delivering locally",
			"event_type", event.Type, "error", err)
	}
	s.hub.BroadcastAll(message)
}
