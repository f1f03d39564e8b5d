package service

import (
	"context"

	"github.com/lk2023060901/ai-research-backend/internal/chat/store"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/sse"
)

// HubNotifier pushes user-facing notices to the current thread's SSE
// subscribers
type HubNotifier struct {
	store *store.Store
	hub   *sse.Hub
}

// NewHubNotifier creates a notifier bound to the hub
func NewHubNotifier(st *store.Store, hub *sse.Hub) *HubNotifier {
	return &HubNotifier{store: st, hub: hub}
}

// Notify broadcasts a notice to everyone watching the conversation
func (n *HubNotifier) Notify(_ context.Context, level, title, message string) {
	n.hub.Broadcast(threadResource(n.store.ThreadID()), sse.Event{
		Type: "notification",
		Data: map[string]string{
			"level":   level,
			"title":   title,
			"message": message,
		},
	})
}
