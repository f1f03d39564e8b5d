package service

import (
	"context"

	"github.com/lk2023060901/ai-research-backend/internal/chat/store"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/eventbus"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/sse"
)

// Forwarder relays bus events onto the SSE hub so connected clients see
// conversation state changes as they happen
type Forwarder struct {
	bus  *eventbus.Bus
	hub  *sse.Hub
	subs []*eventbus.Subscription
}

// NewForwarder creates a forwarder. Call Start to attach it.
func NewForwarder(bus *eventbus.Bus, hub *sse.Hub) *Forwarder {
	return &Forwarder{bus: bus, hub: hub}
}

// Start subscribes to all conversation-facing bus events
func (f *Forwarder) Start() {
	forward := func(_ context.Context, event eventbus.Event) error {
		threadID, payload := describe(event)
		if threadID == "" {
			return nil
		}
		f.hub.Broadcast(threadResource(threadID), sse.Event{
			Type: string(event.Type()),
			Data: payload,
		})
		return nil
	}

	for _, t := range []eventbus.EventType{
		store.EventMessageAppended,
		store.EventMessageUpdated,
		store.EventMessagesUpdated,
		store.EventConversationCreated,
		store.EventConversationUpdated,
		store.EventSyncError,
	} {
		f.subs = append(f.subs, f.bus.On(t, forward))
	}
}

// Stop detaches the forwarder from the bus
func (f *Forwarder) Stop() {
	for _, sub := range f.subs {
		f.bus.Off(sub)
	}
	f.subs = nil
}

// describe flattens a bus event into its thread id and wire payload
func describe(event eventbus.Event) (string, interface{}) {
	switch ev := event.(type) {
	case *store.MessageAppendedEvent:
		return ev.ThreadID, ev.Message
	case *store.MessageUpdatedEvent:
		return ev.ThreadID, ev.Message
	case *store.MessagesUpdatedEvent:
		return ev.ThreadID, map[string]interface{}{"messages": ev.Messages}
	case *store.ConversationCreatedEvent:
		return ev.ThreadID, map[string]interface{}{"title": ev.Title, "query": ev.Query}
	case *store.ConversationUpdatedEvent:
		return ev.ThreadID, map[string]interface{}{"message_count": len(ev.Messages)}
	case *store.SyncErrorEvent:
		return ev.ThreadID, map[string]interface{}{"error": ev.Err.Error()}
	default:
		return "", nil
	}
}
