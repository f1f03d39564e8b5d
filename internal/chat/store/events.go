package store

import (
	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/eventbus"
)

// Bus event types emitted around conversation state. The store emits the
// message events; the driver emits the conversation lifecycle events; the
// persistence bridge emits the sync events. None of them know who listens.
const (
	EventMessageAppended     eventbus.EventType = "message.appended"
	EventMessageUpdated      eventbus.EventType = "message.updated"
	EventMessagesUpdated     eventbus.EventType = "messages.batch_updated"
	EventConversationCreated eventbus.EventType = "conversation.created"
	EventConversationUpdated eventbus.EventType = "conversation.updated"
	EventSyncStarted         eventbus.EventType = "sync.started"
	EventSyncCompleted       eventbus.EventType = "sync.completed"
	EventSyncError           eventbus.EventType = "sync.error"
)

// MessageAppendedEvent is emitted after a message is inserted. Seq is the
// message's position in the conversation.
type MessageAppendedEvent struct {
	ThreadID string
	Message  *types.Message
	Seq      int
}

func (e *MessageAppendedEvent) Type() eventbus.EventType { return EventMessageAppended }

// MessageUpdatedEvent is emitted after an existing message is overwritten.
type MessageUpdatedEvent struct {
	ThreadID string
	Message  *types.Message
}

func (e *MessageUpdatedEvent) Type() eventbus.EventType { return EventMessageUpdated }

// MessagesUpdatedEvent is emitted once per batch overwrite.
type MessagesUpdatedEvent struct {
	ThreadID string
	Messages []*types.Message
}

func (e *MessagesUpdatedEvent) Type() eventbus.EventType { return EventMessagesUpdated }

// ConversationCreatedEvent marks the first user message of a new thread.
type ConversationCreatedEvent struct {
	ThreadID string
	Title    string
	Query    string
}

func (e *ConversationCreatedEvent) Type() eventbus.EventType { return EventConversationCreated }

// ConversationUpdatedEvent carries the full message snapshot taken after a
// stream ends.
type ConversationUpdatedEvent struct {
	ThreadID string
	Messages []*types.Message
}

func (e *ConversationUpdatedEvent) Type() eventbus.EventType { return EventConversationUpdated }

// SyncStartedEvent, SyncCompletedEvent and SyncErrorEvent describe one
// best-effort mirror attempt by the persistence bridge.
type SyncStartedEvent struct {
	ThreadID string
}

func (e *SyncStartedEvent) Type() eventbus.EventType { return EventSyncStarted }

type SyncCompletedEvent struct {
	ThreadID string
}

func (e *SyncCompletedEvent) Type() eventbus.EventType { return EventSyncCompleted }

type SyncErrorEvent struct {
	ThreadID string
	Err      error
}

func (e *SyncErrorEvent) Type() eventbus.EventType { return EventSyncError }
