package types

import (
	"encoding/json"
	"fmt"
)

// Stream event type names as they appear on the wire (SSE event field).
const (
	EventTypeMessageChunk   = "message_chunk"
	EventTypeToolCalls      = "tool_calls"
	EventTypeToolCallChunks = "tool_call_chunks"
	EventTypeToolCallResult = "tool_call_result"
	EventTypeInterrupt      = "interrupt"
)

// EventMeta carries the fields every stream event has: which message it
// belongs to, which thread, and the optional role/agent/finish signal.
type EventMeta struct {
	ID           string       `json:"id"`
	ThreadID     string       `json:"thread_id"`
	Role         Role         `json:"role,omitempty"`
	Agent        Agent        `json:"agent,omitempty"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
}

// Meta makes EventMeta satisfy StreamEvent when embedded.
func (m EventMeta) Meta() EventMeta { return m }

// StreamEvent is the closed union of events the chat backend emits. The
// concrete types below are the only implementations; consumers dispatch with
// an exhaustive type switch instead of string-tag branching.
type StreamEvent interface {
	Meta() EventMeta
}

// MessageChunkEvent appends text to the message's content channel and,
// independently, to its reasoning channel.
type MessageChunkEvent struct {
	EventMeta
	Content          string `json:"content,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// ToolCallDecl declares one tool call in a fresh batch.
type ToolCallDecl struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolCallChunk is one raw argument fragment. ID is present only on the
// first fragment of a call; continuations arrive without it.
type ToolCallChunk struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Args string `json:"args"`
}

// ToolCallsEvent declares a fresh batch of tool calls for the message.
type ToolCallsEvent struct {
	EventMeta
	ToolCalls      []ToolCallDecl  `json:"tool_calls"`
	ToolCallChunks []ToolCallChunk `json:"tool_call_chunks,omitempty"`
}

// ToolCallChunksEvent carries incremental argument fragments.
type ToolCallChunksEvent struct {
	EventMeta
	ToolCallChunks []ToolCallChunk `json:"tool_call_chunks"`
}

// ToolCallResultEvent delivers the result of a previously declared call.
// Its own message id is not authoritative; consumers locate the call by
// ToolCallID across messages.
type ToolCallResultEvent struct {
	EventMeta
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content,omitempty"`
}

// InterruptEvent pauses the stream and offers the user feedback options.
type InterruptEvent struct {
	EventMeta
	Options []Option `json:"options,omitempty"`
}

// UnmarshalEvent decodes one wire event into its typed form.
func UnmarshalEvent(eventType string, data []byte) (StreamEvent, error) {
	switch eventType {
	case EventTypeMessageChunk:
		var ev MessageChunkEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode %s event: %w", eventType, err)
		}
		return &ev, nil
	case EventTypeToolCalls:
		var ev ToolCallsEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode %s event: %w", eventType, err)
		}
		return &ev, nil
	case EventTypeToolCallChunks:
		var ev ToolCallChunksEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode %s event: %w", eventType, err)
		}
		return &ev, nil
	case EventTypeToolCallResult:
		var ev ToolCallResultEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode %s event: %w", eventType, err)
		}
		return &ev, nil
	case EventTypeInterrupt:
		var ev InterruptEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode %s event: %w", eventType, err)
		}
		return &ev, nil
	default:
		return nil, fmt.Errorf("unknown stream event type: %s", eventType)
	}
}
