// Package merge reassembles streamed chat events into message snapshots.
// It is pure: no I/O, no shared state, and the input message is never
// mutated in place.
package merge

import (
	"strings"

	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
)

// Merge applies one stream event to the accumulated message state and
// returns a new deep snapshot. The caller must treat the result as the new
// authoritative value; the input is left untouched.
func Merge(msg *types.Message, event types.StreamEvent) *types.Message {
	out := msg.Clone()

	switch ev := event.(type) {
	case *types.MessageChunkEvent:
		mergeTextChunk(out, ev)
	case *types.ToolCallsEvent:
		mergeToolCalls(out, ev)
		mergeToolCallChunks(out, ev.ToolCallChunks)
	case *types.ToolCallChunksEvent:
		mergeToolCallChunks(out, ev.ToolCallChunks)
	case *types.ToolCallResultEvent:
		if call := out.FindToolCall(ev.ToolCallID); call != nil {
			call.Result = ev.Content
		}
	case *types.InterruptEvent:
		out.IsStreaming = false
		out.Options = append([]types.Option(nil), ev.Options...)
	}

	if reason := event.Meta().FinishReason; reason != "" {
		out.FinishReason = reason
		out.IsStreaming = false
		finalizeToolCalls(out)
	}

	return out
}

func mergeTextChunk(msg *types.Message, ev *types.MessageChunkEvent) {
	if ev.Content != "" {
		msg.Content += ev.Content
		msg.ContentChunks = append(msg.ContentChunks, ev.Content)
	}
	if ev.ReasoningContent != "" {
		msg.ReasoningContent += ev.ReasoningContent
		msg.ReasoningContentChunks = append(msg.ReasoningContentChunks, ev.ReasoningContent)
	}
}

// mergeToolCalls replaces the message's tool calls with a fresh batch
// declaration. A payload whose first call has no name is an incremental
// artifact, not a declaration, and is ignored here.
func mergeToolCalls(msg *types.Message, ev *types.ToolCallsEvent) {
	if len(ev.ToolCalls) == 0 || ev.ToolCalls[0].Name == "" {
		return
	}
	calls := make([]types.ToolCall, 0, len(ev.ToolCalls))
	for _, decl := range ev.ToolCalls {
		calls = append(calls, types.ToolCall{
			ID:   decl.ID,
			Name: decl.Name,
			Args: decl.Args,
		})
	}
	msg.ToolCalls = calls
}

// mergeToolCallChunks routes each fragment: a fragment with an id restarts
// that call's chunk buffer; a fragment without one continues whichever call
// is currently accumulating. Declaration events may carry fragments too.
func mergeToolCallChunks(msg *types.Message, chunks []types.ToolCallChunk) {
	for _, chunk := range chunks {
		text := ConvertToolChunkArgs(chunk.Args)
		if chunk.ID != "" {
			if call := msg.FindToolCall(chunk.ID); call != nil {
				call.ArgsChunks = []string{text}
			}
			continue
		}
		for i := range msg.ToolCalls {
			if len(msg.ToolCalls[i].ArgsChunks) > 0 {
				msg.ToolCalls[i].ArgsChunks = append(msg.ToolCalls[i].ArgsChunks, text)
				break
			}
		}
	}
}

// finalizeToolCalls concatenates and parses any pending argument chunks.
// Chunks are discarded afterwards, which makes finalization idempotent.
func finalizeToolCalls(msg *types.Message) {
	for i := range msg.ToolCalls {
		call := &msg.ToolCalls[i]
		if len(call.ArgsChunks) == 0 {
			continue
		}
		call.Args = ParseToolCallArgs(strings.Join(call.ArgsChunks, ""))
		call.ArgsChunks = nil
	}
}
