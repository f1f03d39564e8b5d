package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalEventMessageChunk(t *testing.T) {
	data := []byte(`{"id":"m1","thread_id":"t1","role":"assistant","agent":"researcher","content":"hi","reasoning_content":"think"}`)

	event, err := UnmarshalEvent(EventTypeMessageChunk, data)
	require.NoError(t, err)

	chunk, ok := event.(*MessageChunkEvent)
	require.True(t, ok)
	assert.Equal(t, "m1", chunk.ID)
	assert.Equal(t, "t1", chunk.ThreadID)
	assert.Equal(t, AgentResearcher, chunk.Agent)
	assert.Equal(t, "hi", chunk.Content)
	assert.Equal(t, "think", chunk.ReasoningContent)
}

func TestUnmarshalEventToolCalls(t *testing.T) {
	data := []byte(`{"id":"m1","tool_calls":[{"id":"c1","name":"web_search"}],"tool_call_chunks":[{"id":"c1","name":"web_search","args":"{\"query\""}]}`)

	event, err := UnmarshalEvent(EventTypeToolCalls, data)
	require.NoError(t, err)

	calls, ok := event.(*ToolCallsEvent)
	require.True(t, ok)
	require.Len(t, calls.ToolCalls, 1)
	assert.Equal(t, "c1", calls.ToolCalls[0].ID)
	require.Len(t, calls.ToolCallChunks, 1)
	assert.Equal(t, `{"query"`, calls.ToolCallChunks[0].Args)
}

func TestUnmarshalEventToolCallResult(t *testing.T) {
	data := []byte(`{"id":"m2","tool_call_id":"c1","content":"results"}`)

	event, err := UnmarshalEvent(EventTypeToolCallResult, data)
	require.NoError(t, err)

	result, ok := event.(*ToolCallResultEvent)
	require.True(t, ok)
	assert.Equal(t, "c1", result.ToolCallID)
	assert.Equal(t, "results", result.Content)
}

func TestUnmarshalEventInterrupt(t *testing.T) {
	data := []byte(`{"id":"m1","finish_reason":"interrupt","options":[{"text":"Start research","value":"accepted"}]}`)

	event, err := UnmarshalEvent(EventTypeInterrupt, data)
	require.NoError(t, err)

	interrupt, ok := event.(*InterruptEvent)
	require.True(t, ok)
	assert.Equal(t, FinishReasonInterrupt, interrupt.FinishReason)
	require.Len(t, interrupt.Options, 1)
	assert.Equal(t, "accepted", interrupt.Options[0].Value)
}

func TestUnmarshalEventRejectsUnknownType(t *testing.T) {
	_, err := UnmarshalEvent("progress_update", []byte(`{}`))
	assert.Error(t, err)
}

func TestUnmarshalEventRejectsBadJSON(t *testing.T) {
	_, err := UnmarshalEvent(EventTypeMessageChunk, []byte(`{"id":`))
	assert.Error(t, err)
}
