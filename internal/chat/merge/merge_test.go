package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
)

func chunkEvent(id, content string) *types.MessageChunkEvent {
	return &types.MessageChunkEvent{
		EventMeta: types.EventMeta{ID: id, ThreadID: "t1", Role: types.RoleAssistant},
		Content:   content,
	}
}

func TestMergeAppendsContentChunksInOrder(t *testing.T) {
	msg := &types.Message{ID: "m1", ThreadID: "t1", IsStreaming: true}

	msg = Merge(msg, chunkEvent("m1", "Hello, "))
	msg = Merge(msg, chunkEvent("m1", "world"))

	assert.Equal(t, "Hello, world", msg.Content)
	assert.Equal(t, []string{"Hello, ", "world"}, msg.ContentChunks)
	assert.True(t, msg.IsStreaming)
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	original := &types.Message{ID: "m1", Content: "before", ContentChunks: []string{"before"}}

	merged := Merge(original, chunkEvent("m1", " after"))

	assert.Equal(t, "before", original.Content)
	assert.Equal(t, 1, len(original.ContentChunks))
	assert.Equal(t, "before after", merged.Content)
}

func TestMergeReasoningContentIsIndependent(t *testing.T) {
	msg := &types.Message{ID: "m1"}

	msg = Merge(msg, &types.MessageChunkEvent{
		EventMeta:        types.EventMeta{ID: "m1"},
		ReasoningContent: "thinking...",
	})
	msg = Merge(msg, chunkEvent("m1", "answer"))

	assert.Equal(t, "thinking...", msg.ReasoningContent)
	assert.Equal(t, "answer", msg.Content)
	assert.Equal(t, []string{"thinking..."}, msg.ReasoningContentChunks)
	assert.Equal(t, []string{"answer"}, msg.ContentChunks)
}

func TestMergeFinishReasonStopsStreaming(t *testing.T) {
	msg := &types.Message{ID: "m1", IsStreaming: true}

	msg = Merge(msg, &types.MessageChunkEvent{
		EventMeta: types.EventMeta{ID: "m1", FinishReason: types.FinishReasonStop},
		Content:   "done",
	})

	assert.False(t, msg.IsStreaming)
	assert.Equal(t, types.FinishReasonStop, msg.FinishReason)
}

func TestMergeToolCallLifecycle(t *testing.T) {
	msg := &types.Message{ID: "m1", IsStreaming: true}

	// 声明批次
	msg = Merge(msg, &types.ToolCallsEvent{
		EventMeta: types.EventMeta{ID: "m1"},
		ToolCalls: []types.ToolCallDecl{{ID: "tc1", Name: "web_search"}},
	})
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "web_search", msg.ToolCalls[0].Name)

	// 带 id 的首个分片重置缓冲,后续无 id 分片续传
	msg = Merge(msg, &types.ToolCallChunksEvent{
		EventMeta:      types.EventMeta{ID: "m1"},
		ToolCallChunks: []types.ToolCallChunk{{ID: "tc1", Args: `{"query":`}},
	})
	msg = Merge(msg, &types.ToolCallChunksEvent{
		EventMeta:      types.EventMeta{ID: "m1"},
		ToolCallChunks: []types.ToolCallChunk{{Args: `"golang"}`}},
	})
	require.Len(t, msg.ToolCalls[0].ArgsChunks, 2)

	// 结束信号触发参数定稿
	msg = Merge(msg, &types.MessageChunkEvent{
		EventMeta: types.EventMeta{ID: "m1", FinishReason: types.FinishReasonToolCalls},
	})
	require.NotNil(t, msg.ToolCalls[0].Args)
	assert.Equal(t, "golang", msg.ToolCalls[0].Args["query"])
	assert.Nil(t, msg.ToolCalls[0].ArgsChunks)

	// 再次收到结束信号不得改写已定稿的参数
	msg = Merge(msg, &types.MessageChunkEvent{
		EventMeta: types.EventMeta{ID: "m1", FinishReason: types.FinishReasonStop},
	})
	assert.Equal(t, "golang", msg.ToolCalls[0].Args["query"])
}

func TestMergeToolCallsCarriesFirstArgsFragment(t *testing.T) {
	msg := &types.Message{ID: "m1", IsStreaming: true}

	// 声明事件可以顺带携带第一段参数分片
	msg = Merge(msg, &types.ToolCallsEvent{
		EventMeta:      types.EventMeta{ID: "m1"},
		ToolCalls:      []types.ToolCallDecl{{ID: "tc1", Name: "web_search"}},
		ToolCallChunks: []types.ToolCallChunk{{ID: "tc1", Args: `{"query":`}},
	})
	require.Len(t, msg.ToolCalls, 1)
	require.Equal(t, []string{`{"query":`}, msg.ToolCalls[0].ArgsChunks)

	msg = Merge(msg, &types.ToolCallChunksEvent{
		EventMeta:      types.EventMeta{ID: "m1"},
		ToolCallChunks: []types.ToolCallChunk{{Args: `"golang"}`}},
	})
	msg = Merge(msg, &types.MessageChunkEvent{
		EventMeta: types.EventMeta{ID: "m1", FinishReason: types.FinishReasonToolCalls},
	})

	require.NotNil(t, msg.ToolCalls[0].Args)
	assert.Equal(t, "golang", msg.ToolCalls[0].Args["query"])
}

func TestMergeToolCallsIgnoresUnnamedBatch(t *testing.T) {
	msg := &types.Message{ID: "m1"}
	msg = Merge(msg, &types.ToolCallsEvent{
		EventMeta: types.EventMeta{ID: "m1"},
		ToolCalls: []types.ToolCallDecl{{ID: "tc1", Name: "search"}},
	})

	// 无名批次是增量伪影,不应覆盖已有声明
	msg = Merge(msg, &types.ToolCallsEvent{
		EventMeta: types.EventMeta{ID: "m1"},
		ToolCalls: []types.ToolCallDecl{{ID: "tc2"}},
	})

	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "tc1", msg.ToolCalls[0].ID)
}

func TestMergeToolCallResult(t *testing.T) {
	msg := &types.Message{
		ID:        "m1",
		ToolCalls: []types.ToolCall{{ID: "tc1", Name: "search"}},
	}

	msg = Merge(msg, &types.ToolCallResultEvent{
		EventMeta:  types.EventMeta{ID: "other"},
		ToolCallID: "tc1",
		Content:    "results here",
	})

	assert.Equal(t, "results here", msg.ToolCalls[0].Result)
}

func TestMergeInterruptOffersOptions(t *testing.T) {
	msg := &types.Message{ID: "m1", IsStreaming: true}

	msg = Merge(msg, &types.InterruptEvent{
		EventMeta: types.EventMeta{ID: "m1", FinishReason: types.FinishReasonInterrupt},
		Options: []types.Option{
			{Text: "Edit plan", Value: "edit_plan"},
			{Text: "Start research", Value: "accepted"},
		},
	})

	assert.False(t, msg.IsStreaming)
	assert.Equal(t, types.FinishReasonInterrupt, msg.FinishReason)
	require.Len(t, msg.Options, 2)
	assert.Equal(t, "accepted", msg.Options[1].Value)
}
