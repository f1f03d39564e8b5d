package history

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
)

func newTestIndex() *Index {
	return NewIndex(NewMemoryStorage(), zap.NewNop())
}

func TestCreatePutsNewestFirst(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()

	idx.Create(ctx, "t1", "first question")
	idx.Create(ctx, "t2", "second question")

	entries := idx.List()
	require.Len(t, entries, 2)
	assert.Equal(t, "t2", entries[0].ThreadID)
	assert.Equal(t, "t1", entries[1].ThreadID)
	assert.Equal(t, "second question", entries[0].Title)
}

func TestCreateIsIdempotentPerThread(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()

	first := idx.Create(ctx, "t1", "original")
	second := idx.Create(ctx, "t1", "duplicate")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "original", second.Title)
	assert.Len(t, idx.List(), 1)
}

func TestEntryCapEvictsOldest(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()

	for i := 0; i < maxEntries+1; i++ {
		idx.Create(ctx, fmt.Sprintf("t%d", i), fmt.Sprintf("query %d", i))
	}

	entries := idx.List()
	require.Len(t, entries, maxEntries)
	// 最早的会话被挤出,最新的排在最前
	assert.Equal(t, fmt.Sprintf("t%d", maxEntries), entries[0].ThreadID)
	assert.False(t, idx.Has("t0"))
}

func TestUpdateMessagesCapsSnapshot(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()

	idx.Create(ctx, "t1", "long conversation")

	var msgs []*types.Message
	for i := 0; i < maxSnapshotMessages+50; i++ {
		msgs = append(msgs, &types.Message{
			ID:      fmt.Sprintf("m%d", i),
			Role:    types.RoleUser,
			Content: fmt.Sprintf("message %d", i),
		})
	}

	require.NoError(t, idx.UpdateMessages(ctx, "t1", msgs))

	entry, ok := idx.Get("t1")
	require.True(t, ok)
	require.Len(t, entry.Messages, maxSnapshotMessages)
	// 保留尾部且顺序不变
	assert.Equal(t, "m50", entry.Messages[0].ID)
	assert.Equal(t, fmt.Sprintf("m%d", maxSnapshotMessages+49), entry.Messages[len(entry.Messages)-1].ID)
}

func TestUpdateMessagesDerivesTitleFromReport(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()

	idx.Create(ctx, "t1", "what is the climate outlook")

	report := &types.Message{
		ID:      "rep1",
		Role:    types.RoleAssistant,
		Agent:   types.AgentReporter,
		Content: "# Climate Outlook 2050\n\nGlobal temperatures are projected to rise.\n\n## Details\nMore text.",
	}
	require.NoError(t, idx.UpdateMessages(ctx, "t1", []*types.Message{report}))

	entry, ok := idx.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "Climate Outlook 2050", entry.Title)
	assert.Contains(t, entry.Summary, "Global temperatures")
}

func TestUpdateMessagesUnknownThread(t *testing.T) {
	idx := newTestIndex()
	err := idx.UpdateMessages(context.Background(), "missing", nil)
	assert.Error(t, err)
}

func TestEntryFileNameRoundTrips(t *testing.T) {
	entry := &Entry{ID: "e1", ThreadID: "t1", Title: "report", FileName: "report.md"}

	clone := entry.Clone()
	assert.Equal(t, "report.md", clone.FileName)

	raw, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"file_name":"report.md"`)

	// 未设置时序列化应省略
	raw, err = json.Marshal(&Entry{ID: "e2", ThreadID: "t2"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "file_name")
}

func TestSearchMatchesTitleQueryAndSummary(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()

	idx.Create(ctx, "t1", "quantum computing basics")
	idx.Create(ctx, "t2", "history of jazz")

	assert.Len(t, idx.Search("quantum"), 1)
	assert.Len(t, idx.Search("JAZZ"), 1)
	assert.Len(t, idx.Search(""), 2)
	assert.Empty(t, idx.Search("cooking"))
}

func TestDeleteRemovesEntry(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()

	idx.Create(ctx, "t1", "to be removed")
	require.NoError(t, idx.Delete(ctx, "t1"))
	assert.False(t, idx.Has("t1"))
	assert.Error(t, idx.Delete(ctx, "t1"))
}

func TestIndexRoundTripsThroughStorage(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	first := NewIndex(storage, zap.NewNop())
	first.Create(ctx, "t1", "persisted question")

	second := NewIndex(storage, zap.NewNop())
	require.NoError(t, second.Load(ctx))

	entry, ok := second.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "persisted question", entry.Query)
}

func TestExtractTitleFallback(t *testing.T) {
	assert.Equal(t, "Research Report", ExtractTitleOrDefault("no headings here"))
	assert.Equal(t, "Hello", ExtractTitleOrDefault("# Hello\nbody"))
}
