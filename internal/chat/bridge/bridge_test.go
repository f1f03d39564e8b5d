package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lk2023060901/ai-research-backend/internal/chat/data"
	"github.com/lk2023060901/ai-research-backend/internal/chat/store"
	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/eventbus"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/workerpool"
)

type fakeMessageMirror struct {
	mu      sync.Mutex
	err     error
	upserts []*types.Message
	batches [][]*types.Message
}

func (f *fakeMessageMirror) Upsert(_ context.Context, msg *types.Message, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, msg)
	return f.err
}

func (f *fakeMessageMirror) UpsertBatch(_ context.Context, msgs []*types.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, msgs)
	return f.err
}

func (f *fakeMessageMirror) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

func (f *fakeMessageMirror) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type fakeConversationMirror struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *fakeConversationMirror) Upsert(_ context.Context, _ *data.Conversation) error {
	return nil
}

func (f *fakeConversationMirror) UpdateMessageCount(_ context.Context, threadID string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[threadID] = count
	return nil
}

type bridgeFixture struct {
	bridge        *Bridge
	bus           *eventbus.Bus
	messages      *fakeMessageMirror
	conversations *fakeConversationMirror
}

func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()

	logger := zap.NewNop()
	bus := eventbus.New(logger)
	pool, err := workerpool.New(workerpool.DefaultConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Release(time.Second) })

	messages := &fakeMessageMirror{}
	conversations := &fakeConversationMirror{}
	b := New(bus, pool, nil, messages, conversations, logger)
	b.subscribe()

	return &bridgeFixture{
		bridge:        b,
		bus:           bus,
		messages:      messages,
		conversations: conversations,
	}
}

func TestBatchUpdateIsMirrored(t *testing.T) {
	fx := newBridgeFixture(t)

	msgs := []*types.Message{
		{ID: "m1", ThreadID: "t1", Role: types.RoleUser, Content: "hi"},
		{ID: "m2", ThreadID: "t1", Role: types.RoleAssistant, Content: "hello"},
	}
	fx.bus.Emit(context.Background(), &store.MessagesUpdatedEvent{ThreadID: "t1", Messages: msgs})

	require.Eventually(t, func() bool {
		return fx.messages.batchCount() == 1
	}, 3*time.Second, 10*time.Millisecond)

	fx.messages.mu.Lock()
	defer fx.messages.mu.Unlock()
	assert.Len(t, fx.messages.batches[0], 2)
	assert.Equal(t, "m1", fx.messages.batches[0][0].ID)
}

func TestStreamingUpdateIsNotMirrored(t *testing.T) {
	fx := newBridgeFixture(t)
	ctx := context.Background()

	// 流式中的消息跳过,定稿后才落库
	fx.bus.Emit(ctx, &store.MessageUpdatedEvent{
		ThreadID: "t1",
		Message:  &types.Message{ID: "m1", ThreadID: "t1", IsStreaming: true},
	})
	fx.bus.Emit(ctx, &store.MessageUpdatedEvent{
		ThreadID: "t1",
		Message:  &types.Message{ID: "m1", ThreadID: "t1", IsStreaming: false},
	})

	require.Eventually(t, func() bool {
		return fx.messages.upsertCount() == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, fx.messages.upsertCount())
}

func TestSnapshotSyncUpdatesMessageCount(t *testing.T) {
	fx := newBridgeFixture(t)

	fx.bus.Emit(context.Background(), &store.ConversationUpdatedEvent{
		ThreadID: "t1",
		Messages: []*types.Message{{ID: "m1", ThreadID: "t1"}},
	})

	require.Eventually(t, func() bool {
		fx.conversations.mu.Lock()
		defer fx.conversations.mu.Unlock()
		return fx.conversations.counts["t1"] == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestSyncFailureIsSwallowed(t *testing.T) {
	fx := newBridgeFixture(t)
	fx.messages.err = assert.AnError

	var syncErrors atomic.Int32
	fx.bus.On(store.EventSyncError, func(_ context.Context, _ eventbus.Event) error {
		syncErrors.Add(1)
		return nil
	})

	// 落库失败只产生 sync.error 事件,触发它的变更不受影响
	fx.bus.Emit(context.Background(), &store.MessageAppendedEvent{
		ThreadID: "t1",
		Message:  &types.Message{ID: "m1", ThreadID: "t1"},
		Seq:      0,
	})

	require.Eventually(t, func() bool {
		return syncErrors.Load() == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, fx.messages.upsertCount())
}
