package bridge

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lk2023060901/ai-research-backend/internal/chat/data"
	"github.com/lk2023060901/ai-research-backend/internal/chat/store"
	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/errors"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/eventbus"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/workerpool"
)

// syncTimeout bounds one mirror attempt against the database.
const syncTimeout = 30 * time.Second

// MessageMirror is the slice of the message repository the bridge writes
// through.
type MessageMirror interface {
	Upsert(ctx context.Context, msg *types.Message, seq int) error
	UpsertBatch(ctx context.Context, msgs []*types.Message) error
}

// ConversationMirror is the slice of the conversation repository the bridge
// writes through.
type ConversationMirror interface {
	Upsert(ctx context.Context, conv *data.Conversation) error
	UpdateMessageCount(ctx context.Context, threadID string, count int) error
}

// Bridge mirrors conversation state into Postgres by listening on the event
/// bus. Mirroring is best effort: a failed write is logged and reported as a
// sync error event, never surfaced to the mutation that triggered it. The
// store stays usable when the bridge never starts.
type Bridge struct {
	bus           *eventbus.Bus
	pool          *workerpool.Pool
	db            *gorm.DB
	messages      MessageMirror
	conversations ConversationMirror
	logger        *zap.Logger

	active bool
	subs   []*eventbus.Subscription
}

// New creates an inactive bridge. Nothing is written until Start succeeds.
func New(
	bus *eventbus.Bus,
	pool *workerpool.Pool,
	db *gorm.DB,
	messages MessageMirror,
	conversations ConversationMirror,
	logger *zap.Logger,
) *Bridge {
	return &Bridge{
		bus:           bus,
		pool:          pool,
		db:            db,
		messages:      messages,
		conversations: conversations,
		logger:        logger,
	}
}

// Start verifies database reachability and subscribes to conversation events.
// Idempotent: a second call on an active bridge is a no-op.
func (b *Bridge) Start(ctx context.Context) error {
	if b.active {
		return nil
	}

	sqlDB, err := b.db.DB()
	if err != nil {
		return errors.Wrap(err, errors.ErrPersistenceInactive, "database handle")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrPersistenceInactive, "database ping")
	}

	b.subscribe()
	b.active = true

	b.logger.Info("persistence bridge started")
	return nil
}

func (b *Bridge) subscribe() {
	b.subs = []*eventbus.Subscription{
		b.bus.On(store.EventMessageAppended, b.onMessageAppended),
		b.bus.On(store.EventMessageUpdated, b.onMessageUpdated),
		b.bus.On(store.EventMessagesUpdated, b.onMessagesUpdated),
		b.bus.On(store.EventConversationCreated, b.onConversationCreated),
		b.bus.On(store.EventConversationUpdated, b.onConversationUpdated),
	}
}

// Stop detaches the bridge from the bus. In-flight pool tasks finish on
// their own.
func (b *Bridge) Stop() {
	if !b.active {
		return
	}
	for _, sub := range b.subs {
		b.bus.Off(sub)
	}
	b.subs = nil
	b.active = false
}

// Active reports whether the bridge is mirroring.
func (b *Bridge) Active() bool {
	return b.active
}

func (b *Bridge) onMessageAppended(_ context.Context, event eventbus.Event) error {
	ev, ok := event.(*store.MessageAppendedEvent)
	if !ok {
		return nil
	}
	b.enqueue(ev.ThreadID, func(ctx context.Context) error {
		return b.messages.Upsert(ctx, ev.Message, ev.Seq)
	})
	return nil
}

func (b *Bridge) onMessageUpdated(_ context.Context, event eventbus.Event) error {
	ev, ok := event.(*store.MessageUpdatedEvent)
	if !ok {
		return nil
	}
	// 流式更新频繁,只镜像已定稿的消息,降低写放大
	if ev.Message.IsStreaming {
		return nil
	}
	b.enqueue(ev.ThreadID, func(ctx context.Context) error {
		return b.messages.Upsert(ctx, ev.Message, 0)
	})
	return nil
}

func (b *Bridge) onMessagesUpdated(_ context.Context, event eventbus.Event) error {
	ev, ok := event.(*store.MessagesUpdatedEvent)
	if !ok {
		return nil
	}
	b.enqueue(ev.ThreadID, func(ctx context.Context) error {
		return b.messages.UpsertBatch(ctx, ev.Messages)
	})
	return nil
}

func (b *Bridge) onConversationCreated(_ context.Context, event eventbus.Event) error {
	ev, ok := event.(*store.ConversationCreatedEvent)
	if !ok {
		return nil
	}
	b.enqueue(ev.ThreadID, func(ctx context.Context) error {
		return b.conversations.Upsert(ctx, &data.Conversation{
			ThreadID: ev.ThreadID,
			Title:    ev.Title,
			Query:    ev.Query,
		})
	})
	return nil
}

func (b *Bridge) onConversationUpdated(_ context.Context, event eventbus.Event) error {
	ev, ok := event.(*store.ConversationUpdatedEvent)
	if !ok {
		return nil
	}
	b.enqueue(ev.ThreadID, func(ctx context.Context) error {
		if err := b.messages.UpsertBatch(ctx, ev.Messages); err != nil {
			return err
		}
		return b.conversations.UpdateMessageCount(ctx, ev.ThreadID, len(ev.Messages))
	})
	return nil
}

// enqueue hands one mirror attempt to the worker pool, detached from the
// triggering mutation's context.
func (b *Bridge) enqueue(threadID string, fn func(ctx context.Context) error) {
	err := b.pool.Submit(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		b.bus.Emit(ctx, &store.SyncStartedEvent{ThreadID: threadID})
		if err := fn(ctx); err != nil {
			b.logger.Warn("conversation sync failed",
				zap.String("thread_id", threadID),
				zap.Error(err))
			b.bus.Emit(ctx, &store.SyncErrorEvent{ThreadID: threadID, Err: err})
			return err
		}
		b.bus.Emit(ctx, &store.SyncCompletedEvent{ThreadID: threadID})
		return nil
	})
	if err != nil {
		b.logger.Warn("failed to enqueue sync task",
			zap.String("thread_id", threadID),
			zap.Error(err))
	}
}
