package stream

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lk2023060901/ai-research-backend/internal/chat/history"
	"github.com/lk2023060901/ai-research-backend/internal/chat/merge"
	"github.com/lk2023060901/ai-research-backend/internal/chat/store"
	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
	"github.com/lk2023060901/ai-research-backend/internal/conf"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/eventbus"
	apperrors "github.com/lk2023060901/ai-research-backend/internal/pkg/errors"
)

// Notifier surfaces user-facing notices raised during a stream.
type Notifier interface {
	Notify(ctx context.Context, level, title, message string)
}

// NopNotifier discards all notices.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, string, string) {}

// Driver owns the send lifecycle: it appends the user's turn, opens the
// backend stream, merges every event into the store and settles the
// conversation when the stream ends. One driver serves one store.
type Driver struct {
	store    *store.Store
	history  *history.Index
	client   *Client
	bus      *eventbus.Bus
	defaults conf.ChatConfig
	notifier Notifier
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewDriver wires a driver over its collaborators.
func NewDriver(
	st *store.Store,
	hist *history.Index,
	client *Client,
	bus *eventbus.Bus,
	defaults conf.ChatConfig,
	notifier Notifier,
	logger *zap.Logger,
) *Driver {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Driver{
		store:    st,
		history:  hist,
		client:   client,
		bus:      bus,
		defaults: defaults,
		notifier: notifier,
		logger:   logger,
	}
}

// SendMessage runs one full turn. A non-empty content is appended to the
// conversation optimistically before the stream opens; an empty content with
// InterruptFeedback set resumes an interrupted plan. Returns
// ErrChatAlreadyResponding while a previous turn is still streaming.
// Cancellation via Stop finalizes the conversation and is not an error.
func (d *Driver) SendMessage(ctx context.Context, content string, opts *types.SendOptions) error {
	if opts == nil {
		opts = &types.SendOptions{}
	}
	if d.store.Responding() {
		return apperrors.New(apperrors.ErrChatAlreadyResponding)
	}

	threadID := d.store.ThreadID()

	if content != "" {
		userMsg := &types.Message{
			ID:        uuid.New().String(),
			ThreadID:  threadID,
			Role:      types.RoleUser,
			Content:   content,
			Resources: opts.Resources,
		}
		d.store.AppendMessage(ctx, userMsg)

		if !d.history.Has(threadID) {
			entry := d.history.Create(ctx, threadID, content)
			d.bus.Emit(ctx, &store.ConversationCreatedEvent{
				ThreadID: threadID,
				Title:    entry.Title,
				Query:    content,
			})
		}
	}

	req := d.buildRequest(threadID, content, opts)

	streamCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()
	defer func() {
		cancel()
		d.mu.Lock()
		d.cancel = nil
		d.mu.Unlock()
	}()

	d.store.SetResponding(true)
	defer d.store.SetResponding(false)

	results, err := d.client.Stream(streamCtx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			d.logger.Info("chat stream canceled before it opened", zap.String("thread_id", threadID))
			err = nil
		} else {
			d.handleFailure(ctx, err, "")
		}
		d.store.SetOngoingResearch("")
		d.settle(ctx, threadID)
		return err
	}

	var streamingID string
	var streamErr error
	for r := range results {
		if r.Err != nil {
			streamErr = r.Err
			break
		}
		if id := d.applyEvent(ctx, threadID, r.Event); id != "" {
			streamingID = id
		}
	}

	if streamErr != nil {
		if errors.Is(streamErr, context.Canceled) {
			d.logger.Info("chat stream canceled", zap.String("thread_id", threadID))
			d.finalizeStreaming(ctx, streamingID, "")
			streamErr = nil
		} else {
			d.handleFailure(ctx, streamErr, streamingID)
		}
	} else {
		d.finalizeStreaming(ctx, streamingID, "")
	}

	// No research stays ongoing past the end of its turn, however it ended.
	d.store.SetOngoingResearch("")
	d.settle(ctx, threadID)
	return streamErr
}

// Stop aborts the in-flight stream, if any.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

// applyEvent merges one event into its target message, creating the streaming
// shell on first sight of a new message id. Returns the target id, or "" when
// the event had no resolvable target.
func (d *Driver) applyEvent(ctx context.Context, threadID string, event types.StreamEvent) string {
	var target *types.Message

	switch ev := event.(type) {
	case *types.ToolCallResultEvent:
		// 工具结果不携带目标消息 id,按 tool_call_id 反查
		target = d.store.FindToolCallMessage(ev.ToolCallID)
		if target == nil {
			d.logger.Warn("tool call result for unknown call",
				zap.String("tool_call_id", ev.ToolCallID))
			return ""
		}
	default:
		meta := event.Meta()
		if meta.ID == "" {
			d.logger.Warn("stream event without message id",
				zap.String("thread_id", threadID))
			return ""
		}
		existing, ok := d.store.Message(meta.ID)
		if !ok {
			shell := &types.Message{
				ID:          meta.ID,
				ThreadID:    metaThread(meta, threadID),
				Role:        meta.Role,
				Agent:       meta.Agent,
				IsStreaming: true,
			}
			d.store.AppendMessage(ctx, shell)
			existing = shell
		}
		target = existing
	}

	merged := merge.Merge(target, event)
	d.store.UpdateMessage(ctx, merged)
	return merged.ID
}

// handleFailure records a stream failure on the in-flight message and raises
// a notice. Cancellation never reaches here.
func (d *Driver) handleFailure(ctx context.Context, err error, streamingID string) {
	d.logger.Error("chat stream failed", zap.Error(err))
	d.notifier.Notify(ctx, "error", "Research stream failed", err.Error())
	d.finalizeStreaming(ctx, streamingID, err.Error())
}

// finalizeStreaming clears the in-flight flag on the message still marked as
// streaming, attaching errText when non-empty.
func (d *Driver) finalizeStreaming(ctx context.Context, streamingID, errText string) {
	if streamingID == "" {
		return
	}
	msg, ok := d.store.Message(streamingID)
	if !ok || (!msg.IsStreaming && errText == "") {
		return
	}
	msg.IsStreaming = false
	if errText != "" {
		msg.Error = errText
	}
	d.store.UpdateMessage(ctx, msg)
}

// settle snapshots the finished conversation into history. Runs detached from
// the stream context so a canceled turn still gets recorded.
func (d *Driver) settle(ctx context.Context, threadID string) {
	bg := context.WithoutCancel(ctx)
	messages := d.store.MessagesInOrder()
	if err := d.history.UpdateMessages(bg, threadID, messages); err != nil {
		d.logger.Warn("failed to update history snapshot",
			zap.String("thread_id", threadID),
			zap.Error(err))
	}
	d.bus.Emit(bg, &store.ConversationUpdatedEvent{
		ThreadID: threadID,
		Messages: messages,
	})
}

func (d *Driver) buildRequest(threadID, content string, opts *types.SendOptions) *ChatRequest {
	settings := types.GenerationSettings{
		AutoAcceptedPlan:              d.defaults.AutoAcceptedPlan,
		EnableDeepThinking:            d.defaults.EnableDeepThinking,
		EnableBackgroundInvestigation: d.defaults.EnableBackgroundInvestigation,
		MaxPlanIterations:             d.defaults.MaxPlanIterations,
		MaxStepNum:                    d.defaults.MaxStepNum,
		MaxSearchResults:              d.defaults.MaxSearchResults,
		ReportStyle:                   d.defaults.ReportStyle,
		Model:                         d.defaults.Model,
	}
	if opts.Settings != nil {
		settings = *opts.Settings
	}

	req := &ChatRequest{
		ThreadID:                      threadID,
		Resources:                     opts.Resources,
		AutoAcceptedPlan:              settings.AutoAcceptedPlan,
		EnableDeepThinking:            settings.EnableDeepThinking,
		EnableBackgroundInvestigation: settings.EnableBackgroundInvestigation,
		MaxPlanIterations:             settings.MaxPlanIterations,
		MaxStepNum:                    settings.MaxStepNum,
		MaxSearchResults:              settings.MaxSearchResults,
		ReportStyle:                   settings.ReportStyle,
		MCPSettings:                   settings.MCPSettings,
		Model:                         settings.Model,
		InterruptFeedback:             opts.InterruptFeedback,
	}
	if content != "" {
		req.Messages = []RequestMessage{{Role: string(types.RoleUser), Content: content}}
	}
	return req
}

func metaThread(meta types.EventMeta, fallback string) string {
	if meta.ThreadID != "" {
		return meta.ThreadID
	}
	return fallback
}
