package data

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lk2023060901/ai-research-backend/internal/chat/models"
	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
)

// MessageRepo implements the message repository using GORM
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo creates a new message repository
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// upsertAssignments are the columns refreshed when a message id already
// exists. Seq and created_at keep their original values.
var upsertAssignments = clause.AssignmentColumns([]string{
	"role", "agent", "content", "reasoning_content",
	"finish_reason", "tool_calls", "options", "resources", "updated_at",
})

var batchAssignments = clause.AssignmentColumns([]string{
	"seq", "role", "agent", "content", "reasoning_content",
	"finish_reason", "tool_calls", "options", "resources", "updated_at",
})

// Upsert inserts a message at the given position, or refreshes its content
// when the id already exists
func (r *MessageRepo) Upsert(ctx context.Context, msg *types.Message, seq int) error {
	model := r.toModel(msg, seq)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: upsertAssignments,
		}).
		Create(model).Error; err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}
	return nil
}

// UpsertBatch inserts or refreshes a batch of messages in one statement,
// assigning positions from slice order
func (r *MessageRepo) UpsertBatch(ctx context.Context, msgs []*types.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	modelList := make([]*models.MessageRecord, 0, len(msgs))
	for i, msg := range msgs {
		modelList = append(modelList, r.toModel(msg, i))
	}

	// The batch is authoritative for ordering, so seq is reassigned here.
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: batchAssignments,
		}).
		Create(&modelList).Error; err != nil {
		return fmt.Errorf("failed to upsert messages: %w", err)
	}
	return nil
}

// ListByThread returns all messages of a thread in insertion order
func (r *MessageRepo) ListByThread(ctx context.Context, threadID string) ([]*types.Message, error) {
	var modelList []models.MessageRecord
	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("seq ASC").
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	msgs := make([]*types.Message, 0, len(modelList))
	for i := range modelList {
		msgs = append(msgs, r.toDomain(&modelList[i]))
	}
	return msgs, nil
}

// DeleteByThread removes all messages of a thread
func (r *MessageRepo) DeleteByThread(ctx context.Context, threadID string) error {
	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Delete(&models.MessageRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

// toModel converts a domain message to its GORM model. Streaming chunk
// buffers are transient and never persisted.
func (r *MessageRepo) toModel(msg *types.Message, seq int) *models.MessageRecord {
	model := &models.MessageRecord{
		ID:               msg.ID,
		ThreadID:         msg.ThreadID,
		Seq:              seq,
		Role:             string(msg.Role),
		Agent:            string(msg.Agent),
		Content:          msg.Content,
		ReasoningContent: msg.ReasoningContent,
		FinishReason:     string(msg.FinishReason),
	}

	for _, tc := range msg.ToolCalls {
		model.ToolCalls = append(model.ToolCalls, models.ToolCallRecord{
			ID:     tc.ID,
			Name:   tc.Name,
			Args:   tc.Args,
			Result: tc.Result,
		})
	}
	for _, opt := range msg.Options {
		model.Options = append(model.Options, models.OptionRecord{
			Text:  opt.Text,
			Value: opt.Value,
		})
	}
	for _, res := range msg.Resources {
		model.Resources = append(model.Resources, models.ResourceRecord{
			URI:   res.URI,
			Title: res.Title,
		})
	}
	return model
}

// toDomain converts a GORM model to a domain message
func (r *MessageRepo) toDomain(model *models.MessageRecord) *types.Message {
	msg := &types.Message{
		ID:               model.ID,
		ThreadID:         model.ThreadID,
		Role:             types.Role(model.Role),
		Agent:            types.Agent(model.Agent),
		Content:          model.Content,
		ReasoningContent: model.ReasoningContent,
		FinishReason:     types.FinishReason(model.FinishReason),
	}

	for _, tc := range model.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, types.ToolCall{
			ID:     tc.ID,
			Name:   tc.Name,
			Args:   tc.Args,
			Result: tc.Result,
		})
	}
	for _, opt := range model.Options {
		msg.Options = append(msg.Options, types.Option{
			Text:  opt.Text,
			Value: opt.Value,
		})
	}
	for _, res := range model.Resources {
		msg.Resources = append(msg.Resources, types.Resource{
			URI:   res.URI,
			Title: res.Title,
		})
	}
	return msg
}
