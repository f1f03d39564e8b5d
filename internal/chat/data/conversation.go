package data

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lk2023060901/ai-research-backend/internal/chat/models"
)

// Conversation is the domain view of one persisted conversation header
type Conversation struct {
	ThreadID     string
	Title        string
	Query        string
	Summary      string
	MessageCount int
}

// ConversationRepo implements the conversation repository using GORM
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo creates a new conversation repository
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Upsert inserts a conversation header or refreshes its mutable fields
func (r *ConversationRepo) Upsert(ctx context.Context, conv *Conversation) error {
	model := r.toModel(conv)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "thread_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "query", "summary", "message_count", "updated_at"}),
		}).
		Create(model).Error; err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}
	return nil
}

// GetByThread retrieves a conversation header by thread id
func (r *ConversationRepo) GetByThread(ctx context.Context, threadID string) (*Conversation, error) {
	var model models.ConversationRecord
	if err := r.db.WithContext(ctx).Where("thread_id = ?", threadID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("conversation not found")
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return r.toDomain(&model), nil
}

// List returns conversation headers, most recently updated first
func (r *ConversationRepo) List(ctx context.Context, limit int) ([]*Conversation, error) {
	var modelList []models.ConversationRecord
	q := r.db.WithContext(ctx).Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	convs := make([]*Conversation, 0, len(modelList))
	for i := range modelList {
		convs = append(convs, r.toDomain(&modelList[i]))
	}
	return convs, nil
}

// UpdateMessageCount refreshes the message counter after a snapshot sync
func (r *ConversationRepo) UpdateMessageCount(ctx context.Context, threadID string, count int) error {
	if err := r.db.WithContext(ctx).
		Model(&models.ConversationRecord{}).
		Where("thread_id = ?", threadID).
		Update("message_count", count).Error; err != nil {
		return fmt.Errorf("failed to update message count: %w", err)
	}
	return nil
}

// Delete removes a conversation header by thread id
func (r *ConversationRepo) Delete(ctx context.Context, threadID string) error {
	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Delete(&models.ConversationRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// toModel converts a domain conversation to its GORM model
func (r *ConversationRepo) toModel(conv *Conversation) *models.ConversationRecord {
	return &models.ConversationRecord{
		ThreadID:     conv.ThreadID,
		Title:        conv.Title,
		Query:        conv.Query,
		Summary:      conv.Summary,
		MessageCount: conv.MessageCount,
	}
}

// toDomain converts a GORM model to a domain conversation
func (r *ConversationRepo) toDomain(model *models.ConversationRecord) *Conversation {
	return &Conversation{
		ThreadID:     model.ThreadID,
		Title:        model.Title,
		Query:        model.Query,
		Summary:      model.Summary,
		MessageCount: model.MessageCount,
	}
}
