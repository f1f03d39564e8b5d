package models

import "time"

// ConversationRecord is the GORM model for the conversations table
type ConversationRecord struct {
	ThreadID     string    `gorm:"primaryKey;type:uuid" json:"thread_id"`
	Title        string    `gorm:"type:varchar(500)" json:"title"`
	Query        string    `gorm:"type:text" json:"query"`
	Summary      string    `gorm:"type:text" json:"summary,omitempty"`
	MessageCount int       `gorm:"not null;default:0" json:"message_count"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (ConversationRecord) TableName() string {
	return "conversations"
}
