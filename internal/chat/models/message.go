package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// MessageRecord is the GORM model for the messages table
type MessageRecord struct {
	ID               string    `gorm:"primaryKey;type:uuid" json:"id"`
	ThreadID         string    `gorm:"type:uuid;not null;index" json:"thread_id"`
	Seq              int       `gorm:"not null;default:0;index" json:"seq"`
	Role             string    `gorm:"type:varchar(20);not null" json:"role"` // user | assistant | system
	Agent            string    `gorm:"type:varchar(50)" json:"agent,omitempty"`
	Content          string    `gorm:"type:text" json:"content,omitempty"`
	ReasoningContent string    `gorm:"type:text" json:"reasoning_content,omitempty"`
	FinishReason     string    `gorm:"type:varchar(20)" json:"finish_reason,omitempty"`
	ToolCalls        ToolCalls `gorm:"type:jsonb" json:"tool_calls,omitempty"`
	Options          Options   `gorm:"type:jsonb" json:"options,omitempty"`
	Resources        Resources `gorm:"type:jsonb" json:"resources,omitempty"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (MessageRecord) TableName() string {
	return "messages"
}

// ToolCallRecord is one finalized tool invocation inside a message
type ToolCallRecord struct {
	ID     string                 `json:"id"`
	Name   string                 `json:"name"`
	Args   map[string]interface{} `json:"args,omitempty"`
	Result string                 `json:"result,omitempty"`
}

// ToolCalls is a custom type for []ToolCallRecord stored as JSONB
type ToolCalls []ToolCallRecord

// Scan implements sql.Scanner interface
func (tc *ToolCalls) Scan(value interface{}) error {
	if value == nil {
		*tc = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, tc)
}

// Value implements driver.Valuer interface
func (tc ToolCalls) Value() (driver.Value, error) {
	if tc == nil {
		return nil, nil
	}
	return json.Marshal(tc)
}

// OptionRecord is one interrupt feedback choice offered to the user
type OptionRecord struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Options is a custom type for []OptionRecord stored as JSONB
type Options []OptionRecord

// Scan implements sql.Scanner interface
func (o *Options) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value implements driver.Valuer interface
func (o Options) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

// ResourceRecord is one user-supplied attachment reference
type ResourceRecord struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// Resources is a custom type for []ResourceRecord stored as JSONB
type Resources []ResourceRecord

// Scan implements sql.Scanner interface
func (r *Resources) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, r)
}

// Value implements driver.Valuer interface
func (r Resources) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}
