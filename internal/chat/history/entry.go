package history

import (
	"time"

	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
)

// Entry is one recorded conversation in the history index.
type Entry struct {
	ID        string           `json:"id"`
	ThreadID  string           `json:"thread_id"`
	Title     string           `json:"title"`
	Query     string           `json:"query"`
	Summary   string           `json:"summary,omitempty"`
	FileName  string           `json:"file_name,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Messages  []*types.Message `json:"messages,omitempty"`
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	if e.Messages != nil {
		out.Messages = make([]*types.Message, len(e.Messages))
		for i, m := range e.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	return &out
}
