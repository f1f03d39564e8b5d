package store

import (
	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
)

// Snapshot is a consistent read of the full store state. All contained
// messages are deep copies; mutating a snapshot never touches the store.
type Snapshot struct {
	ThreadID            string                    `json:"thread_id"`
	MessageIDs          []string                  `json:"message_ids"`
	Messages            map[string]*types.Message `json:"messages"`
	ResearchIDs         []string                  `json:"research_ids"`
	ResearchPlanIDs     map[string]string         `json:"research_plan_ids"`
	ResearchReportIDs   map[string]string         `json:"research_report_ids"`
	ResearchActivityIDs map[string][]string       `json:"research_activity_ids"`
	OngoingResearchID   string                    `json:"ongoing_research_id,omitempty"`
	OpenResearchID      string                    `json:"open_research_id,omitempty"`
	Responding          bool                      `json:"responding"`
	LoadingHistory      bool                      `json:"is_loading_history"`
}

// Snapshot returns a deep copy of the entire state.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		ThreadID:            s.threadID,
		MessageIDs:          append([]string(nil), s.messageIDs...),
		Messages:            make(map[string]*types.Message, len(s.messages)),
		ResearchIDs:         append([]string(nil), s.researchIDs...),
		ResearchPlanIDs:     make(map[string]string, len(s.researchPlanIDs)),
		ResearchReportIDs:   make(map[string]string, len(s.researchReportIDs)),
		ResearchActivityIDs: make(map[string][]string, len(s.researchActivityIDs)),
		OngoingResearchID:   s.ongoingResearchID,
		OpenResearchID:      s.openResearchID,
		Responding:          s.responding,
		LoadingHistory:      s.loadingHistory,
	}
	for id, msg := range s.messages {
		snap.Messages[id] = msg.Clone()
	}
	for id, planID := range s.researchPlanIDs {
		snap.ResearchPlanIDs[id] = planID
	}
	for id, reportID := range s.researchReportIDs {
		snap.ResearchReportIDs[id] = reportID
	}
	for id, activities := range s.researchActivityIDs {
		snap.ResearchActivityIDs[id] = append([]string(nil), activities...)
	}
	return snap
}

// ThreadID returns the current thread id.
func (s *Store) ThreadID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threadID
}

// MessageIDs returns the append-order id list.
func (s *Store) MessageIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.messageIDs...)
}

// Message returns a copy of the message with the given id.
func (s *Store) Message(id string) (*types.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, false
	}
	return msg.Clone(), true
}

// MessagesInOrder returns copies of every message in append order.
func (s *Store) MessagesInOrder() []*types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Message, 0, len(s.messageIDs))
	for _, id := range s.messageIDs {
		if msg, ok := s.messages[id]; ok {
			out = append(out, msg.Clone())
		}
	}
	return out
}

// ResearchIDs returns every research id in open order.
func (s *Store) ResearchIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.researchIDs...)
}

// ResearchPlanID returns the plan message id of a research, if recorded.
func (s *Store) ResearchPlanID(researchID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	planID, ok := s.researchPlanIDs[researchID]
	return planID, ok
}

// ResearchReportID returns the report message id of a research, if any.
func (s *Store) ResearchReportID(researchID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reportID, ok := s.researchReportIDs[researchID]
	return reportID, ok
}

// ResearchActivityIDs returns the ordered activity id list of a research.
func (s *Store) ResearchActivityIDs(researchID string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	activities, ok := s.researchActivityIDs[researchID]
	if !ok {
		return nil, false
	}
	return append([]string(nil), activities...), true
}

// OngoingResearchID returns the open (still streaming) research id, or "".
func (s *Store) OngoingResearchID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ongoingResearchID
}

// OpenResearchID returns the UI-focused research id, or "".
func (s *Store) OpenResearchID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openResearchID
}

// Responding reports whether a send is in flight.
func (s *Store) Responding() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.responding
}

// LoadingHistory reports whether a bulk history load is in progress.
func (s *Store) LoadingHistory() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingHistory
}

// LastInterruptMessage returns a copy of the most recent message that ended
// in an interrupt, or nil.
func (s *Store) LastInterruptMessage() *types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messageIDs) - 1; i >= 0; i-- {
		if msg, ok := s.messages[s.messageIDs[i]]; ok && msg.FinishReason == types.FinishReasonInterrupt {
			return msg.Clone()
		}
	}
	return nil
}

// LastFeedbackMessageID returns the id of the most recent message offering
// feedback options, i.e. the message a user's interrupt feedback answers.
func (s *Store) LastFeedbackMessageID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messageIDs) - 1; i >= 0; i-- {
		if msg, ok := s.messages[s.messageIDs[i]]; ok && len(msg.Options) > 0 {
			return msg.ID
		}
	}
	return ""
}

// ToolCalls returns copies of every tool call across all messages, in
// message order.
func (s *Store) ToolCalls() []types.ToolCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.ToolCall
	for _, id := range s.messageIDs {
		msg, ok := s.messages[id]
		if !ok {
			continue
		}
		for _, call := range msg.Clone().ToolCalls {
			out = append(out, call)
		}
	}
	return out
}

// FindToolCallMessage locates the message owning the tool call with the
// given id, searching most recent first. Used to resolve tool_call_result
// events, whose own message id is not authoritative.
func (s *Store) FindToolCallMessage(toolCallID string) *types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messageIDs) - 1; i >= 0; i-- {
		msg, ok := s.messages[s.messageIDs[i]]
		if !ok {
			continue
		}
		if msg.FindToolCall(toolCallID) != nil {
			return msg.Clone()
		}
	}
	return nil
}
