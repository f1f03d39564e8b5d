package store

import (
	"go.uber.org/zap"

	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
)

// Research grouping. The backend protocol has no explicit research
// start/end markers; the structure planner → {researcher|coder}* → reporter
// is reconstructed here purely from the agent sequence as it streams.

// groupOnAppendLocked runs before a message id is inserted. If the message
// comes from a research agent and no research is open, a new research unit
// opens, keyed by this message's id and seeded with the most recent planner
// message. The message is then recorded as an activity of the ongoing
// research, and a reporter message additionally becomes its report.
func (s *Store) groupOnAppendLocked(msg *types.Message) {
	if !msg.Agent.IsResearchAgent() {
		return
	}

	if s.ongoingResearchID == "" {
		s.openNewResearchLocked(msg)
	}

	activities := s.researchActivityIDs[s.ongoingResearchID]
	if !containsID(activities, msg.ID) {
		s.researchActivityIDs[s.ongoingResearchID] = append(activities, msg.ID)
	}
	if msg.Agent == types.AgentReporter {
		s.researchReportIDs[s.ongoingResearchID] = msg.ID
	}
}

// openNewResearchLocked opens a research unit keyed by the triggering
// message's id. A preceding planner message is expected but not guaranteed
// (interrupt/resume can reorder the protocol); when absent the research
// opens without a plan id rather than failing.
func (s *Store) openNewResearchLocked(msg *types.Message) {
	planID := ""
	for i := len(s.messageIDs) - 1; i >= 0; i-- {
		if m := s.messages[s.messageIDs[i]]; m != nil && m.Agent == types.AgentPlanner {
			planID = m.ID
			break
		}
	}

	var activities []string
	if planID != "" {
		s.researchPlanIDs[msg.ID] = planID
		activities = append(activities, planID)
	} else if s.logger != nil {
		s.logger.Warn("research opened without a preceding planner message",
			zap.String("research_id", msg.ID),
			zap.String("agent", string(msg.Agent)))
	}

	s.researchActivityIDs[msg.ID] = activities
	s.researchIDs = append(s.researchIDs, msg.ID)
	s.ongoingResearchID = msg.ID
}

// groupOnUpdateLocked closes the ongoing research once its reporter message
// stops streaming. The research stays in every index map permanently; only
// the "ongoing" designation is cleared.
func (s *Store) groupOnUpdateLocked(msg *types.Message) {
	if s.ongoingResearchID == "" {
		return
	}
	if msg.Agent == types.AgentReporter && !msg.IsStreaming {
		s.ongoingResearchID = ""
	}
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
