package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
)

func TestResearchGroupingFullSession(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	s.AppendMessage(ctx, userMessage("u1", "investigate quantum computing"))
	s.AppendMessage(ctx, agentMessage("p1", types.AgentPlanner, false))
	s.AppendMessage(ctx, agentMessage("r1", types.AgentResearcher, true))

	// 首个研究 agent 消息的 id 即研究 id,计划消息领衔 activity 列表
	assert.Equal(t, []string{"r1"}, s.ResearchIDs())
	assert.Equal(t, "r1", s.OngoingResearchID())

	planID, ok := s.ResearchPlanID("r1")
	require.True(t, ok)
	assert.Equal(t, "p1", planID)

	s.AppendMessage(ctx, agentMessage("r2", types.AgentCoder, true))
	reporter := agentMessage("rep1", types.AgentReporter, true)
	s.AppendMessage(ctx, reporter)

	activities, ok := s.ResearchActivityIDs("r1")
	require.True(t, ok)
	assert.Equal(t, []string{"p1", "r1", "r2", "rep1"}, activities)

	reportID, ok := s.ResearchReportID("r1")
	require.True(t, ok)
	assert.Equal(t, "rep1", reportID)

	// reporter 仍在流式输出,研究保持 ongoing
	assert.Equal(t, "r1", s.OngoingResearchID())

	done := reporter.Clone()
	done.IsStreaming = false
	done.FinishReason = types.FinishReasonStop
	s.UpdateMessage(ctx, done)

	assert.Equal(t, "", s.OngoingResearchID())
	assert.Equal(t, []string{"r1"}, s.ResearchIDs())
}

func TestResearchGroupingSecondSession(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	s.AppendMessage(ctx, agentMessage("p1", types.AgentPlanner, false))
	s.AppendMessage(ctx, agentMessage("r1", types.AgentResearcher, true))
	rep := agentMessage("rep1", types.AgentReporter, false)
	s.AppendMessage(ctx, rep)
	s.UpdateMessage(ctx, rep)

	s.AppendMessage(ctx, agentMessage("p2", types.AgentPlanner, false))
	s.AppendMessage(ctx, agentMessage("r2", types.AgentResearcher, true))

	assert.Equal(t, []string{"r1", "r2"}, s.ResearchIDs())

	planID, _ := s.ResearchPlanID("r2")
	assert.Equal(t, "p2", planID)

	activities, _ := s.ResearchActivityIDs("r2")
	assert.Equal(t, []string{"p2", "r2"}, activities)
}

func TestResearchOpensWithoutPlanner(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	// 中断恢复等场景下可能缺失 planner,分组仍需可用
	s.AppendMessage(ctx, agentMessage("r1", types.AgentResearcher, true))

	assert.Equal(t, []string{"r1"}, s.ResearchIDs())
	_, hasPlan := s.ResearchPlanID("r1")
	assert.False(t, hasPlan)

	activities, ok := s.ResearchActivityIDs("r1")
	require.True(t, ok)
	assert.Equal(t, []string{"r1"}, activities)
}

func TestOpenAndCloseResearch(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	s.AppendMessage(ctx, agentMessage("p1", types.AgentPlanner, false))
	s.AppendMessage(ctx, agentMessage("r1", types.AgentResearcher, true))

	s.OpenResearch("r1")
	assert.Equal(t, "r1", s.OpenResearchID())

	s.CloseResearch()
	assert.Equal(t, "", s.OpenResearchID())
}

func TestLoadConversationReplaysGrouping(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	reporterDone := agentMessage("rep1", types.AgentReporter, false)
	msgs := []*types.Message{
		userMessage("u1", "question"),
		agentMessage("p1", types.AgentPlanner, false),
		agentMessage("r1", types.AgentResearcher, false),
		reporterDone,
	}

	s.LoadConversation(ctx, msgs, "thread-42")

	assert.Equal(t, "thread-42", s.ThreadID())
	assert.Equal(t, []string{"u1", "p1", "r1", "rep1"}, s.MessageIDs())
	assert.Equal(t, []string{"r1"}, s.ResearchIDs())

	planID, _ := s.ResearchPlanID("r1")
	assert.Equal(t, "p1", planID)
	reportID, _ := s.ResearchReportID("r1")
	assert.Equal(t, "rep1", reportID)

	// 加载完成后:最近的研究处于打开状态,流式标记全部复位
	assert.Equal(t, "r1", s.OpenResearchID())
	assert.Equal(t, "", s.OngoingResearchID())
	assert.False(t, s.Responding())
	assert.False(t, s.LoadingHistory())
}
