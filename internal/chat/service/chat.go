package service

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lk2023060901/ai-research-backend/internal/chat/history"
	"github.com/lk2023060901/ai-research-backend/internal/chat/store"
	"github.com/lk2023060901/ai-research-backend/internal/chat/stream"
	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
	apperrors "github.com/lk2023060901/ai-research-backend/internal/pkg/errors"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/response"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/sse"
)

// ChatService handles HTTP requests for the conversation lifecycle
type ChatService struct {
	store   *store.Store
	driver  *stream.Driver
	history *history.Index
	hub     *sse.Hub
	logger  *logger.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	st *store.Store,
	driver *stream.Driver,
	hist *history.Index,
	hub *sse.Hub,
	logger *logger.Logger,
) *ChatService {
	return &ChatService{
		store:   st,
		driver:  driver,
		history: hist,
		hub:     hub,
		logger:  logger,
	}
}

// RegisterRoutes registers chat routes
func (s *ChatService) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/chat/send", s.Send)
	r.POST("/chat/stop", s.Stop)
	r.POST("/chat/clear", s.Clear)
	r.GET("/chat/events", s.Events)

	r.GET("/chat/conversation", s.Conversation)
	r.GET("/chat/messages", s.Messages)
	r.GET("/chat/messages/:message_id", s.Message)

	r.GET("/chat/research", s.ResearchList)
	r.GET("/chat/research/:research_id", s.Research)
	r.POST("/chat/research/open", s.OpenResearch)
	r.POST("/chat/research/close", s.CloseResearch)
}

// SendRequest is the body of POST /chat/send
type SendRequest struct {
	Content           string                    `json:"content"`
	InterruptFeedback string                    `json:"interrupt_feedback,omitempty"`
	Resources         []types.Resource          `json:"resources,omitempty"`
	Settings          *types.GenerationSettings `json:"settings,omitempty"`
}

// Send starts one turn. The stream is consumed in the background; progress
// is observable on /chat/events.
func (s *ChatService) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}
	if req.Content == "" && req.InterruptFeedback == "" {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "content or interrupt_feedback required")
		return
	}
	if s.store.Responding() {
		response.ErrorWithCode(c, apperrors.ErrChatAlreadyResponding)
		return
	}

	opts := &types.SendOptions{
		InterruptFeedback: req.InterruptFeedback,
		Resources:         req.Resources,
		Settings:          req.Settings,
	}

	threadID := s.store.ThreadID()
	// 请求返回后流仍在继续,挂到独立 context 上,但保留 request id
	ctx := logger.WithRequestID(context.Background(), logger.GetRequestID(c.Request.Context()))
	go func() {
		if err := s.driver.SendMessage(ctx, req.Content, opts); err != nil {
			s.logger.WithContext(ctx).Warn("send turn failed",
				zap.String("thread_id", threadID),
				zap.Error(err))
		}
	}()

	response.Success(c, gin.H{"thread_id": threadID})
}

// Stop aborts the in-flight stream
func (s *ChatService) Stop(c *gin.Context) {
	s.driver.Stop()
	response.Success(c, nil)
}

// Clear resets the conversation and mints a fresh thread
func (s *ChatService) Clear(c *gin.Context) {
	if s.store.Responding() {
		response.ErrorWithCode(c, apperrors.ErrChatAlreadyResponding)
		return
	}
	threadID := s.store.ClearConversation()
	response.Success(c, gin.H{"thread_id": threadID})
}

// Events subscribes the caller to the current thread's state changes over SSE
func (s *ChatService) Events(c *gin.Context) {
	threadID := s.store.ThreadID()
	st := sse.NewStream(c, s.hub).
		WithResource(threadResource(threadID)).
		WithBufferSize(64).
		Build()
	st.StartStreaming()
}

// Conversation returns the full state snapshot
func (s *ChatService) Conversation(c *gin.Context) {
	response.Success(c, s.store.Snapshot())
}

// Messages returns all messages in conversation order
func (s *ChatService) Messages(c *gin.Context) {
	response.Success(c, gin.H{
		"thread_id": s.store.ThreadID(),
		"messages":  s.store.MessagesInOrder(),
	})
}

// Message returns a single message by id
func (s *ChatService) Message(c *gin.Context) {
	id := c.Param("message_id")
	msg, ok := s.store.Message(id)
	if !ok {
		response.ErrorWithCode(c, apperrors.ErrChatMessageNotFound, id)
		return
	}
	response.Success(c, msg)
}

// ResearchList returns the ids of all research sessions plus open/ongoing state
func (s *ChatService) ResearchList(c *gin.Context) {
	response.Success(c, gin.H{
		"research_ids":        s.store.ResearchIDs(),
		"ongoing_research_id": s.store.OngoingResearchID(),
		"open_research_id":    s.store.OpenResearchID(),
	})
}

// Research returns one research session's plan, report and activities
func (s *ChatService) Research(c *gin.Context) {
	id := c.Param("research_id")
	activityIDs, ok := s.store.ResearchActivityIDs(id)
	if !ok {
		response.ErrorWithCode(c, apperrors.ErrResearchNotFound, id)
		return
	}
	planID, _ := s.store.ResearchPlanID(id)
	reportID, _ := s.store.ResearchReportID(id)

	response.Success(c, gin.H{
		"research_id":  id,
		"plan_id":      planID,
		"report_id":    reportID,
		"activity_ids": activityIDs,
	})
}

// OpenResearch marks a research session as open in the review panel
func (s *ChatService) OpenResearch(c *gin.Context) {
	var req struct {
		ResearchID string `json:"research_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}
	if req.ResearchID != "" {
		if _, ok := s.store.ResearchActivityIDs(req.ResearchID); !ok {
			response.ErrorWithCode(c, apperrors.ErrResearchNotFound, req.ResearchID)
			return
		}
	}
	s.store.OpenResearch(req.ResearchID)
	response.Success(c, nil)
}

// CloseResearch closes the review panel
func (s *ChatService) CloseResearch(c *gin.Context) {
	s.store.CloseResearch()
	response.Success(c, nil)
}

func threadResource(threadID string) string {
	return "thread:" + threadID
}
