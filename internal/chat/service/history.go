package service

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lk2023060901/ai-research-backend/internal/chat/data"
	"github.com/lk2023060901/ai-research-backend/internal/chat/history"
	"github.com/lk2023060901/ai-research-backend/internal/chat/store"
	apperrors "github.com/lk2023060901/ai-research-backend/internal/pkg/errors"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/response"
)

// HistoryService handles HTTP requests for the conversation history index
type HistoryService struct {
	store    *store.Store
	history  *history.Index
	messages *data.MessageRepo // optional fallback for entries without snapshots
	logger   *logger.Logger
}

// NewHistoryService creates a new history service. messages may be nil when
// the database is not available.
func NewHistoryService(
	st *store.Store,
	hist *history.Index,
	messages *data.MessageRepo,
	logger *logger.Logger,
) *HistoryService {
	return &HistoryService{
		store:    st,
		history:  hist,
		messages: messages,
		logger:   logger,
	}
}

// RegisterRoutes registers history routes
func (s *HistoryService) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/history", s.List)
	r.GET("/history/search", s.Search)
	r.GET("/history/:thread_id", s.Get)
	r.DELETE("/history/:thread_id", s.Delete)
	r.POST("/history/:thread_id/load", s.Load)
}

// List returns all history entries, most recent first
func (s *HistoryService) List(c *gin.Context) {
	response.Success(c, gin.H{"entries": s.history.List()})
}

// Search filters history entries by a query term
func (s *HistoryService) Search(c *gin.Context) {
	term := c.Query("q")
	response.Success(c, gin.H{"entries": s.history.Search(term)})
}

// Get returns one history entry with its message snapshot
func (s *HistoryService) Get(c *gin.Context) {
	threadID := c.Param("thread_id")
	entry, ok := s.history.Get(threadID)
	if !ok {
		response.ErrorWithCode(c, apperrors.ErrHistoryNotFound, threadID)
		return
	}
	response.Success(c, entry)
}

// Delete removes one history entry
func (s *HistoryService) Delete(c *gin.Context) {
	threadID := c.Param("thread_id")
	if err := s.history.Delete(c.Request.Context(), threadID); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, nil)
}

// Load replaces the live conversation with a recorded one. Entries whose
// snapshot was trimmed fall back to the database mirror when one exists.
func (s *HistoryService) Load(c *gin.Context) {
	if s.store.Responding() {
		response.ErrorWithCode(c, apperrors.ErrChatAlreadyResponding)
		return
	}

	threadID := c.Param("thread_id")
	entry, ok := s.history.Get(threadID)
	if !ok {
		response.ErrorWithCode(c, apperrors.ErrHistoryNotFound, threadID)
		return
	}

	messages := entry.Messages
	if len(messages) == 0 && s.messages != nil {
		var err error
		messages, err = s.messages.ListByThread(c.Request.Context(), threadID)
		if err != nil {
			s.logger.WithContext(c.Request.Context()).Warn("failed to load messages from database",
				zap.String("thread_id", threadID),
				zap.Error(err))
		}
	}

	s.store.LoadConversation(c.Request.Context(), messages, threadID)
	response.Success(c, s.store.Snapshot())
}
