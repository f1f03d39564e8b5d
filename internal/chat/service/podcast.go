package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lk2023060901/ai-research-backend/internal/chat/history"
	"github.com/lk2023060901/ai-research-backend/internal/chat/store"
	"github.com/lk2023060901/ai-research-backend/internal/chat/stream"
	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
	apperrors "github.com/lk2023060901/ai-research-backend/internal/pkg/errors"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/response"
)

// PodcastService turns a finished research report into a narrated audio
// message in the conversation
type PodcastService struct {
	store    *store.Store
	client   *stream.Client
	notifier stream.Notifier
	logger   *logger.Logger
}

// NewPodcastService creates a new podcast service
func NewPodcastService(
	st *store.Store,
	client *stream.Client,
	notifier stream.Notifier,
	logger *logger.Logger,
) *PodcastService {
	if notifier == nil {
		notifier = stream.NopNotifier{}
	}
	return &PodcastService{
		store:    st,
		client:   client,
		notifier: notifier,
		logger:   logger,
	}
}

// RegisterRoutes registers podcast routes
func (s *PodcastService) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/podcast/generate", s.Generate)
}

// podcastPayload is the content of a finished podcast message
type podcastPayload struct {
	Title    string `json:"title"`
	AudioURL string `json:"audioUrl"`
}

// Generate appends a placeholder podcast message for a research report and
// fills it in the background once the audio is ready
func (s *PodcastService) Generate(c *gin.Context) {
	var req struct {
		ResearchID string `json:"research_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}

	reportID, ok := s.store.ResearchReportID(req.ResearchID)
	if !ok || reportID == "" {
		response.ErrorWithCode(c, apperrors.ErrResearchNotFound, req.ResearchID)
		return
	}
	report, ok := s.store.Message(reportID)
	if !ok || report.Content == "" {
		response.ErrorWithCode(c, apperrors.ErrChatMessageNotFound, reportID)
		return
	}

	// 先插入占位消息,生成完成后原地改写
	placeholder := &types.Message{
		ID:          uuid.New().String(),
		ThreadID:    s.store.ThreadID(),
		Role:        types.RoleAssistant,
		Agent:       types.AgentPodcast,
		IsStreaming: true,
	}
	s.store.AppendMessage(c.Request.Context(), placeholder)

	// 生成在后台继续,脱离请求 context 但保留 request id
	ctx := logger.WithRequestID(context.Background(), logger.GetRequestID(c.Request.Context()))
	go s.generate(ctx, placeholder.ID, report.Content)

	response.Success(c, gin.H{"message_id": placeholder.ID})
}

func (s *PodcastService) generate(ctx context.Context, messageID, reportContent string) {
	audio, err := s.client.GeneratePodcast(ctx, reportContent)

	msg, ok := s.store.Message(messageID)
	if !ok {
		return
	}
	msg.IsStreaming = false

	if err != nil {
		s.logger.WithContext(ctx).Error("podcast generation failed",
			zap.String("message_id", messageID),
			zap.Error(err))
		msg.Error = err.Error()
		s.store.UpdateMessage(ctx, msg)

		// 后端 5xx 与其他失败给出不同的用户提示
		if strings.Contains(err.Error(), "500") {
			s.notifier.Notify(ctx, "error", "Podcast generation failed",
				"The server encountered an internal error while generating the podcast.")
		} else {
			s.notifier.Notify(ctx, "error", "Podcast generation failed", err.Error())
		}
		return
	}

	payload, _ := json.Marshal(podcastPayload{
		Title:    history.ExtractTitleOrDefault(reportContent),
		AudioURL: "data:audio/mp3;base64," + base64.StdEncoding.EncodeToString(audio),
	})
	msg.Content = string(payload)
	s.store.UpdateMessage(ctx, msg)
}
