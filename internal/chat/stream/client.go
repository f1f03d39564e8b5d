package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
	"github.com/lk2023060901/ai-research-backend/internal/conf"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/errors"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/sse"
)

// RequestMessage is one prior turn forwarded to the backend.
type RequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a stream request to the research backend.
type ChatRequest struct {
	ThreadID                      string           `json:"thread_id"`
	Messages                      []RequestMessage `json:"messages"`
	Resources                     []types.Resource `json:"resources,omitempty"`
	AutoAcceptedPlan              bool             `json:"auto_accepted_plan"`
	EnableDeepThinking            bool             `json:"enable_deep_thinking"`
	EnableBackgroundInvestigation bool             `json:"enable_background_investigation"`
	MaxPlanIterations             int              `json:"max_plan_iterations"`
	MaxStepNum                    int              `json:"max_step_num"`
	MaxSearchResults              int              `json:"max_search_results"`
	ReportStyle                   string           `json:"report_style,omitempty"`
	MCPSettings                   map[string]any   `json:"mcp_settings,omitempty"`
	Model                         string           `json:"model,omitempty"`
	InterruptFeedback             string           `json:"interrupt_feedback,omitempty"`
}

// Result carries either one decoded event or a terminal stream error.
type Result struct {
	Event types.StreamEvent
	Err   error
}

// Client consumes the research backend's SSE chat endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a backend stream client.
func NewClient(cfg *conf.BackendConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Stream opens a chat stream and decodes its events onto the returned channel.
// The channel closes when the stream ends; a terminal failure arrives as the
// final Result with Err set. Canceling ctx aborts the stream.
func (c *Client) Stream(ctx context.Context, req *ChatRequest) (<-chan Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrChatStreamFailed, "encode stream request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/stream", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrChatStreamFailed, "build stream request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrChatBackendUnavail, "open chat stream")
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, errors.New(errors.ErrChatBackendUnavail,
			fmt.Sprintf("chat stream returned %d: %s", resp.StatusCode, snippet))
	}

	out := make(chan Result)
	go c.consume(ctx, resp.Body, out)
	return out, nil
}

func (c *Client) consume(ctx context.Context, body io.ReadCloser, out chan<- Result) {
	defer close(out)
	defer body.Close()

	decoder := sse.NewDecoder(body)
	for {
		raw, err := decoder.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			// 上下文取消会以读错误的形式冒出来,原样上抛由调用方区分
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			c.deliver(ctx, out, Result{Err: err})
			return
		}

		event, err := types.UnmarshalEvent(raw.Type, raw.Data)
		if err != nil {
			// 未知事件类型跳过,不中断整个流
			c.logger.Warn("skipping undecodable stream event",
				zap.String("event_type", raw.Type),
				zap.Error(err))
			continue
		}

		if !c.deliver(ctx, out, Result{Event: event}) {
			return
		}
	}
}

// GeneratePodcast asks the backend to narrate a report and returns the raw
// audio bytes.
func (c *Client) GeneratePodcast(ctx context.Context, content string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrPodcastGenerateFailed, "encode podcast request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/podcast/generate", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrPodcastGenerateFailed, "build podcast request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrPodcastGenerateFailed, "call podcast endpoint")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.New(errors.ErrPodcastGenerateFailed,
			fmt.Sprintf("podcast endpoint returned %d: %s", resp.StatusCode, snippet))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrPodcastGenerateFailed, "read podcast audio")
	}
	return audio, nil
}

func (c *Client) deliver(ctx context.Context, out chan<- Result, r Result) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
