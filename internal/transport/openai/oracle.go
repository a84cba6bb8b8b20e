package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ideadex/internal/domain"
	"github.com/kailas-cloud/ideadex/internal/metrics"
)

// Oracle generates text through the chat completions API.
type Oracle struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// OracleConfig holds the chat model settings.
type OracleConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewOracle creates a text generator backed by an OpenAI-compatible chat model.
func NewOracle(cfg *OracleConfig) *Oracle {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Oracle{
		client: newClient(cfg.APIKey, cfg.BaseURL),
		model:  cfg.Model,
		logger: log,
	}
}

// GenerateText implements domain.TextGenerator.
func (o *Oracle) GenerateText(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if opts.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.OracleRequestsTotal.WithLabelValues(o.model, "error").Inc()
		return "", apiError("chat", err, domain.ErrEnhancementUnavailable)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.OracleRequestsTotal.WithLabelValues(o.model, "empty").Inc()
		return "", fmt.Errorf("empty chat response: %w", domain.ErrEnhancementUnavailable)
	}

	metrics.OracleRequestsTotal.WithLabelValues(o.model, "success").Inc()
	o.logger.Debug("oracle reply received",
		zap.Int("content_length", len(resp.Choices[0].Message.Content)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}
