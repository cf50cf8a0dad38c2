package models

import (
	"context"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/delver-ai/delver/internal/config"
)

// NewOpenAI creates a ChatModel for any OpenAI-compatible endpoint,
// including local llama.cpp and vLLM servers.
func NewOpenAI(ctx context.Context, cfg config.ProviderConfig, auth ResolvedAuth) (model.ToolCallingChatModel, error) {
	modelConfig := &einoopenai.ChatModelConfig{
		APIKey: auth.Value,
		Model:  cfg.Model,
	}

	if cfg.BaseURL != "" {
		modelConfig.BaseURL = cfg.BaseURL
	}

	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelConfig.MaxCompletionTokens = &maxTokens
	}

	if cfg.Timeout.Duration() > 0 {
		modelConfig.Timeout = cfg.Timeout.Duration()
	} else {
		modelConfig.Timeout = 60 * time.Second
	}

	if cfg.Temperature > 0 {
		temp := float32(cfg.Temperature)
		modelConfig.Temperature = &temp
	}
	if cfg.TopP > 0 {
		topP := float32(cfg.TopP)
		modelConfig.TopP = &topP
	}

	return einoopenai.NewChatModel(ctx, modelConfig)
}
