package models

import (
	"context"

	einoclaude "github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"github.com/delver-ai/delver/internal/config"
)

const (
	defaultClaudeModel     = "claude-sonnet-4-5"
	defaultClaudeMaxTokens = 4096
)

// NewClaude creates a new Anthropic ChatModel.
func NewClaude(ctx context.Context, cfg config.ProviderConfig, auth ResolvedAuth) (model.ToolCallingChatModel, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultClaudeModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	modelConfig := &einoclaude.Config{
		APIKey:    auth.Value,
		Model:     modelName,
		MaxTokens: maxTokens,
	}

	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		modelConfig.BaseURL = &baseURL
	}
	if cfg.Temperature > 0 {
		temp := float32(cfg.Temperature)
		modelConfig.Temperature = &temp
	}
	if cfg.TopP > 0 {
		topP := float32(cfg.TopP)
		modelConfig.TopP = &topP
	}

	return einoclaude.NewChatModel(ctx, modelConfig)
}
