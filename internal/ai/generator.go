package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai_builder_server/internal/utils"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var (
	// ErrEmptyPrompt is returned for a blank prompt or instruction.
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrEmptyResponse is returned when the model answered with no content.
	ErrEmptyResponse = errors.New("openai returned empty response")
	// ErrNoFiles is returned when a generation produced nothing usable.
	ErrNoFiles = errors.New("LLM did not generate any files")
	// ErrUnparsable is returned when the model output is not a file list.
	ErrUnparsable = errors.New("failed to parse LLM JSON output")
)

// ChatClient is the part of the OpenAI client the generator uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Generator struct {
	client       ChatClient
	defaultModel string
	retryDelay   time.Duration
	log          *zap.Logger
}

// NewGenerator builds a generator on the OpenAI API. baseURL may point at any
// OpenAI compatible gateway; empty keeps the public endpoint.
func NewGenerator(apiKey, baseURL, defaultModel string, log *zap.Logger) *Generator {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return NewGeneratorWithClient(openai.NewClientWithConfig(config), defaultModel, log)
}

// NewGeneratorWithClient wraps an existing client.
func NewGeneratorWithClient(client ChatClient, defaultModel string, log *zap.Logger) *Generator {
	if defaultModel == "" {
		defaultModel = openai.GPT4o
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		client:       client,
		defaultModel: defaultModel,
		retryDelay:   2 * time.Second,
		log:          log.Named("generator"),
	}
}

// Model resolves a request's model selector; empty means the configured default.
func (g *Generator) Model(selector string) string {
	if s := strings.TrimSpace(selector); s != "" {
		return s
	}
	return g.defaultModel
}

// complete runs one chat completion, retrying once on transient errors.
func (g *Generator) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, req)

	if err != nil && utils.ShouldRetry(err) {
		g.log.Warn("OpenAI call failed, retrying once after delay", zap.String("model", req.Model), zap.Error(err))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(g.retryDelay):
		}
		resp, err = g.client.CreateChatCompletion(ctx, req)
	}

	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		g.log.Warn("empty completion", zap.Any("usage", resp.Usage))
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
