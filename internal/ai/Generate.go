package ai

import (
	"context"
	"strings"

	"ai_builder_server/internal/ai/prompts"
	"ai_builder_server/internal/types"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// GenerateResult is one generation's output.
type GenerateResult struct {
	Model string             `json:"model"`
	Files []types.SourceFile `json:"files"`
}

// Generate asks the model for a new project built from prompt. projectID is
// only used to correlate log lines.
func (g *Generator) Generate(ctx context.Context, prompt, projectID, model string) (*GenerateResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	model = g.Model(model)
	log := g.log.With(zap.String("projectId", projectID), zap.String("model", model))
	log.Info("generating project")

	output, err := g.complete(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.GenerationSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompts.GetSiteGenerationPrompt(prompt)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3, // Lower temperature for more predictable code generation
	})
	if err != nil {
		return nil, err
	}
	log.Debug("LLM raw output", zap.String("output", output))

	generated, err := parseGeneratedFiles(output)
	if err != nil {
		log.Warn("failed to parse LLM output", zap.Error(err))
		return nil, err
	}

	files := toSourceFiles(generated)
	if len(files) == 0 {
		log.Warn("LLM output parsed, but resulted in zero files")
		return nil, ErrNoFiles
	}
	if len(files) != len(generated) {
		log.Warn("dropped unnamed or duplicate files", zap.Int("parsed", len(generated)), zap.Int("kept", len(files)))
	}

	log.Info("generated project files", zap.Int("files", len(files)))
	return &GenerateResult{Model: model, Files: files}, nil
}
