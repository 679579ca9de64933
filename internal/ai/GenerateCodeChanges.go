package ai

import (
	"context"
	"fmt"
	"strings"

	"ai_builder_server/internal/ai/prompts"
	"ai_builder_server/internal/sanitizer"
	"ai_builder_server/internal/types"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// GenerateCodeChanges asks the model to apply instruction to the project's
// current files and returns only the changed or added files. An empty result
// is valid: the model may decide nothing needs to change.
func (g *Generator) GenerateCodeChanges(ctx context.Context, instruction string, files []types.SourceFile, model string) ([]types.SourceFile, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("%w: instruction is empty", ErrEmptyPrompt)
	}
	model = g.Model(model)

	fullPrompt, systemPrompt := prompts.GetSiteCodeChangePrompt(instruction, contextFiles(files))

	output, err := g.complete(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fullPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{ // Request JSON output
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3, // Keep temperature low for focused edits
	})
	if err != nil {
		return nil, fmt.Errorf("code changes: %w", err)
	}
	g.log.Debug("LLM raw output for code changes", zap.String("output", output))

	generated, err := parseGeneratedFiles(output)
	if err != nil {
		return nil, fmt.Errorf("code changes: %w", err)
	}

	changed := toSourceFiles(generated)
	g.log.Info("LLM suggested file changes", zap.String("model", model), zap.Int("files", len(changed)))
	return changed, nil
}

// contextFiles renders the project for the refinement prompt, one fenced
// block per file.
func contextFiles(files []types.SourceFile) string {
	var b strings.Builder
	for i, f := range files {
		if i > 0 {
			b.WriteString("\n")
		}
		name := f.Path
		if name == "" {
			name = f.Name
		}
		content := sanitizer.Sanitize(f.Content)
		fence := sanitizer.Fence
		for strings.Contains(content, fence) {
			fence += "`"
		}
		fmt.Fprintf(&b, "File: %s\n%s%s\n%s", name, fence, f.Type, content)
		if !strings.HasSuffix(content, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(fence)
		b.WriteString("\n")
	}
	return b.String()
}
