package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestShouldRetry(t *testing.T) {
	assert.False(t, ShouldRetry(nil))
	assert.False(t, ShouldRetry(errors.New("invalid api key")))
	assert.True(t, ShouldRetry(errors.New("Rate limit reached for requests")))
	assert.True(t, ShouldRetry(fmt.Errorf("wrapped: %w", &openai.APIError{HTTPStatusCode: 503})))
	assert.True(t, ShouldRetry(&openai.APIError{HTTPStatusCode: 429}))
	assert.False(t, ShouldRetry(&openai.APIError{HTTPStatusCode: 400}))
}

func TestDetermineFileType(t *testing.T) {
	cases := map[string]string{
		"index.html":         "html",
		"src/styles.CSS":     "css",
		"App.jsx":            "jsx",
		"src/main.tsx":       "tsx",
		"lib/util.ts":        "typescript",
		"app.js":             "javascript",
		"package.json":       "json",
		"README.md":          "markdown",
		"Dockerfile":         "docker",
		"no_extension_at_al": "text",
	}
	for name, want := range cases {
		assert.Equal(t, want, DetermineFileType(name), name)
	}
}
