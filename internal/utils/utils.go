package utils

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ShouldRetry reports whether an LLM call failed with a transient error.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var openAIErr *openai.APIError
	if errors.As(err, &openAIErr) {
		return openAIErr.HTTPStatusCode >= 500 || openAIErr.HTTPStatusCode == 429
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= 500 || reqErr.HTTPStatusCode == 429
	}

	errMsg := strings.ToLower(err.Error())
	for _, transient := range []string{
		"rate limit",
		"502 bad gateway",
		"503 service unavailable",
		"504 gateway timeout",
		"timeout",
		"connection reset by peer",
	} {
		if strings.Contains(errMsg, transient) {
			return true
		}
	}
	return false
}

// DetermineFileType maps a file name to the language tag used for code
// fences and previews.
func DetermineFileType(filename string) string {
	lower := strings.ToLower(filename)
	switch filepath.Ext(lower) {
	case ".html", ".htm":
		return "html"
	case ".css":
		return "css"
	case ".js", ".mjs", ".cjs":
		return "javascript"
	case ".jsx":
		return "jsx"
	case ".ts":
		return "typescript"
	case ".tsx":
		return "tsx"
	case ".json":
		return "json"
	case ".md":
		return "markdown"
	case ".svg":
		return "xml"
	case ".yaml", ".yml":
		return "yaml"
	case ".txt":
		return "text"
	default:
		base := filepath.Base(lower)
		if strings.Contains(base, "dockerfile") {
			return "docker"
		}
		return "text"
	}
}
