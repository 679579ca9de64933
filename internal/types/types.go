package types

import "time"

// GeneratedFile represents the structure expected from the LLM for each file.
type GeneratedFile struct {
	Filename string `json:"filename"`
	Type     string `json:"type"` // e.g., "tsx", "css", "html"
	Content  string `json:"content"`
}

// Project is a named container of source files.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SourceFile is one stored file of a project. Content is raw, untrusted text
// and may still be wrapped in a Markdown fence.
type SourceFile struct {
	ID        string    `json:"id,omitempty"`
	ProjectID string    `json:"projectId,omitempty"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Type      string    `json:"type,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// FilePatch carries the optional fields of a file update.
type FilePatch struct {
	Name    *string `json:"name"`
	Path    *string `json:"path"`
	Content *string `json:"content"`
}
