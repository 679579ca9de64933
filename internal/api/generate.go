package api

import (
	"errors"
	"net/http"
	"strings"

	"ai_builder_server/internal/ai"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// POST /projects/:id/generate
func (h *APIHandler) GenerateSite(c *gin.Context) {
	if !h.generationAvailable(c) {
		return
	}
	projectID := c.Param("id")
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		badRequest(c, ai.ErrEmptyPrompt)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetProject(ctx, projectID); err != nil {
		h.fail(c, err, "Failed to retrieve project")
		return
	}

	h.log.Info("received generation request", zap.String("projectId", projectID))
	result, err := h.aiGenerator.Generate(ctx, req.Prompt, projectID, req.Model)
	if err != nil {
		h.generationFailed(c, projectID, err, "Failed to generate site")
		return
	}

	written, err := h.store.ReplaceFiles(ctx, projectID, result.Files)
	if err != nil {
		h.fail(c, err, "Failed to store generated files")
		return
	}
	h.filesChanged(projectID)

	files, err := h.store.ListFiles(ctx, projectID)
	if err != nil {
		h.fail(c, err, "Failed to retrieve project files")
		return
	}

	h.log.Info("site generation successful", zap.String("projectId", projectID), zap.Int("written", written))
	c.JSON(http.StatusCreated, GenerateResponse{ // Use 201 Created
		ProjectID: projectID,
		Model:     result.Model,
		Written:   written,
		Files:     files,
	})
}

// POST /projects/:id/refine
func (h *APIHandler) RefineProjectCode(c *gin.Context) {
	if !h.generationAvailable(c) {
		return
	}
	projectID := c.Param("id")
	var req RefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if strings.TrimSpace(req.Instruction) == "" {
		badRequest(c, ai.ErrEmptyPrompt)
		return
	}

	ctx := c.Request.Context()
	current, err := h.store.ListFiles(ctx, projectID)
	if err != nil {
		h.fail(c, err, "Failed to retrieve project files")
		return
	}

	h.log.Info("received code refinement request", zap.String("projectId", projectID), zap.Int("files", len(current)))
	changed, err := h.aiGenerator.GenerateCodeChanges(ctx, req.Instruction, current, req.Model)
	if err != nil {
		h.generationFailed(c, projectID, err, "Failed to process code refinement request")
		return
	}

	// An empty change set is a valid answer: nothing needed to change.
	files := current
	if len(changed) > 0 {
		if _, err := h.store.ReplaceFiles(ctx, projectID, changed); err != nil {
			h.fail(c, err, "Failed to store refined files")
			return
		}
		h.filesChanged(projectID)
		if files, err = h.store.ListFiles(ctx, projectID); err != nil {
			h.fail(c, err, "Failed to retrieve project files")
			return
		}
	}

	h.log.Info("returning suggested file changes", zap.String("projectId", projectID), zap.Int("changed", len(changed)))
	c.JSON(http.StatusOK, RefineCodeResponse{Changed: changed, Files: files})
}

func (h *APIHandler) generationAvailable(c *gin.Context) bool {
	if h.aiGenerator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Generation is not configured"})
		return false
	}
	return true
}

// generationFailed reports upstream model failures as 502. A blank prompt
// is the caller's fault and gets 400.
func (h *APIHandler) generationFailed(c *gin.Context, projectID string, err error, msg string) {
	if c.Request.Context().Err() != nil {
		h.log.Info("generation cancelled by client", zap.String("projectId", projectID))
		c.JSON(499, gin.H{"error": "Request cancelled"})
		return
	}
	if errors.Is(err, ai.ErrEmptyPrompt) {
		badRequest(c, err)
		return
	}
	h.log.Warn(msg, zap.String("projectId", projectID), zap.Error(err))
	if errors.Is(err, ai.ErrNoFiles) || errors.Is(err, ai.ErrUnparsable) || errors.Is(err, ai.ErrEmptyResponse) {
		c.JSON(http.StatusBadGateway, gin.H{"error": msg, "details": err.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": msg})
}
