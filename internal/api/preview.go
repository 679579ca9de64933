package api

import (
	"errors"
	"net/http"
	"path/filepath"

	"ai_builder_server/internal/preview"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// Served documents run in an opaque origin even when opened directly
	// instead of inside the host's sandboxed frame.
	livePreviewCSP   = "sandbox allow-scripts"
	staticPreviewCSP = "sandbox; script-src 'none'"
)

func writeHTML(c *gin.Context, csp, html string) {
	c.Header("Content-Security-Policy", csp)
	c.Header("Cache-Control", "no-store")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// GET /projects/:id/preview
//
// Once the sandbox reported that it could not initialize, the static preview
// is served instead until the files change or ?live=1 asks for another try.
func (h *APIHandler) Preview(c *gin.Context) {
	projectID := c.Param("id")
	ctx := c.Request.Context()

	project, err := h.store.GetProject(ctx, projectID)
	if err != nil {
		h.fail(c, err, "Failed to retrieve project")
		return
	}
	files, err := h.store.ListFiles(ctx, projectID)
	if err != nil {
		h.fail(c, err, "Failed to retrieve project files")
		return
	}

	if h.tracker.Snapshot(projectID).Fallback && c.Query("live") == "" {
		h.renderStatic(c, preview.FileSet(files), project.Name)
		return
	}

	h.tracker.Begin(projectID)
	doc := h.composer.Compose(preview.FileSet(files), project.Name)
	h.tracker.Composed(projectID)

	h.log.Debug("composed preview",
		zap.String("projectId", projectID),
		zap.Bool("synthesized", doc.Synthesized),
		zap.Bool("repaired", doc.Repaired),
		zap.Int("styles", doc.Styles),
		zap.Int("scripts", doc.Scripts))
	writeHTML(c, livePreviewCSP, doc.HTML)
}

// GET /projects/:id/preview/static
func (h *APIHandler) StaticPreview(c *gin.Context) {
	projectID := c.Param("id")
	ctx := c.Request.Context()

	project, err := h.store.GetProject(ctx, projectID)
	if err != nil {
		h.fail(c, err, "Failed to retrieve project")
		return
	}
	files, err := h.store.ListFiles(ctx, projectID)
	if err != nil {
		h.fail(c, err, "Failed to retrieve project files")
		return
	}
	h.renderStatic(c, preview.FileSet(files), project.Name)
}

func (h *APIHandler) renderStatic(c *gin.Context, files preview.FileSet, name string) {
	html, err := h.static.Render(files, name)
	if err != nil {
		h.fail(c, err, "Failed to render static preview")
		return
	}
	writeHTML(c, staticPreviewCSP, html)
}

// POST /projects/:id/preview/status
func (h *APIHandler) ReportPreviewStatus(c *gin.Context) {
	projectID := c.Param("id")
	var report preview.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := h.store.GetProject(c.Request.Context(), projectID); err != nil {
		h.fail(c, err, "Failed to retrieve project")
		return
	}

	state, err := h.tracker.Report(projectID, report)
	if errors.Is(err, preview.ErrUnknownOutcome) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if state.Status == preview.StatusErrored {
		h.log.Info("preview reported failure",
			zap.String("projectId", projectID),
			zap.Bool("fallback", state.Fallback),
			zap.String("message", state.Message))
	}
	c.JSON(http.StatusOK, state)
}

// GET /projects/:id/preview/state
func (h *APIHandler) PreviewState(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Snapshot(c.Param("id")))
}

// POST /compose
//
// Composes an ad-hoc file set that is not stored anywhere. ?format=json
// returns the document with its metadata instead of the bare HTML.
func (h *APIHandler) Compose(c *gin.Context) {
	var req ComposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	doc := h.composer.Compose(preview.FileSet(req.Files), req.ProjectName)
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, doc)
		return
	}
	writeHTML(c, livePreviewCSP, doc.HTML)
}

// POST /projects/:id/export
func (h *APIHandler) ExportProject(c *gin.Context) {
	projectID := c.Param("id")
	ctx := c.Request.Context()

	project, err := h.store.GetProject(ctx, projectID)
	if err != nil {
		h.fail(c, err, "Failed to retrieve project")
		return
	}
	files, err := h.store.ListFiles(ctx, projectID)
	if err != nil {
		h.fail(c, err, "Failed to retrieve project files")
		return
	}

	dir := filepath.Join(h.exportDir, project.ID)
	written, err := h.exporter.Export(ctx, dir, project.Name, files)
	if err != nil {
		h.fail(c, err, "Failed to export project")
		return
	}
	c.JSON(http.StatusOK, ExportResponse{Dir: dir, Files: written})
}

// GET /ws/preview
func (h *APIHandler) PreviewSocket(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Preview status stream is not enabled"})
		return
	}
	h.hub.ServeHTTP(c.Writer, c.Request)
}
