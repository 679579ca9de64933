package api

import (
	"context"
	"errors"
	"net/http"

	"ai_builder_server/internal/ai"
	"ai_builder_server/internal/export"
	"ai_builder_server/internal/preview"
	"ai_builder_server/internal/store"
	"ai_builder_server/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Generator is the generation service the handlers call.
type Generator interface {
	Generate(ctx context.Context, prompt, projectID, model string) (*ai.GenerateResult, error)
	GenerateCodeChanges(ctx context.Context, instruction string, files []types.SourceFile, model string) ([]types.SourceFile, error)
}

// Dependencies are the services behind the API. Generator may be nil, in
// which case the generation endpoints answer 503.
type Dependencies struct {
	Store     *store.Store
	Generator Generator
	Composer  *preview.Composer
	Static    *preview.StaticRenderer
	Tracker   *preview.Tracker
	Hub       *preview.Hub
	Exporter  *export.Exporter
	ExportDir string
	Log       *zap.Logger
}

// APIHandler holds dependencies for API endpoints.
type APIHandler struct {
	store       *store.Store
	aiGenerator Generator
	composer    *preview.Composer
	static      *preview.StaticRenderer
	tracker     *preview.Tracker
	hub         *preview.Hub
	exporter    *export.Exporter
	exportDir   string
	log         *zap.Logger
}

// NewAPIHandler initializes a new API handler with its dependencies.
func NewAPIHandler(deps Dependencies) *APIHandler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	h := &APIHandler{
		store:       deps.Store,
		aiGenerator: deps.Generator,
		composer:    deps.Composer,
		static:      deps.Static,
		tracker:     deps.Tracker,
		hub:         deps.Hub,
		exporter:    deps.Exporter,
		exportDir:   deps.ExportDir,
		log:         log.Named("api"),
	}
	if h.composer == nil {
		h.composer = preview.NewComposer(preview.Runtime{}, "")
	}
	if h.static == nil {
		h.static = preview.NewStaticRenderer(log)
	}
	if h.tracker == nil {
		var publisher preview.Publisher
		if h.hub != nil {
			publisher = h.hub
		}
		h.tracker = preview.NewTracker(publisher)
	}
	if h.exporter == nil {
		h.exporter = export.NewExporter(h.composer, log)
	}
	if h.exportDir == "" {
		h.exportDir = "tmp"
	}
	return h
}

// --- Structs for API Requests/Responses ---

type CreateProjectRequest struct {
	Name   string `json:"name" binding:"required"`
	Prompt string `json:"prompt"`
}

type CreateFileRequest struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Model  string `json:"model"`
}

type GenerateResponse struct {
	ProjectID string             `json:"projectId"`
	Model     string             `json:"model"`
	Written   int                `json:"written"`
	Files     []types.SourceFile `json:"files"`
}

type RefineRequest struct {
	Instruction string `json:"instruction" binding:"required"`
	Model       string `json:"model"`
}

type RefineCodeResponse struct { // For code change suggestions
	Changed []types.SourceFile `json:"changed"`
	Files   []types.SourceFile `json:"files"`
}

type ComposeRequest struct {
	ProjectName string             `json:"projectName"`
	Files       []types.SourceFile `json:"files"`
}

type ExportResponse struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// fail maps store errors to status codes and logs everything else.
func (h *APIHandler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
	case errors.Is(err, store.ErrFileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
	case errors.Is(err, store.ErrPathTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrInvalidFile), errors.Is(err, export.ErrUnsafePath), errors.Is(err, export.ErrReservedPath):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
}

// GET /health
func (h *APIHandler) Health(c *gin.Context) {
	if err := h.store.Ping(); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "previewClients": h.connectionCount()})
}

func (h *APIHandler) connectionCount() int {
	if h.hub == nil {
		return 0
	}
	return h.hub.ConnectionCount()
}
