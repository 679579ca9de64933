package api

import (
	"net/http"

	"ai_builder_server/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// POST /projects
func (h *APIHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := h.store.CreateProject(c.Request.Context(), req.Name, req.Prompt)
	if err != nil {
		h.fail(c, err, "Failed to create project")
		return
	}
	h.log.Info("project created", zap.String("projectId", project.ID))
	c.JSON(http.StatusCreated, project)
}

// GET /projects
func (h *APIHandler) ListProjects(c *gin.Context) {
	projects, err := h.store.ListProjects(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to list projects")
		return
	}
	c.JSON(http.StatusOK, projects)
}

// GET /projects/:id
func (h *APIHandler) GetProject(c *gin.Context) {
	project, err := h.store.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to retrieve project")
		return
	}
	c.JSON(http.StatusOK, project)
}

// DELETE /projects/:id
func (h *APIHandler) DeleteProject(c *gin.Context) {
	projectID := c.Param("id")
	if err := h.store.DeleteProject(c.Request.Context(), projectID); err != nil {
		h.fail(c, err, "Failed to delete project")
		return
	}
	h.tracker.Forget(projectID)
	h.log.Info("project deleted", zap.String("projectId", projectID))
	c.Status(http.StatusNoContent)
}

// GET /projects/:id/files
func (h *APIHandler) ListFiles(c *gin.Context) {
	files, err := h.store.ListFiles(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to retrieve project files")
		return
	}
	c.JSON(http.StatusOK, files)
}

// POST /projects/:id/files
func (h *APIHandler) CreateFile(c *gin.Context) {
	projectID := c.Param("id")
	var req CreateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	file, err := h.store.CreateFile(c.Request.Context(), projectID, req.Name, req.Path, req.Content)
	if err != nil {
		h.fail(c, err, "Failed to create file")
		return
	}
	h.filesChanged(projectID)
	c.JSON(http.StatusCreated, file)
}

// PATCH /files/:fileId
func (h *APIHandler) UpdateFile(c *gin.Context) {
	var patch types.FilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	file, err := h.store.UpdateFile(c.Request.Context(), c.Param("fileId"), patch)
	if err != nil {
		h.fail(c, err, "Failed to update file")
		return
	}
	h.filesChanged(file.ProjectID)
	c.JSON(http.StatusOK, file)
}

// DELETE /files/:fileId
func (h *APIHandler) DeleteFile(c *gin.Context) {
	ctx := c.Request.Context()
	file, err := h.store.GetFile(ctx, c.Param("fileId"))
	if err != nil {
		h.fail(c, err, "Failed to delete file")
		return
	}
	if err := h.store.DeleteFile(ctx, file.ID); err != nil {
		h.fail(c, err, "Failed to delete file")
		return
	}
	h.filesChanged(file.ProjectID)
	c.Status(http.StatusNoContent)
}

// filesChanged discards the previous render cycle, fallback included: the
// next preview request composes and tries the sandbox again.
func (h *APIHandler) filesChanged(projectID string) {
	h.tracker.Forget(projectID)
}
