package api

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
)

// statusPathRe matches the one route sandboxed preview frames call.
var statusPathRe = regexp.MustCompile(`^/projects/[^/]+/preview/status/?$`)

// NewRouter builds the gin engine with the API routes behind CORS. Sandboxed
// preview frames have the opaque origin "null", which is accepted only for
// posting a preview status.
func NewRouter(h *APIHandler, origins []string) http.Handler {
	router := gin.New()        // Use gin.New() for more control over middleware
	router.Use(gin.Logger())   // Add structured logger middleware
	router.Use(gin.Recovery()) // Add panic recovery middleware

	RegisterRoutes(router, h)

	api := cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})(router)
	status := cors.Handler(cors.Options{
		AllowedOrigins: append([]string{"null"}, origins...),
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})(router)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if statusPathRe.MatchString(r.URL.Path) {
			status.ServeHTTP(w, r)
			return
		}
		api.ServeHTTP(w, r)
	})
}

// RegisterRoutes sets up the API endpoints and groups them logically.
func RegisterRoutes(router *gin.Engine, h *APIHandler) {
	router.GET("/health", h.Health)

	// --- Project Lifecycle ---
	projectGroup := router.Group("/projects")
	{
		projectGroup.POST("", h.CreateProject)
		projectGroup.GET("", h.ListProjects)
		projectGroup.GET("/:id", h.GetProject)
		projectGroup.DELETE("/:id", h.DeleteProject)

		projectGroup.GET("/:id/files", h.ListFiles)
		projectGroup.POST("/:id/files", h.CreateFile)

		projectGroup.POST("/:id/generate", h.GenerateSite)    // Generate project files from a prompt
		projectGroup.POST("/:id/refine", h.RefineProjectCode) // Apply an instruction to the existing files
		projectGroup.POST("/:id/export", h.ExportProject)

		projectGroup.GET("/:id/preview", h.Preview)
		projectGroup.GET("/:id/preview/static", h.StaticPreview)
		projectGroup.POST("/:id/preview/status", h.ReportPreviewStatus)
		projectGroup.GET("/:id/preview/state", h.PreviewState)
	}

	fileGroup := router.Group("/files")
	{
		fileGroup.PATCH("/:fileId", h.UpdateFile)
		fileGroup.DELETE("/:fileId", h.DeleteFile)
	}

	router.POST("/compose", h.Compose)
	router.GET("/ws/preview", h.PreviewSocket)
}
