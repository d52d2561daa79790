package engineapi

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes configura las rutas del motor
func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")

	workflows := api.Group("/workflows")
	workflows.Post("/", h.CreateWorkflow)
	workflows.Get("/", h.ListWorkflows)
	workflows.Get("/:workflowId", h.GetWorkflow)
	workflows.Put("/:workflowId", h.UpdateWorkflow)
	workflows.Delete("/:workflowId", h.DeleteWorkflow)

	sessions := api.Group("/sessions")
	sessions.Post("/", h.StartSession)
	sessions.Get("/", h.ListSessions)
	sessions.Get("/:sessionId", h.GetSession)
	sessions.Get("/:sessionId/messages", h.GetSessionMessages)
	sessions.Post("/:sessionId/resume", h.ResumeSession)
}
