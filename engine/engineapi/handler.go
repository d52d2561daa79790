// Package engineapi expone el motor por HTTP: authoring de workflows,
// arranque de sesiones y consultas de estado.
package engineapi

import (
	"log"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/engine/enginesrv"
	"github.com/Abraxas-365/chatflow/engine/flowsrv"
	"github.com/Abraxas-365/chatflow/pkg/kernel"
	"github.com/Abraxas-365/craftable/storex"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	workflows *enginesrv.WorkflowService
	flows     *flowsrv.FlowService
}

func NewHandler(workflows *enginesrv.WorkflowService, flows *flowsrv.FlowService) *Handler {
	return &Handler{
		workflows: workflows,
		flows:     flows,
	}
}

// ============================================================================
// Workflows
// ============================================================================

// CreateWorkflow crea una definición nueva
// POST /api/workflows
func (h *Handler) CreateWorkflow(c *fiber.Ctx) error {
	var req engine.CreateWorkflowRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	workflow, report, err := h.workflows.CreateWorkflow(c.Context(), req)
	if err != nil {
		return err
	}

	resp := fiber.Map{"workflow": workflow}
	if report != nil {
		resp["validation"] = report
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetWorkflow obtiene un workflow
// GET /api/workflows/:workflowId?tenant_id=...
func (h *Handler) GetWorkflow(c *fiber.Ctx) error {
	id := kernel.WorkflowID(c.Params("workflowId"))
	tenantID := kernel.TenantID(c.Query("tenant_id"))

	workflow, err := h.workflows.GetWorkflow(c.Context(), id, tenantID)
	if err != nil {
		return err
	}
	return c.JSON(workflow)
}

// ListWorkflows lista workflows paginados
// GET /api/workflows?tenant_id=...&page=1&page_size=20
func (h *Handler) ListWorkflows(c *fiber.Ctx) error {
	req := engine.WorkflowListRequest{
		PaginationOptions: paginationFromQuery(c),
		TenantID:          kernel.TenantID(c.Query("tenant_id")),
		Search:            c.Query("search"),
	}
	if raw := c.Query("is_active"); raw != "" {
		active := raw == "true"
		req.IsActive = &active
	}

	result, err := h.workflows.ListWorkflows(c.Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// UpdateWorkflow actualiza parcialmente una definición
// PUT /api/workflows/:workflowId?tenant_id=...
func (h *Handler) UpdateWorkflow(c *fiber.Ctx) error {
	id := kernel.WorkflowID(c.Params("workflowId"))
	tenantID := kernel.TenantID(c.Query("tenant_id"))

	var req engine.UpdateWorkflowRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	workflow, report, err := h.workflows.UpdateWorkflow(c.Context(), id, tenantID, req)
	if err != nil {
		return err
	}

	resp := fiber.Map{"workflow": workflow}
	if report != nil {
		resp["validation"] = report
	}
	return c.JSON(resp)
}

// DeleteWorkflow elimina una definición
// DELETE /api/workflows/:workflowId?tenant_id=...
func (h *Handler) DeleteWorkflow(c *fiber.Ctx) error {
	id := kernel.WorkflowID(c.Params("workflowId"))
	tenantID := kernel.TenantID(c.Query("tenant_id"))

	if err := h.workflows.DeleteWorkflow(c.Context(), id, tenantID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ============================================================================
// Sessions
// ============================================================================

// StartSession crea una sesión y ejecuta la primera caminata
// POST /api/sessions
func (h *Handler) StartSession(c *fiber.Ctx) error {
	var req engine.CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := h.flows.CreateAndStart(c.Context(), req)
	if err != nil {
		return err
	}

	log.Printf("📨 Session %s started via API for user %s", session.ID, req.UserID)
	return c.Status(fiber.StatusCreated).JSON(session)
}

// GetSession obtiene una sesión
// GET /api/sessions/:sessionId?tenant_id=...
func (h *Handler) GetSession(c *fiber.Ctx) error {
	id := kernel.SessionID(c.Params("sessionId"))
	tenantID := kernel.TenantID(c.Query("tenant_id"))

	session, err := h.workflows.GetSession(c.Context(), id, tenantID)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

// ListSessions lista sesiones paginadas
// GET /api/sessions?tenant_id=...&status=active&user_id=...
func (h *Handler) ListSessions(c *fiber.Ctx) error {
	req := engine.SessionListRequest{
		PaginationOptions: paginationFromQuery(c),
		TenantID:          kernel.TenantID(c.Query("tenant_id")),
		UserID:            kernel.UserID(c.Query("user_id")),
	}
	if raw := c.Query("status"); raw != "" {
		status := engine.SessionStatus(raw)
		req.Status = &status
	}

	result, err := h.workflows.ListSessions(c.Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// GetSessionMessages retorna la auditoría de mensajes de una sesión
// GET /api/sessions/:sessionId/messages?tenant_id=...
func (h *Handler) GetSessionMessages(c *fiber.Ctx) error {
	id := kernel.SessionID(c.Params("sessionId"))
	tenantID := kernel.TenantID(c.Query("tenant_id"))

	records, err := h.workflows.GetSessionMessages(c.Context(), id, tenantID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": records})
}

// ResumeSession inyecta una respuesta entrante manualmente. Existe para
// desarrollo y pruebas; en producción las respuesta llegan por webhook.
// POST /api/sessions/:sessionId/resume
func (h *Handler) ResumeSession(c *fiber.Ctx) error {
	var req engine.ResumeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.SessionID = kernel.SessionID(c.Params("sessionId"))
	if req.Kind == "" {
		req.Kind = engine.InputKindText
	}

	if err := h.flows.Resume(c.Context(), req); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "resumed"})
}

func paginationFromQuery(c *fiber.Ctx) storex.PaginationOptions {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 20)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return storex.PaginationOptions{Page: page, PageSize: pageSize}
}
