// Package enginesrv owns the authoring side of the engine: workflow CRUD
// plus read access to sessions and their message audit trail. Execution
// lives in flowsrv.
package enginesrv

import (
	"context"
	"log"
	"time"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/pkg/kernel"
	"github.com/Abraxas-365/craftable/errx"
	"github.com/google/uuid"
)

type WorkflowService struct {
	workflows engine.WorkflowRepository
	sessions  engine.SessionRepository
	messages  engine.MessageRepository
}

func NewWorkflowService(
	workflows engine.WorkflowRepository,
	sessions engine.SessionRepository,
	messages engine.MessageRepository,
) *WorkflowService {
	return &WorkflowService{
		workflows: workflows,
		sessions:  sessions,
		messages:  messages,
	}
}

// ============================================================================
// Workflow CRUD
// ============================================================================

// CreateWorkflow guarda una definición nueva. Las referencias de ruteo rotas
// no bloquean el guardado; se reportan para que el autor las corrija.
func (s *WorkflowService) CreateWorkflow(
	ctx context.Context,
	req engine.CreateWorkflowRequest,
) (*engine.Workflow, *engine.WorkflowValidationReport, error) {
	now := time.Now()
	workflow := engine.Workflow{
		ID:          kernel.NewWorkflowID(uuid.New().String()),
		TenantID:    req.TenantID,
		Name:        req.Name,
		Description: req.Description,
		StartNodeID: req.StartNodeID,
		Nodes:       req.Nodes,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if !workflow.IsValid() {
		return nil, nil, engine.ErrInvalidWorkflowConfig().
			WithDetail("reason", "name, tenant and at least one node are required")
	}

	report := buildValidationReport(&workflow)

	if err := s.workflows.Save(ctx, workflow); err != nil {
		return nil, nil, errx.Wrap(err, "failed to save workflow", errx.TypeInternal).
			WithDetail("workflow_name", req.Name)
	}

	log.Printf("✅ Workflow %s created for tenant %s (%d nodes)", workflow.ID, workflow.TenantID, len(workflow.Nodes))
	return &workflow, report, nil
}

// GetWorkflow obtiene un workflow por ID validando el tenant
func (s *WorkflowService) GetWorkflow(
	ctx context.Context,
	id kernel.WorkflowID,
	tenantID kernel.TenantID,
) (*engine.Workflow, error) {
	workflow, err := s.workflows.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if workflow.TenantID != tenantID {
		return nil, engine.ErrWorkflowNotFound().
			WithDetail("workflow_id", id.String())
	}
	return workflow, nil
}

// ListWorkflows lista workflows con paginación
func (s *WorkflowService) ListWorkflows(
	ctx context.Context,
	req engine.WorkflowListRequest,
) (engine.WorkflowListResponse, error) {
	return s.workflows.List(ctx, req)
}

// UpdateWorkflow aplica cambios parciales sobre una definición existente
func (s *WorkflowService) UpdateWorkflow(
	ctx context.Context,
	id kernel.WorkflowID,
	tenantID kernel.TenantID,
	req engine.UpdateWorkflowRequest,
) (*engine.Workflow, *engine.WorkflowValidationReport, error) {
	workflow, err := s.GetWorkflow(ctx, id, tenantID)
	if err != nil {
		return nil, nil, err
	}

	if req.Name != nil {
		workflow.Name = *req.Name
	}
	if req.Description != nil {
		workflow.Description = *req.Description
	}
	if req.StartNodeID != nil {
		workflow.StartNodeID = *req.StartNodeID
	}
	if req.Nodes != nil {
		workflow.Nodes = *req.Nodes
	}
	if req.IsActive != nil {
		workflow.IsActive = *req.IsActive
	}
	workflow.UpdatedAt = time.Now()

	if !workflow.IsValid() {
		return nil, nil, engine.ErrInvalidWorkflowConfig().
			WithDetail("workflow_id", id.String())
	}

	report := buildValidationReport(workflow)

	if err := s.workflows.Save(ctx, *workflow); err != nil {
		return nil, nil, errx.Wrap(err, "failed to update workflow", errx.TypeInternal).
			WithDetail("workflow_id", id.String())
	}

	log.Printf("✅ Workflow %s updated", workflow.ID)
	return workflow, report, nil
}

// DeleteWorkflow elimina una definición
func (s *WorkflowService) DeleteWorkflow(
	ctx context.Context,
	id kernel.WorkflowID,
	tenantID kernel.TenantID,
) error {
	if _, err := s.GetWorkflow(ctx, id, tenantID); err != nil {
		return err
	}
	if err := s.workflows.Delete(ctx, id, tenantID); err != nil {
		return errx.Wrap(err, "failed to delete workflow", errx.TypeInternal).
			WithDetail("workflow_id", id.String())
	}
	log.Printf("🧹 Workflow %s deleted", id)
	return nil
}

// buildValidationReport retorna nil cuando la definición está sana
func buildValidationReport(w *engine.Workflow) *engine.WorkflowValidationReport {
	broken := w.ValidateRouting()

	seen := make(map[string]bool, len(w.Nodes))
	var duplicates []string
	for _, n := range w.Nodes {
		if seen[n.ID] {
			duplicates = append(duplicates, n.ID)
		}
		seen[n.ID] = true
	}

	missingStart := w.EntryNodeID() == "" || w.GetNodeByID(w.EntryNodeID()) == nil

	if len(broken) == 0 && len(duplicates) == 0 && !missingStart {
		return nil
	}

	log.Printf("⚠️ Workflow %s saved with authoring issues: %d broken routes, %d duplicate nodes", w.ID, len(broken), len(duplicates))
	return &engine.WorkflowValidationReport{
		WorkflowID:     w.ID,
		BrokenRoutes:   broken,
		MissingStart:   missingStart,
		DuplicateNodes: duplicates,
	}
}

// ============================================================================
// Session queries
// ============================================================================

// GetSession obtiene una sesión validando el tenant
func (s *WorkflowService) GetSession(
	ctx context.Context,
	id kernel.SessionID,
	tenantID kernel.TenantID,
) (*engine.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.TenantID != tenantID {
		return nil, engine.ErrSessionNotFound().
			WithDetail("session_id", id.String())
	}
	return session, nil
}

// ListSessions lista sesiones con paginación
func (s *WorkflowService) ListSessions(
	ctx context.Context,
	req engine.SessionListRequest,
) (engine.SessionListResponse, error) {
	return s.sessions.List(ctx, req)
}

// GetSessionMessages retorna la auditoría de mensajes de una sesión
func (s *WorkflowService) GetSessionMessages(
	ctx context.Context,
	id kernel.SessionID,
	tenantID kernel.TenantID,
) ([]*engine.MessageRecord, error) {
	if _, err := s.GetSession(ctx, id, tenantID); err != nil {
		return nil, err
	}
	return s.messages.FindBySession(ctx, id)
}
