package engine

import (
	"github.com/Abraxas-365/chatflow/pkg/kernel"
	"github.com/Abraxas-365/craftable/storex"
)

// ============================================================================
// Workflow DTOs
// ============================================================================

type CreateWorkflowRequest struct {
	TenantID    kernel.TenantID `json:"tenant_id" validate:"required"`
	Name        string          `json:"name" validate:"required,min=2"`
	Description string          `json:"description,omitempty"`
	StartNodeID string          `json:"start_node_id,omitempty"`
	Nodes       []Node          `json:"nodes" validate:"required,min=1"`
}

type UpdateWorkflowRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	StartNodeID *string `json:"start_node_id,omitempty"`
	Nodes       *[]Node `json:"nodes,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type WorkflowListRequest struct {
	storex.PaginationOptions
	TenantID kernel.TenantID `json:"tenant_id" validate:"required"`
	IsActive *bool           `json:"is_active,omitempty"`
	Search   string          `json:"search,omitempty"`
}

func (wlr WorkflowListRequest) GetOffset() int {
	return (wlr.Page - 1) * wlr.PageSize
}

type WorkflowListResponse = storex.Paginated[Workflow]

// WorkflowValidationReport referencias de ruteo rotas detectadas al guardar
type WorkflowValidationReport struct {
	WorkflowID     kernel.WorkflowID `json:"workflow_id"`
	BrokenRoutes   []string          `json:"broken_routes,omitempty"`
	MissingStart   bool              `json:"missing_start,omitempty"`
	DuplicateNodes []string          `json:"duplicate_nodes,omitempty"`
}

// ============================================================================
// Session DTOs
// ============================================================================

type CreateSessionRequest struct {
	TenantID       kernel.TenantID   `json:"tenant_id" validate:"required"`
	UserID         kernel.UserID     `json:"user_id" validate:"required"`
	WorkflowID     kernel.WorkflowID `json:"workflow_id" validate:"required"`
	InitialContext map[string]any    `json:"initial_context,omitempty"`
}

type SessionListRequest struct {
	storex.PaginationOptions
	TenantID kernel.TenantID `json:"tenant_id" validate:"required"`
	Status   *SessionStatus  `json:"status,omitempty"`
	UserID   kernel.UserID   `json:"user_id,omitempty"`
}

func (slr SessionListRequest) GetOffset() int {
	return (slr.Page - 1) * slr.PageSize
}

type SessionListResponse = storex.Paginated[Session]

// ResumeRequest respuesta entrante que retoma una sesión pausada
type ResumeRequest struct {
	SessionID         kernel.SessionID `json:"session_id" validate:"required"`
	InputValue        string           `json:"input_value"`
	ExternalMessageID string           `json:"external_message_id,omitempty"`
	Kind              InputKind        `json:"kind,omitempty"`
	MediaID           string           `json:"media_id,omitempty"`
	MimeType          string           `json:"mime_type,omitempty"`
}
