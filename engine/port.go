package engine

import (
	"context"
	"time"

	"github.com/Abraxas-365/chatflow/pkg/kernel"
)

// ============================================================================
// Repository Interfaces
// ============================================================================

// WorkflowRepository persistencia de workflows
type WorkflowRepository interface {
	Save(ctx context.Context, wf Workflow) error
	FindByID(ctx context.Context, id kernel.WorkflowID) (*Workflow, error)
	FindByTenant(ctx context.Context, tenantID kernel.TenantID) ([]*Workflow, error)
	Delete(ctx context.Context, id kernel.WorkflowID, tenantID kernel.TenantID) error

	// List con paginación
	List(ctx context.Context, req WorkflowListRequest) (WorkflowListResponse, error)
}

// SessionRepository persistencia de sesiones. Save debe comportarse como
// upsert; el servicio garantiza un solo escritor por sesión a la vez.
type SessionRepository interface {
	Save(ctx context.Context, session Session) error
	FindByID(ctx context.Context, id kernel.SessionID) (*Session, error)
	FindActiveByUser(ctx context.Context, tenantID kernel.TenantID, userID kernel.UserID) (*Session, error)

	// Búsquedas para el sweeper
	FindIdleSince(ctx context.Context, cutoff time.Time) ([]*Session, error)

	// List con paginación
	List(ctx context.Context, req SessionListRequest) (SessionListResponse, error)
}

// MessageRepository registro de auditoría de mensajes
type MessageRepository interface {
	Save(ctx context.Context, rec MessageRecord) error
	FindBySession(ctx context.Context, sessionID kernel.SessionID) ([]*MessageRecord, error)
}

// ============================================================================
// Collaborator Interfaces
// ============================================================================

// MessagingGateway canal saliente hacia el usuario final. Retorna el message
// id del proveedor para auditoría y supresión de duplicados.
type MessagingGateway interface {
	SendText(ctx context.Context, to kernel.UserID, body string) (string, error)
	SendButtons(ctx context.Context, to kernel.UserID, body string, choices []Choice) (string, error)
}

// APICall llamada externa resuelta desde un nodo api
type APICall struct {
	Endpoint string
	Method   string
	Params   map[string]string

	TenantID  kernel.TenantID
	SessionID kernel.SessionID
}

// APIResult resultado normalizado de una llamada externa
type APIResult struct {
	Success bool
	Data    map[string]any
}

// APIClient colaborador de verificaciones y llamadas HTTP genéricas. Las
// operaciones con nombre (p.ej. verify_pan) se resuelven contra el proveedor
// de verificación; cualquier otro endpoint se trata como URL autenticada.
type APIClient interface {
	Do(ctx context.Context, call APICall) (*APIResult, error)
}

// TokenMinter emite tokens de servicio para autorizar llamadas salientes
// hechas en nombre de la sesión
type TokenMinter interface {
	MintServiceToken(tenantID kernel.TenantID, sessionID kernel.SessionID) (string, error)
}

// ============================================================================
// Safety Net Interfaces
// ============================================================================

// LoopGuard acota cuántas veces un mismo nodo puede re-entrarse por sesión
// dentro de una ventana. Reset distingue la revisita esperada (tras capturar
// input) del ciclo descontrolado.
type LoopGuard interface {
	Admit(ctx context.Context, sessionID kernel.SessionID, nodeID string) bool
	Reset(ctx context.Context, sessionID kernel.SessionID, nodeID string)
}

// DuplicateFilter reconoce message ids ya procesados dentro de la ventana de
// retención, para que la entrega at-least-once sea idempotente
type DuplicateFilter interface {
	Seen(ctx context.Context, sessionID kernel.SessionID, messageID string) bool
}

// ============================================================================
// Interpreter Interface
// ============================================================================

// InputKind tipo de respuesta entrante
type InputKind string

const (
	InputKindText        InputKind = "text"
	InputKindInteractive InputKind = "interactive"
	InputKindMedia       InputKind = "media"
)

// Input respuesta entrante normalizada por el canal. Para media, Value lleva
// el caption y MediaID/MimeType la referencia al archivo en el proveedor.
type Input struct {
	Value             string
	ExternalMessageID string
	Kind              InputKind
	MediaID           string
	MimeType          string
}

// Interpreter ejecuta el grafo de nodos sobre una sesión
type Interpreter interface {
	// Execute camina el workflow desde nodeID hasta pausar o terminar.
	// Retorna false cuando la caminata se detiene por un fallo.
	Execute(ctx context.Context, session *Session, nodeID string) bool

	// Resume liga una respuesta entrante al nodo que esperaba input y
	// retoma la ejecución
	Resume(ctx context.Context, session *Session, in Input) error
}
