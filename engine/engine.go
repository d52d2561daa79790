package engine

import (
	"time"

	"github.com/Abraxas-365/chatflow/pkg/kernel"
)

// ============================================================================
// Workflow Entity
// ============================================================================

// Workflow representa un flujo conversacional autorado por el tenant
type Workflow struct {
	ID          kernel.WorkflowID `db:"id" json:"id"`
	TenantID    kernel.TenantID   `db:"tenant_id" json:"tenant_id"`
	Name        string            `db:"name" json:"name"`
	Description string            `db:"description" json:"description"`
	StartNodeID string            `db:"start_node_id" json:"start_node_id"`
	Nodes       []Node            `db:"nodes" json:"nodes"`
	IsActive    bool              `db:"is_active" json:"is_active"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// NodeType tipo de nodo
type NodeType string

const (
	NodeTypeStart       NodeType = "start"
	NodeTypeEnd         NodeType = "end"
	NodeTypeMessage     NodeType = "message"
	NodeTypeInput       NodeType = "input"
	NodeTypeInteractive NodeType = "interactive"
	NodeTypeCondition   NodeType = "condition"
	NodeTypeAPI         NodeType = "api"
)

// Node paso de un workflow. Los tags JSON siguen el formato de autoría
// (camelCase) que llega del editor de flujos.
type Node struct {
	ID           string   `json:"id"`
	Type         NodeType `json:"type"`
	Content      string   `json:"content,omitempty"`
	VariableName string   `json:"variableName,omitempty"`
	NextNodeID   string   `json:"nextNodeId,omitempty"`
	Buttons      []Choice `json:"buttons,omitempty"`
	Options      []Choice `json:"options,omitempty"`

	// condition
	Condition        string `json:"condition,omitempty"`
	TrueNodeID       string `json:"trueNodeId,omitempty"`
	FalseNodeID      string `json:"falseNodeId,omitempty"`
	MaxRetries       int    `json:"maxRetries,omitempty"`
	MaxRetriesNodeID string `json:"maxRetriesNodeId,omitempty"`

	// api
	APIEndpoint string            `json:"apiEndpoint,omitempty"`
	APIMethod   string            `json:"apiMethod,omitempty"`
	APIParams   map[string]string `json:"apiParams,omitempty"`
	ErrorNodeID string            `json:"errorNodeId,omitempty"`
}

// Choice opción seleccionable de un nodo interactivo
type Choice struct {
	Value string `json:"value,omitempty"`
	Text  string `json:"text,omitempty"`
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

// DisplayText texto a mostrar para la opción
func (c Choice) DisplayText() string {
	if c.Text != "" {
		return c.Text
	}
	return c.Title
}

// ReplyValue valor que se captura cuando el usuario elige la opción
func (c Choice) ReplyValue() string {
	if c.Value != "" {
		return c.Value
	}
	return c.ID
}

// ============================================================================
// Session Entity
// ============================================================================

type SessionStatus string

const (
	SessionStatusActive      SessionStatus = "active"
	SessionStatusPaused      SessionStatus = "paused"
	SessionStatusCompleted   SessionStatus = "completed"
	SessionStatusAbandoned   SessionStatus = "abandoned"
	SessionStatusTransferred SessionStatus = "transferred"
)

// Session estado de ejecución de una conversación: un usuario final
// recorriendo un workflow
type Session struct {
	ID                   kernel.SessionID  `json:"id"`
	TenantID             kernel.TenantID   `json:"tenant_id"`
	UserID               kernel.UserID     `json:"user_id"`
	WorkflowID           kernel.WorkflowID `json:"workflow_id"`
	CurrentNodeID        string            `json:"current_node_id"`
	PreviousNodeID       string            `json:"previous_node_id"`
	Status               SessionStatus     `json:"status"`
	Data                 map[string]any    `json:"data"`
	PendingVariableName  string            `json:"pending_variable_name"`
	NextNodeIDAfterInput string            `json:"next_node_id_after_input"`
	StepsCompleted       []string          `json:"steps_completed"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty"`
}

// ============================================================================
// Message Audit Entity
// ============================================================================

type MessageDirection string

const (
	MessageDirectionInbound  MessageDirection = "inbound"
	MessageDirectionOutbound MessageDirection = "outbound"
)

// MessageRecord registro de auditoría de un mensaje enviado o recibido
// dentro de una sesión
type MessageRecord struct {
	ID         kernel.MessageID `db:"id" json:"id"`
	SessionID  kernel.SessionID `db:"session_id" json:"session_id"`
	TenantID   kernel.TenantID  `db:"tenant_id" json:"tenant_id"`
	Direction  MessageDirection `db:"direction" json:"direction"`
	NodeID     string           `db:"node_id" json:"node_id"`
	Body       string           `db:"body" json:"body"`
	ProviderID string           `db:"provider_id" json:"provider_id"`
	MediaID    string           `db:"media_id" json:"media_id,omitempty"`
	MimeType   string           `db:"mime_type" json:"mime_type,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

// ============================================================================
// Domain Methods - Workflow
// ============================================================================

// IsValid verifica si el workflow es válido
func (w *Workflow) IsValid() bool {
	return w.Name != "" && len(w.Nodes) > 0 && !w.TenantID.IsEmpty()
}

// GetNodeByID obtiene un nodo por ID
func (w *Workflow) GetNodeByID(nodeID string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].ID == nodeID {
			return &w.Nodes[i]
		}
	}
	return nil
}

// EntryNodeID nodo inicial del workflow
func (w *Workflow) EntryNodeID() string {
	if w.StartNodeID != "" {
		return w.StartNodeID
	}
	if len(w.Nodes) > 0 {
		return w.Nodes[0].ID
	}
	return ""
}

// ValidateRouting reporta toda referencia de ruteo que apunte a un nodo
// inexistente. El motor tolera definiciones rotas; esto existe para avisar
// al autor en el momento de guardar.
func (w *Workflow) ValidateRouting() []string {
	ids := make(map[string]bool, len(w.Nodes))
	for _, n := range w.Nodes {
		ids[n.ID] = true
	}

	var broken []string
	check := func(nodeID, field, target string) {
		if target != "" && !ids[target] {
			broken = append(broken, nodeID+"."+field+" -> "+target)
		}
	}

	if w.StartNodeID != "" && !ids[w.StartNodeID] {
		broken = append(broken, "startNodeId -> "+w.StartNodeID)
	}
	for _, n := range w.Nodes {
		check(n.ID, "nextNodeId", n.NextNodeID)
		check(n.ID, "trueNodeId", n.TrueNodeID)
		check(n.ID, "falseNodeId", n.FalseNodeID)
		check(n.ID, "maxRetriesNodeId", n.MaxRetriesNodeID)
		check(n.ID, "errorNodeId", n.ErrorNodeID)
	}
	return broken
}

// ResolvableChoices retorna las opciones del nodo interactivo (buttons tiene
// prioridad sobre options) descartando entradas sin texto ni valor
func (n *Node) ResolvableChoices() []Choice {
	raw := n.Buttons
	if len(raw) == 0 {
		raw = n.Options
	}

	choices := make([]Choice, 0, len(raw))
	for _, c := range raw {
		if c.DisplayText() == "" && c.ReplyValue() == "" {
			continue
		}
		choices = append(choices, c)
	}
	return choices
}

// AwaitsInput indica si el nodo pausa la ejecución esperando al usuario
func (n *Node) AwaitsInput() bool {
	return n.Type == NodeTypeInput || n.Type == NodeTypeInteractive
}

// ============================================================================
// Domain Methods - Session
// ============================================================================

// IsValid verifica si la sesión es válida
func (s *Session) IsValid() bool {
	return !s.ID.IsEmpty() && !s.UserID.IsEmpty() && !s.WorkflowID.IsEmpty()
}

// IsTerminal indica si la sesión ya no puede ser re-entrada por el intérprete
func (s *Session) IsTerminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusAbandoned
}

// SetData escribe una variable en el heap de la sesión
func (s *Session) SetData(key string, value any) {
	if s.Data == nil {
		s.Data = make(map[string]any)
	}
	s.Data[key] = value
	s.UpdatedAt = time.Now()
}

// GetData obtiene una variable del heap de la sesión
func (s *Session) GetData(key string) (any, bool) {
	if s.Data == nil {
		return nil, false
	}
	val, ok := s.Data[key]
	return val, ok
}

// MoveTo registra el avance al nodo dado; se persiste antes de ejecutar el
// nodo para que un crash deje la sesión reanudable ahí y no rebobinada
func (s *Session) MoveTo(nodeID string) {
	s.PreviousNodeID = s.CurrentNodeID
	s.CurrentNodeID = nodeID
	s.StepsCompleted = append(s.StepsCompleted, nodeID)
	s.UpdatedAt = time.Now()
}

// AwaitInput deja la sesión en pausa esperando la respuesta del usuario
func (s *Session) AwaitInput(variableName, nextNodeID string) {
	s.PendingVariableName = variableName
	s.NextNodeIDAfterInput = nextNodeID
	s.Status = SessionStatusPaused
	s.UpdatedAt = time.Now()
}

// ClearPendingInput limpia el estado de espera tras capturar la respuesta
func (s *Session) ClearPendingInput() {
	s.PendingVariableName = ""
	s.NextNodeIDAfterInput = ""
	s.Status = SessionStatusActive
	s.UpdatedAt = time.Now()
}

// Complete marca la sesión como completada
func (s *Session) Complete() {
	now := time.Now()
	s.Status = SessionStatusCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now
}

// Abandon marca la sesión como abandonada
func (s *Session) Abandon() {
	now := time.Now()
	s.Status = SessionStatusAbandoned
	s.CompletedAt = &now
	s.UpdatedAt = now
}
