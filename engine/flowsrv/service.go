// Package flowsrv exposes the engine's public operations: create-and-start,
// execute and resume. It owns the single-writer discipline: a keyed mutex
// serializes all steps of one session, so the interpreter never runs two
// steps of the same conversation concurrently.
package flowsrv

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/pkg/kernel"
	"github.com/Abraxas-365/craftable/errx"
	"github.com/google/uuid"
)

type FlowService struct {
	workflows   engine.WorkflowRepository
	sessions    engine.SessionRepository
	interpreter engine.Interpreter

	mu    sync.Mutex
	locks map[kernel.SessionID]*sync.Mutex
}

func NewFlowService(
	workflows engine.WorkflowRepository,
	sessions engine.SessionRepository,
	interpreter engine.Interpreter,
) *FlowService {
	return &FlowService{
		workflows:   workflows,
		sessions:    sessions,
		interpreter: interpreter,
		locks:       make(map[kernel.SessionID]*sync.Mutex),
	}
}

// sessionLock retorna el mutex de la sesión, creándolo si no existe. Los
// locks viven lo que viva el proceso; el dedup filter cubre el caso de dos
// instancias recibiendo el mismo trigger.
func (s *FlowService) sessionLock(id kernel.SessionID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// ============================================================================
// CreateAndStart
// ============================================================================

// CreateAndStart crea una sesión nueva ligada al nodo inicial del workflow y
// ejecuta la primera caminata
func (s *FlowService) CreateAndStart(
	ctx context.Context,
	req engine.CreateSessionRequest,
) (*engine.Session, error) {
	workflow, err := s.workflows.FindByID(ctx, req.WorkflowID)
	if err != nil {
		return nil, engine.ErrWorkflowNotFound().
			WithDetail("workflow_id", req.WorkflowID.String())
	}
	if !workflow.IsActive {
		return nil, engine.ErrWorkflowInactive().
			WithDetail("workflow_id", workflow.ID.String())
	}

	startNodeID := workflow.EntryNodeID()
	if startNodeID == "" {
		return nil, engine.ErrInvalidWorkflowConfig().
			WithDetail("workflow_id", workflow.ID.String()).
			WithDetail("reason", "workflow has no start node")
	}

	now := time.Now()
	session := &engine.Session{
		ID:            kernel.NewSessionID(uuid.New().String()),
		TenantID:      req.TenantID,
		UserID:        req.UserID,
		WorkflowID:    workflow.ID,
		CurrentNodeID: startNodeID,
		Status:        engine.SessionStatusActive,
		Data:          make(map[string]any),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for key, value := range req.InitialContext {
		session.Data[key] = value
	}

	if err := s.sessions.Save(ctx, *session); err != nil {
		return nil, errx.Wrap(err, "failed to create session", errx.TypeInternal).
			WithDetail("workflow_id", workflow.ID.String()).
			WithDetail("user_id", req.UserID.String())
	}

	log.Printf("🚀 Session %s created for user %s on workflow %s", session.ID, req.UserID, workflow.ID)

	lock := s.sessionLock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	s.interpreter.Execute(ctx, session, startNodeID)
	return session, nil
}

// ============================================================================
// Execute / Resume
// ============================================================================

// Execute corre la caminata de una sesión existente desde nodeID
func (s *FlowService) Execute(ctx context.Context, sessionID kernel.SessionID, nodeID string) (bool, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return false, engine.ErrSessionNotFound().
			WithDetail("session_id", sessionID.String())
	}

	lock := s.sessionLock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	return s.interpreter.Execute(ctx, session, nodeID), nil
}

// Resume entrega una respuesta entrante a la sesión
func (s *FlowService) Resume(ctx context.Context, req engine.ResumeRequest) error {
	session, err := s.sessions.FindByID(ctx, req.SessionID)
	if err != nil {
		return engine.ErrSessionNotFound().
			WithDetail("session_id", req.SessionID.String())
	}

	kind := req.Kind
	if kind == "" {
		kind = engine.InputKindText
	}

	lock := s.sessionLock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	return s.interpreter.Resume(ctx, session, engine.Input{
		Value:             req.InputValue,
		ExternalMessageID: req.ExternalMessageID,
		Kind:              kind,
		MediaID:           req.MediaID,
		MimeType:          req.MimeType,
	})
}

// ============================================================================
// Inbound routing
// ============================================================================

// HandleInbound rutea un mensaje entrante: si el usuario tiene una sesión
// activa la retoma; si no, y hay un workflow por defecto configurado, crea
// una sesión nueva
func (s *FlowService) HandleInbound(
	ctx context.Context,
	tenantID kernel.TenantID,
	userID kernel.UserID,
	defaultWorkflowID kernel.WorkflowID,
	in engine.Input,
) error {
	session, err := s.sessions.FindActiveByUser(ctx, tenantID, userID)
	if err == nil && session != nil {
		lock := s.sessionLock(session.ID)
		lock.Lock()
		defer lock.Unlock()
		return s.interpreter.Resume(ctx, session, in)
	}

	if !errx.IsType(err, errx.TypeNotFound) && err != nil {
		return errx.Wrap(err, "failed to look up active session", errx.TypeInternal).
			WithDetail("user_id", userID.String())
	}

	if defaultWorkflowID.IsEmpty() {
		log.Printf("🤷 No active session and no default workflow for user %s, dropping inbound", userID)
		return nil
	}

	_, err = s.CreateAndStart(ctx, engine.CreateSessionRequest{
		TenantID:   tenantID,
		UserID:     userID,
		WorkflowID: defaultWorkflowID,
	})
	return err
}
