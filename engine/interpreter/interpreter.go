// Package interpreter is the workflow state machine core. It walks a
// session through its workflow graph one node at a time, pausing at nodes
// that wait for user input and resuming when a reply arrives.
package interpreter

import (
	"context"
	"log"
	"time"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/pkg/kernel"
	"github.com/google/uuid"
)

// Config tuning del intérprete
type Config struct {
	// StepDelay pausa entre pasos consecutivos, como backpressure hacia los
	// rate limits del canal de mensajería
	StepDelay time.Duration
	// CallTimeout límite por llamada externa (mensajería, verificación, HTTP)
	CallTimeout time.Duration
}

// NodeInterpreter implementación del Interpreter sobre repos y gateways
type NodeInterpreter struct {
	workflows engine.WorkflowRepository
	sessions  engine.SessionRepository
	messages  engine.MessageRepository
	gateway   engine.MessagingGateway
	api       engine.APIClient
	loopGuard engine.LoopGuard
	dedup     engine.DuplicateFilter
	cfg       Config
}

var _ engine.Interpreter = (*NodeInterpreter)(nil)

func NewNodeInterpreter(
	workflows engine.WorkflowRepository,
	sessions engine.SessionRepository,
	messages engine.MessageRepository,
	gateway engine.MessagingGateway,
	api engine.APIClient,
	loopGuard engine.LoopGuard,
	dedup engine.DuplicateFilter,
	cfg Config,
) *NodeInterpreter {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &NodeInterpreter{
		workflows: workflows,
		sessions:  sessions,
		messages:  messages,
		gateway:   gateway,
		api:       api,
		loopGuard: loopGuard,
		dedup:     dedup,
		cfg:       cfg,
	}
}

// ============================================================================
// Execute - Walk the graph from nodeID
// ============================================================================

// Execute camina el workflow desde nodeID como un work-loop explícito: cada
// iteración ejecuta un nodo y obtiene el siguiente, sin recursión, para que
// cadenas largas de nodos auto-avanzables no crezcan el call stack. Las
// salidas del loop son las pausas de input, el nodo end y los fallos.
func (i *NodeInterpreter) Execute(ctx context.Context, session *engine.Session, nodeID string) bool {
	if session.IsTerminal() || session.Status == engine.SessionStatusTransferred {
		// una sesión transferida la atiende un humano; el motor no la camina
		log.Printf("⛔ Session %s is %s, refusing to re-enter", session.ID, session.Status)
		return false
	}

	workflow, err := i.workflows.FindByID(ctx, session.WorkflowID)
	if err != nil {
		log.Printf("❌ Workflow %s not found for session %s: %v", session.WorkflowID, session.ID, err)
		return false
	}

	next := nodeID
	first := true

	for next != "" {
		if !first && !i.stepDelay(ctx) {
			return false
		}
		first = false

		if !i.loopGuard.Admit(ctx, session.ID, next) {
			log.Printf("🔁 Loop guard tripped for session %s node %s, halting walk", session.ID, next)
			return false
		}

		node := workflow.GetNodeByID(next)
		if node == nil {
			log.Printf("❌ Node %s not found in workflow %s (session %s)", next, workflow.ID, session.ID)
			return false
		}

		log.Printf("⚡ Executing node %s (type: %s) for session %s", node.ID, node.Type, session.ID)

		// Persistir la posición ANTES de actuar: un crash a mitad de paso
		// deja la sesión reanudable en este nodo, no rebobinada
		session.MoveTo(node.ID)
		if err := i.sessions.Save(ctx, *session); err != nil {
			log.Printf("❌ Failed to persist session %s at node %s: %v", session.ID, node.ID, err)
			return false
		}

		plan := decide(node, session.Data)

		// Efectos: mensajes salientes
		if !i.performSends(ctx, session, node, plan) {
			return false
		}

		// Efectos: llamada externa
		if plan.apiCall != nil {
			routed, ok := i.performAPICall(ctx, session, node, plan)
			if !ok {
				return false
			}
			if routed != "" {
				next = routed
				continue
			}
		}

		for key, value := range plan.patch {
			session.SetData(key, value)
		}

		if plan.halt {
			log.Printf("🛑 Walk halted at node %s (session %s): %s", node.ID, session.ID, plan.reason)
			if err := i.sessions.Save(ctx, *session); err != nil {
				log.Printf("❌ Failed to persist halted session %s: %v", session.ID, err)
			}
			return false
		}

		if plan.complete {
			session.Complete()
			if err := i.sessions.Save(ctx, *session); err != nil {
				log.Printf("❌ Failed to persist completed session %s: %v", session.ID, err)
				return false
			}
			log.Printf("🏁 Session %s completed at node %s", session.ID, node.ID)
			return true
		}

		if plan.pause {
			session.AwaitInput(plan.awaitVar, plan.next)
			if err := i.sessions.Save(ctx, *session); err != nil {
				log.Printf("❌ Failed to persist paused session %s: %v", session.ID, err)
				return false
			}
			log.Printf("⏸️  Session %s paused at node %s awaiting %q", session.ID, node.ID, plan.awaitVar)
			return true
		}

		if err := i.sessions.Save(ctx, *session); err != nil {
			log.Printf("❌ Failed to persist session %s after node %s: %v", session.ID, node.ID, err)
			return false
		}

		if plan.next == "" {
			// hoja sin successor: error de autoría, la caminata termina aquí
			log.Printf("⚠️  Node %s has no nextNodeId, walk ends (session %s)", node.ID, session.ID)
			return true
		}

		next = plan.next
	}

	return true
}

// ============================================================================
// Effects
// ============================================================================

func (i *NodeInterpreter) performSends(
	ctx context.Context,
	session *engine.Session,
	node *engine.Node,
	plan *stepPlan,
) bool {
	for _, send := range plan.sends {
		sendCtx, cancel := context.WithTimeout(ctx, i.cfg.CallTimeout)

		var providerID string
		var err error
		if len(send.choices) > 0 {
			providerID, err = i.gateway.SendButtons(sendCtx, session.UserID, send.body, send.choices)
		} else {
			providerID, err = i.gateway.SendText(sendCtx, session.UserID, send.body)
		}
		cancel()

		if err != nil {
			log.Printf("❌ Send failed at node %s (session %s): %v", node.ID, session.ID, err)
			return false
		}

		i.recordMessage(ctx, session, engine.MessageRecord{
			Direction:  engine.MessageDirectionOutbound,
			NodeID:     node.ID,
			Body:       send.body,
			ProviderID: providerID,
		})
	}
	return true
}

// performAPICall ejecuta la llamada externa del nodo api. Retorna el nodo de
// ruteo alternativo cuando la llamada falla pero el nodo declara errorNodeId;
// ok=false significa que la caminata debe detenerse.
func (i *NodeInterpreter) performAPICall(
	ctx context.Context,
	session *engine.Session,
	node *engine.Node,
	plan *stepPlan,
) (routed string, ok bool) {
	call := *plan.apiCall
	call.TenantID = session.TenantID
	call.SessionID = session.ID

	callCtx, cancel := context.WithTimeout(ctx, i.cfg.CallTimeout)
	result, err := i.api.Do(callCtx, call)
	cancel()

	if err != nil || !result.Success {
		errMsg := "api call failed"
		if err != nil {
			errMsg = err.Error()
		}
		log.Printf("❌ API call failed at node %s (session %s): %s", node.ID, session.ID, errMsg)

		session.SetData("apiError", errMsg)
		session.SetData("apiErrorNodeId", node.ID)
		if saveErr := i.sessions.Save(ctx, *session); saveErr != nil {
			log.Printf("❌ Failed to persist session %s after api error: %v", session.ID, saveErr)
			return "", false
		}

		if plan.errNext != "" {
			return plan.errNext, true
		}
		// sin errorNodeId no se continúa en silencio: la sesión queda en el
		// nodo fallido, segura de reintentar desde afuera
		return "", false
	}

	for key, value := range result.Data {
		session.SetData(key, value)
	}
	return "", true
}

func (i *NodeInterpreter) recordMessage(
	ctx context.Context,
	session *engine.Session,
	rec engine.MessageRecord,
) {
	if i.messages == nil {
		return
	}
	rec.ID = kernel.NewMessageID(uuid.New().String())
	rec.SessionID = session.ID
	rec.TenantID = session.TenantID
	rec.CreatedAt = time.Now()
	if err := i.messages.Save(ctx, rec); err != nil {
		// la auditoría no bloquea la conversación
		log.Printf("⚠️  Failed to record %s message for session %s: %v", rec.Direction, session.ID, err)
	}
}

// stepDelay espera el delay entre pasos; retorna false si el contexto se
// cancela durante la espera
func (i *NodeInterpreter) stepDelay(ctx context.Context) bool {
	if i.cfg.StepDelay <= 0 {
		return true
	}
	timer := time.NewTimer(i.cfg.StepDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
