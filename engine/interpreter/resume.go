package interpreter

import (
	"context"
	"log"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/craftable/errx"
)

// Resume liga una respuesta entrante al nodo que estaba esperando input y
// retoma la caminata. Con un externalMessageID ya visto la llamada es no-op,
// que es lo que hace segura la entrega at-least-once del proveedor.
func (i *NodeInterpreter) Resume(
	ctx context.Context,
	session *engine.Session,
	in engine.Input,
) error {
	if in.ExternalMessageID != "" && i.dedup.Seen(ctx, session.ID, in.ExternalMessageID) {
		log.Printf("♻️  Duplicate message %s for session %s, ignoring", in.ExternalMessageID, session.ID)
		return nil
	}

	if session.IsTerminal() {
		return engine.ErrSessionTerminal().
			WithDetail("session_id", session.ID.String()).
			WithDetail("status", string(session.Status))
	}

	if session.Status == engine.SessionStatusTransferred {
		// la conversación está en manos de un humano: se registra el mensaje
		// para la auditoría pero el motor no captura variables ni rutea
		log.Printf("⏸️  Session %s is transferred, recording inbound without routing", session.ID)
		i.recordMessage(ctx, session, inboundRecord(session.CurrentNodeID, in))
		return nil
	}

	workflow, err := i.workflows.FindByID(ctx, session.WorkflowID)
	if err != nil {
		return errx.Wrap(err, "failed to load workflow for resume", errx.TypeInternal).
			WithDetail("workflow_id", session.WorkflowID.String())
	}

	node := workflow.GetNodeByID(session.CurrentNodeID)
	if node == nil {
		return engine.ErrNodeNotFound().
			WithDetail("node_id", session.CurrentNodeID).
			WithDetail("workflow_id", workflow.ID.String())
	}

	i.recordMessage(ctx, session, inboundRecord(node.ID, in))

	if !node.AwaitsInput() {
		// respuesta fuera de banda: se persiste la sesión sin cambios y no
		// se rutea a ningún lado (nunca adivinar un destino)
		log.Printf("🤷 Session %s got %s input at non-waiting node %s, no routing", session.ID, in.Kind, node.ID)
		if err := i.sessions.Save(ctx, *session); err != nil {
			return errx.Wrap(err, "failed to persist session", errx.TypeInternal)
		}
		return nil
	}

	variableName := node.VariableName
	if variableName == "" {
		variableName = session.PendingVariableName
	}
	if variableName != "" {
		session.SetData(variableName, in.Value)
	}

	if in.Kind == engine.InputKindMedia && in.MediaID != "" {
		// la referencia al archivo vive en el proveedor; el flujo puede
		// pasarla a un nodo api para descargarla o verificarla
		session.SetData("mediaId", in.MediaID)
		if in.MimeType != "" {
			session.SetData("mediaMimeType", in.MimeType)
		}
	}

	next := session.NextNodeIDAfterInput
	if next == "" {
		next = node.NextNodeID
	}

	session.ClearPendingInput()
	if err := i.sessions.Save(ctx, *session); err != nil {
		return errx.Wrap(err, "failed to persist captured input", errx.TypeInternal).
			WithDetail("session_id", session.ID.String())
	}

	if next == "" {
		log.Printf("⚠️  Node %s captured input but has no successor (session %s)", node.ID, session.ID)
		return nil
	}

	// revisita esperada: tras capturar input, tanto el destino como el nodo
	// que preguntó pueden re-entrarse legítimamente (p.ej. respuesta inválida
	// que vuelve a pedir el dato); sus contadores se resetean para
	// distinguir eso de un ciclo descontrolado
	i.loopGuard.Reset(ctx, session.ID, next)
	i.loopGuard.Reset(ctx, session.ID, node.ID)

	i.Execute(ctx, session, next)
	return nil
}

func inboundRecord(nodeID string, in engine.Input) engine.MessageRecord {
	return engine.MessageRecord{
		Direction:  engine.MessageDirectionInbound,
		NodeID:     nodeID,
		Body:       in.Value,
		ProviderID: in.ExternalMessageID,
		MediaID:    in.MediaID,
		MimeType:   in.MimeType,
	}
}
