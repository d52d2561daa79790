package interpreter

import (
	"fmt"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/engine/expr"
	"github.com/Abraxas-365/chatflow/engine/template"
)

// plannedSend mensaje saliente decidido para este paso
type plannedSend struct {
	body    string
	choices []engine.Choice
}

// stepPlan es la decisión pura de un paso: qué enviar, qué llamada externa
// hacer, qué escribir en el data map y hacia dónde rutear. La capa de
// efectos (interpreter.go) lo ejecuta contra los colaboradores reales, lo
// que permite probar el ruteo sin mockear red.
type stepPlan struct {
	sends   []plannedSend
	apiCall *engine.APICall
	patch   map[string]any

	next     string // siguiente nodo en avance normal ("" = fin de caminata)
	errNext  string // ruteo alternativo si la llamada externa falla
	pause    bool   // pausar esperando input del usuario
	awaitVar string // variable que capturará la respuesta
	complete bool   // nodo end alcanzado
	halt     bool   // hard stop: fallo observable para el autor
	reason   string // motivo del halt, para logs
}

func (p *stepPlan) setData(key string, value any) {
	if p.patch == nil {
		p.patch = make(map[string]any)
	}
	p.patch[key] = value
}

// decide despacha por tipo de nodo y produce el plan del paso. Es una función
// pura sobre (nodo, data).
func decide(node *engine.Node, data map[string]any) *stepPlan {
	switch node.Type {
	case engine.NodeTypeStart:
		return decideStart(node, data)
	case engine.NodeTypeMessage:
		return decideMessage(node, data)
	case engine.NodeTypeInput:
		return decideInput(node, data)
	case engine.NodeTypeInteractive:
		return decideInteractive(node, data)
	case engine.NodeTypeCondition:
		return decideCondition(node, data)
	case engine.NodeTypeAPI:
		return decideAPI(node, data)
	case engine.NodeTypeEnd:
		return &stepPlan{complete: true}
	default:
		// tipo desconocido: parada dura, nunca un skip silencioso
		return &stepPlan{
			halt:   true,
			reason: fmt.Sprintf("unrecognized node type %q", node.Type),
		}
	}
}

func decideStart(node *engine.Node, data map[string]any) *stepPlan {
	plan := &stepPlan{next: node.NextNodeID}
	if node.Content != "" {
		plan.sends = append(plan.sends, plannedSend{body: template.Render(node.Content, data)})
	}
	return plan
}

func decideMessage(node *engine.Node, data map[string]any) *stepPlan {
	return &stepPlan{
		sends: []plannedSend{{body: template.Render(node.Content, data)}},
		next:  node.NextNodeID,
	}
}

func decideInput(node *engine.Node, data map[string]any) *stepPlan {
	plan := &stepPlan{
		pause:    true,
		awaitVar: node.VariableName,
		next:     node.NextNodeID,
	}
	if node.Content != "" {
		plan.sends = append(plan.sends, plannedSend{body: template.Render(node.Content, data)})
	}
	return plan
}

func decideInteractive(node *engine.Node, data map[string]any) *stepPlan {
	body := template.Render(node.Content, data)
	choices := node.ResolvableChoices()

	plan := &stepPlan{
		pause:    true,
		awaitVar: node.VariableName,
		next:     node.NextNodeID,
	}

	if len(choices) == 0 {
		// sin opciones resolubles: degradar a prompt de texto libre, nunca
		// dejar caer el turno en silencio
		plan.sends = append(plan.sends, plannedSend{
			body: body + "\n\nPlease reply with your answer in text.",
		})
		return plan
	}

	plan.sends = append(plan.sends, plannedSend{body: body, choices: choices})
	return plan
}

func decideCondition(node *engine.Node, data map[string]any) *stepPlan {
	plan := &stepPlan{}

	if node.MaxRetries > 0 {
		retryKey := "retryCount_" + node.ID
		count := 1
		if prev, ok := data[retryKey]; ok {
			if f, ok := toInt(prev); ok {
				count = f + 1
			}
		}
		plan.setData(retryKey, count)

		if count > node.MaxRetries {
			if node.MaxRetriesNodeID == "" {
				plan.halt = true
				plan.reason = fmt.Sprintf("condition node %s exceeded maxRetries with no maxRetriesNodeId", node.ID)
				return plan
			}
			plan.next = node.MaxRetriesNodeID
			return plan
		}
	}

	result := expr.Eval(node.Condition, data)
	plan.setData("conditionResult_"+node.ID, result)

	target := node.FalseNodeID
	if result {
		target = node.TrueNodeID
	}
	if target == "" {
		// rama elegida sin destino: parada dura para que el autor lo vea
		plan.halt = true
		plan.reason = fmt.Sprintf("condition node %s has no target for branch %v", node.ID, result)
		return plan
	}

	plan.next = target
	return plan
}

func decideAPI(node *engine.Node, data map[string]any) *stepPlan {
	params := make(map[string]string, len(node.APIParams))
	for key, value := range node.APIParams {
		params[key] = template.Render(value, data)
	}

	method := node.APIMethod
	if method == "" {
		method = "POST"
	}

	return &stepPlan{
		apiCall: &engine.APICall{
			Endpoint: node.APIEndpoint,
			Method:   method,
			Params:   params,
		},
		next:    node.NextNodeID,
		errNext: node.ErrorNodeID,
	}
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case float32:
		return int(val), true
	default:
		return 0, false
	}
}
