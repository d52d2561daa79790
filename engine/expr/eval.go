package expr

import (
	"fmt"
	"strings"
)

// Evaluate evalúa un AST contra el data map de la sesión. Nunca lanza panic;
// cualquier cosa no resoluble evalúa a false.
func Evaluate(e Expr, data map[string]any) bool {
	switch node := e.(type) {
	case Literal:
		b, _ := node.Value.(bool)
		return b

	case FieldRef:
		val, ok := lookup(data, node.Path)
		if !ok {
			return false
		}
		return truthy(val)

	case LengthCmp:
		val, _ := lookup(data, node.Field)
		trimmed := strings.TrimSpace(stringify(val))
		return compareFloat(float64(len(trimmed)), float64(node.N), node.Op)

	case BinaryCmp:
		left, ok := lookup(data, node.Left.Path)
		if !ok {
			return false
		}

		var right any
		switch operand := node.Right.(type) {
		case Literal:
			right = operand.Value
		case FieldRef:
			right, ok = lookup(data, operand.Path)
			if !ok {
				return false
			}
		default:
			return false
		}

		switch node.Op {
		case OpEq:
			return looseEqual(left, right)
		case OpNeq:
			return !looseEqual(left, right)
		default:
			lf, lok := toFloat64(left)
			rf, rok := toFloat64(right)
			if !lok || !rok {
				return false
			}
			return compareFloat(lf, rf, node.Op)
		}
	}

	return false
}

// Eval parsea y evalúa en un paso. Expresiones malformadas evalúan a false.
func Eval(expression string, data map[string]any) bool {
	parsed, err := Parse(expression)
	if err != nil {
		return false
	}
	return Evaluate(parsed, data)
}

// lookup resuelve una ruta con puntos dentro de mapas anidados
func lookup(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	current := any(data)

	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// truthy semántica de veracidad para datos legacy: los números pueden llegar
// como strings, así que "0", "" y "false" cuentan como falsos
func truthy(val any) bool {
	switch v := val.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		s := strings.TrimSpace(v)
		return s != "" && s != "false" && s != "0"
	case float64:
		return v != 0
	case float32:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return true
	}
}

// looseEqual igualdad con coerción de tipos. Es deliberado para compatibilidad
// con datos legacy donde los números llegan como strings ("0" == 0 es true);
// ver el caveat documentado en DESIGN.md.
func looseEqual(a, b any) bool {
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	if aok && bok {
		return af == bf
	}
	return stringify(a) == stringify(b)
}

func compareFloat(a, b float64, op Op) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNeq:
		return a != b
	case OpGt:
		return a > b
	case OpGte:
		return a >= b
	case OpLt:
		return a < b
	case OpLte:
		return a <= b
	default:
		return false
	}
}

func stringify(val any) string {
	if val == nil {
		return ""
	}
	return fmt.Sprintf("%v", val)
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case string:
		var f float64
		_, err := fmt.Sscanf(val, "%f", &f)
		return f, err == nil
	default:
		return 0, false
	}
}
