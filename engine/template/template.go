// Package template renders workflow-authored message content against session
// data. It supports plain variable substitution ({{ name }}) and a ternary
// form ({{ verified ? 'OK' : 'Pending' }}) resolved through the condition
// language. Rendering is pure and never fails: anything that cannot be
// resolved is left in place so missing-data bugs stay visible.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Abraxas-365/chatflow/engine/expr"
)

var (
	spanRegex    = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	keyRegex     = regexp.MustCompile(`^[A-Za-z_][\w]*(?:\.[A-Za-z_][\w]*)*$`)
	ternaryRegex = regexp.MustCompile(`^(.+?)\s*\?\s*'([^']*)'\s*:\s*'([^']*)'$`)
)

// Render sustituye todos los spans {{ ... }} del template con valores del
// data map, en dos pasadas: variables simples primero, ternarios después.
func Render(tmpl string, data map[string]any) string {
	if tmpl == "" || !strings.Contains(tmpl, "{{") {
		return tmpl
	}

	rendered := spanRegex.ReplaceAllStringFunc(tmpl, func(match string) string {
		inner := strings.TrimSpace(spanRegex.FindStringSubmatch(match)[1])

		if keyRegex.MatchString(inner) {
			if value, ok := lookup(data, inner); ok && value != nil {
				return fmt.Sprintf("%v", value)
			}
			// clave indefinida: el span queda intacto
			return match
		}

		return match
	})

	return spanRegex.ReplaceAllStringFunc(rendered, func(match string) string {
		inner := strings.TrimSpace(spanRegex.FindStringSubmatch(match)[1])

		m := ternaryRegex.FindStringSubmatch(inner)
		if m == nil {
			return match
		}

		condition := strings.TrimSpace(m[1])
		if evaluateCondition(condition, data) {
			return m[2]
		}
		return m[3]
	})
}

// evaluateCondition resuelve la condición de un ternario: primero como
// veracidad de un campo suelto, después por el evaluador de condiciones
func evaluateCondition(condition string, data map[string]any) bool {
	if keyRegex.MatchString(condition) {
		if value, ok := lookup(data, condition); ok {
			return truthy(value)
		}
		return false
	}
	return expr.Eval(condition, data)
}

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
	case int:
		return v != 0
	default:
		return true
	}
}
