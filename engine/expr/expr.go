// Package expr implements the small boolean expression language workflow
// authors use in condition nodes and template ternaries. Expressions are
// parsed once into a typed AST and evaluated against session data.
package expr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Op operador de comparación
type Op string

const (
	OpEq  Op = "=="
	OpNeq Op = "!="
	OpGte Op = ">="
	OpLte Op = "<="
	OpGt  Op = ">"
	OpLt  Op = "<"
)

// Expr nodo del AST de una expresión
type Expr interface {
	isExpr()
}

// Literal valor constante (bool, float64 o string)
type Literal struct {
	Value any
}

// FieldRef referencia a un campo del data map; soporta rutas con punto
// (p.ej. "api_response.status")
type FieldRef struct {
	Path string
}

// LengthCmp atajo de comparación de longitud: field.trim().length <op> N
type LengthCmp struct {
	Field string
	Op    Op
	N     int
}

// BinaryCmp comparación binaria field <op> value
type BinaryCmp struct {
	Left  FieldRef
	Op    Op
	Right Expr // Literal o FieldRef
}

func (Literal) isExpr()   {}
func (FieldRef) isExpr()  {}
func (LengthCmp) isExpr() {}
func (BinaryCmp) isExpr() {}

var (
	fieldRegex  = regexp.MustCompile(`^[A-Za-z_][\w]*(?:\.[A-Za-z_][\w]*)*$`)
	lengthRegex = regexp.MustCompile(`^([A-Za-z_][\w]*)(?:\.[A-Za-z_]\w*\(\))?\.length\s*(==|!=|>=|<=|>|<)\s*(\d+)$`)
	binaryRegex = regexp.MustCompile(`^(.+?)\s*(==|!=|>=|<=|>|<)\s*(.+)$`)
)

// Parse compila una expresión a su AST. Las expresiones se intentan en
// orden: literal true/false, atajo de longitud, comparación binaria,
// campo suelto.
func Parse(expression string) (Expr, error) {
	s := strings.TrimSpace(expression)
	if s == "" {
		return nil, fmt.Errorf("empty expression")
	}

	switch s {
	case "true":
		return Literal{Value: true}, nil
	case "false":
		return Literal{Value: false}, nil
	}

	if m := lengthRegex.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, fmt.Errorf("invalid length operand in %q", expression)
		}
		return LengthCmp{Field: m[1], Op: Op(m[2]), N: n}, nil
	}

	if m := binaryRegex.FindStringSubmatch(s); m != nil {
		left := strings.TrimSpace(m[1])
		right := strings.TrimSpace(m[3])

		if fieldRegex.MatchString(left) {
			rightExpr, err := parseOperand(right)
			if err != nil {
				return nil, err
			}
			return BinaryCmp{
				Left:  FieldRef{Path: left},
				Op:    Op(m[2]),
				Right: rightExpr,
			}, nil
		}
	}

	if fieldRegex.MatchString(s) {
		return FieldRef{Path: s}, nil
	}

	return nil, fmt.Errorf("unrecognized expression %q", expression)
}

// parseOperand resuelve el lado derecho de una comparación: literal de
// string entre comillas, true/false, número, o referencia a otro campo
func parseOperand(s string) (Expr, error) {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return Literal{Value: s[1 : len(s)-1]}, nil
		}
	}

	switch s {
	case "true":
		return Literal{Value: true}, nil
	case "false":
		return Literal{Value: false}, nil
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Literal{Value: f}, nil
	}

	if fieldRegex.MatchString(s) {
		return FieldRef{Path: s}, nil
	}

	return nil, fmt.Errorf("unrecognized operand %q", s)
}
