package workflow

import (
	"fmt"
	"regexp"
	"strings"
)

// CondOp is the comparison a Condition performs.
type CondOp int

const (
	// CondTruthy holds when the field is set to a truthy value.
	CondTruthy CondOp = iota
	// CondFalsy holds when the field is unset or falsy.
	CondFalsy
	// CondEquals holds when the field equals Value.
	CondEquals
	// CondNotEquals holds when the field differs from Value.
	CondNotEquals
)

var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// Condition is a parsed visible_if expression. Four forms are accepted:
//
//	field         field is truthy
//	!field        field is empty or falsy
//	field=value   field equals value
//	field!=value  field differs from value
//
// Values compare as strings after trimming surrounding whitespace.
type Condition struct {
	Field string
	Op    CondOp
	Value string
}

// ParseCondition parses a visible_if expression.
func ParseCondition(expr string) (Condition, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Condition{}, fmt.Errorf("empty condition")
	}

	var c Condition
	switch {
	case strings.Contains(expr, "!="):
		field, value, _ := strings.Cut(expr, "!=")
		c = Condition{Field: strings.TrimSpace(field), Op: CondNotEquals, Value: strings.TrimSpace(value)}
	case strings.Contains(expr, "="):
		field, value, _ := strings.Cut(expr, "=")
		c = Condition{Field: strings.TrimSpace(field), Op: CondEquals, Value: strings.TrimSpace(value)}
	case strings.HasPrefix(expr, "!"):
		c = Condition{Field: strings.TrimSpace(expr[1:]), Op: CondFalsy}
	default:
		c = Condition{Field: expr, Op: CondTruthy}
	}

	if !fieldNameRe.MatchString(c.Field) {
		return Condition{}, fmt.Errorf("condition %q: invalid field name %q", expr, c.Field)
	}
	return c, nil
}

// Eval reports whether the condition holds for data.
func (c Condition) Eval(data Data) bool {
	v := strings.TrimSpace(data.String(c.Field))
	switch c.Op {
	case CondFalsy:
		return !truthy(v)
	case CondEquals:
		return v == c.Value
	case CondNotEquals:
		return v != c.Value
	default:
		return truthy(v)
	}
}

// String returns the canonical expression.
func (c Condition) String() string {
	switch c.Op {
	case CondFalsy:
		return "!" + c.Field
	case CondEquals:
		return c.Field + "=" + c.Value
	case CondNotEquals:
		return c.Field + "!=" + c.Value
	default:
		return c.Field
	}
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "", "0", "false", "no", "off":
		return false
	default:
		return true
	}
}
