package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of validating an expression. Errors block use of the
// expression; warnings are advisory and accompany otherwise-valid results.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// dateLayouts are the accepted date literal forms, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Validate checks an expression against the field/operator/value
// compatibility rules. It inspects the tree only and never reparses.
func Validate(expr Expr) Result {
	v := &validator{}
	if expr == nil {
		v.errorf("expression is empty")
	} else {
		v.walk(expr)
		if len(v.combinators) > 1 {
			v.warnf("expression mixes && and || without grouping; conditions combine left to right")
		}
	}
	return Result{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

type validator struct {
	errors      []string
	warnings    []string
	combinators map[Combinator]bool
}

func (v *validator) errorf(format string, args ...interface{}) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) warnf(format string, args ...interface{}) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) walk(expr Expr) {
	switch e := expr.(type) {
	case *Binary:
		if v.combinators == nil {
			v.combinators = make(map[Combinator]bool)
		}
		v.combinators[e.Combinator] = true
		v.walk(e.Left)
		v.walk(e.Right)
	case *Condition:
		v.checkCondition(e)
	default:
		v.errorf("malformed expression node")
	}
}

func (v *validator) checkCondition(c *Condition) {
	kind := FieldKind(c.Field)

	switch {
	case c.Op.IsOrdering():
		if kind != KindNumber && kind != KindDate {
			v.errorf("operator %q requires a number or date field, but %q is a %s field", c.Op, c.Field, kind)
			return
		}
	case c.Op == OpLike:
		if kind != KindString {
			v.errorf("operator \"like\" only applies to string fields, but %q is a %s field", c.Field, kind)
			return
		}
	case c.Op.IsMembership():
		if kind != KindIDList {
			v.warnf("operator %q on field %q has no effect on a %s field; use \"=\" instead", c.Op, c.Field, kind)
			return
		}
	}

	// List values only make sense with membership operators
	if c.Value.Kind == ValueList && !c.Op.IsMembership() {
		v.errorf("field %q: operator %q does not accept a value list", c.Field, c.Op)
		return
	}

	v.checkValue(c, kind)
}

// checkValue verifies the literal is coercible to the field kind.
func (v *validator) checkValue(c *Condition, kind Kind) {
	switch kind {
	case KindBool:
		if _, ok := coerceBool(c.Value); !ok {
			v.errorf("field %q expects a boolean value, got %s", c.Field, describeValue(c.Value))
		}
	case KindNumber:
		if _, ok := coerceNumber(c.Value); !ok {
			v.errorf("field %q expects a numeric value, got %s", c.Field, describeValue(c.Value))
		}
	case KindDate:
		if _, ok := coerceDate(c.Value); !ok {
			v.errorf("field %q expects a date value (e.g. 2024-01-02 or RFC 3339), got %s", c.Field, describeValue(c.Value))
		}
	case KindString:
		if c.Value.Kind == ValueList {
			v.errorf("field %q expects a single string value, got a list", c.Field)
		}
	case KindIDList:
		for _, item := range membershipValues(c.Value) {
			if _, ok := coerceNumber(item); !ok {
				v.errorf("field %q expects numeric ids, got %s", c.Field, describeValue(item))
				return
			}
		}
	}
}

// membershipValues flattens a membership operand: lists are taken as-is, a
// scalar is treated as a single-element list.
func membershipValues(v Value) []Value {
	if v.Kind == ValueList {
		return v.List
	}
	return []Value{v}
}

func describeValue(v Value) string {
	switch v.Kind {
	case ValueString:
		return fmt.Sprintf("%q", v.Str)
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueList:
		return "a list"
	}
	return "an unknown value"
}

// coerceBool converts a literal to a boolean. Strings "true"/"false" coerce.
func coerceBool(v Value) (bool, bool) {
	switch v.Kind {
	case ValueBool:
		return v.Bool, true
	case ValueString:
		if strings.EqualFold(v.Str, "true") {
			return true, true
		}
		if strings.EqualFold(v.Str, "false") {
			return false, true
		}
	}
	return false, false
}

// coerceNumber converts a literal to a float64. Numeric strings coerce.
func coerceNumber(v Value) (float64, bool) {
	switch v.Kind {
	case ValueNumber:
		return v.Num, true
	case ValueString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

// coerceDate converts a string literal to a time.Time.
func coerceDate(v Value) (time.Time, bool) {
	if v.Kind != ValueString {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v.Str); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
