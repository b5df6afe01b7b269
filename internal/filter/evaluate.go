package filter

import (
	"strings"
	"time"

	"github.com/vikunja-tools/vikunja-mcp/internal/vikunja"
)

// Evaluate reports whether the task satisfies the expression.
//
// Evaluation is pure and total: it never panics and never errors. A condition
// referencing a field the task record does not carry (zero date, no assignees
// or labels) evaluates to false for every operator, including not in. Type
// mismatches likewise degrade to false. Binary nodes short-circuit.
func Evaluate(expr Expr, task *vikunja.Task) bool {
	if task == nil {
		return false
	}
	switch e := expr.(type) {
	case *Binary:
		if e.Combinator == CombinatorAnd {
			return Evaluate(e.Left, task) && Evaluate(e.Right, task)
		}
		return Evaluate(e.Left, task) || Evaluate(e.Right, task)
	case *Condition:
		return evalCondition(e, task)
	}
	return false
}

func evalCondition(c *Condition, task *vikunja.Task) bool {
	switch FieldKind(c.Field) {
	case KindBool:
		return evalBool(c, task.Done)
	case KindNumber:
		switch c.Field {
		case FieldPriority:
			return evalNumber(c, float64(task.Priority))
		case FieldPercentDone:
			return evalNumber(c, float64(task.PercentDone))
		}
	case KindDate:
		switch c.Field {
		case FieldDueDate:
			return evalDate(c, task.DueDate)
		case FieldCreated:
			return evalDate(c, task.Created)
		case FieldUpdated:
			return evalDate(c, task.Updated)
		}
	case KindString:
		switch c.Field {
		case FieldTitle:
			return evalString(c, task.Title)
		case FieldDescription:
			return evalString(c, task.Description)
		}
	case KindIDList:
		switch c.Field {
		case FieldAssignees:
			return evalIDList(c, task.AssigneeIDs())
		case FieldLabels:
			return evalIDList(c, task.LabelIDs())
		}
	}
	return false
}

func evalBool(c *Condition, actual bool) bool {
	want, ok := coerceBool(c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpEquals:
		return actual == want
	case OpNotEquals:
		return actual != want
	}
	return false
}

func evalNumber(c *Condition, actual float64) bool {
	want, ok := coerceNumber(c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpEquals:
		return actual == want
	case OpNotEquals:
		return actual != want
	case OpGreater:
		return actual > want
	case OpGreaterEquals:
		return actual >= want
	case OpLess:
		return actual < want
	case OpLessEquals:
		return actual <= want
	}
	return false
}

func evalDate(c *Condition, actual time.Time) bool {
	// A zero time means the task has no such date; fail closed.
	if actual.IsZero() {
		return false
	}
	want, ok := coerceDate(c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpEquals:
		return actual.Equal(want)
	case OpNotEquals:
		return !actual.Equal(want)
	case OpGreater:
		return actual.After(want)
	case OpGreaterEquals:
		return actual.After(want) || actual.Equal(want)
	case OpLess:
		return actual.Before(want)
	case OpLessEquals:
		return actual.Before(want) || actual.Equal(want)
	}
	return false
}

func evalString(c *Condition, actual string) bool {
	want, ok := coerceString(c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpEquals:
		return actual == want
	case OpNotEquals:
		return actual != want
	case OpLike:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(want))
	}
	return false
}

func evalIDList(c *Condition, ids []int64) bool {
	// No ids on the record means the field is absent; fail closed for every
	// operator, not in included.
	if len(ids) == 0 {
		return false
	}

	var want []int64
	for _, item := range membershipValues(c.Value) {
		n, ok := coerceNumber(item)
		if !ok {
			return false
		}
		want = append(want, int64(n))
	}

	intersects := false
	for _, id := range ids {
		for _, w := range want {
			if id == w {
				intersects = true
			}
		}
	}

	switch c.Op {
	case OpIn, OpEquals:
		return intersects
	case OpNotIn, OpNotEquals:
		return !intersects
	}
	return false
}

func coerceString(v Value) (string, bool) {
	switch v.Kind {
	case ValueString:
		return v.Str, true
	case ValueNumber:
		return formatNumber(v.Num), true
	case ValueBool:
		if v.Bool {
			return "true", true
		}
		return "false", true
	}
	return "", false
}

func formatNumber(n float64) string {
	var sb strings.Builder
	writeValue(&sb, NumberValue(n))
	return sb.String()
}
