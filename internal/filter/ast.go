package filter

import (
	"strings"
)

// Field identifies a filterable task attribute.
type Field string

// The fixed set of filterable fields.
const (
	FieldDone        Field = "done"
	FieldPriority    Field = "priority"
	FieldPercentDone Field = "percentDone"
	FieldDueDate     Field = "dueDate"
	FieldAssignees   Field = "assignees"
	FieldLabels      Field = "labels"
	FieldCreated     Field = "created"
	FieldUpdated     Field = "updated"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
)

// Kind is the intrinsic value kind of a field.
type Kind int

const (
	KindBool Kind = iota
	KindNumber
	KindDate
	KindString
	KindIDList
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindString:
		return "string"
	case KindIDList:
		return "id list"
	}
	return "unknown"
}

var fieldKinds = map[Field]Kind{
	FieldDone:        KindBool,
	FieldPriority:    KindNumber,
	FieldPercentDone: KindNumber,
	FieldDueDate:     KindDate,
	FieldAssignees:   KindIDList,
	FieldLabels:      KindIDList,
	FieldCreated:     KindDate,
	FieldUpdated:     KindDate,
	FieldTitle:       KindString,
	FieldDescription: KindString,
}

// FieldKind returns the intrinsic value kind of a field.
func FieldKind(f Field) Kind {
	return fieldKinds[f]
}

// LookupField resolves a field name case-insensitively.
func LookupField(name string) (Field, bool) {
	for f := range fieldKinds {
		if strings.EqualFold(string(f), name) {
			return f, true
		}
	}
	return "", false
}

// Fields returns all filterable field names in a stable order.
func Fields() []Field {
	return []Field{
		FieldDone, FieldPriority, FieldPercentDone, FieldDueDate,
		FieldAssignees, FieldLabels, FieldCreated, FieldUpdated,
		FieldTitle, FieldDescription,
	}
}

// Operator is a comparison operator in a filter condition.
type Operator string

const (
	OpEquals        Operator = "="
	OpNotEquals     Operator = "!="
	OpGreater       Operator = ">"
	OpGreaterEquals Operator = ">="
	OpLess          Operator = "<"
	OpLessEquals    Operator = "<="
	OpLike          Operator = "like"
	OpIn            Operator = "in"
	OpNotIn         Operator = "not in"
)

// IsOrdering reports whether op is one of > >= < <=.
func (o Operator) IsOrdering() bool {
	switch o {
	case OpGreater, OpGreaterEquals, OpLess, OpLessEquals:
		return true
	}
	return false
}

// IsMembership reports whether op is in or not in.
func (o Operator) IsMembership() bool {
	return o == OpIn || o == OpNotIn
}

// Combinator joins two expressions.
type Combinator string

const (
	CombinatorAnd Combinator = "&&"
	CombinatorOr  Combinator = "||"
)

// Expr is a parsed filter expression. It is either a *Condition leaf or a
// *Binary node; the closed isExpr method keeps the variant set exhaustive.
type Expr interface {
	isExpr()
}

// Condition is a single field/operator/value leaf.
type Condition struct {
	Field Field
	Op    Operator
	Value Value
}

// Binary joins two sub-expressions with && or ||.
type Binary struct {
	Combinator Combinator
	Left       Expr
	Right      Expr
}

func (*Condition) isExpr() {}
func (*Binary) isExpr()    {}

// ValueKind tags the literal type of a Value.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueBool
	ValueList
)

// Value is a literal operand in a condition. Exactly one of the typed fields
// is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	List []Value
}

// StringValue returns a string literal value.
func StringValue(s string) Value {
	return Value{Kind: ValueString, Str: s}
}

// NumberValue returns a numeric literal value.
func NumberValue(n float64) Value {
	return Value{Kind: ValueNumber, Num: n}
}

// BoolValue returns a boolean literal value.
func BoolValue(b bool) Value {
	return Value{Kind: ValueBool, Bool: b}
}

// ListValue returns a list literal value, as used with in / not in.
func ListValue(values ...Value) Value {
	return Value{Kind: ValueList, List: values}
}
