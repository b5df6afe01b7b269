package filter

import (
	"strconv"
	"strings"
)

// Builder accumulates conditions into a filter expression.
//
// The first Where establishes the initial leaf. Each later Where joins the
// chain with whichever combinator was requested immediately before it via
// And or Or, defaulting to && when none was requested.
type Builder struct {
	root    Expr
	pending Combinator
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{pending: CombinatorAnd}
}

// Where appends a condition to the chain.
func (b *Builder) Where(field Field, op Operator, value Value) *Builder {
	cond := &Condition{Field: field, Op: op, Value: value}
	if b.root == nil {
		b.root = cond
	} else {
		b.root = &Binary{Combinator: b.pending, Left: b.root, Right: cond}
	}
	b.pending = CombinatorAnd
	return b
}

// And makes && the combinator for the next Where.
func (b *Builder) And() *Builder {
	b.pending = CombinatorAnd
	return b
}

// Or makes || the combinator for the next Where.
func (b *Builder) Or() *Builder {
	b.pending = CombinatorOr
	return b
}

// Expr returns the accumulated expression, nil when no condition was added.
func (b *Builder) Expr() Expr {
	return b.root
}

// String serializes the accumulated expression to the canonical filter
// grammar. A Builder with no conditions serializes to the empty string;
// callers must reject that before use.
func (b *Builder) String() string {
	if b.root == nil {
		return ""
	}
	return Serialize(b.root)
}

// Build joins the conditions into a flat chain using one group combinator and
// returns the canonical filter string. An empty combinator defaults to &&.
// There is deliberately no way to nest groups; the language has no
// parenthesized boolean grouping.
func Build(conditions []Condition, group Combinator) string {
	if group != CombinatorOr {
		group = CombinatorAnd
	}
	b := NewBuilder()
	for _, c := range conditions {
		if group == CombinatorOr {
			b.Or()
		}
		b.Where(c.Field, c.Op, c.Value)
	}
	return b.String()
}

// Serialize renders an expression in canonical form: bare literals unless
// quoting is needed, explicit && / || between conditions, and (a, b) lists.
// Re-parsing the output yields an evaluation-equivalent expression.
func Serialize(expr Expr) string {
	var sb strings.Builder
	writeExpr(&sb, expr)
	return sb.String()
}

func writeExpr(sb *strings.Builder, expr Expr) {
	switch e := expr.(type) {
	case *Binary:
		writeExpr(sb, e.Left)
		sb.WriteString(" ")
		sb.WriteString(string(e.Combinator))
		sb.WriteString(" ")
		writeExpr(sb, e.Right)
	case *Condition:
		sb.WriteString(string(e.Field))
		sb.WriteString(" ")
		sb.WriteString(string(e.Op))
		sb.WriteString(" ")
		writeValue(sb, e.Value)
	}
}

func writeValue(sb *strings.Builder, v Value) {
	switch v.Kind {
	case ValueString:
		sb.WriteString(quoteIfNeeded(v.Str))
	case ValueNumber:
		sb.WriteString(strconv.FormatFloat(v.Num, 'f', -1, 64))
	case ValueBool:
		sb.WriteString(strconv.FormatBool(v.Bool))
	case ValueList:
		sb.WriteString("(")
		for i, item := range v.List {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, item)
		}
		sb.WriteString(")")
	}
}

// quoteIfNeeded emits the bare form unless the literal contains characters
// the tokenizer treats as boundaries, or would re-lex as a number or boolean
// and so stop being a string on the next parse.
func quoteIfNeeded(s string) string {
	bare := s != "" && !strings.ContainsAny(s, " \t\n\r(),'\"&|=!<>")
	if bare && (isNumberLiteral(s) || strings.EqualFold(s, "true") || strings.EqualFold(s, "false")) {
		bare = false
	}
	if bare {
		return s
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
	return sb.String()
}
