package filter

import (
	"strconv"
	"strings"
)

// Parse turns a filter string into an expression tree.
//
// The grammar is a flat chain of conditions joined by && or ||:
//
//	expression := condition ( ("&&" | "||") condition )*
//	condition  := FIELD OPERATOR value
//	value      := string | number | boolean | "(" value ("," value)* ")"
//
// Chains associate to the left. There is no parenthesized grouping of
// conditions; parentheses only delimit value lists for in / not in.
// Parsing either succeeds for the whole input or fails with a *ParseError;
// a partial tree is never returned.
func Parse(input string) (Expr, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &ParseError{Code: ErrEmptyExpression}
	}

	tokens, perr := tokenize(input)
	if perr != nil {
		return nil, perr
	}

	p := &parser{tokens: tokens}
	expr, perr := p.parseChain()
	if perr != nil {
		return nil, perr
	}
	if tok := p.peek(); tok.typ != tokenEOF {
		return nil, &ParseError{Code: ErrUnexpectedToken, Pos: tok.pos, Found: tok.text, Expected: []string{"&&", "||", "end of input"}}
	}
	return expr, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.typ != tokenEOF {
		p.pos++
	}
	return tok
}

// parseChain parses a left-associative chain of conditions.
func (p *parser) parseChain() (Expr, *ParseError) {
	first, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	var left Expr = first
	for {
		var comb Combinator
		switch p.peek().typ {
		case tokenAnd:
			comb = CombinatorAnd
		case tokenOr:
			comb = CombinatorOr
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		left = &Binary{Combinator: comb, Left: left, Right: right}
	}
}

func (p *parser) parseCondition() (*Condition, *ParseError) {
	tok := p.next()
	if tok.typ != tokenWord {
		return nil, &ParseError{Code: ErrUnexpectedToken, Pos: tok.pos, Found: tok.text, Expected: []string{"field name"}}
	}
	field, ok := LookupField(tok.text)
	if !ok {
		return nil, &ParseError{Code: ErrUnknownField, Pos: tok.pos, Found: tok.text}
	}

	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}

	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	return &Condition{Field: field, Op: op, Value: value}, nil
}

func (p *parser) parseOperator() (Operator, *ParseError) {
	tok := p.next()
	switch tok.typ {
	case tokenOp:
		// tokenize already validated the symbol against the known set
		return knownOps[tok.text], nil
	case tokenWord:
		switch {
		case strings.EqualFold(tok.text, "like"):
			return OpLike, nil
		case strings.EqualFold(tok.text, "in"):
			return OpIn, nil
		case strings.EqualFold(tok.text, "not"):
			follow := p.next()
			if follow.typ == tokenWord && strings.EqualFold(follow.text, "in") {
				return OpNotIn, nil
			}
			return "", &ParseError{Code: ErrUnexpectedToken, Pos: follow.pos, Found: follow.text, Expected: []string{"in"}}
		}
		return "", &ParseError{Code: ErrUnknownOperator, Pos: tok.pos, Found: tok.text}
	}
	return "", &ParseError{Code: ErrUnexpectedToken, Pos: tok.pos, Found: tok.text, Expected: []string{"operator"}}
}

func (p *parser) parseValue() (Value, *ParseError) {
	if p.peek().typ == tokenLParen {
		return p.parseList()
	}
	return p.parseScalar()
}

func (p *parser) parseScalar() (Value, *ParseError) {
	tok := p.next()
	switch tok.typ {
	case tokenString:
		return StringValue(tok.text), nil
	case tokenNumber:
		// isNumberLiteral guarantees this parses
		n, _ := strconv.ParseFloat(tok.text, 64)
		return NumberValue(n), nil
	case tokenWord:
		// Boolean literals are recognized by pattern; any other bare word is
		// a string literal up to the next boundary.
		if strings.EqualFold(tok.text, "true") {
			return BoolValue(true), nil
		}
		if strings.EqualFold(tok.text, "false") {
			return BoolValue(false), nil
		}
		return StringValue(tok.text), nil
	}
	return Value{}, &ParseError{Code: ErrUnexpectedToken, Pos: tok.pos, Found: tok.text, Expected: []string{"value"}}
}

func (p *parser) parseList() (Value, *ParseError) {
	p.next() // consume "("
	var values []Value
	for {
		v, err := p.parseScalar()
		if err != nil {
			return Value{}, err
		}
		values = append(values, v)

		tok := p.next()
		switch tok.typ {
		case tokenComma:
			continue
		case tokenRParen:
			return ListValue(values...), nil
		default:
			return Value{}, &ParseError{Code: ErrUnexpectedToken, Pos: tok.pos, Found: tok.text, Expected: []string{",", ")"}}
		}
	}
}
