package filter

import (
	"fmt"
	"strings"
)

// ErrorCode classifies a parse failure.
type ErrorCode string

const (
	ErrUnexpectedToken     ErrorCode = "UnexpectedToken"
	ErrUnterminatedLiteral ErrorCode = "UnterminatedLiteral"
	ErrUnknownField        ErrorCode = "UnknownField"
	ErrUnknownOperator     ErrorCode = "UnknownOperator"
	ErrEmptyExpression     ErrorCode = "EmptyExpression"
)

// ParseError describes why a filter string could not be parsed. Pos is a
// zero-based byte offset into the input.
type ParseError struct {
	Code     ErrorCode
	Pos      int
	Found    string
	Expected []string
}

func (e *ParseError) Error() string {
	switch e.Code {
	case ErrEmptyExpression:
		return "filter expression is empty"
	case ErrUnterminatedLiteral:
		return fmt.Sprintf("unterminated string literal at position %d", e.Pos)
	case ErrUnknownField:
		return fmt.Sprintf("unknown field %q at position %d", e.Found, e.Pos)
	case ErrUnknownOperator:
		return fmt.Sprintf("unknown operator %q at position %d", e.Found, e.Pos)
	}
	if len(e.Expected) > 0 {
		return fmt.Sprintf("unexpected %q at position %d, expected %s", e.Found, e.Pos, strings.Join(e.Expected, " or "))
	}
	return fmt.Sprintf("unexpected %q at position %d", e.Found, e.Pos)
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenWord
	tokenString
	tokenNumber
	tokenOp
	tokenAnd
	tokenOr
	tokenLParen
	tokenRParen
	tokenComma
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "end of input"
	case tokenWord:
		return "identifier"
	case tokenString:
		return "string"
	case tokenNumber:
		return "number"
	case tokenOp:
		return "operator"
	case tokenAnd:
		return "&&"
	case tokenOr:
		return "||"
	case tokenLParen:
		return "("
	case tokenRParen:
		return ")"
	case tokenComma:
		return ","
	}
	return "token"
}

type token struct {
	typ  tokenType
	text string
	pos  int
}

// operator characters lexed greedily into a single token
func isOpChar(c byte) bool {
	return c == '=' || c == '!' || c == '<' || c == '>'
}

func isWordBoundary(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' ||
		c == '(' || c == ')' || c == ',' || c == '\'' || c == '"' ||
		c == '&' || c == '|' || isOpChar(c)
}

var knownOps = map[string]Operator{
	"=":  OpEquals,
	"!=": OpNotEquals,
	">":  OpGreater,
	">=": OpGreaterEquals,
	"<":  OpLess,
	"<=": OpLessEquals,
}

// tokenize splits the input into tokens. Quoted string literals are
// unescaped; their content is taken verbatim and never re-interpreted, so
// filter values cannot smuggle expression syntax past the parser.
func tokenize(input string) ([]token, *ParseError) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(':
			tokens = append(tokens, token{tokenLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokenRParen, ")", i})
			i++
		case c == ',':
			tokens = append(tokens, token{tokenComma, ",", i})
			i++

		case c == '&':
			if i+1 < len(input) && input[i+1] == '&' {
				tokens = append(tokens, token{tokenAnd, "&&", i})
				i += 2
				continue
			}
			return nil, &ParseError{Code: ErrUnexpectedToken, Pos: i, Found: "&", Expected: []string{"&&"}}
		case c == '|':
			if i+1 < len(input) && input[i+1] == '|' {
				tokens = append(tokens, token{tokenOr, "||", i})
				i += 2
				continue
			}
			return nil, &ParseError{Code: ErrUnexpectedToken, Pos: i, Found: "|", Expected: []string{"||"}}

		case isOpChar(c):
			start := i
			for i < len(input) && isOpChar(input[i]) {
				i++
			}
			op := input[start:i]
			if _, ok := knownOps[op]; !ok {
				return nil, &ParseError{Code: ErrUnknownOperator, Pos: start, Found: op}
			}
			tokens = append(tokens, token{tokenOp, op, start})

		case c == '\'' || c == '"':
			lit, next, err := lexString(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokenString, lit, i})
			i = next

		default:
			start := i
			for i < len(input) && !isWordBoundary(input[i]) {
				i++
			}
			word := input[start:i]
			if isNumberLiteral(word) {
				tokens = append(tokens, token{tokenNumber, word, start})
			} else {
				tokens = append(tokens, token{tokenWord, word, start})
			}
		}
	}
	tokens = append(tokens, token{tokenEOF, "", len(input)})
	return tokens, nil
}

// lexString consumes a quoted literal starting at input[start] and returns the
// unescaped content plus the index just past the closing quote.
func lexString(input string, start int) (string, int, *ParseError) {
	quote := input[start]
	var sb strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		if c == '\\' && i+1 < len(input) {
			// Only the escape characters themselves are special; everything
			// else inside a literal is kept verbatim.
			next := input[i+1]
			if next == quote || next == '\\' {
				sb.WriteByte(next)
				i += 2
				continue
			}
			sb.WriteByte(c)
			i++
			continue
		}
		if c == quote {
			return sb.String(), i + 1, nil
		}
		sb.WriteByte(c)
		i++
	}
	return "", 0, &ParseError{Code: ErrUnterminatedLiteral, Pos: start, Found: string(quote)}
}

// isNumberLiteral reports whether the word is a numeric literal. Words that
// merely start with digits (dates like 2024-01-02) are not numbers.
func isNumberLiteral(word string) bool {
	if word == "" {
		return false
	}
	i := 0
	if word[0] == '-' {
		if len(word) == 1 {
			return false
		}
		i = 1
	}
	sawDigit := false
	sawDot := false
	for ; i < len(word); i++ {
		c := word[i]
		switch {
		case c >= '0' && c <= '9':
			sawDigit = true
		case c == '.' && !sawDot:
			sawDot = true
		default:
			return false
		}
	}
	return sawDigit
}
