package query

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/faucetdb/tibero/internal/clause"
)

// ColumnFunc resolves a column reference of a filter. table is empty for
// unqualified references.
type ColumnFunc func(table, name string) clause.Expression

// ParseFilter parses a filter expression such as
//
//	(sal > 1000 AND deptno IN (10, 20)) OR ename STARTS WITH 'K'
//
// into a condition. Values become binds named filter_1, filter_2 and so on.
// Returns nil, nil for an empty filter.
func ParseFilter(filter string, column ColumnFunc) (clause.Expression, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, nil
	}
	if column == nil {
		column = func(table, name string) clause.Expression { return clause.Col(table, name) }
	}

	tokens, err := tokenize(filter)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	p := &parser{tokens: tokens, column: column}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("unexpected token %q at position %d", p.tokens[p.pos].value, p.tokens[p.pos].pos)
	}
	return node, nil
}

// ---------------------------------------------------------------------------
// Tokens
// ---------------------------------------------------------------------------

type tokenType int

const (
	tokIdentifier tokenType = iota
	tokNumber
	tokString
	tokOperator // =, !=, <>, >, >=, <, <=
	tokLParen
	tokRParen
	tokComma
	// Keywords are identifiers promoted during tokenization.
	tokAND
	tokOR
	tokNOT
	tokIN
	tokLIKE
	tokIS
	tokNULL
	tokBETWEEN
	tokCONTAINS
	tokSTARTS
	tokENDS
	tokWITH
)

type token struct {
	typ   tokenType
	value string // keywords uppercased
	pos   int
}

var keywords = map[string]tokenType{
	"AND":      tokAND,
	"OR":       tokOR,
	"NOT":      tokNOT,
	"IN":       tokIN,
	"LIKE":     tokLIKE,
	"IS":       tokIS,
	"NULL":     tokNULL,
	"BETWEEN":  tokBETWEEN,
	"CONTAINS": tokCONTAINS,
	"STARTS":   tokSTARTS,
	"ENDS":     tokENDS,
	"WITH":     tokWITH,
}

var tokenNames = map[tokenType]string{
	tokIdentifier: "identifier",
	tokNumber:     "number",
	tokString:     "string",
	tokOperator:   "operator",
	tokLParen:     "'('",
	tokRParen:     "')'",
	tokComma:      "','",
}

func (t tokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	for kw, kt := range keywords {
		if kt == t {
			return kw
		}
	}
	return fmt.Sprintf("token(%d)", int(t))
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9') || ch == '$' || ch == '#' || ch == '.'
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func tokenize(input string) ([]token, error) {
	var tokens []token
	n := len(input)

	for i := 0; i < n; {
		ch := input[i]
		if unicode.IsSpace(rune(ch)) {
			i++
			continue
		}

		switch ch {
		case '(':
			tokens = append(tokens, token{typ: tokLParen, value: "(", pos: i})
			i++
			continue
		case ')':
			tokens = append(tokens, token{typ: tokRParen, value: ")", pos: i})
			i++
			continue
		case ',':
			tokens = append(tokens, token{typ: tokComma, value: ",", pos: i})
			i++
			continue
		}

		if i+1 < n {
			switch two := input[i : i+2]; two {
			case "!=", "<>", ">=", "<=":
				tokens = append(tokens, token{typ: tokOperator, value: two, pos: i})
				i += 2
				continue
			}
		}
		if ch == '=' || ch == '>' || ch == '<' {
			tokens = append(tokens, token{typ: tokOperator, value: string(ch), pos: i})
			i++
			continue
		}

		// 'it''s' is a string with an escaped quote.
		if ch == '\'' {
			start := i
			var sb strings.Builder
			closed := false
			for i++; i < n; i++ {
				if input[i] != '\'' {
					sb.WriteByte(input[i])
					continue
				}
				if i+1 < n && input[i+1] == '\'' {
					sb.WriteByte('\'')
					i++
					continue
				}
				i++
				closed = true
				break
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string literal starting at position %d", start)
			}
			tokens = append(tokens, token{typ: tokString, value: sb.String(), pos: start})
			continue
		}

		if isDigit(ch) || (ch == '-' && i+1 < n && isDigit(input[i+1])) {
			start := i
			i++
			for i < n && isDigit(input[i]) {
				i++
			}
			if i < n && input[i] == '.' {
				i++
				if i >= n || !isDigit(input[i]) {
					return nil, fmt.Errorf("invalid number at position %d: trailing decimal point", start)
				}
				for i < n && isDigit(input[i]) {
					i++
				}
			}
			tokens = append(tokens, token{typ: tokNumber, value: input[start:i], pos: start})
			continue
		}

		if isIdentStart(ch) {
			start := i
			for i < n && isIdentPart(input[i]) {
				i++
			}
			word := input[start:i]
			if kt, ok := keywords[strings.ToUpper(word)]; ok {
				tokens = append(tokens, token{typ: kt, value: strings.ToUpper(word), pos: start})
			} else {
				tokens = append(tokens, token{typ: tokIdentifier, value: word, pos: start})
			}
			continue
		}

		return nil, fmt.Errorf("unexpected character %q at position %d", string(ch), i)
	}
	return tokens, nil
}

// ---------------------------------------------------------------------------
// Parser (recursive descent)
// ---------------------------------------------------------------------------

type parser struct {
	tokens []token
	pos    int
	column ColumnFunc
	binds  int
}

func (p *parser) peek() *token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *parser) advance() *token {
	t := p.peek()
	if t != nil {
		p.pos++
	}
	return t
}

func (p *parser) expect(typ tokenType) (*token, error) {
	t := p.advance()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of filter, expected %v", typ)
	}
	if t.typ != typ {
		return nil, fmt.Errorf("expected %v but got %q at position %d", typ, t.value, t.pos)
	}
	return t, nil
}

func (p *parser) accept(typ tokenType) bool {
	if t := p.peek(); t != nil && t.typ == typ {
		p.pos++
		return true
	}
	return false
}

func (p *parser) bind(v any) clause.BindParam {
	p.binds++
	return clause.BindValue("filter_"+strconv.Itoa(p.binds), v)
}

// parseOr: or_expr → and_expr ( "OR" and_expr )*
func (p *parser) parseOr() (clause.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	exprs := []clause.Expression{left}
	for p.accept(tokOR) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, right)
	}
	if len(exprs) == 1 {
		return left, nil
	}
	return clause.OrOf(exprs...), nil
}

// parseAnd: and_expr → not_expr ( "AND" not_expr )*
func (p *parser) parseAnd() (clause.Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	exprs := []clause.Expression{left}
	for p.accept(tokAND) {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, right)
	}
	if len(exprs) == 1 {
		return left, nil
	}
	return clause.AndOf(exprs...), nil
}

// parseNot: not_expr → "NOT" not_expr | primary. NOT after a column (NOT IN,
// NOT LIKE, NOT BETWEEN) is handled by parseComparison.
func (p *parser) parseNot() (clause.Expression, error) {
	if p.accept(tokNOT) {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return clause.Not{Expr: inner}, nil
	}
	return p.parsePrimary()
}

// parsePrimary: primary → "(" or_expr ")" | comparison
func (p *parser) parsePrimary() (clause.Expression, error) {
	if p.peek() == nil {
		return nil, fmt.Errorf("unexpected end of filter expression")
	}
	if p.accept(tokLParen) {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parseComparison()
}

// parseComparison handles
//
//	column op value
//	column [NOT] IN (value, ...)
//	column [NOT] LIKE value
//	column [NOT] BETWEEN value AND value
//	column IS [NOT] NULL
//	column CONTAINS value
//	column STARTS WITH value
//	column ENDS WITH value
func (p *parser) parseComparison() (clause.Expression, error) {
	colTok, err := p.expect(tokIdentifier)
	if err != nil {
		return nil, fmt.Errorf("expected column name: %w", err)
	}
	col, err := p.columnRef(colTok.value)
	if err != nil {
		return nil, fmt.Errorf("invalid column name: %w", err)
	}
	name := colTok.value

	opTok := p.advance()
	if opTok == nil {
		return nil, fmt.Errorf("unexpected end of filter after column %q", name)
	}

	switch opTok.typ {
	case tokOperator:
		val, err := p.parseValue()
		if err != nil {
			return nil, fmt.Errorf("expected value after %s %s: %w", name, opTok.value, err)
		}
		return clause.Binary{Left: col, Op: opTok.value, Right: p.bind(val)}, nil

	case tokIS:
		negate := p.accept(tokNOT)
		if _, err := p.expect(tokNULL); err != nil {
			return nil, fmt.Errorf("expected NULL after %s IS: %w", name, err)
		}
		return clause.IsNull{Expr: col, Negate: negate}, nil

	case tokNOT:
		next := p.advance()
		if next == nil {
			return nil, fmt.Errorf("unexpected end of filter after %s NOT", name)
		}
		switch next.typ {
		case tokIN:
			return p.parseInList(col, name, true)
		case tokLIKE:
			return p.parseLike(col, name, true)
		case tokBETWEEN:
			return p.parseBetween(col, name, true)
		}
		return nil, fmt.Errorf("expected IN, LIKE, or BETWEEN after %s NOT, got %q", name, next.value)

	case tokIN:
		return p.parseInList(col, name, false)
	case tokLIKE:
		return p.parseLike(col, name, false)
	case tokBETWEEN:
		return p.parseBetween(col, name, false)

	case tokCONTAINS:
		return p.parsePattern(col, name, "CONTAINS", "%", "%")
	case tokSTARTS:
		if _, err := p.expect(tokWITH); err != nil {
			return nil, fmt.Errorf("expected WITH after %s STARTS: %w", name, err)
		}
		return p.parsePattern(col, name, "STARTS WITH", "", "%")
	case tokENDS:
		if _, err := p.expect(tokWITH); err != nil {
			return nil, fmt.Errorf("expected WITH after %s ENDS: %w", name, err)
		}
		return p.parsePattern(col, name, "ENDS WITH", "%", "")
	}
	return nil, fmt.Errorf("unexpected token %q after column %q at position %d", opTok.value, name, opTok.pos)
}

// parseInList consumes "(value, ...)" after IN.
func (p *parser) parseInList(col clause.Expression, name string, negate bool) (clause.Expression, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, fmt.Errorf("expected '(' after %s IN: %w", name, err)
	}
	var items []clause.Expression
	for {
		val, err := p.parseValue()
		if err != nil {
			return nil, fmt.Errorf("expected value in %s IN list: %w", name, err)
		}
		items = append(items, p.bind(val))
		if p.accept(tokComma) {
			continue
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, fmt.Errorf("in %s IN list: %w", name, err)
		}
		break
	}
	return clause.In{Expr: col, List: clause.Tuple{Exprs: items}, Negate: negate}, nil
}

func (p *parser) parseLike(col clause.Expression, name string, negate bool) (clause.Expression, error) {
	val, err := p.parseValue()
	if err != nil {
		return nil, fmt.Errorf("expected value after %s LIKE: %w", name, err)
	}
	return clause.Like{Expr: col, Pattern: p.bind(val), Negate: negate}, nil
}

// parseBetween consumes "low AND high" and renders it as a closed range.
func (p *parser) parseBetween(col clause.Expression, name string, negate bool) (clause.Expression, error) {
	low, err := p.parseValue()
	if err != nil {
		return nil, fmt.Errorf("expected lower bound after %s BETWEEN: %w", name, err)
	}
	if _, err := p.expect(tokAND); err != nil {
		return nil, fmt.Errorf("expected AND in %s BETWEEN: %w", name, err)
	}
	high, err := p.parseValue()
	if err != nil {
		return nil, fmt.Errorf("expected upper bound in %s BETWEEN: %w", name, err)
	}
	var e clause.Expression = clause.AndOf(clause.Gte(col, p.bind(low)), clause.Lte(col, p.bind(high)))
	if negate {
		e = clause.Not{Expr: e}
	}
	return e, nil
}

// parsePattern turns CONTAINS, STARTS WITH and ENDS WITH into LIKE.
func (p *parser) parsePattern(col clause.Expression, name, op, prefix, suffix string) (clause.Expression, error) {
	val, err := p.parseValue()
	if err != nil {
		return nil, fmt.Errorf("expected value after %s %s: %w", name, op, err)
	}
	s, ok := val.(string)
	if !ok {
		return nil, fmt.Errorf("%s requires a string value, got %T", op, val)
	}
	return clause.Like{Expr: col, Pattern: p.bind(prefix + s + suffix)}, nil
}

// parseValue consumes a string or number.
func (p *parser) parseValue() (any, error) {
	t := p.advance()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of filter, expected a value")
	}
	switch t.typ {
	case tokString:
		return SanitizeStringValue(t.value, maxStringValue)
	case tokNumber:
		if !strings.Contains(t.value, ".") {
			if n, err := strconv.ParseInt(t.value, 10, 64); err == nil {
				return n, nil
			}
		}
		f, err := strconv.ParseFloat(t.value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", t.value, err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("expected a value (string or number), got %q at position %d", t.value, t.pos)
}

// columnRef validates "column" or "table.column" and resolves it.
func (p *parser) columnRef(ref string) (clause.Expression, error) {
	parts := strings.Split(ref, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("column reference %q has too many parts (max: table.column)", ref)
	}
	for _, part := range parts {
		if err := ValidateIdentifier(part); err != nil {
			return nil, fmt.Errorf("in column reference %q: %w", ref, err)
		}
	}
	if len(parts) == 2 {
		return p.column(parts[0], parts[1]), nil
	}
	return p.column("", parts[0]), nil
}
