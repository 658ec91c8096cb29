package formula

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax reports that a formula does not conform to the restricted grammar.
var ErrSyntax = errors.New("invalid output formula")

func syntaxErrorf(pos int, format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: "+format, append([]any{ErrSyntax, pos}, args...)...)
}

// Expr is a parsed output_formula. An Expr is immutable and safe for
// concurrent evaluation.
type Expr struct {
	src  string
	root node
}

// Parse compiles a formula. The grammar is:
//
//	expr    = term { ("+" | "-") term }
//	term    = factor { ("*" | "/") factor }
//	factor  = number | "params" "[" string "]" | call | "(" expr ")"
//	call    = ("len" | "ceil") "(" expr ")"
//
// Nothing else is accepted: no attribute access, no other calls, no names.
func Parse(src string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, syntaxErrorf(0, "formula cannot be empty")
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, syntaxErrorf(tok.pos, "unexpected %s", describe(tok))
	}
	return &Expr{src: src, root: root}, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or for formulas known to be valid.
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source text of the formula.
func (e *Expr) String() string {
	return e.src
}

// Params returns the parameter names the formula reads, in first-use order.
func (e *Expr) Params() []string {
	var names []string
	seen := make(map[string]bool)
	walk(e.root, func(n node) {
		if ref, ok := n.(paramRef); ok && !seen[ref.name] {
			seen[ref.name] = true
			names = append(names, ref.name)
		}
	})
	return names
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, syntaxErrorf(tok.pos, "expected %s, found %s", kind, describe(tok))
	}
	return tok, nil
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokPlus && tok.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binary{op: tok.kind, left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokStar && tok.kind != tokSlash {
			return left, nil
		}
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = binary{op: tok.kind, left: left, right: right}
	}
}

func (p *parser) parseFactor() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return number{value: tok.num}, nil
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		return p.parseIdent(tok)
	default:
		return nil, syntaxErrorf(tok.pos, "unexpected %s", describe(tok))
	}
}

func (p *parser) parseIdent(tok token) (node, error) {
	switch tok.text {
	case "params":
		if _, err := p.expect(tokLBracket); err != nil {
			return nil, err
		}
		key, err := p.expect(tokString)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRBracket); err != nil {
			return nil, err
		}
		return paramRef{name: key.text}, nil
	case "len", "ceil":
		if _, err := p.expect(tokLParen); err != nil {
			return nil, err
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if next := p.peek(); next.kind == tokComma {
			return nil, syntaxErrorf(next.pos, "%s takes exactly one argument", tok.text)
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return call{fn: tok.text, arg: arg}, nil
	default:
		return nil, syntaxErrorf(tok.pos, "name %q is not permitted", tok.text)
	}
}

func describe(tok token) string {
	if tok.kind == tokEOF {
		return tok.kind.String()
	}
	return fmt.Sprintf("%s %q", tok.kind, tok.text)
}
