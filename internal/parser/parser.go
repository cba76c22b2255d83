// Package parser turns source text into an *ast.Root.
//
// Statements are parsed by recursive descent and expressions by precedence
// climbing. Parsing stops at the first error; there is no recovery and no
// partial tree.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/ember/internal/ast"
	"github.com/funvibe/ember/internal/diagnostics"
	"github.com/funvibe/ember/internal/lexer"
	"github.com/funvibe/ember/internal/token"
)

// Binding strength of binary operators, weakest first.
const (
	_ int = iota
	LOWEST
	COMMA
	ASSIGN
	OR
	AND
	COMPARE
	ADDITIVE
	MULTIPLICATIVE
)

var precedences = map[token.TokenType]int{
	token.COMMA:    COMMA,
	token.ASSIGN:   ASSIGN,
	token.OR:       OR,
	token.AND:      AND,
	token.EQ:       COMPARE,
	token.NOT_EQ:   COMPARE,
	token.LT:       COMPARE,
	token.GT:       COMPARE,
	token.LTE:      COMPARE,
	token.GTE:      COMPARE,
	token.PLUS:     ADDITIVE,
	token.MINUS:    ADDITIVE,
	token.ASTERISK: MULTIPLICATIVE,
	token.SLASH:    MULTIPLICATIVE,
}

type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	err *diagnostics.CompileError
}

// bailout unwinds the parser to ParseProgram after the first error.
type bailout struct{}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	return p
}

// Parse parses a whole compilation unit.
func Parse(source string) (*ast.Root, error) {
	return New(lexer.New(source)).ParseProgram()
}

func (p *Parser) ParseProgram() (root *ast.Root, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			root, err = nil, p.err
		}
	}()

	// fill curToken and peekToken
	p.nextToken()
	p.nextToken()

	root = &ast.Root{}
	for !p.curTokenIs(token.EOF) {
		switch p.curToken.Type {
		case token.FN:
			root.Funcs = append(root.Funcs, p.parseFunc())
		case token.CLASS:
			root.Funcs = append(root.Funcs, p.desugarClass(p.parseClass())...)
		default:
			root.Body = append(root.Body, p.parseStatement())
		}
		p.nextToken()
	}
	return root, nil
}

// parseSubExpression parses an interpolated `${...}` segment as a complete
// expression.
func parseSubExpression(src string, base token.Pos) (ast.Expression, *diagnostics.CompileError) {
	p := New(lexer.NewAt(src, base))
	var expr ast.Expression
	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(bailout); !ok {
					panic(r)
				}
			}
		}()
		p.nextToken()
		p.nextToken()
		if p.curTokenIs(token.EOF) {
			p.fail(p.curToken.Pos, "empty interpolation")
		}
		expr = p.parseExpression(LOWEST)
		p.expectPeek(token.EOF)
	}()
	if p.err != nil {
		return nil, p.err
	}
	return expr, nil
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	tok, err := p.l.NextToken()
	if err != nil {
		if ce, ok := err.(*diagnostics.CompileError); ok {
			p.err = ce
		} else {
			p.err = diagnostics.NewError(diagnostics.ErrLex, p.peekToken.Pos, "%v", err)
		}
		panic(bailout{})
	}
	p.peekToken = tok
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

// expectPeek advances if the next token has type t and fails otherwise.
func (p *Parser) expectPeek(t token.TokenType) {
	if !p.peekTokenIs(t) {
		p.unexpected(p.peekToken, describe(t))
	}
	p.nextToken()
}

// expectCur fails unless the current token has type t.
func (p *Parser) expectCur(t token.TokenType) {
	if !p.curTokenIs(t) {
		p.unexpected(p.curToken, describe(t))
	}
}

// unexpected fails on tok. Running out of input gets its own code so the
// REPL can ask for another line.
func (p *Parser) unexpected(tok token.Token, expected string) {
	code := diagnostics.ErrSyntax
	if tok.Type == token.EOF {
		code = diagnostics.ErrIncomplete
	}
	p.failCode(code, tok.Pos, "unexpected %s, expected %s", tok, expected)
}

func (p *Parser) fail(pos token.Pos, format string, args ...any) {
	p.failCode(diagnostics.ErrSyntax, pos, format, args...)
}

func (p *Parser) failCode(code diagnostics.ErrorCode, pos token.Pos, format string, args ...any) {
	if p.err == nil {
		p.err = diagnostics.NewError(code, pos, format, args...)
	}
	panic(bailout{})
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return 0
}

func describe(t token.TokenType) string {
	switch t {
	case token.IDENT:
		return "identifier"
	case token.EOF:
		return "end of input"
	}
	if token.IsKeyword(t) {
		return fmt.Sprintf("keyword %q", strings.ToLower(string(t)))
	}
	return fmt.Sprintf("%q", string(t))
}

// IsIncomplete reports whether err means the source ended too early, as
// opposed to being malformed.
func IsIncomplete(err error) bool {
	var ce *diagnostics.CompileError
	if !errors.As(err, &ce) {
		return false
	}
	if ce.Code == diagnostics.ErrIncomplete {
		return true
	}
	return ce.Code == diagnostics.ErrLex && strings.HasPrefix(ce.Message, "unterminated")
}

func withFile(err error, file string) error {
	if ce, ok := err.(*diagnostics.CompileError); ok {
		return ce.WithFile(file)
	}
	return err
}
