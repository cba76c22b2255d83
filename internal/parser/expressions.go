package parser

import (
	"github.com/funvibe/ember/internal/ast"
	"github.com/funvibe/ember/internal/token"
)

// parseExpression climbs binary operators binding at least as tightly as
// min. curToken starts on the first token of the expression and ends on its
// last. Assignment is right-associative; everything else associates left.
func (p *Parser) parseExpression(min int) ast.Expression {
	left := p.parseUnary()
	for {
		prec := p.peekPrecedence()
		if prec == 0 || prec < min {
			return left
		}
		p.nextToken()
		op := p.curToken
		p.nextToken()

		next := prec + 1
		if op.Type == token.ASSIGN {
			next = prec
		}
		right := p.parseExpression(next)
		left = &ast.Binary{Token: op, Op: op.Type, Left: left, Right: right}
	}
}

// parseOperand parses an expression that may not contain a bare comma:
// call arguments, list elements, dict entries and index expressions.
func (p *Parser) parseOperand() ast.Expression {
	return p.parseExpression(ASSIGN)
}

func (p *Parser) parseUnary() ast.Expression {
	switch p.curToken.Type {
	case token.PLUS, token.MINUS, token.BANG:
		u := &ast.Unary{Token: p.curToken, Op: p.curToken.Type}
		p.nextToken()
		u.Operand = p.parseUnary()
		return u
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parsePrimary() ast.Expression {
	tok := p.curToken
	switch tok.Type {
	case token.NUMBER:
		return &ast.Number{Token: tok, Value: tok.Literal.(float64)}
	case token.STRING:
		return &ast.String{Token: tok, Value: tok.Literal.(string)}
	case token.FSTRING:
		return p.parseFString(tok)
	case token.IDENT:
		return &ast.Ident{Token: tok, Name: tok.Lexeme}
	case token.LPAREN:
		p.nextToken()
		expr := p.parseExpression(LOWEST)
		p.expectPeek(token.RPAREN)
		return expr
	case token.LBRACKET:
		return p.parseListLiteral()
	case token.LBRACE:
		return p.parseDictLiteral()
	}
	p.unexpected(tok, "expression")
	return nil
}

func (p *Parser) parsePostfix(expr ast.Expression) ast.Expression {
	for {
		switch p.peekToken.Type {
		case token.LPAREN:
			p.nextToken()
			call := &ast.Call{Token: p.curToken, Callee: expr}
			call.Args = p.parseExpressionList(token.RPAREN)
			expr = call
		case token.LBRACKET:
			p.nextToken()
			idx := &ast.Index{Token: p.curToken, Target: expr}
			p.nextToken()
			idx.Index = p.parseOperand()
			p.expectPeek(token.RBRACKET)
			expr = idx
		case token.DOT:
			p.nextToken()
			m := &ast.Member{Token: p.curToken, Target: expr}
			p.expectPeek(token.IDENT)
			m.Name = p.curToken.Lexeme
			expr = m
		default:
			return expr
		}
	}
}

// parseExpressionList reads comma separated operands up to end. curToken
// starts on the opening delimiter and ends on end. A trailing comma is
// accepted.
func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	var list []ast.Expression
	for {
		if p.peekTokenIs(end) {
			p.nextToken()
			return list
		}
		p.nextToken()
		list = append(list, p.parseOperand())
		if !p.peekTokenIs(end) {
			p.expectPeek(token.COMMA)
		}
	}
}

// [a, b] is list(a, b).
func (p *Parser) parseListLiteral() ast.Expression {
	tok := p.curToken
	elems := p.parseExpressionList(token.RBRACKET)
	return builtinCall(tok, "list", elems...)
}

// {k: v, "s": w} is dict(list("k", "s"), list(v, w)). A bare identifier key
// names the entry; any other key is evaluated.
func (p *Parser) parseDictLiteral() ast.Expression {
	tok := p.curToken
	var keys, values []ast.Expression
	for {
		if p.peekTokenIs(token.RBRACE) {
			p.nextToken()
			break
		}
		p.nextToken()
		if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.COLON) {
			keys = append(keys, &ast.String{Token: p.curToken, Value: p.curToken.Lexeme})
		} else {
			keys = append(keys, p.parseExpression(OR))
		}
		p.expectPeek(token.COLON)
		p.nextToken()
		values = append(values, p.parseOperand())
		if !p.peekTokenIs(token.RBRACE) {
			p.expectPeek(token.COMMA)
		}
	}
	return builtinCall(tok, "dict", builtinCall(tok, "list", keys...), builtinCall(tok, "list", values...))
}

func builtinCall(tok token.Token, name string, args ...ast.Expression) *ast.Call {
	return &ast.Call{
		Token:  tok,
		Callee: &ast.Ident{Token: tok, Name: name},
		Args:   args,
	}
}
