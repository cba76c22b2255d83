package parser

import (
	"github.com/funvibe/ember/internal/ast"
	"github.com/funvibe/ember/internal/token"
)

// parseStatement parses one statement starting at curToken and leaves
// curToken on its last token.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.LBRACE:
		return p.parseBlock()
	case token.LET:
		return p.parseDecl()
	case token.IF:
		return p.parseCond()
	case token.WHILE:
		return p.parseLoop()
	case token.FN:
		return p.parseFunc()
	case token.RETURN:
		return p.parseReturn()
	case token.BREAK:
		b := &ast.Break{Token: p.curToken}
		p.expectPeek(token.SEMICOLON)
		return b
	case token.IMPORT:
		imp := &ast.Import{Token: p.curToken}
		p.expectPeek(token.IDENT)
		imp.Name = &ast.Ident{Token: p.curToken, Name: p.curToken.Lexeme}
		p.expectPeek(token.SEMICOLON)
		return imp
	case token.CLASS:
		// A nested class declares its functions in the enclosing block.
		cls := p.parseClass()
		block := &ast.Block{Token: cls.Token}
		for _, f := range p.desugarClass(cls) {
			block.Statements = append(block.Statements, f)
		}
		return &inlineFuncs{block}
	case token.TRY:
		return p.parseTryCatch()
	case token.THROW:
		t := &ast.Throw{Token: p.curToken}
		p.nextToken()
		t.Value = p.parseExpression(LOWEST)
		p.expectPeek(token.SEMICOLON)
		return t
	}
	return p.parseExpressionStatement()
}

// inlineFuncs carries the functions of a nested class; parseBlock splices
// them into the enclosing statement list.
type inlineFuncs struct {
	*ast.Block
}

func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{Token: p.curToken}
	p.expectCur(token.LBRACE)
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.unexpected(p.curToken, describe(token.RBRACE))
		}
		stmt := p.parseStatement()
		if inl, ok := stmt.(*inlineFuncs); ok {
			block.Statements = append(block.Statements, inl.Statements...)
		} else {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	return block
}

// let a = expr;  let a, b = expr;
func (p *Parser) parseDecl() *ast.Decl {
	decl := &ast.Decl{Token: p.curToken}

	p.expectPeek(token.IDENT)
	decl.Names = append(decl.Names, &ast.Ident{Token: p.curToken, Name: p.curToken.Lexeme})
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.expectPeek(token.IDENT)
		decl.Names = append(decl.Names, &ast.Ident{Token: p.curToken, Name: p.curToken.Lexeme})
	}

	p.expectPeek(token.ASSIGN)
	p.nextToken()
	decl.Value = p.parseExpression(LOWEST)
	p.expectPeek(token.SEMICOLON)
	return decl
}

func (p *Parser) parseCond() *ast.Cond {
	cond := &ast.Cond{Token: p.curToken}
	cond.Test = p.parseParenTest()
	p.nextToken()
	cond.Then = p.parseNested()

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		p.nextToken()
		cond.Else = p.parseNested()
	}
	return cond
}

func (p *Parser) parseLoop() *ast.Loop {
	loop := &ast.Loop{Token: p.curToken}
	loop.Test = p.parseParenTest()
	p.nextToken()
	loop.Body = p.parseNested()
	return loop
}

// parseParenTest parses `( expr )` after if/while, leaving curToken on ')'.
func (p *Parser) parseParenTest() ast.Expression {
	p.expectPeek(token.LPAREN)
	p.nextToken()
	test := p.parseExpression(LOWEST)
	p.expectPeek(token.RPAREN)
	return test
}

// parseNested parses the body of if/else/while. A nested class is wrapped
// in a block of its own.
func (p *Parser) parseNested() ast.Statement {
	stmt := p.parseStatement()
	if inl, ok := stmt.(*inlineFuncs); ok {
		return inl.Block
	}
	return stmt
}

// fn name(a, b) { ... }
func (p *Parser) parseFunc() *ast.Func {
	fn := &ast.Func{Token: p.curToken}
	p.expectPeek(token.IDENT)
	fn.Name = p.curToken.Lexeme
	p.expectPeek(token.LPAREN)
	fn.Params = p.parseParams()
	p.expectPeek(token.LBRACE)
	fn.Body = p.parseBlock()
	return fn
}

// parseParams reads a parenthesised identifier list; curToken starts on '('
// and ends on ')'.
func (p *Parser) parseParams() []*ast.Ident {
	var params []*ast.Ident
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	p.expectPeek(token.IDENT)
	params = append(params, &ast.Ident{Token: p.curToken, Name: p.curToken.Lexeme})
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.expectPeek(token.IDENT)
		params = append(params, &ast.Ident{Token: p.curToken, Name: p.curToken.Lexeme})
	}
	p.expectPeek(token.RPAREN)
	return params
}

func (p *Parser) parseReturn() *ast.Return {
	ret := &ast.Return{Token: p.curToken}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return ret
	}
	p.nextToken()
	ret.Value = p.parseExpression(LOWEST)
	p.expectPeek(token.SEMICOLON)
	return ret
}

// try { ... } catch { ... }
func (p *Parser) parseTryCatch() *ast.TryCatch {
	tc := &ast.TryCatch{Token: p.curToken}
	p.expectPeek(token.LBRACE)
	tc.Body = p.parseBlock()
	p.expectPeek(token.CATCH)
	p.expectPeek(token.LBRACE)
	tc.Catch = p.parseBlock()
	return tc
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	expr := p.parseExpression(LOWEST)
	p.expectPeek(token.SEMICOLON)
	return expr
}
