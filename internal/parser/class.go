package parser

import (
	"github.com/funvibe/ember/internal/ast"
	"github.com/funvibe/ember/internal/diagnostics"
	"github.com/funvibe/ember/internal/token"
)

// MethodSeparator joins a class name and a method name in the mangled name
// of the hoisted method function. It cannot appear in an identifier.
const MethodSeparator = "$"

// class Name { fn a() {...} fn Name(x) {...} }
func (p *Parser) parseClass() *ast.Class {
	cls := &ast.Class{Token: p.curToken}
	p.expectPeek(token.IDENT)
	cls.Name = &ast.Ident{Token: p.curToken, Name: p.curToken.Lexeme}
	p.expectPeek(token.LBRACE)
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) {
		if !p.curTokenIs(token.FN) {
			p.unexpected(p.curToken, describe(token.FN)+" in class "+cls.Name.Name)
		}
		cls.Methods = append(cls.Methods, p.parseFunc())
		p.nextToken()
	}
	return cls
}

// desugarClass lowers a class to plain functions: every method becomes
// Name$method, and a constructor function Name builds the instance dict.
//
//	fn Name(params) {
//	    {
//	        let this = dict(list(), list());
//	        this.method = Name$method;    // for every method
//	        this.Name(params);            // only with an explicit constructor
//	        return this;
//	    }
//	}
//
// The inner block scopes the new this, so a constructor reached through a
// member call (mod.Name()) does not collide with the receiver bound there.
func (p *Parser) desugarClass(cls *ast.Class) []*ast.Func {
	name := cls.Name.Name
	tok := cls.Token

	var ctor *ast.Func
	funcs := make([]*ast.Func, 0, len(cls.Methods)+1)
	for _, m := range cls.Methods {
		if m.Name == name {
			if ctor != nil {
				p.err = diagnostics.NewError(diagnostics.ErrClass, m.Token.Pos,
					"class %s declares more than one constructor", name)
				panic(bailout{})
			}
			ctor = m
		}
	}

	ident := func(n string) *ast.Ident { return &ast.Ident{Token: tok, Name: n} }
	this := func() *ast.Ident { return ident("this") }
	assign := token.Token{Type: token.ASSIGN, Lexeme: "=", Literal: "=", Pos: tok.Pos}

	body := &ast.Block{Token: tok}
	body.Statements = append(body.Statements, &ast.Decl{
		Token: tok,
		Names: []*ast.Ident{this()},
		Value: builtinCall(tok, "dict", builtinCall(tok, "list"), builtinCall(tok, "list")),
	})

	for _, m := range cls.Methods {
		mangled := name + MethodSeparator + m.Name
		funcs = append(funcs, &ast.Func{Token: m.Token, Name: mangled, Params: m.Params, Body: m.Body})
		body.Statements = append(body.Statements, &ast.Binary{
			Token: assign,
			Op:    token.ASSIGN,
			Left:  &ast.Member{Token: m.Token, Target: this(), Name: m.Name},
			Right: ident(mangled),
		})
	}

	var params []*ast.Ident
	if ctor != nil {
		call := &ast.Call{Token: ctor.Token, Callee: &ast.Member{Token: ctor.Token, Target: this(), Name: name}}
		for _, param := range ctor.Params {
			params = append(params, &ast.Ident{Token: param.Token, Name: param.Name})
			call.Args = append(call.Args, &ast.Ident{Token: param.Token, Name: param.Name})
		}
		body.Statements = append(body.Statements, call)
	}
	body.Statements = append(body.Statements, &ast.Return{Token: tok, Value: this()})

	outer := &ast.Block{Token: tok, Statements: []ast.Statement{body}}
	funcs = append(funcs, &ast.Func{Token: tok, Name: name, Params: params, Body: outer})
	return funcs
}
