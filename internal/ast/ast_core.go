package ast

import (
	"github.com/funvibe/ember/internal/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	Accept(v Visitor)
	GetToken() token.Token
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression. An expression used
// in statement position is evaluated and its value discarded.
type Expression interface {
	Statement
	expressionNode()
}

// Root is the node every parse produces. Funcs holds the top-level function
// declarations, including methods hoisted out of classes; Body holds the
// remaining top-level statements in source order.
type Root struct {
	File  string
	Funcs []*Func
	Body  []Statement
}

func (r *Root) Accept(v Visitor) { v.VisitRoot(r) }
func (r *Root) TokenLiteral() string {
	if len(r.Body) > 0 {
		return r.Body[0].TokenLiteral()
	}
	return ""
}
func (r *Root) GetToken() token.Token {
	if len(r.Funcs) > 0 {
		return r.Funcs[0].Token
	}
	if len(r.Body) > 0 {
		return r.Body[0].GetToken()
	}
	return token.Token{}
}

// Block is a braced statement list; it opens a fresh scope.
type Block struct {
	Token      token.Token // the '{' token
	Statements []Statement
}

func (b *Block) Accept(v Visitor)      { v.VisitBlock(b) }
func (b *Block) statementNode()        {}
func (b *Block) TokenLiteral() string  { return b.Token.Lexeme }
func (b *Block) GetToken() token.Token { return b.Token }

// Decl is a let statement. More than one name destructures a tuple.
// let a = 1;  let q, r = divmod(7, 2);
type Decl struct {
	Token token.Token // the 'let' token
	Names []*Ident
	Value Expression
}

func (d *Decl) Accept(v Visitor)      { v.VisitDecl(d) }
func (d *Decl) statementNode()        {}
func (d *Decl) TokenLiteral() string  { return d.Token.Lexeme }
func (d *Decl) GetToken() token.Token { return d.Token }

// Func declares a named function. It is a statement when nested inside a
// block and lives in Root.Funcs at top level.
type Func struct {
	Token  token.Token // the 'fn' token
	Name   string
	Params []*Ident
	Body   *Block
}

func (f *Func) Accept(v Visitor)      { v.VisitFunc(f) }
func (f *Func) statementNode()        {}
func (f *Func) TokenLiteral() string  { return f.Token.Lexeme }
func (f *Func) GetToken() token.Token { return f.Token }

type Return struct {
	Token token.Token
	Value Expression // nil for a bare return
}

func (r *Return) Accept(v Visitor)      { v.VisitReturn(r) }
func (r *Return) statementNode()        {}
func (r *Return) TokenLiteral() string  { return r.Token.Lexeme }
func (r *Return) GetToken() token.Token { return r.Token }

// Cond is if/else. Else is nil when absent.
type Cond struct {
	Token token.Token
	Test  Expression
	Then  Statement
	Else  Statement
}

func (c *Cond) Accept(v Visitor)      { v.VisitCond(c) }
func (c *Cond) statementNode()        {}
func (c *Cond) TokenLiteral() string  { return c.Token.Lexeme }
func (c *Cond) GetToken() token.Token { return c.Token }

// Loop is a while loop.
type Loop struct {
	Token token.Token
	Test  Expression
	Body  Statement
}

func (l *Loop) Accept(v Visitor)      { v.VisitLoop(l) }
func (l *Loop) statementNode()        {}
func (l *Loop) TokenLiteral() string  { return l.Token.Lexeme }
func (l *Loop) GetToken() token.Token { return l.Token }

type Break struct {
	Token token.Token
}

func (b *Break) Accept(v Visitor)      { v.VisitBreak(b) }
func (b *Break) statementNode()        {}
func (b *Break) TokenLiteral() string  { return b.Token.Lexeme }
func (b *Break) GetToken() token.Token { return b.Token }

// Import binds the top-level bindings of another unit as a dict.
type Import struct {
	Token token.Token
	Name  *Ident
}

func (i *Import) Accept(v Visitor)      { v.VisitImport(i) }
func (i *Import) statementNode()        {}
func (i *Import) TokenLiteral() string  { return i.Token.Lexeme }
func (i *Import) GetToken() token.Token { return i.Token }

// Class only exists between parsing and desugaring; the generator never
// sees one.
type Class struct {
	Token   token.Token
	Name    *Ident
	Methods []*Func
}

func (c *Class) Accept(v Visitor)      { v.VisitClass(c) }
func (c *Class) statementNode()        {}
func (c *Class) TokenLiteral() string  { return c.Token.Lexeme }
func (c *Class) GetToken() token.Token { return c.Token }

// TryCatch runs Body; a throw inside it transfers control to Catch with the
// thrown value bound to `exception`.
type TryCatch struct {
	Token token.Token
	Body  *Block
	Catch *Block
}

func (t *TryCatch) Accept(v Visitor)      { v.VisitTryCatch(t) }
func (t *TryCatch) statementNode()        {}
func (t *TryCatch) TokenLiteral() string  { return t.Token.Lexeme }
func (t *TryCatch) GetToken() token.Token { return t.Token }

type Throw struct {
	Token token.Token
	Value Expression
}

func (t *Throw) Accept(v Visitor)      { v.VisitThrow(t) }
func (t *Throw) statementNode()        {}
func (t *Throw) TokenLiteral() string  { return t.Token.Lexeme }
func (t *Throw) GetToken() token.Token { return t.Token }
