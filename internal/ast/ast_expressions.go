package ast

import (
	"github.com/funvibe/ember/internal/token"
)

type Ident struct {
	Token token.Token
	Name  string
}

func (i *Ident) Accept(v Visitor)      { v.VisitIdent(i) }
func (i *Ident) statementNode()        {}
func (i *Ident) expressionNode()       {}
func (i *Ident) TokenLiteral() string  { return i.Token.Lexeme }
func (i *Ident) GetToken() token.Token { return i.Token }

type Number struct {
	Token token.Token
	Value float64
}

func (n *Number) Accept(v Visitor)      { v.VisitNumber(n) }
func (n *Number) statementNode()        {}
func (n *Number) expressionNode()       {}
func (n *Number) TokenLiteral() string  { return n.Token.Lexeme }
func (n *Number) GetToken() token.Token { return n.Token }

// String holds an already decoded literal.
type String struct {
	Token token.Token
	Value string
}

func (s *String) Accept(v Visitor)      { v.VisitString(s) }
func (s *String) statementNode()        {}
func (s *String) expressionNode()       {}
func (s *String) TokenLiteral() string  { return s.Token.Lexeme }
func (s *String) GetToken() token.Token { return s.Token }

// Unary is one of + - ! applied to Operand.
type Unary struct {
	Token   token.Token
	Op      token.TokenType
	Operand Expression
}

func (u *Unary) Accept(v Visitor)      { v.VisitUnary(u) }
func (u *Unary) statementNode()        {}
func (u *Unary) expressionNode()       {}
func (u *Unary) TokenLiteral() string  { return u.Token.Lexeme }
func (u *Unary) GetToken() token.Token { return u.Token }

// Binary covers arithmetic, comparison, the short-circuit operators,
// assignment (token.ASSIGN) and the tuple comma (token.COMMA).
type Binary struct {
	Token token.Token // the operator token
	Op    token.TokenType
	Left  Expression
	Right Expression
}

func (b *Binary) Accept(v Visitor)      { v.VisitBinary(b) }
func (b *Binary) statementNode()        {}
func (b *Binary) expressionNode()       {}
func (b *Binary) TokenLiteral() string  { return b.Token.Lexeme }
func (b *Binary) GetToken() token.Token { return b.Token }

type Call struct {
	Token  token.Token // the '(' token
	Callee Expression
	Args   []Expression
}

func (c *Call) Accept(v Visitor)      { v.VisitCall(c) }
func (c *Call) statementNode()        {}
func (c *Call) expressionNode()       {}
func (c *Call) TokenLiteral() string  { return c.Token.Lexeme }
func (c *Call) GetToken() token.Token { return c.Token }

type Index struct {
	Token  token.Token // the '[' token
	Target Expression
	Index  Expression
}

func (i *Index) Accept(v Visitor)      { v.VisitIndex(i) }
func (i *Index) statementNode()        {}
func (i *Index) expressionNode()       {}
func (i *Index) TokenLiteral() string  { return i.Token.Lexeme }
func (i *Index) GetToken() token.Token { return i.Token }

// Member is target.name.
type Member struct {
	Token  token.Token // the '.' token
	Target Expression
	Name   string
}

func (m *Member) Accept(v Visitor)      { v.VisitMember(m) }
func (m *Member) statementNode()        {}
func (m *Member) expressionNode()       {}
func (m *Member) TokenLiteral() string  { return m.Token.Lexeme }
func (m *Member) GetToken() token.Token { return m.Token }

// Flatten expands a left-nested comma chain into its elements.
func Flatten(e Expression) []Expression {
	if b, ok := e.(*Binary); ok && b.Op == token.COMMA {
		return append(Flatten(b.Left), Flatten(b.Right)...)
	}
	return []Expression{e}
}
