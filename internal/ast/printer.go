package ast

import (
	"bytes"
	"strconv"
	"strings"
)

// TreePrinter renders a tree as S-expressions, one top-level item per line.
// The output is stable and used for parser golden tests and `ember check -ast`.
type TreePrinter struct {
	buf bytes.Buffer
}

// Print renders n.
func Print(n Node) string {
	p := &TreePrinter{}
	n.Accept(p)
	return strings.TrimRight(p.buf.String(), "\n")
}

func (p *TreePrinter) write(s string) { p.buf.WriteString(s) }

func (p *TreePrinter) open(head string) {
	p.write("(")
	p.write(head)
}

func (p *TreePrinter) child(n Node) {
	p.write(" ")
	if n == nil {
		p.write("nil")
		return
	}
	n.Accept(p)
}

func (p *TreePrinter) names(ids []*Ident) {
	p.write(" (")
	for i, id := range ids {
		if i > 0 {
			p.write(" ")
		}
		p.write(id.Name)
	}
	p.write(")")
}

func (p *TreePrinter) VisitRoot(r *Root) {
	for _, f := range r.Funcs {
		f.Accept(p)
		p.write("\n")
	}
	for _, s := range r.Body {
		s.Accept(p)
		p.write("\n")
	}
}

func (p *TreePrinter) VisitBlock(b *Block) {
	p.open("block")
	for _, s := range b.Statements {
		p.child(s)
	}
	p.write(")")
}

func (p *TreePrinter) VisitDecl(d *Decl) {
	p.open("let")
	p.names(d.Names)
	p.child(d.Value)
	p.write(")")
}

func (p *TreePrinter) VisitFunc(f *Func) {
	p.open("fn " + f.Name)
	p.names(f.Params)
	p.child(f.Body)
	p.write(")")
}

func (p *TreePrinter) VisitReturn(r *Return) {
	p.open("return")
	if r.Value != nil {
		p.child(r.Value)
	}
	p.write(")")
}

func (p *TreePrinter) VisitCond(c *Cond) {
	p.open("if")
	p.child(c.Test)
	p.child(c.Then)
	if c.Else != nil {
		p.child(c.Else)
	}
	p.write(")")
}

func (p *TreePrinter) VisitLoop(l *Loop) {
	p.open("while")
	p.child(l.Test)
	p.child(l.Body)
	p.write(")")
}

func (p *TreePrinter) VisitBreak(*Break) { p.write("(break)") }

func (p *TreePrinter) VisitImport(i *Import) {
	p.write("(import " + i.Name.Name + ")")
}

func (p *TreePrinter) VisitClass(c *Class) {
	p.open("class " + c.Name.Name)
	for _, m := range c.Methods {
		p.child(m)
	}
	p.write(")")
}

func (p *TreePrinter) VisitTryCatch(t *TryCatch) {
	p.open("try")
	p.child(t.Body)
	p.child(t.Catch)
	p.write(")")
}

func (p *TreePrinter) VisitThrow(t *Throw) {
	p.open("throw")
	p.child(t.Value)
	p.write(")")
}

func (p *TreePrinter) VisitIdent(i *Ident) { p.write(i.Name) }

func (p *TreePrinter) VisitNumber(n *Number) {
	p.write(strconv.FormatFloat(n.Value, 'g', -1, 64))
}

func (p *TreePrinter) VisitString(s *String) { p.write(strconv.Quote(s.Value)) }

func (p *TreePrinter) VisitUnary(u *Unary) {
	p.open(string(u.Op))
	p.child(u.Operand)
	p.write(")")
}

func (p *TreePrinter) VisitBinary(b *Binary) {
	p.open(string(b.Op))
	p.child(b.Left)
	p.child(b.Right)
	p.write(")")
}

func (p *TreePrinter) VisitCall(c *Call) {
	p.open("call")
	p.child(c.Callee)
	for _, a := range c.Args {
		p.child(a)
	}
	p.write(")")
}

func (p *TreePrinter) VisitIndex(i *Index) {
	p.open("index")
	p.child(i.Target)
	p.child(i.Index)
	p.write(")")
}

func (p *TreePrinter) VisitMember(m *Member) {
	p.open(".")
	p.child(m.Target)
	p.write(" " + m.Name + ")")
}
