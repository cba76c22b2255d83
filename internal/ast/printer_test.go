package ast

import (
	"testing"

	"github.com/funvibe/ember/internal/token"
)

func ident(name string) *Ident { return &Ident{Name: name} }

func TestPrint(t *testing.T) {
	root := &Root{
		Funcs: []*Func{{
			Name:   "add",
			Params: []*Ident{ident("a"), ident("b")},
			Body: &Block{Statements: []Statement{
				&Return{Value: &Binary{Op: token.PLUS, Left: ident("a"), Right: ident("b")}},
			}},
		}},
		Body: []Statement{
			&Decl{Names: []*Ident{ident("x")}, Value: &Call{Callee: ident("add"), Args: []Expression{
				&Number{Value: 1}, &Number{Value: 2.5},
			}}},
			&Cond{Test: &Unary{Op: token.BANG, Operand: ident("x")}, Then: &Block{}},
			&Binary{Op: token.ASSIGN, Left: &Member{Target: ident("d"), Name: "k"}, Right: &String{Value: "v"}},
			&Loop{Test: &Index{Target: ident("a"), Index: &Number{Value: 0}}, Body: &Block{Statements: []Statement{&Break{}}}},
		},
	}

	want := `(fn add (a b) (block (return (+ a b))))
(let (x) (call add 1 2.5))
(if (! x) (block))
(= (. d k) "v")
(while (index a 0) (block (break)))`

	if got := Print(root); got != want {
		t.Errorf("Print mismatch.\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFlatten(t *testing.T) {
	// (a, b), c
	e := &Binary{Op: token.COMMA,
		Left:  &Binary{Op: token.COMMA, Left: ident("a"), Right: ident("b")},
		Right: ident("c"),
	}
	got := Flatten(e)
	if len(got) != 3 {
		t.Fatalf("got %d elements, want 3", len(got))
	}
	for i, name := range []string{"a", "b", "c"} {
		if got[i].(*Ident).Name != name {
			t.Errorf("element %d = %s, want %s", i, got[i].(*Ident).Name, name)
		}
	}
	if n := len(Flatten(ident("x"))); n != 1 {
		t.Errorf("single expression flattened to %d elements", n)
	}
}
