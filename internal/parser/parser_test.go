package parser

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/funvibe/ember/internal/ast"
	"github.com/funvibe/ember/internal/diagnostics"
)

var update = flag.Bool("update", false, "update snapshot files")

func parse(t *testing.T, input string) *ast.Root {
	t.Helper()
	root, err := Parse(input)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return root
}

func parseError(t *testing.T, input string) *diagnostics.CompileError {
	t.Helper()
	_, err := Parse(input)
	if err == nil {
		t.Fatalf("expected parse error for %q", input)
	}
	var ce *diagnostics.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("error is %T, want *diagnostics.CompileError", err)
	}
	return ce
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let a = 1 + 2 * 3;", "(let (a) (+ 1 (* 2 3)))"},
		{"(1 + 2) * 3;", "(* (+ 1 2) 3)"},
		{"1 - 2 - 3;", "(- (- 1 2) 3)"},
		{"a / b * c;", "(* (/ a b) c)"},
		{"a = b = 3;", "(= a (= b 3))"},
		{"1 < 2 && 3 > 2;", "(&& (< 1 2) (> 3 2))"},
		{"a || b && c;", "(|| a (&& b c))"},
		{"a == b != c;", "(!= (== a b) c)"},
		{"a <= b + 1;", "(<= a (+ b 1))"},
		{"x = a >= b;", "(= x (>= a b))"},
		{"(a, b) = (3, 4);", "(= (, a b) (, 3 4))"},
		{"x = 1, 2;", "(, (= x 1) 2)"},
		{"let q, r = 1, 2;", "(let (q r) (, 1 2))"},
		{"-a * !b;", "(* (- a) (! b))"},
		{"+-x;", "(+ (- x))"},
		{"f(1, 2)[0].x(y);", "(call (. (index (call f 1 2) 0) x) y)"},
		{"f((1, 2));", "(call f (, 1 2))"},
		{"g();", "(call g)"},
		{"a.b.c = 1;", "(= (. (. a b) c) 1)"},
		{"a[i][j] = a[j];", "(= (index (index a i) j) (index a j))"},
		{"[1, 2, 3];", "(call list 1 2 3)"},
		{"[];", "(call list)"},
		{"[1, 2,];", "(call list 1 2)"},
		{`let d = {a: 1, "b": 2};`, `(let (d) (call dict (call list "a" "b") (call list 1 2)))`},
		{"let e = {};", "(let (e) (call dict (call list) (call list)))"},
		{"let k = {n + 1: v};", "(let (k) (call dict (call list (+ n 1)) (call list v)))"},
		{"let h = 0x10;", "(let (h) 16)"},
		{"let f = 2.5e3;", "(let (f) 2500)"},
		{`let s = 'it\'s';`, `(let (s) "it's")`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ast.Print(parse(t, tt.input))
			if got != tt.expected {
				t.Errorf("expected=%q, got=%q", tt.expected, got)
			}
		})
	}
}

func TestFStrings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`let s = f"x=${x + 1}!";`, `(let (s) (+ (+ "x=" (call str (+ x 1))) "!"))`},
		{`let s = f"${a}${b}";`, `(let (s) (+ (call str a) (call str b)))`},
		{`let s = f"plain\t";`, `(let (s) "plain\t")`},
		{`let s = f"";`, `(let (s) "")`},
		{`let s = f"${d['k']}";`, `(let (s) (call str (index d "k")))`},
		{`let s = f"${d["k"] + "}"}!";`, `(let (s) (+ (call str (+ (index d "k") "}")) "!"))`},
		{`let s = f"${ {a: 1}.a }";`, `(let (s) (call str (. (call dict (call list "a") (call list 1)) a)))`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ast.Print(parse(t, tt.input))
			if got != tt.expected {
				t.Errorf("expected=%q, got=%q", tt.expected, got)
			}
		})
	}
}

func TestStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"if (a) b; else { c; }", "(if a b (block c))"},
		{"if (a) if (b) c; else d;", "(if a (if b c d))"},
		{"while (i < 3) { i = i + 1; break; }", "(while (< i 3) (block (= i (+ i 1)) (break)))"},
		{`try { throw "x"; } catch { print(exception); }`, `(try (block (throw "x")) (block (call print exception)))`},
		{"import m;", "(import m)"},
		{"fn f(a) { return; }", "(fn f (a) (block (return)))"},
		{"{ fn g() { return 1, 2; } }", "(block (fn g () (block (return (, 1 2)))))"},
		{"{ let x = 1; { let x = 2; } }", "(block (let (x) 1) (block (let (x) 2)))"},
		{"LET x = 1; While (x) Break;", "(let (x) 1)\n(while x (break))"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ast.Print(parse(t, tt.input))
			if got != tt.expected {
				t.Errorf("expected=%q, got=%q", tt.expected, got)
			}
		})
	}
}

func TestTopLevelFunctionsAreSeparated(t *testing.T) {
	root := parse(t, "let a = 1; fn f() {} print(a); fn g(x) {}")
	if len(root.Funcs) != 2 || root.Funcs[0].Name != "f" || root.Funcs[1].Name != "g" {
		t.Fatalf("unexpected funcs:\n%s", spew.Sdump(root.Funcs))
	}
	if len(root.Body) != 2 {
		t.Fatalf("body has %d statements, want 2", len(root.Body))
	}
}

func TestClassDesugaring(t *testing.T) {
	input := `class Pair {
	fn Pair(a, b) { this.a = a; this.b = b; }
	fn sum() { return this.a + this.b; }
}`
	want := strings.Join([]string{
		"(fn Pair$Pair (a b) (block (= (. this a) a) (= (. this b) b)))",
		"(fn Pair$sum () (block (return (+ (. this a) (. this b)))))",
		"(fn Pair (a b) (block (block (let (this) (call dict (call list) (call list))) (= (. this Pair) Pair$Pair) (= (. this sum) Pair$sum) (call (. this Pair) a b) (return this))))",
	}, "\n")
	if got := ast.Print(parse(t, input)); got != want {
		t.Errorf("class desugaring mismatch.\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestClassWithoutConstructor(t *testing.T) {
	root := parse(t, "class Counter { fn inc() { this.n = this.n + 1; } }")
	ctor := root.Funcs[len(root.Funcs)-1]
	if ctor.Name != "Counter" || len(ctor.Params) != 0 {
		t.Fatalf("unexpected constructor %s/%d", ctor.Name, len(ctor.Params))
	}
	want := "(fn Counter () (block (block (let (this) (call dict (call list) (call list))) (= (. this inc) Counter$inc) (return this))))"
	if got := ast.Print(ctor); got != want {
		t.Errorf("got %s", got)
	}
}

func TestNestedClass(t *testing.T) {
	got := ast.Print(parse(t, "{ class A { fn m() {} } let a = A(); }"))
	want := "(block (fn A$m () (block)) (fn A () (block (block (let (this) (call dict (call list) (call list))) (= (. this m) A$m) (return this)))) (let (a) (call A)))"
	if got != want {
		t.Errorf("got %s", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		code    diagnostics.ErrorCode
		line    int
		column  int
		message string
	}{
		{"missing name", "let = 1;", diagnostics.ErrSyntax, 1, 5, `unexpected "=", expected identifier`},
		{"missing semicolon", "let a = 1", diagnostics.ErrIncomplete, 1, 10, `expected ";"`},
		{"missing paren", "if a) x;", diagnostics.ErrSyntax, 1, 4, `unexpected IDENT "a", expected "("`},
		{"missing operand", "1 +;", diagnostics.ErrSyntax, 1, 4, "expected expression"},
		{"unclosed block", "{ a;", diagnostics.ErrIncomplete, 1, 5, `expected "}"`},
		{"non-method in class", "class C { let x = 1; }", diagnostics.ErrSyntax, 1, 11, `expected keyword "fn" in class C`},
		{"two constructors", "class C { fn C() {} fn C(a) {} }", diagnostics.ErrClass, 1, 21, "more than one constructor"},
		{"empty interpolation", `let s = f"${}";`, diagnostics.ErrSyntax, 1, 13, "empty interpolation"},
		{"unterminated interpolation", `let s = f"${a";`, diagnostics.ErrLex, 1, 11, "unterminated interpolation"},
		{"bad interpolation", `let s = f"a ${1 +} b";`, diagnostics.ErrSyntax, 1, 18, "expected expression"},
		{"lexer error surfaces", `let s = "abc`, diagnostics.ErrLex, 1, 9, "unterminated string"},
		{"catch required", "try { } x;", diagnostics.ErrSyntax, 1, 9, `expected keyword "catch"`},
		{"keyword as name", "fn while() {}", diagnostics.ErrSyntax, 1, 4, `unexpected keyword "while", expected identifier`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError(t, tt.input)
			if err.Code != tt.code {
				t.Errorf("code = %s, want %s (%v)", err.Code, tt.code, err)
			}
			if err.Pos.Line != tt.line || err.Pos.Column != tt.column {
				t.Errorf("position %d:%d, want %d:%d (%v)", err.Pos.Line, err.Pos.Column, tt.line, tt.column, err)
			}
			if !strings.Contains(err.Message, tt.message) {
				t.Errorf("message %q does not contain %q", err.Message, tt.message)
			}
		})
	}
}

func TestIsIncomplete(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"fn f() {", true},
		{"let s = \"abc", true},
		{"/* open", true},
		{"let = 1;", false},
		{"let a = 1;", false},
	}
	for _, tt := range tests {
		_, err := Parse(tt.input)
		if got := IsIncomplete(err); got != tt.want {
			t.Errorf("IsIncomplete(%q) = %v, want %v (err=%v)", tt.input, got, tt.want, err)
		}
	}
}

func TestSnapshots(t *testing.T) {
	files, err := filepath.Glob("testdata/*.em")
	if err != nil {
		t.Fatal(err)
	}
	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			src, err := os.ReadFile(file)
			if err != nil {
				t.Fatal(err)
			}
			got := ast.Print(parse(t, string(src))) + "\n"
			snap := strings.TrimSuffix(file, ".em") + ".snap"
			if *update {
				if err := os.WriteFile(snap, []byte(got), 0644); err != nil {
					t.Fatal(err)
				}
				return
			}
			want, err := os.ReadFile(snap)
			if err != nil {
				t.Fatalf("missing snapshot %s (run with -update): %v", snap, err)
			}
			if got != string(want) {
				t.Errorf("snapshot mismatch for %s.\n got:\n%s\nwant:\n%s", file, got, want)
			}
		})
	}
}
