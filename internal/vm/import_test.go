package vm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/funvibe/ember/internal/bytecode"
	"github.com/funvibe/ember/internal/compiler"
)

func sourceLoader(sources map[string]string) ModuleLoader {
	return LoaderFunc(func(name string) (*bytecode.Binary, error) {
		src, ok := sources[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrModuleNotFound)
		}
		return compiler.CompileSource(name+".em", src)
	})
}

func runWithModules(t *testing.T, modules map[string]string, src string) (*Machine, *bytes.Buffer, error) {
	t.Helper()
	m := New()
	var out bytes.Buffer
	m.SetOutput(&out)
	m.SetLoader(sourceLoader(modules))
	err := m.Exec(context.Background(), 0, compile(t, "main.em", src), 0)
	return m, &out, err
}

var mathModule = map[string]string{
	"m": `print("side"); let x = 42; fn get() { return x; } fn add(a, b) { return a + b; }`,
}

func TestImportRunsEveryTime(t *testing.T) {
	m, out, err := runWithModules(t, mathModule, "import m; import m; let v = m.x; let g = m.get(); let s = m.add(1, 2);")
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "side\nside\n" {
		t.Errorf("output = %q, want the side effect twice", out.String())
	}
	for name, want := range map[string]string{"v": "42", "g": "42", "s": "3"} {
		if got := global(t, m, name); got != want {
			t.Errorf("%s = %s, want %s", name, got, want)
		}
	}
}

func TestImportInsideFunction(t *testing.T) {
	m, out, err := runWithModules(t, mathModule, "fn load() { import m; return m.x; } let a = load(); let b = load();")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out.String(), "side") != 2 {
		t.Errorf("output = %q", out.String())
	}
	if got := global(t, m, "b"); got != "42" {
		t.Errorf("b = %s", got)
	}
	if _, ok := m.Lookup(m.Global(), "m"); ok {
		t.Error("module bound outside the importing context")
	}
}

func TestImportDoesNotSeeImporter(t *testing.T) {
	_, _, err := runWithModules(t, map[string]string{"peek": "let y = secret;"}, "let secret = 1; fn f() { let secret = 2; import peek; } f();")
	if err != nil {
		t.Fatalf("module should see the global secret: %v", err)
	}

	_, _, err = runWithModules(t, map[string]string{"peek": "let y = hidden;"}, "fn f() { let hidden = 2; import peek; } f();")
	var se *ScriptError
	if !errors.As(err, &se) || !strings.Contains(se.Message, `undefined variable "hidden"`) {
		t.Fatalf("err = %v", err)
	}
	if se.File != "peek.em" {
		t.Errorf("file = %q, want peek.em", se.File)
	}
	if len(se.Trace) < 2 || se.Trace[len(se.Trace)-1].File != "main.em" {
		t.Errorf("trace = %+v", se.Trace)
	}
}

func TestImportErrors(t *testing.T) {
	_, _, err := runWithModules(t, nil, "import nope;")
	var se *ScriptError
	if !errors.As(err, &se) || !strings.Contains(se.Message, `module "nope" not found`) {
		t.Errorf("err = %v", err)
	}

	m, _, err := runWithModules(t, map[string]string{"bad": `throw "bad";`}, `let r = 0; try { import bad; } catch { r = exception; }`)
	if err != nil {
		t.Fatal(err)
	}
	if got := global(t, m, "r"); got != "bad" {
		t.Errorf("r = %s", got)
	}

	_, _, err = runWithModules(t, map[string]string{"broken": "let = ;"}, "import broken;")
	if err == nil || !strings.Contains(err.Error(), "import broken") {
		t.Errorf("err = %v", err)
	}
}

func TestImportedClassConstructor(t *testing.T) {
	shapes := map[string]string{
		"shapes": "class Pair { fn Pair(a, b) { this.a = a; this.b = b; } fn sum() { return this.a + this.b; } }",
	}
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"module member", "import shapes; let p = shapes.Pair(1, 2); let r = p.sum();", "3"},
		{"dict member", "import shapes; let ns = {make: shapes.Pair}; let p = ns.make(3, 4); let r = p.sum();", "7"},
		{"plain call", "import shapes; let P = shapes.Pair; let p = P(5, 6); let r = p.sum();", "11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, err := runWithModules(t, shapes, tt.src)
			if err != nil {
				t.Fatal(err)
			}
			if got := global(t, m, "r"); got != tt.want {
				t.Errorf("r = %s, want %s", got, tt.want)
			}
		})
	}
}
