package modules

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/ember/internal/compiler"
	"github.com/funvibe/ember/internal/vm"
)

func writeModule(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".em"), []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
}

// runWith executes src with loader and returns the output.
func runWith(t *testing.T, loader vm.ModuleLoader, src string) string {
	t.Helper()
	m := vm.New()
	var out bytes.Buffer
	m.SetOutput(&out)
	m.SetLoader(loader)
	bin, err := compiler.CompileSource("main.em", src)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Exec(context.Background(), 0, bin, 0); err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	return out.String()
}

func TestDirLoader(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeModule(t, second, "greet", `fn hello(n) { return "hello " + n; }`)
	writeModule(t, first, "greet", `fn hello(n) { return "hi " + n; }`)
	writeModule(t, second, "only", `let v = 7;`)

	l := NewDirLoader(first, second)

	path, err := l.Resolve("greet")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != first {
		t.Errorf("resolved %s, want the first search path", path)
	}

	out := runWith(t, l, `import greet; import only; print(greet.hello("ann"), only.v);`)
	if out != "hi ann 7\n" {
		t.Errorf("output = %q", out)
	}

	if _, err := l.LoadModule("missing"); !errors.Is(err, vm.ErrModuleNotFound) {
		t.Errorf("err = %v, want ErrModuleNotFound", err)
	}
	if _, err := l.LoadModule("../etc"); err == nil || errors.Is(err, vm.ErrModuleNotFound) {
		t.Errorf("err = %v, want an invalid name error", err)
	}
}

func TestDirLoaderCompileError(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "bad", "let = 1;")
	_, err := NewDirLoader(dir).LoadModule("bad")
	if err == nil || !strings.Contains(err.Error(), "bad.em") {
		t.Errorf("err = %v", err)
	}
}

func TestMapLoaderAndChain(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "disk", "let where = \"disk\";")

	chain := Chain{
		MapLoader{"mem": `let where = "memory";`},
		NewDirLoader(dir),
	}
	out := runWith(t, chain, "import mem; import disk; print(mem.where, disk.where);")
	if out != "memory disk\n" {
		t.Errorf("output = %q", out)
	}

	if _, err := chain.LoadModule("nowhere"); !errors.Is(err, vm.ErrModuleNotFound) {
		t.Errorf("err = %v, want ErrModuleNotFound", err)
	}
}

func TestChainStopsAtRealErrors(t *testing.T) {
	chain := Chain{MapLoader{"x": "let = ;"}, MapLoader{"x": "let ok = 1;"}}
	if _, err := chain.LoadModule("x"); err == nil || errors.Is(err, vm.ErrModuleNotFound) {
		t.Errorf("err = %v, want the compile error of the first loader", err)
	}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "modules.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if err := s.Put(ctx, "beta", "let b = 2;"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "alpha", "let a = 1;"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "alpha", "let a = 10;"); err != nil {
		t.Fatal(err)
	}

	src, err := s.Get(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if src != "let a = 10;" {
		t.Errorf("source = %q, want the replaced source", src)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "alpha" || list[1].Name != "beta" {
		t.Errorf("list = %+v", list)
	}
	if list[0].UpdatedAt.IsZero() {
		t.Error("updated_at not recorded")
	}

	out := runWith(t, s, "import alpha; import beta; print(alpha.a + beta.b);")
	if out != "12\n" {
		t.Errorf("output = %q", out)
	}

	if err := s.Delete(ctx, "beta"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "beta"); !errors.Is(err, vm.ErrModuleNotFound) {
		t.Errorf("err = %v, want ErrModuleNotFound", err)
	}
	if err := s.Delete(ctx, "beta"); !errors.Is(err, vm.ErrModuleNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestStoreListRejectsBadTimestamp(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	if err := s.Put(ctx, "alpha", "let a = 1;"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE modules SET updated_at = 'yesterday' WHERE name = 'alpha'"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.List(ctx); err == nil || !strings.Contains(err.Error(), "module alpha: bad updated_at") {
		t.Errorf("err = %v", err)
	}
}

func TestStoreRejectsBadSource(t *testing.T) {
	s := openStore(t)
	if err := s.Put(context.Background(), "bad", "let = ;"); err == nil {
		t.Error("expected a compile error")
	}
	if err := s.Put(context.Background(), "a/b", "let x = 1;"); err == nil {
		t.Error("expected an invalid name error")
	}
}

func TestStorePutFile(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "util", "let answer = 42;")
	s := openStore(t)
	name, err := s.PutFile(context.Background(), filepath.Join(dir, "util.em"))
	if err != nil {
		t.Fatal(err)
	}
	if name != "util" {
		t.Errorf("name = %q", name)
	}
	if out := runWith(t, Chain{NewDirLoader(t.TempDir()), s}, "import util; print(util.answer);"); out != "42\n" {
		t.Errorf("output = %q", out)
	}
}
