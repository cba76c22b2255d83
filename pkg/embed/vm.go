// Package ember embeds the ember scripting language in Go programs.
//
//	v := ember.New(ember.WithOutput(os.Stdout))
//	v.Bind("double", func(x int) int { return x * 2 })
//	err := v.Run(ctx, `print(double(21));`)
package ember

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/funvibe/ember/internal/compiler"
	"github.com/funvibe/ember/internal/modules"
	"github.com/funvibe/ember/internal/vm"
)

// VM wraps a script machine and provides a high-level embedding API.
type VM struct {
	machine    *vm.Machine
	marshaller *Marshaller
	hasLoader  bool
}

// Option configures a VM at construction.
type Option func(*VM)

// WithLoader resolves `import` statements through l.
func WithLoader(l vm.ModuleLoader) Option {
	return func(v *VM) {
		v.machine.SetLoader(l)
		v.hasLoader = true
	}
}

// WithModules serves imports from in-memory sources.
func WithModules(sources map[string]string) Option {
	return WithLoader(modules.MapLoader(sources))
}

func WithOutput(w io.Writer) Option {
	return func(v *VM) { v.machine.SetOutput(w) }
}

func WithInput(r io.Reader) Option {
	return func(v *VM) { v.machine.SetInput(r) }
}

func WithGCThreshold(n int) Option {
	return func(v *VM) { v.machine.SetGCThreshold(n) }
}

func WithMaxCallDepth(n int) Option {
	return func(v *VM) { v.machine.SetMaxCallDepth(n) }
}

// New creates a VM. Without WithLoader, RunFile resolves imports next to
// the file it runs.
func New(opts ...Option) *VM {
	m := vm.New()
	v := &VM{machine: m, marshaller: NewMarshaller(m)}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Machine exposes the underlying machine for lower-level access.
func (v *VM) Machine() *vm.Machine { return v.machine }

// Bind registers a Go function as a global script function. The script
// must pass at least as many arguments as fn has non-variadic parameters.
// A non-nil trailing error result is raised as a script exception.
func (v *VM) Bind(name string, fn any) error {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return fmt.Errorf("bind %s: expected a function, got %T", name, fn)
	}
	native, err := v.marshaller.wrapFunc(name, rv)
	if err != nil {
		return err
	}
	return v.machine.Define(v.machine.Global(), name, native)
}

// Set converts val and binds it as a global.
func (v *VM) Set(name string, val any) error {
	sv, err := v.marshaller.ToValue(val)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return v.machine.Define(v.machine.Global(), name, sv)
}

// Get returns the Go form of a global.
func (v *VM) Get(name string) (any, error) {
	sv, ok := v.machine.Lookup(v.machine.Global(), name)
	if !ok {
		return nil, fmt.Errorf("variable %q not found", name)
	}
	return v.marshaller.FromValue(sv, nil)
}

// GetInto converts a global into the value out points to.
func (v *VM) GetInto(name string, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("get %s: expected a non-nil pointer, got %T", name, out)
	}
	sv, ok := v.machine.Lookup(v.machine.Global(), name)
	if !ok {
		return fmt.Errorf("variable %q not found", name)
	}
	gv, err := v.marshaller.fromValue(sv, rv.Elem().Type(), 0)
	if err != nil {
		return fmt.Errorf("get %s: %w", name, err)
	}
	rv.Elem().Set(gv)
	return nil
}

// Run compiles and executes src in the global context.
func (v *VM) Run(ctx context.Context, src string) error {
	return v.run(ctx, "<eval>", src)
}

// RunFile compiles and executes the file at path.
func (v *VM) RunFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !v.hasLoader {
		v.machine.SetLoader(modules.NewDirLoader(filepath.Dir(path)))
	}
	return v.run(ctx, path, string(src))
}

func (v *VM) run(ctx context.Context, name, src string) error {
	bin, err := compiler.CompileSource(name, src)
	if err != nil {
		return err
	}
	return v.machine.Exec(ctx, 0, bin, 0)
}

// Call calls a global script function (or bound Go function) by name and
// returns the Go form of its result.
func (v *VM) Call(name string, args ...any) (any, error) {
	fn, ok := v.machine.Lookup(v.machine.Global(), name)
	if !ok {
		return nil, fmt.Errorf("function %q not found", name)
	}
	if fn.Kind != vm.KindFn {
		return nil, fmt.Errorf("%s is a %s, not a function", name, fn.Kind)
	}
	in := make([]vm.Value, len(args))
	for i, arg := range args {
		sv, err := v.marshaller.ToValue(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in[i] = sv
	}
	res, err := v.machine.Call(fn, in...)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromValue(res, nil)
}

// Stats reports heap statistics of the underlying machine.
func (v *VM) Stats() vm.Stats {
	return v.machine.Stats()
}
