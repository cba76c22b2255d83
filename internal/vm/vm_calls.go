package vm

import (
	"errors"
	"fmt"
)

// This is bound to the receiver of a member call.
const This = "this"

// call handles CALL and CALL_MEMBER. The stack holds [fn, a1..an], or
// [this, fn, a1..an] for a member call.
func (m *Machine) call(st *state, argc int, member bool) error {
	fnSlot := len(st.stack) - argc - 1
	base := fnSlot
	if member {
		base--
	}
	if argc < 0 || base < 0 {
		return errStackUnderflow
	}

	f, err := m.function(st.stack[fnSlot])
	if err != nil {
		return err
	}
	if argc < f.Argc {
		return fmt.Errorf("%s expects %d arguments, got %d", f.displayName(), f.Argc, argc)
	}

	if f.Native != nil {
		return m.callNative(st, f, base, argc)
	}

	if len(st.frames) >= m.maxDepth {
		return fmt.Errorf("maximum call depth %d exceeded", m.maxDepth)
	}

	act := m.heap.newContext(f.Ctx)
	if member {
		m.heap.context(act).add(This, m.deref(st.stack[base]))
	}

	// Excess arguments are dropped; the rest slide down over the callee.
	args := st.stack[len(st.stack)-argc:]
	copy(st.stack[base:], args[:f.Argc])
	st.stack = st.stack[:base+f.Argc]

	st.frames = append(st.frames, frame{
		retIP:  st.ip,
		retBin: st.bin,
		sp:     base,
		ctx:    st.ctx,
		roots:  len(st.roots),
		callIP: st.opIP,
		name:   f.displayName(),
	})
	st.ctx = act
	st.bin = f.Bin
	st.ip = f.Entry
	return nil
}

// callNative runs a host callback. The arguments stay on the stack until it
// returns so that a collection inside a nested execution keeps them alive.
func (m *Machine) callNative(st *state, f *Function, base, argc int) error {
	args := make([]Value, argc)
	for i, v := range st.stack[len(st.stack)-argc:] {
		args[i] = m.deref(v)
	}
	res, err := f.Native(m, args)
	if err != nil {
		return err
	}
	st.stack = st.stack[:base]
	st.push(res)
	return nil
}

// ret unwinds the current frame and pushes v for the caller. It reports
// whether the execution is finished, which is the case for a return at the
// top level or from a host call.
func (m *Machine) ret(st *state, v Value) bool {
	n := len(st.frames)
	if n == 0 {
		st.result = m.deref(v)
		return true
	}
	f := st.frames[n-1]
	st.frames = st.frames[:n-1]

	st.stack = st.stack[:f.sp]
	st.ctx = f.ctx
	st.roots = st.roots[:f.roots]
	st.bin = f.retBin
	st.ip = f.retIP
	for len(st.tries) > 0 && st.tries[len(st.tries)-1].calls > len(st.frames) {
		st.tries = st.tries[:len(st.tries)-1]
	}

	if f.host {
		st.result = m.deref(v)
		return true
	}
	st.push(v)
	return false
}

// importModule runs the named module in a fresh child of the global
// context and binds its top-level bindings as a dict. Modules are not
// cached: every IMPORT runs the module again.
func (m *Machine) importModule(st *state, name string) error {
	if m.loader == nil {
		return fmt.Errorf("cannot import %q: no module loader", name)
	}
	bin, err := m.loader.LoadModule(name)
	if errors.Is(err, ErrModuleNotFound) {
		return fmt.Errorf("module %q not found", name)
	}
	if err != nil {
		return fmt.Errorf("import %s: %w", name, err)
	}
	m.log.Debugf("%s: import %s (%s)", m.id, name, bin.Name)

	child := m.heap.newContext(m.global)
	if err := m.Exec(st.goctx, child, bin, 0); err != nil {
		return err
	}

	c := m.heap.context(child)
	names := append([]string(nil), c.names...)
	values := append([]Value(nil), c.values...)
	m.bind(st.ctx, name, m.NewDict(names, values))
	return nil
}
