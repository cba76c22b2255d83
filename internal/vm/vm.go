// Package vm executes compiled Binaries.
//
// A Machine owns an arena of heap values and contexts, a global context
// holding the builtins, and a stack of execution states. Exec runs a
// Binary on a fresh state; import and host calls push further states on
// top of it, parking the caller until they finish.
package vm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/funvibe/ember/internal/bytecode"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// Maximum call stack depth to prevent runaway recursion
const DefaultMaxCallDepth = 4096

// Cancellation is checked once every checkInterval instructions.
const checkInterval = 1024

var (
	errStackUnderflow = errors.New("stack underflow")
	errScopeUnderflow = errors.New("scope underflow")
)

// frame is one active call.
type frame struct {
	retIP  int
	retBin *bytecode.Binary
	sp     int    // operand depth the callee returns to
	ctx    Handle // caller context
	roots  int    // caller root stack depth
	callIP int    // offset of the CALL instruction in retBin
	name   string // callee
	host   bool   // return to the host instead of a caller
}

// tryFrame records what a caught exception restores.
type tryFrame struct {
	catchIP int
	bin     *bytecode.Binary
	calls   int
	roots   int
	sp      int
	ctx     Handle
}

// state is one independent execution: operand, call, try and root stacks
// plus the current context and Binary.
type state struct {
	goctx  context.Context
	stack  []Value
	frames []frame
	tries  []tryFrame
	roots  []Handle // contexts saved by PUSH_SCOPE
	ctx    Handle
	bin    *bytecode.Binary
	ip     int
	opIP   int // offset of the executing instruction
	steps  int
	result Value
}

// Trap is consulted when an exception reaches the outermost execution with
// no try frame left. Returning true resumes after a `throw` statement;
// runtime faults always end the execution.
type Trap func(ctx Handle, err *ScriptError) bool

// Machine is the virtual machine that executes bytecode
type Machine struct {
	id     uuid.UUID
	heap   *heap
	global Handle
	states []*state
	pinned map[Handle]int

	// Handles queued by UnpinLater, drained at the start of a collection.
	releaseMu sync.Mutex
	released  []Handle

	loader   ModuleLoader
	trap     Trap
	maxDepth int

	out io.Writer
	in  *bufio.Reader

	log   commonlog.Logger
	gcLog commonlog.Logger
}

// New creates a Machine whose global context holds the builtins.
func New() *Machine {
	m := &Machine{
		id:       uuid.New(),
		heap:     newHeap(DefaultGCThreshold),
		pinned:   make(map[Handle]int),
		maxDepth: DefaultMaxCallDepth,
		out:      os.Stdout,
		in:       bufio.NewReader(os.Stdin),
		log:      commonlog.GetLogger("ember.vm"),
		gcLog:    commonlog.GetLogger("ember.gc"),
	}
	m.global = m.heap.newContext(0)
	m.registerBuiltins(m.global)
	return m
}

// ID identifies the machine in log lines.
func (m *Machine) ID() uuid.UUID { return m.id }

// Global returns the root context.
func (m *Machine) Global() Handle { return m.global }

// SetOutput sets the writer used by print.
func (m *Machine) SetOutput(w io.Writer) {
	m.out = w
}

// SetInput sets the reader used by input.
func (m *Machine) SetInput(r io.Reader) {
	m.in = bufio.NewReader(r)
}

func (m *Machine) SetLoader(l ModuleLoader) {
	m.loader = l
}

func (m *Machine) SetTrap(t Trap) {
	m.trap = t
}

func (m *Machine) SetMaxCallDepth(n int) {
	if n <= 0 {
		n = DefaultMaxCallDepth
	}
	m.maxDepth = n
}

// SetGCThreshold sets the live count that triggers the next collection.
func (m *Machine) SetGCThreshold(n int) {
	if n <= 0 {
		n = DefaultGCThreshold
	}
	m.heap.threshold = n
}

// Exec runs bin from startIP with current as the current context. A zero
// current runs in the global context. Exec returns a *ScriptError when an
// exception is not handled or ctx is cancelled.
func (m *Machine) Exec(ctx context.Context, current Handle, bin *bytecode.Binary, startIP int) error {
	if bin == nil {
		return errors.New("vm: nil binary")
	}
	if current == 0 {
		current = m.global
	}
	if m.heap.context(current) == nil {
		return fmt.Errorf("vm: handle %d is not a context", current)
	}
	st := &state{goctx: ctx, ctx: current, bin: bin, ip: startIP}
	m.states = append(m.states, st)
	defer m.popState()
	return m.run(st)
}

// Call invokes fn with args from the host. When called from a native, the
// running execution is parked until fn returns.
func (m *Machine) Call(fn Value, args ...Value) (Value, error) {
	goctx := context.Background()
	if n := len(m.states); n > 0 {
		goctx = m.states[n-1].goctx
	}
	f, err := m.function(fn)
	if err != nil {
		return Null(), err
	}
	if len(args) < f.Argc {
		return Null(), fmt.Errorf("%s expects %d arguments, got %d", f.displayName(), f.Argc, len(args))
	}
	if f.Native != nil {
		return f.Native(m, args)
	}

	st := &state{goctx: goctx, bin: f.Bin, ip: f.Entry}
	st.stack = append(st.stack, args[:f.Argc]...)
	st.frames = append(st.frames, frame{retBin: f.Bin, ctx: m.global, name: f.Name, host: true})
	st.ctx = m.heap.newContext(f.Ctx)
	m.states = append(m.states, st)
	defer m.popState()

	if err := m.run(st); err != nil {
		return Null(), err
	}
	return st.result, nil
}

func (m *Machine) popState() {
	n := len(m.states)
	m.states[n-1] = nil
	m.states = m.states[:n-1]
}

func (m *Machine) function(v Value) (*Function, error) {
	v = m.deref(v)
	if v.Kind != KindFn {
		return nil, fmt.Errorf("cannot call a %s", v.Kind)
	}
	o := m.heap.get(v.H)
	if o == nil || o.fn == nil {
		return nil, fmt.Errorf("vm: handle %d is not a live function", v.H)
	}
	return o.fn, nil
}

func (f *Function) displayName() string {
	if f.Name == "" {
		return "function"
	}
	return f.Name
}

// run is the execution loop. Faults raised by an instruction are routed
// through raise; only unhandled exceptions and cancellation leave the loop.
func (m *Machine) run(st *state) error {
	for {
		st.steps++
		if st.steps%checkInterval == 0 {
			if err := st.goctx.Err(); err != nil {
				return m.abort(st, err)
			}
		}
		if m.heap.needsCollect() {
			m.collect()
		}

		in, err := st.bin.Decode(st.ip)
		if err != nil {
			return m.abort(st, err)
		}
		st.opIP = st.ip
		st.ip += in.Size

		done, err := m.step(st, in)
		if err != nil {
			if err = m.raise(st, err); err != nil {
				return err
			}
			continue
		}
		if done {
			return nil
		}
	}
}

// Stack operations

func (st *state) push(v Value) {
	st.stack = append(st.stack, v)
}

func (st *state) pop() (Value, error) {
	n := len(st.stack)
	if n == 0 {
		return Null(), errStackUnderflow
	}
	v := st.stack[n-1]
	st.stack = st.stack[:n-1]
	return v, nil
}

func (st *state) peek() (Value, error) {
	n := len(st.stack)
	if n == 0 {
		return Null(), errStackUnderflow
	}
	return st.stack[n-1], nil
}

// frameRoots is the root stack depth the current frame may not pop below.
func (st *state) frameRoots() int {
	if n := len(st.frames); n > 0 {
		return st.frames[n-1].roots
	}
	return 0
}

func (st *state) functionName() string {
	if n := len(st.frames); n > 0 {
		return st.frames[n-1].name
	}
	return "<main>"
}

// Contexts

func (m *Machine) lookup(ctx Handle, name string) (Value, bool) {
	for h := ctx; h != 0; {
		c := m.heap.context(h)
		if c == nil {
			break
		}
		if i, ok := c.lookup(name); ok {
			return c.values[i], true
		}
		h = c.Parent
	}
	return Null(), false
}

// assign updates the nearest binding of name.
func (m *Machine) assign(ctx Handle, name string, v Value) bool {
	for h := ctx; h != 0; {
		c := m.heap.context(h)
		if c == nil {
			break
		}
		if i, ok := c.lookup(name); ok {
			c.values[i] = v
			return true
		}
		h = c.Parent
	}
	return false
}

// declare binds name in ctx itself. A name already bound there is an error.
func (m *Machine) declare(ctx Handle, name string, v Value) error {
	c := m.heap.context(ctx)
	if c == nil {
		return fmt.Errorf("vm: handle %d is not a context", ctx)
	}
	if _, dup := c.lookup(name); dup {
		return fmt.Errorf("variable %q is already declared in this scope", name)
	}
	c.add(name, m.deref(v))
	return nil
}

// bind sets name in ctx itself, replacing an earlier binding.
func (m *Machine) bind(ctx Handle, name string, v Value) {
	if c := m.heap.context(ctx); c != nil {
		c.set(name, m.deref(v))
	}
}
