package vm

import (
	"fmt"

	"github.com/funvibe/ember/internal/bytecode"
)

// step executes one decoded instruction. st.ip already points past it.
func (m *Machine) step(st *state, in bytecode.Instruction) (done bool, err error) {
	switch in.Op {
	case bytecode.OP_PUSH_INT:
		st.push(Number(float64(in.Int)))

	case bytecode.OP_PUSH_NUM:
		st.push(Number(in.Num))

	case bytecode.OP_PUSH_STR:
		st.push(String(in.Str))

	case bytecode.OP_PUSH_VAR:
		v, ok := m.lookup(st.ctx, in.Str)
		if !ok {
			return false, fmt.Errorf("undefined variable %q", in.Str)
		}
		if v.Kind.IsHeap() {
			v = Value{Kind: KindRef, H: v.H}
		}
		st.push(v)

	case bytecode.OP_POP:
		_, err = st.pop()

	case bytecode.OP_DUP:
		var v Value
		if v, err = st.peek(); err == nil {
			st.push(v)
		}

	case bytecode.OP_STORE_FN:
		err = m.storeFn(st, in.Str)

	case bytecode.OP_STORE_VAR:
		var v Value
		if v, err = st.pop(); err == nil {
			err = m.declare(st.ctx, in.Str, v)
		}

	case bytecode.OP_SET_VAR:
		var v Value
		if v, err = st.peek(); err == nil && !m.assign(st.ctx, in.Str, m.deref(v)) {
			err = fmt.Errorf("assignment to undeclared variable %q", in.Str)
		}

	case bytecode.OP_UNARY:
		err = m.unaryOp(st, bytecode.Operator(in.Int))

	case bytecode.OP_BINARY:
		err = m.binaryOp(st, bytecode.Operator(in.Int))

	case bytecode.OP_TUPLE:
		err = m.makeTuple(st, int(in.Int))

	case bytecode.OP_UNPACK:
		err = m.unpack(st, int(in.Int))

	case bytecode.OP_CALL:
		err = m.call(st, int(in.Int), false)

	case bytecode.OP_CALL_MEMBER:
		err = m.call(st, int(in.Int), true)

	case bytecode.OP_RET:
		var v Value
		if v, err = st.pop(); err == nil {
			done = m.ret(st, v)
		}

	case bytecode.OP_RET_VOID:
		done = m.ret(st, Null())

	case bytecode.OP_JUMP:
		st.ip = int(in.Int)

	case bytecode.OP_BRANCH_IF_ZERO:
		var v Value
		if v, err = st.pop(); err == nil && !m.deref(v).Truthy() {
			st.ip = int(in.Int)
		}

	case bytecode.OP_INDEX:
		err = m.indexOp(st)

	case bytecode.OP_SET_INDEX:
		err = m.setIndexOp(st)

	case bytecode.OP_MEMBER:
		var d Value
		if d, err = st.pop(); err == nil {
			var v Value
			if v, err = m.member(d, in.Str); err == nil {
				st.push(v)
			}
		}

	case bytecode.OP_MEMBER_KEEP:
		var d Value
		if d, err = st.peek(); err == nil {
			var v Value
			if v, err = m.member(d, in.Str); err == nil {
				st.push(v)
			}
		}

	case bytecode.OP_SET_MEMBER:
		err = m.setMemberOp(st, in.Str)

	case bytecode.OP_IMPORT:
		err = m.importModule(st, in.Str)

	case bytecode.OP_TRY:
		st.tries = append(st.tries, tryFrame{
			catchIP: int(in.Int),
			bin:     st.bin,
			calls:   len(st.frames),
			roots:   len(st.roots),
			sp:      len(st.stack),
			ctx:     st.ctx,
		})

	case bytecode.OP_END_TRY:
		n := len(st.tries)
		if n == 0 || st.tries[n-1].calls != len(st.frames) {
			return false, fmt.Errorf("END_TRY without an active try")
		}
		st.tries = st.tries[:n-1]

	case bytecode.OP_THROW:
		var v Value
		if v, err = st.pop(); err == nil {
			err = &thrown{value: m.deref(v)}
		}

	case bytecode.OP_PUSH_SCOPE:
		st.roots = append(st.roots, st.ctx)
		st.ctx = m.heap.newContext(st.ctx)

	case bytecode.OP_POP_SCOPE:
		n := len(st.roots)
		if n <= st.frameRoots() {
			return false, errScopeUnderflow
		}
		st.ctx = st.roots[n-1]
		st.roots = st.roots[:n-1]

	case bytecode.OP_HALT:
		return true, nil

	default:
		return false, fmt.Errorf("unknown opcode %s", in.Op)
	}
	return done, err
}

// storeFn pops the entry address and the declared argument count and binds
// a new function closing over the current context.
func (m *Machine) storeFn(st *state, name string) error {
	entry, err := st.pop()
	if err != nil {
		return err
	}
	argc, err := st.pop()
	if err != nil {
		return err
	}
	e, ok1 := entry.AsInt()
	n, ok2 := argc.AsInt()
	if !ok1 || !ok2 || n < 0 {
		return fmt.Errorf("malformed function declaration %q", name)
	}
	fn := &Function{Name: name, Argc: n, Entry: e, Bin: st.bin, Ctx: st.ctx}
	h := m.heap.alloc(object{kind: slotFn, fn: fn})
	m.bind(st.ctx, name, Value{Kind: KindFn, H: h})
	return nil
}

func (m *Machine) makeTuple(st *state, n int) error {
	if n < 0 || n > len(st.stack) {
		return errStackUnderflow
	}
	base := len(st.stack) - n
	items := make([]Value, n)
	for i, v := range st.stack[base:] {
		items[i] = m.deref(v)
	}
	st.stack = st.stack[:base]
	st.push(m.alloc(slotTuple, items))
	return nil
}

// unpack pushes the elements last to first so the first ends up on top.
func (m *Machine) unpack(st *state, n int) error {
	v, err := st.pop()
	if err != nil {
		return err
	}
	items, ok := m.elements(v)
	if !ok {
		return fmt.Errorf("cannot unpack a %s", m.deref(v).Kind)
	}
	if len(items) != n {
		return fmt.Errorf("cannot unpack %d values into %d names", len(items), n)
	}
	for i := n - 1; i >= 0; i-- {
		st.push(items[i])
	}
	return nil
}
