package vm

import (
	"errors"
	"fmt"

	"github.com/funvibe/ember/internal/bytecode"
)

var errDivisionByZero = errors.New("division by zero")

func (m *Machine) unaryOp(st *state, op bytecode.Operator) error {
	v, err := st.pop()
	if err != nil {
		return err
	}
	v = m.deref(v)
	switch op {
	case bytecode.OpNot:
		st.push(Bool(!v.Truthy()))
		return nil
	case bytecode.OpNeg, bytecode.OpPlus:
		if v.Kind != KindNumber {
			return fmt.Errorf("bad operand for unary %s: %s", op, v.Kind)
		}
		if op == bytecode.OpNeg {
			v.Num = -v.Num
		}
		st.push(v)
		return nil
	}
	return fmt.Errorf("unknown unary operator %d", op)
}

func (m *Machine) binaryOp(st *state, op bytecode.Operator) error {
	b, err := st.pop()
	if err != nil {
		return err
	}
	a, err := st.pop()
	if err != nil {
		return err
	}
	res, err := m.arith(op, m.deref(a), m.deref(b))
	if err != nil {
		return err
	}
	st.push(res)
	return nil
}

func (m *Machine) arith(op bytecode.Operator, a, b Value) (Value, error) {
	switch op {
	case bytecode.OpEq:
		return Bool(m.Equal(a, b)), nil
	case bytecode.OpNe:
		return Bool(!m.Equal(a, b)), nil
	case bytecode.OpAdd:
		if a.Kind == KindString || b.Kind == KindString {
			return String(m.Display(a) + m.Display(b)), nil
		}
		if a.Kind == KindArray && b.Kind == KindArray {
			x, _ := m.elements(a)
			y, _ := m.elements(b)
			items := make([]Value, 0, len(x)+len(y))
			items = append(append(items, x...), y...)
			return m.alloc(slotArray, items), nil
		}
	case bytecode.OpLt, bytecode.OpGt, bytecode.OpLe, bytecode.OpGe:
		if a.Kind == KindString && b.Kind == KindString {
			return Bool(compareOrdered(op, a.Str, b.Str)), nil
		}
		if a.Kind == KindNumber && b.Kind == KindNumber {
			return Bool(compareOrdered(op, a.Num, b.Num)), nil
		}
		return Null(), fmt.Errorf("cannot compare %s and %s", a.Kind, b.Kind)
	}

	if a.Kind != KindNumber || b.Kind != KindNumber {
		return Null(), fmt.Errorf("bad operands for %s: %s and %s", op, a.Kind, b.Kind)
	}
	switch op {
	case bytecode.OpAdd:
		return Number(a.Num + b.Num), nil
	case bytecode.OpSub:
		return Number(a.Num - b.Num), nil
	case bytecode.OpMul:
		return Number(a.Num * b.Num), nil
	case bytecode.OpDiv:
		if b.Num == 0 {
			return Null(), errDivisionByZero
		}
		return Number(a.Num / b.Num), nil
	}
	return Null(), fmt.Errorf("unknown binary operator %d", op)
}

func compareOrdered[T string | float64](op bytecode.Operator, a, b T) bool {
	switch op {
	case bytecode.OpLt:
		return a < b
	case bytecode.OpGt:
		return a > b
	case bytecode.OpLe:
		return a <= b
	default:
		return a >= b
	}
}

// Equal compares immediates by value and heap values by identity.
func (m *Machine) Equal(a, b Value) bool {
	a, b = m.deref(a), m.deref(b)
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindNumber:
		return a.Num == b.Num
	case KindString:
		return a.Str == b.Str
	}
	return a.H == b.H
}

func (m *Machine) indexOp(st *state) error {
	i, err := st.pop()
	if err != nil {
		return err
	}
	c, err := st.pop()
	if err != nil {
		return err
	}
	c, i = m.deref(c), m.deref(i)

	switch c.Kind {
	case KindArray, KindTuple:
		items, _ := m.elements(c)
		n, err := checkIndex(i, len(items))
		if err != nil {
			return err
		}
		st.push(items[n])
		return nil
	case KindString:
		n, err := checkIndex(i, len(c.Str))
		if err != nil {
			return err
		}
		st.push(String(c.Str[n : n+1]))
		return nil
	case KindDict:
		if i.Kind != KindString {
			return fmt.Errorf("dict key must be a string, got %s", i.Kind)
		}
		v, err := m.member(c, i.Str)
		if err != nil {
			return err
		}
		st.push(v)
		return nil
	}
	return fmt.Errorf("cannot index a %s", c.Kind)
}

func checkIndex(i Value, length int) (int, error) {
	n, ok := i.AsInt()
	if !ok {
		return 0, fmt.Errorf("index must be an integer, got %s", i.Kind)
	}
	if n < 0 || n >= length {
		return 0, fmt.Errorf("index %d out of range (length %d)", n, length)
	}
	return n, nil
}

// setIndexOp stores into an array or dict. Storing at index len(a) appends.
func (m *Machine) setIndexOp(st *state) error {
	v, err := st.pop()
	if err != nil {
		return err
	}
	i, err := st.pop()
	if err != nil {
		return err
	}
	c, err := st.pop()
	if err != nil {
		return err
	}
	c, i, v = m.deref(c), m.deref(i), m.deref(v)

	switch c.Kind {
	case KindArray:
		o := m.heap.get(c.H)
		n, ok := i.AsInt()
		if !ok {
			return fmt.Errorf("index must be an integer, got %s", i.Kind)
		}
		switch {
		case n == len(o.items):
			o.items = append(o.items, v)
		case n >= 0 && n < len(o.items):
			o.items[n] = v
		default:
			return fmt.Errorf("index %d out of range (length %d)", n, len(o.items))
		}
	case KindDict:
		if i.Kind != KindString {
			return fmt.Errorf("dict key must be a string, got %s", i.Kind)
		}
		m.heap.get(c.H).dict.set(i.Str, v)
	case KindTuple:
		return errors.New("tuples are immutable")
	default:
		return fmt.Errorf("cannot index a %s", c.Kind)
	}
	st.push(v)
	return nil
}

// member reads d.name. A missing name is added with a null value.
func (m *Machine) member(d Value, name string) (Value, error) {
	d = m.deref(d)
	if d.Kind != KindDict {
		return Null(), fmt.Errorf("cannot read member %q of a %s", name, d.Kind)
	}
	t := m.heap.get(d.H).dict
	i, ok := t.lookup(name)
	if !ok {
		i = t.add(name, Null())
	}
	v := t.values[i]
	if v.Kind.IsHeap() {
		v = Value{Kind: KindRef, H: v.H}
	}
	return v, nil
}

func (m *Machine) setMemberOp(st *state, name string) error {
	v, err := st.pop()
	if err != nil {
		return err
	}
	d, err := st.pop()
	if err != nil {
		return err
	}
	d = m.deref(d)
	if d.Kind != KindDict {
		return fmt.Errorf("cannot set member %q of a %s", name, d.Kind)
	}
	v = m.deref(v)
	m.heap.get(d.H).dict.set(name, v)
	st.push(v)
	return nil
}
