package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Host registration and value access. Values returned by these methods are
// only kept alive while reachable from a context or pinned.

// Define binds name to v in ctx, replacing an earlier binding.
func (m *Machine) Define(ctx Handle, name string, v Value) error {
	if m.heap.context(ctx) == nil {
		return fmt.Errorf("vm: handle %d is not a context", ctx)
	}
	m.bind(ctx, name, v)
	return nil
}

// DefineNative binds a host callback that requires at least arity
// arguments.
func (m *Machine) DefineNative(ctx Handle, name string, arity int, fn NativeFunc) error {
	if fn == nil {
		return fmt.Errorf("vm: nil native %q", name)
	}
	return m.Define(ctx, name, m.NewNative(name, arity, fn))
}

// NewNative allocates a function value backed by fn without binding it.
func (m *Machine) NewNative(name string, arity int, fn NativeFunc) Value {
	h := m.heap.alloc(object{kind: slotFn, fn: &Function{Name: name, Argc: arity, Native: fn}})
	return Value{Kind: KindFn, H: h}
}

// NewContext allocates a context whose parent is parent.
func (m *Machine) NewContext(parent Handle) Handle {
	return m.heap.newContext(parent)
}

// Lookup resolves name from ctx outwards.
func (m *Machine) Lookup(ctx Handle, name string) (Value, bool) {
	v, ok := m.lookup(ctx, name)
	return m.deref(v), ok
}

// Bindings returns the names bound directly in ctx, in declaration order.
func (m *Machine) Bindings(ctx Handle) []string {
	c := m.heap.context(ctx)
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}

func (m *Machine) NewArray(items []Value) Value {
	return m.alloc(slotArray, m.derefAll(items))
}

func (m *Machine) NewTuple(items []Value) Value {
	return m.alloc(slotTuple, m.derefAll(items))
}

// NewDict builds a dict. A repeated name keeps the last value.
func (m *Machine) NewDict(names []string, values []Value) Value {
	t := &table{}
	for i, name := range names {
		var v Value
		if i < len(values) {
			v = m.deref(values[i])
		}
		t.set(name, v)
	}
	h := m.heap.alloc(object{kind: slotDict, dict: t})
	return Value{Kind: KindDict, H: h}
}

// NewHostValue wraps an opaque host value.
func (m *Machine) NewHostValue(x any) Value {
	h := m.heap.alloc(object{kind: slotNative, native: x})
	return Value{Kind: KindNative, H: h}
}

// Elements returns the items of an array or tuple.
func (m *Machine) Elements(v Value) ([]Value, bool) {
	items, ok := m.elements(v)
	if !ok {
		return nil, false
	}
	return append([]Value(nil), items...), true
}

// DictEntries returns the names and values of a dict in order.
func (m *Machine) DictEntries(v Value) ([]string, []Value, bool) {
	v = m.deref(v)
	if v.Kind != KindDict {
		return nil, nil, false
	}
	t := m.heap.get(v.H).dict
	return append([]string(nil), t.names...), append([]Value(nil), t.values...), true
}

// HostValue returns the host value behind a KindNative value.
func (m *Machine) HostValue(v Value) (any, bool) {
	v = m.deref(v)
	if v.Kind != KindNative {
		return nil, false
	}
	return m.heap.get(v.H).native, true
}

// FunctionName returns the name a function value was declared with.
func (m *Machine) FunctionName(v Value) (string, bool) {
	f, err := m.function(v)
	if err != nil {
		return "", false
	}
	return f.Name, true
}

// Deref resolves a Ref to the value it aliases.
func (m *Machine) Deref(v Value) Value {
	return m.deref(v)
}

func (m *Machine) deref(v Value) Value {
	if v.Kind != KindRef {
		return v
	}
	o := m.heap.get(v.H)
	if o == nil {
		return Null()
	}
	return Value{Kind: o.valueKind(), H: v.H}
}

func (m *Machine) derefAll(items []Value) []Value {
	out := make([]Value, len(items))
	for i, v := range items {
		out[i] = m.deref(v)
	}
	return out
}

func (m *Machine) alloc(kind slotKind, items []Value) Value {
	o := object{kind: kind, items: items}
	h := m.heap.alloc(o)
	return Value{Kind: o.valueKind(), H: h}
}

func (m *Machine) elements(v Value) ([]Value, bool) {
	v = m.deref(v)
	if v.Kind != KindArray && v.Kind != KindTuple {
		return nil, false
	}
	return m.heap.get(v.H).items, true
}

// Display renders v the way print and str do. Strings nested in containers
// are quoted.
func (m *Machine) Display(v Value) string {
	var sb strings.Builder
	m.display(&sb, v, false, make(map[Handle]bool))
	return sb.String()
}

func (m *Machine) display(sb *strings.Builder, v Value, quote bool, seen map[Handle]bool) {
	v = m.deref(v)
	switch v.Kind {
	case KindNull:
		sb.WriteString("null")
		return
	case KindNumber:
		sb.WriteString(formatNumber(v.Num))
		return
	case KindString:
		if quote {
			sb.WriteString(strconv.Quote(v.Str))
		} else {
			sb.WriteString(v.Str)
		}
		return
	}

	if seen[v.H] {
		sb.WriteString("...")
		return
	}
	seen[v.H] = true
	defer delete(seen, v.H)

	o := m.heap.get(v.H)
	switch v.Kind {
	case KindArray, KindTuple:
		open, end := "[", "]"
		if v.Kind == KindTuple {
			open, end = "(", ")"
		}
		sb.WriteString(open)
		for i, item := range o.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			m.display(sb, item, true, seen)
		}
		sb.WriteString(end)
	case KindDict:
		sb.WriteString("{")
		for i, name := range o.dict.names {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(name)
			sb.WriteString(": ")
			m.display(sb, o.dict.values[i], true, seen)
		}
		sb.WriteString("}")
	case KindFn:
		if o.fn.Native != nil {
			fmt.Fprintf(sb, "<native %s>", o.fn.displayName())
		} else {
			fmt.Fprintf(sb, "<fn %s>", o.fn.displayName())
		}
	case KindNative:
		fmt.Fprintf(sb, "<host %T>", o.native)
	}
}
