package vm

import (
	"github.com/funvibe/ember/internal/bytecode"
)

// NativeFunc is a host callback. It receives every supplied argument, even
// past the declared arity. Returning an error raises a script exception.
type NativeFunc func(m *Machine, args []Value) (Value, error)

// Function is the record behind a KindFn value.
type Function struct {
	Name   string
	Argc   int
	Entry  int
	Bin    *bytecode.Binary
	Ctx    Handle // defining context
	Native NativeFunc
}

// table is an ordered list of unique names with their values. It backs
// both dicts and contexts.
type table struct {
	names  []string
	values []Value
	index  map[string]int
}

func (t *table) lookup(name string) (int, bool) {
	if t.index != nil {
		i, ok := t.index[name]
		return i, ok
	}
	for i, n := range t.names {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// indexThreshold is the size past which lookups go through a map.
const indexThreshold = 8

func (t *table) add(name string, v Value) int {
	t.names = append(t.names, name)
	t.values = append(t.values, v)
	i := len(t.names) - 1
	if t.index != nil {
		t.index[name] = i
	} else if len(t.names) > indexThreshold {
		t.index = make(map[string]int, len(t.names)*2)
		for j, n := range t.names {
			t.index[n] = j
		}
	}
	return i
}

// set overwrites name or appends it.
func (t *table) set(name string, v Value) {
	if i, ok := t.lookup(name); ok {
		t.values[i] = v
		return
	}
	t.add(name, v)
}

func (t *table) len() int { return len(t.names) }

// Context is a scope: ordered bindings plus the enclosing context.
type Context struct {
	table
	Parent Handle // zero for a root
}

// slotKind tags what an arena slot holds. Contexts share the arena with
// values but are never Values themselves.
type slotKind uint8

const (
	slotFree slotKind = iota
	slotArray
	slotTuple
	slotDict
	slotFn
	slotNative
	slotContext
)

type object struct {
	kind   slotKind
	marked bool

	items  []Value // array, tuple
	dict   *table
	fn     *Function
	native any
	ctx    *Context
}

func (o *object) valueKind() Kind {
	switch o.kind {
	case slotArray:
		return KindArray
	case slotTuple:
		return KindTuple
	case slotDict:
		return KindDict
	case slotFn:
		return KindFn
	case slotNative:
		return KindNative
	}
	return KindNull
}
