package vm

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

type builtin struct {
	name  string
	arity int
	fn    NativeFunc
}

var builtins = []builtin{
	{"print", 0, builtinPrint},
	{"list", 0, builtinList},
	{"dict", 2, builtinDict},
	{"len", 1, builtinLen},
	{"str", 1, builtinStr},
	{"ord", 1, builtinOrd},
	{"chr", 1, builtinChr},
	{"isnull", 1, builtinIsNull},
	{"input", 0, builtinInput},
}

// BuiltinNames lists the natives every Machine starts with.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins)+3)
	for _, b := range builtins {
		names = append(names, b.name)
	}
	return append(names, "null", "true", "false")
}

// registerBuiltins installs the builtins through the same calls host code
// uses.
func (m *Machine) registerBuiltins(ctx Handle) {
	for _, b := range builtins {
		_ = m.DefineNative(ctx, b.name, b.arity, b.fn)
	}
	_ = m.Define(ctx, "null", Null())
	_ = m.Define(ctx, "true", Bool(true))
	_ = m.Define(ctx, "false", Bool(false))
}

// print writes its arguments separated by spaces, then a newline.
func builtinPrint(m *Machine, args []Value) (Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = m.Display(a)
	}
	if _, err := fmt.Fprintln(m.out, strings.Join(parts, " ")); err != nil {
		return Null(), fmt.Errorf("print: %w", err)
	}
	return Null(), nil
}

func builtinList(m *Machine, args []Value) (Value, error) {
	return m.NewArray(args), nil
}

// dict(keys, values) pairs two lists. Non-string keys are converted with str.
func builtinDict(m *Machine, args []Value) (Value, error) {
	keys, ok1 := m.elements(args[0])
	values, ok2 := m.elements(args[1])
	if !ok1 || !ok2 {
		return Null(), errors.New("dict expects two lists")
	}
	if len(keys) != len(values) {
		return Null(), fmt.Errorf("dict got %d keys and %d values", len(keys), len(values))
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = m.Display(k)
	}
	return m.NewDict(names, values), nil
}

func builtinLen(m *Machine, args []Value) (Value, error) {
	v := m.deref(args[0])
	switch v.Kind {
	case KindString:
		return Number(float64(len(v.Str))), nil
	case KindArray, KindTuple:
		items, _ := m.elements(v)
		return Number(float64(len(items))), nil
	case KindDict:
		return Number(float64(m.heap.get(v.H).dict.len())), nil
	}
	return Null(), fmt.Errorf("len of a %s", v.Kind)
}

func builtinStr(m *Machine, args []Value) (Value, error) {
	return String(m.Display(args[0])), nil
}

func builtinOrd(m *Machine, args []Value) (Value, error) {
	v := m.deref(args[0])
	if v.Kind != KindString || v.Str == "" {
		return Null(), errors.New("ord expects a non-empty string")
	}
	return Number(float64(v.Str[0])), nil
}

func builtinChr(m *Machine, args []Value) (Value, error) {
	n, ok := args[0].AsInt()
	if !ok || n < 0 || n > 255 {
		return Null(), errors.New("chr expects an integer between 0 and 255")
	}
	return String(string([]byte{byte(n)})), nil
}

func builtinIsNull(m *Machine, args []Value) (Value, error) {
	return Bool(m.deref(args[0]).IsNull()), nil
}

// input prints an optional prompt and reads one line. At end of input it
// returns null.
func builtinInput(m *Machine, args []Value) (Value, error) {
	if len(args) > 0 {
		fmt.Fprint(m.out, m.Display(args[0]))
	}
	line, err := m.in.ReadString('\n')
	if err == io.EOF && line == "" {
		return Null(), nil
	}
	if err != nil && err != io.EOF {
		return Null(), fmt.Errorf("input: %w", err)
	}
	return String(strings.TrimRight(line, "\r\n")), nil
}
