package ember

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sort"

	"github.com/funvibe/ember/internal/vm"
)

// maxNesting bounds conversion of self-referencing script values.
const maxNesting = 64

var (
	valueType = reflect.TypeOf(vm.Value{})
	errorType = reflect.TypeOf((*error)(nil)).Elem()
	anyType   = reflect.TypeOf((*any)(nil)).Elem()
)

// Marshaller handles conversion between Go and script values.
type Marshaller struct {
	machine *vm.Machine
}

func NewMarshaller(m *vm.Machine) *Marshaller {
	return &Marshaller{machine: m}
}

// ToValue converts a Go value to a script value.
//
// Pointers, channels and other values without a script equivalent become
// opaque host values. Functions become natives.
func (m *Marshaller) ToValue(val any) (vm.Value, error) {
	if val == nil {
		return vm.Null(), nil
	}
	if v, ok := val.(vm.Value); ok {
		return v, nil
	}
	return m.toValue(reflect.ValueOf(val))
}

func (m *Marshaller) toValue(v reflect.Value) (vm.Value, error) {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return vm.Null(), nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return vm.Null(), nil
	}

	switch v.Kind() {
	case reflect.Bool:
		return vm.Bool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return vm.Number(float64(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return vm.Number(float64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return vm.Number(v.Float()), nil
	case reflect.String:
		return vm.String(v.String()), nil
	case reflect.Slice:
		if v.IsNil() {
			return vm.Null(), nil
		}
		fallthrough
	case reflect.Array:
		items := make([]vm.Value, v.Len())
		for i := range items {
			item, err := m.toValue(v.Index(i))
			if err != nil {
				return vm.Null(), fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = item
		}
		return m.machine.NewArray(items), nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return vm.Null(), fmt.Errorf("cannot convert %s: map keys must be strings", v.Type())
		}
		keys := make([]string, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			keys = append(keys, iter.Key().String())
		}
		sort.Strings(keys)
		values := make([]vm.Value, len(keys))
		for i, k := range keys {
			item, err := m.toValue(v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())))
			if err != nil {
				return vm.Null(), fmt.Errorf("key %q: %w", k, err)
			}
			values[i] = item
		}
		return m.machine.NewDict(keys, values), nil
	case reflect.Struct:
		return m.structToDict(v)
	case reflect.Func:
		if v.IsNil() {
			return vm.Null(), nil
		}
		return m.wrapFunc("<host>", v)
	case reflect.Ptr:
		if v.IsNil() {
			return vm.Null(), nil
		}
		return m.machine.NewHostValue(v.Interface()), nil
	default:
		return m.machine.NewHostValue(v.Interface()), nil
	}
}

func (m *Marshaller) structToDict(v reflect.Value) (vm.Value, error) {
	t := v.Type()
	var names []string
	var values []vm.Value
	for i := 0; i < t.NumField(); i++ {
		name, ok := fieldName(t.Field(i))
		if !ok {
			continue
		}
		item, err := m.toValue(v.Field(i))
		if err != nil {
			return vm.Null(), fmt.Errorf("field %s: %w", t.Field(i).Name, err)
		}
		names = append(names, name)
		values = append(values, item)
	}
	return m.machine.NewDict(names, values), nil
}

// fieldName maps a struct field to its dict member. An `ember:"name"` tag
// renames the field and `ember:"-"` skips it.
func fieldName(f reflect.StructField) (string, bool) {
	if f.PkgPath != "" {
		return "", false
	}
	switch tag := f.Tag.Get("ember"); tag {
	case "-":
		return "", false
	case "":
		return f.Name, true
	default:
		return tag, true
	}
}

// FromValue converts a script value to a Go value. With a nil target,
// numbers become float64, arrays and tuples []any and dicts map[string]any.
func (m *Marshaller) FromValue(v vm.Value, target reflect.Type) (any, error) {
	rv, err := m.fromValue(v, target, 0)
	if err != nil {
		return nil, err
	}
	if !rv.IsValid() {
		return nil, nil
	}
	return rv.Interface(), nil
}

func (m *Marshaller) fromValue(v vm.Value, target reflect.Type, depth int) (reflect.Value, error) {
	if depth > maxNesting {
		return reflect.Value{}, errors.New("value nested too deeply")
	}
	v = m.machine.Deref(v)
	if target == valueType {
		return reflect.ValueOf(v), nil
	}
	if target == nil || target == anyType {
		rv, err := m.fromValueDefault(v, depth)
		if err == nil && !rv.IsValid() && target != nil {
			rv = reflect.Zero(target)
		}
		return rv, err
	}

	switch v.Kind {
	case vm.KindNull:
		return reflect.Zero(target), nil
	case vm.KindNative:
		host, _ := m.machine.HostValue(v)
		return convert(reflect.ValueOf(host), target)
	}

	switch target.Kind() {
	case reflect.Bool:
		return reflect.ValueOf(v.Truthy()).Convert(target), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := v.AsInt()
		if v.Kind != vm.KindNumber || !ok {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", m.machine.Display(v), target)
		}
		return reflect.ValueOf(n).Convert(target), nil
	case reflect.Float32, reflect.Float64:
		if v.Kind != vm.KindNumber {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", v.Kind, target)
		}
		return reflect.ValueOf(v.Num).Convert(target), nil
	case reflect.String:
		if v.Kind == vm.KindString {
			return reflect.ValueOf(v.Str).Convert(target), nil
		}
		return reflect.ValueOf(m.machine.Display(v)).Convert(target), nil
	case reflect.Slice:
		items, ok := m.machine.Elements(v)
		if !ok {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", v.Kind, target)
		}
		out := reflect.MakeSlice(target, len(items), len(items))
		for i, item := range items {
			ev, err := m.fromValue(item, target.Elem(), depth+1)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	case reflect.Map:
		if target.Key().Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("cannot convert to %s: map keys must be strings", target)
		}
		names, values, ok := m.machine.DictEntries(v)
		if !ok {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", v.Kind, target)
		}
		out := reflect.MakeMapWithSize(target, len(names))
		for i, name := range names {
			ev, err := m.fromValue(values[i], target.Elem(), depth+1)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %q: %w", name, err)
			}
			out.SetMapIndex(reflect.ValueOf(name).Convert(target.Key()), ev)
		}
		return out, nil
	case reflect.Struct:
		return m.dictToStruct(v, target, depth)
	case reflect.Func:
		return m.scriptFunc(v, target)
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", v.Kind, target)
}

func (m *Marshaller) fromValueDefault(v vm.Value, depth int) (reflect.Value, error) {
	switch v.Kind {
	case vm.KindNull:
		return reflect.Value{}, nil
	case vm.KindNumber:
		return reflect.ValueOf(v.Num), nil
	case vm.KindString:
		return reflect.ValueOf(v.Str), nil
	case vm.KindArray, vm.KindTuple:
		return m.fromValue(v, reflect.TypeOf([]any(nil)), depth)
	case vm.KindDict:
		return m.fromValue(v, reflect.TypeOf(map[string]any(nil)), depth)
	case vm.KindNative:
		host, _ := m.machine.HostValue(v)
		return reflect.ValueOf(host), nil
	default:
		return reflect.ValueOf(v), nil
	}
}

func (m *Marshaller) dictToStruct(v vm.Value, target reflect.Type, depth int) (reflect.Value, error) {
	names, values, ok := m.machine.DictEntries(v)
	if !ok {
		return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", v.Kind, target)
	}
	members := make(map[string]vm.Value, len(names))
	for i, name := range names {
		members[name] = values[i]
	}
	out := reflect.New(target).Elem()
	for i := 0; i < target.NumField(); i++ {
		f := target.Field(i)
		name, ok := fieldName(f)
		if !ok {
			continue
		}
		member, ok := members[name]
		if !ok {
			continue
		}
		fv, err := m.fromValue(member, f.Type, depth+1)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out.Field(i).Set(fv)
	}
	return out, nil
}

// scriptRef keeps a script function pinned for as long as the Go function
// wrapping it is reachable.
type scriptRef struct {
	fn vm.Value
}

// scriptFunc turns a script function into a Go function of type target.
func (m *Marshaller) scriptFunc(v vm.Value, target reflect.Type) (reflect.Value, error) {
	if v.Kind != vm.KindFn {
		return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", v.Kind, target)
	}
	if target.NumOut() > 2 || (target.NumOut() == 2 && target.Out(1) != errorType) {
		return reflect.Value{}, fmt.Errorf("cannot convert a function to %s: results must be (T) or (T, error)", target)
	}
	ref := &scriptRef{fn: v}
	m.machine.Pin(v.H)
	runtime.AddCleanup(ref, m.machine.UnpinLater, v.H)

	fn := reflect.MakeFunc(target, func(in []reflect.Value) []reflect.Value {
		res, err := m.callScript(ref.fn, in, target)
		out := make([]reflect.Value, target.NumOut())
		for i := range out {
			out[i] = reflect.Zero(target.Out(i))
		}
		last := target.NumOut() - 1
		if err != nil {
			if last >= 0 && target.Out(last) == errorType {
				out[last] = reflect.ValueOf(&err).Elem()
				return out
			}
			panic(err)
		}
		if target.NumOut() > 0 && target.Out(0) != errorType {
			out[0] = res
		}
		return out
	})
	return fn, nil
}

func (m *Marshaller) callScript(fn vm.Value, in []reflect.Value, target reflect.Type) (reflect.Value, error) {
	args := make([]vm.Value, len(in))
	for i, arg := range in {
		a, err := m.toValue(arg)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = a
	}
	res, err := m.machine.Call(fn, args...)
	if err != nil {
		return reflect.Value{}, err
	}
	if target.NumOut() == 0 || target.Out(0) == errorType {
		return reflect.Value{}, nil
	}
	return m.fromValue(res, target.Out(0), 0)
}

// wrapFunc builds a native that converts its arguments to fn's parameter
// types. Extra arguments feed a variadic parameter or are ignored. A
// non-nil trailing error result becomes a script exception.
func (m *Marshaller) wrapFunc(name string, fn reflect.Value) (vm.Value, error) {
	t := fn.Type()
	arity := t.NumIn()
	if t.IsVariadic() {
		arity--
	}
	outs := t.NumOut()
	hasErr := outs > 0 && t.Out(outs-1) == errorType
	if hasErr {
		outs--
	}

	native := func(_ *vm.Machine, args []vm.Value) (vm.Value, error) {
		n := len(args)
		if !t.IsVariadic() && n > t.NumIn() {
			n = t.NumIn()
		}
		in := make([]reflect.Value, n)
		for i := 0; i < n; i++ {
			var pt reflect.Type
			if t.IsVariadic() && i >= arity {
				pt = t.In(arity).Elem()
			} else {
				pt = t.In(i)
			}
			av, err := m.fromValue(args[i], pt, 0)
			if err != nil {
				return vm.Null(), fmt.Errorf("%s: argument %d: %w", name, i+1, err)
			}
			in[i] = av
		}

		results := fn.Call(in)
		if hasErr {
			if err, _ := results[len(results)-1].Interface().(error); err != nil {
				return vm.Null(), err
			}
		}
		switch outs {
		case 0:
			return vm.Null(), nil
		case 1:
			return m.toValue(results[0])
		}
		items := make([]vm.Value, outs)
		for i := range items {
			item, err := m.toValue(results[i])
			if err != nil {
				return vm.Null(), err
			}
			items[i] = item
		}
		return m.machine.NewTuple(items), nil
	}
	return m.machine.NewNative(name, arity, native), nil
}

// convert assigns a host value to target.
func convert(v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(target), nil
	}
	if v.Type().AssignableTo(target) {
		return v, nil
	}
	if v.Type().ConvertibleTo(target) {
		return v.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", v.Type(), target)
}
