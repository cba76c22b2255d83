package vm

import (
	"math"
	"strconv"
)

// Kind identifies the variant held in a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindArray
	KindTuple
	KindDict
	KindFn
	KindRef // non-owning alias to a heap slot
	KindNative
)

var kindNames = [...]string{
	KindNull:   "null",
	KindNumber: "number",
	KindString: "string",
	KindArray:  "array",
	KindTuple:  "tuple",
	KindDict:   "dict",
	KindFn:     "function",
	KindRef:    "ref",
	KindNative: "native",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsHeap reports whether values of kind k live in the arena.
func (k Kind) IsHeap() bool {
	return k >= KindArray
}

// Handle addresses a slot in a Machine's arena. The zero Handle is never a
// valid slot.
type Handle uint32

// Value is a tagged union. Null, Number and String are immediate; every
// other kind carries the handle of its arena slot in H.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	H    Handle
}

// Constructors

func Null() Value {
	return Value{}
}

func Number(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}

func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

func Bool(b bool) Value {
	if b {
		return Number(1)
	}
	return Number(0)
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

// Truthy reports the truth value used by conditions and `!`: null, the
// number 0 and the empty string are false, everything else is true.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindNumber:
		return v.Num != 0
	case KindString:
		return v.Str != ""
	}
	return true
}

// AsInt returns the value as an int when it is an integral number.
func (v Value) AsInt() (int, bool) {
	if v.Kind != KindNumber || v.Num != math.Trunc(v.Num) || math.IsInf(v.Num, 0) {
		return 0, false
	}
	return int(v.Num), true
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
