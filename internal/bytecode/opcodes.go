// Package bytecode defines the instruction set and the Binary that holds a
// compiled unit.
//
// An instruction is a one-byte opcode followed by at most one operand: a
// little-endian int32, a little-endian float64, or a NUL-terminated string.
package bytecode

// Opcode represents a single VM instruction
type Opcode byte

const (
	// Literals and stack manipulation
	OP_PUSH_INT Opcode = iota + 1 // int32: push number
	OP_PUSH_NUM                   // float64: push number
	OP_PUSH_STR                   // string: push string
	OP_PUSH_VAR                   // string: push variable, aliasing heap values
	OP_POP                        // discard top of stack
	OP_DUP                        // duplicate top of stack

	// Bindings
	OP_STORE_FN  // string: [argc, entry] -> bind a new function in the current context
	OP_STORE_VAR // string: [v] -> declare in the current context
	OP_SET_VAR   // string: [v] -> [v], assign to the nearest existing binding

	// Operators
	OP_UNARY  // int32 operator: [a] -> [op a]
	OP_BINARY // int32 operator: [a, b] -> [a op b]

	// Tuples
	OP_TUPLE  // int32 n: [v1..vn] -> [tuple]
	OP_UNPACK // int32 n: [tuple] -> [vn..v1], first element on top

	// Calls
	OP_CALL        // int32 argc: [fn, a1..an] -> [result]
	OP_CALL_MEMBER // int32 argc: [this, fn, a1..an] -> [result]
	OP_RET         // [v] -> return v
	OP_RET_VOID    // return null

	// Control flow
	OP_JUMP           // int32 target
	OP_BRANCH_IF_ZERO // int32 target: [v] -> jump when v is falsy

	// Containers
	OP_INDEX       // [c, i] -> [c[i]]
	OP_SET_INDEX   // [c, i, v] -> [v]
	OP_MEMBER      // string: [d] -> [d.name]
	OP_MEMBER_KEEP // string: [d] -> [d, d.name]
	OP_SET_MEMBER  // string: [d, v] -> [v]

	// Modules
	OP_IMPORT // string: bind the named module as a dict

	// Exceptions
	OP_TRY     // int32 catch target
	OP_END_TRY // discard the innermost try frame
	OP_THROW   // [v] -> raise v

	// Scopes
	OP_PUSH_SCOPE
	OP_POP_SCOPE

	OP_HALT
)

// OpcodeNames maps opcodes to their string names (for debugging)
var OpcodeNames = map[Opcode]string{
	OP_PUSH_INT:       "PUSH_INT",
	OP_PUSH_NUM:       "PUSH_NUM",
	OP_PUSH_STR:       "PUSH_STR",
	OP_PUSH_VAR:       "PUSH_VAR",
	OP_POP:            "POP",
	OP_DUP:            "DUP",
	OP_STORE_FN:       "STORE_FN",
	OP_STORE_VAR:      "STORE_VAR",
	OP_SET_VAR:        "SET_VAR",
	OP_UNARY:          "UNARY",
	OP_BINARY:         "BINARY",
	OP_TUPLE:          "TUPLE",
	OP_UNPACK:         "UNPACK",
	OP_CALL:           "CALL",
	OP_CALL_MEMBER:    "CALL_MEMBER",
	OP_RET:            "RET",
	OP_RET_VOID:       "RET_VOID",
	OP_JUMP:           "JUMP",
	OP_BRANCH_IF_ZERO: "BRANCH_IF_ZERO",
	OP_INDEX:          "INDEX",
	OP_SET_INDEX:      "SET_INDEX",
	OP_MEMBER:         "MEMBER",
	OP_MEMBER_KEEP:    "MEMBER_KEEP",
	OP_SET_MEMBER:     "SET_MEMBER",
	OP_IMPORT:         "IMPORT",
	OP_TRY:            "TRY",
	OP_END_TRY:        "END_TRY",
	OP_THROW:          "THROW",
	OP_PUSH_SCOPE:     "PUSH_SCOPE",
	OP_POP_SCOPE:      "POP_SCOPE",
	OP_HALT:           "HALT",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// OperandKind describes what follows an opcode in the byte stream.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandInt
	OperandNum
	OperandStr
)

var operandKinds = map[Opcode]OperandKind{
	OP_PUSH_INT:       OperandInt,
	OP_PUSH_NUM:       OperandNum,
	OP_PUSH_STR:       OperandStr,
	OP_PUSH_VAR:       OperandStr,
	OP_STORE_FN:       OperandStr,
	OP_STORE_VAR:      OperandStr,
	OP_SET_VAR:        OperandStr,
	OP_UNARY:          OperandInt,
	OP_BINARY:         OperandInt,
	OP_TUPLE:          OperandInt,
	OP_UNPACK:         OperandInt,
	OP_CALL:           OperandInt,
	OP_CALL_MEMBER:    OperandInt,
	OP_JUMP:           OperandInt,
	OP_BRANCH_IF_ZERO: OperandInt,
	OP_MEMBER:         OperandStr,
	OP_MEMBER_KEEP:    OperandStr,
	OP_SET_MEMBER:     OperandStr,
	OP_IMPORT:         OperandStr,
	OP_TRY:            OperandInt,
}

// Operand reports the operand kind of op.
func (op Opcode) Operand() OperandKind {
	return operandKinds[op]
}

// IsJump reports whether the int operand of op is a code offset.
func (op Opcode) IsJump() bool {
	return op == OP_JUMP || op == OP_BRANCH_IF_ZERO || op == OP_TRY
}

// Operator is the operand of OP_UNARY and OP_BINARY.
type Operator int32

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe

	OpNeg
	OpPlus
	OpNot
)

var operatorSymbols = map[Operator]string{
	OpAdd:  "+",
	OpSub:  "-",
	OpMul:  "*",
	OpDiv:  "/",
	OpEq:   "==",
	OpNe:   "!=",
	OpLt:   "<",
	OpGt:   ">",
	OpLe:   "<=",
	OpGe:   ">=",
	OpNeg:  "neg",
	OpPlus: "pos",
	OpNot:  "not",
}

func (o Operator) String() string {
	if s, ok := operatorSymbols[o]; ok {
		return s
	}
	return "?"
}
