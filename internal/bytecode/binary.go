package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/funvibe/ember/internal/diagnostics"
	"github.com/funvibe/ember/internal/token"
)

// DebugEntry attributes the instruction at Offset to a source position.
type DebugEntry struct {
	Offset int `cbor:"1,keyasint"`
	Line   int `cbor:"2,keyasint"`
	Column int `cbor:"3,keyasint"`
}

// Fixup is an int32 operand at Offset that must be patched with the address
// of label Name.
type Fixup struct {
	Name   string
	Offset int
}

// Binary is one compiled unit. It stays alive for as long as any function
// value still points into it.
type Binary struct {
	// Name is the file or module name used in error messages.
	Name string

	// Code is the instruction stream.
	Code []byte

	// Labels maps symbolic names to resolved code offsets.
	Labels map[string]int

	// Fixups lists operands still waiting for a label. Empty after Resolve.
	Fixups []Fixup

	// Debug is sorted by Offset.
	Debug []DebugEntry
}

func New(name string) *Binary {
	return &Binary{
		Name:   name,
		Code:   make([]byte, 0, 256),
		Labels: make(map[string]int),
	}
}

// Len returns the offset the next instruction will be written at.
func (b *Binary) Len() int { return len(b.Code) }

// Emit writes an operand-less instruction and returns its offset.
func (b *Binary) Emit(op Opcode) int {
	at := len(b.Code)
	b.Code = append(b.Code, byte(op))
	return at
}

func (b *Binary) EmitInt(op Opcode, v int32) int {
	at := b.Emit(op)
	b.Code = binary.LittleEndian.AppendUint32(b.Code, uint32(v))
	return at
}

func (b *Binary) EmitNum(op Opcode, v float64) int {
	at := b.Emit(op)
	b.Code = binary.LittleEndian.AppendUint64(b.Code, math.Float64bits(v))
	return at
}

// EmitStr writes a string operand. Operands are NUL-terminated, so s must
// not contain a NUL byte.
func (b *Binary) EmitStr(op Opcode, s string) int {
	at := b.Emit(op)
	b.Code = append(b.Code, s...)
	b.Code = append(b.Code, 0)
	return at
}

// EmitLabel writes an int32 operand holding the address of label, patched
// by Resolve.
func (b *Binary) EmitLabel(op Opcode, label string) int {
	at := b.EmitInt(op, 0)
	b.Fixups = append(b.Fixups, Fixup{Name: label, Offset: at + 1})
	return at
}

// MarkLabel binds name to the current offset.
func (b *Binary) MarkLabel(name string) error {
	if _, dup := b.Labels[name]; dup {
		return diagnostics.NewError(diagnostics.ErrSymbol, token.Pos{}, "duplicate label %q", name)
	}
	b.Labels[name] = len(b.Code)
	return nil
}

// MarkDebug attributes the next instruction to line and column.
func (b *Binary) MarkDebug(line, column int) {
	at := len(b.Code)
	if n := len(b.Debug); n > 0 && b.Debug[n-1].Offset == at {
		b.Debug[n-1] = DebugEntry{Offset: at, Line: line, Column: column}
		return
	}
	b.Debug = append(b.Debug, DebugEntry{Offset: at, Line: line, Column: column})
}

// Resolve patches every fixup. A fixup without a matching label is an
// unresolved symbol; the first one found is reported.
func (b *Binary) Resolve() error {
	for _, f := range b.Fixups {
		target, ok := b.Labels[f.Name]
		if !ok {
			return diagnostics.NewError(diagnostics.ErrSymbol, token.Pos{}, "unresolved symbol %q", f.Name).WithFile(b.Name)
		}
		binary.LittleEndian.PutUint32(b.Code[f.Offset:], uint32(int32(target)))
	}
	b.Fixups = nil
	return nil
}

// PositionAt returns the source position recorded for the instruction at
// ip, falling back to the nearest earlier entry.
func (b *Binary) PositionAt(ip int) (line, column int, ok bool) {
	i := sort.Search(len(b.Debug), func(i int) bool { return b.Debug[i].Offset > ip })
	if i == 0 {
		return 0, 0, false
	}
	e := b.Debug[i-1]
	return e.Line, e.Column, true
}

// ReadInt decodes the int32 operand at ip.
func (b *Binary) ReadInt(ip int) int32 {
	return int32(binary.LittleEndian.Uint32(b.Code[ip:]))
}

// ReadNum decodes the float64 operand at ip.
func (b *Binary) ReadNum(ip int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b.Code[ip:]))
}

// ReadStr decodes the string operand at ip and returns the offset after its
// terminator.
func (b *Binary) ReadStr(ip int) (string, int) {
	end := ip
	for end < len(b.Code) && b.Code[end] != 0 {
		end++
	}
	return string(b.Code[ip:end]), end + 1
}

// Instruction is a decoded instruction, used by the disassembler and the
// inspection dump.
type Instruction struct {
	Offset int
	Op     Opcode
	Int    int32
	Num    float64
	Str    string
	Size   int
}

// Decode decodes the instruction at ip.
func (b *Binary) Decode(ip int) (Instruction, error) {
	if ip < 0 || ip >= len(b.Code) {
		return Instruction{}, fmt.Errorf("offset %d out of range", ip)
	}
	in := Instruction{Offset: ip, Op: Opcode(b.Code[ip])}
	if _, known := OpcodeNames[in.Op]; !known {
		return in, fmt.Errorf("unknown opcode 0x%02x at %d", b.Code[ip], ip)
	}
	operand := ip + 1
	switch in.Op.Operand() {
	case OperandNone:
		in.Size = 1
	case OperandInt:
		if operand+4 > len(b.Code) {
			return in, fmt.Errorf("truncated operand at %d", ip)
		}
		in.Int = b.ReadInt(operand)
		in.Size = 5
	case OperandNum:
		if operand+8 > len(b.Code) {
			return in, fmt.Errorf("truncated operand at %d", ip)
		}
		in.Num = b.ReadNum(operand)
		in.Size = 9
	case OperandStr:
		s, next := b.ReadStr(operand)
		if next > len(b.Code) {
			return in, fmt.Errorf("unterminated string operand at %d", ip)
		}
		in.Str = s
		in.Size = next - ip
	}
	return in, nil
}

// Instructions decodes the whole stream.
func (b *Binary) Instructions() ([]Instruction, error) {
	var out []Instruction
	for ip := 0; ip < len(b.Code); {
		in, err := b.Decode(ip)
		if err != nil {
			return out, err
		}
		out = append(out, in)
		ip += in.Size
	}
	return out, nil
}

// labelsAt returns the labels bound to each offset, sorted by name.
func (b *Binary) labelsAt() map[int][]string {
	at := make(map[int][]string, len(b.Labels))
	for name, off := range b.Labels {
		at[off] = append(at[off], name)
	}
	for _, names := range at {
		sort.Strings(names)
	}
	return at
}

// ValidString reports whether s can be encoded as a string operand.
func ValidString(s string) bool {
	return !strings.ContainsRune(s, 0)
}
