package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble returns a human-readable listing of b. Labels are printed
// on their own line before the instruction they mark; jump targets and
// function entry addresses are annotated with the label they resolve to.
func Disassemble(b *Binary) string {
	var sb strings.Builder

	name := b.Name
	if name == "" {
		name = "<script>"
	}
	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	labels := b.labelsAt()
	debug := make(map[int]DebugEntry, len(b.Debug))
	for _, e := range b.Debug {
		debug[e.Offset] = e
	}

	ins, err := b.Instructions()
	for i, in := range ins {
		for _, l := range labels[in.Offset] {
			sb.WriteString(l + ":\n")
		}
		sb.WriteString(fmt.Sprintf("%04d ", in.Offset))
		if e, ok := debug[in.Offset]; ok {
			sb.WriteString(fmt.Sprintf("%4d ", e.Line))
		} else {
			sb.WriteString("   | ")
		}

		operand := formatOperand(in)
		target := in.Op.IsJump()
		// function entry pushed ahead of STORE_FN
		if in.Op == OP_PUSH_INT && i+1 < len(ins) && ins[i+1].Op == OP_STORE_FN {
			target = true
		}
		if target {
			if names := labels[int(in.Int)]; len(names) > 0 {
				operand += " -> " + names[0]
			}
		}

		if operand == "" {
			sb.WriteString(in.Op.String())
		} else {
			sb.WriteString(fmt.Sprintf("%-16s %s", in.Op.String(), operand))
		}
		sb.WriteString("\n")
	}
	for _, l := range labels[len(b.Code)] {
		sb.WriteString(l + ":\n")
	}
	if err != nil {
		sb.WriteString(fmt.Sprintf("!! %v\n", err))
	}

	return sb.String()
}

func formatOperand(in Instruction) string {
	switch in.Op.Operand() {
	case OperandInt:
		if in.Op == OP_UNARY || in.Op == OP_BINARY {
			return Operator(in.Int).String()
		}
		return strconv.Itoa(int(in.Int))
	case OperandNum:
		return strconv.FormatFloat(in.Num, 'g', -1, 64)
	case OperandStr:
		return strconv.Quote(in.Str)
	}
	return ""
}
