package bytecode

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Dumps are write-only inspection artifacts. Nothing in the toolchain
// reads them back.

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Dump is the CBOR document written by WriteDump.
type Dump struct {
	Name         string            `cbor:"1,keyasint"`
	Code         []byte            `cbor:"2,keyasint"`
	Labels       map[string]int    `cbor:"3,keyasint,omitempty"`
	Debug        []DebugEntry      `cbor:"4,keyasint,omitempty"`
	Instructions []DumpInstruction `cbor:"5,keyasint"`
}

// DumpInstruction is one decoded instruction. Operand holds an int32,
// float64 or string depending on the opcode, and is absent otherwise.
type DumpInstruction struct {
	Offset  int    `cbor:"1,keyasint"`
	Op      string `cbor:"2,keyasint"`
	Operand any    `cbor:"3,keyasint,omitempty"`
}

// NewDump builds the inspection document for b.
func NewDump(b *Binary) (*Dump, error) {
	ins, err := b.Instructions()
	if err != nil {
		return nil, fmt.Errorf("bytecode: dump %s: %w", b.Name, err)
	}
	d := &Dump{
		Name:   b.Name,
		Code:   b.Code,
		Labels: b.Labels,
		Debug:  b.Debug,
	}
	for _, in := range ins {
		di := DumpInstruction{Offset: in.Offset, Op: in.Op.String()}
		switch in.Op.Operand() {
		case OperandInt:
			di.Operand = in.Int
		case OperandNum:
			di.Operand = in.Num
		case OperandStr:
			di.Operand = in.Str
		}
		d.Instructions = append(d.Instructions, di)
	}
	return d, nil
}

// WriteDump writes b as a canonical CBOR document.
func WriteDump(w io.Writer, b *Binary) error {
	d, err := NewDump(b)
	if err != nil {
		return err
	}
	data, err := cborEncMode.Marshal(d)
	if err != nil {
		return fmt.Errorf("bytecode: marshal dump: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// WriteRaw writes the bare instruction block.
func WriteRaw(w io.Writer, b *Binary) error {
	_, err := w.Write(b.Code)
	return err
}
