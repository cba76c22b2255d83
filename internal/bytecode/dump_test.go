package bytecode

import (
	"bytes"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func sampleBinary(t *testing.T) *Binary {
	t.Helper()
	b := New("sample.em")
	b.MarkDebug(1, 3)
	b.EmitStr(OP_PUSH_STR, "hi")
	b.EmitNum(OP_PUSH_NUM, 1.5)
	b.EmitLabel(OP_JUMP, "end")
	if err := b.MarkLabel("end"); err != nil {
		t.Fatal(err)
	}
	b.Emit(OP_HALT)
	if err := b.Resolve(); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestWriteDump(t *testing.T) {
	b := sampleBinary(t)
	var buf bytes.Buffer
	if err := WriteDump(&buf, b); err != nil {
		t.Fatal(err)
	}

	var got struct {
		Name         string         `cbor:"1,keyasint"`
		Code         []byte         `cbor:"2,keyasint"`
		Labels       map[string]int `cbor:"3,keyasint"`
		Debug        []DebugEntry   `cbor:"4,keyasint"`
		Instructions []struct {
			Offset  int    `cbor:"1,keyasint"`
			Op      string `cbor:"2,keyasint"`
			Operand any    `cbor:"3,keyasint"`
		} `cbor:"5,keyasint"`
	}
	if err := cbor.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("dump is not valid CBOR: %v", err)
	}

	if got.Name != "sample.em" || !bytes.Equal(got.Code, b.Code) {
		t.Errorf("header mismatch: %q, %d bytes", got.Name, len(got.Code))
	}
	if got.Labels["end"] != b.Labels["end"] {
		t.Errorf("labels = %v", got.Labels)
	}
	if len(got.Debug) != 1 || got.Debug[0].Line != 1 || got.Debug[0].Column != 3 {
		t.Errorf("debug = %v", got.Debug)
	}
	ops := []string{"PUSH_STR", "PUSH_NUM", "JUMP", "HALT"}
	if len(got.Instructions) != len(ops) {
		t.Fatalf("got %d instructions", len(got.Instructions))
	}
	for i, op := range ops {
		if got.Instructions[i].Op != op {
			t.Errorf("instruction %d = %s, want %s", i, got.Instructions[i].Op, op)
		}
	}
	if s, ok := got.Instructions[0].Operand.(string); !ok || s != "hi" {
		t.Errorf("string operand = %#v", got.Instructions[0].Operand)
	}
	if got.Instructions[3].Operand != nil {
		t.Errorf("HALT should carry no operand, got %#v", got.Instructions[3].Operand)
	}
}

func TestWriteDumpIsDeterministic(t *testing.T) {
	b := sampleBinary(t)
	var a, c bytes.Buffer
	if err := WriteDump(&a, b); err != nil {
		t.Fatal(err)
	}
	if err := WriteDump(&c, b); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), c.Bytes()) {
		t.Error("canonical dumps differ")
	}
}

func TestWriteRaw(t *testing.T) {
	b := sampleBinary(t)
	var buf bytes.Buffer
	if err := WriteRaw(&buf, b); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), b.Code) {
		t.Error("raw dump differs from the code block")
	}
}
