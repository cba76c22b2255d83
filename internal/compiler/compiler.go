// Package compiler generates bytecode from a parsed tree.
//
// The layout of a generated unit is: one STORE_FN per top-level function,
// the top-level statements, HALT, then the bodies of the top-level
// functions. Nested functions are emitted inline behind a jump.
package compiler

import (
	"fmt"
	"math"

	"github.com/funvibe/ember/internal/ast"
	"github.com/funvibe/ember/internal/bytecode"
	"github.com/funvibe/ember/internal/diagnostics"
	"github.com/funvibe/ember/internal/token"
)

// ExceptionName is bound to the thrown value inside a catch block.
const ExceptionName = "exception"

// loopState records what a break inside the loop has to unwind.
type loopState struct {
	id         int
	scopeDepth int
	tryDepth   int
}

type Compiler struct {
	bin   *bytecode.Binary
	index int

	loop       *loopState // nil outside loops
	scopeDepth int
	tryDepth   int
}

func New(name string) *Compiler {
	return &Compiler{bin: bytecode.New(name)}
}

// Generate compiles root into a resolved Binary.
func Generate(root *ast.Root, name string) (*bytecode.Binary, error) {
	return New(name).Compile(root)
}

func (c *Compiler) Compile(root *ast.Root) (*bytecode.Binary, error) {
	if err := c.compileRoot(root); err != nil {
		if ce, ok := err.(*diagnostics.CompileError); ok {
			ce.WithFile(c.bin.Name)
		}
		return nil, err
	}
	if err := c.bin.Resolve(); err != nil {
		return nil, err
	}
	return c.bin, nil
}

func (c *Compiler) compileRoot(root *ast.Root) error {
	seen := make(map[string]bool, len(root.Funcs))
	for _, f := range root.Funcs {
		if seen[f.Name] {
			return c.errorf(f.Token, "function %q declared more than once", f.Name)
		}
		seen[f.Name] = true
		c.declareFunc(f, funcLabel(f.Name))
	}

	for _, stmt := range root.Body {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	c.bin.Emit(bytecode.OP_HALT)

	for _, f := range root.Funcs {
		if err := c.compileFuncBody(f, funcLabel(f.Name)); err != nil {
			return err
		}
	}
	return nil
}

func funcLabel(name string) string { return "func_" + name }

func (c *Compiler) nextIndex() int {
	c.index++
	return c.index
}

func (c *Compiler) label(prefix string, n int) string {
	return fmt.Sprintf("%s_%d", prefix, n)
}

func (c *Compiler) mark(name string) error {
	return c.bin.MarkLabel(name)
}

func (c *Compiler) debug(tok token.Token) {
	c.bin.MarkDebug(tok.Pos.Line, tok.Pos.Column)
}

func (c *Compiler) errorf(tok token.Token, format string, args ...any) error {
	return diagnostics.NewError(diagnostics.ErrCodegen, tok.Pos, format, args...)
}

// declareFunc binds name to the function entry in the current context.
func (c *Compiler) declareFunc(f *ast.Func, entry string) {
	c.bin.EmitInt(bytecode.OP_PUSH_INT, int32(len(f.Params)))
	c.bin.EmitLabel(bytecode.OP_PUSH_INT, entry)
	c.debug(f.Token)
	c.bin.EmitStr(bytecode.OP_STORE_FN, f.Name)
}

// compileFuncBody emits the body of f at label entry. Arguments arrive on
// the stack in call order, so parameters are stored last to first. The
// body runs directly in the activation context.
func (c *Compiler) compileFuncBody(f *ast.Func, entry string) error {
	savedLoop, savedScope, savedTry := c.loop, c.scopeDepth, c.tryDepth
	c.loop, c.scopeDepth, c.tryDepth = nil, 0, 0
	defer func() { c.loop, c.scopeDepth, c.tryDepth = savedLoop, savedScope, savedTry }()

	if err := c.mark(entry); err != nil {
		return err
	}
	for i := len(f.Params) - 1; i >= 0; i-- {
		c.debug(f.Params[i].Token)
		c.bin.EmitStr(bytecode.OP_STORE_VAR, f.Params[i].Name)
	}
	for _, stmt := range f.Body.Statements {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	c.bin.Emit(bytecode.OP_RET_VOID)
	return nil
}

func (c *Compiler) compileNumber(n *ast.Number) {
	v := n.Value
	if v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 && !(v == 0 && math.Signbit(v)) {
		c.bin.EmitInt(bytecode.OP_PUSH_INT, int32(v))
		return
	}
	c.bin.EmitNum(bytecode.OP_PUSH_NUM, v)
}

func (c *Compiler) compileString(s *ast.String) error {
	if !bytecode.ValidString(s.Value) {
		return c.errorf(s.Token, "string literal contains a NUL character")
	}
	c.bin.EmitStr(bytecode.OP_PUSH_STR, s.Value)
	return nil
}
