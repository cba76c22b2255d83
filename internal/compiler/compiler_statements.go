package compiler

import (
	"github.com/funvibe/ember/internal/ast"
	"github.com/funvibe/ember/internal/bytecode"
)

func (c *Compiler) compileStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.Block:
		return c.compileBlock(s)
	case *ast.Decl:
		return c.compileDecl(s)
	case *ast.Func:
		return c.compileNestedFunc(s)
	case *ast.Return:
		if s.Value == nil {
			c.bin.Emit(bytecode.OP_RET_VOID)
			return nil
		}
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		c.bin.Emit(bytecode.OP_RET)
		return nil
	case *ast.Cond:
		return c.compileCond(s)
	case *ast.Loop:
		return c.compileLoop(s)
	case *ast.Break:
		return c.compileBreak(s)
	case *ast.Import:
		c.debug(s.Token)
		c.bin.EmitStr(bytecode.OP_IMPORT, s.Name.Name)
		return nil
	case *ast.TryCatch:
		return c.compileTryCatch(s)
	case *ast.Throw:
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		c.debug(s.Token)
		c.bin.Emit(bytecode.OP_THROW)
		return nil
	case *ast.Class:
		return c.errorf(s.Token, "class %s was not desugared", s.Name.Name)
	case ast.Expression:
		if err := c.compileExpression(s); err != nil {
			return err
		}
		c.bin.Emit(bytecode.OP_POP)
		return nil
	}
	return c.errorf(stmt.GetToken(), "unsupported statement %T", stmt)
}

func (c *Compiler) compileBlock(b *ast.Block) error {
	c.bin.Emit(bytecode.OP_PUSH_SCOPE)
	c.scopeDepth++
	for _, stmt := range b.Statements {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	c.scopeDepth--
	c.bin.Emit(bytecode.OP_POP_SCOPE)
	return nil
}

func (c *Compiler) compileDecl(d *ast.Decl) error {
	if err := c.compileExpression(d.Value); err != nil {
		return err
	}
	if len(d.Names) > 1 {
		c.debug(d.Token)
		c.bin.EmitInt(bytecode.OP_UNPACK, int32(len(d.Names)))
	}
	for _, name := range d.Names {
		c.debug(name.Token)
		c.bin.EmitStr(bytecode.OP_STORE_VAR, name.Name)
	}
	return nil
}

// compileNestedFunc emits the body inline, jumps over it, and binds the
// function when control reaches the declaration so it closes over the
// current context.
func (c *Compiler) compileNestedFunc(f *ast.Func) error {
	n := c.nextIndex()
	entry := c.label(funcLabel(f.Name), n)
	end := c.label("fnend", n)

	c.bin.EmitLabel(bytecode.OP_JUMP, end)
	if err := c.compileFuncBody(f, entry); err != nil {
		return err
	}
	if err := c.mark(end); err != nil {
		return err
	}
	c.declareFunc(f, entry)
	return nil
}

func (c *Compiler) compileCond(s *ast.Cond) error {
	n := c.nextIndex()
	elseLabel := c.label("cond", n)
	end := c.label("condend", n)

	if err := c.compileExpression(s.Test); err != nil {
		return err
	}
	if s.Else == nil {
		c.bin.EmitLabel(bytecode.OP_BRANCH_IF_ZERO, end)
		if err := c.compileStatement(s.Then); err != nil {
			return err
		}
		return c.mark(end)
	}

	c.bin.EmitLabel(bytecode.OP_BRANCH_IF_ZERO, elseLabel)
	if err := c.compileStatement(s.Then); err != nil {
		return err
	}
	c.bin.EmitLabel(bytecode.OP_JUMP, end)
	if err := c.mark(elseLabel); err != nil {
		return err
	}
	if err := c.compileStatement(s.Else); err != nil {
		return err
	}
	return c.mark(end)
}

func (c *Compiler) compileLoop(s *ast.Loop) error {
	n := c.nextIndex()
	start := c.label("loop", n)
	end := c.label("loopend", n)

	saved := c.loop
	c.loop = &loopState{id: n, scopeDepth: c.scopeDepth, tryDepth: c.tryDepth}
	defer func() { c.loop = saved }()

	if err := c.mark(start); err != nil {
		return err
	}
	if err := c.compileExpression(s.Test); err != nil {
		return err
	}
	c.bin.EmitLabel(bytecode.OP_BRANCH_IF_ZERO, end)
	if err := c.compileStatement(s.Body); err != nil {
		return err
	}
	c.bin.EmitLabel(bytecode.OP_JUMP, start)
	return c.mark(end)
}

// compileBreak leaves the innermost loop, closing the try frames and scopes
// opened inside it.
func (c *Compiler) compileBreak(s *ast.Break) error {
	if c.loop == nil {
		return c.errorf(s.Token, "break outside of a loop")
	}
	for i := c.tryDepth; i > c.loop.tryDepth; i-- {
		c.bin.Emit(bytecode.OP_END_TRY)
	}
	for i := c.scopeDepth; i > c.loop.scopeDepth; i-- {
		c.bin.Emit(bytecode.OP_POP_SCOPE)
	}
	c.bin.EmitLabel(bytecode.OP_JUMP, c.label("loopend", c.loop.id))
	return nil
}

// compileTryCatch:
//
//	TRY catch_N
//	<body>
//	END_TRY
//	JUMP tryend_N
//	catch_N:            ; thrown value on the stack
//	PUSH_SCOPE
//	STORE_VAR exception
//	<catch>
//	POP_SCOPE
//	tryend_N:
func (c *Compiler) compileTryCatch(s *ast.TryCatch) error {
	n := c.nextIndex()
	catch := c.label("catch", n)
	end := c.label("tryend", n)

	c.bin.EmitLabel(bytecode.OP_TRY, catch)
	c.tryDepth++
	if err := c.compileBlock(s.Body); err != nil {
		return err
	}
	c.tryDepth--
	c.bin.Emit(bytecode.OP_END_TRY)
	c.bin.EmitLabel(bytecode.OP_JUMP, end)

	if err := c.mark(catch); err != nil {
		return err
	}
	c.bin.Emit(bytecode.OP_PUSH_SCOPE)
	c.scopeDepth++
	c.bin.EmitStr(bytecode.OP_STORE_VAR, ExceptionName)
	for _, stmt := range s.Catch.Statements {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	c.scopeDepth--
	c.bin.Emit(bytecode.OP_POP_SCOPE)
	return c.mark(end)
}
