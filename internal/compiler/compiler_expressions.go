package compiler

import (
	"github.com/funvibe/ember/internal/ast"
	"github.com/funvibe/ember/internal/bytecode"
	"github.com/funvibe/ember/internal/token"
)

var binaryOperators = map[token.TokenType]bytecode.Operator{
	token.PLUS:     bytecode.OpAdd,
	token.MINUS:    bytecode.OpSub,
	token.ASTERISK: bytecode.OpMul,
	token.SLASH:    bytecode.OpDiv,
	token.EQ:       bytecode.OpEq,
	token.NOT_EQ:   bytecode.OpNe,
	token.LT:       bytecode.OpLt,
	token.GT:       bytecode.OpGt,
	token.LTE:      bytecode.OpLe,
	token.GTE:      bytecode.OpGe,
}

var unaryOperators = map[token.TokenType]bytecode.Operator{
	token.MINUS: bytecode.OpNeg,
	token.PLUS:  bytecode.OpPlus,
	token.BANG:  bytecode.OpNot,
}

func (c *Compiler) compileExpression(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.Number:
		c.compileNumber(e)
		return nil
	case *ast.String:
		return c.compileString(e)
	case *ast.Ident:
		c.debug(e.Token)
		c.bin.EmitStr(bytecode.OP_PUSH_VAR, e.Name)
		return nil
	case *ast.Unary:
		op, ok := unaryOperators[e.Op]
		if !ok {
			return c.errorf(e.Token, "unknown unary operator %s", e.Op)
		}
		if err := c.compileExpression(e.Operand); err != nil {
			return err
		}
		c.debug(e.Token)
		c.bin.EmitInt(bytecode.OP_UNARY, int32(op))
		return nil
	case *ast.Binary:
		return c.compileBinary(e)
	case *ast.Call:
		return c.compileCall(e)
	case *ast.Index:
		if err := c.compileExpression(e.Target); err != nil {
			return err
		}
		if err := c.compileExpression(e.Index); err != nil {
			return err
		}
		c.debug(e.Token)
		c.bin.Emit(bytecode.OP_INDEX)
		return nil
	case *ast.Member:
		if err := c.compileExpression(e.Target); err != nil {
			return err
		}
		c.debug(e.Token)
		c.bin.EmitStr(bytecode.OP_MEMBER, e.Name)
		return nil
	}
	return c.errorf(expr.GetToken(), "unsupported expression %T", expr)
}

func (c *Compiler) compileBinary(e *ast.Binary) error {
	switch e.Op {
	case token.ASSIGN:
		return c.compileAssign(e)
	case token.COMMA:
		elems := ast.Flatten(e)
		for _, el := range elems {
			if err := c.compileExpression(el); err != nil {
				return err
			}
		}
		c.bin.EmitInt(bytecode.OP_TUPLE, int32(len(elems)))
		return nil
	case token.AND:
		return c.compileAnd(e)
	case token.OR:
		return c.compileOr(e)
	}

	op, ok := binaryOperators[e.Op]
	if !ok {
		return c.errorf(e.Token, "unknown binary operator %s", e.Op)
	}
	if err := c.compileExpression(e.Left); err != nil {
		return err
	}
	if err := c.compileExpression(e.Right); err != nil {
		return err
	}
	c.debug(e.Token)
	c.bin.EmitInt(bytecode.OP_BINARY, int32(op))
	return nil
}

// a && b evaluates b only when a is truthy and yields 1 or 0.
func (c *Compiler) compileAnd(e *ast.Binary) error {
	n := c.nextIndex()
	short := c.label("and", n)
	end := c.label("andend", n)

	if err := c.compileExpression(e.Left); err != nil {
		return err
	}
	c.bin.EmitLabel(bytecode.OP_BRANCH_IF_ZERO, short)
	if err := c.compileExpression(e.Right); err != nil {
		return err
	}
	c.emitTruth()
	c.bin.EmitLabel(bytecode.OP_JUMP, end)
	if err := c.mark(short); err != nil {
		return err
	}
	c.bin.EmitInt(bytecode.OP_PUSH_INT, 0)
	return c.mark(end)
}

// a || b evaluates b only when a is falsy and yields 1 or 0.
func (c *Compiler) compileOr(e *ast.Binary) error {
	n := c.nextIndex()
	rhs := c.label("or", n)
	end := c.label("orend", n)

	if err := c.compileExpression(e.Left); err != nil {
		return err
	}
	c.bin.EmitLabel(bytecode.OP_BRANCH_IF_ZERO, rhs)
	c.bin.EmitInt(bytecode.OP_PUSH_INT, 1)
	c.bin.EmitLabel(bytecode.OP_JUMP, end)
	if err := c.mark(rhs); err != nil {
		return err
	}
	if err := c.compileExpression(e.Right); err != nil {
		return err
	}
	c.emitTruth()
	return c.mark(end)
}

// emitTruth turns the value on top of the stack into 1 or 0.
func (c *Compiler) emitTruth() {
	c.bin.EmitInt(bytecode.OP_UNARY, int32(bytecode.OpNot))
	c.bin.EmitInt(bytecode.OP_UNARY, int32(bytecode.OpNot))
}

// compileAssign leaves the assigned value on the stack.
func (c *Compiler) compileAssign(e *ast.Binary) error {
	switch target := e.Left.(type) {
	case *ast.Ident:
		if err := c.compileExpression(e.Right); err != nil {
			return err
		}
		c.debug(target.Token)
		c.bin.EmitStr(bytecode.OP_SET_VAR, target.Name)
		return nil

	case *ast.Index:
		if err := c.compileExpression(target.Target); err != nil {
			return err
		}
		if err := c.compileExpression(target.Index); err != nil {
			return err
		}
		if err := c.compileExpression(e.Right); err != nil {
			return err
		}
		c.debug(target.Token)
		c.bin.Emit(bytecode.OP_SET_INDEX)
		return nil

	case *ast.Member:
		if err := c.compileExpression(target.Target); err != nil {
			return err
		}
		if err := c.compileExpression(e.Right); err != nil {
			return err
		}
		c.debug(target.Token)
		c.bin.EmitStr(bytecode.OP_SET_MEMBER, target.Name)
		return nil

	case *ast.Binary:
		if target.Op != token.COMMA {
			break
		}
		return c.compileTupleAssign(target, e)
	}
	return c.errorf(e.Token, "invalid assignment target")
}

// compileTupleAssign handles (a, b) = expr. The tuple itself is the value
// of the expression.
func (c *Compiler) compileTupleAssign(target *ast.Binary, e *ast.Binary) error {
	elems := ast.Flatten(target)
	names := make([]*ast.Ident, len(elems))
	for i, el := range elems {
		id, ok := el.(*ast.Ident)
		if !ok {
			return c.errorf(el.GetToken(), "tuple assignment target must be an identifier")
		}
		names[i] = id
	}

	if err := c.compileExpression(e.Right); err != nil {
		return err
	}
	c.bin.Emit(bytecode.OP_DUP)
	c.debug(e.Token)
	c.bin.EmitInt(bytecode.OP_UNPACK, int32(len(names)))
	for _, id := range names {
		c.debug(id.Token)
		c.bin.EmitStr(bytecode.OP_SET_VAR, id.Name)
		c.bin.Emit(bytecode.OP_POP)
	}
	return nil
}

// compileCall emits CALL_MEMBER when the callee is a member access so the
// receiver is bound to `this`.
func (c *Compiler) compileCall(e *ast.Call) error {
	member, isMember := e.Callee.(*ast.Member)
	if isMember {
		if err := c.compileExpression(member.Target); err != nil {
			return err
		}
		c.debug(member.Token)
		c.bin.EmitStr(bytecode.OP_MEMBER_KEEP, member.Name)
	} else if err := c.compileExpression(e.Callee); err != nil {
		return err
	}

	for _, arg := range e.Args {
		if err := c.compileExpression(arg); err != nil {
			return err
		}
	}

	c.debug(e.Token)
	if isMember {
		c.bin.EmitInt(bytecode.OP_CALL_MEMBER, int32(len(e.Args)))
	} else {
		c.bin.EmitInt(bytecode.OP_CALL, int32(len(e.Args)))
	}
	return nil
}
