package compiler

import "gotacit/internal/ops"

// compileIf handles `if`: the condition was already computed by the
// preceding expression and sits on the data stack at runtime (spec
// §4.5.5). Emits IfFalseBranch with a placeholder offset, patched by the
// matching `else` or `;`.
func (c *Compiler) compileIf() error {
	c.emitOp(ops.IfFalseBranch)
	pos := c.pos()
	c.emitInt16(0)
	c.ctrl = append(c.ctrl, ctrlFrame{kind: frameIf, patchPos: pos})
	c.lastConst = constFold{}
	return nil
}

// compileElse handles `else`: closes the true branch with an
// unconditional jump to the eventual end, patches the pending
// IfFalseBranch to land here (the start of the false branch), and leaves
// a frameElse open for the final `;`.
func (c *Compiler) compileElse() error {
	if len(c.ctrl) == 0 || c.ctrl[len(c.ctrl)-1].kind != frameIf {
		return c.errorf(0, "else without a matching if")
	}
	top := c.ctrl[len(c.ctrl)-1]

	c.emitOp(ops.Branch)
	jumpPos := c.pos()
	c.emitInt16(0)
	c.patchBranchHere(top.patchPos)

	c.ctrl[len(c.ctrl)-1] = ctrlFrame{kind: frameElse, patchPos: jumpPos}
	c.lastConst = constFold{}
	return nil
}

// compileMatch handles `match`: opens a frame that each `with`-clause's
// closing `;` will register its exit jump with, all patched together by
// the final `;` that closes the whole construct (spec §4.5.5).
func (c *Compiler) compileMatch() error {
	c.ctrl = append(c.ctrl, ctrlFrame{kind: frameMatch})
	c.lastConst = constFold{}
	return nil
}

// compileWith handles `with`: the clause's predicate (a boolean already
// computed by the preceding expression) is tested here; a false result
// branches to the next clause (or the default body), patched once that
// clause's `;` is reached.
func (c *Compiler) compileWith() error {
	if len(c.ctrl) == 0 || c.ctrl[len(c.ctrl)-1].kind != frameMatch {
		return c.errorf(0, "with used outside match")
	}
	c.emitOp(ops.IfFalseBranch)
	pos := c.pos()
	c.emitInt16(0)
	c.ctrl = append(c.ctrl, ctrlFrame{kind: frameWithClause, patchPos: pos})
	c.lastConst = constFold{}
	return nil
}
