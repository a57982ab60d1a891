package compiler

import (
	"gotacit/internal/ops"
	"gotacit/internal/token"
)

// compileStoreArrow handles `->` and `+>` (spec §4.5.3, §9 "Compound
// variables"): the value already sits on the stack from the preceding
// expression. `->` stores it directly; `+>` is sugar for
// `value x add -> x` (or its bracket-path generalization), so the path's
// already-compiled bytes (side-effect-free, safe to replay) are spliced
// twice: once to retrieve the current value, once to address the store.
func (c *Compiler) compileStoreArrow(arrowTok token.Token, increment bool) error {
	nameTok, err := c.next()
	if err != nil {
		return err
	}
	if nameTok.Kind != token.WORD {
		return c.errorf(nameTok.Pos, "expected a name after %q", arrowTok.Text)
	}

	var pathBuf []byte
	hasPath := false
	next, err := c.peek()
	if err != nil {
		return err
	}
	if next.Kind == token.SPECIAL && next.Text == "[" {
		c.next()
		c.pushBuf()
		perr := c.compileBracketPath()
		pathBuf = c.popBuf()
		if perr != nil {
			return perr
		}
		hasPath = true
	}

	if increment {
		if err := c.emitAddressOf(nameTok.Text, nameTok.Pos); err != nil {
			return err
		}
		if hasPath {
			c.spliceRaw(pathBuf)
			c.emitOp(ops.Retrieve)
		} else {
			c.emitOp(ops.Fetch)
		}
		c.emitOp(ops.Add)
	}

	if err := c.emitAddressOf(nameTok.Text, nameTok.Pos); err != nil {
		return err
	}
	if hasPath {
		c.spliceRaw(pathBuf)
		c.emitOp(ops.Update)
	} else {
		c.emitOp(ops.Store)
	}
	c.lastConst = constFold{}
	return nil
}
