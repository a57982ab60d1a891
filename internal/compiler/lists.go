package compiler

import (
	"gotacit/internal/ops"
	"gotacit/internal/tagged"
	"gotacit/internal/token"
)

// compileListLiteral handles a `(` already consumed by the caller: it
// compiles the element sequence and wraps it in Pack n (spec §9's
// "Reverse list layout" — elements are spliced into CODE in reverse
// source order so the shallowest payload cell is logical index 0).
func (c *Compiler) compileListLiteral() error {
	n, values, foldable, err := c.compileListBody()
	if err != nil {
		return err
	}
	c.emitOp(ops.Pack)
	c.emitUint16(uint16(n))
	c.lastConst = constFold{}
	if foldable {
		if header, herr := tagged.Tagged(int32(n), tagged.TagList); herr == nil {
			cells := append(append([]uint32{}, values...), uint32(header))
			c.lastConst = constFold{cells: cells, valid: true}
		}
	}
	return nil
}

// compileListBody reads list elements up to the matching `)`, splicing
// each element's bytecode into CODE in reverse source order. It returns
// the total cell count (the Pack operand, the sum of each element's
// runtime span) and, if every element was a compile-time constant, the
// cell values in the same deepest-first order the runtime list layout
// uses — the substrate `global`'s constant folding consumes.
func (c *Compiler) compileListBody() (n int, values []uint32, foldable bool, err error) {
	type elem struct {
		buf      []byte
		span     int
		values   []uint32
		foldable bool
	}
	var elems []elem
	allFoldable := true

	for {
		tk, perr := c.peek()
		if perr != nil {
			return 0, nil, false, perr
		}
		if tk.Kind == token.SPECIAL && tk.Text == ")" {
			c.next()
			break
		}
		if tk.Kind == token.EOF {
			return 0, nil, false, c.errorf(tk.Pos, "unterminated list literal")
		}
		c.next()

		c.pushBuf()
		span, vals, fold, eerr := c.compileListElement(tk)
		buf := c.popBuf()
		if eerr != nil {
			return 0, nil, false, eerr
		}
		elems = append(elems, elem{buf: buf, span: span, values: vals, foldable: fold})
		n += span
		if !fold {
			allFoldable = false
		}
	}

	for i := len(elems) - 1; i >= 0; i-- {
		c.spliceRaw(elems[i].buf)
	}
	if allFoldable {
		for i := len(elems) - 1; i >= 0; i-- {
			values = append(values, elems[i].values...)
		}
	}
	return n, values, allFoldable, nil
}

// compileListElement compiles one list-literal element, reporting its
// runtime span (1 for a simple value, n+1 for a nested list) and, when
// constant-foldable, its runtime cell values deepest-first.
func (c *Compiler) compileListElement(tk token.Token) (span int, values []uint32, foldable bool, err error) {
	switch {
	case tk.Kind == token.NUMBER:
		bits := uint32(tagged.FromFloat32(tk.Num))
		c.emitOp(ops.LiteralNumber)
		c.emitFloatBits(bits)
		return 1, []uint32{bits}, true, nil

	case tk.Kind == token.STRING:
		id, ierr := c.vm.Digest.Intern(tk.Str)
		if ierr != nil {
			return 0, nil, false, ierr
		}
		v, terr := tagged.Tagged(int32(id), tagged.TagString)
		if terr != nil {
			return 0, nil, false, terr
		}
		c.emitOp(ops.LiteralString)
		c.emitUint16(id)
		return 1, []uint32{uint32(v)}, true, nil

	case tk.Kind == token.REF_SIGIL:
		nameTok, nerr := c.next()
		if nerr != nil {
			return 0, nil, false, nerr
		}
		if nameTok.Kind != token.WORD {
			return 0, nil, false, c.errorf(nameTok.Pos, "expected a name after &")
		}
		if aerr := c.emitAddressOf(nameTok.Text, nameTok.Pos); aerr != nil {
			return 0, nil, false, aerr
		}
		return 1, nil, false, nil

	case tk.Kind == token.SPECIAL && tk.Text == "(":
		innerN, innerValues, innerFoldable, ierr := c.compileListBody()
		if ierr != nil {
			return 0, nil, false, ierr
		}
		c.emitOp(ops.Pack)
		c.emitUint16(uint16(innerN))
		if !innerFoldable {
			return innerN + 1, nil, false, nil
		}
		header, herr := tagged.Tagged(int32(innerN), tagged.TagList)
		if herr != nil {
			return innerN + 1, nil, false, nil
		}
		return innerN + 1, append(append([]uint32{}, innerValues...), uint32(header)), true, nil

	default:
		return 0, nil, false, c.errorf(tk.Pos, "unsupported list-literal element %q", tk.Text)
	}
}

// compileBracketPath handles the path portion of `x[ p1 … pn ]` (the `[`
// already consumed): each element must be a numeric or string literal
// (spec §4.5.6), spliced in reverse order like a list literal and wrapped
// in Pack n so `select`/`retrieve`/`update` can walk it.
func (c *Compiler) compileBracketPath() error {
	type elem struct {
		buf  []byte
		span int
	}
	var elems []elem
	n := 0

	for {
		tk, perr := c.peek()
		if perr != nil {
			return perr
		}
		if tk.Kind == token.SPECIAL && tk.Text == "]" {
			c.next()
			break
		}
		if tk.Kind == token.EOF {
			return c.errorf(tk.Pos, "unterminated bracket path")
		}
		c.next()
		if tk.Kind != token.NUMBER && tk.Kind != token.STRING {
			return c.errorf(tk.Pos, "path element must be a number or string literal")
		}
		c.pushBuf()
		_, _, _, eerr := c.compileListElement(tk)
		buf := c.popBuf()
		if eerr != nil {
			return eerr
		}
		elems = append(elems, elem{buf: buf, span: 1})
		n++
	}

	for i := len(elems) - 1; i >= 0; i-- {
		c.spliceRaw(elems[i].buf)
	}
	c.emitOp(ops.Pack)
	c.emitUint16(uint16(n))
	return nil
}

// compileBlockLiteral handles `{`: compiles the body out of line behind a
// forward jump, leaving a CODE value on the stack rather than executing
// inline (spec §4.5.2).
func (c *Compiler) compileBlockLiteral(openTok token.Token) error {
	c.emitOp(ops.Branch)
	forwardPatch := c.pos()
	c.emitInt16(0)

	bodyStart := c.cp
	addr, err := tagged.EncodeCodeAddr(bodyStart)
	if err != nil {
		return err
	}

	for {
		tk, perr := c.peek()
		if perr != nil {
			return perr
		}
		if tk.Kind == token.SPECIAL && tk.Text == "}" {
			c.next()
			break
		}
		if tk.Kind == token.EOF {
			return c.errorf(tk.Pos, "unterminated code block, expected }")
		}
		c.next()
		if err := c.compileToken(tk); err != nil {
			return err
		}
	}
	c.emitOp(ops.Exit)
	c.patchBranchHere(forwardPatch)

	c.emitOp(ops.LiteralNumber)
	c.emitFloatBits(uint32(addr))
	c.lastConst = constFold{}
	return nil
}
