package compiler

import (
	"gotacit/internal/ops"
	"gotacit/internal/tagged"
	"gotacit/internal/token"
)

// compileGlobal handles `global name`: unlike `var`, a global is
// deep-copied onto GLOBAL at compile time rather than left to be pushed
// at run time, so its initializer must be a compile-time constant — the
// preceding literal (number, string, or list of such) that left its
// trace in lastConst (spec §9, "Global heap").
func (c *Compiler) compileGlobal() error {
	nameTok, err := c.next()
	if err != nil {
		return err
	}
	if nameTok.Kind != token.WORD {
		return c.errorf(nameTok.Pos, "expected a name after global")
	}
	if !c.lastConst.valid {
		return c.errorf(nameTok.Pos, "global requires a compile-time constant initializer")
	}

	var headerAbs int
	for _, bits := range c.lastConst.cells {
		headerAbs, err = c.vm.GPush(tagged.Value(bits))
		if err != nil {
			return err
		}
	}

	ref, err := tagged.Tagged(int32(headerAbs), tagged.TagRef)
	if err != nil {
		return err
	}
	if _, err := c.vm.Define(nameTok.Text, ref); err != nil {
		return err
	}
	// The initializer literal was already emitted; drop its run-time
	// value so that only the GLOBAL copy remains.
	c.emitOp(ops.Drop)
	c.lastConst = constFold{}
	return nil
}
