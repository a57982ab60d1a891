package compiler

import (
	"gotacit/internal/dict"
	"gotacit/internal/ops"
	"gotacit/internal/tagged"
	"gotacit/internal/token"
)

// compileDefinitionStart handles `:`: it reads the definition's name,
// reserves a forward jump over the body so straight-line top-level
// execution skips it, defines the dictionary entry pointing at the body
// (past that jump), hides the entry for the duration of the body so it
// can only be reached via `recurse`, and opens a fresh locals scope
// (spec §4.5.4).
func (c *Compiler) compileDefinitionStart(colonTok token.Token) error {
	if c.locals != nil {
		return c.errorf(colonTok.Pos, "nested definitions are not supported")
	}
	nameTok, err := c.next()
	if err != nil {
		return err
	}
	if nameTok.Kind != token.WORD {
		return c.errorf(nameTok.Pos, "expected a name after :")
	}

	c.emitOp(ops.Branch)
	forwardPatch := c.pos()
	c.emitInt16(0)

	bodyStart := c.cp
	addr, err := tagged.EncodeCodeAddr(bodyStart)
	if err != nil {
		return err
	}
	entry, err := c.vm.Define(nameTok.Text, addr)
	if err != nil {
		return err
	}
	if err := c.vm.Dict.HideEntry(entry); err != nil {
		return err
	}

	c.ctrl = append(c.ctrl, ctrlFrame{
		kind:            frameDef,
		patchPos:        forwardPatch,
		entry:           entry,
		prevLocals:      c.locals,
		prevRecurseAddr: c.recurseAddr,
	})
	c.locals = &localsScope{slots: map[string]int{}}
	c.recurseAddr = bodyStart
	c.lastConst = constFold{}
	return nil
}

// compileDefinitionEnd closes the innermost definition frame: emit Exit,
// patch the forward jump to land here, patch the lazily-sized Reserve (if
// any locals were declared), unhide the entry, and restore the enclosing
// compile state.
func (c *Compiler) compileDefinitionEnd(frame ctrlFrame) error {
	c.emitOp(ops.Exit)
	c.patchBranchHere(frame.patchPos)
	if c.locals.reserved {
		c.patchUint16(c.locals.reservePatch, uint16(c.locals.next))
	}
	if err := c.vm.Dict.UnhideEntry(frame.entry); err != nil {
		return err
	}
	c.locals = frame.prevLocals
	c.recurseAddr = frame.prevRecurseAddr
	c.lastConst = constFold{}
	return nil
}

// compileVar handles `var name`: pops the value already computed by the
// preceding expression into a freshly allocated local slot (spec §9,
// "Compound variables").
func (c *Compiler) compileVar() error {
	nameTok, err := c.next()
	if err != nil {
		return err
	}
	if nameTok.Kind != token.WORD {
		return c.errorf(nameTok.Pos, "expected a name after var")
	}
	if c.locals == nil {
		return c.errorf(nameTok.Pos, "var used outside a function body")
	}
	if !c.locals.reserved {
		c.emitOp(ops.Reserve)
		c.locals.reservePatch = c.pos()
		c.emitUint16(0)
		c.locals.reserved = true
	}
	slot := c.locals.next
	c.locals.next++
	c.emitOp(ops.InitVar)
	c.emitUint16(uint16(slot))
	c.locals.slots[nameTok.Text] = slot
	c.lastConst = constFold{}
	return nil
}

// ctrlFrame and frameKind are declared here since definitions share the
// same compile-time frame stack as if/else/match/with (spec §4.5.5's
// "closer tag at TOS" is modeled as the Kind of the innermost Compiler.ctrl
// frame rather than a literal data-stack sentinel; see DESIGN.md).
type frameKind int

const (
	frameDef frameKind = iota
	frameIf
	frameElse
	frameMatch
	frameWithClause
)

type ctrlFrame struct {
	kind     frameKind
	patchPos uint32 // position of the int16 operand this frame will patch on close

	// frameDef only:
	entry           *dict.Entry
	prevLocals      *localsScope
	prevRecurseAddr uint32

	// frameMatch only: pending unconditional jumps from completed
	// with-clauses, all patched to land together when match closes.
	exitPatches []uint32
}
