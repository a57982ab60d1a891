package compiler

import (
	"gotacit/internal/ops"
	"gotacit/internal/tagged"
	"gotacit/internal/token"
)

// internalOnlyOpcodes never have a surface spelling a user types directly:
// the compiler alone emits them, each carrying an operand only the
// compiler knows how to supply (a branch target, a slot index, a CODE
// address). builtinWords is built from ops.Names by excluding exactly
// this set, so a newly registered builtin in internal/ops becomes
// user-callable automatically unless it is added here.
var internalOnlyOpcodes = map[ops.Opcode]bool{
	ops.Nop:           true,
	ops.LiteralNumber: true,
	ops.LiteralString: true,
	ops.Call:          true,
	ops.Exit:          true,
	ops.Abort:         true,
	ops.Branch:        true,
	ops.IfFalseBranch: true,
	ops.Reserve:       true,
	ops.VarRef:        true,
	ops.InitVar:       true,
	ops.GlobalRef:     true,
}

// builtinWords maps a word's surface spelling to the opcode it compiles
// to, built once from the authoritative ops.Names table rather than
// hand-duplicated, so the compiler and the opcode registry can never
// drift apart.
var builtinWords = func() map[string]ops.Opcode {
	m := make(map[string]ops.Opcode)
	for i, name := range ops.Names {
		if name == "" {
			continue
		}
		op := ops.Opcode(i)
		if internalOnlyOpcodes[op] {
			continue
		}
		m[name] = op
	}
	return m
}()

// compileWord resolves a plain WORD token: a control-flow/declaration
// keyword, a local variable, a builtin, or a dictionary entry (user word
// or global), in that priority order (spec §4.5.3).
func (c *Compiler) compileWord(tk token.Token) error {
	switch tk.Text {
	case "if":
		return c.compileIf()
	case "else":
		return c.compileElse()
	case "match":
		return c.compileMatch()
	case "with":
		return c.compileWith()
	case "var":
		return c.compileVar()
	case "global":
		return c.compileGlobal()
	case "recurse":
		return c.compileRecurse(tk)
	case "include":
		return c.compileInclude()
	}

	if c.locals != nil {
		if slot, ok := c.locals.slots[tk.Text]; ok {
			return c.compileLocalRead(slot)
		}
	}

	if op, ok := builtinWords[tk.Text]; ok {
		c.emitOp(op)
		c.lastConst = constFold{}
		return nil
	}

	entry, err := c.vm.Dict.FindEntryByName(tk.Text)
	if err != nil {
		return err
	}
	if entry == nil {
		return c.errorf(tk.Pos, "unknown word %q", tk.Text)
	}
	if tagged.IsCode(entry.Payload) {
		c.emitOp(ops.Call)
		c.emitFloatBits(uint32(entry.Payload))
		c.lastConst = constFold{}
		return nil
	}
	if tagged.IsRef(entry.Payload) {
		_, cell := tagged.Decode(entry.Payload)
		c.emitOp(ops.GlobalRef)
		c.emitUint16(uint16(cell))
		return c.compileTrailingPathOrFetch(tk)
	}
	return c.errorf(tk.Pos, "%q has an unsupported dictionary payload", tk.Text)
}

// compileLocalRead emits VarRef slot and, unless a bracket path follows,
// Fetch — materialising compound data the same way a global read does.
func (c *Compiler) compileLocalRead(slot int) error {
	c.emitOp(ops.VarRef)
	c.emitUint16(uint16(slot))
	return c.compileTrailingPathOrFetchRaw()
}

// compileTrailingPathOrFetch is called right after a GlobalRef has been
// emitted (address still on the conceptual "target" position): if the
// next token opens a bracket path, compile it and retrieve through it;
// otherwise Fetch the addressed cell directly.
func (c *Compiler) compileTrailingPathOrFetch(tk token.Token) error {
	return c.compileTrailingPathOrFetchRaw()
}

func (c *Compiler) compileTrailingPathOrFetchRaw() error {
	next, err := c.peek()
	if err != nil {
		return err
	}
	if next.Kind == token.SPECIAL && next.Text == "[" {
		c.next()
		if err := c.compileBracketPath(); err != nil {
			return err
		}
		c.emitOp(ops.Retrieve)
		c.lastConst = constFold{}
		return nil
	}
	c.emitOp(ops.Fetch)
	c.lastConst = constFold{}
	return nil
}

// compileRecurse compiles a self-call to the definition currently being
// compiled, resolving even while the entry is hidden (spec §4.5.4).
func (c *Compiler) compileRecurse(tk token.Token) error {
	if c.locals == nil {
		return c.errorf(tk.Pos, "recurse used outside a function body")
	}
	addr, err := tagged.EncodeCodeAddr(c.recurseAddr)
	if err != nil {
		return err
	}
	c.emitOp(ops.Call)
	c.emitFloatBits(uint32(addr))
	c.lastConst = constFold{}
	return nil
}
