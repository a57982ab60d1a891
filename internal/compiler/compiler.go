// Package compiler implements Tacit's single-pass compiler: a token-driven
// assembler that appends bytecode directly into the VM's CODE segment,
// generalizing the teacher's line-oriented CompileSourceFromBuffer
// (vm/compile.go) into a free-form, word-at-a-time compile loop suited to
// a concatenative language with compile-time immediates.
package compiler

import (
	"fmt"

	"gotacit/internal/mem"
	"gotacit/internal/ops"
	"gotacit/internal/tagged"
	"gotacit/internal/token"
	"gotacit/internal/vmstate"
)

// IncludeHost resolves an `include "path"` target relative to the source
// it was written in, per spec §6.3. The CLI/REPL collaborator supplies a
// filesystem-backed implementation; tests can supply an in-memory one.
type IncludeHost interface {
	ResolveInclude(target, currentSource string) (canonicalPath, source string, err error)
}

// CompileError reports a compile-time failure with the source position it
// occurred at.
type CompileError struct {
	Message string
	Pos     int
	Source  string
}

func (e CompileError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s:%d: %s", e.Source, e.Pos, e.Message)
	}
	return fmt.Sprintf("compile error at %d: %s", e.Pos, e.Message)
}

// constFold records the compile-time value of the most recently compiled
// unit, deepest-cell-first (the same order vm.GPush consumes), so `global`
// can deep-copy a literal straight into GLOBAL without running any
// bytecode.
type constFold struct {
	cells []uint32
	valid bool
}

// localsScope tracks the name -> slot table for the definition body
// currently compiling, plus the lazily-emitted Reserve operand's patch
// position.
type localsScope struct {
	slots        map[string]int
	next         int
	reservePatch uint32 // CODE offset of Reserve's uint16 operand
	reserved     bool
}

// Compiler holds the single long-lived compile session for one VM: the
// dictionary and GLOBAL heap it mutates are the same ones the interpreter
// later executes against, so definitions and globals compiled on one line
// are visible when compiling the next (spec's REPL/session model, §9).
type Compiler struct {
	vm  *vmstate.VM
	cp  uint32 // next free CODE byte
	src string // current chunk's source, for error messages

	tok      *token.Tokenizer
	buffered *token.Token

	bufStack [][]byte // active list-literal element buffers, innermost last

	ctrl []ctrlFrame

	defDepth    int
	locals      *localsScope
	recurseAddr uint32

	lastConst constFold

	includeHost  IncludeHost
	includeStack []string
}

// New constructs a Compiler over vm, starting compilation at CODE offset 0.
func New(vm *vmstate.VM, host IncludeHost) *Compiler {
	return &Compiler{vm: vm, includeHost: host}
}

// CP returns the next free CODE byte offset (the start of whatever will be
// compiled next).
func (c *Compiler) CP() uint32 { return c.cp }

// CompileChunk compiles source (e.g. one REPL line) and appends it to
// CODE, without emitting a terminal Abort — the session isn't over, so a
// later chunk may still extend the same dictionary and GLOBAL heap. The
// caller is responsible for running the freshly compiled range.
func (c *Compiler) CompileChunk(sourceName, source string) (start, end uint32, err error) {
	start = c.cp
	prevSrc, prevTok := c.src, c.tok
	c.src = sourceName
	c.tok = token.New(source)
	c.buffered = nil
	defer func() { c.src, c.tok = prevSrc, prevTok }()

	for {
		tk, err := c.next()
		if err != nil {
			return start, c.cp, c.wrap(err)
		}
		if tk.Kind == token.EOF {
			break
		}
		if err := c.compileToken(tk); err != nil {
			return start, c.cp, c.wrap(err)
		}
	}
	if err := c.ensureNoOpenConditionals(); err != nil {
		return start, c.cp, c.wrap(err)
	}
	return start, c.cp, nil
}

// CompileProgram compiles a complete, self-contained source (a whole file)
// and appends a final Abort, matching the EOF row of the compile-loop
// table.
func (c *Compiler) CompileProgram(sourceName, source string) (start, end uint32, err error) {
	start, _, err = c.CompileChunk(sourceName, source)
	if err != nil {
		return start, c.cp, err
	}
	c.emitOp(ops.Abort)
	return start, c.cp, nil
}

func (c *Compiler) wrap(err error) error {
	if ce, ok := err.(CompileError); ok {
		if ce.Source == "" {
			ce.Source = c.src
		}
		return ce
	}
	return err
}

func (c *Compiler) errorf(pos int, format string, args ...interface{}) error {
	return CompileError{Message: fmt.Sprintf(format, args...), Pos: pos, Source: c.src}
}

// next pulls the next token, honoring a single token of pushback.
func (c *Compiler) next() (token.Token, error) {
	if c.buffered != nil {
		tk := *c.buffered
		c.buffered = nil
		return tk, nil
	}
	return c.tok.Next()
}

// peek returns the next token without consuming it.
func (c *Compiler) peek() (token.Token, error) {
	if c.buffered == nil {
		tk, err := c.tok.Next()
		if err != nil {
			return token.Token{}, err
		}
		c.buffered = &tk
	}
	return *c.buffered, nil
}

// --- emission, direct-to-CODE or into the innermost list-element buffer ---

func (c *Compiler) emitBytes(b []byte) {
	if n := len(c.bufStack); n > 0 {
		c.bufStack[n-1] = append(c.bufStack[n-1], b...)
		return
	}
	for i, x := range b {
		_ = c.vm.Mem.Write8(mem.SegCode, int(c.cp)+i, x)
	}
	c.cp += uint32(len(b))
}

func (c *Compiler) emitOp(op ops.Opcode) { c.emitBytes([]byte{byte(op)}) }

func (c *Compiler) emitUint16(v uint16) { c.emitBytes([]byte{byte(v), byte(v >> 8)}) }
func (c *Compiler) emitInt16(v int16)   { c.emitUint16(uint16(v)) }

func (c *Compiler) emitUint32(v uint32) {
	c.emitBytes([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func (c *Compiler) emitFloatBits(bits uint32) { c.emitUint32(bits) }

// pushBuf/popBuf redirect emission into a scratch buffer for the duration
// of compiling one list-literal element, so elements can be spliced into
// CODE in reverse source order once the literal closes (spec §4.5.6's
// header-at-TOS layout requires the payload's physical order to be
// reversed from source order).
func (c *Compiler) pushBuf() { c.bufStack = append(c.bufStack, []byte{}) }
func (c *Compiler) popBuf() []byte {
	n := len(c.bufStack)
	b := c.bufStack[n-1]
	c.bufStack = c.bufStack[:n-1]
	return b
}

// spliceRaw appends raw already-compiled bytes (an element buffer) at the
// current emission point.
func (c *Compiler) spliceRaw(b []byte) { c.emitBytes(b) }

func (c *Compiler) patchInt16(pos uint32, v int16) {
	_ = c.vm.Mem.Write16(mem.SegCode, int(pos), uint16(v))
}

func (c *Compiler) patchUint16(pos uint32, v uint16) {
	_ = c.vm.Mem.Write16(mem.SegCode, int(pos), v)
}

// pos returns the CODE offset the next direct-to-CODE emission will land
// at. Only meaningful outside a list-literal element buffer; branch
// targets are never computed while one is open (spec assumes control-flow
// immediates don't nest inside list-literal elements).
func (c *Compiler) pos() uint32 { return c.cp }

// patchBranchHere patches the int16 operand at pos (a Branch or
// IfFalseBranch placeholder) so it jumps to the current CP.
func (c *Compiler) patchBranchHere(pos uint32) {
	offset := int32(c.cp) - int32(pos+2)
	c.patchInt16(pos, int16(offset))
}

// compileToken dispatches one token according to the top-level compile
// loop (spec §4.5.2).
func (c *Compiler) compileToken(tk token.Token) error {
	switch tk.Kind {
	case token.NUMBER:
		return c.compileNumber(tk)
	case token.STRING:
		return c.compileString(tk)
	case token.REF_SIGIL:
		return c.compileRefSigil(tk)
	case token.WORD:
		return c.compileWord(tk)
	case token.SPECIAL:
		return c.compileSpecial(tk)
	default:
		return c.errorf(tk.Pos, "unexpected token %s", tk.Kind)
	}
}

func (c *Compiler) compileNumber(tk token.Token) error {
	c.emitOp(ops.LiteralNumber)
	c.emitFloatBits(uint32(tagged.FromFloat32(tk.Num)))
	c.lastConst = constFold{cells: []uint32{uint32(tagged.FromFloat32(tk.Num))}, valid: true}
	return nil
}

func (c *Compiler) compileString(tk token.Token) error {
	id, err := c.vm.Digest.Intern(tk.Str)
	if err != nil {
		return err
	}
	v, err := tagged.Tagged(int32(id), tagged.TagString)
	if err != nil {
		return err
	}
	c.emitOp(ops.LiteralString)
	c.emitUint16(id)
	c.lastConst = constFold{cells: []uint32{uint32(v)}, valid: true}
	return nil
}

// compileRefSigil handles `&name`: push a bare address (VarRef/GlobalRef),
// no trailing Fetch.
func (c *Compiler) compileRefSigil(tk token.Token) error {
	nameTok, err := c.next()
	if err != nil {
		return err
	}
	if nameTok.Kind != token.WORD {
		return c.errorf(nameTok.Pos, "expected a name after &")
	}
	c.lastConst = constFold{}
	return c.emitAddressOf(nameTok.Text, nameTok.Pos)
}

// emitAddressOf compiles the address-of sequence for name: VarRef for a
// local, GlobalRef for a global whose payload is a REF, or a compile error
// if name is a builtin/user word or unknown.
func (c *Compiler) emitAddressOf(name string, pos int) error {
	if c.locals != nil {
		if slot, ok := c.locals.slots[name]; ok {
			c.emitOp(ops.VarRef)
			c.emitUint16(uint16(slot))
			return nil
		}
	}
	entry, err := c.vm.Dict.FindEntryByName(name)
	if err != nil {
		return err
	}
	if entry == nil || !tagged.IsRef(entry.Payload) {
		return c.errorf(pos, "%q is not addressable (not a global or local)", name)
	}
	_, cell := tagged.Decode(entry.Payload)
	c.emitOp(ops.GlobalRef)
	c.emitUint16(uint16(cell))
	return nil
}

// compileSpecial dispatches a punctuation token to its immediate.
func (c *Compiler) compileSpecial(tk token.Token) error {
	switch tk.Text {
	case ":":
		return c.compileDefinitionStart(tk)
	case ";":
		return c.compileCloser(tk)
	case "(":
		return c.compileListLiteral()
	case "{":
		return c.compileBlockLiteral(tk)
	case "->":
		return c.compileStoreArrow(tk, false)
	case "+>":
		return c.compileStoreArrow(tk, true)
	case ")", "}", "]":
		return c.errorf(tk.Pos, "unexpected %q", tk.Text)
	default:
		return c.errorf(tk.Pos, "unexpected token %q", tk.Text)
	}
}

// compileCloser handles `;`, closing whichever construct is innermost:
// a definition, an open if/if-else, a match clause, or a whole match
// (spec §4.5.5's "closer tag at TOS").
func (c *Compiler) compileCloser(tk token.Token) error {
	if len(c.ctrl) == 0 {
		return c.errorf(tk.Pos, "unexpected ; with nothing open")
	}
	frame := c.ctrl[len(c.ctrl)-1]
	c.ctrl = c.ctrl[:len(c.ctrl)-1]

	switch frame.kind {
	case frameDef:
		return c.compileDefinitionEnd(frame)
	case frameIf, frameElse:
		c.patchBranchHere(frame.patchPos)
		return nil
	case frameWithClause:
		// Closing one match clause: jump to the match's exit point (not
		// yet known) and record the placeholder; patch this clause's
		// predicate branch to land here, at the next clause.
		c.emitOp(ops.Branch)
		exitPatch := c.pos()
		c.emitInt16(0)
		c.patchBranchHere(frame.patchPos)
		if len(c.ctrl) == 0 || c.ctrl[len(c.ctrl)-1].kind != frameMatch {
			return c.errorf(tk.Pos, "with-clause closed outside match")
		}
		top := len(c.ctrl) - 1
		c.ctrl[top].exitPatches = append(c.ctrl[top].exitPatches, exitPatch)
		return nil
	case frameMatch:
		for _, p := range frame.exitPatches {
			c.patchBranchHere(p)
		}
		return nil
	default:
		return c.errorf(tk.Pos, "unexpected ;")
	}
}

// ensureNoOpenConditionals validates that no if/match/definition is left
// open at the end of a compile unit (spec §4.5.5).
func (c *Compiler) ensureNoOpenConditionals() error {
	if len(c.ctrl) == 0 {
		return nil
	}
	switch c.ctrl[len(c.ctrl)-1].kind {
	case frameMatch, frameWithClause:
		return CompileError{Message: "Unclosed match", Source: c.src}
	case frameDef:
		return CompileError{Message: "Unclosed definition", Source: c.src}
	default:
		return CompileError{Message: "Unclosed IF", Source: c.src}
	}
}
