package compiler

// Recover resets transient compile state after a chunk failed midway
// through a definition or list literal, unhiding any entry the failed
// compilation hid so later chunks can still resolve it (spec §6.5: "the
// REPL catches all errors from a single input ... discards the partial
// compile buffer if needed, unhides any entry that the failing
// compilation hid").
func (c *Compiler) Recover() {
	for _, frame := range c.ctrl {
		if frame.kind == frameDef && frame.entry != nil {
			_ = c.vm.Dict.UnhideEntry(frame.entry)
		}
	}
	c.ctrl = nil
	c.locals = nil
	c.bufStack = nil
	c.buffered = nil
	c.lastConst = constFold{}
}
