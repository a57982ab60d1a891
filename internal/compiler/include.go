package compiler

import (
	"gotacit/internal/tagged"
	"gotacit/internal/token"
)

// compileInclude handles `include "path"` (spec §6.3): resolves the
// target relative to the source it was written in, skips it if already
// included (pragma-once, via a hidden dictionary guard entry keyed by
// the canonical path), and otherwise compiles it in place.
func (c *Compiler) compileInclude() error {
	pathTok, err := c.next()
	if err != nil {
		return err
	}
	if pathTok.Kind != token.STRING {
		return c.errorf(pathTok.Pos, "expected a string path after include")
	}
	if c.includeHost == nil {
		return c.errorf(pathTok.Pos, "include is not supported in this context")
	}

	canonicalPath, source, err := c.includeHost.ResolveInclude(pathTok.Str, c.src)
	if err != nil {
		return c.errorf(pathTok.Pos, "include %q: %v", pathTok.Str, err)
	}
	if canonicalPath == "" {
		return c.errorf(pathTok.Pos, "include %q: could not be resolved", pathTok.Str)
	}

	existing, err := c.vm.Dict.FindAnyByName(canonicalPath)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	guard, err := c.vm.Define(canonicalPath, tagged.Nil)
	if err != nil {
		return err
	}
	if err := c.vm.Dict.HideEntry(guard); err != nil {
		return err
	}

	c.includeStack = append(c.includeStack, canonicalPath)
	_, _, err = c.CompileChunk(canonicalPath, source)
	c.includeStack = c.includeStack[:len(c.includeStack)-1]
	return err
}
