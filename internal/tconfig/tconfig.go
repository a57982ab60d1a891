// Package tconfig centralizes the handful of settings the CLI/REPL need
// instead of letting cobra flags feed straight into construction calls the
// way the teacher's main() threads *debugVM directly into
// NewVirtualMachine. One struct, one Defaults(), populated once by
// cmd/tacit and passed down by value.
package tconfig

import "gotacit/internal/mem"

// Config holds everything cmd/tacit and internal/repl need to build and
// drive a session.
type Config struct {
	// NoInteractive disables the REPL prompt after executing any files
	// given on the command line (spec §6.6).
	NoInteractive bool

	// IncludePaths are searched, in order, for an `include "path"` target
	// that isn't found relative to the including source.
	IncludePaths []string

	// Debug gates tlog's Debugf output, mirroring the teacher's debug
	// flag gating fmt.Println calls throughout run.go/exec.go.
	Debug bool

	StackCells  int
	RStackCells int
	GlobalCells int
}

// Defaults returns the segment sizing from spec §3.3 with no include
// search path and interactive mode on.
func Defaults() Config {
	d := mem.DefaultLayout()
	return Config{
		StackCells:  d.StackBytes / mem.CellBytes,
		RStackCells: d.RStackBytes / mem.CellBytes,
		GlobalCells: d.GlobalBytes / mem.CellBytes,
	}
}

// Layout builds the mem.Layout this configuration describes, overriding
// the default segment sizes where the caller set a non-zero value.
func (c Config) Layout() mem.Layout {
	layout := mem.DefaultLayout()
	if c.StackCells > 0 {
		layout.StackBytes = c.StackCells * mem.CellBytes
	}
	if c.RStackCells > 0 {
		layout.RStackBytes = c.RStackCells * mem.CellBytes
	}
	if c.GlobalCells > 0 {
		layout.GlobalBytes = c.GlobalCells * mem.CellBytes
	}
	return layout
}
