package tconfig

import (
	"testing"

	"gotacit/internal/mem"
)

func TestDefaultsMatchMemDefaultLayout(t *testing.T) {
	cfg := Defaults()
	d := mem.DefaultLayout()

	if got, want := cfg.StackCells, d.StackBytes/mem.CellBytes; got != want {
		t.Fatalf("StackCells = %d, want %d", got, want)
	}
	if got, want := cfg.RStackCells, d.RStackBytes/mem.CellBytes; got != want {
		t.Fatalf("RStackCells = %d, want %d", got, want)
	}
	if got, want := cfg.GlobalCells, d.GlobalBytes/mem.CellBytes; got != want {
		t.Fatalf("GlobalCells = %d, want %d", got, want)
	}
}

func TestDefaultsLayoutRoundTrips(t *testing.T) {
	cfg := Defaults()
	layout := cfg.Layout()
	want := mem.DefaultLayout()

	if layout != want {
		t.Fatalf("Layout() = %+v, want %+v", layout, want)
	}
}

func TestLayoutOverridesOnlySetCells(t *testing.T) {
	cfg := Defaults()
	cfg.StackCells = 256
	layout := cfg.Layout()

	if got, want := layout.StackBytes, 256*mem.CellBytes; got != want {
		t.Fatalf("StackBytes = %d, want %d", got, want)
	}
	if got, want := layout.RStackBytes, mem.DefaultLayout().RStackBytes; got != want {
		t.Fatalf("RStackBytes changed unexpectedly: got %d, want %d", got, want)
	}
	if got, want := layout.GlobalBytes, mem.DefaultLayout().GlobalBytes; got != want {
		t.Fatalf("GlobalBytes changed unexpectedly: got %d, want %d", got, want)
	}
}

func TestZeroConfigKeepsDefaultLayout(t *testing.T) {
	var cfg Config
	layout := cfg.Layout()
	want := mem.DefaultLayout()

	if layout != want {
		t.Fatalf("zero-value Config.Layout() = %+v, want %+v", layout, want)
	}
}
