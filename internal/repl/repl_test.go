package repl

import (
	"strings"
	"testing"

	"gotacit/internal/tconfig"
	"gotacit/internal/tlog"
)

func TestRunSourceEvaluatesAndPrintsResult(t *testing.T) {
	var out strings.Builder
	r := New(tconfig.Defaults(), nil, &out, nil)

	if err := r.RunSource("test", "2 3 add ."); err != nil {
		t.Fatalf("RunSource error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "5" {
		t.Fatalf("got %q, want %q", got, "5")
	}
}

func TestRunSourceExtendsDictionaryAcrossChunks(t *testing.T) {
	var out strings.Builder
	r := New(tconfig.Defaults(), nil, &out, nil)

	if err := r.RunSource("l1", ": double 2 mul ;"); err != nil {
		t.Fatalf("defining chunk failed: %v", err)
	}
	if err := r.RunSource("l2", "21 double ."); err != nil {
		t.Fatalf("using chunk failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "42" {
		t.Fatalf("got %q, want %q", got, "42")
	}
}

func TestRunSourceReturnsCompileError(t *testing.T) {
	var out strings.Builder
	r := New(tconfig.Defaults(), nil, &out, nil)

	if err := r.RunSource("bad", "nosuchword"); err == nil {
		t.Fatalf("expected an error for an unknown word")
	}
}

func TestLoopRecoversFromErrorAndContinues(t *testing.T) {
	var out strings.Builder
	r := New(tconfig.Defaults(), nil, &out, tlog.Default(false))

	in := strings.NewReader("nosuchword\n1 2 add .\n")
	r.Loop(in, "")

	got := out.String()
	if !strings.Contains(got, "Error:") {
		t.Fatalf("expected an error line in output, got %q", got)
	}
	if !strings.Contains(got, "3") {
		t.Fatalf("expected the second line to still evaluate, got %q", got)
	}
}

func TestLoopSkipsBlankLines(t *testing.T) {
	var out strings.Builder
	r := New(tconfig.Defaults(), nil, &out, nil)

	in := strings.NewReader("\n\n5 .\n")
	r.Loop(in, "")

	if got := strings.TrimSpace(out.String()); got != "5" {
		t.Fatalf("got %q, want %q", got, "5")
	}
}
