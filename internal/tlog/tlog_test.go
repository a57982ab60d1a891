package tlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestDebugfGatedOnFlag(t *testing.T) {
	var out, errOut bytes.Buffer

	quiet := New(&out, &errOut, false)
	quiet.Debugf("hidden %d", 1)
	if out.Len() != 0 {
		t.Fatalf("Debugf wrote output with debug=false: %q", out.String())
	}

	out.Reset()
	loud := New(&out, &errOut, true)
	loud.Debugf("shown %d", 2)
	if !strings.Contains(out.String(), "shown 2") {
		t.Fatalf("Debugf with debug=true did not write message, got %q", out.String())
	}
}

func TestInfofAlwaysWrites(t *testing.T) {
	var out, errOut bytes.Buffer
	l := New(&out, &errOut, false)
	l.Infof("hello %s", "world")
	if !strings.Contains(out.String(), "hello world") {
		t.Fatalf("Infof did not write message, got %q", out.String())
	}
}

func TestWarnfAndErrorfWriteToErrOut(t *testing.T) {
	var out, errOut bytes.Buffer
	l := New(&out, &errOut, false)

	l.Warnf("careful")
	l.Errorf("broken")

	if out.Len() != 0 {
		t.Fatalf("Warnf/Errorf wrote to out instead of errOut: %q", out.String())
	}
	got := errOut.String()
	if !strings.Contains(got, "warning: careful") {
		t.Fatalf("missing warning line, got %q", got)
	}
	if !strings.Contains(got, "error: broken") {
		t.Fatalf("missing error line, got %q", got)
	}
}

func TestNilLoggerMethodsAreNoOps(t *testing.T) {
	var l *Logger
	l.Debugf("x")
	l.Infof("x")
	l.Warnf("x")
	l.Errorf("x")
}
