package token

import "testing"

func collect(t *testing.T, src string) []Token {
	t.Helper()
	tz := New(src)
	var out []Token
	for {
		tok, err := tz.Next()
		if err != nil {
			t.Fatalf("tokenize %q: %v", src, err)
		}
		out = append(out, tok)
		if tok.Kind == EOF {
			return out
		}
	}
}

func TestBasicWordsAndNumbers(t *testing.T) {
	toks := collect(t, "5 3 add")
	want := []Kind{NUMBER, NUMBER, WORD, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: got %s want %s", i, toks[i].Kind, k)
		}
	}
	if toks[0].Num != 5 || toks[1].Num != 3 {
		t.Fatalf("wrong numeric values: %v %v", toks[0].Num, toks[1].Num)
	}
}

func TestCommentsAndWhitespaceSkipped(t *testing.T) {
	toks := collect(t, "1 // a comment\n2 add")
	if len(toks) != 4 || toks[0].Num != 1 || toks[1].Num != 2 {
		t.Fatalf("unexpected tokens: %v", toks)
	}
}

func TestStringLiteral(t *testing.T) {
	toks := collect(t, `"hi\nthere"`)
	if toks[0].Kind != STRING || toks[0].Str != "hi\nthere" {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestUnterminatedStringFails(t *testing.T) {
	tz := New(`"unterminated`)
	if _, err := tz.Next(); err == nil {
		t.Fatalf("expected error for unterminated string")
	}
}

func TestStringLiteralWordSigil(t *testing.T) {
	toks := collect(t, "'foo")
	if toks[0].Kind != STRING || toks[0].Str != "foo" {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestRefSigilEmitsSeparateToken(t *testing.T) {
	toks := collect(t, "&x")
	if toks[0].Kind != REF_SIGIL {
		t.Fatalf("got %+v, want REF_SIGIL", toks[0])
	}
	if toks[1].Kind != WORD || toks[1].Text != "x" {
		t.Fatalf("got %+v, want WORD x", toks[1])
	}
}

func TestSpecialsAndArrows(t *testing.T) {
	toks := collect(t, ": f -> x +> y ( ) { } ;")
	wantText := []string{":", "f", "->", "x", "+>", "y", "(", ")", "{", "}", ";"}
	for i, w := range wantText {
		if toks[i].Kind == WORD {
			if toks[i].Text != w {
				t.Fatalf("token %d: got %q want %q", i, toks[i].Text, w)
			}
			continue
		}
		if toks[i].Kind != SPECIAL || toks[i].Text != w {
			t.Fatalf("token %d: got %+v want SPECIAL %q", i, toks[i], w)
		}
	}
}

func TestNegativeNumber(t *testing.T) {
	toks := collect(t, "-5 add")
	if toks[0].Kind != NUMBER || toks[0].Num != -5 {
		t.Fatalf("got %+v", toks[0])
	}
}
