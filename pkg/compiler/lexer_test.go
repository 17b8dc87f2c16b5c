package compiler

import "testing"

// lexAll drains the lexer, failing the test on any error.
func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	l := NewLexer([]byte(src))
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if tok.Kind == EOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestLexNumbers(t *testing.T) {
	cases := []struct {
		src  string
		want int64
	}{
		{"0", 0},
		{"42", 42},
		{"0x1F", 31},
		{"0xff", 255},
		{"017", 15},
		{"'a'", 97},
		{"'\\n'", 10},
		{"'\\0'", 0},
		{"'\\\\'", 92},
	}
	for _, c := range cases {
		toks := lexAll(t, c.src)
		if len(toks) != 1 || toks[0].Kind != Num {
			t.Fatalf("%q: expected one Num token, got %v", c.src, toks)
		}
		if toks[0].Val != c.want {
			t.Errorf("%q: expected %d, got %d", c.src, c.want, toks[0].Val)
		}
	}
}

func TestLexString(t *testing.T) {
	toks := lexAll(t, `"a\tb\n"`)
	if len(toks) != 1 || toks[0].Kind != Str {
		t.Fatalf("expected one Str token, got %v", toks)
	}
	if string(toks[0].Str) != "a\tb\n" {
		t.Errorf("expected %q, got %q", "a\tb\n", toks[0].Str)
	}
}

func TestLexUnknownEscapeIsLiteral(t *testing.T) {
	toks := lexAll(t, `"\q"`)
	if string(toks[0].Str) != "q" {
		t.Errorf("expected unknown escape to pass through, got %q", toks[0].Str)
	}
}

func TestLexIdentifier(t *testing.T) {
	toks := lexAll(t, "foo_bar2")
	if len(toks) != 1 || toks[0].Kind != Id {
		t.Fatalf("expected one Id token, got %v", toks)
	}
	if toks[0].Name != "foo_bar2" {
		t.Errorf("expected name foo_bar2, got %q", toks[0].Name)
	}
	if toks[0].Hash != hashName("foo_bar2") {
		t.Errorf("lexer hash %d disagrees with hashName %d", toks[0].Hash, hashName("foo_bar2"))
	}
}

func TestLexOperators(t *testing.T) {
	src := "= == + ++ - -- ! != < <= << > >= >> | || & && ^ % * / ? [ ~ ;"
	want := []TokenKind{
		Assign, Eq, Add, Inc, Sub, Dec, TokenKind('!'), Ne,
		Lt, Le, Shl, Gt, Ge, Shr, Or, Lor, And, Lan,
		Xor, Mod, Mul, Div, Cond, Brak, TokenKind('~'), TokenKind(';'),
	}
	toks := lexAll(t, src)
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(toks))
	}
	for i, w := range want {
		if toks[i].Kind != w {
			t.Errorf("token %d: expected %s, got %s", i, w, toks[i].Kind)
		}
	}
}

func TestLexSkipsCommentsAndDirectives(t *testing.T) {
	src := "#include <stdio.h>\n// line comment\n/* block\ncomment */ 7\n"
	toks := lexAll(t, src)
	if len(toks) != 1 || toks[0].Kind != Num || toks[0].Val != 7 {
		t.Fatalf("expected only the literal 7, got %v", toks)
	}
	if toks[0].Line != 4 {
		t.Errorf("expected line 4, got %d", toks[0].Line)
	}
}

func TestLexLineNumbers(t *testing.T) {
	toks := lexAll(t, "a\nb\n\nc")
	lines := []int{1, 2, 4}
	for i, want := range lines {
		if toks[i].Line != want {
			t.Errorf("token %d: expected line %d, got %d", i, want, toks[i].Line)
		}
	}
}

func TestLexErrors(t *testing.T) {
	cases := []string{
		`"unterminated`,
		`'ab'`,
		`''`,
		"@",
		"/* never closed",
	}
	for _, src := range cases {
		l := NewLexer([]byte(src))
		var err error
		for err == nil {
			var tok Token
			tok, err = l.Next()
			if err == nil && tok.Kind == EOF {
				t.Errorf("%q: expected a lex error", src)
				break
			}
		}
	}
}

func TestLexLineHook(t *testing.T) {
	var lines []int
	l := NewLexer([]byte("1\n2\n3"))
	l.LineHook = func(line int, text []byte) {
		lines = append(lines, line)
	}
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if tok.Kind == EOF {
			break
		}
	}
	if len(lines) != 2 || lines[0] != 1 || lines[1] != 2 {
		t.Errorf("expected hooks for lines [1 2], got %v", lines)
	}
}
