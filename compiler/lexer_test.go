package compiler

import (
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) [ ] { } : | , = ? $ @ .`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBracket, "["},
		{TokenRBracket, "]"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenColon, ":"},
		{TokenPipe, "|"},
		{TokenComma, ","},
		{TokenAssign, "="},
		{TokenQuestion, "?"},
		{TokenDollar, "$"},
		{TokenAt, "@"},
		{TokenDot, "."},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerOperators(t *testing.T) {
	input := `+ - * / % ** == != < > <= >= && || ! += -= *= /=`
	expected := []TokenType{
		TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent, TokenPower,
		TokenEq, TokenNotEq, TokenLess, TokenGreater, TokenLessEq, TokenGreaterEq,
		TokenAnd, TokenOr, TokenBang,
		TokenPlusAssign, TokenMinusAssign, TokenStarAssign, TokenSlashAssign,
		TokenEOF,
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, want)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"0", "0"},
		{"3.14", "3.14"},
		{"0.5", "0.5"},
		{"1e10", "1e10"},
		{"1.5e-3", "1.5e-3"},
		{"2.0E+5", "2.0E+5"},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != TokenNumber {
			t.Errorf("Lexer(%q): type = %v, want NUMBER", tc.input, tok.Type)
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerRangeNotFloat(t *testing.T) {
	l := NewLexer("0..10")
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenNumber, "0"},
		{TokenDotDot, ".."},
		{TokenNumber, "10"},
		{TokenEOF, ""},
	}
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ || tok.Literal != exp.lit {
			t.Errorf("token[%d] = %v(%q), want %v(%q)", i, tok.Type, tok.Literal, exp.typ, exp.lit)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`'hello'`, "hello"},
		{`"a\nb"`, "a\nb"},
		{`"a\tb"`, "a\tb"},
		{`"say \"hi\""`, `say "hi"`},
		{`""`, ""},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != TokenString {
			t.Errorf("Lexer(%q): type = %v, want STRING", tc.input, tok.Type)
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerInterpolationKeepsSpan(t *testing.T) {
	// The ${...} text is captured raw, including nested braces and quotes.
	tests := []struct {
		input string
		want  string
	}{
		{`"hi ${name}"`, "hi ${name}"},
		{`"v=${a + b}"`, "v=${a + b}"},
		{`"${if:a>b?a:b}"`, "${if:a>b?a:b}"},
		{`"${fmt({x:1})}"`, "${fmt({x:1})}"},
		{`"q=${'inner'}"`, "q=${'inner'}"},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != TokenString {
			t.Fatalf("Lexer(%q): type = %v, want STRING", tc.input, tok.Type)
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	for _, input := range []string{`"abc`, `'abc`, `"abc${x`} {
		l := NewLexer(input)
		tok := l.NextToken()
		if tok.Type != TokenError {
			t.Errorf("Lexer(%q): type = %v, want ERROR", input, tok.Type)
		}
	}
}

func TestLexerKeywords(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"meta", TokenMeta},
		{"deps", TokenDeps},
		{"export", TokenExport},
		{"fn", TokenFn},
		{"i", TokenInput},
		{"o", TokenOutput},
		{"ret", TokenRet},
		{"v", TokenVar},
		{"op", TokenOp},
		{"if", TokenIf},
		{"for", TokenFor},
		{"while", TokenWhile},
		{"api", TokenAPI},
		{"async", TokenAsync},
		{"filter", TokenFilter},
		{"map", TokenMap},
		{"groupBy", TokenGroupBy},
		{"agg", TokenAgg},
		{"sort", TokenSort},
		{"file", TokenFile},
		{"ui", TokenUI},
		{"int", TokenTypeInt},
		{"float", TokenTypeFloat},
		{"str", TokenTypeStr},
		{"bool", TokenTypeBool},
		{"arr", TokenTypeArr},
		{"promise", TokenTypePromise},
		{"total", TokenIdentifier},
		{"items2", TokenIdentifier},
		{"_private", TokenIdentifier},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != tc.want {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.want)
		}
	}
}

func TestLexerComments(t *testing.T) {
	input := "a # rest of line\nb /* block\nspanning lines */ c"
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenIdentifier, "a"},
		{TokenNewline, "\n"},
		{TokenIdentifier, "b"},
		{TokenIdentifier, "c"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
	}
}

func TestLexerNewlinesAreTokens(t *testing.T) {
	l := NewLexer("a\n\nb")
	var types []TokenType
	for {
		tok := l.NextToken()
		types = append(types, tok.Type)
		if tok.Type == TokenEOF {
			break
		}
	}
	want := []TokenType{TokenIdentifier, TokenNewline, TokenNewline, TokenIdentifier, TokenEOF}
	if len(types) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(types), len(want))
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("token[%d] = %v, want %v", i, types[i], want[i])
		}
	}
}

func TestLexerPositions(t *testing.T) {
	l := NewLexer("ab cd\nef")
	expected := []struct {
		lit    string
		line   int
		col    int
		offset int
	}{
		{"ab", 1, 1, 0},
		{"cd", 1, 4, 3},
		{"\n", 1, 6, 5},
		{"ef", 2, 1, 6},
	}
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Literal != exp.lit {
			t.Fatalf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
		if tok.Pos.Line != exp.line || tok.Pos.Column != exp.col {
			t.Errorf("token[%d] %q at %d:%d, want %d:%d",
				i, exp.lit, tok.Pos.Line, tok.Pos.Column, exp.line, exp.col)
		}
		if tok.Pos.Offset != exp.offset {
			t.Errorf("token[%d] %q offset = %d, want %d", i, exp.lit, tok.Pos.Offset, exp.offset)
		}
	}
}

func TestLexerErrorPosition(t *testing.T) {
	l := NewLexer("a ~")
	l.NextToken()
	tok := l.NextToken()
	if tok.Type != TokenError {
		t.Fatalf("type = %v, want ERROR", tok.Type)
	}
	if tok.Pos.Line != 1 || tok.Pos.Column != 3 {
		t.Errorf("error at %d:%d, want 1:3", tok.Pos.Line, tok.Pos.Column)
	}
}

func TestLexerInvalidCharacter(t *testing.T) {
	l := NewLexer("a ~ b")
	l.NextToken()
	tok := l.NextToken()
	if tok.Type != TokenError {
		t.Errorf("type = %v, want ERROR", tok.Type)
	}
}

func TestLexerLoneAmpersand(t *testing.T) {
	l := NewLexer("a & b")
	l.NextToken()
	tok := l.NextToken()
	if tok.Type != TokenError {
		t.Errorf("type = %v, want ERROR", tok.Type)
	}
}

func TestTokenizeReturnsLexError(t *testing.T) {
	_, err := Tokenize(`"unterminated`)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*LexError); !ok {
		t.Errorf("error type = %T, want *LexError", err)
	}
}
