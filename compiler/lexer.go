package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for VL syntax
// ---------------------------------------------------------------------------

// Lexer tokenizes VL source code. Newlines are significant and produced as
// tokens; spaces and tabs are skipped.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // current column (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   1,
	}
	l.readChar()
	return l
}

// readChar reads the next character. line and col always describe the
// character sitting in l.ch, so they advance past the one being consumed.
func (l *Lexer) readChar() {
	if l.readPos > 0 && l.ch != 0 {
		if l.ch == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipSpacesAndComments()

	pos := l.position()

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Literal: "", Pos: pos}

	case l.ch == '\n':
		l.readChar()
		return Token{Type: TokenNewline, Literal: "\n", Pos: pos}

	case isDigit(l.ch):
		return l.readNumber(pos)

	case l.ch == '.' && isDigit(l.peekChar()):
		return l.readNumber(pos)

	case l.ch == '.':
		l.readChar()
		if l.ch == '.' {
			l.readChar()
			return Token{Type: TokenDotDot, Literal: "..", Pos: pos}
		}
		return Token{Type: TokenDot, Literal: ".", Pos: pos}

	case l.ch == '"' || l.ch == '\'':
		return l.readString(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(pos)

	case l.ch == '+':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenPlusAssign, Literal: "+=", Pos: pos}
		}
		return Token{Type: TokenPlus, Literal: "+", Pos: pos}

	case l.ch == '-':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenMinusAssign, Literal: "-=", Pos: pos}
		}
		return Token{Type: TokenMinus, Literal: "-", Pos: pos}

	case l.ch == '*':
		l.readChar()
		if l.ch == '*' {
			l.readChar()
			return Token{Type: TokenPower, Literal: "**", Pos: pos}
		}
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenStarAssign, Literal: "*=", Pos: pos}
		}
		return Token{Type: TokenStar, Literal: "*", Pos: pos}

	case l.ch == '/':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenSlashAssign, Literal: "/=", Pos: pos}
		}
		return Token{Type: TokenSlash, Literal: "/", Pos: pos}

	case l.ch == '%':
		l.readChar()
		return Token{Type: TokenPercent, Literal: "%", Pos: pos}

	case l.ch == '=':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenEq, Literal: "==", Pos: pos}
		}
		return Token{Type: TokenAssign, Literal: "=", Pos: pos}

	case l.ch == '!':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenNotEq, Literal: "!=", Pos: pos}
		}
		return Token{Type: TokenBang, Literal: "!", Pos: pos}

	case l.ch == '<':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenLessEq, Literal: "<=", Pos: pos}
		}
		return Token{Type: TokenLess, Literal: "<", Pos: pos}

	case l.ch == '>':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenGreaterEq, Literal: ">=", Pos: pos}
		}
		return Token{Type: TokenGreater, Literal: ">", Pos: pos}

	case l.ch == '&':
		l.readChar()
		if l.ch == '&' {
			l.readChar()
			return Token{Type: TokenAnd, Literal: "&&", Pos: pos}
		}
		return Token{Type: TokenError, Literal: "unexpected character: &", Pos: pos}

	case l.ch == '|':
		l.readChar()
		if l.ch == '|' {
			l.readChar()
			return Token{Type: TokenOr, Literal: "||", Pos: pos}
		}
		return Token{Type: TokenPipe, Literal: "|", Pos: pos}

	case l.ch == ':':
		l.readChar()
		return Token{Type: TokenColon, Literal: ":", Pos: pos}

	case l.ch == ',':
		l.readChar()
		return Token{Type: TokenComma, Literal: ",", Pos: pos}

	case l.ch == '?':
		l.readChar()
		return Token{Type: TokenQuestion, Literal: "?", Pos: pos}

	case l.ch == '$':
		l.readChar()
		return Token{Type: TokenDollar, Literal: "$", Pos: pos}

	case l.ch == '@':
		l.readChar()
		return Token{Type: TokenAt, Literal: "@", Pos: pos}

	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}

	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}

	case l.ch == '{':
		l.readChar()
		return Token{Type: TokenLBrace, Literal: "{", Pos: pos}

	case l.ch == '}':
		l.readChar()
		return Token{Type: TokenRBrace, Literal: "}", Pos: pos}

	case l.ch == '[':
		l.readChar()
		return Token{Type: TokenLBracket, Literal: "[", Pos: pos}

	case l.ch == ']':
		l.readChar()
		return Token{Type: TokenRBracket, Literal: "]", Pos: pos}

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character: %c", ch), Pos: pos}
	}
}

// skipSpacesAndComments skips spaces, tabs, carriage returns, # line
// comments, and /* */ block comments. Newlines are left for NextToken to
// emit.
func (l *Lexer) skipSpacesAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
			continue
		}

		break
	}
}

// readNumber reads an integer or float literal. A trailing .. is never
// consumed: 0..10 lexes as NUMBER DOTDOT NUMBER.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	// Fractional part, but not the range operator
	if l.ch == '.' && l.peekChar() != '.' && isDigit(l.peekChar()) {
		l.readChar() // consume .
		for isDigit(l.ch) {
			l.readChar()
		}
	} else if l.ch == '.' && l.pos == start {
		// leading-dot form: .5
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// Exponent
	if l.ch == 'e' || l.ch == 'E' {
		if next := l.peekChar(); isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Pos: pos}
}

// readString reads a single- or double-quoted string literal. Inside a ${...}
// interpolation span neither quotes nor escapes terminate the string; the
// span is captured raw and parsed later. The literal keeps the ${...} text.
func (l *Lexer) readString(pos Position) Token {
	quote := l.ch
	l.readChar() // consume opening quote

	var sb strings.Builder
	depth := 0 // nesting level inside ${...}

	for l.ch != 0 {
		if l.ch == '$' && l.peekChar() == '{' {
			sb.WriteString("${")
			l.readChar()
			l.readChar()
			depth++
			continue
		}

		if depth > 0 {
			if l.ch == '{' {
				depth++
			} else if l.ch == '}' {
				depth--
			}
			sb.WriteRune(l.ch)
			l.readChar()
			continue
		}

		if l.ch == quote {
			break
		}

		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '\\':
				sb.WriteRune('\\')
			case 0:
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}

		sb.WriteRune(l.ch)
		l.readChar()
	}

	if l.ch != quote {
		return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
	}
	l.readChar() // consume closing quote

	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// readIdentifier reads an identifier, keyword, or type word.
func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos

	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}

	literal := l.input[start:l.pos]

	if tokType, ok := keywords[literal]; ok {
		return Token{Type: tokType, Literal: literal, Pos: pos}
	}
	if tokType, ok := typeWords[literal]; ok {
		return Token{Type: tokType, Literal: literal, Pos: pos}
	}

	return Token{Type: TokenIdentifier, Literal: literal, Pos: pos}
}

// Helper functions

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens of the input including the trailing EOF, or
// the first lexical error.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenError {
			return nil, &LexError{Msg: tok.Literal, Pos: tok.Pos}
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// parseNumberToken converts a NUMBER literal into its value parts.
func parseNumberToken(tok Token) (*NumberLiteral, error) {
	lit := &NumberLiteral{
		SpanVal: Span{Start: tok.Pos, End: tok.Pos},
		Raw:     tok.Literal,
	}
	if !strings.ContainsAny(tok.Literal, ".eE") {
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, err
		}
		lit.IsInt = true
		lit.Int = n
		return lit, nil
	}
	f, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		return nil, err
	}
	lit.Float = f
	return lit, nil
}
