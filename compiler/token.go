package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the VL lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError
	TokenNewline

	// Literals
	TokenNumber     // 42, 3.14, 1.5e10
	TokenString     // "hello", 'hello ${name}'
	TokenIdentifier // foo, total_price

	// Keywords
	TokenMeta
	TokenDeps
	TokenExport
	TokenFn
	TokenInput  // i
	TokenOutput // o
	TokenRet
	TokenVar // v
	TokenOp
	TokenIf
	TokenFor
	TokenWhile
	TokenAPI
	TokenAsync
	TokenFilter
	TokenMap
	TokenParse
	TokenUI
	TokenState
	TokenProps
	TokenOn
	TokenRender
	TokenData
	TokenGroupBy
	TokenAgg
	TokenSort
	TokenFile

	// Type words
	TokenTypeInt
	TokenTypeFloat
	TokenTypeStr
	TokenTypeBool
	TokenTypeArr
	TokenTypeObj
	TokenTypeMap
	TokenTypeSet
	TokenTypeAny
	TokenTypeVoid
	TokenTypePromise
	TokenTypeFunc

	// Operators
	TokenPlus        // +
	TokenMinus       // -
	TokenStar        // *
	TokenSlash       // /
	TokenPercent     // %
	TokenPower       // **
	TokenEq          // ==
	TokenNotEq       // !=
	TokenLess        // <
	TokenGreater     // >
	TokenLessEq      // <=
	TokenGreaterEq   // >=
	TokenAnd         // &&
	TokenOr          // ||
	TokenBang        // !
	TokenPlusAssign  // +=
	TokenMinusAssign // -=
	TokenStarAssign  // *=
	TokenSlashAssign // /=
	TokenDotDot      // ..

	// Delimiters
	TokenColon    // :
	TokenPipe     // |
	TokenComma    // ,
	TokenAssign   // =
	TokenQuestion // ?
	TokenDollar   // $
	TokenAt       // @
	TokenLParen   // (
	TokenRParen   // )
	TokenLBrace   // {
	TokenRBrace   // }
	TokenLBracket // [
	TokenRBracket // ]
	TokenDot      // .
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNewline:    "NEWLINE",
	TokenNumber:     "NUMBER",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",

	TokenMeta:    "meta",
	TokenDeps:    "deps",
	TokenExport:  "export",
	TokenFn:      "fn",
	TokenInput:   "i",
	TokenOutput:  "o",
	TokenRet:     "ret",
	TokenVar:     "v",
	TokenOp:      "op",
	TokenIf:      "if",
	TokenFor:     "for",
	TokenWhile:   "while",
	TokenAPI:     "api",
	TokenAsync:   "async",
	TokenFilter:  "filter",
	TokenMap:     "map",
	TokenParse:   "parse",
	TokenUI:      "ui",
	TokenState:   "state",
	TokenProps:   "props",
	TokenOn:      "on",
	TokenRender:  "render",
	TokenData:    "data",
	TokenGroupBy: "groupBy",
	TokenAgg:     "agg",
	TokenSort:    "sort",
	TokenFile:    "file",

	TokenTypeInt:     "int",
	TokenTypeFloat:   "float",
	TokenTypeStr:     "str",
	TokenTypeBool:    "bool",
	TokenTypeArr:     "arr",
	TokenTypeObj:     "obj",
	TokenTypeMap:     "map",
	TokenTypeSet:     "set",
	TokenTypeAny:     "any",
	TokenTypeVoid:    "void",
	TokenTypePromise: "promise",
	TokenTypeFunc:    "func",

	TokenPlus:        "+",
	TokenMinus:       "-",
	TokenStar:        "*",
	TokenSlash:       "/",
	TokenPercent:     "%",
	TokenPower:       "**",
	TokenEq:          "==",
	TokenNotEq:       "!=",
	TokenLess:        "<",
	TokenGreater:     ">",
	TokenLessEq:      "<=",
	TokenGreaterEq:   ">=",
	TokenAnd:         "&&",
	TokenOr:          "||",
	TokenBang:        "!",
	TokenPlusAssign:  "+=",
	TokenMinusAssign: "-=",
	TokenStarAssign:  "*=",
	TokenSlashAssign: "/=",
	TokenDotDot:      "..",

	TokenColon:    ":",
	TokenPipe:     "|",
	TokenComma:    ",",
	TokenAssign:   "=",
	TokenQuestion: "?",
	TokenDollar:   "$",
	TokenAt:       "@",
	TokenLParen:   "(",
	TokenRParen:   ")",
	TokenLBrace:   "{",
	TokenRBrace:   "}",
	TokenLBracket: "[",
	TokenRBracket: "]",
	TokenDot:      ".",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenNewline {
		return "NEWLINE"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Keywords mapped to their token types. The lexer tags every occurrence of a
// keyword word; head position versus plain-identifier use is the parser's
// call.
var keywords = map[string]TokenType{
	"meta":    TokenMeta,
	"deps":    TokenDeps,
	"export":  TokenExport,
	"fn":      TokenFn,
	"i":       TokenInput,
	"o":       TokenOutput,
	"ret":     TokenRet,
	"v":       TokenVar,
	"op":      TokenOp,
	"if":      TokenIf,
	"for":     TokenFor,
	"while":   TokenWhile,
	"api":     TokenAPI,
	"async":   TokenAsync,
	"filter":  TokenFilter,
	"map":     TokenMap,
	"parse":   TokenParse,
	"ui":      TokenUI,
	"state":   TokenState,
	"props":   TokenProps,
	"on":      TokenOn,
	"render":  TokenRender,
	"data":    TokenData,
	"groupBy": TokenGroupBy,
	"agg":     TokenAgg,
	"sort":    TokenSort,
	"file":    TokenFile,
}

// Type words mapped to their token types.
var typeWords = map[string]TokenType{
	"int":     TokenTypeInt,
	"float":   TokenTypeFloat,
	"str":     TokenTypeStr,
	"bool":    TokenTypeBool,
	"arr":     TokenTypeArr,
	"obj":     TokenTypeObj,
	"map":     TokenTypeMap,
	"set":     TokenTypeSet,
	"any":     TokenTypeAny,
	"void":    TokenTypeVoid,
	"promise": TokenTypePromise,
	"func":    TokenTypeFunc,
}

// IsKeyword reports whether t is one of the VL keyword tokens.
func (t TokenType) IsKeyword() bool {
	return t >= TokenMeta && t <= TokenFile
}

// IsTypeWord reports whether t names a builtin type.
func (t TokenType) IsTypeWord() bool {
	return t >= TokenTypeInt && t <= TokenTypeFunc
}

// IsStageKeyword reports whether t can open a pipeline stage after a pipe.
func (t TokenType) IsStageKeyword() bool {
	switch t {
	case TokenFilter, TokenMap, TokenParse, TokenSort, TokenGroupBy, TokenAgg:
		return true
	}
	return false
}
