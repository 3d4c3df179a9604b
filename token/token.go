package token

import (
	"fmt"
	"strconv"
)

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF
	NEWLINE

	literal_beg
	// Identifiers + literals
	IDENT  // integer_literal, utf8, bb0
	VALUE  // %0, %h
	GLOBAL // @Logger.log
	TYPE   // $Builtin.Int64, $*OSLogInterpolation
	CASE   // #hex
	INT    // 12, -9223372036854775808
	STRING // "abc"
	literal_end

	operator_beg
	// Operators and delimiters
	ASSIGN // =
	COLON  // :
	COMMA  // ,
	ARROW  // ->

	LPAREN // (
	LBRACE // {

	RPAREN // )
	RBRACE // }
	operator_end

	keyword_beg
	FUNC // func
	TO   // to
	keyword_end
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",

	EOF:     "EOF",
	NEWLINE: "\\n",

	IDENT:  "IDENT",
	VALUE:  "VALUE",
	GLOBAL: "GLOBAL",
	TYPE:   "TYPE",
	CASE:   "CASE",
	INT:    "INT",
	STRING: "STRING",

	ASSIGN: "=",
	COLON:  ":",
	COMMA:  ",",
	ARROW:  "->",

	LPAREN: "(",
	LBRACE: "{",

	RPAREN: ")",
	RBRACE: "}",

	FUNC: "func",
	TO:   "to",
}

var keywords = map[string]TokenType{
	"func": FUNC,
	"to":   TO,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

type Token struct {
	Type     TokenType
	Literal  string
	FileName string
	Line     int
	Column   int
}

func (t Token) IsLiteral() bool {
	return literal_beg < t.Type && t.Type < literal_end
}

func (t Token) String() string {
	if t.IsLiteral() {
		return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
	}
	return t.Type.String()
}

func (tokenType TokenType) String() string {
	s := ""
	if 0 <= tokenType && tokenType < TokenType(len(tokens)) {
		s = tokens[tokenType]
	}

	if s == "" {
		s = "token(" + strconv.Itoa(int(tokenType)) + ")"
	}

	return s
}

// CompileError is a positioned error reported while reading IR text.
type CompileError struct {
	Token Token
	Msg   string
}

func (ce *CompileError) Error() string {
	return fmt.Sprintf("%s:%d:%d:%s", ce.Token.FileName, ce.Token.Line, ce.Token.Column, ce.Msg)
}
