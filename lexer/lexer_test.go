package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thiremani/oslogopt/token"
)

type Test struct {
	expectedType    token.TokenType
	expectedLiteral string
}

func checkInput(t *testing.T, input string, tests []Test) {
	l := New("TestLexer", input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextToken(t *testing.T) {
	input := `// simple log call
func @test(%h : $Logger) {
  %0 = integer_literal $Builtin.Int64, -9223372036854775808
  %1 = string_literal utf8 "Process failed after 99% completion\n"
  %2 = enum $OSLogIntegerFormatting, #hex, %t
  store %0 to %s
  %3 = apply %f(%1, %2) : $Closure<Int>
  %4 = alloc_stack $*OSLogInterpolation
}
`
	tests := []Test{
		{token.NEWLINE, "\n"},
		{token.FUNC, "func"},
		{token.GLOBAL, "test"},
		{token.LPAREN, "("},
		{token.VALUE, "h"},
		{token.COLON, ":"},
		{token.TYPE, "Logger"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.NEWLINE, "\n"},

		{token.VALUE, "0"},
		{token.ASSIGN, "="},
		{token.IDENT, "integer_literal"},
		{token.TYPE, "Builtin.Int64"},
		{token.COMMA, ","},
		{token.INT, "-9223372036854775808"},
		{token.NEWLINE, "\n"},

		{token.VALUE, "1"},
		{token.ASSIGN, "="},
		{token.IDENT, "string_literal"},
		{token.IDENT, "utf8"},
		{token.STRING, "Process failed after 99% completion\n"},
		{token.NEWLINE, "\n"},

		{token.VALUE, "2"},
		{token.ASSIGN, "="},
		{token.IDENT, "enum"},
		{token.TYPE, "OSLogIntegerFormatting"},
		{token.COMMA, ","},
		{token.CASE, "hex"},
		{token.COMMA, ","},
		{token.VALUE, "t"},
		{token.NEWLINE, "\n"},

		{token.IDENT, "store"},
		{token.VALUE, "0"},
		{token.TO, "to"},
		{token.VALUE, "s"},
		{token.NEWLINE, "\n"},

		{token.VALUE, "3"},
		{token.ASSIGN, "="},
		{token.IDENT, "apply"},
		{token.VALUE, "f"},
		{token.LPAREN, "("},
		{token.VALUE, "1"},
		{token.COMMA, ","},
		{token.VALUE, "2"},
		{token.RPAREN, ")"},
		{token.COLON, ":"},
		{token.TYPE, "Closure<Int>"},
		{token.NEWLINE, "\n"},

		{token.VALUE, "4"},
		{token.ASSIGN, "="},
		{token.IDENT, "alloc_stack"},
		{token.TYPE, "*OSLogInterpolation"},
		{token.NEWLINE, "\n"},
		{token.RBRACE, "}"},
		{token.NEWLINE, "\n"},
		{token.EOF, ""},
	}

	checkInput(t, input, tests)
}

func TestGlobalNames(t *testing.T) {
	input := `@OSLogInterpolation.appendLiteral @$s4main3fooyyF -> 0x1F`
	tests := []Test{
		{token.GLOBAL, "OSLogInterpolation.appendLiteral"},
		{token.GLOBAL, "$s4main3fooyyF"},
		{token.ARROW, "->"},
		{token.INT, "0x1F"},
		{token.EOF, ""},
	}
	checkInput(t, input, tests)
}

func TestPositions(t *testing.T) {
	l := New("pos.sil", "func\n  %0 = load %1")

	tok := l.NextToken()
	require.Equal(t, token.FUNC, tok.Type)
	require.Equal(t, 1, tok.Line)
	require.Equal(t, 1, tok.Column)

	l.NextToken() // newline
	tok = l.NextToken()
	require.Equal(t, token.VALUE, tok.Type)
	require.Equal(t, 2, tok.Line)
	require.Equal(t, 3, tok.Column)
	require.Equal(t, "pos.sil", tok.FileName)
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   string
	}{
		{"Unterminated", `"abc`, "TestLexerErrors:1:1:unterminated string literal"},
		{"BadEscape", `"\q"`, `TestLexerErrors:1:1:invalid string literal "\q"`},
		{"BareSigil", `% `, "TestLexerErrors:1:1:expected a name after %"},
		{"InvalidUTF8", "\"99\xff%\"", "TestLexerErrors:1:1:invalid UTF-8 in string literal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New("TestLexerErrors", tt.input)
			tok := l.NextToken()
			require.Equal(t, token.ILLEGAL, tok.Type)
			require.Len(t, l.Errors, 1)
			require.Equal(t, tt.err, l.Errors[0].Error())
		})
	}
}

func TestStringKeepsReplacementCharacter(t *testing.T) {
	// A literal U+FFFD is valid UTF-8 and survives unchanged, as do escaped
	// bytes.
	checkInput(t, "\"a\uFFFDb\" \"\\xff\"", []Test{
		{token.STRING, "a\uFFFDb"},
		{token.STRING, "\xff"},
		{token.EOF, ""},
	})

	l := New("TestStringKeepsReplacementCharacter", "%x = string_literal utf8 \"ok\"\n\"\xc3\"")
	var last token.Token
	for tok := l.NextToken(); tok.Type != token.EOF; tok = l.NextToken() {
		last = tok
	}
	require.Equal(t, token.ILLEGAL, last.Type)
	require.Len(t, l.Errors, 1)
	require.Equal(t, "TestStringKeepsReplacementCharacter:2:1:invalid UTF-8 in string literal", l.Errors[0].Error())
}
