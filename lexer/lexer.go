package lexer

import (
	"strconv"
	"unicode/utf8"

	"github.com/thiremani/oslogopt/token"
)

type Lexer struct {
	FileName     string
	input        []rune
	position     int  // current position in input (points to current rune)
	readPosition int  // current reading position in input (after current rune)
	curr         rune // current rune under examination
	line         int
	column       int
	invalid      map[int]bool // rune positions decoded from invalid UTF-8
	Errors       []*token.CompileError
}

func New(fileName, input string) *Lexer {
	l := &Lexer{FileName: fileName, input: []rune(input), line: 1}
	if !utf8.ValidString(input) {
		l.invalid = invalidRunes(input)
	}
	l.readRune()
	return l
}

// invalidRunes returns the rune positions of input that []rune decodes as
// utf8.RuneError because the source bytes are not valid UTF-8.
func invalidRunes(input string) map[int]bool {
	invalid := make(map[int]bool)
	for i, pos := 0, 0; i < len(input); pos++ {
		r, size := utf8.DecodeRuneInString(input[i:])
		if r == utf8.RuneError && size == 1 {
			invalid[pos] = true
		}
		i += size
	}
	return invalid
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	tok := token.Token{FileName: l.FileName, Line: l.line, Column: l.column}

	switch l.curr {
	case 0:
		tok.Type = token.EOF
		return tok
	case '\n':
		tok.Type = token.NEWLINE
		tok.Literal = "\n"
	case '=':
		tok.Type, tok.Literal = token.ASSIGN, "="
	case ':':
		tok.Type, tok.Literal = token.COLON, ":"
	case ',':
		tok.Type, tok.Literal = token.COMMA, ","
	case '(':
		tok.Type, tok.Literal = token.LPAREN, "("
	case ')':
		tok.Type, tok.Literal = token.RPAREN, ")"
	case '{':
		tok.Type, tok.Literal = token.LBRACE, "{"
	case '}':
		tok.Type, tok.Literal = token.RBRACE, "}"
	case '%':
		return l.readSigil(tok, token.VALUE, isIdentRune)
	case '@':
		return l.readSigil(tok, token.GLOBAL, isGlobalRune)
	case '$':
		return l.readSigil(tok, token.TYPE, isTypeRune)
	case '#':
		return l.readSigil(tok, token.CASE, isIdentRune)
	case '"':
		return l.readString(tok)
	case '-':
		if l.peekRune() == '>' {
			l.readRune()
			tok.Type, tok.Literal = token.ARROW, "->"
			break
		}
		if IsDigit(l.peekRune()) {
			tok.Type = token.INT
			tok.Literal = l.readNumber()
			return tok
		}
		tok.Type, tok.Literal = token.ILLEGAL, "-"
	default:
		if IsLetter(l.curr) {
			tok.Literal = l.readWhile(isIdentRune)
			tok.Type = token.LookupIdent(tok.Literal)
			return tok
		}
		if IsDigit(l.curr) {
			tok.Type = token.INT
			tok.Literal = l.readNumber()
			return tok
		}
		tok.Type, tok.Literal = token.ILLEGAL, string(l.curr)
	}

	l.readRune()
	return tok
}

// readSigil reads a sigil-prefixed name such as %0 or @Logger.log. The
// literal excludes the sigil.
func (l *Lexer) readSigil(tok token.Token, tt token.TokenType, valid func(rune) bool) token.Token {
	sigil := l.curr
	l.readRune()
	name := l.readWhile(valid)
	if name == "" {
		tok.Type, tok.Literal = token.ILLEGAL, string(sigil)
		l.addError(tok, "expected a name after "+string(sigil))
		return tok
	}
	tok.Type, tok.Literal = tt, name
	return tok
}

// readString reads a double-quoted literal using Go escape rules.
func (l *Lexer) readString(tok token.Token) token.Token {
	start := l.position
	l.readRune() // opening quote
	for l.curr != '"' {
		if l.curr == 0 || l.curr == '\n' {
			tok.Type, tok.Literal = token.ILLEGAL, string(l.input[start:l.position])
			l.addError(tok, "unterminated string literal")
			return tok
		}
		if l.curr == '\\' {
			l.readRune()
		}
		l.readRune()
	}
	l.readRune() // closing quote

	raw := string(l.input[start:l.position])
	for i := start; i < l.position; i++ {
		if l.invalid[i] {
			tok.Type, tok.Literal = token.ILLEGAL, raw
			l.addError(tok, "invalid UTF-8 in string literal")
			return tok
		}
	}
	s, err := strconv.Unquote(raw)
	if err != nil {
		tok.Type, tok.Literal = token.ILLEGAL, raw
		l.addError(tok, "invalid string literal "+raw)
		return tok
	}
	tok.Type, tok.Literal = token.STRING, s
	return tok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.curr == ' ' || l.curr == '\t' || l.curr == '\r':
			l.readRune()
		case l.curr == '/' && l.peekRune() == '/':
			for l.curr != '\n' && l.curr != 0 {
				l.readRune()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readRune() {
	if l.curr == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.curr = 0
	} else {
		l.curr = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekRune() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) readWhile(valid func(rune) bool) string {
	position := l.position
	for valid(l.curr) {
		l.readRune()
	}
	return string(l.input[position:l.position])
}

// readNumber reads an optionally negative integer. Hex and octal prefixes are
// kept in the literal and resolved by the parser.
func (l *Lexer) readNumber() string {
	position := l.position
	if l.curr == '-' {
		l.readRune()
	}
	for IsLetterOrDigit(l.curr) {
		l.readRune()
	}
	return string(l.input[position:l.position])
}

func (l *Lexer) addError(tok token.Token, msg string) {
	l.Errors = append(l.Errors, &token.CompileError{Token: tok, Msg: msg})
}

func IsLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func IsDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func IsLetterOrDigit(ch rune) bool {
	return IsLetter(ch) || IsDigit(ch)
}

func isIdentRune(ch rune) bool {
	return IsLetterOrDigit(ch)
}

func isGlobalRune(ch rune) bool {
	return IsLetterOrDigit(ch) || ch == '.' || ch == '$'
}

func isTypeRune(ch rune) bool {
	return IsLetterOrDigit(ch) || ch == '.' || ch == '<' || ch == '>' || ch == '*'
}
