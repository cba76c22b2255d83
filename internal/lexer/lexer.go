package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/ember/internal/diagnostics"
	"github.com/funvibe/ember/internal/token"
)

// Lexer produces tokens lazily: each NextToken call scans exactly one token.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
	base         int  // offset of input within the enclosing source
}

func New(input string) *Lexer {
	return NewAt(input, token.Pos{Line: 1, Column: 1})
}

// NewAt starts lexing input as if its first character sat at base. Used for
// the expression segments of interpolated strings so positions refer to the
// enclosing file.
func NewAt(input string, base token.Pos) *Lexer {
	if base.Line == 0 {
		base.Line = 1
	}
	if base.Column == 0 {
		base.Column = 1
	}
	l := &Lexer{input: input, base: base.Offset, line: base.Line, column: base.Column - 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		l.column++
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) pos() token.Pos {
	return token.Pos{Offset: l.base + l.position, Line: l.line, Column: l.column}
}

func (l *Lexer) errorf(pos token.Pos, format string, args ...any) error {
	return diagnostics.NewError(diagnostics.ErrLex, pos, format, args...)
}

// NextToken scans the next token. At end of input it keeps returning EOF.
func (l *Lexer) NextToken() (token.Token, error) {
	if err := l.skipWhitespace(); err != nil {
		return token.Token{}, err
	}

	start := l.pos()
	if l.atEOF() {
		return token.Token{Type: token.EOF, Pos: start}, nil
	}

	single := func(t token.TokenType) (token.Token, error) {
		lexeme := string(l.ch)
		l.readChar()
		return token.Token{Type: t, Lexeme: lexeme, Literal: lexeme, Pos: start}, nil
	}
	double := func(second rune, two, one token.TokenType) (token.Token, error) {
		if l.peekChar() == second {
			lexeme := string(l.ch) + string(second)
			l.readChar()
			l.readChar()
			return token.Token{Type: two, Lexeme: lexeme, Literal: lexeme, Pos: start}, nil
		}
		return single(one)
	}

	switch l.ch {
	case '=':
		return double('=', token.EQ, token.ASSIGN)
	case '!':
		return double('=', token.NOT_EQ, token.BANG)
	case '<':
		return double('=', token.LTE, token.LT)
	case '>':
		return double('=', token.GTE, token.GT)
	case '&':
		if l.peekChar() != '&' {
			return token.Token{}, l.errorf(start, "unknown token %q (did you mean \"&&\"?)", "&")
		}
		return double('&', token.AND, token.ILLEGAL)
	case '|':
		if l.peekChar() != '|' {
			return token.Token{}, l.errorf(start, "unknown token %q (did you mean \"||\"?)", "|")
		}
		return double('|', token.OR, token.ILLEGAL)
	case '+':
		return single(token.PLUS)
	case '-':
		return single(token.MINUS)
	case '*':
		return single(token.ASTERISK)
	case '/':
		return single(token.SLASH)
	case ',':
		return single(token.COMMA)
	case ';':
		return single(token.SEMICOLON)
	case ':':
		return single(token.COLON)
	case '.':
		return single(token.DOT)
	case '(':
		return single(token.LPAREN)
	case ')':
		return single(token.RPAREN)
	case '{':
		return single(token.LBRACE)
	case '}':
		return single(token.RBRACE)
	case '[':
		return single(token.LBRACKET)
	case ']':
		return single(token.RBRACKET)
	case '"', '\'':
		return l.readString(start)
	}

	if l.ch == 'f' && l.peekChar() == '"' {
		return l.readFString(start)
	}
	if isLetter(l.ch) {
		word := l.readIdentifier()
		return token.Token{Type: token.LookupIdent(strings.ToLower(word)), Lexeme: word, Literal: word, Pos: start}, nil
	}
	if isDigit(l.ch) {
		return l.readNumber(start)
	}

	return token.Token{}, l.errorf(start, "unknown token %q", string(l.ch))
}

func (l *Lexer) skipWhitespace() error {
	for !l.atEOF() {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			start := l.pos()
			l.readChar()
			l.readChar()
			for {
				if l.atEOF() {
					return l.errorf(start, "unterminated block comment")
				}
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber(start token.Pos) (token.Token, error) {
	position := l.position

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		digits := l.position
		for isHexDigit(l.ch) {
			l.readChar()
		}
		if l.position == digits {
			return token.Token{}, l.errorf(start, "malformed hexadecimal literal %q", l.input[position:l.position])
		}
		n, err := strconv.ParseUint(l.input[digits:l.position], 16, 64)
		if err != nil {
			return token.Token{}, l.errorf(start, "malformed hexadecimal literal %q", l.input[position:l.position])
		}
		lexeme := l.input[position:l.position]
		return token.Token{Type: token.NUMBER, Lexeme: lexeme, Literal: float64(n), Pos: start}, nil
	}

	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			if !isDigit(l.ch) {
				return token.Token{}, l.errorf(start, "malformed exponent in %q", l.input[position:l.position])
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	lexeme := l.input[position:l.position]
	n, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		return token.Token{}, l.errorf(start, "malformed number %q", lexeme)
	}
	return token.Token{Type: token.NUMBER, Lexeme: lexeme, Literal: n, Pos: start}, nil
}

func (l *Lexer) readString(start token.Pos) (token.Token, error) {
	quote := l.ch
	position := l.position
	l.readChar()

	var out strings.Builder
	for {
		if l.atEOF() {
			return token.Token{}, l.errorf(start, "unterminated string")
		}
		if l.ch == quote {
			l.readChar()
			break
		}
		if l.ch == '\\' {
			escPos := l.pos()
			l.readChar()
			if l.atEOF() {
				return token.Token{}, l.errorf(start, "unterminated string")
			}
			r, ok := escapes[l.ch]
			if !ok {
				return token.Token{}, l.errorf(escPos, "invalid escape sequence \\%c", l.ch)
			}
			out.WriteRune(r)
			l.readChar()
			continue
		}
		out.WriteRune(l.ch)
		l.readChar()
	}

	return token.Token{Type: token.STRING, Lexeme: l.input[position:l.position], Literal: out.String(), Pos: start}, nil
}

// readFString keeps the body of f"..." undecoded. Escapes are validated here
// so the error points at the literal; the parser splits and decodes segments.
func (l *Lexer) readFString(start token.Pos) (token.Token, error) {
	position := l.position
	l.readChar() // f
	l.readChar() // "
	body := l.position

	for {
		if l.atEOF() {
			return token.Token{}, l.errorf(start, "unterminated string")
		}
		if l.ch == '"' {
			break
		}
		if l.ch == '$' && l.peekChar() == '{' {
			if err := l.skipInterpolation(); err != nil {
				return token.Token{}, err
			}
		} else if l.ch == '\\' {
			escPos := l.pos()
			l.readChar()
			if l.atEOF() {
				return token.Token{}, l.errorf(start, "unterminated string")
			}
			if _, ok := escapes[l.ch]; !ok {
				return token.Token{}, l.errorf(escPos, "invalid escape sequence \\%c", l.ch)
			}
		}
		l.readChar()
	}
	raw := l.input[body:l.position]
	l.readChar()

	return token.Token{Type: token.FSTRING, Lexeme: l.input[position:l.position], Literal: raw, Pos: start}, nil
}

// skipInterpolation moves over a ${...} segment, including nested braces and
// quoted strings, and stops on its closing '}'. Escapes inside are left to
// the parser, which lexes the segment again as an expression.
func (l *Lexer) skipInterpolation() error {
	open := l.pos()
	l.readChar() // $
	l.readChar() // {
	depth := 0
	for !l.atEOF() {
		switch l.ch {
		case '\\':
			l.readChar()
		case '\'', '"':
			quote := l.ch
			for l.readChar(); !l.atEOF() && l.ch != quote; l.readChar() {
				if l.ch == '\\' {
					l.readChar()
				}
			}
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return nil
			}
			depth--
		}
		l.readChar()
	}
	return l.errorf(open, "unterminated interpolation in f-string")
}

var escapes = map[rune]rune{
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'a':  '\a',
	'b':  '\b',
	'e':  0x1b,
	'f':  '\f',
	'v':  '\v',
}

// Unescape decodes backslash escapes in s. On an invalid escape it returns
// the byte offset of the backslash.
func Unescape(s string) (string, int, bool) {
	if !strings.ContainsRune(s, '\\') {
		return s, 0, true
	}
	var out strings.Builder
	for i := 0; i < len(s); {
		r, w := utf8.DecodeRuneInString(s[i:])
		if r != '\\' {
			out.WriteRune(r)
			i += w
			continue
		}
		if i+1 >= len(s) {
			return "", i, false
		}
		esc, ew := utf8.DecodeRuneInString(s[i+1:])
		d, ok := escapes[esc]
		if !ok {
			return "", i, false
		}
		out.WriteRune(d)
		i += 1 + ew
	}
	return out.String(), 0, true
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}
