package lexer

import (
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/ember/internal/diagnostics"
	"github.com/funvibe/ember/internal/token"
)

func collect(t *testing.T, input string) []token.Token {
	t.Helper()
	l := New(input)
	var toks []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func lexError(t *testing.T, input string) *diagnostics.CompileError {
	t.Helper()
	l := New(input)
	for {
		tok, err := l.NextToken()
		if err != nil {
			var ce *diagnostics.CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("error is %T, want *diagnostics.CompileError", err)
			}
			return ce
		}
		if tok.Type == token.EOF {
			t.Fatalf("expected lex error for %q, got none", input)
		}
	}
}

func TestNextToken(t *testing.T) {
	input := `let five = 5;
fn add(x, y) { return x + y; }
if (a <= b && c != d || !e) { x = a >= b; } else { y = a == b; }
while (i < 10) { break; }
import mod; class P { } try { throw "x"; } catch { }
[1, 2]; {k: v}; a.b; x * y / z - w;`

	tests := []struct {
		expectedType   token.TokenType
		expectedLexeme string
	}{
		{token.LET, "let"}, {token.IDENT, "five"}, {token.ASSIGN, "="}, {token.NUMBER, "5"}, {token.SEMICOLON, ";"},
		{token.FN, "fn"}, {token.IDENT, "add"}, {token.LPAREN, "("}, {token.IDENT, "x"}, {token.COMMA, ","},
		{token.IDENT, "y"}, {token.RPAREN, ")"}, {token.LBRACE, "{"}, {token.RETURN, "return"}, {token.IDENT, "x"},
		{token.PLUS, "+"}, {token.IDENT, "y"}, {token.SEMICOLON, ";"}, {token.RBRACE, "}"},
		{token.IF, "if"}, {token.LPAREN, "("}, {token.IDENT, "a"}, {token.LTE, "<="}, {token.IDENT, "b"},
		{token.AND, "&&"}, {token.IDENT, "c"}, {token.NOT_EQ, "!="}, {token.IDENT, "d"}, {token.OR, "||"},
		{token.BANG, "!"}, {token.IDENT, "e"}, {token.RPAREN, ")"}, {token.LBRACE, "{"}, {token.IDENT, "x"},
		{token.ASSIGN, "="}, {token.IDENT, "a"}, {token.GTE, ">="}, {token.IDENT, "b"}, {token.SEMICOLON, ";"},
		{token.RBRACE, "}"}, {token.ELSE, "else"}, {token.LBRACE, "{"}, {token.IDENT, "y"}, {token.ASSIGN, "="},
		{token.IDENT, "a"}, {token.EQ, "=="}, {token.IDENT, "b"}, {token.SEMICOLON, ";"}, {token.RBRACE, "}"},
		{token.WHILE, "while"}, {token.LPAREN, "("}, {token.IDENT, "i"}, {token.LT, "<"}, {token.NUMBER, "10"},
		{token.RPAREN, ")"}, {token.LBRACE, "{"}, {token.BREAK, "break"}, {token.SEMICOLON, ";"}, {token.RBRACE, "}"},
		{token.IMPORT, "import"}, {token.IDENT, "mod"}, {token.SEMICOLON, ";"}, {token.CLASS, "class"},
		{token.IDENT, "P"}, {token.LBRACE, "{"}, {token.RBRACE, "}"}, {token.TRY, "try"}, {token.LBRACE, "{"},
		{token.THROW, "throw"}, {token.STRING, `"x"`}, {token.SEMICOLON, ";"}, {token.RBRACE, "}"},
		{token.CATCH, "catch"}, {token.LBRACE, "{"}, {token.RBRACE, "}"},
		{token.LBRACKET, "["}, {token.NUMBER, "1"}, {token.COMMA, ","}, {token.NUMBER, "2"}, {token.RBRACKET, "]"},
		{token.SEMICOLON, ";"}, {token.LBRACE, "{"}, {token.IDENT, "k"}, {token.COLON, ":"}, {token.IDENT, "v"},
		{token.RBRACE, "}"}, {token.SEMICOLON, ";"}, {token.IDENT, "a"}, {token.DOT, "."}, {token.IDENT, "b"},
		{token.SEMICOLON, ";"}, {token.IDENT, "x"}, {token.ASTERISK, "*"}, {token.IDENT, "y"}, {token.SLASH, "/"},
		{token.IDENT, "z"}, {token.MINUS, "-"}, {token.IDENT, "w"}, {token.SEMICOLON, ";"},
		{token.EOF, ""},
	}

	toks := collect(t, input)
	if len(toks) != len(tests) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(tests))
	}
	for i, tt := range tests {
		tok := toks[i]
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Lexeme != tt.expectedLexeme {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q", i, tt.expectedLexeme, tok.Lexeme)
		}
	}
}

func TestKeywordsAreLowerCased(t *testing.T) {
	toks := collect(t, "LET While Fn")
	want := []token.TokenType{token.LET, token.WHILE, token.FN, token.EOF}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, w)
		}
	}
	if toks[0].Lexeme != "LET" {
		t.Errorf("lexeme should keep original case, got %q", toks[0].Lexeme)
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"0", 0},
		{"42", 42},
		{"0x1F", 31},
		{"0XfF", 255},
		{"3.25", 3.25},
		{"1e3", 1000},
		{"2.5E-1", 0.25},
		{"7e+2", 700},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := collect(t, tt.input)
			if toks[0].Type != token.NUMBER {
				t.Fatalf("got %s, want NUMBER", toks[0].Type)
			}
			if got := toks[0].Literal.(float64); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNumberFollowedByMember(t *testing.T) {
	toks := collect(t, "1.x")
	if toks[0].Type != token.NUMBER || toks[1].Type != token.DOT || toks[2].Type != token.IDENT {
		t.Fatalf("unexpected tokens: %v", toks)
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`'single'`, "single"},
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"q\"q"`, `q"q`},
		{`'it\'s'`, "it's"},
		{`"\\"`, `\`},
		{`"\a\b\e\f\v\r"`, "\a\b\x1b\f\v\r"},
		{`"it's"`, "it's"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := collect(t, tt.input)
			if toks[0].Type != token.STRING {
				t.Fatalf("got %s, want STRING", toks[0].Type)
			}
			if got := toks[0].Literal.(string); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFString(t *testing.T) {
	toks := collect(t, `f"x = ${x}\n"`)
	if toks[0].Type != token.FSTRING {
		t.Fatalf("got %s, want FSTRING", toks[0].Type)
	}
	if got := toks[0].Literal.(string); got != `x = ${x}\n` {
		t.Errorf("raw body = %q", got)
	}
	if toks[1].Type != token.EOF {
		t.Errorf("expected EOF after f-string, got %s", toks[1].Type)
	}
}

func TestFStringQuotesInsideInterpolation(t *testing.T) {
	toks := collect(t, `f"${"q" + '}'} and ${d["k"]}" x`)
	if toks[0].Type != token.FSTRING {
		t.Fatalf("got %s, want FSTRING", toks[0].Type)
	}
	if got, want := toks[0].Literal.(string), `${"q" + '}'} and ${d["k"]}`; got != want {
		t.Errorf("raw body = %q, want %q", got, want)
	}
	if toks[1].Lexeme != "x" {
		t.Errorf("next token = %v", toks[1])
	}
}

func TestIdentifierStartingWithF(t *testing.T) {
	toks := collect(t, "foo f")
	if toks[0].Type != token.IDENT || toks[0].Lexeme != "foo" {
		t.Errorf("got %v", toks[0])
	}
	if toks[1].Type != token.IDENT || toks[1].Lexeme != "f" {
		t.Errorf("got %v", toks[1])
	}
}

func TestComments(t *testing.T) {
	toks := collect(t, "a // line comment\n/* block\ncomment */ b")
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %v", len(toks), toks)
	}
	if toks[1].Lexeme != "b" || toks[1].Pos.Line != 3 {
		t.Errorf("b at %v, want line 3", toks[1].Pos)
	}
}

func TestPositions(t *testing.T) {
	toks := collect(t, "let x\n  = 10;")
	want := []token.Pos{
		{Offset: 0, Line: 1, Column: 1},
		{Offset: 4, Line: 1, Column: 5},
		{Offset: 8, Line: 2, Column: 3},
		{Offset: 10, Line: 2, Column: 5},
		{Offset: 12, Line: 2, Column: 7},
	}
	for i, w := range want {
		if toks[i].Pos != w {
			t.Errorf("token %d (%s): pos %+v, want %+v", i, toks[i].Lexeme, toks[i].Pos, w)
		}
	}
}

func TestNewAtOffsetsPositions(t *testing.T) {
	l := NewAt("a + b", token.Pos{Offset: 20, Line: 4, Column: 9})
	tok, _ := l.NextToken()
	if tok.Pos != (token.Pos{Offset: 20, Line: 4, Column: 9}) {
		t.Errorf("first token at %+v", tok.Pos)
	}
	l.NextToken()
	tok, _ = l.NextToken()
	if tok.Pos != (token.Pos{Offset: 24, Line: 4, Column: 13}) {
		t.Errorf("third token at %+v", tok.Pos)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		line    int
		column  int
		message string
	}{
		{"unterminated string", "let s = \"abc", 1, 9, "unterminated string"},
		{"unterminated single", "\n  'abc", 2, 3, "unterminated string"},
		{"unterminated fstring", `f"abc`, 1, 1, "unterminated string"},
		{"bad escape", `"a\qb"`, 1, 3, "invalid escape"},
		{"bad escape in fstring", `f"a\q"`, 1, 4, "invalid escape"},
		{"unterminated interpolation", `f"a ${b + "c}"`, 1, 5, "unterminated interpolation"},
		{"unterminated comment", "a /* never", 1, 3, "unterminated block comment"},
		{"bare ampersand", "a & b", 1, 3, "unknown token"},
		{"bare pipe", "a | b", 1, 3, "unknown token"},
		{"unknown char", "a # b", 1, 3, "unknown token"},
		{"empty hex", "0x", 1, 1, "hexadecimal"},
		{"bad exponent", "1e+", 1, 1, "exponent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := lexError(t, tt.input)
			if err.Pos.Line != tt.line || err.Pos.Column != tt.column {
				t.Errorf("position %d:%d, want %d:%d", err.Pos.Line, err.Pos.Column, tt.line, tt.column)
			}
			if !strings.Contains(err.Message, tt.message) {
				t.Errorf("message %q does not contain %q", err.Message, tt.message)
			}
		})
	}
}

func TestEOFRepeats(t *testing.T) {
	l := New("")
	for i := 0; i < 3; i++ {
		tok, err := l.NextToken()
		if err != nil || tok.Type != token.EOF {
			t.Fatalf("call %d: got %v, %v", i, tok, err)
		}
	}
}

func TestUnescape(t *testing.T) {
	got, _, ok := Unescape(`a\tb\\c`)
	if !ok || got != "a\tb\\c" {
		t.Errorf("got %q ok=%v", got, ok)
	}
	_, at, ok := Unescape(`ab\z`)
	if ok || at != 2 {
		t.Errorf("bad escape: at=%d ok=%v", at, ok)
	}
}
