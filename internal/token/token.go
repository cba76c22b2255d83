package token

import "fmt"

type TokenType string

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	IDENT   TokenType = "IDENT"
	NUMBER  TokenType = "NUMBER"
	STRING  TokenType = "STRING"
	FSTRING TokenType = "FSTRING"

	// Operators
	ASSIGN   TokenType = "="
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	BANG     TokenType = "!"
	ASTERISK TokenType = "*"
	SLASH    TokenType = "/"
	LT       TokenType = "<"
	GT       TokenType = ">"
	LTE      TokenType = "<="
	GTE      TokenType = ">="
	EQ       TokenType = "=="
	NOT_EQ   TokenType = "!="
	AND      TokenType = "&&"
	OR       TokenType = "||"

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	COLON     TokenType = ":"
	DOT       TokenType = "."
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"

	// Keywords
	LET    TokenType = "LET"
	IF     TokenType = "IF"
	ELSE   TokenType = "ELSE"
	WHILE  TokenType = "WHILE"
	FN     TokenType = "FN"
	RETURN TokenType = "RETURN"
	BREAK  TokenType = "BREAK"
	IMPORT TokenType = "IMPORT"
	CLASS  TokenType = "CLASS"
	TRY    TokenType = "TRY"
	CATCH  TokenType = "CATCH"
	THROW  TokenType = "THROW"
)

var keywords = map[string]TokenType{
	"let":    LET,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"fn":     FN,
	"return": RETURN,
	"break":  BREAK,
	"import": IMPORT,
	"class":  CLASS,
	"try":    TRY,
	"catch":  CATCH,
	"throw":  THROW,
}

// LookupIdent returns the keyword type for the given word, or IDENT.
// The caller is expected to have lower-cased the word already.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether t is a reserved word.
func IsKeyword(t TokenType) bool {
	for _, k := range keywords {
		if k == t {
			return true
		}
	}
	return false
}

// Pos marks a location in source text. Line and Column are 1-based.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Token struct {
	Type    TokenType
	Lexeme  string
	Literal any // float64 for NUMBER, decoded string for STRING, raw body for FSTRING
	Pos     Pos
}

func (t Token) String() string {
	switch t.Type {
	case EOF:
		return "end of input"
	case IDENT, NUMBER:
		return fmt.Sprintf("%s %q", t.Type, t.Lexeme)
	case STRING, FSTRING:
		return fmt.Sprintf("%s %s", t.Type, t.Lexeme)
	}
	if IsKeyword(t.Type) {
		return fmt.Sprintf("keyword %q", t.Lexeme)
	}
	return fmt.Sprintf("%q", t.Lexeme)
}
