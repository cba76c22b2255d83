package parser

import (
	"strings"

	"github.com/funvibe/ember/internal/ast"
	"github.com/funvibe/ember/internal/diagnostics"
	"github.com/funvibe/ember/internal/lexer"
	"github.com/funvibe/ember/internal/token"
)

// parseFString desugars f"a ${x} b" into "a " + str(x) + " b".
func (p *Parser) parseFString(tok token.Token) ast.Expression {
	raw := tok.Literal.(string)
	// body starts after `f"`
	base := token.Pos{Offset: tok.Pos.Offset + 2, Line: tok.Pos.Line, Column: tok.Pos.Column + 2}

	var parts []ast.Expression
	literal := func(s string) {
		if s == "" {
			return
		}
		v, _, ok := lexer.Unescape(s)
		if !ok {
			// the lexer already rejected bad escapes
			v = s
		}
		parts = append(parts, &ast.String{Token: tok, Value: v})
	}

	i := 0
	for {
		open := strings.Index(raw[i:], "${")
		if open < 0 {
			literal(raw[i:])
			break
		}
		open += i
		literal(raw[i:open])

		exprStart := open + 2
		end := matchBrace(raw, exprStart)
		if end < 0 {
			p.fail(advance(base, raw[:open]), "unterminated interpolation in f-string")
		}
		src := raw[exprStart:end]
		expr, err := parseSubExpression(src, advance(base, raw[:exprStart]))
		if err != nil {
			if err.Code == diagnostics.ErrIncomplete {
				err.Code = diagnostics.ErrSyntax
			}
			p.err = err
			panic(bailout{})
		}
		parts = append(parts, builtinCall(expr.GetToken(), "str", expr))
		i = end + 1
	}

	if len(parts) == 0 {
		return &ast.String{Token: tok, Value: ""}
	}
	out := parts[0]
	for _, part := range parts[1:] {
		plus := token.Token{Type: token.PLUS, Lexeme: "+", Literal: "+", Pos: part.GetToken().Pos}
		out = &ast.Binary{Token: plus, Op: token.PLUS, Left: out, Right: part}
	}
	return out
}

// matchBrace returns the index of the '}' closing an interpolation that
// starts at from, skipping nested braces and quoted strings.
func matchBrace(s string, from int) int {
	depth := 0
	for i := from; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			i++
		case '\'', '"':
			for i++; i < len(s) && s[i] != c; i++ {
				if s[i] == '\\' {
					i++
				}
			}
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// advance moves pos over text.
func advance(pos token.Pos, text string) token.Pos {
	for _, r := range text {
		if r == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
	}
	pos.Offset += len(text)
	return pos
}
