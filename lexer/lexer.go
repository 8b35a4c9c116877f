/*
Package lexer implements the scanner for ferro source text.

The scanner advances byte-wise over the input, tracking 1-based line and
column positions, and applies maximal munch at every position: whitespace
and comments are skipped, then numeric literals, identifiers/keywords,
operators (longest match first), and delimiters are tried in that order.
Anything left over becomes an Error token. The scanner itself never fails;
malformed input surfaces as Error tokens and is reported by later stages.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package lexer

import (
	"github.com/npillmayer/schuko/tracing"

	"github.com/ferrolang/ferro"
)

// tracer traces with key 'ferro.lexer'.
func tracer() tracing.Trace {
	return tracing.Select("ferro.lexer")
}

// keywords are the reserved words of the language.
var keywords = map[string]bool{
	"i32": true, "let": true, "if": true, "else": true, "while": true,
	"return": true, "mut": true, "fn": true, "for": true, "in": true,
	"loop": true, "break": true, "continue": true,
}

// twoCharOps are matched before the single-character operators.
var twoCharOps = map[string]bool{
	"==": true, "!=": true, ">=": true, "<=": true, "->": true, "..": true,
}

var singleCharOps = map[byte]bool{
	'+': true, '-': true, '*': true, '/': true, '>': true, '<': true,
	'=': true, '.': true, '&': true,
}

var delims = map[byte]bool{
	';': true, ',': true, ':': true, '(': true, ')': true,
	'{': true, '}': true, '[': true, ']': true,
}

// Lexer scans a source string into ferro tokens.
type Lexer struct {
	text string
	pos  int
	line int
	col  int
}

// New creates a Lexer over the given source text.
func New(text string) *Lexer {
	return &Lexer{text: text, line: 1, col: 1}
}

// peek returns the byte at the current position, or 0 at end of input.
func (lx *Lexer) peek() byte {
	if lx.pos >= len(lx.text) {
		return 0
	}
	return lx.text[lx.pos]
}

// peek2 returns the two-byte window at the current position.
func (lx *Lexer) peek2() string {
	if lx.pos+2 > len(lx.text) {
		return ""
	}
	return lx.text[lx.pos : lx.pos+2]
}

// advance consumes n bytes, updating line and column. A newline resets the
// column counter.
func (lx *Lexer) advance(n int) {
	for i := 0; i < n && lx.pos < len(lx.text); i++ {
		if lx.text[lx.pos] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
		lx.pos++
	}
}

func (lx *Lexer) skipWhitespaceAndComments() {
	for {
		c := lx.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			lx.advance(1)
		case lx.peek2() == "//":
			lx.advance(2)
			for lx.peek() != 0 && lx.peek() != '\n' {
				lx.advance(1)
			}
		case lx.peek2() == "/*":
			// block comments do not nest; an unterminated one runs to EOF
			lx.advance(2)
			for lx.pos < len(lx.text) && lx.peek2() != "*/" {
				lx.advance(1)
			}
			if lx.peek2() == "*/" {
				lx.advance(2)
			}
		default:
			return
		}
	}
}

// Next returns the next token. After the end of input it keeps returning
// EOF tokens.
func (lx *Lexer) Next() ferro.Token {
	lx.skipWhitespaceAndComments()
	line, col := lx.line, lx.col
	c := lx.peek()

	if c == 0 {
		return ferro.Token{Kind: ferro.EOF, Value: "", Line: line, Col: col}
	}
	if isDigit(c) {
		return lx.scanNumber(line, col)
	}
	if isAlpha(c) || c == '_' {
		start := lx.pos
		for isAlnum(lx.peek()) || lx.peek() == '_' {
			lx.advance(1)
		}
		word := lx.text[start:lx.pos]
		kind := ferro.Ident
		if keywords[word] {
			kind = ferro.Keyword
		}
		return ferro.Token{Kind: kind, Value: word, Line: line, Col: col}
	}
	if two := lx.peek2(); twoCharOps[two] {
		lx.advance(2)
		return ferro.Token{Kind: ferro.Op, Value: two, Line: line, Col: col}
	}
	if singleCharOps[c] {
		lx.advance(1)
		return ferro.Token{Kind: ferro.Op, Value: string(c), Line: line, Col: col}
	}
	if delims[c] {
		lx.advance(1)
		return ferro.Token{Kind: ferro.Delim, Value: string(c), Line: line, Col: col}
	}
	lx.advance(1)
	tracer().Debugf("unrecognized input byte %q at %d:%d", c, line, col)
	return ferro.Token{Kind: ferro.Error, Value: string(c), Line: line, Col: col}
}

// scanNumber recognizes decimal literals and the prefixed forms 0b…, 0o…
// and 0x… (prefix letters are case-insensitive). A bare 0 followed by any
// other letter is an Error token covering the two-byte prefix; a decimal
// run glued to identifier characters is an Error token covering the
// combined run.
func (lx *Lexer) scanNumber(line, col int) ferro.Token {
	if lx.pos+1 < len(lx.text) && lx.peek() == '0' {
		marker := lower(lx.text[lx.pos+1])
		switch marker {
		case 'b':
			return lx.scanPrefixed(line, col, isBinDigit)
		case 'o':
			return lx.scanPrefixed(line, col, isOctDigit)
		case 'x':
			return lx.scanPrefixed(line, col, isHexDigit)
		default:
			if isAlpha(lx.text[lx.pos+1]) {
				prefix := lx.text[lx.pos : lx.pos+2]
				lx.advance(2)
				return ferro.Token{Kind: ferro.Error, Value: prefix, Line: line, Col: col}
			}
		}
	}
	start := lx.pos
	for isDigit(lx.peek()) {
		lx.advance(1)
	}
	if isAlpha(lx.peek()) || lx.peek() == '_' {
		// a digit-prefixed identifier such as 12abc
		for isAlnum(lx.peek()) || lx.peek() == '_' {
			lx.advance(1)
		}
		return ferro.Token{Kind: ferro.Error, Value: lx.text[start:lx.pos], Line: line, Col: col}
	}
	return ferro.Token{Kind: ferro.Number, Value: lx.text[start:lx.pos], Line: line, Col: col}
}

func (lx *Lexer) scanPrefixed(line, col int, digit func(byte) bool) ferro.Token {
	start := lx.pos
	lx.advance(2) // the 0b/0o/0x prefix
	n := 0
	for digit(lx.peek()) {
		lx.advance(1)
		n++
	}
	value := lx.text[start:lx.pos]
	if n == 0 {
		return ferro.Token{Kind: ferro.Error, Value: value, Line: line, Col: col}
	}
	return ferro.Token{Kind: ferro.Number, Value: value, Line: line, Col: col}
}

// All scans the remaining input and returns every token up to and
// including the single trailing EOF.
func (lx *Lexer) All() []ferro.Token {
	var tokens []ferro.Token
	for {
		tok := lx.Next()
		tokens = append(tokens, tok)
		if tok.Kind == ferro.EOF {
			return tokens
		}
	}
}

func isDigit(c byte) bool    { return c >= '0' && c <= '9' }
func isBinDigit(c byte) bool { return c == '0' || c == '1' }
func isOctDigit(c byte) bool { return c >= '0' && c <= '7' }
func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }
func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
