package script

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	default:
		return "punctuator"
	}
}

// Pos is a 1-based line and column in the program text.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

type token struct {
	kind tokenKind
	text string // identifier name, punctuator, decoded string or number text
	pos  Pos
	// nl is set when a line break separates this token from the previous one.
	nl bool
}

// punctuators longest first so that the scanner is greedy.
var punctuators = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||",
	"(", ")", "{", "}", "[", "]", ",", ";", ":", ".", "?",
	"=", "<", ">", "+", "-", "*", "/", "%", "!",
}

type lexer struct {
	src  string
	off  int
	line int
	col  int
	nl   bool
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src, line: 1, col: 1}
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) errorf(pos Pos, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (lx *lexer) peekRune() (rune, int) {
	if lx.off >= len(lx.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(lx.src[lx.off:])
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.off < len(lx.src); {
		r, size := utf8.DecodeRuneInString(lx.src[lx.off:])
		lx.off += size
		i += size
		if r == '\n' {
			lx.line++
			lx.col = 1
			lx.nl = true
		} else {
			lx.col++
		}
	}
}

// skipSpace skips whitespace and comments.
func (lx *lexer) skipSpace() error {
	for lx.off < len(lx.src) {
		rest := lx.src[lx.off:]
		switch {
		case strings.HasPrefix(rest, "//"):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				end = len(rest)
			}
			lx.advance(end)
		case strings.HasPrefix(rest, "/*"):
			start := Pos{lx.line, lx.col}
			end := strings.Index(rest[2:], "*/")
			if end < 0 {
				return lx.errorf(start, "unterminated comment")
			}
			lx.advance(end + 4)
		default:
			r, size := lx.peekRune()
			if !unicode.IsSpace(r) {
				return nil
			}
			lx.advance(size)
		}
	}
	return nil
}

func (lx *lexer) next() (token, error) {
	lx.nl = false
	if err := lx.skipSpace(); err != nil {
		return token{}, err
	}
	pos := Pos{lx.line, lx.col}
	nl := lx.nl
	if lx.off >= len(lx.src) {
		return token{kind: tokEOF, pos: pos, nl: nl}, nil
	}

	r, _ := lx.peekRune()
	switch {
	case isIdentStart(r):
		start := lx.off
		for lx.off < len(lx.src) {
			r, size := lx.peekRune()
			if !isIdentPart(r) {
				break
			}
			lx.advance(size)
		}
		return token{kind: tokIdent, text: lx.src[start:lx.off], pos: pos, nl: nl}, nil

	case r >= '0' && r <= '9', r == '.' && lx.off+1 < len(lx.src) && isDigit(lx.src[lx.off+1]):
		text, err := lx.number(pos)
		return token{kind: tokNumber, text: text, pos: pos, nl: nl}, err

	case r == '"' || r == '\'':
		text, err := lx.str(pos, byte(r))
		return token{kind: tokString, text: text, pos: pos, nl: nl}, err
	}

	for _, p := range punctuators {
		if strings.HasPrefix(lx.src[lx.off:], p) {
			lx.advance(len(p))
			return token{kind: tokPunct, text: p, pos: pos, nl: nl}, nil
		}
	}
	return token{}, lx.errorf(pos, "unexpected character %q", r)
}

func (lx *lexer) number(pos Pos) (string, error) {
	start := lx.off
	for lx.off < len(lx.src) && isDigit(lx.src[lx.off]) {
		lx.advance(1)
	}
	if lx.off < len(lx.src) && lx.src[lx.off] == '.' {
		lx.advance(1)
		for lx.off < len(lx.src) && isDigit(lx.src[lx.off]) {
			lx.advance(1)
		}
	}
	if lx.off < len(lx.src) && (lx.src[lx.off] == 'e' || lx.src[lx.off] == 'E') {
		lx.advance(1)
		if lx.off < len(lx.src) && (lx.src[lx.off] == '+' || lx.src[lx.off] == '-') {
			lx.advance(1)
		}
		digits := lx.off
		for lx.off < len(lx.src) && isDigit(lx.src[lx.off]) {
			lx.advance(1)
		}
		if digits == lx.off {
			return "", lx.errorf(pos, "malformed number exponent")
		}
	}
	if lx.off < len(lx.src) {
		if r, _ := lx.peekRune(); isIdentStart(r) {
			return "", lx.errorf(pos, "identifier starts immediately after numeric literal")
		}
	}
	return lx.src[start:lx.off], nil
}

func (lx *lexer) str(pos Pos, quote byte) (string, error) {
	lx.advance(1)
	var sb strings.Builder
	for {
		if lx.off >= len(lx.src) {
			return "", lx.errorf(pos, "unterminated string literal")
		}
		c := lx.src[lx.off]
		switch {
		case c == quote:
			lx.advance(1)
			return sb.String(), nil
		case c == '\n':
			return "", lx.errorf(pos, "unterminated string literal")
		case c == '\\':
			if err := lx.escape(&sb); err != nil {
				return "", err
			}
		default:
			r, size := lx.peekRune()
			sb.WriteRune(r)
			lx.advance(size)
		}
	}
}

func (lx *lexer) escape(sb *strings.Builder) error {
	pos := Pos{lx.line, lx.col}
	lx.advance(1)
	if lx.off >= len(lx.src) {
		return lx.errorf(pos, "unterminated escape sequence")
	}
	c := lx.src[lx.off]
	simple := map[byte]string{
		'n': "\n", 't': "\t", 'r': "\r", 'b': "\b", 'f': "\f", 'v': "\v",
		'0': "\x00", '\\': "\\", '\'': "'", '"': "\"", 'a': "\a",
	}
	if s, ok := simple[c]; ok {
		sb.WriteString(s)
		lx.advance(1)
		return nil
	}
	if c == '\n' {
		lx.advance(1)
		return nil
	}

	var digits int
	switch c {
	case 'x':
		digits = 2
	case 'u':
		digits = 4
		if lx.off+1 < len(lx.src) && lx.src[lx.off+1] == '{' {
			end := strings.IndexByte(lx.src[lx.off:], '}')
			if end < 0 {
				return lx.errorf(pos, "malformed unicode escape")
			}
			return lx.hexRune(sb, pos, lx.src[lx.off+2:lx.off+end], end+1)
		}
	case 'U':
		digits = 8
	default:
		// Unknown escapes stand for the character itself.
		r, size := lx.peekRune()
		sb.WriteRune(r)
		lx.advance(size)
		return nil
	}
	if lx.off+1+digits > len(lx.src) {
		return lx.errorf(pos, "malformed escape sequence")
	}
	return lx.hexRune(sb, pos, lx.src[lx.off+1:lx.off+1+digits], digits+1)
}

func (lx *lexer) hexRune(sb *strings.Builder, pos Pos, hex string, consumed int) error {
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || n > unicode.MaxRune {
		return lx.errorf(pos, "malformed escape sequence")
	}
	sb.WriteRune(rune(n))
	lx.advance(consumed)
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
