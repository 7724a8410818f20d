// lexer.go — shared tokenizer for Gem scene files and Pyzza scripts.
//
// Both syntaxes share one token family: the directive form `#a:b:c.ext`,
// identifier case classes, and the same punctuation/operator set, so a single
// lexer serves the Gem parser (gem.go), the registry loader (registry.go) and
// the Pyzza parser (parser.go).
//
// Two lexer-level decisions the parsers rely on:
//
//   - Identifier case is decided here, not in the parsers. An identifier whose
//     first byte is uppercase lexes as UPPER_ID, otherwise LOWER_ID. Block
//     parsers dispatch on that distinction (uppercase = node declaration,
//     lowercase = property/statement) without any extra grammar keyword.
//
//   - A directive `#seg1:seg2:...:segN[.ext]` is ONE token. Segments may be
//     separated by ':' or '/'; the raw path text (without the leading '#') is
//     stored in Token.Literal. Splitting and validation happen later in the
//     directive resolver (directive.go).
//
// '#' is reserved for directives. Comments are '//' (line), '/# ... #/'
// (block) and '///' (doc comment, emitted as a DOC token).
package gem

import (
	"fmt"
	"strconv"
)

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF TokenType = iota
	ILLEGAL

	// Punctuation
	LBRACE // "{"
	RBRACE // "}"
	LPAREN // "("
	RPAREN // ")"
	COMMA  // ","
	COLON  // ":"
	PERIOD // "."
	SEMI   // ";"

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	ASSIGN // "="
	EQ     // "=="
	NEQ    // "!="
	LESS
	LESS_EQ
	GREATER
	GREATER_EQ
	AND // "&&"
	OR  // "||"
	BANG

	// Literals & identifiers
	UPPER_ID // identifier starting with an uppercase letter
	LOWER_ID // identifier starting with a lowercase letter or '_'
	STRING
	INTEGER
	NUMBER
	BOOLEAN

	// The '#a:b:c.ext' path reference, lexed as a single token.
	DIRECTIVE

	// '///' doc comment line (content in Literal).
	DOC

	// Keywords
	ON
	SPAWN
	EXTEND
	FN
	ENTITY
	SCENE
	COMPONENT
	VAR
	IF
	ELSE
	WHILE
	DRAW
	AUDIO
)

// Token is a lexical token with optional literal value.
type Token struct {
	Type    TokenType
	Lexeme  string      // raw text slice
	Literal interface{} // parsed value for literals; raw path for DIRECTIVE
	Line    int         // 1-based
	Col     int         // 0-based
}

var keywords = map[string]TokenType{
	"true":      BOOLEAN,
	"false":     BOOLEAN,
	"on":        ON,
	"spawn":     SPAWN,
	"extend":    EXTEND,
	"fn":        FN,
	"entity":    ENTITY,
	"scene":     SCENE,
	"component": COMPONENT,
	"var":       VAR,
	"if":        IF,
	"else":      ELSE,
	"while":     WHILE,
	"draw":      DRAW,
	"audio":     AUDIO,
}

// LexError is a fatal tokenization failure for one source file.
type LexError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("LEXICAL ERROR at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// Lexer scans a Gem or Pyzza source string into tokens.
type Lexer struct {
	src    string
	start  int // start index of current token
	cur    int // current index
	line   int // 1-based
	col    int // 0-based column within line
	tokens []Token

	// precise token start position
	tokStartLine int
	tokStartCol  int
}

// NewLexer creates a new lexer for the given source.
func NewLexer(src string) *Lexer {
	return &Lexer{
		src:  src,
		line: 1,
		col:  0,
	}
}

// Scan tokenizes the entire source and returns tokens (EOF included).
func (l *Lexer) Scan() ([]Token, error) {
	for {
		tok, err := l.scanToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == EOF {
			return l.tokens, nil
		}
	}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	return l.src[l.cur], true
}

func (l *Lexer) peekN(n int) (byte, bool) {
	idx := l.cur + n
	if idx >= len(l.src) {
		return 0, false
	}
	return l.src[idx], true
}

func (l *Lexer) advance() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return ch, true
}

// rewindToStart un-consumes back to the token start so a scanner can re-walk
// the whole lexeme. Position tracking rewinds with it; token starts never sit
// past a newline, so restoring the recorded start coordinates is exact.
func (l *Lexer) rewindToStart() {
	l.cur = l.start
	l.line = l.tokStartLine
	l.col = l.tokStartCol
}

func (l *Lexer) addToken(tt TokenType, lit interface{}) Token {
	lex := l.src[l.start:l.cur]
	tok := Token{
		Type:    tt,
		Lexeme:  lex,
		Literal: lit,
		Line:    l.tokStartLine,
		Col:     l.tokStartCol,
	}
	l.tokens = append(l.tokens, tok)
	l.start = l.cur
	return tok
}

func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		ch, _ := l.peek()
		switch ch {
		case ' ', '\r', '\n', '\t':
			l.advance()
			l.start = l.cur
		default:
			return
		}
	}
}

func (l *Lexer) err(msg string) error {
	return &LexError{Line: l.line, Col: l.col, Msg: msg}
}

// helpers

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }
func isAlphaNum(b byte) bool {
	return isAlpha(b) || isDigit(b)
}
func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }

// isDirectiveByte reports bytes legal inside a directive token: segment
// characters plus the ':' and '/' separators and the '.' of an extension.
func isDirectiveByte(b byte) bool {
	return isAlphaNum(b) || b == '-' || b == '.' || b == ':' || b == '/'
}

// ----- scanners -----

// scanString parses a double-quoted string literal with the usual escapes.
func (l *Lexer) scanString() (string, error) {
	// consume the opening quote
	l.advance()

	var out []byte
	for !l.isAtEnd() {
		ch, _ := l.advance()
		if ch == '"' {
			return string(out), nil
		}
		if ch == '\\' {
			if l.isAtEnd() {
				return "", l.err("unfinished escape sequence")
			}
			esc, _ := l.advance()
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '\\':
				out = append(out, '\\')
			case '"':
				out = append(out, '"')
			default:
				out = append(out, '\\', esc)
			}
			continue
		}
		out = append(out, ch)
	}
	return "", l.err("string was not terminated")
}

// scanIdentifier parses [A-Za-z_][A-Za-z0-9_]*
func (l *Lexer) scanIdentifier() string {
	for {
		b, ok := l.peek()
		if !ok || !isAlphaNum(b) {
			break
		}
		l.advance()
	}
	return l.src[l.start:l.cur]
}

// scanNumber parses an integer or float. A '.' only continues the number when
// a digit follows, so `obj.prop` after an integer never swallows the dot.
func (l *Lexer) scanNumber() (tok TokenType, lit interface{}, err error) {
	for {
		b, ok := l.peek()
		if !ok || !isDigit(b) {
			break
		}
		l.advance()
	}

	sawDot := false
	if b, ok := l.peek(); ok && b == '.' {
		if b2, ok2 := l.peekN(1); ok2 && isDigit(b2) {
			sawDot = true
			l.advance() // consume '.'
			for {
				b, ok := l.peek()
				if !ok || !isDigit(b) {
					break
				}
				l.advance()
			}
		}
	}

	lex := l.src[l.start:l.cur]
	if !sawDot {
		v, convErr := strconv.ParseInt(lex, 10, 64)
		if convErr != nil {
			return ILLEGAL, nil, l.err("invalid integer literal")
		}
		return INTEGER, v, nil
	}
	vf, convErr := strconv.ParseFloat(lex, 64)
	if convErr != nil {
		return ILLEGAL, nil, l.err("invalid float literal")
	}
	return NUMBER, vf, nil
}

// scanDirective reads the path portion after a consumed '#'. The whole
// directive is one token; Literal holds the raw path without the '#'.
func (l *Lexer) scanDirective() (string, error) {
	pathStart := l.cur
	for {
		b, ok := l.peek()
		if !ok || !isDirectiveByte(b) {
			break
		}
		l.advance()
	}
	raw := l.src[pathStart:l.cur]
	if raw == "" {
		return "", l.err("empty directive after '#'")
	}
	return raw, nil
}

// ignoreUntilNewline eats until '\n' or EOF.
func (l *Lexer) ignoreUntilNewline() {
	for {
		b, ok := l.peek()
		if !ok || b == '\n' {
			return
		}
		l.advance()
	}
}

// collectLine reads the remainder of the current line, trimming edges.
func (l *Lexer) collectLine() string {
	start := l.cur
	l.ignoreUntilNewline()
	s := l.src[start:l.cur]
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// skipBlockComment consumes a '/# ... #/' comment body. The opener is already
// consumed by the caller.
func (l *Lexer) skipBlockComment() error {
	for !l.isAtEnd() {
		b, _ := l.peek()
		if b == '#' {
			if b2, ok := l.peekN(1); ok && b2 == '/' {
				l.advance() // '#'
				l.advance() // '/'
				return nil
			}
		}
		l.advance()
	}
	return l.err("block comment was not terminated with '#/'")
}

// ----- main scanner -----

func (l *Lexer) scanToken() (Token, error) {
	for {
		l.skipWhitespace()
		l.tokStartLine = l.line
		l.tokStartCol = l.col
		l.start = l.cur

		if l.isAtEnd() {
			return l.addToken(EOF, nil), nil
		}

		ch, _ := l.advance()

		switch ch {
		case '{':
			return l.addToken(LBRACE, "{"), nil
		case '}':
			return l.addToken(RBRACE, "}"), nil
		case '(':
			return l.addToken(LPAREN, "("), nil
		case ')':
			return l.addToken(RPAREN, ")"), nil
		case ',':
			return l.addToken(COMMA, ","), nil
		case ':':
			return l.addToken(COLON, ":"), nil
		case '.':
			return l.addToken(PERIOD, "."), nil
		case ';':
			return l.addToken(SEMI, ";"), nil
		case '+':
			return l.addToken(PLUS, "+"), nil
		case '*':
			return l.addToken(STAR, "*"), nil
		case '-':
			return l.addToken(MINUS, "-"), nil
		}

		// '/': division, '//' line comment, '///' doc comment, '/#' block comment
		if ch == '/' {
			b1, ok1 := l.peek()
			if ok1 && b1 == '/' {
				if b2, ok2 := l.peekN(1); ok2 && b2 == '/' {
					l.advance() // second '/'
					l.advance() // third '/'
					text := l.collectLine()
					return l.addToken(DOC, text), nil
				}
				l.advance()
				l.ignoreUntilNewline()
				l.start = l.cur
				continue
			}
			if ok1 && b1 == '#' {
				l.advance() // '#'
				if err := l.skipBlockComment(); err != nil {
					return Token{}, err
				}
				l.start = l.cur
				continue
			}
			return l.addToken(SLASH, "/"), nil
		}

		// Two-char operators and fallbacks
		switch ch {
		case '=':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(EQ, "=="), nil
			}
			return l.addToken(ASSIGN, "="), nil
		case '!':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(NEQ, "!="), nil
			}
			return l.addToken(BANG, "!"), nil
		case '<':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(LESS_EQ, "<="), nil
			}
			return l.addToken(LESS, "<"), nil
		case '>':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(GREATER_EQ, ">="), nil
			}
			return l.addToken(GREATER, ">"), nil
		case '&':
			if b, ok := l.peek(); ok && b == '&' {
				l.advance()
				return l.addToken(AND, "&&"), nil
			}
			return Token{}, l.err("expected '&&'")
		case '|':
			if b, ok := l.peek(); ok && b == '|' {
				l.advance()
				return l.addToken(OR, "||"), nil
			}
			return Token{}, l.err("expected '||'")
		}

		// Directive: '#' followed by a path. '#' has no other meaning.
		if ch == '#' {
			raw, err := l.scanDirective()
			if err != nil {
				return Token{}, err
			}
			return l.addToken(DIRECTIVE, raw), nil
		}

		// Strings
		if ch == '"' {
			l.rewindToStart()
			text, err := l.scanString()
			if err != nil {
				return Token{}, err
			}
			return l.addToken(STRING, text), nil
		}

		// Numbers
		if isDigit(ch) {
			l.rewindToStart()
			tt, lit, err := l.scanNumber()
			if err != nil {
				return Token{}, err
			}
			return l.addToken(tt, lit), nil
		}

		// Identifiers / keywords
		if isAlpha(ch) {
			l.rewindToStart()
			lex := l.scanIdentifier()
			if tt, ok := keywords[lex]; ok {
				if tt == BOOLEAN {
					return l.addToken(BOOLEAN, lex == "true"), nil
				}
				return l.addToken(tt, lex), nil
			}
			if isUpper(lex[0]) {
				return l.addToken(UPPER_ID, lex), nil
			}
			return l.addToken(LOWER_ID, lex), nil
		}

		return Token{}, l.err(fmt.Sprintf("unexpected character: %q", ch))
	}
}
