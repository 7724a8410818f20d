// lexer_test.go
package gem

import (
	"reflect"
	"strings"
	"testing"
)

func toks(t *testing.T, src string) []Token {
	t.Helper()
	l := NewLexer(src)
	ts, err := l.Scan()
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	return ts
}

func typesWithoutEOF(tokens []Token) []TokenType {
	if len(tokens) == 0 {
		return nil
	}
	end := len(tokens)
	if tokens[end-1].Type == EOF {
		end--
	}
	out := make([]TokenType, 0, end)
	for i := 0; i < end; i++ {
		out = append(out, tokens[i].Type)
	}
	return out
}

func wantTypes(t *testing.T, src string, want []TokenType) []Token {
	t.Helper()
	got := toks(t, src)
	gotTypes := typesWithoutEOF(got)
	if !reflect.DeepEqual(gotTypes, want) {
		t.Fatalf("\nsource:\n%s\nwant types:\n%v\ngot types:\n%v\n", src, want, gotTypes)
	}
	return got
}

func Test_Lexer_Gem_Declaration(t *testing.T) {
	src := `
Main: Gem {
    position: (100, 200)
    link: #example:start_button_logic
}
`
	want := []TokenType{
		UPPER_ID, COLON, UPPER_ID, LBRACE,
		LOWER_ID, COLON, LPAREN, INTEGER, COMMA, INTEGER, RPAREN,
		LOWER_ID, COLON, DIRECTIVE,
		RBRACE,
	}
	wantTypes(t, src, want)
}

func Test_Lexer_Directive_IsOneToken(t *testing.T) {
	got := toks(t, "#assets:ui:button.png")
	if len(got) != 2 || got[0].Type != DIRECTIVE {
		t.Fatalf("want single DIRECTIVE token, got %v", got)
	}
	if raw := got[0].Literal.(string); raw != "assets:ui:button.png" {
		t.Fatalf("raw path = %q", raw)
	}
}

func Test_Lexer_Comments_Line_Block_Doc(t *testing.T) {
	src := `
// line comment
/# block
   comment #/
/// doc text
var x = 1
`
	got := wantTypes(t, src, []TokenType{DOC, VAR, LOWER_ID, ASSIGN, INTEGER})
	if doc := got[0].Literal.(string); !strings.Contains(doc, "doc text") {
		t.Fatalf("doc literal = %q", doc)
	}
}

func Test_Lexer_Keywords_Vs_Identifiers(t *testing.T) {
	src := `entity scene component fn on var if else while draw audio spawn extend entities drawn`
	want := []TokenType{
		ENTITY, SCENE, COMPONENT, FN, ON, VAR, IF, ELSE, WHILE, DRAW, AUDIO,
		SPAWN, EXTEND, LOWER_ID, LOWER_ID,
	}
	wantTypes(t, src, want)
}

func Test_Lexer_Numbers_IntVsNum(t *testing.T) {
	got := wantTypes(t, "3 3.5 0.25 10.0", []TokenType{INTEGER, NUMBER, NUMBER, NUMBER})
	if got[0].Literal.(int64) != 3 {
		t.Fatalf("int literal = %v", got[0].Literal)
	}
	if got[1].Literal.(float64) != 3.5 {
		t.Fatalf("num literal = %v", got[1].Literal)
	}
}

func Test_Lexer_Number_TrailingPeriod_IsPropertyAccess(t *testing.T) {
	wantTypes(t, "pos.x", []TokenType{LOWER_ID, PERIOD, LOWER_ID})
	wantTypes(t, "1.x", []TokenType{INTEGER, PERIOD, LOWER_ID})
}

func Test_Lexer_String_Escapes(t *testing.T) {
	got := wantTypes(t, `"a\nb\t\"c\""`, []TokenType{STRING})
	if got[0].Literal.(string) != "a\nb\t\"c\"" {
		t.Fatalf("string literal = %q", got[0].Literal)
	}
}

func Test_Lexer_String_Unterminated_Fails(t *testing.T) {
	l := NewLexer(`"never closed`)
	_, err := l.Scan()
	le, ok := err.(*LexError)
	if !ok {
		t.Fatalf("want *LexError, got %v", err)
	}
	if le.Line != 1 {
		t.Fatalf("LexError line = %d", le.Line)
	}
}

func Test_Lexer_Operators(t *testing.T) {
	src := `a == b != c <= d >= e < f > g && h || !i + - * / =`
	want := []TokenType{
		LOWER_ID, EQ, LOWER_ID, NEQ, LOWER_ID, LESS_EQ, LOWER_ID, GREATER_EQ,
		LOWER_ID, LESS, LOWER_ID, GREATER, LOWER_ID, AND, LOWER_ID, OR,
		BANG, LOWER_ID, PLUS, MINUS, STAR, SLASH, ASSIGN,
	}
	wantTypes(t, src, want)
}

func Test_Lexer_Positions_Are_Tracked(t *testing.T) {
	got := toks(t, "var x = 1\nvar y = 2\n")
	var second Token
	for _, tok := range got {
		if tok.Lexeme == "y" {
			second = tok
		}
	}
	if second.Line != 2 || second.Col != 4 {
		t.Fatalf("y at %d:%d, want 2:4", second.Line, second.Col)
	}
}

func Test_Lexer_Inline_And_Multiline_Bodies_Tokenize_Alike(t *testing.T) {
	inline := `Main: Gem { title: "hi" }`
	multi := "Main: Gem {\n    title: \"hi\"\n}"
	if !reflect.DeepEqual(typesWithoutEOF(toks(t, inline)), typesWithoutEOF(toks(t, multi))) {
		t.Fatalf("inline and multi-line forms tokenize differently")
	}
}
