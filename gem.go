// gem.go — the Gem scene tree and its parser.
//
// A .gem file declares exactly one root Gem. Inside a block, each entry is
// classified by the case of its leading identifier:
//
//	Name: Type { ... }     uppercase leading  → nested child Gem
//	key: value             lowercase leading  → property assignment
//	link: #dir             the single optional script/scene attachment
//
// A bare directive standing alone in a block is rejected; external references
// always hang off a key, and the only key that owns the Gem's attachment edge
// is `link`. Inline one-line bodies and multi-line bodies tokenize the same
// way, so both forms parse to identical trees.
package gem

import "fmt"

// GemNode is one node of a parsed scene tree. The tree is owned strictly
// top-down: every node except the root has exactly one parent, and the parse
// model keeps no back-references (the runtime maintains its own parent links
// on GemInstance).
type GemNode struct {
	Name     string // uppercase-leading declaration name
	Type     string // declared Gem type
	Props    []Property
	Link     *ResourceID // at most one script/scene attachment
	Children []*GemNode
	Doc      string // nearest preceding '///' run, if any

	Line, Col int
}

// Property is one `key: value` entry, in declaration order.
type Property struct {
	Key   string
	Value Value
}

// Prop returns the value for key and whether it is present.
func (n *GemNode) Prop(key string) (Value, bool) {
	for _, p := range n.Props {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Null, false
}

// ParseErrKind discriminates structural grammar violations.
type ParseErrKind int

const (
	ParseUnexpected ParseErrKind = iota
	ParseMultipleRoots
	ParseMissingRoot
	ParseDuplicateLink
	ParseUnexpectedDirective
	ParseInvalidValue
)

// ParseError is a fatal grammar violation in one source file.
type ParseError struct {
	Kind ParseErrKind
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("PARSE ERROR at %d:%d: %s", e.Line, e.Col+1, e.Msg)
}

// ParseGemFile parses one scene file into its root GemNode.
func ParseGemFile(src string) (*GemNode, error) {
	lex := NewLexer(src)
	toks, err := lex.Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}

	doc := p.collectDocs()
	if p.atEnd() {
		return nil, &ParseError{Kind: ParseMissingRoot, Line: 1, Col: 0,
			Msg: "scene file declares no root Gem"}
	}

	root, err := p.parseGemNode()
	if err != nil {
		return nil, err
	}
	root.Doc = doc

	p.collectDocs()
	if !p.atEnd() {
		g := p.peek()
		if g.Type == UPPER_ID {
			return nil, &ParseError{Kind: ParseMultipleRoots, Line: g.Line, Col: g.Col,
				Msg: fmt.Sprintf("second top-level Gem %q; a scene file has exactly one root", g.Lexeme)}
		}
		return nil, p.errUnexpected("after root Gem")
	}
	return root, nil
}

// parseGemNode parses `Name: Type { entries }`. The caller has already
// checked that the next token is UPPER_ID.
func (p *parser) parseGemNode() (*GemNode, error) {
	name, err := p.need(UPPER_ID, "expected Gem name (uppercase identifier)")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(COLON, "expected ':' after Gem name"); err != nil {
		return nil, err
	}
	typ, err := p.need(UPPER_ID, "expected Gem type")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(LBRACE, "expected '{' to open Gem body"); err != nil {
		return nil, err
	}

	node := &GemNode{
		Name: name.Lexeme,
		Type: typ.Lexeme,
		Line: name.Line,
		Col:  name.Col,
	}

	for !p.atEnd() && p.peek().Type != RBRACE {
		doc := p.collectDocs()
		tok := p.peek()

		switch tok.Type {
		case RBRACE:
			// trailing docs before the close; drop them
		case UPPER_ID:
			child, err := p.parseGemNode()
			if err != nil {
				return nil, err
			}
			child.Doc = doc
			node.Children = append(node.Children, child)
		case LOWER_ID:
			if err := p.parseGemEntry(node); err != nil {
				return nil, err
			}
		case DIRECTIVE:
			return nil, &ParseError{Kind: ParseUnexpectedDirective, Line: tok.Line, Col: tok.Col,
				Msg: fmt.Sprintf("bare directive %s in Gem body; attach it with 'link:' or a property key", tok.Lexeme)}
		default:
			return nil, p.errUnexpected("in Gem body")
		}
	}

	if _, err := p.need(RBRACE, "expected '}' to close Gem body"); err != nil {
		return nil, err
	}
	return node, nil
}

// parseGemEntry parses one `key: value` property, routing `link:` to the
// node's single attachment edge.
func (p *parser) parseGemEntry(node *GemNode) error {
	key, err := p.need(LOWER_ID, "expected property key")
	if err != nil {
		return err
	}
	if _, err := p.need(COLON, "expected ':' after property key"); err != nil {
		return err
	}

	if key.Lexeme == "link" {
		tok := p.peek()
		if tok.Type != DIRECTIVE {
			return &ParseError{Kind: ParseInvalidValue, Line: tok.Line, Col: tok.Col,
				Msg: "link value must be a '#...' directive"}
		}
		if node.Link != nil {
			return &ParseError{Kind: ParseDuplicateLink, Line: tok.Line, Col: tok.Col,
				Msg: fmt.Sprintf("Gem %q already has a link; at most one per Gem", node.Name)}
		}
		p.i++
		id, err := ResolveDirective(tok.Literal.(string))
		if err != nil {
			return err
		}
		node.Link = &id
		return nil
	}

	val, err := p.parsePropValue()
	if err != nil {
		return err
	}
	node.Props = append(node.Props, Property{Key: key.Lexeme, Value: val})
	return nil
}

// parsePropValue parses the small literal/tuple/directive/nested-call value
// grammar of Gem properties.
func (p *parser) parsePropValue() (Value, error) {
	tok := p.peek()
	switch tok.Type {
	case STRING:
		p.i++
		return Str(tok.Literal.(string)), nil
	case INTEGER:
		p.i++
		return Int(tok.Literal.(int64)), nil
	case NUMBER:
		p.i++
		return Num(tok.Literal.(float64)), nil
	case BOOLEAN:
		p.i++
		return Bool(tok.Literal.(bool)), nil
	case MINUS:
		// negative numeric literal
		p.i++
		num := p.peek()
		switch num.Type {
		case INTEGER:
			p.i++
			return Int(-num.Literal.(int64)), nil
		case NUMBER:
			p.i++
			return Num(-num.Literal.(float64)), nil
		}
		return Null, &ParseError{Kind: ParseInvalidValue, Line: num.Line, Col: num.Col,
			Msg: "expected number after '-'"}
	case DIRECTIVE:
		p.i++
		id, err := ResolveDirective(tok.Literal.(string))
		if err != nil {
			return Null, err
		}
		return Ref(id), nil
	case LPAREN:
		return p.parseTupleValue()
	case LOWER_ID:
		// path("...") escape form, nested call, or bare identifier
		p.i++
		if p.peek().Type == LPAREN {
			if tok.Lexeme == "path" {
				return p.parsePathLiteral()
			}
			return p.parseCallValue(tok.Lexeme)
		}
		return IdentVal(tok.Lexeme), nil
	case UPPER_ID:
		p.i++
		return IdentVal(tok.Lexeme), nil
	}
	return Null, &ParseError{Kind: ParseInvalidValue, Line: tok.Line, Col: tok.Col,
		Msg: fmt.Sprintf("unrecognized property value starting at %q", tok.Lexeme)}
}

func (p *parser) parseTupleValue() (Value, error) {
	if _, err := p.need(LPAREN, "expected '('"); err != nil {
		return Null, err
	}
	var elems []Value
	for p.peek().Type != RPAREN {
		e, err := p.parsePropValue()
		if err != nil {
			return Null, err
		}
		elems = append(elems, e)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(RPAREN, "expected ')' to close tuple"); err != nil {
		return Null, err
	}
	return Tuple(elems), nil
}

func (p *parser) parseCallValue(name string) (Value, error) {
	if _, err := p.need(LPAREN, "expected '('"); err != nil {
		return Null, err
	}
	var args []Value
	for p.peek().Type != RPAREN {
		a, err := p.parsePropValue()
		if err != nil {
			return Null, err
		}
		args = append(args, a)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(RPAREN, "expected ')' to close call"); err != nil {
		return Null, err
	}
	return CallVal(name, args), nil
}

// parsePathLiteral parses the path("...") escape form for paths whose
// characters are illegal in bare directive segments.
func (p *parser) parsePathLiteral() (Value, error) {
	if _, err := p.need(LPAREN, "expected '(' after path"); err != nil {
		return Null, err
	}
	str, err := p.need(STRING, "path(...) takes a string literal")
	if err != nil {
		return Null, err
	}
	if _, err := p.need(RPAREN, "expected ')' to close path(...)"); err != nil {
		return Null, err
	}
	return PathVal(str.Literal.(string)), nil
}
