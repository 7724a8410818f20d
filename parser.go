// parser.go — recursive-descent parser for Pyzza scripts, plus the shared
// token-walking core used by the Gem parser (gem.go) and the registry loader
// (registry.go).
//
// OVERVIEW
// --------
// A script file is either a logic file (`extend Type` header followed by
// fn/on declarations) or a program file: an ordered mix of `entity`, `scene`
// and `component` declarations, free `fn` functions and free statements.
//
// Grammar sketch:
//
//	program    := doc* [ "extend" UPPER_ID ] topItem*
//	topItem    := entityDecl | sceneDecl | componentDecl | fnDecl | onHandler | stmt
//	entityDecl := "entity" UPPER_ID "{" (varDecl | componentUse | fnDecl | onHandler)* "}"
//	sceneDecl  := "scene" UPPER_ID "{" (varDecl | onHandler | instance)* "}"
//	instance   := UPPER_ID ":" UPPER_ID "(" args ")"
//	fnDecl     := "fn" LOWER_ID "(" params ")" block
//	onHandler  := "on" ident [ "(" params ")" ] block
//	stmt       := varDecl | ifStmt | whileStmt | drawStmt | audioStmt
//	            | spawnStmt | assignment | exprStmt
//	drawStmt   := "draw" "." ident "(" args ")"        // command is a free identifier
//
// Expressions use conventional precedence: || < && < ==/!= < comparisons <
// +/- < */ / < unary < call/property postfix. `key_down("left")` is an
// ordinary call expression; it needs no grammar support of its own.
//
// Event names after `on` are accepted syntactically whatever they are; the
// assembler warns about names outside the known taxonomy.
package gem

import "fmt"

// ParsePyzzaFile parses one script file into a Program.
func ParsePyzzaFile(src string) (*Program, error) {
	lex := NewLexer(src)
	toks, err := lex.Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseProgram()
}

// ParseSnippet parses a bare statement sequence (REPL/inspector input).
func ParseSnippet(src string) ([]Stmt, error) {
	lex := NewLexer(src)
	toks, err := lex.Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	var out []Stmt
	for !p.atEnd() {
		p.collectDocs()
		if p.atEnd() {
			break
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		p.match(SEMI)
	}
	return out, nil
}

////////////////////////////////////////////////////////////////////////////////
//                           token-walking core
////////////////////////////////////////////////////////////////////////////////

type parser struct {
	toks []Token
	i    int
}

func (p *parser) atEnd() bool { return p.peek().Type == EOF }

func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}

func (p *parser) peekN(n int) Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) prev() Token { return p.toks[p.i-1] }

func (p *parser) match(tt ...TokenType) bool {
	if p.atEnd() {
		return false
	}
	for _, t := range tt {
		if p.peek().Type == t {
			p.i++
			return true
		}
	}
	return false
}

func (p *parser) need(t TokenType, msg string) (Token, error) {
	if p.match(t) {
		return p.prev(), nil
	}
	g := p.peek()
	return Token{}, &ParseError{Kind: ParseUnexpected, Line: g.Line, Col: g.Col,
		Msg: fmt.Sprintf("%s, got %q", msg, describeToken(g))}
}

func (p *parser) errUnexpected(where string) error {
	g := p.peek()
	return &ParseError{Kind: ParseUnexpected, Line: g.Line, Col: g.Col,
		Msg: fmt.Sprintf("unexpected %q %s", describeToken(g), where)}
}

// collectDocs consumes a run of '///' tokens and joins their text.
func (p *parser) collectDocs() string {
	out := ""
	for p.peek().Type == DOC {
		t := p.peek()
		p.i++
		if out == "" {
			out = t.Literal.(string)
		} else {
			out += "\n" + t.Literal.(string)
		}
	}
	return out
}

func describeToken(t Token) string {
	if t.Type == EOF {
		return "end of file"
	}
	return t.Lexeme
}

////////////////////////////////////////////////////////////////////////////////
//                           declarations
////////////////////////////////////////////////////////////////////////////////

func (p *parser) parseProgram() (*Program, error) {
	prog := &Program{}
	prog.Doc = p.collectDocs()

	if p.match(EXTEND) {
		t, err := p.need(UPPER_ID, "expected Gem type after 'extend'")
		if err != nil {
			return nil, err
		}
		prog.Extends = t.Lexeme
	}

	for !p.atEnd() {
		doc := p.collectDocs()
		if p.atEnd() {
			break
		}
		tok := p.peek()
		switch tok.Type {
		case ENTITY:
			d, err := p.parseEntityDecl()
			if err != nil {
				return nil, err
			}
			d.Doc = doc
			prog.Decls = append(prog.Decls, d)
		case SCENE:
			d, err := p.parseSceneDecl()
			if err != nil {
				return nil, err
			}
			d.Doc = doc
			prog.Decls = append(prog.Decls, d)
		case COMPONENT:
			d, err := p.parseComponentDecl()
			if err != nil {
				return nil, err
			}
			prog.Decls = append(prog.Decls, d)
		case FN:
			d, err := p.parseFuncDecl()
			if err != nil {
				return nil, err
			}
			prog.Decls = append(prog.Decls, d)
		case ON:
			d, err := p.parseEventHandler()
			if err != nil {
				return nil, err
			}
			prog.Decls = append(prog.Decls, d)
		default:
			s, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			prog.Stmts = append(prog.Stmts, s)
			p.match(SEMI)
		}
	}
	return prog, nil
}

func (p *parser) parseEntityDecl() (*EntityDecl, error) {
	p.i++ // 'entity'
	name, err := p.need(UPPER_ID, "expected entity name")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(LBRACE, "expected '{' to open entity body"); err != nil {
		return nil, err
	}
	d := &EntityDecl{Name: name.Lexeme, Line: name.Line, Col: name.Col}
	for !p.atEnd() && p.peek().Type != RBRACE {
		p.collectDocs()
		tok := p.peek()
		switch tok.Type {
		case RBRACE:
		case VAR:
			v, err := p.parseVarDecl()
			if err != nil {
				return nil, err
			}
			d.Members = append(d.Members, v)
		case COMPONENT:
			use, err := p.parseComponentUse()
			if err != nil {
				return nil, err
			}
			d.Members = append(d.Members, use)
		case FN:
			f, err := p.parseFuncDecl()
			if err != nil {
				return nil, err
			}
			d.Members = append(d.Members, f)
		case ON:
			h, err := p.parseEventHandler()
			if err != nil {
				return nil, err
			}
			d.Members = append(d.Members, h)
		default:
			return nil, p.errUnexpected("in entity body")
		}
	}
	if _, err := p.need(RBRACE, "expected '}' to close entity body"); err != nil {
		return nil, err
	}
	return d, nil
}

func (p *parser) parseSceneDecl() (*SceneDecl, error) {
	p.i++ // 'scene'
	name, err := p.need(UPPER_ID, "expected scene name")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(LBRACE, "expected '{' to open scene body"); err != nil {
		return nil, err
	}
	d := &SceneDecl{Name: name.Lexeme, Line: name.Line, Col: name.Col}
	for !p.atEnd() && p.peek().Type != RBRACE {
		p.collectDocs()
		tok := p.peek()
		switch tok.Type {
		case RBRACE:
		case VAR:
			v, err := p.parseVarDecl()
			if err != nil {
				return nil, err
			}
			d.Items = append(d.Items, v)
		case ON:
			h, err := p.parseEventHandler()
			if err != nil {
				return nil, err
			}
			d.Items = append(d.Items, h)
		case UPPER_ID:
			inst, err := p.parseEntityInstance()
			if err != nil {
				return nil, err
			}
			d.Items = append(d.Items, inst)
		default:
			return nil, p.errUnexpected("in scene body")
		}
	}
	if _, err := p.need(RBRACE, "expected '}' to close scene body"); err != nil {
		return nil, err
	}
	return d, nil
}

// parseEntityInstance parses `Hero: Player(args)` inside a scene block.
func (p *parser) parseEntityInstance() (*EntityInstance, error) {
	name, err := p.need(UPPER_ID, "expected instance name")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(COLON, "expected ':' after instance name"); err != nil {
		return nil, err
	}
	typ, err := p.need(UPPER_ID, "expected entity type")
	if err != nil {
		return nil, err
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	return &EntityInstance{Name: name.Lexeme, Type: typ.Lexeme, Args: args,
		Line: name.Line, Col: name.Col}, nil
}

// parseComponentDecl parses the top-level form `component Health(max, regen)`.
func (p *parser) parseComponentDecl() (*ComponentDecl, error) {
	p.i++ // 'component'
	name, err := p.need(UPPER_ID, "expected component name")
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	return &ComponentDecl{Name: name.Lexeme, Params: params, Line: name.Line, Col: name.Col}, nil
}

// parseComponentUse parses the in-entity form `component Health(100, 5)`.
func (p *parser) parseComponentUse() (*ComponentUse, error) {
	p.i++ // 'component'
	name, err := p.need(UPPER_ID, "expected component name")
	if err != nil {
		return nil, err
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	return &ComponentUse{Name: name.Lexeme, Args: args, Line: name.Line, Col: name.Col}, nil
}

func (p *parser) parseFuncDecl() (*FuncDecl, error) {
	p.i++ // 'fn'
	name, err := p.need(LOWER_ID, "expected function name")
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FuncDecl{Name: name.Lexeme, Params: params, Body: body,
		Line: name.Line, Col: name.Col}, nil
}

func (p *parser) parseEventHandler() (*EventHandler, error) {
	p.i++ // 'on'
	name := p.peek()
	if name.Type != LOWER_ID && name.Type != UPPER_ID {
		return nil, p.errUnexpected("after 'on' (expected event name)")
	}
	p.i++
	var params []string
	if p.peek().Type == LPAREN {
		var err error
		params, err = p.parseParamList()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &EventHandler{Event: name.Lexeme, Params: params, Body: body,
		Line: name.Line, Col: name.Col}, nil
}

func (p *parser) parseParamList() ([]string, error) {
	if _, err := p.need(LPAREN, "expected '('"); err != nil {
		return nil, err
	}
	var params []string
	for p.peek().Type != RPAREN {
		t, err := p.need(LOWER_ID, "expected parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, t.Lexeme)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(RPAREN, "expected ')' to close parameter list"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *parser) parseArgList() ([]Expr, error) {
	if _, err := p.need(LPAREN, "expected '('"); err != nil {
		return nil, err
	}
	var args []Expr
	for p.peek().Type != RPAREN {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(RPAREN, "expected ')' to close argument list"); err != nil {
		return nil, err
	}
	return args, nil
}

////////////////////////////////////////////////////////////////////////////////
//                           statements
////////////////////////////////////////////////////////////////////////////////

func (p *parser) parseBlock() (*Block, error) {
	if _, err := p.need(LBRACE, "expected '{'"); err != nil {
		return nil, err
	}
	b := &Block{}
	for !p.atEnd() && p.peek().Type != RBRACE {
		p.collectDocs()
		if p.peek().Type == RBRACE {
			break
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
		p.match(SEMI)
	}
	if _, err := p.need(RBRACE, "expected '}' to close block"); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *parser) parseStatement() (Stmt, error) {
	switch p.peek().Type {
	case VAR:
		return p.parseVarDecl()
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case DRAW:
		return p.parseSinkStmt(true)
	case AUDIO:
		return p.parseSinkStmt(false)
	case SPAWN:
		return p.parseSpawn()
	case LBRACE:
		return p.parseBlock()
	}

	// assignment or expression statement
	tok := p.peek()
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.match(ASSIGN) {
		switch x.(type) {
		case *IdentExpr, *PropertyExpr:
		default:
			return nil, &ParseError{Kind: ParseUnexpected, Line: tok.Line, Col: tok.Col,
				Msg: "invalid assignment target"}
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Target: x, Value: v, Line: tok.Line, Col: tok.Col}, nil
	}
	return &ExprStmt{X: x}, nil
}

func (p *parser) parseVarDecl() (*VarDecl, error) {
	p.i++ // 'var'
	name, err := p.need(LOWER_ID, "expected variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(ASSIGN, "expected '=' in var declaration"); err != nil {
		return nil, err
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &VarDecl{Name: name.Lexeme, Value: v, Line: name.Line, Col: name.Col}, nil
}

func (p *parser) parseIf() (Stmt, error) {
	p.i++ // 'if'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	st := &IfStmt{Cond: cond, Then: then}
	if p.match(ELSE) {
		if p.peek().Type == IF {
			chained, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			st.Else = &Block{Stmts: []Stmt{chained}}
		} else {
			els, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			st.Else = els
		}
	}
	return st, nil
}

func (p *parser) parseWhile() (Stmt, error) {
	p.i++ // 'while'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body}, nil
}

// parseSinkStmt parses `draw.cmd(args)` / `audio.cmd(args)`. The command
// after the dot is a free identifier, never validated here.
func (p *parser) parseSinkStmt(isDraw bool) (Stmt, error) {
	kw := p.peek()
	p.i++ // 'draw' / 'audio'
	if _, err := p.need(PERIOD, "expected '.' after "+kw.Lexeme); err != nil {
		return nil, err
	}
	cmd := p.peek()
	if cmd.Type != LOWER_ID && cmd.Type != UPPER_ID {
		return nil, p.errUnexpected("after '" + kw.Lexeme + ".' (expected command name)")
	}
	p.i++
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if isDraw {
		return &DrawStmt{Command: cmd.Lexeme, Args: args, Line: kw.Line, Col: kw.Col}, nil
	}
	return &AudioStmt{Command: cmd.Lexeme, Args: args, Line: kw.Line, Col: kw.Col}, nil
}

func (p *parser) parseSpawn() (Stmt, error) {
	kw := p.peek()
	p.i++ // 'spawn'
	typ, err := p.need(UPPER_ID, "expected Gem type after 'spawn'")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(LBRACE, "expected '{' after spawn type"); err != nil {
		return nil, err
	}
	st := &SpawnStmt{Type: typ.Lexeme, Line: kw.Line, Col: kw.Col}
	for !p.atEnd() && p.peek().Type != RBRACE {
		key, err := p.need(LOWER_ID, "expected property key in spawn block")
		if err != nil {
			return nil, err
		}
		if _, err := p.need(COLON, "expected ':' after spawn property key"); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		st.Props = append(st.Props, SpawnProp{Key: key.Lexeme, Value: v})
		p.match(COMMA)
	}
	if _, err := p.need(RBRACE, "expected '}' to close spawn block"); err != nil {
		return nil, err
	}
	return st, nil
}

////////////////////////////////////////////////////////////////////////////////
//                           expressions
////////////////////////////////////////////////////////////////////////////////

func (p *parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == OR {
		op := p.peek()
		p.i++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "||", L: left, R: right, Line: op.Line, Col: op.Col}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == AND {
		op := p.peek()
		p.i++
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "&&", L: left, R: right, Line: op.Line, Col: op.Col}
	}
	return left, nil
}

func (p *parser) parseEquality() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == EQ || p.peek().Type == NEQ {
		op := p.peek()
		p.i++
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Lexeme, L: left, R: right, Line: op.Line, Col: op.Col}
	}
	return left, nil
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek().Type
		if t != LESS && t != LESS_EQ && t != GREATER && t != GREATER_EQ {
			break
		}
		op := p.peek()
		p.i++
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Lexeme, L: left, R: right, Line: op.Line, Col: op.Col}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == PLUS || p.peek().Type == MINUS {
		op := p.peek()
		p.i++
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Lexeme, L: left, R: right, Line: op.Line, Col: op.Col}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == STAR || p.peek().Type == SLASH {
		op := p.peek()
		p.i++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Lexeme, L: left, R: right, Line: op.Line, Col: op.Col}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.peek()
	if t.Type == BANG || t.Type == MINUS {
		p.i++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: t.Lexeme, X: x, Line: t.Line, Col: t.Col}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary followed by call and property-access chains:
// foo(1).bar.baz(2)
func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		if p.peek().Type == PERIOD {
			dot := p.peek()
			p.i++
			name := p.peek()
			if name.Type != LOWER_ID && name.Type != UPPER_ID {
				return nil, p.errUnexpected("after '.' (expected property name)")
			}
			p.i++
			x = &PropertyExpr{X: x, Name: name.Lexeme, Line: dot.Line, Col: dot.Col}
			continue
		}
		break
	}
	return x, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.i++
		return &IntLit{Val: tok.Literal.(int64), Line: tok.Line, Col: tok.Col}, nil
	case NUMBER:
		p.i++
		return &NumLit{Val: tok.Literal.(float64), Line: tok.Line, Col: tok.Col}, nil
	case STRING:
		p.i++
		return &StrLit{Val: tok.Literal.(string), Line: tok.Line, Col: tok.Col}, nil
	case BOOLEAN:
		p.i++
		return &BoolLit{Val: tok.Literal.(bool), Line: tok.Line, Col: tok.Col}, nil
	case DIRECTIVE:
		p.i++
		id, err := ResolveDirective(tok.Literal.(string))
		if err != nil {
			return nil, err
		}
		return &DirectiveLit{Ref: id, Line: tok.Line, Col: tok.Col}, nil
	case LPAREN:
		// `(e)` is grouping; `(a, b, ...)` and `()` are tuples.
		p.i++
		if p.peek().Type == RPAREN {
			p.i++
			return &TupleLit{Line: tok.Line, Col: tok.Col}, nil
		}
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().Type == RPAREN {
			p.i++
			return first, nil
		}
		elems := []Expr{first}
		for p.match(COMMA) {
			if p.peek().Type == RPAREN {
				break
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		if _, err := p.need(RPAREN, "expected ')' to close tuple"); err != nil {
			return nil, err
		}
		return &TupleLit{Elems: elems, Line: tok.Line, Col: tok.Col}, nil
	case LOWER_ID, UPPER_ID:
		p.i++
		if p.peek().Type == LPAREN {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			return &CallExpr{Name: tok.Lexeme, Args: args, Line: tok.Line, Col: tok.Col}, nil
		}
		return &IdentExpr{Name: tok.Lexeme, Line: tok.Line, Col: tok.Col}, nil
	}
	return nil, p.errUnexpected("in expression")
}
