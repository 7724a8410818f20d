// registry.go — loader for the project scene registry (`scenes.registry`).
//
// The registry is a single `Scenes { ... }` block mapping scene names to
// scene-file directives, plus a required default designation:
//
//	Scenes {
//	    default: main_menu
//	    main_menu: #example:main_menu
//	    game: #example:game_scene
//	}
//
// `entry:` is accepted as a legacy spelling of `default:`. Every non-default
// value must be a directive; a bare identifier there is rejected.
package gem

import "fmt"

// RegistryErrKind discriminates registry failures.
type RegistryErrKind int

const (
	RegistryDuplicateName RegistryErrKind = iota
	RegistryMissingDefault
	RegistryDefaultNotFound
	RegistryInvalidEntry
)

// RegistryError is a malformed or inconsistent scene registry. It is fatal to
// the project's assembly, never to the engine process.
type RegistryError struct {
	Kind RegistryErrKind
	Name string
	Line int
	Col  int
}

func (e *RegistryError) Error() string {
	switch e.Kind {
	case RegistryDuplicateName:
		return fmt.Sprintf("registry: duplicate scene name %q", e.Name)
	case RegistryMissingDefault:
		return "registry: no 'default' entry"
	case RegistryDefaultNotFound:
		return fmt.Sprintf("registry: default scene %q has no entry", e.Name)
	default:
		return fmt.Sprintf("registry: scene %q must map to a '#...' directive", e.Name)
	}
}

// Registry is the parsed scene registry: unique name → resource mapping plus
// the default scene name, which is guaranteed to resolve.
type Registry struct {
	Default string
	scenes  map[string]ResourceID
	order   []string
}

// Lookup returns the resource for a scene name.
func (r *Registry) Lookup(name string) (ResourceID, bool) {
	id, ok := r.scenes[name]
	return id, ok
}

// Names lists scene names in declaration order.
func (r *Registry) Names() []string {
	return append([]string{}, r.order...)
}

// LoadRegistry parses registry source text.
func LoadRegistry(src string) (*Registry, error) {
	lex := NewLexer(src)
	toks, err := lex.Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	p.collectDocs()

	head, err := p.need(UPPER_ID, "expected 'Scenes' block")
	if err != nil {
		return nil, err
	}
	if head.Lexeme != "Scenes" {
		return nil, &ParseError{Kind: ParseUnexpected, Line: head.Line, Col: head.Col,
			Msg: fmt.Sprintf("expected 'Scenes' block, got %q", head.Lexeme)}
	}
	if _, err := p.need(LBRACE, "expected '{' after Scenes"); err != nil {
		return nil, err
	}

	reg := &Registry{scenes: map[string]ResourceID{}}
	sawDefault := false

	for !p.atEnd() && p.peek().Type != RBRACE {
		p.collectDocs()
		if p.peek().Type == RBRACE {
			break
		}
		key, err := p.need(LOWER_ID, "expected scene name")
		if err != nil {
			return nil, err
		}
		if _, err := p.need(COLON, "expected ':' after scene name"); err != nil {
			return nil, err
		}

		if key.Lexeme == "default" || key.Lexeme == "entry" {
			if sawDefault {
				return nil, &RegistryError{Kind: RegistryDuplicateName, Name: key.Lexeme,
					Line: key.Line, Col: key.Col}
			}
			name, err := p.need(LOWER_ID, "expected default scene name")
			if err != nil {
				return nil, err
			}
			reg.Default = name.Lexeme
			sawDefault = true
		} else {
			val := p.peek()
			if val.Type != DIRECTIVE {
				return nil, &RegistryError{Kind: RegistryInvalidEntry, Name: key.Lexeme,
					Line: val.Line, Col: val.Col}
			}
			p.i++
			id, err := ResolveDirective(val.Literal.(string))
			if err != nil {
				return nil, err
			}
			if _, dup := reg.scenes[key.Lexeme]; dup {
				return nil, &RegistryError{Kind: RegistryDuplicateName, Name: key.Lexeme,
					Line: key.Line, Col: key.Col}
			}
			reg.scenes[key.Lexeme] = id
			reg.order = append(reg.order, key.Lexeme)
		}
		p.match(COMMA)
	}
	if _, err := p.need(RBRACE, "expected '}' to close Scenes block"); err != nil {
		return nil, err
	}

	if !sawDefault {
		return nil, &RegistryError{Kind: RegistryMissingDefault}
	}
	if _, ok := reg.scenes[reg.Default]; !ok {
		return nil, &RegistryError{Kind: RegistryDefaultNotFound, Name: reg.Default}
	}
	return reg, nil
}
