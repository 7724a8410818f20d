// assembler.go — turns a registry entry into a RuntimeScene.
//
// Assembly loads the scene's Gem file, recursively resolves every link:
// directive (scripts bind handlers, nested .gem files graft their subtree as a
// child), validates Gem types against the builtins plus all entity
// declarations seen so far, and instantiates the runtime tree. A resolution
// chain that revisits a ResourceID already on the current stack is a cycle.
package gem

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Gem types always available without a declaration.
var builtinTypes = map[string]bool{
	"Gem":       true,
	"LabelGem":  true,
	"ButtonGem": true,
	"Sprite":    true,
}

type AssemblyErrKind int

const (
	AssemblyResourceNotFound AssemblyErrKind = iota
	AssemblyCyclicLink
	AssemblyTypeUnknown
	AssemblyScriptMismatch
)

// AssemblyError is fatal to the activation of one scene. The engine survives
// it with no active scene.
type AssemblyError struct {
	Kind AssemblyErrKind
	ID   ResourceID // resource being resolved when the failure occurred
	Msg  string
}

func (e *AssemblyError) Error() string {
	return "ASSEMBLY ERROR: " + e.Msg
}

// WarnKind discriminates non-fatal findings.
type WarnKind int

const (
	WarnUnknownEvent WarnKind = iota
	WarnRuntime
)

// Warning is a non-fatal finding surfaced to the engine's caller: an unknown
// event name at assembly time, or an isolated script failure at runtime.
type Warning struct {
	Kind WarnKind
	Msg  string
}

func (w Warning) String() string { return w.Msg }

// Events with engine-delivered semantics. Anything else is accepted but
// flagged, the taxonomy is open.
var knownEvents = map[string]bool{
	"ready":   true,
	"update":  true,
	"destroy": true,
}

// boundScript is a Pyzza program attached to one Gem instance via link:.
type boundScript struct {
	id       ResourceID
	source   string
	prog     *Program
	handlers map[string]*handlerBinding
	funcs    map[string]*FuncDecl
	inits    []Stmt // var decls and free statements, in declaration order
	comps    []*ComponentUse
}

type handlerBinding struct {
	Params []string
	Body   *Block
	Line   int
	Col    int
}

// Assembler resolves one scene at a time. It is not safe for concurrent use;
// the engine owns one and calls it between frames only.
type Assembler struct {
	loader Loader
	stack  []string // resolution chain, ResourceID keys
}

func NewAssembler(loader Loader) *Assembler {
	return &Assembler{loader: loader}
}

// Assemble builds the RuntimeScene behind a registry entry. The returned
// scene is in the Loading state; the engine drives it from there. Warnings
// accompany a successful assembly; on error the scene is nil.
func (a *Assembler) Assemble(name string, id ResourceID) (*RuntimeScene, []Warning, error) {
	a.stack = a.stack[:0]
	scene := &RuntimeScene{
		ID:         uuid.New().String(),
		Name:       name,
		state:      StateLoading,
		types:      map[string]*EntityDecl{},
		components: map[string]*ComponentDecl{},
		Sources:    map[string]string{},
	}
	var warns []Warning

	root, err := a.loadTree(scene, id, &warns)
	if err != nil {
		return nil, nil, err
	}

	if err := checkTypes(scene, root); err != nil {
		return nil, nil, err
	}
	if err := checkSceneInstances(scene); err != nil {
		return nil, nil, err
	}
	if err := checkComponentUses(scene); err != nil {
		return nil, nil, err
	}

	scene.Root = a.instantiate(scene, root, nil)
	return scene, warns, nil
}

// loadTree loads and parses one .gem resource, resolves its links, and
// returns the annotated parse tree. Scripts bind onto their node; nested .gem
// links load recursively and graft as a trailing child.
func (a *Assembler) loadTree(scene *RuntimeScene, id ResourceID, warns *[]Warning) (*GemNode, error) {
	if i := a.findOnStack(id); i >= 0 {
		chain := make([]string, 0, len(a.stack)-i+1)
		chain = append(chain, a.stack[i:]...)
		chain = append(chain, id.key())
		return nil, &AssemblyError{Kind: AssemblyCyclicLink, ID: id,
			Msg: "link cycle detected: " + strings.Join(chain, " -> ")}
	}
	a.stack = append(a.stack, id.key())
	defer func() { a.stack = a.stack[:len(a.stack)-1] }()

	src, err := a.loadText(id)
	if err != nil {
		return nil, err
	}
	scene.Sources[id.Path()] = src

	root, err := ParseGemFile(src)
	if err != nil {
		return nil, err
	}

	if err := a.resolveLinks(scene, root, warns); err != nil {
		return nil, err
	}
	return root, nil
}

// resolveLinks walks a parsed subtree and resolves every link: attachment.
func (a *Assembler) resolveLinks(scene *RuntimeScene, n *GemNode, warns *[]Warning) error {
	if n.Link != nil {
		if n.Link.IsScript() {
			bs, err := a.loadScript(scene, *n.Link, n, warns)
			if err != nil {
				return err
			}
			scene.bindings = append(scene.bindings, sceneBinding{node: n, script: bs})
		} else {
			sub, err := a.loadTree(scene, *n.Link, warns)
			if err != nil {
				return err
			}
			n.Children = append(n.Children, sub)
		}
	}
	for _, c := range n.Children {
		if err := a.resolveLinks(scene, c, warns); err != nil {
			return err
		}
	}
	return nil
}

// loadScript loads and parses one Pyzza resource and binds it for node.
func (a *Assembler) loadScript(scene *RuntimeScene, id ResourceID, node *GemNode, warns *[]Warning) (*boundScript, error) {
	src, err := a.loadText(id)
	if err != nil {
		return nil, err
	}
	scene.Sources[id.Path()] = src

	prog, err := ParsePyzzaFile(src)
	if err != nil {
		return nil, err
	}

	if prog.Extends != "" && prog.Extends != node.Type {
		return nil, &AssemblyError{Kind: AssemblyScriptMismatch, ID: id,
			Msg: fmt.Sprintf("%s extends %s but is linked from a %s Gem", id.Path(), prog.Extends, node.Type)}
	}

	for name, ent := range prog.Entities() {
		scene.types[name] = ent
	}
	for name, comp := range prog.Components() {
		scene.components[name] = comp
	}

	bs := &boundScript{
		id:       id,
		source:   src,
		prog:     prog,
		handlers: map[string]*handlerBinding{},
		funcs:    map[string]*FuncDecl{},
	}
	bindDecls(bs, prog.Decls, warns)
	if ent, ok := prog.Entities()[node.Type]; ok {
		bindDecls(bs, ent.Members, warns)
	}
	for _, s := range prog.Stmts {
		bs.inits = append(bs.inits, s)
	}
	return bs, nil
}

// bindDecls folds a declaration list into a binding. Functions named on_*
// and `on name(...)` handlers both register under the bare event name.
func bindDecls(bs *boundScript, decls []Decl, warns *[]Warning) {
	for _, d := range decls {
		switch d := d.(type) {
		case *FuncDecl:
			if ev, ok := strings.CutPrefix(d.Name, "on_"); ok {
				registerHandler(bs, ev, &handlerBinding{Params: d.Params, Body: d.Body, Line: d.Line, Col: d.Col}, warns)
			} else {
				bs.funcs[d.Name] = d
			}
		case *EventHandler:
			registerHandler(bs, d.Event, &handlerBinding{Params: d.Params, Body: d.Body, Line: d.Line, Col: d.Col}, warns)
		case *VarDecl:
			bs.inits = append(bs.inits, d)
		case *ComponentUse:
			bs.comps = append(bs.comps, d)
		case *SceneDecl:
			// scene-block handlers fire on the instance that linked the
			// script; vars and placements are handled at ready time
			for _, item := range d.Items {
				if h, ok := item.(*EventHandler); ok {
					registerHandler(bs, h.Event, &handlerBinding{Params: h.Params, Body: h.Body, Line: h.Line, Col: h.Col}, warns)
				}
			}
		}
	}
}

func registerHandler(bs *boundScript, event string, hb *handlerBinding, warns *[]Warning) {
	if !knownEvents[event] {
		*warns = append(*warns, Warning{Kind: WarnUnknownEvent,
			Msg: fmt.Sprintf("unknown event %q at %d:%d; handler will never fire", event, hb.Line, hb.Col+1)})
	}
	bs.handlers[event] = hb
}

// checkTypes validates every node's declared type against the builtins and
// the entity declarations collected during link resolution.
func checkTypes(scene *RuntimeScene, n *GemNode) error {
	if !builtinTypes[n.Type] {
		if _, ok := scene.types[n.Type]; !ok {
			return &AssemblyError{Kind: AssemblyTypeUnknown,
				Msg: fmt.Sprintf("unknown Gem type %q at %d:%d", n.Type, n.Line, n.Col+1)}
		}
	}
	for _, c := range n.Children {
		if err := checkTypes(scene, c); err != nil {
			return err
		}
	}
	return nil
}

// checkSceneInstances validates entity placements declared inside the scene
// blocks of bound scripts. A placement type resolves against the builtins,
// the declared entities, and the declared components.
func checkSceneInstances(scene *RuntimeScene) error {
	for _, b := range scene.bindings {
		for _, d := range b.script.prog.Decls {
			sd, ok := d.(*SceneDecl)
			if !ok {
				continue
			}
			for _, item := range sd.Items {
				pi, ok := item.(*EntityInstance)
				if !ok {
					continue
				}
				if builtinTypes[pi.Type] {
					continue
				}
				if _, ok := scene.types[pi.Type]; ok {
					continue
				}
				if _, ok := scene.components[pi.Type]; ok {
					continue
				}
				return &AssemblyError{Kind: AssemblyTypeUnknown, ID: b.script.id,
					Msg: fmt.Sprintf("unknown entity type %q at %d:%d", pi.Type, pi.Line, pi.Col+1)}
			}
		}
	}
	return nil
}

// checkComponentUses validates that every `component Name(args)` attachment in
// a bound script resolves to a declared component. Declarations land in
// scene.components during link resolution, so a component may be declared in
// a different script than the one attaching it.
func checkComponentUses(scene *RuntimeScene) error {
	for _, b := range scene.bindings {
		for _, cu := range b.script.comps {
			if _, ok := scene.components[cu.Name]; !ok {
				return &AssemblyError{Kind: AssemblyTypeUnknown, ID: b.script.id,
					Msg: fmt.Sprintf("unknown component %q at %d:%d", cu.Name, cu.Line, cu.Col+1)}
			}
		}
	}
	return nil
}

// instantiate builds the runtime tree for a parse subtree, pre-order, uuid
// per instance, declaration order preserved among siblings.
func (a *Assembler) instantiate(scene *RuntimeScene, n *GemNode, parent *GemInstance) *GemInstance {
	inst := &GemInstance{
		id:     uuid.New().String(),
		node:   n,
		parent: parent,
		scene:  scene,
	}
	for _, b := range scene.bindings {
		if b.node == n {
			inst.script = b.script
			break
		}
	}
	for _, c := range n.Children {
		inst.children = append(inst.children, a.instantiate(scene, c, inst))
	}
	return inst
}

func (a *Assembler) findOnStack(id ResourceID) int {
	k := id.key()
	for i, s := range a.stack {
		if s == k {
			return i
		}
	}
	return -1
}

func (a *Assembler) loadText(id ResourceID) (string, error) {
	data, err := a.loader.Load(id)
	if err != nil {
		if nf, ok := err.(*NotFoundError); ok {
			return "", &AssemblyError{Kind: AssemblyResourceNotFound, ID: nf.ID,
				Msg: nf.Error()}
		}
		return "", err
	}
	return string(data), nil
}

// sceneBinding pairs a parse node with its bound script until instantiation.
type sceneBinding struct {
	node   *GemNode
	script *boundScript
}
