// engine.go — the frame-stepped runtime.
//
// The engine owns at most one active RuntimeScene. A scene moves through
// Loading → Ready → Running → Destroying → Destroyed, and the last state is
// terminal. Ready delivery and per-frame update delivery are both pre-order
// (parent before children, siblings in declaration order); destroy delivery
// is the exact reverse, so a child never outlives the teardown of anything
// that references it. Scene switches requested mid-frame are queued and
// applied at the top of the next Step, never inside a frame.
package gem

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type SceneState int

const (
	StateLoading SceneState = iota
	StateReady
	StateRunning
	StateDestroying
	StateDestroyed
)

func (s SceneState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateDestroying:
		return "destroying"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// RuntimeScene is one assembled, instanced scene tree.
type RuntimeScene struct {
	ID      string
	Name    string
	Root    *GemInstance
	Sources map[string]string // resource path → source text, for diagnostics

	state      SceneState
	types      map[string]*EntityDecl
	components map[string]*ComponentDecl
	bindings   []sceneBinding
	env        *Env // scene-level scope, shared by every handler in the scene
}

func (s *RuntimeScene) State() SceneState { return s.state }

// GetNode resolves a slash path from the scene root. "/Root/A" and "Root/A"
// are equivalent here.
func (s *RuntimeScene) GetNode(path string) *GemInstance {
	if s.Root == nil {
		return nil
	}
	path = strings.TrimPrefix(path, "/")
	segs := strings.Split(path, "/")
	if len(segs) == 0 || segs[0] != s.Root.Name() {
		return nil
	}
	return s.Root.walk(segs[1:])
}

// GemInstance is one live node of a RuntimeScene.
type GemInstance struct {
	id       string
	node     *GemNode
	parent   *GemInstance
	children []*GemInstance
	scene    *RuntimeScene
	script   *boundScript
	env      *Env             // entity-local frame, chained to the scene env
	props    map[string]Value // runtime property values, seeded from the node
}

func (g *GemInstance) ID() string   { return g.id }
func (g *GemInstance) Name() string { return g.node.Name }
func (g *GemInstance) Type() string { return g.node.Type }
func (g *GemInstance) Doc() string  { return g.node.Doc }

func (g *GemInstance) Parent() *GemInstance { return g.parent }
func (g *GemInstance) ChildCount() int      { return len(g.children) }

func (g *GemInstance) Child(i int) *GemInstance {
	if i < 0 || i >= len(g.children) {
		return nil
	}
	return g.children[i]
}

func (g *GemInstance) Children() []*GemInstance {
	out := make([]*GemInstance, len(g.children))
	copy(out, g.children)
	return out
}

// Index is this instance's position among its siblings; the root is 0.
func (g *GemInstance) Index() int {
	if g.parent == nil {
		return 0
	}
	for i, c := range g.parent.children {
		if c == g {
			return i
		}
	}
	return 0
}

// Path is the absolute slash path from the root, "/Root/A/C".
func (g *GemInstance) Path() string {
	if g.parent == nil {
		return "/" + g.Name()
	}
	return g.parent.Path() + "/" + g.Name()
}

// GetNode resolves a path relative to this instance. A leading slash resolves
// from the scene root; "." is this node and ".." its parent.
func (g *GemInstance) GetNode(path string) *GemInstance {
	if strings.HasPrefix(path, "/") {
		if g.scene == nil {
			return nil
		}
		return g.scene.GetNode(path)
	}
	return g.walk(strings.Split(path, "/"))
}

func (g *GemInstance) walk(segs []string) *GemInstance {
	cur := g
	for _, seg := range segs {
		switch seg {
		case "", ".":
			continue
		case "..":
			cur = cur.parent
			if cur == nil {
				return nil
			}
		default:
			var next *GemInstance
			for _, c := range cur.children {
				if c.Name() == seg {
					next = c
					break
				}
			}
			if next == nil {
				return nil
			}
			cur = next
		}
	}
	return cur
}

// Prop returns a property value: a runtime write wins over the declared value.
func (g *GemInstance) Prop(key string) (Value, bool) {
	if v, ok := g.props[key]; ok {
		return v, true
	}
	return g.node.Prop(key)
}

func (g *GemInstance) setProp(key string, v Value) {
	if g.props == nil {
		g.props = map[string]Value{}
	}
	g.props[key] = v
}

// getProp is the script-visible property lookup: declared/written properties,
// then entity-local vars, then the intrinsic name/type/id fields.
func (g *GemInstance) getProp(name string) (Value, bool) {
	if v, ok := g.Prop(name); ok {
		return v, true
	}
	if g.env != nil {
		if v, ok := g.env.GetLocal(name); ok {
			return v, true
		}
	}
	switch name {
	case "name":
		return Str(g.Name()), true
	case "type":
		return Str(g.Type()), true
	case "id":
		return Str(g.id), true
	}
	return Null, false
}

// preorder appends the subtree in parent-before-children order.
func (g *GemInstance) preorder(out []*GemInstance) []*GemInstance {
	out = append(out, g)
	for _, c := range g.children {
		out = c.preorder(out)
	}
	return out
}

// Engine drives scenes. Construct with NewEngine, install a registry, then
// activate a scene and call Step from the host's frame loop.
type Engine struct {
	asm      *Assembler
	registry *Registry
	ev       *evaluator
	active   *RuntimeScene
	pending  string // queued scene switch, applied at the next Step
	warnings []Warning
}

// NewEngine wires the engine to its host capabilities. A nil sink discards
// commands; a nil input reports no keys held.
func NewEngine(loader Loader, sink CommandSink, input InputSource) *Engine {
	if sink == nil {
		sink = NullSink{}
	}
	if input == nil {
		input = NullInput{}
	}
	return &Engine{
		asm: NewAssembler(loader),
		ev:  newEvaluator(sink, input),
	}
}

// LoadRegistry parses a scenes.registry source and installs it.
func (e *Engine) LoadRegistry(src string) error {
	r, err := LoadRegistry(src)
	if err != nil {
		return err
	}
	e.registry = r
	return nil
}

// SetRegistry installs an already-parsed registry.
func (e *Engine) SetRegistry(r *Registry) { e.registry = r }

func (e *Engine) Registry() *Registry { return e.registry }

// Active returns the active scene, or nil when none is.
func (e *Engine) Active() *RuntimeScene { return e.active }

// Warnings drains the accumulated assembly and runtime warnings.
func (e *Engine) Warnings() []Warning {
	w := e.warnings
	e.warnings = nil
	return w
}

// ActivateDefault activates the registry's default scene.
func (e *Engine) ActivateDefault() error {
	if e.registry == nil {
		return fmt.Errorf("no registry installed")
	}
	return e.Activate(e.registry.Default)
}

// Activate destroys the current scene (if any) and assembles and readies the
// named one. On assembly failure the engine is left with no active scene and
// the error surfaces to the caller; no partially-active scene is exposed.
// Activate must only be called between frames.
func (e *Engine) Activate(name string) error {
	if e.registry == nil {
		return fmt.Errorf("no registry installed")
	}
	id, ok := e.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("no scene named %q in the registry", name)
	}

	if e.active != nil {
		e.destroyScene(e.active)
		e.active = nil
	}

	scene, warns, err := e.asm.Assemble(name, id)
	if err != nil {
		return err
	}
	e.warnings = append(e.warnings, warns...)

	e.readyScene(scene)
	e.active = scene
	return nil
}

// Switch queues a scene change. It takes effect at the top of the next Step:
// every on_update of the current frame completes before any on_destroy runs.
func (e *Engine) Switch(name string) {
	e.pending = name
}

// Step advances one frame. dt is the externally measured elapsed time and
// must be non-negative; the engine never computes time itself. A queued
// switch is applied first, then on_update(dt) is delivered pre-order to every
// Gem with a bound script. Per-Gem failures become warnings, not errors.
func (e *Engine) Step(dt float64) error {
	if dt < 0 || dt != dt {
		return fmt.Errorf("frame delta must be a non-negative number, got %v", dt)
	}
	if e.pending != "" {
		name := e.pending
		e.pending = ""
		if err := e.Activate(name); err != nil {
			return err
		}
	}
	if e.active == nil {
		return nil
	}
	if e.active.state == StateReady {
		e.active.state = StateRunning
	}
	if e.active.state != StateRunning {
		return nil
	}

	args := []Value{Num(dt)}
	for _, inst := range e.active.Root.preorder(nil) {
		e.deliver(inst, "update", args)
	}
	return nil
}

// Shutdown destroys the active scene, if any. The engine can activate a new
// scene afterwards.
func (e *Engine) Shutdown() {
	if e.active != nil {
		e.destroyScene(e.active)
		e.active = nil
	}
	e.pending = ""
}

// readyScene transitions Loading→Ready: builds the scope chain, seeds
// declared properties, runs script initializers, and delivers on_ready once
// per Gem, pre-order.
func (e *Engine) readyScene(scene *RuntimeScene) {
	scene.env = NewEnv(e.ev.core)
	for _, inst := range scene.Root.preorder(nil) {
		e.initInstance(scene, inst)
	}
	// instances placed during init joined the tree, so recompute the order;
	// the state flips first so spawns inside on_ready self-deliver
	scene.state = StateReady
	for _, inst := range scene.Root.preorder(nil) {
		e.deliver(inst, "ready", nil)
	}
}

// initInstance builds the instance's entity-local environment and runs its
// script's initializers (var declarations and free top-level statements, in
// order). Initializer failures are isolated the same way handler failures
// are.
func (e *Engine) initInstance(scene *RuntimeScene, inst *GemInstance) {
	inst.env = NewEnv(scene.env)
	inst.env.Define("self", NodeVal(inst))
	if inst.script == nil {
		return
	}
	for name, fd := range inst.script.funcs {
		inst.env.Define(name, Value{Tag: VTFunc, Data: &FuncValue{
			Name: name, Params: fd.Params, Body: fd.Body, Env: inst.env,
		}})
	}
	ctx := &execCtx{eng: e, scene: scene, inst: inst}
	// components bind before the initializers run, so `var hp = max` works
	for _, cu := range inst.script.comps {
		if err := e.applyComponent(ctx, cu); err != nil {
			e.warnScript(inst, err)
		}
	}
	for _, s := range inst.script.inits {
		if err := e.ev.execStmt(inst.env, s, ctx); err != nil {
			e.warnScript(inst, err)
		}
	}
	// scene blocks declared in this script contribute shared bindings and
	// entity placements
	for _, d := range inst.script.prog.Decls {
		sd, ok := d.(*SceneDecl)
		if !ok {
			continue
		}
		for _, item := range sd.Items {
			switch item := item.(type) {
			case *VarDecl:
				v := Null
				if item.Value != nil {
					var err error
					v, err = e.ev.evalExpr(scene.env, item.Value, ctx)
					if err != nil {
						e.warnScript(inst, err)
						continue
					}
				}
				scene.env.Define(item.Name, v)
			case *EntityInstance:
				if err := e.placeInstance(ctx, item); err != nil {
					e.warnScript(inst, err)
				}
			}
		}
	}
}

// placeInstance realizes a scene-block placement (`Hero: Player(100, 200)`)
// as a child of the instance whose script declared it. Constructor arguments
// evaluate in the scene scope and bind as the child's "args" tuple; when the
// type is a declared component, they additionally bind under the component's
// parameter names as properties.
func (e *Engine) placeInstance(ctx *execCtx, pi *EntityInstance) error {
	args, err := e.ev.evalArgs(ctx.scene.env, pi.Args, ctx)
	if err != nil {
		return err
	}
	node := &GemNode{Name: pi.Name, Type: pi.Type, Line: pi.Line, Col: pi.Col}
	child := e.newRuntimeChild(ctx, node)
	child.setProp("args", Tuple(args))
	if decl, ok := ctx.scene.components[pi.Type]; ok {
		if len(args) != len(decl.Params) {
			return &RuntimeError{Line: pi.Line, Col: pi.Col + 1,
				Msg: fmt.Sprintf("component %s expects %d arguments, got %d", pi.Type, len(decl.Params), len(args))}
		}
		for i, p := range decl.Params {
			child.setProp(p, args[i])
		}
	}
	e.attach(ctx, child)
	return nil
}

// applyComponent attaches one `component Name(args)` member to the executing
// instance. Constructor arguments evaluate in the entity's scope and bind
// under the component's declared parameter names, so the entity's own
// initializers and handlers read them as ordinary variables.
func (e *Engine) applyComponent(ctx *execCtx, cu *ComponentUse) error {
	decl, ok := ctx.scene.components[cu.Name]
	if !ok {
		return &RuntimeError{Line: cu.Line, Col: cu.Col + 1,
			Msg: fmt.Sprintf("unknown component %q", cu.Name)}
	}
	args, err := e.ev.evalArgs(ctx.inst.env, cu.Args, ctx)
	if err != nil {
		return err
	}
	if len(args) != len(decl.Params) {
		return &RuntimeError{Line: cu.Line, Col: cu.Col + 1,
			Msg: fmt.Sprintf("component %s expects %d arguments, got %d", cu.Name, len(decl.Params), len(args))}
	}
	for i, p := range decl.Params {
		ctx.inst.env.Define(p, args[i])
	}
	return nil
}

// deliver invokes one lifecycle handler on one instance, isolating failures
// as warnings so a broken script cannot take down its siblings.
func (e *Engine) deliver(inst *GemInstance, event string, args []Value) {
	if inst.script == nil {
		return
	}
	hb, ok := inst.script.handlers[event]
	if !ok {
		return
	}
	frame := NewEnv(inst.env)
	for i, p := range hb.Params {
		if i < len(args) {
			frame.Define(p, args[i])
		} else {
			frame.Define(p, Null)
		}
	}
	ctx := &execCtx{eng: e, scene: inst.scene, inst: inst}
	e.ev.execHandlerBody(frame, hb.Body, ctx, func(re *RuntimeError) {
		e.warnScript(inst, re)
	})
}

// destroyScene transitions into Destroying, delivers on_destroy in exact
// reverse pre-order (children before parents), and lands in the terminal
// Destroyed state.
func (e *Engine) destroyScene(scene *RuntimeScene) {
	scene.state = StateDestroying
	order := scene.Root.preorder(nil)
	for i := len(order) - 1; i >= 0; i-- {
		e.deliver(order[i], "destroy", nil)
	}
	scene.state = StateDestroyed
}

// spawn creates a new child Gem under the executing instance. The type must
// be a builtin or a declared entity; entity members bind the same way a
// linked script's do. The new instance is readied immediately.
func (e *Engine) spawn(ctx *execCtx, env *Env, s *SpawnStmt) error {
	if _, ok := ctx.scene.types[s.Type]; !ok && !builtinTypes[s.Type] {
		return &RuntimeError{Line: s.Line, Col: s.Col + 1,
			Msg: fmt.Sprintf("cannot spawn unknown type %q", s.Type)}
	}

	node := &GemNode{Name: s.Type, Type: s.Type, Line: s.Line, Col: s.Col}
	inst := e.newRuntimeChild(ctx, node)
	for _, p := range s.Props {
		v, err := e.ev.evalExpr(env, p.Value, ctx)
		if err != nil {
			return err
		}
		inst.setProp(p.Key, v)
	}
	e.attach(ctx, inst)
	return nil
}

// newRuntimeChild builds an unattached instance for a runtime-created node,
// binding entity members when the type is a declared entity.
func (e *Engine) newRuntimeChild(ctx *execCtx, node *GemNode) *GemInstance {
	inst := &GemInstance{
		id:     uuid.New().String(),
		node:   node,
		parent: ctx.inst,
		scene:  ctx.scene,
	}
	if ent, ok := ctx.scene.types[node.Type]; ok {
		bs := &boundScript{
			handlers: map[string]*handlerBinding{},
			funcs:    map[string]*FuncDecl{},
			prog:     &Program{},
		}
		var warns []Warning
		bindDecls(bs, ent.Members, &warns)
		e.warnings = append(e.warnings, warns...)
		inst.script = bs
	}
	return inst
}

// attach links a runtime-created instance into the tree and runs its init.
// During scene loading the ready pass picks the instance up afterwards;
// once the scene is live, ready delivers immediately.
func (e *Engine) attach(ctx *execCtx, inst *GemInstance) {
	ctx.inst.children = append(ctx.inst.children, inst)
	e.initInstance(ctx.scene, inst)
	if ctx.scene.state != StateLoading {
		e.deliver(inst, "ready", nil)
	}
}

// warnScript records an isolated script failure, with a caret snippet when
// the instance's script source is known.
func (e *Engine) warnScript(inst *GemInstance, err error) {
	msg := err.Error()
	if inst.script != nil && inst.script.source != "" {
		msg = WrapErrorWithName(err, inst.script.id.Path(), inst.script.source).Error()
	}
	e.warnings = append(e.warnings, Warning{Kind: WarnRuntime,
		Msg: fmt.Sprintf("%s: %s", inst.Path(), msg)})
}
