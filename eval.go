// eval.go — statement and expression evaluation for Pyzza scripts.
//
// Evaluation is single-threaded and frame-stepped; the engine calls into the
// evaluator between no other work. Errors are *RuntimeError values carrying
// the source position of the expression that failed. At handler top level the
// engine skips the offending statement and records a warning, so one broken
// script cannot stop sibling updates in the same frame.
package gem

import "fmt"

// RuntimeError is a recoverable script failure: undefined variable, wrong
// argument count, type mismatch in an operator. Line and Col are 1-based.
type RuntimeError struct {
	Line int
	Col  int
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("RUNTIME ERROR at %d:%d: %s", e.Line, e.Col, e.Msg)
}

func runtimeErrAt(e Expr, format string, args ...interface{}) *RuntimeError {
	line, col := e.Pos()
	return &RuntimeError{Line: line, Col: col + 1, Msg: fmt.Sprintf(format, args...)}
}

// Env is a lexical environment: a frame of bindings chained to its parent.
type Env struct {
	vals   map[string]Value
	parent *Env
}

func NewEnv(parent *Env) *Env {
	return &Env{vals: map[string]Value{}, parent: parent}
}

// Define introduces or shadows a binding in this frame.
func (e *Env) Define(name string, v Value) {
	e.vals[name] = v
}

// Set updates the nearest existing binding. Reports whether one was found.
func (e *Env) Set(name string, v Value) bool {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vals[name]; ok {
			env.vals[name] = v
			return true
		}
	}
	return false
}

// Get resolves a name through the chain.
func (e *Env) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vals[name]; ok {
			return v, true
		}
	}
	return Null, false
}

// GetLocal resolves a name in this frame only.
func (e *Env) GetLocal(name string) (Value, bool) {
	v, ok := e.vals[name]
	return v, ok
}

// FuncValue is a callable: either a Pyzza function closed over its defining
// environment, or a native builtin.
type FuncValue struct {
	Name   string
	Params []string
	Body   *Block
	Env    *Env
	Native func(args []Value) (Value, error)
}

// execCtx is the ambient state of one handler invocation.
type execCtx struct {
	eng   *Engine
	scene *RuntimeScene
	inst  *GemInstance
}

// evaluator executes Pyzza statements against an Env chain, forwarding draw
// and audio commands to the sink and input queries to the input source.
type evaluator struct {
	sink  CommandSink
	input InputSource
	core  *Env
}

func newEvaluator(sink CommandSink, input InputSource) *evaluator {
	ev := &evaluator{sink: sink, input: input, core: NewEnv(nil)}
	ev.defineNative("print", func(args []Value) (Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			if s, ok := a.AsStr(); ok {
				parts[i] = s
			} else {
				parts[i] = a.String()
			}
		}
		fmt.Println(joinSpace(parts))
		return Null, nil
	})
	ev.defineNative("key_down", func(args []Value) (Value, error) {
		if len(args) != 1 {
			return Null, fmt.Errorf("key_down expects 1 argument, got %d", len(args))
		}
		name, ok := args[0].AsStr()
		if !ok {
			return Null, fmt.Errorf("key_down expects a string key name")
		}
		return Bool(ev.input.KeyDown(name)), nil
	})
	ev.defineNative("len", func(args []Value) (Value, error) {
		if len(args) != 1 {
			return Null, fmt.Errorf("len expects 1 argument, got %d", len(args))
		}
		switch args[0].Tag {
		case VTStr:
			return Int(int64(len(args[0].Data.(string)))), nil
		case VTTuple:
			return Int(int64(len(args[0].Data.([]Value)))), nil
		}
		return Null, fmt.Errorf("len expects a string or tuple")
	})
	return ev
}

func (ev *evaluator) defineNative(name string, fn func([]Value) (Value, error)) {
	ev.core.Define(name, Value{Tag: VTFunc, Data: &FuncValue{Name: name, Native: fn}})
}

func joinSpace(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

// ----- statements -----

// execHandlerBody runs a handler's top-level statements with per-statement
// isolation: a failing statement is skipped, reported through warn, and the
// rest of the body still runs.
func (ev *evaluator) execHandlerBody(env *Env, body *Block, ctx *execCtx, warn func(*RuntimeError)) {
	for _, s := range body.Stmts {
		if err := ev.execStmt(env, s, ctx); err != nil {
			if re, ok := err.(*RuntimeError); ok {
				warn(re)
				continue
			}
			warn(&RuntimeError{Line: 1, Col: 1, Msg: err.Error()})
		}
	}
}

func (ev *evaluator) execBlock(env *Env, b *Block, ctx *execCtx) error {
	inner := NewEnv(env)
	for _, s := range b.Stmts {
		if err := ev.execStmt(inner, s, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) execStmt(env *Env, s Stmt, ctx *execCtx) error {
	switch s := s.(type) {
	case *Block:
		return ev.execBlock(env, s, ctx)
	case *VarDecl:
		v := Null
		if s.Value != nil {
			var err error
			v, err = ev.evalExpr(env, s.Value, ctx)
			if err != nil {
				return err
			}
		}
		env.Define(s.Name, v)
		return nil
	case *AssignStmt:
		return ev.execAssign(env, s, ctx)
	case *IfStmt:
		cond, err := ev.evalExpr(env, s.Cond, ctx)
		if err != nil {
			return err
		}
		b, ok := cond.AsBool()
		if !ok {
			return runtimeErrAt(s.Cond, "if condition must be a boolean, got %s", tagName(cond.Tag))
		}
		if b {
			return ev.execBlock(env, s.Then, ctx)
		}
		if s.Else != nil {
			return ev.execBlock(env, s.Else, ctx)
		}
		return nil
	case *WhileStmt:
		for {
			cond, err := ev.evalExpr(env, s.Cond, ctx)
			if err != nil {
				return err
			}
			b, ok := cond.AsBool()
			if !ok {
				return runtimeErrAt(s.Cond, "while condition must be a boolean, got %s", tagName(cond.Tag))
			}
			if !b {
				return nil
			}
			if err := ev.execBlock(env, s.Body, ctx); err != nil {
				return err
			}
		}
	case *ExprStmt:
		_, err := ev.evalExpr(env, s.X, ctx)
		return err
	case *DrawStmt:
		args, err := ev.evalArgs(env, s.Args, ctx)
		if err != nil {
			return err
		}
		ev.sink.EmitDraw(s.Command, args)
		return nil
	case *AudioStmt:
		args, err := ev.evalArgs(env, s.Args, ctx)
		if err != nil {
			return err
		}
		ev.sink.EmitAudio(s.Command, args)
		return nil
	case *SpawnStmt:
		return ctx.eng.spawn(ctx, env, s)
	default:
		return fmt.Errorf("unhandled statement %T", s)
	}
}

func (ev *evaluator) execAssign(env *Env, s *AssignStmt, ctx *execCtx) error {
	v, err := ev.evalExpr(env, s.Value, ctx)
	if err != nil {
		return err
	}
	switch t := s.Target.(type) {
	case *IdentExpr:
		if !env.Set(t.Name, v) {
			return runtimeErrAt(t, "cannot assign to undefined variable %q", t.Name)
		}
		return nil
	case *PropertyExpr:
		base, err := ev.evalExpr(env, t.X, ctx)
		if err != nil {
			return err
		}
		if base.Tag != VTNode {
			return runtimeErrAt(t, "cannot assign property %q on %s", t.Name, tagName(base.Tag))
		}
		base.Data.(*GemInstance).setProp(t.Name, v)
		return nil
	default:
		return runtimeErrAt(s.Target, "invalid assignment target")
	}
}

func (ev *evaluator) evalArgs(env *Env, args []Expr, ctx *execCtx) ([]Value, error) {
	out := make([]Value, 0, len(args))
	for _, a := range args {
		v, err := ev.evalExpr(env, a, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ----- expressions -----

func (ev *evaluator) evalExpr(env *Env, e Expr, ctx *execCtx) (Value, error) {
	switch e := e.(type) {
	case *IntLit:
		return Int(e.Val), nil
	case *NumLit:
		return Num(e.Val), nil
	case *StrLit:
		return Str(e.Val), nil
	case *BoolLit:
		return Bool(e.Val), nil
	case *TupleLit:
		elems, err := ev.evalArgs(env, e.Elems, ctx)
		if err != nil {
			return Null, err
		}
		return Tuple(elems), nil
	case *DirectiveLit:
		return Ref(e.Ref), nil
	case *IdentExpr:
		if v, ok := env.Get(e.Name); ok {
			return v, nil
		}
		return Null, runtimeErrAt(e, "undefined variable %q", e.Name)
	case *CallExpr:
		return ev.evalCall(env, e, ctx)
	case *UnaryExpr:
		return ev.evalUnary(env, e, ctx)
	case *BinaryExpr:
		return ev.evalBinary(env, e, ctx)
	case *PropertyExpr:
		return ev.evalProperty(env, e, ctx)
	default:
		return Null, runtimeErrAt(e, "unhandled expression %T", e)
	}
}

func (ev *evaluator) evalCall(env *Env, e *CallExpr, ctx *execCtx) (Value, error) {
	// get_node resolves against the executing Gem, so it cannot be an
	// ordinary environment-bound builtin.
	if e.Name == "get_node" {
		args, err := ev.evalArgs(env, e.Args, ctx)
		if err != nil {
			return Null, err
		}
		if len(args) != 1 {
			return Null, runtimeErrAt(e, "get_node expects 1 argument, got %d", len(args))
		}
		path, ok := args[0].AsStr()
		if !ok {
			return Null, runtimeErrAt(e, "get_node expects a string path")
		}
		n := ctx.inst.GetNode(path)
		if n == nil {
			return Null, runtimeErrAt(e, "no Gem at path %q", path)
		}
		return NodeVal(n), nil
	}

	callee, ok := env.Get(e.Name)
	if !ok {
		return Null, runtimeErrAt(e, "undefined function %q", e.Name)
	}
	if callee.Tag != VTFunc {
		return Null, runtimeErrAt(e, "%q is not callable", e.Name)
	}
	fv := callee.Data.(*FuncValue)

	args, err := ev.evalArgs(env, e.Args, ctx)
	if err != nil {
		return Null, err
	}
	if fv.Native != nil {
		v, err := fv.Native(args)
		if err != nil {
			return Null, runtimeErrAt(e, "%s", err.Error())
		}
		return v, nil
	}
	if len(args) != len(fv.Params) {
		return Null, runtimeErrAt(e, "%s expects %d arguments, got %d", fv.Name, len(fv.Params), len(args))
	}
	frame := NewEnv(fv.Env)
	for i, p := range fv.Params {
		frame.Define(p, args[i])
	}
	if err := ev.execBlock(frame, fv.Body, ctx); err != nil {
		return Null, err
	}
	return Null, nil
}

func (ev *evaluator) evalUnary(env *Env, e *UnaryExpr, ctx *execCtx) (Value, error) {
	v, err := ev.evalExpr(env, e.X, ctx)
	if err != nil {
		return Null, err
	}
	switch e.Op {
	case "-":
		switch v.Tag {
		case VTInt:
			return Int(-v.Data.(int64)), nil
		case VTNum:
			return Num(-v.Data.(float64)), nil
		}
		return Null, runtimeErrAt(e, "unary '-' needs a number, got %s", tagName(v.Tag))
	case "!":
		b, ok := v.AsBool()
		if !ok {
			return Null, runtimeErrAt(e, "'!' needs a boolean, got %s", tagName(v.Tag))
		}
		return Bool(!b), nil
	}
	return Null, runtimeErrAt(e, "unknown unary operator %q", e.Op)
}

func (ev *evaluator) evalBinary(env *Env, e *BinaryExpr, ctx *execCtx) (Value, error) {
	// short-circuit forms evaluate the right side lazily
	if e.Op == "&&" || e.Op == "||" {
		l, err := ev.evalExpr(env, e.L, ctx)
		if err != nil {
			return Null, err
		}
		lb, ok := l.AsBool()
		if !ok {
			return Null, runtimeErrAt(e.L, "%q needs boolean operands, got %s", e.Op, tagName(l.Tag))
		}
		if e.Op == "&&" && !lb {
			return Bool(false), nil
		}
		if e.Op == "||" && lb {
			return Bool(true), nil
		}
		r, err := ev.evalExpr(env, e.R, ctx)
		if err != nil {
			return Null, err
		}
		rb, ok := r.AsBool()
		if !ok {
			return Null, runtimeErrAt(e.R, "%q needs boolean operands, got %s", e.Op, tagName(r.Tag))
		}
		return Bool(rb), nil
	}

	l, err := ev.evalExpr(env, e.L, ctx)
	if err != nil {
		return Null, err
	}
	r, err := ev.evalExpr(env, e.R, ctx)
	if err != nil {
		return Null, err
	}

	switch e.Op {
	case "==":
		return Bool(numericEqual(l, r)), nil
	case "!=":
		return Bool(!numericEqual(l, r)), nil
	}

	if e.Op == "+" && l.Tag == VTStr && r.Tag == VTStr {
		return Str(l.Data.(string) + r.Data.(string)), nil
	}

	if l.Tag == VTStr && r.Tag == VTStr {
		switch e.Op {
		case "<":
			return Bool(l.Data.(string) < r.Data.(string)), nil
		case "<=":
			return Bool(l.Data.(string) <= r.Data.(string)), nil
		case ">":
			return Bool(l.Data.(string) > r.Data.(string)), nil
		case ">=":
			return Bool(l.Data.(string) >= r.Data.(string)), nil
		}
	}

	// arithmetic and comparison over numbers; int op int stays int
	if a, aok := l.AsInt(); aok {
		if b, bok := r.AsInt(); bok {
			switch e.Op {
			case "+":
				return Int(a + b), nil
			case "-":
				return Int(a - b), nil
			case "*":
				return Int(a * b), nil
			case "/":
				if b == 0 {
					return Null, runtimeErrAt(e, "division by zero")
				}
				return Int(a / b), nil
			case "<":
				return Bool(a < b), nil
			case "<=":
				return Bool(a <= b), nil
			case ">":
				return Bool(a > b), nil
			case ">=":
				return Bool(a >= b), nil
			}
		}
	}

	lf, lok := l.AsNum()
	rf, rok := r.AsNum()
	if !lok || !rok {
		return Null, runtimeErrAt(e, "%q needs numeric operands, got %s and %s",
			e.Op, tagName(l.Tag), tagName(r.Tag))
	}
	switch e.Op {
	case "+":
		return Num(lf + rf), nil
	case "-":
		return Num(lf - rf), nil
	case "*":
		return Num(lf * rf), nil
	case "/":
		if rf == 0 {
			return Null, runtimeErrAt(e, "division by zero")
		}
		return Num(lf / rf), nil
	case "<":
		return Bool(lf < rf), nil
	case "<=":
		return Bool(lf <= rf), nil
	case ">":
		return Bool(lf > rf), nil
	case ">=":
		return Bool(lf >= rf), nil
	}
	return Null, runtimeErrAt(e, "unknown operator %q", e.Op)
}

// numericEqual is Value.Equal with int/num cross-promotion, so 1 == 1.0.
func numericEqual(l, r Value) bool {
	if l.Tag != r.Tag {
		lf, lok := l.AsNum()
		rf, rok := r.AsNum()
		return lok && rok && lf == rf
	}
	return l.Equal(r)
}

func (ev *evaluator) evalProperty(env *Env, e *PropertyExpr, ctx *execCtx) (Value, error) {
	base, err := ev.evalExpr(env, e.X, ctx)
	if err != nil {
		return Null, err
	}
	switch base.Tag {
	case VTNode:
		inst := base.Data.(*GemInstance)
		if v, ok := inst.getProp(e.Name); ok {
			return v, nil
		}
		return Null, runtimeErrAt(e, "%s has no property %q", inst.Path(), e.Name)
	case VTTuple:
		elems := base.Data.([]Value)
		idx, ok := tupleField(e.Name)
		if !ok {
			return Null, runtimeErrAt(e, "tuples have no property %q", e.Name)
		}
		if idx >= len(elems) {
			return Null, runtimeErrAt(e, "tuple has %d elements, no %q", len(elems), e.Name)
		}
		return elems[idx], nil
	}
	return Null, runtimeErrAt(e, "%s has no properties", tagName(base.Tag))
}

// tupleField maps x/y/z/w onto positional tuple access.
func tupleField(name string) (int, bool) {
	switch name {
	case "x":
		return 0, true
	case "y":
		return 1, true
	case "z":
		return 2, true
	case "w":
		return 3, true
	}
	return 0, false
}

func tagName(t ValueTag) string {
	switch t {
	case VTNull:
		return "null"
	case VTBool:
		return "bool"
	case VTInt:
		return "int"
	case VTNum:
		return "num"
	case VTStr:
		return "str"
	case VTTuple:
		return "tuple"
	case VTRef:
		return "directive"
	case VTPath:
		return "path"
	case VTIdent:
		return "identifier"
	case VTCall:
		return "call"
	case VTFunc:
		return "function"
	case VTNode:
		return "gem"
	}
	return "unknown"
}
