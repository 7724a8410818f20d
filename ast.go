// ast.go — AST for Pyzza scripts.
//
// Declarations, statements and expressions are plain structs behind small
// marker interfaces. Nodes that the evaluator can fail on carry their source
// position so runtime errors point at the offending spot.
package gem

// Program is one parsed script file: an ordered sequence of top-level
// declarations and free statements. Logic files additionally carry the
// `extend Type` header naming the Gem type they attach to.
type Program struct {
	Extends string // non-empty for `extend Type` logic files
	Doc     string
	Decls   []Decl
	Stmts   []Stmt // free top-level statements, in order
}

// Entities returns the entity declarations of the program, by name.
func (p *Program) Entities() map[string]*EntityDecl {
	out := map[string]*EntityDecl{}
	for _, d := range p.Decls {
		if e, ok := d.(*EntityDecl); ok {
			out[e.Name] = e
		}
	}
	return out
}

// Components returns the component declarations of the program, by name.
func (p *Program) Components() map[string]*ComponentDecl {
	out := map[string]*ComponentDecl{}
	for _, d := range p.Decls {
		if c, ok := d.(*ComponentDecl); ok {
			out[c.Name] = c
		}
	}
	return out
}

// Decl is a top-level or member declaration.
type Decl interface{ declNode() }

// EntityDecl declares a game object type: ordered var/component/fn/on members.
type EntityDecl struct {
	Name    string
	Doc     string
	Members []Decl // *VarDecl, *ComponentUse, *FuncDecl, *EventHandler
	Line    int
	Col     int
}

// SceneDecl groups entity instances and event handlers.
type SceneDecl struct {
	Name  string
	Doc   string
	Items []Decl // *VarDecl, *EntityInstance, *EventHandler
	Line  int
	Col   int
}

// ComponentDecl declares an attachable feature bundle and its constructor
// parameters.
type ComponentDecl struct {
	Name   string
	Params []string
	Line   int
	Col    int
}

// ComponentUse attaches a component inside an entity, with constructor args.
type ComponentUse struct {
	Name string
	Args []Expr
	Line int
	Col  int
}

// FuncDecl is a named function. Inside logic files, functions named on_*
// double as lifecycle handlers (on_ready, on_update, on_destroy).
type FuncDecl struct {
	Name   string
	Params []string
	Body   *Block
	Line   int
	Col    int
}

// EventHandler binds a block to a named event (`on pressed(btn) { ... }`).
// The event taxonomy is open; unknown names are flagged at assembly time.
type EventHandler struct {
	Event  string
	Params []string
	Body   *Block
	Line   int
	Col    int
}

// EntityInstance places an entity inside a scene block:
// `Hero: Player(100, 200)`. The type name must resolve to a declared entity
// or component at assembly time.
type EntityInstance struct {
	Name string
	Type string
	Args []Expr
	Line int
	Col  int
}

func (*EntityDecl) declNode()     {}
func (*SceneDecl) declNode()      {}
func (*ComponentDecl) declNode()  {}
func (*ComponentUse) declNode()   {}
func (*FuncDecl) declNode()       {}
func (*EventHandler) declNode()   {}
func (*EntityInstance) declNode() {}
func (*VarDecl) declNode()        {}

// ----- statements -----

type Stmt interface{ stmtNode() }

// Block is a braced statement sequence.
type Block struct {
	Stmts []Stmt
}

// VarDecl introduces a binding in the enclosing scope.
type VarDecl struct {
	Name  string
	Value Expr
	Line  int
	Col   int
}

// AssignStmt updates an existing binding or a property chain target.
type AssignStmt struct {
	Target Expr // *IdentExpr or *PropertyExpr
	Value  Expr
	Line   int
	Col    int
}

type IfStmt struct {
	Cond Expr
	Then *Block
	Else *Block // nil when absent
}

type WhileStmt struct {
	Cond Expr
	Body *Block
}

type ExprStmt struct {
	X Expr
}

// DrawStmt forwards `draw.<command>(args)` to the draw sink. The command is a
// free identifier; unknown commands pass through unvalidated.
type DrawStmt struct {
	Command string
	Args    []Expr
	Line    int
	Col     int
}

// AudioStmt forwards `audio.<command>(args)` to the audio sink.
type AudioStmt struct {
	Command string
	Args    []Expr
	Line    int
	Col     int
}

// SpawnStmt creates a Gem instance under the executing Gem at runtime.
type SpawnStmt struct {
	Type  string
	Props []SpawnProp
	Line  int
	Col   int
}

// SpawnProp is a `key: expr` entry of a spawn block.
type SpawnProp struct {
	Key   string
	Value Expr
}

func (*Block) stmtNode()      {}
func (*VarDecl) stmtNode()    {}
func (*AssignStmt) stmtNode() {}
func (*IfStmt) stmtNode()     {}
func (*WhileStmt) stmtNode()  {}
func (*ExprStmt) stmtNode()   {}
func (*DrawStmt) stmtNode()   {}
func (*AudioStmt) stmtNode()  {}
func (*SpawnStmt) stmtNode()  {}

// ----- expressions -----

type Expr interface {
	exprNode()
	Pos() (line, col int)
}

type IntLit struct {
	Val  int64
	Line int
	Col  int
}

type NumLit struct {
	Val  float64
	Line int
	Col  int
}

type StrLit struct {
	Val  string
	Line int
	Col  int
}

type BoolLit struct {
	Val  bool
	Line int
	Col  int
}

type TupleLit struct {
	Elems []Expr
	Line  int
	Col   int
}

// DirectiveLit is a resolved '#...' reference in expression position.
type DirectiveLit struct {
	Ref  ResourceID
	Line int
	Col  int
}

type IdentExpr struct {
	Name string
	Line int
	Col  int
}

type CallExpr struct {
	Name string
	Args []Expr
	Line int
	Col  int
}

type BinaryExpr struct {
	Op   string // "+", "-", "*", "/", "==", "!=", "<", "<=", ">", ">=", "&&", "||"
	L, R Expr
	Line int
	Col  int
}

type UnaryExpr struct {
	Op   string // "-" or "!"
	X    Expr
	Line int
	Col  int
}

// PropertyExpr is a dotted access chain link: X.Name.
type PropertyExpr struct {
	X    Expr
	Name string
	Line int
	Col  int
}

func (*IntLit) exprNode()       {}
func (*NumLit) exprNode()       {}
func (*StrLit) exprNode()       {}
func (*BoolLit) exprNode()      {}
func (*TupleLit) exprNode()     {}
func (*DirectiveLit) exprNode() {}
func (*IdentExpr) exprNode()    {}
func (*CallExpr) exprNode()     {}
func (*BinaryExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*PropertyExpr) exprNode() {}

func (e *IntLit) Pos() (int, int)       { return e.Line, e.Col }
func (e *NumLit) Pos() (int, int)       { return e.Line, e.Col }
func (e *StrLit) Pos() (int, int)       { return e.Line, e.Col }
func (e *BoolLit) Pos() (int, int)      { return e.Line, e.Col }
func (e *TupleLit) Pos() (int, int)     { return e.Line, e.Col }
func (e *DirectiveLit) Pos() (int, int) { return e.Line, e.Col }
func (e *IdentExpr) Pos() (int, int)    { return e.Line, e.Col }
func (e *CallExpr) Pos() (int, int)     { return e.Line, e.Col }
func (e *BinaryExpr) Pos() (int, int)   { return e.Line, e.Col }
func (e *UnaryExpr) Pos() (int, int)    { return e.Line, e.Col }
func (e *PropertyExpr) Pos() (int, int) { return e.Line, e.Col }
