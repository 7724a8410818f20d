// parser_test.go
package gem

import (
	"testing"
)

func parseScript(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := ParsePyzzaFile(src)
	if err != nil {
		t.Fatalf("ParsePyzzaFile error: %v\nsource:\n%s", err, src)
	}
	return prog
}

func Test_Parser_ExtendHeader(t *testing.T) {
	prog := parseScript(t, `
extend ButtonGem

fn on_ready() {
    draw.text("ready")
}
`)
	if prog.Extends != "ButtonGem" {
		t.Fatalf("extends = %q", prog.Extends)
	}
	if len(prog.Decls) != 1 {
		t.Fatalf("decls = %d", len(prog.Decls))
	}
	fd, ok := prog.Decls[0].(*FuncDecl)
	if !ok || fd.Name != "on_ready" {
		t.Fatalf("decl = %#v", prog.Decls[0])
	}
}

func Test_Parser_EntityDecl_Members(t *testing.T) {
	prog := parseScript(t, `
entity Player {
    var health = 100
    component Collider(16, 32)

    fn heal(amount) {
        health = health + amount
    }

    on update(dt) {
        if key_down("left") {
            draw.move(-1, 0)
        }
    }
}
`)
	ents := prog.Entities()
	ent, ok := ents["Player"]
	if !ok {
		t.Fatalf("Player entity missing, got %v", ents)
	}
	if len(ent.Members) != 4 {
		t.Fatalf("members = %d", len(ent.Members))
	}
	if _, ok := ent.Members[0].(*VarDecl); !ok {
		t.Fatalf("member 0 = %#v", ent.Members[0])
	}
	use, ok := ent.Members[1].(*ComponentUse)
	if !ok || use.Name != "Collider" || len(use.Args) != 2 {
		t.Fatalf("member 1 = %#v", ent.Members[1])
	}
	fd, ok := ent.Members[2].(*FuncDecl)
	if !ok || fd.Name != "heal" || len(fd.Params) != 1 {
		t.Fatalf("member 2 = %#v", ent.Members[2])
	}
	h, ok := ent.Members[3].(*EventHandler)
	if !ok || h.Event != "update" || len(h.Params) != 1 || h.Params[0] != "dt" {
		t.Fatalf("member 3 = %#v", ent.Members[3])
	}
}

func Test_Parser_SceneDecl(t *testing.T) {
	prog := parseScript(t, `
entity Player { }

scene Arena {
    var score = 0
    Hero: Player(100, 200)
    on ready {
        audio.play("theme")
    }
}
`)
	var sd *SceneDecl
	for _, d := range prog.Decls {
		if s, ok := d.(*SceneDecl); ok {
			sd = s
		}
	}
	if sd == nil || sd.Name != "Arena" {
		t.Fatalf("scene decl missing: %#v", prog.Decls)
	}
	if len(sd.Items) != 3 {
		t.Fatalf("items = %d", len(sd.Items))
	}
	inst, ok := sd.Items[1].(*EntityInstance)
	if !ok || inst.Name != "Hero" || inst.Type != "Player" || len(inst.Args) != 2 {
		t.Fatalf("item 1 = %#v", sd.Items[1])
	}
}

func Test_Parser_UnknownEventName_Is_Accepted(t *testing.T) {
	prog := parseScript(t, `
on totally_custom(payload) {
    draw.flash(payload)
}
`)
	h, ok := prog.Decls[0].(*EventHandler)
	if !ok || h.Event != "totally_custom" {
		t.Fatalf("decl = %#v", prog.Decls[0])
	}
}

func Test_Parser_SpawnStmt(t *testing.T) {
	stmts, err := ParseSnippet(`spawn Bullet { position: (0, 0), speed: 4.5 }`)
	if err != nil {
		t.Fatalf("ParseSnippet error: %v", err)
	}
	sp, ok := stmts[0].(*SpawnStmt)
	if !ok || sp.Type != "Bullet" || len(sp.Props) != 2 {
		t.Fatalf("stmt = %#v", stmts[0])
	}
	if sp.Props[1].Key != "speed" {
		t.Fatalf("props = %#v", sp.Props)
	}
}

func Test_Parser_DrawAudio_FreeCommandNames(t *testing.T) {
	stmts, err := ParseSnippet(`
draw.some_future_command(1, "x")
audio.warble(0.5)
`)
	if err != nil {
		t.Fatalf("ParseSnippet error: %v", err)
	}
	d, ok := stmts[0].(*DrawStmt)
	if !ok || d.Command != "some_future_command" || len(d.Args) != 2 {
		t.Fatalf("stmt 0 = %#v", stmts[0])
	}
	a, ok := stmts[1].(*AudioStmt)
	if !ok || a.Command != "warble" {
		t.Fatalf("stmt 1 = %#v", stmts[1])
	}
}

func Test_Parser_Precedence(t *testing.T) {
	stmts, err := ParseSnippet(`var x = 1 + 2 * 3 == 7 && !done`)
	if err != nil {
		t.Fatalf("ParseSnippet error: %v", err)
	}
	v := stmts[0].(*VarDecl)
	and, ok := v.Value.(*BinaryExpr)
	if !ok || and.Op != "&&" {
		t.Fatalf("top = %#v", v.Value)
	}
	eq, ok := and.L.(*BinaryExpr)
	if !ok || eq.Op != "==" {
		t.Fatalf("and.L = %#v", and.L)
	}
	add, ok := eq.L.(*BinaryExpr)
	if !ok || add.Op != "+" {
		t.Fatalf("eq.L = %#v", eq.L)
	}
	mul, ok := add.R.(*BinaryExpr)
	if !ok || mul.Op != "*" {
		t.Fatalf("add.R = %#v", add.R)
	}
	if _, ok := and.R.(*UnaryExpr); !ok {
		t.Fatalf("and.R = %#v", and.R)
	}
}

func Test_Parser_Grouping_Vs_Tuple(t *testing.T) {
	stmts, err := ParseSnippet(`var a = (1 + 2) * 3; var b = (1, 2); var c = ()`)
	if err != nil {
		t.Fatalf("ParseSnippet error: %v", err)
	}
	a := stmts[0].(*VarDecl)
	mul, ok := a.Value.(*BinaryExpr)
	if !ok || mul.Op != "*" {
		t.Fatalf("a = %#v", a.Value)
	}
	if _, ok := mul.L.(*BinaryExpr); !ok {
		t.Fatalf("grouped left = %#v", mul.L)
	}
	b := stmts[1].(*VarDecl)
	tup, ok := b.Value.(*TupleLit)
	if !ok || len(tup.Elems) != 2 {
		t.Fatalf("b = %#v", b.Value)
	}
	c := stmts[2].(*VarDecl)
	if tup, ok := c.Value.(*TupleLit); !ok || len(tup.Elems) != 0 {
		t.Fatalf("c = %#v", c.Value)
	}
}

func Test_Parser_PropertyChains_And_Calls(t *testing.T) {
	stmts, err := ParseSnippet(`var p = get_node("Hud/Score").position.x`)
	if err != nil {
		t.Fatalf("ParseSnippet error: %v", err)
	}
	v := stmts[0].(*VarDecl)
	outer, ok := v.Value.(*PropertyExpr)
	if !ok || outer.Name != "x" {
		t.Fatalf("outer = %#v", v.Value)
	}
	inner, ok := outer.X.(*PropertyExpr)
	if !ok || inner.Name != "position" {
		t.Fatalf("inner = %#v", outer.X)
	}
	call, ok := inner.X.(*CallExpr)
	if !ok || call.Name != "get_node" {
		t.Fatalf("call = %#v", inner.X)
	}
}

func Test_Parser_DirectiveExpr(t *testing.T) {
	stmts, err := ParseSnippet(`var r = #assets:ui:button.png`)
	if err != nil {
		t.Fatalf("ParseSnippet error: %v", err)
	}
	v := stmts[0].(*VarDecl)
	d, ok := v.Value.(*DirectiveLit)
	if !ok || d.Ref.Path() != "assets/ui/button.png" {
		t.Fatalf("value = %#v", v.Value)
	}
}

func Test_Parser_ErrorPosition(t *testing.T) {
	_, err := ParsePyzzaFile("fn broken( {\n}")
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("want *ParseError, got %v", err)
	}
	if pe.Line != 1 {
		t.Fatalf("error line = %d", pe.Line)
	}
}
