// assembler_test.go
package gem

import (
	"strings"
	"testing"
)

func assemble(t *testing.T, files MapLoader, raw string) (*RuntimeScene, []Warning) {
	t.Helper()
	a := NewAssembler(files)
	scene, warns, err := a.Assemble("test", resolve(t, raw))
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	return scene, warns
}

func wantAssemblyErr(t *testing.T, files MapLoader, raw string, kind AssemblyErrKind) *AssemblyError {
	t.Helper()
	a := NewAssembler(files)
	_, _, err := a.Assemble("test", resolve(t, raw))
	ae, ok := err.(*AssemblyError)
	if !ok {
		t.Fatalf("want *AssemblyError, got %v", err)
	}
	if ae.Kind != kind {
		t.Fatalf("want kind %v, got %v (%s)", kind, ae.Kind, ae.Msg)
	}
	return ae
}

func Test_Assembler_Simple_Scene(t *testing.T) {
	files := MapLoader{
		"scenes/main.gem": `
Main: Gem {
    Title: LabelGem { text: "Pyzza" }
    Start: ButtonGem { label: "Start" }
}
`,
	}
	scene, warns := assemble(t, files, "scenes:main")
	if len(warns) != 0 {
		t.Fatalf("warnings = %v", warns)
	}
	if scene.State() != StateLoading {
		t.Fatalf("fresh scene state = %v", scene.State())
	}
	if scene.Root.Name() != "Main" || scene.Root.ChildCount() != 2 {
		t.Fatalf("root = %s, %d children", scene.Root.Name(), scene.Root.ChildCount())
	}
	if scene.Root.ID() == "" || scene.Root.ID() == scene.Root.Child(0).ID() {
		t.Fatalf("instance ids not unique")
	}
}

func Test_Assembler_ScriptLink_BindsHandlers(t *testing.T) {
	files := MapLoader{
		"scenes/main.gem": `
Main: Gem {
    Start: ButtonGem { link: #scripts:button.pyzza }
}
`,
		"scripts/button.pyzza": `
extend ButtonGem

fn on_ready() { draw.ready("go") }
fn helper() { }
`,
	}
	scene, _ := assemble(t, files, "scenes:main")
	start := scene.Root.Child(0)
	if start.script == nil {
		t.Fatalf("script did not bind")
	}
	if _, ok := start.script.handlers["ready"]; !ok {
		t.Fatalf("on_ready not registered: %v", start.script.handlers)
	}
	if _, ok := start.script.funcs["helper"]; !ok {
		t.Fatalf("helper not registered as a plain function")
	}
}

func Test_Assembler_ExtendMismatch_Fails(t *testing.T) {
	files := MapLoader{
		"scenes/main.gem":      `Main: Gem { link: #scripts:button.pyzza }`,
		"scripts/button.pyzza": "extend ButtonGem\nfn on_ready() { }",
	}
	wantAssemblyErr(t, files, "scenes:main", AssemblyScriptMismatch)
}

func Test_Assembler_NestedGemLink_Grafts_Subtree(t *testing.T) {
	files := MapLoader{
		"scenes/main.gem": `
Main: Gem {
    Hud: Gem { link: #ui:panel }
}
`,
		"ui/panel.gem": `
Panel: LabelGem { text: "hud" }
`,
	}
	scene, _ := assemble(t, files, "scenes:main")
	hud := scene.Root.Child(0)
	if hud.ChildCount() != 1 || hud.Child(0).Name() != "Panel" {
		t.Fatalf("grafted subtree missing: %d children", hud.ChildCount())
	}
	if hud.Child(0).Path() != "/Main/Hud/Panel" {
		t.Fatalf("path = %q", hud.Child(0).Path())
	}
}

func Test_Assembler_ResourceNotFound(t *testing.T) {
	files := MapLoader{
		"scenes/main.gem": `Main: Gem { link: #scripts:missing.pyzza }`,
	}
	ae := wantAssemblyErr(t, files, "scenes:main", AssemblyResourceNotFound)
	if ae.ID.Path() != "scripts/missing.pyzza" {
		t.Fatalf("error id = %q", ae.ID.Path())
	}
	wantAssemblyErr(t, MapLoader{}, "scenes:absent", AssemblyResourceNotFound)
}

func Test_Assembler_CyclicLink(t *testing.T) {
	files := MapLoader{
		"a.gem": `A: Gem { link: #b }`,
		"b.gem": `B: Gem { link: #a }`,
	}
	ae := wantAssemblyErr(t, files, "a", AssemblyCyclicLink)
	if !strings.Contains(ae.Msg, "a.gem -> b.gem -> a.gem") {
		t.Fatalf("cycle chain = %q", ae.Msg)
	}
}

func Test_Assembler_SelfLink_Is_A_Cycle(t *testing.T) {
	files := MapLoader{
		"loop.gem": `Loop: Gem { link: #loop }`,
	}
	wantAssemblyErr(t, files, "loop", AssemblyCyclicLink)
}

func Test_Assembler_SharedLink_Is_Not_A_Cycle(t *testing.T) {
	// the same resource reachable twice through different branches is fine;
	// only revisiting it on one resolution chain is a cycle
	files := MapLoader{
		"main.gem": `
Main: Gem {
    A: Gem { link: #shared }
    B: Gem { link: #shared }
}
`,
		"shared.gem": `Shared: LabelGem { }`,
	}
	scene, _ := assemble(t, files, "main")
	if scene.Root.Child(0).ChildCount() != 1 || scene.Root.Child(1).ChildCount() != 1 {
		t.Fatalf("shared subtree should graft under both branches")
	}
}

func Test_Assembler_TypeUnknown(t *testing.T) {
	files := MapLoader{
		"main.gem": `Main: Gem { Hero: Player { } }`,
	}
	wantAssemblyErr(t, files, "main", AssemblyTypeUnknown)
}

func Test_Assembler_EntityDecl_Resolves_Type(t *testing.T) {
	files := MapLoader{
		"main.gem": `
Main: Gem {
    link: #game.pyzza
    Hero: Player { }
}
`,
		"game.pyzza": `
entity Player {
    on ready { draw.born(self.name) }
}
`,
	}
	scene, _ := assemble(t, files, "main")
	if _, ok := scene.types["Player"]; !ok {
		t.Fatalf("entity type not collected")
	}
	if scene.Root.Child(0).Type() != "Player" {
		t.Fatalf("hero type = %q", scene.Root.Child(0).Type())
	}
}

func Test_Assembler_UnknownEvent_Warns(t *testing.T) {
	files := MapLoader{
		"main.gem": `Main: Gem { link: #logic.pyzza }`,
		"logic.pyzza": `
on ready { }
on collided(other) { }
`,
	}
	_, warns := assemble(t, files, "main")
	if len(warns) != 1 {
		t.Fatalf("warnings = %v", warns)
	}
	if warns[0].Kind != WarnUnknownEvent || !strings.Contains(warns[0].Msg, "collided") {
		t.Fatalf("warning = %+v", warns[0])
	}
}

func Test_Assembler_ComponentDecl_Resolves_ScenePlacement(t *testing.T) {
	files := MapLoader{
		"main.gem": `Main: Gem { link: #logic.pyzza }`,
		"logic.pyzza": `
component Health(max)

scene Main {
    H: Health(100)
}
`,
	}
	scene, warns := assemble(t, files, "main")
	if len(warns) != 0 {
		t.Fatalf("warnings = %v", warns)
	}
	if _, ok := scene.components["Health"]; !ok {
		t.Fatalf("component declaration not collected")
	}
}

func Test_Assembler_UnknownComponentUse_Fails(t *testing.T) {
	files := MapLoader{
		"main.gem": `Main: Gem { Hero: Player { link: #logic.pyzza } }`,
		"logic.pyzza": `
entity Player {
    component Shield(5)
}
`,
	}
	ae := wantAssemblyErr(t, files, "main", AssemblyTypeUnknown)
	if !strings.Contains(ae.Msg, "Shield") {
		t.Fatalf("error = %q", ae.Msg)
	}
}

func Test_Assembler_SceneInstance_UnknownType_Fails(t *testing.T) {
	files := MapLoader{
		"main.gem": `Main: Gem { link: #logic.pyzza }`,
		"logic.pyzza": `
scene Board {
    Hero: Ghost(1, 2)
}
`,
	}
	wantAssemblyErr(t, files, "main", AssemblyTypeUnknown)
}
