// gem_test.go
package gem

import (
	"reflect"
	"testing"
)

func parseGem(t *testing.T, src string) *GemNode {
	t.Helper()
	root, err := ParseGemFile(src)
	if err != nil {
		t.Fatalf("ParseGemFile error: %v\nsource:\n%s", err, src)
	}
	return root
}

func wantParseErr(t *testing.T, src string, kind ParseErrKind) *ParseError {
	t.Helper()
	_, err := ParseGemFile(src)
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("want *ParseError, got %v\nsource:\n%s", err, src)
	}
	if pe.Kind != kind {
		t.Fatalf("want kind %v, got %v (%s)", kind, pe.Kind, pe.Msg)
	}
	return pe
}

func Test_GemParser_SingleRoot_WithProps(t *testing.T) {
	root := parseGem(t, `
/// The main menu scene.
Main: Gem {
    title: "Pyzza Demo"
    position: (100, 200)
    scale: 1.5
    visible: true
}
`)
	if root.Name != "Main" || root.Type != "Gem" {
		t.Fatalf("root = %s:%s", root.Name, root.Type)
	}
	if root.Doc != "The main menu scene." {
		t.Fatalf("doc = %q", root.Doc)
	}
	if v, ok := root.Prop("title"); !ok || !v.Equal(Str("Pyzza Demo")) {
		t.Fatalf("title = %v", v)
	}
	if v, _ := root.Prop("position"); !v.Equal(Tuple([]Value{Int(100), Int(200)})) {
		t.Fatalf("position = %v", v)
	}
	if v, _ := root.Prop("scale"); !v.Equal(Num(1.5)) {
		t.Fatalf("scale = %v", v)
	}
	if v, _ := root.Prop("visible"); !v.Equal(Bool(true)) {
		t.Fatalf("visible = %v", v)
	}
}

func Test_GemParser_CaseDispatch_ChildrenAndProps(t *testing.T) {
	root := parseGem(t, `
Main: Gem {
    width: 800
    Title: LabelGem { text: "hello" }
    Start: ButtonGem { label: "Start" }
}
`)
	if len(root.Children) != 2 {
		t.Fatalf("children = %d", len(root.Children))
	}
	if root.Children[0].Name != "Title" || root.Children[1].Name != "Start" {
		t.Fatalf("child order: %s, %s", root.Children[0].Name, root.Children[1].Name)
	}
	if len(root.Props) != 1 {
		t.Fatalf("props = %v", root.Props)
	}
}

func Test_GemParser_Link(t *testing.T) {
	root := parseGem(t, `
Start: ButtonGem {
    link: #example:start_button_logic.pyzza
}
`)
	if root.Link == nil {
		t.Fatalf("link not captured")
	}
	if root.Link.Path() != "example/start_button_logic.pyzza" {
		t.Fatalf("link = %q", root.Link.Path())
	}
}

func Test_GemParser_MultipleRoots_Fails(t *testing.T) {
	wantParseErr(t, `
A: Gem { }
B: Gem { }
`, ParseMultipleRoots)
}

func Test_GemParser_MissingRoot_Fails(t *testing.T) {
	wantParseErr(t, "", ParseMissingRoot)
	wantParseErr(t, "// only a comment\n", ParseMissingRoot)
}

func Test_GemParser_DuplicateLink_Fails(t *testing.T) {
	wantParseErr(t, `
Start: ButtonGem {
    link: #a:b
    link: #c:d
}
`, ParseDuplicateLink)
}

func Test_GemParser_BareDirective_Fails(t *testing.T) {
	pe := wantParseErr(t, `
Main: Gem {
    #example:orphan
}
`, ParseUnexpectedDirective)
	if pe.Line != 3 {
		t.Fatalf("error line = %d", pe.Line)
	}
}

func Test_GemParser_LinkValue_MustBeDirective(t *testing.T) {
	wantParseErr(t, `
Main: Gem {
    link: "not/a/directive"
}
`, ParseInvalidValue)
}

func Test_GemParser_NegativeNumbers_And_NestedCalls(t *testing.T) {
	root := parseGem(t, `
Main: Gem {
    offset: (-4, -2.5)
    tint: rgba(255, 0, 0, 128)
    icon: path("ui icons/play.png")
    ref: #assets:ui:button.png
}
`)
	if v, _ := root.Prop("offset"); !v.Equal(Tuple([]Value{Int(-4), Num(-2.5)})) {
		t.Fatalf("offset = %v", v)
	}
	if v, _ := root.Prop("tint"); v.Tag != VTCall || v.Data.(*CallValue).Name != "rgba" {
		t.Fatalf("tint = %v", v)
	}
	if v, _ := root.Prop("icon"); !v.Equal(PathVal("ui icons/play.png")) {
		t.Fatalf("icon = %v", v)
	}
	if v, _ := root.Prop("ref"); v.Tag != VTRef {
		t.Fatalf("ref = %v", v)
	}
}

func Test_GemParser_Inline_Equals_Multiline(t *testing.T) {
	inline := parseGem(t, `Main: Gem { width: 800 Child: LabelGem { text: "x" } }`)
	multi := parseGem(t, `
Main: Gem {
    width: 800
    Child: LabelGem {
        text: "x"
    }
}
`)
	if !sameTree(inline, multi) {
		t.Fatalf("inline and multi-line forms parse differently:\n%s\nvs\n%s",
			FormatGem(inline), FormatGem(multi))
	}
}

// sameTree compares structure: names, types, property values in order, link,
// child order. Doc text and positions are layout, not structure.
func sameTree(a, b *GemNode) bool {
	if a.Name != b.Name || a.Type != b.Type || len(a.Props) != len(b.Props) ||
		len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Props {
		if a.Props[i].Key != b.Props[i].Key || !a.Props[i].Value.Equal(b.Props[i].Value) {
			return false
		}
	}
	if (a.Link == nil) != (b.Link == nil) {
		return false
	}
	if a.Link != nil && !a.Link.Equal(*b.Link) {
		return false
	}
	for i := range a.Children {
		if !sameTree(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func Test_GemParser_PropOrder_Preserved(t *testing.T) {
	root := parseGem(t, `Main: Gem { b: 1 a: 2 c: 3 }`)
	keys := make([]string, 0, len(root.Props))
	for _, p := range root.Props {
		keys = append(keys, p.Key)
	}
	if !reflect.DeepEqual(keys, []string{"b", "a", "c"}) {
		t.Fatalf("property order = %v", keys)
	}
}
