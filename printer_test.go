// printer_test.go
package gem

import "testing"

func Test_Printer_Canonical_Output(t *testing.T) {
	root := parseGem(t, `Main: Gem { width: 800 title: "hi" Child: LabelGem { } }`)
	want := `Main: Gem {
    width: 800
    title: "hi"
    Child: LabelGem {
    }
}
`
	if got := FormatGem(root); got != want {
		t.Fatalf("FormatGem:\n%s\nwant:\n%s", got, want)
	}
}

func Test_Printer_Link_Uses_Directive_Form(t *testing.T) {
	root := parseGem(t, `Start: ButtonGem { link: #example:start_button_logic.pyzza }`)
	want := `Start: ButtonGem {
    link: #example:start_button_logic.pyzza
}
`
	if got := FormatGem(root); got != want {
		t.Fatalf("FormatGem:\n%s\nwant:\n%s", got, want)
	}
}

func Test_Printer_Roundtrip(t *testing.T) {
	sources := []string{
		`Main: Gem { }`,
		`Main: Gem { a: 1 b: 2.5 c: "s" d: true }`,
		`Main: Gem { pos: (1, 2) empty: () one: (7) nested: ((1, 2), (3, 4)) }`,
		`Main: Gem { tint: rgba(255, 0, 0, 128) icon: path("ui icons/a b.png") }`,
		`Main: Gem { ref: #assets:ui:button.png link: #example:logic.pyzza }`,
		`
Main: Gem {
    Title: LabelGem { text: "Pyzza" }
    Start: ButtonGem {
        label: "Start"
        link: #example:start_button_logic.pyzza
    }
}
`,
	}
	for _, src := range sources {
		orig := parseGem(t, src)
		again := parseGem(t, FormatGem(orig))
		if !sameTree(orig, again) {
			t.Fatalf("round trip changed the tree\nsource:\n%s\nprinted:\n%s", src, FormatGem(orig))
		}
	}
}
