// printer.go — canonical text rendering for Gem trees.
//
// FormatGem is the inverse of ParseGemFile up to layout: parsing the printed
// text yields a structurally identical tree (names, types, property order,
// link, child order). Doc comments are not reproduced.
package gem

import "strings"

// FormatGem renders a Gem tree in canonical multi-line form.
func FormatGem(root *GemNode) string {
	w := &out{b: &strings.Builder{}}
	w.node(root)
	return w.b.String()
}

/* ---------- small writer with indentation ---------- */

type out struct {
	b     *strings.Builder
	depth int
}

func (w *out) line(s string) {
	w.b.WriteString(strings.Repeat("    ", w.depth))
	w.b.WriteString(s)
	w.b.WriteByte('\n')
}

func (w *out) node(n *GemNode) {
	w.line(n.Name + ": " + n.Type + " {")
	w.depth++
	for _, p := range n.Props {
		w.line(p.Key + ": " + p.Value.String())
	}
	if n.Link != nil {
		w.line("link: " + n.Link.Directive())
	}
	for _, c := range n.Children {
		w.node(c)
	}
	w.depth--
	w.line("}")
}
