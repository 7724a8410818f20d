// directive.go — resolution of `#a:b:c[.ext]` directives into ResourceIDs.
//
// Resolution is a pure function over the directive text: no filesystem access,
// no caching, no host state. Whether the named resource exists is a loader
// concern (assembler.go), surfaced there as a resource-not-found failure at
// load time rather than here at resolution time.
package gem

import (
	"fmt"
	"strings"
)

// DefaultExtension is appended when a directive's last segment carries none.
const DefaultExtension = "gem"

// ScriptExtension marks Pyzza script resources.
const ScriptExtension = "pyzza"

// ResourceID is the canonical identity of an external resource: an ordered
// folder path, a file stem, and an always-present extension. ResourceIDs are
// immutable value data; two directives with the same text always resolve to
// the same ResourceID.
type ResourceID struct {
	Folder []string
	Stem   string
	Ext    string
}

// Path renders the id as a slash path, e.g. "assets/ui/button.png".
func (r ResourceID) Path() string {
	if len(r.Folder) == 0 {
		return r.Stem + "." + r.Ext
	}
	return strings.Join(r.Folder, "/") + "/" + r.Stem + "." + r.Ext
}

// Directive renders the canonical '#' form. The default extension is left
// implicit so printing a parsed directive reproduces the usual spelling.
func (r ResourceID) Directive() string {
	segs := append(append([]string{}, r.Folder...), r.Stem)
	s := "#" + strings.Join(segs, ":")
	if r.Ext != DefaultExtension {
		s += "." + r.Ext
	}
	return s
}

// IsScript reports whether the id names a Pyzza script file.
func (r ResourceID) IsScript() bool { return r.Ext == ScriptExtension }

// Equal compares two ids structurally.
func (r ResourceID) Equal(o ResourceID) bool {
	if r.Stem != o.Stem || r.Ext != o.Ext || len(r.Folder) != len(o.Folder) {
		return false
	}
	for i := range r.Folder {
		if r.Folder[i] != o.Folder[i] {
			return false
		}
	}
	return true
}

// key is the canonical map/stack key for the id.
func (r ResourceID) key() string { return r.Path() }

// DirectiveErrKind discriminates directive resolution failures.
type DirectiveErrKind int

const (
	DirectiveInvalidSegment DirectiveErrKind = iota
	DirectiveEmpty
)

// DirectiveError reports a malformed directive path.
type DirectiveError struct {
	Kind    DirectiveErrKind
	Segment string
	Raw     string
}

func (e *DirectiveError) Error() string {
	switch e.Kind {
	case DirectiveEmpty:
		return fmt.Sprintf("directive %q has no segments", "#"+e.Raw)
	default:
		return fmt.Sprintf("directive %q: invalid segment %q", "#"+e.Raw, e.Segment)
	}
}

// ResolveDirective turns the raw path text of a DIRECTIVE token (everything
// after the '#', segments separated by ':' or '/') into a ResourceID.
//
// Rules, in order:
//  1. If the last segment contains a '.', it splits verbatim into stem and
//     extension.
//  2. Otherwise the default extension "gem" is appended.
//  3. Every segment must match [A-Za-z0-9_-]+; anything else (including an
//     empty segment from "a::b") is a DirectiveError. Paths that genuinely
//     need other characters use the path("...") literal form, which never
//     reaches this resolver.
func ResolveDirective(raw string) (ResourceID, error) {
	segs := splitDirective(raw)
	if len(segs) == 0 {
		return ResourceID{}, &DirectiveError{Kind: DirectiveEmpty, Raw: raw}
	}

	last := segs[len(segs)-1]
	folder := segs[:len(segs)-1]

	stem, ext := last, ""
	if i := strings.LastIndexByte(last, '.'); i >= 0 {
		stem, ext = last[:i], last[i+1:]
	}
	if ext == "" {
		ext = DefaultExtension
	}

	for _, s := range folder {
		if !validSegment(s) {
			return ResourceID{}, &DirectiveError{Kind: DirectiveInvalidSegment, Segment: s, Raw: raw}
		}
	}
	if !validSegment(stem) || !validSegment(ext) {
		bad := stem
		if validSegment(stem) {
			bad = ext
		}
		return ResourceID{}, &DirectiveError{Kind: DirectiveInvalidSegment, Segment: bad, Raw: raw}
	}

	id := ResourceID{Stem: stem, Ext: ext}
	if len(folder) > 0 {
		id.Folder = append([]string{}, folder...)
	}
	return id, nil
}

// splitDirective splits on both separators the lexer admits. Empty segments
// are preserved so "a::b" fails validation instead of collapsing.
func splitDirective(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(raw, "/", ":"), ":")
}

func validSegment(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		b := s[i]
		if isAlphaNum(b) || b == '-' {
			continue
		}
		return false
	}
	return true
}
