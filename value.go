// value.go — the tagged value model shared by Gem property values and the
// Pyzza runtime.
//
// A Value is a small tagged sum in the style of a scripting-language runtime
// carrier: the Tag selects which Go type Data holds. Gem property parsing
// produces the literal/tuple/directive/path/call/ident shapes; expression
// evaluation additionally produces node handles (VTNode).
package gem

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueTag enumerates all kinds a Value may hold.
type ValueTag int

const (
	VTNull  ValueTag = iota // null (no payload)
	VTBool                  // bool
	VTInt                   // int64
	VTNum                   // float64
	VTStr                   // string
	VTTuple                 // []Value
	VTRef                   // ResourceID (from a '#...' directive)
	VTPath                  // string (from a path("...") literal)
	VTIdent                 // string (bare identifier in value position)
	VTCall                  // *CallValue (nested call, e.g. vec2(1, 2))
	VTFunc                  // *FuncValue (bound Pyzza function)
	VTNode                  // *GemInstance (runtime tree handle)
)

// CallValue is a nested call in property-value position. The arguments are
// themselves property values, not general expressions.
type CallValue struct {
	Name string
	Args []Value
}

// Value is the universal carrier. The Tag determines which dynamic type Data
// holds (see ValueTag).
type Value struct {
	Tag  ValueTag
	Data interface{}
}

// Null is the singleton null Value.
var Null = Value{Tag: VTNull}

// Constructors.
func Bool(b bool) Value       { return Value{Tag: VTBool, Data: b} }
func Int(n int64) Value       { return Value{Tag: VTInt, Data: n} }
func Num(f float64) Value     { return Value{Tag: VTNum, Data: f} }
func Str(s string) Value      { return Value{Tag: VTStr, Data: s} }
func Tuple(xs []Value) Value  { return Value{Tag: VTTuple, Data: xs} }
func Ref(id ResourceID) Value { return Value{Tag: VTRef, Data: id} }
func PathVal(p string) Value  { return Value{Tag: VTPath, Data: p} }
func IdentVal(name string) Value {
	return Value{Tag: VTIdent, Data: name}
}
func CallVal(name string, args []Value) Value {
	return Value{Tag: VTCall, Data: &CallValue{Name: name, Args: args}}
}
func NodeVal(n *GemInstance) Value { return Value{Tag: VTNode, Data: n} }

// AsBool/AsInt/AsStr/AsNum narrow with an ok flag. AsNum accepts both VTInt
// and VTNum (ints promote).
func (v Value) AsBool() (bool, bool) {
	if v.Tag == VTBool {
		return v.Data.(bool), true
	}
	return false, false
}

func (v Value) AsInt() (int64, bool) {
	if v.Tag == VTInt {
		return v.Data.(int64), true
	}
	return 0, false
}

func (v Value) AsNum() (float64, bool) {
	switch v.Tag {
	case VTInt:
		return float64(v.Data.(int64)), true
	case VTNum:
		return v.Data.(float64), true
	}
	return 0, false
}

func (v Value) AsStr() (string, bool) {
	if v.Tag == VTStr {
		return v.Data.(string), true
	}
	return "", false
}

// Equal compares two values structurally. Node and function values compare by
// identity; int and num compare within their own tag.
func (v Value) Equal(o Value) bool {
	if v.Tag != o.Tag {
		return false
	}
	switch v.Tag {
	case VTNull:
		return true
	case VTTuple:
		a, b := v.Data.([]Value), o.Data.([]Value)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case VTRef:
		return v.Data.(ResourceID).Equal(o.Data.(ResourceID))
	case VTCall:
		a, b := v.Data.(*CallValue), o.Data.(*CallValue)
		if a.Name != b.Name || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !a.Args[i].Equal(b.Args[i]) {
				return false
			}
		}
		return true
	default:
		return v.Data == o.Data
	}
}

// String renders the value in source form where one exists (property values
// round-trip through this rendering; see printer.go).
func (v Value) String() string {
	switch v.Tag {
	case VTNull:
		return "null"
	case VTBool:
		if v.Data.(bool) {
			return "true"
		}
		return "false"
	case VTInt:
		return strconv.FormatInt(v.Data.(int64), 10)
	case VTNum:
		return formatFloat(v.Data.(float64))
	case VTStr:
		return quoteString(v.Data.(string))
	case VTTuple:
		parts := make([]string, 0, len(v.Data.([]Value)))
		for _, e := range v.Data.([]Value) {
			parts = append(parts, e.String())
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case VTRef:
		return v.Data.(ResourceID).Directive()
	case VTPath:
		return "path(" + quoteString(v.Data.(string)) + ")"
	case VTIdent:
		return v.Data.(string)
	case VTCall:
		c := v.Data.(*CallValue)
		parts := make([]string, 0, len(c.Args))
		for _, a := range c.Args {
			parts = append(parts, a.String())
		}
		return c.Name + "(" + strings.Join(parts, ", ") + ")"
	case VTFunc:
		return "<fn>"
	case VTNode:
		n := v.Data.(*GemInstance)
		return fmt.Sprintf("<gem %s:%s>", n.Name(), n.Type())
	default:
		return "<unknown>"
	}
}

// formatFloat keeps a trailing ".0" on whole floats so a NUMBER literal never
// re-parses as an INTEGER.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
