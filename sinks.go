// sinks.go — the outward-facing command and input surfaces.
//
// Draw and audio statements do not render or play anything here; they emit
// commands to whatever CommandSink the host installed. Likewise key_down
// consults an InputSource supplied by the host. The defaults discard output
// and report no input, which keeps the engine usable headless.
package gem

// CommandSink receives draw and audio commands emitted by running scripts.
type CommandSink interface {
	EmitDraw(cmd string, args []Value)
	EmitAudio(cmd string, args []Value)
}

// InputSource answers input queries from running scripts.
type InputSource interface {
	KeyDown(name string) bool
}

// NullSink discards every command.
type NullSink struct{}

func (NullSink) EmitDraw(string, []Value)  {}
func (NullSink) EmitAudio(string, []Value) {}

// NullInput reports no key as held.
type NullInput struct{}

func (NullInput) KeyDown(string) bool { return false }

// Command is one recorded sink emission.
type Command struct {
	Channel string // "draw" or "audio"
	Name    string
	Args    []Value
}

func (c Command) String() string {
	s := c.Channel + "." + c.Name + "("
	for i, a := range c.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}

// RecorderSink captures commands in order. Used by tests and the inspector.
type RecorderSink struct {
	Commands []Command
}

func (r *RecorderSink) EmitDraw(cmd string, args []Value) {
	r.Commands = append(r.Commands, Command{Channel: "draw", Name: cmd, Args: args})
}

func (r *RecorderSink) EmitAudio(cmd string, args []Value) {
	r.Commands = append(r.Commands, Command{Channel: "audio", Name: cmd, Args: args})
}

// Reset drops everything recorded so far.
func (r *RecorderSink) Reset() {
	r.Commands = r.Commands[:0]
}

// MapInput reports keys from a set. Tests flip entries between steps.
type MapInput map[string]bool

func (m MapInput) KeyDown(name string) bool { return m[name] }
