package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	gem "github.com/JagritGumber/gem"
)

const (
	appName      = "gem"
	historyFile  = ".gem_history"
	registryName = "scenes.registry"
	promptMain   = "==> "
)

var banner = fmt.Sprintf("Gem %s inspector\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands.", gem.Version)

func red(s string) string   { return "\x1b[31m" + s + "\x1b[0m" }
func green(s string) string { return "\x1b[32m" + s + "\x1b[0m" }
func blue(s string) string  { return "\x1b[94m" + s + "\x1b[0m" }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "version":
		fmt.Println(gem.Version)
		return
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`Gem %s (built %s)

Usage:
  %s run <project-dir> [-frames N] [-dt SECONDS] [-scene NAME]   Assemble and step a project.
  %s repl <project-dir>                                          Inspect a project interactively.
  %s fmt <file.gem> [-check]                                     Pretty-print a scene file.
  %s version                                                     Print the compiled version.

A project directory contains %s plus the .gem and .pyzza files it references.
`, gem.Version, gem.BuildDate, appName, appName, appName, appName, registryName)
}

// openProject installs a DirLoader-backed engine for a project directory and
// loads its registry.
func openProject(dir string, sink gem.CommandSink) (*gem.Engine, error) {
	regSrc, err := os.ReadFile(filepath.Join(dir, registryName))
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", registryName, err)
	}
	eng := gem.NewEngine(gem.DirLoader{Root: dir}, sink, nil)
	if err := eng.LoadRegistry(string(regSrc)); err != nil {
		return nil, err
	}
	return eng, nil
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	frames := fs.Int("frames", 1, "number of frames to step")
	dt := fs.Float64("dt", 1.0/60.0, "per-frame delta in seconds")
	scene := fs.String("scene", "", "scene to activate (default: registry default)")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s run <project-dir> [-frames N] [-dt SECONDS] [-scene NAME]\n", appName)
		return 2
	}

	rec := &gem.RecorderSink{}
	eng, err := openProject(fs.Arg(0), rec)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}

	if *scene != "" {
		err = eng.Activate(*scene)
	} else {
		err = eng.ActivateDefault()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}

	for i := 0; i < *frames; i++ {
		if err := eng.Step(*dt); err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			return 1
		}
	}
	eng.Shutdown()

	for _, c := range rec.Commands {
		fmt.Println(blue(c.String()))
	}
	for _, w := range eng.Warnings() {
		fmt.Fprintln(os.Stderr, red(w.String()))
	}
	return 0
}

// -----------------------------------------------------------------------------
// fmt
// -----------------------------------------------------------------------------

func cmdFmt(args []string) int {
	fs := flag.NewFlagSet("fmt", flag.ExitOnError)
	check := fs.Bool("check", false, "exit non-zero if the file is not already formatted")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s fmt <file.gem> [-check]\n", appName)
		return 2
	}

	file := fs.Arg(0)
	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, file, err)
		return 1
	}

	root, perr := gem.ParseGemFile(string(src))
	if perr != nil {
		fmt.Fprintln(os.Stderr, red(gem.WrapErrorWithName(perr, file, string(src)).Error()))
		return 1
	}

	formatted := gem.FormatGem(root)
	if *check {
		if formatted != string(src) {
			fmt.Fprintf(os.Stderr, "%s: not formatted\n", file)
			return 1
		}
		return 0
	}
	fmt.Print(formatted)
	return 0
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

const helpText = `
Inspector commands:
  :scenes           List registry scenes (* marks the default)
  :activate NAME    Destroy the current scene and activate NAME
  :switch NAME      Queue a scene switch for the next :step
  :step [SECONDS]   Advance one frame (default dt 0.016)
  :tree             Print the active scene's instance tree
  :cmds             Print and clear the commands emitted so far
  :warns            Print and clear accumulated warnings
  :quit             Exit

Anything else is parsed as Pyzza statements and syntax-checked.
`

func cmdRepl(args []string) (ret int) {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s repl <project-dir>\n", appName)
		return 2
	}

	rec := &gem.RecorderSink{}
	eng, err := openProject(args[0], rec)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}

	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			break
		}
		if err != nil {
			continue
		}
		code := strings.TrimSpace(line)
		if code == "" {
			continue
		}
		ln.AppendHistory(line)

		if strings.HasPrefix(code, ":") {
			if quit := replCommand(eng, rec, code); quit {
				return 0
			}
			continue
		}

		if _, perr := gem.ParseSnippet(code); perr != nil {
			fmt.Fprintln(os.Stderr, red(gem.WrapErrorWithSource(perr, code).Error()))
			continue
		}
		fmt.Println(green("ok"))
	}
	return 0
}

func replCommand(eng *gem.Engine, rec *gem.RecorderSink, code string) (quit bool) {
	fields := strings.Fields(code)
	switch fields[0] {
	case ":quit":
		return true
	case ":help":
		fmt.Print(helpText)
	case ":scenes":
		reg := eng.Registry()
		for _, name := range reg.Names() {
			id, _ := reg.Lookup(name)
			mark := "  "
			if name == reg.Default {
				mark = "* "
			}
			fmt.Printf("%s%s -> %s\n", mark, name, id.Path())
		}
	case ":activate":
		if len(fields) != 2 {
			fmt.Println("usage: :activate NAME")
			break
		}
		if err := eng.Activate(fields[1]); err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			break
		}
		fmt.Println(green("active: " + fields[1]))
	case ":switch":
		if len(fields) != 2 {
			fmt.Println("usage: :switch NAME")
			break
		}
		eng.Switch(fields[1])
		fmt.Println("queued; takes effect on the next :step")
	case ":step":
		dt := 0.016
		if len(fields) == 2 {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				fmt.Println("usage: :step [SECONDS]")
				break
			}
			dt = v
		}
		if err := eng.Step(dt); err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
		}
	case ":tree":
		sc := eng.Active()
		if sc == nil {
			fmt.Println("no active scene; use :activate")
			break
		}
		fmt.Printf("%s [%s]\n", sc.Name, sc.State())
		printTree(sc.Root, 0)
	case ":cmds":
		for _, c := range rec.Commands {
			fmt.Println(blue(c.String()))
		}
		rec.Reset()
	case ":warns":
		for _, w := range eng.Warnings() {
			fmt.Println(red(w.String()))
		}
	default:
		fmt.Println("unknown command. Type :help for commands.")
	}
	return false
}

func printTree(n *gem.GemInstance, depth int) {
	if n == nil {
		return
	}
	fmt.Printf("%s%s: %s\n", strings.Repeat("    ", depth), n.Name(), n.Type())
	for i := 0; i < n.ChildCount(); i++ {
		printTree(n.Child(i), depth+1)
	}
}
