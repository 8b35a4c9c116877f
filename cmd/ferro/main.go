/*
Command ferro is the command-line shell of the ferro compiler front-end.

	ferro [flags] <command> [file]

Commands:

	build-tables   construct the LR(1) parse tables and persist them
	lex <file>     print the token stream, one token per line
	parse <file>   print the abstract syntax tree
	trace <file>   print the LR parse trace as a table
	check <file>   parse and semantically check; print OK or a diagnostic
	gen-ir <file>  emit quadruples, one per line, tab-separated
	repl           interactive sandbox

Exit status is 0 on success and 1 on any stage failure or I/O error.
*/
package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"

	"github.com/ferrolang/ferro"
	"github.com/ferrolang/ferro/ir"
	"github.com/ferrolang/ferro/lexer"
	"github.com/ferrolang/ferro/lr"
	"github.com/ferrolang/ferro/parser"
	"github.com/ferrolang/ferro/sema"
	"github.com/ferrolang/ferro/syntax"
)

// tracer traces with key 'ferro.cli'.
func tracer() tracing.Trace {
	return tracing.Select("ferro.cli")
}

var (
	flagConfig = pflag.StringP("config", "c", "", "Path to a ferro.toml configuration file")
	flagTables = pflag.StringP("tables", "t", "", "Path of the parser table artifact")
	flagTrace  = pflag.StringP("trace", "T", "", "Trace level [Debug|Info|Error]")
)

func usage() {
	fmt.Fprintf(os.Stderr,
		"Usage: ferro [flags] build-tables | lex | parse | trace | check | gen-ir | repl [file]\n")
	pflag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

func run() int {
	pflag.Usage = usage
	pflag.Parse()
	gtrace.SyntaxTracer = gologadapter.New()
	cfg := loadConfig(*flagConfig)
	if *flagTables != "" {
		cfg.Tables = *flagTables
	}
	if *flagTrace != "" {
		cfg.Trace = *flagTrace
	}
	applyTraceLevel(cfg.Trace)

	args := pflag.Args()
	if len(args) == 0 {
		usage()
		return 1
	}
	switch cmd := args[0]; cmd {
	case "build-tables":
		return cmdBuildTables(cfg)
	case "repl":
		return runRepl(cfg)
	case "lex", "parse", "trace", "check", "gen-ir":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "error: missing source file argument")
			return 1
		}
		source, err := os.ReadFile(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: cannot read %s: %v\n", args[1], err)
			return 1
		}
		return cmdOnSource(cmd, string(source), cfg)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", cmd)
		usage()
		return 1
	}
}

func cmdBuildTables(cfg Config) int {
	g, _, lrgen, err := syntax.BuildTables()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := lr.SaveTables(cfg.Tables, g, lrgen.ActionTable(), lrgen.GotoTable()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	pterm.Success.Printf("%d states, %d shift/reduce and %d reduce/reduce collisions resolved\n",
		lrgen.CFSM().Size(), lrgen.ShiftReduceCount, lrgen.ReduceReduceCount)
	pterm.Info.Printf("tables persisted to %s\n", cfg.Tables)
	return 0
}

func cmdOnSource(cmd, source string, cfg Config) int {
	tokens := lexer.New(source).All()
	if cmd == "lex" {
		for _, tok := range tokens {
			fmt.Println(tok)
		}
		return 0
	}
	p, err := parser.NewCached(cfg.Tables)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	var rows []parser.TraceRow
	var hook func(parser.TraceRow)
	if cmd == "trace" {
		hook = func(row parser.TraceRow) { rows = append(rows, row) }
	}
	prog, err := p.Parse(tokens, hook)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	switch cmd {
	case "parse":
		syntax.Fprint(os.Stdout, prog)
		return 0
	case "trace":
		renderTrace(rows)
		return 0
	}
	info, err := sema.Check(prog)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if cmd == "check" {
		fmt.Println("OK")
		return 0
	}
	quads, err := ir.Generate(prog, info)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, q := range quads {
		fmt.Println(q)
	}
	return 0
}

// renderTrace prints the parse protocol as a terminal table. Long stacks
// are elided from the left, long input from the right.
func renderTrace(rows []parser.TraceRow) {
	data := pterm.TableData{{"states", "symbols", "input", "action"}}
	for _, row := range rows {
		data = append(data, []string{
			elideLeft(joinInts(row.States), 28),
			elideLeft(joinStrings(row.Symbols), 36),
			elideRight(joinStrings(row.Input), 24),
			row.Action,
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		tracer().Errorf("cannot render trace table: %v", err)
	}
}

func joinInts(vals []int) string {
	s := ""
	for i, v := range vals {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%d", v)
	}
	return s
}

func joinStrings(vals []string) string {
	s := ""
	for i, v := range vals {
		if i > 0 {
			s += " "
		}
		s += v
	}
	return s
}

func elideLeft(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "…" + s[len(s)-max:]
}

func elideRight(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// pipeline runs lex → parse → check → gen-ir on a snippet and returns
// the stages' products; used by the REPL.
func pipeline(p *parser.Parser, source string) (*syntax.Program, *sema.Info, []ir.Quad, error) {
	tokens := lexer.New(source).All()
	for _, tok := range tokens {
		if tok.Kind == ferro.Error {
			return nil, nil, nil, ferro.Errorf(tok.Line, tok.Col, "unrecognized input %q", tok.Value)
		}
	}
	prog, err := p.Parse(tokens, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	info, err := sema.Check(prog)
	if err != nil {
		return nil, nil, nil, err
	}
	quads, err := ir.Generate(prog, info)
	if err != nil {
		return nil, nil, nil, err
	}
	return prog, info, quads, nil
}
