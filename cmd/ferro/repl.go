package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"

	"github.com/ferrolang/ferro/lexer"
	"github.com/ferrolang/ferro/parser"
	"github.com/ferrolang/ferro/syntax"
)

// runRepl starts an interactive sandbox. Every line is a ferro snippet;
// snippets that do not declare functions are wrapped into fn main().
//
//	:lex <snippet>   print the token stream
//	:ast <snippet>   print the AST
//	:ir  <snippet>   print the quadruples (default)
//	:quit            leave
func runRepl(cfg Config) int {
	pterm.Info.Println("ferro sandbox — enter a snippet, :quit to leave")
	p, err := parser.NewCached(cfg.Tables)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	rl, err := readline.New("ferro> ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rl.Close()
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return 0
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		mode := "ir"
		switch {
		case line == ":quit" || line == ":q":
			return 0
		case strings.HasPrefix(line, ":lex "):
			mode, line = "lex", strings.TrimPrefix(line, ":lex ")
		case strings.HasPrefix(line, ":ast "):
			mode, line = "ast", strings.TrimPrefix(line, ":ast ")
		case strings.HasPrefix(line, ":ir "):
			line = strings.TrimPrefix(line, ":ir ")
		case strings.HasPrefix(line, ":"):
			pterm.Warning.Printf("unknown command %s\n", strings.Fields(line)[0])
			continue
		}
		evalSnippet(p, mode, line)
	}
}

func evalSnippet(p *parser.Parser, mode, snippet string) {
	if mode == "lex" {
		for _, tok := range lexer.New(snippet).All() {
			fmt.Println(tok)
		}
		return
	}
	source := snippet
	if !strings.HasPrefix(strings.TrimSpace(snippet), "fn ") {
		source = "fn main() { " + snippet + " }"
	}
	prog, _, quads, err := pipeline(p, source)
	if err != nil {
		pterm.Error.Println(err)
		return
	}
	if mode == "ast" {
		syntax.Fprint(os.Stdout, prog)
		return
	}
	for _, q := range quads {
		fmt.Println(q)
	}
}
