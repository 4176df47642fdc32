// Command lithdb is the REPL consuming layer over package engine (spec
// §6 "Command surface"). It is not part of the core storage engine;
// parsing and dispatch live entirely in this package, the way the
// teacher's main.go/command.go/statement.go stayed outside table/.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"lithdb/config"
	"lithdb/engine"
)

func main() {
	path := "lithdb.db"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	opts := config.New(path, config.WithWAL(""))
	e, err := engine.Open(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "db > ",
		HistoryFile: "/tmp/.lithdb_history",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	runREPL(e, rl)
}

func runREPL(e *engine.Engine, rl *readline.Instance) {
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			e.Close()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if handleMetaCommand(e, line) == MetaCommandUnrecognizedCommand {
				fmt.Printf("unrecognized command %q\n", line)
			}
			continue
		}

		stmt, result, detail := prepareStatement(line)
		switch result {
		case PrepareUnrecognizedStatement:
			fmt.Printf("unrecognized statement at start of %q\n", line)
			continue
		case PrepareSyntaxError:
			fmt.Println("syntax error:", detail)
			continue
		}

		if stmt.Type == StatementCreateTable {
			if !readColumnDefs(rl, stmt) {
				continue
			}
		}

		execute(e, stmt)
	}
}

// readColumnDefs reads cap(stmt.Columns) follow-up lines, one per
// column, prompting "  col N/M > " the way a multi-line statement
// editor would (spec §6: "followed by N_COLS lines").
func readColumnDefs(rl *readline.Instance, stmt *Statement) bool {
	n := cap(stmt.Columns)
	for i := 0; i < n; i++ {
		rl.SetPrompt(fmt.Sprintf("  col %d/%d > ", i+1, n))
		line, err := rl.Readline()
		if err != nil {
			rl.SetPrompt("db > ")
			return false
		}
		col, err := readColumnDef(line)
		if err != nil {
			fmt.Println("syntax error:", err)
			rl.SetPrompt("db > ")
			return false
		}
		stmt.Columns = append(stmt.Columns, col)
	}
	rl.SetPrompt("db > ")
	return true
}
