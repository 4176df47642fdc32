package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"lithdb/column"
	"lithdb/engine"
	"lithdb/enginerr"
	"lithdb/row"
)

// MetaCommandResult mirrors the teacher's command.go enum.
type MetaCommandResult int

const (
	MetaCommandSuccess MetaCommandResult = iota
	MetaCommandUnrecognizedCommand
)

// handleMetaCommand recognizes the REPL's leading-dot commands (spec
// §6: `.tables`, `.btree TABLE`, `.exit`), plus the supplemented
// `.help`.
func handleMetaCommand(e *engine.Engine, line string) MetaCommandResult {
	fields := strings.Fields(line)
	switch fields[0] {
	case ".exit":
		if err := e.Close(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	case ".tables":
		for _, name := range e.TableNames() {
			fmt.Println(name)
		}
	case ".btree":
		if len(fields) != 2 {
			fmt.Println("usage: .btree TABLE")
			return MetaCommandSuccess
		}
		dump, err := e.DumpTree(fields[1])
		if err != nil {
			printEngineError(err)
			return MetaCommandSuccess
		}
		fmt.Print(dump)
	case ".help":
		printHelp()
	default:
		return MetaCommandUnrecognizedCommand
	}
	return MetaCommandSuccess
}

func printHelp() {
	fmt.Println(`lithdb REPL commands:
  create table NAME N_COLS         followed by N_COLS lines "NAME TYPE [SIZE] [PRIMARY KEY]"
  insert [into] TABLE [values] V1 V2 ...
  select (*|COL...) from TABLE [where COL OP VAL [and VAL2]]   OP in = < > <= >= between
  .tables                          list defined tables
  .btree TABLE                     dump the table's B+ tree structure
  .help                            show this message
  .exit                            close the database and quit`)
}

// execute runs a parsed Statement against e, printing results the way
// the teacher's executeStatement prints placeholders — except here
// each branch does the real work instead of a stub message.
func execute(e *engine.Engine, stmt *Statement) {
	switch stmt.Type {
	case StatementCreateTable:
		executeCreateTable(e, stmt)
	case StatementInsert:
		executeInsert(e, stmt)
	case StatementSelect:
		executeSelect(e, stmt)
	}
}

func executeCreateTable(e *engine.Engine, stmt *Statement) {
	specs := make([]engine.ColumnSpec, len(stmt.Columns))
	for i, c := range stmt.Columns {
		specs[i] = engine.ColumnSpec{Name: c.Name, Type: c.Type, Size: c.Size, IsPrimaryKey: c.IsPrimaryKey}
	}
	if err := e.CreateTable(stmt.TableName, specs); err != nil {
		printEngineError(err)
		return
	}
	fmt.Printf("table %q created\n", stmt.TableName)
}

func executeInsert(e *engine.Engine, stmt *Statement) {
	schema, err := e.Schema(stmt.InsertInto)
	if err != nil {
		printEngineError(err)
		return
	}
	cols := schema.ColumnList()
	if len(stmt.InsertValues) != len(cols) {
		printEngineError(enginerr.New(enginerr.KindValueCountMismatch, "table %q: expected %d values, got %d", stmt.InsertInto, len(cols), len(stmt.InsertValues)))
		return
	}
	values := make([]row.Value, len(cols))
	for i, col := range cols {
		switch col.Type {
		case column.TypeInt32:
			n, err := strconv.ParseInt(stmt.InsertValues[i], 10, 32)
			if err != nil {
				fmt.Printf("column %q: %q is not a valid integer\n", col.Name, stmt.InsertValues[i])
				return
			}
			values[i] = row.IntValue(int32(n))
		default: // column.TypeText
			values[i] = row.TextValue(stmt.InsertValues[i])
		}
	}
	if err := e.Insert(stmt.InsertInto, values); err != nil {
		printEngineError(err)
		return
	}
	fmt.Println("1 row inserted")
}

func executeSelect(e *engine.Engine, stmt *Statement) {
	schema, err := e.Schema(stmt.SelectFrom)
	if err != nil {
		printEngineError(err)
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	header := make([]string, len(schema.ColumnList()))
	for i, col := range schema.ColumnList() {
		header[i] = col.Name
	}
	table.SetHeader(header)

	visit := func(key uint32, values []row.Value) error {
		cells := make([]string, len(values))
		for i, v := range values {
			if schema.ColumnList()[i].Type == column.TypeText {
				cells[i] = v.Text
			} else {
				cells[i] = strconv.Itoa(int(v.Int32))
			}
		}
		table.Append(cells)
		return nil
	}

	if !stmt.HasWhere {
		err = e.Scan(stmt.SelectFrom, visit)
	} else {
		lo, hi := whereBounds(stmt.Where)
		err = e.RangeScan(stmt.SelectFrom, lo, hi, visit)
	}
	if err != nil {
		printEngineError(err)
		return
	}
	table.Render()
}

// whereBounds translates a single-column Where clause into the
// inclusive [lo, hi] range RangeScan expects (spec §4.4/§6).
func whereBounds(w Where) (uint32, uint32) {
	switch w.Op {
	case OpEQ:
		return uint32(w.Lo), uint32(w.Lo)
	case OpLT:
		if w.Lo <= 0 {
			return 1, 0 // empty range
		}
		return 0, uint32(w.Lo - 1)
	case OpLE:
		return 0, uint32(w.Lo)
	case OpGT:
		return uint32(w.Lo + 1), ^uint32(0)
	case OpGE:
		return uint32(w.Lo), ^uint32(0)
	case OpBetween:
		return uint32(w.Lo), uint32(w.Hi)
	default:
		return 0, ^uint32(0)
	}
}

func printEngineError(err error) {
	if f, ok := err.(*enginerr.Fatal); ok {
		fmt.Fprintln(os.Stderr, f)
		os.Exit(1)
	}
	fmt.Println("error:", err)
}
