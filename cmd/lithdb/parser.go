package main

import (
	"fmt"
	"strconv"
	"strings"

	"lithdb/column"
)

// PrepareResult mirrors the teacher's command.go enum, generalized
// from two statement kinds to three and carrying a detail message
// instead of only a not-recognized/success pair.
type PrepareResult int

const (
	PrepareSuccess PrepareResult = iota
	PrepareUnrecognizedStatement
	PrepareSyntaxError
)

// prepareStatement parses one input line into a Statement (spec §6
// "Command surface"). It recognizes three statement keywords and
// falls through to PrepareUnrecognizedStatement otherwise, the same
// shape as the teacher's prepareStatement but schema-driven rather
// than hardcoded.
func prepareStatement(line string) (*Statement, PrepareResult, string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, PrepareUnrecognizedStatement, ""
	}
	switch strings.ToLower(fields[0]) {
	case "create":
		return prepareCreateTable(fields)
	case "insert":
		return prepareInsert(fields)
	case "select":
		return prepareSelect(fields)
	default:
		return nil, PrepareUnrecognizedStatement, ""
	}
}

// prepareCreateTable parses "create table NAME N_COLS"; the caller is
// responsible for then reading N_COLS follow-up lines of "NAME TYPE
// [SIZE] [PRIMARY KEY]" via readColumnDef.
func prepareCreateTable(fields []string) (*Statement, PrepareResult, string) {
	if len(fields) != 4 || strings.ToLower(fields[1]) != "table" {
		return nil, PrepareSyntaxError, "usage: create table NAME N_COLS"
	}
	n, err := strconv.Atoi(fields[3])
	if err != nil || n <= 0 {
		return nil, PrepareSyntaxError, "N_COLS must be a positive integer"
	}
	return &Statement{
		Type:      StatementCreateTable,
		TableName: fields[2],
		Columns:   make([]ColumnDef, 0, n),
	}, PrepareSuccess, ""
}

// readColumnDef parses one "NAME TYPE [SIZE] [PRIMARY KEY]" line.
func readColumnDef(line string) (ColumnDef, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ColumnDef{}, fmt.Errorf("usage: NAME TYPE [SIZE] [PRIMARY KEY]")
	}
	cd := ColumnDef{Name: fields[0]}
	switch strings.ToUpper(fields[1]) {
	case "INT":
		cd.Type = column.TypeInt32
		cd.Size = 4
		fields = fields[2:]
	case "TEXT":
		cd.Type = column.TypeText
		if len(fields) < 3 {
			return ColumnDef{}, fmt.Errorf("TEXT column %q needs a SIZE", cd.Name)
		}
		size, err := strconv.Atoi(fields[2])
		if err != nil || size <= 0 {
			return ColumnDef{}, fmt.Errorf("TEXT column %q: invalid SIZE", cd.Name)
		}
		cd.Size = uint32(size)
		fields = fields[3:]
	default:
		return ColumnDef{}, fmt.Errorf("unknown column type %q", fields[1])
	}
	if len(fields) == 2 && strings.ToUpper(fields[0]) == "PRIMARY" && strings.ToUpper(fields[1]) == "KEY" {
		cd.IsPrimaryKey = true
	} else if len(fields) != 0 {
		return ColumnDef{}, fmt.Errorf("unexpected trailing tokens %q", strings.Join(fields, " "))
	}
	return cd, nil
}

// prepareInsert parses "insert [into] TABLE [values] V1 V2 …".
func prepareInsert(fields []string) (*Statement, PrepareResult, string) {
	rest := fields[1:]
	if len(rest) > 0 && strings.ToLower(rest[0]) == "into" {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return nil, PrepareSyntaxError, "usage: insert [into] TABLE [values] V1 V2 ..."
	}
	table := rest[0]
	rest = rest[1:]
	if len(rest) > 0 && strings.ToLower(rest[0]) == "values" {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return nil, PrepareSyntaxError, "insert needs at least one value"
	}
	return &Statement{
		Type:         StatementInsert,
		InsertInto:   table,
		InsertValues: rest,
	}, PrepareSuccess, ""
}

// prepareSelect parses "select (*|COL...) from TABLE [where COL OP VAL
// [and VAL2]]" (spec §6). The column list is accepted but not kept:
// select always returns every column. A where clause always filters on
// the table's key (primary key or rowid), the only column the storage
// layer can range-scan (spec §4.4); the column it names is not checked.
func prepareSelect(fields []string) (*Statement, PrepareResult, string) {
	idx := indexOfLower(fields, "from")
	if idx < 0 || idx == len(fields)-1 {
		return nil, PrepareSyntaxError, "usage: select (*|COL...) from TABLE [where COL OP VAL [and VAL2]]"
	}
	stmt := &Statement{Type: StatementSelect, SelectFrom: fields[idx+1]}

	rest := fields[idx+2:]
	if len(rest) == 0 {
		return stmt, PrepareSuccess, ""
	}
	if strings.ToLower(rest[0]) != "where" {
		return nil, PrepareSyntaxError, "expected 'where' after table name"
	}
	rest = rest[1:]
	if len(rest) < 3 {
		return nil, PrepareSyntaxError, "usage: where COL OP VAL [and VAL2]"
	}
	// rest[0] names the filtered column; the engine only supports
	// filtering by key, so the column name is accepted but not
	// validated, here or by the caller: the filter applies to the
	// table's key whatever column is named.
	op := rest[1]
	lo, err := strconv.ParseInt(rest[2], 10, 64)
	if err != nil {
		return nil, PrepareSyntaxError, "where value must be an integer"
	}
	w := Where{Lo: lo}
	switch op {
	case "=":
		w.Op = OpEQ
	case "<":
		w.Op = OpLT
	case "<=":
		w.Op = OpLE
	case ">":
		w.Op = OpGT
	case ">=":
		w.Op = OpGE
	case "between":
		if len(rest) != 5 || strings.ToLower(rest[3]) != "and" {
			return nil, PrepareSyntaxError, "usage: where COL between LO and HI"
		}
		hi, err := strconv.ParseInt(rest[4], 10, 64)
		if err != nil {
			return nil, PrepareSyntaxError, "where value must be an integer"
		}
		w.Op = OpBetween
		w.Hi = hi
	default:
		return nil, PrepareSyntaxError, fmt.Sprintf("unsupported operator %q", op)
	}
	stmt.HasWhere = true
	stmt.Where = w
	return stmt, PrepareSuccess, ""
}

func indexOfLower(fields []string, target string) int {
	for i, f := range fields {
		if strings.ToLower(f) == target {
			return i
		}
	}
	return -1
}
