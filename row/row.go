// Package row encodes and decodes table rows against a catalog.Schema
// (spec §4.6), generalizing the teacher's hardcoded table/row.go into
// a schema-driven codec: every column's byte range comes from
// column.Column.Offset/Size rather than a fixed struct layout.
package row

import (
	"encoding/binary"

	"lithdb/catalog"
	"lithdb/column"
	"lithdb/enginerr"
)

// Value is one column's runtime value: either an int32 or a string,
// tagged by the schema at decode time (spec §9 "row polymorphism").
type Value struct {
	Int32 int32
	Text  string
}

// IntValue and TextValue build Values for callers assembling a row.
func IntValue(v int32) Value  { return Value{Int32: v} }
func TextValue(v string) Value { return Value{Text: v} }

// Serialize packs values into a RowSize-byte buffer per schema's
// column layout: int32 columns as little-endian 4 bytes, text columns
// as fixed-width NUL-terminated/padded byte ranges (spec §4.6).
func Serialize(schema *catalog.Schema, values []Value) ([]byte, error) {
	cols := schema.ColumnList()
	if len(values) != len(cols) {
		return nil, enginerr.New(enginerr.KindValueCountMismatch, "table %q: expected %d values, got %d", schema.Name, len(cols), len(values))
	}
	buf := make([]byte, schema.RowSize)
	for i, col := range cols {
		dst := buf[col.Offset : col.Offset+col.Size]
		switch col.Type {
		case column.TypeInt32:
			binary.LittleEndian.PutUint32(dst, uint32(values[i].Int32))
		case column.TypeText:
			encodeText(dst, values[i].Text)
		default:
			return nil, enginerr.NewFatal("serialize: unknown column type", nil)
		}
	}
	return buf, nil
}

// Deserialize unpacks a RowSize-byte slot (or a larger MaxRowSize
// slot, of which only the leading RowSize bytes are meaningful) into
// one Value per column, in schema order.
func Deserialize(schema *catalog.Schema, buf []byte) []Value {
	cols := schema.ColumnList()
	values := make([]Value, len(cols))
	for i, col := range cols {
		src := buf[col.Offset : col.Offset+col.Size]
		switch col.Type {
		case column.TypeInt32:
			values[i] = IntValue(int32(binary.LittleEndian.Uint32(src)))
		case column.TypeText:
			values[i] = TextValue(decodeText(src))
		}
	}
	return values
}

// PrimaryKeyOf extracts the u32 B+ tree key this row would be stored
// under: the declared primary-key column's value if the schema has
// one, else the caller-supplied autoKey (spec §3's rowid fallback).
func PrimaryKeyOf(schema *catalog.Schema, values []Value, autoKey uint32) uint32 {
	if schema.HasPrimaryKey() {
		return uint32(values[schema.PKColumn].Int32)
	}
	return autoKey
}

func encodeText(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	b := []byte(s)
	if len(b) > len(dst)-1 {
		b = b[:len(dst)-1]
	}
	copy(dst, b)
}

func decodeText(src []byte) string {
	n := 0
	for n < len(src) && src[n] != 0 {
		n++
	}
	return string(src[:n])
}
