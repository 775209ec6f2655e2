package models

import (
	"fmt"
	"strings"
)

// ColumnDef defines a single column for a table. The Columns vars below are
// the single source of truth for table schemas and INSERT column lists.
type ColumnDef struct {
	// Name is the column name.
	Name string

	// Type is the ClickHouse data type (e.g. "UInt32", "String", "DateTime64(3)").
	Type string

	// Codec is the optional compression codec. Leave empty for none.
	Codec string
}

// SQL returns the full column definition for CREATE TABLE statements.
func (c ColumnDef) SQL() string {
	if c.Codec != "" {
		return fmt.Sprintf("%s %s CODEC(%s)", c.Name, c.Type, c.Codec)
	}
	return fmt.Sprintf("%s %s", c.Name, c.Type)
}

// ColumnsToSchemaSQL converts a column list to a CREATE TABLE schema body.
func ColumnsToSchemaSQL(columns []ColumnDef) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, col.SQL())
	}
	return strings.Join(parts, ",\n\t\t\t")
}

// ColumnsToNameList extracts the column names, for INSERT statements.
func ColumnsToNameList(columns []ColumnDef) string {
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		names = append(names, col.Name)
	}
	return strings.Join(names, ", ")
}
