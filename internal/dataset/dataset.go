package dataset

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// ColumnType is the inferred storage type of a column. The set mirrors the
// DuckDB types the sandbox creates the df table with.
type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeDouble  ColumnType = "double"
	TypeBoolean ColumnType = "boolean"
	TypeVarchar ColumnType = "varchar"
)

func (t ColumnType) IsNumeric() bool {
	return t == TypeInteger || t == TypeDouble
}

type Column struct {
	Name string
	Type ColumnType
}

// Dataset is an immutable in-memory table: a header of typed columns and raw
// string cell values. Empty strings represent missing values.
type Dataset struct {
	Name    string
	Columns []Column
	Rows    [][]string
}

func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// NumericColumns returns the names of all numeric columns in header order.
func (d *Dataset) NumericColumns() []string {
	var cols []string
	for _, c := range d.Columns {
		if c.Type.IsNumeric() {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func (d *Dataset) columnIndex(name string) int {
	for i, c := range d.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnType looks up a column's inferred type; varchar for unknown names.
func (d *Dataset) ColumnType(name string) ColumnType {
	if i := d.columnIndex(name); i >= 0 {
		return d.Columns[i].Type
	}
	return TypeVarchar
}

// MatchColumns returns the columns whose lower-cased name, or that name with
// underscores replaced by spaces, occurs as a substring of the lower-cased
// question. Header order is preserved.
func (d *Dataset) MatchColumns(question string) []string {
	q := strings.ToLower(question)
	var matched []string
	for _, c := range d.Columns {
		name := strings.ToLower(c.Name)
		if strings.Contains(q, name) || strings.Contains(q, strings.ReplaceAll(name, "_", " ")) {
			matched = append(matched, c.Name)
		}
	}
	return matched
}

// Store opens datasets by name from a fixed directory, dispatching on file
// extension. Each Open reads the file fresh; datasets are never cached.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) Open(name string) (*Dataset, error) {
	path := filepath.Join(s.Dir, name)

	var (
		ds  *Dataset
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		ds, err = LoadCSVFile(path)
	case ".xlsx", ".xls":
		ds, err = LoadXLSXFile(path)
	case ".html", ".htm":
		ds, err = LoadHTMLFile(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", name, err)
	}
	ds.Name = name
	return ds, nil
}

// LoadStream parses an uploaded file by extension, for payloads that never
// touch disk.
func LoadStream(r io.Reader, name string) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		ds, err = LoadCSV(r)
	case ".xlsx", ".xls":
		ds, err = LoadXLSX(r)
	case ".html", ".htm":
		ds, err = LoadHTML(r)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", name, err)
	}
	ds.Name = name
	return ds, nil
}

// inferColumns assigns each column the narrowest type that fits every
// non-empty value in it. A column with no non-empty values stays varchar.
func inferColumns(header []string, rows [][]string) []Column {
	cols := make([]Column, len(header))
	for i, name := range header {
		cols[i] = Column{Name: name, Type: inferColumnType(rows, i)}
	}
	return cols
}

func inferColumnType(rows [][]string, idx int) ColumnType {
	seen := false
	isInt, isFloat, isBool := true, true, true

	for _, row := range rows {
		if idx >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		seen = true

		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			switch strings.ToLower(v) {
			case "true", "false":
			default:
				isBool = false
			}
		}
	}

	if !seen {
		return TypeVarchar
	}
	switch {
	case isInt:
		return TypeInteger
	case isFloat:
		return TypeDouble
	case isBool:
		return TypeBoolean
	default:
		return TypeVarchar
	}
}
