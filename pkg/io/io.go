package io

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DataLoadError reports a dataset that could not be read or parsed.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("error loading data from %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// Column dtypes, named after their dataframe counterparts.
const (
	Int64   = "int64"
	Float64 = "float64"
	Object  = "object"
)

// naValues are the cell texts read as missing.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {}, "-NaN": {}, "-nan": {},
	"1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// IsMissing reports whether a raw cell is read as a missing value.
func IsMissing(value string) bool {
	_, ok := naValues[value]
	return ok
}

type LoadOptions struct {
	// Comma is the field delimiter, ',' when zero
	Comma rune

	// Encoding is the text encoding of the file: utf-8 (default), latin-1 or windows-1252
	Encoding string
}

// Table is a dataset held in memory as text cells. Tables are never modified after
// loading.
type Table struct {
	Path   string
	Header []string
	rows   [][]string
	lines  []int
	dtypes []string
}

// LoadTable reads a delimited file whose first line is a header.
func LoadTable(path string, opts LoadOptions) (*Table, error) {
	decoder, err := textDecoder(opts.Encoding)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}

	inputFile, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: fmt.Errorf("error opening file: %w", err)}
	}
	defer inputFile.Close()

	table, err := ReadTable(transform.NewReader(inputFile, decoder), opts.Comma)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	table.Path = path
	return table, nil
}

// ReadTable parses already decoded text.
func ReadTable(input io.Reader, comma rune) (*Table, error) {
	reader := csv.NewReader(input)
	reader.Comma = ','
	if comma != 0 {
		reader.Comma = comma
	}

	//First line is expected to be a header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading data header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := &Table{Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading data: %w", err)
		}
		line, _ := reader.FieldPos(0)
		table.rows = append(table.rows, record)
		table.lines = append(table.lines, line)
	}
	table.dtypes = inferDtypes(header, table.rows)
	return table, nil
}

func textDecoder(name string) (transform.Transformer, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported text encoding %q", name)
	}
}

func inferDtypes(header []string, rows [][]string) []string {
	dtypes := make([]string, len(header))
	for col := range header {
		isInt, isFloat, hasMissing, hasValue := true, true, false, false
		for _, row := range rows {
			value := row[col]
			if IsMissing(value) {
				hasMissing = true
				continue
			}
			hasValue = true
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				isInt = false
			}
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				isFloat = false
				break
			}
		}
		switch {
		case !hasValue:
			dtypes[col] = Float64
		case isInt && !hasMissing:
			dtypes[col] = Int64
		case isFloat:
			dtypes[col] = Float64
		default:
			dtypes[col] = Object
		}
	}
	return dtypes
}

func (t *Table) NumRows() int {
	return len(t.rows)
}

func (t *Table) NumColumns() int {
	return len(t.Header)
}

// ColumnIndex returns the position of the first column called name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, col := range t.Header {
		if col == name {
			return i, true
		}
	}
	return -1, false
}

// Dtype returns the inferred dtype of column i.
func (t *Table) Dtype(i int) string {
	return t.dtypes[i]
}

// Cell returns the raw text of a cell.
func (t *Table) Cell(row, col int) string {
	return t.rows[row][col]
}

// Line returns the source line a row started on.
func (t *Table) Line(row int) int {
	return t.lines[row]
}

// Head returns a copy of the first n rows.
func (t *Table) Head(n int) [][]string {
	if n > len(t.rows) {
		n = len(t.rows)
	}
	head := make([][]string, n)
	for i := range head {
		head[i] = append([]string(nil), t.rows[i]...)
	}
	return head
}

type ColumnSummary struct {
	Name    string `json:"name"`
	Dtype   string `json:"dtype"`
	Missing int    `json:"missing"`
}

// Summary is the overview of a table shown before training.
type Summary struct {
	Path       string          `json:"path"`
	NumRows    int             `json:"rows"`
	NumColumns int             `json:"columns"`
	Columns    []ColumnSummary `json:"column_summary"`
	Header     []string        `json:"header"`
	Preview    [][]string      `json:"preview"`
}

// Describe summarises the table, keeping the first previewRows rows.
func (t *Table) Describe(previewRows int) Summary {
	columns := make([]ColumnSummary, len(t.Header))
	for i, name := range t.Header {
		columns[i] = ColumnSummary{Name: name, Dtype: t.dtypes[i]}
	}
	for _, row := range t.rows {
		for i, value := range row {
			if IsMissing(value) {
				columns[i].Missing++
			}
		}
	}
	return Summary{
		Path:       t.Path,
		NumRows:    t.NumRows(),
		NumColumns: t.NumColumns(),
		Columns:    columns,
		Header:     append([]string(nil), t.Header...),
		Preview:    t.Head(previewRows),
	}
}
