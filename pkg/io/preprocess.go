package io

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"cuisine/pkg/model"
)

// Unknown replaces every missing cell before any other transform.
const Unknown = "Unknown"

// ErrNonNumeric marks a feature cell that does not hold a finite number.
var ErrNonNumeric = errors.New("non-numeric value")

// DataError records a row left out of the feature matrix.
type DataError struct {
	Line   int
	Column string
	Err    error
}

func (e DataError) Error() string {
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e DataError) Unwrap() error {
	return e.Err
}

// Processed is the table after missing-value filling and binary mapping, together
// with the feature matrix built from it.
type Processed struct {
	Header []string

	// Rows is a copy of the source rows with missing cells set to Unknown and
	// binary columns mapped to "1"/"0" where the mapping is defined
	Rows     [][]string
	Features model.FeatureSet

	// X, Targets and Lines hold one entry per row that produced a valid feature vector
	X       [][]float64
	Targets []string
	Lines   []int

	Errors []DataError

	// Filled counts the cells replaced by Unknown
	Filled int
}

// MapBinary maps "Yes" to 1 and "No" to 0. Any other value is rejected.
func MapBinary(column, value string) (float64, error) {
	switch value {
	case "Yes":
		return 1, nil
	case "No":
		return 0, nil
	default:
		return 0, &model.UnseenCategoryError{Column: column, Value: value}
	}
}

// Preprocess derives the model inputs from t without modifying it. Rows whose
// feature cells cannot be converted are left out of X and reported in Errors.
func Preprocess(t *Table) (*Processed, error) {
	target, ok := t.ColumnIndex(model.TargetColumn)
	if !ok {
		return nil, fmt.Errorf("target column %s not found in data header: %w", model.TargetColumn, model.ErrInvalidParameter)
	}
	features := model.NegotiateFeatures(t.Header)
	if features.Size() == 0 {
		return nil, fmt.Errorf("none of the feature columns %v found in data header: %w", model.CandidateFeatures, model.ErrInvalidParameter)
	}

	p := &Processed{
		Header:   append([]string(nil), t.Header...),
		Rows:     make([][]string, t.NumRows()),
		Features: features,
	}

	binary := make([]bool, t.NumColumns())
	for i, col := range t.Header {
		binary[i] = model.IsBinaryColumn(col)
	}

	for r := range p.Rows {
		row := make([]string, t.NumColumns())
		for c := range row {
			value := t.Cell(r, c)
			if IsMissing(value) {
				value = Unknown
				p.Filled++
			}
			if binary[c] {
				if mapped, err := MapBinary(t.Header[c], value); err == nil {
					value = strconv.FormatFloat(mapped, 'f', -1, 64)
				}
			}
			row[c] = value
		}
		p.Rows[r] = row

		vector, dataErr := featureVector(t, r, row, features)
		if dataErr != nil {
			p.Errors = append(p.Errors, *dataErr)
			continue
		}
		p.X = append(p.X, vector)
		p.Targets = append(p.Targets, row[target])
		p.Lines = append(p.Lines, t.Line(r))
	}

	if len(p.X) == 0 {
		return nil, fmt.Errorf("no usable rows out of %d (%d rejected): %w", t.NumRows(), len(p.Errors), model.ErrInvalidParameter)
	}
	return p, nil
}

func featureVector(t *Table, r int, row []string, features model.FeatureSet) ([]float64, *DataError) {
	vector := make([]float64, features.Size())
	for i, col := range features.Columns {
		name := features.Names[i]
		if model.IsBinaryColumn(name) {
			raw := t.Cell(r, col)
			if IsMissing(raw) {
				raw = Unknown
			}
			value, err := MapBinary(name, raw)
			if err != nil {
				return nil, &DataError{Line: t.Line(r), Column: name, Err: err}
			}
			vector[i] = value
			continue
		}
		value, err := strconv.ParseFloat(row[col], 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, &DataError{Line: t.Line(r), Column: name, Err: fmt.Errorf("%q: %w", row[col], ErrNonNumeric)}
		}
		vector[i] = value
	}
	return vector, nil
}

// RejectedByColumn counts rejected rows per offending column.
func (p *Processed) RejectedByColumn() map[string]int {
	counts := make(map[string]int)
	for _, dataErr := range p.Errors {
		counts[dataErr.Column]++
	}
	return counts
}

// FeatureStat describes the observed range of one feature.
type FeatureStat struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// FeatureStats computes min, max and mean of every feature over X.
func (p *Processed) FeatureStats() []FeatureStat {
	result := make([]FeatureStat, p.Features.Size())
	column := make([]float64, len(p.X))
	for i, name := range p.Features.Names {
		for r, row := range p.X {
			column[r] = row[i]
		}
		result[i] = FeatureStat{
			Name: name,
			Min:  floats.Min(column),
			Max:  floats.Max(column),
			Mean: stat.Mean(column, nil),
		}
	}
	return result
}
