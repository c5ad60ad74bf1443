package model

import (
	"fmt"
	"sort"
)

// TargetColumn holds the label the classifier learns to predict.
const TargetColumn = "Cuisines"

// Binary columns hold "Yes"/"No" flags in the source data.
const (
	OnlineDeliveryColumn = "Has Online delivery"
	TableBookingColumn   = "Has Table booking"
)

// CandidateFeatures lists, in training order, every column that may feed the model.
var CandidateFeatures = []string{
	"Average Cost for two",
	"Price range",
	OnlineDeliveryColumn,
	TableBookingColumn,
	"Votes",
}

// BinaryColumns lists the candidate features stored as "Yes"/"No".
var BinaryColumns = []string{OnlineDeliveryColumn, TableBookingColumn}

// IsBinaryColumn reports whether name is one of the "Yes"/"No" columns.
func IsBinaryColumn(name string) bool {
	for _, col := range BinaryColumns {
		if col == name {
			return true
		}
	}
	return false
}

// NameMap implements a bidirectional mapping between a name and a dense index.
type NameMap struct {
	NameToIndex map[string]int
	IndexToName []string
}

// FitNameMap assigns dense indexes to the sorted distinct values of names.
func FitNameMap(names []string) NameMap {
	seen := make(map[string]struct{}, len(names))
	distinct := make([]string, 0)
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		distinct = append(distinct, name)
	}
	sort.Strings(distinct)

	m := NameMap{
		NameToIndex: make(map[string]int, len(distinct)),
		IndexToName: distinct,
	}
	for i, name := range distinct {
		m.NameToIndex[name] = i
	}
	return m
}

func (f NameMap) Size() int {
	return len(f.IndexToName)
}

func (f NameMap) ContainsName(name string) (int, bool) {
	index, ok := f.NameToIndex[name]
	return index, ok
}

// Names returns the mapped names ordered by index.
func (f NameMap) Names() []string {
	return append([]string(nil), f.IndexToName...)
}

// Encode maps every name to its index.
func (f NameMap) Encode(names []string) ([]int, error) {
	codes := make([]int, len(names))
	for i, name := range names {
		code, ok := f.NameToIndex[name]
		if !ok {
			return nil, &UnseenCategoryError{Column: TargetColumn, Value: name}
		}
		codes[i] = code
	}
	return codes, nil
}

// Decode maps an index back to its name.
func (f NameMap) Decode(index int) (string, error) {
	if index < 0 || index >= len(f.IndexToName) {
		return "", &UnseenCategoryError{Column: TargetColumn, Value: fmt.Sprintf("code %d", index)}
	}
	return f.IndexToName[index], nil
}

// FeatureSet is the ordered list of feature columns a model is bound to.
// Columns[i] is the position of Names[i] in the source header.
type FeatureSet struct {
	Names   []string
	Columns []int
}

// NegotiateFeatures keeps the candidate features present in header, in candidate order.
func NegotiateFeatures(header []string) FeatureSet {
	position := make(map[string]int, len(header))
	for i, col := range header {
		if _, dup := position[col]; !dup {
			position[col] = i
		}
	}
	var fs FeatureSet
	for _, name := range CandidateFeatures {
		if i, ok := position[name]; ok {
			fs.Names = append(fs.Names, name)
			fs.Columns = append(fs.Columns, i)
		}
	}
	return fs
}

func (fs FeatureSet) Size() int {
	return len(fs.Names)
}

// Metadata binds a model to the schema it was trained on.
type Metadata struct {
	Columns []string

	// Features are the matrix columns, in matrix order
	Features FeatureSet

	// TargetColumn points to the column in the data row that contains the prediction target
	TargetColumn int

	// TargetMap contains a mapping of target category names to target category indexes
	TargetMap NameMap
}

func NewMetadata(columns []string, features FeatureSet, targets NameMap) *Metadata {
	target := -1
	for i, col := range columns {
		if col == TargetColumn {
			target = i
			break
		}
	}
	return &Metadata{
		Columns:      columns,
		Features:     features,
		TargetColumn: target,
		TargetMap:    targets,
	}
}

func (d *Metadata) FeatureCount() int {
	return d.Features.Size()
}

func (d *Metadata) ClassCount() int {
	return d.TargetMap.Size()
}
