package io

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"cuisine/pkg/model"
)

// DataSet is a view over a subset of the rows of a feature matrix.
type DataSet struct {
	Features    *mat.Dense
	Targets     []int
	Seed        uint64
	dataIndices []int
}

// NewDataSet copies x into a dense matrix. Splits of the data set share it.
func NewDataSet(x [][]float64, y []int, seed uint64) (*DataSet, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("cannot build a data set without rows: %w", model.ErrInvalidParameter)
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("features and targets size mismatch (%d != %d): %w", len(x), len(y), model.ErrInvalidParameter)
	}
	cols := len(x[0])
	if cols == 0 {
		return nil, fmt.Errorf("cannot build a data set without features: %w", model.ErrInvalidParameter)
	}
	data := make([]float64, 0, len(x)*cols)
	for i, row := range x {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d features, expected %d: %w", i, len(row), cols, model.ErrInvalidParameter)
		}
		data = append(data, row...)
	}
	dataIndices := make([]int, len(x))
	for i := range dataIndices {
		dataIndices[i] = i
	}
	return &DataSet{
		Features:    mat.NewDense(len(x), cols, data),
		Targets:     append([]int(nil), y...),
		Seed:        seed,
		dataIndices: dataIndices,
	}, nil
}

func newDataSetSplit(d *DataSet, indices []int) *DataSet {
	return &DataSet{Features: d.Features, Targets: d.Targets, Seed: d.Seed, dataIndices: indices}
}

func (d *DataSet) Size() int {
	return len(d.dataIndices)
}

// Indices returns the positions of the view's rows in the underlying matrix.
func (d *DataSet) Indices() []int {
	return append([]int(nil), d.dataIndices...)
}

// Rows returns the feature vectors of the view. The slices alias the matrix.
func (d *DataSet) Rows() [][]float64 {
	rows := make([][]float64, len(d.dataIndices))
	for i, idx := range d.dataIndices {
		rows[i] = d.Features.RawRowView(idx)
	}
	return rows
}

// Labels returns the targets of the view.
func (d *DataSet) Labels() []int {
	labels := make([]int, len(d.dataIndices))
	for i, idx := range d.dataIndices {
		labels[i] = d.Targets[idx]
	}
	return labels
}

// RandomSplit permutes the rows with a generator seeded from Seed and cuts the
// permutation into consecutive parts of the given sizes.
func (d *DataSet) RandomSplit(sizes ...int) []*DataSet {
	rnd := rand.New(rand.NewSource(d.Seed))
	perm := rnd.Perm(len(d.dataIndices))
	splits := make([]*DataSet, len(sizes))
	idx := 0
	for i := range sizes {
		splitIndices := make([]int, sizes[i])
		for j := range splitIndices {
			splitIndices[j] = d.dataIndices[perm[idx]]
			idx++
		}
		splits[i] = newDataSetSplit(d, splitIndices)
	}
	return splits
}

// TestSize is the number of test rows for a ratio: ceil(ratio*n).
func TestSize(n int, ratio float64) int {
	return int(math.Ceil(ratio*float64(n) - 1e-9))
}

// TrainTestSplit shuffles the rows and puts the first TestSize of them in test and
// the rest in train. The same data set, ratio and seed always give the same split.
func (d *DataSet) TrainTestSplit(ratio float64) (train, test *DataSet, err error) {
	if !(ratio > 0 && ratio < 1) {
		return nil, nil, fmt.Errorf("test ratio must be between 0 and 1, got %v: %w", ratio, model.ErrInvalidParameter)
	}
	n := d.Size()
	testSize := TestSize(n, ratio)
	trainSize := n - testSize
	if testSize < 1 || trainSize < 1 {
		return nil, nil, fmt.Errorf("test ratio %v on %d rows leaves %d train and %d test rows: %w",
			ratio, n, trainSize, testSize, model.ErrInvalidParameter)
	}
	splits := d.RandomSplit(testSize, trainSize)
	return splits[1], splits[0], nil
}
