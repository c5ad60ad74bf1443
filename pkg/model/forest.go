package model

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// DefaultSeed seeds the forest and the splitter unless configured otherwise.
const DefaultSeed = 42

type ForestConfig struct {
	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int

	// MaxFeatures is the number of features tried per split, floor(sqrt(F)) when zero
	MaxFeatures int
	Seed        uint64

	// Workers bounds the number of trees fitted at once, GOMAXPROCS when zero
	Workers int
}

// Forest is a bagged ensemble of Gini trees with per-split feature subsampling.
type Forest struct {
	ForestConfig
	Trees       []*Tree
	NumFeatures int
	NumClasses  int
}

func NewForest(config ForestConfig) *Forest {
	if config.MinSamplesSplit < 2 {
		config.MinSamplesSplit = 2
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	return &Forest{ForestConfig: config}
}

// Fit trains NumTrees trees, each on a bootstrap sample of x. Tree seeds are drawn
// from Seed up front, so the result does not depend on Workers.
func (f *Forest) Fit(ctx context.Context, x [][]float64, y []int, numClasses int) error {
	if f.NumTrees < 1 {
		return fmt.Errorf("tree count must be at least 1, got %d: %w", f.NumTrees, ErrInvalidParameter)
	}
	if len(x) == 0 {
		return fmt.Errorf("empty training data: %w", ErrInvalidParameter)
	}
	if len(x) != len(y) {
		return fmt.Errorf("features and labels size mismatch (%d != %d): %w", len(x), len(y), ErrInvalidParameter)
	}
	numFeatures := len(x[0])
	if numFeatures == 0 {
		return fmt.Errorf("no feature columns: %w", ErrInvalidParameter)
	}
	for i, label := range y {
		if label < 0 || label >= numClasses {
			return fmt.Errorf("label %d at row %d outside [0,%d): %w", label, i, numClasses, ErrInvalidParameter)
		}
	}

	f.NumFeatures = numFeatures
	f.NumClasses = numClasses
	maxFeatures := f.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(numFeatures)))
	}
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	seeds := make([]uint64, f.NumTrees)
	master := rand.New(rand.NewSource(f.Seed))
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	trees := make([]*Tree, f.NumTrees)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.Workers)
	for i := range trees {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rnd := rand.New(rand.NewSource(seeds[i]))
			samples := make([]int, len(x))
			for j := range samples {
				samples[j] = rnd.Intn(len(x))
			}
			tree := &Tree{
				MaxDepth:        f.MaxDepth,
				MinSamplesSplit: f.MinSamplesSplit,
				MaxFeatures:     maxFeatures,
				NumFeatures:     numFeatures,
				NumClasses:      numClasses,
			}
			tree.Fit(x, y, samples, rnd)
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("forest training interrupted: %w", err)
	}
	f.Trees = trees
	return nil
}

// PredictProba averages the leaf distributions of all trees.
func (f *Forest) PredictProba(row []float64) []float64 {
	proba := make([]float64, f.NumClasses)
	for _, tree := range f.Trees {
		floats.Add(proba, tree.PredictProba(row))
	}
	floats.Scale(1/float64(len(f.Trees)), proba)
	return proba
}

// Predict returns the most probable class of every row; ties go to the lowest code.
func (f *Forest) Predict(x [][]float64) []int {
	predictions := make([]int, len(x))
	for i, row := range x {
		predictions[i] = floats.MaxIdx(f.PredictProba(row))
	}
	return predictions
}

// FeatureImportances averages the per-tree importances over trees that split at
// least once and renormalises them. When no tree split, every feature gets an
// equal share.
func (f *Forest) FeatureImportances() []float64 {
	importances := make([]float64, f.NumFeatures)
	for _, tree := range f.Trees {
		treeImportances := tree.FeatureImportances()
		if floats.Sum(treeImportances) == 0 {
			continue
		}
		floats.Add(importances, treeImportances)
	}
	total := floats.Sum(importances)
	if total == 0 {
		for i := range importances {
			importances[i] = 1 / float64(len(importances))
		}
		return importances
	}
	floats.Scale(1/total, importances)
	return importances
}
