package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"cuisine/pkg/io"
	"cuisine/pkg/model"
)

type TrainingParameters struct {
	NumTrees int
	MaxDepth int
	RndSeed  uint64

	// Workers bounds the trees fitted concurrently, GOMAXPROCS when zero
	Workers int
}

// Train fits a forest on the training view and binds it to the schema in metaData.
func Train(ctx context.Context, train *io.DataSet, metaData *model.Metadata, params TrainingParameters) (*model.Model, error) {
	if train.Size() == 0 {
		return nil, fmt.Errorf("no data to train: %w", model.ErrInvalidParameter)
	}

	forest := model.NewForest(model.ForestConfig{
		NumTrees: params.NumTrees,
		MaxDepth: params.MaxDepth,
		Seed:     params.RndSeed,
		Workers:  params.Workers,
	})

	start := time.Now()
	if err := forest.Fit(ctx, train.Rows(), train.Labels(), metaData.ClassCount()); err != nil {
		return nil, fmt.Errorf("error training forest: %w", err)
	}

	depth := 0
	for _, tree := range forest.Trees {
		if d := tree.Depth(); d > depth {
			depth = d
		}
	}
	log.Info().
		Int("Trees", params.NumTrees).
		Int("Rows", train.Size()).
		Int("Features", metaData.FeatureCount()).
		Int("Classes", metaData.ClassCount()).
		Int("MaxDepth", depth).
		Dur("Elapsed", time.Since(start)).
		Msg("Forest trained")

	return &model.Model{
		MetaData: metaData,
		Forest:   forest,
	}, nil
}
