package pkg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cuisine/pkg/io"
	"cuisine/pkg/model"
)

// Params are the inputs of one pipeline run.
type Params struct {
	DataFile  string
	Load      io.LoadOptions
	Trees     int
	TestRatio float64
	Seed      uint64
	MaxDepth  int
	Workers   int
}

// Dataset describes a loaded data file and what preprocessing kept of it.
type Dataset struct {
	Summary      io.Summary       `json:"summary"`
	Features     []string         `json:"features"`
	Usable       int              `json:"usable_rows"`
	Rejected     map[string]int   `json:"rejected"`
	Filled       int              `json:"filled_cells"`
	FeatureStats []io.FeatureStat `json:"feature_stats"`
	Errors       []io.DataError   `json:"-"`

	// Problem explains why no model can be trained on the file
	Problem string `json:"problem,omitempty"`
}

// Run is the outcome of loading, training and evaluating with one set of Params.
type Run struct {
	ID          string
	Params      Params
	Dataset     *Dataset
	Labels      []string
	TrainSize   int
	TestSize    int
	Model       *model.Model
	Evaluation  *Evaluation
	TableCached bool
	ModelCached bool
}

// Pipeline owns the caches shared between runs.
type Pipeline struct {
	tables *TableCache
	models *ModelCache
}

func NewPipeline(tableCacheSize, modelCacheSize int) (*Pipeline, error) {
	tables, err := NewTableCache(tableCacheSize)
	if err != nil {
		return nil, err
	}
	models, err := NewModelCache(modelCacheSize)
	if err != nil {
		return nil, err
	}
	return &Pipeline{tables: tables, models: models}, nil
}

// Describe loads the data file and summarises it. A file that loads but cannot be
// preprocessed is still described, with the reason in Problem.
func (p *Pipeline) Describe(path string, opts io.LoadOptions, previewRows int) (*Dataset, error) {
	entry, _, err := p.tables.Get(path, opts)
	if err != nil {
		return nil, err
	}
	return describe(entry, previewRows), nil
}

func describe(entry *TableEntry, previewRows int) *Dataset {
	d := &Dataset{Summary: entry.Table.Describe(previewRows)}
	if proc := entry.Processed; proc != nil {
		d.Features = proc.Features.Names
		d.Usable = len(proc.X)
		d.Rejected = proc.RejectedByColumn()
		d.Filled = proc.Filled
		d.FeatureStats = proc.FeatureStats()
		d.Errors = proc.Errors
	}
	if entry.PreprocessErr != nil {
		d.Problem = entry.PreprocessErr.Error()
	}
	return d
}

// Run trains and evaluates a model, reusing cached tables and models when the
// inputs are unchanged.
func (p *Pipeline) Run(ctx context.Context, params Params) (*Run, error) {
	if params.Trees < 1 {
		return nil, fmt.Errorf("tree count must be at least 1, got %d: %w", params.Trees, model.ErrInvalidParameter)
	}
	run := &Run{ID: uuid.New().String(), Params: params}
	logger := log.With().Str("Run", run.ID).Logger()

	entry, hit, err := p.tables.Get(params.DataFile, params.Load)
	if err != nil {
		return nil, err
	}
	if entry.PreprocessErr != nil {
		return nil, fmt.Errorf("error preprocessing %s: %w", params.DataFile, entry.PreprocessErr)
	}
	run.TableCached = hit
	run.Dataset = describe(entry, 0)
	if !hit {
		printDataErrors(entry.Processed.Errors)
	}
	proc := entry.Processed

	labels := model.FitNameMap(proc.Targets)
	targets, err := labels.Encode(proc.Targets)
	if err != nil {
		return nil, fmt.Errorf("error encoding targets: %w", err)
	}
	run.Labels = labels.Names()

	data, err := io.NewDataSet(proc.X, targets, params.Seed)
	if err != nil {
		return nil, err
	}
	train, test, err := data.TrainTestSplit(params.TestRatio)
	if err != nil {
		return nil, err
	}
	run.TrainSize, run.TestSize = train.Size(), test.Size()
	logger.Info().
		Int("Rows", data.Size()).
		Int("Train", run.TrainSize).
		Int("Test", run.TestSize).
		Int("Classes", labels.Size()).
		Msg("Data split")

	metaData := model.NewMetadata(proc.Header, proc.Features, labels)
	key := NewModelKey(params, metaData, train)
	run.Model, run.ModelCached, err = p.models.GetOrTrain(ctx, key, func(ctx context.Context) (*model.Model, error) {
		return Train(ctx, train, metaData, TrainingParameters{
			NumTrees: params.Trees,
			MaxDepth: params.MaxDepth,
			RndSeed:  params.Seed,
			Workers:  params.Workers,
		})
	})
	if err != nil {
		return nil, err
	}

	run.Evaluation, err = Evaluate(run.Model, test)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Bool("TableCached", run.TableCached).
		Bool("ModelCached", run.ModelCached).
		Float64("Accuracy", run.Evaluation.Accuracy).
		Msg("Run complete")
	return run, nil
}

// Invalidate forgets the cached tables of path. Models trained on the old content
// stay cached; their keys can no longer be produced from the new content.
func (p *Pipeline) Invalidate(path string) {
	removed := p.tables.Invalidate(path)
	log.Info().Str("Path", path).Int("Entries", removed).Msg("Dataset cache invalidated")
}

// Purge empties both caches.
func (p *Pipeline) Purge() {
	p.tables.Purge()
	p.models.Purge()
}

// Predict classifies one submitted record with the run's model.
func (r *Run) Predict(values map[string]interface{}) (string, error) {
	record, err := ParseRecord(r.Model.MetaData.Features, values)
	if err != nil {
		return "", err
	}
	return r.Model.PredictRecord(record)
}
