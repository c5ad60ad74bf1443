package pkg

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"cuisine/pkg/io"
	"cuisine/pkg/model"
)

func separableData() ([][]float64, []int) {
	var x [][]float64
	var y []int
	for i := 0; i < 20; i++ {
		v := float64(i % 5)
		x = append(x, []float64{v, 10 + v}, []float64{40 + v, 50 + v})
		y = append(y, 0, 1)
	}
	return x, y
}

func TestTrainEvaluate(t *testing.T) {
	x, y := separableData()
	labels := model.FitNameMap([]string{"Chinese", "Italian"})
	meta := model.NewMetadata([]string{"Price range", "Votes"}, model.NegotiateFeatures([]string{"Price range", "Votes"}), labels)

	data, err := io.NewDataSet(x, y, model.DefaultSeed)
	require.NoError(t, err)
	train, test, err := data.TrainTestSplit(0.25)
	require.NoError(t, err)

	m, err := Train(context.Background(), train, meta, TrainingParameters{NumTrees: 15, RndSeed: model.DefaultSeed})
	require.NoError(t, err)
	require.Equal(t, 15, len(m.Forest.Trees))

	evaluation, err := Evaluate(m, test)
	require.NoError(t, err)
	require.Equal(t, 10, evaluation.TestSize)
	require.Equal(t, 1.0, evaluation.Accuracy)
	for _, class := range evaluation.Classes {
		require.Equal(t, 1.0, class.Precision)
		require.Equal(t, 1.0, class.Recall)
	}
	require.Equal(t, 2, len(evaluation.Importances))
	require.GreaterOrEqual(t, evaluation.Importances[0].Score, evaluation.Importances[1].Score)
	require.InDelta(t, 1.0, evaluation.Importances[0].Score+evaluation.Importances[1].Score, 1e-9)
}

func TestTrainInvalidParameters(t *testing.T) {
	x, y := separableData()
	labels := model.FitNameMap([]string{"Chinese", "Italian"})
	meta := model.NewMetadata(nil, model.NegotiateFeatures([]string{"Price range", "Votes"}), labels)
	data, err := io.NewDataSet(x, y, 1)
	require.NoError(t, err)

	_, err = Train(context.Background(), data, meta, TrainingParameters{NumTrees: 0})
	require.True(t, errors.Is(err, model.ErrInvalidParameter))
}

func evaluatorFor(names ...string) *classificationEvaluator {
	labels := model.FitNameMap(names)
	return newClassificationEvaluator(&model.Model{
		MetaData: model.NewMetadata(nil, model.FeatureSet{}, labels),
		Forest:   model.NewForest(model.ForestConfig{}),
	})
}

func TestClassificationReport(t *testing.T) {
	evaluator := evaluatorFor("Cafe", "Chinese")
	for _, p := range [][2]int{{0, 0}, {1, 0}, {1, 1}} {
		require.NoError(t, evaluator.EvaluatePrediction(p[0], p[1]))
	}
	e := evaluator.Evaluation()

	require.InDelta(t, 2.0/3, e.Accuracy, 1e-9)
	require.Equal(t, 2, len(e.Classes))

	cafe := e.Classes[0]
	require.Equal(t, "Cafe", cafe.Class)
	require.Equal(t, 2, cafe.Support)
	require.InDelta(t, 1.0, cafe.Precision, 1e-9)
	require.InDelta(t, 0.5, cafe.Recall, 1e-9)

	chinese := e.Classes[1]
	require.Equal(t, 1, chinese.Support)
	require.InDelta(t, 0.5, chinese.Precision, 1e-9)
	require.InDelta(t, 1.0, chinese.Recall, 1e-9)

	require.InDelta(t, 0.75, e.MacroAvg.Precision, 1e-9)
	require.InDelta(t, 0.75, e.MacroAvg.Recall, 1e-9)
	require.InDelta(t, 2.0/3, e.MacroAvg.F1, 1e-9)
	require.InDelta(t, 2.5/3, e.WeightedAvg.Precision, 1e-9)
	require.InDelta(t, 2.0/3, e.WeightedAvg.Recall, 1e-9)
	require.Equal(t, 3, e.WeightedAvg.Support)
}

func TestClassificationReportWithoutTruePositives(t *testing.T) {
	evaluator := evaluatorFor("Cafe", "Chinese", "Italian")
	require.NoError(t, evaluator.EvaluatePrediction(1, 0))
	e := evaluator.Evaluation()

	require.Equal(t, 0.0, e.Accuracy)
	// Italian never occurs, so it is left out of the report
	require.Equal(t, 2, len(e.Classes))
	for _, class := range e.Classes {
		require.Equal(t, 0.0, class.Precision)
		require.Equal(t, 0.0, class.Recall)
		require.Equal(t, 0.0, class.F1)
	}
	require.Equal(t, Average{Support: 1}, e.MacroAvg)

	require.Error(t, evaluator.EvaluatePrediction(5, 0))
}
