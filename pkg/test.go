package pkg

import (
	"fmt"
	"sort"

	"github.com/nlpodyssey/spago/pkg/ml/stats"
	"github.com/rs/zerolog/log"

	"cuisine/pkg/io"
	"cuisine/pkg/model"
)

type ClassReport struct {
	Class     string  `json:"class"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Average is a macro or support-weighted average over the class reports.
type Average struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

type Importance struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"score"`
}

// Evaluation is the held-out performance of a model.
type Evaluation struct {
	Accuracy    float64       `json:"accuracy"`
	Classes     []ClassReport `json:"classes"`
	MacroAvg    Average       `json:"macro_avg"`
	WeightedAvg Average       `json:"weighted_avg"`
	Importances []Importance  `json:"importances"`
	TestSize    int           `json:"test_size"`
}

type classificationEvaluator struct {
	predictionCount int
	correct         int
	metrics         map[string]*stats.ClassMetrics
	model           *model.Model
}

func newClassificationEvaluator(m *model.Model) *classificationEvaluator {
	return &classificationEvaluator{
		metrics: map[string]*stats.ClassMetrics{},
		model:   m,
	}
}

func (c *classificationEvaluator) classMetrics(class string) *stats.ClassMetrics {
	metrics, ok := c.metrics[class]
	if !ok {
		metrics = stats.NewMetricCounter()
		c.metrics[class] = metrics
	}
	return metrics
}

func (c *classificationEvaluator) EvaluatePrediction(predicted, target int) error {
	predictedClass, err := c.model.MetaData.TargetMap.Decode(predicted)
	if err != nil {
		return err
	}
	label, err := c.model.MetaData.TargetMap.Decode(target)
	if err != nil {
		return err
	}
	c.predictionCount++

	labelClassMetrics := c.classMetrics(label)
	predictedClassMetrics := c.classMetrics(predictedClass)
	if label == predictedClass {
		c.correct++
		labelClassMetrics.IncTruePos()
	} else {
		labelClassMetrics.IncFalseNeg()
		predictedClassMetrics.IncFalsePos()
	}
	return nil
}

// classReport guards the ratios of classes without true positives, which would
// otherwise be NaN.
func classReport(class string, metrics *stats.ClassMetrics) ClassReport {
	report := ClassReport{Class: class, Support: metrics.TruePos + metrics.FalseNeg}
	if metrics.TruePos > 0 {
		report.Precision = metrics.Precision()
		report.Recall = metrics.Recall()
		report.F1 = metrics.F1Score()
	}
	return report
}

func (c *classificationEvaluator) Evaluation() *Evaluation {
	e := &Evaluation{TestSize: c.predictionCount}
	if c.predictionCount > 0 {
		e.Accuracy = float64(c.correct) / float64(c.predictionCount)
	}

	// Sort class names for deterministic output
	for _, class := range sortClasses(c.metrics) {
		report := classReport(class, c.metrics[class])
		e.Classes = append(e.Classes, report)

		e.MacroAvg.Precision += report.Precision
		e.MacroAvg.Recall += report.Recall
		e.MacroAvg.F1 += report.F1
		support := float64(report.Support)
		e.WeightedAvg.Precision += support * report.Precision
		e.WeightedAvg.Recall += support * report.Recall
		e.WeightedAvg.F1 += support * report.F1
	}
	if n := float64(len(e.Classes)); n > 0 {
		e.MacroAvg.Precision /= n
		e.MacroAvg.Recall /= n
		e.MacroAvg.F1 /= n
	}
	if total := float64(c.predictionCount); total > 0 {
		e.WeightedAvg.Precision /= total
		e.WeightedAvg.Recall /= total
		e.WeightedAvg.F1 /= total
	}
	e.MacroAvg.Support = c.predictionCount
	e.WeightedAvg.Support = c.predictionCount

	e.Importances = sortedImportances(c.model)
	return e
}

func sortClasses(metrics map[string]*stats.ClassMetrics) []string {
	result := make([]string, 0, len(metrics))
	for class := range metrics {
		result = append(result, class)
	}
	sort.Strings(result)
	return result
}

func sortedImportances(m *model.Model) []Importance {
	scores := m.Forest.FeatureImportances()
	result := make([]Importance, len(scores))
	for i, score := range scores {
		result[i] = Importance{Feature: m.MetaData.Features.Names[i], Score: score}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result
}

// Evaluate scores the model on the test view. The classes reported are those that
// occur in the test labels or in the predictions.
func Evaluate(m *model.Model, test *io.DataSet) (*Evaluation, error) {
	if test.Size() == 0 {
		return nil, fmt.Errorf("no data to test: %w", model.ErrInvalidParameter)
	}
	evaluator := newClassificationEvaluator(m)
	predictions := m.Predict(test.Rows())
	for i, target := range test.Labels() {
		if err := evaluator.EvaluatePrediction(predictions[i], target); err != nil {
			return nil, fmt.Errorf("error evaluating row %d: %w", i, err)
		}
	}
	return evaluator.Evaluation(), nil
}

func (e *Evaluation) LogMetrics() {
	for _, class := range e.Classes {
		log.Info().Str("Class", class.Class).
			Float64("Precision", class.Precision).
			Float64("Recall", class.Recall).
			Float64("F1", class.F1).
			Int("Support", class.Support).
			Msg("")
	}
	log.Info().Float64("MacroF1", e.MacroAvg.F1).Float64("WeightedF1", e.WeightedAvg.F1).Msg("")
	for _, importance := range e.Importances {
		log.Debug().Str("Feature", importance.Feature).Float64("Importance", importance.Score).Msg("")
	}
	log.Info().Float64("Accuracy", e.Accuracy).Int("TestSize", e.TestSize).Msg("")
}
