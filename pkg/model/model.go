package model

import "math"

// Record maps feature names to values for a single prediction.
type Record map[string]float64

type Model struct {
	MetaData *Metadata
	Forest   *Forest
}

// Predict returns the class code of every row of x.
func (m *Model) Predict(x [][]float64) []int {
	return m.Forest.Predict(x)
}

// FeatureImportances pairs the forest importances with the feature names.
func (m *Model) FeatureImportances() map[string]float64 {
	result := make(map[string]float64, m.MetaData.FeatureCount())
	for i, score := range m.Forest.FeatureImportances() {
		result[m.MetaData.Features.Names[i]] = score
	}
	return result
}

// Row orders the values of rec by the feature set. Keys outside the feature set are
// ignored.
func (m *Model) Row(rec Record) ([]float64, error) {
	row := make([]float64, m.MetaData.FeatureCount())
	mismatch := &SchemaMismatchError{}
	for i, name := range m.MetaData.Features.Names {
		value, ok := rec[name]
		switch {
		case !ok:
			mismatch.Missing = append(mismatch.Missing, name)
		case math.IsNaN(value) || math.IsInf(value, 0):
			mismatch.Invalid = append(mismatch.Invalid, name)
		default:
			row[i] = value
		}
	}
	if len(mismatch.Missing) > 0 || len(mismatch.Invalid) > 0 {
		return nil, mismatch
	}
	return row, nil
}

// PredictRecord classifies one record and decodes the predicted cuisine.
func (m *Model) PredictRecord(rec Record) (string, error) {
	row, err := m.Row(rec)
	if err != nil {
		return "", err
	}
	code := m.Forest.Predict([][]float64{row})[0]
	return m.MetaData.TargetMap.Decode(code)
}
