package io

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"cuisine/pkg/model"
)

const restaurantsFile = "../../datasets/restaurants/restaurants.csv"

func writeFile(t *testing.T, content []byte) string {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestLoadTable(t *testing.T) {
	table, err := LoadTable(restaurantsFile, LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, 80, table.NumRows())
	require.Equal(t, 11, table.NumColumns())

	summary := table.Describe(10)
	require.Equal(t, 80, summary.NumRows)
	require.Equal(t, 10, len(summary.Preview))

	dtypes := map[string]string{}
	missing := map[string]int{}
	for _, col := range summary.Columns {
		dtypes[col.Name] = col.Dtype
		missing[col.Name] = col.Missing
	}
	require.Equal(t, Int64, dtypes["Restaurant ID"])
	require.Equal(t, Int64, dtypes["Average Cost for two"])
	require.Equal(t, Float64, dtypes["Aggregate rating"])
	require.Equal(t, Float64, dtypes["Votes"]) // integers with a missing cell
	require.Equal(t, Object, dtypes["Cuisines"])
	require.Equal(t, Object, dtypes["Has Table booking"])
	require.Equal(t, 1, missing["Cuisines"])
	require.Equal(t, 1, missing["Votes"])
	require.Equal(t, 1, missing["City"])
	require.Equal(t, 0, missing["Price range"])
}

func TestLoadTableErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		opts LoadOptions
	}{
		{name: "missing file", path: filepath.Join(t.TempDir(), "nope.csv")},
		{name: "empty file", path: writeFile(t, nil)},
		{name: "ragged rows", path: writeFile(t, []byte("a,b\n1,2\n3\n"))},
		{name: "unknown encoding", path: restaurantsFile, opts: LoadOptions{Encoding: "ebcdic"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTable(tt.path, tt.opts)
			var loadErr *DataLoadError
			require.True(t, errors.As(err, &loadErr), "got %v", err)
			require.Equal(t, tt.path, loadErr.Path)
		})
	}
}

func TestLoadTableEncodings(t *testing.T) {
	content := "Cuisines,Votes\nCafé,10\n"

	bom := writeFile(t, append([]byte("\xef\xbb\xbf"), content...))
	table, err := LoadTable(bom, LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"Cuisines", "Votes"}, table.Header)

	latin, err := charmap.ISO8859_1.NewEncoder().String(content)
	require.NoError(t, err)
	table, err = LoadTable(writeFile(t, []byte(latin)), LoadOptions{Encoding: "latin-1"})
	require.NoError(t, err)
	require.Equal(t, "Café", table.Cell(0, 0))
}

func TestReadTableDelimiter(t *testing.T) {
	table, err := ReadTable(strings.NewReader("Cuisines;Votes\nThai;4\n"), ';')
	require.NoError(t, err)
	require.Equal(t, 1, table.NumRows())
	idx, ok := table.ColumnIndex("Votes")
	require.True(t, ok)
	require.Equal(t, "4", table.Cell(0, idx))
	require.Equal(t, 2, table.Line(0))
}

func twoRowTable(t *testing.T) *Table {
	table, err := ReadTable(strings.NewReader(
		"Average Cost for two,Price range,Has Online delivery,Has Table booking,Votes,Cuisines\n"+
			"500,2,Yes,No,120,Italian\n"+
			"300,1,No,No,40,Chinese\n"), 0)
	require.NoError(t, err)
	return table
}

func TestPreprocessTwoRows(t *testing.T) {
	p, err := Preprocess(twoRowTable(t))
	require.NoError(t, err)
	require.Equal(t, model.CandidateFeatures, p.Features.Names)
	require.Equal(t, [][]float64{{500, 2, 1, 0, 120}, {300, 1, 0, 0, 40}}, p.X)
	require.Equal(t, []string{"Italian", "Chinese"}, p.Targets)
	require.Equal(t, "1", p.Rows[0][2])
	require.Equal(t, "0", p.Rows[1][2])
	require.Empty(t, p.Errors)

	labels := model.FitNameMap(p.Targets)
	codes, err := labels.Encode(p.Targets)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, codes)

	ds, err := NewDataSet(p.X, codes, model.DefaultSeed)
	require.NoError(t, err)
	train, test, err := ds.TrainTestSplit(0.5)
	require.NoError(t, err)
	require.Equal(t, 1, train.Size())
	require.Equal(t, 1, test.Size())
	require.NotEqual(t, train.Indices()[0], test.Indices()[0])
}

func TestPreprocessRestaurants(t *testing.T) {
	table, err := LoadTable(restaurantsFile, LoadOptions{})
	require.NoError(t, err)
	before := table.Head(table.NumRows())

	p, err := Preprocess(table)
	require.NoError(t, err)
	require.Equal(t, before, table.Head(table.NumRows()), "source table must not change")

	require.Equal(t, 3, p.Filled)
	require.Equal(t, 78, len(p.X))
	require.Equal(t, 2, len(p.Errors))
	require.Equal(t, map[string]int{"Votes": 1, "Has Table booking": 1}, p.RejectedByColumn())

	var unseen *model.UnseenCategoryError
	for _, dataErr := range p.Errors {
		switch dataErr.Column {
		case "Votes":
			require.Equal(t, 35, dataErr.Line)
			require.True(t, errors.Is(dataErr, ErrNonNumeric))
		case "Has Table booking":
			require.Equal(t, 49, dataErr.Line)
			require.True(t, errors.As(dataErr, &unseen))
			require.Equal(t, "Maybe", unseen.Value)
		}
	}
	require.Contains(t, p.Targets, Unknown)

	again, err := Preprocess(table)
	require.NoError(t, err)
	require.Equal(t, p, again)

	stats := p.FeatureStats()
	require.Equal(t, 5, len(stats))
	for _, s := range stats {
		require.LessOrEqual(t, s.Min, s.Mean)
		require.LessOrEqual(t, s.Mean, s.Max)
	}
}

func TestPreprocessBinaryValues(t *testing.T) {
	for _, value := range []string{"yes", "Y", "1", "Unknown"} {
		_, err := MapBinary("Has Online delivery", value)
		var unseen *model.UnseenCategoryError
		require.True(t, errors.As(err, &unseen), value)
	}

	table, err := ReadTable(strings.NewReader("Has Online delivery,Cuisines\nYes,Thai\n,Thai\nyes,Thai\n"), 0)
	require.NoError(t, err)
	p, err := Preprocess(table)
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1}}, p.X)
	require.Equal(t, 2, len(p.Errors))
	require.Equal(t, Unknown, p.Rows[1][0])
}

func TestPreprocessSchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "no target", content: "Votes,City\n1,Delhi\n"},
		{name: "no features", content: "Cuisines,City\nThai,Delhi\n"},
		{name: "no usable rows", content: "Votes,Cuisines\nmany,Thai\n"},
		{name: "no rows", content: "Votes,Cuisines\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadTable(strings.NewReader(tt.content), 0)
			require.NoError(t, err)
			_, err = Preprocess(table)
			require.True(t, errors.Is(err, model.ErrInvalidParameter), "got %v", err)
		})
	}
}
