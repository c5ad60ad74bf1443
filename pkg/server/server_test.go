package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cuisine/pkg"
)

func newTestServer(t *testing.T, dataFile string) *Server {
	config := pkg.DefaultConfig()
	config.DataFile = dataFile
	config.Trees = 50
	config.PreviewRows = 3
	pipeline, err := pkg.NewPipeline(config.TableCacheSize, config.ModelCacheSize)
	require.NoError(t, err)
	return NewServer(pipeline, config)
}

func serve(s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

const restaurantsFile = "../../datasets/restaurants/restaurants.csv"

func TestHealth(t *testing.T) {
	w := serve(newTestServer(t, restaurantsFile), "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDataset(t *testing.T) {
	w := serve(newTestServer(t, restaurantsFile), "GET", "/api/v1/dataset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Summary struct {
			Rows    int        `json:"rows"`
			Columns int        `json:"columns"`
			Preview [][]string `json:"preview"`
		} `json:"summary"`
		Features   []string       `json:"features"`
		Usable     int            `json:"usable_rows"`
		Rejected   map[string]int `json:"rejected"`
		ErrorCount int            `json:"error_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, 80, response.Summary.Rows)
	require.Equal(t, 11, response.Summary.Columns)
	require.Equal(t, 3, len(response.Summary.Preview))
	require.Equal(t, 5, len(response.Features))
	require.Equal(t, 78, response.Usable)
	require.Equal(t, 2, response.ErrorCount)
}

func TestModel(t *testing.T) {
	s := newTestServer(t, restaurantsFile)

	w := serve(s, "GET", "/api/v1/model?trees=60&test_ratio=0.25", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var response modelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, 60, response.Trees)
	require.Equal(t, 20, response.TestSize)
	require.Equal(t, 58, response.TrainSize)
	require.Equal(t, 6, len(response.Labels))
	require.Equal(t, 5, len(response.Evaluation.Importances))
	require.False(t, response.ModelCached)

	w = serve(s, "GET", "/api/v1/model?trees=60&test_ratio=0.25", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.True(t, response.ModelCached)
}

func TestModelRanges(t *testing.T) {
	s := newTestServer(t, restaurantsFile)
	for _, query := range []string{"trees=10", "trees=501", "test_ratio=0.05", "test_ratio=0.5", "trees=many"} {
		w := serve(s, "GET", "/api/v1/model?"+query, nil)
		require.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestPredict(t *testing.T) {
	s := newTestServer(t, restaurantsFile)
	body := []byte(`{"values":{"Average Cost for two":650,"Price range":2,"Has Online delivery":"Yes","Has Table booking":0,"Votes":120}}`)

	w := serve(s, "POST", "/api/v1/predict", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var response predictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Contains(t, []string{"Cafe", "Chinese", "Fast Food", "Italian", "North Indian", "Unknown"}, response.Cuisine)
}

func TestPredictErrors(t *testing.T) {
	s := newTestServer(t, restaurantsFile)

	w := serve(s, "POST", "/api/v1/predict", []byte(`{"values":{"Average Cost for two":650,"Price range":2,"Has Online delivery":1,"Has Table booking":0}}`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	var response errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, []string{"Votes"}, response.Missing)

	w = serve(s, "POST", "/api/v1/predict", []byte(`{"values":`))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(s, "POST", "/api/v1/predict", []byte(`{"trees":5,"values":{}}`))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(s, "GET", "/api/v1/predict", nil)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestMissingDataFile(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "Dataset.csv"))

	w := serve(s, "GET", "/api/v1/dataset", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = serve(s, "GET", "/api/v1/model", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
