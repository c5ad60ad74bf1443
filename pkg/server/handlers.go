package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"cuisine/pkg"
)

type datasetResponse struct {
	*pkg.Dataset
	ErrorCount int `json:"error_count"`
}

type modelResponse struct {
	RunID       string          `json:"run_id"`
	Trees       int             `json:"trees"`
	TestRatio   float64         `json:"test_ratio"`
	Features    []string        `json:"features"`
	Labels      []string        `json:"labels"`
	TrainSize   int             `json:"train_size"`
	TestSize    int             `json:"test_size"`
	Evaluation  *pkg.Evaluation `json:"evaluation"`
	ModelCached bool            `json:"model_cached"`
}

type predictRequest struct {
	Trees     *int                   `json:"trees,omitempty"`
	TestRatio *float64               `json:"test_ratio,omitempty"`
	Values    map[string]interface{} `json:"values"`
}

type predictResponse struct {
	RunID   string `json:"run_id"`
	Cuisine string `json:"cuisine"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	dataset, err := s.pipeline.Describe(s.config.DataFile, s.config.LoadOptions(), s.config.PreviewRows)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, datasetResponse{Dataset: dataset, ErrorCount: len(dataset.Errors)})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	params := s.config.Params()
	query := r.URL.Query()
	if value := query.Get("trees"); value != "" {
		trees, err := strconv.Atoi(value)
		if err != nil {
			writeBadRequestResponse(w, fmt.Sprintf("invalid trees parameter %q", value))
			return
		}
		params.Trees = trees
	}
	if value := query.Get("test_ratio"); value != "" {
		ratio, err := strconv.ParseFloat(value, 64)
		if err != nil {
			writeBadRequestResponse(w, fmt.Sprintf("invalid test_ratio parameter %q", value))
			return
		}
		params.TestRatio = ratio
	}
	if err := checkRanges(params); err != nil {
		writeBadRequestResponse(w, err.Error())
		return
	}

	run, err := s.pipeline.Run(r.Context(), params)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, modelResponse{
		RunID:       run.ID,
		Trees:       params.Trees,
		TestRatio:   params.TestRatio,
		Features:    run.Dataset.Features,
		Labels:      run.Labels,
		TrainSize:   run.TrainSize,
		TestSize:    run.TestSize,
		Evaluation:  run.Evaluation,
		ModelCached: run.ModelCached,
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var request predictRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&request); err != nil {
		writeBadRequestResponse(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	params := s.config.Params()
	if request.Trees != nil {
		params.Trees = *request.Trees
	}
	if request.TestRatio != nil {
		params.TestRatio = *request.TestRatio
	}
	if err := checkRanges(params); err != nil {
		writeBadRequestResponse(w, err.Error())
		return
	}

	run, err := s.pipeline.Run(r.Context(), params)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	cuisine, err := run.Predict(request.Values)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, predictResponse{RunID: run.ID, Cuisine: cuisine})
}

func checkRanges(params pkg.Params) error {
	if params.Trees < MinTrees || params.Trees > MaxTrees {
		return fmt.Errorf("trees must be between %d and %d, got %d", MinTrees, MaxTrees, params.Trees)
	}
	if params.TestRatio < MinTestRatio || params.TestRatio > MaxTestRatio {
		return fmt.Errorf("test_ratio must be between %.1f and %.1f, got %v", MinTestRatio, MaxTestRatio, params.TestRatio)
	}
	return nil
}
