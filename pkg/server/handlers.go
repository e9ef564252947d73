package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"idp-hq/assess/pkg/anthro"
	"idp-hq/assess/pkg/evaluation"
	"idp-hq/assess/pkg/worker"
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Detail string `json:"detail"`
}

type deleteResponse struct {
	Status  string `json:"status"`
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

type percentileResponse struct {
	Metric     string  `json:"metric"`
	Percentile float64 `json:"percentile"`
	Value      float64 `json:"value"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, errorResponse{Detail: detail})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.ErrorContext(r.Context(), msg, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, errEmptyBody.Error())
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		}
		return
	}

	result, err := s.deps.Evaluations.Submit(r.Context(), req.submission())
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, result)
	case errors.Is(err, evaluation.ErrInvalidSubmission), errors.Is(err, evaluation.ErrInvalidReferences):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrClosed):
		s.logger.WarnContext(r.Context(), "evaluation refused", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Evaluation queue unavailable")
	default:
		s.internalError(w, r, "failed to submit evaluation", err)
	}
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Evaluations.Get(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, view)
	case errors.Is(err, evaluation.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		s.internalError(w, r, "failed to fetch evaluation", err)
	}
}

func (s *Server) handleDeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.deps.Evaluations.Delete(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, deleteResponse{Status: "ok", Deleted: true, ID: id})
	case errors.Is(err, evaluation.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, evaluation.ErrRunNotTerminal):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.internalError(w, r, "failed to delete evaluation", err)
	}
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := s.deps.Datasets.Dataset(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ds)
	case errors.Is(err, anthro.ErrDatasetNotFound):
		writeError(w, http.StatusNotFound, "Dataset not found")
	default:
		s.internalError(w, r, "failed to fetch dataset", err)
	}
}

func (s *Server) handlePercentile(w http.ResponseWriter, r *http.Request) {
	query, err := parsePercentileQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ds, err := s.deps.Datasets.Dataset(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, anthro.ErrDatasetNotFound) {
			writeError(w, http.StatusNotFound, "Dataset not found")
			return
		}
		s.internalError(w, r, "failed to fetch dataset", err)
		return
	}

	value, err := ds.Query(query)
	if err != nil {
		var lookupErr *anthro.LookupError
		switch {
		case errors.Is(err, anthro.ErrNoDistributions):
			writeError(w, http.StatusBadRequest, "Dataset has no distributions")
		case errors.As(err, &lookupErr):
			writeError(w, http.StatusBadRequest, lookupErr.Error())
		default:
			s.internalError(w, r, "percentile lookup failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, percentileResponse{
		Metric:     query.Metric,
		Percentile: query.Percentile,
		Value:      value,
	})
}

// parsePercentileQuery reads metric, percentile (0..100) and the optional
// region, sex and age filters.
func parsePercentileQuery(r *http.Request) (anthro.Query, error) {
	values := r.URL.Query()

	q := anthro.Query{
		Metric: values.Get("metric"),
		Region: values.Get("region"),
		Sex:    values.Get("sex"),
		Age:    values.Get("age"),
	}
	if q.Metric == "" {
		return q, errors.New("metric is required")
	}

	raw := values.Get("percentile")
	if raw == "" {
		return q, errors.New("percentile is required")
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return q, fmt.Errorf("percentile %q is not a number", raw)
	}
	if math.IsNaN(p) || p < 0 || p > 100 {
		return q, fmt.Errorf("percentile %v is outside [0, 100]", p)
	}
	q.Percentile = p
	return q, nil
}
