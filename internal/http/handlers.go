package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pnlengine/internal/core"
	"pnlengine/internal/engine"
	"pnlengine/internal/ingest"
	"pnlengine/internal/services"
	"pnlengine/internal/storage"
)

// handleUpload accepts one exported ledger file, either as the "file" part
// of a multipart form or as the raw request body.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	filename := "upload.csv"
	var data []byte

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "missing 'file' form field")
			return
		}
		defer file.Close()
		filename = header.Filename

		data, err = io.ReadAll(file)
		if err != nil {
			respondError(w, http.StatusBadRequest, "read upload: "+err.Error())
			return
		}
	} else {
		var err error
		data, err = io.ReadAll(r.Body)
		if err != nil {
			respondError(w, http.StatusBadRequest, "read upload: "+err.Error())
			return
		}
	}

	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "empty upload")
		return
	}

	summary, err := s.reports.ProcessUpload(r.Context(), filename, data)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch")
	if batchID == "" {
		respondError(w, http.StatusBadRequest, "missing 'batch' parameter")
		return
	}

	from, to, err := parseMonthRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	stmt, err := s.reports.Statement(r.Context(), batchID, from, to)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stmt)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch")
	if batchID == "" {
		respondError(w, http.StatusBadRequest, "missing 'batch' parameter")
		return
	}

	dash, err := s.reports.Dashboard(r.Context(), batchID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dash)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch")
	if batchID == "" {
		respondError(w, http.StatusBadRequest, "missing 'batch' parameter")
		return
	}

	months, err := parseIntParam(r, "months", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if months < 0 || months > 24 {
		respondError(w, http.StatusBadRequest, "'months' must be between 1 and 24")
		return
	}

	fc, err := s.reports.Forecast(r.Context(), batchID, months)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, fc)
}

func (s *Server) handleDrillDown(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch")
	if batchID == "" {
		respondError(w, http.StatusBadRequest, "missing 'batch' parameter")
		return
	}

	line, err := parseIntParam(r, "line", 0)
	if err != nil || line <= 0 {
		respondError(w, http.StatusBadRequest, "missing or invalid 'line' parameter")
		return
	}

	month := core.MonthKey(r.URL.Query().Get("month"))
	if month != "" && !month.Valid() {
		respondError(w, http.StatusBadRequest, "invalid 'month' parameter, want YYYY-MM")
		return
	}

	rows, total, err := s.reports.DrillDown(r.Context(), batchID, line, month)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"batch_id": batchID,
		"line":     line,
		"month":    month,
		"total":    total,
		"rows":     rows,
	})
}

// statementRequest is the POST /api/pnl body: an optional month range plus
// ad-hoc overrides that apply to this computation only.
type statementRequest struct {
	From      string                        `json:"from,omitempty"`
	To        string                        `json:"to,omitempty"`
	Overrides map[string]map[string]float64 `json:"overrides,omitempty"`
}

func (s *Server) handleStatementPost(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch")
	if batchID == "" {
		respondError(w, http.StatusBadRequest, "missing 'batch' parameter")
		return
	}

	var req statementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	var from, to time.Time
	var err error
	if req.From != "" {
		if from, err = time.Parse("2006-01", req.From); err != nil {
			respondError(w, http.StatusBadRequest, "invalid 'from' month "+req.From)
			return
		}
	}
	if req.To != "" {
		if to, err = time.Parse("2006-01", req.To); err != nil {
			respondError(w, http.StatusBadRequest, "invalid 'to' month "+req.To)
			return
		}
		to = to.AddDate(0, 1, 0).Add(-time.Nanosecond)
	}

	overrides, err := decodeOverrides(req.Overrides)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	stmt, err := s.reports.StatementWithOverrides(r.Context(), batchID, from, to, overrides)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stmt)
}

// overridesRequest carries line overrides keyed by line number then month.
type overridesRequest struct {
	Overrides map[string]map[string]float64 `json:"overrides"`
}

// decodeOverrides converts the JSON-friendly string-keyed override map into
// the engine's integer-keyed form.
func decodeOverrides(raw map[string]map[string]float64) (engine.Overrides, error) {
	overrides := make(engine.Overrides, len(raw))
	for lineStr, byMonth := range raw {
		line, err := strconv.Atoi(lineStr)
		if err != nil {
			return nil, fmt.Errorf("invalid line number %q", lineStr)
		}
		months := make(map[core.MonthKey]float64, len(byMonth))
		for month, value := range byMonth {
			months[core.MonthKey(month)] = value
		}
		overrides[line] = months
	}
	return overrides, nil
}

func (s *Server) handleSetOverrides(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch")
	if batchID == "" {
		respondError(w, http.StatusBadRequest, "missing 'batch' parameter")
		return
	}

	var req overridesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	overrides, err := decodeOverrides(req.Overrides)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.reports.SetOverrides(r.Context(), batchID, overrides); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"batch_id": batchID,
		"lines":    len(overrides),
	})
}

func (s *Server) handleGetOverrides(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch")
	if batchID == "" {
		respondError(w, http.StatusBadRequest, "missing 'batch' parameter")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"batch_id":  batchID,
		"overrides": s.reports.Overrides(batchID),
	})
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", 20)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	batches, err := s.reports.Batches(r.Context(), limit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"batches": batches})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Readiness means the storage behind the service answers
	if _, err := s.reports.Batches(r.Context(), 1); err != nil {
		respondError(w, http.StatusServiceUnavailable, "storage not ready")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// respondServiceError maps service and ingestion errors onto HTTP statuses.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var formatErr *ingest.FormatError
	var schemaErr *ingest.SchemaError

	switch {
	case errors.As(err, &schemaErr), errors.As(err, &formatErr):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrBatchNotFound):
		respondError(w, http.StatusNotFound, "batch not found")
	case errors.Is(err, services.ErrInvalidOverride):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "Request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
