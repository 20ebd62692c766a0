package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/askdb/askdb/internal/auth"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/query"
)

const maxRequestBytes = 64 << 10

type questionRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question   string   `json:"question"`
	SQL        string   `json:"sql"`
	Tables     []string `json:"tables"`
	Ranking    bool     `json:"ranking"`
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	Answer     string   `json:"answer"`
	DurationMs int64    `json:"duration_ms"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	question, ok := decodeQuestion(deps, w, r)
	if !ok {
		return
	}

	result, err := deps.Pipeline.Ask(r.Context(), question)
	if err != nil {
		writePipelineError(r.Context(), w, err, result.SQL)
		return
	}
	rows := result.Rows
	if rows == nil {
		rows = [][]any{}
	}
	writeJSON(w, http.StatusOK, askResponse{
		Question:   result.Question,
		SQL:        result.SQL,
		Tables:     result.Tables,
		Ranking:    result.Ranking,
		Columns:    result.Columns,
		Rows:       rows,
		Answer:     result.Text,
		DurationMs: result.Duration.Milliseconds(),
	})
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	question, ok := decodeQuestion(deps, w, r)
	if !ok {
		return
	}

	translation, err := deps.Pipeline.Translate(r.Context(), question)
	if err != nil {
		writePipelineError(r.Context(), w, err, translation.SQL)
		return
	}
	writeJSON(w, http.StatusOK, translation)
}

func decodeQuestion(deps Dependencies, w http.ResponseWriter, r *http.Request) (string, bool) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "question pipeline is not configured", false, nil)
		return "", false
	}
	if err := auth.RequireAnyRole(r, auth.RoleAsker); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return "", false
	}

	var request questionRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid question request body", false, map[string]any{"details": err.Error()})
		return "", false
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", pipeline.ErrEmptyQuestion.Error(), false, nil)
		return "", false
	}
	return request.Question, true
}

func writePipelineError(ctx context.Context, w http.ResponseWriter, err error, sql string) {
	var (
		synthErr    *nl2sql.SynthesisError
		rejectedErr *nl2sql.RejectedQueryError
		execErr     *query.ExecutionError
	)
	extra := map[string]any{}
	if sql != "" {
		extra["sql"] = sql
	}

	switch {
	case errors.Is(err, pipeline.ErrEmptyQuestion):
		writeError(ctx, w, http.StatusBadRequest, "QUESTION_REQUIRED", err.Error(), false, nil)
	case errors.As(err, &synthErr):
		extra["provider"] = synthErr.Provider
		extra["model"] = synthErr.Model
		writeError(ctx, w, http.StatusBadGateway, "SYNTHESIS_FAILED", err.Error(), true, extra)
	case errors.As(err, &rejectedErr):
		extra["sql"] = rejectedErr.SQL
		writeError(ctx, w, http.StatusUnprocessableEntity, "QUERY_REJECTED", err.Error(), false, extra)
	case errors.As(err, &execErr):
		retryable := errors.Is(err, context.DeadlineExceeded)
		writeError(ctx, w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", err.Error(), retryable, extra)
	default:
		writeError(ctx, w, http.StatusInternalServerError, "INTERNAL", err.Error(), true, extra)
	}
}
