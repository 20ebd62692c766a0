package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/query"
)

func TestAskReturnsAnswer(t *testing.T) {
	asker := &fakeAsker{answer: pipeline.Answer{
		SQL:     "SELECT name FROM employees ORDER BY salary DESC LIMIT 1",
		Tables:  []string{"employees"},
		Ranking: true,
		Columns: []string{"name"},
		Rows:    [][]any{{"Ann"}},
		Text:    "Rank 1: name: Ann",
	}}
	rr := postQuestion(t, asker, "/v1/ask", `{"question":"top earner"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["answer"] != "Rank 1: name: Ann" || body["sql"] != "SELECT name FROM employees ORDER BY salary DESC LIMIT 1" {
		t.Fatalf("body = %v", body)
	}
	if body["question"] != "top earner" || body["ranking"] != true {
		t.Fatalf("body = %v", body)
	}
	if len(asker.questions) != 1 || asker.questions[0] != "top earner" {
		t.Fatalf("questions = %v", asker.questions)
	}
}

func TestAskMapsPipelineErrors(t *testing.T) {
	tests := []struct {
		name      string
		answer    pipeline.Answer
		err       error
		status    int
		code      string
		message   string
		wantSQL   string
		retryable bool
	}{
		{
			name:      "synthesis",
			err:       &nl2sql.SynthesisError{Provider: "ollama", Model: "mistral", Err: errors.New("connection refused")},
			status:    http.StatusBadGateway,
			code:      "SYNTHESIS_FAILED",
			message:   "query synthesis via ollama (mistral) failed: connection refused",
			retryable: true,
		},
		{
			name:    "rejected",
			answer:  pipeline.Answer{SQL: "DROP TABLE employees"},
			err:     &nl2sql.RejectedQueryError{SQL: "DROP TABLE employees", Reason: "statement must start with SELECT or WITH, found DROP"},
			status:  http.StatusUnprocessableEntity,
			code:    "QUERY_REJECTED",
			message: "query rejected: statement must start with SELECT or WITH, found DROP",
			wantSQL: "DROP TABLE employees",
		},
		{
			name:    "execution",
			answer:  pipeline.Answer{SQL: "SELECT * FROM employes"},
			err:     &query.ExecutionError{SQL: "SELECT * FROM employes", Err: errors.New(`relation "employes" does not exist`)},
			status:  http.StatusBadRequest,
			code:    "QUERY_EXECUTION_FAILED",
			message: `relation "employes" does not exist`,
			wantSQL: "SELECT * FROM employes",
		},
		{
			name:      "unexpected",
			err:       errors.New("boom"),
			status:    http.StatusInternalServerError,
			code:      "INTERNAL",
			message:   "boom",
			retryable: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := postQuestion(t, &fakeAsker{answer: tc.answer, err: tc.err}, "/v1/ask", `{"question":"anything"}`)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d, body=%s", rr.Code, tc.status, rr.Body.String())
			}
			body := decodeBody(t, rr)
			if body["error_code"] != tc.code || body["message"] != tc.message || body["retryable"] != tc.retryable {
				t.Fatalf("body = %v", body)
			}
			errContext, _ := body["context"].(map[string]any)
			if tc.wantSQL != "" && errContext["sql"] != tc.wantSQL {
				t.Fatalf("context = %v", errContext)
			}
			if tc.wantSQL == "" && errContext["sql"] != nil {
				t.Fatalf("unexpected sql in context: %v", errContext)
			}
		})
	}
}

func TestAskRejectsBadRequests(t *testing.T) {
	tests := []struct {
		body string
		code string
	}{
		{body: `{"question":`, code: "INVALID_JSON"},
		{body: `{"question":"hi","sql":"DROP"}`, code: "INVALID_JSON"},
		{body: `{"question":"   "}`, code: "QUESTION_REQUIRED"},
	}
	for _, tc := range tests {
		asker := &fakeAsker{}
		rr := postQuestion(t, asker, "/v1/ask", tc.body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d", tc.body, rr.Code)
		}
		if got := decodeBody(t, rr)["error_code"]; got != tc.code {
			t.Fatalf("body %s: error_code = %v", tc.body, got)
		}
		if len(asker.questions) != 0 {
			t.Fatalf("pipeline should not run for body %s", tc.body)
		}
	}
}

func TestAskWithoutPipeline(t *testing.T) {
	cfg, err := loadTestConfig()
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	h := NewHandler(cfg, Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"x"}`)))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestTranslateReturnsSQL(t *testing.T) {
	asker := &fakeAsker{translation: pipeline.Translation{
		SQL:      "SELECT COUNT(*) FROM orders",
		Tables:   []string{"orders"},
		Provider: "ollama",
		Model:    "mistral",
	}}
	rr := postQuestion(t, asker, "/v1/translate", `{"question":"how many orders"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["sql"] != "SELECT COUNT(*) FROM orders" || body["provider"] != "ollama" || body["model"] != "mistral" {
		t.Fatalf("body = %v", body)
	}
}

func TestTranslateMapsRejection(t *testing.T) {
	asker := &fakeAsker{
		translation: pipeline.Translation{SQL: "DELETE FROM orders"},
		err:         &nl2sql.RejectedQueryError{SQL: "DELETE FROM orders", Reason: "keyword DELETE is not allowed in a read-only query"},
	}
	rr := postQuestion(t, asker, "/v1/translate", `{"question":"clear orders"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
}

func postQuestion(t *testing.T, asker Asker, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	cfg, err := loadTestConfig()
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	h := NewHandler(cfg, Dependencies{Pipeline: asker})
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req = req.WithContext(context.Background())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
