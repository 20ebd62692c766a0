// Package pipeline answers one natural-language question per call: pick the
// relevant tables, prompt the model for a query, check that the query only
// reads, run it and render the rows as text. It keeps no state between
// calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/answer"
	"github.com/askdb/askdb/internal/metadata"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/query"
)

const (
	StageSelect     = "select"
	StageSynthesize = "synthesize"
	StageValidate   = "validate"
	StageExecute    = "execute"
	StageRender     = "render"
)

var ErrEmptyQuestion = errors.New("question is required")

type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string) (string, error)
	Provider() string
	Model() string
}

type Options struct {
	Dialect    string
	TableLimit int
}

type Dependencies struct {
	Metadata    *metadata.Store
	Synthesizer Synthesizer
	Executor    query.Executor
	Logger      *slog.Logger
}

type Pipeline struct {
	metadata    *metadata.Store
	synthesizer Synthesizer
	executor    query.Executor
	logger      *slog.Logger
	dialect     string
	tableLimit  int
}

// Draft is everything known about a question before the model is called.
type Draft struct {
	Question string                     `json:"question"`
	Ranking  bool                       `json:"ranking"`
	Tables   []metadata.TableDescriptor `json:"tables"`
	Fallback bool                       `json:"fallback"`
	Prompt   string                     `json:"prompt"`
}

type Translation struct {
	Question string   `json:"question"`
	SQL      string   `json:"sql"`
	Tables   []string `json:"tables"`
	Ranking  bool     `json:"ranking"`
	Provider string   `json:"provider"`
	Model    string   `json:"model"`
}

type Answer struct {
	Question string        `json:"question"`
	SQL      string        `json:"sql,omitempty"`
	Tables   []string      `json:"tables"`
	Ranking  bool          `json:"ranking"`
	Columns  []string      `json:"columns"`
	Rows     [][]any       `json:"rows"`
	Text     string        `json:"answer"`
	Duration time.Duration `json:"-"`
}

func New(opts Options, deps Dependencies) (*Pipeline, error) {
	if deps.Synthesizer == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	metadataStore := deps.Metadata
	if metadataStore == nil {
		metadataStore = metadata.NewStore("", nil)
	}
	tableLimit := opts.TableLimit
	if tableLimit <= 0 {
		tableLimit = nl2sql.DefaultTableLimit
	}
	return &Pipeline{
		metadata:    metadataStore,
		synthesizer: deps.Synthesizer,
		executor:    deps.Executor,
		logger:      logger,
		dialect:     opts.Dialect,
		tableLimit:  tableLimit,
	}, nil
}

func (p *Pipeline) Tables() []metadata.TableDescriptor {
	return p.metadata.Tables()
}

func (p *Pipeline) Provider() string {
	return p.synthesizer.Provider()
}

func (p *Pipeline) Model() string {
	return p.synthesizer.Model()
}

// Prompt classifies the question, selects tables and renders the prompt
// without contacting the model.
func (p *Pipeline) Prompt(question string) (Draft, error) {
	if strings.TrimSpace(question) == "" {
		return Draft{}, ErrEmptyQuestion
	}
	start := time.Now()
	selection := nl2sql.Select(question, p.metadata.Tables(), p.tableLimit)
	draft := Draft{
		Question: question,
		Ranking:  nl2sql.Classify(question).Ranking,
		Tables:   selection.Tables,
		Fallback: selection.Fallback,
		Prompt:   nl2sql.BuildPrompt(question, selection.Tables, p.dialect),
	}
	observability.ObserveStage(StageSelect, observability.OutcomeOK, time.Since(start))
	observability.ObserveSelection(len(selection.Tables), selection.Fallback)
	return draft, nil
}

// Translate runs every stage up to and including validation. Nothing is
// executed.
func (p *Pipeline) Translate(ctx context.Context, question string) (Translation, error) {
	translation := Translation{
		Question: question,
		Provider: p.synthesizer.Provider(),
		Model:    p.synthesizer.Model(),
	}
	draft, err := p.Prompt(question)
	if err != nil {
		observability.ObserveQuestion("input")
		return translation, err
	}
	translation.Tables = tableNames(draft.Tables)
	translation.Ranking = draft.Ranking

	logger := p.questionLogger(ctx, draft)
	sql, err := p.synthesize(ctx, logger, draft.Prompt)
	if err != nil {
		return translation, err
	}
	translation.SQL = sql
	if err := p.validate(logger, sql); err != nil {
		return translation, err
	}
	return translation, nil
}

// Ask answers one question. On failure the partially filled Answer is
// returned with the stage's error; SQL is set whenever synthesis succeeded.
func (p *Pipeline) Ask(ctx context.Context, question string) (Answer, error) {
	start := time.Now()
	result := Answer{Question: question}

	draft, err := p.Prompt(question)
	if err != nil {
		observability.ObserveQuestion("input")
		return result, err
	}
	result.Tables = tableNames(draft.Tables)
	result.Ranking = draft.Ranking

	logger := p.questionLogger(ctx, draft)
	sql, err := p.synthesize(ctx, logger, draft.Prompt)
	if err != nil {
		return result, err
	}
	result.SQL = sql

	if err := p.validate(logger, sql); err != nil {
		return result, err
	}

	rows, err := p.execute(ctx, logger, sql)
	if err != nil {
		return result, err
	}
	result.Columns = rows.Columns
	result.Rows = rows.Rows

	renderStart := time.Now()
	result.Text = answer.Render(rows, draft.Ranking)
	observability.ObserveStage(StageRender, observability.OutcomeOK, time.Since(renderStart))

	result.Duration = time.Since(start)
	observability.ObserveQuestion(observability.OutcomeOK)
	logger.Info("question answered",
		"rows", len(rows.Rows),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (p *Pipeline) synthesize(ctx context.Context, logger *slog.Logger, prompt string) (string, error) {
	start := time.Now()
	sql, err := p.synthesizer.Synthesize(ctx, prompt)
	if err != nil {
		observability.ObserveStage(StageSynthesize, observability.OutcomeError, time.Since(start))
		observability.ObserveQuestion(StageSynthesize)
		logger.Error("query synthesis failed", "error", err)
		return "", err
	}
	observability.ObserveStage(StageSynthesize, observability.OutcomeOK, time.Since(start))
	logger.Debug("query synthesized", "sql", sql, "duration_ms", time.Since(start).Milliseconds())
	return sql, nil
}

func (p *Pipeline) validate(logger *slog.Logger, sql string) error {
	start := time.Now()
	if err := nl2sql.ValidateReadOnly(sql); err != nil {
		observability.ObserveStage(StageValidate, observability.OutcomeRejected, time.Since(start))
		observability.ObserveQuestion(StageValidate)
		logger.Warn("query rejected", "sql", sql, "error", err)
		return err
	}
	observability.ObserveStage(StageValidate, observability.OutcomeOK, time.Since(start))
	return nil
}

func (p *Pipeline) execute(ctx context.Context, logger *slog.Logger, sql string) (query.Result, error) {
	start := time.Now()
	result, err := p.executor.Execute(ctx, sql)
	if err != nil {
		var execErr *query.ExecutionError
		if !errors.As(err, &execErr) {
			err = &query.ExecutionError{SQL: sql, Err: err}
		}
		observability.ObserveStage(StageExecute, observability.OutcomeError, time.Since(start))
		observability.ObserveQuestion(StageExecute)
		logger.Error("query execution failed", "sql", sql, "error", err)
		return query.Result{}, err
	}
	observability.ObserveStage(StageExecute, observability.OutcomeOK, time.Since(start))
	return result, nil
}

func (p *Pipeline) questionLogger(ctx context.Context, draft Draft) *slog.Logger {
	logger := p.logger.With(
		"tables", tableNames(draft.Tables),
		"ranking", draft.Ranking,
		"selection_fallback", draft.Fallback,
	)
	if traceID := observability.TraceIDFromContext(ctx); traceID != "" {
		logger = logger.With("trace_id", traceID)
	}
	return logger
}

func tableNames(tables []metadata.TableDescriptor) []string {
	names := make([]string, 0, len(tables))
	for _, table := range tables {
		names = append(names, table.Name)
	}
	return names
}
