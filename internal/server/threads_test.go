package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/stockpilot/internal/store"
	"github.com/mohammad-safakhou/stockpilot/internal/workflow"
)

type fakeRunner struct {
	answer  string
	err     error
	history []workflow.Turn
	lastID  string
}

func (f *fakeRunner) Run(_ context.Context, sessionID, _ string) (string, error) {
	f.lastID = sessionID
	return f.answer, f.err
}

func (f *fakeRunner) VisibleHistory(context.Context, string) ([]workflow.Turn, error) {
	return f.history, nil
}

func newThreadsHandler(t *testing.T, runner Runner) (*ThreadsHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	h := &ThreadsHandler{
		Store:    &store.Store{DB: db},
		Executor: runner,
		Logger:   log.New(io.Discard, "", 0),
	}
	return h, mock, func() { db.Close() }
}

func TestAnalyzeNewThread(t *testing.T) {
	e := echo.New()
	runner := &fakeRunner{answer: "AAPL trades at $123.\nDASHBOARD:AAPL"}
	h, mock, closeDB := newThreadsHandler(t, runner)
	defer closeDB()

	// No thread id in the request, so one is generated and a thread row is
	// created with the query as title.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT title FROM threads WHERE id=$1`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO threads (id, title, updated_at) VALUES ($1,$2,NOW())`)).
		WithArgs(sqlmock.AnyArg(), "price of AAPL?").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"query":"price of AAPL?"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.analyze(e.NewContext(req, rec)); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}

	var resp analyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Response != runner.answer {
		t.Fatalf("unexpected response: %q", resp.Response)
	}
	if resp.ThreadID == "" || resp.ThreadID != runner.lastID {
		t.Fatalf("thread id mismatch: %q vs %q", resp.ThreadID, runner.lastID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAnalyzeExistingThread(t *testing.T) {
	e := echo.New()
	runner := &fakeRunner{answer: "sure"}
	h, mock, closeDB := newThreadsHandler(t, runner)
	defer closeDB()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT title FROM threads WHERE id=$1`)).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("price of AAPL?"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE threads SET updated_at=NOW() WHERE id=$1`)).
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"query":"and the news?","thread_id":"t-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.analyze(e.NewContext(req, rec)); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if runner.lastID != "t-1" {
		t.Fatalf("expected run against t-1, got %q", runner.lastID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAnalyzeMissingQuery(t *testing.T) {
	e := echo.New()
	h, _, closeDB := newThreadsHandler(t, &fakeRunner{})
	defer closeDB()

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.analyze(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAnalyzePersistenceErrorIs500(t *testing.T) {
	e := echo.New()
	runner := &fakeRunner{err: &workflow.PersistenceError{Op: "save", Err: fmt.Errorf("connection refused")}}
	h, mock, closeDB := newThreadsHandler(t, runner)
	defer closeDB()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT title FROM threads WHERE id=$1`)).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("x"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE threads SET updated_at=NOW() WHERE id=$1`)).
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"query":"hello","thread_id":"t-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.analyze(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
}

func TestAnalyzeOtherErrorIsPoliteAnswer(t *testing.T) {
	e := echo.New()
	runner := &fakeRunner{err: context.Canceled}
	h, mock, closeDB := newThreadsHandler(t, runner)
	defer closeDB()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT title FROM threads WHERE id=$1`)).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("x"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE threads SET updated_at=NOW() WHERE id=$1`)).
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"query":"hello","thread_id":"t-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.analyze(e.NewContext(req, rec)); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	var resp analyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp.Response, "I'm sorry, an error occurred") {
		t.Fatalf("unexpected response: %q", resp.Response)
	}
}

func TestListThreadsEmpty(t *testing.T) {
	e := echo.New()
	h, mock, closeDB := newThreadsHandler(t, &fakeRunner{})
	defer closeDB()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, title, updated_at FROM threads ORDER BY updated_at DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "updated_at"}))

	req := httptest.NewRequest(http.MethodGet, "/threads", nil)
	rec := httptest.NewRecorder()

	if err := h.listThreads(e.NewContext(req, rec)); err != nil {
		t.Fatalf("listThreads: %v", err)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("expected empty JSON array, got %q", body)
	}
}

func TestThreadHistory(t *testing.T) {
	e := echo.New()
	runner := &fakeRunner{history: []workflow.Turn{
		{Role: workflow.RoleUser, Content: "price of AAPL?"},
		{Role: workflow.RoleAssistant, Content: "AAPL trades at $123.\nDASHBOARD:AAPL"},
	}}
	h, _, closeDB := newThreadsHandler(t, runner)
	defer closeDB()

	req := httptest.NewRequest(http.MethodGet, "/threads/t-1", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("t-1")

	if err := h.threadHistory(ctx); err != nil {
		t.Fatalf("threadHistory: %v", err)
	}
	var resp struct {
		Messages []historyMessage `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Messages) != 2 || resp.Messages[0].Role != "user" || resp.Messages[1].Role != "assistant" {
		t.Fatalf("unexpected messages: %+v", resp.Messages)
	}
}

func TestDeleteThread(t *testing.T) {
	e := echo.New()
	h, mock, closeDB := newThreadsHandler(t, &fakeRunner{})
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM checkpoints WHERE thread_id=$1`)).
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM threads WHERE id=$1`)).
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodDelete, "/threads/t-1", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("t-1")

	if err := h.deleteThread(ctx); err != nil {
		t.Fatalf("deleteThread: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
