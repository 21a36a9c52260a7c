package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/stockpilot/internal/store"
	"github.com/mohammad-safakhou/stockpilot/internal/workflow"
)

// Runner is the engine surface the thread handlers need.
type Runner interface {
	Run(ctx context.Context, sessionID, input string) (string, error)
	VisibleHistory(ctx context.Context, sessionID string) ([]workflow.Turn, error)
}

// ThreadsHandler serves the conversational endpoints.
type ThreadsHandler struct {
	Store    *store.Store
	Executor Runner
	Logger   *log.Logger
}

func (h *ThreadsHandler) Register(e *echo.Echo) {
	e.POST("/analyze", h.analyze)
	e.GET("/threads", h.listThreads)
	e.GET("/threads/:id", h.threadHistory)
	e.DELETE("/threads/:id", h.deleteThread)
}

type analyzeRequest struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id,omitempty"`
}

type analyzeResponse struct {
	Response string `json:"response"`
	ThreadID string `json:"thread_id"`
}

func (h *ThreadsHandler) analyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}
	h.Logger.Printf("analyze thread=%s query=%q", threadID, req.Query)

	ctx := c.Request().Context()
	if err := h.Store.EnsureThread(ctx, threadID, req.Query); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	response, err := h.Executor.Run(ctx, threadID, req.Query)
	if err != nil {
		var perr *workflow.PersistenceError
		if errors.As(err, &perr) {
			return echo.NewHTTPError(http.StatusInternalServerError, perr.Error())
		}
		// The engine absorbs its own failures; anything else (e.g.
		// cancellation) still surfaces as a polite answer, matching the
		// rule that users never see raw internal errors.
		h.Logger.Printf("analyze thread=%s failed: %v", threadID, err)
		return c.JSON(http.StatusOK, analyzeResponse{
			Response: fmt.Sprintf("I'm sorry, an error occurred: %v", err),
			ThreadID: threadID,
		})
	}
	return c.JSON(http.StatusOK, analyzeResponse{Response: response, ThreadID: threadID})
}

func (h *ThreadsHandler) listThreads(c echo.Context) error {
	threads, err := h.Store.ListThreads(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if threads == nil {
		threads = []store.Thread{}
	}
	return c.JSON(http.StatusOK, threads)
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *ThreadsHandler) threadHistory(c echo.Context) error {
	threadID := c.Param("id")
	turns, err := h.Executor.VisibleHistory(c.Request().Context(), threadID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	messages := make([]historyMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, historyMessage{Role: string(t.Role), Content: t.Content})
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": messages})
}

func (h *ThreadsHandler) deleteThread(c echo.Context) error {
	threadID := c.Param("id")
	if err := h.Store.DeleteThread(c.Request().Context(), threadID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}
