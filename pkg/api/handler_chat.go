package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/logwatch/pkg/orchestrator"
	"github.com/codeready-toolchain/logwatch/pkg/stream"
)

// chatHandler handles POST /api/chat: it creates a session on first turn
// (when session_id is empty), generates a run id up front so a client can
// immediately attach to GET /api/sessions/:id/stream, and launches the
// orchestrator run in a background goroutine the way the teacher submits
// chat turns for async processing rather than blocking the request.
func (s *Server) chatHandler(c *echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	userID := req.UserID
	if userID == "" {
		userID = extractAuthor(c)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sess, err := s.sessionStore.CreateSession(c.Request().Context(), userID, "")
		if err != nil {
			return mapAppError(err)
		}
		sessionID = sess.ID
	}

	runID := orchestrator.NewRunID()
	runCtx, cancel := context.WithCancel(context.Background())
	st := stream.New(runID,
		time.Duration(s.cfg.StreamHeartbeatSeconds)*time.Second,
		time.Duration(s.cfg.StreamSlowConsumerSecs)*time.Second)
	s.streams.Register(runID, st, cancel)

	go func() {
		defer s.streams.Unregister(runID)
		_, _ = s.orch.Run(runCtx, runID, sessionID, req.Message, st)
	}()

	return c.JSON(http.StatusAccepted, ChatResponse{SessionID: sessionID, RunID: runID, Status: "running"})
}

// cancelChatHandler handles POST /api/chat/:run_id/cancel.
func (s *Server) cancelChatHandler(c *echo.Context) error {
	runID := c.Param("run_id")
	if err := s.streams.Cancel(runID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, CancelResponse{RunID: runID, Message: "cancellation requested"})
}

// streamHandler handles GET /api/sessions/:id/stream: it looks up the
// run_id query parameter's live Stream and drains it as Server-Sent Events
// until the run finishes or the client disconnects.
func (s *Server) streamHandler(c *echo.Context) error {
	runID := c.QueryParam("run_id")
	if runID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "run_id query parameter is required")
	}
	st, ok := s.streams.Get(runID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found or already finished")
	}
	return st.ServeHTTP(c.Request().Context(), c.Response())
}

// streamWSHandler handles GET /api/sessions/:id/ws: the same live-tail
// feed as streamHandler, upgraded to a WebSocket for clients that can't
// consume text/event-stream (e.g. behind a buffering proxy).
func (s *Server) streamWSHandler(c *echo.Context) error {
	runID := c.QueryParam("run_id")
	if runID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "run_id query parameter is required")
	}
	st, ok := s.streams.Get(runID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found or already finished")
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	return st.ServeWS(c.Request().Context(), conn)
}
