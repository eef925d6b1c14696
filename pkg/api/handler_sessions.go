package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// listSessionsHandler handles GET /api/sessions, scoped to the
// oauth2-proxy-identified caller the same way the teacher's session list
// endpoint scopes to the authenticated user.
func (s *Server) listSessionsHandler(c *echo.Context) error {
	userID := extractAuthor(c)
	sessions, err := s.sessionStore.ListSessions(c.Request().Context(), userID, 0)
	if err != nil {
		return mapAppError(err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// listMessagesHandler handles GET /api/sessions/:id/messages.
func (s *Server) listMessagesHandler(c *echo.Context) error {
	sessionID := c.Param("id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session id is required")
	}

	messages, err := s.sessionStore.ListMessages(c.Request().Context(), sessionID)
	if err != nil {
		return mapAppError(err)
	}
	return c.JSON(http.StatusOK, messages)
}
