package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// listToolsHandler handles GET /api/tools, the introspection endpoint
// surfacing the closed tool registry (spec §4.6).
func (s *Server) listToolsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, ToolsResponse{Tools: s.toolRegistry.Describe()})
}
