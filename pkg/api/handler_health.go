package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/logwatch/pkg/version"
)

// healthHandler reports database pool connectivity, the shape the teacher's
// health endpoint uses, backed by db.Client.Health instead of the old
// package-level database.Health helper.
func (s *Server) healthHandler(c *echo.Context) error {
	checks := map[string]HealthCheck{}

	status := "healthy"
	dbStatus, err := s.dbClient.Health(c.Request().Context())
	if err != nil {
		status = "unhealthy"
		checks["database"] = HealthCheck{Status: "unhealthy", Message: err.Error()}
	} else {
		checks["database"] = HealthCheck{Status: dbStatus.Status}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, HealthResponse{Status: status, Version: version.Full(), Checks: checks})
}
