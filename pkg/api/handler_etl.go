package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"
)

// listETLJobsHandler handles GET /api/etl/jobs, ETL visibility into the
// idempotent job-state table (spec §4.4).
func (s *Server) listETLJobsHandler(c *echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}

	jobs, err := s.jobStates.List(c.Request().Context(), c.QueryParam("source_table"), c.QueryParam("state"), limit)
	if err != nil {
		return mapAppError(err)
	}
	return c.JSON(http.StatusOK, ETLJobsResponse{Jobs: jobs})
}

// listDeadLettersHandler handles GET /api/etl/deadletters.
func (s *Server) listDeadLettersHandler(c *echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}

	deadLetters, err := s.deadLetters.List(c.Request().Context(), c.QueryParam("source_table"), limit)
	if err != nil {
		return mapAppError(err)
	}
	return c.JSON(http.StatusOK, ETLDeadLettersResponse{DeadLetters: deadLetters})
}
