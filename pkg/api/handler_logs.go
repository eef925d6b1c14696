package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/logwatch/pkg/contract"
	"github.com/codeready-toolchain/logwatch/pkg/models"
	"github.com/codeready-toolchain/logwatch/pkg/planner"
)

// parseLogQueryParams reads the query-string fields shared by /api/logs and
// /api/logs/aggregate into a planner.LogQueryRequest, leaving numeric
// fields at zero (and letting the planner apply its defaults) when absent.
func parseLogQueryParams(c *echo.Context) (planner.LogQueryRequest, error) {
	req := planner.LogQueryRequest{
		Service: c.QueryParam("service"),
		Search:  c.QueryParam("search"),
		TraceID: c.QueryParam("trace_id"),
	}

	if v := c.QueryParam("time_window_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, echo.NewHTTPError(http.StatusBadRequest, "time_window_hours must be an integer")
		}
		req.TimeWindowHours = n
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		req.Limit = n
	}
	if v := c.QueryParam("severity"); v != "" {
		req.Severity = models.Severity(v)
	}
	if v := c.QueryParam("group_by"); v != "" {
		req.GroupBy = contract.GroupByField(v)
	}
	return req, nil
}

// listLogsHandler handles GET /api/logs (spec §4.2 build_list()/§6).
func (s *Server) listLogsHandler(c *echo.Context) error {
	req, err := parseLogQueryParams(c)
	if err != nil {
		return err
	}

	rows, err := s.logStore.List(c.Request().Context(), s.planner, req)
	if err != nil {
		return mapAppError(err)
	}
	return c.JSON(http.StatusOK, LogListResponse{Rows: rows, ReturnedCount: len(rows)})
}

// aggregateLogsHandler handles GET /api/logs/aggregate (spec §4.2
// build_aggregate()/§6).
func (s *Server) aggregateLogsHandler(c *echo.Context) error {
	req, err := parseLogQueryParams(c)
	if err != nil {
		return err
	}

	buckets, err := s.logStore.Aggregate(c.Request().Context(), s.planner, req)
	if err != nil {
		return mapAppError(err)
	}

	out := make([]AggregateBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, AggregateBucket{Key: b.Key, Count: b.Count})
	}
	return c.JSON(http.StatusOK, LogAggregateResponse{Buckets: out})
}

// traceLookupHandler handles GET /api/traces/:trace_id (spec §4.6
// trace_lookup(trace_id)).
func (s *Server) traceLookupHandler(c *echo.Context) error {
	traceID := c.Param("trace_id")
	if traceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "trace_id is required")
	}

	rows, err := s.logStore.TraceLookup(c.Request().Context(), traceID)
	if err != nil {
		return mapAppError(err)
	}
	return c.JSON(http.StatusOK, LogListResponse{Rows: rows, ReturnedCount: len(rows)})
}
