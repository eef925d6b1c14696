package api

import (
	"errors"
	"log/slog"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/logwatch/pkg/apperrors"
)

// mapAppError maps the closed apperrors taxonomy to an Echo HTTP error,
// using Sanitize so KindInternal/KindUnavailable never leak Detail past
// the log line (spec §7).
func mapAppError(err error) *echo.HTTPError {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		sanitized := appErr.Sanitize()
		if appErr.Kind == apperrors.KindInternal || appErr.Kind == apperrors.KindUnavailable {
			slog.Error("internal error", "kind", appErr.Kind, "detail", appErr.Detail, "correlation_id", appErr.CorrelationID)
		}
		return echo.NewHTTPError(appErr.Kind.HTTPStatus(), sanitized.Error())
	}

	slog.Error("unexpected error", "error", err)
	return echo.NewHTTPError(500, "internal server error")
}
