package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/felicity-registration/internal/model"
	"github.com/iliyamo/felicity-registration/internal/service"
)

// statusByCode is the single place where error kinds become HTTP statuses.
var statusByCode = map[string]int{
	"NOT_FOUND":          http.StatusNotFound,
	"ALREADY_REGISTERED": http.StatusConflict,
	"INELIGIBLE":         http.StatusForbidden,
	"DEADLINE_PASSED":    http.StatusConflict,
	"CAPACITY_FULL":      http.StatusConflict,
	"VARIANT_NOT_FOUND":  http.StatusNotFound,
	"OUT_OF_STOCK":       http.StatusConflict,
	"INSUFFICIENT_STOCK": http.StatusConflict,
	"LIMIT_EXCEEDED":     http.StatusUnprocessableEntity,
	"INVALID_STATE":      http.StatusConflict,
	"UNAUTHORIZED":       http.StatusForbidden,
	"ALREADY_SCANNED":    http.StatusConflict,
	"INVALID_INPUT":      http.StatusBadRequest,
}

// respondError writes err as {"error", "code"}.  Internal errors never leak
// their message.
func respondError(c echo.Context, err error) error {
	code := model.ErrorCode(err)
	status, ok := statusByCode[code]
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": "INTERNAL"})
	}
	body := echo.Map{"error": err.Error(), "code": code}
	var scanned *service.AlreadyScannedError
	if errors.As(err, &scanned) {
		body["ticket_id"] = scanned.TicketID
		body["attended_at"] = scanned.AttendedAt
		body["scanned_by"] = scanned.ScannedBy
	}
	return c.JSON(status, body)
}
