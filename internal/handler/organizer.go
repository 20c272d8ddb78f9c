package handler

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/felicity-registration/internal/model"
	"github.com/iliyamo/felicity-registration/internal/service"
)

// OrganizerHandler serves payment review, ticket scanning and the
// registration listing for the organizer who owns an event.
type OrganizerHandler struct {
	Svc *service.Service
}

// NewOrganizerHandler panics on a nil service.
func NewOrganizerHandler(svc *service.Service) *OrganizerHandler {
	if svc == nil {
		panic("nil service passed to NewOrganizerHandler")
	}
	return &OrganizerHandler{Svc: svc}
}

// Approve handles POST /v1/organizer/registrations/:id/approve.
func (h *OrganizerHandler) Approve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	regID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid registration id")
	}
	reg, err := h.Svc.Approve(c.Request().Context(), userID, regID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, reg)
}

// Reject handles POST /v1/organizer/registrations/:id/reject with
// {"reason": "..."}.
func (h *OrganizerHandler) Reject(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	regID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid registration id")
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	reg, err := h.Svc.Reject(c.Request().Context(), userID, regID, body.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, reg)
}

// Verify handles POST /v1/organizer/attendance/verify.  "ticket" holds
// whatever the scanner read: a bare ticket id or the QR token.
func (h *OrganizerHandler) Verify(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		Ticket string `json:"ticket"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	v, err := h.Svc.Verify(c.Request().Context(), userID, body.Ticket)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// EventRegistrations handles GET /v1/organizer/events/:id/registrations.
// With ?format=csv the rows are streamed as a CSV attachment.
func (h *OrganizerHandler) EventRegistrations(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	rows, err := h.Svc.EventRegistrations(c.Request().Context(), userID, eventID)
	if err != nil {
		return respondError(c, err)
	}
	if c.QueryParam("format") != "csv" {
		return c.JSON(http.StatusOK, echo.Map{"registrations": rows})
	}
	return writeCSV(c, eventID, rows)
}

// UpdateForm handles PUT /v1/organizer/events/:id/form.
func (h *OrganizerHandler) UpdateForm(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var body struct {
		Fields []model.FormField `json:"fields"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	ev, err := h.Svc.UpdateCustomForm(c.Request().Context(), userID, eventID, body.Fields)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": ev.ID, "fields": ev.CustomForm})
}

var csvHeader = []string{"registration_id", "ticket_id", "participant_id", "name", "email",
	"status", "payment_status", "amount_paid", "attended", "registered_at"}

func writeCSV(c echo.Context, eventID uint64, rows []model.ExportRow) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="event-`+strconv.FormatUint(eventID, 10)+`-registrations.csv"`)
	res.WriteHeader(http.StatusOK)

	w := csv.NewWriter(res)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.FormatUint(r.RegistrationID, 10),
			r.TicketID,
			strconv.FormatUint(r.ParticipantID, 10),
			r.ParticipantName,
			r.ParticipantEmail,
			string(r.Status),
			string(r.PaymentStatus),
			strconv.FormatInt(r.AmountPaid, 10),
			strconv.FormatBool(r.Attended),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
