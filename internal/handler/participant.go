package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/felicity-registration/internal/service"
)

// ParticipantHandler serves the participant side of the lifecycle:
// registering, buying merchandise, cancelling and re-uploading payment
// proofs.  JWT authentication and the role check run in middleware.
type ParticipantHandler struct {
	Svc *service.Service
}

// NewParticipantHandler panics on a nil service.
func NewParticipantHandler(svc *service.Service) *ParticipantHandler {
	if svc == nil {
		panic("nil service passed to NewParticipantHandler")
	}
	return &ParticipantHandler{Svc: svc}
}

// Register handles POST /v1/events/:id/register.  The optional body carries
// the answers to the event's custom form.
func (h *ParticipantHandler) Register(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var body struct {
		FormResponse map[string]any `json:"form_response"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	reg, err := h.Svc.Register(c.Request().Context(), service.RegisterInput{
		ParticipantID: userID,
		EventID:       eventID,
		FormResponse:  body.FormResponse,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, reg)
}

// Purchase handles POST /v1/events/:id/purchase.
func (h *ParticipantHandler) Purchase(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var body struct {
		Size         string `json:"size"`
		Color        string `json:"color"`
		Quantity     int    `json:"quantity"`
		PaymentProof string `json:"payment_proof"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	reg, err := h.Svc.Purchase(c.Request().Context(), service.PurchaseInput{
		ParticipantID: userID,
		EventID:       eventID,
		Size:          body.Size,
		Color:         body.Color,
		Quantity:      body.Quantity,
		PaymentProof:  body.PaymentProof,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, reg)
}

// Cancel handles POST /v1/registrations/:id/cancel.  It is mounted for both
// roles; the service decides whether the caller may cancel.
func (h *ParticipantHandler) Cancel(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return unauthorized(c)
	}
	regID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid registration id")
	}
	reg, err := h.Svc.Cancel(c.Request().Context(), actor, regID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, reg)
}

// ResubmitProof handles POST /v1/registrations/:id/payment-proof.
func (h *ParticipantHandler) ResubmitProof(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	regID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid registration id")
	}
	var body struct {
		PaymentProof string `json:"payment_proof"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	reg, err := h.Svc.Resubmit(c.Request().Context(), userID, regID, body.PaymentProof)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, reg)
}

// MyRegistrations handles GET /v1/me/registrations.
func (h *ParticipantHandler) MyRegistrations(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	regs, err := h.Svc.MyRegistrations(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"registrations": regs})
}

// GetRegistration handles GET /v1/registrations/:id for the participant or
// the event's organizer.
func (h *ParticipantHandler) GetRegistration(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return unauthorized(c)
	}
	regID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid registration id")
	}
	reg, err := h.Svc.GetRegistration(c.Request().Context(), actor, regID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, reg)
}

// Availability handles the public GET /v1/events/:id/availability.
func (h *ParticipantHandler) Availability(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	a, err := h.Svc.Availability(c.Request().Context(), eventID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}
