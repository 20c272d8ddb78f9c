package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/felicity-registration/internal/handler"
	"github.com/iliyamo/felicity-registration/internal/middleware"
)

// Deps carries what the routes need.  Limit and Cache may be nil, in which
// case the routes run without rate limiting or caching.
type Deps struct {
	Participant *handler.ParticipantHandler
	Organizer   *handler.OrganizerHandler
	JWTSecret   string
	Health      handler.Pinger
	Limit       echo.MiddlewareFunc
	Cache       echo.MiddlewareFunc
}

// RegisterRoutes mounts every endpoint on e.
//
//	GET  /healthz
//	GET  /v1/events/:id/availability                  public, cached
//	POST /v1/events/:id/register                      participant
//	POST /v1/events/:id/purchase                      participant
//	POST /v1/registrations/:id/payment-proof          participant
//	GET  /v1/me/registrations                         participant
//	POST /v1/registrations/:id/cancel                 participant or organizer
//	GET  /v1/registrations/:id                        participant or organizer
//	POST /v1/organizer/registrations/:id/approve      organizer
//	POST /v1/organizer/registrations/:id/reject       organizer
//	POST /v1/organizer/attendance/verify              organizer
//	GET  /v1/organizer/events/:id/registrations       organizer
//	PUT  /v1/organizer/events/:id/form                organizer
func RegisterRoutes(e *echo.Echo, d Deps) {
	limit := orPass(d.Limit)
	cache := orPass(d.Cache)

	e.GET("/healthz", handler.Health(d.Health))
	e.GET("/v1/events/:id/availability", d.Participant.Availability, cache)

	auth := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))

	// JWTAuth runs before the limiter so keys can include the user id.
	p := auth.Group("", middleware.RequireRole(middleware.RoleParticipant))
	p.POST("/events/:id/register", d.Participant.Register, limit)
	p.POST("/events/:id/purchase", d.Participant.Purchase, limit)
	p.POST("/registrations/:id/payment-proof", d.Participant.ResubmitProof, limit)
	p.GET("/me/registrations", d.Participant.MyRegistrations)

	both := auth.Group("", middleware.RequireRole(middleware.RoleParticipant, middleware.RoleOrganizer))
	both.POST("/registrations/:id/cancel", d.Participant.Cancel, limit)
	both.GET("/registrations/:id", d.Participant.GetRegistration)

	o := auth.Group("/organizer", middleware.RequireRole(middleware.RoleOrganizer))
	o.POST("/registrations/:id/approve", d.Organizer.Approve, limit)
	o.POST("/registrations/:id/reject", d.Organizer.Reject, limit)
	o.POST("/attendance/verify", d.Organizer.Verify, limit)
	o.GET("/events/:id/registrations", d.Organizer.EventRegistrations)
	o.PUT("/events/:id/form", d.Organizer.UpdateForm)
}

func orPass(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw != nil {
		return mw
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
}
