package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/league-registration/internal/handler"
)

// PublicMiddleware groups the Redis-backed middleware placed in front of
// the public API. Nil entries are skipped.
type PublicMiddleware struct {
	RateLimit   echo.MiddlewareFunc // all public routes
	Cache       echo.MiddlewareFunc // availability reads
	SubmitLimit echo.MiddlewareFunc // tighter bucket for submissions
	SubmitGuard echo.MiddlewareFunc // one in-flight submission per team
}

func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterPublic registers the endpoints teams use. None require
// authentication; the CSV download is protected by its link signature.
func RegisterPublic(e *echo.Echo, h *handler.RegistrationHandler, mw PublicMiddleware) {
	g := e.Group("/v1", chain(mw.RateLimit)...)

	g.GET("/registration/status", h.Status)
	g.GET("/teams/:team/availability", h.TeamAvailability)

	cached := chain(mw.Cache)
	g.GET("/slots", h.ListSlots, cached...)
	g.GET("/slots/:id", h.GetSlot, cached...)
	g.GET("/venues", h.ListVenues, cached...)
	g.GET("/venues/:id/slots", h.VenueSlots, cached...)

	g.POST("/registrations", h.Submit, chain(mw.SubmitLimit, mw.SubmitGuard)...)

	e.GET(handler.ExportPath, h.SignedExport, chain(mw.RateLimit)...)
}
