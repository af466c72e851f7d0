package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/league-registration/internal/handler"
	"github.com/iliyamo/league-registration/internal/middleware"
	"github.com/iliyamo/league-registration/internal/model"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.POST("/setup", h.RunSetup)

	// venues
	g.GET("/venues", h.ListVenues)
	g.POST("/venues", h.CreateVenue)
	g.GET("/venues/:id", h.GetVenue)
	g.PUT("/venues/:id", h.UpdateVenue)
	g.PATCH("/venues/:id/active", h.SetVenueActive)
	g.DELETE("/venues/:id", h.DeleteVenue)
	g.GET("/venues/:id/slots", h.VenueSlots)

	// time slots
	g.GET("/slots", h.ListSlots)
	g.POST("/slots", h.CreateSlot)
	g.GET("/slots/:id", h.GetSlot)
	g.PUT("/slots/:id", h.UpdateSlot)
	g.PATCH("/slots/:id/active", h.SetSlotActive)
	g.DELETE("/slots/:id", h.DeleteSlot)
	g.GET("/slots/:id/registrations", h.SlotRegistrations)

	// settings and the typed window
	g.GET("/settings", h.ListSettings)
	g.POST("/settings/init", h.InitSettings)
	g.GET("/settings/:key", h.GetSetting)
	g.PUT("/settings/:key", h.PutSetting)
	g.GET("/window", h.GetWindow)
	g.PUT("/window", h.PutWindow)

	// ledger
	g.GET("/registrations", h.ListRegistrations)
	g.DELETE("/registrations/teams/:team", h.DeleteTeam)
	g.GET("/registrations/export", h.Export)
	g.GET("/registrations/export-link", h.ExportLink)
}
