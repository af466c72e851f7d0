package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/league-registration/internal/model"
	"github.com/iliyamo/league-registration/internal/repository"
	"github.com/iliyamo/league-registration/internal/service"
)

// AdminHandler bundles the catalog, settings and ledger operations
// available to admins.
type AdminHandler struct {
	Venues   *repository.VenueRepo
	Slots    *repository.TimeSlotRepo
	Regs     *repository.RegistrationRepo
	Settings *repository.SettingRepo
	Avail    *service.AvailabilityService
	Window   *service.WindowService
	Setup    *service.SetupService

	ExportKey     string
	PublicBaseURL string
	OnChange      ChangeHook
}

// NewAdminHandler panics if a dependency is missing.
func NewAdminHandler(venues *repository.VenueRepo, slots *repository.TimeSlotRepo, regs *repository.RegistrationRepo,
	settings *repository.SettingRepo, avail *service.AvailabilityService, window *service.WindowService, setup *service.SetupService) *AdminHandler {
	if venues == nil || slots == nil || regs == nil || settings == nil || avail == nil || window == nil || setup == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Venues:   venues,
		Slots:    slots,
		Regs:     regs,
		Settings: settings,
		Avail:    avail,
		Window:   window,
		Setup:    setup,
		OnChange: func(context.Context) {},
	}
}

// ----- venues -----

type venueReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	Kind     string `json:"kind" validate:"required,oneof=regular championship"`
	Location string `json:"location" validate:"max=255"`
	Address  string `json:"address" validate:"max=255"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	IsActive *bool  `json:"is_active"`
}

type venueUpdateReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	Location string `json:"location" validate:"max=255"`
	Address  string `json:"address" validate:"max=255"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type activeReq struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// ListVenues returns every venue, active or not.
func (h *AdminHandler) ListVenues(c echo.Context) error {
	venues, err := h.Venues.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": venues})
}

// GetVenue returns one venue.
func (h *AdminHandler) GetVenue(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	v, err := h.Venues.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// CreateVenue adds a venue. Kind cannot be changed afterwards.
func (h *AdminHandler) CreateVenue(c echo.Context) error {
	var req venueReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	kind, _ := venueKind(req.Kind)
	v := &model.Venue{
		Name:     req.Name,
		Kind:     kind,
		IsActive: req.IsActive == nil || *req.IsActive,
		Location: strings.TrimSpace(req.Location),
		Address:  strings.TrimSpace(req.Address),
		Date:     req.Date,
	}
	ctx := c.Request().Context()
	if err := h.Venues.Create(ctx, v); err != nil {
		return respondError(c, err)
	}
	h.OnChange(ctx)
	return c.JSON(http.StatusCreated, v)
}

// UpdateVenue changes a venue's descriptive fields.
func (h *AdminHandler) UpdateVenue(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req venueUpdateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.Venues.UpdateDetails(ctx, id, req.Name, strings.TrimSpace(req.Location), strings.TrimSpace(req.Address), req.Date); err != nil {
		return respondError(c, err)
	}
	h.OnChange(ctx)
	return h.GetVenue(c)
}

// SetVenueActive shows or hides a venue.
func (h *AdminHandler) SetVenueActive(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req activeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.Venues.SetActive(ctx, id, *req.IsActive); err != nil {
		return respondError(c, err)
	}
	h.OnChange(ctx)
	return h.GetVenue(c)
}

// DeleteVenue removes a venue and its slots unless teams registered there.
func (h *AdminHandler) DeleteVenue(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx := c.Request().Context()
	if err := h.Venues.Delete(ctx, id); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Cannot delete a venue with registrations. Deactivate it instead.",
				"code":  "conflict",
			})
		}
		return respondError(c, err)
	}
	h.OnChange(ctx)
	return c.NoContent(http.StatusNoContent)
}

// RunSetup seeds the default catalog into an empty database.
func (h *AdminHandler) RunSetup(c echo.Context) error {
	ctx := c.Request().Context()
	res, err := h.Setup.Setup(ctx)
	if err != nil {
		return respondError(c, err)
	}
	h.Window.Invalidate()
	h.OnChange(ctx)
	return c.JSON(http.StatusCreated, res)
}

// ----- time slots -----

type slotReq struct {
	VenueID  uint64 `json:"venue_id" validate:"required"`
	DayLabel string `json:"day_label" validate:"required,max=32"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Capacity int    `json:"capacity" validate:"gt=0"`
	IsActive *bool  `json:"is_active"`
}

type slotUpdateReq struct {
	DayLabel string `json:"day_label" validate:"required,max=32"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Capacity int    `json:"capacity" validate:"gt=0"`
}

// ListSlots returns every slot, active or not, with derived counters.
func (h *AdminHandler) ListSlots(c echo.Context) error {
	items, err := h.Avail.All(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// VenueSlots lists all slots of one venue.
func (h *AdminHandler) VenueSlots(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx := c.Request().Context()
	if _, err := h.Venues.GetByID(ctx, id); err != nil {
		return respondError(c, err)
	}
	slots, err := h.Slots.ListByVenue(ctx, id, false)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": slots})
}

// GetSlot returns one slot with derived counters.
func (h *AdminHandler) GetSlot(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	a, err := h.Avail.Slot(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// CreateSlot adds a day to a venue. Slots are active unless stated.
func (h *AdminHandler) CreateSlot(c echo.Context) error {
	var req slotReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.DayLabel = strings.TrimSpace(req.DayLabel)
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	ts := &model.TimeSlot{
		VenueID:  req.VenueID,
		DayLabel: req.DayLabel,
		Date:     req.Date,
		Capacity: req.Capacity,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	ctx := c.Request().Context()
	if err := h.Slots.Create(ctx, ts); err != nil {
		return respondError(c, err)
	}
	h.OnChange(ctx)
	return c.JSON(http.StatusCreated, ts)
}

// UpdateSlot changes day label, date and capacity.
func (h *AdminHandler) UpdateSlot(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req slotUpdateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.DayLabel = strings.TrimSpace(req.DayLabel)
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.Slots.Update(ctx, id, req.DayLabel, req.Date, req.Capacity); err != nil {
		return respondError(c, err)
	}
	h.OnChange(ctx)
	return h.GetSlot(c)
}

// SetSlotActive opens or closes a slot for selection.
func (h *AdminHandler) SetSlotActive(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req activeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.Slots.SetActive(ctx, id, *req.IsActive); err != nil {
		return respondError(c, err)
	}
	h.OnChange(ctx)
	return h.GetSlot(c)
}

// DeleteSlot removes a slot nobody has registered for.
func (h *AdminHandler) DeleteSlot(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx := c.Request().Context()
	if err := h.Slots.Delete(ctx, id); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Cannot delete a time slot with registrations. Deactivate it instead.",
				"code":  "conflict",
			})
		}
		return respondError(c, err)
	}
	h.OnChange(ctx)
	return c.NoContent(http.StatusNoContent)
}
