// Package handler exposes the HTTP surface of the registration service:
// public endpoints teams use to browse and submit, admin endpoints for the
// catalog and ledger, and admin authentication.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/league-registration/internal/log"
	"github.com/iliyamo/league-registration/internal/model"
	"github.com/iliyamo/league-registration/internal/repository"
	"github.com/iliyamo/league-registration/internal/service"
	"github.com/iliyamo/league-registration/internal/utils"
)

// ExportPath is the public, signature-protected CSV download route.
const ExportPath = "/v1/exports/registrations.csv"

// ChangeHook runs after writes that change what availability reads
// return, e.g. to purge a response cache.
type ChangeHook func(ctx context.Context)

// RegistrationHandler serves the public API.
type RegistrationHandler struct {
	Svc       *service.RegistrationService
	Avail     *service.AvailabilityService
	Window    *service.WindowService
	Venues    *repository.VenueRepo
	Slots     *repository.TimeSlotRepo
	Regs      *repository.RegistrationRepo
	ExportKey string
	OnChange  ChangeHook
}

// NewRegistrationHandler panics if a dependency is missing.
func NewRegistrationHandler(svc *service.RegistrationService, avail *service.AvailabilityService, window *service.WindowService,
	venues *repository.VenueRepo, slots *repository.TimeSlotRepo, regs *repository.RegistrationRepo, exportKey string) *RegistrationHandler {
	if svc == nil || avail == nil || window == nil || venues == nil || slots == nil || regs == nil {
		panic("nil dependency passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{
		Svc:       svc,
		Avail:     avail,
		Window:    window,
		Venues:    venues,
		Slots:     slots,
		Regs:      regs,
		ExportKey: exportKey,
		OnChange:  func(context.Context) {},
	}
}

// submitReq is the submit payload. Team numbers end up in mail subjects
// and CSV cells, so they are limited to printable ASCII.
type submitReq struct {
	TeamNumber         string   `json:"team_number" validate:"required,max=16,printascii"`
	RegularSlotIDs     []uint64 `json:"regular_slot_ids" validate:"required"`
	ChampionshipSlotID uint64   `json:"championship_slot_id" validate:"required"`
	Email              string   `json:"email" validate:"omitempty,email,max=254"`
}

// Status reports whether registration is open.
func (h *RegistrationHandler) Status(c echo.Context) error {
	st, err := h.Window.Status(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// TeamAvailability reports whether a team number has already submitted.
func (h *RegistrationHandler) TeamAvailability(c echo.Context) error {
	team := strings.TrimSpace(c.Param("team"))
	if team == "" {
		return badRequest(c, "team number is required")
	}
	res, err := h.Svc.CheckTeam(c.Request().Context(), team)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListSlots returns every selectable slot with derived availability.
func (h *RegistrationHandler) ListSlots(c echo.Context) error {
	items, err := h.Avail.Available(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetSlot returns one active slot of an active venue.
func (h *RegistrationHandler) GetSlot(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	a, err := h.Avail.Slot(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if !a.IsActive || !a.VenueIsActive {
		return respondError(c, repository.ErrTimeSlotNotFound)
	}
	return c.JSON(http.StatusOK, a)
}

// ListVenues returns active venues.
func (h *RegistrationHandler) ListVenues(c echo.Context) error {
	venues, err := h.Venues.ListActive(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": venues})
}

// VenueSlots lists the active slots of an active venue.
func (h *RegistrationHandler) VenueSlots(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx := c.Request().Context()
	v, err := h.Venues.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if !v.IsActive {
		return respondError(c, repository.ErrVenueNotFound)
	}
	slots, err := h.Slots.ListByVenue(ctx, id, true)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue": v, "items": slots})
}

// Submit registers a team for one slot per regular venue plus one
// championship slot.
func (h *RegistrationHandler) Submit(c echo.Context) error {
	var req submitReq
	// Bind only fails on malformed JSON or wrong types; shape checks are
	// left to the validator so every bad field is reported at once.
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	// Trim before validating so "  " counts as missing rather than as a
	// two-character team number.
	req.TeamNumber = strings.TrimSpace(req.TeamNumber)
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "code": "bad_request"})
	}

	// Everything past this point (window, catalog, one-shot and capacity
	// checks) happens inside the service transaction. Rejections come back
	// as typed errors that respondError maps to 403/409/422/503.
	ctx := c.Request().Context()
	res, err := h.Svc.Submit(ctx, service.SubmitRequest{
		TeamNumber:         req.TeamNumber,
		RegularSlotIDs:     req.RegularSlotIDs,
		ChampionshipSlotID: req.ChampionshipSlotID,
		Email:              req.Email,
	})
	if err != nil {
		return respondError(c, err)
	}
	// Occupancy changed, so cached slot listings are stale.
	h.OnChange(ctx)
	return c.JSON(http.StatusCreated, echo.Map{
		"registration_ids": res.RegistrationIDs,
		"message":          res.Message,
	})
}

// SignedExport serves the CSV to holders of a valid, unexpired link.
func (h *RegistrationHandler) SignedExport(c echo.Context) error {
	if h.ExportKey == "" || !utils.VerifyExpiring(h.ExportKey, ExportPath, c.QueryParam("exp"), c.QueryParam("sig"), time.Now()) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid or expired link", "code": "forbidden"})
	}
	return writeCSV(c, h.Regs)
}

// writeCSV streams the team-per-row export as an attachment.
func writeCSV(c echo.Context, regs *repository.RegistrationRepo) error {
	rows, err := regs.ListDetailed(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	resp.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+service.ExportFilename(time.Now())+`"`)
	resp.WriteHeader(http.StatusOK)
	if err := service.WriteRegistrationsCSV(resp, rows); err != nil {
		log.ErrorErr(log.CatHTTP, "csv export write failed", err)
	}
	return nil
}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, strconv.ErrSyntax
	}
	return id, nil
}

// venueKind validates a kind from a request.
func venueKind(s string) (model.VenueKind, bool) {
	k := model.VenueKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}
