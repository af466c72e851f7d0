package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/league-registration/internal/log"
	"github.com/iliyamo/league-registration/internal/model"
	"github.com/iliyamo/league-registration/internal/utils"
)

const (
	defaultLinkTTL = 15 * time.Minute
	maxLinkTTL     = 7 * 24 * time.Hour
)

// ----- settings -----

type settingReq struct {
	Value       *string `json:"value" validate:"required"`
	Description string  `json:"description" validate:"max=255"`
}

type windowReq struct {
	IsOpen   *bool   `json:"is_open" validate:"required"`
	Deadline *string `json:"deadline"`
}

// ListSettings returns every stored setting.
func (h *AdminHandler) ListSettings(c echo.Context) error {
	items, err := h.Settings.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetSetting returns one setting by key.
func (h *AdminHandler) GetSetting(c echo.Context) error {
	s, err := h.Settings.Get(c.Request().Context(), c.Param("key"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// PutSetting upserts a raw setting. An empty description keeps the
// stored one.
func (h *AdminHandler) PutSetting(c echo.Context) error {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		return badRequest(c, "key is required")
	}
	var req settingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.Settings.Set(ctx, key, *req.Value, req.Description); err != nil {
		return respondError(c, err)
	}
	h.Window.Invalidate()
	log.Info(log.CatHTTP, "setting updated", "key", key)
	return h.GetSetting(c)
}

// InitSettings inserts any missing default settings.
func (h *AdminHandler) InitSettings(c echo.Context) error {
	n, err := h.Setup.InitSettings(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	h.Window.Invalidate()
	return c.JSON(http.StatusOK, echo.Map{"inserted": n})
}

// GetWindow returns the typed registration window.
func (h *AdminHandler) GetWindow(c echo.Context) error {
	st, err := h.Window.Status(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// PutWindow sets the open flag and deadline. A null or empty deadline
// removes it; otherwise RFC 3339 is expected.
func (h *AdminHandler) PutWindow(c echo.Context) error {
	var req windowReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	w := model.RegistrationWindow{Open: *req.IsOpen}
	if req.Deadline != nil && strings.TrimSpace(*req.Deadline) != "" {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.Deadline))
		if err != nil {
			return badRequest(c, "deadline must be RFC 3339")
		}
		// Stored in UTC; the offset the admin typed is not kept.
		t = t.UTC()
		w.Deadline = &t
	}
	// Set also drops the cached window status.
	if err := h.Window.Set(c.Request().Context(), w); err != nil {
		return respondError(c, err)
	}
	return h.GetWindow(c)
}

// ----- registrations -----

// ListRegistrations returns the full ledger, newest first.
func (h *AdminHandler) ListRegistrations(c echo.Context) error {
	items, err := h.Regs.ListDetailed(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// SlotRegistrations lists the teams in one slot.
func (h *AdminHandler) SlotRegistrations(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx := c.Request().Context()
	if _, err := h.Slots.GetByID(ctx, id); err != nil {
		return respondError(c, err)
	}
	items, err := h.Regs.ListBySlot(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DeleteTeam removes every row of a team so it may submit again.
func (h *AdminHandler) DeleteTeam(c echo.Context) error {
	team := strings.TrimSpace(c.Param("team"))
	if team == "" {
		return badRequest(c, "team number is required")
	}
	ctx := c.Request().Context()
	n, err := h.Regs.DeleteByTeam(ctx, team)
	if err != nil {
		return respondError(c, err)
	}
	if n == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no registrations for team " + team, "code": "not_found"})
	}
	h.OnChange(ctx)
	log.Info(log.CatHTTP, "team registrations deleted", "team", team, "rows", n)
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}

// Export downloads the CSV directly.
func (h *AdminHandler) Export(c echo.Context) error {
	return writeCSV(c, h.Regs)
}

// ExportLink returns a signed, expiring URL for the public CSV route.
// ttl is a Go duration, default 15m, at most 7 days.
func (h *AdminHandler) ExportLink(c echo.Context) error {
	if h.ExportKey == "" {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "export signing is not configured", "code": "unavailable"})
	}
	ttl := defaultLinkTTL
	if raw := c.QueryParam("ttl"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > maxLinkTTL {
			return badRequest(c, "ttl must be a positive duration up to 168h")
		}
		ttl = d
	}
	// The signature covers the path and expiry only. Anyone holding the
	// link can download until it expires; there is no revocation short of
	// rotating the export key.
	expAt := time.Now().Add(ttl).UTC()
	exp, sig := utils.SignExpiring(h.ExportKey, ExportPath, expAt)
	q := url.Values{"exp": {exp}, "sig": {sig}}
	return c.JSON(http.StatusOK, echo.Map{
		"url":        h.PublicBaseURL + ExportPath + "?" + q.Encode(),
		"expires_at": expAt,
	})
}
