package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/league-registration/internal/log"
	"github.com/iliyamo/league-registration/internal/repository"
	"github.com/iliyamo/league-registration/internal/service"
)

// statusFor maps a service rejection kind onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrRegistrationClosed):
		return http.StatusForbidden
	case errors.Is(err, service.ErrAlreadyRegistered), errors.Is(err, service.ErrSlotFull):
		return http.StatusConflict
	case errors.Is(err, service.ErrChampionshipNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrWrongSelectionCount),
		errors.Is(err, service.ErrInvalidSlot),
		errors.Is(err, service.ErrDuplicateOrMissingVenueSelection),
		errors.Is(err, service.ErrInvalidChampionshipSlot):
		return http.StatusUnprocessableEntity
	}
	return 0
}

// respondError writes err in the {"error", "code"} shape. Rejections keep
// their message; repository sentinels become 404 or 409; anything else is
// logged and hidden behind a generic 500.
func respondError(c echo.Context, err error) error {
	if status := statusFor(err); status != 0 {
		return c.JSON(status, echo.Map{"error": err.Error(), "code": service.Code(err)})
	}
	switch {
	case errors.Is(err, repository.ErrVenueNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found", "code": "not_found"})
	case errors.Is(err, repository.ErrTimeSlotNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "time slot not found", "code": "not_found"})
	case errors.Is(err, repository.ErrSettingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "setting not found", "code": "not_found"})
	case errors.Is(err, service.ErrCatalogExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "Venues already exist", "code": "conflict"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "conflict"})
	}
	log.ErrorErr(log.CatHTTP, "request failed", err, "method", c.Request().Method, "path", c.Path())
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": "internal"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "bad_request"})
}
