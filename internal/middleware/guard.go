package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/league-registration/internal/log"
)

const guardPrefix = "guard:submit:"

// SubmitGuard rejects a second submission for the same team while the
// first is still in flight, before either reaches the database. The
// transaction remains the source of truth; this only sheds duplicate
// double-clicks early. The marker is removed when the request finishes
// and expires after ttl regardless.
func SubmitGuard(rdb *redis.Client, ttl time.Duration) echo.MiddlewareFunc {
	if rdb == nil {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			team := peekTeamNumber(c.Request())
			if team == "" {
				return next(c)
			}
			ctx := c.Request().Context()
			key := guardPrefix + team
			ok, err := rdb.SetNX(ctx, key, "1", ttl).Result()
			if err != nil {
				log.Warn(log.CatCache, "submit guard unavailable", "team", team, "error", err.Error())
				return next(c)
			}
			if !ok {
				return c.JSON(http.StatusConflict, echo.Map{
					"error": "A submission for team " + team + " is already in progress",
					"code":  "submission_in_progress",
				})
			}
			defer func() {
				if err := rdb.Del(context.Background(), key).Err(); err != nil {
					log.Warn(log.CatCache, "submit guard release failed", "team", team, "error", err.Error())
				}
			}()
			return next(c)
		}
	}
}

// peekTeamNumber reads team_number from a JSON body and restores the body
// for the handler.
func peekTeamNumber(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var body struct {
		TeamNumber string `json:"team_number"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return strings.TrimSpace(body.TeamNumber)
}
