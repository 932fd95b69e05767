package api

import (
	xhttp "PriceTrack/pkg/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderUserID is set by the auth proxy in front of the API.
const HeaderUserID = "X-User-ID"

const userKey = "user_id"

// RequireUser rejects requests without a valid user id header.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := uuid.Parse(c.Request().Header.Get(HeaderUserID))
			if err != nil {
				return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("missing or invalid "+HeaderUserID))
			}
			c.Set(userKey, id.String())
			return next(c)
		}
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userKey).(string)
	return id
}
