package authmw

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/auth"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/nav"
)

const (
	ctxUserID = "userID"
	ctxRoles  = "roles"
)

// StateFunc returns the current auth slice.
type StateFunc func() auth.State

// denial is what a gated route answers instead of running its handler.
type denial struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

func gate(state StateFunc, roles []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := state()
			switch st.Authorize(roles...) {
			case auth.AccessLogin:
				return c.JSON(http.StatusUnauthorized, denial{Message: "login required", Redirect: nav.LoginPath})
			case auth.AccessForbidden:
				return c.JSON(http.StatusForbidden, denial{Message: "not enough rights", Redirect: nav.UnauthorizedPath})
			}
			setUserContext(c, st)
			return next(c)
		}
	}
}

func setUserContext(c echo.Context, st auth.State) {
	c.Set(ctxUserID, st.UserID)
	c.Set(ctxRoles, st.Roles)
}

// UserID returns the user a gated request runs as.
func UserID(c echo.Context) models.ID {
	id, _ := c.Get(ctxUserID).(models.ID)
	return id
}
