package authmw

import "github.com/labstack/echo/v4"

// RequireLogin admits any signed-in user.
func RequireLogin(state StateFunc) echo.MiddlewareFunc {
	return gate(state, nil)
}
