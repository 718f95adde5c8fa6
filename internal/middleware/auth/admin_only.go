package authmw

import "github.com/labstack/echo/v4"

const RoleAdmin = "ROLE_ADMIN"

// AdminOnly admits users holding the admin role.
func AdminOnly(state StateFunc) echo.MiddlewareFunc {
	return RequireRoles(state, RoleAdmin)
}

// RequireRoles admits users holding at least one of roles, compared case-insensitively.
func RequireRoles(state StateFunc, roles ...string) echo.MiddlewareFunc {
	return gate(state, roles)
}
