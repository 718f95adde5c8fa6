package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/auth"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/nav"
	"github.com/Skotchmaster/storefront/internal/storefront"
)

// Handler exposes storefront state and actions to a thin view.
type Handler struct {
	sf        *storefront.Storefront
	publicKey string
	currency  string
}

// Ready reports 503 until the catalog has loaded once.
func (h *Handler) Ready(c echo.Context) error {
	st := h.sf.State().Catalog
	if len(st.Products) == 0 && st.Error != "" {
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handler) State(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sf.State())
}

// Navigation hands pending redirects to the view, which follows them in order.
func (h *Handler) Navigation(c echo.Context) error {
	visits := []nav.Visit{}
	if rec, ok := h.sf.Nav.(*nav.Recorder); ok {
		if drained := rec.Drain(); drained != nil {
			visits = drained
		}
	}
	return c.JSON(http.StatusOK, visits)
}

func (h *Handler) Login(c echo.Context) error {
	var creds auth.Credentials
	if err := c.Bind(&creds); err != nil {
		return badRequest(c, "invalid request body")
	}
	st, err := h.sf.Auth.Login(c.Request().Context(), creds)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) Logout(c echo.Context) error {
	h.sf.Auth.Logout(c.Request().Context())
	return c.JSON(http.StatusOK, h.sf.State().Auth)
}

// TakeAuthError returns the pending login error once.
func (h *Handler) TakeAuthError(c echo.Context) error {
	return c.JSON(http.StatusOK, Response{Status: "ok", Message: h.sf.Auth.TakeError()})
}

func (h *Handler) ClearAuthError(c echo.Context) error {
	h.sf.Auth.ClearError()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Register(c echo.Context) error {
	var reg models.Registration
	if err := c.Bind(&reg); err != nil {
		return badRequest(c, "invalid request body")
	}
	u, err := h.sf.Account.RegisterUser(c.Request().Context(), reg)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Countries(c echo.Context) error {
	list, err := h.sf.Account.FetchCountries(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) Profile(c echo.Context) error {
	u, err := h.sf.Account.GetUserByID(c.Request().Context(), authmw.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) AddAddress(c echo.Context) error {
	var a models.Address
	if err := c.Bind(&a); err != nil {
		return badRequest(c, "invalid request body")
	}
	saved, err := h.sf.Account.AddAddress(c.Request().Context(), authmw.UserID(c), a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, saved)
}

func (h *Handler) UpdateAddress(c echo.Context) error {
	var a models.Address
	if err := c.Bind(&a); err != nil {
		return badRequest(c, "invalid request body")
	}
	saved, err := h.sf.Account.UpdateAddress(c.Request().Context(), models.ID(c.Param("id")), a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}

func (h *Handler) DeleteAddress(c echo.Context) error {
	if err := h.sf.Account.DeleteAddress(c.Request().Context(), models.ID(c.Param("id"))); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, h.sf.State().Account)
}
