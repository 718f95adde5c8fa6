package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/checkout"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
)

type checkoutConfig struct {
	PublicKey string `json:"publicKey"`
	Currency  string `json:"currency"`
}

func (h *Handler) CheckoutConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, checkoutConfig{PublicKey: h.publicKey, Currency: h.currency})
}

// beginResponse carries the client secret the card form confirms against.
type beginResponse struct {
	checkout.Attempt
	ClientSecret string `json:"clientSecret"`
}

// BeginCheckout opens an attempt for the current cart. The view confirms the
// card with the processor and reports the outcome to CompleteCheckout.
func (h *Handler) BeginCheckout(c echo.Context) error {
	att, err := h.sf.Checkout.Begin(c.Request().Context(), authmw.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, beginResponse{Attempt: att, ClientSecret: att.ClientSecret})
}

func (h *Handler) CompleteCheckout(c echo.Context) error {
	var outcome checkout.PaymentOutcome
	if err := c.Bind(&outcome); err != nil {
		return badRequest(c, "invalid request body")
	}
	st, err := h.sf.Checkout.Complete(c.Request().Context(), outcome)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) ResetCheckout(c echo.Context) error {
	h.sf.Checkout.Reset()
	return c.JSON(http.StatusOK, h.sf.State().Order)
}

func (h *Handler) Orders(c echo.Context) error {
	st, err := h.sf.Checkout.FetchOrders(c.Request().Context(), authmw.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st.Orders)
}
