package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/media"
	"github.com/Skotchmaster/storefront/internal/store"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func errorResponse(c echo.Context, code int, msg string) error {
	return c.JSON(code, Response{Status: "error", Message: msg})
}

// fail answers with the status matching err and the message the slice stored.
func fail(c echo.Context, err error) error {
	code := statusFor(err)
	l := logging.FromContext(c.Request().Context())
	if code >= http.StatusInternalServerError {
		l.Warn("action_failed", "status", code, "error", err)
	} else {
		l.Debug("action_rejected", "status", code, "error", err)
	}
	return errorResponse(c, code, store.MessageOf(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrValidation), errors.Is(err, media.ErrInvalidRef):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrPayment):
		return http.StatusPaymentRequired
	case errors.Is(err, checkout.ErrCheckoutInProgress), errors.Is(err, checkout.ErrNoPaymentPending):
		return http.StatusConflict
	case errors.Is(err, media.ErrNoImage):
		return http.StatusNotFound
	}
	if s := apiclient.StatusOf(err); s >= 400 && s < 500 {
		return s
	}
	return http.StatusBadGateway
}

func badRequest(c echo.Context, msg string) error {
	return errorResponse(c, http.StatusBadRequest, msg)
}
