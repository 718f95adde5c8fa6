package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/models"
)

func (h *Handler) Cart(c echo.Context) error {
	st, err := h.sf.Cart.LoadCart(c.Request().Context(), authmw.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

type addToCartRequest struct {
	ProductID models.ID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// AddToCart adds the product and reloads the cart, since lines merge server-side.
func (h *Handler) AddToCart(c echo.Context) error {
	var req addToCartRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	if err := h.sf.Cart.AddItem(ctx, req.ProductID, req.Quantity); err != nil {
		return fail(c, err)
	}
	st, err := h.sf.Cart.LoadCart(ctx, authmw.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) UpdateCartItem(c echo.Context) error {
	var req quantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	cartID := h.sf.State().Cart.CartID
	st, err := h.sf.Cart.UpdateQuantity(c.Request().Context(), cartID, models.ID(c.Param("productId")), req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) IncreaseCartItem(c echo.Context) error {
	st, err := h.sf.Cart.Increase(c.Request().Context(), models.ID(c.Param("productId")))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) DecreaseCartItem(c echo.Context) error {
	st, err := h.sf.Cart.Decrease(c.Request().Context(), models.ID(c.Param("productId")))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) RemoveCartItem(c echo.Context) error {
	cartID := h.sf.State().Cart.CartID
	st, err := h.sf.Cart.RemoveItem(c.Request().Context(), cartID, models.ID(c.Param("productId")))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
