package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/auth"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/storefront"
)

type Deps struct {
	Storefront *storefront.Storefront

	// PaymentPublicKey is handed to the view so it can mount the card form.
	PaymentPublicKey string
	Currency         string

	// CSRF guards the /api group when set.
	CSRF *csrf.Config
}

func Register(e *echo.Echo, d *Deps) {
	h := &Handler{sf: d.Storefront, publicKey: d.PaymentPublicKey, currency: d.Currency}
	state := func() auth.State { return d.Storefront.State().Auth }

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", h.Ready)

	api := e.Group("/api")
	if d.CSRF != nil {
		api.Use(csrf.Middleware(*d.CSRF))
	}

	api.GET("/state", h.State)
	api.GET("/navigation", h.Navigation)

	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)
	api.GET("/auth/error", h.TakeAuthError)
	api.DELETE("/auth/error", h.ClearAuthError)
	api.POST("/register", h.Register)
	api.GET("/countries", h.Countries)

	api.GET("/products", h.Browse)
	api.GET("/products/distinct", h.DistinctProducts)
	api.GET("/products/suggest", h.Suggest)
	api.GET("/products/:id", h.Product)
	api.GET("/categories", h.Categories)
	api.GET("/categories/:id/products", h.ProductsByCategory)
	api.GET("/brands", h.Brands)
	api.PUT("/brands/:brand", h.FilterByBrand)
	api.PUT("/search", h.SetSearch)
	api.DELETE("/search", h.ResetSearch)
	api.PUT("/pagination", h.SetPagination)
	api.POST("/pagination/next", h.NextPage)
	api.POST("/pagination/previous", h.PreviousPage)
	api.GET("/images/:ref", h.Image)

	login := authmw.RequireLogin(state)

	admin := api.Group("/admin", authmw.AdminOnly(state))
	admin.POST("/products", h.CreateProduct)
	admin.PUT("/products/:id", h.UpdateProduct)
	admin.DELETE("/products/:id", h.DeleteProduct)

	cart := api.Group("/cart", login)
	cart.GET("", h.Cart)
	cart.POST("/items", h.AddToCart)
	cart.PUT("/items/:productId", h.UpdateCartItem)
	cart.POST("/items/:productId/increase", h.IncreaseCartItem)
	cart.POST("/items/:productId/decrease", h.DecreaseCartItem)
	cart.DELETE("/items/:productId", h.RemoveCartItem)

	checkout := api.Group("/checkout", login)
	checkout.GET("/config", h.CheckoutConfig)
	checkout.POST("/begin", h.BeginCheckout)
	checkout.POST("/complete", h.CompleteCheckout)
	checkout.POST("/reset", h.ResetCheckout)

	api.GET("/orders", h.Orders, login)

	profile := api.Group("/profile", login)
	profile.GET("", h.Profile)
	profile.POST("/addresses", h.AddAddress)
	profile.PUT("/addresses/:id", h.UpdateAddress)
	profile.DELETE("/addresses/:id", h.DeleteAddress)
}
