package backendtest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (b *Backend) routes(e *echo.Echo) {
	e.GET("/countries", b.countries)

	api := e.Group(BasePath, b.injectFaults)

	api.POST("/auth/login", b.login)

	api.GET("/products/all", b.allProducts)
	api.GET("/products/product/:id/product", b.productByID)
	api.GET("/products/category/:id/products", b.productsByCategory)
	api.GET("/products/distinct/products", b.distinctProducts)
	api.GET("/products/distinct/brands", b.brands)
	api.POST("/products/add", b.addProduct, b.requireAdmin)
	api.PUT("/products/product/:id/update", b.updateProduct, b.requireAdmin)
	api.DELETE("/products/product/:id/delete", b.deleteProduct, b.requireAdmin)

	api.GET("/categories/all", b.allCategories)

	api.GET("/carts/user/:id/cart", b.userCart, b.requireToken)
	api.POST("/cartItems/item/add", b.addCartItem, b.requireToken)
	api.PUT("/cartItems/cart/:cartId/item/:itemId/update", b.updateCartItem, b.requireToken)
	api.DELETE("/cartItems/cart/:cartId/item/:itemId/remove", b.removeCartItem, b.requireToken)

	api.POST("/orders/user/:id/place-order", b.placeOrder, b.requireToken)
	api.GET("/orders/user/:id/orders", b.userOrders, b.requireToken)
	api.POST("/orders/create-payment-intent", b.paymentIntent, b.requireToken)

	api.GET("/users/user/:id/user", b.userByID, b.requireToken)
	api.POST("/users/add", b.register)
	api.POST("/addresses/:userId/new", b.addAddresses, b.requireToken)
	api.PUT("/addresses/:id/update", b.updateAddress, b.requireToken)
	api.DELETE("/addresses/:id/delete", b.deleteAddress, b.requireToken)

	api.GET("/images/image/download/:id", b.downloadImage)
}

func (b *Backend) login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return replyError(c, http.StatusBadRequest, "Invalid request")
	}

	b.mu.Lock()
	var found *account
	for _, acc := range b.accounts {
		if strings.EqualFold(acc.user.Email, req.Email) && acc.password == req.Password {
			found = acc
			break
		}
	}
	b.mu.Unlock()

	if found == nil {
		return replyError(c, http.StatusUnauthorized, "Invalid email or password")
	}
	return reply(c, http.StatusOK, "Login successful", echo.Map{
		"id":    found.user.ID,
		"token": b.TokenFor(found.user.ID, time.Hour),
	})
}

func (b *Backend) allProducts(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return reply(c, http.StatusOK, "success", append([]models.Product{}, b.products...))
}

func (b *Backend) productByID(c echo.Context) error {
	p, found := b.Product(models.ID(c.Param("id")))
	if !found {
		return replyError(c, http.StatusNotFound, "Product not found!")
	}
	return reply(c, http.StatusOK, "success", p)
}

func (b *Backend) productsByCategory(c echo.Context) error {
	id := models.ID(c.Param("id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Product{}
	for _, p := range b.products {
		if p.Category.ID == id {
			out = append(out, p)
		}
	}
	return reply(c, http.StatusOK, "success", out)
}

func (b *Backend) distinctProducts(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := map[string]bool{}
	out := []models.Product{}
	for _, p := range b.products {
		if !seen[p.Name] {
			seen[p.Name] = true
			out = append(out, p)
		}
	}
	return reply(c, http.StatusOK, "success", out)
}

func (b *Backend) brands(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, p := range b.products {
		if !seen[p.Brand] {
			seen[p.Brand] = true
			out = append(out, p.Brand)
		}
	}
	return reply(c, http.StatusOK, "success", out)
}

func (b *Backend) addProduct(c echo.Context) error {
	var p models.Product
	if err := c.Bind(&p); err != nil || p.Name == "" {
		return replyError(c, http.StatusBadRequest, "Invalid product")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p.ID = b.newIDLocked()
	b.products = append(b.products, p)
	return reply(c, http.StatusCreated, "Product added", p)
}

func (b *Backend) updateProduct(c echo.Context) error {
	var p models.Product
	if err := c.Bind(&p); err != nil {
		return replyError(c, http.StatusBadRequest, "Invalid product")
	}
	id := models.ID(c.Param("id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID == id {
			p.ID = id
			b.products[i] = p
			return reply(c, http.StatusOK, "Product updated", p)
		}
	}
	return replyError(c, http.StatusNotFound, "Product not found!")
}

func (b *Backend) deleteProduct(c echo.Context) error {
	id := models.ID(c.Param("id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID == id {
			b.products = append(b.products[:i:i], b.products[i+1:]...)
			return reply(c, http.StatusOK, "Product deleted successfully", nil)
		}
	}
	return replyError(c, http.StatusNotFound, "Product not found!")
}

func (b *Backend) allCategories(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return reply(c, http.StatusOK, "Found", append([]models.Category{}, b.categories...))
}

func (b *Backend) userCart(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return reply(c, http.StatusOK, "success", *b.cartLocked(models.ID(c.Param("id"))))
}

func (b *Backend) addCartItem(c echo.Context) error {
	productID := models.ID(c.QueryParam("productId"))
	qty, err := strconv.Atoi(c.QueryParam("quantity"))
	if err != nil || qty < 1 {
		return replyError(c, http.StatusBadRequest, "Invalid quantity")
	}
	userID := b.userFromToken(c)

	b.mu.Lock()
	defer b.mu.Unlock()
	var product *models.Product
	for i := range b.products {
		if b.products[i].ID == productID {
			product = &b.products[i]
		}
	}
	if product == nil {
		return replyError(c, http.StatusNotFound, "Product not found!")
	}
	cart := b.cartLocked(userID)
	merged := false
	for i := range cart.Items {
		if cart.Items[i].Product.ID == productID {
			cart.Items[i].Quantity += qty
			merged = true
		}
	}
	if !merged {
		cart.Items = append(cart.Items, models.CartItem{
			ID:        b.newIDLocked(),
			Product:   *product,
			Quantity:  qty,
			UnitPrice: product.Price,
		})
	}
	*cart = cart.Normalize()
	return reply(c, http.StatusOK, "Add Item Success", nil)
}

func (b *Backend) findCartLocked(cartID models.ID) *models.Cart {
	for _, cart := range b.carts {
		if cart.CartID == cartID {
			return cart
		}
	}
	return nil
}

func (b *Backend) updateCartItem(c echo.Context) error {
	qty, err := strconv.Atoi(c.QueryParam("quantity"))
	if err != nil || qty < 1 {
		return replyError(c, http.StatusBadRequest, "Invalid quantity")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cart := b.findCartLocked(models.ID(c.Param("cartId")))
	if cart == nil {
		return replyError(c, http.StatusNotFound, "Cart not found")
	}
	itemID := models.ID(c.Param("itemId"))
	for i := range cart.Items {
		if cart.Items[i].Key() == itemID {
			cart.Items[i].Quantity = qty
			*cart = cart.Normalize()
			return reply(c, http.StatusOK, "Update Item Success", nil)
		}
	}
	return replyError(c, http.StatusNotFound, "Item not found")
}

func (b *Backend) removeCartItem(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cart := b.findCartLocked(models.ID(c.Param("cartId")))
	if cart == nil {
		return replyError(c, http.StatusNotFound, "Cart not found")
	}
	itemID := models.ID(c.Param("itemId"))
	for i := range cart.Items {
		if cart.Items[i].Key() == itemID {
			cart.Items = append(cart.Items[:i:i], cart.Items[i+1:]...)
			*cart = cart.Normalize()
			return reply(c, http.StatusOK, "Remove Item Success", nil)
		}
	}
	return replyError(c, http.StatusNotFound, "Item not found")
}

func (b *Backend) placeOrder(c echo.Context) error {
	userID := models.ID(c.Param("id"))
	idemKey := c.Request().Header.Get("Idempotency-Key")

	b.mu.Lock()
	defer b.mu.Unlock()
	if idemKey != "" {
		if prev, seen := b.placed[idemKey]; seen {
			return reply(c, http.StatusOK, "Order already placed", prev)
		}
	}
	cart := b.cartLocked(userID)
	if len(cart.Items) == 0 {
		return replyError(c, http.StatusBadRequest, "Cart is empty")
	}
	order := models.Order{
		ID:          b.newIDLocked(),
		OrderDate:   models.Date{Time: time.Now().UTC().Truncate(time.Second)},
		TotalAmount: cart.TotalAmount,
		OrderStatus: models.OrderPending,
	}
	for _, it := range cart.Items {
		order.Items = append(order.Items, models.OrderLineItem{
			ProductID:    it.Product.ID,
			ProductName:  it.Product.Name,
			ProductBrand: it.Product.Brand,
			Quantity:     it.Quantity,
			Price:        it.Price(),
		})
	}
	b.orders[userID] = append(b.orders[userID], order)
	if idemKey != "" {
		b.placed[idemKey] = order
	}
	cart.Items = []models.CartItem{}
	cart.TotalAmount = decimal.Zero
	return reply(c, http.StatusOK, "Order Success!", order)
}

func (b *Backend) userOrders(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return reply(c, http.StatusOK, "Success", append([]models.Order{}, b.orders[models.ID(c.Param("id"))]...))
}

func (b *Backend) paymentIntent(c echo.Context) error {
	var req models.PaymentIntentRequest
	if err := c.Bind(&req); err != nil || req.Amount <= 0 {
		return replyError(c, http.StatusBadRequest, "Invalid amount")
	}
	b.mu.Lock()
	id := b.newIDLocked()
	b.mu.Unlock()
	return reply(c, http.StatusOK, "Payment intent created", models.PaymentIntent{
		ClientSecret: "pi_" + string(id) + "_secret_" + strconv.FormatInt(req.Amount, 10) + "_" + req.Currency,
	})
}

func (b *Backend) userByID(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, found := b.accounts[models.ID(c.Param("id"))]
	if !found {
		return replyError(c, http.StatusNotFound, "User not found!")
	}
	return reply(c, http.StatusOK, "Success", acc.user)
}

func (b *Backend) register(c echo.Context) error {
	var reg models.Registration
	if err := c.Bind(&reg); err != nil || reg.Email == "" || reg.Password == "" {
		return replyError(c, http.StatusBadRequest, "Invalid registration")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acc := range b.accounts {
		if strings.EqualFold(acc.user.Email, reg.Email) {
			return replyError(c, http.StatusConflict, "Oops! "+reg.Email+" already exists!")
		}
	}
	user := models.User{
		ID:        b.newIDLocked(),
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Email:     reg.Email,
	}
	for _, a := range reg.AddressList {
		a.ID = b.newIDLocked()
		user.AddressList = append(user.AddressList, a)
	}
	b.accounts[user.ID] = &account{user: user, password: reg.Password, roles: []string{"ROLE_USER"}}
	return reply(c, http.StatusCreated, "Create User Success!", user)
}

func (b *Backend) addAddresses(c echo.Context) error {
	var addrs []models.Address
	if err := c.Bind(&addrs); err != nil || len(addrs) == 0 {
		return replyError(c, http.StatusBadRequest, "Invalid address")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, found := b.accounts[models.ID(c.Param("userId"))]
	if !found {
		return replyError(c, http.StatusNotFound, "User not found!")
	}
	saved := make([]models.Address, 0, len(addrs))
	for _, a := range addrs {
		a.ID = b.newIDLocked()
		acc.user.AddressList = append(acc.user.AddressList, a)
		saved = append(saved, a)
	}
	return reply(c, http.StatusCreated, "Address added", saved)
}

func (b *Backend) updateAddress(c echo.Context) error {
	var a models.Address
	if err := c.Bind(&a); err != nil {
		return replyError(c, http.StatusBadRequest, "Invalid address")
	}
	id := models.ID(c.Param("id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acc := range b.accounts {
		for i := range acc.user.AddressList {
			if acc.user.AddressList[i].ID == id {
				a.ID = id
				acc.user.AddressList[i] = a
				return reply(c, http.StatusOK, "Address updated", a)
			}
		}
	}
	return replyError(c, http.StatusNotFound, "Address not found")
}

func (b *Backend) deleteAddress(c echo.Context) error {
	id := models.ID(c.Param("id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acc := range b.accounts {
		list := acc.user.AddressList
		for i := range list {
			if list[i].ID == id {
				acc.user.AddressList = append(list[:i:i], list[i+1:]...)
				return reply(c, http.StatusOK, "Address deleted", nil)
			}
		}
	}
	return replyError(c, http.StatusNotFound, "Address not found")
}

func (b *Backend) downloadImage(c echo.Context) error {
	b.mu.Lock()
	data, found := b.images[models.ID(c.Param("id"))]
	b.mu.Unlock()
	if !found {
		return replyError(c, http.StatusNotFound, "Image not found")
	}
	return c.Blob(http.StatusOK, "image/png", data)
}

func (b *Backend) countries(c echo.Context) error {
	return c.JSONBlob(http.StatusOK, b.countriesJSON)
}

func (b *Backend) userFromToken(c echo.Context) models.ID {
	raw := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	claims := jwtClaims(raw)
	if id, ok := claims["id"].(float64); ok {
		return models.ID(strconv.FormatFloat(id, 'f', -1, 64))
	}
	if sub, ok := claims["sub"].(string); ok {
		return models.ID(sub)
	}
	return ""
}
