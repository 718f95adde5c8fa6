package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/account"
	"github.com/Skotchmaster/storefront/internal/backendtest"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/nav"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/storefront"
)

type harness struct {
	backend *backendtest.Backend
	sf      *storefront.Storefront
	e       *echo.Echo
}

func newHarness(t *testing.T, csrfCfg *csrf.Config) *harness {
	t.Helper()
	b := backendtest.New(t)
	sf := storefront.New(storefront.Options{
		APIBaseURL:     b.URL(),
		RequestTimeout: 5 * time.Second,
		Session:        session.NewMemoryStore(""),
		Nav:            &nav.Recorder{},
		ItemsPerPage:   2,
		Currency:       "usd",
		CountriesURL:   b.CountriesURL(),
		RedirectDelay:  time.Millisecond,
	})
	t.Cleanup(sf.Close)

	e := echo.New()
	Register(e, &Deps{Storefront: sf, PaymentPublicKey: "pk_test_123", Currency: "usd", CSRF: csrfCfg})
	return &harness{backend: b, sf: sf, e: e}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(t *testing.T, email, password string) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/login", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndState(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/health/ready", nil).Code)

	rec := h.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[map[string]json.RawMessage](t, rec)
	for _, key := range []string{"auth", "product", "search", "pagination", "cart", "order", "user"} {
		assert.Contains(t, st, key)
	}
}

func TestReady_CatalogFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.backend.Fail(http.MethodGet, "/products/all", http.StatusInternalServerError, "")
	_, err := h.sf.Catalog.FetchAll(context.Background())
	require.Error(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, h.do(t, http.MethodGet, "/health/ready", nil).Code)
}

func TestProtectedRoutes(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect":"/login"`)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodPost, "/api/checkout/begin", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/orders", nil).Code)

	h.login(t, backendtest.UserEmail, backendtest.UserPassword)
	rec = h.do(t, http.MethodPost, "/api/admin/products", models.Product{Name: "Tablet"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect":"/unauthorized"`)

	h.do(t, http.MethodPost, "/api/logout", nil)
	h.login(t, backendtest.AdminEmail, backendtest.AdminPassword)
	rec = h.do(t, http.MethodPost, "/api/admin/products", models.Product{Name: "Tablet", Brand: "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Product](t, rec)
	assert.Equal(t, "Tablet", created.Name)

	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodDelete, "/api/admin/products/"+created.ID.String(), nil).Code)
	rec = h.do(t, http.MethodPost, "/api/admin/products", models.Product{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginErrors(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPost, "/api/login", map[string]string{"email": backendtest.UserEmail, "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decode[Response](t, rec).Message)

	rec = h.do(t, http.MethodGet, "/api/auth/error", nil)
	assert.Equal(t, "Invalid email or password", decode[Response](t, rec).Message)
	rec = h.do(t, http.MethodGet, "/api/auth/error", nil)
	assert.Empty(t, decode[Response](t, rec).Message, "shown once")

	rec = h.do(t, http.MethodPost, "/api/login", map[string]string{"email": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodDelete, "/api/auth/error", nil).Code)
	assert.Empty(t, h.sf.State().Auth.ErrorMessage)
}

func TestCartAndCheckout(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	phone, _ := h.backend.Product(backendtest.PhoneID)
	h.backend.SetCart(backendtest.UserID, models.CartItem{ID: "900", Product: phone, Quantity: 1})
	h.login(t, backendtest.UserEmail, backendtest.UserPassword)

	rec := h.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": backendtest.LaptopID, "quantity": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, h.sf.State().Cart.Items, 2)

	rec = h.do(t, http.MethodPut, "/api/cart/items/"+backendtest.PhoneID.String(), map[string]int{"quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "35", h.sf.State().Cart.TotalAmount.String())

	rec = h.do(t, http.MethodGet, "/api/checkout/config", nil)
	assert.JSONEq(t, `{"publicKey":"pk_test_123","currency":"usd"}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/checkout/begin", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	begun := decode[map[string]any](t, rec)
	assert.EqualValues(t, 3500, begun["amount"])
	assert.NotEmpty(t, begun["clientSecret"])
	assert.NotEmpty(t, begun["idempotencyKey"])

	assert.Equal(t, http.StatusConflict, h.do(t, http.MethodPost, "/api/checkout/begin", nil).Code)

	rec = h.do(t, http.MethodPost, "/api/checkout/complete", checkout.PaymentOutcome{Confirmed: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := h.sf.State()
	assert.Equal(t, checkout.PhaseSucceeded, st.Order.Phase)
	assert.Equal(t, "Order Success!", st.Order.SuccessMessage)
	assert.Empty(t, st.Cart.Items)

	rec = h.do(t, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]json.RawMessage](t, rec), 1)

	var visits []nav.Visit
	require.Eventually(t, func() bool {
		visits = append(visits, decode[[]nav.Visit](t, h.do(t, http.MethodGet, "/api/navigation", nil))...)
		return len(visits) > 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, nav.Visit{Path: checkout.ProfilePath(backendtest.UserID)}, visits[0])
}

func TestCheckoutDeclined(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	phone, _ := h.backend.Product(backendtest.PhoneID)
	h.backend.SetCart(backendtest.UserID, models.CartItem{ID: "900", Product: phone, Quantity: 1})
	h.login(t, backendtest.UserEmail, backendtest.UserPassword)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/cart", nil).Code)

	rec := h.do(t, http.MethodPost, "/api/checkout/complete", checkout.PaymentOutcome{Confirmed: true})
	assert.Equal(t, http.StatusConflict, rec.Code, "nothing awaiting payment")

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/checkout/begin", nil).Code)
	rec = h.do(t, http.MethodPost, "/api/checkout/complete", checkout.PaymentOutcome{Message: "Your card was declined."})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "Your card was declined.", decode[Response](t, rec).Message)
	assert.Len(t, h.sf.State().Cart.Items, 1, "cart kept")

	rec = h.do(t, http.MethodPost, "/api/checkout/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checkout.PhaseIdle, h.sf.State().Order.Phase)
}

func TestBrowseRoutes(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	require.NoError(t, h.sf.Start(context.Background()))

	page := decode[storefront.Page](t, h.do(t, http.MethodGet, "/api/products", nil))
	assert.Equal(t, 4, page.Pagination.TotalItems)
	assert.Len(t, page.Products, 2)

	page = decode[storefront.Page](t, h.do(t, http.MethodPost, "/api/pagination/next", nil))
	assert.Equal(t, 2, page.Pagination.CurrentPage)

	page = decode[storefront.Page](t, h.do(t, http.MethodGet, "/api/products?q=phone", nil))
	assert.Equal(t, 2, page.Pagination.TotalItems)
	assert.Equal(t, 1, page.Pagination.CurrentPage)

	page = decode[storefront.Page](t, h.do(t, http.MethodPut, "/api/search", map[string]string{"category": "Books"}))
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Novel", page.Products[0].Name)

	page = decode[storefront.Page](t, h.do(t, http.MethodDelete, "/api/search", nil))
	assert.Equal(t, 4, page.Pagination.TotalItems)

	selected := decode[[]string](t, h.do(t, http.MethodPut, "/api/brands/Acme", map[string]bool{"included": true}))
	assert.Equal(t, []string{"Acme"}, selected)

	rec := h.do(t, http.MethodGet, "/api/products/"+backendtest.NovelID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Novel", decode[models.Product](t, rec).Name)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/products/999", nil).Code)

	names := decode[[]string](t, h.do(t, http.MethodGet, "/api/products/suggest?q=pho", nil))
	assert.Contains(t, names, "Phone")
}

func TestImageRoute(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/api/images/product:"+backendtest.PhoneID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img := decode[imageResponse](t, rec)
	assert.True(t, strings.HasPrefix(img.URI, "data:image/png;base64,"))

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/images/bogus", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/images/product:"+backendtest.LaptopID.String(), nil).Code)
}

func TestProfileRoutes(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.login(t, backendtest.UserEmail, backendtest.UserPassword)

	rec := h.do(t, http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, backendtest.UserEmail, decode[models.User](t, rec).Email)

	rec = h.do(t, http.MethodPost, "/api/profile/addresses", models.Address{AddressType: "office", City: "Portland"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, account.MsgInvalidAddress, decode[Response](t, rec).Message)

	rec = h.do(t, http.MethodPost, "/api/profile/addresses", models.Address{
		AddressType: "office", Street: "9 Market Rd", City: "Portland", Country: "us",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decode[models.Address](t, rec)
	assert.Equal(t, "US", saved.Country)

	rec = h.do(t, http.MethodDelete, "/api/profile/addresses/"+saved.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.sf.State().Account.Addresses(), 1)

	countries := decode[[]models.Country](t, h.do(t, http.MethodGet, "/api/countries", nil))
	assert.Len(t, countries, 3)
}

func TestCSRFGuardsAPI(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &csrf.Config{})

	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/state", nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodPost, "/api/logout", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/health/live", nil).Code)
}
