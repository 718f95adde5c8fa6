// Package backendtest runs an in-memory fake of the storefront REST backend.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	BasePath   = "/api/v1"
	signingKey = "backendtest-secret"
)

type account struct {
	user     models.User
	password string
	roles    []string
}

type failure struct {
	status  int
	message string
}

type Backend struct {
	srv *httptest.Server

	mu            sync.Mutex
	nextID        int
	products      []models.Product
	categories    []models.Category
	images        map[models.ID][]byte
	accounts      map[models.ID]*account
	carts         map[models.ID]*models.Cart
	orders        map[models.ID][]models.Order
	placed        map[string]models.Order
	countriesJSON []byte

	failures map[string]failure
	delays   map[string][]time.Duration
	calls    map[string]int
	lastHdr  map[string]http.Header
}

// New starts a seeded backend that is closed when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		nextID:   1000,
		images:   map[models.ID][]byte{},
		accounts: map[models.ID]*account{},
		carts:    map[models.ID]*models.Cart{},
		orders:   map[models.ID][]models.Order{},
		placed:   map[string]models.Order{},
		failures: map[string]failure{},
		delays:   map[string][]time.Duration{},
		calls:    map[string]int{},
		lastHdr:  map[string]http.Header{},
	}
	b.seed()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	b.routes(e)

	b.srv = httptest.NewServer(e)
	t.Cleanup(b.srv.Close)
	return b
}

// URL is the API base the client is configured with.
func (b *Backend) URL() string { return b.srv.URL + BasePath }

// CountriesURL serves a restcountries-shaped list.
func (b *Backend) CountriesURL() string { return b.srv.URL + "/countries" }

func key(method, route string) string { return method + " " + route }

// Fail makes every call to route answer status with message until Heal.
// route is the pattern below BasePath, e.g. "/orders/user/:id/place-order".
func (b *Backend) Fail(method, route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[key(method, route)] = failure{status: status, message: message}
}

func (b *Backend) Heal(method, route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, key(method, route))
}

// DelayNext holds the next call to route for d before it is served.
func (b *Backend) DelayNext(method, route string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key(method, route)
	b.delays[k] = append(b.delays[k], d)
}

func (b *Backend) Calls(method, route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key(method, route)]
}

// LastHeader returns the headers of the most recent call to route.
func (b *Backend) LastHeader(method, route string) http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastHdr[key(method, route)].Clone()
}

// TokenFor signs a bearer token for the seeded user id.
func (b *Backend) TokenFor(userID models.ID, ttl time.Duration) string {
	b.mu.Lock()
	acc := b.accounts[userID]
	b.mu.Unlock()

	claims := jwt.MapClaims{"sub": string(userID), "exp": time.Now().Add(ttl).Unix()}
	if n, err := strconv.Atoi(string(userID)); err == nil {
		claims["id"] = n
	}
	if acc != nil {
		claims["sub"] = acc.user.Email
		claims["roles"] = acc.roles
	}
	s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	return s
}

// SetCart replaces a user's server-side cart.
func (b *Backend) SetCart(userID models.ID, items ...models.CartItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.cartLocked(userID)
	c.Items = append([]models.CartItem(nil), items...)
	*c = c.Normalize()
}

func (b *Backend) Cart(userID models.ID) models.Cart {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.cartLocked(userID)
}

func (b *Backend) Orders(userID models.ID) []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Order(nil), b.orders[userID]...)
}

func (b *Backend) User(userID models.ID) models.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acc, ok := b.accounts[userID]; ok {
		return acc.user
	}
	return models.User{}
}

func (b *Backend) Product(id models.ID) (models.Product, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

func (b *Backend) newIDLocked() models.ID {
	b.nextID++
	return models.ID(strconv.Itoa(b.nextID))
}

func (b *Backend) cartLocked(userID models.ID) *models.Cart {
	c, ok := b.carts[userID]
	if !ok {
		c = &models.Cart{CartID: models.ID("c" + string(userID)), Items: []models.CartItem{}, TotalAmount: decimal.Zero}
		b.carts[userID] = c
	}
	return c
}

// injectFaults records the call, applies queued delays and configured failures.
func (b *Backend) injectFaults(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		k := key(c.Request().Method, strings.TrimPrefix(c.Path(), BasePath))

		b.mu.Lock()
		b.calls[k]++
		b.lastHdr[k] = c.Request().Header.Clone()
		var delay time.Duration
		if q := b.delays[k]; len(q) > 0 {
			delay, b.delays[k] = q[0], q[1:]
		}
		f, failing := b.failures[k]
		b.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-c.Request().Context().Done():
				return c.Request().Context().Err()
			}
		}
		if failing {
			return c.JSON(f.status, echo.Map{"message": f.message})
		}
		return next(c)
	}
}

func (b *Backend) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if raw == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Full authentication is required"})
		}
		tkn, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return []byte(signingKey), nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tkn.Valid {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Token expired or invalid"})
		}
		if mc, ok := tkn.Claims.(jwt.MapClaims); ok {
			if roles, ok := mc["roles"].([]any); ok {
				for _, r := range roles {
					if s, _ := r.(string); strings.EqualFold(s, "ROLE_ADMIN") {
						c.Set("admin", true)
					}
				}
			}
		}
		return next(c)
	}
}

func (b *Backend) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return b.requireToken(func(c echo.Context) error {
		if admin, _ := c.Get("admin").(bool); !admin {
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Access denied"})
		}
		return next(c)
	})
}

func reply(c echo.Context, status int, message string, data any) error {
	body := echo.Map{"message": message}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(status, body)
}

func replyError(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"message": message})
}
