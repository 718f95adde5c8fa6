package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(cfg Config) *echo.Echo {
	e := echo.New()
	e.Use(Middleware(cfg))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/api/state", ok)
	e.POST("/api/cart", ok)
	e.POST("/health/ping", ok)
	return e
}

func do(e *echo.Echo, method, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSafeRequestIssuesToken(t *testing.T) {
	t.Parallel()
	e := newServer(Config{})

	rec := do(e, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "XSRF-TOKEN", cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
	assert.False(t, cookies[0].HttpOnly, "the view has to read it")
}

func TestUnsafeRequestNeedsMatchingHeader(t *testing.T) {
	t.Parallel()
	e := newServer(Config{})
	token := do(e, http.MethodGet, "/api/state", nil).Header().Get("X-CSRF-Token")

	withCookie := func(header string) func(*http.Request) {
		return func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: token})
			r.Header.Set(echo.HeaderOrigin, "http://"+r.Host)
			if header != "" {
				r.Header.Set("X-CSRF-Token", header)
			}
		}
	}

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/api/cart", withCookie("")).Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/api/cart", withCookie("forged")).Code)
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/api/cart", withCookie(token)).Code)

	crossSite := func(r *http.Request) {
		withCookie(token)(r)
		r.Header.Set(echo.HeaderOrigin, "http://evil.example")
	}
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/api/cart", crossSite).Code)
}

func TestSkipPrefixes(t *testing.T) {
	t.Parallel()
	e := newServer(Config{SkipPrefixes: []string{"/health"}})
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/health/ping", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/api/cart", nil).Code)
}
