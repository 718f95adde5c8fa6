package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/backendtest"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/nav"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/store"
)

type harness struct {
	backend *backendtest.Backend
	store   *store.Store[State]
	svc     *Service
	session *session.MemoryStore
	nav     *nav.Recorder
	events  *events.Recorder
	api     *apiclient.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		backend: backendtest.New(t),
		session: session.NewMemoryStore(""),
		nav:     &nav.Recorder{},
		events:  events.NewRecorder(16),
	}
	h.store = store.New(Initial(), Reduce)
	t.Cleanup(h.store.Close)
	h.api = apiclient.New(h.backend.URL(), apiclient.WithTokenSource(h.session))
	h.svc = NewService(Deps{
		Store:   h.store,
		State:   h.store.State,
		API:     h.api,
		Session: h.session,
		Nav:     h.nav,
		Events:  h.events,
	})
	h.api.SetUnauthorizedHandler(h.svc.HandleUnauthorized)
	return h
}

func TestLogin_MissingCredentialsRejectedLocally(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		creds Credentials
	}{
		{"empty email", Credentials{Email: "", Password: "x"}},
		{"blank email", Credentials{Email: "   ", Password: "x"}},
		{"empty password", Credentials{Email: "a@b.c", Password: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)

			st, err := h.svc.Login(context.Background(), tt.creds)
			require.Error(t, err)
			assert.ErrorIs(t, err, store.ErrValidation)
			assert.Equal(t, "Please enter both email and password", st.ErrorMessage)
			assert.False(t, st.IsAuthenticated)
			assert.False(t, st.IsLoading)
			assert.Zero(t, h.backend.Calls(http.MethodPost, "/auth/login"), "no network call")
		})
	}
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	st, err := h.svc.Login(context.Background(), Credentials{Email: backendtest.AdminEmail, Password: backendtest.AdminPassword})
	require.NoError(t, err)

	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.Equal(t, backendtest.AdminID, st.UserID)
	assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_USER"}, st.Roles, "roles read from token claims")
	assert.NotEmpty(t, h.session.Token())
	assert.Equal(t, AccessGranted, st.Authorize("role_admin"))

	evs := h.events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.UserLoggedIn, evs[0].Event.Type)
	assert.Equal(t, events.TopicUser, evs[0].Topic)
}

func TestLogin_ServerRejection(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	st, err := h.svc.Login(context.Background(), Credentials{Email: backendtest.UserEmail, Password: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNetwork)
	assert.Equal(t, "Invalid email or password", st.ErrorMessage)
	assert.False(t, st.IsAuthenticated)
	assert.Empty(t, h.session.Token())
	assert.Empty(t, h.nav.Visits(), "a failed login never forces the expired-session redirect")
}

func TestLogin_FallbackMessage(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.backend.Fail(http.MethodPost, "/auth/login", http.StatusInternalServerError, "")

	st, err := h.svc.Login(context.Background(), Credentials{Email: backendtest.UserEmail, Password: backendtest.UserPassword})
	require.Error(t, err)
	assert.Equal(t, "Login failed", st.ErrorMessage)
}

func TestTakeError_FiresOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, _ = h.svc.Login(context.Background(), Credentials{Password: "x"})

	assert.Equal(t, MsgMissingCredentials, h.svc.TakeError())
	assert.Equal(t, "", h.svc.TakeError())
	assert.Empty(t, h.store.State().ErrorMessage)
}

func TestClearError(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, _ = h.svc.Login(context.Background(), Credentials{})
	h.svc.ClearError()
	assert.Empty(t, h.store.State().ErrorMessage)
}

func TestLogout(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Login(ctx, Credentials{Email: backendtest.UserEmail, Password: backendtest.UserPassword})
	require.NoError(t, err)

	h.svc.Logout(ctx)

	st := h.store.State()
	assert.False(t, st.IsAuthenticated)
	assert.Empty(t, st.UserID)
	assert.Empty(t, h.session.Token())
	last, ok := h.nav.Last()
	require.True(t, ok)
	assert.Equal(t, nav.Visit{Path: "/login", Replace: true}, last)
}

func TestUnauthorizedProtectedCallExpiresSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Login(ctx, Credentials{Email: backendtest.UserEmail, Password: backendtest.UserPassword})
	require.NoError(t, err)
	h.backend.Fail(http.MethodGet, "/users/user/:id/user", http.StatusUnauthorized, "Token expired")

	_, err = h.api.Do(ctx, apiclient.Request{Path: "/users/user/1/user", Protected: true}, nil)
	require.ErrorIs(t, err, apiclient.ErrUnauthorized)

	st := h.store.State()
	assert.False(t, st.IsAuthenticated)
	assert.True(t, st.SessionExpired)
	assert.Empty(t, h.session.Token())
	assert.Equal(t, []nav.Visit{{Path: "/login?expired=true", Replace: true}}, h.nav.Visits())
}

func TestRestore(t *testing.T) {
	t.Parallel()

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		require.NoError(t, h.session.Save(context.Background(), h.backend.TokenFor(backendtest.UserID, time.Hour)))

		st, err := h.svc.Restore(context.Background())
		require.NoError(t, err)
		assert.True(t, st.IsAuthenticated)
		assert.Equal(t, backendtest.UserID, st.UserID)
		assert.Equal(t, []string{"ROLE_USER"}, st.Roles)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		require.NoError(t, h.session.Save(context.Background(), h.backend.TokenFor(backendtest.UserID, -time.Minute)))

		st, err := h.svc.Restore(context.Background())
		require.NoError(t, err)
		assert.False(t, st.IsAuthenticated)
		assert.True(t, st.SessionExpired)
		assert.Empty(t, h.session.Token())
	})

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		require.NoError(t, h.session.Save(context.Background(), "garbage"))

		st, err := h.svc.Restore(context.Background())
		require.NoError(t, err)
		assert.False(t, st.IsAuthenticated)
		assert.Empty(t, h.session.Token())
	})

	t.Run("no token", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		st, err := h.svc.Restore(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Initial(), st)
	})
}
