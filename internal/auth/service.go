package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/nav"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/store"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID    models.ID `json:"id"`
	Token string    `json:"token"`
	Roles []string  `json:"roles"`
}

type Deps struct {
	Store   store.Dispatcher
	State   func() State
	API     *apiclient.Client
	Session session.Store
	Nav     nav.Navigator
	Events  events.Publisher
	Now     func() time.Time
}

type Service struct {
	d Deps
}

func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{d: d}
}

func (s *Service) Login(ctx context.Context, c Credentials) (State, error) {
	const op = "auth.login"
	l := logging.FromContext(ctx).With("svc", op)

	c.Email = strings.TrimSpace(c.Email)
	if c.Email == "" || c.Password == "" {
		s.d.Store.Dispatch(loginAction{status: store.Rejected, message: MsgMissingCredentials})
		l.Warn("login_failed", "status", http.StatusBadRequest, "reason", "missing credentials")
		return s.d.State(), store.Validation(op, MsgMissingCredentials)
	}

	s.d.Store.Dispatch(loginAction{status: store.Pending})

	var resp loginResponse
	_, err := s.d.API.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   c,
	}, &resp)
	if err != nil {
		msg := apiclient.Message(err, msgLoginFailed)
		s.d.Store.Dispatch(loginAction{status: store.Rejected, message: msg})
		l.Warn("login_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return s.d.State(), store.Network(op, msg, err)
	}
	if resp.Token == "" {
		s.d.Store.Dispatch(loginAction{status: store.Rejected, message: msgLoginFailed})
		l.Error("login_failed", "reason", "response without token")
		return s.d.State(), store.Network(op, msgLoginFailed, nil)
	}

	userID, roles := resp.ID, resp.Roles
	if claims, cerr := tokens.ClaimsFromToken(resp.Token); cerr == nil {
		if userID.IsZero() {
			userID = models.ID(claims.UserID)
		}
		if len(roles) == 0 {
			roles = claims.Roles
		}
	} else {
		l.Debug("token_claims_unreadable", "error", cerr)
	}

	if err := s.d.Session.Save(ctx, resp.Token); err != nil {
		s.d.Store.Dispatch(loginAction{status: store.Rejected, message: msgLoginFailed})
		l.Error("login_failed", "reason", "persist token", "error", err)
		return s.d.State(), store.Network(op, msgLoginFailed, err)
	}

	s.d.Store.Dispatch(loginAction{status: store.Fulfilled, userID: userID, roles: roles})
	_ = s.d.Events.Publish(ctx, events.TopicUser, userID.String(), events.New(events.UserLoggedIn, userID.String(), nil))
	l.Info("login_success", "user_id", userID, "roles", roles)
	return s.d.State(), nil
}

// Logout forgets the session and sends the view to the login screen.
func (s *Service) Logout(ctx context.Context) {
	l := logging.FromContext(ctx).With("svc", "auth.logout")
	prev := s.d.State().UserID

	if err := s.d.Session.Clear(ctx); err != nil {
		l.Warn("logout_clear_token_failed", "error", err)
	}
	s.d.Store.Dispatch(LoggedOut{})
	if !prev.IsZero() {
		_ = s.d.Events.Publish(ctx, events.TopicUser, prev.String(), events.New(events.UserLoggedOut, prev.String(), nil))
	}
	s.d.Nav.Navigate(nav.LoginPath, true)
	l.Info("logout_success", "user_id", prev)
}

// HandleUnauthorized runs when a protected call is answered with 401.
func (s *Service) HandleUnauthorized(ctx context.Context) {
	l := logging.FromContext(ctx).With("svc", "auth.unauthorized")
	prev := s.d.State().UserID

	if err := s.d.Session.Clear(ctx); err != nil {
		l.Warn("session_clear_failed", "error", err)
	}
	s.d.Store.Dispatch(SessionExpired{})
	_ = s.d.Events.Publish(ctx, events.TopicUser, prev.String(), events.New(events.SessionExpired, prev.String(), nil))
	s.d.Nav.Navigate(nav.SessionExpiredPath, true)
	l.Warn("session_expired", "user_id", prev)
}

// Restore authenticates from the persisted token when it is still valid.
func (s *Service) Restore(ctx context.Context) (State, error) {
	l := logging.FromContext(ctx).With("svc", "auth.restore")

	tok, err := s.d.Session.Load(ctx)
	if err != nil {
		l.Error("restore_failed", "error", err)
		return s.d.State(), err
	}
	if tok == "" {
		return s.d.State(), nil
	}

	claims, err := tokens.ClaimsFromToken(tok)
	if err != nil {
		l.Warn("restore_failed", "reason", "unreadable token", "error", err)
		_ = s.d.Session.Clear(ctx)
		return s.d.State(), nil
	}
	if claims.Expired(s.d.Now()) {
		l.Info("restore_skipped", "reason", "token expired")
		_ = s.d.Session.Clear(ctx)
		s.d.Store.Dispatch(SessionExpired{})
		return s.d.State(), nil
	}

	s.d.Store.Dispatch(restoredAction{userID: models.ID(claims.UserID), roles: claims.Roles})
	l.Info("restore_success", "user_id", claims.UserID)
	return s.d.State(), nil
}

func (s *Service) ClearError() {
	s.d.Store.Dispatch(clearErrorAction{})
}

// TakeError returns the pending error message and clears it in the same step,
// so a notification is shown at most once.
func (s *Service) TakeError() string {
	var msg string
	s.d.Store.Dispatch(takeErrorAction{out: &msg})
	return msg
}
