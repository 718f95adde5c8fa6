package auth

import (
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/store"
)

const MsgMissingCredentials = "Please enter both email and password"

const msgLoginFailed = "Login failed"

type State struct {
	IsAuthenticated bool      `json:"isAuthenticated"`
	UserID          models.ID `json:"userId,omitempty"`
	Roles           []string  `json:"roles"`
	ErrorMessage    string    `json:"errorMessage,omitempty"`
	SessionExpired  bool      `json:"sessionExpired,omitempty"`
	IsLoading       bool      `json:"isLoading"`
}

func Initial() State {
	return State{Roles: []string{}}
}

type Access int

const (
	AccessLogin Access = iota
	AccessGranted
	AccessForbidden
)

func (a Access) String() string {
	switch a {
	case AccessLogin:
		return "login"
	case AccessGranted:
		return "granted"
	default:
		return "forbidden"
	}
}

// Authorize gates a route. An empty allow-list admits any authenticated user;
// otherwise one role must match case-insensitively.
func (s State) Authorize(allowed ...string) Access {
	if !s.IsAuthenticated {
		return AccessLogin
	}
	if len(allowed) == 0 {
		return AccessGranted
	}
	for _, have := range s.Roles {
		for _, want := range allowed {
			if strings.EqualFold(have, want) {
				return AccessGranted
			}
		}
	}
	return AccessForbidden
}

type loginAction struct {
	status  store.Status
	userID  models.ID
	roles   []string
	message string
}

func (loginAction) ActionType() string { return "auth/login" }

type restoredAction struct {
	userID models.ID
	roles  []string
}

func (restoredAction) ActionType() string { return "auth/restore" }

type clearErrorAction struct{}

func (clearErrorAction) ActionType() string { return "auth/clearError" }

type takeErrorAction struct {
	out *string
}

func (takeErrorAction) ActionType() string { return "auth/takeError" }

// LoggedOut resets every user-scoped slice.
type LoggedOut struct{}

func (LoggedOut) ActionType() string { return "auth/logout" }

// SessionExpired is dispatched when a protected call answers 401.
type SessionExpired struct{}

func (SessionExpired) ActionType() string { return "auth/sessionExpired" }

// Reduce is the auth slice reducer.
func Reduce(s State, a store.Action) State {
	switch a := a.(type) {
	case loginAction:
		switch a.status {
		case store.Pending:
			s.IsLoading = true
			s.ErrorMessage = ""
		case store.Fulfilled:
			s = State{IsAuthenticated: true, UserID: a.userID, Roles: nonNil(a.roles)}
		case store.Rejected:
			s.IsLoading = false
			s.IsAuthenticated = false
			s.ErrorMessage = a.message
		}
	case restoredAction:
		s = State{IsAuthenticated: true, UserID: a.userID, Roles: nonNil(a.roles)}
	case clearErrorAction:
		s.ErrorMessage = ""
	case takeErrorAction:
		*a.out = s.ErrorMessage
		s.ErrorMessage = ""
	case LoggedOut:
		s = Initial()
	case SessionExpired:
		s = Initial()
		s.SessionExpired = true
	}
	return s
}

func nonNil(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return append([]string(nil), roles...)
}
