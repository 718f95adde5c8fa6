package account

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/backendtest"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/store"
)

const (
	addRoute    = "/addresses/:userId/new"
	updateRoute = "/addresses/:id/update"
	deleteRoute = "/addresses/:id/delete"
)

type harness struct {
	backend *backendtest.Backend
	store   *store.Store[State]
	svc     *Service
	events  *events.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{backend: backendtest.New(t), events: events.NewRecorder(16)}
	tokens := session.NewMemoryStore(h.backend.TokenFor(backendtest.UserID, time.Hour))
	api := apiclient.New(h.backend.URL(), apiclient.WithTokenSource(tokens))
	h.store = store.New(Initial(), Reduce)
	t.Cleanup(h.store.Close)
	h.svc = NewService(Deps{
		Store:        h.store,
		State:        h.store.State,
		API:          api,
		Events:       h.events,
		CountriesURL: h.backend.CountriesURL(),
	})
	return h
}

func (h *harness) loadUser(t *testing.T) models.User {
	t.Helper()
	u, err := h.svc.GetUserByID(context.Background(), backendtest.UserID)
	require.NoError(t, err)
	return u
}

var office = models.Address{
	AddressType: "office",
	Street:      " 9 Market Rd ",
	City:        "Portland",
	State:       "OR",
	Country:     "us",
	PostalCode:  "97201",
}

func TestGetUserByID(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	u := h.loadUser(t)
	assert.Equal(t, "alice@example.com", u.Email)

	st := h.store.State()
	require.NotNil(t, st.User)
	require.Len(t, st.User.AddressList, 1)
	assert.Equal(t, st.User.AddressList, st.Addresses())
	assert.False(t, st.IsLoading)

	h.backend.Fail(http.MethodGet, "/users/user/:id/user", http.StatusInternalServerError, "")
	_, err := h.svc.GetUserByID(context.Background(), backendtest.UserID)
	require.ErrorIs(t, err, store.ErrNetwork)
	assert.Equal(t, "Failed to fetch user profile", h.store.State().Error)
	assert.NotNil(t, h.store.State().User, "profile kept")
}

func TestAddThenDeleteRestoresList(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.loadUser(t)
	before := h.store.State().Addresses()

	saved, err := h.svc.AddAddress(ctx, backendtest.UserID, office)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(saved.ID.String(), TempIDPrefix))
	assert.Equal(t, "9 Market Rd", saved.Street)
	assert.Equal(t, models.AddressOffice, saved.AddressType)
	assert.Equal(t, "US", saved.Country)

	st := h.store.State()
	require.Len(t, st.Addresses(), 2)
	assert.Equal(t, saved, st.Addresses()[1])
	assert.Equal(t, "Address added successfully", st.SuccessMessage)
	assert.Len(t, h.backend.User(backendtest.UserID).AddressList, 2)

	require.NoError(t, h.svc.DeleteAddress(ctx, saved.ID))
	st = h.store.State()
	assert.ElementsMatch(t, before, st.Addresses())
	assert.ElementsMatch(t, before, st.User.AddressList)
	assert.Equal(t, "Address deleted", st.SuccessMessage)
	assert.Len(t, h.backend.User(backendtest.UserID).AddressList, 1)
}

func TestAddAddress_ShownBeforeConfirmation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.loadUser(t)
	h.backend.DelayNext(http.MethodPost, addRoute, 200*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.AddAddress(context.Background(), backendtest.UserID, office)
		done <- err
	}()

	require.Eventually(t, func() bool { return len(h.store.State().Addresses()) == 2 }, time.Second, 5*time.Millisecond)
	pending := h.store.State()
	assert.True(t, strings.HasPrefix(pending.Addresses()[1].ID.String(), TempIDPrefix))
	assert.Len(t, pending.ConfirmedAddresses(), 1)
	assert.True(t, pending.IsLoading)

	err := h.svc.DeleteAddress(context.Background(), pending.Addresses()[1].ID)
	require.ErrorIs(t, err, store.ErrValidation)
	assert.Equal(t, MsgAddressNotSaved, h.store.State().Error)

	require.NoError(t, <-done)
	st := h.store.State()
	require.Len(t, st.Addresses(), 2)
	assert.False(t, strings.HasPrefix(st.Addresses()[1].ID.String(), TempIDPrefix))
	assert.Equal(t, st.Addresses(), st.ConfirmedAddresses())
}

func TestAddAddress_SurvivesOverlappingRejection(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.loadUser(t)
	h.backend.DelayNext(http.MethodPost, addRoute, 200*time.Millisecond)
	h.backend.Fail(http.MethodPut, updateRoute, http.StatusConflict, "Address locked")

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.AddAddress(ctx, backendtest.UserID, office)
		done <- err
	}()
	require.Eventually(t, func() bool { return len(h.store.State().Addresses()) == 2 }, time.Second, 5*time.Millisecond)

	moved := h.store.State().ConfirmedAddresses()[0]
	moved.City = "Denver"
	_, err := h.svc.UpdateAddress(ctx, moved.ID, moved)
	require.Error(t, err)

	require.NoError(t, <-done)
	st := h.store.State()
	require.Len(t, st.Addresses(), 2, "saved address shown once the add lands")
	assert.Equal(t, st.ConfirmedAddresses(), st.Addresses())
	assert.Equal(t, "Springfield", st.Addresses()[0].City)
	assert.False(t, st.IsLoading)
}

func TestReduce_AddConfirmedAfterOverlappingRevert(t *testing.T) {
	t.Parallel()
	home := models.Address{ID: "1", AddressType: models.AddressHome, Street: "1 Main St", City: "Springfield", Country: "US"}
	s := Reduce(Initial(), setUserAction{user: &models.User{ID: "7", AddressList: []models.Address{home}}})

	s = Reduce(s, addAddressAction{status: store.Pending, tempID: "tmp-x", address: office})
	moved := home
	moved.City = "Denver"
	s = Reduce(s, updateAddressAction{status: store.Pending, address: moved})
	s = Reduce(s, updateAddressAction{status: store.Rejected, address: moved, message: "Address locked"})

	saved := office
	saved.ID = "55"
	s = Reduce(s, addAddressAction{status: store.Fulfilled, tempID: "tmp-x", address: saved})

	assert.Equal(t, []models.Address{home, saved}, s.Addresses())
	assert.Equal(t, s.ConfirmedAddresses(), s.Addresses())
	assert.Equal(t, s.Addresses(), s.User.AddressList)
	assert.False(t, s.IsLoading)
}

func TestAddAddress_RevertsOnRejection(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.loadUser(t)
	before := h.store.State().Addresses()
	h.backend.Fail(http.MethodPost, addRoute, http.StatusInternalServerError, "")

	_, err := h.svc.AddAddress(context.Background(), backendtest.UserID, office)
	require.ErrorIs(t, err, store.ErrNetwork)

	st := h.store.State()
	assert.Equal(t, before, st.Addresses())
	assert.Equal(t, "Failed to add address", st.Error)
	assert.False(t, st.IsLoading)
}

func TestAddAddress_Validation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	for name, mutate := range map[string]func(*models.Address){
		"type":    func(a *models.Address) { a.AddressType = "CABIN" },
		"street":  func(a *models.Address) { a.Street = "  " },
		"city":    func(a *models.Address) { a.City = "" },
		"country": func(a *models.Address) { a.Country = "USA" },
		"letters": func(a *models.Address) { a.Country = "1A" },
	} {
		a := office
		mutate(&a)
		_, err := h.svc.AddAddress(context.Background(), backendtest.UserID, a)
		require.ErrorIs(t, err, store.ErrValidation, name)
	}
	assert.Equal(t, MsgInvalidAddress, h.store.State().Error)
	assert.Zero(t, h.backend.Calls(http.MethodPost, addRoute))
}

func TestUpdateAddress(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.loadUser(t)
	before := h.store.State().Addresses()

	moved := before[0]
	moved.City = "Chicago"
	saved, err := h.svc.UpdateAddress(ctx, "500", moved)
	require.NoError(t, err)
	assert.Equal(t, "Chicago", saved.City)
	assert.Equal(t, "Chicago", h.store.State().Addresses()[0].City)
	assert.Equal(t, "Address updated successfully", h.store.State().SuccessMessage)

	h.backend.Fail(http.MethodPut, updateRoute, http.StatusConflict, "Address locked")
	moved.City = "Denver"
	_, err = h.svc.UpdateAddress(ctx, "500", moved)
	require.Error(t, err)
	st := h.store.State()
	assert.Equal(t, "Chicago", st.Addresses()[0].City, "reverted to last confirmed")
	assert.Equal(t, "Address locked", st.Error)

	h.svc.ClearError()
	h.svc.ClearSuccess()
	assert.Empty(t, h.store.State().Error)
	assert.Empty(t, h.store.State().SuccessMessage)
}

func TestDeleteAddress_RevertsOnRejection(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.loadUser(t)
	before := h.store.State().Addresses()
	h.backend.Fail(http.MethodDelete, deleteRoute, http.StatusInternalServerError, "")

	err := h.svc.DeleteAddress(context.Background(), "500")
	require.Error(t, err)
	assert.Equal(t, before, h.store.State().Addresses())
	assert.Equal(t, "Failed to delete address", h.store.State().Error)
}

func TestRegisterUser(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.RegisterUser(ctx, models.Registration{Email: "bob@example.com"})
	require.ErrorIs(t, err, store.ErrValidation)
	assert.Equal(t, MsgMissingRegistration, h.store.State().Error)

	u, err := h.svc.RegisterUser(ctx, models.Registration{
		FirstName:   "Bob",
		LastName:    "Roe",
		Email:       "bob@example.com",
		Password:    "pw",
		AddressList: []models.Address{office},
	})
	require.NoError(t, err)
	assert.False(t, u.ID.IsZero())
	require.Len(t, u.AddressList, 1)
	assert.Equal(t, "US", u.AddressList[0].Country)

	st := h.store.State()
	assert.Equal(t, "Registration successful!", st.SuccessMessage)
	assert.Equal(t, u.AddressList, st.Addresses())

	evs := h.events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.UserRegistered, evs[0].Event.Type)

	_, err = h.svc.RegisterUser(ctx, models.Registration{FirstName: "A", Email: backendtest.UserEmail, Password: "x"})
	require.ErrorIs(t, err, store.ErrNetwork)
	assert.Equal(t, "Oops! alice@example.com already exists!", h.store.State().Error)
}

func TestFetchCountries(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	got, err := h.svc.FetchCountries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Country{
		{Name: "Brazil", Code: "BR"},
		{Name: "Germany", Code: "DE"},
		{Name: "United States", Code: "US"},
	}, got)
	assert.Equal(t, got, h.store.State().CountryNames)
}

func TestFetchCountries_Failure(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.svc.d.CountriesURL = h.backend.URL() + "/no-such-list"

	_, err := h.svc.FetchCountries(context.Background())
	require.Error(t, err)
	st := h.store.State()
	assert.Equal(t, "Failed to load country list", st.Error)
	assert.Empty(t, st.CountryNames)
}

func TestSetUser(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.svc.SetUser(&models.User{ID: "7", AddressList: []models.Address{{ID: "1"}}})
	assert.Len(t, h.store.State().Addresses(), 1)

	h.svc.SetUser(nil)
	st := h.store.State()
	assert.Nil(t, st.User)
	assert.Empty(t, st.Addresses())
}
