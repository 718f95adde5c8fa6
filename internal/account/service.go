package account

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/store"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	MsgInvalidAddress      = "Please provide address type, street, city and a two-letter country code"
	MsgMissingRegistration = "Please fill in name, email and password"
	MsgAddressNotSaved     = "Address is still being saved"

	TempIDPrefix = "tmp-"
)

type Deps struct {
	Store        store.Dispatcher
	State        func() State
	API          *apiclient.Client
	Seq          *store.Sequence
	Events       events.Publisher
	CountriesURL string
	// NewID makes the temporary id of an address awaiting confirmation.
	NewID func() models.ID
}

type Service struct {
	d Deps
}

func NewService(d Deps) *Service {
	if d.Seq == nil {
		d.Seq = &store.Sequence{}
	}
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.NewID == nil {
		d.NewID = func() models.ID { return models.ID(TempIDPrefix + uuid.NewString()) }
	}
	return &Service{d: d}
}

// NormalizeAddress upper-cases the type and country and trims the text fields.
func NormalizeAddress(a models.Address) models.Address {
	a.AddressType = models.AddressType(strings.ToUpper(strings.TrimSpace(string(a.AddressType))))
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.MobileNumber = strings.TrimSpace(a.MobileNumber)
	return a
}

// ValidAddress reports whether a normalized address may be sent.
func ValidAddress(a models.Address) bool {
	if !a.AddressType.Valid() || a.Street == "" || a.City == "" || len(a.Country) != 2 {
		return false
	}
	for _, r := range a.Country {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (s *Service) GetUserByID(ctx context.Context, userID models.ID) (models.User, error) {
	const op = "account.getUserById"
	l := logging.FromContext(ctx).With("svc", op)

	seq := s.d.Seq.Next()
	s.d.Store.Dispatch(userAction{status: store.Pending, seq: seq})

	var u models.User
	_, err := s.d.API.Do(ctx, apiclient.Request{Path: "/users/user/" + userID.String() + "/user", Protected: true}, &u)
	if err != nil {
		msg := apiclient.Message(err, "Failed to fetch user profile")
		s.d.Store.Dispatch(userAction{status: store.Rejected, seq: seq, message: msg})
		l.Warn("user_fetch_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return models.User{}, store.Network(op, msg, err)
	}
	s.d.Store.Dispatch(userAction{status: store.Fulfilled, seq: seq, user: u})
	l.Debug("user_fetch_success", "user_id", u.ID, "addresses", len(u.AddressList))
	return u, nil
}

func (s *Service) RegisterUser(ctx context.Context, reg models.Registration) (models.User, error) {
	const op = "account.registerUser"
	l := logging.FromContext(ctx).With("svc", op)

	reg.Email = strings.TrimSpace(reg.Email)
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	if reg.FirstName == "" || reg.Email == "" || reg.Password == "" {
		s.d.Store.Dispatch(errorAction{message: MsgMissingRegistration})
		l.Warn("register_failed", "status", http.StatusBadRequest, "reason", "missing fields")
		return models.User{}, store.Validation(op, MsgMissingRegistration)
	}
	for i, a := range reg.AddressList {
		a = NormalizeAddress(a)
		if !ValidAddress(a) {
			s.d.Store.Dispatch(errorAction{message: MsgInvalidAddress})
			l.Warn("register_failed", "status", http.StatusBadRequest, "reason", "invalid address", "index", i)
			return models.User{}, store.Validation(op, MsgInvalidAddress)
		}
		reg.AddressList[i] = a
	}
	if reg.AddressList == nil {
		reg.AddressList = []models.Address{}
	}

	s.d.Store.Dispatch(registerAction{status: store.Pending})
	var u models.User
	_, err := s.d.API.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: "/users/add", Body: reg}, &u)
	if err != nil {
		msg := apiclient.Message(err, "Registration failed")
		s.d.Store.Dispatch(registerAction{status: store.Rejected, message: msg})
		l.Warn("register_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return models.User{}, store.Network(op, msg, err)
	}

	s.d.Store.Dispatch(registerAction{status: store.Fulfilled, user: u})
	_ = s.d.Events.Publish(ctx, events.TopicUser, u.ID.String(), events.New(events.UserRegistered, u.ID.String(),
		map[string]any{"email": u.Email}))
	l.Info("register_success", "user_id", u.ID)
	return u, nil
}

// AddAddress shows the address at once under a temporary id and swaps in the
// server's copy when it is saved.
func (s *Service) AddAddress(ctx context.Context, userID models.ID, a models.Address) (models.Address, error) {
	const op = "account.addAddress"
	l := logging.FromContext(ctx).With("svc", op)

	a = NormalizeAddress(a)
	a.ID = ""
	if !ValidAddress(a) {
		s.d.Store.Dispatch(errorAction{message: MsgInvalidAddress})
		l.Warn("address_add_failed", "status", http.StatusBadRequest, "reason", "invalid address")
		return models.Address{}, store.Validation(op, MsgInvalidAddress)
	}

	tmp := s.d.NewID()
	s.d.Store.Dispatch(addAddressAction{status: store.Pending, tempID: tmp, address: a})

	var saved []models.Address
	_, err := s.d.API.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      "/addresses/" + userID.String() + "/new",
		Body:      []models.Address{a},
		Protected: true,
	}, &saved)
	if err == nil && (len(saved) == 0 || saved[0].ID.IsZero()) {
		err = errors.New("no address in response")
	}
	if err != nil {
		msg := apiclient.Message(err, "Failed to add address")
		s.d.Store.Dispatch(addAddressAction{status: store.Rejected, tempID: tmp, message: msg})
		l.Warn("address_add_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return models.Address{}, store.Network(op, msg, err)
	}

	s.d.Store.Dispatch(addAddressAction{status: store.Fulfilled, tempID: tmp, address: saved[0]})
	l.Info("address_add_success", "address_id", saved[0].ID)
	return saved[0], nil
}

func (s *Service) UpdateAddress(ctx context.Context, id models.ID, a models.Address) (models.Address, error) {
	const op = "account.updateAddress"
	l := logging.FromContext(ctx).With("svc", op)

	a = NormalizeAddress(a)
	a.ID = id
	if !ValidAddress(a) {
		s.d.Store.Dispatch(errorAction{message: MsgInvalidAddress})
		l.Warn("address_update_failed", "status", http.StatusBadRequest, "reason", "invalid address")
		return models.Address{}, store.Validation(op, MsgInvalidAddress)
	}
	if isTemp(id) {
		return models.Address{}, s.rejectTemp(ctx, op)
	}

	s.d.Store.Dispatch(updateAddressAction{status: store.Pending, address: a})

	var saved models.Address
	_, err := s.d.API.Do(ctx, apiclient.Request{
		Method:    http.MethodPut,
		Path:      "/addresses/" + id.String() + "/update",
		Body:      a,
		Protected: true,
	}, &saved)
	if err != nil {
		msg := apiclient.Message(err, "Failed to update address")
		s.d.Store.Dispatch(updateAddressAction{status: store.Rejected, address: a, message: msg})
		l.Warn("address_update_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return models.Address{}, store.Network(op, msg, err)
	}
	if saved.ID != id {
		saved = a
	}

	s.d.Store.Dispatch(updateAddressAction{status: store.Fulfilled, address: saved})
	l.Info("address_update_success", "address_id", id)
	return saved, nil
}

func (s *Service) DeleteAddress(ctx context.Context, id models.ID) error {
	const op = "account.deleteAddress"
	l := logging.FromContext(ctx).With("svc", op)

	if isTemp(id) {
		return s.rejectTemp(ctx, op)
	}

	s.d.Store.Dispatch(deleteAddressAction{status: store.Pending, id: id})
	serverMsg, err := s.d.API.Do(ctx, apiclient.Request{
		Method:    http.MethodDelete,
		Path:      "/addresses/" + id.String() + "/delete",
		Protected: true,
	}, nil)
	if err != nil {
		msg := apiclient.Message(err, "Failed to delete address")
		s.d.Store.Dispatch(deleteAddressAction{status: store.Rejected, id: id, message: msg})
		l.Warn("address_delete_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return store.Network(op, msg, err)
	}
	if serverMsg == "" {
		serverMsg = msgAddressDeleted
	}
	s.d.Store.Dispatch(deleteAddressAction{status: store.Fulfilled, id: id, message: serverMsg})
	l.Info("address_delete_success", "address_id", id)
	return nil
}

func isTemp(id models.ID) bool { return strings.HasPrefix(id.String(), TempIDPrefix) }

// rejectTemp refuses to touch an address the server has not acknowledged yet.
func (s *Service) rejectTemp(ctx context.Context, op string) error {
	logging.FromContext(ctx).With("svc", op).Warn("address_change_refused", "reason", "unsaved address")
	s.d.Store.Dispatch(errorAction{message: MsgAddressNotSaved})
	return store.Validation(op, MsgAddressNotSaved)
}

type restCountry struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	CCA2 string `json:"cca2"`
}

// FetchCountries loads the country list from the external directory. The call
// never carries the storefront's credentials.
func (s *Service) FetchCountries(ctx context.Context) ([]models.Country, error) {
	const op = "account.getCountryNames"
	l := logging.FromContext(ctx).With("svc", op)

	seq := s.d.Seq.Next()
	s.d.Store.Dispatch(countriesAction{status: store.Pending, seq: seq})

	var raw []restCountry
	_, err := s.d.API.Do(ctx, apiclient.Request{
		Path:  s.d.CountriesURL,
		Query: url.Values{"fields": {"name,cca2"}},
	}, &raw)
	if err != nil {
		const msg = "Failed to load country list"
		s.d.Store.Dispatch(countriesAction{status: store.Rejected, seq: seq, message: msg})
		l.Warn("countries_fetch_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return nil, store.Network(op, msg, err)
	}

	out := make([]models.Country, 0, len(raw))
	for _, c := range raw {
		name, code := strings.TrimSpace(c.Name.Common), strings.ToUpper(strings.TrimSpace(c.CCA2))
		if name == "" || code == "" {
			continue
		}
		out = append(out, models.Country{Name: name, Code: code})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})

	s.d.Store.Dispatch(countriesAction{status: store.Fulfilled, seq: seq, countries: out})
	l.Debug("countries_fetch_success", "count", len(out))
	return out, nil
}

func (s *Service) SetUser(u *models.User) { s.d.Store.Dispatch(setUserAction{user: u}) }

func (s *Service) ClearError() { s.d.Store.Dispatch(clearErrorAction{}) }

func (s *Service) ClearSuccess() { s.d.Store.Dispatch(clearSuccessAction{}) }
