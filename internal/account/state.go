package account

import (
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/store"
)

const (
	keyUser      = "user"
	keyCountries = "countries"

	msgRegistered     = "Registration successful!"
	msgAddressAdded   = "Address added successfully"
	msgAddressUpdated = "Address updated successfully"
	msgAddressDeleted = "Address deleted"
)

type State struct {
	User           *models.User     `json:"user"`
	CountryNames   []models.Country `json:"countryNames"`
	IsLoading      bool             `json:"isLoading"`
	Error          string           `json:"error,omitempty"`
	SuccessMessage string           `json:"successMessage,omitempty"`

	addresses store.Tracked[[]models.Address]
	loading   int
	tags      store.Tags
}

func Initial() State {
	return State{CountryNames: []models.Country{}}.withAddresses(store.Settled([]models.Address{}))
}

// Addresses returns the address list as currently shown, optimistic changes included.
func (s State) Addresses() []models.Address { return s.addresses.Applied }

// ConfirmedAddresses returns the last list the server acknowledged.
func (s State) ConfirmedAddresses() []models.Address { return s.addresses.Confirmed }

func (s State) withAddresses(t store.Tracked[[]models.Address]) State {
	s.addresses = t
	if s.User != nil {
		u := *s.User
		u.AddressList = t.Applied
		s.User = &u
	}
	return s
}

func (s State) withUser(u *models.User) State {
	s.User = u
	list := []models.Address{}
	if u != nil && u.AddressList != nil {
		list = u.AddressList
	}
	return s.withAddresses(s.addresses.Settle(list))
}

type userAction struct {
	status  store.Status
	seq     uint64
	user    models.User
	message string
}

func (userAction) ActionType() string { return "user/getUserById" }

type registerAction struct {
	status  store.Status
	user    models.User
	message string
}

func (registerAction) ActionType() string { return "user/registerUser" }

type countriesAction struct {
	status    store.Status
	seq       uint64
	countries []models.Country
	message   string
}

func (countriesAction) ActionType() string { return "user/getCountryNames" }

type addAddressAction struct {
	status  store.Status
	tempID  models.ID
	address models.Address
	message string
}

func (addAddressAction) ActionType() string { return "user/addAddress" }

type updateAddressAction struct {
	status  store.Status
	address models.Address
	message string
}

func (updateAddressAction) ActionType() string { return "user/updateAddress" }

type deleteAddressAction struct {
	status  store.Status
	id      models.ID
	message string
}

func (deleteAddressAction) ActionType() string { return "user/deleteAddress" }

type setUserAction struct{ user *models.User }

func (setUserAction) ActionType() string { return "user/setUser" }

// errorAction surfaces a local validation failure without touching the lists.
type errorAction struct{ message string }

func (errorAction) ActionType() string { return "user/setUserError" }

type clearErrorAction struct{}

func (clearErrorAction) ActionType() string { return "user/clearUserError" }

type clearSuccessAction struct{}

func (clearSuccessAction) ActionType() string { return "user/clearUserSuccess" }

func Reduce(s State, a store.Action) State {
	switch a := a.(type) {
	case userAction:
		switch a.status {
		case store.Pending:
			s = s.begin()
			s.tags = s.tags.Issue(keyUser, a.seq)
		case store.Fulfilled, store.Rejected:
			s = s.end()
			if !s.tags.Current(keyUser, a.seq) {
				return s
			}
			if a.status == store.Rejected {
				s.Error = a.message
				return s
			}
			u := a.user
			s = s.withUser(&u)
		}
	case registerAction:
		switch a.status {
		case store.Pending:
			s = s.begin()
		case store.Fulfilled:
			s = s.end()
			u := a.user
			s = s.withUser(&u)
			s.SuccessMessage = msgRegistered
		case store.Rejected:
			s = s.end()
			s.Error = a.message
		}
	case countriesAction:
		switch a.status {
		case store.Pending:
			s.tags = s.tags.Issue(keyCountries, a.seq)
		case store.Fulfilled, store.Rejected:
			if !s.tags.Current(keyCountries, a.seq) {
				return s
			}
			if a.status == store.Rejected {
				s.Error = a.message
				return s
			}
			s.CountryNames = a.countries
		}
	case addAddressAction:
		switch a.status {
		case store.Pending:
			s = s.begin()
			pending := a.address
			pending.ID = a.tempID
			s = s.withAddresses(s.addresses.Apply(appendAddress(s.addresses.Applied, pending)))
		case store.Fulfilled:
			s = s.end()
			s.SuccessMessage = msgAddressAdded
			applied := replaceAddress(s.addresses.Applied, a.tempID, a.address)
			if !hasAddress(s.addresses.Applied, a.tempID) {
				applied = appendAddress(s.addresses.Applied, a.address)
			}
			s = s.withAddresses(s.addresses.Confirm(appendAddress(s.addresses.Confirmed, a.address), applied))
		case store.Rejected:
			s = s.end()
			s.Error = a.message
			s = s.withAddresses(s.addresses.Revert())
		}
	case updateAddressAction:
		id := a.address.ID
		switch a.status {
		case store.Pending:
			s = s.begin()
			s = s.withAddresses(s.addresses.Apply(replaceAddress(s.addresses.Applied, id, a.address)))
		case store.Fulfilled:
			s = s.end()
			s.SuccessMessage = msgAddressUpdated
			s = s.withAddresses(s.addresses.Confirm(
				replaceAddress(s.addresses.Confirmed, id, a.address),
				replaceAddress(s.addresses.Applied, id, a.address),
			))
		case store.Rejected:
			s = s.end()
			s.Error = a.message
			s = s.withAddresses(s.addresses.Revert())
		}
	case deleteAddressAction:
		switch a.status {
		case store.Pending:
			s = s.begin()
			s = s.withAddresses(s.addresses.Apply(withoutAddress(s.addresses.Applied, a.id)))
		case store.Fulfilled:
			s = s.end()
			s.SuccessMessage = a.message
			s = s.withAddresses(s.addresses.Confirm(
				withoutAddress(s.addresses.Confirmed, a.id),
				withoutAddress(s.addresses.Applied, a.id),
			))
		case store.Rejected:
			s = s.end()
			s.Error = a.message
			s = s.withAddresses(s.addresses.Revert())
		}
	case setUserAction:
		s = s.withUser(a.user)
	case errorAction:
		s.Error = a.message
	case clearErrorAction:
		s.Error = ""
	case clearSuccessAction:
		s.SuccessMessage = ""
	}
	return s
}

func (s State) begin() State {
	s.loading++
	s.IsLoading = true
	s.Error = ""
	return s
}

func (s State) end() State {
	if s.loading > 0 {
		s.loading--
	}
	s.IsLoading = s.loading > 0
	return s
}

func appendAddress(list []models.Address, a models.Address) []models.Address {
	out := make([]models.Address, 0, len(list)+1)
	return append(append(out, list...), a)
}

func hasAddress(list []models.Address, id models.ID) bool {
	for _, cur := range list {
		if cur.ID == id {
			return true
		}
	}
	return false
}

func replaceAddress(list []models.Address, id models.ID, a models.Address) []models.Address {
	out := make([]models.Address, len(list))
	for i, cur := range list {
		if cur.ID == id {
			cur = a
		}
		out[i] = cur
	}
	return out
}

func withoutAddress(list []models.Address, id models.ID) []models.Address {
	out := make([]models.Address, 0, len(list))
	for _, cur := range list {
		if cur.ID != id {
			out = append(out, cur)
		}
	}
	return out
}
