// Package storefront wires every slice into one store and one API client.
package storefront

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Skotchmaster/storefront/internal/account"
	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/auth"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/media"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/nav"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/store"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Options struct {
	APIBaseURL string
	// RequestTimeout bounds each backend call; 0 disables the bound.
	RequestTimeout time.Duration
	HTTPClient     *http.Client

	Session   session.Store
	Nav       nav.Navigator
	Events    events.Publisher
	Suggester catalog.Suggester

	ItemsPerPage  int
	Currency      string
	CountriesURL  string
	RedirectDelay time.Duration
	// MediaCacheSize caps cached image URIs; 0 keeps the resolver default.
	MediaCacheSize int

	Logger *slog.Logger
}

type Storefront struct {
	Store   *store.Store[State]
	API     *apiclient.Client
	Session session.Store
	Nav     nav.Navigator

	Auth     *auth.Service
	Catalog  *catalog.Service
	Search   *search.Service
	Cart     *cart.Service
	Checkout *checkout.Service
	Account  *account.Service
	Media    *media.Resolver
}

func New(o Options) *Storefront {
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.Session == nil {
		o.Session = session.NewMemoryStore("")
	}
	if o.Nav == nil {
		o.Nav = &nav.Recorder{}
	}
	if o.Events == nil {
		o.Events = events.Noop{}
	}

	clientOpts := []apiclient.Option{apiclient.WithTokenSource(o.Session), apiclient.WithLogger(o.Logger)}
	if o.HTTPClient != nil {
		clientOpts = append(clientOpts, apiclient.WithHTTPClient(o.HTTPClient))
	}
	clientOpts = append(clientOpts, apiclient.WithTimeout(o.RequestTimeout))
	api := apiclient.New(o.APIBaseURL, clientOpts...)

	st := store.New(Initial(o.ItemsPerPage), Reduce, store.WithLogger(o.Logger))
	seq := &store.Sequence{}

	sf := &Storefront{Store: st, API: api, Session: o.Session, Nav: o.Nav}
	sf.Auth = auth.NewService(auth.Deps{
		Store:   st,
		State:   func() auth.State { return st.State().Auth },
		API:     api,
		Session: o.Session,
		Nav:     o.Nav,
		Events:  o.Events,
	})
	api.SetUnauthorizedHandler(sf.Auth.HandleUnauthorized)

	sf.Catalog = catalog.NewService(catalog.Deps{
		Store:     st,
		State:     func() catalog.State { return st.State().Catalog },
		API:       api,
		Seq:       seq,
		Suggester: o.Suggester,
	})
	sf.Search = search.NewService(st)
	sf.Cart = cart.NewService(cart.Deps{
		Store:  st,
		State:  func() cart.State { return st.State().Cart },
		API:    api,
		Seq:    seq,
		Events: o.Events,
	})
	sf.Checkout = checkout.NewService(checkout.Deps{
		Store:         st,
		State:         func() checkout.State { return st.State().Order },
		API:           api,
		Seq:           seq,
		Cart:          sf.Cart,
		Nav:           o.Nav,
		Events:        o.Events,
		Currency:      o.Currency,
		RedirectDelay: o.RedirectDelay,
	})
	sf.Account = account.NewService(account.Deps{
		Store:        st,
		State:        func() account.State { return st.State().Account },
		API:          api,
		Seq:          seq,
		Events:       o.Events,
		CountriesURL: o.CountriesURL,
	})
	sf.Media = media.NewResolver(api, media.WithMaxEntries(o.MediaCacheSize))
	return sf
}

func (sf *Storefront) State() State { return sf.Store.State() }

// Start restores a persisted session and loads the public catalog. Failures are
// already in the slice states; the joined error is for logging.
func (sf *Storefront) Start(ctx context.Context) error {
	var errs []error
	if _, err := sf.Auth.Restore(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := sf.Catalog.FetchCategories(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := sf.Catalog.FetchBrands(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := sf.Catalog.FetchDistinctNames(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := sf.Catalog.FetchAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if a := sf.State().Auth; a.IsAuthenticated {
		if _, err := sf.Cart.LoadCart(ctx, a.UserID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops pending redirects and the store loop.
func (sf *Storefront) Close() {
	sf.Checkout.Stop()
	sf.Store.Close()
}

// Page is one screen of the product grid.
type Page struct {
	Products   []models.Product  `json:"products"`
	Pagination search.Pagination `json:"pagination"`
	TotalPages int               `json:"totalPages"`
}

// Browse filters the loaded products by the search slice and selected brands
// and cuts the current page. The match count is fed back to pagination so the
// page index stays in range.
func (sf *Storefront) Browse() Page {
	st := sf.Store.State()
	matched := catalog.Filter(st.Catalog.Products, st.Search.Query, st.Search.Category, st.Catalog.SelectedBrands)
	if len(matched) != st.Pagination.TotalItems {
		sf.Search.SetTotalItems(len(matched))
	}
	p := sf.Store.State().Pagination
	start, end := p.Window(len(matched))
	return Page{Products: matched[start:end], Pagination: p, TotalPages: p.TotalPages()}
}
