package catalog

import (
	"context"
	"net/http"
	"strings"

	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/store"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Deps struct {
	Store     store.Dispatcher
	State     func() State
	API       *apiclient.Client
	Seq       *store.Sequence
	Suggester Suggester
}

type Service struct {
	d Deps
}

func NewService(d Deps) *Service {
	if d.Seq == nil {
		d.Seq = &store.Sequence{}
	}
	if d.Suggester == nil {
		d.Suggester = LocalSuggester{Names: func() []models.Product { return d.State().DistinctProducts }}
	}
	return &Service{d: d}
}

// fetch runs one tagged read. Results of a superseded request for the same key are dropped.
func fetch[T any](ctx context.Context, s *Service, op, key, path, fallback string, apply func(State, T) State) (T, error) {
	l := logging.FromContext(ctx).With("svc", "catalog."+op)
	seq := s.d.Seq.Next()
	s.d.Store.Dispatch(fetched{op: op, key: key, status: store.Pending, seq: seq})

	var out T
	_, err := s.d.API.Do(ctx, apiclient.Request{Path: path}, &out)
	if err != nil {
		msg := apiclient.Message(err, fallback)
		s.d.Store.Dispatch(fetched{op: op, key: key, status: store.Rejected, seq: seq, message: msg})
		l.Warn(op+"_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return out, store.Network("catalog."+op, msg, err)
	}
	s.d.Store.Dispatch(fetched{op: op, key: key, status: store.Fulfilled, seq: seq,
		apply: func(st State) State { return apply(st, out) }})
	l.Debug(op+"_success", "seq", seq)
	return out, nil
}

func (s *Service) FetchAll(ctx context.Context) ([]models.Product, error) {
	return fetch(ctx, s, "fetchAll", keyProducts, "/products/all", "Failed to fetch products",
		func(st State, ps []models.Product) State {
			st.Products = nonNilProducts(ps)
			return st
		})
}

func (s *Service) FetchByCategory(ctx context.Context, categoryID models.ID) ([]models.Product, error) {
	return fetch(ctx, s, "fetchByCategory", keyProducts, "/products/category/"+categoryID.String()+"/products",
		"Failed to fetch products", func(st State, ps []models.Product) State {
			st.Products = nonNilProducts(ps)
			return st
		})
}

func (s *Service) FetchDistinctNames(ctx context.Context) ([]models.Product, error) {
	return fetch(ctx, s, "fetchDistinctNames", keyDistinct, "/products/distinct/products",
		"Failed to fetch products", func(st State, ps []models.Product) State {
			st.DistinctProducts = nonNilProducts(ps)
			return st
		})
}

func (s *Service) FetchByID(ctx context.Context, id models.ID) (models.Product, error) {
	return fetch(ctx, s, "fetchByID", keyProduct, "/products/product/"+id.String()+"/product",
		"Failed to fetch product", func(st State, p models.Product) State {
			st.Product = &p
			st.Quantity = 1
			return st
		})
}

func (s *Service) FetchBrands(ctx context.Context) ([]string, error) {
	return fetch(ctx, s, "fetchBrands", keyBrands, "/products/distinct/brands",
		"Failed to fetch brands", func(st State, bs []string) State {
			if bs == nil {
				bs = []string{}
			}
			st.Brands = bs
			return st
		})
}

func (s *Service) FetchCategories(ctx context.Context) ([]models.Category, error) {
	return fetch(ctx, s, "fetchCategories", keyCategories, "/categories/all",
		"Failed to fetch categories", func(st State, cs []models.Category) State {
			if cs == nil {
				cs = []models.Category{}
			}
			st.Categories = cs
			return st
		})
}

// mutate runs an admin write. The server's message replaces success only when
// useServerMsg is set and the server sent one.
func (s *Service) mutate(ctx context.Context, op string, r apiclient.Request, out any, fallback, success string, useServerMsg bool, apply func(State, string) State) error {
	l := logging.FromContext(ctx).With("svc", "catalog."+op)
	s.d.Store.Dispatch(mutated{op: op, status: store.Pending})

	r.Protected = true
	msg, err := s.d.API.Do(ctx, r, out)
	if err != nil {
		m := apiclient.Message(err, fallback)
		s.d.Store.Dispatch(mutated{op: op, status: store.Rejected, message: m})
		l.Warn(op+"_failed", "status", apiclient.StatusOf(err), "reason", m, "error", err)
		return store.Network("catalog."+op, m, err)
	}
	if msg == "" || !useServerMsg {
		msg = success
	}
	s.d.Store.Dispatch(mutated{op: op, status: store.Fulfilled, message: msg,
		apply: func(st State) State { return apply(st, msg) }})
	l.Info(op+"_success")
	return nil
}

// Create adds a product (admin).
func (s *Service) Create(ctx context.Context, p models.Product) (models.Product, error) {
	if strings.TrimSpace(p.Name) == "" {
		return models.Product{}, s.reject("create", "Product name is required")
	}
	var created models.Product
	err := s.mutate(ctx, "create", apiclient.Request{Method: http.MethodPost, Path: "/products/add", Body: p},
		&created, "Failed to add product", "Product added successfully", false,
		func(st State, _ string) State {
			st.Products = append(append([]models.Product(nil), st.Products...), created)
			return st
		})
	return created, err
}

// Update replaces a product (admin) in the list and in the detail view.
func (s *Service) Update(ctx context.Context, id models.ID, p models.Product) (models.Product, error) {
	var updated models.Product
	err := s.mutate(ctx, "update", apiclient.Request{Method: http.MethodPut, Path: "/products/product/" + id.String() + "/update", Body: p},
		&updated, "Failed to update product", "Product updated successfully", false,
		func(st State, _ string) State {
			if updated.ID.IsZero() {
				updated.ID = id
			}
			st.Product = &updated
			out := make([]models.Product, len(st.Products))
			for i, cur := range st.Products {
				if cur.ID == updated.ID {
					cur = updated
				}
				out[i] = cur
			}
			st.Products = out
			return st
		})
	return updated, err
}

// Delete removes a product (admin).
func (s *Service) Delete(ctx context.Context, id models.ID) error {
	return s.mutate(ctx, "delete", apiclient.Request{Method: http.MethodDelete, Path: "/products/product/" + id.String() + "/delete"},
		nil, "Failed to delete product", "Product deleted", true,
		func(st State, _ string) State {
			out := make([]models.Product, 0, len(st.Products))
			for _, p := range st.Products {
				if p.ID != id {
					out = append(out, p)
				}
			}
			st.Products = out
			if st.Product != nil && st.Product.ID == id {
				st.Product = nil
			}
			return st
		})
}

func (s *Service) reject(op, msg string) error {
	s.d.Store.Dispatch(mutated{op: op, status: store.Rejected, message: msg})
	return store.Validation("catalog."+op, msg)
}

// FilterByBrand toggles brand in the selected set. It never refetches.
func (s *Service) FilterByBrand(brand string, included bool) {
	s.d.Store.Dispatch(brandFilter{brand: brand, included: included})
}

// SetQuantity sets the detail-view counter; values below 1 are ignored.
func (s *Service) SetQuantity(n int) {
	s.d.Store.Dispatch(setQuantity{n: n})
}

func (s *Service) AddBrand(brand string) {
	s.d.Store.Dispatch(addBrand{brand: brand})
}

func (s *Service) AddCategory(c models.Category) {
	s.d.Store.Dispatch(addCategory{category: c})
}

func (s *Service) ClearError()   { s.d.Store.Dispatch(clearError{}) }
func (s *Service) ClearSuccess() { s.d.Store.Dispatch(clearSuccess{}) }

// Suggest returns up to limit product names starting with prefix.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if strings.TrimSpace(prefix) == "" {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	return s.d.Suggester.Suggest(ctx, prefix, limit)
}

func nonNilProducts(ps []models.Product) []models.Product {
	if ps == nil {
		return []models.Product{}
	}
	return ps
}
