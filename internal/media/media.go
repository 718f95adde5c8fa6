// Package media resolves explicit image references into displayable data URIs.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Kind string

const (
	KindImage   Kind = "image"
	KindProduct Kind = "product"
)

var (
	ErrNoImage    = errors.New("no image for product")
	ErrInvalidRef = errors.New("invalid image reference")
)

// Ref names an image either directly or through the product that owns it.
type Ref struct {
	Kind Kind      `json:"kind"`
	ID   models.ID `json:"id"`
}

func ImageRef(id models.ID) Ref { return Ref{Kind: KindImage, ID: id} }

func ProductRef(id models.ID) Ref { return Ref{Kind: KindProduct, ID: id} }

// RefFor picks the reference for a product's thumbnail: its first image when the
// product came with images, the product itself otherwise.
func RefFor(p models.Product) Ref {
	if len(p.Images) > 0 && !p.Images[0].ID.IsZero() {
		return ImageRef(p.Images[0].ID)
	}
	return ProductRef(p.ID)
}

func (r Ref) String() string { return string(r.Kind) + ":" + r.ID.String() }

// ParseRef reads the "kind:id" form produced by String.
func ParseRef(s string) (Ref, error) {
	kind, id, ok := strings.Cut(s, ":")
	r := Ref{Kind: Kind(kind), ID: models.ID(id)}
	if !ok || r.ID.IsZero() || (r.Kind != KindImage && r.Kind != KindProduct) {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	return r, nil
}

const defaultMaxEntries = 256

type Resolver struct {
	api        *apiclient.Client
	maxEntries int

	mu    sync.Mutex
	cache map[Ref]string
	order []Ref
}

type Option func(*Resolver)

// WithMaxEntries bounds the number of cached URIs; the oldest is evicted first.
func WithMaxEntries(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxEntries = n
		}
	}
}

func NewResolver(api *apiclient.Client, opts ...Option) *Resolver {
	r := &Resolver{api: api, maxEntries: defaultMaxEntries, cache: map[Ref]string{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Forget drops the cached URI for ref.
func (r *Resolver) Forget(ref Ref) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache[ref]; !ok {
		return
	}
	delete(r.cache, ref)
	for i, o := range r.order {
		if o == ref {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

// Reset empties the cache.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = map[Ref]string{}
	r.order = nil
}

// Len reports how many URIs are cached.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

func (r *Resolver) store(ref Ref, uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache[ref]; ok {
		r.cache[ref] = uri
		return
	}
	for len(r.order) >= r.maxEntries {
		delete(r.cache, r.order[0])
		r.order = r.order[1:]
	}
	r.cache[ref] = uri
	r.order = append(r.order, ref)
}

// Resolve returns a data URI for ref. Product references cost one product fetch.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) (string, error) {
	l := logging.FromContext(ctx).With("svc", "media.resolve")

	r.mu.Lock()
	uri, ok := r.cache[ref]
	r.mu.Unlock()
	if ok {
		return uri, nil
	}

	imageID := ref.ID
	switch ref.Kind {
	case KindImage:
	case KindProduct:
		var p models.Product
		if _, err := r.api.Do(ctx, apiclient.Request{Path: "/products/product/" + ref.ID.String() + "/product"}, &p); err != nil {
			l.Warn("image_resolve_failed", "ref", ref.String(), "status", apiclient.StatusOf(err), "error", err)
			return "", fmt.Errorf("fetch product %s: %w", ref.ID, err)
		}
		if len(p.Images) == 0 || p.Images[0].ID.IsZero() {
			l.Debug("image_resolve_failed", "ref", ref.String(), "reason", "product has no image")
			return "", fmt.Errorf("%w %s", ErrNoImage, ref.ID)
		}
		imageID = p.Images[0].ID
	default:
		return "", fmt.Errorf("%w: kind %q", ErrInvalidRef, ref.Kind)
	}

	body, contentType, err := r.api.Download(ctx, "/images/image/download/"+imageID.String())
	if err != nil {
		l.Warn("image_resolve_failed", "ref", ref.String(), "status", apiclient.StatusOf(err), "error", err)
		return "", fmt.Errorf("download image %s: %w", imageID, err)
	}
	uri = DataURI(contentType, body)

	r.store(ref, uri)
	return uri, nil
}

// DataURI encodes b as a base64 data URI, sniffing the type when none is given.
func DataURI(contentType string, b []byte) string {
	if contentType == "" {
		contentType = http.DetectContentType(b)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(b)
}
