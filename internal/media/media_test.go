package media

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/backendtest"
	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	downloadRoute = "/images/image/download/:id"
	productRoute  = "/products/product/:id/product"
)

func TestResolve(t *testing.T) {
	t.Parallel()
	b := backendtest.New(t)
	r := NewResolver(apiclient.New(b.URL()))
	ctx := context.Background()
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(backendtest.PNG)

	uri, err := r.Resolve(ctx, ImageRef(backendtest.PhoneImageID))
	require.NoError(t, err)
	assert.Equal(t, want, uri)
	assert.Zero(t, b.Calls(http.MethodGet, productRoute))

	uri, err = r.Resolve(ctx, ProductRef(backendtest.PhoneID))
	require.NoError(t, err)
	assert.Equal(t, want, uri)
	assert.Equal(t, 1, b.Calls(http.MethodGet, productRoute))

	_, err = r.Resolve(ctx, ProductRef(backendtest.PhoneID))
	require.NoError(t, err)
	assert.Equal(t, 1, b.Calls(http.MethodGet, productRoute), "cached")
	assert.Equal(t, 2, b.Calls(http.MethodGet, downloadRoute))
}

func TestResolve_CacheIsBounded(t *testing.T) {
	t.Parallel()
	b := backendtest.New(t)
	r := NewResolver(apiclient.New(b.URL()), WithMaxEntries(1))
	ctx := context.Background()
	image, product := ImageRef(backendtest.PhoneImageID), ProductRef(backendtest.PhoneID)

	_, err := r.Resolve(ctx, image)
	require.NoError(t, err)
	_, err = r.Resolve(ctx, product)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 2, b.Calls(http.MethodGet, downloadRoute))

	_, err = r.Resolve(ctx, image)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Calls(http.MethodGet, downloadRoute), "oldest entry was evicted")

	r.Forget(image)
	assert.Zero(t, r.Len())
	r.Forget(image)

	_, err = r.Resolve(ctx, product)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Calls(http.MethodGet, productRoute))
	r.Reset()
	assert.Zero(t, r.Len())
}

func TestResolve_Failures(t *testing.T) {
	t.Parallel()
	b := backendtest.New(t)
	r := NewResolver(apiclient.New(b.URL()))
	ctx := context.Background()

	_, err := r.Resolve(ctx, ProductRef(backendtest.LaptopID))
	require.ErrorIs(t, err, ErrNoImage)
	assert.Zero(t, b.Calls(http.MethodGet, downloadRoute))

	_, err = r.Resolve(ctx, ImageRef("999"))
	require.ErrorIs(t, err, apiclient.ErrNotFound)
	assert.Zero(t, b.Calls(http.MethodGet, productRoute), "no guessing on a missing image")

	_, err = r.Resolve(ctx, ProductRef("404"))
	require.ErrorIs(t, err, apiclient.ErrNotFound)

	_, err = r.Resolve(ctx, Ref{Kind: "video", ID: "1"})
	require.ErrorIs(t, err, ErrInvalidRef)
}

func TestRefFor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ImageRef("100"), RefFor(models.Product{ID: "10", Images: []models.Image{{ID: "100"}, {ID: "101"}}}))
	assert.Equal(t, ProductRef("11"), RefFor(models.Product{ID: "11"}))
}

func TestParseRef(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Ref
		wantErr bool
	}{
		{in: "image:100", want: ImageRef("100")},
		{in: "product:7", want: ProductRef("7")},
		{in: "product:", wantErr: true},
		{in: "100", wantErr: true},
		{in: "video:1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRef(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRef)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestDataURI_Sniffs(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "data:text/plain; charset=utf-8;base64,aGk=", DataURI("", []byte("hi")))
}
