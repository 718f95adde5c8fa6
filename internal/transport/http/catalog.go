package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/media"
	"github.com/Skotchmaster/storefront/internal/models"
)

const defaultSuggestLimit = 8

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// Browse applies any q, category and page query parameters to the search
// slices and returns the visible page.
func (h *Handler) Browse(c echo.Context) error {
	qp := c.QueryParams()
	if qp.Has("q") {
		h.sf.Search.SetQuery(qp.Get("q"))
	}
	if qp.Has("category") {
		h.sf.Search.SetCategory(qp.Get("category"))
	}
	if qp.Has("page") {
		h.sf.Search.SetCurrentPage(parseIntDefault(qp.Get("page"), 1))
	}
	return c.JSON(http.StatusOK, h.sf.Browse())
}

func (h *Handler) Product(c echo.Context) error {
	p, err := h.sf.Catalog.FetchByID(c.Request().Context(), models.ID(c.Param("id")))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DistinctProducts(c echo.Context) error {
	list, err := h.sf.Catalog.FetchDistinctNames(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) ProductsByCategory(c echo.Context) error {
	list, err := h.sf.Catalog.FetchByCategory(c.Request().Context(), models.ID(c.Param("id")))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) Categories(c echo.Context) error {
	list, err := h.sf.Catalog.FetchCategories(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) Brands(c echo.Context) error {
	list, err := h.sf.Catalog.FetchBrands(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) Suggest(c echo.Context) error {
	limit := parseIntDefault(c.QueryParam("limit"), defaultSuggestLimit)
	names, err := h.sf.Catalog.Suggest(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, names)
}

type brandFilterRequest struct {
	Included bool `json:"included"`
}

func (h *Handler) FilterByBrand(c echo.Context) error {
	var req brandFilterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	h.sf.Catalog.FilterByBrand(c.Param("brand"), req.Included)
	return c.JSON(http.StatusOK, h.sf.State().Catalog.SelectedBrands)
}

type searchRequest struct {
	Query    string `json:"query"`
	Category string `json:"category"`
}

func (h *Handler) SetSearch(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	h.sf.Search.SetQuery(req.Query)
	h.sf.Search.SetCategory(req.Category)
	return c.JSON(http.StatusOK, h.sf.Browse())
}

func (h *Handler) ResetSearch(c echo.Context) error {
	h.sf.Search.Reset()
	return c.JSON(http.StatusOK, h.sf.Browse())
}

type paginationRequest struct {
	Page    *int `json:"page"`
	PerPage *int `json:"perPage"`
}

func (h *Handler) SetPagination(c echo.Context) error {
	var req paginationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.PerPage != nil {
		h.sf.Search.SetItemsPerPage(*req.PerPage)
	}
	if req.Page != nil {
		h.sf.Search.SetCurrentPage(*req.Page)
	}
	return c.JSON(http.StatusOK, h.sf.Browse())
}

func (h *Handler) NextPage(c echo.Context) error {
	h.sf.Search.NextPage()
	return c.JSON(http.StatusOK, h.sf.Browse())
}

func (h *Handler) PreviousPage(c echo.Context) error {
	h.sf.Search.PreviousPage()
	return c.JSON(http.StatusOK, h.sf.Browse())
}

type imageResponse struct {
	Ref string `json:"ref"`
	URI string `json:"uri"`
}

// Image resolves a "kind:id" reference into a data URI.
func (h *Handler) Image(c echo.Context) error {
	ref, err := media.ParseRef(c.Param("ref"))
	if err != nil {
		return fail(c, err)
	}
	uri, err := h.sf.Media.Resolve(c.Request().Context(), ref)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, imageResponse{Ref: ref.String(), URI: uri})
}

func (h *Handler) CreateProduct(c echo.Context) error {
	var p models.Product
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid request body")
	}
	created, err := h.sf.Catalog.Create(c.Request().Context(), p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateProduct(c echo.Context) error {
	var p models.Product
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid request body")
	}
	id := models.ID(c.Param("id"))
	updated, err := h.sf.Catalog.Update(c.Request().Context(), id, p)
	if err != nil {
		return fail(c, err)
	}
	h.sf.Media.Forget(media.ProductRef(id))
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteProduct(c echo.Context) error {
	id := models.ID(c.Param("id"))
	if err := h.sf.Catalog.Delete(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	h.sf.Media.Forget(media.ProductRef(id))
	return c.NoContent(http.StatusNoContent)
}
