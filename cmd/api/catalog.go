package main

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"salescore/internal/domain/catalog"
	"salescore/internal/domainerrors"
	"salescore/internal/params"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func parseIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domainerrors.New(domainerrors.Validation, "invalid id")
	}
	return id, nil
}

// listProductCardsHandler serves GET /products with the min_var_price
// aggregation and pagination meta computed by internal/params.
func (app *application) listProductCardsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pg := params.ParsePagination(q)

	filter := catalog.ListFilter{
		CategoryName: q.Get("category"),
		Limit:        pg.Limit,
		Offset:       pg.Offset,
	}
	if v := q.Get("min_price"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.MinPriceCents = &n
		}
	}
	if v := q.Get("max_price"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.MaxPriceCents = &n
		}
	}
	switch q.Get("sort_by") {
	case "price":
		filter.SortBy = catalog.SortByPrice
	case "name":
		filter.SortBy = catalog.SortByName
	}
	filter.SortDesc = q.Get("sort_order") == "desc"

	cards, total, err := app.store.Sales.Catalog.ListCards(r.Context(), filter)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	pg.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"items":      cards,
		"pagination": pg,
	})
}

func (app *application) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	product, err := app.store.Sales.Catalog.GetByID(r.Context(), id)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, product)
}

type createProductPayload struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	CategoryID  *int64  `json:"category_id"`
}

func (app *application) adminCreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var payload createProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}

	product, err := app.store.Sales.Catalog.CreateProduct(r.Context(), payload.Name, slugify(payload.Name), payload.Description, payload.CategoryID)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusCreated, product)
}

type updateProductPayload struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	CategoryID  *int64  `json:"category_id"`
	IsActive    bool    `json:"is_active"`
}

func (app *application) adminUpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	var payload updateProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}

	product, err := app.store.Sales.Catalog.UpdateProduct(r.Context(), id, payload.Name, payload.Description, payload.CategoryID, payload.IsActive)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, product)
}

func (app *application) adminDeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	if err := app.store.Sales.Catalog.DeleteProduct(r.Context(), id); err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]bool{"deleted": true})
}
