package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkpress/storefront/internal/models"
)

func (h *Handler) HandleProducts(w http.ResponseWriter, r *http.Request) {
	var products []models.Product
	if category := r.URL.Query().Get("category"); category != "" {
		products = h.catalog.ByCategory(category)
	} else {
		products = h.catalog.List()
	}
	if products == nil {
		products = []models.Product{}
	}
	h.writeJSON(w, products)
}

func (h *Handler) HandleProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(chi.URLParam(r, "productID"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, product)
}

func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.catalog.Categories())
}

// HandlePrintAreas lists the design regions of a product.
func (h *Handler) HandlePrintAreas(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(chi.URLParam(r, "productID"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, h.printAreas.ForProduct(product.ID))
}

func (h *Handler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.templates.List())
}
