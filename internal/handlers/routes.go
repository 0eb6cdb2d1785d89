package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes builds the storefront router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", h.HandleHealthcheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.HandleProducts)
		r.Get("/products/{productID}", h.HandleProduct)
		r.Get("/products/{productID}/print-areas", h.HandlePrintAreas)
		r.Get("/categories", h.HandleCategories)
		r.Get("/templates", h.HandleTemplates)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.HandleSessions)
			r.Post("/", h.HandleCreateSession)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.HandleSessionDetail)
				r.Delete("/", h.HandleDeleteSession)
				r.Get("/scene", h.HandleScene)
				r.Get("/frame.png", h.HandleFrame)
				r.Get("/ws", h.HandleWebSocket)
				r.Post("/area", h.HandleSwitchArea)
				r.Post("/pointer", h.HandlePointer)
				r.Post("/undo", h.HandleUndo)
				r.Post("/redo", h.HandleRedo)
				r.Post("/template", h.HandleApplyTemplate)
				r.Post("/assets", h.HandleUpload)
				r.Post("/export", h.HandleExport)

				r.Post("/elements", h.HandleAddElement)
				r.Patch("/elements/{elementID}", h.HandleUpdateElement)
				r.Delete("/elements/{elementID}", h.HandleDeleteElement)
				r.Post("/elements/{elementID}/reorder", h.HandleReorder)
				r.Post("/elements/{elementID}/duplicate", h.HandleDuplicate)
				r.Post("/elements/{elementID}/filter", h.HandleFilter)
			})
		})

		r.Route("/carts/{cartID}", func(r chi.Router) {
			r.Get("/", h.HandleCart)
			r.Delete("/", h.HandleClearCart)
			r.Put("/items/{itemID}", h.HandleUpdateCartItem)
			r.Delete("/items/{itemID}", h.HandleRemoveCartItem)
		})
	})

	r.Get("/static/*", h.HandleStatic)
	return r
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		h.logger.Error("Unable to write healthcheck", "err", err)
	}
}
