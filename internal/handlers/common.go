package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkpress/storefront/internal/assets"
	"github.com/inkpress/storefront/internal/cart"
	"github.com/inkpress/storefront/internal/catalog"
	"github.com/inkpress/storefront/internal/config"
	"github.com/inkpress/storefront/internal/editor"
	"github.com/inkpress/storefront/internal/export"
	"github.com/inkpress/storefront/internal/printarea"
	"github.com/inkpress/storefront/internal/render"
	"github.com/inkpress/storefront/internal/scene"
	"github.com/inkpress/storefront/internal/storage"
	"github.com/inkpress/storefront/internal/templates"
)

type Handler struct {
	sessionStore *storage.SessionStore
	catalog      *catalog.Catalog
	printAreas   *printarea.Registry
	templates    *templates.Library
	assets       *assets.Store
	cart         *cart.Store
	renderer     *render.Renderer
	exporter     *export.Pipeline
	hub          *Hub
	cfg          config.Config
	logger       *slog.Logger
}

// Options carries the collaborators of a Handler. Nil catalog, print
// areas and templates fall back to the built-in defaults.
type Options struct {
	Config     config.Config
	Catalog    *catalog.Catalog
	PrintAreas *printarea.Registry
	Templates  *templates.Library
	Assets     *assets.Store
	Cart       *cart.Store
	Logger     *slog.Logger
}

func New(opts Options) (*Handler, error) {
	if opts.Cart == nil || opts.Assets == nil {
		return nil, fmt.Errorf("cart and asset stores are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.PrintAreas == nil {
		opts.PrintAreas = printarea.Default()
	}
	if opts.Templates == nil {
		opts.Templates = templates.Default()
	}

	fonts, err := render.NewFontRegistry(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}
	renderer := render.NewRenderer(fonts, opts.Assets, logger)
	exporter := export.NewPipeline(renderer, logger)
	exporter.PreviewQuality = opts.Config.PreviewQuality

	return &Handler{
		sessionStore: storage.New(opts.Config.SessionTTL),
		catalog:      opts.Catalog,
		printAreas:   opts.PrintAreas,
		templates:    opts.Templates,
		assets:       opts.Assets,
		cart:         opts.Cart,
		renderer:     renderer,
		exporter:     exporter,
		hub:          NewHub(),
		cfg:          opts.Config,
		logger:       logger,
	}, nil
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		h.logger.Error(message)
	} else {
		h.logger.Warn(message, "status", code)
	}
	http.Error(w, message, code)
}

// writeErr maps a domain error onto its status code.
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	h.writeError(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, scene.ErrElementNotFound),
		errors.Is(err, printarea.ErrUnknownPrintArea),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, templates.ErrTemplateNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, errAssetNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrExportPending):
		return http.StatusConflict
	case errors.Is(err, assets.ErrDecodeFailure),
		errors.Is(err, export.ErrExportAssetUnavailable),
		errors.Is(err, editor.ErrNotAnImage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scene.ErrInvalidProperty),
		errors.Is(err, scene.ErrMalformedSnapshot):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*storage.Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	session.Touch()
	return session, true
}

// editorFactory builds editors whose events are published on the
// session's websocket channel.
func (h *Handler) editorFactory(sessionID string) storage.EditorFactory {
	return func(area printarea.PrintArea) (*editor.Editor, error) {
		areaID := area.ID
		return editor.New(area,
			editor.WithRenderer(h.renderer),
			editor.WithLogger(h.logger.With("session", sessionID, "area", areaID)),
			editor.WithHistoryCapacity(h.cfg.HistoryCapacity),
			editor.WithCommitDelay(h.cfg.CommitDelay),
			editor.WithDragThreshold(h.cfg.DragThreshold),
			editor.WithListener(func(ev editor.Event) {
				h.hub.Publish(sessionID, wsEvent{Area: areaID, Event: ev})
			}),
		)
	}
}

// File operation helpers
func (h *Handler) ensureExportDir() error {
	return os.MkdirAll(h.cfg.ExportDir(), 0o755)
}

// SweepSessions drops sessions idle for longer than the configured TTL
// and disconnects their websocket clients.
func (h *Handler) SweepSessions(now time.Time) []string {
	expired := h.sessionStore.Sweep(now)
	for _, id := range expired {
		h.hub.CloseSession(id)
	}
	if len(expired) > 0 {
		h.logger.Info("Expired idle sessions", "count", len(expired))
	}
	return expired
}
