package handlers

import (
	"bytes"
	"image/png"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/inkpress/storefront/internal/models"
	"github.com/inkpress/storefront/internal/printarea"
	"github.com/inkpress/storefront/internal/storage"
)

// sessionView is the JSON shape of a customizer session.
type sessionView struct {
	ID         string                `json:"id"`
	Product    models.Product        `json:"product"`
	Area       printarea.PrintArea   `json:"area"`
	Areas      []printarea.PrintArea `json:"areas"`
	Designed   []string              `json:"designed"`
	State      string                `json:"state"`
	Selected   string                `json:"selected,omitempty"`
	Elements   int                   `json:"elements"`
	CanUndo    bool                  `json:"canUndo"`
	CanRedo    bool                  `json:"canRedo"`
	PriceCents int64                 `json:"priceCents"`
	Exporting  bool                  `json:"exporting"`
	CreatedAt  time.Time             `json:"createdAt"`
}

func (h *Handler) view(s *storage.Session) sessionView {
	ed := s.Editor()
	elements := ed.Scene().Len()
	return sessionView{
		ID:         s.ID,
		Product:    s.Product,
		Area:       s.Area(),
		Areas:      s.Areas(),
		Designed:   s.Designed(),
		State:      ed.State().String(),
		Selected:   ed.Selection(),
		Elements:   elements,
		CanUndo:    ed.CanUndo(),
		CanRedo:    ed.CanRedo(),
		PriceCents: h.cfg.Surcharge.Price(s.Product.PriceCents, elements),
		Exporting:  s.ExportPending(),
		CreatedAt:  s.CreatedAt,
	}
}

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.GetAll()
	sessionList := make([]sessionView, 0, len(sessions))
	for _, session := range sessions {
		sessionList = append(sessionList, h.view(session))
	}
	sort.Slice(sessionList, func(i, j int) bool {
		return sessionList[i].CreatedAt.Before(sessionList[j].CreatedAt)
	})
	h.writeJSON(w, sessionList)
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ProductID  string `json:"productId"`
		AreaID     string `json:"areaId"`
		TemplateID string `json:"templateId"`
	}
	if !h.decode(w, r, &request) {
		return
	}
	if request.ProductID == "" {
		h.writeError(w, "productId is required", http.StatusBadRequest)
		return
	}

	product, err := h.catalog.Get(request.ProductID)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	sessionID := uuid.NewString()
	areas := h.printAreas.ForProduct(product.ID)
	session, err := storage.NewSession(sessionID, product, areas, request.AreaID, h.editorFactory(sessionID))
	if err != nil {
		h.writeErr(w, err)
		return
	}

	if request.TemplateID != "" {
		tpl, err := h.templates.Get(request.TemplateID)
		if err != nil {
			session.Close()
			h.writeErr(w, err)
			return
		}
		if err := session.Editor().ApplyTemplate(tpl.Elements()); err != nil {
			session.Close()
			h.writeErr(w, err)
			return
		}
	}

	h.sessionStore.Set(sessionID, session)
	h.logger.Info("Session created", "session_id", sessionID, "product", product.ID, "area", session.Area().ID)
	h.writeJSONStatus(w, http.StatusCreated, h.view(session))
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, h.view(session))
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.sessionStore.Delete(session.ID)
	h.hub.CloseSession(session.ID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleScene returns the serialized scene of the active print area.
func (h *Handler) HandleScene(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	data, err := session.Editor().Snapshot()
	if err != nil {
		h.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Unable to write scene", "err", err)
	}
}

// HandleFrame renders the live surface with the selection overlay.
func (h *Handler) HandleFrame(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	frame, err := session.Editor().Frame()
	if err != nil {
		h.writeErr(w, err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		h.writeError(w, "Failed to encode frame: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("Unable to write frame", "err", err)
	}
}

func (h *Handler) HandleSwitchArea(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		AreaID string `json:"areaId"`
	}
	if !h.decode(w, r, &request) {
		return
	}
	if _, err := session.SwitchArea(request.AreaID); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, h.view(session))
}
