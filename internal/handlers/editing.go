package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkpress/storefront/internal/editor"
	"github.com/inkpress/storefront/internal/scene"
)

var errAssetNotFound = errors.New("asset not found")

type pointerRequest struct {
	Type string  `json:"type"` // "down", "move", "up"
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (h *Handler) HandlePointer(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request pointerRequest
	if !h.decode(w, r, &request) {
		return
	}

	ed := session.Editor()
	response := map[string]any{}
	switch request.Type {
	case "down":
		response["hit"] = ed.PointerDown(request.X, request.Y)
	case "move":
		ed.PointerMove(request.X, request.Y)
	case "up":
		response["committed"] = ed.PointerUp()
	default:
		h.writeError(w, "Invalid pointer type. Must be 'down', 'move', or 'up'", http.StatusBadRequest)
		return
	}
	response["session"] = h.view(session)
	h.writeJSON(w, response)
}

type addElementRequest struct {
	Kind        string        `json:"kind"`  // "text", "shape", "image"
	Shape       string        `json:"shape"` // "rectangle", "circle", "line"
	Text        string        `json:"text"`
	X           *float64      `json:"x"`
	Y           *float64      `json:"y"`
	FontFamily  string        `json:"fontFamily"`
	FontSize    float64       `json:"fontSize"`
	Fill        string        `json:"fill"`
	Bold        bool          `json:"bold"`
	Italic      bool          `json:"italic"`
	Align       string        `json:"align"`
	Stroke      *scene.Stroke `json:"stroke"`
	Width       float64       `json:"width"`
	Height      float64       `json:"height"`
	Radius      float64       `json:"radius"`
	StrokeColor string        `json:"strokeColor"`
	StrokeWidth *float64      `json:"strokeWidth"`
	AssetID     string        `json:"assetId"`
}

func (h *Handler) HandleAddElement(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request addElementRequest
	if !h.decode(w, r, &request) {
		return
	}

	id, err := h.addElement(session.Editor(), request)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, map[string]any{
		"id":      id,
		"session": h.view(session),
	})
}

func (h *Handler) addElement(ed *editor.Editor, request addElementRequest) (string, error) {
	switch scene.Kind(request.Kind) {
	case scene.KindText:
		return ed.AddText(editor.TextOptions{
			Text:       request.Text,
			X:          request.X,
			Y:          request.Y,
			FontFamily: request.FontFamily,
			FontSize:   request.FontSize,
			Fill:       request.Fill,
			Bold:       request.Bold,
			Italic:     request.Italic,
			Align:      scene.Align(request.Align),
			Stroke:     request.Stroke,
		})
	case scene.KindShape:
		return ed.AddShape(scene.ShapeKind(request.Shape), editor.ShapeOptions{
			X:           request.X,
			Y:           request.Y,
			Width:       request.Width,
			Height:      request.Height,
			Radius:      request.Radius,
			Fill:        request.Fill,
			StrokeColor: request.StrokeColor,
			StrokeWidth: request.StrokeWidth,
		})
	case scene.KindImage:
		asset, ok := h.assets.Get(request.AssetID)
		if !ok {
			return "", fmt.Errorf("%w: %q", errAssetNotFound, request.AssetID)
		}
		return ed.AddImage(asset)
	default:
		return "", fmt.Errorf("%w: kind %q", scene.ErrInvalidProperty, request.Kind)
	}
}

func (h *Handler) HandleUpdateElement(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		Prop  string `json:"prop"`
		Value any    `json:"value"`
	}
	if !h.decode(w, r, &request) {
		return
	}
	if request.Prop == "" {
		h.writeError(w, "prop is required", http.StatusBadRequest)
		return
	}

	if err := session.Editor().SetProperty(chi.URLParam(r, "elementID"), request.Prop, request.Value); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, h.view(session))
}

func (h *Handler) HandleDeleteElement(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := session.Editor().Remove(chi.URLParam(r, "elementID")); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, h.view(session))
}

func (h *Handler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		Direction string `json:"direction"` // "forward", "backward", "front", "back"
	}
	if !h.decode(w, r, &request) {
		return
	}
	dir := scene.Direction(request.Direction)
	switch dir {
	case scene.Forward, scene.Backward, scene.Front, scene.Back:
	default:
		h.writeError(w, "Invalid direction. Must be 'forward', 'backward', 'front', or 'back'", http.StatusBadRequest)
		return
	}
	if err := session.Editor().Reorder(chi.URLParam(r, "elementID"), dir); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, h.view(session))
}

func (h *Handler) HandleDuplicate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	id, err := session.Editor().Duplicate(chi.URLParam(r, "elementID"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, map[string]any{
		"id":      id,
		"session": h.view(session),
	})
}

func (h *Handler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		Filter string `json:"filter"`
	}
	if !h.decode(w, r, &request) {
		return
	}
	filter, ok := scene.ParseFilter(request.Filter)
	if !ok {
		h.writeError(w, "Unknown filter: "+request.Filter, http.StatusBadRequest)
		return
	}
	if err := session.Editor().ApplyFilter(chi.URLParam(r, "elementID"), filter); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, h.view(session))
}

func (h *Handler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	h.handleHistory(w, r, (*editor.Editor).Undo)
}

func (h *Handler) HandleRedo(w http.ResponseWriter, r *http.Request) {
	h.handleHistory(w, r, (*editor.Editor).Redo)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, step func(*editor.Editor) (bool, error)) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	changed, err := step(session.Editor())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, map[string]any{
		"changed": changed,
		"session": h.view(session),
	})
}

func (h *Handler) HandleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		TemplateID string `json:"templateId"`
	}
	if !h.decode(w, r, &request) {
		return
	}
	tpl, err := h.templates.Get(request.TemplateID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if err := session.Editor().ApplyTemplate(tpl.Elements()); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, h.view(session))
}
