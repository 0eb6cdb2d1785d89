package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/inkpress/storefront/internal/assets"
	"github.com/inkpress/storefront/internal/cart"
	"github.com/inkpress/storefront/internal/config"
	"github.com/inkpress/storefront/internal/models"
	"github.com/inkpress/storefront/internal/pricing"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.CommitDelay = 0
	cfg.SessionTTL = time.Minute

	store, err := cart.Open(":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to open cart: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	assetStore, err := assets.NewStore(cfg.UploadDir(), logger)
	if err != nil {
		t.Fatalf("Failed to open asset store: %v", err)
	}

	h, err := New(Options{Config: cfg, Cart: store, Assets: assetStore, Logger: logger})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return h
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

type created struct {
	ID      string      `json:"id"`
	Session sessionView `json:"session"`
}

func createSession(t *testing.T, h http.Handler, productID string) sessionView {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", map[string]string{"productId": productID})
	expectStatus(t, rec, http.StatusCreated)
	return decodeBody[sessionView](t, rec)
}

func TestHealthcheck(t *testing.T) {
	rec := do(t, newTestHandler(t).Routes(), http.MethodGet, "/healthcheck", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "OK" {
		t.Errorf("Expected OK, got %q", rec.Body.String())
	}
}

func TestCatalogRoutes(t *testing.T) {
	routes := newTestHandler(t).Routes()

	tests := []struct {
		name   string
		path   string
		status int
		count  int
	}{
		{name: "all products", path: "/api/products", status: http.StatusOK, count: 8},
		{name: "category filter", path: "/api/products?category=apparel", status: http.StatusOK, count: 1},
		{name: "unknown category", path: "/api/products?category=boats", status: http.StatusOK, count: 0},
		{name: "shirt print areas", path: "/api/products/2/print-areas", status: http.StatusOK, count: 2},
		{name: "fallback print area", path: "/api/products/1/print-areas", status: http.StatusOK, count: 1},
		{name: "templates", path: "/api/templates", status: http.StatusOK, count: 6},
		{name: "unknown product areas", path: "/api/products/99/print-areas", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, routes, http.MethodGet, tt.path, nil)
			expectStatus(t, rec, tt.status)
			if tt.status != http.StatusOK {
				return
			}
			items := decodeBody[[]json.RawMessage](t, rec)
			if len(items) != tt.count {
				t.Errorf("Expected %d items, got %d", tt.count, len(items))
			}
		})
	}

	rec := do(t, routes, http.MethodGet, "/api/products/2", nil)
	expectStatus(t, rec, http.StatusOK)
	if p := decodeBody[models.Product](t, rec); p.PriceCents != 2999 {
		t.Errorf("Expected 2999 cents, got %d", p.PriceCents)
	}
	expectStatus(t, do(t, routes, http.MethodGet, "/api/products/99", nil), http.StatusNotFound)
}

func TestCreateSession(t *testing.T) {
	routes := newTestHandler(t).Routes()

	s := createSession(t, routes, "2")
	if s.Area.ID != "front" || len(s.Areas) != 2 {
		t.Errorf("Unexpected areas: %+v", s.Areas)
	}
	if s.Elements != 0 || s.State != "idle" {
		t.Errorf("Expected an empty idle session, got %+v", s)
	}
	if s.PriceCents != 2999+1200 {
		t.Errorf("Expected price with surcharge, got %d", s.PriceCents)
	}

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{name: "missing product", body: map[string]string{}, status: http.StatusBadRequest},
		{name: "unknown product", body: map[string]string{"productId": "99"}, status: http.StatusNotFound},
		{name: "unknown area", body: map[string]string{"productId": "2", "areaId": "sleeve"}, status: http.StatusNotFound},
		{name: "unknown template", body: map[string]string{"productId": "2", "templateId": "nope"}, status: http.StatusNotFound},
		{name: "back area", body: map[string]string{"productId": "2", "areaId": "back"}, status: http.StatusCreated},
		{name: "with template", body: map[string]string{"productId": "1", "templateId": "badge-design"}, status: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, routes, http.MethodPost, "/api/sessions", tt.body)
			expectStatus(t, rec, tt.status)
		})
	}

	rec := do(t, routes, http.MethodGet, "/api/sessions", nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decodeBody[[]sessionView](t, rec); len(list) != 3 {
		t.Errorf("Expected 3 sessions, got %d", len(list))
	}
}

func TestEditingFlow(t *testing.T) {
	routes := newTestHandler(t).Routes()
	s := createSession(t, routes, "2")
	base := "/api/sessions/" + s.ID

	rec := do(t, routes, http.MethodPost, base+"/elements", map[string]any{"kind": "text", "text": "HELLO"})
	expectStatus(t, rec, http.StatusCreated)
	text := decodeBody[created](t, rec)
	if text.Session.Selected != text.ID || text.Session.Elements != 1 {
		t.Fatalf("Expected new text selected, got %+v", text.Session)
	}

	rec = do(t, routes, http.MethodPatch, base+"/elements/"+text.ID, map[string]any{"prop": "fill", "value": "#ff0000"})
	expectStatus(t, rec, http.StatusOK)

	rec = do(t, routes, http.MethodPost, base+"/undo", nil)
	expectStatus(t, rec, http.StatusOK)
	undo := decodeBody[struct {
		Changed bool        `json:"changed"`
		Session sessionView `json:"session"`
	}](t, rec)
	if !undo.Changed || !undo.Session.CanRedo {
		t.Errorf("Expected undo to change the scene, got %+v", undo)
	}
	expectStatus(t, do(t, routes, http.MethodPost, base+"/redo", nil), http.StatusOK)

	rec = do(t, routes, http.MethodGet, base+"/scene", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "#ff0000") {
		t.Errorf("Expected redone fill in scene, got %s", rec.Body.String())
	}

	rec = do(t, routes, http.MethodGet, base+"/frame.png", nil)
	expectStatus(t, rec, http.StatusOK)
	frame, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("Frame is not a PNG: %v", err)
	}
	if b := frame.Bounds(); b.Dx() != 648 || b.Dy() != 864 {
		t.Errorf("Expected 648x864 display frame, got %v", b)
	}

	expectStatus(t, do(t, routes, http.MethodPatch, base+"/elements/"+text.ID, map[string]any{"prop": "bogus", "value": 1}), http.StatusBadRequest)
	expectStatus(t, do(t, routes, http.MethodPost, base+"/elements/"+text.ID+"/filter", map[string]string{"filter": "grayscale"}), http.StatusUnprocessableEntity)
	expectStatus(t, do(t, routes, http.MethodPost, base+"/elements/"+text.ID+"/reorder", map[string]string{"direction": "sideways"}), http.StatusBadRequest)
	expectStatus(t, do(t, routes, http.MethodPost, base+"/elements", map[string]any{"kind": "shape", "shape": "hexagon"}), http.StatusBadRequest)

	rec = do(t, routes, http.MethodPost, base+"/elements/"+text.ID+"/duplicate", nil)
	expectStatus(t, rec, http.StatusCreated)
	dup := decodeBody[created](t, rec)
	if dup.Session.Elements != 2 || dup.ID == text.ID {
		t.Errorf("Expected a second element, got %+v", dup)
	}

	expectStatus(t, do(t, routes, http.MethodPost, base+"/elements/"+dup.ID+"/reorder", map[string]string{"direction": "back"}), http.StatusOK)
	expectStatus(t, do(t, routes, http.MethodDelete, base+"/elements/"+dup.ID, nil), http.StatusOK)
	expectStatus(t, do(t, routes, http.MethodDelete, base+"/elements/"+dup.ID, nil), http.StatusNotFound)

	rec = do(t, routes, http.MethodPost, base+"/template", map[string]string{"templateId": "minimal-text"})
	expectStatus(t, rec, http.StatusOK)
	if v := decodeBody[sessionView](t, rec); v.Elements == 0 {
		t.Error("Expected template elements")
	}
}

func TestPointerDrag(t *testing.T) {
	routes := newTestHandler(t).Routes()
	s := createSession(t, routes, "2")
	base := "/api/sessions/" + s.ID

	rec := do(t, routes, http.MethodPost, base+"/elements", map[string]any{"kind": "shape", "shape": "rectangle"})
	expectStatus(t, rec, http.StatusCreated)
	rect := decodeBody[created](t, rec)

	rec = do(t, routes, http.MethodPost, base+"/pointer", pointerRequest{Type: "down", X: 150, Y: 130})
	expectStatus(t, rec, http.StatusOK)
	if hit := decodeBody[map[string]any](t, rec)["hit"]; hit != rect.ID {
		t.Fatalf("Expected hit on %s, got %v", rect.ID, hit)
	}
	expectStatus(t, do(t, routes, http.MethodPost, base+"/pointer", pointerRequest{Type: "move", X: 200, Y: 180}), http.StatusOK)

	rec = do(t, routes, http.MethodPost, base+"/pointer", pointerRequest{Type: "up"})
	expectStatus(t, rec, http.StatusOK)
	if committed := decodeBody[map[string]any](t, rec)["committed"]; committed != true {
		t.Errorf("Expected drag to commit, got %v", committed)
	}

	rec = do(t, routes, http.MethodGet, base+"/scene", nil)
	if !strings.Contains(rec.Body.String(), `"x":150`) {
		t.Errorf("Expected rectangle moved to x=150, got %s", rec.Body.String())
	}

	expectStatus(t, do(t, routes, http.MethodPost, base+"/pointer", pointerRequest{Type: "hover"}), http.StatusBadRequest)
}

func TestSwitchArea(t *testing.T) {
	routes := newTestHandler(t).Routes()
	s := createSession(t, routes, "2")
	base := "/api/sessions/" + s.ID

	expectStatus(t, do(t, routes, http.MethodPost, base+"/elements", map[string]any{"kind": "text", "text": "FRONT"}), http.StatusCreated)

	rec := do(t, routes, http.MethodPost, base+"/area", map[string]string{"areaId": "back"})
	expectStatus(t, rec, http.StatusOK)
	v := decodeBody[sessionView](t, rec)
	if v.Area.ID != "back" || v.Elements != 0 {
		t.Errorf("Expected empty back area, got %+v", v)
	}
	if len(v.Designed) != 1 || v.Designed[0] != "front" {
		t.Errorf("Expected front to be designed, got %v", v.Designed)
	}
	expectStatus(t, do(t, routes, http.MethodPost, base+"/area", map[string]string{"areaId": "sleeve"}), http.StatusNotFound)
}

func TestExportAddsToCart(t *testing.T) {
	routes := newTestHandler(t).Routes()
	s := createSession(t, routes, "2")
	base := "/api/sessions/" + s.ID

	expectStatus(t, do(t, routes, http.MethodPost, base+"/elements", map[string]any{"kind": "shape", "shape": "rectangle"}), http.StatusCreated)
	expectStatus(t, do(t, routes, http.MethodPost, base+"/export", map[string]string{}), http.StatusBadRequest)

	rec := do(t, routes, http.MethodPost, base+"/export", map[string]string{"cartId": "c1"})
	expectStatus(t, rec, http.StatusCreated)
	item := decodeBody[models.CartItem](t, rec)

	if !strings.HasPrefix(item.ID, "custom-2-front-") {
		t.Errorf("Unexpected item id %s", item.ID)
	}
	if item.Name != "Minimalist Graphic T-Shirt - Front (Custom)" {
		t.Errorf("Unexpected item name %s", item.Name)
	}
	if item.PriceCents != 2999+1200 || item.Quantity != 1 {
		t.Errorf("Unexpected price/quantity: %d x%d", item.PriceCents, item.Quantity)
	}
	if !strings.HasPrefix(item.ImageURL, "data:image/jpeg;base64,") {
		t.Errorf("Expected preview data URL, got %.40s", item.ImageURL)
	}
	custom := item.Customization
	if custom == nil || custom.BaseProductID != "2" || custom.PrintAreaID != "front" || custom.SceneSnapshot == "" {
		t.Fatalf("Unexpected customization: %+v", custom)
	}

	rec = do(t, routes, http.MethodGet, custom.ProductionImage, nil)
	expectStatus(t, rec, http.StatusOK)
	production, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("Production file is not a PNG: %v", err)
	}
	if b := production.Bounds(); b.Dx() != 3600 || b.Dy() != 4800 {
		t.Errorf("Expected 3600x4800 production file, got %v", b)
	}

	rec = do(t, routes, http.MethodGet, "/api/carts/c1", nil)
	expectStatus(t, rec, http.StatusOK)
	c := decodeBody[cartView](t, rec)
	if c.ItemCount != 1 || c.TotalCents != 4199 {
		t.Errorf("Unexpected cart: %+v", c)
	}

	rec = do(t, routes, http.MethodPut, "/api/carts/c1/items/"+item.ID, map[string]int{"quantity": 3})
	expectStatus(t, rec, http.StatusOK)
	if c := decodeBody[cartView](t, rec); c.TotalCents != 3*4199 {
		t.Errorf("Expected tripled total, got %d", c.TotalCents)
	}
	expectStatus(t, do(t, routes, http.MethodDelete, "/api/carts/c1/items/missing", nil), http.StatusNotFound)
	expectStatus(t, do(t, routes, http.MethodDelete, "/api/carts/c1/items/"+item.ID, nil), http.StatusOK)
	expectStatus(t, do(t, routes, http.MethodDelete, "/api/carts/c1", nil), http.StatusNoContent)
}

func multipartUpload(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "upload.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func TestExportPricesFrozenSnapshot(t *testing.T) {
	h := newTestHandler(t)
	h.cfg.Surcharge = pricing.Policy{Mode: pricing.PerLayer, Amount: 200}
	routes := h.Routes()
	s := createSession(t, routes, "2")
	base := "/api/sessions/" + s.ID

	for i := 0; i < 2; i++ {
		expectStatus(t, do(t, routes, http.MethodPost, base+"/elements", map[string]any{"kind": "shape", "shape": "rectangle"}), http.StatusCreated)
	}
	session, ok := h.sessionStore.Get(s.ID)
	if !ok {
		t.Fatal("Session missing")
	}
	snapshot, _, err := session.Editor().Freeze()
	if err != nil {
		t.Fatalf("Freeze failed: %v", err)
	}
	expectStatus(t, do(t, routes, http.MethodPost, base+"/elements", map[string]any{"kind": "shape", "shape": "circle"}), http.StatusCreated)

	price, err := h.snapshotPrice(2999, snapshot)
	if err != nil {
		t.Fatalf("snapshotPrice failed: %v", err)
	}
	if price != 2999+400 {
		t.Errorf("Expected frozen design priced at %d, got %d", 2999+400, price)
	}
	if live := h.view(session).PriceCents; live != 2999+600 {
		t.Errorf("Expected live price %d, got %d", 2999+600, live)
	}
}

func TestUpload(t *testing.T) {
	routes := newTestHandler(t).Routes()
	s := createSession(t, routes, "2")
	path := "/api/sessions/" + s.ID + "/assets"

	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var pngData bytes.Buffer
	if err := png.Encode(&pngData, img); err != nil {
		t.Fatal(err)
	}

	body, contentType := multipartUpload(t, pngData.Bytes())
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusCreated)

	uploaded := decodeBody[struct {
		ID      string      `json:"id"`
		URL     string      `json:"url"`
		Session sessionView `json:"session"`
	}](t, rec)
	if uploaded.ID == "" || uploaded.Session.Elements != 1 {
		t.Errorf("Expected uploaded image on canvas, got %+v", uploaded)
	}
	expectStatus(t, do(t, routes, http.MethodGet, uploaded.URL, nil), http.StatusOK)

	rec = do(t, routes, http.MethodPost, "/api/sessions/"+s.ID+"/elements/"+uploaded.ID+"/filter", map[string]string{"filter": "Grayscale"})
	expectStatus(t, rec, http.StatusOK)

	body, contentType = multipartUpload(t, []byte("definitely not an image"))
	req = httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestStaticRejectsTraversal(t *testing.T) {
	routes := newTestHandler(t).Routes()
	expectStatus(t, do(t, routes, http.MethodGet, "/static/uploads/..%2Fcart.db", nil), http.StatusBadRequest)
	expectStatus(t, do(t, routes, http.MethodGet, "/static/other/file.png", nil), http.StatusNotFound)
}

func TestSweepSessions(t *testing.T) {
	h := newTestHandler(t)
	routes := h.Routes()
	s := createSession(t, routes, "2")

	if got := h.SweepSessions(time.Now()); len(got) != 0 {
		t.Errorf("Fresh session swept: %v", got)
	}
	if got := h.SweepSessions(time.Now().Add(2 * time.Minute)); len(got) != 1 {
		t.Fatalf("Expected idle session swept, got %v", got)
	}
	expectStatus(t, do(t, routes, http.MethodGet, "/api/sessions/"+s.ID, nil), http.StatusNotFound)
}

func TestWebSocket(t *testing.T) {
	routes := newTestHandler(t).Routes()
	srv := httptest.NewServer(routes)
	defer srv.Close()

	s := createSession(t, routes, "2")
	rec := do(t, routes, http.MethodPost, "/api/sessions/"+s.ID+"/elements", map[string]any{"kind": "text", "text": "HELLO"})
	expectStatus(t, rec, http.StatusCreated)
	text := decodeBody[created](t, rec)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + s.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsCommand{Type: "set", ID: text.ID, Prop: "fill", Value: "#00ff00"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(wsCommand{Type: "teleport"}); err != nil {
		t.Fatal(err)
	}

	var sawCommit, sawError bool
	for i := 0; i < 10 && !(sawCommit && sawError); i++ {
		if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			t.Fatal(err)
		}
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		switch msg["type"] {
		case "committed":
			sawCommit = true
			if msg["area"] != "front" {
				t.Errorf("Expected front area, got %v", msg["area"])
			}
		case "error":
			sawError = true
		}
	}
	if !sawCommit || !sawError {
		t.Errorf("Expected a commit event and an error, commit=%v error=%v", sawCommit, sawError)
	}
}
