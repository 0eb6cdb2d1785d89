package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/inkpress/storefront/internal/export"
	"github.com/inkpress/storefront/internal/models"
	"github.com/inkpress/storefront/internal/scene"
	"github.com/inkpress/storefront/internal/storage"
	"github.com/inkpress/storefront/internal/utils"
)

// HandleExport freezes the active print area, renders the production file
// and adds the design to the cart as one line item.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		CartID string `json:"cartId"`
	}
	if !h.decode(w, r, &request) {
		return
	}
	if request.CartID == "" {
		h.writeError(w, "cartId is required", http.StatusBadRequest)
		return
	}

	item, err := h.exportToCart(r.Context(), session, request.CartID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, item)
}

func (h *Handler) exportToCart(ctx context.Context, session *storage.Session, cartID string) (models.CartItem, error) {
	ed := session.Editor()
	area := session.Area()
	snapshot, preview, err := ed.Freeze()
	if err != nil {
		return models.CartItem{}, err
	}
	product := session.Product
	price, err := h.snapshotPrice(product.PriceCents, snapshot)
	if err != nil {
		return models.CartItem{}, err
	}

	job, err := session.BeginExport(func() *export.Job {
		return h.exporter.Start(ctx, snapshot, area, preview)
	})
	if err != nil {
		return models.CartItem{}, err
	}
	result, err := job.Wait(ctx)
	if err != nil {
		return models.CartItem{}, err
	}

	productionURL, err := h.saveProduction(result.Production)
	if err != nil {
		return models.CartItem{}, err
	}
	previewURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(result.Preview)

	item := models.CartItem{
		ID:         models.CustomItemID(product.ID, area.ID, time.Now()),
		Name:       models.CustomItemName(product.Name, area.Label),
		ImageURL:   previewURL,
		PriceCents: price,
		Quantity:   1,
		Customization: &models.Customization{
			BaseProductID:   product.ID,
			PrintAreaID:     area.ID,
			SceneSnapshot:   string(result.Snapshot),
			PreviewDataURL:  previewURL,
			ProductionImage: productionURL,
		},
	}
	item, err = h.cart.Add(ctx, cartID, item)
	if err != nil {
		return models.CartItem{}, err
	}
	h.logger.Info("Design added to cart",
		"session_id", session.ID,
		"cart_id", cartID,
		"item_id", item.ID,
		"area", area.ID,
		"price_cents", item.PriceCents,
	)
	return item, nil
}

// saveProduction writes the print file under its content hash and returns
// the URL it is served at.
func (h *Handler) saveProduction(data []byte) (string, error) {
	if err := h.ensureExportDir(); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	filename := utils.CalculateDataMD5(data) + ".png"
	if err := os.WriteFile(filepath.Join(h.cfg.ExportDir(), filename), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save production image: %w", err)
	}
	return "/static/exports/" + filename, nil
}

// snapshotPrice prices the design held in a frozen snapshot.
func (h *Handler) snapshotPrice(baseCents int64, snapshot []byte) (int64, error) {
	frozen, err := scene.Deserialize(snapshot)
	if err != nil {
		return 0, err
	}
	return h.cfg.Surcharge.Price(baseCents, frozen.Len()), nil
}
