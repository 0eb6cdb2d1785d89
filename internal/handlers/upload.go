package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/inkpress/storefront/internal/assets"
)

// HandleUpload stores an uploaded image and, unless add=false, places it on
// the active print area.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	maxBytes := h.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusBadRequest)
		return
	}
	if int64(len(fileData)) > maxBytes {
		h.writeError(w, fmt.Sprintf("File too large (max %dMB)", maxBytes>>20), http.StatusBadRequest)
		return
	}

	asset, err := h.assets.Put(r.Context(), fileData)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.logger.Info("Asset uploaded", "session_id", session.ID, "filename", header.Filename, "asset", asset.ID)

	response := map[string]any{
		"asset": asset,
		"url":   assetURL(asset),
	}
	if r.FormValue("add") != "false" {
		id, err := session.Editor().AddImage(asset)
		if err != nil {
			h.writeErr(w, err)
			return
		}
		response["id"] = id
	}
	response["session"] = h.view(session)
	h.writeJSONStatus(w, http.StatusCreated, response)
}

func assetURL(a *assets.Asset) string {
	return "/static/uploads/" + a.Filename()
}
