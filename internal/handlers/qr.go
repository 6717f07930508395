// internal/handlers/qr.go
package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
)

const (
	qrDefaultSize = 256
	qrMaxSize     = 1024
)

// QRHandler renders a PNG QR code inviting players to the game in the path.
// The optional ?size= query sets the edge length in pixels.
func (s *Server) QRHandler(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	exists, err := s.mgr.Exists(r.Context(), code)
	if err != nil {
		s.logger.WithError(err).WithField("game", code).Error("failed to look up game for invite")
		http.Error(w, "Internal error.", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "Game not found.", http.StatusNotFound)
		return
	}

	size := qrDefaultSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 || n > qrMaxSize {
			http.Error(w, "size must be between 64 and 1024", http.StatusBadRequest)
			return
		}
		size = n
	}

	png, err := qrcode.Encode(s.inviteContent(code), qrcode.Medium, size)
	if err != nil {
		s.logger.WithError(err).WithField("game", code).Error("failed to encode invite QR code")
		http.Error(w, "Internal error.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// inviteContent is the text carried by the QR code: a join link when a
// public URL is configured, the bare code otherwise.
func (s *Server) inviteContent(code string) string {
	if s.publicURL == "" {
		return code
	}
	return s.publicURL + "/?join=" + url.QueryEscape(code)
}
