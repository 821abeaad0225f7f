package web

import (
	"bytes"
	"image/png"
	"net/http"

	"gridcrop/internal/logging"
	"gridcrop/internal/render"
	"gridcrop/internal/session"
)

// handlePreview serves the editing canvas: the image scaled to its display
// size with the grid overlay drawn on top.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	sess, _ := s.getOrCreateSession(r.Context(), w, r)
	sess.Lock()
	if !sess.HasImage() {
		sess.Unlock()
		http.Error(w, session.ErrNoImage.Error(), http.StatusConflict)
		return
	}
	frame := sess.Frame()
	sess.Unlock()

	img := render.Overlay(frame)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		logging.WithError(err, "encode preview")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
