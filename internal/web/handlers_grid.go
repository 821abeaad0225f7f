package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"gridcrop/internal/drag"
	"gridcrop/internal/geometry"
	"gridcrop/internal/imageio"
	"gridcrop/internal/logging"
	"gridcrop/internal/session"
)

const uploadField = "image"

// multipart framing on top of the image itself
const uploadOverhead = 1 << 20

// POST /upload
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	limit := s.Config.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+uploadOverhead)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "missing image", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// decode before touching the session so a bad upload keeps the old image
	d, err := imageio.Decode(file, s.Config.Limits())
	switch {
	case errors.Is(err, imageio.ErrTooLarge):
		http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
		return
	case err != nil:
		logging.Warn("upload %q rejected: %v", header.Filename, err)
		http.Error(w, "could not decode image", http.StatusBadRequest)
		return
	}

	sess, _ := s.getOrCreateSession(r.Context(), w, r)
	sess.Lock()
	sess.Upload(filepath.Base(header.Filename), d.Image)
	snap := sess.Snapshot()
	sess.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

// POST /clear
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(sess *session.Session) { sess.Clear() })
}

// POST /grid with cols and rows form values. Missing, non-numeric or
// out-of-range values leave that dimension unchanged.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", 400)
		return
	}
	s.mutate(w, r, func(sess *session.Session) {
		d := sess.Grid().Dimensions()
		cols := formInt(r, "cols", d.Cols)
		rows := formInt(r, "rows", d.Rows)
		sess.Resize(cols, rows)
	})
}

// POST /grid/reset
func (s *Server) handleGridReset(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(sess *session.Session) { sess.Reset() })
}

// POST /color
func (s *Server) handleColor(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", 400)
		return
	}
	s.mutate(w, r, func(sess *session.Session) { sess.SetColor(r.FormValue("color")) })
}

// mutate applies fn to the caller's session and answers with the new state.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*session.Session)) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	sess, _ := s.getOrCreateSession(r.Context(), w, r)
	sess.Lock()
	fn(sess)
	snap := sess.Snapshot()
	sess.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

// pointerRequest is one pointer or touch event from the editor canvas.
type pointerRequest struct {
	ClientX   float64 `json:"clientX"`
	ClientY   float64 `json:"clientY"`
	BoxLeft   float64 `json:"boxLeft"`
	BoxTop    float64 `json:"boxTop"`
	BoxWidth  float64 `json:"boxWidth"`
	BoxHeight float64 `json:"boxHeight"`
}

func (p pointerRequest) pointer() session.Pointer {
	return session.Pointer{
		Client: geometry.Point{X: p.ClientX, Y: p.ClientY},
		Box:    geometry.Box{Left: p.BoxLeft, Top: p.BoxTop, Width: p.BoxWidth, Height: p.BoxHeight},
	}
}

type pointerResponse struct {
	drag.Feedback
	State session.Snapshot `json:"state"`
}

// POST /pointer/{down|move|up|leave}
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	kind := strings.TrimPrefix(r.URL.Path, "/pointer/")

	var req pointerRequest
	if kind == "down" || kind == "move" {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
			http.Error(w, "bad pointer event", http.StatusBadRequest)
			return
		}
	}

	sess, _ := s.getOrCreateSession(r.Context(), w, r)
	sess.Lock()
	defer sess.Unlock()

	var fb drag.Feedback
	switch kind {
	case "down":
		fb = sess.PointerDown(req.pointer())
	case "move":
		fb = sess.PointerMove(req.pointer())
	case "up", "leave", "end":
		fb = sess.PointerUp()
	default:
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, pointerResponse{Feedback: fb, State: sess.Snapshot()})
}

func formInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil {
		return fallback
	}
	return v
}
