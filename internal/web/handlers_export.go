package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"gridcrop/internal/crop"
	"gridcrop/internal/export"
	"gridcrop/internal/logging"
	"gridcrop/internal/session"
)

// CellInfo describes one crop result in API responses.
type CellInfo struct {
	CellNumber int    `json:"cellNumber"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Filename   string `json:"filename"`
	URL        string `json:"url,omitempty"`
}

type cropResponse struct {
	Cells   []CellInfo `json:"cells"`
	Skipped []int      `json:"skipped,omitempty"`
}

// POST /crop
func (s *Server) handleCrop(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	sess, _ := s.getOrCreateSession(r.Context(), w, r)
	sess.Lock()
	defer sess.Unlock()
	if !sess.HasImage() {
		http.Error(w, session.ErrNoImage.Error(), http.StatusConflict)
		return
	}
	results, err := sess.Crop()
	if err != nil {
		logging.WithError(err, "crop")
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	resp := cropResponse{Cells: make([]CellInfo, 0, len(results))}
	for _, res := range results {
		info := CellInfo{
			CellNumber: res.CellNumber,
			Width:      res.Width,
			Height:     res.Height,
			Filename:   export.CellFilename(res.CellNumber),
		}
		if !res.Empty() {
			info.URL = fmt.Sprintf("/cells/%d.png", res.CellNumber)
		}
		resp.Cells = append(resp.Cells, info)
	}
	for _, sk := range sess.Skipped() {
		resp.Skipped = append(resp.Skipped, sk.CellNumber)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /cells/<n>.png
func (s *Server) handleCell(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/cells/")
	n, err := strconv.Atoi(strings.TrimSuffix(name, ".png"))
	if err != nil || !strings.HasSuffix(name, ".png") || n < 1 {
		http.NotFound(w, r)
		return
	}
	results, ok := s.results(w, r)
	if !ok {
		return
	}
	res, err := export.Find(results, n)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if res.Empty() {
		http.Error(w, fmt.Sprintf("cell %d has no pixels", n), http.StatusUnprocessableEntity)
		return
	}
	var buf bytes.Buffer
	if err := export.WritePNG(&buf, res); err != nil {
		logging.WithError(err, "encode cell")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.attachment(w, "image/png", export.CellFilename(n), buf.Bytes())
}

// GET /export.zip
func (s *Server) handleZip(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	results, ok := s.results(w, r)
	if !ok {
		return
	}
	if !export.Drawable(results) {
		http.Error(w, "every cell is empty", http.StatusConflict)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteZip(&buf, results); err != nil {
		logging.WithError(err, "create zip")
		http.Error(w, "Error creating zip file. Please try again.", http.StatusInternalServerError)
		return
	}
	s.attachment(w, "application/zip", export.ArchiveName(s.Now()), buf.Bytes())
}

// GET /export.pdf
func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	sess, _ := s.getOrCreateSession(r.Context(), w, r)
	sess.Lock()
	results := sess.Results()
	cols := sess.Grid().Dimensions().Cols
	title := sess.Filename()
	sess.Unlock()
	if len(results) == 0 {
		http.Error(w, "no crop results", http.StatusConflict)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteContactSheet(&buf, results, cols, title); err != nil {
		logging.WithError(err, "create contact sheet")
		http.Error(w, "Error creating PDF. Please try again.", http.StatusInternalServerError)
		return
	}
	s.attachment(w, "application/pdf", export.ContactSheetName(s.Now()), buf.Bytes())
}

// results returns the caller's last crop results, answering 409 when there
// are none.
func (s *Server) results(w http.ResponseWriter, r *http.Request) ([]crop.Result, bool) {
	sess, _ := s.getOrCreateSession(r.Context(), w, r)
	results := withSession(sess, (*session.Session).Results)
	if len(results) == 0 {
		http.Error(w, "no crop results", http.StatusConflict)
		return nil, false
	}
	return results, true
}

func withSession[T any](sess *session.Session, fn func(*session.Session) T) T {
	sess.Lock()
	defer sess.Unlock()
	return fn(sess)
}

func (s *Server) attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if _, err := w.Write(body); err != nil {
		logging.WithError(err, "write "+filename)
	}
}
