package web

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"gridcrop/internal/config"
	"gridcrop/internal/logging"
	"gridcrop/internal/session"
)

type Server struct {
	Store  session.Store[*session.Session]
	Config *config.Config
	Tmpl   *template.Template
	// Now is the clock used for export file names.
	Now func() time.Time
}

const cookieName = "gridcrop_sid"

// NewServer wires a server with the embedded templates.
func NewServer(cfg *config.Config, store session.Store[*session.Session]) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Server{Store: store, Config: cfg, Tmpl: tmpl, Now: time.Now}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/state", s.handleState)

	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/clear", s.handleClear)
	mux.HandleFunc("/grid", s.handleGrid)
	mux.HandleFunc("/grid/reset", s.handleGridReset)
	mux.HandleFunc("/color", s.handleColor)
	mux.HandleFunc("/pointer/", s.handlePointer)

	mux.HandleFunc("/preview.png", s.handlePreview)
	mux.HandleFunc("/crop", s.handleCrop)
	mux.HandleFunc("/cells/", s.handleCell)
	mux.HandleFunc("/export.zip", s.handleZip)
	mux.HandleFunc("/export.pdf", s.handlePDF)

	mux.Handle("/static/", http.StripPrefix("/static/", staticHandler()))
	return mux
}

// GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allow(w, r, http.MethodGet) {
		return
	}
	sess, _ := s.getOrCreateSession(r.Context(), w, r)
	sess.Lock()
	vm := s.makeViewModel(sess)
	sess.Unlock()

	w.Header().Set("Cache-Control", "no-store")
	if err := s.Tmpl.ExecuteTemplate(w, "editor.html", vm); err != nil {
		logging.WithError(err, "render editor")
		http.Error(w, "failed to render template", 500)
		return
	}
}

// GET /state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	sess, _ := s.getOrCreateSession(r.Context(), w, r)
	sess.Lock()
	snap := sess.Snapshot()
	sess.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) getOrCreateSession(ctx context.Context, w http.ResponseWriter, r *http.Request) (*session.Session, string) {
	id := s.sessionID(r)
	if id != "" {
		if sess, ok, err := s.Store.Get(ctx, id); err == nil && ok {
			return sess, id
		}
	}
	if id == "" {
		id = s.Store.NewID()
		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	sess := s.newSession()
	_ = s.Store.Put(ctx, id, sess)
	return sess, id
}

func (s *Server) newSession() *session.Session {
	return session.New(session.Options{
		Dimensions:   s.Config.Dimensions(),
		DisplayLimit: s.Config.DisplayLimit(),
		Color:        s.Config.GridColor,
		Policy:       s.Config.Policy(),
	})
}

func (s *Server) sessionID(r *http.Request) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// PruneLoop drops sessions idle for longer than maxIdle every interval
// until ctx is done.
func (s *Server) PruneLoop(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Store.Prune(ctx, maxIdle); n > 0 {
				logging.Info("pruned %d idle sessions", n)
			}
		}
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.WithError(err, "encode response")
	}
}
