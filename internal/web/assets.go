package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
)

const assetCacheControl = "public, max-age=3600"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"percent": func(p float64) string {
			return strconv.FormatFloat(p*100, 'f', 1, 64) + "%"
		},
	}).ParseFS(templateFS, "templates/*.html")
}

// staticHandler serves the editor script and stylesheet.
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	files := http.FileServer(http.FS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", assetCacheControl)
		files.ServeHTTP(w, r)
	})
}
