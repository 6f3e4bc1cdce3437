package httpserver

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed web
var webFS embed.FS

// UIHandler serves the embedded single-page shell and its script.
func (s *Server) UIHandler() http.Handler {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		// the embed directive guarantees the directory exists
		panic(err)
	}
	files := http.FileServer(http.FS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}
