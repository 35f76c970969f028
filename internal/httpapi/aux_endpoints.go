package httpapi

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ReadyChecker reports whether the backing store can serve requests.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready == nil {
		toJSON(w, http.StatusOK, readyResponse{Status: "ok", Time: time.Now().UTC()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
	defer cancel()
	if err := s.ready.Ready(ctx); err != nil {
		toJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "unavailable", Time: time.Now().UTC(), Error: err.Error()})
		return
	}
	toJSON(w, http.StatusOK, readyResponse{Status: "ok", Time: time.Now().UTC()})
}

// static serves the bundled forms from dir. Missing files answer a JSON 404.
func (s *Server) static(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		p := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(p); err != nil {
			notFound(w, "Recurso não encontrado.")
			return
		}
		fs.ServeHTTP(w, r)
	}
}
