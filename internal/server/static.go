package server

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/conneroisu/shtml/internal/state"
)

var contentTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".json":  "application/json; charset=utf-8",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
}

const fallbackContentType = "application/octet-stream"

// ContentType maps a file name to the content type served for it.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return fallbackContentType
}

// hasExtension reports whether the last path segment looks like a file.
func hasExtension(urlPath string) bool {
	last := urlPath[strings.LastIndex(urlPath, "/")+1:]
	return strings.Contains(last, ".")
}

// handleFallback routes everything that is not a fixed endpoint. Parent
// segments are refused before anything touches the disk. Extensionless
// paths get the generated document so client-side routes work; anything
// else must be a file under the output directory.
func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path
	if strings.Contains(p, "..") {
		s.serveNotFound(w, r)
		return
	}
	if !hasExtension(p) {
		s.handleArtifact(w, r)
		return
	}
	s.serveStatic(w, r, p)
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request, urlPath string) {
	file := filepath.Join(s.cfg.OutputPath(), filepath.FromSlash(strings.TrimPrefix(urlPath, "/")))

	info, err := s.fs.Stat(file)
	if err != nil || info.IsDir() {
		s.serveNotFound(w, r)
		return
	}
	data, err := afero.ReadFile(s.fs, file)
	if err != nil {
		s.logger.Warn(r.Context(), err, "Cannot read static file", "path", file)
		s.serveNotFound(w, r)
		return
	}
	writeBody(w, http.StatusOK, ContentType(file), data)
}

// handleArtifact serves the generated document according to the build
// state: a waiting page while building, the diagnostics after a failure,
// and otherwise the artifact with the reload client injected.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")

	st := s.store.State()
	switch st.Kind {
	case state.Building:
		s.renderPage(w, r, http.StatusOK, BuildingPage())
		return
	case state.Failed:
		s.renderPage(w, r, http.StatusOK, ErrorPage(st.Message))
		return
	}

	data, err := afero.ReadFile(s.fs, s.cfg.ArtifactPath())
	if err != nil {
		expected := path.Join(s.cfg.Project.OutputDir, s.cfg.Project.Artifact)
		s.renderPage(w, r, http.StatusOK, NoOutputPage(expected))
		return
	}

	if st.Fingerprint != "" {
		etag := `"` + st.Fingerprint + `"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	writeBody(w, http.StatusOK, contentTypes[".html"], Inject(data))
}

func (s *Server) serveNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusNotFound, NotFoundPage())
}
