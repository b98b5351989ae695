package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/nerdlab53/serch.io/internal/common"
)

// UIHandler serves the bundled search front end
type UIHandler struct {
	logger    arbor.ILogger
	staticDir string
}

func NewUIHandler(config *common.Config, logger arbor.ILogger) *UIHandler {
	return &UIHandler{
		logger:    logger,
		staticDir: resolveStaticDir(config.UI.Dir),
	}
}

// resolveStaticDir finds the UI directory, tolerating launches from a
// build subdirectory.
func resolveStaticDir(configured string) string {
	dirs := []string{
		configured,
		filepath.Join("..", configured),
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); err == nil {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}

	return configured
}

// StaticHandler serves the UI files mounted under /ui/
func (h *UIHandler) StaticHandler() http.Handler {
	return http.StripPrefix("/ui/", http.FileServer(http.Dir(h.staticDir)))
}

// IndexRedirectHandler sends the root path to the UI entry page
func (h *UIHandler) IndexRedirectHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	http.Redirect(w, r, "/ui/index.html", http.StatusTemporaryRedirect)
}
