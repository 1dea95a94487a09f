package handlers

import (
	"net/http"

	"github.com/moonhole0512/TagGallery-Web/config"
)

type ConfigHandler struct {
	Cfg config.Config
}

// GetConfig handles GET /api/config. Configuration is owned by the
// process environment; this is a read-only echo for the front-end. The
// field names mirror the gallery client's expectations.
func (ch *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"image_file_path": ch.Cfg.SourceDirectory,
		"des_file_path":   ch.Cfg.DestDirectory,
	})
}
