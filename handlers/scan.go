package handlers

import (
	"log"
	"net/http"
	"os"

	"github.com/moonhole0512/TagGallery-Web/config"
	"github.com/moonhole0512/TagGallery-Web/workers"
)

type ScanHandler struct {
	Scanner *workers.Scanner
	Cfg     config.Config
}

// StartScan handles POST /api/scan: validates the configured paths and
// kicks off the background ingest. The response returns immediately;
// progress is observed by re-querying the catalog.
func (sh *ScanHandler) StartScan(w http.ResponseWriter, r *http.Request) {
	stat, err := os.Stat(sh.Cfg.SourceDirectory)
	if err != nil || !stat.IsDir() {
		WriteAPIError(w, http.StatusBadRequest, "invalid_source", "Source path not found: "+sh.Cfg.SourceDirectory)
		return
	}
	if err := os.MkdirAll(sh.Cfg.DestDirectory, 0755); err != nil {
		log.Printf("Error creating destination directory %s: %v", sh.Cfg.DestDirectory, err)
		WriteAPIError(w, http.StatusBadRequest, "invalid_destination", "Destination path is not creatable: "+sh.Cfg.DestDirectory)
		return
	}

	runID, ok := sh.Scanner.QueueScan(sh.Cfg.SourceDirectory, sh.Cfg.DestDirectory)
	if !ok {
		WriteAPIError(w, http.StatusConflict, "scan_in_progress", "An image scan is already running")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "Image scan started in the background.",
		"run_id":  runID.String(),
	})
}
