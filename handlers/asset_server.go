package handlers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AssetServer creates a handler to serve static files from a specific base
// directory. The route prefix is stripped from the request path and the
// remainder resolved inside baseDir; traversal outside it is rejected.
// Example usage in main.go:
//
//	r.Get("/images_store/*", AssetServer(cfg.DestDirectory, "images_store"))
//	r.Get("/thumbnails/*", AssetServer(cfg.ThumbnailsPath, "thumbnails"))
func AssetServer(baseDir, routeName string) http.HandlerFunc {
	cleanBase := filepath.Clean(baseDir)
	log.Printf("Serving assets for '/%s/*' from directory: %s", routeName, cleanBase)

	return func(w http.ResponseWriter, r *http.Request) {
		routePrefix := "/api/" + routeName + "/"
		relativePath := strings.TrimPrefix(r.URL.Path, routePrefix)

		if relativePath == "" || strings.Contains(relativePath, "..") {
			http.Error(w, "Invalid asset path", http.StatusBadRequest)
			return
		}

		requestedAssetPath := filepath.Join(cleanBase, filepath.FromSlash(relativePath))
		cleanedAssetPath := filepath.Clean(requestedAssetPath)

		if !strings.HasPrefix(cleanedAssetPath, cleanBase) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			log.Printf("SECURITY: Attempted asset access outside designated directory: Request='%s', Resolved='%s', Allowed Base='%s'",
				r.URL.Path, cleanedAssetPath, cleanBase)
			return
		}

		if _, err := os.Stat(cleanedAssetPath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		} else if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Printf("Error stating asset file %s: %v", cleanedAssetPath, err)
			return
		}

		cacheDuration := 24 * time.Hour
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheDuration.Seconds())))
		w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))

		http.ServeFile(w, r, cleanedAssetPath)
	}
}
