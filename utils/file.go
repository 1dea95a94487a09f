package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// generation metadata is a PNG concern, so ingest only recognizes PNG
var supportedImageExtensions = map[string]bool{
	".png": true,
}

// IsIngestableImage checks if the filename has an extension the ingest
// pipeline recognizes
func IsIngestableImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedImageExtensions[ext]
}

// GenerateThumbnail creates a thumbnail with a UUID filename, fitted so
// the longest side matches maxSize. Returns the full path where the
// thumbnail was saved.
func GenerateThumbnail(originalImagePath, thumbnailDir string, maxSize int) (string, error) {
	if err := os.MkdirAll(thumbnailDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create thumbnail directory %s: %w", thumbnailDir, err)
	}

	img, err := imaging.Open(originalImagePath)
	if err != nil {
		return "", fmt.Errorf("failed to open image %s: %w", originalImagePath, err)
	}

	thumb := imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)

	thumbUUID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID for thumbnail: %w", err)
	}
	thumbFilename := thumbUUID.String() + ".jpg"
	thumbnailSavePath := filepath.Join(thumbnailDir, thumbFilename)

	err = imaging.Save(thumb, thumbnailSavePath, imaging.JPEGQuality(80))
	if err != nil {
		return "", fmt.Errorf("failed to save thumbnail to %s: %w", thumbnailSavePath, err)
	}

	log.Printf("generated thumbnail (UUID: %s) for %s at %s", thumbUUID.String(), originalImagePath, thumbnailSavePath)
	return thumbnailSavePath, nil
}

// MoveToTrash relocates a file into trashDir instead of unlinking it, so
// disposal of archived originals stays reversible. Returns the path the
// file ended up at.
func MoveToTrash(path, trashDir string) (string, error) {
	if err := os.MkdirAll(trashDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create trash directory %s: %w", trashDir, err)
	}

	base := filepath.Base(path)
	target := filepath.Join(trashDir, base)
	if _, err := os.Stat(target); err == nil {
		// an earlier trashed file has the same name
		target = filepath.Join(trashDir, uuid.NewString()+"_"+base)
	}

	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("failed to move %s to trash: %w", path, err)
	}
	return target, nil
}
