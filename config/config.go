package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultThumbnailsSubDir = "thumbnails"
	DefaultTrashSubDir      = "trash"
)

const (
	defaultThumbnailQueueSize  = 200
	defaultNumThumbnailWorkers = 4
	defaultThumbnailMaxSize    = 300
)

type Config struct {
	// source directory (where unclassified images are scanned from)
	SourceDirectory string

	// destination root of the classified archive (<platform>/<yyMMdd>/<name>)
	DestDirectory string

	// database path
	DatabasePath string

	// media storage configuration
	MediaStoragePath string // primary root for generated assets (thumbs, trash)
	ThumbnailsPath   string // full-calculated path for thumbnails
	TrashPath        string // full-calculated path for trashed originals

	// thumbnail generation settings
	ThumbnailMaxSize int

	// worker settings
	ThumbnailQueueSize  int
	NumThumbnailWorkers int
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	source := getEnvOrDefault("SOURCE_DIRECTORY", ".")
	absSource, err := filepath.Abs(source)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for source directory '%s': %w", source, err)
	}

	dest := getEnvOrDefault("DEST_DIRECTORY", filepath.Join(".", "classified"))
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for destination directory '%s': %w", dest, err)
	}

	dbPath := getEnvOrDefault("DATABASE_PATH", "image_gallery.db")

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	thumbSubDir := getEnvOrDefault("THUMBNAILS_SUBDIR", DefaultThumbnailsSubDir)
	absThumbnailsPath := filepath.Join(absMediaStorage, thumbSubDir)

	trashSubDir := getEnvOrDefault("TRASH_SUBDIR", DefaultTrashSubDir)
	absTrashPath := filepath.Join(absMediaStorage, trashSubDir)

	thumbMaxSize := getEnvIntOrDefault("THUMBNAIL_MAX_SIZE", defaultThumbnailMaxSize)

	queueSize := getEnvIntOrDefault("THUMBNAIL_QUEUE_SIZE", defaultThumbnailQueueSize)
	numWorkers := getEnvIntOrDefault("NUM_THUMBNAIL_WORKERS", defaultNumThumbnailWorkers)

	cfg := Config{
		SourceDirectory:     absSource,
		DestDirectory:       absDest,
		DatabasePath:        dbPath,
		MediaStoragePath:    absMediaStorage,
		ThumbnailsPath:      absThumbnailsPath,
		TrashPath:           absTrashPath,
		ThumbnailMaxSize:    thumbMaxSize,
		ThumbnailQueueSize:  queueSize,
		NumThumbnailWorkers: numWorkers,
	}

	return cfg, nil
}
