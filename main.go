package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/moonhole0512/TagGallery-Web/config"
	"github.com/moonhole0512/TagGallery-Web/database"
	"github.com/moonhole0512/TagGallery-Web/handlers"
	"github.com/moonhole0512/TagGallery-Web/repository"
	"github.com/moonhole0512/TagGallery-Web/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.DestDirectory, cfg.ThumbnailsPath, cfg.TrashPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	gormDB, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize catalog database: %v", err)
	}
	if err := database.AutoMigrateModels(gormDB); err != nil {
		log.Fatalf("FATAL: Failed to migrate catalog schema: %v", err)
	}

	thumbDB, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize thumbnail database: %v", err)
	}
	defer thumbDB.Close()

	imageRepo := repository.NewImageRepository(gormDB)

	log.Printf("Initializing thumbnail worker pool (Workers: %d, Queue Size: %d)...", cfg.NumThumbnailWorkers, cfg.ThumbnailQueueSize)
	thumbGen := workers.NewThumbnailGenerator(cfg, thumbDB, cfg.ThumbnailQueueSize, cfg.NumThumbnailWorkers)
	scanner := workers.NewScanner(imageRepo, thumbGen, 1)

	log.Printf("Scanning images from: %s", cfg.SourceDirectory)
	log.Printf("Classified archive root: %s", cfg.DestDirectory)
	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Storing thumbnails in: %s", cfg.ThumbnailsPath)
	log.Printf("Thumbnail max size (longest side): %dpx", cfg.ThumbnailMaxSize)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	imageHandler := &handlers.ImageHandler{Repo: imageRepo, ThumbDB: thumbDB, Cfg: cfg}
	scanHandler := &handlers.ScanHandler{Scanner: scanner, Cfg: cfg}
	configHandler := &handlers.ConfigHandler{Cfg: cfg}

	r.Route("/api", func(r chi.Router) {
		r.Route("/images", func(r chi.Router) {
			r.Get("/", imageHandler.ListImages)
			r.Delete("/batch", imageHandler.DeleteImagesBatch)
			r.Get("/{image_id}", imageHandler.GetImage)
		})

		r.Post("/scan", scanHandler.StartScan)
		r.Get("/config", configHandler.GetConfig)

		r.Get("/images_store/*", handlers.AssetServer(cfg.DestDirectory, "images_store"))
		log.Printf("Registered archive server at /api/images_store/*")

		r.Get("/thumbnails/*", handlers.AssetServer(cfg.ThumbnailsPath, "thumbnails"))
		log.Printf("Registered thumbnail server at /api/thumbnails/*")
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
