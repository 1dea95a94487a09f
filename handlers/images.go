package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/moonhole0512/TagGallery-Web/config"
	"github.com/moonhole0512/TagGallery-Web/database"
	"github.com/moonhole0512/TagGallery-Web/repository"
	"github.com/moonhole0512/TagGallery-Web/utils"
)

const (
	defaultListLimit = 50

	imagesRoutePrefix     = "/api/images_store/"
	thumbnailsRoutePrefix = "/api/thumbnails/"
	placeholderPath       = "/static/placeholder.png"
)

type ImageHandler struct {
	Repo    repository.ImageRepositoryInterface
	ThumbDB *sql.DB
	Cfg     config.Config
}

type imageListItem struct {
	ID        uint   `json:"no"`
	Filepath  string `json:"filepath"`
	Platform  string `json:"platform"`
	MakeTime  string `json:"makeTime"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// webImagePath maps an archived absolute path to the URL it is served
// under, or to the placeholder when the backing file is gone
func (ih *ImageHandler) webImagePath(storedPath string) string {
	fullPath := filepath.FromSlash(storedPath)
	if _, err := os.Stat(fullPath); err != nil {
		return placeholderPath
	}
	rel, err := filepath.Rel(ih.Cfg.DestDirectory, fullPath)
	if err != nil {
		return placeholderPath
	}
	return imagesRoutePrefix + filepath.ToSlash(rel)
}

// webThumbnailPath maps an archived path to its thumbnail URL, if one has
// been generated
func (ih *ImageHandler) webThumbnailPath(storedPath string) string {
	if ih.ThumbDB == nil {
		return ""
	}
	info, err := database.GetThumbnailInfo(ih.ThumbDB, storedPath)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("Error looking up thumbnail for %s: %v", storedPath, err)
		}
		return ""
	}
	rel, err := filepath.Rel(ih.Cfg.ThumbnailsPath, filepath.FromSlash(info.ThumbnailPath))
	if err != nil {
		return ""
	}
	return thumbnailsRoutePrefix + filepath.ToSlash(rel)
}

// ListImages handles GET /api/images with pagination, text search, sort
// order and platform filtering
func (ih *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			WriteAPIError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
			return
		}
		page = v
	}

	limit := defaultListLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			WriteAPIError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = v
	}

	sortBy := q.Get("sort_by")
	if sortBy == "" {
		sortBy = database.DefaultSortOrder
	}
	if !database.IsValidSortOrder(sortBy) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_sort_by", "sort_by must be one of asc, desc, random")
		return
	}

	platformFilter := q.Get("platform_filter")
	if platformFilter == "" {
		platformFilter = database.PlatformFilterAll
	}

	opts := repository.ListOptions{
		Page:           page,
		Limit:          limit,
		Query:          q.Get("query"),
		SortBy:         sortBy,
		PlatformFilter: platformFilter,
	}

	summaries, total, totalPages, err := ih.Repo.List(opts)
	if err != nil {
		log.Printf("Error listing images: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "list_failed", "Failed to retrieve images")
		return
	}

	items := make([]imageListItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, imageListItem{
			ID:        s.ID,
			Filepath:  ih.webImagePath(s.Filepath),
			Platform:  s.Platform,
			MakeTime:  s.MakeTime,
			Thumbnail: ih.webThumbnailPath(s.Filepath),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"images":       items,
		"page":         page,
		"limit":        limit,
		"total_images": total,
		"total_pages":  totalPages,
	})
}

// GetImage handles GET /api/images/{image_id}
func (ih *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "image_id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "image_id must be an integer")
		return
	}

	image, err := ih.Repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Image not found")
			return
		}
		log.Printf("Error fetching image %d: %v", id, err)
		WriteAPIError(w, http.StatusInternalServerError, "fetch_failed", "Failed to retrieve image details")
		return
	}

	metadata := make(map[string]interface{})
	if image.Metadata != "" {
		if err := json.Unmarshal([]byte(image.Metadata), &metadata); err != nil {
			log.Printf("Warning: stored metadata for image %d is not valid JSON: %v", id, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"no":        image.ID,
		"filepath":  ih.webImagePath(image.Filepath),
		"makeTime":  image.MakeTime,
		"platform":  image.Platform,
		"metadata":  metadata,
		"thumbnail": ih.webThumbnailPath(image.Filepath),
	})
}

// DeleteImagesBatch handles DELETE /api/images/batch. The catalog rows are
// removed in one transaction; the backing files and thumbnails are
// disposed of afterwards, outside the transaction.
func (ih *ImageHandler) DeleteImagesBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageIDs []uint `json:"image_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}
	if len(req.ImageIDs) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "missing_ids", "image_ids must not be empty")
		return
	}

	paths, err := ih.Repo.DeleteBatch(req.ImageIDs)
	if err != nil {
		log.Printf("Error deleting image batch %v: %v", req.ImageIDs, err)
		WriteAPIError(w, http.StatusInternalServerError, "delete_failed", "Batch deletion failed; catalog unchanged")
		return
	}

	trashed := 0
	for _, p := range paths {
		ih.disposeThumbnail(p)

		fullPath := filepath.FromSlash(p)
		if _, err := os.Stat(fullPath); err != nil {
			log.Printf("Warning: file not found for trash disposal: %s", p)
			continue
		}
		if _, err := utils.MoveToTrash(fullPath, ih.Cfg.TrashPath); err != nil {
			log.Printf("Error moving %s to trash: %v", p, err)
			continue
		}
		trashed++
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted_records": len(paths),
		"trashed_files":   trashed,
	})
}

func (ih *ImageHandler) disposeThumbnail(imagePath string) {
	if ih.ThumbDB == nil {
		return
	}
	thumbPath, err := database.DeleteThumbnailInfo(ih.ThumbDB, imagePath)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("Error removing thumbnail record for %s: %v", imagePath, err)
		}
		return
	}
	if err := os.Remove(filepath.FromSlash(thumbPath)); err != nil && !os.IsNotExist(err) {
		log.Printf("Error removing thumbnail file %s: %v", thumbPath, err)
	}
}
