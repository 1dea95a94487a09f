package repository

import (
	"fmt"
	"path/filepath"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moonhole0512/TagGallery-Web/database"
	"github.com/moonhole0512/TagGallery-Web/media"
	"github.com/moonhole0512/TagGallery-Web/models"
)

// ImageRepository handles database operations for catalog Image entities
type ImageRepository struct {
	DB *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

// ListOptions carries the query surface of the catalog listing
type ListOptions struct {
	Page           int
	Limit          int
	Query          string
	SortBy         string
	PlatformFilter string
}

// Upsert inserts a record or, on filepath conflict, fully replaces the
// existing row. There is no partial-field update.
func (r *ImageRepository) Upsert(image *models.Image) error {
	image.Filepath = filepath.ToSlash(image.Filepath)
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "filepath"}},
		DoUpdates: clause.AssignmentColumns([]string{"make_time", "platform", "metadata"}),
	}).Create(image).Error
	if err != nil {
		return fmt.Errorf("failed to upsert image record for %s: %w", image.Filepath, err)
	}
	return nil
}

// GetByID retrieves the full record for one image
func (r *ImageRepository) GetByID(id uint) (*models.Image, error) {
	var image models.Image
	err := r.DB.First(&image, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get image by id %d: %w", id, err)
	}
	return &image, nil
}

// filtered builds the WHERE clauses shared by the listing and its count
func (r *ImageRepository) filtered(opts ListOptions) *gorm.DB {
	q := r.DB.Model(&models.Image{})

	if opts.Query != "" {
		pattern := "%" + opts.Query + "%"
		q = q.Where("json_extract(metadata, '$.prompt') LIKE ? OR json_extract(metadata, '$.uc') LIKE ?", pattern, pattern)
	}

	switch opts.PlatformFilter {
	case "", database.PlatformFilterAll:
		// no filter
	case database.PlatformFilterNone:
		q = q.Where("platform IS NULL OR platform = '' OR platform = ?", media.PlatformUnknown)
	default:
		q = q.Where("platform = ?", opts.PlatformFilter)
	}
	return q
}

// List returns one page of catalog records plus the total row count and
// the total page count (ceiling of total/limit)
func (r *ImageRepository) List(opts ListOptions) ([]models.ImageSummary, int64, int, error) {
	var total int64
	if err := r.filtered(opts).Count(&total).Error; err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count images: %w", err)
	}

	q := r.filtered(opts)
	switch opts.SortBy {
	case database.SortDateDesc:
		q = q.Order("make_time DESC")
	case database.SortDateAsc:
		q = q.Order("make_time ASC")
	default:
		q = q.Order("RANDOM()")
	}

	offset := (opts.Page - 1) * opts.Limit
	summaries := make([]models.ImageSummary, 0, opts.Limit)
	err := q.Select("id", "filepath", "platform", "make_time").
		Limit(opts.Limit).
		Offset(offset).
		Scan(&summaries).Error
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to list images: %w", err)
	}

	totalPages := int((total + int64(opts.Limit) - 1) / int64(opts.Limit))
	return summaries, total, totalPages, nil
}

// DeleteBatch resolves the file paths of the given ids, deletes all
// matching rows in one transaction and returns the resolved paths so the
// caller can dispose of the underlying files. A failure at any step rolls
// back the whole batch; partial deletion is never observable.
func (r *ImageRepository) DeleteBatch(ids []uint) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	var paths []string
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var rows []models.Image
		if err := tx.Select("id", "filepath").Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to resolve file paths for deletion: %w", err)
		}
		paths = make([]string, 0, len(rows))
		for _, row := range rows {
			paths = append(paths, row.Filepath)
		}

		if err := tx.Where("id IN ?", ids).Delete(&models.Image{}).Error; err != nil {
			return fmt.Errorf("failed to delete image records: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
