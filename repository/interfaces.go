package repository

import (
	"github.com/moonhole0512/TagGallery-Web/models"
)

// ImageRepositoryInterface defines the methods for catalog data operations
type ImageRepositoryInterface interface {
	Upsert(image *models.Image) error
	GetByID(id uint) (*models.Image, error)
	List(opts ListOptions) ([]models.ImageSummary, int64, int, error)
	DeleteBatch(ids []uint) ([]string, error)
}
