package repository

import (
	"context"
	"errors"

	"deepfake-detector/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	Insert(ctx context.Context, det *models.Detection) (int64, error)

	// Read operations
	GetByID(ctx context.Context, id int64) (*models.Detection, error)
	GetAll(ctx context.Context, filter *models.DetectionFilter) ([]models.Detection, error)
	GetTotalCount(ctx context.Context, filter *models.DetectionFilter) (int, error)
	GetStats(ctx context.Context) (*models.DetectionStats, error)

	// Delete operations
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error

	Close() error
}
