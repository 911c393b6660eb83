package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/timmy/phototag/internal/domain"
)

// IndexRunRepository stores index run history.
type IndexRunRepository struct {
	db *gorm.DB
}

// NewIndexRunRepository creates a new IndexRunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *IndexRunRepository: repository instance bound to db.
func NewIndexRunRepository(db *gorm.DB) *IndexRunRepository {
	return &IndexRunRepository{db: db}
}

// Create inserts a new run record.
func (r *IndexRunRepository) Create(ctx context.Context, run *domain.IndexRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update saves every field of an existing run.
func (r *IndexRunRepository) Update(ctx context.Context, run *domain.IndexRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// GetByID retrieves a run by its ID.
// Returns:
//   - *domain.IndexRun: run record if found.
//   - error: gorm.ErrRecordNotFound when absent.
func (r *IndexRunRepository) GetByID(ctx context.Context, id string) (*domain.IndexRun, error) {
	var run domain.IndexRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// Latest returns the most recently started run, or nil when none exists.
func (r *IndexRunRepository) Latest(ctx context.Context) (*domain.IndexRun, error) {
	var run domain.IndexRun
	err := r.db.WithContext(ctx).Order("started_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns runs, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of runs.
//   - offset: number of runs to skip.
func (r *IndexRunRepository) List(ctx context.Context, limit, offset int) ([]domain.IndexRun, error) {
	var runs []domain.IndexRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error
	return runs, err
}

// CountByStatus returns the number of runs with the given status.
func (r *IndexRunRepository) CountByStatus(ctx context.Context, status domain.IndexRunStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.IndexRun{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
