package orders

import (
	"context"
	"fmt"

	"github.com/brewloop/subswap-backend/pkg/db/models"
	"github.com/brewloop/subswap-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditRepository persists the step-level audit trail of webhook runs.
type AuditRepository interface {
	Create(ctx context.Context, record *models.OrderEditLog) (*models.OrderEditLog, error)
	MarkFailed(ctx context.Context, id uuid.UUID, step enums.OrderEditStep) error
	FindByOrderID(ctx context.Context, orderID string) ([]models.OrderEditLog, error)
}

// Repository is the GORM-backed audit repository.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the audit row, assigning an id when none is set.
func (r *Repository) Create(ctx context.Context, record *models.OrderEditLog) (*models.OrderEditLog, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("creating audit record: %w", err)
	}
	return record, nil
}

// MarkFailed flips the row to FAIL and records the step that was in flight.
// This is the only mutation an audit row ever receives after creation.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, step enums.OrderEditStep) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderEditLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": enums.OrderEditStatusFail,
			"step":   step,
		})
	if result.Error != nil {
		return fmt.Errorf("marking audit record failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("audit record %s not found", id)
	}
	return nil
}

// FindByOrderID returns all processing attempts for an order, newest first.
func (r *Repository) FindByOrderID(ctx context.Context, orderID string) ([]models.OrderEditLog, error) {
	var records []models.OrderEditLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}
	return records, nil
}
