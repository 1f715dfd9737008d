package quotations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	"github.com/rentiva/rentiva-backend/pkg/pagination"
)

// Repository defines persistence operations for quotations and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, quotation *models.Quotation) (*models.Quotation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Quotation, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*QuotationList, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters ListFilters) (*QuotationList, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, to enums.QuotationStatus, updates map[string]any) (bool, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	FindDueForExpiry(ctx context.Context, now time.Time, limit int) ([]models.Quotation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a quotations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, quotation *models.Quotation) (*models.Quotation, error) {
	if err := r.db.WithContext(ctx).Create(quotation).Error; err != nil {
		return nil, err
	}
	return quotation, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Quotation, error) {
	var quotation models.Quotation
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&quotation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*QuotationList, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Quotation{}).
		Preload("Items").
		Where("customer_id = ?", customerID)
	return page(q, params, filters)
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters ListFilters) (*QuotationList, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Quotation{}).
		Preload("Items").
		Where("vendor_id = ?", vendorID)
	return page(q, params, filters)
}

func page(q *gorm.DB, params pagination.Params, filters ListFilters) (*QuotationList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	if filters.Status != nil && *filters.Status != "" {
		q = q.Where("status = ?", *filters.Status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Quotation
	err = q.Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &QuotationList{Quotations: rows}
	if len(rows) > limit {
		list.Quotations = rows[:limit]
		last := list.Quotations[limit-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &next
	}
	return list, nil
}

// TransitionStatus moves a pending quotation to a terminal status. The guard
// on the current status makes concurrent decisions race-safe; zero rows
// affected means the quotation was already decided or expired.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, to enums.QuotationStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to

	res := r.db.WithContext(ctx).
		Model(&models.Quotation{}).
		Where("id = ? AND status = ?", id, enums.QuotationStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ExpireDue flips all pending quotations whose validity lapsed before now.
func (r *repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Quotation{}).
		Where("status = ? AND expires_at < ?", enums.QuotationStatusPending, now).
		Update("status", enums.QuotationStatusExpired)
	return res.RowsAffected, res.Error
}

// FindDueForExpiry lists pending quotations past their validity, for event emission.
func (r *repository) FindDueForExpiry(ctx context.Context, now time.Time, limit int) ([]models.Quotation, error) {
	var rows []models.Quotation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", enums.QuotationStatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
