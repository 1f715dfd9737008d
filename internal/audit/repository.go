package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/pagination"
)

// ListFilters narrows audit log queries.
type ListFilters struct {
	ActorID    *uuid.UUID
	Action     *string
	EntityType *string
	EntityID   *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// LogList is a cursor page of audit entries.
type LogList struct {
	Logs       []models.AuditLog `json:"logs"`
	NextCursor *string           `json:"next_cursor,omitempty"`
}

// Repository persists append-only audit entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*LogList, error)
	ListAll(ctx context.Context, filters ListFilters, limit int) ([]models.AuditLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func applyFilters(q *gorm.DB, filters ListFilters) *gorm.DB {
	if filters.ActorID != nil {
		q = q.Where("actor_id = ?", *filters.ActorID)
	}
	if filters.Action != nil && *filters.Action != "" {
		q = q.Where("action = ?", *filters.Action)
	}
	if filters.EntityType != nil && *filters.EntityType != "" {
		q = q.Where("entity_type = ?", *filters.EntityType)
	}
	if filters.EntityID != nil {
		q = q.Where("entity_id = ?", *filters.EntityID)
	}
	if filters.From != nil {
		q = q.Where("created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		q = q.Where("created_at < ?", *filters.To)
	}
	return q
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*LogList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	q := applyFilters(r.db.WithContext(ctx).Model(&models.AuditLog{}), filters)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.AuditLog
	err = q.Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &LogList{Logs: rows}
	if len(rows) > limit {
		list.Logs = rows[:limit]
		last := list.Logs[limit-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &next
	}
	return list, nil
}

// ListAll fetches up to limit filtered entries oldest-first, for export.
func (r *repository) ListAll(ctx context.Context, filters ListFilters, limit int) ([]models.AuditLog, error) {
	var rows []models.AuditLog
	err := applyFilters(r.db.WithContext(ctx).Model(&models.AuditLog{}), filters).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
