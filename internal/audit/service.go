package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
	"github.com/rentiva/rentiva-backend/pkg/logger"
	"github.com/rentiva/rentiva-backend/pkg/pagination"
	"github.com/rentiva/rentiva-backend/pkg/types"
)

const exportLimit = 10000

// Entry describes one auditable action.
type Entry struct {
	ActorID    *uuid.UUID
	ActorRole  *enums.UserRole
	Action     enums.AuditAction
	EntityType string
	EntityID   *uuid.UUID
	Metadata   types.JSONMap
	RequestID  *string
}

// Service records and queries the audit trail. Recording never fails the
// caller's request; a broken audit write is logged and swallowed.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the audit service.
func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// Record appends an audit entry, fire-and-forget.
func (s *Service) Record(ctx context.Context, entry Entry) {
	if !entry.Action.IsValid() || entry.EntityType == "" {
		if s.logg != nil {
			s.logg.Warn(ctx, "dropping malformed audit entry")
		}
		return
	}

	row := &models.AuditLog{
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   entry.Metadata,
		RequestID:  entry.RequestID,
	}
	if err := s.repo.Create(ctx, row); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "audit_action", entry.Action.String()), "audit write failed", err)
	}
}

// List pages the audit trail for the admin surface.
func (s *Service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*LogList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing audit entries")
	}
	return list, nil
}

type csvRow struct {
	CreatedAt  string `csv:"created_at"`
	ActorID    string `csv:"actor_id"`
	ActorRole  string `csv:"actor_role"`
	Action     string `csv:"action"`
	EntityType string `csv:"entity_type"`
	EntityID   string `csv:"entity_id"`
	RequestID  string `csv:"request_id"`
	Metadata   string `csv:"metadata"`
}

// ExportCSV streams the filtered audit trail as CSV.
func (s *Service) ExportCSV(ctx context.Context, filters ListFilters, w io.Writer) (int, error) {
	rows, err := s.repo.ListAll(ctx, filters, exportLimit)
	if err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading audit entries")
	}

	out := make([]csvRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCSVRow(row))
	}
	if err := gocsv.Marshal(out, w); err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "writing audit csv")
	}
	return len(out), nil
}

func toCSVRow(row models.AuditLog) csvRow {
	out := csvRow{
		CreatedAt:  row.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Action:     row.Action.String(),
		EntityType: row.EntityType,
	}
	if row.ActorID != nil {
		out.ActorID = row.ActorID.String()
	}
	if row.ActorRole != nil {
		out.ActorRole = row.ActorRole.String()
	}
	if row.EntityID != nil {
		out.EntityID = row.EntityID.String()
	}
	if row.RequestID != nil {
		out.RequestID = *row.RequestID
	}
	if len(row.Metadata) > 0 {
		if payload, err := json.Marshal(row.Metadata); err == nil {
			out.Metadata = string(payload)
		}
	}
	return out
}
