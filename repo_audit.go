package storefront

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditRecords is the append-only audit store. There is deliberately no
// update or delete: records are immutable once written.
type AuditRecords interface {
	Create(ctx context.Context, record *AuditRecord) (*AuditRecord, error)
	ListForResource(ctx context.Context, kind, resourceID string) ([]*AuditRecord, error)
	ListForActor(ctx context.Context, actorID uuid.UUID) ([]*AuditRecord, error)
}

type auditRecords struct {
	repo repository.Repository[*AuditRecord]
	db   *bun.DB
}

var _ AuditRecords = (*auditRecords)(nil)

// NewAuditRecordsRepository returns the bun-backed audit store.
func NewAuditRecordsRepository(db *bun.DB) AuditRecords {
	repo := repository.NewRepository[*AuditRecord](db, repository.ModelHandlers[*AuditRecord]{
		NewRecord: func() *AuditRecord { return &AuditRecord{} },
		GetID: func(r *AuditRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *AuditRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &auditRecords{
		repo: repo,
		db:   db,
	}
}

func (a *auditRecords) Create(ctx context.Context, record *AuditRecord) (*AuditRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.repo.Create(ctx, record)
}

func (a *auditRecords) ListForResource(ctx context.Context, kind, resourceID string) ([]*AuditRecord, error) {
	var records []*AuditRecord
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.resource_kind = ?", kind).
		Where("?TableAlias.resource_id = ?", resourceID).
		Order("created_at DESC").
		Scan(ctx)

	return records, err
}

func (a *auditRecords) ListForActor(ctx context.Context, actorID uuid.UUID) ([]*AuditRecord, error) {
	var records []*AuditRecord
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.actor_id = ?", actorID.String()).
		Order("created_at DESC").
		Scan(ctx)

	return records, err
}
