package deid

import (
	"context"
	"encoding/json"
	"time"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/logger"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/models"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/requestid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditRecord notes what a call did without any original value.
type AuditRecord struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	RequestID       string         `gorm:"column:request_id;index" json:"request_id"`
	Operation       string         `gorm:"column:operation;size:16" json:"operation"`
	Categories      datatypes.JSON `gorm:"column:categories" json:"categories"`
	TokenCount      int            `gorm:"column:token_count" json:"token_count"`
	UnresolvedCount int            `gorm:"column:unresolved_count" json:"unresolved_count"`
	CreatedAt       time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (AuditRecord) TableName() string {
	return "pii_audit_log"
}

type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord) error
}

// AuditRepository persists audit records with gorm.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&AuditRecord{})
}

func (r *AuditRepository) Record(ctx context.Context, rec AuditRecord) error {
	return r.db.WithContext(ctx).Create(&rec).Error
}

// record runs after a call succeeded; failures are logged only.
func (s *Service) record(ctx context.Context, op string, used []models.TokenUse, unresolved int) {
	if s.audit == nil {
		return
	}

	counts := make(map[string]int)
	for _, u := range used {
		counts[u.Category]++
	}
	categories, err := json.Marshal(counts)
	if err != nil {
		categories = []byte("{}")
	}

	rec := AuditRecord{
		RequestID:       requestid.From(ctx),
		Operation:       op,
		Categories:      datatypes.JSON(categories),
		TokenCount:      len(used),
		UnresolvedCount: unresolved,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.audit.Record(ctx, rec); err != nil {
		logger.WithField("operation", op).WithError(err).Warn("failed to write audit record")
	}
}
