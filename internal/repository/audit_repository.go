package repository

import (
	"bilan_backend/internal/model"

	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(entry *model.AuditLog) error {
	return r.db.Create(entry).Error
}

func (r *AuditRepository) ListByEntity(entityType, entityID string) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	err := r.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").Find(&entries).Error
	return entries, err
}
