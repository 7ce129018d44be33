package model

import "encoding/json"

// AuditLog records who did what to which entity, for Qualiopi traceability.
type AuditLog struct {
	BaseModel
	ActorID    uint            `gorm:"index" json:"actorId"`
	Action     string          `gorm:"size:100;not null" json:"action"`
	EntityType string          `gorm:"size:50" json:"entityType"`
	EntityID   string          `gorm:"size:36;index" json:"entityId"`
	Details    json.RawMessage `gorm:"type:json" json:"details,omitempty"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
