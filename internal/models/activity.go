package models

import (
	"time"

	"gorm.io/datatypes"
)

// Activity log actions.
const (
	ActionOpportunityEdited = "opportunity.edited"
	ActionEvidenceCreated   = "evidence.created"
	ActionEvidenceSubmitted = "evidence.submitted"
	ActionEvidenceApproved  = "evidence.approved"
	ActionEvidenceRejected  = "evidence.rejected"
)

// Activity log entity types.
const (
	EntityOpportunity = "opportunity"
	EntityEvidence    = "evidence"
)

// ActivityLog is an auditable record of a committed marketplace action.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null" json:"action"`
	EntityType string            `gorm:"size:64;not null;index:idx_activity_entity" json:"entity_type"`
	EntityID   *uint             `gorm:"index:idx_activity_entity" json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}
