package models

import (
	"time"

	"gorm.io/datatypes"
)

// EvidenceStatus is the lifecycle status of an evidence submission.
type EvidenceStatus string

const (
	EvidenceStatusDraft     EvidenceStatus = "draft"
	EvidenceStatusSubmitted EvidenceStatus = "submitted"
	EvidenceStatusAssessed  EvidenceStatus = "assessed"
	EvidenceStatusRejected  EvidenceStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s EvidenceStatus) IsTerminal() bool {
	return s == EvidenceStatusAssessed || s == EvidenceStatusRejected
}

// EvidenceSubmission is a seller's application for assessed standing in a category.
type EvidenceSubmission struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	SellerID     uint              `gorm:"not null;index" json:"seller_id"`
	CategoryID   uint              `gorm:"not null;index" json:"category_id"`
	ProposedRate int64             `gorm:"not null" json:"proposed_rate"`
	Responses    datatypes.JSONMap `gorm:"type:json" json:"responses"`
	Status       EvidenceStatus    `gorm:"size:16;not null;index" json:"status"`
	SubmittedAt  *time.Time        `json:"submitted_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// AnsweredCriteria returns the number of criteria with a non-empty response.
func (e EvidenceSubmission) AnsweredCriteria() int {
	count := 0
	for _, value := range e.Responses {
		if text, ok := value.(string); ok && text != "" {
			count++
		}
	}
	return count
}

// OutcomeStatus is the terminal decision on an evidence submission.
type OutcomeStatus string

const (
	OutcomeApproved OutcomeStatus = "approved"
	OutcomeRejected OutcomeStatus = "rejected"
)

// AssessmentOutcome is the immutable record of a terminal assessment decision.
type AssessmentOutcome struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	EvidenceID uint              `gorm:"not null;uniqueIndex" json:"evidence_id"`
	Status     OutcomeStatus     `gorm:"size:16;not null" json:"status"`
	ActionedBy uint              `gorm:"not null" json:"actioned_by"`
	ActionedAt time.Time         `gorm:"not null" json:"actioned_at"`
	Data       datatypes.JSONMap `gorm:"type:json" json:"data"`
}
