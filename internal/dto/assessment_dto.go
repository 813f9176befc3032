package dto

import (
	"time"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// EvidenceCreateRequest opens a draft evidence submission for a category.
// ProposedRate accepts a JSON number or a numeric string.
type EvidenceCreateRequest struct {
	CategoryID   uint              `json:"category_id" validate:"required"`
	ProposedRate interface{}       `json:"proposed_rate" validate:"required"`
	Responses    map[string]string `json:"responses" validate:"omitempty,max=50,dive,keys,required,max=64,endkeys,max=10000"`
}

// EvidenceRejectRequest carries the reasons for a rejection.
type EvidenceRejectRequest struct {
	FailedCriteria map[string]interface{} `json:"failed_criteria" validate:"omitempty,dive,keys,required,endkeys"`
	ValueForMoney  *bool                  `json:"vfm"`
}

// EvidenceResponse serializes an evidence submission.
type EvidenceResponse struct {
	ID           uint                   `json:"id"`
	SellerID     uint                   `json:"seller_id"`
	CategoryID   uint                   `json:"category_id"`
	ProposedRate int64                  `json:"proposed_rate"`
	Responses    map[string]interface{} `json:"responses"`
	Status       string                 `json:"status"`
	SubmittedAt  *time.Time             `json:"submitted_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// AssessmentOutcomeResponse serializes a terminal assessment decision.
type AssessmentOutcomeResponse struct {
	ID         uint                   `json:"id"`
	EvidenceID uint                   `json:"evidence_id"`
	Status     string                 `json:"status"`
	ActionedBy uint                   `json:"actioned_by"`
	ActionedAt time.Time              `json:"actioned_at"`
	Data       map[string]interface{} `json:"data"`
}

// AssessmentResponse reports an evidence submission after a lifecycle step.
type AssessmentResponse struct {
	Evidence EvidenceResponse           `json:"evidence"`
	Outcome  *AssessmentOutcomeResponse `json:"outcome,omitempty"`
}

// NewEvidenceResponse converts an evidence model into a DTO.
func NewEvidenceResponse(submission models.EvidenceSubmission) EvidenceResponse {
	responses := make(map[string]interface{}, len(submission.Responses))
	for key, value := range submission.Responses {
		responses[key] = value
	}

	return EvidenceResponse{
		ID:           submission.ID,
		SellerID:     submission.SellerID,
		CategoryID:   submission.CategoryID,
		ProposedRate: submission.ProposedRate,
		Responses:    responses,
		Status:       string(submission.Status),
		SubmittedAt:  submission.SubmittedAt,
		CreatedAt:    submission.CreatedAt,
		UpdatedAt:    submission.UpdatedAt,
	}
}

// NewAssessmentOutcomeResponse converts an outcome model into a DTO.
func NewAssessmentOutcomeResponse(outcome models.AssessmentOutcome) AssessmentOutcomeResponse {
	data := make(map[string]interface{}, len(outcome.Data))
	for key, value := range outcome.Data {
		data[key] = value
	}

	return AssessmentOutcomeResponse{
		ID:         outcome.ID,
		EvidenceID: outcome.EvidenceID,
		Status:     string(outcome.Status),
		ActionedBy: outcome.ActionedBy,
		ActionedAt: outcome.ActionedAt,
		Data:       data,
	}
}
