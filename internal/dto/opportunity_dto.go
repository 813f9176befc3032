package dto

import (
	"time"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/changeset"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/eligibility"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// InvitedSellerRequest carries the display metadata of a newly invited seller.
type InvitedSellerRequest struct {
	Name string `json:"name" validate:"max=255"`
}

// OpportunityEditRequest is a partial edit. Absent fields are left untouched.
type OpportunityEditRequest struct {
	Title                *string                         `json:"title" validate:"omitempty,max=1000"`
	Summary              *string                         `json:"summary" validate:"omitempty,max=20000"`
	ClosedAt             *string                         `json:"closed_at" validate:"omitempty,min=10,max=40"`
	Sellers              map[string]InvitedSellerRequest `json:"sellers" validate:"omitempty,max=500,dive,keys,required,max=32,endkeys"`
	DocumentsEdited      bool                            `json:"documents_edited"`
	Attachments          *[]string                       `json:"attachments" validate:"omitempty,max=50"`
	RequirementsDocument *[]string                       `json:"requirements_document" validate:"omitempty,max=50"`
	ResponseTemplate     *[]string                       `json:"response_template" validate:"omitempty,max=50"`
}

// OpportunityResponse serializes an opportunity.
type OpportunityResponse struct {
	ID          uint                   `json:"id"`
	Status      string                 `json:"status"`
	Lot         string                 `json:"lot"`
	Payload     map[string]interface{} `json:"payload"`
	PublishedAt *time.Time             `json:"published_at,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// OpportunityEditResponse reports the result of an edit.
type OpportunityEditResponse struct {
	Opportunity OpportunityResponse `json:"opportunity"`
	Changes     changeset.ChangeSet `json:"changes"`
	Audited     bool                `json:"audited"`
}

// EditHistoryEntryResponse is one step of an opportunity's edit history.
type EditHistoryEntryResponse struct {
	RecordID uint                `json:"record_id"`
	ActorID  uint                `json:"actor_id"`
	EditedAt time.Time           `json:"edited_at"`
	Changes  changeset.ChangeSet `json:"changes"`
}

// EligibilityResponse reports whether the caller may view or respond to an opportunity.
type EligibilityResponse struct {
	OpportunityID uint   `json:"opportunity_id"`
	CanView       bool   `json:"can_view"`
	CanRespond    bool   `json:"can_respond"`
	Reason        string `json:"reason,omitempty"`
}

// NewOpportunityResponse converts an opportunity model into a DTO.
func NewOpportunityResponse(opportunity models.Opportunity) OpportunityResponse {
	payload := make(map[string]interface{}, len(opportunity.Payload))
	for key, value := range opportunity.Payload.Clone() {
		payload[key] = value
	}

	return OpportunityResponse{
		ID:          opportunity.ID,
		Status:      string(opportunity.Status),
		Lot:         string(opportunity.Lot),
		Payload:     payload,
		PublishedAt: opportunity.PublishedAt,
		UpdatedAt:   opportunity.UpdatedAt,
	}
}

// NewEditHistoryResponse converts reconstructed history entries into DTOs.
func NewEditHistoryResponse(entries []changeset.Entry) []EditHistoryEntryResponse {
	responses := make([]EditHistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		changes := entry.Changes
		if changes == nil {
			changes = changeset.ChangeSet{}
		}
		responses = append(responses, EditHistoryEntryResponse{
			RecordID: entry.RecordID,
			ActorID:  entry.ActorID,
			EditedAt: entry.EditedAt,
			Changes:  changes,
		})
	}
	return responses
}

// NewEligibilityResponse converts a decision into a DTO.
func NewEligibilityResponse(opportunityID uint, decision eligibility.Decision) EligibilityResponse {
	return EligibilityResponse{
		OpportunityID: opportunityID,
		CanView:       decision.CanView,
		CanRespond:    decision.CanRespond,
		Reason:        decision.Reason,
	}
}
