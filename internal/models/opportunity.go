package models

import "time"

// OpportunityStatus is the lifecycle status of an opportunity.
type OpportunityStatus string

const (
	OpportunityStatusDraft     OpportunityStatus = "draft"
	OpportunityStatusLive      OpportunityStatus = "live"
	OpportunityStatusClosed    OpportunityStatus = "closed"
	OpportunityStatusWithdrawn OpportunityStatus = "withdrawn"
)

// LotType is the category type an opportunity is published under.
type LotType string

const (
	LotOpenMarket LotType = "open-market"
	LotInviteOnly LotType = "invite-only"
	LotSpecialist LotType = "specialist"
	LotTraining   LotType = "training"
)

// Opportunity is a published, time-boxed request for work.
type Opportunity struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	OrganizationID uint              `gorm:"not null;index" json:"organization_id"`
	Status         OpportunityStatus `gorm:"size:16;not null;index" json:"status"`
	Lot            LotType           `gorm:"size:32;not null" json:"lot"`
	Payload        Payload           `json:"payload"`
	PublishedAt    *time.Time        `json:"published_at"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Users          []User            `gorm:"many2many:opportunity_users;" json:"-"`
	EditRecords    []EditRecord      `gorm:"foreignKey:OpportunityID" json:"-"`
}

// IsLive reports whether the opportunity accepts edits and responses.
func (o Opportunity) IsLive() bool {
	return o.Status == OpportunityStatusLive
}

// HasUser reports whether the user belongs to the publishing team.
func (o Opportunity) HasUser(userID uint) bool {
	for _, user := range o.Users {
		if user.ID == userID {
			return true
		}
	}
	return false
}

// EditRecord is an immutable snapshot of an opportunity payload taken
// immediately before an edit was applied.
type EditRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OpportunityID uint      `gorm:"not null;index" json:"opportunity_id"`
	ActorID       uint      `gorm:"not null" json:"actor_id"`
	Snapshot      Payload   `json:"snapshot"`
	EditedAt      time.Time `gorm:"not null;index" json:"edited_at"`
}

// OpportunityResponse is a seller's response to an opportunity. Only the
// counters used by eligibility are modelled here.
type OpportunityResponse struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OpportunityID uint      `gorm:"not null;index:idx_response_opportunity_seller" json:"opportunity_id"`
	SellerID      uint      `gorm:"not null;index:idx_response_opportunity_seller" json:"seller_id"`
	Status        string    `gorm:"size:16;not null" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	ResponseStatusDraft     = "draft"
	ResponseStatusSubmitted = "submitted"
	ResponseStatusWithdrawn = "withdrawn"
)
