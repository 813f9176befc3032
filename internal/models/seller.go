package models

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Standing is a seller's status in a single category.
type Standing string

const (
	StandingUnassessed Standing = "unassessed"
	StandingSubmitted  Standing = "submitted"
	StandingAssessed   Standing = "assessed"
	StandingRejected   Standing = "rejected"
)

// Recruiter values describe whether a seller places candidates.
const (
	RecruiterNo   = "no"
	RecruiterYes  = "yes"
	RecruiterBoth = "both"
)

// Seller status values.
const (
	SellerStatusActive  = "active"
	SellerStatusDeleted = "deleted"
)

// Seller is a vendor with per-category standing and a pricing profile.
type Seller struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	Code         string            `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Name         string            `gorm:"size:255;not null" json:"name"`
	ContactEmail string            `gorm:"size:255" json:"contact_email"`
	Status       string            `gorm:"size:16;not null;default:active" json:"status"`
	Recruiter    string            `gorm:"size:8;not null;default:no" json:"recruiter"`
	Standings    datatypes.JSONMap `gorm:"type:json" json:"standings"`
	Pricing      datatypes.JSONMap `gorm:"type:json" json:"pricing"`
	LabourHire   datatypes.JSONMap `gorm:"type:json" json:"labour_hire"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// CategoryKey renders a category identifier as used in JSON maps.
func CategoryKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// Registered reports whether the seller is active and holds at least one
// category standing. A NULL standings column loads as an empty map.
func (s Seller) Registered() bool {
	return s.Status != SellerStatusDeleted && len(s.Standings) > 0
}

// StandingIn returns the seller's standing in the category.
func (s Seller) StandingIn(category string) Standing {
	if raw, ok := s.Standings[category].(string); ok && raw != "" {
		return Standing(raw)
	}
	return StandingUnassessed
}

// AssessedIn reports whether the seller is assessed in the category.
func (s Seller) AssessedIn(category string) bool {
	return category != "" && s.StandingIn(category) == StandingAssessed
}

// AssessedCategories returns the keys of every category the seller is assessed in.
func (s Seller) AssessedCategories() []string {
	var out []string
	for key := range s.Standings {
		if s.StandingIn(key) == StandingAssessed {
			out = append(out, key)
		}
	}
	return out
}

// RecruiterOnly reports whether the seller only provides recruitment services.
func (s Seller) RecruiterOnly() bool {
	return strings.EqualFold(s.Recruiter, RecruiterYes)
}

// PlacesCandidates reports whether the seller may respond to specialist placements.
func (s Seller) PlacesCandidates() bool {
	r := strings.ToLower(s.Recruiter)
	return r == RecruiterYes || r == RecruiterBoth
}

// WithStanding returns a copy of the standings map with category set.
func (s Seller) WithStanding(category string, standing Standing) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for key, value := range s.Standings {
		out[key] = value
	}
	out[category] = string(standing)
	return out
}

// WithMaxPrice returns a copy of the pricing profile with the category's maximum price merged in.
func (s Seller) WithMaxPrice(category string, maxPrice int64) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for key, value := range s.Pricing {
		out[key] = value
	}
	entry := map[string]interface{}{}
	if existing, ok := out[category].(map[string]interface{}); ok {
		for key, value := range existing {
			entry[key] = value
		}
	}
	entry["maxPrice"] = maxPrice
	out[category] = entry
	return out
}

// Category is a classification of work sellers can be assessed in.
type Category struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	RequiredCriteria int       `gorm:"not null" json:"required_criteria"`
	PriceCeiling     int64     `gorm:"not null" json:"price_ceiling"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Key returns the category identifier as used in JSON maps.
func (c Category) Key() string {
	return CategoryKey(c.ID)
}
