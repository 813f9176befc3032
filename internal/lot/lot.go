// Package lot resolves the per-category-type rules an opportunity is subject
// to. The set of lots is closed; each carries its payload allow-list, its
// validator and its respond gate behind the Rules interface.
package lot

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/apperror"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// GateInput carries the already-resolved facts a respond gate needs.
type GateInput struct {
	Payload               models.Payload
	Seller                models.Seller
	Invited               bool
	CandidateInfoComplete bool
}

// Rules is the capability every lot implements.
type Rules interface {
	Lot() models.LotType
	Allows(field string) bool
	// RequiresCategoryAssessment reports whether category-scoped opportunities
	// demand assessed standing before a seller may even view them.
	RequiresCategoryAssessment() bool
	// ResponseCeiling is the number of responses a single seller may hold.
	ResponseCeiling(payload models.Payload) int
	// RespondGate applies the lot-specific conditions for responding.
	RespondGate(in GateInput) (bool, string)
	// Validate checks only the named fields and returns every violation.
	Validate(payload models.Payload, fields []string) []string
}

// Registry resolves lot rules.
type Registry struct {
	lots map[models.LotType]Rules
}

// NewRegistry builds the rules for every known lot. It panics if the custom
// validation tags cannot be registered.
func NewRegistry(validate *validator.Validate) *Registry {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	if err := registerRules(validate, customRules); err != nil {
		panic(err)
	}

	return &Registry{
		lots: map[models.LotType]Rules{
			models.LotOpenMarket: newOpenMarket(validate),
			models.LotInviteOnly: newInviteOnly(models.LotInviteOnly, validate),
			models.LotTraining:   newInviteOnly(models.LotTraining, validate),
			models.LotSpecialist: newSpecialist(validate),
		},
	}
}

// Resolve returns the rules for the lot, or a validation error for an unknown lot.
func (r *Registry) Resolve(lotType models.LotType) (Rules, error) {
	rules, ok := r.lots[lotType]
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unknown lot %q", lotType))
	}
	return rules, nil
}

// MustResolve panics on an unknown lot. Use only on opportunities loaded from storage.
func (r *Registry) MustResolve(lotType models.LotType) Rules {
	rules, err := r.Resolve(lotType)
	if err != nil {
		panic(err)
	}
	return rules
}
