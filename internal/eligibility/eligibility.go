// Package eligibility decides whether an actor may view or respond to an
// opportunity. Evaluation is pure: every fact is resolved by the caller.
package eligibility

import (
	"strings"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/lot"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// Reasons reported when a rule fails.
const (
	ReasonSellerInvalid          = "seller invalid"
	ReasonNotAssessedForCategory = lot.ReasonNotAssessedForCategory
	ReasonNotSelected            = lot.ReasonNotSelected
	ReasonResponseLimit          = "response limit reached"
	ReasonOpportunityInvalid     = "opportunity invalid"
	ReasonBuyerCannotRespond     = "buyers cannot respond"
	ReasonBuyerNotPermitted      = "buyer not permitted"
)

// ActorKind separates sellers from buyer-side users.
type ActorKind int

const (
	ActorSeller ActorKind = iota + 1
	ActorBuyer
)

// Actor is the subject of an eligibility decision together with the facts
// already resolved for it.
type Actor struct {
	Kind   ActorKind
	UserID uint
	Role   string
	Email  string
	Seller *models.Seller
	// ResponseCount counts the seller's draft and submitted responses to the opportunity.
	ResponseCount int
	// CandidateInfoComplete is the verdict of the candidate information validator.
	CandidateInfoComplete bool
}

// Decision is the outcome of an evaluation.
type Decision struct {
	CanView    bool   `json:"can_view"`
	CanRespond bool   `json:"can_respond"`
	Reason     string `json:"reason"`
}

// Evaluator applies the seller eligibility rules.
type Evaluator struct {
	lots *lot.Registry
}

// NewEvaluator constructs an evaluator backed by the lot registry.
func NewEvaluator(lots *lot.Registry) *Evaluator {
	return &Evaluator{lots: lots}
}

// Evaluate applies, in order: seller validity, category assessment,
// invitation, response ceiling and the lot respond gate. The first failing
// rule supplies the reason. CanView requires the first three to pass.
func (e *Evaluator) Evaluate(opportunity models.Opportunity, actor Actor) Decision {
	if actor.Kind == ActorBuyer {
		if !BuyerCanView(opportunity, actor) {
			return Decision{Reason: ReasonBuyerNotPermitted}
		}
		return Decision{CanView: true, Reason: ReasonBuyerCannotRespond}
	}

	if actor.Seller == nil || !actor.Seller.Registered() {
		return Decision{Reason: ReasonSellerInvalid}
	}
	seller := *actor.Seller

	rules, err := e.lots.Resolve(opportunity.Lot)
	if err != nil {
		return Decision{Reason: ReasonOpportunityInvalid}
	}

	payload := opportunity.Payload
	category := payload.SellerCategory()
	if payload.CategoryScoped() && rules.RequiresCategoryAssessment() && !seller.AssessedIn(category) {
		return Decision{Reason: ReasonNotAssessedForCategory}
	}

	invited := IsInvited(payload, seller, actor.Email)
	if !invited {
		return Decision{Reason: ReasonNotSelected}
	}

	if actor.ResponseCount >= rules.ResponseCeiling(payload) {
		return Decision{CanView: true, Reason: ReasonResponseLimit}
	}

	ok, reason := rules.RespondGate(lot.GateInput{
		Payload:               payload,
		Seller:                seller,
		Invited:               invited,
		CandidateInfoComplete: actor.CandidateInfoComplete,
	})
	if !ok {
		return Decision{CanView: true, Reason: reason}
	}

	return Decision{CanView: true, CanRespond: true}
}

// IsInvited reports whether any invitation route admits the seller: open to
// all, named in the invited set, assessed in the category of a
// category-wide opportunity, or listed on an email allow-list.
func IsInvited(payload models.Payload, seller models.Seller, actorEmail string) bool {
	if payload.OpenTo() == models.OpenToAll {
		return true
	}
	if payload.Sellers().Contains(seller.Code) {
		return true
	}
	if payload.OpenTo() == models.OpenToCategory && seller.AssessedIn(payload.SellerCategory()) {
		return true
	}
	return emailAllowed(payload, seller.ContactEmail, actorEmail)
}

func emailAllowed(payload models.Payload, emails ...string) bool {
	var allowList []string
	switch payload.SellerSelector() {
	case models.SellerSelectorOne:
		allowList = []string{payload.String(models.FieldSellerEmail)}
	case models.SellerSelectorSome:
		allowList = payload.Strings(models.FieldSellerEmailList)
	default:
		allowList = append(payload.Strings(models.FieldSellerEmailList), payload.String(models.FieldSellerEmail))
	}

	for _, allowed := range allowList {
		allowed = strings.TrimSpace(allowed)
		if allowed == "" {
			continue
		}
		for _, email := range emails {
			if strings.EqualFold(allowed, strings.TrimSpace(email)) {
				return true
			}
		}
	}
	return false
}

// BuyerCanView is the buyer-side view permission: admins and members of the
// publishing team.
func BuyerCanView(opportunity models.Opportunity, actor Actor) bool {
	if strings.EqualFold(actor.Role, models.RoleAdmin) {
		return true
	}
	return actor.UserID != 0 && opportunity.HasUser(actor.UserID)
}
