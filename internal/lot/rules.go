package lot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// customRules are the validator tags the lot payload rules rely on.
var customRules = map[string]validator.Func{
	"maxwords": func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(strings.Fields(fl.Field().String())) <= limit
	},
	"rfc3339": func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339, fl.Field().String())
		return err == nil
	},
}

func registerRules(validate *validator.Validate, rules map[string]validator.Func) error {
	for tag, fn := range rules {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q validation: %w", tag, err)
		}
	}
	return nil
}

var commonFields = []string{
	models.FieldTitle,
	models.FieldSummary,
	models.FieldClosedAt,
	models.FieldQuestionsClosedAt,
	models.FieldOpenTo,
	models.FieldSellerCategory,
	models.FieldEvaluationCriteria,
	models.FieldAttachments,
	models.FieldRequirementsDocument,
	models.FieldResponseTemplate,
	models.FieldLocation,
}

var invitationFields = []string{
	models.FieldSellers,
	models.FieldSellerSelector,
	models.FieldSellerEmail,
	models.FieldSellerEmailList,
}

type fieldRule struct {
	tag     string
	message string
}

type base struct {
	lot      models.LotType
	validate *validator.Validate
	allowed  map[string]struct{}
	scalars  map[string][]fieldRule
}

func newBase(lotType models.LotType, validate *validator.Validate, titleMax, summaryWords int, extra ...string) base {
	allowed := make(map[string]struct{}, len(commonFields)+len(extra))
	for _, field := range commonFields {
		allowed[field] = struct{}{}
	}
	for _, field := range extra {
		allowed[field] = struct{}{}
	}

	return base{
		lot:      lotType,
		validate: validate,
		allowed:  allowed,
		scalars: map[string][]fieldRule{
			models.FieldTitle: {
				{tag: "required", message: "title is required"},
				{tag: fmt.Sprintf("max=%d", titleMax), message: fmt.Sprintf("title must be %d characters or fewer", titleMax)},
			},
			models.FieldSummary: {
				{tag: "required", message: "summary is required"},
				{tag: fmt.Sprintf("maxwords=%d", summaryWords), message: fmt.Sprintf("summary must be %d words or fewer", summaryWords)},
			},
			models.FieldClosedAt: {
				{tag: "required", message: "closing date is required"},
				{tag: "rfc3339", message: "closing date must be a valid timestamp"},
			},
		},
	}
}

func (b base) Lot() models.LotType { return b.lot }

func (b base) Allows(field string) bool {
	_, ok := b.allowed[field]
	return ok
}

func (b base) validateScalar(payload models.Payload, field string) []string {
	var errs []string
	value, _ := payload[field].(string)
	for _, rule := range b.scalars[field] {
		if err := b.validate.Var(strings.TrimSpace(value), rule.tag); err != nil {
			errs = append(errs, rule.message)
			break
		}
	}
	return errs
}

func (b base) validateSellers(payload models.Payload) []string {
	if payload.OpenTo() != models.OpenToSelected {
		return nil
	}
	sellers := payload.Sellers()
	if len(sellers) == 0 {
		return []string{"at least one seller must be invited"}
	}
	if payload.SellerSelector() == models.SellerSelectorOne && len(sellers) > 1 {
		return []string{"only one seller can be invited in single seller mode"}
	}
	var errs []string
	for _, code := range sellers.Codes() {
		if strings.TrimSpace(code) == "" {
			errs = append(errs, "invited seller code must not be empty")
		}
	}
	return errs
}

func (b base) validateFields(payload models.Payload, fields []string, sellersAllowed bool) []string {
	var errs []string
	for _, field := range fields {
		switch field {
		case models.FieldTitle, models.FieldSummary, models.FieldClosedAt:
			errs = append(errs, b.validateScalar(payload, field)...)
		case models.FieldSellers:
			if sellersAllowed {
				errs = append(errs, b.validateSellers(payload)...)
			}
		}
	}
	return errs
}

func allowedByAssessment(in GateInput) (bool, string) {
	category := in.Payload.SellerCategory()
	if in.Payload.OpenTo() == models.OpenToCategory && category != "" {
		if !in.Seller.AssessedIn(category) {
			return false, ReasonNotAssessedForCategory
		}
		return true, ""
	}
	if len(in.Seller.AssessedCategories()) == 0 {
		return false, ReasonNotAssessedAnyCategory
	}
	return true, ""
}

// Reasons reported by respond gates.
const (
	ReasonNotAssessedForCategory = "not assessed for category"
	ReasonNotAssessedAnyCategory = "not assessed in any category"
	ReasonRecruiterOnly          = "recruiter only sellers cannot respond"
	ReasonNotSelected            = "not selected to respond"
	ReasonNotRecruiter           = "seller does not place specialist candidates"
	ReasonCandidateIncomplete    = "candidate information incomplete"
)

type openMarket struct{ base }

func newOpenMarket(validate *validator.Validate) openMarket {
	return openMarket{base: newBase(models.LotOpenMarket, validate, 100, 150)}
}

func (openMarket) RequiresCategoryAssessment() bool { return true }

func (openMarket) ResponseCeiling(models.Payload) int { return 1 }

func (openMarket) RespondGate(in GateInput) (bool, string) {
	if ok, reason := allowedByAssessment(in); !ok {
		return false, reason
	}
	if in.Seller.RecruiterOnly() {
		return false, ReasonRecruiterOnly
	}
	return true, ""
}

func (o openMarket) Validate(payload models.Payload, fields []string) []string {
	return o.validateFields(payload, fields, false)
}

type inviteOnly struct{ base }

func newInviteOnly(lotType models.LotType, validate *validator.Validate) inviteOnly {
	return inviteOnly{base: newBase(lotType, validate, 100, 500, invitationFields...)}
}

func (inviteOnly) RequiresCategoryAssessment() bool { return true }

func (inviteOnly) ResponseCeiling(models.Payload) int { return 1 }

func (inviteOnly) RespondGate(in GateInput) (bool, string) {
	category := in.Payload.SellerCategory()
	if category != "" && !in.Seller.AssessedIn(category) {
		return false, ReasonNotAssessedForCategory
	}
	if !in.Invited {
		return false, ReasonNotSelected
	}
	return true, ""
}

func (i inviteOnly) Validate(payload models.Payload, fields []string) []string {
	return i.validateFields(payload, fields, true)
}

type specialist struct{ base }

func newSpecialist(validate *validator.Validate) specialist {
	fields := append([]string{models.FieldNumberOfSuppliers}, invitationFields...)
	return specialist{base: newBase(models.LotSpecialist, validate, 100, 1000, fields...)}
}

func (specialist) RequiresCategoryAssessment() bool { return false }

func (specialist) ResponseCeiling(payload models.Payload) int {
	if n := payload.Int(models.FieldNumberOfSuppliers); n > 0 {
		return n
	}
	return 1
}

func (specialist) RespondGate(in GateInput) (bool, string) {
	if !in.Seller.PlacesCandidates() {
		return false, ReasonNotRecruiter
	}
	if !in.CandidateInfoComplete {
		return false, ReasonCandidateIncomplete
	}
	return true, ""
}

func (s specialist) Validate(payload models.Payload, fields []string) []string {
	errs := s.validateFields(payload, fields, true)
	for _, field := range fields {
		if field == models.FieldNumberOfSuppliers {
			errs = append(errs, s.validateSupplierCount(payload)...)
		}
	}
	return errs
}

func (s specialist) validateSupplierCount(payload models.Payload) []string {
	n, err := payload.IntE(models.FieldNumberOfSuppliers)
	if err != nil || s.validate.Var(n, "min=1") != nil {
		return []string{"number of suppliers must be a whole number of at least 1"}
	}
	return nil
}
