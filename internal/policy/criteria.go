// Package policy holds the externally supplied policy values and the pure
// rules derived from them.
package policy

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/apperror"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// ParseRate coerces a proposed rate into a positive integer. Zero, negative,
// fractional and non-numeric values are validation errors.
func ParseRate(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, apperror.Validation("rate is required")
	case float64:
		if v != math.Trunc(v) {
			return 0, apperror.Validation(fmt.Sprintf("rate %v must be a whole number", v))
		}
	case float32:
		if float64(v) != math.Trunc(float64(v)) {
			return 0, apperror.Validation(fmt.Sprintf("rate %v must be a whole number", v))
		}
	case string:
		trimmed := strings.TrimSpace(v)
		rate, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return 0, apperror.Validation(fmt.Sprintf("rate %q must be a whole number", trimmed))
		}
		raw = rate
	case bool:
		return 0, apperror.Validation("rate must be numeric")
	}

	rate, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, apperror.Validation(fmt.Sprintf("rate %v must be numeric", raw))
	}
	if rate <= 0 {
		return 0, apperror.Validation("rate must be greater than zero")
	}
	return rate, nil
}

// RequiredEvidenceCount returns how many criteria responses a submission in
// the category must carry at the proposed rate: the category baseline, plus
// one when the rate exceeds the category price ceiling.
func RequiredEvidenceCount(category models.Category, proposedRate int64) (int, error) {
	if proposedRate <= 0 {
		return 0, apperror.Validation("rate must be greater than zero")
	}
	required := category.RequiredCriteria
	if proposedRate > category.PriceCeiling {
		required++
	}
	return required, nil
}
