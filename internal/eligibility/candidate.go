package eligibility

import (
	"strings"
	"time"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// CandidateInfoComplete reports whether a seller's labour hire profile is
// complete enough to place specialist candidates: at least one jurisdiction,
// each with a licence number and an expiry date that has not passed.
func CandidateInfoComplete(seller models.Seller, now time.Time) bool {
	if len(seller.LabourHire) == 0 {
		return false
	}
	today := now.Truncate(24 * time.Hour)
	for _, raw := range seller.LabourHire {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			return false
		}
		licence, _ := entry["licenceNumber"].(string)
		if strings.TrimSpace(licence) == "" {
			return false
		}
		expiry, _ := entry["expiry"].(string)
		expires, err := time.Parse("2006-01-02", strings.TrimSpace(expiry))
		if err != nil || expires.Before(today) {
			return false
		}
	}
	return true
}
