package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Payload field names.
const (
	FieldTitle                = "title"
	FieldSummary              = "summary"
	FieldClosedAt             = "closedAt"
	FieldQuestionsClosedAt    = "questionsClosedAt"
	FieldOpenTo               = "openTo"
	FieldSellerSelector       = "sellerSelector"
	FieldSellerCategory       = "sellerCategory"
	FieldSellers              = "sellers"
	FieldSellerEmail          = "sellerEmail"
	FieldSellerEmailList      = "sellerEmailList"
	FieldEvaluationCriteria   = "evaluationCriteria"
	FieldAttachments          = "attachments"
	FieldRequirementsDocument = "requirementsDocument"
	FieldResponseTemplate     = "responseTemplate"
	FieldNumberOfSuppliers    = "numberOfSuppliers"
	FieldLocation             = "location"
)

// OpenTo describes who an opportunity is published to.
type OpenTo string

const (
	// OpenToAll publishes to every registered seller.
	OpenToAll OpenTo = "all"
	// OpenToCategory publishes to sellers assessed in the designated category.
	OpenToCategory OpenTo = "category"
	// OpenToSelected publishes to individually named sellers.
	OpenToSelected OpenTo = "selected"
)

// SellerSelector records how named sellers were chosen.
type SellerSelector string

const (
	SellerSelectorOne  SellerSelector = "oneSeller"
	SellerSelectorSome SellerSelector = "someSellers"
	SellerSelectorAll  SellerSelector = "allSellers"
)

// InvitedSeller is the display metadata kept for a named seller.
type InvitedSeller struct {
	Name string `json:"name"`
}

// InvitedSellers maps seller codes to display metadata.
type InvitedSellers map[string]InvitedSeller

// Contains reports whether the seller code was invited.
func (s InvitedSellers) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// Codes returns the invited seller codes in sorted order.
func (s InvitedSellers) Codes() []string {
	codes := make([]string, 0, len(s))
	for code := range s {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Payload is the JSON-like mutable content of an opportunity. It is treated
// as an immutable value: every mutation goes through With/Without, which
// return a fresh copy.
type Payload map[string]any

// Value implements driver.Valuer.
func (p Payload) Value() (driver.Value, error) {
	return datatypes.JSONMap(p).Value()
}

// Scan implements sql.Scanner.
func (p *Payload) Scan(value any) error {
	return (*datatypes.JSONMap)(p).Scan(value)
}

// GormDataType implements schema.GormDataTypeInterface.
func (Payload) GormDataType() string {
	return "jsonmap"
}

// GormDBDataType implements migrator.GormDBDataTypeInterface.
func (p Payload) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return datatypes.JSONMap(p).GormDBDataType(db, field)
}

// GormValue implements gorm.Valuer.
func (p Payload) GormValue(ctx context.Context, db *gorm.DB) clause.Expr {
	return datatypes.JSONMap(p).GormValue(ctx, db)
}

// Clone returns a deep copy normalised to JSON-native types.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for key, value := range p {
		out[key] = Normalize(value)
	}
	return out
}

// With returns a copy of p with key set to value.
func (p Payload) With(key string, value any) Payload {
	out := p.Clone()
	out[key] = Normalize(value)
	return out
}

// Without returns a copy of p with the keys removed.
func (p Payload) Without(keys ...string) Payload {
	out := p.Clone()
	for _, key := range keys {
		delete(out, key)
	}
	return out
}

// Has reports whether key is present.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the trimmed string stored under key.
func (p Payload) String(key string) string {
	if v, ok := p[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// Strings returns the string list stored under key.
func (p Payload) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Int returns the integer stored under key. Numeric strings are accepted;
// anything that does not coerce reads as zero.
func (p Payload) Int(key string) int {
	n, _ := p.IntE(key)
	return n
}

// IntE returns the integer stored under key, or an error when the value is
// not an integer.
func (p Payload) IntE(key string) (int, error) {
	value := p[key]
	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}
	if f, ok := value.(float64); ok && f != float64(int64(f)) {
		return 0, fmt.Errorf("%s must be a whole number", key)
	}
	return cast.ToIntE(value)
}

// Time parses the RFC3339 timestamp stored under key.
func (p Payload) Time(key string) (time.Time, bool) {
	raw := p.String(key)
	if raw == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// OpenTo returns the publication mode, defaulting to selected sellers.
func (p Payload) OpenTo() OpenTo {
	switch OpenTo(p.String(FieldOpenTo)) {
	case OpenToAll:
		return OpenToAll
	case OpenToCategory:
		return OpenToCategory
	}
	if SellerSelector(p.String(FieldSellerSelector)) == SellerSelectorAll {
		return OpenToAll
	}
	return OpenToSelected
}

// SellerSelector returns the named-seller selection mode.
func (p Payload) SellerSelector() SellerSelector {
	return SellerSelector(p.String(FieldSellerSelector))
}

// SellerCategory returns the designated category key, if any.
func (p Payload) SellerCategory() string {
	return p.String(FieldSellerCategory)
}

// CategoryScoped reports whether the opportunity is restricted to a designated category.
func (p Payload) CategoryScoped() bool {
	return p.OpenTo() != OpenToAll && p.SellerCategory() != ""
}

// Sellers returns the invited seller set.
func (p Payload) Sellers() InvitedSellers {
	out := InvitedSellers{}
	raw, ok := p[FieldSellers].(map[string]any)
	if !ok {
		if typed, ok := p[FieldSellers].(InvitedSellers); ok {
			for code, seller := range typed {
				out[code] = seller
			}
		}
		return out
	}
	for code, value := range raw {
		seller := InvitedSeller{}
		if meta, ok := value.(map[string]any); ok {
			if name, ok := meta["name"].(string); ok {
				seller.Name = name
			}
		}
		out[code] = seller
	}
	return out
}

// Normalize converts a value into the JSON-native representation stored in
// the database, so that freshly built and reloaded payloads compare equal.
func Normalize(value any) any {
	switch v := value.(type) {
	case nil, string, bool, float64:
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Normalize(item)
		}
		return out
	}

	data, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return value
	}
	return decoded
}
