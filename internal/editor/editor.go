// Package editor applies partial edits to live opportunities.
package editor

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/apperror"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/changeset"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/lot"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/policy"
)

// revalidated lists the fields checked against the lot validator when an edit changes them.
var revalidated = []string{
	models.FieldTitle,
	models.FieldSummary,
	models.FieldSellers,
	models.FieldClosedAt,
}

// Request is a partial edit. Nil fields are left untouched. Document fields
// are only applied when DocumentsEdited is set.
type Request struct {
	Title                *string
	Summary              *string
	ClosedAt             *string
	Sellers              models.InvitedSellers
	DocumentsEdited      bool
	Attachments          *[]string
	RequirementsDocument *[]string
	ResponseTemplate     *[]string
}

// LotResolver resolves the rules for an opportunity's lot.
type LotResolver interface {
	Resolve(lotType models.LotType) (lot.Rules, error)
}

// Result is the outcome of a successful Apply.
type Result struct {
	Opportunity models.Opportunity
	Changes     changeset.ChangeSet
	// Record is nil when the edit changed nothing.
	Record *models.EditRecord
}

// Editor applies edits. It performs no I/O.
type Editor struct {
	lots      LotResolver
	calendar  policy.Calendar
	sanitizer *bluemonday.Policy
}

// New constructs an editor.
func New(lots LotResolver, calendar policy.Calendar) *Editor {
	if calendar == nil {
		calendar = policy.NewBusinessCalendar()
	}
	return &Editor{
		lots:      lots,
		calendar:  calendar,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Apply edits a live opportunity on behalf of actorID. The input is never
// mutated: the returned opportunity carries a fresh payload and, unless the
// edit was a no-op, one more edit record holding the pre-edit snapshot.
func (e *Editor) Apply(opportunity *models.Opportunity, actorID uint, req Request, pc policy.PolicyContext) (Result, error) {
	if opportunity == nil {
		return Result{}, apperror.NotFound("opportunity")
	}
	if !opportunity.IsLive() {
		return Result{}, apperror.StateConflict("opportunity not live")
	}
	if !opportunity.HasUser(actorID) {
		return Result{}, apperror.Unauthorized("actor cannot edit this opportunity")
	}

	rules, err := e.lots.Resolve(opportunity.Lot)
	if err != nil {
		return Result{}, err
	}

	snapshot := opportunity.Payload.Clone()
	next := snapshot.Clone()

	if req.Title != nil {
		next[models.FieldTitle] = e.cleanText(*req.Title)
	}
	if req.Summary != nil {
		next[models.FieldSummary] = e.cleanText(*req.Summary)
	}

	if req.ClosedAt != nil {
		next, err = e.applyClosingDate(next, *req.ClosedAt, pc)
		if err != nil {
			return Result{}, err
		}
	}

	if req.DocumentsEdited {
		next = applyList(next, models.FieldAttachments, req.Attachments)
		next = applyList(next, models.FieldRequirementsDocument, req.RequirementsDocument)
		next = applyList(next, models.FieldResponseTemplate, req.ResponseTemplate)
	}

	if len(req.Sellers) > 0 {
		next = mergeSellers(next, req.Sellers)
	}

	next = strip(next, rules)

	// Dropping fields outside the lot allow-list is not an edit on its own.
	requested := changeset.Diff(strip(snapshot, rules), next)

	var dirty []string
	for _, field := range revalidated {
		if requested.Has(field) {
			dirty = append(dirty, field)
		}
	}
	if violations := rules.Validate(next, dirty); len(violations) > 0 {
		return Result{}, apperror.Validation(violations...)
	}

	updated := *opportunity
	if requested.Empty() {
		return Result{Opportunity: updated, Changes: requested}, nil
	}

	changes := changeset.Diff(snapshot, next)

	record := models.EditRecord{
		OpportunityID: opportunity.ID,
		ActorID:       actorID,
		Snapshot:      snapshot,
		EditedAt:      pc.Now,
	}
	updated.Payload = next
	updated.UpdatedAt = pc.Now
	updated.EditRecords = append(append([]models.EditRecord(nil), opportunity.EditRecords...), record)

	return Result{Opportunity: updated, Changes: changes, Record: &record}, nil
}

func (e *Editor) cleanText(value string) string {
	return strings.TrimSpace(html.UnescapeString(e.sanitizer.Sanitize(value)))
}

// applyClosingDate accepts a new closing time only when it is strictly in the
// future and differs from the current one. Accepting it recomputes the
// questions closing time.
func (e *Editor) applyClosingDate(payload models.Payload, raw string, pc policy.PolicyContext) (models.Payload, error) {
	closedAt, err := parseClosingDate(raw, pc)
	if err != nil {
		return nil, apperror.Validation("closing date must be a valid date")
	}
	if !closedAt.After(pc.Now) {
		return nil, apperror.Validation("closing date must be in the future")
	}
	if current, ok := payload.Time(models.FieldClosedAt); ok && current.Equal(closedAt) {
		return payload, nil
	}

	out := payload.Without(models.FieldQuestionsClosedAt)
	out[models.FieldClosedAt] = closedAt.Format(time.RFC3339)
	questionsClosedAt := e.calendar.QuestionsCloseAt(pc, closedAt)
	out[models.FieldQuestionsClosedAt] = questionsClosedAt.Format(time.RFC3339)
	return out, nil
}

func parseClosingDate(raw string, pc policy.PolicyContext) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.In(pc.Loc()), nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, pc.Loc())
	if err != nil {
		return time.Time{}, err
	}
	hour := pc.ClosingHour
	if hour <= 0 || hour > 23 {
		hour = 18
	}
	return day.Add(time.Duration(hour) * time.Hour), nil
}

func applyList(payload models.Payload, field string, values *[]string) models.Payload {
	if values == nil {
		return payload
	}
	cleaned := make([]string, 0, len(*values))
	for _, value := range *values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return payload.With(field, cleaned)
}

// mergeSellers adds new invitees without dropping existing ones, promoting a
// single-seller selection once more than one seller is invited.
func mergeSellers(payload models.Payload, additions models.InvitedSellers) models.Payload {
	merged := payload.Sellers()
	for code, seller := range additions {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, exists := merged[code]; exists {
			continue
		}
		merged[code] = models.InvitedSeller{Name: strings.TrimSpace(seller.Name)}
	}

	out := payload.With(models.FieldSellers, merged)
	if out.SellerSelector() == models.SellerSelectorOne && len(merged) > 1 {
		out[models.FieldSellerSelector] = string(models.SellerSelectorSome)
	}
	return out
}

func strip(payload models.Payload, rules lot.Rules) models.Payload {
	var disallowed []string
	for field := range payload {
		if !rules.Allows(field) {
			disallowed = append(disallowed, field)
		}
	}
	if len(disallowed) == 0 {
		return payload
	}
	return payload.Without(disallowed...)
}
