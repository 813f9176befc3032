// Package events carries the workflow events handed to the external notifier.
package events

import (
	"time"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/changeset"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// Kind names a workflow event.
type Kind string

const (
	KindOpportunityEdited Kind = "opportunity-edited"
	KindEvidenceApproved  Kind = "evidence-approved"
	KindEvidenceRejected  Kind = "evidence-rejected"
)

// Event is an abstract notification request. The engine never delivers it;
// a Publisher hands it to the notifier.
type Event struct {
	ID         string                    `json:"id"`
	Source     string                    `json:"source,omitempty"`
	Kind       Kind                      `json:"kind"`
	SubjectID  uint                      `json:"subject_id"`
	Changes    changeset.ChangeSet       `json:"changes,omitempty"`
	Outcome    *models.AssessmentOutcome `json:"outcome,omitempty"`
	OccurredAt time.Time                 `json:"occurred_at"`
}

// OpportunityEdited describes a committed opportunity edit.
func OpportunityEdited(opportunityID uint, changes changeset.ChangeSet, at time.Time) Event {
	return Event{
		Kind:       KindOpportunityEdited,
		SubjectID:  opportunityID,
		Changes:    changes,
		OccurredAt: at,
	}
}

// Assessed describes a terminal assessment decision on an evidence submission.
func Assessed(outcome models.AssessmentOutcome) Event {
	kind := KindEvidenceApproved
	if outcome.Status == models.OutcomeRejected {
		kind = KindEvidenceRejected
	}
	return Event{
		Kind:       kind,
		SubjectID:  outcome.EvidenceID,
		Outcome:    &outcome,
		OccurredAt: outcome.ActionedAt,
	}
}
