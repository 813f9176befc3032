// Package assessment drives an evidence submission through its lifecycle.
// Every function here is pure: it returns the rows to persist and the event
// to emit, and the caller commits them atomically.
package assessment

import (
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/apperror"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/events"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/policy"
)

// Outcome data keys.
const (
	DataFailedCriteria = "failed_criteria"
	DataValueForMoney  = "vfm"
	DataMaxPrice       = "max_price"
)

// Transition is the set of writes produced by a lifecycle step.
type Transition struct {
	Submission models.EvidenceSubmission
	// From is the status the submission must still hold when the write lands.
	From    models.EvidenceStatus
	Seller  models.Seller
	Outcome *models.AssessmentOutcome
	Event   *events.Event
}

// Rejection carries the caller-supplied reasons for a rejection.
type Rejection struct {
	FailedCriteria map[string]any
	ValueForMoney  *bool
}

// Submit moves a draft submission to submitted once it carries a valid rate
// and enough criteria responses for its category.
func Submit(submission models.EvidenceSubmission, seller models.Seller, category models.Category, now time.Time) (Transition, error) {
	if err := checkOwnership(submission, seller, category); err != nil {
		return Transition{}, err
	}
	if submission.Status != models.EvidenceStatusDraft {
		return Transition{}, apperror.StateConflict("not draft")
	}
	if err := checkComplete(submission, category); err != nil {
		return Transition{}, err
	}

	submitted := submission
	submitted.Status = models.EvidenceStatusSubmitted
	submitted.SubmittedAt = &now
	submitted.UpdatedAt = now

	updated := seller
	if !seller.AssessedIn(category.Key()) {
		updated.Standings = seller.WithStanding(category.Key(), models.StandingSubmitted)
	}

	return Transition{
		Submission: submitted,
		From:       models.EvidenceStatusDraft,
		Seller:     updated,
	}, nil
}

// Approve marks the submission assessed, upgrades the seller's standing in the
// category and merges the proposed rate into the seller's pricing profile.
func Approve(submission models.EvidenceSubmission, seller models.Seller, category models.Category, actor *models.User, now time.Time) (Transition, error) {
	if err := checkAssessable(submission, actor); err != nil {
		return Transition{}, err
	}
	if err := checkOwnership(submission, seller, category); err != nil {
		return Transition{}, err
	}
	if err := checkComplete(submission, category); err != nil {
		return Transition{}, err
	}

	assessed := submission
	assessed.Status = models.EvidenceStatusAssessed
	assessed.UpdatedAt = now

	updated := seller
	updated.Standings = seller.WithStanding(category.Key(), models.StandingAssessed)
	updated.Pricing = seller.WithMaxPrice(category.Key(), submission.ProposedRate)

	outcome := models.AssessmentOutcome{
		EvidenceID: submission.ID,
		Status:     models.OutcomeApproved,
		ActionedBy: actor.ID,
		ActionedAt: now,
		Data:       datatypes.JSONMap{DataMaxPrice: submission.ProposedRate},
	}
	event := events.Assessed(outcome)

	return Transition{
		Submission: assessed,
		From:       models.EvidenceStatusSubmitted,
		Seller:     updated,
		Outcome:    &outcome,
		Event:      &event,
	}, nil
}

// Reject marks the submission rejected. The seller's standing is left as it was.
func Reject(submission models.EvidenceSubmission, seller models.Seller, actor *models.User, rejection Rejection, now time.Time) (Transition, error) {
	if err := checkAssessable(submission, actor); err != nil {
		return Transition{}, err
	}
	if seller.ID != submission.SellerID {
		return Transition{}, apperror.Validation("seller does not own the submission")
	}

	failed := datatypes.JSONMap{}
	for key, value := range rejection.FailedCriteria {
		failed[key] = models.Normalize(value)
	}
	data := datatypes.JSONMap{DataFailedCriteria: map[string]any(failed)}
	if rejection.ValueForMoney != nil {
		data[DataValueForMoney] = *rejection.ValueForMoney
	}

	rejected := submission
	rejected.Status = models.EvidenceStatusRejected
	rejected.UpdatedAt = now

	outcome := models.AssessmentOutcome{
		EvidenceID: submission.ID,
		Status:     models.OutcomeRejected,
		ActionedBy: actor.ID,
		ActionedAt: now,
		Data:       data,
	}
	event := events.Assessed(outcome)

	return Transition{
		Submission: rejected,
		From:       models.EvidenceStatusSubmitted,
		Seller:     seller,
		Outcome:    &outcome,
		Event:      &event,
	}, nil
}

func checkAssessable(submission models.EvidenceSubmission, actor *models.User) error {
	if actor == nil || !actor.CanAssess() {
		return apperror.StateConflict("invalid actor")
	}
	if submission.Status != models.EvidenceStatusSubmitted {
		return apperror.StateConflict("not submitted")
	}
	return nil
}

func checkOwnership(submission models.EvidenceSubmission, seller models.Seller, category models.Category) error {
	if seller.ID != submission.SellerID {
		return apperror.Validation("seller does not own the submission")
	}
	if category.ID != submission.CategoryID {
		return apperror.Validation("category does not match the submission")
	}
	return nil
}

func checkComplete(submission models.EvidenceSubmission, category models.Category) error {
	required, err := policy.RequiredEvidenceCount(category, submission.ProposedRate)
	if err != nil {
		return err
	}
	if answered := submission.AnsweredCriteria(); answered < required {
		return apperror.Validation(fmt.Sprintf("%d criteria responses required, %d provided", required, answered))
	}
	return nil
}
