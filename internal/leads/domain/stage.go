// Package domain holds the pure lead lifecycle rules: stages, derived status,
// follow-up outcome derivation and lead code allocation. Nothing here touches
// storage or transport.
package domain

import (
	"strings"

	"travel_leads_backend/platform/apperr"
)

// Stage is the lead's position in the sales pipeline.
type Stage string

const (
	StageNew        Stage = "new"
	StageFollowUp   Stage = "follow_up"
	StageQuoted     Stage = "quoted"
	StageClosedWon  Stage = "closed_won"
	StageClosedLost Stage = "closed_lost"
)

// Status is the open/closed flag derived from Stage.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// ReopenedTag marks the stageHistory entry written by a reopen.
const ReopenedTag = "reopened"

var knownStages = map[Stage]struct{}{
	StageNew:        {},
	StageFollowUp:   {},
	StageQuoted:     {},
	StageClosedWon:  {},
	StageClosedLost: {},
}

// ParseStage accepts a stage name case-insensitively.
func ParseStage(raw string) (Stage, bool) {
	stage := Stage(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := knownStages[stage]
	return stage, ok
}

// IsClosed reports whether the stage ends the pipeline.
func (s Stage) IsClosed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// StatusForStage is the only way a lead's status is computed.
func StatusForStage(stage Stage) Status {
	if stage.IsClosed() {
		return StatusClosed
	}
	return StatusOpen
}

// TransitionTitle renders the timeline title for a manual stage change.
func TransitionTitle(stage Stage) string {
	switch stage {
	case StageClosedWon:
		return "Lead closed (won)"
	case StageClosedLost:
		return "Lead closed (lost)"
	default:
		return "Stage changed to " + string(stage)
	}
}

// ValidateTransition checks a requested stage change before anything is
// written. Closed leads only leave their stage through a reopen.
func ValidateTransition(current, next Stage, remark string) error {
	if _, ok := knownStages[next]; !ok {
		return apperr.Validation("unknown stage: " + string(next))
	}
	if next.IsClosed() && strings.TrimSpace(remark) == "" {
		return apperr.Validation("remark required")
	}
	if current.IsClosed() {
		return apperr.Conflict("lead is closed; reopen it first")
	}
	return nil
}

// CheckReopenRequest validates the caller side of a reopen: admin role first,
// then a non-blank reason.
func CheckReopenRequest(isAdmin bool, reason string) error {
	if !isAdmin {
		return apperr.Forbidden("only admins can reopen a lead")
	}
	if strings.TrimSpace(reason) == "" {
		return apperr.Validation("reason required")
	}
	return nil
}

// ValidateReopen checks the admin-only reopen path. Reopening a lead that is
// not closed is rejected rather than treated as a no-op.
func ValidateReopen(current Stage, isAdmin bool, reason string) error {
	if err := CheckReopenRequest(isAdmin, reason); err != nil {
		return err
	}
	if !current.IsClosed() {
		return apperr.Conflict("lead is not closed")
	}
	return nil
}

// EnsureOpen rejects child writes (follow-ups, quotations) on closed leads.
func EnsureOpen(stage Stage, action string) error {
	if stage.IsClosed() {
		return apperr.Conflict("cannot " + action + " on a closed lead")
	}
	return nil
}
