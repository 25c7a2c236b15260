package core

import (
	"context"
	"fmt"
	"strings"

	"wellbeingcore/pkg/domain"
)

// ReportTransitionRule blocks illegal incident report status transitions.
// The workflow runs received -> reviewing -> resolved; re-opening a resolved
// report back to reviewing is the only backward edge, and resolving requires
// a non-empty closure note.
func ReportTransitionRule() domain.Rule {
	return reportTransitionRule{}
}

type reportTransitionRule struct{}

var allowedReportTransitions = map[domain.ReportStatus][]domain.ReportStatus{
	domain.ReportReceived:  {domain.ReportReviewing, domain.ReportResolved},
	domain.ReportReviewing: {domain.ReportResolved},
	domain.ReportResolved:  {domain.ReportReviewing},
}

func (reportTransitionRule) Name() string { return "report_transition" }

func (reportTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityIncidentReport {
			continue
		}
		after, ok := change.After.(domain.IncidentReport)
		if !ok {
			continue
		}
		if !domain.ValidReportStatus(after.Status) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "report_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("incident report %s is set to invalid status %s", after.ID, after.Status),
				Entity:   domain.EntityIncidentReport,
				EntityID: after.ID,
			})
			continue
		}
		if after.Status == domain.ReportResolved && strings.TrimSpace(after.ClosureNote) == "" {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "report_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("incident report %s cannot be resolved without a closure note", after.ID),
				Entity:   domain.EntityIncidentReport,
				EntityID: after.ID,
			})
			continue
		}
		if change.Action != domain.ActionUpdate {
			continue
		}
		before, ok := change.Before.(domain.IncidentReport)
		if !ok || before.Status == after.Status {
			continue
		}
		if !transitionAllowed(before.Status, after.Status) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "report_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("cannot move incident report %s from %s to %s", after.ID, before.Status, after.Status),
				Entity:   domain.EntityIncidentReport,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}

func transitionAllowed(from, to domain.ReportStatus) bool {
	for _, next := range allowedReportTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
