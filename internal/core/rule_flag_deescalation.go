package core

import (
	"context"
	"fmt"

	"wellbeingcore/pkg/domain"
)

// FlagDeescalationRule warns when a student's crisis flag is lowered. Who may
// lower a crisis flag is a policy question outside the core, so the transition
// commits, but it is never silent.
func FlagDeescalationRule() domain.Rule {
	return flagDeescalationRule{}
}

type flagDeescalationRule struct{}

func (flagDeescalationRule) Name() string { return "flag_deescalation" }

func (flagDeescalationRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityStudentRecord || change.Action != domain.ActionUpdate {
			continue
		}
		before, ok := change.Before.(domain.StudentRecord)
		if !ok || before.Flag != domain.FlagCrisis {
			continue
		}
		after, ok := change.After.(domain.StudentRecord)
		if !ok {
			continue
		}
		if domain.FlagRank(after.Flag) < domain.FlagRank(domain.FlagCrisis) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "flag_deescalation",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("student %s flag lowered from crisis to %s", after.ID, after.Flag),
				Entity:   domain.EntityStudentRecord,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
