package core

import (
	"context"
	"fmt"

	"wellbeingcore/pkg/domain"
)

// JournalEditWindowRule blocks journal updates past the 24-hour lock. The
// original UI enforced the lock before dispatch; here the state machine itself
// rejects late edits rather than silently applying them.
func JournalEditWindowRule() domain.Rule {
	return journalEditWindowRule{}
}

type journalEditWindowRule struct{}

func (journalEditWindowRule) Name() string { return "journal_edit_window" }

func (journalEditWindowRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityJournalEntry || change.Action != domain.ActionUpdate {
			continue
		}
		before, ok := change.Before.(domain.JournalEntry)
		if !ok {
			continue
		}
		after, ok := change.After.(domain.JournalEntry)
		if !ok || after.UpdatedAt == nil {
			continue
		}
		if after.UpdatedAt.Sub(before.CreatedAt) > domain.EditWindow {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "journal_edit_window",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("journal entry %s is locked: created %s, edit window is %s", after.ID, before.CreatedAt.Format("2006-01-02"), domain.EditWindow),
				Entity:   domain.EntityJournalEntry,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}

// JournalDayUniqueRule blocks a second entry for the same student and day key.
// Second writes for a day must go through update semantics instead.
func JournalDayUniqueRule() domain.Rule {
	return journalDayUniqueRule{}
}

type journalDayUniqueRule struct{}

func (journalDayUniqueRule) Name() string { return "journal_day_unique" }

func (journalDayUniqueRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityJournalEntry || change.Action != domain.ActionCreate {
			continue
		}
		created, ok := change.After.(domain.JournalEntry)
		if !ok {
			continue
		}
		for _, e := range view.ListJournalEntries() {
			if e.ID == created.ID || e.StudentID != created.StudentID || e.DateKey != created.DateKey {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "journal_day_unique",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("student %s already has a journal entry for %s", created.StudentID, created.DateKey),
				Entity:   domain.EntityJournalEntry,
				EntityID: created.ID,
			})
			break
		}
	}
	return res, nil
}
