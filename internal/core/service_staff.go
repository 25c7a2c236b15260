package core

import (
	"context"
	"sort"
	"strings"

	"wellbeingcore/pkg/domain"
)

// phq9Answers is the PHQ-9 item count; item 9 (index 8) screens for self-harm.
const phq9Answers = 9

// gad7Answers is the GAD-7 item count.
const gad7Answers = 7

// cssrsAnswers is the C-SSRS screener item count.
const cssrsAnswers = 6

// UpsertStudentRecord creates or replaces the canonical student record.
func (s *Service) UpsertStudentRecord(ctx context.Context, rec domain.StudentRecord) (domain.StudentRecord, error) {
	var out domain.StudentRecord
	_, err := s.run(ctx, "upsert_student_record", func(tx domain.Transaction) error {
		r, err := tx.UpsertStudentRecord(rec)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// SetStudentFlag sets the student's severity flag directly. Lowering a crisis
// flag commits with a warning from the de-escalation rule.
func (s *Service) SetStudentFlag(ctx context.Context, studentID string, flag domain.Flag) (domain.StudentRecord, domain.Result, error) {
	var out domain.StudentRecord
	res, err := s.run(ctx, "set_student_flag", func(tx domain.Transaction) error {
		r, err := tx.UpdateStudentRecord(studentID, func(sr *domain.StudentRecord) error {
			if !domain.ValidFlag(flag) {
				flag = domain.FlagNone
			}
			sr.Flag = flag
			return nil
		})
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, res, err
}

// SetStudentNotes replaces the staff notes on the student record.
func (s *Service) SetStudentNotes(ctx context.Context, studentID, notes string) (domain.StudentRecord, error) {
	var out domain.StudentRecord
	_, err := s.run(ctx, "set_student_notes", func(tx domain.Transaction) error {
		r, err := tx.UpdateStudentRecord(studentID, func(sr *domain.StudentRecord) error {
			sr.Notes = notes
			return nil
		})
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// SavePHQ9 stores a PHQ-9 result on the student record. A positive item 9
// appends a safety event and escalates the flag to crisis in the same
// transaction, so the score and its escalation cannot be observed apart.
func (s *Service) SavePHQ9(ctx context.Context, studentID string, answers []int) (domain.StudentRecord, error) {
	var out domain.StudentRecord
	_, err := s.run(ctx, "save_phq9", func(tx domain.Transaction) error {
		if !tx.Snapshot().SchoolConfig().EnableQuestionnaires {
			return errQuestionnairesDisabled
		}
		if len(answers) != phq9Answers {
			return errBadAnswerCount
		}
		r, err := tx.UpdateStudentRecord(studentID, func(sr *domain.StudentRecord) error {
			sr.PHQ9 = &domain.QuestionnaireResult{
				Answers:   append([]int(nil), answers...),
				CreatedAt: tx.Now(),
			}
			if answers[phq9Answers-1] >= 1 {
				sr.Flag = domain.EscalateFlag(sr.Flag, domain.FlagCrisis)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if answers[phq9Answers-1] >= 1 {
			if _, err := tx.AppendSafetyEvent(domain.SafetyEvent{
				StudentID:        studentID,
				Kind:             domain.SafetyEventPHQ9Q9,
				ShownHelplines:   true,
				ShownMessages:    true,
				ShownSuggestions: true,
			}); err != nil {
				return err
			}
		}
		out = r
		return nil
	})
	return out, err
}

// SaveGAD7 stores a GAD-7 result on the student record.
func (s *Service) SaveGAD7(ctx context.Context, studentID string, answers []int) (domain.StudentRecord, error) {
	var out domain.StudentRecord
	_, err := s.run(ctx, "save_gad7", func(tx domain.Transaction) error {
		if !tx.Snapshot().SchoolConfig().EnableQuestionnaires {
			return errQuestionnairesDisabled
		}
		if len(answers) != gad7Answers {
			return errBadAnswerCount
		}
		r, err := tx.UpdateStudentRecord(studentID, func(sr *domain.StudentRecord) error {
			sr.GAD7 = &domain.QuestionnaireResult{
				Answers:   append([]int(nil), answers...),
				CreatedAt: tx.Now(),
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// SaveCSSRS stores a C-SSRS screener result. Any affirmative answer appends a
// safety event and escalates the flag; items are indexed from zero: items 4
// and 5 reach crisis, items 2 and 3 reach red, items 0 and 1 reach orange.
// Escalation never lowers a flag.
func (s *Service) SaveCSSRS(ctx context.Context, studentID string, answers []bool) (domain.StudentRecord, error) {
	var out domain.StudentRecord
	_, err := s.run(ctx, "save_cssrs", func(tx domain.Transaction) error {
		if !tx.Snapshot().SchoolConfig().EnableQuestionnaires {
			return errQuestionnairesDisabled
		}
		if len(answers) != cssrsAnswers {
			return errBadAnswerCount
		}
		target := cssrsFlagTarget(answers)
		r, err := tx.UpdateStudentRecord(studentID, func(sr *domain.StudentRecord) error {
			sr.CSSRS = &domain.CSSRSResult{
				Answers:   append([]bool(nil), answers...),
				CreatedAt: tx.Now(),
			}
			if target != domain.FlagNone {
				sr.Flag = domain.EscalateFlag(sr.Flag, target)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if target != domain.FlagNone {
			if _, err := tx.AppendSafetyEvent(domain.SafetyEvent{
				StudentID:        studentID,
				Kind:             domain.SafetyEventCSSRS,
				ShownHelplines:   true,
				ShownMessages:    true,
				ShownSuggestions: true,
			}); err != nil {
				return err
			}
		}
		out = r
		return nil
	})
	return out, err
}

// cssrsFlagTarget maps the highest affirmative screener item to a flag tier.
func cssrsFlagTarget(answers []bool) domain.Flag {
	target := domain.FlagNone
	for i, yes := range answers {
		if !yes {
			continue
		}
		switch {
		case i >= 4:
			return domain.FlagCrisis
		case i >= 2:
			target = domain.EscalateFlag(target, domain.FlagRed)
		default:
			target = domain.EscalateFlag(target, domain.FlagOrange)
		}
	}
	return target
}

// RecordSafetyEvent appends a safety event for audit outside the questionnaire
// flows, for example when the crisis overlay is shown directly.
func (s *Service) RecordSafetyEvent(ctx context.Context, ev domain.SafetyEvent) (domain.SafetyEvent, error) {
	var out domain.SafetyEvent
	_, err := s.run(ctx, "record_safety_event", func(tx domain.Transaction) error {
		created, err := tx.AppendSafetyEvent(ev)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	return out, err
}

// CreateGroup creates a named student group.
func (s *Service) CreateGroup(ctx context.Context, name string, memberIDs []string) (domain.Group, error) {
	var out domain.Group
	_, err := s.run(ctx, "create_group", func(tx domain.Transaction) error {
		members := append([]string(nil), memberIDs...)
		g, err := tx.CreateGroup(domain.Group{Name: strings.TrimSpace(name), MemberIDs: dedupeSortedMembers(members)})
		if err != nil {
			return err
		}
		out = g
		return nil
	})
	return out, err
}

// ToggleGroupMember flips a student's membership in the group.
func (s *Service) ToggleGroupMember(ctx context.Context, groupID, studentID string) (domain.Group, error) {
	var out domain.Group
	_, err := s.run(ctx, "toggle_group_member", func(tx domain.Transaction) error {
		g, err := tx.ToggleGroupMember(groupID, studentID)
		if err != nil {
			return err
		}
		out = g
		return nil
	})
	return out, err
}

func dedupeSortedMembers(ids []string) []string {
	out := []string{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	deduped := out[:0]
	for _, id := range out {
		if len(deduped) == 0 || deduped[len(deduped)-1] != id {
			deduped = append(deduped, id)
		}
	}
	return deduped
}
