package core

import (
	"context"
	"strings"

	"wellbeingcore/pkg/domain"
)

// SubmitCheckIn records a student mood check-in. The student record's latest
// feeling and every role feed update in the same transaction.
func (s *Service) SubmitCheckIn(ctx context.Context, studentID string, feeling domain.Feeling, ageGroup domain.AgeGroup, answers map[string]string) (domain.CheckIn, error) {
	var checkIn domain.CheckIn
	_, err := s.run(ctx, "submit_check_in", func(tx domain.Transaction) error {
		c, err := tx.AppendCheckIn(domain.CheckIn{
			StudentID: studentID,
			Feeling:   feeling,
			AgeGroup:  ageGroup,
			Answers:   answers,
		})
		if err != nil {
			return err
		}
		checkIn = c
		return nil
	})
	return checkIn, err
}

// WriteJournalToday writes the student's journal entry for the current day:
// today's entry is updated if it exists and is still editable, otherwise a new
// entry is created.
func (s *Service) WriteJournalToday(ctx context.Context, studentID, title, content string) (domain.JournalEntry, error) {
	var entry domain.JournalEntry
	_, err := s.run(ctx, "write_journal_today", func(tx domain.Transaction) error {
		dayKey := domain.DayKey(tx.Now())
		if existing, ok := tx.Snapshot().JournalEntryForDay(studentID, dayKey); ok {
			e, err := tx.UpdateJournalEntry(existing.ID, func(j *domain.JournalEntry) error {
				j.Title = title
				j.Content = content
				return nil
			})
			if err != nil {
				return err
			}
			entry = e
			return nil
		}
		e, err := tx.CreateJournalEntry(domain.JournalEntry{
			StudentID: studentID,
			Title:     title,
			Content:   content,
		})
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	return entry, err
}

// AddJournalEntry creates a journal entry for the transaction's current day.
// A second entry for the same day is rejected at commit.
func (s *Service) AddJournalEntry(ctx context.Context, studentID, title, content string) (domain.JournalEntry, error) {
	var entry domain.JournalEntry
	_, err := s.run(ctx, "add_journal_entry", func(tx domain.Transaction) error {
		e, err := tx.CreateJournalEntry(domain.JournalEntry{
			StudentID: studentID,
			Title:     title,
			Content:   content,
		})
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	return entry, err
}

// UpdateJournalEntry edits an existing entry's title and content. Entries past
// the 24-hour edit window are locked and the edit is rejected at commit.
func (s *Service) UpdateJournalEntry(ctx context.Context, entryID, title, content string) (domain.JournalEntry, error) {
	var entry domain.JournalEntry
	_, err := s.run(ctx, "update_journal_entry", func(tx domain.Transaction) error {
		e, err := tx.UpdateJournalEntry(entryID, func(j *domain.JournalEntry) error {
			j.Title = title
			j.Content = content
			return nil
		})
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	return entry, err
}

// AddHabit creates a habit for the student.
func (s *Service) AddHabit(ctx context.Context, studentID, name, emoji string) (domain.Habit, error) {
	var habit domain.Habit
	_, err := s.run(ctx, "add_habit", func(tx domain.Transaction) error {
		h, err := tx.CreateHabit(domain.Habit{
			StudentID: studentID,
			Name:      strings.TrimSpace(name),
			Emoji:     emoji,
		})
		if err != nil {
			return err
		}
		habit = h
		return nil
	})
	return habit, err
}

// ToggleHabitToday flips the habit's completion for the current day.
func (s *Service) ToggleHabitToday(ctx context.Context, habitID string) (domain.Habit, error) {
	return s.ToggleHabitDate(ctx, habitID, "")
}

// ToggleHabitDate flips the habit's completion for the given day key. An empty
// day key targets the transaction's current day.
func (s *Service) ToggleHabitDate(ctx context.Context, habitID, dayKey string) (domain.Habit, error) {
	var habit domain.Habit
	_, err := s.run(ctx, "toggle_habit_date", func(tx domain.Transaction) error {
		h, err := tx.ToggleHabitDate(habitID, dayKey)
		if err != nil {
			return err
		}
		habit = h
		return nil
	})
	return habit, err
}

// ToggleCrisisAction flips a crisis plan action in the student's done set.
func (s *Service) ToggleCrisisAction(ctx context.Context, studentID, action string) (domain.StudentRecord, error) {
	action = strings.TrimSpace(action)
	var rec domain.StudentRecord
	_, err := s.run(ctx, "toggle_crisis_action", func(tx domain.Transaction) error {
		if action == "" {
			return errEmptyCrisisAction
		}
		r, err := tx.UpdateStudentRecord(studentID, func(sr *domain.StudentRecord) error {
			sr.CrisisActionsDone = toggleSortedSet(sr.CrisisActionsDone, action)
			return nil
		})
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	return rec, err
}

// SubmitIncidentReport files an incident report in the received state. An
// anonymous report omits the student id.
func (s *Service) SubmitIncidentReport(ctx context.Context, studentID, reportType, description, reportContext string, anonymous bool) (domain.IncidentReport, error) {
	var report domain.IncidentReport
	_, err := s.run(ctx, "submit_incident_report", func(tx domain.Transaction) error {
		if !tx.Snapshot().SchoolConfig().EnableIncidentReports {
			return errReportsDisabled
		}
		r := domain.IncidentReport{
			StudentID:   studentID,
			Type:        reportType,
			Description: description,
			Context:     reportContext,
			Anonymous:   anonymous,
		}
		if anonymous {
			r.StudentID = ""
		}
		created, err := tx.CreateIncidentReport(r)
		if err != nil {
			return err
		}
		report = created
		return nil
	})
	return report, err
}
