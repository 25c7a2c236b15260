package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"wellbeingcore/pkg/domain"
)

var testNow = time.Date(2025, 9, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewInMemoryService(WithClock(func() time.Time { return testNow }))
}

func TestLoginDefaultsToGuestStudent(t *testing.T) {
	svc := newTestService(t)
	user, err := svc.Login(context.Background(), "   ")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Name != "Guest" {
		t.Errorf("blank name logs in as Guest, got %q", user.Name)
	}
	if user.Role != domain.RoleStudent {
		t.Errorf("no pending role defaults to student, got %s", user.Role)
	}
	if user.ID == "" {
		t.Error("login must assign a user id")
	}
}

func TestSelectRoleThenLogin(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.SelectRole(context.Background(), domain.RoleCounselor); err != nil {
		t.Fatalf("select role: %v", err)
	}
	user, err := svc.Login(context.Background(), "Jordan")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Role != domain.RoleCounselor {
		t.Errorf("login adopts the pending role, got %s", user.Role)
	}
}

func TestWriteJournalTodayCreatesThenUpdates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.WriteJournalToday(ctx, "stu_1", "morning", "rough start")
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	second, err := svc.WriteJournalToday(ctx, "stu_1", "evening", "better now")
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("same-day write must update the existing entry, got %s vs %s", first.ID, second.ID)
	}
	if second.Content != "better now" {
		t.Errorf("content not updated, got %q", second.Content)
	}
	if err := svc.View(ctx, func(v domain.TransactionView) error {
		if got := len(v.StudentJournal("stu_1")); got != 1 {
			t.Errorf("expected a single entry for the day, got %d", got)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestAddJournalEntryDuplicateDayBlocked(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.AddJournalEntry(ctx, "stu_1", "one", "first"); err != nil {
		t.Fatalf("first entry: %v", err)
	}
	_, err := svc.AddJournalEntry(ctx, "stu_1", "two", "second")
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected rule violation for duplicate day, got %v", err)
	}
}

func TestUpdateJournalEntryLockedAfterWindow(t *testing.T) {
	clock := testNow
	svc := NewInMemoryService(WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	entry, err := svc.AddJournalEntry(ctx, "stu_1", "day", "original")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clock = testNow.Add(23 * time.Hour)
	if _, err := svc.UpdateJournalEntry(ctx, entry.ID, "day", "revised"); err != nil {
		t.Fatalf("edit inside window: %v", err)
	}

	clock = testNow.Add(25 * time.Hour)
	_, err = svc.UpdateJournalEntry(ctx, entry.ID, "day", "too late")
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected edit window violation, got %v", err)
	}
}

func TestToggleCrisisAction(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.UpsertStudentRecord(ctx, domain.StudentRecord{ID: "stu_1", Name: "Ava"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	rec, err := svc.ToggleCrisisAction(ctx, "stu_1", "called helpline")
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if len(rec.CrisisActionsDone) != 1 {
		t.Fatalf("expected one action, got %v", rec.CrisisActionsDone)
	}
	rec, err = svc.ToggleCrisisAction(ctx, "stu_1", "called helpline")
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if len(rec.CrisisActionsDone) != 0 {
		t.Errorf("double toggle must clear the action, got %v", rec.CrisisActionsDone)
	}
	if _, err := svc.ToggleCrisisAction(ctx, "stu_1", "  "); !errors.Is(err, errEmptyCrisisAction) {
		t.Errorf("expected empty action error, got %v", err)
	}
}

func TestSubmitIncidentReportRespectsConfig(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cfg := svc.SchoolConfig()
	cfg.EnableIncidentReports = true
	if _, err := svc.UpdateSchoolConfig(ctx, cfg); err != nil {
		t.Fatalf("config: %v", err)
	}
	report, err := svc.SubmitIncidentReport(ctx, "stu_1", "bullying", "happened at recess", "", true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if report.Status != domain.ReportReceived {
		t.Errorf("new reports start received, got %s", report.Status)
	}
	if report.StudentID != "" {
		t.Error("anonymous reports must not carry a student id")
	}

	cfg.EnableIncidentReports = false
	if _, err := svc.UpdateSchoolConfig(ctx, cfg); err != nil {
		t.Fatalf("config: %v", err)
	}
	if _, err := svc.SubmitIncidentReport(ctx, "stu_1", "bullying", "again", "", false); !errors.Is(err, errReportsDisabled) {
		t.Errorf("expected reports disabled error, got %v", err)
	}
}

func TestServiceWarningsAreLogged(t *testing.T) {
	logger := &captureLogger{}
	svc := NewInMemoryService(WithClock(func() time.Time { return testNow }), WithLogger(logger))
	ctx := context.Background()
	if _, err := svc.UpsertStudentRecord(ctx, domain.StudentRecord{ID: "stu_1", Name: "Ava", Flag: domain.FlagCrisis}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	_, res, err := svc.SetStudentFlag(ctx, "stu_1", domain.FlagNone)
	if err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if len(res.Warnings()) != 1 {
		t.Fatalf("expected one de-escalation warning, got %+v", res.Violations)
	}
	if logger.warns == 0 {
		t.Error("committed warnings must reach the logger")
	}
}

type captureLogger struct {
	infos int
	warns int
	errs  int
}

func (l *captureLogger) Infof(string, ...any)  { l.infos++ }
func (l *captureLogger) Warnf(string, ...any)  { l.warns++ }
func (l *captureLogger) Errorf(string, ...any) { l.errs++ }
