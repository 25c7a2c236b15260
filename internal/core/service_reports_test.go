package core

import (
	"context"
	"errors"
	"testing"

	"wellbeingcore/pkg/domain"
)

// newReportService returns a service with incident reports enabled and one
// report filed.
func newReportService(t *testing.T) (*Service, domain.IncidentReport) {
	t.Helper()
	svc := newTestService(t)
	cfg := svc.SchoolConfig()
	cfg.EnableIncidentReports = true
	if _, err := svc.UpdateSchoolConfig(context.Background(), cfg); err != nil {
		t.Fatalf("enable reports: %v", err)
	}
	report, err := svc.SubmitIncidentReport(context.Background(), "stu_1", "bullying", "recurring taunting in the hallway", "after third period", false)
	if err != nil {
		t.Fatalf("submit report: %v", err)
	}
	return svc, report
}

func TestReportLifecycle(t *testing.T) {
	svc, report := newReportService(t)
	ctx := context.Background()

	reviewing, err := svc.SetReportStatus(ctx, report.ID, domain.ReportReviewing)
	if err != nil {
		t.Fatalf("move to reviewing: %v", err)
	}
	if reviewing.ReadAtBySchool == nil {
		t.Error("first transition stamps the school read timestamp")
	}

	resolved, err := svc.ResolveReport(ctx, report.ID, "Followed up with guardian")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != domain.ReportResolved || resolved.ClosedAt == nil {
		t.Errorf("resolution incomplete: %+v", resolved)
	}
	if resolved.ClosureNote != "Followed up with guardian" {
		t.Errorf("closure note lost, got %q", resolved.ClosureNote)
	}

	reopened, err := svc.ReopenReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Status != domain.ReportReviewing {
		t.Errorf("reopen moves back to reviewing, got %s", reopened.Status)
	}
	if reopened.ClosedAt == nil || reopened.ClosureNote == "" {
		t.Error("reopening must keep the prior closure metadata")
	}
}

func TestResolveWithoutNoteBlocked(t *testing.T) {
	svc, report := newReportService(t)
	_, err := svc.ResolveReport(context.Background(), report.ID, "   ")
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected closure note violation, got %v", err)
	}
}

func TestInvalidTransitionBlocked(t *testing.T) {
	svc, report := newReportService(t)
	ctx := context.Background()
	if _, err := svc.ResolveReport(ctx, report.ID, "done"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// resolved -> received is not in the transition table.
	_, err := svc.SetReportStatus(ctx, report.ID, domain.ReportReceived)
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected transition violation, got %v", err)
	}
}

func TestMarkReportReadIsIdempotent(t *testing.T) {
	svc, report := newReportService(t)
	ctx := context.Background()
	first, err := svc.MarkReportRead(ctx, report.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if first.ReadAtBySchool == nil {
		t.Fatal("read timestamp missing")
	}
	again, err := svc.MarkReportRead(ctx, report.ID)
	if err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	if !again.ReadAtBySchool.Equal(*first.ReadAtBySchool) {
		t.Error("re-reading must keep the first timestamp")
	}
	if again.Status != domain.ReportReceived {
		t.Errorf("reading alone must not change status, got %s", again.Status)
	}
}

func TestMissingReport(t *testing.T) {
	svc, _ := newReportService(t)
	_, err := svc.SetReportStatus(context.Background(), "rep_missing", domain.ReportReviewing)
	var nf domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
