package core

import (
	"context"
	"testing"

	"wellbeingcore/pkg/domain"
)

func TestApproveConfigRequestAppliesConfig(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	wanted := domain.SchoolConfig{
		ShareCheckinsWithTeachers: true,
		EnableQuestionnaires:      true,
		EmergencyContact:          "counselor@example.edu",
	}
	req, err := svc.SubmitConfigRequest(ctx, domain.RolePrincipal, wanted)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Status != domain.ConfigRequestPending {
		t.Errorf("new requests start pending, got %s", req.Status)
	}

	approved, err := svc.ApproveConfigRequest(ctx, req.ID, "looks good")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.ConfigRequestApproved || approved.DecidedAt == nil {
		t.Errorf("approval incomplete: %+v", approved)
	}

	live := svc.SchoolConfig()
	if !live.EnableQuestionnaires || live.EmergencyContact != "counselor@example.edu" {
		t.Errorf("approval must copy the requested config live, got %+v", live)
	}
}

func TestRejectConfigRequestLeavesConfigUntouched(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	before := svc.SchoolConfig()
	req, err := svc.SubmitConfigRequest(ctx, domain.RoleTeacher, domain.SchoolConfig{EnableIncidentReports: true})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	rejected, err := svc.RejectConfigRequest(ctx, req.ID, "not this term")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.ConfigRequestRejected || rejected.DecisionNote != "not this term" {
		t.Errorf("rejection incomplete: %+v", rejected)
	}
	after := svc.SchoolConfig()
	if after.EnableIncidentReports != before.EnableIncidentReports {
		t.Error("rejection must not change the live config")
	}
}
