package core

import (
	"context"
	"testing"

	"wellbeingcore/pkg/domain"
)

func TestSendBroadcastFansOutOneInboxMessage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	broadcast, err := svc.SendBroadcast(ctx, "Wellness week", "Activities start Monday.")
	if err != nil {
		t.Fatalf("send broadcast: %v", err)
	}
	if broadcast.Title != "Wellness week" {
		t.Errorf("unexpected title %q", broadcast.Title)
	}

	if err := svc.View(ctx, func(v domain.TransactionView) error {
		if got := len(v.ListBroadcasts()); got != 1 {
			t.Errorf("expected 1 broadcast, got %d", got)
		}
		inbox := v.StudentInbox("stu_anyone")
		if len(inbox) != 1 {
			t.Fatalf("expected exactly one fanned-out message, got %d", len(inbox))
		}
		m := inbox[0]
		if m.ToRole != domain.RoleStudent || m.ToStudentID != nil {
			t.Errorf("fan-out addresses the whole student role, got %+v", m)
		}
		if m.Subject != "Wellness week" || m.Body != "Activities start Monday." {
			t.Errorf("fan-out must carry the broadcast content, got %+v", m)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestEditMessageAppendsHistory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, domain.RoleCounselor, "Jordan", domain.RoleStudent, nil, "check in", "original")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	edited, err := svc.EditMessage(ctx, msg.ID, "revised")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Body != "revised" {
		t.Errorf("body not replaced, got %q", edited.Body)
	}
	if edited.EditedAt == nil {
		t.Error("edit must stamp EditedAt")
	}
	if len(edited.History) != 2 || edited.History[0].Body != "original" || edited.History[1].Body != "revised" {
		t.Errorf("history must record both revisions, got %+v", edited.History)
	}
}

func TestEditBroadcastAppendsHistory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b, err := svc.SendBroadcast(ctx, "Assembly", "Friday at noon.")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	edited, err := svc.EditBroadcast(ctx, b.ID, "Friday at one.")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(edited.History) != 2 {
		t.Errorf("expected two revisions, got %d", len(edited.History))
	}
}

func TestMarkMessageReadViaService(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, domain.RoleTeacher, "Ms. Lee", domain.RoleStudent, nil, "hi", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	read, err := svc.MarkMessageRead(ctx, msg.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if read.ReadAt == nil || !read.ReadAt.Equal(testNow) {
		t.Errorf("expected read at %v, got %v", testNow, read.ReadAt)
	}
}
