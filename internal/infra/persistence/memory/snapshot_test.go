package memory

import (
	"fmt"
	"testing"
	"time"

	"wellbeingcore/pkg/domain"
)

func TestMigrateSnapshotFillsMissingCollections(t *testing.T) {
	out := MigrateSnapshot(Snapshot{})
	if out.Students == nil || out.Journals == nil || out.Habits == nil || out.Reports == nil || out.ConfigRequests == nil || out.Groups == nil {
		t.Error("nil maps must become empty")
	}
	if out.Session.PendingRole != domain.RoleStudent {
		t.Errorf("pending role defaults to student, got %s", out.Session.PendingRole)
	}
	if out.Version != SnapshotVersion {
		t.Errorf("expected version %d, got %d", SnapshotVersion, out.Version)
	}
}

func TestMigrateSnapshotRepairsEnums(t *testing.T) {
	feeling := domain.Feeling("ecstatic")
	out := MigrateSnapshot(Snapshot{
		Session: domain.Session{User: &domain.User{ID: "u1", Role: "wizard"}},
		Students: map[string]domain.StudentRecord{
			"stu_1": {Flag: "purple", LatestFeeling: &feeling},
		},
		CheckIns: []domain.CheckIn{
			{ID: "ci_1", StudentID: "stu_1", Feeling: "meh", AgeGroup: "adult"},
			{ID: "", StudentID: "stu_1", Feeling: domain.FeelingHappy},
		},
		Reports: map[string]domain.IncidentReport{
			"rep_1": {Description: "something", Status: "archived"},
		},
	})
	if out.Session.User.Role != domain.RoleStudent {
		t.Errorf("invalid user role falls back to student, got %s", out.Session.User.Role)
	}
	if out.Students["stu_1"].Flag != domain.FlagNone {
		t.Errorf("invalid flag falls back to none, got %s", out.Students["stu_1"].Flag)
	}
	if len(out.CheckIns) != 1 {
		t.Fatalf("check-ins without ids are dropped, got %d", len(out.CheckIns))
	}
	if out.CheckIns[0].Feeling != domain.FeelingNeutral {
		t.Errorf("invalid feeling falls back to neutral, got %s", out.CheckIns[0].Feeling)
	}
	if out.CheckIns[0].AgeGroup != domain.AgeGroupOlder {
		t.Errorf("invalid age group falls back to older, got %s", out.CheckIns[0].AgeGroup)
	}
	if out.Reports["rep_1"].Status != domain.ReportReceived {
		t.Errorf("invalid report status falls back to received, got %s", out.Reports["rep_1"].Status)
	}
	// The surviving check-in is the student's newest; it backfills the feeling
	// cleared by enum repair.
	if out.Students["stu_1"].LatestFeeling == nil || *out.Students["stu_1"].LatestFeeling != domain.FeelingNeutral {
		t.Errorf("latest feeling rebuilt from check-ins, got %v", out.Students["stu_1"].LatestFeeling)
	}
}

func TestMigrateSnapshotTrimsOversizedLogs(t *testing.T) {
	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	var checkIns []domain.CheckIn
	for i := 0; i < domain.PrincipalCheckInCap+25; i++ {
		checkIns = append(checkIns, domain.CheckIn{
			ID:        fmt.Sprintf("ci_%d", i),
			StudentID: "stu_1",
			Feeling:   domain.FeelingNeutral,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	out := MigrateSnapshot(Snapshot{CheckIns: checkIns})
	if len(out.CheckIns) != domain.PrincipalCheckInCap {
		t.Fatalf("expected trim to %d, got %d", domain.PrincipalCheckInCap, len(out.CheckIns))
	}
	// Newest first after the sort; the oldest entries fall off the tail.
	if out.CheckIns[0].ID != fmt.Sprintf("ci_%d", domain.PrincipalCheckInCap+24) {
		t.Errorf("expected newest check-in first, got %s", out.CheckIns[0].ID)
	}
}

func TestMigrateSnapshotLeavesInputUntouched(t *testing.T) {
	in := Snapshot{
		Students: map[string]domain.StudentRecord{
			"stu_1": {Flag: "purple"},
		},
		Journals: map[string]domain.JournalEntry{
			"jr_orphan": {StudentID: "", Content: "no owner"},
		},
		CheckIns: []domain.CheckIn{
			{ID: "ci_1", StudentID: "stu_1", Feeling: "meh"},
		},
	}
	out := MigrateSnapshot(in)

	if len(out.Journals) != 0 {
		t.Fatalf("orphaned journal must be dropped from the result, got %d", len(out.Journals))
	}
	if _, ok := in.Journals["jr_orphan"]; !ok {
		t.Error("input journal map must keep the dropped entry")
	}
	if in.Students["stu_1"].Flag != "purple" {
		t.Errorf("input student must keep its raw flag, got %s", in.Students["stu_1"].Flag)
	}
	if in.CheckIns[0].Feeling != "meh" {
		t.Errorf("input check-in must keep its raw feeling, got %s", in.CheckIns[0].Feeling)
	}
}

func TestMigrateSnapshotEnforcesJournalDayUniqueness(t *testing.T) {
	day := time.Date(2025, 9, 2, 8, 0, 0, 0, time.UTC)
	out := MigrateSnapshot(Snapshot{
		Journals: map[string]domain.JournalEntry{
			"j_old":   {StudentID: "stu_1", CreatedAt: day, Content: "morning"},
			"j_new":   {StudentID: "stu_1", CreatedAt: day.Add(2 * time.Hour), Content: "afternoon"},
			"j_other": {StudentID: "stu_2", CreatedAt: day, Content: "unrelated"},
		},
	})
	if len(out.Journals) != 2 {
		t.Fatalf("expected 2 entries after dedupe, got %d", len(out.Journals))
	}
	if _, kept := out.Journals["j_new"]; !kept {
		t.Error("the newest entry per student/day must win")
	}
	if out.Journals["j_new"].DateKey != "2025-09-02" {
		t.Errorf("missing day key derived from created at, got %s", out.Journals["j_new"].DateKey)
	}
}

func TestMigrateSnapshotSeedsMessageHistory(t *testing.T) {
	created := time.Date(2025, 9, 3, 10, 0, 0, 0, time.UTC)
	out := MigrateSnapshot(Snapshot{
		Messages: []domain.Message{
			{ID: "m_1", FromRole: "robot", ToRole: "everyone", Body: "legacy", CreatedAt: created},
		},
	})
	m := out.Messages[0]
	if m.FromRole != domain.RoleTeacher || m.ToRole != domain.RoleStudent {
		t.Errorf("invalid roles normalized, got %s -> %s", m.FromRole, m.ToRole)
	}
	if len(m.History) != 1 || m.History[0].Body != "legacy" {
		t.Errorf("history seeded from body, got %+v", m.History)
	}
	if !m.SentAt.Equal(created) {
		t.Errorf("sent at defaults to created at, got %v", m.SentAt)
	}
}

func TestMigrateSnapshotDropsUnknownSafetyEvents(t *testing.T) {
	out := MigrateSnapshot(Snapshot{
		SafetyEvents: []domain.SafetyEvent{
			{ID: "ev_1", StudentID: "stu_1", Kind: domain.SafetyEventPHQ9Q9},
			{ID: "ev_2", StudentID: "stu_1", Kind: "unknown_kind"},
			{ID: "", StudentID: "stu_1", Kind: domain.SafetyEventCSSRS},
		},
	})
	if len(out.SafetyEvents) != 1 || out.SafetyEvents[0].ID != "ev_1" {
		t.Errorf("expected only the valid event to survive, got %+v", out.SafetyEvents)
	}
}

func TestSeedSnapshotIsNormalized(t *testing.T) {
	seed := SeedSnapshot()
	if seed.Version != SnapshotVersion {
		t.Errorf("seed must carry the current version, got %d", seed.Version)
	}
	if len(seed.Students) == 0 {
		t.Fatal("seed must provide starter students")
	}
	for id, rec := range seed.Students {
		if rec.Flag != domain.FlagNone {
			t.Errorf("seed student %s must start unflagged, got %s", id, rec.Flag)
		}
	}
	if len(seed.Broadcasts) != 1 || len(seed.Messages) != 1 {
		t.Errorf("seed fans out one welcome broadcast and message, got %d/%d", len(seed.Broadcasts), len(seed.Messages))
	}
}
