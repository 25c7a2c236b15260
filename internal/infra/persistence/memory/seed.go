package memory

import (
	"time"

	"wellbeingcore/pkg/domain"
)

// SeedSnapshot returns the canonical starter dataset used when no persisted
// snapshot exists or the stored one cannot be decoded. It mirrors the demo
// data the application ships with: a small roster, a welcome broadcast, and
// its fanned-out inbox message.
func SeedSnapshot() Snapshot {
	seededAt := time.Date(2025, time.September, 1, 8, 0, 0, 0, time.UTC)
	welcomeBody := "Welcome back! Check in each morning and reach out to the counselor any time."

	snapshot := Snapshot{
		Version: SnapshotVersion,
		Session: domain.Session{PendingRole: domain.RoleStudent},
		Config: domain.SchoolConfig{
			ShareCheckinsWithTeachers: true,
			ShareJournalWithCounselor: false,
			EnableQuestionnaires:      true,
			EnableIncidentReports:     true,
			EmergencyContact:          "school-counselor@example.edu",
			UpdatedAt:                 seededAt,
		},
		Students: map[string]domain.StudentRecord{
			"stu_1": {ID: "stu_1", Name: "Ava Morgan", Grade: "5", Flag: domain.FlagNone, CreatedAt: seededAt, UpdatedAt: seededAt},
			"stu_2": {ID: "stu_2", Name: "Liam Carter", Grade: "8", Flag: domain.FlagNone, CreatedAt: seededAt, UpdatedAt: seededAt},
			"stu_3": {ID: "stu_3", Name: "Maya Patel", Grade: "10", Flag: domain.FlagNone, CreatedAt: seededAt, UpdatedAt: seededAt},
		},
		Broadcasts: []domain.Broadcast{{
			ID:        "bc_welcome",
			CreatedAt: seededAt,
			Title:     "Welcome back",
			Body:      welcomeBody,
			SentAt:    seededAt,
			History:   []domain.Revision{{Body: welcomeBody, Timestamp: seededAt}},
		}},
		Messages: []domain.Message{{
			ID:        "msg_welcome",
			CreatedAt: seededAt,
			SentAt:    seededAt,
			FromRole:  domain.RolePrincipal,
			FromName:  "Principal's Office",
			ToRole:    domain.RoleStudent,
			Subject:   "Welcome back",
			Body:      welcomeBody,
			History:   []domain.Revision{{Body: welcomeBody, Timestamp: seededAt}},
		}},
		Groups: map[string]domain.Group{
			"grp_mentoring": {ID: "grp_mentoring", Name: "Peer Mentoring", CreatedAt: seededAt, MemberIDs: []string{"stu_1", "stu_3"}},
		},
	}
	return MigrateSnapshot(snapshot)
}
