package domain

import (
	"context"
	"time"
)

// Retention caps for append-only logs. Collections are prepend-ordered and
// eviction trims the tail, so the retained entries are the most recent N.
const (
	// StudentCheckInCap bounds the student's own check-in feed.
	StudentCheckInCap = 200
	// CounselorCheckInCap bounds the counselor aggregate feed.
	CounselorCheckInCap = 800
	// PrincipalCheckInCap bounds the principal aggregate feed and the
	// canonical check-in log itself.
	PrincipalCheckInCap = 1200
	// MessageLogCap bounds the canonical message log.
	MessageLogCap = 500
	// BroadcastLogCap bounds the broadcast log.
	BroadcastLogCap = 200
	// SafetyEventCap bounds the safety event log.
	SafetyEventCap = 500
)

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Implementations stamp timestamps from
// the transaction clock and generate ids, so callers never read external time.
type Transaction interface {
	Snapshot() TransactionView
	Now() time.Time

	SetPendingRole(role Role) Session
	SetUser(user User) (User, error)
	ClearUser() Session

	SetSchoolConfig(cfg SchoolConfig) SchoolConfig
	UpsertStudentRecord(rec StudentRecord) (StudentRecord, error)
	UpdateStudentRecord(id string, mutator func(*StudentRecord) error) (StudentRecord, error)

	AppendCheckIn(c CheckIn) (CheckIn, error)

	CreateJournalEntry(e JournalEntry) (JournalEntry, error)
	UpdateJournalEntry(id string, mutator func(*JournalEntry) error) (JournalEntry, error)

	CreateHabit(h Habit) (Habit, error)
	UpdateHabit(id string, mutator func(*Habit) error) (Habit, error)
	ToggleHabitDate(id, dayKey string) (Habit, error)

	CreateMessage(m Message) (Message, error)
	UpdateMessage(id string, mutator func(*Message) error) (Message, error)
	MarkMessageRead(id string) (Message, error)

	CreateBroadcast(b Broadcast) (Broadcast, error)
	UpdateBroadcast(id string, mutator func(*Broadcast) error) (Broadcast, error)

	AppendSafetyEvent(ev SafetyEvent) (SafetyEvent, error)

	CreateIncidentReport(r IncidentReport) (IncidentReport, error)
	UpdateIncidentReport(id string, mutator func(*IncidentReport) error) (IncidentReport, error)

	CreateConfigRequest(r SchoolConfigRequest) (SchoolConfigRequest, error)
	UpdateConfigRequest(id string, mutator func(*SchoolConfigRequest) error) (SchoolConfigRequest, error)

	CreateGroup(g Group) (Group, error)
	UpdateGroup(id string, mutator func(*Group) error) (Group, error)
	ToggleGroupMember(groupID, studentID string) (Group, error)
}

// TransactionView provides read-only access to snapshot data, including the
// role-scoped projections that replace the original duplicated mirror arrays.
type TransactionView interface {
	RuleView

	StudentCheckIns(studentID string) []CheckIn
	CounselorCheckIns() []CheckIn
	PrincipalCheckIns() []CheckIn
	StudentJournal(studentID string) []JournalEntry
	JournalEntryForDay(studentID, dayKey string) (JournalEntry, bool)
	StudentHabits(studentID string) []Habit
	StudentInbox(studentID string) []Message
	MessagesForRole(role Role) []Message
	StudentSafetyEvents(studentID string) []SafetyEvent
	StudentReports(studentID string) []IncidentReport
	SchoolReports() []IncidentReport
	FindConfigRequest(id string) (SchoolConfigRequest, bool)
	FindGroup(id string) (Group, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	Session() Session
	SchoolConfig() SchoolConfig
	GetStudentRecord(id string) (StudentRecord, bool)
	ListStudentRecords() []StudentRecord
	StudentCheckIns(studentID string) []CheckIn
	CounselorCheckIns() []CheckIn
	PrincipalCheckIns() []CheckIn
	ListSafetyEvents() []SafetyEvent
	ListIncidentReports() []IncidentReport
}
