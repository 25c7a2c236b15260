// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by wellbeingcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntitySession identifies the login session record.
	EntitySession EntityType = "session"
	// EntityStudentRecord identifies the canonical per-student record shared by staff views.
	EntityStudentRecord EntityType = "student_record"
	// EntityCheckIn identifies a student mood check-in record.
	EntityCheckIn EntityType = "check_in"
	// EntityJournalEntry identifies a journal entry record.
	EntityJournalEntry EntityType = "journal_entry"
	// EntityHabit identifies a habit record.
	EntityHabit EntityType = "habit"
	// EntityMessage identifies a message record.
	EntityMessage EntityType = "message"
	// EntityBroadcast identifies a school broadcast record.
	EntityBroadcast EntityType = "broadcast"
	// EntitySafetyEvent identifies a questionnaire safety event record.
	EntitySafetyEvent EntityType = "safety_event"
	// EntityIncidentReport identifies an incident report record.
	EntityIncidentReport EntityType = "incident_report"
	// EntitySchoolConfig identifies the live school configuration.
	EntitySchoolConfig EntityType = "school_config"
	// EntityConfigRequest identifies a school configuration change request.
	EntityConfigRequest EntityType = "config_request"
	// EntityGroup identifies a student group record.
	EntityGroup EntityType = "group"
)

// Role enumerates the user roles recognised by the application shell.
type Role string

// Canonical roles. Role selection is an identity choice, not authentication.
const (
	RoleStudent   Role = "student"
	RoleTeacher   Role = "teacher"
	RoleParent    Role = "parent"
	RoleCounselor Role = "counselor"
	RolePrincipal Role = "principal"
	RoleAdmin     Role = "admin"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleParent, RoleCounselor, RolePrincipal, RoleAdmin:
		return true
	}
	return false
}

// Feeling enumerates the check-in mood scale.
type Feeling string

// Check-in feelings ordered from most to least positive.
const (
	FeelingHappy   Feeling = "happy"
	FeelingNeutral Feeling = "neutral"
	FeelingFlat    Feeling = "flat"
	FeelingWorried Feeling = "worried"
	FeelingSad     Feeling = "sad"
)

// ValidFeeling reports whether f is a known feeling.
func ValidFeeling(f Feeling) bool {
	switch f {
	case FeelingHappy, FeelingNeutral, FeelingFlat, FeelingWorried, FeelingSad:
		return true
	}
	return false
}

// AgeGroup selects the question set presented during a check-in.
type AgeGroup string

// Supported age bands.
const (
	AgeGroupYounger AgeGroup = "6-10"
	AgeGroupOlder   AgeGroup = "11-17"
)

// Flag is the severity marker carried on a student record.
type Flag string

// Student record flags ordered by severity.
const (
	FlagNone   Flag = "none"
	FlagOrange Flag = "orange"
	FlagRed    Flag = "red"
	FlagCrisis Flag = "crisis"
)

// FlagRank maps a flag to its severity ordinal, with unknown flags ranked lowest.
func FlagRank(f Flag) int {
	switch f {
	case FlagOrange:
		return 1
	case FlagRed:
		return 2
	case FlagCrisis:
		return 3
	default:
		return 0
	}
}

// ValidFlag reports whether f is a known flag.
func ValidFlag(f Flag) bool {
	switch f {
	case FlagNone, FlagOrange, FlagRed, FlagCrisis:
		return true
	}
	return false
}

// EscalateFlag returns the more severe of current and target. Escalation is
// one-way: lowering a flag requires an explicit staff action, never this helper.
func EscalateFlag(current, target Flag) Flag {
	if FlagRank(target) > FlagRank(current) {
		return target
	}
	return current
}

// User is the ephemeral session identity, created at login and destroyed at logout.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Session tracks the logged-in user and the role chosen before login.
type Session struct {
	User        *User `json:"user"`
	PendingRole Role  `json:"pending_role"`
}

// CheckIn is a student's self-reported feeling plus answers for a moment in time.
// Immutable once created; role feeds derive from the canonical prepend-ordered log.
type CheckIn struct {
	ID        string            `json:"id"`
	StudentID string            `json:"student_id"`
	CreatedAt time.Time         `json:"created_at"`
	Feeling   Feeling           `json:"feeling"`
	AgeGroup  AgeGroup          `json:"age_group"`
	Answers   map[string]string `json:"answers,omitempty"`
}

// Check-in answer registry. The answer bag is an open map; these are the keys
// the bundled question sets write.
const (
	AnswerKeyStressor   = "stressor"
	AnswerKeyTrigger    = "trigger"
	AnswerKeySleepHours = "sleep_hours"
	AnswerKeyNote       = "note"
)

// JournalEntry is a per-day student journal record. At most one entry exists
// per student per day key, and entries lock 24 hours after creation.
type JournalEntry struct {
	ID        string     `json:"id"`
	StudentID string     `json:"student_id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	DateKey   string     `json:"date_key"`
}

// EditWindow is how long a journal entry stays editable after creation.
const EditWindow = 24 * time.Hour

// Locked reports whether the entry's edit window has closed at the given time.
func (j JournalEntry) Locked(now time.Time) bool {
	return now.Sub(j.CreatedAt) > EditWindow
}

// Habit is a student habit with a set of completed day keys. Completion per
// day is an idempotent toggle; streaks are derived, never stored.
type Habit struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	Name           string    `json:"name"`
	Emoji          string    `json:"emoji,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	CompletedDates []string  `json:"completed_dates"`
}

// CompletedOn reports whether the habit was completed on the given day key.
func (h Habit) CompletedOn(dayKey string) bool {
	for _, d := range h.CompletedDates {
		if d == dayKey {
			return true
		}
	}
	return false
}

// Revision is one entry of a message or broadcast body audit trail.
type Revision struct {
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is a directed message between roles. History always holds at least
// one revision equal to the body at creation; ReadAt is set at most once.
type Message struct {
	ID          string     `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	SentAt      time.Time  `json:"sent_at"`
	FromRole    Role       `json:"from_role"`
	FromName    string     `json:"from_name"`
	ToRole      Role       `json:"to_role"`
	ToStudentID *string    `json:"to_student_id,omitempty"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`
	History     []Revision `json:"history"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// Broadcast is a school-wide announcement. Sending one fans out a single
// inbox message addressed to the implicit all-students audience.
type Broadcast struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	SentAt    time.Time  `json:"sent_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	History   []Revision `json:"history"`
}

// QuestionnaireResult stores raw scored answers verbatim with their timestamp.
// Severity banding is a presentation concern and never stored.
type QuestionnaireResult struct {
	Answers   []int     `json:"answers"`
	CreatedAt time.Time `json:"created_at"`
}

// CSSRSResult stores the six yes/no C-SSRS screener answers verbatim.
type CSSRSResult struct {
	Answers   []bool    `json:"answers"`
	CreatedAt time.Time `json:"created_at"`
}

// StudentRecord is the canonical per-student record. The teacher and counselor
// "mirrors" of the original application are read-time views of this record, so
// flag and questionnaire writes cannot diverge between them.
type StudentRecord struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	Grade             string               `json:"grade"`
	Flag              Flag                 `json:"flag"`
	LatestFeeling     *Feeling             `json:"latest_feeling,omitempty"`
	PHQ9              *QuestionnaireResult `json:"phq9,omitempty"`
	GAD7              *QuestionnaireResult `json:"gad7,omitempty"`
	CSSRS             *CSSRSResult         `json:"cssrs,omitempty"`
	Notes             string               `json:"notes,omitempty"`
	CrisisActionsDone []string             `json:"crisis_actions_done,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// SafetyEventKind identifies the questionnaire trigger behind a safety event.
type SafetyEventKind string

// Safety event kinds.
const (
	SafetyEventPHQ9Q9 SafetyEventKind = "phq9_q9_positive"
	SafetyEventCSSRS  SafetyEventKind = "cssrs_positive"
)

// SafetyEvent is an immutable audit record created when a questionnaire answer
// crosses a risk threshold.
type SafetyEvent struct {
	ID               string          `json:"id"`
	CreatedAt        time.Time       `json:"created_at"`
	StudentID        string          `json:"student_id"`
	Kind             SafetyEventKind `json:"kind"`
	ShownHelplines   bool            `json:"shown_helplines"`
	ShownMessages    bool            `json:"shown_messages"`
	ShownSuggestions bool            `json:"shown_suggestions"`
}

// ReportStatus enumerates incident report workflow states.
type ReportStatus string

// Incident report statuses. The only backward transition is resolved to
// reviewing (re-open); closure metadata persists through it.
const (
	ReportReceived  ReportStatus = "received"
	ReportReviewing ReportStatus = "reviewing"
	ReportResolved  ReportStatus = "resolved"
)

// ValidReportStatus reports whether s is a known report status.
func ValidReportStatus(s ReportStatus) bool {
	switch s {
	case ReportReceived, ReportReviewing, ReportResolved:
		return true
	}
	return false
}

// IncidentReport is a canonical incident submission. Student, counselor, and
// principal views derive from the same record, so status transitions apply to
// every role at once.
type IncidentReport struct {
	ID             string       `json:"id"`
	CreatedAt      time.Time    `json:"created_at"`
	StudentID      string       `json:"student_id,omitempty"`
	Type           string       `json:"type"`
	Description    string       `json:"description"`
	Anonymous      bool         `json:"anonymous"`
	Status         ReportStatus `json:"status"`
	ReadAtBySchool *time.Time   `json:"read_at_by_school,omitempty"`
	ClosedAt       *time.Time   `json:"closed_at,omitempty"`
	ClosureNote    string       `json:"closure_note,omitempty"`
	Context        string       `json:"context,omitempty"`
}

// SchoolConfig holds administrative policy for the school.
type SchoolConfig struct {
	ShareCheckinsWithTeachers bool      `json:"share_checkins_with_teachers"`
	ShareJournalWithCounselor bool      `json:"share_journal_with_counselor"`
	EnableQuestionnaires      bool      `json:"enable_questionnaires"`
	EnableIncidentReports     bool      `json:"enable_incident_reports"`
	EmergencyContact          string    `json:"emergency_contact"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// ConfigRequestStatus enumerates configuration request workflow states.
type ConfigRequestStatus string

// Config request statuses. Approval copies the requested config into the live
// config; rejection only marks the request.
const (
	ConfigRequestPending  ConfigRequestStatus = "pending"
	ConfigRequestApproved ConfigRequestStatus = "approved"
	ConfigRequestRejected ConfigRequestStatus = "rejected"
)

// SchoolConfigRequest is a requested configuration change awaiting a decision.
type SchoolConfigRequest struct {
	ID           string              `json:"id"`
	CreatedAt    time.Time           `json:"created_at"`
	RequestedBy  Role                `json:"requested_by"`
	Config       SchoolConfig        `json:"config"`
	Status       ConfigRequestStatus `json:"status"`
	DecidedAt    *time.Time          `json:"decided_at,omitempty"`
	DecisionNote string              `json:"decision_note,omitempty"`
}

// Group is a named set of students with idempotent membership toggles.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	MemberIDs []string  `json:"member_ids"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking violations of warn severity.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

// ErrNotFound is returned when an operation references a missing entity.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return string(e.Entity) + " " + e.ID + " not found"
}
