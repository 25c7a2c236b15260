package core

import "wellbeingcore/pkg/domain"

type (
	EntityType          = domain.EntityType
	Role                = domain.Role
	Feeling             = domain.Feeling
	AgeGroup            = domain.AgeGroup
	Flag                = domain.Flag
	User                = domain.User
	Session             = domain.Session
	CheckIn             = domain.CheckIn
	JournalEntry        = domain.JournalEntry
	Habit               = domain.Habit
	Message             = domain.Message
	Broadcast           = domain.Broadcast
	StudentRecord       = domain.StudentRecord
	QuestionnaireResult = domain.QuestionnaireResult
	CSSRSResult         = domain.CSSRSResult
	SafetyEvent         = domain.SafetyEvent
	SafetyEventKind     = domain.SafetyEventKind
	IncidentReport      = domain.IncidentReport
	ReportStatus        = domain.ReportStatus
	SchoolConfig        = domain.SchoolConfig
	SchoolConfigRequest = domain.SchoolConfigRequest
	Group               = domain.Group
	Change              = domain.Change
	Action              = domain.Action
	Violation           = domain.Violation
	Result              = domain.Result
	RulesEngine         = domain.RulesEngine
	Rule                = domain.Rule
	RuleView            = domain.RuleView
	Severity            = domain.Severity
	Transaction         = domain.Transaction
	TransactionView     = domain.TransactionView
	PersistentStore     = domain.PersistentStore
	RuleViolationError  = domain.RuleViolationError
	ErrNotFound         = domain.ErrNotFound
)

const (
	RoleStudent   = domain.RoleStudent
	RoleTeacher   = domain.RoleTeacher
	RoleParent    = domain.RoleParent
	RoleCounselor = domain.RoleCounselor
	RolePrincipal = domain.RolePrincipal
	RoleAdmin     = domain.RoleAdmin
)

const (
	FlagNone   = domain.FlagNone
	FlagOrange = domain.FlagOrange
	FlagRed    = domain.FlagRed
	FlagCrisis = domain.FlagCrisis
)

const (
	ReportReceived  = domain.ReportReceived
	ReportReviewing = domain.ReportReviewing
	ReportResolved  = domain.ReportResolved
)
