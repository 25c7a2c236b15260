package memory

import (
	"sort"

	"wellbeingcore/pkg/domain"
)

// view exposes a read-only snapshot of transactional state. The role-scoped
// feeds of the original application (student/counselor/principal mirrors) are
// projections computed here, so they cannot diverge from the canonical store.
type view struct {
	state *memoryState
}

var _ domain.TransactionView = view{}

func newView(state *memoryState) view {
	return view{state: state}
}

// Session returns the session snapshot.
func (v view) Session() domain.Session {
	return cloneSession(v.state.session)
}

// SchoolConfig returns the live school configuration.
func (v view) SchoolConfig() domain.SchoolConfig {
	return v.state.config
}

// ListStudentRecords returns all student records sorted by name then id.
func (v view) ListStudentRecords() []domain.StudentRecord {
	out := make([]domain.StudentRecord, 0, len(v.state.students))
	for _, rec := range v.state.students {
		out = append(out, cloneStudentRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindStudentRecord retrieves a student record by id.
func (v view) FindStudentRecord(id string) (domain.StudentRecord, bool) {
	rec, ok := v.state.students[id]
	if !ok {
		return domain.StudentRecord{}, false
	}
	return cloneStudentRecord(rec), true
}

// ListCheckIns returns the full canonical check-in log, newest first.
func (v view) ListCheckIns() []domain.CheckIn {
	out := make([]domain.CheckIn, len(v.state.checkIns))
	for i, c := range v.state.checkIns {
		out[i] = cloneCheckIn(c)
	}
	return out
}

// StudentCheckIns returns the student's own feed, newest first, capped.
func (v view) StudentCheckIns(studentID string) []domain.CheckIn {
	var out []domain.CheckIn
	for _, c := range v.state.checkIns {
		if c.StudentID != studentID {
			continue
		}
		out = append(out, cloneCheckIn(c))
		if len(out) == domain.StudentCheckInCap {
			break
		}
	}
	return out
}

// CounselorCheckIns returns the counselor aggregate feed, newest first, capped.
func (v view) CounselorCheckIns() []domain.CheckIn {
	return v.cappedCheckIns(domain.CounselorCheckInCap)
}

// PrincipalCheckIns returns the principal aggregate feed, newest first, capped.
func (v view) PrincipalCheckIns() []domain.CheckIn {
	return v.cappedCheckIns(domain.PrincipalCheckInCap)
}

func (v view) cappedCheckIns(limit int) []domain.CheckIn {
	n := len(v.state.checkIns)
	if n > limit {
		n = limit
	}
	out := make([]domain.CheckIn, n)
	for i := 0; i < n; i++ {
		out[i] = cloneCheckIn(v.state.checkIns[i])
	}
	return out
}

// ListJournalEntries returns all journal entries.
func (v view) ListJournalEntries() []domain.JournalEntry {
	out := make([]domain.JournalEntry, 0, len(v.state.journals))
	for _, e := range v.state.journals {
		out = append(out, cloneJournalEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateKey > out[j].DateKey })
	return out
}

// FindJournalEntry retrieves a journal entry by id.
func (v view) FindJournalEntry(id string) (domain.JournalEntry, bool) {
	e, ok := v.state.journals[id]
	if !ok {
		return domain.JournalEntry{}, false
	}
	return cloneJournalEntry(e), true
}

// StudentJournal returns a student's entries, newest day first.
func (v view) StudentJournal(studentID string) []domain.JournalEntry {
	var out []domain.JournalEntry
	for _, e := range v.state.journals {
		if e.StudentID == studentID {
			out = append(out, cloneJournalEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateKey > out[j].DateKey })
	return out
}

// JournalEntryForDay finds the student's entry for the given day key, if any.
func (v view) JournalEntryForDay(studentID, dayKey string) (domain.JournalEntry, bool) {
	for _, e := range v.state.journals {
		if e.StudentID == studentID && e.DateKey == dayKey {
			return cloneJournalEntry(e), true
		}
	}
	return domain.JournalEntry{}, false
}

// ListHabits returns all habits.
func (v view) ListHabits() []domain.Habit {
	out := make([]domain.Habit, 0, len(v.state.habits))
	for _, h := range v.state.habits {
		out = append(out, cloneHabit(h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// FindHabit retrieves a habit by id.
func (v view) FindHabit(id string) (domain.Habit, bool) {
	h, ok := v.state.habits[id]
	if !ok {
		return domain.Habit{}, false
	}
	return cloneHabit(h), true
}

// StudentHabits returns a student's habits in creation order.
func (v view) StudentHabits(studentID string) []domain.Habit {
	var out []domain.Habit
	for _, h := range v.state.habits {
		if h.StudentID == studentID {
			out = append(out, cloneHabit(h))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ListMessages returns the canonical message log, newest first.
func (v view) ListMessages() []domain.Message {
	out := make([]domain.Message, len(v.state.messages))
	for i, m := range v.state.messages {
		out[i] = cloneMessage(m)
	}
	return out
}

// FindMessage retrieves a message by id.
func (v view) FindMessage(id string) (domain.Message, bool) {
	for _, m := range v.state.messages {
		if m.ID == id {
			return cloneMessage(m), true
		}
	}
	return domain.Message{}, false
}

// StudentInbox returns messages addressed to students generally or to the
// given student specifically, newest first.
func (v view) StudentInbox(studentID string) []domain.Message {
	var out []domain.Message
	for _, m := range v.state.messages {
		if m.ToRole != domain.RoleStudent {
			continue
		}
		if m.ToStudentID != nil && *m.ToStudentID != studentID {
			continue
		}
		out = append(out, cloneMessage(m))
	}
	return out
}

// MessagesForRole returns messages addressed to the given role, newest first.
func (v view) MessagesForRole(role domain.Role) []domain.Message {
	var out []domain.Message
	for _, m := range v.state.messages {
		if m.ToRole == role {
			out = append(out, cloneMessage(m))
		}
	}
	return out
}

// ListBroadcasts returns the broadcast log, newest first.
func (v view) ListBroadcasts() []domain.Broadcast {
	out := make([]domain.Broadcast, len(v.state.broadcasts))
	for i, b := range v.state.broadcasts {
		out[i] = cloneBroadcast(b)
	}
	return out
}

// ListSafetyEvents returns the safety event log, newest first.
func (v view) ListSafetyEvents() []domain.SafetyEvent {
	return append([]domain.SafetyEvent(nil), v.state.safetyEvents...)
}

// StudentSafetyEvents returns a student's safety events, newest first.
func (v view) StudentSafetyEvents(studentID string) []domain.SafetyEvent {
	var out []domain.SafetyEvent
	for _, ev := range v.state.safetyEvents {
		if ev.StudentID == studentID {
			out = append(out, ev)
		}
	}
	return out
}

// ListIncidentReports returns all reports, newest first.
func (v view) ListIncidentReports() []domain.IncidentReport {
	out := make([]domain.IncidentReport, 0, len(v.state.reports))
	for _, r := range v.state.reports {
		out = append(out, cloneIncidentReport(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindIncidentReport retrieves a report by id.
func (v view) FindIncidentReport(id string) (domain.IncidentReport, bool) {
	r, ok := v.state.reports[id]
	if !ok {
		return domain.IncidentReport{}, false
	}
	return cloneIncidentReport(r), true
}

// StudentReports returns the reports a student submitted, newest first.
func (v view) StudentReports(studentID string) []domain.IncidentReport {
	var out []domain.IncidentReport
	for _, r := range v.ListIncidentReports() {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out
}

// SchoolReports returns the staff-side report feed, newest first. Counselor
// and principal views share it; anonymity is a presentation concern.
func (v view) SchoolReports() []domain.IncidentReport {
	return v.ListIncidentReports()
}

// ListConfigRequests returns configuration requests, newest first.
func (v view) ListConfigRequests() []domain.SchoolConfigRequest {
	out := make([]domain.SchoolConfigRequest, 0, len(v.state.configRequests))
	for _, r := range v.state.configRequests {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindConfigRequest retrieves a configuration request by id.
func (v view) FindConfigRequest(id string) (domain.SchoolConfigRequest, bool) {
	r, ok := v.state.configRequests[id]
	return r, ok
}

// ListGroups returns all groups sorted by name.
func (v view) ListGroups() []domain.Group {
	out := make([]domain.Group, 0, len(v.state.groups))
	for _, g := range v.state.groups {
		out = append(out, cloneGroup(g))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindGroup retrieves a group by id.
func (v view) FindGroup(id string) (domain.Group, bool) {
	g, ok := v.state.groups[id]
	if !ok {
		return domain.Group{}, false
	}
	return cloneGroup(g), true
}
