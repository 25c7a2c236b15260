package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"wellbeingcore/pkg/domain"
)

// transaction applies a mutation set against a cloned state. All timestamps
// come from the transaction clock and ids are generated here, so operations
// stay pure functions of (state, operation, clock).
type transaction struct {
	store   *Store
	state   memoryState
	changes []domain.Change
	now     time.Time
}

var _ domain.Transaction = (*transaction)(nil)

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() domain.TransactionView {
	return newView(&tx.state)
}

// Now returns the transaction clock reading.
func (tx *transaction) Now() time.Time { return tx.now }

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// SetPendingRole records a role choice ahead of login.
func (tx *transaction) SetPendingRole(role domain.Role) domain.Session {
	if !domain.ValidRole(role) {
		role = domain.RoleStudent
	}
	before := cloneSession(tx.state.session)
	tx.state.session.PendingRole = role
	tx.recordChange(domain.Change{Entity: domain.EntitySession, Action: domain.ActionUpdate, Before: before, After: cloneSession(tx.state.session)})
	return cloneSession(tx.state.session)
}

// SetUser binds a new user to the session. An empty id is generated; an empty
// role falls back to the pending role, then to student.
func (tx *transaction) SetUser(user domain.User) (domain.User, error) {
	if user.ID == "" {
		user.ID = tx.store.newID()
	}
	if user.Role == "" {
		user.Role = tx.state.session.PendingRole
	}
	if !domain.ValidRole(user.Role) {
		user.Role = domain.RoleStudent
	}
	before := cloneSession(tx.state.session)
	u := user
	tx.state.session.User = &u
	tx.recordChange(domain.Change{Entity: domain.EntitySession, Action: domain.ActionUpdate, Before: before, After: cloneSession(tx.state.session)})
	return user, nil
}

// ClearUser removes the session identity. Domain data is untouched: state, not
// identity, is durable.
func (tx *transaction) ClearUser() domain.Session {
	before := cloneSession(tx.state.session)
	tx.state.session.User = nil
	tx.recordChange(domain.Change{Entity: domain.EntitySession, Action: domain.ActionUpdate, Before: before, After: cloneSession(tx.state.session)})
	return cloneSession(tx.state.session)
}

// SetSchoolConfig replaces the live school configuration.
func (tx *transaction) SetSchoolConfig(cfg domain.SchoolConfig) domain.SchoolConfig {
	before := tx.state.config
	cfg.UpdatedAt = tx.now
	tx.state.config = cfg
	tx.recordChange(domain.Change{Entity: domain.EntitySchoolConfig, Action: domain.ActionUpdate, Before: before, After: cfg})
	return cfg
}

// UpsertStudentRecord creates or replaces a canonical student record.
func (tx *transaction) UpsertStudentRecord(rec domain.StudentRecord) (domain.StudentRecord, error) {
	if rec.ID == "" {
		rec.ID = tx.store.newID()
	}
	if rec.Flag == "" {
		rec.Flag = domain.FlagNone
	}
	action := domain.ActionCreate
	var before any
	if current, ok := tx.state.students[rec.ID]; ok {
		action = domain.ActionUpdate
		before = cloneStudentRecord(current)
		rec.CreatedAt = current.CreatedAt
	} else {
		rec.CreatedAt = tx.now
	}
	rec.UpdatedAt = tx.now
	tx.state.students[rec.ID] = cloneStudentRecord(rec)
	tx.recordChange(domain.Change{Entity: domain.EntityStudentRecord, Action: action, Before: before, After: cloneStudentRecord(rec)})
	return cloneStudentRecord(rec), nil
}

// UpdateStudentRecord mutates a student record using the provided mutator.
func (tx *transaction) UpdateStudentRecord(id string, mutator func(*domain.StudentRecord) error) (domain.StudentRecord, error) {
	current, ok := tx.state.students[id]
	if !ok {
		return domain.StudentRecord{}, domain.ErrNotFound{Entity: domain.EntityStudentRecord, ID: id}
	}
	before := cloneStudentRecord(current)
	if err := mutator(&current); err != nil {
		return domain.StudentRecord{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.students[id] = cloneStudentRecord(current)
	tx.recordChange(domain.Change{Entity: domain.EntityStudentRecord, Action: domain.ActionUpdate, Before: before, After: cloneStudentRecord(current)})
	return cloneStudentRecord(current), nil
}

// AppendCheckIn prepends a check-in to the canonical log and stamps the
// student record's latest feeling in the same transition. The counselor and
// principal feeds derive from this log, so every role sees the new entry at
// once or not at all.
func (tx *transaction) AppendCheckIn(c domain.CheckIn) (domain.CheckIn, error) {
	if c.StudentID == "" {
		return domain.CheckIn{}, fmt.Errorf("check-in requires a student id")
	}
	if !domain.ValidFeeling(c.Feeling) {
		return domain.CheckIn{}, fmt.Errorf("unknown feeling %q", c.Feeling)
	}
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = tx.now
	}
	if c.AgeGroup == "" {
		c.AgeGroup = domain.AgeGroupOlder
	}
	tx.state.checkIns = prependCheckIn(tx.state.checkIns, cloneCheckIn(c), domain.PrincipalCheckInCap)
	if rec, ok := tx.state.students[c.StudentID]; ok {
		feeling := c.Feeling
		rec.LatestFeeling = &feeling
		rec.UpdatedAt = tx.now
		tx.state.students[c.StudentID] = rec
	}
	tx.recordChange(domain.Change{Entity: domain.EntityCheckIn, Action: domain.ActionCreate, After: cloneCheckIn(c)})
	return cloneCheckIn(c), nil
}

// CreateJournalEntry stores a new journal entry. Day uniqueness is enforced by
// the journal rules at commit time.
func (tx *transaction) CreateJournalEntry(e domain.JournalEntry) (domain.JournalEntry, error) {
	if e.StudentID == "" {
		return domain.JournalEntry{}, fmt.Errorf("journal entry requires a student id")
	}
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	if _, exists := tx.state.journals[e.ID]; exists {
		return domain.JournalEntry{}, fmt.Errorf("journal entry %q already exists", e.ID)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = tx.now
	}
	if e.DateKey == "" {
		e.DateKey = domain.DayKey(e.CreatedAt)
	}
	tx.state.journals[e.ID] = cloneJournalEntry(e)
	tx.recordChange(domain.Change{Entity: domain.EntityJournalEntry, Action: domain.ActionCreate, After: cloneJournalEntry(e)})
	return cloneJournalEntry(e), nil
}

// UpdateJournalEntry mutates a journal entry and stamps UpdatedAt. The edit
// window rule rejects updates past the 24-hour lock at commit time.
func (tx *transaction) UpdateJournalEntry(id string, mutator func(*domain.JournalEntry) error) (domain.JournalEntry, error) {
	current, ok := tx.state.journals[id]
	if !ok {
		return domain.JournalEntry{}, domain.ErrNotFound{Entity: domain.EntityJournalEntry, ID: id}
	}
	before := cloneJournalEntry(current)
	if err := mutator(&current); err != nil {
		return domain.JournalEntry{}, err
	}
	current.ID = id
	current.StudentID = before.StudentID
	current.CreatedAt = before.CreatedAt
	now := tx.now
	current.UpdatedAt = &now
	tx.state.journals[id] = cloneJournalEntry(current)
	tx.recordChange(domain.Change{Entity: domain.EntityJournalEntry, Action: domain.ActionUpdate, Before: before, After: cloneJournalEntry(current)})
	return cloneJournalEntry(current), nil
}

// CreateHabit stores a new habit.
func (tx *transaction) CreateHabit(h domain.Habit) (domain.Habit, error) {
	if h.StudentID == "" {
		return domain.Habit{}, fmt.Errorf("habit requires a student id")
	}
	if strings.TrimSpace(h.Name) == "" {
		return domain.Habit{}, fmt.Errorf("habit requires a name")
	}
	if h.ID == "" {
		h.ID = tx.store.newID()
	}
	if _, exists := tx.state.habits[h.ID]; exists {
		return domain.Habit{}, fmt.Errorf("habit %q already exists", h.ID)
	}
	h.CreatedAt = tx.now
	if h.CompletedDates == nil {
		h.CompletedDates = []string{}
	}
	tx.state.habits[h.ID] = cloneHabit(h)
	tx.recordChange(domain.Change{Entity: domain.EntityHabit, Action: domain.ActionCreate, After: cloneHabit(h)})
	return cloneHabit(h), nil
}

// UpdateHabit mutates an existing habit.
func (tx *transaction) UpdateHabit(id string, mutator func(*domain.Habit) error) (domain.Habit, error) {
	current, ok := tx.state.habits[id]
	if !ok {
		return domain.Habit{}, domain.ErrNotFound{Entity: domain.EntityHabit, ID: id}
	}
	before := cloneHabit(current)
	if err := mutator(&current); err != nil {
		return domain.Habit{}, err
	}
	current.ID = id
	current.StudentID = before.StudentID
	tx.state.habits[id] = cloneHabit(current)
	tx.recordChange(domain.Change{Entity: domain.EntityHabit, Action: domain.ActionUpdate, Before: before, After: cloneHabit(current)})
	return cloneHabit(current), nil
}

// ToggleHabitDate flips completion for the given day key. Toggling a present
// date removes it; toggling twice restores the original set.
func (tx *transaction) ToggleHabitDate(id, dayKey string) (domain.Habit, error) {
	if dayKey == "" {
		dayKey = domain.DayKey(tx.now)
	}
	return tx.UpdateHabit(id, func(h *domain.Habit) error {
		h.CompletedDates = toggleSorted(h.CompletedDates, dayKey)
		return nil
	})
}

// CreateMessage stores a new message, seeding the history audit trail with the
// initial body so history always holds at least one revision.
func (tx *transaction) CreateMessage(m domain.Message) (domain.Message, error) {
	if m.ID == "" {
		m.ID = tx.store.newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = tx.now
	}
	if m.SentAt.IsZero() {
		m.SentAt = m.CreatedAt
	}
	if len(m.History) == 0 {
		m.History = []domain.Revision{{Body: m.Body, Timestamp: m.CreatedAt}}
	}
	tx.state.messages = prependMessage(tx.state.messages, cloneMessage(m), domain.MessageLogCap)
	tx.recordChange(domain.Change{Entity: domain.EntityMessage, Action: domain.ActionCreate, After: cloneMessage(m)})
	return cloneMessage(m), nil
}

// UpdateMessage mutates a message in place in the canonical log.
func (tx *transaction) UpdateMessage(id string, mutator func(*domain.Message) error) (domain.Message, error) {
	for i, m := range tx.state.messages {
		if m.ID != id {
			continue
		}
		current := cloneMessage(m)
		before := cloneMessage(m)
		if err := mutator(&current); err != nil {
			return domain.Message{}, err
		}
		current.ID = id
		tx.state.messages[i] = cloneMessage(current)
		tx.recordChange(domain.Change{Entity: domain.EntityMessage, Action: domain.ActionUpdate, Before: before, After: cloneMessage(current)})
		return cloneMessage(current), nil
	}
	return domain.Message{}, domain.ErrNotFound{Entity: domain.EntityMessage, ID: id}
}

// MarkMessageRead sets ReadAt if absent. Re-marking an already-read message is
// a no-op that preserves the first timestamp.
func (tx *transaction) MarkMessageRead(id string) (domain.Message, error) {
	for i, m := range tx.state.messages {
		if m.ID != id {
			continue
		}
		if m.ReadAt != nil {
			return cloneMessage(m), nil
		}
		before := cloneMessage(m)
		readAt := tx.now
		m.ReadAt = &readAt
		tx.state.messages[i] = cloneMessage(m)
		tx.recordChange(domain.Change{Entity: domain.EntityMessage, Action: domain.ActionUpdate, Before: before, After: cloneMessage(m)})
		return cloneMessage(m), nil
	}
	return domain.Message{}, domain.ErrNotFound{Entity: domain.EntityMessage, ID: id}
}

// CreateBroadcast stores a new broadcast with a seeded history trail.
func (tx *transaction) CreateBroadcast(b domain.Broadcast) (domain.Broadcast, error) {
	if b.ID == "" {
		b.ID = tx.store.newID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = tx.now
	}
	if b.SentAt.IsZero() {
		b.SentAt = b.CreatedAt
	}
	if len(b.History) == 0 {
		b.History = []domain.Revision{{Body: b.Body, Timestamp: b.CreatedAt}}
	}
	tx.state.broadcasts = prependBroadcast(tx.state.broadcasts, cloneBroadcast(b), domain.BroadcastLogCap)
	tx.recordChange(domain.Change{Entity: domain.EntityBroadcast, Action: domain.ActionCreate, After: cloneBroadcast(b)})
	return cloneBroadcast(b), nil
}

// UpdateBroadcast mutates a broadcast in place in the log.
func (tx *transaction) UpdateBroadcast(id string, mutator func(*domain.Broadcast) error) (domain.Broadcast, error) {
	for i, b := range tx.state.broadcasts {
		if b.ID != id {
			continue
		}
		current := cloneBroadcast(b)
		before := cloneBroadcast(b)
		if err := mutator(&current); err != nil {
			return domain.Broadcast{}, err
		}
		current.ID = id
		tx.state.broadcasts[i] = cloneBroadcast(current)
		tx.recordChange(domain.Change{Entity: domain.EntityBroadcast, Action: domain.ActionUpdate, Before: before, After: cloneBroadcast(current)})
		return cloneBroadcast(current), nil
	}
	return domain.Broadcast{}, domain.ErrNotFound{Entity: domain.EntityBroadcast, ID: id}
}

// AppendSafetyEvent prepends an immutable safety event to the log.
func (tx *transaction) AppendSafetyEvent(ev domain.SafetyEvent) (domain.SafetyEvent, error) {
	if ev.StudentID == "" {
		return domain.SafetyEvent{}, fmt.Errorf("safety event requires a student id")
	}
	if ev.Kind != domain.SafetyEventPHQ9Q9 && ev.Kind != domain.SafetyEventCSSRS {
		return domain.SafetyEvent{}, fmt.Errorf("unknown safety event kind %q", ev.Kind)
	}
	if ev.ID == "" {
		ev.ID = tx.store.newID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = tx.now
	}
	tx.state.safetyEvents = prependSafetyEvent(tx.state.safetyEvents, ev, domain.SafetyEventCap)
	tx.recordChange(domain.Change{Entity: domain.EntitySafetyEvent, Action: domain.ActionCreate, After: ev})
	return ev, nil
}

// CreateIncidentReport stores a new report in the received state.
func (tx *transaction) CreateIncidentReport(r domain.IncidentReport) (domain.IncidentReport, error) {
	if strings.TrimSpace(r.Description) == "" {
		return domain.IncidentReport{}, fmt.Errorf("incident report requires a description")
	}
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.reports[r.ID]; exists {
		return domain.IncidentReport{}, fmt.Errorf("incident report %q already exists", r.ID)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = tx.now
	}
	if r.Status == "" {
		r.Status = domain.ReportReceived
	}
	tx.state.reports[r.ID] = cloneIncidentReport(r)
	tx.recordChange(domain.Change{Entity: domain.EntityIncidentReport, Action: domain.ActionCreate, After: cloneIncidentReport(r)})
	return cloneIncidentReport(r), nil
}

// UpdateIncidentReport mutates a report. Status transitions are validated by
// the report rule at commit time.
func (tx *transaction) UpdateIncidentReport(id string, mutator func(*domain.IncidentReport) error) (domain.IncidentReport, error) {
	current, ok := tx.state.reports[id]
	if !ok {
		return domain.IncidentReport{}, domain.ErrNotFound{Entity: domain.EntityIncidentReport, ID: id}
	}
	before := cloneIncidentReport(current)
	if err := mutator(&current); err != nil {
		return domain.IncidentReport{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	tx.state.reports[id] = cloneIncidentReport(current)
	tx.recordChange(domain.Change{Entity: domain.EntityIncidentReport, Action: domain.ActionUpdate, Before: before, After: cloneIncidentReport(current)})
	return cloneIncidentReport(current), nil
}

// CreateConfigRequest stores a pending configuration change request.
func (tx *transaction) CreateConfigRequest(r domain.SchoolConfigRequest) (domain.SchoolConfigRequest, error) {
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.configRequests[r.ID]; exists {
		return domain.SchoolConfigRequest{}, fmt.Errorf("config request %q already exists", r.ID)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = tx.now
	}
	if r.Status == "" {
		r.Status = domain.ConfigRequestPending
	}
	tx.state.configRequests[r.ID] = r
	tx.recordChange(domain.Change{Entity: domain.EntityConfigRequest, Action: domain.ActionCreate, After: r})
	return r, nil
}

// UpdateConfigRequest mutates a configuration request.
func (tx *transaction) UpdateConfigRequest(id string, mutator func(*domain.SchoolConfigRequest) error) (domain.SchoolConfigRequest, error) {
	current, ok := tx.state.configRequests[id]
	if !ok {
		return domain.SchoolConfigRequest{}, domain.ErrNotFound{Entity: domain.EntityConfigRequest, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return domain.SchoolConfigRequest{}, err
	}
	current.ID = id
	tx.state.configRequests[id] = current
	tx.recordChange(domain.Change{Entity: domain.EntityConfigRequest, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateGroup stores a new group.
func (tx *transaction) CreateGroup(g domain.Group) (domain.Group, error) {
	if strings.TrimSpace(g.Name) == "" {
		return domain.Group{}, fmt.Errorf("group requires a name")
	}
	if g.ID == "" {
		g.ID = tx.store.newID()
	}
	if _, exists := tx.state.groups[g.ID]; exists {
		return domain.Group{}, fmt.Errorf("group %q already exists", g.ID)
	}
	g.CreatedAt = tx.now
	if g.MemberIDs == nil {
		g.MemberIDs = []string{}
	}
	tx.state.groups[g.ID] = cloneGroup(g)
	tx.recordChange(domain.Change{Entity: domain.EntityGroup, Action: domain.ActionCreate, After: cloneGroup(g)})
	return cloneGroup(g), nil
}

// UpdateGroup mutates an existing group.
func (tx *transaction) UpdateGroup(id string, mutator func(*domain.Group) error) (domain.Group, error) {
	current, ok := tx.state.groups[id]
	if !ok {
		return domain.Group{}, domain.ErrNotFound{Entity: domain.EntityGroup, ID: id}
	}
	before := cloneGroup(current)
	if err := mutator(&current); err != nil {
		return domain.Group{}, err
	}
	current.ID = id
	tx.state.groups[id] = cloneGroup(current)
	tx.recordChange(domain.Change{Entity: domain.EntityGroup, Action: domain.ActionUpdate, Before: before, After: cloneGroup(current)})
	return cloneGroup(current), nil
}

// ToggleGroupMember flips a student's membership in the group.
func (tx *transaction) ToggleGroupMember(groupID, studentID string) (domain.Group, error) {
	if studentID == "" {
		return domain.Group{}, fmt.Errorf("group member toggle requires a student id")
	}
	return tx.UpdateGroup(groupID, func(g *domain.Group) error {
		g.MemberIDs = toggleSorted(g.MemberIDs, studentID)
		return nil
	})
}

// toggleSorted inserts value into the sorted set if absent, removes it if
// present. Applying it twice returns the original set.
func toggleSorted(set []string, value string) []string {
	idx := sort.SearchStrings(set, value)
	if idx < len(set) && set[idx] == value {
		return append(set[:idx:idx], set[idx+1:]...)
	}
	out := make([]string, 0, len(set)+1)
	out = append(out, set[:idx]...)
	out = append(out, value)
	out = append(out, set[idx:]...)
	return out
}
