package memory

import (
	"sort"

	"wellbeingcore/pkg/domain"
)

// SnapshotVersion is the current snapshot envelope version. Version 0 marks a
// legacy, unversioned snapshot; those are accepted and normalized field by
// field, since the original storage format never carried a version at all.
const SnapshotVersion = 1

// Snapshot captures a point-in-time clone of the store state in its
// JSON-serializable persistence shape.
type Snapshot struct {
	Version        int                                   `json:"version,omitempty"`
	Session        domain.Session                        `json:"session"`
	Config         domain.SchoolConfig                   `json:"school_config"`
	Students       map[string]domain.StudentRecord       `json:"students"`
	CheckIns       []domain.CheckIn                      `json:"check_ins"`
	Journals       map[string]domain.JournalEntry        `json:"journals"`
	Habits         map[string]domain.Habit               `json:"habits"`
	Messages       []domain.Message                      `json:"messages"`
	Broadcasts     []domain.Broadcast                    `json:"broadcasts"`
	SafetyEvents   []domain.SafetyEvent                  `json:"safety_events"`
	Reports        map[string]domain.IncidentReport      `json:"reports"`
	ConfigRequests map[string]domain.SchoolConfigRequest `json:"config_requests"`
	Groups         map[string]domain.Group               `json:"groups"`
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Version:        SnapshotVersion,
		Session:        cloneSession(state.session),
		Config:         state.config,
		Students:       make(map[string]domain.StudentRecord, len(state.students)),
		CheckIns:       make([]domain.CheckIn, len(state.checkIns)),
		Journals:       make(map[string]domain.JournalEntry, len(state.journals)),
		Habits:         make(map[string]domain.Habit, len(state.habits)),
		Messages:       make([]domain.Message, len(state.messages)),
		Broadcasts:     make([]domain.Broadcast, len(state.broadcasts)),
		SafetyEvents:   append([]domain.SafetyEvent(nil), state.safetyEvents...),
		Reports:        make(map[string]domain.IncidentReport, len(state.reports)),
		ConfigRequests: make(map[string]domain.SchoolConfigRequest, len(state.configRequests)),
		Groups:         make(map[string]domain.Group, len(state.groups)),
	}
	for k, v := range state.students {
		s.Students[k] = cloneStudentRecord(v)
	}
	for i, c := range state.checkIns {
		s.CheckIns[i] = cloneCheckIn(c)
	}
	for k, v := range state.journals {
		s.Journals[k] = cloneJournalEntry(v)
	}
	for k, v := range state.habits {
		s.Habits[k] = cloneHabit(v)
	}
	for i, m := range state.messages {
		s.Messages[i] = cloneMessage(m)
	}
	for i, b := range state.broadcasts {
		s.Broadcasts[i] = cloneBroadcast(b)
	}
	for k, v := range state.reports {
		s.Reports[k] = cloneIncidentReport(v)
	}
	for k, v := range state.configRequests {
		s.ConfigRequests[k] = v
	}
	for k, v := range state.groups {
		s.Groups[k] = cloneGroup(v)
	}
	return s
}

// cloneSnapshot deep-copies every bucket so normalization can rewrite maps
// and slices without writing through to the caller's snapshot.
func cloneSnapshot(s Snapshot) Snapshot {
	out := snapshotFromMemoryState(memoryStateFromSnapshot(s))
	out.Version = s.Version
	return out
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	state.session = cloneSession(s.Session)
	state.config = s.Config
	for k, v := range s.Students {
		state.students[k] = cloneStudentRecord(v)
	}
	state.checkIns = make([]domain.CheckIn, len(s.CheckIns))
	for i, c := range s.CheckIns {
		state.checkIns[i] = cloneCheckIn(c)
	}
	for k, v := range s.Journals {
		state.journals[k] = cloneJournalEntry(v)
	}
	for k, v := range s.Habits {
		state.habits[k] = cloneHabit(v)
	}
	state.messages = make([]domain.Message, len(s.Messages))
	for i, m := range s.Messages {
		state.messages[i] = cloneMessage(m)
	}
	state.broadcasts = make([]domain.Broadcast, len(s.Broadcasts))
	for i, b := range s.Broadcasts {
		state.broadcasts[i] = cloneBroadcast(b)
	}
	state.safetyEvents = append([]domain.SafetyEvent(nil), s.SafetyEvents...)
	for k, v := range s.Reports {
		state.reports[k] = cloneIncidentReport(v)
	}
	for k, v := range s.ConfigRequests {
		state.configRequests[k] = v
	}
	for k, v := range s.Groups {
		state.groups[k] = cloneGroup(v)
	}
	return state
}

// MigrateSnapshot normalizes a loaded snapshot so that every field is safe to
// use: missing collections become empty, malformed enum values fall back to
// documented defaults, legacy shapes gain the fields newer code expects, and
// oversized logs are trimmed to their caps. The pass is total on purpose: the
// persisted schema evolved without a version field for most of its life, so
// any individual field may be absent or stale. The input is deep-copied
// first; callers can compare it against the result to see what was repaired.
//
//nolint:gocyclo // migration aggregates every normalization concern in one pass for parity with existing snapshots.
func MigrateSnapshot(snapshot Snapshot) Snapshot {
	snapshot = cloneSnapshot(snapshot)
	if snapshot.Students == nil {
		snapshot.Students = map[string]domain.StudentRecord{}
	}
	if snapshot.Journals == nil {
		snapshot.Journals = map[string]domain.JournalEntry{}
	}
	if snapshot.Habits == nil {
		snapshot.Habits = map[string]domain.Habit{}
	}
	if snapshot.Reports == nil {
		snapshot.Reports = map[string]domain.IncidentReport{}
	}
	if snapshot.ConfigRequests == nil {
		snapshot.ConfigRequests = map[string]domain.SchoolConfigRequest{}
	}
	if snapshot.Groups == nil {
		snapshot.Groups = map[string]domain.Group{}
	}

	if snapshot.Session.PendingRole == "" || !domain.ValidRole(snapshot.Session.PendingRole) {
		snapshot.Session.PendingRole = domain.RoleStudent
	}
	if u := snapshot.Session.User; u != nil && !domain.ValidRole(u.Role) {
		cp := *u
		cp.Role = domain.RoleStudent
		snapshot.Session.User = &cp
	}

	for id, rec := range snapshot.Students {
		rec.ID = id
		if !domain.ValidFlag(rec.Flag) {
			rec.Flag = domain.FlagNone
		}
		if rec.LatestFeeling != nil && !domain.ValidFeeling(*rec.LatestFeeling) {
			rec.LatestFeeling = nil
		}
		rec.CrisisActionsDone = dedupeSorted(rec.CrisisActionsDone)
		snapshot.Students[id] = rec
	}

	checkIns := snapshot.CheckIns[:0]
	for _, c := range snapshot.CheckIns {
		if c.ID == "" || c.StudentID == "" {
			continue
		}
		if !domain.ValidFeeling(c.Feeling) {
			c.Feeling = domain.FeelingNeutral
		}
		if c.AgeGroup != domain.AgeGroupYounger && c.AgeGroup != domain.AgeGroupOlder {
			c.AgeGroup = domain.AgeGroupOlder
		}
		checkIns = append(checkIns, c)
	}
	sort.SliceStable(checkIns, func(i, j int) bool { return checkIns[i].CreatedAt.After(checkIns[j].CreatedAt) })
	if len(checkIns) > domain.PrincipalCheckInCap {
		checkIns = checkIns[:domain.PrincipalCheckInCap]
	}
	snapshot.CheckIns = checkIns

	// Journal entries: derive missing day keys and keep only the newest entry
	// per student per day so the uniqueness invariant holds after load.
	seenDay := map[string]string{}
	for id, e := range snapshot.Journals {
		if e.StudentID == "" {
			delete(snapshot.Journals, id)
			continue
		}
		e.ID = id
		if e.DateKey == "" {
			e.DateKey = domain.DayKey(e.CreatedAt)
		}
		key := e.StudentID + "/" + e.DateKey
		if prevID, dup := seenDay[key]; dup {
			prev := snapshot.Journals[prevID]
			if e.CreatedAt.After(prev.CreatedAt) {
				delete(snapshot.Journals, prevID)
				seenDay[key] = id
			} else {
				delete(snapshot.Journals, id)
				continue
			}
		} else {
			seenDay[key] = id
		}
		snapshot.Journals[id] = e
	}

	for id, h := range snapshot.Habits {
		if h.StudentID == "" {
			delete(snapshot.Habits, id)
			continue
		}
		h.ID = id
		h.CompletedDates = dedupeSorted(h.CompletedDates)
		snapshot.Habits[id] = h
	}

	messages := snapshot.Messages[:0]
	for _, m := range snapshot.Messages {
		if m.ID == "" {
			continue
		}
		if !domain.ValidRole(m.FromRole) {
			m.FromRole = domain.RoleTeacher
		}
		if !domain.ValidRole(m.ToRole) {
			m.ToRole = domain.RoleStudent
		}
		if m.SentAt.IsZero() {
			m.SentAt = m.CreatedAt
		}
		if len(m.History) == 0 {
			m.History = []domain.Revision{{Body: m.Body, Timestamp: m.CreatedAt}}
		}
		messages = append(messages, m)
	}
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].CreatedAt.After(messages[j].CreatedAt) })
	if len(messages) > domain.MessageLogCap {
		messages = messages[:domain.MessageLogCap]
	}
	snapshot.Messages = messages

	broadcasts := snapshot.Broadcasts[:0]
	for _, b := range snapshot.Broadcasts {
		if b.ID == "" {
			continue
		}
		if b.SentAt.IsZero() {
			b.SentAt = b.CreatedAt
		}
		if len(b.History) == 0 {
			b.History = []domain.Revision{{Body: b.Body, Timestamp: b.CreatedAt}}
		}
		broadcasts = append(broadcasts, b)
	}
	sort.SliceStable(broadcasts, func(i, j int) bool { return broadcasts[i].CreatedAt.After(broadcasts[j].CreatedAt) })
	if len(broadcasts) > domain.BroadcastLogCap {
		broadcasts = broadcasts[:domain.BroadcastLogCap]
	}
	snapshot.Broadcasts = broadcasts

	events := snapshot.SafetyEvents[:0]
	for _, ev := range snapshot.SafetyEvents {
		if ev.ID == "" || ev.StudentID == "" {
			continue
		}
		if ev.Kind != domain.SafetyEventPHQ9Q9 && ev.Kind != domain.SafetyEventCSSRS {
			continue
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	if len(events) > domain.SafetyEventCap {
		events = events[:domain.SafetyEventCap]
	}
	snapshot.SafetyEvents = events

	for id, r := range snapshot.Reports {
		r.ID = id
		if !domain.ValidReportStatus(r.Status) {
			r.Status = domain.ReportReceived
		}
		snapshot.Reports[id] = r
	}

	for id, r := range snapshot.ConfigRequests {
		r.ID = id
		switch r.Status {
		case domain.ConfigRequestPending, domain.ConfigRequestApproved, domain.ConfigRequestRejected:
		default:
			r.Status = domain.ConfigRequestPending
		}
		if !domain.ValidRole(r.RequestedBy) {
			r.RequestedBy = domain.RoleAdmin
		}
		snapshot.ConfigRequests[id] = r
	}

	for id, g := range snapshot.Groups {
		g.ID = id
		g.MemberIDs = dedupeSorted(g.MemberIDs)
		snapshot.Groups[id] = g
	}

	// Older snapshots predate write-time latest-feeling propagation; rebuild
	// it from the newest check-in per student when absent.
	for id, rec := range snapshot.Students {
		if rec.LatestFeeling != nil {
			continue
		}
		for _, c := range snapshot.CheckIns {
			if c.StudentID == id {
				feeling := c.Feeling
				rec.LatestFeeling = &feeling
				snapshot.Students[id] = rec
				break
			}
		}
	}

	snapshot.Version = SnapshotVersion
	return snapshot
}

func dedupeSorted(values []string) []string {
	if values == nil {
		return []string{}
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
