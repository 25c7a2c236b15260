// Package memory implements the canonical in-memory wellbeing store: a single
// exclusively-owned state aggregate mutated only through transactions, with
// commit-time rule evaluation and role-scoped views derived on read.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"wellbeingcore/pkg/domain"
)

type memoryState struct {
	session        domain.Session
	config         domain.SchoolConfig
	students       map[string]domain.StudentRecord
	checkIns       []domain.CheckIn
	journals       map[string]domain.JournalEntry
	habits         map[string]domain.Habit
	messages       []domain.Message
	broadcasts     []domain.Broadcast
	safetyEvents   []domain.SafetyEvent
	reports        map[string]domain.IncidentReport
	configRequests map[string]domain.SchoolConfigRequest
	groups         map[string]domain.Group
}

func newMemoryState() memoryState {
	return memoryState{
		students:       make(map[string]domain.StudentRecord),
		journals:       make(map[string]domain.JournalEntry),
		habits:         make(map[string]domain.Habit),
		reports:        make(map[string]domain.IncidentReport),
		configRequests: make(map[string]domain.SchoolConfigRequest),
		groups:         make(map[string]domain.Group),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	cloned.session = cloneSession(s.session)
	cloned.config = s.config
	for k, v := range s.students {
		cloned.students[k] = cloneStudentRecord(v)
	}
	cloned.checkIns = make([]domain.CheckIn, len(s.checkIns))
	for i, c := range s.checkIns {
		cloned.checkIns[i] = cloneCheckIn(c)
	}
	for k, v := range s.journals {
		cloned.journals[k] = cloneJournalEntry(v)
	}
	for k, v := range s.habits {
		cloned.habits[k] = cloneHabit(v)
	}
	cloned.messages = make([]domain.Message, len(s.messages))
	for i, m := range s.messages {
		cloned.messages[i] = cloneMessage(m)
	}
	cloned.broadcasts = make([]domain.Broadcast, len(s.broadcasts))
	for i, b := range s.broadcasts {
		cloned.broadcasts[i] = cloneBroadcast(b)
	}
	cloned.safetyEvents = append([]domain.SafetyEvent(nil), s.safetyEvents...)
	for k, v := range s.reports {
		cloned.reports[k] = cloneIncidentReport(v)
	}
	for k, v := range s.configRequests {
		cloned.configRequests[k] = v
	}
	for k, v := range s.groups {
		cloned.groups[k] = cloneGroup(v)
	}
	return cloned
}

func cloneSession(s domain.Session) domain.Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func cloneStudentRecord(r domain.StudentRecord) domain.StudentRecord {
	cp := r
	if r.LatestFeeling != nil {
		f := *r.LatestFeeling
		cp.LatestFeeling = &f
	}
	if r.PHQ9 != nil {
		q := *r.PHQ9
		q.Answers = append([]int(nil), r.PHQ9.Answers...)
		cp.PHQ9 = &q
	}
	if r.GAD7 != nil {
		q := *r.GAD7
		q.Answers = append([]int(nil), r.GAD7.Answers...)
		cp.GAD7 = &q
	}
	if r.CSSRS != nil {
		q := *r.CSSRS
		q.Answers = append([]bool(nil), r.CSSRS.Answers...)
		cp.CSSRS = &q
	}
	cp.CrisisActionsDone = append([]string(nil), r.CrisisActionsDone...)
	return cp
}

func cloneCheckIn(c domain.CheckIn) domain.CheckIn {
	cp := c
	if c.Answers != nil {
		cp.Answers = make(map[string]string, len(c.Answers))
		for k, v := range c.Answers {
			cp.Answers[k] = v
		}
	}
	return cp
}

func cloneJournalEntry(e domain.JournalEntry) domain.JournalEntry {
	cp := e
	if e.UpdatedAt != nil {
		t := *e.UpdatedAt
		cp.UpdatedAt = &t
	}
	return cp
}

func cloneHabit(h domain.Habit) domain.Habit {
	cp := h
	cp.CompletedDates = append([]string(nil), h.CompletedDates...)
	return cp
}

func cloneMessage(m domain.Message) domain.Message {
	cp := m
	if m.ToStudentID != nil {
		v := *m.ToStudentID
		cp.ToStudentID = &v
	}
	if m.EditedAt != nil {
		t := *m.EditedAt
		cp.EditedAt = &t
	}
	if m.ReadAt != nil {
		t := *m.ReadAt
		cp.ReadAt = &t
	}
	cp.History = append([]domain.Revision(nil), m.History...)
	return cp
}

func cloneBroadcast(b domain.Broadcast) domain.Broadcast {
	cp := b
	if b.EditedAt != nil {
		t := *b.EditedAt
		cp.EditedAt = &t
	}
	cp.History = append([]domain.Revision(nil), b.History...)
	return cp
}

func cloneIncidentReport(r domain.IncidentReport) domain.IncidentReport {
	cp := r
	if r.ReadAtBySchool != nil {
		t := *r.ReadAtBySchool
		cp.ReadAtBySchool = &t
	}
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		cp.ClosedAt = &t
	}
	return cp
}

func cloneGroup(g domain.Group) domain.Group {
	cp := g
	cp.MemberIDs = append([]string(nil), g.MemberIDs...)
	return cp
}

// Store provides the in-memory transactional store for the wellbeing domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *domain.RulesEngine
	nowFn  func() time.Time
	newID  func() string
}

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// SetClock overrides the transaction clock. Intended for deterministic tests
// and for callers that thread an injectable clock through the service layer.
func (s *Store) SetClock(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.nowFn = fn
	s.mu.Unlock()
}

// Engine returns the rules engine evaluated at commit time.
func (s *Store) Engine() *domain.RulesEngine { return s.engine }

// RunInTransaction executes fn within a transactional copy of the store state.
// The commit is all-or-nothing: rule violations of blocking severity abort it,
// and readers never observe a partially applied transition.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newView(&tx.state), tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newView(&snapshot))
}

// Session returns the current session.
func (s *Store) Session() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSession(s.state.session)
}

// SchoolConfig returns the live school configuration.
func (s *Store) SchoolConfig() domain.SchoolConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.config
}

// GetStudentRecord retrieves a student record by id.
func (s *Store) GetStudentRecord(id string) (domain.StudentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.state.students[id]
	if !ok {
		return domain.StudentRecord{}, false
	}
	return cloneStudentRecord(rec), true
}

// ListStudentRecords returns all student records.
func (s *Store) ListStudentRecords() []domain.StudentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.clone()
	return newView(&snapshot).ListStudentRecords()
}

// StudentCheckIns returns the student's own capped check-in feed.
func (s *Store) StudentCheckIns(studentID string) []domain.CheckIn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.clone()
	return newView(&snapshot).StudentCheckIns(studentID)
}

// CounselorCheckIns returns the counselor aggregate feed.
func (s *Store) CounselorCheckIns() []domain.CheckIn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.clone()
	return newView(&snapshot).CounselorCheckIns()
}

// PrincipalCheckIns returns the principal aggregate feed.
func (s *Store) PrincipalCheckIns() []domain.CheckIn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.clone()
	return newView(&snapshot).PrincipalCheckIns()
}

// ListSafetyEvents returns the safety event log, newest first.
func (s *Store) ListSafetyEvents() []domain.SafetyEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.SafetyEvent(nil), s.state.safetyEvents...)
}

// ListIncidentReports returns all incident reports, newest first.
func (s *Store) ListIncidentReports() []domain.IncidentReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.clone()
	return newView(&snapshot).ListIncidentReports()
}

// ExportState returns a snapshot of the current state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the normalized snapshot contents.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(MigrateSnapshot(snapshot))
}

func prependCheckIn(log []domain.CheckIn, c domain.CheckIn, limit int) []domain.CheckIn {
	log = append([]domain.CheckIn{c}, log...)
	if len(log) > limit {
		log = log[:limit]
	}
	return log
}

func prependMessage(log []domain.Message, m domain.Message, limit int) []domain.Message {
	log = append([]domain.Message{m}, log...)
	if len(log) > limit {
		log = log[:limit]
	}
	return log
}

func prependBroadcast(log []domain.Broadcast, b domain.Broadcast, limit int) []domain.Broadcast {
	log = append([]domain.Broadcast{b}, log...)
	if len(log) > limit {
		log = log[:limit]
	}
	return log
}

func prependSafetyEvent(log []domain.SafetyEvent, ev domain.SafetyEvent, limit int) []domain.SafetyEvent {
	log = append([]domain.SafetyEvent{ev}, log...)
	if len(log) > limit {
		log = log[:limit]
	}
	return log
}
