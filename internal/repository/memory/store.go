// Package memory is an in-process implementation of the repositories,
// used when storage is set to memory and in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"habitweb/internal/habit"
	"habitweb/internal/model"
	"habitweb/internal/repository"
)

// Store holds every table. The repositories share its lock.
type Store struct {
	txMu    sync.Mutex
	mu      sync.Mutex
	nextID  int
	users   map[int]*model.User
	habits  map[int]*model.Habit
	lists   map[int]*model.HabitList
	records map[int]map[time.Time]*model.CheckedRecord
}

func New() *Store {
	return &Store{
		users:   make(map[int]*model.User),
		habits:  make(map[int]*model.Habit),
		lists:   make(map[int]*model.HabitList),
		records: make(map[int]map[time.Time]*model.CheckedRecord),
	}
}

func (s *Store) Users() UserRepository     { return UserRepository{s} }
func (s *Store) Habits() HabitRepository   { return HabitRepository{s} }
func (s *Store) Lists() ListRepository     { return ListRepository{s} }
func (s *Store) Records() RecordRepository { return RecordRepository{s} }

// InTx runs fn and restores every table if it fails. Transactions are
// serialized; writes made outside one while it runs are restored too.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	saved := s.copyTables()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.users, s.habits, s.lists, s.records = saved.users, saved.habits, saved.lists, saved.records
		s.mu.Unlock()
		return err
	}
	return nil
}

type tables struct {
	users   map[int]*model.User
	habits  map[int]*model.Habit
	lists   map[int]*model.HabitList
	records map[int]map[time.Time]*model.CheckedRecord
}

func (s *Store) copyTables() tables {
	t := tables{
		users:   make(map[int]*model.User, len(s.users)),
		habits:  make(map[int]*model.Habit, len(s.habits)),
		lists:   make(map[int]*model.HabitList, len(s.lists)),
		records: make(map[int]map[time.Time]*model.CheckedRecord, len(s.records)),
	}
	for id, u := range s.users {
		cp := *u
		t.users[id] = &cp
	}
	for id, h := range s.habits {
		cp := *h
		if h.ListID != nil {
			listID := *h.ListID
			cp.ListID = &listID
		}
		t.habits[id] = &cp
	}
	for id, l := range s.lists {
		cp := *l
		t.lists[id] = &cp
	}
	for id, days := range s.records {
		m := make(map[time.Time]*model.CheckedRecord, len(days))
		for day, r := range days {
			cp := *r
			m[day] = &cp
		}
		t.records[id] = m
	}
	return t
}

func (m *Store) id() int {
	m.nextID++
	return m.nextID
}

// HabitRepository is the in-memory habits table.
type HabitRepository struct{ *Store }

func (m HabitRepository) Insert(_ context.Context, h *model.Habit) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = m.id()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	h.UpdatedAt = h.CreatedAt
	cp := *h
	m.habits[h.ID] = &cp
	return h.ID, nil
}

func (m HabitRepository) ListByUser(_ context.Context, userID int) ([]model.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Habit
	for _, h := range m.habits {
		if h.UserID == userID && !h.Deleted() {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m HabitRepository) get(userID, id int) (*model.Habit, error) {
	h, ok := m.habits[id]
	if !ok || h.UserID != userID || h.Deleted() {
		return nil, repository.ErrNotFound
	}
	return h, nil
}

func (m HabitRepository) Get(_ context.Context, userID, id int) (*model.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.get(userID, id)
	if err != nil {
		return nil, err
	}
	cp := *h
	return &cp, nil
}

func (m HabitRepository) UpdateStatus(_ context.Context, userID, id int, status model.HabitStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.habits[id]
	if !ok || h.UserID != userID {
		return repository.ErrNotFound
	}
	h.Status = status
	return nil
}

func (m HabitRepository) UpdateStar(_ context.Context, userID, id int, star bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.get(userID, id)
	if err != nil {
		return err
	}
	h.Star = star
	return nil
}

func (m HabitRepository) Update(_ context.Context, u *model.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.get(u.UserID, u.ID)
	if err != nil {
		return err
	}
	h.Name, h.WeeklyGoal, h.ListID = u.Name, u.WeeklyGoal, u.ListID
	return nil
}

func (m HabitRepository) UpdateOrders(_ context.Context, userID int, ids []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		if h, ok := m.habits[id]; ok && h.UserID == userID {
			h.Order = i
		}
	}
	return nil
}

func (m HabitRepository) NextOrder(_ context.Context, userID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := 0
	for _, h := range m.habits {
		if h.UserID == userID && h.Order >= next {
			next = h.Order + 1
		}
	}
	return next, nil
}

func (m HabitRepository) DetachList(_ context.Context, userID, listID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.habits {
		if h.UserID == userID && h.InList(listID) {
			h.ListID = nil
		}
	}
	return nil
}

// ListRepository is the in-memory habit_lists table.
type ListRepository struct{ *Store }

func (m ListRepository) Insert(_ context.Context, l *model.HabitList) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.id()
	l.CreatedAt = time.Now()
	cp := *l
	m.lists[l.ID] = &cp
	return l.ID, nil
}

func (m ListRepository) ListByUser(_ context.Context, userID int) ([]model.HabitList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.HabitList
	for _, l := range m.lists {
		if l.UserID == userID && !l.Deleted {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m ListRepository) Get(_ context.Context, userID, id int) (*model.HabitList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok || l.UserID != userID || l.Deleted {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m ListRepository) Update(_ context.Context, u *model.HabitList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[u.ID]
	if !ok || l.UserID != u.UserID || l.Deleted {
		return repository.ErrNotFound
	}
	*l = *u
	return nil
}

func (m ListRepository) SoftDelete(_ context.Context, userID, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok || l.UserID != userID {
		return repository.ErrNotFound
	}
	l.Deleted = true
	return nil
}

// RecordRepository is the in-memory checked_records table.
type RecordRepository struct{ *Store }

func (m RecordRepository) ListByHabit(_ context.Context, habitID int) ([]model.CheckedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CheckedRecord
	for _, r := range m.records[habitID] {
		out = append(out, *r)
	}
	sortByDay(out)
	return out, nil
}

func (m RecordRepository) ListByUser(_ context.Context, userID int) (map[int][]model.CheckedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int][]model.CheckedRecord)
	for hid, byDay := range m.records {
		if h, ok := m.habits[hid]; !ok || h.UserID != userID {
			continue
		}
		for _, r := range byDay {
			out[hid] = append(out[hid], *r)
		}
		sortByDay(out[hid])
	}
	return out, nil
}

func (m RecordRepository) Get(_ context.Context, habitID int, day time.Time) (*model.CheckedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[habitID][habit.Date(day)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m RecordRepository) Upsert(_ context.Context, habitID int, day time.Time, state model.TickState, text *string) (*model.CheckedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day = habit.Date(day)
	byDay, ok := m.records[habitID]
	if !ok {
		byDay = make(map[time.Time]*model.CheckedRecord)
		m.records[habitID] = byDay
	}
	r, ok := byDay[day]
	if !ok {
		r = &model.CheckedRecord{ID: m.id(), HabitID: habitID, Day: day}
		byDay[day] = r
	}
	r.Done = state
	r.UpdatedAt = time.Now()
	if text != nil {
		r.Text = *text
	}
	cp := *r
	return &cp, nil
}

func sortByDay(records []model.CheckedRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Day.Before(records[j].Day) })
}

// UserRepository is the in-memory users table.
type UserRepository struct{ *Store }

func (m UserRepository) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	u.ID = m.id()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m UserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

