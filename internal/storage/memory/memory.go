// Package memory is an in-process record store used by the memory backend
// and by tests.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"spendwise/internal/core"
	"spendwise/internal/ports"
)

var _ ports.ExpenseStore = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	users    []core.User
	expenses []core.Expense
	nextUser int64
	nextExp  int64
}

func New() *Store {
	return &Store{}
}

// NewFromFiles creates a store seeded with the users listed in
// base/seed_users.txt, one "email,role,budget" per line. Missing or malformed
// lines are ignored.
func NewFromFiles(base string) *Store {
	s := New()
	for _, line := range readLines(filepath.Join(base, "seed_users.txt")) {
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			continue
		}
		budget, err := core.ParseAmount(parts[2])
		if err != nil {
			continue
		}
		_, _ = s.CreateUser(context.Background(), core.User{
			Email:  strings.TrimSpace(parts[0]),
			Role:   strings.TrimSpace(parts[1]),
			Budget: budget,
		})
	}
	return s
}

// CreateUser stores the user and returns its id.
func (s *Store) CreateUser(_ context.Context, u core.User) (int64, error) {
	if err := u.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return 0, ports.ErrConflict
		}
	}
	s.nextUser++
	u.ID = s.nextUser
	s.users = append(s.users, u)
	return u.ID, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, ports.ErrNotFound
}

// CreateExpense stores the expense and returns its id.
func (s *Store) CreateExpense(_ context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextExp++
	e.ID = s.nextExp
	s.expenses = append(s.expenses, e)
	return e.ID, nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, ports.ErrNotFound
}

func (s *Store) DeleteExpense(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.expenses {
		if e.ID == id && e.UserID == userID {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return nil
		}
	}
	return ports.ErrNotFound
}

// FetchExpenses returns copies sorted by date then id, ascending.
func (s *Store) FetchExpenses(_ context.Context, userID int64, since core.Date) ([]core.Expense, error) {
	out := s.filter(func(e core.Expense) bool {
		return e.UserID == userID && !e.Date.Before(since.Time)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListExpenses returns copies sorted newest first.
func (s *Store) ListExpenses(_ context.Context, userID int64) ([]core.Expense, error) {
	out := s.filter(func(e core.Expense) bool { return e.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) filter(keep func(core.Expense) bool) []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
