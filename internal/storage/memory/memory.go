package memory

// Package memory provides an in-memory implementation of every store interface,
// used for development and tests.
import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/tinoosan/tesouraria/internal/errs"
	"github.com/tinoosan/tesouraria/internal/ledger"
)

// Store is guarded by an RWMutex; multi-row writes happen under a single lock.
type Store struct {
	mu           sync.RWMutex
	contributors map[uuid.UUID]ledger.Contributor
	// cpf -> contributor id, only for contributors with a CPF
	cpfIndex  map[string]uuid.UUID
	entries   map[uuid.UUID]ledger.Entry
	snapshots []ledger.BalanceSnapshot
	users     map[string]ledger.User
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		contributors: make(map[uuid.UUID]ledger.Contributor),
		cpfIndex:     make(map[string]uuid.UUID),
		entries:      make(map[uuid.UUID]ledger.Entry),
		users:        make(map[string]ledger.User),
	}
}

// Ready always succeeds; the store lives in process memory.
func (s *Store) Ready(ctx context.Context) error { return nil }

// Seed helpers for local dev/tests.
func (s *Store) SeedUser(u ledger.User) { s.mu.Lock(); s.users[u.Username] = u; s.mu.Unlock() }
func (s *Store) SeedSnapshot(b ledger.BalanceSnapshot) {
	s.mu.Lock()
	s.snapshots = append(s.snapshots, b)
	s.mu.Unlock()
}
func (s *Store) Reset() {
	s.mu.Lock()
	s.contributors = map[uuid.UUID]ledger.Contributor{}
	s.cpfIndex = map[string]uuid.UUID{}
	s.entries = map[uuid.UUID]ledger.Entry{}
	s.snapshots = nil
	s.users = map[string]ledger.User{}
	s.mu.Unlock()
}

// Contributors

func (s *Store) ListContributors(_ context.Context) ([]ledger.Contributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Contributor, 0, len(s.contributors))
	for _, c := range s.contributors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := strings.ToLower(out[i].FullName), strings.ToLower(out[j].FullName); a != b {
			return a < b
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) GetContributor(_ context.Context, id uuid.UUID) (ledger.Contributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contributors[id]
	if !ok {
		return ledger.Contributor{}, errs.ErrNotFound
	}
	return c, nil
}

// CreateContributor stores the contributor and its address together. A duplicate CPF writes nothing.
func (s *Store) CreateContributor(_ context.Context, c ledger.Contributor) (ledger.Contributor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contributors[c.ID]; ok {
		return ledger.Contributor{}, errs.ErrConflict
	}
	if c.NationalID != "" {
		if _, taken := s.cpfIndex[c.NationalID]; taken {
			return ledger.Contributor{}, errs.ErrConflict
		}
		s.cpfIndex[c.NationalID] = c.ID
	}
	if c.BirthDate != nil {
		bd := *c.BirthDate
		c.BirthDate = &bd
	}
	s.contributors[c.ID] = c
	return c, nil
}

// ListAddresses returns the non-empty addresses ordered by contributor id.
func (s *Store) ListAddresses(_ context.Context) ([]ledger.ContributorAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.ContributorAddress, 0, len(s.contributors))
	for id, c := range s.contributors {
		if c.Address == (ledger.Address{}) {
			continue
		}
		out = append(out, ledger.ContributorAddress{ContributorID: id, Address: c.Address})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContributorID.String() < out[j].ContributorID.String() })
	return out, nil
}

// AddAddress sets the address of a contributor that has none.
func (s *Store) AddAddress(_ context.Context, a ledger.ContributorAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contributors[a.ContributorID]
	if !ok {
		return errs.ErrNotFound
	}
	if c.Address != (ledger.Address{}) {
		return errs.ErrConflict
	}
	c.Address = a.Address
	s.contributors[a.ContributorID] = c
	return nil
}

// DeleteContributor removes the contributor and clears the reference on its entries.
func (s *Store) DeleteContributor(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contributors[id]
	if !ok {
		return errs.ErrNotFound
	}
	if c.NationalID != "" {
		delete(s.cpfIndex, c.NationalID)
	}
	delete(s.contributors, id)
	for eid, e := range s.entries {
		if e.ContributorID != nil && *e.ContributorID == id {
			e.ContributorID = nil
			s.entries[eid] = e
		}
	}
	return nil
}

// Entries

func (s *Store) ListEntries(_ context.Context) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) GetEntry(_ context.Context, id uuid.UUID) (ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return ledger.Entry{}, errs.ErrNotFound
	}
	return e, nil
}

func (s *Store) CreateEntry(_ context.Context, e ledger.Entry) (ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkContributorLocked(e.ContributorID); err != nil {
		return ledger.Entry{}, err
	}
	if _, ok := s.entries[e.ID]; ok {
		return ledger.Entry{}, errs.ErrConflict
	}
	e.ContributorID = copyID(e.ContributorID)
	s.entries[e.ID] = e
	return e, nil
}

func (s *Store) UpdateEntry(_ context.Context, e ledger.Entry) (ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; !ok {
		return ledger.Entry{}, errs.ErrNotFound
	}
	if err := s.checkContributorLocked(e.ContributorID); err != nil {
		return ledger.Entry{}, err
	}
	e.ContributorID = copyID(e.ContributorID)
	s.entries[e.ID] = e
	return e, nil
}

func (s *Store) DeleteEntry(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) checkContributorLocked(id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, ok := s.contributors[*id]; !ok {
		return errs.Invalid("id_dizimista", "dizimista não encontrado")
	}
	return nil
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// Report aggregates

func (s *Store) SumEntries(_ context.Context, p ledger.Period, dir ledger.Direction) (money.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := ledger.Zero()
	for _, e := range s.entries {
		if e.Direction != dir || !p.Contains(e.Date) {
			continue
		}
		sum, err := total.Add(e.Amount)
		if err != nil {
			return money.Amount{}, fmt.Errorf("sum entries for %s: %w", p, err)
		}
		total = sum
	}
	return total, nil
}

func (s *Store) SumIncomingByCategory(_ context.Context, p ledger.Period, categories []string) (map[string]money.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		want[c] = struct{}{}
	}
	out := make(map[string]money.Amount)
	for _, e := range s.entries {
		if e.Direction != ledger.DirectionIncoming || !p.Contains(e.Date) {
			continue
		}
		if _, ok := want[e.Category]; !ok {
			continue
		}
		acc, ok := out[e.Category]
		if !ok {
			acc = ledger.Zero()
		}
		sum, err := acc.Add(e.Amount)
		if err != nil {
			return nil, fmt.Errorf("sum of %s for %s: %w", e.Category, p, err)
		}
		out[e.Category] = sum
	}
	return out, nil
}

func (s *Store) LatestSnapshot(_ context.Context, p ledger.Period) (ledger.BalanceSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  ledger.BalanceSnapshot
		found bool
	)
	// later appends win ties
	for _, b := range s.snapshots {
		if b.Period != p {
			continue
		}
		if !found || !b.RecordedAt.Before(best.RecordedAt) {
			best, found = b, true
		}
	}
	return best, found, nil
}

func (s *Store) SaveSnapshot(_ context.Context, b ledger.BalanceSnapshot) (ledger.BalanceSnapshot, error) {
	s.mu.Lock()
	s.snapshots = append(s.snapshots, b)
	s.mu.Unlock()
	return b, nil
}

// Users

func (s *Store) UserByUsername(_ context.Context, username string) (ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return ledger.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateUser(_ context.Context, u ledger.User) (ledger.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return ledger.User{}, errs.ErrConflict
	}
	s.users[u.Username] = u
	return u, nil
}
