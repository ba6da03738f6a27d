package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/port"
)

// MemoryAdapter keeps all tables in process. Units of work are applied by a
// single writer to a private copy of the tables and swapped in on success.
type MemoryAdapter struct {
	mu    sync.RWMutex
	state *memoryState
}

type memoryState struct {
	titles       map[int64]domain.Title
	copies       map[int64]domain.Copy
	borrowers    map[int64]domain.Borrower
	loans        map[int64]domain.Loan
	events       map[int64]domain.LoanEvent
	reservations map[int64]domain.Reservation
	seq          map[string]int64
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{state: &memoryState{
		titles:       make(map[int64]domain.Title),
		copies:       make(map[int64]domain.Copy),
		borrowers:    make(map[int64]domain.Borrower),
		loans:        make(map[int64]domain.Loan),
		events:       make(map[int64]domain.LoanEvent),
		reservations: make(map[int64]domain.Reservation),
		seq:          make(map[string]int64),
	}}
}

func (s *memoryState) clone() *memoryState {
	return &memoryState{
		titles:       maps.Clone(s.titles),
		copies:       maps.Clone(s.copies),
		borrowers:    maps.Clone(s.borrowers),
		loans:        maps.Clone(s.loans),
		events:       maps.Clone(s.events),
		reservations: maps.Clone(s.reservations),
		seq:          maps.Clone(s.seq),
	}
}

func (s *memoryState) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func (m *MemoryAdapter) read() *memoryState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// update applies fn to a copy of the state and keeps it only if fn succeeds.
func (m *MemoryAdapter) update(fn func(s *memoryState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(work); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryAdapter) RunInTx(ctx context.Context, fn func(ctx context.Context, tx port.LendingTx) error) error {
	return m.update(func(s *memoryState) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(ctx, &memoryTx{state: s})
	})
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) LockBorrower(_ context.Context, borrowerID int64) (*domain.Borrower, error) {
	b, ok := t.state.borrowers[borrowerID]
	if !ok {
		return nil, domain.ErrBorrowerNotFound
	}
	return &b, nil
}

func (t *memoryTx) LockTitle(ctx context.Context, titleID int64) (*domain.Title, error) {
	title, _ := t.GetTitle(ctx, titleID)
	if title == nil {
		return nil, domain.ErrTitleNotFound
	}
	return title, nil
}

func (t *memoryTx) GetTitle(_ context.Context, titleID int64) (*domain.Title, error) {
	title, ok := t.state.titles[titleID]
	if !ok {
		return nil, nil
	}
	return &title, nil
}

func (t *memoryTx) GetCopy(_ context.Context, copyID int64) (*domain.Copy, error) {
	c, ok := t.state.copies[copyID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (t *memoryTx) FindAvailableCopy(_ context.Context, titleID int64, exclude ...int64) (*domain.Copy, error) {
	var found *domain.Copy
	for _, c := range t.state.copies {
		if c.TitleID != titleID || c.Status != domain.CopyStatusAvailable || slices.Contains(exclude, c.ID) {
			continue
		}
		if found == nil || c.ID < found.ID {
			found = &c
		}
	}
	return found, nil
}

func (t *memoryTx) CountAvailableCopies(_ context.Context, titleID int64) (int, error) {
	n := 0
	for _, c := range t.state.copies {
		if c.TitleID == titleID && c.Status == domain.CopyStatusAvailable {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) UpdateCopyStatus(_ context.Context, c domain.Copy, status domain.CopyStatus) error {
	current, ok := t.state.copies[c.ID]
	if !ok {
		return domain.ErrCopyNotFound
	}
	if current.Version != c.Version || current.Status != c.Status {
		return port.ErrOptimisticLock
	}
	current.Status = status
	current.Version++
	t.state.copies[c.ID] = current
	return nil
}

func (t *memoryTx) CountOpenLoans(_ context.Context, borrowerID int64) (int, error) {
	n := 0
	for _, l := range t.state.loans {
		if l.BorrowerID == borrowerID && l.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) HasOpenLoanForTitle(_ context.Context, borrowerID, titleID int64) (bool, error) {
	for _, l := range t.state.loans {
		if l.BorrowerID == borrowerID && l.TitleID == titleID && l.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) GetLoan(_ context.Context, loanID int64) (*domain.Loan, error) {
	l, ok := t.state.loans[loanID]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (t *memoryTx) FindOpenLoan(_ context.Context, borrowerID, copyID int64) (*domain.Loan, error) {
	for _, l := range t.state.loans {
		if l.BorrowerID == borrowerID && l.CopyID == copyID && l.IsOpen() {
			return &l, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) InsertLoan(_ context.Context, loan *domain.Loan) error {
	for _, l := range t.state.loans {
		if l.CopyID == loan.CopyID && l.IsOpen() {
			return fmt.Errorf("insert loan: copy %d already has open loan %d", loan.CopyID, l.ID)
		}
	}
	loan.ID = t.state.nextID("loans")
	t.state.loans[loan.ID] = *loan
	return nil
}

func (t *memoryTx) UpdateLoan(_ context.Context, loan domain.Loan) error {
	if _, ok := t.state.loans[loan.ID]; !ok {
		return domain.ErrLoanNotFound
	}
	t.state.loans[loan.ID] = loan
	return nil
}

func (t *memoryTx) AppendLoanEvent(_ context.Context, event *domain.LoanEvent) error {
	event.ID = t.state.nextID("loan_events")
	t.state.events[event.ID] = *event
	return nil
}

func (t *memoryTx) HasActiveReservation(_ context.Context, borrowerID, titleID int64) (bool, error) {
	for _, r := range t.state.reservations {
		if r.BorrowerID == borrowerID && r.TitleID == titleID && r.Status == domain.ReservationStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) InsertReservation(_ context.Context, reservation *domain.Reservation) error {
	reservation.ID = t.state.nextID("reservations")
	t.state.reservations[reservation.ID] = *reservation
	return nil
}

func (t *memoryTx) OldestActiveReservation(_ context.Context, titleID int64) (*domain.Reservation, error) {
	var oldest *domain.Reservation
	for _, r := range t.state.reservations {
		if r.TitleID != titleID || r.Status != domain.ReservationStatusActive {
			continue
		}
		if oldest == nil || r.Precedes(*oldest) {
			oldest = &r
		}
	}
	return oldest, nil
}

func (t *memoryTx) MarkReservationNotified(_ context.Context, reservationID int64, at time.Time) error {
	r, ok := t.state.reservations[reservationID]
	if !ok || r.Status != domain.ReservationStatusActive {
		return port.ErrOptimisticLock
	}
	r.Status = domain.ReservationStatusNotified
	r.NotifiedAt = &at
	t.state.reservations[reservationID] = r
	return nil
}

// Queries

func (m *MemoryAdapter) ListLoans(_ context.Context, filter domain.LoanFilter) ([]domain.Loan, error) {
	s := m.read()
	var loans []domain.Loan
	for _, l := range s.loans {
		if filter.BorrowerID != 0 && l.BorrowerID != filter.BorrowerID {
			continue
		}
		if filter.OpenOnly && !l.IsOpen() {
			continue
		}
		loans = append(loans, l)
	}
	slices.SortFunc(loans, func(a, b domain.Loan) int {
		if c := b.IssuedAt.Compare(a.IssuedAt); c != 0 {
			return c
		}
		return compareInt64(b.ID, a.ID)
	})
	return loans, nil
}

func (m *MemoryAdapter) ListReservations(_ context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	s := m.read()
	var reservations []domain.Reservation
	for _, r := range s.reservations {
		if filter.BorrowerID != 0 && r.BorrowerID != filter.BorrowerID {
			continue
		}
		if filter.ActiveOnly && r.Status != domain.ReservationStatusActive {
			continue
		}
		reservations = append(reservations, r)
	}
	slices.SortFunc(reservations, func(a, b domain.Reservation) int {
		if a.Precedes(b) {
			return -1
		}
		if b.Precedes(a) {
			return 1
		}
		return 0
	})
	return reservations, nil
}

func (m *MemoryAdapter) ListOverdueLoans(_ context.Context, now time.Time) ([]domain.Loan, error) {
	s := m.read()
	var loans []domain.Loan
	for _, l := range s.loans {
		if l.IsOverdue(now) {
			loans = append(loans, l)
		}
	}
	slices.SortFunc(loans, func(a, b domain.Loan) int {
		if c := a.DueAt.Compare(b.DueAt); c != 0 {
			return c
		}
		return compareInt64(a.ID, b.ID)
	})
	return loans, nil
}

func (m *MemoryAdapter) ListLoanEvents(_ context.Context, loanID int64) ([]domain.LoanEvent, error) {
	s := m.read()
	var events []domain.LoanEvent
	for _, e := range s.events {
		if e.LoanID == loanID {
			events = append(events, e)
		}
	}
	slices.SortFunc(events, func(a, b domain.LoanEvent) int {
		return compareInt64(a.ID, b.ID)
	})
	return events, nil
}

func (m *MemoryAdapter) InventoryCounts(_ context.Context) (domain.InventoryCounts, error) {
	s := m.read()
	counts := domain.InventoryCounts{Titles: len(s.titles), Copies: len(s.copies)}
	for _, c := range s.copies {
		switch c.Status {
		case domain.CopyStatusAvailable:
			counts.Available++
		case domain.CopyStatusCheckedOut:
			counts.CheckedOut++
		}
	}
	return counts, nil
}

// Catalog

func (m *MemoryAdapter) CreateTitle(_ context.Context, title *domain.Title, copies int) ([]domain.Copy, error) {
	var created []domain.Copy
	err := m.update(func(s *memoryState) error {
		title.ID = s.nextID("titles")
		s.titles[title.ID] = *title
		for i := 1; i <= copies; i++ {
			c := domain.Copy{
				ID:      s.nextID("copies"),
				TitleID: title.ID,
				Barcode: domain.CopyBarcode(title.ID, i),
				Status:  domain.CopyStatusAvailable,
			}
			s.copies[c.ID] = c
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (m *MemoryAdapter) UpdateTitle(_ context.Context, title domain.Title) error {
	return m.update(func(s *memoryState) error {
		if _, ok := s.titles[title.ID]; !ok {
			return domain.ErrTitleNotFound
		}
		s.titles[title.ID] = title
		return nil
	})
}

func (m *MemoryAdapter) DeleteTitle(_ context.Context, titleID int64) error {
	return m.update(func(s *memoryState) error {
		if _, ok := s.titles[titleID]; !ok {
			return domain.ErrTitleNotFound
		}
		for _, l := range s.loans {
			if l.TitleID == titleID {
				return domain.ErrTitleHasLoans
			}
		}
		for id, c := range s.copies {
			if c.TitleID == titleID {
				delete(s.copies, id)
			}
		}
		for id, r := range s.reservations {
			if r.TitleID == titleID {
				delete(s.reservations, id)
			}
		}
		delete(s.titles, titleID)
		return nil
	})
}

func (m *MemoryAdapter) GetTitle(_ context.Context, titleID int64) (*domain.Title, error) {
	title, ok := m.read().titles[titleID]
	if !ok {
		return nil, nil
	}
	return &title, nil
}

func (m *MemoryAdapter) ListCopies(_ context.Context, titleID int64) ([]domain.Copy, error) {
	var copies []domain.Copy
	for _, c := range m.read().copies {
		if c.TitleID == titleID {
			copies = append(copies, c)
		}
	}
	slices.SortFunc(copies, func(a, b domain.Copy) int {
		return compareInt64(a.ID, b.ID)
	})
	return copies, nil
}

func (m *MemoryAdapter) SearchTitles(_ context.Context, filter domain.TitleFilter) ([]domain.Title, error) {
	var titles []domain.Title
	for _, t := range m.read().titles {
		if !containsFold(t.Name, filter.Name) ||
			!containsFold(t.Creator, filter.Creator) ||
			!containsFold(t.Category, filter.Category) {
			continue
		}
		if filter.PublishedOn != nil && !sameDay(t.PublishedOn, *filter.PublishedOn) {
			continue
		}
		titles = append(titles, t)
	}
	slices.SortFunc(titles, func(a, b domain.Title) int {
		return compareInt64(a.ID, b.ID)
	})
	return titles, nil
}

// Borrowers

func (m *MemoryAdapter) GetBorrower(_ context.Context, borrowerID int64) (*domain.Borrower, error) {
	b, ok := m.read().borrowers[borrowerID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *MemoryAdapter) SaveBorrower(_ context.Context, borrower domain.Borrower) error {
	return m.update(func(s *memoryState) error {
		s.borrowers[borrower.ID] = borrower
		return nil
	})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
