package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/lending-engine/internal/adapter/storage"
	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/port"
)

var testStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testStart}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Mock Notifier
type spyNotifier struct {
	mu      sync.Mutex
	notices []domain.Notice
	err     error
}

func (n *spyNotifier) Notify(_ context.Context, notice domain.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return n.err
}

func (n *spyNotifier) Notices() []domain.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notice(nil), n.notices...)
}

func (n *spyNotifier) failWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

type fixture struct {
	store    *storage.MemoryAdapter
	clock    *fakeClock
	notifier *spyNotifier
	gate     *MembershipGate
	queue    *ReservationQueue
	lending  *LendingService
	catalog  *CatalogService
	queries  *QueryService
	sweeper  *Sweeper
}

// newFixture wires every service over one in-memory store. repo overrides
// the unit of work used by lending operations when set.
func newFixture(t *testing.T, repo port.LendingRepository, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		store:    storage.NewMemoryAdapter(),
		clock:    newFakeClock(),
		notifier: &spyNotifier{},
	}
	if repo == nil {
		repo = f.store
	}

	opts = append([]Option{
		WithClock(f.clock.Now),
		WithLogger(slog.New(slog.DiscardHandler)),
		WithRetryOptions(WithBaseDelay(time.Millisecond)),
	}, opts...)

	f.gate = NewMembershipGate(f.store)
	f.queue = NewReservationQueue(repo, f.gate, opts...)
	f.lending = NewLendingService(repo, f.gate, f.queue, f.store, f.notifier, opts...)
	f.catalog = NewCatalogService(f.store, f.store, opts...)
	f.queries = NewQueryService(f.store, opts...)
	f.sweeper = NewSweeper(f.store, f.store, f.store, f.notifier, time.Second, opts...)
	return f
}

func (f *fixture) addBorrower(t *testing.T, id int64, active bool) domain.Borrower {
	t.Helper()
	b := domain.Borrower{
		ID:     id,
		Name:   fmt.Sprintf("Borrower %d", id),
		Email:  fmt.Sprintf("borrower%d@example.com", id),
		Active: active,
	}
	require.NoError(t, f.catalog.SaveBorrower(context.Background(), b))
	return b
}

func (f *fixture) addTitle(t *testing.T, name string, copies int) *domain.TitleDetail {
	t.Helper()
	detail, err := f.catalog.AddTitle(context.Background(), domain.NewTitle{
		Name:          name,
		Creator:       "Author",
		Category:      "Fiction",
		PublishedOn:   time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
		ShelfLocation: "A-1",
		Copies:        copies,
	})
	require.NoError(t, err)
	return detail
}

func (f *fixture) checkout(t *testing.T, borrowerID, titleID int64) *domain.Loan {
	t.Helper()
	loan, err := f.lending.Checkout(context.Background(), domain.CheckoutCommand{
		BorrowerID: borrowerID,
		TitleID:    titleID,
	})
	require.NoError(t, err)
	return loan
}

// faultyRepo wraps a unit of work and lets a test break individual steps.
type faultyRepo struct {
	inner port.LendingRepository

	mu             sync.Mutex
	lockConflicts  int
	failEventKind  domain.LoanEventKind
	failEventError error
}

func (r *faultyRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, tx port.LendingTx) error) error {
	return r.inner.RunInTx(ctx, func(ctx context.Context, tx port.LendingTx) error {
		return fn(ctx, &faultyTx{LendingTx: tx, repo: r})
	})
}

type faultyTx struct {
	port.LendingTx
	repo *faultyRepo
}

func (t *faultyTx) UpdateCopyStatus(ctx context.Context, c domain.Copy, status domain.CopyStatus) error {
	t.repo.mu.Lock()
	if t.repo.lockConflicts > 0 {
		t.repo.lockConflicts--
		t.repo.mu.Unlock()
		return port.ErrOptimisticLock
	}
	t.repo.mu.Unlock()
	return t.LendingTx.UpdateCopyStatus(ctx, c, status)
}

func (t *faultyTx) AppendLoanEvent(ctx context.Context, event *domain.LoanEvent) error {
	if event.Kind == t.repo.failEventKind && t.repo.failEventError != nil {
		return t.repo.failEventError
	}
	return t.LendingTx.AppendLoanEvent(ctx, event)
}
