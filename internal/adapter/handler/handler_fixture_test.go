package handler

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/lending-engine/internal/adapter/storage"
	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/core/service"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (n *recordingNotifier) Notify(_ context.Context, notice domain.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) Notices() []domain.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notice(nil), n.notices...)
}

type services struct {
	store    *storage.MemoryAdapter
	notifier *recordingNotifier
	lending  *service.LendingService
	queue    *service.ReservationQueue
	catalog  *service.CatalogService
	queries  *service.QueryService
}

func newServices(t *testing.T) *services {
	t.Helper()

	s := &services{
		store:    storage.NewMemoryAdapter(),
		notifier: &recordingNotifier{},
	}
	opts := []service.Option{
		service.WithLogger(slog.New(slog.DiscardHandler)),
		service.WithRetryOptions(service.WithBaseDelay(time.Millisecond)),
	}
	gate := service.NewMembershipGate(s.store)
	s.queue = service.NewReservationQueue(s.store, gate, opts...)
	s.lending = service.NewLendingService(s.store, gate, s.queue, s.store, s.notifier, opts...)
	s.catalog = service.NewCatalogService(s.store, s.store, opts...)
	s.queries = service.NewQueryService(s.store, opts...)
	return s
}

func (s *services) addBorrower(t *testing.T, id int64, active bool) {
	t.Helper()
	require.NoError(t, s.catalog.SaveBorrower(context.Background(), domain.Borrower{
		ID:     id,
		Name:   "Reader",
		Email:  "reader@example.com",
		Active: active,
	}))
}

func (s *services) addTitle(t *testing.T, copies int) *domain.TitleDetail {
	t.Helper()
	detail, err := s.catalog.AddTitle(context.Background(), domain.NewTitle{
		Name:          "The Left Hand of Darkness",
		Creator:       "Ursula K. Le Guin",
		Category:      "Fiction",
		PublishedOn:   time.Date(1969, 3, 1, 0, 0, 0, 0, time.UTC),
		ShelfLocation: "F-12",
		Copies:        copies,
	})
	require.NoError(t, err)
	return detail
}
