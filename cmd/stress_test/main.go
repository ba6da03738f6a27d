package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/rl1809/lending-engine/internal/adapter/storage"
	"github.com/rl1809/lending-engine/internal/config"
	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/core/service"
	"github.com/rl1809/lending-engine/internal/port"
)

const (
	copies         = 20
	totalBorrowers = 50
)

type store interface {
	port.LendingRepository
	port.QueryRepository
	port.CatalogRepository
	port.BorrowerDirectory
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize storage
	var db store
	if cfg.DBDriver == config.DriverMemory {
		db = storage.NewMemoryAdapter()
	} else {
		sqlDB, err := sqlx.Connect(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			log.Fatalf("failed to connect %s: %v", cfg.DBDriver, err)
		}
		defer sqlDB.Close()
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)

		adapter := storage.NewSQLAdapter(sqlDB)
		if err := adapter.Migrate(ctx); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
		db = adapter
	}

	// Initialize services
	opts := []service.Option{
		service.WithLogger(slog.New(slog.DiscardHandler)),
		service.WithIdempotency(storage.NewMemoryCache()),
	}
	gate := service.NewMembershipGate(db)
	queue := service.NewReservationQueue(db, gate, opts...)
	lending := service.NewLendingService(db, gate, queue, db, discardNotifier{}, opts...)
	catalog := service.NewCatalogService(db, db, opts...)

	title, err := catalog.AddTitle(ctx, domain.NewTitle{
		Name:          fmt.Sprintf("Stress Title %d", time.Now().UnixNano()),
		Creator:       "Stress",
		Category:      "Test",
		PublishedOn:   time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		ShelfLocation: "Z-0",
		Copies:        copies,
	})
	if err != nil {
		log.Fatalf("failed to add title: %v", err)
	}

	// Borrower ids are unique per run.
	base := time.Now().Unix() * 1000
	for i := 1; i <= totalBorrowers; i++ {
		err := catalog.SaveBorrower(ctx, domain.Borrower{
			ID:     base + int64(i),
			Name:   fmt.Sprintf("Borrower %d", i),
			Email:  fmt.Sprintf("borrower%d@example.com", i),
			Active: true,
		})
		if err != nil {
			log.Fatalf("failed to save borrower: %v", err)
		}
	}

	// Counters
	var successCount atomic.Int32
	var rejectCount atomic.Int32
	var errorCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 1; i <= totalBorrowers; i++ {
		wg.Add(1)
		go func(borrowerID int64) {
			defer wg.Done()

			_, err := lending.Checkout(ctx, domain.CheckoutCommand{
				BorrowerID: borrowerID,
				TitleID:    title.Title.ID,
				RequestID:  uuid.NewString(),
			})
			switch service.Outcome(err) {
			case service.OutcomeSuccess:
				successCount.Add(1)
			case service.OutcomeRejected:
				rejectCount.Add(1)
			default:
				errorCount.Add(1)
				log.Printf("checkout for borrower %d failed: %v", borrowerID, err)
			}
		}(base + int64(i))
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	rejected := rejectCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Storage:          %s\n", cfg.DBDriver)
	fmt.Printf("Copies:           %d\n", copies)
	fmt.Printf("Borrowers:        %d\n", totalBorrowers)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected:         %d\n", rejected)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == copies && rejected == totalBorrowers-copies {
		fmt.Printf("PASS: Exactly %d checkouts succeeded, %d rejected\n", copies, totalBorrowers-copies)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d rejected, got %d/%d\n",
			copies, totalBorrowers-copies, success, rejected)
	}

	// Every copy must be held by exactly one open loan.
	holders := make(map[int64]int64)
	duplicates := 0
	for i := 1; i <= totalBorrowers; i++ {
		loans, err := db.ListLoans(ctx, domain.LoanFilter{BorrowerID: base + int64(i), OpenOnly: true})
		if err != nil {
			log.Fatalf("failed to list loans: %v", err)
		}
		for _, l := range loans {
			if _, taken := holders[l.CopyID]; taken {
				duplicates++
			}
			holders[l.CopyID] = l.BorrowerID
		}
	}

	if len(holders) == copies && duplicates == 0 {
		fmt.Println("PASS: Every copy is on loan to exactly one borrower")
	} else {
		fmt.Printf("FAIL: %d copies on loan, %d double-lent\n", len(holders), duplicates)
	}
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, domain.Notice) error { return nil }
