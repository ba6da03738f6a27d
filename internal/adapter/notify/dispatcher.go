package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/port"
)

const sendTimeout = 10 * time.Second

var (
	ErrQueueFull = errors.New("notification queue full")
	ErrClosed    = errors.New("notification dispatcher closed")
)

// Dispatcher hands notices to a pool of workers that deliver them through a
// Sink. Notify never blocks: a full queue drops the notice.
type Dispatcher struct {
	sink   port.Sink
	queue  chan domain.Notice
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sink port.Sink, workers, queueSize int, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		sink:   sink,
		queue:  make(chan domain.Notice, queueSize),
		logger: logger,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, notice domain.Notice) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- notice:
		return nil
	default:
		d.logger.ErrorContext(ctx, "notification dropped",
			slog.String("notice_id", notice.ID.String()),
			slog.String("kind", string(notice.Kind)),
			slog.Int64("borrower_id", notice.BorrowerID),
		)
		return ErrQueueFull
	}
}

// Close stops accepting notices and waits until the queued ones are delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) workerLoop(id int) {
	for notice := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)

		attrs := []any{
			slog.Int("worker", id),
			slog.String("notice_id", notice.ID.String()),
			slog.String("kind", string(notice.Kind)),
			slog.Int64("borrower_id", notice.BorrowerID),
		}
		if err := d.sink.Send(ctx, notice.Recipient, notice.Subject, notice.Body); err != nil {
			d.logger.ErrorContext(ctx, "notification delivery failed", append(attrs, slog.Any("error", err))...)
		} else {
			d.logger.DebugContext(ctx, "notification delivered", attrs...)
		}

		cancel()
	}
}
