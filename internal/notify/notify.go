package notify

import (
	"context"
	"sync"
	"time"

	"kart-commerce/internal/model"

	"github.com/rs/zerolog"
)

// Mailer delivers customer notifications.
type Mailer interface {
	OrderStatusChanged(ctx context.Context, order model.Order) error
}

// Notifier accepts fire-and-forget notifications. Notify never blocks on
// delivery and never reports delivery failures.
type Notifier interface {
	Notify(ctx context.Context, order *model.Order)
}

// LogMailer writes notifications to the log instead of sending mail.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a log-backed mailer.
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "mailer").Logger()}
}

func (m *LogMailer) OrderStatusChanged(_ context.Context, order model.Order) error {
	m.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", order.UserID).
		Str("status", string(order.Status)).
		Str("total_amount", order.TotalAmount.StringFixed(2)).
		Msg("order status notification sent")
	return nil
}

// DispatcherConfig sizes the delivery pool.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Dispatcher delivers notifications on a fixed pool of workers. A full queue
// drops the notification with a warning.
type Dispatcher struct {
	mailer  Mailer
	timeout time.Duration
	logger  zerolog.Logger

	jobs   chan model.Order
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the workers.
func NewDispatcher(mailer Mailer, cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	d := &Dispatcher{
		mailer:  mailer,
		timeout: cfg.Timeout,
		logger:  logger.With().Str("component", "notify-dispatcher").Logger(),
		jobs:    make(chan model.Order, cfg.QueueSize),
	}

	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Notify enqueues a snapshot of order. The caller's context is not used for
// delivery since the request usually ends before the mail goes out.
func (d *Dispatcher) Notify(_ context.Context, order *model.Order) {
	if order == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	snapshot := *order
	snapshot.Lines = append([]model.OrderLine(nil), order.Lines...)

	select {
	case d.jobs <- snapshot:
	default:
		d.logger.Warn().
			Str("order_id", order.ID.String()).
			Str("status", string(order.Status)).
			Msg("notification queue full, dropping notification")
	}
}

// Close stops accepting notifications and waits for queued ones to be sent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for order := range d.jobs {
		d.deliver(order)
	}
}

func (d *Dispatcher) deliver(order model.Order) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Str("order_id", order.ID.String()).Msg("mailer panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.mailer.OrderStatusChanged(ctx, order); err != nil {
		d.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("status", string(order.Status)).
			Msg("failed to send order notification")
	}
}
