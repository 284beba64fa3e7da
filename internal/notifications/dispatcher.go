package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/metrics"
	"github.com/google/uuid"
)

const (
	defaultQueueSize      = 1024
	defaultWorkers        = 2
	defaultPersistTimeout = 5 * time.Second
)

// Notifier accepts events for asynchronous delivery. Notify never blocks and
// reports whether the event was queued.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, event Event) bool
}

// Pusher delivers a payload to live connections of one account.
type Pusher interface {
	SendToAccount(accountID uuid.UUID, payload any) (int, error)
}

// DispatcherParams wires the dispatcher dependencies.
type DispatcherParams struct {
	Repo           Repository
	Pusher         Pusher
	QueueSize      int
	Workers        int
	PersistTimeout time.Duration
	Metrics        *metrics.DispatcherMetrics
	Logger         *logger.Logger
}

type envelope struct {
	recipientID uuid.UUID
	event       Event
	queuedAt    time.Time
}

// Dispatcher is an at-most-once notification fan-out. Events go onto a
// bounded queue; workers persist each one to the inbox and push it to live
// connections. A full queue drops the event.
type Dispatcher struct {
	repo           Repository
	pusher         Pusher
	workers        int
	persistTimeout time.Duration
	metrics        *metrics.DispatcherMetrics
	logg           *logger.Logger
	now            func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan envelope

	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewDispatcher validates params and builds an idle dispatcher; call Start.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	size := params.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	workers := params.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	timeout := params.PersistTimeout
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Dispatcher{
		repo:           params.Repo,
		pusher:         params.Pusher,
		workers:        workers,
		persistTimeout: timeout,
		metrics:        params.Metrics,
		logg:           logg,
		now:            db.Now,
		queue:          make(chan envelope, size),
	}, nil
}

// Start launches the delivery workers. Extra calls are no-ops.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.work()
		}
	})
}

func (d *Dispatcher) Notify(ctx context.Context, recipientID uuid.UUID, event Event) bool {
	if recipientID == uuid.Nil {
		d.metrics.IncDropped("invalid_recipient")
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.metrics.IncDropped("closed")
		return false
	}

	select {
	case d.queue <- envelope{recipientID: recipientID, event: event, queuedAt: d.now()}:
		d.metrics.IncEnqueued()
		d.metrics.SetDepth(len(d.queue))
		return true
	default:
		d.metrics.IncDropped("queue_full")
		d.logg.Warn(d.logg.WithFields(ctx, map[string]any{
			"recipient_id": recipientID.String(),
			"kind":         event.Kind.String(),
		}), "notification queue full, dropping event")
		return false
	}
}

// Close stops accepting events and drains what is queued until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.Start()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification drain interrupted: %w", ctx.Err())
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for env := range d.queue {
		d.metrics.SetDepth(len(d.queue))
		d.deliver(env)
	}
}

func (d *Dispatcher) deliver(env envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), d.persistTimeout)
	defer cancel()
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"recipient_id": env.recipientID.String(),
		"kind":         env.event.Kind.String(),
	})

	record := models.Notification{
		ID:          uuid.New(),
		RecipientID: env.recipientID,
		EntityID:    env.event.EntityID,
		Kind:        env.event.Kind,
		Title:       env.event.Title,
		Message:     env.event.Message,
		CreatedAt:   env.queuedAt,
	}
	if err := d.repo.Create(ctx, &record); err != nil {
		d.metrics.IncDropped("persist_failed")
		d.logg.Error(logCtx, "persist notification", err)
	} else {
		d.metrics.IncDelivered("inbox")
	}

	if d.pusher == nil {
		return
	}
	sent, err := d.pusher.SendToAccount(env.recipientID, pushMessage{Type: "notification", Notification: NewView(record)})
	if err != nil {
		d.logg.Warn(logCtx, "push notification failed: "+err.Error())
		return
	}
	if sent > 0 {
		d.metrics.IncDelivered("websocket")
	}
}
