package amqp

import (
	"context"
	"sync"
	"sync/atomic"

	"fintrack/internal/log"
	"fintrack/internal/store"
)

// EventPublisher sends one change event to the broker.
type EventPublisher interface {
	PublishChange(ctx context.Context, ev *ChangeEvent) error
}

var _ EventPublisher = (*Client)(nil)

// Publisher forwards acknowledged store mutations to an EventPublisher.
// Observe never blocks the store: events are queued and sent by Run, and
// dropped when the queue is full.
type Publisher struct {
	pub    EventPublisher
	logger *log.Logger

	mu     sync.Mutex
	closed bool
	events chan *ChangeEvent

	published atomic.Int64
	dropped   atomic.Int64
}

func NewPublisher(pub EventPublisher, buffer int, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Discard()
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Publisher{
		pub:    pub,
		logger: logger.WithComponent(log.ComponentAMQP),
		events: make(chan *ChangeEvent, buffer),
	}
}

// Observe is a store observer. Only successful create, update and delete
// operations produce an event.
func (p *Publisher) Observe(c store.Change) {
	if !c.Op.Mutation() || c.Err != nil || c.Status != store.Ready {
		return
	}

	ev, err := NewChangeEvent(c.Kind, string(c.Op), c.ID.String(), c.UserID, c.Record)
	if err != nil {
		p.logger.Error("Failed to build change event", log.FieldKind, c.Kind, log.FieldError, err)
		p.dropped.Add(1)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}
	select {
	case p.events <- ev:
	default:
		p.dropped.Add(1)
		p.logger.Warn("Change event queue full, dropping event",
			log.FieldKind, ev.Kind,
			log.FieldOperation, ev.Op,
			log.FieldRecordID, ev.ID)
	}
}

// Run publishes queued events until Close has been called and the queue is
// drained, or ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-p.events:
			if !ok {
				return nil
			}
			if err := p.pub.PublishChange(ctx, ev); err != nil {
				p.dropped.Add(1)
				p.logger.WarnContext(ctx, "Failed to publish change event",
					log.FieldKind, ev.Kind,
					log.FieldOperation, ev.Op,
					log.FieldRecordID, ev.ID,
					log.FieldError, err)
				continue
			}
			p.published.Add(1)
		}
	}
}

// Close stops accepting events. Run returns once the queue is drained.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
}

// Stats reports how many events were published and dropped.
func (p *Publisher) Stats() (published, dropped int64) {
	return p.published.Load(), p.dropped.Load()
}
