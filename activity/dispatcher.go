package activity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Krish-Depani/account-security/models"
	"go.uber.org/zap"
)

// Sink persists one activity.
type Sink interface {
	Write(ctx context.Context, a *models.Activity) error
}

// DropCounter is notified each time an entry is discarded because the buffer
// is full.
type DropCounter interface {
	ActivityDropped()
}

const (
	writeTimeout  = 5 * time.Second
	locateTimeout = 2 * time.Second
)

// Locator resolves a client address to a display location.
type Locator func(ctx context.Context, ip string) string

type Option func(*Dispatcher)

// WithLocator resolves locations for entries that ask for one. Lookups run on
// the dispatcher goroutine, never on the caller's.
func WithLocator(l Locator) Option {
	return func(d *Dispatcher) { d.locate = l }
}

type pending struct {
	entry Entry
	at    time.Time
}

// Dispatcher forwards entries to a sink from a single background goroutine.
type Dispatcher struct {
	sink      Sink
	log       *zap.Logger
	drops     DropCounter
	locate    Locator
	now       func() time.Time
	ch        chan pending
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	mu        sync.RWMutex // guards closed against in-flight sends
	closed    bool
	closeOnce sync.Once
}

func NewDispatcher(sink Sink, bufferSize int, log *zap.Logger, drops DropCounter, opts ...Option) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		sink:  sink,
		log:   log,
		drops: drops,
		now:   time.Now,
		ch:    make(chan pending, bufferSize),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case p := <-d.ch:
			d.write(p)
		case <-d.done:
			for {
				select {
				case p := <-d.ch:
					d.write(p)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) location(ip string) string {
	if d.locate == nil || ip == "" {
		return "Unknown"
	}
	ctx, cancel := context.WithTimeout(context.Background(), locateTimeout)
	defer cancel()
	return d.locate(ctx, ip)
}

func (d *Dispatcher) write(p pending) {
	e := p.entry
	if e.ResolveLocation {
		details := make(map[string]string, len(e.Details)+1)
		for k, v := range e.Details {
			details[k] = v
		}
		details["location"] = d.location(e.IPAddress)
		e.Details = details
	}
	a := e.Model(p.at)

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := d.sink.Write(ctx, a); err != nil {
		d.log.Error("failed to record activity",
			zap.String("action", string(a.Action)),
			zap.String("user_id", a.UserID.String()),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) drop() {
	d.dropped.Add(1)
	if d.drops != nil {
		d.drops.ActivityDropped()
	}
}

// Record enqueues the entry. It never blocks: when the buffer is full or the
// dispatcher is closed the entry is dropped and counted.
func (d *Dispatcher) Record(_ context.Context, e Entry) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop()
		return
	}

	select {
	case d.ch <- pending{entry: e, at: d.now()}:
	default:
		d.drop()
		d.log.Warn("activity buffer full, entry dropped", zap.String("action", string(e.Action)))
	}
}

// Close stops accepting entries and waits until the buffer is drained.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.done)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
