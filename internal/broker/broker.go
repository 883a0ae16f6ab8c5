package broker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/docchat/internal/agent"
	"github.com/user/docchat/internal/types"
)

// ErrJobNotFound is returned when attaching to an unknown, already-claimed,
// or completed job.
var ErrJobNotFound = errors.New("job not found")

// Runner executes one conversational turn, projecting events through p.
type Runner func(ctx context.Context, thread types.ThreadID, query string, p *agent.Projector) error

// eventBuffer bounds how far a turn can run ahead of a slow consumer.
const eventBuffer = 256

type job struct {
	query   string
	events  chan types.Event
	claimed bool
}

// Broker bridges job submission to event streaming. Submit registers a query
// and returns an id; Attach claims the id exactly once, starts the turn, and
// streams its events until the terminal event or the consumer disconnects.
type Broker struct {
	mu          sync.Mutex
	jobs        map[types.JobID]*job
	run         Runner
	sem         *semaphore.Weighted
	turnTimeout time.Duration
	logger      *slog.Logger
}

// New creates a broker running at most maxConcurrent turns at a time.
// turnTimeout bounds a single turn; zero means no limit.
func New(run Runner, maxConcurrent int, turnTimeout time.Duration, logger *slog.Logger) *Broker {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		jobs:        make(map[types.JobID]*job),
		run:         run,
		sem:         semaphore.NewWeighted(int64(maxConcurrent)),
		turnTimeout: turnTimeout,
		logger:      logger,
	}
}

// Submit registers a query and returns its job id. No work starts until a
// consumer attaches.
func (b *Broker) Submit(query string) types.JobID {
	id := types.NewJobID()
	b.mu.Lock()
	b.jobs[id] = &job{
		query:  query,
		events: make(chan types.Event, eventBuffer),
	}
	b.mu.Unlock()
	b.logger.Debug("job submitted", "job", id)
	return id
}

// Attach claims the job and returns a channel of its events. The first event
// is the connected status; the last, when the consumer stays attached, is the
// terminal event, after which the channel closes. Each job can be attached at
// most once; later attempts return ErrJobNotFound. The job record is removed
// once the stream ends, whether the consumer saw it out or disconnected.
func (b *Broker) Attach(ctx context.Context, id types.JobID, thread types.ThreadID) (<-chan types.Event, error) {
	b.mu.Lock()
	j, ok := b.jobs[id]
	if !ok || j.claimed {
		b.mu.Unlock()
		return nil, ErrJobNotFound
	}
	j.claimed = true
	b.mu.Unlock()

	go b.drive(j, thread, id)

	out := make(chan types.Event)
	go func() {
		defer func() {
			close(out)
			b.remove(id)
		}()

		select {
		case out <- types.StatusEvent("connected"):
		case <-ctx.Done():
			b.drain(j)
			return
		}

		for ev := range j.events {
			select {
			case out <- ev:
			case <-ctx.Done():
				b.drain(j)
				return
			}
		}
	}()
	return out, nil
}

// drive runs the turn, feeding the job's event channel. The turn is not tied
// to the consumer's context: a disconnect stops delivery, not the work, so
// the thread history stays consistent.
func (b *Broker) drive(j *job, thread types.ThreadID, id types.JobID) {
	defer close(j.events)

	ctx := context.Background()
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer b.sem.Release(1)

	var cancel context.CancelFunc = func() {}
	if b.turnTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, b.turnTimeout)
	}
	defer cancel()

	p := agent.NewProjector(func(ev types.Event) { j.events <- ev })
	if err := b.run(ctx, thread, j.query, p); err != nil {
		b.logger.Error("turn failed", "job", id, "thread", thread, "error", err)
		p.Error(err.Error())
	}
	p.Done()
}

// drain discards remaining events so the driver can finish after the
// consumer walks away.
func (b *Broker) drain(j *job) {
	go func() {
		for range j.events {
		}
	}()
}

func (b *Broker) remove(id types.JobID) {
	b.mu.Lock()
	delete(b.jobs, id)
	b.mu.Unlock()
}
