package main

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// outboxSize holds roughly a minute of status broadcasts.
const outboxSize = 256

// outbox runs sink calls that may block on the network (broker publishes,
// websocket writes) on one worker goroutine, in submission order, so the
// poll loop keeps its cadence.
type outbox struct {
	log     zerolog.Logger
	jobs    chan func()
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

func newOutbox(log zerolog.Logger, size int) *outbox {
	if size <= 0 {
		size = outboxSize
	}
	o := &outbox{
		log:  log,
		jobs: make(chan func(), size),
		done: make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *outbox) run() {
	defer close(o.done)
	for job := range o.jobs {
		job()
	}
}

// submit queues job without blocking. When the queue is full the job is
// dropped and counted.
func (o *outbox) submit(name string, job func()) {
	select {
	case o.jobs <- job:
	default:
		o.dropped.Add(1)
		o.log.Warn().Str("job", name).Msg("outbox full, dropping")
	}
}

// close stops accepting jobs and waits for the queued ones to finish.
// submit must not be called after close.
func (o *outbox) close() {
	o.once.Do(func() {
		close(o.jobs)
	})
	<-o.done
}
