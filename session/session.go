//
// Tencent is pleased to support the open source community by making trpc-cassette-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the trpc-cassette-go source code from Tencent,
// please note that trpc-cassette-go source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package session runs a cassette live. A Session owns the render root of
// one cassette, a worker pool for remote operations and a single loop
// goroutine. Completions, UI actions and handler triggers are applied on the
// loop only, and every applied event is followed by render passes until the
// root settles.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/fetch"
	itelemetry "trpc.group/trpc-go/trpc-cassette-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-cassette-go/log"
	"trpc.group/trpc-go/trpc-cassette-go/registry"
	"trpc.group/trpc-go/trpc-cassette-go/render"
	cmetric "trpc.group/trpc-go/trpc-cassette-go/telemetry/metric"
)

// ErrStopped is returned once the session has been stopped.
var ErrStopped = errors.New("session: stopped")

// Action mutates the render root. It runs on the session loop.
type Action func(root *render.Root)

// Update is one published render result.
type Update struct {
	// Session is the id of the session that produced the update.
	Session string `json:"session"`
	// Version is the root version after the last pass.
	Version uint64 `json:"version"`
	// Passes is the number of passes run to settle the event.
	Passes int `json:"passes"`
	// Settled is false when the pass bound was hit.
	Settled bool `json:"settled"`
	render.Pass
}

type instruments struct {
	passes    metric.Int64Counter
	unsettled metric.Int64Counter
	applied   metric.Int64Counter
	dropped   metric.Int64Counter
	latency   metric.Float64Histogram
}

func newInstruments() instruments {
	var in instruments
	var err error
	if in.passes, err = cmetric.Meter.Int64Counter(cmetric.NameRenderPasses); err != nil {
		log.Warnf("session: creating %s counter: %v", cmetric.NameRenderPasses, err)
	}
	if in.unsettled, err = cmetric.Meter.Int64Counter(cmetric.NameUnsettledRenders); err != nil {
		log.Warnf("session: creating %s counter: %v", cmetric.NameUnsettledRenders, err)
	}
	if in.applied, err = cmetric.Meter.Int64Counter(cmetric.NameCompletionsApplied); err != nil {
		log.Warnf("session: creating %s counter: %v", cmetric.NameCompletionsApplied, err)
	}
	if in.dropped, err = cmetric.Meter.Int64Counter(cmetric.NameCompletionsDropped); err != nil {
		log.Warnf("session: creating %s counter: %v", cmetric.NameCompletionsDropped, err)
	}
	if in.latency, err = cmetric.Meter.Float64Histogram(cmetric.NameSessionEventLatency, metric.WithUnit("s")); err != nil {
		log.Warnf("session: creating %s histogram: %v", cmetric.NameSessionEventLatency, err)
	}
	return in
}

// Session renders one cassette and keeps it live.
type Session struct {
	id        string
	cassette  *cassette.Cassette
	seq       *render.Sequencer
	root      *render.Root
	pool      *ants.Pool
	maxPasses int
	metrics   instruments
	attrs     metric.MeasurementOption

	completions chan fetch.Completion
	actions     chan Action
	wake        chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	start  sync.Once
	jobs   sync.WaitGroup

	mu          sync.Mutex
	subscribers map[int]chan Update
	nextSub     int
	last        *Update
	published   bool
	version     uint64
}

// New creates a session for c rendered with kinds. The session does nothing
// until Start is called.
func New(c *cassette.Cassette, kinds *render.Kinds, opts ...Option) (*Session, error) {
	if c == nil {
		return nil, errors.New("session: nil cassette")
	}
	o := newOptions(opts...)
	pool, err := ants.NewPool(o.workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch worker pool: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:          o.id,
		cassette:    c,
		seq:         render.NewSequencer(kinds),
		pool:        pool,
		maxPasses:   o.maxPasses,
		metrics:     newInstruments(),
		completions: make(chan fetch.Completion, o.queueSize),
		actions:     make(chan Action, o.queueSize),
		wake:        make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		subscribers: make(map[int]chan Update),
	}
	s.attrs = metric.WithAttributes(
		attribute.String(itelemetry.KeySessionID, s.id),
		attribute.String(itelemetry.KeyCassetteID, c.ID.String()),
	)
	s.root = render.NewRoot(render.Services{
		Scheduler: s,
		Client:    o.client,
		Namespace: o.namespace,
		Stream:    o.stream,
	}, registry.WithOnTrigger(s.onTrigger))
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Cassette returns the cassette being rendered.
func (s *Session) Cassette() *cassette.Cassette {
	return s.cassette
}

// Start runs the first pass and the event loop.
func (s *Session) Start() {
	s.start.Do(func() {
		go s.loop()
	})
}

// Done is closed when the loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Stop ends the loop and waits for it. Jobs still running are cancelled and
// their completions are dropped.
func (s *Session) Stop() {
	s.cancel()
	s.start.Do(func() {
		close(s.done)
	})
	<-s.done
	s.jobs.Wait()
	s.pool.Release()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Spawn implements fetch.Scheduler. The job runs on the worker pool and its
// completions are applied on the loop.
func (s *Session) Spawn(name string, job fetch.Job) error {
	if s.ctx.Err() != nil {
		return ErrStopped
	}
	s.jobs.Add(1)
	err := s.pool.Submit(func() {
		defer s.jobs.Done()
		final := job(s.ctx, func(c fetch.Completion) {
			s.deliver(name, c)
		})
		if final != nil {
			s.deliver(name, final)
		}
	})
	if err != nil {
		s.jobs.Done()
		return err
	}
	return nil
}

func (s *Session) deliver(name string, c fetch.Completion) {
	select {
	case s.completions <- c:
	case <-s.ctx.Done():
		log.Debugf("session %s: dropping completion of %s after stop", s.id, name)
	}
}

// Do enqueues action to run on the loop. It blocks while the queue is full
// and must not be called from the loop itself.
func (s *Session) Do(action Action) error {
	select {
	case <-s.ctx.Done():
		return ErrStopped
	default:
	}
	select {
	case s.actions <- action:
		return nil
	case <-s.ctx.Done():
		return ErrStopped
	}
}

// SetValue decodes raw into the handler registered by task under handler and
// waits until the loop has applied it.
func (s *Session) SetValue(ctx context.Context, task, handler string, raw json.RawMessage) error {
	errc := make(chan error, 1)
	key := registry.Key{Task: task, Handler: handler}
	if err := s.Do(func(root *render.Root) {
		errc <- registry.Decode(root.Registry(), key, raw)
	}); err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a channel of updates and a function that cancels the
// subscription. The latest update, if any, is delivered first. Slow
// subscribers only see the newest update.
func (s *Session) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	select {
	case <-s.ctx.Done():
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	default:
	}
	s.subscribers[id] = ch
	if s.last != nil {
		ch <- *s.last
	}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(ch)
			}
		})
	}
}

// Last returns the latest published update.
func (s *Session) Last() (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Update{}, false
	}
	return *s.last, true
}

// onTrigger may run on any goroutine, including the loop.
func (s *Session) onTrigger(registry.Key) {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) loop() {
	defer close(s.done)
	s.settle(true)
	for {
		select {
		case <-s.ctx.Done():
			return
		case c := <-s.completions:
			start := time.Now()
			if c.Apply() {
				s.count(s.metrics.applied)
			} else {
				s.count(s.metrics.dropped)
			}
			s.settle(false)
			s.observe(start)
		case action := <-s.actions:
			start := time.Now()
			action(s.root)
			s.settle(false)
			s.observe(start)
		case <-s.wake:
			s.settle(false)
		}
	}
}

// settle renders until the root is no longer dirty or the pass bound is hit,
// then publishes the last pass if the root version moved.
func (s *Session) settle(force bool) {
	var (
		pass    render.Pass
		passes  int
		settled = true
	)
	dirty := s.root.TakeDirty() || force
	for dirty {
		if passes == s.maxPasses {
			settled = false
			log.Warnf("session %s: cassette %s did not settle after %d passes", s.id, s.cassette.ID, passes)
			s.count(s.metrics.unsettled)
			break
		}
		pass = s.seq.Run(s.ctx, s.root, s.cassette.Component.Tasks)
		passes++
		s.count(s.metrics.passes)
		dirty = s.root.TakeDirty()
	}
	if passes == 0 {
		return
	}
	s.publish(Update{
		Session: s.id,
		Version: s.root.Version(),
		Passes:  passes,
		Settled: settled,
		Pass:    pass,
	})
}

func (s *Session) publish(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.published && u.Version == s.version {
		return
	}
	s.published = true
	s.version = u.Version
	s.last = &u
	for _, ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
}

func (s *Session) count(c metric.Int64Counter) {
	if c != nil {
		c.Add(s.ctx, 1, s.attrs)
	}
}

func (s *Session) observe(start time.Time) {
	if s.metrics.latency != nil {
		s.metrics.latency.Record(s.ctx, time.Since(start).Seconds(), s.attrs)
	}
}
