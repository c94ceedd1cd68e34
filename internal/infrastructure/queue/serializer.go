package queue

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/feedbackflow/feedback-system/internal/api/metrics"
	"github.com/feedbackflow/feedback-system/internal/core/domain"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrStopped is returned by Do once the serializer has been shut down.
var ErrStopped = fmt.Errorf("serializer stopped: %w", domain.ErrUnavailable)

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Serializer routes mutations to a fixed set of workers using consistent
// hashing on the record id, so two mutations of the same record never run
// concurrently within this process.
type Serializer struct {
	workers []chan job
	log     zerolog.Logger

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewSerializer creates a Serializer with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewSerializer(numWorkers int, log zerolog.Logger) *Serializer {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	s := &Serializer{
		workers: make([]chan job, numWorkers),
		log:     log,
		stopped: make(chan struct{}),
	}
	for i := range s.workers {
		s.workers[i] = make(chan job, channelBuffer)
	}
	return s
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (s *Serializer) Start(ctx context.Context) {
	for i, ch := range s.workers {
		go s.runWorker(ctx, i, ch)
	}
	go func() {
		<-ctx.Done()
		s.stopOnce.Do(func() { close(s.stopped) })
	}()
}

// Do runs fn on the worker that owns key and waits for its result. The wait
// ends early if ctx is cancelled or the serializer stops.
func (s *Serializer) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	select {
	case <-s.stopped:
		return ErrStopped
	default:
	}

	shard := s.shardIndex(key)
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case s.workers[shard] <- j:
		metrics.SerializerQueueDepth.WithLabelValues(strconv.Itoa(shard)).Set(float64(len(s.workers[shard])))
	case <-ctx.Done():
		return ctxErr(ctx.Err())
	case <-s.stopped:
		return ErrStopped
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctxErr(ctx.Err())
	case <-s.stopped:
		return ErrStopped
	}
}

// ctxErr classifies an abandoned wait so callers see the domain taxonomy.
func ctxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
}

// shardIndex maps a key deterministically to a worker index.
func (s *Serializer) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(s.workers)))
}

func (s *Serializer) runWorker(ctx context.Context, id int, ch <-chan job) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-ch:
			metrics.SerializerQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := j.ctx.Err(); err != nil {
				j.done <- ctxErr(err)
				continue
			}
			err := j.fn(j.ctx)
			if err != nil {
				s.log.Debug().Err(err).Int("worker_id", id).Msg("serialized mutation failed")
			}
			j.done <- err
		}
	}
}
