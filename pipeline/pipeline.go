// Package pipeline exports search results: listings are validated,
// de-duplicated and written in batches to one or more sinks.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/pricescout/models"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(listings []models.ProductListing) error
	Close() error
	Validate() error
}

// Options sizes the pipeline.
type Options struct {
	BufferSize int
	BatchSize  int
	// DedupeSize bounds how many listing keys are remembered.
	DedupeSize int
}

// DefaultOptions returns a modest in-memory buffer.
func DefaultOptions() Options {
	return Options{BufferSize: 512, BatchSize: 64, DedupeSize: 10_000}
}

// Pipeline coordinates validation, de-duplication, and output writing.
type Pipeline struct {
	writer    OutputWriter
	ch        chan models.ProductListing
	batchSize int

	wg   sync.WaitGroup
	seen *lru.Cache[string, struct{}]

	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline writing to writer.
func NewPipeline(writer OutputWriter, opts Options) (*Pipeline, error) {
	def := DefaultOptions()
	if opts.BufferSize <= 0 {
		opts.BufferSize = def.BufferSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.DedupeSize <= 0 {
		opts.DedupeSize = def.DedupeSize
	}
	seen, err := lru.New[string, struct{}](opts.DedupeSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &Pipeline{
		writer:    writer,
		ch:        make(chan models.ProductListing, opts.BufferSize),
		batchSize: opts.BatchSize,
		seen:      seen,
		metrics:   newMetrics(),
		shutdown:  make(chan struct{}),
	}, nil
}

// Start launches worker goroutines.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues listings for downstream processing.
func (p *Pipeline) Process(listings []models.ProductListing) error {
	if len(listings) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, l := range listings {
		if err := p.enqueue(l); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for workers to finish and prevents more submissions.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.ch)
	})

	p.wg.Wait()
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stats is a snapshot of the pipeline counters.
type Stats struct {
	Processed int64
	Rejected  map[string]int
}

// Stats returns a snapshot of the internal counters.
func (p *Pipeline) Stats() Stats {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs until Close.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s := p.Stats()
				slog.Info("pipeline progress",
					slog.Int64("processed", s.Processed),
					slog.Any("rejected", s.Rejected),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]models.ProductListing, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for l := range p.ch {
		if !p.accept(l) {
			continue
		}
		batch = append(batch, l)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) accept(l models.ProductListing) bool {
	if !l.Valid() {
		p.metrics.addRejected("invalid_record")
		return false
	}
	// ContainsOrAdd is atomic, so concurrent workers never both accept a key.
	if found, _ := p.seen.ContainsOrAdd(dedupeKey(l), struct{}{}); found {
		p.metrics.addRejected("duplicate")
		return false
	}
	p.metrics.incrementProcessed()
	return true
}

// dedupeKey prefers the offer URL; listings without one are keyed by their
// platform, name and price.
func dedupeKey(l models.ProductListing) string {
	if l.URL != "" {
		return l.URL
	}
	return l.Platform + "|" + l.Name + "|" + strconv.FormatFloat(l.Price, 'f', -1, 64)
}

func (p *Pipeline) enqueue(l models.ProductListing) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.ch <- l:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.ch)
	})
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu        sync.Mutex
	processed int64
	rejected  map[string]int
}

func newMetrics() metrics {
	return metrics{rejected: make(map[string]int)}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addRejected(kind string) {
	m.mu.Lock()
	m.rejected[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	rejected := make(map[string]int, len(m.rejected))
	for k, v := range m.rejected {
		rejected[k] = v
	}
	return Stats{Processed: m.processed, Rejected: rejected}
}
