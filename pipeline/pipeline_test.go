package pipeline

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/pricescout/models"
)

type mockWriter struct {
	mu          sync.Mutex
	batches     [][]models.ProductListing
	closed      bool
	writeErr    error
	validateErr error
}

func (mw *mockWriter) Write(listings []models.ProductListing) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.writeErr != nil {
		return mw.writeErr
	}
	copyBatch := make([]models.ProductListing, len(listings))
	copy(copyBatch, listings)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return mw.validateErr
}

func (mw *mockWriter) totalWritten() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	total := 0
	for _, batch := range mw.batches {
		total += len(batch)
	}
	return total
}

func (mw *mockWriter) batchSizes() []int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	sizes := make([]int, 0, len(mw.batches))
	for _, batch := range mw.batches {
		sizes = append(sizes, len(batch))
	}
	return sizes
}

func listing(i int) models.ProductListing {
	return models.ProductListing{
		Name:         "Phone " + strconv.Itoa(i),
		Price:        100 + float64(i),
		Currency:     "NGN",
		Seller:       "jumia",
		Availability: models.InStock,
		URL:          "http://example.test/item/" + strconv.Itoa(i),
		Platform:     "jumia",
		ExtractedAt:  time.Now(),
	}
}

func newTestPipeline(t *testing.T, w OutputWriter, opts Options) *Pipeline {
	t.Helper()
	p, err := NewPipeline(w, opts)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestPipelineProcessValidationAndDedup(t *testing.T) {
	writer := &mockWriter{}
	p := newTestPipeline(t, writer, DefaultOptions())
	p.Start(1)

	valid := listing(1)
	invalid := listing(2)
	invalid.Name = " "
	free := listing(3)
	free.Price = 0
	duplicate := listing(1)

	if err := p.Process([]models.ProductListing{valid, invalid, free, duplicate}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := writer.totalWritten(); got != 1 {
		t.Fatalf("written listings = %d, want 1", got)
	}
	stats := p.Stats()
	if stats.Processed != 1 {
		t.Fatalf("processed = %d, want 1", stats.Processed)
	}
	if stats.Rejected["invalid_record"] != 2 {
		t.Fatalf("invalid_record = %d, want 2", stats.Rejected["invalid_record"])
	}
	if stats.Rejected["duplicate"] != 1 {
		t.Fatalf("duplicate = %d, want 1", stats.Rejected["duplicate"])
	}
}

func TestPipelineDedupeWithoutURL(t *testing.T) {
	writer := &mockWriter{}
	p := newTestPipeline(t, writer, DefaultOptions())
	p.Start(1)

	a := listing(1)
	a.URL = ""
	b := a
	c := a
	c.Price = 250

	if err := p.Process([]models.ProductListing{a, b, c}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := writer.totalWritten(); got != 2 {
		t.Fatalf("written listings = %d, want 2", got)
	}
}

func TestPipelineBatchFlushThreshold(t *testing.T) {
	writer := &mockWriter{}
	p := newTestPipeline(t, writer, Options{BatchSize: 64})
	p.Start(1)

	for i := 0; i < 65; i++ {
		if err := p.Process([]models.ProductListing{listing(i)}); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sizes := writer.batchSizes()
	if len(sizes) != 2 {
		t.Fatalf("batch writes = %d, want 2", len(sizes))
	}
	if sizes[0] != 64 || sizes[1] != 1 {
		t.Fatalf("batch sizes = %v, want [64 1]", sizes)
	}
}

func TestPipelineCloseDrainsPendingItems(t *testing.T) {
	writer := &mockWriter{}
	p := newTestPipeline(t, writer, DefaultOptions())
	p.Start(2)

	for i := 0; i < 100; i++ {
		if err := p.Process([]models.ProductListing{listing(i + 200)}); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := writer.totalWritten(); got != 100 {
		t.Fatalf("written listings = %d, want 100", got)
	}
}

func TestPipelineProcessAfterClose(t *testing.T) {
	p := newTestPipeline(t, &mockWriter{}, DefaultOptions())
	p.Start(1)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Process([]models.ProductListing{listing(1)}); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("process after close = %v, want ErrPipelineClosed", err)
	}
	if err := p.Process(nil); err != nil {
		t.Fatalf("empty process = %v, want nil", err)
	}
}

func TestPipelineWriteErrorSurfaces(t *testing.T) {
	boom := errors.New("disk full")
	p := newTestPipeline(t, &mockWriter{writeErr: boom}, Options{BatchSize: 1})
	p.Start(1)

	if err := p.Process([]models.ProductListing{listing(1)}); err != nil {
		t.Fatalf("process: %v", err)
	}
	err := p.Close()
	if !errors.Is(err, boom) {
		t.Fatalf("close = %v, want wrapped write error", err)
	}
	if err := p.Process([]models.ProductListing{listing(2)}); !errors.Is(err, boom) {
		t.Fatalf("process after failure = %v, want write error", err)
	}
}

func TestMultiWriterFansOut(t *testing.T) {
	a, b := &mockWriter{}, &mockWriter{validateErr: errors.New("empty")}
	mw := MultiWriter{a, b}

	if err := mw.Write([]models.ProductListing{listing(1), listing(2)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if a.totalWritten() != 2 || b.totalWritten() != 2 {
		t.Fatalf("written = %d/%d, want 2/2", a.totalWritten(), b.totalWritten())
	}
	if err := mw.Validate(); err == nil {
		t.Fatalf("expected validation error from second writer")
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatalf("writers not closed")
	}
}
