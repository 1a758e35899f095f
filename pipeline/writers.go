package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/aluiziolira/pricescout/models"
)

var csvHeader = []string{
	"platform", "name", "price", "currency", "shipping", "total_cost", "seller",
	"rating", "review_count", "availability", "url", "image_url", "extracted_at",
}

// CSVWriter writes one row per listing. Unknown rating and shipping are
// empty cells.
type CSVWriter struct {
	mu   sync.Mutex
	file *os.File
	csv  *csv.Writer
	rows int
}

// NewCSVWriter creates filename, its directory if needed, and writes the
// header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	f, err := createOutput(filename)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}
	return &CSVWriter{file: f, csv: w}, nil
}

func csvRecord(l models.ProductListing) []string {
	return []string{
		l.Platform,
		l.Name,
		formatAmount(l.Price),
		l.Currency,
		formatOptional(l.Shipping),
		formatAmount(l.TotalCost()),
		l.Seller,
		formatOptional(l.Rating),
		strconv.Itoa(l.ReviewCount),
		string(l.Availability),
		l.URL,
		l.ImageURL,
		l.ExtractedAt.UTC().Format(time.RFC3339),
	}
}

func (cw *CSVWriter) Write(listings []models.ProductListing) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, l := range listings {
		if err := cw.csv.Write(csvRecord(l)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
		cw.rows++
	}
	cw.csv.Flush()
	if err := cw.csv.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.csv.Flush()
	if err := cw.csv.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate fails when no row besides the header was written.
func (cw *CSVWriter) Validate() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.rows == 0 {
		return fmt.Errorf("csv output %s has no listings", cw.file.Name())
	}
	return nil
}

// JSONWriter writes newline-delimited JSON, one listing per line.
type JSONWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
	rows int
}

func NewJSONWriter(filename string) (*JSONWriter, error) {
	f, err := createOutput(filename)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	return &JSONWriter{file: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (jw *JSONWriter) Write(listings []models.ProductListing) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, l := range listings {
		if err := jw.enc.Encode(l); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		jw.rows++
	}
	if err := jw.buf.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.buf.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate fails when no listing was written.
func (jw *JSONWriter) Validate() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.rows == 0 {
		return fmt.Errorf("json output %s has no listings", jw.file.Name())
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func createOutput(filename string) (*os.File, error) {
	if dir := filepath.Dir(filename); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", filename, err)
	}
	return f, nil
}
