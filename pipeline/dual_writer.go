package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/pricescout/models"
)

// MultiWriter fans every batch out to several writers, e.g. files and a
// database at once. Write stops at the first failing writer.
type MultiWriter []OutputWriter

func (mw MultiWriter) Write(listings []models.ProductListing) error {
	for _, w := range mw {
		if err := w.Write(listings); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer and joins their errors.
func (mw MultiWriter) Close() error {
	var errs []error
	for _, w := range mw {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (mw MultiWriter) Validate() error {
	var errs []error
	for _, w := range mw {
		if err := w.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DualWriter writes the same listings as CSV and JSONL.
type DualWriter struct {
	MultiWriter
}

// NewDualWriter opens both output files.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	cw, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("csv output: %w", err)
	}
	jw, err := NewJSONWriter(jsonFilename)
	if err != nil {
		cw.Close()
		return nil, fmt.Errorf("json output: %w", err)
	}
	return &DualWriter{MultiWriter{cw, jw}}, nil
}
