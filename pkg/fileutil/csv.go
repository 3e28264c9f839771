package fileutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const utf8BOM = "\ufeff"

// CSVReader provides a helper/utility to read CSV file(s)
type CSVReader struct {
	FilePath string
}

// NewCSVReader returns a CSVReader instance for a specified CSV file
func NewCSVReader(fp string) *CSVReader {
	return &CSVReader{
		FilePath: fp,
	}
}

// ReadHeader reads ONLY the header of the specified CSV file
func (r *CSVReader) ReadHeader() ([]string, error) {
	f, err := os.Open(r.FilePath)
	if err != nil {
		return nil, fmt.Errorf("opening a csv file: %w", err)
	}
	defer f.Close()

	header, err := newReader(f).Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	// spreadsheet exports often start with a byte order mark
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	return header, nil
}

// ReadAndProcessByRow reads and processes a CSV file row by row, allows for streaming large file(s)
func (r *CSVReader) ReadAndProcessByRow(processorFn func([]string) error) error {
	f, err := os.Open(r.FilePath)
	if err != nil {
		return fmt.Errorf("opening a csv file: %w", err)
	}
	defer f.Close()

	reader := newReader(f)

	// Skip header
	_, err = reader.Read()
	if err != nil {
		return fmt.Errorf("reading CSV header: %w", err)
	}

	// read and process row by row
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break // end of file, stop
		}
		if err != nil {
			return fmt.Errorf("reading CSV row: %w", err)
		}

		if err = processorFn(row); err != nil {
			return err
		}
	}

	return nil
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return reader
}

// CSVWriter provides a helper/utility to write CSV file(s)
type CSVWriter struct {
	FilePath string
}

// NewCSVWriter returns a CSVWriter instance for a specified CSV file
func NewCSVWriter(fp string) *CSVWriter {
	return &CSVWriter{
		FilePath: fp,
	}
}

// WriteAll creates (or truncates) the file and writes the header and rows
func (w *CSVWriter) WriteAll(header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(w.FilePath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(w.FilePath)
	if err != nil {
		return fmt.Errorf("creating a csv file: %w", err)
	}
	defer f.Close()

	return write(f, header, rows)
}

// Append adds rows at the end of the file. The header is only written when
// the file is new or empty.
func (w *CSVWriter) Append(header []string, rows ...[]string) error {
	if err := os.MkdirAll(filepath.Dir(w.FilePath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.OpenFile(w.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening a csv file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() > 0 {
		header = nil
	}

	return write(f, header, rows)
}

func write(out io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(out)

	if header != nil {
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("writing CSV header: %w", err)
		}
	}

	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("writing CSV rows: %w", err)
	}

	return nil
}
