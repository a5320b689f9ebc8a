// Package sink persists transformed tables to CSV files and relational
// databases.
package sink

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/table"
)

// CSVSink writes a table to a CSV file, overwriting any previous file at the
// same path. When Compress is set the stream is gzipped; callers are expected
// to pass a path ending in .gz.
type CSVSink struct {
	Path     string
	Compress bool
}

// Write renders the header row followed by one record per table row. Number
// cells use minimal round-trip formatting, Missing cells render empty.
func (s CSVSink) Write(tbl *table.Table) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to create CSV file").
			WithDetail("path", s.Path)
	}

	werr := s.writeTo(f, tbl)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return errors.Wrap(werr, errors.ErrorTypeStorage, "failed to write CSV file").
			WithDetail("path", s.Path)
	}
	return nil
}

func (s CSVSink) writeTo(w io.Writer, tbl *table.Table) error {
	if !s.Compress {
		return writeRecords(w, tbl)
	}
	gz := gzip.NewWriter(w)
	if err := writeRecords(gz, tbl); err != nil {
		_ = gz.Close()
		return err
	}
	return gz.Close()
}

func writeRecords(w io.Writer, tbl *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tbl.Schema.Names()); err != nil {
		return err
	}
	record := make([]string, tbl.NumCols())
	for _, row := range tbl.Rows {
		for i, cell := range row {
			record[i] = cell.String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
