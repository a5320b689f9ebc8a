package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/quarrydata/quarry/pkg/errors"
)

// LoadRates reads the auxiliary exchange-rate CSV (header `Currency,Rate`)
// from a URL or local path and returns a currency-to-rate map. The file is
// structural input: a malformed header or rate aborts the run, unlike the
// per-cell leniency of the numeric cleaner.
func LoadRates(ctx context.Context, f *Fetcher, source string) (map[string]float64, error) {
	var data []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		fetched, err := f.Get(ctx, source)
		if err != nil {
			return nil, err
		}
		data = fetched
	} else {
		read, err := os.ReadFile(source)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read exchange rate file").
				WithDetail("path", source)
		}
		data = read
	}

	return parseRates(data, source)
}

func parseRates(data []byte, source string) (map[string]float64, error) {
	reader := csv.NewReader(bytes.NewReader(data))

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "exchange rate file has no header").
			WithDetail("source", source)
	}
	if len(header) < 2 || strings.TrimSpace(header[0]) != "Currency" || strings.TrimSpace(header[1]) != "Rate" {
		return nil, errors.Newf(errors.ErrorTypeSchema,
			"exchange rate header is %q, want Currency,Rate", strings.Join(header, ",")).
			WithDetail("source", source)
	}

	rates := make(map[string]float64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSchema, "malformed exchange rate row").
				WithDetail("source", source)
		}

		currency := strings.TrimSpace(record[0])
		rate, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, errors.Newf(errors.ErrorTypeSchema,
				"exchange rate for %q is not numeric: %q", currency, record[1]).
				WithDetail("source", source)
		}
		rates[currency] = rate
	}

	return rates, nil
}

// RequireRates verifies every required currency key is present; a missing
// key is a fatal lookup error.
func RequireRates(rates map[string]float64, keys ...string) error {
	for _, key := range keys {
		if _, ok := rates[key]; !ok {
			return errors.Newf(errors.ErrorTypeSchema, "exchange rate for %q not found", key)
		}
	}
	return nil
}
