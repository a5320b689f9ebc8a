package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydata/quarry/pkg/errors"
)

const ratesCSV = "Currency,Rate\nEUR,0.93\nGBP,0.8\nINR,82.95\n"

func writeRatesFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exchange_rate.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadRatesFromFile(t *testing.T) {
	path := writeRatesFile(t, ratesCSV)

	rates, err := LoadRates(context.Background(), NewFetcher(time.Second), path)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"EUR": 0.93, "GBP": 0.8, "INR": 82.95}, rates)
}

func TestLoadRatesFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(ratesCSV))
	}))
	defer srv.Close()

	rates, err := LoadRates(context.Background(), NewFetcher(5*time.Second), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 0.8, rates["GBP"])
}

func TestLoadRatesMissingFile(t *testing.T) {
	_, err := LoadRates(context.Background(), NewFetcher(time.Second), filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeStorage))
}

func TestLoadRatesBadHeader(t *testing.T) {
	path := writeRatesFile(t, "Symbol,Value\nEUR,0.93\n")

	_, err := LoadRates(context.Background(), NewFetcher(time.Second), path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestLoadRatesMalformedRate(t *testing.T) {
	path := writeRatesFile(t, "Currency,Rate\nEUR,cheap\n")

	_, err := LoadRates(context.Background(), NewFetcher(time.Second), path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestRequireRates(t *testing.T) {
	rates := map[string]float64{"EUR": 0.93, "GBP": 0.8}

	assert.NoError(t, RequireRates(rates, "EUR", "GBP"))

	err := RequireRates(rates, "EUR", "INR")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
	assert.Contains(t, err.Error(), "INR")
}
