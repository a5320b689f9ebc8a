package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydata/quarry/pkg/config"
	"github.com/quarrydata/quarry/pkg/errors"
)

func testSpec(name string) *config.Spec {
	return &config.Spec{
		Name: name,
		Source: config.SourceSpec{
			URL:  "https://example.org/page",
			Rule: config.RuleSpec{Kind: "heading", Anchor: "Some_heading"},
		},
		Projection: config.ProjectionSpec{
			Indices: []int{0, 2},
			Columns: []config.ColumnSpec{
				{Name: "Name", Type: "TEXT"},
				{Name: "Value", Type: "REAL"},
			},
		},
		Cleaning: config.CleaningSpec{Column: "Value", Patterns: []string{`,`}},
		Sinks: config.SinksSpec{
			CSV: config.CSVSpec{Path: "out.csv"},
			DB:  config.DBSpec{DSN: "out.db", Table: "data"},
		},
		RunLog: config.RunLogSpec{Path: "run_log.txt"},
	}
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(testSpec("banks")))
	require.True(t, r.Has("banks"))

	spec, err := r.Get("banks")
	require.NoError(t, err)
	assert.Equal(t, "banks", spec.Name)
	// defaults were applied at registration
	assert.Equal(t, "sqlite", spec.Sinks.DB.Driver)
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(testSpec("banks")))
	err := r.Register(testSpec("banks"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestRegisterInvalidSpec(t *testing.T) {
	r := NewRegistry()

	bad := testSpec("broken")
	bad.Source.URL = ""
	err := r.Register(bad)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.False(t, r.Has("broken"))
}

func TestGetUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testSpec("banks")))

	first, err := r.Get("banks")
	require.NoError(t, err)
	first.Sinks.CSV.Path = "mutated.csv"
	first.Projection.Indices[0] = 9

	second, err := r.Get("banks")
	require.NoError(t, err)
	assert.Equal(t, "out.csv", second.Sinks.CSV.Path)
	assert.Equal(t, 0, second.Projection.Indices[0])
}

func TestListSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testSpec("gdp")))
	require.NoError(t, r.Register(testSpec("banks")))

	assert.Equal(t, []string{"banks", "gdp"}, r.List())

	specs := r.ListSpecs()
	require.Len(t, specs, 2)
	assert.Equal(t, "banks", specs[0].Name)
	assert.Equal(t, "gdp", specs[1].Name)
}

func TestClear(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testSpec("banks")))
	r.Clear()
	assert.Empty(t, r.List())
}
