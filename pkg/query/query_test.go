package query

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydata/quarry/pkg/errors"
	gojson "github.com/quarrydata/quarry/pkg/json"
	"github.com/quarrydata/quarry/pkg/sink"
	"github.com/quarrydata/quarry/pkg/table"
)

func loadedRunner(t *testing.T) Runner {
	t.Helper()
	ctx := context.Background()

	db, err := sink.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tbl := table.New(table.NewSchema(
		table.Column{Name: "Name", Type: table.TypeText},
		table.Column{Name: "MC_GBP_Billion", Type: table.TypeReal},
	))
	require.NoError(t, tbl.Append(table.Row{table.Text("JPMorgan Chase"), table.Number(346.34)}))
	require.NoError(t, tbl.Append(table.Row{table.Text("HSBC"), table.Number(119.12)}))

	s := sink.SQLSink{Table: "Largest_banks", Mode: sink.Replace, Dialect: sink.SQLite}
	require.NoError(t, s.Load(ctx, db, tbl))

	return Runner{DB: db}
}

func TestRunnerSelectAll(t *testing.T) {
	r := loadedRunner(t)

	res, err := r.Run(context.Background(), `SELECT * FROM Largest_banks`)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "MC_GBP_Billion"}, res.Columns)
	require.Equal(t, 2, res.NumRows())
	assert.Equal(t, "JPMorgan Chase", res.Rows[0][0])
	assert.Equal(t, 346.34, res.Rows[0][1])
}

func TestRunnerAggregate(t *testing.T) {
	r := loadedRunner(t)

	res, err := r.Run(context.Background(), `SELECT AVG(MC_GBP_Billion) FROM Largest_banks`)
	require.NoError(t, err)

	require.Equal(t, 1, res.NumRows())
	avg, ok := res.Rows[0][0].(float64)
	require.True(t, ok)
	assert.InDelta(t, 232.73, avg, 0.001)
}

func TestRunnerBadSQL(t *testing.T) {
	r := loadedRunner(t)

	_, err := r.Run(context.Background(), `SELECT * FROM no_such_table`)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeStorage))
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "HSBC", normalizeValue([]byte("HSBC")))
	assert.Equal(t, 346.34, normalizeValue(346.34))
	assert.Nil(t, normalizeValue(nil))
}

func TestResultString(t *testing.T) {
	res := &Result{
		Columns: []string{"Name", "MC_GBP_Billion"},
		Rows: [][]any{
			{"JPMorgan Chase", 346.34},
			{"HSBC", nil},
		},
	}

	want := "Name            MC_GBP_Billion\n" +
		"JPMorgan Chase  346.34\n" +
		"HSBC            NULL"
	assert.Equal(t, want, res.String())
}

func TestResultJSON(t *testing.T) {
	res := &Result{
		Columns: []string{"Name"},
		Rows:    [][]any{{"HSBC"}},
	}

	out, err := gojson.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["Name"],"rows":[["HSBC"]]}`, string(out))
}
