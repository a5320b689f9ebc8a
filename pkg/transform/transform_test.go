package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/table"
)

func textSchema(names ...string) table.Schema {
	cols := make([]table.Column, len(names))
	for i, n := range names {
		cols[i] = table.Column{Name: n, Type: table.TypeText}
	}
	return table.NewSchema(cols...)
}

func textTable(t *testing.T, names []string, rows ...[]string) *table.Table {
	t.Helper()
	tbl := table.New(textSchema(names...))
	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, s := range r {
			row[i] = table.Text(s)
		}
		require.NoError(t, tbl.Append(row))
	}
	return tbl
}

func TestProjectorProject(t *testing.T) {
	raw := textTable(t, []string{"Rank", "Bank name", "Market cap"},
		[]string{"1", "JPMorgan Chase", "432.92"},
		[]string{"2", "Bank of America", "231.52"},
	)

	p := Projector{
		Indices: []int{1, 2},
		Schema: table.NewSchema(
			table.Column{Name: "Name", Type: table.TypeText},
			table.Column{Name: "MC_USD_Billion", Type: table.TypeReal},
		),
	}

	out, err := p.Project(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "MC_USD_Billion"}, out.Schema.Names())
	require.Equal(t, 2, out.NumRows())
	assert.Equal(t, "JPMorgan Chase", out.Rows[0][0].Text)
	assert.Equal(t, "231.52", out.Rows[1][1].Text)

	// the raw table keeps its own shape
	assert.Equal(t, 3, raw.NumCols())
}

func TestProjectorIndexOutOfRange(t *testing.T) {
	raw := textTable(t, []string{"A", "B"}, []string{"1", "2"})

	p := Projector{
		Indices: []int{0, 2},
		Schema:  textSchema("X", "Y"),
	}
	_, err := p.Project(raw)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestProjectorArityMismatch(t *testing.T) {
	raw := textTable(t, []string{"A", "B"}, []string{"1", "2"})

	p := Projector{
		Indices: []int{0},
		Schema:  textSchema("X", "Y"),
	}
	_, err := p.Project(raw)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestKeep(t *testing.T) {
	tbl := textTable(t, []string{"Country", "GDP_USD_million", "GDP_USD_billion"},
		[]string{"United States", "26854599", "26854.6"},
	)

	out, err := Keep(tbl, "Country", "GDP_USD_billion")
	require.NoError(t, err)
	assert.Equal(t, []string{"Country", "GDP_USD_billion"}, out.Schema.Names())
	assert.Equal(t, "26854.6", out.Rows[0][1].Text)

	_, err = Keep(tbl, "Country", "Population")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestNewCleanerInvalidPattern(t *testing.T) {
	_, err := NewCleaner(`\[.*?\]`, `(`)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestCleanColumn(t *testing.T) {
	c, err := NewCleaner(`\[.*?\]`, `,`, `—`)
	require.NoError(t, err)

	tbl := textTable(t, []string{"Country", "GDP"},
		[]string{"United States", "26,854,599"},
		[]string{"China", "19,373,586[n 1]"},
		[]string{"Monaco", "—"},
		[]string{"Narnia", "n/a"},
	)

	demoted, err := c.CleanColumn(tbl, "GDP")
	require.NoError(t, err)
	assert.Equal(t, 2, demoted)

	assert.Equal(t, table.Number(26854599), tbl.Rows[0][1])
	assert.Equal(t, table.Number(19373586), tbl.Rows[1][1])
	assert.True(t, tbl.Rows[2][1].IsMissing())
	assert.True(t, tbl.Rows[3][1].IsMissing())

	// key column untouched
	assert.Equal(t, "United States", tbl.Rows[0][0].Text)
}

func TestCleanColumnPassThrough(t *testing.T) {
	c, err := NewCleaner(`,`)
	require.NoError(t, err)

	tbl := table.New(textSchema("V"))
	require.NoError(t, tbl.Append(table.Row{table.Number(42.5)}))
	require.NoError(t, tbl.Append(table.Row{table.Missing()}))

	demoted, err := c.CleanColumn(tbl, "V")
	require.NoError(t, err)
	assert.Equal(t, 0, demoted)
	assert.Equal(t, table.Number(42.5), tbl.Rows[0][0])
	assert.True(t, tbl.Rows[1][0].IsMissing())
}

func TestCleanColumnUnknown(t *testing.T) {
	c, err := NewCleaner(`,`)
	require.NoError(t, err)

	tbl := textTable(t, []string{"A"}, []string{"1"})
	_, err = c.CleanColumn(tbl, "B")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestFilterExcludesKeys(t *testing.T) {
	tbl := textTable(t, []string{"Country", "GDP"},
		[]string{"World", "105568776"},
		[]string{"United States", "26854599"},
		[]string{" world ", "105568776"},
		[]string{"—", ""},
		[]string{"China", "19373586"},
	)

	out, err := Filter{
		KeyColumn: "Country",
		Exclude:   map[string]bool{"World": true, "—": true},
	}.Apply(tbl)
	require.NoError(t, err)

	require.Equal(t, 2, out.NumRows())
	assert.Equal(t, "United States", out.Rows[0][0].Text)
	assert.Equal(t, "China", out.Rows[1][0].Text)
}

func TestFilterRequiresColumn(t *testing.T) {
	tbl := table.New(table.NewSchema(
		table.Column{Name: "Name", Type: table.TypeText},
		table.Column{Name: "MC_USD_Billion", Type: table.TypeReal},
	))
	require.NoError(t, tbl.Append(table.Row{table.Text("Bank A"), table.Number(12.3)}))
	require.NoError(t, tbl.Append(table.Row{table.Text("Bank B"), table.Missing()}))

	out, err := Filter{RequireColumn: "MC_USD_Billion"}.Apply(tbl)
	require.NoError(t, err)

	require.Equal(t, 1, out.NumRows())
	assert.Equal(t, "Bank A", out.Rows[0][0].Text)
}

func TestFilterUnknownColumns(t *testing.T) {
	tbl := textTable(t, []string{"A"}, []string{"1"})

	_, err := Filter{KeyColumn: "Nope"}.Apply(tbl)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	_, err = Filter{RequireColumn: "Nope"}.Apply(tbl)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestFilterEmptyIsIdentity(t *testing.T) {
	tbl := textTable(t, []string{"A"}, []string{"1"}, []string{"2"})

	out, err := Filter{}.Apply(tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())
}

func TestDeriveScale(t *testing.T) {
	tbl := table.New(table.NewSchema(
		table.Column{Name: "Name", Type: table.TypeText},
		table.Column{Name: "MC_USD_Billion", Type: table.TypeReal},
	))
	require.NoError(t, tbl.Append(table.Row{table.Text("Bank A"), table.Number(100)}))
	require.NoError(t, tbl.Append(table.Row{table.Text("Bank B"), table.Number(432.92)}))

	err := Derive(tbl, "MC_USD_Billion", []Derivation{
		{Name: "MC_GBP_Billion", Op: OpScale, Operand: 0.8, Digits: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "MC_USD_Billion", "MC_GBP_Billion"}, tbl.Schema.Names())
	assert.Equal(t, 80.0, tbl.Rows[0][2].Num)
	assert.Equal(t, "80", tbl.Rows[0][2].String())
	assert.Equal(t, 346.34, tbl.Rows[1][2].Num)
}

func TestDeriveDivide(t *testing.T) {
	tbl := table.New(table.NewSchema(
		table.Column{Name: "Country", Type: table.TypeText},
		table.Column{Name: "GDP_USD_million", Type: table.TypeReal},
	))
	require.NoError(t, tbl.Append(table.Row{table.Text("World"), table.Number(105568776)}))

	err := Derive(tbl, "GDP_USD_million", []Derivation{
		{Name: "GDP_USD_billion", Op: OpDivide, Operand: 1000, Digits: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 105568.78, tbl.Rows[0][2].Num)
}

func TestDeriveOverwriteIsIdempotent(t *testing.T) {
	tbl := table.New(table.NewSchema(
		table.Column{Name: "MC_USD_Billion", Type: table.TypeReal},
	))
	require.NoError(t, tbl.Append(table.Row{table.Number(100)}))

	ds := []Derivation{{Name: "MC_EUR_Billion", Op: OpScale, Operand: 0.93, Digits: 2}}
	require.NoError(t, Derive(tbl, "MC_USD_Billion", ds))
	require.NoError(t, Derive(tbl, "MC_USD_Billion", ds))

	assert.Equal(t, []string{"MC_USD_Billion", "MC_EUR_Billion"}, tbl.Schema.Names())
	require.Equal(t, 2, len(tbl.Rows[0]))
	assert.Equal(t, 93.0, tbl.Rows[0][1].Num)
}

func TestDeriveErrors(t *testing.T) {
	numTable := func() *table.Table {
		tbl := table.New(table.NewSchema(table.Column{Name: "V", Type: table.TypeReal}))
		require.NoError(t, tbl.Append(table.Row{table.Number(1)}))
		return tbl
	}

	err := Derive(numTable(), "W", []Derivation{{Name: "X", Op: OpScale, Operand: 1, Digits: 0}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	err = Derive(numTable(), "V", []Derivation{{Name: "X", Op: Op("pow"), Operand: 2, Digits: 0}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	err = Derive(numTable(), "V", []Derivation{{Name: "X", Op: OpDivide, Operand: 0, Digits: 0}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	dirty := table.New(table.NewSchema(table.Column{Name: "V", Type: table.TypeReal}))
	require.NoError(t, dirty.Append(table.Row{table.Text("uncleaned")}))
	err = Derive(dirty, "V", []Derivation{{Name: "X", Op: OpScale, Operand: 1, Digits: 0}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestProjectCleanFilterChain(t *testing.T) {
	raw := textTable(t, []string{"Name", "Note", "Market cap"},
		[]string{"Bank A", "—", "12.3"},
		[]string{"Bank B", "x", "—"},
	)

	p := Projector{
		Indices: []int{0, 2},
		Schema: table.NewSchema(
			table.Column{Name: "Name", Type: table.TypeText},
			table.Column{Name: "MC_USD_Billion", Type: table.TypeReal},
		),
	}
	tbl, err := p.Project(raw)
	require.NoError(t, err)

	c, err := NewCleaner(`\[.*?\]`, `,`, `—`)
	require.NoError(t, err)
	demoted, err := c.CleanColumn(tbl, "MC_USD_Billion")
	require.NoError(t, err)
	assert.Equal(t, 1, demoted)

	tbl, err = Filter{RequireColumn: "MC_USD_Billion"}.Apply(tbl)
	require.NoError(t, err)

	require.Equal(t, 1, tbl.NumRows())
	assert.Equal(t, "Bank A", tbl.Rows[0][0].Text)
	assert.Equal(t, table.Number(12.3), tbl.Rows[0][1])
}
