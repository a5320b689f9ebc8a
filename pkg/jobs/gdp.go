package jobs

import (
	"github.com/quarrydata/quarry/pkg/config"
	"github.com/quarrydata/quarry/pkg/registry"
)

func init() {
	registry.MustRegister(GDP())
}

// GDP is the countries-by-GDP pipeline: the nominal GDP table located by its
// caption on an archived page, converted from USD millions to billions and
// appended into an explicitly typed table.
func GDP() *config.Spec {
	return &config.Spec{
		Name:        "gdp",
		Description: "Countries by nominal GDP in USD billions (IMF estimates)",
		Source: config.SourceSpec{
			URL: "https://web.archive.org/web/20230902185326/https://en.wikipedia.org/wiki/List_of_countries_by_GDP_%28nominal%29",
			Rule: config.RuleSpec{
				Kind:    "caption",
				Caption: "GDP (USD million) by country",
				Marker:  "wikitable",
			},
		},
		Projection: config.ProjectionSpec{
			Indices: []int{0, 2},
			Columns: []config.ColumnSpec{
				{Name: "Country", Type: "TEXT"},
				{Name: "GDP_USD_million", Type: "REAL"},
			},
		},
		Cleaning: config.CleaningSpec{
			Column:   "GDP_USD_million",
			Patterns: []string{`\[.*?\]`, `,`, `—`},
		},
		Filter: config.FilterSpec{
			KeyColumn:     "Country",
			Exclude:       []string{"world", "—"},
			RequireColumn: "GDP_USD_million",
		},
		Derive: config.DeriveSpec{
			Base: "GDP_USD_million",
			Derivations: []config.DerivationSpec{
				{Name: "GDP_USD_billion", Op: "divide", Operand: 1000, Digits: 2},
			},
		},
		Keep: []string{"Country", "GDP_USD_billion"},
		Sinks: config.SinksSpec{
			CSV: config.CSVSpec{Path: "Countries_by_GDP.csv"},
			DB: config.DBSpec{
				Driver: "sqlite",
				DSN:    "World_Economies.db",
				Table:  "Countries_by_GDP",
				Mode:   "create_append",
			},
		},
		Queries: []string{
			"SELECT * FROM Countries_by_GDP WHERE GDP_USD_billion > 100",
		},
		RunLog: config.RunLogSpec{
			Path:  "etl_project_log.txt",
			Style: "leveled",
		},
	}
}
