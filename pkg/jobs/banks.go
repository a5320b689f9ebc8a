// Package jobs defines the built-in pipelines and registers them at import.
package jobs

import (
	"github.com/quarrydata/quarry/pkg/config"
	"github.com/quarrydata/quarry/pkg/registry"
)

func init() {
	registry.MustRegister(Banks())
}

// Banks is the largest-banks pipeline: the market capitalization table that
// follows the By_market_capitalization heading, converted to GBP, EUR and INR
// with exchange rates and loaded with full replacement.
func Banks() *config.Spec {
	return &config.Spec{
		Name:        "banks",
		Description: "Largest banks by market capitalization, converted to GBP, EUR and INR",
		Source: config.SourceSpec{
			URL: "https://en.wikipedia.org/wiki/List_of_largest_banks",
			Rule: config.RuleSpec{
				Kind:   "heading",
				Anchor: "By_market_capitalization",
				Marker: "wikitable",
			},
		},
		Projection: config.ProjectionSpec{
			Indices: []int{0, 2},
			Columns: []config.ColumnSpec{
				{Name: "Name", Type: "TEXT"},
				{Name: "MC_USD_Billion", Type: "REAL"},
			},
		},
		Cleaning: config.CleaningSpec{
			Column:   "MC_USD_Billion",
			Patterns: []string{`\[.*?\]`, `,`, `—`},
		},
		Filter: config.FilterSpec{
			RequireColumn: "MC_USD_Billion",
		},
		Rates: config.RatesSpec{
			Source:   "https://cf-courses-data.s3.us.cloud-object-storage.appdomain.cloud/IBMSkillsNetwork-PY0221EN-Coursera/labs/v2/exchange_rate.csv",
			Required: []string{"GBP", "EUR", "INR"},
		},
		Derive: config.DeriveSpec{
			Base: "MC_USD_Billion",
			Derivations: []config.DerivationSpec{
				{Name: "MC_GBP_Billion", Op: "scale", RateKey: "GBP", Digits: 2},
				{Name: "MC_EUR_Billion", Op: "scale", RateKey: "EUR", Digits: 2},
				{Name: "MC_INR_Billion", Op: "scale", RateKey: "INR", Digits: 2},
			},
		},
		Sinks: config.SinksSpec{
			CSV: config.CSVSpec{Path: "./Largest_banks_data.csv"},
			DB: config.DBSpec{
				Driver: "sqlite",
				DSN:    "Banks.db",
				Table:  "Largest_banks",
				Mode:   "replace",
			},
		},
		Queries: []string{
			"SELECT * FROM Largest_banks",
			"SELECT AVG(MC_GBP_Billion) FROM Largest_banks",
			"SELECT Name FROM Largest_banks LIMIT 5",
		},
		RunLog: config.RunLogSpec{
			Path:  "code_log.txt",
			Style: "plain",
		},
	}
}
