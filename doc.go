// Package quarry extracts tabular datasets embedded in HTML documents,
// cleans and numerically normalizes them, enriches them with derived
// columns, and persists the result to both a flat CSV file and a queryable
// relational store, followed by verification queries.
//
// A pipeline is a strictly sequential run through five stages:
//
//	Extract    fetch the page, locate the one table the spec names, parse it
//	Transform  project columns, clean numerics, filter rows, derive columns
//	LoadCSV    write the table to a CSV file
//	LoadDB     create/replace or append a relational table
//	Query      run the spec's verification queries against the loaded table
//
// Each stage transition is appended to a per-run log file, and a failure in
// any stage stops the run: there is no retry and no rollback, so artifacts
// written by earlier stages (the CSV) survive later failures.
//
// # Quick Start
//
// Run a built-in pipeline:
//
//	quarry run banks
//	quarry run gdp --json
//
// Or declare your own in YAML and run it:
//
//	quarry init pipelines.yaml
//	quarry run -f pipelines.yaml banks --csv /tmp/banks.csv
//
// Programmatic use mirrors the CLI:
//
//	import (
//	    "context"
//
//	    "github.com/quarrydata/quarry/internal/pipeline"
//	    "github.com/quarrydata/quarry/pkg/registry"
//
//	    _ "github.com/quarrydata/quarry/pkg/jobs"
//	)
//
//	spec, _ := registry.Get("banks")
//	p, _ := pipeline.New(spec, pipeline.Options{})
//	err := p.Run(context.Background())
//
// # Key Packages
//
//	pkg/extract    - page fetching, table location rules, HTML table parsing
//	pkg/transform  - projection, numeric cleaning, row filters, derivations
//	pkg/sink       - CSV and SQL loaders with per-dialect DDL
//	pkg/query      - verification query runner and result rendering
//	pkg/table      - the in-memory table threaded between stages
//	pkg/config     - YAML pipeline specs, validation, env substitution
//	pkg/registry   - named spec registry for built-in pipelines
//	pkg/errors     - structured error handling
//	pkg/logger     - structured logging plus the per-run log side channel
//	pkg/metrics    - Prometheus counters and stage timings
//
// # Built-in Pipelines
//
// Two pipelines ship in pkg/jobs and register themselves on import:
//
//   - banks: the largest banks by market capitalization, with market cap
//     converted to GBP, EUR and INR from an exchange-rate CSV
//   - gdp: countries by nominal GDP, rescaled from USD millions to billions
//
// # Configuration
//
// Pipelines are described declaratively; the spec names the source URL, the
// rule that picks the right table out of the page (a heading anchor or a
// caption substring), the projected columns, cleaning patterns, filters,
// derived columns, both sinks and the verification queries.
//
// Environment variables are supported in spec files with ${VAR_NAME} syntax.
package quarry
