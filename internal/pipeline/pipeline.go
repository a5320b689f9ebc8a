// Package pipeline provides the execution engine for quarry, driving one run
// through its stages: Extract, Transform, LoadCSV, LoadDB, Query.
//
// # Overview
//
// A run is fully sequential. Each stage's output is the next stage's sole
// input, there is no retry and no rollback: a CSV written before a database
// failure stays on disk. Stage transitions and failures are appended to the
// run log, a per-run side channel separate from the process logger.
//
// # Basic Usage
//
//	spec, _ := registry.Get("banks")
//	p, err := pipeline.New(spec, pipeline.Options{})
//	if err != nil {
//	    return err
//	}
//	if err := p.Run(ctx); err != nil {
//	    return err
//	}
//	for _, qr := range p.Results() {
//	    fmt.Println(qr.Result)
//	}
package pipeline

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quarrydata/quarry/pkg/config"
	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/extract"
	"github.com/quarrydata/quarry/pkg/logger"
	"github.com/quarrydata/quarry/pkg/metrics"
	"github.com/quarrydata/quarry/pkg/observability"
	"github.com/quarrydata/quarry/pkg/query"
	"github.com/quarrydata/quarry/pkg/sink"
	"github.com/quarrydata/quarry/pkg/table"
	"github.com/quarrydata/quarry/pkg/transform"
)

// Pipeline executes one spec. It is single-use: create one per run.
type Pipeline struct {
	spec    *config.Spec
	logger  *zap.Logger
	fetcher *extract.Fetcher
	runID   string

	mu    sync.Mutex
	state State

	// Run-scoped fields, written by the stages in order.
	runLog  *logger.RunLog
	raw     *table.Table
	tbl     *table.Table
	db      *sql.DB
	results []QueryResult

	startTime time.Time
	duration  time.Duration
	stages    map[string]time.Duration
	dropped   int
	demoted   int
}

// QueryResult pairs a verification query with its materialized result.
type QueryResult struct {
	SQL    string        `json:"sql"`
	Result *query.Result `json:"result"`
}

// Options carries the injectable dependencies of a pipeline. Zero values
// select the defaults: the process logger and a fetcher built from the
// spec's timeout.
type Options struct {
	Logger  *zap.Logger
	Fetcher *extract.Fetcher
}

// New builds a pipeline for the given spec. The spec must already be
// validated; New only wires dependencies.
func New(spec *config.Spec, opts Options) (*Pipeline, error) {
	if spec == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "pipeline spec is nil")
	}

	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = extract.NewFetcher(spec.Source.Timeout.Std())
	}

	return &Pipeline{
		spec:    spec,
		logger:  log.With(zap.String("pipeline", spec.Name)),
		fetcher: fetcher,
		runID:   uuid.New().String(),
		state:   StateIdle,
		stages:  make(map[string]time.Duration),
	}, nil
}

// RunID returns the unique identifier of this run.
func (p *Pipeline) RunID() string {
	return p.runID
}

// State returns the current run state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Results returns the query results collected so far, in execution order.
// On a failed run the slice holds whatever completed before the failure.
func (p *Pipeline) Results() []QueryResult {
	return p.results
}

// Run drives the pipeline to Done or Failed. The returned error is the
// stage error that stopped the run, already logged to the run log as
// "ETL process failed: ...". The database handle is opened once before
// the LoadDB stage and released on every path.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	p.startTime = time.Now()
	monitor := newResourceMonitor()

	defer func() {
		p.duration = time.Since(p.startTime)
		if err != nil {
			p.fail(err)
		} else {
			p.setState(StateDone)
			metrics.RunsTotal.WithLabelValues(p.spec.Name, "success").Inc()
			p.logSummary(monitor)
		}
		if closeErr := p.runLog.Close(); closeErr != nil {
			p.logger.Warn("failed to close run log", zap.Error(closeErr))
		}
	}()

	p.logger.Info("starting pipeline run",
		zap.String("run_id", p.runID),
		zap.String("url", p.spec.Source.URL),
		zap.String("run_log", p.spec.RunLog.Path))

	p.runLog, err = logger.NewRunLog(p.spec.RunLog.Path, logger.RunLogStyle(p.spec.RunLog.Style))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to open run log").
			WithDetail("path", p.spec.RunLog.Path)
	}

	p.runLog.Log("Preliminaries complete. Initiating ETL process")

	if err = p.runStage(ctx, StateExtracting, stageExtract, p.extractStage); err != nil {
		return err
	}
	p.runLog.Log("Data extraction complete. Initiating Transformation process")

	if err = p.runStage(ctx, StateTransforming, stageTransform, p.transformStage); err != nil {
		return err
	}
	p.runLog.Log("Data transformation complete. Initiating Loading process")

	if err = p.runStage(ctx, StateLoadingCSV, stageLoadCSV, p.loadCSVStage); err != nil {
		return err
	}
	p.runLog.Log("Data saved to CSV file")

	defer p.closeDB()
	if err = p.runStage(ctx, StateLoadingDB, stageLoadDB, p.loadDBStage); err != nil {
		return err
	}
	p.runLog.Log("Data loaded to Database as a table, Executing queries")

	if err = p.runStage(ctx, StateQuerying, stageQuery, p.queryStage); err != nil {
		return err
	}

	return nil
}

// runStage advances the state machine, runs one stage under a span and a
// timer, and records its duration.
func (p *Pipeline) runStage(ctx context.Context, state State, stage string, fn func(context.Context) error) error {
	p.setState(state)

	ctx, span := observability.StartSpan(ctx, "pipeline."+stage)
	defer span.End()
	span.SetAttribute("pipeline", p.spec.Name)
	span.SetAttribute("run_id", p.runID)

	timer := metrics.NewTimer()
	err := fn(ctx)
	elapsed := timer.Stop()

	p.stages[stage] = elapsed
	metrics.ObserveStage(p.spec.Name, stage, elapsed)

	if err != nil {
		span.Fail(err)
		return err
	}
	return nil
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	prev := p.state
	p.state = s
	p.mu.Unlock()

	p.logger.Debug("state transition",
		zap.Stringer("from", prev),
		zap.Stringer("to", s))
}

// fail moves the run to Failed and writes the failure line. The run log is
// nil-safe, so failing before it opens is fine.
func (p *Pipeline) fail(err error) {
	p.setState(StateFailed)
	p.runLog.Fail("ETL process failed: " + err.Error())
	metrics.RunsTotal.WithLabelValues(p.spec.Name, "failed").Inc()

	p.logger.Error("pipeline run failed",
		zap.String("run_id", p.runID),
		zap.Stringer("state", StateFailed),
		zap.Error(err))
}

// extractStage fetches the source document, locates the table named by the
// spec's rule and parses it into the raw in-memory table.
func (p *Pipeline) extractStage(ctx context.Context) error {
	doc, err := p.fetcher.Document(ctx, p.spec.Source.URL)
	if err != nil {
		return err
	}

	locator, err := locatorFor(p.spec.Source.Rule)
	if err != nil {
		return err
	}

	sel, err := locator.Locate(doc)
	if err != nil {
		return err
	}

	raw, err := extract.ParseTable(sel)
	if err != nil {
		return err
	}

	p.raw = raw
	metrics.RowsExtracted.WithLabelValues(p.spec.Name).Add(float64(raw.NumRows()))
	p.logger.Info("extraction complete",
		zap.Int("rows", raw.NumRows()),
		zap.Int("columns", raw.NumCols()))
	return nil
}

// transformStage projects the raw table onto the target schema, cleans the
// numeric column, filters rows, applies derivations and the final keep list.
func (p *Pipeline) transformStage(ctx context.Context) error {
	projector := transform.Projector{
		Indices: p.spec.Projection.Indices,
		Schema:  schemaFromSpec(p.spec.Projection.Columns),
	}
	tbl, err := projector.Project(p.raw)
	if err != nil {
		return err
	}

	cleaner, err := transform.NewCleaner(p.spec.Cleaning.Patterns...)
	if err != nil {
		return err
	}
	demoted, err := cleaner.CleanColumn(tbl, p.spec.Cleaning.Column)
	if err != nil {
		return err
	}
	p.demoted = demoted
	metrics.CellsDemoted.WithLabelValues(p.spec.Name).Add(float64(demoted))

	before := tbl.NumRows()
	tbl, err = p.filterFor().Apply(tbl)
	if err != nil {
		return err
	}
	p.dropped = before - tbl.NumRows()
	metrics.RowsDropped.WithLabelValues(p.spec.Name).Add(float64(p.dropped))

	if len(p.spec.Derive.Derivations) > 0 {
		derivations, err := p.resolveDerivations(ctx)
		if err != nil {
			return err
		}
		if err := transform.Derive(tbl, p.spec.Derive.Base, derivations); err != nil {
			return err
		}
	}

	if len(p.spec.Keep) > 0 {
		tbl, err = transform.Keep(tbl, p.spec.Keep...)
		if err != nil {
			return err
		}
	}

	p.tbl = tbl
	p.logger.Info("transformation complete",
		zap.Int("rows", tbl.NumRows()),
		zap.Int("rows_dropped", p.dropped),
		zap.Int("cells_demoted", demoted),
		zap.Strings("columns", tbl.Schema.Names()))
	return nil
}

func (p *Pipeline) loadCSVStage(context.Context) error {
	csvSink := sink.CSVSink{
		Path:     p.spec.Sinks.CSV.Path,
		Compress: p.spec.Sinks.CSV.Compress,
	}
	if err := csvSink.Write(p.tbl); err != nil {
		return err
	}

	metrics.RowsLoaded.WithLabelValues(p.spec.Name, "csv").Add(float64(p.tbl.NumRows()))
	p.logger.Info("csv written",
		zap.String("path", p.spec.Sinks.CSV.Path),
		zap.Int("rows", p.tbl.NumRows()))
	return nil
}

func (p *Pipeline) loadDBStage(ctx context.Context) error {
	db, err := sink.Open(ctx, p.spec.Sinks.DB.Driver, p.spec.Sinks.DB.DSN)
	if err != nil {
		return err
	}
	p.db = db
	p.runLog.Log("SQL Connection initiated")

	dialect, err := sink.DialectFor(p.spec.Sinks.DB.Driver)
	if err != nil {
		return err
	}

	sqlSink := sink.SQLSink{
		Table:   p.spec.Sinks.DB.Table,
		Mode:    sink.LoadMode(p.spec.Sinks.DB.Mode),
		Dialect: dialect,
	}
	if err := sqlSink.Load(ctx, db, p.tbl); err != nil {
		return err
	}

	metrics.RowsLoaded.WithLabelValues(p.spec.Name, "db").Add(float64(p.tbl.NumRows()))
	p.logger.Info("table loaded",
		zap.String("driver", p.spec.Sinks.DB.Driver),
		zap.String("table", p.spec.Sinks.DB.Table),
		zap.String("mode", p.spec.Sinks.DB.Mode),
		zap.Int("rows", p.tbl.NumRows()))
	return nil
}

// queryStage executes each verification query against the handle the load
// stage opened, collecting results in order.
func (p *Pipeline) queryStage(ctx context.Context) error {
	runner := query.Runner{DB: p.db}

	for _, q := range p.spec.Queries {
		res, err := runner.Run(ctx, q)
		if err != nil {
			return err
		}
		p.results = append(p.results, QueryResult{SQL: q, Result: res})
		p.runLog.Log("Process Complete")
		p.logger.Info("query executed",
			zap.String("sql", q),
			zap.Int("rows", res.NumRows()))
	}
	return nil
}

// closeDB releases the store handle if the load stage opened one. Deferred
// from Run so the release happens on every path, including failures.
func (p *Pipeline) closeDB() {
	if p.db == nil {
		return
	}
	if err := p.db.Close(); err != nil {
		p.logger.Warn("failed to close database", zap.Error(err))
	}
	p.db = nil
	p.runLog.Log("Server Connection closed")
}

// resolveDerivations turns the spec's derivation list into concrete
// operands, loading the exchange rates when any derivation names a rate key.
func (p *Pipeline) resolveDerivations(ctx context.Context) ([]transform.Derivation, error) {
	keys := p.spec.RateKeys()

	var rates map[string]float64
	if len(keys) > 0 {
		var err error
		rates, err = extract.LoadRates(ctx, p.fetcher, p.spec.Rates.Source)
		if err != nil {
			return nil, err
		}
		if err := extract.RequireRates(rates, keys...); err != nil {
			return nil, err
		}
		p.logger.Info("exchange rates loaded",
			zap.String("source", p.spec.Rates.Source),
			zap.Int("rates", len(rates)))
	}

	derivations := make([]transform.Derivation, 0, len(p.spec.Derive.Derivations))
	for _, d := range p.spec.Derive.Derivations {
		operand := d.Operand
		if d.RateKey != "" {
			operand = rates[d.RateKey]
		}
		derivations = append(derivations, transform.Derivation{
			Name:    d.Name,
			Op:      transform.Op(d.Op),
			Operand: operand,
			Digits:  d.Digits,
		})
	}
	return derivations, nil
}

func (p *Pipeline) filterFor() transform.Filter {
	exclude := make(map[string]bool, len(p.spec.Filter.Exclude))
	for _, k := range p.spec.Filter.Exclude {
		exclude[k] = true
	}
	return transform.Filter{
		KeyColumn:     p.spec.Filter.KeyColumn,
		Exclude:       exclude,
		RequireColumn: p.spec.Filter.RequireColumn,
	}
}

func locatorFor(rule config.RuleSpec) (extract.Locator, error) {
	switch rule.Kind {
	case "heading":
		return extract.HeadingRule{AnchorID: rule.Anchor, MarkerClass: rule.Marker}, nil
	case "caption":
		return extract.CaptionRule{Substring: rule.Caption, MarkerClass: rule.Marker}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown rule kind %q", rule.Kind)
	}
}

func schemaFromSpec(cols []config.ColumnSpec) table.Schema {
	out := make([]table.Column, 0, len(cols))
	for _, c := range cols {
		typ := table.TypeText
		if c.Type == string(table.TypeReal) {
			typ = table.TypeReal
		}
		out = append(out, table.Column{Name: c.Name, Type: typ})
	}
	return table.NewSchema(out...)
}

// Summary reports what the run did. Valid once Run has returned.
func (p *Pipeline) Summary() Summary {
	s := Summary{
		RunID:        p.runID,
		Pipeline:     p.spec.Name,
		State:        p.State().String(),
		Duration:     p.duration,
		Stages:       p.stages,
		RowsDropped:  p.dropped,
		CellsDemoted: p.demoted,
	}
	if p.raw != nil {
		s.RowsExtracted = p.raw.NumRows()
	}
	if p.tbl != nil {
		s.RowsLoaded = p.tbl.NumRows()
	}
	return s
}

func (p *Pipeline) logSummary(monitor *resourceMonitor) {
	s := p.Summary()
	s.MemoryRSS, s.CPUPercent = monitor.usage()

	fields := []zap.Field{
		zap.String("run_id", s.RunID),
		zap.Duration("duration", s.Duration),
		zap.Int("rows_extracted", s.RowsExtracted),
		zap.Int("rows_dropped", s.RowsDropped),
		zap.Int("rows_loaded", s.RowsLoaded),
		zap.Int("cells_demoted", s.CellsDemoted),
		zap.Uint64("memory_rss", s.MemoryRSS),
		zap.Float64("cpu_percent", s.CPUPercent),
	}
	for stage, d := range s.Stages {
		fields = append(fields, zap.Duration("stage_"+stage, d))
	}

	p.logger.Info("pipeline run complete", fields...)
}
