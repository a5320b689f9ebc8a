// Package config defines the declarative pipeline spec and its YAML loader.
// A Spec describes one ETL pipeline end to end: where to extract from, how
// the raw table is reshaped, where the result is loaded, and which
// verification queries run afterwards.
//
// Specs come from two places: built-ins registered by pkg/jobs, and YAML
// files loaded at run time. Both go through the same defaulting and
// validation:
//
//	spec.ApplyDefaults()
//	if err := spec.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/quarrydata/quarry/pkg/errors"
)

const (
	// DefaultTimeout bounds every network and database operation of a run.
	DefaultTimeout = 30 * time.Second

	// DefaultMarkerClass is the CSS class data tables are expected to carry.
	DefaultMarkerClass = "wikitable"
)

var validate = validator.New()

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Spec is the single declarative description of a pipeline.
type Spec struct {
	Name        string         `yaml:"name" json:"name" validate:"required"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Source      SourceSpec     `yaml:"source" json:"source"`
	Projection  ProjectionSpec `yaml:"projection" json:"projection"`
	Cleaning    CleaningSpec   `yaml:"cleaning" json:"cleaning"`
	Filter      FilterSpec     `yaml:"filter,omitempty" json:"filter,omitempty"`
	Rates       RatesSpec      `yaml:"rates,omitempty" json:"rates,omitempty"`
	Derive      DeriveSpec     `yaml:"derive,omitempty" json:"derive,omitempty"`
	Keep        []string       `yaml:"keep,omitempty" json:"keep,omitempty"`
	Sinks       SinksSpec      `yaml:"sinks" json:"sinks"`
	Queries     []string       `yaml:"queries,omitempty" json:"queries,omitempty"`
	RunLog      RunLogSpec     `yaml:"runlog" json:"runlog"`
}

// SourceSpec names the page to extract and the rule that locates the table.
type SourceSpec struct {
	URL     string   `yaml:"url" json:"url" validate:"required,url"`
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Rule    RuleSpec `yaml:"rule" json:"rule"`
}

// RuleSpec selects a table either by the heading anchor it follows or by a
// caption substring.
type RuleSpec struct {
	Kind    string `yaml:"kind" json:"kind" validate:"required,oneof=heading caption"`
	Anchor  string `yaml:"anchor,omitempty" json:"anchor,omitempty" validate:"required_if=Kind heading"`
	Caption string `yaml:"caption,omitempty" json:"caption,omitempty" validate:"required_if=Kind caption"`
	Marker  string `yaml:"marker,omitempty" json:"marker,omitempty"`
}

// ProjectionSpec maps raw column positions to the target schema.
type ProjectionSpec struct {
	Indices []int        `yaml:"indices" json:"indices" validate:"required,min=1"`
	Columns []ColumnSpec `yaml:"columns" json:"columns" validate:"required,min=1,dive"`
}

// ColumnSpec declares one target column.
type ColumnSpec struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	Type string `yaml:"type" json:"type" validate:"required,oneof=TEXT REAL"`
}

// CleaningSpec names the numeric column and the noise patterns stripped from
// it before parsing.
type CleaningSpec struct {
	Column   string   `yaml:"column" json:"column" validate:"required"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// FilterSpec drops rows by key blocklist and by missing required values.
type FilterSpec struct {
	KeyColumn     string   `yaml:"key_column,omitempty" json:"key_column,omitempty"`
	Exclude       []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	RequireColumn string   `yaml:"require_column,omitempty" json:"require_column,omitempty"`
}

// RatesSpec points at the exchange rate CSV used by rate-based derivations.
type RatesSpec struct {
	Source   string   `yaml:"source,omitempty" json:"source,omitempty"`
	Required []string `yaml:"required,omitempty" json:"required,omitempty"`
}

// DeriveSpec lists the columns derived from a numeric base column.
type DeriveSpec struct {
	Base        string           `yaml:"base,omitempty" json:"base,omitempty"`
	Derivations []DerivationSpec `yaml:"derivations,omitempty" json:"derivations,omitempty" validate:"dive"`
}

// DerivationSpec describes one derived column. Exactly one of Operand and
// RateKey provides the factor: Operand is a literal, RateKey is looked up in
// the loaded exchange rates.
type DerivationSpec struct {
	Name    string  `yaml:"name" json:"name" validate:"required"`
	Op      string  `yaml:"op" json:"op" validate:"required,oneof=scale divide"`
	Operand float64 `yaml:"operand,omitempty" json:"operand,omitempty" validate:"excluded_with=RateKey"`
	RateKey string  `yaml:"rate,omitempty" json:"rate,omitempty" validate:"required_without=Operand"`
	Digits  int     `yaml:"digits" json:"digits" validate:"gte=0,lte=10"`
}

// SinksSpec holds both load targets.
type SinksSpec struct {
	CSV CSVSpec `yaml:"csv" json:"csv"`
	DB  DBSpec  `yaml:"db" json:"db"`
}

// CSVSpec configures the CSV sink.
type CSVSpec struct {
	Path     string `yaml:"path" json:"path" validate:"required"`
	Compress bool   `yaml:"compress,omitempty" json:"compress,omitempty"`
}

// DBSpec configures the relational sink.
type DBSpec struct {
	Driver string `yaml:"driver" json:"driver" validate:"required,oneof=sqlite pgx mysql"`
	DSN    string `yaml:"dsn" json:"dsn" validate:"required"`
	Table  string `yaml:"table" json:"table" validate:"required"`
	Mode   string `yaml:"mode" json:"mode" validate:"required,oneof=replace create_append"`
}

// RunLogSpec configures the append-only run log file.
type RunLogSpec struct {
	Path  string `yaml:"path" json:"path" validate:"required"`
	Style string `yaml:"style" json:"style" validate:"required,oneof=plain leveled"`
}

// ApplyDefaults fills the optional knobs a spec is allowed to omit.
func (s *Spec) ApplyDefaults() {
	if s.Source.Timeout == 0 {
		s.Source.Timeout = Duration(DefaultTimeout)
	}
	if s.Source.Rule.Marker == "" {
		s.Source.Rule.Marker = DefaultMarkerClass
	}
	if s.Sinks.DB.Driver == "" {
		s.Sinks.DB.Driver = "sqlite"
	}
	if s.Sinks.DB.Mode == "" {
		s.Sinks.DB.Mode = "replace"
	}
	if s.RunLog.Style == "" {
		s.RunLog.Style = "plain"
	}
}

// Validate checks the spec structurally and cross-field. Call after
// ApplyDefaults.
func (s *Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid pipeline spec").
			WithDetail("pipeline", s.Name)
	}

	if len(s.Projection.Indices) != len(s.Projection.Columns) {
		return errors.Newf(errors.ErrorTypeConfig,
			"pipeline %q projects %d indices into %d columns",
			s.Name, len(s.Projection.Indices), len(s.Projection.Columns))
	}
	if len(s.Derive.Derivations) > 0 && s.Derive.Base == "" {
		return errors.Newf(errors.ErrorTypeConfig,
			"pipeline %q has derivations but no base column", s.Name)
	}
	for _, d := range s.Derive.Derivations {
		if d.RateKey != "" && s.Rates.Source == "" {
			return errors.Newf(errors.ErrorTypeConfig,
				"derivation %q needs an exchange rate source", d.Name)
		}
	}
	return nil
}

// RateKeys returns the union of rate keys the spec requires: the explicit
// required list plus every key referenced by a derivation.
func (s *Spec) RateKeys() []string {
	seen := make(map[string]bool, len(s.Rates.Required))
	keys := make([]string, 0, len(s.Rates.Required))
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, k := range s.Rates.Required {
		add(k)
	}
	for _, d := range s.Derive.Derivations {
		add(d.RateKey)
	}
	return keys
}

// Clone returns a copy safe to mutate, so flag overrides never touch a
// registered built-in.
func (s *Spec) Clone() *Spec {
	c := *s
	c.Projection.Indices = append([]int(nil), s.Projection.Indices...)
	c.Projection.Columns = append([]ColumnSpec(nil), s.Projection.Columns...)
	c.Cleaning.Patterns = append([]string(nil), s.Cleaning.Patterns...)
	c.Filter.Exclude = append([]string(nil), s.Filter.Exclude...)
	c.Rates.Required = append([]string(nil), s.Rates.Required...)
	c.Derive.Derivations = append([]DerivationSpec(nil), s.Derive.Derivations...)
	c.Keep = append([]string(nil), s.Keep...)
	c.Queries = append([]string(nil), s.Queries...)
	return &c
}
