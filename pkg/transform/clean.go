package transform

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/table"
)

// Cleaner turns noisy numeric text into numbers. Every pattern match is
// stripped from the cell before the remainder is parsed as a float.
type Cleaner struct {
	Patterns []*regexp.Regexp
}

// NewCleaner compiles the given noise patterns.
func NewCleaner(patterns ...string) (*Cleaner, error) {
	c := &Cleaner{Patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid cleaning pattern").
				WithDetail("pattern", p)
		}
		c.Patterns = append(c.Patterns, re)
	}
	return c, nil
}

// CleanColumn rewrites every cell of the named column to Number or Missing
// and returns how many text cells were demoted to Missing. Cells that are
// already numeric or missing pass through untouched; text that does not parse
// as a float after stripping becomes Missing. Only an unknown column name is
// an error.
func (c *Cleaner) CleanColumn(tbl *table.Table, name string) (int, error) {
	idx := tbl.Column(name)
	if idx < 0 {
		return 0, errors.Newf(errors.ErrorTypeSchema, "cannot clean unknown column %q", name)
	}
	demoted := 0
	for i := range tbl.Rows {
		cell := tbl.Rows[i][idx]
		if cell.Kind != table.KindText {
			continue
		}
		cleaned := c.cleanCell(cell.Text)
		if cleaned.IsMissing() {
			demoted++
		}
		tbl.Rows[i][idx] = cleaned
	}
	return demoted, nil
}

func (c *Cleaner) cleanCell(s string) table.Value {
	for _, re := range c.Patterns {
		s = re.ReplaceAllString(s, "")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return table.Missing()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return table.Missing()
	}
	return table.Number(f)
}
