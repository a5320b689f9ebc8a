package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/table"
)

// ParseTable converts a located <table> element into a raw table of text
// cells. The first all-header row provides the provisional column names
// (later header rows are skipped); colspans are expanded so cell positions
// stay aligned across rows. Rows shorter than the header are padded with
// missing cells, longer rows are truncated.
func ParseTable(sel *goquery.Selection) (*table.Table, error) {
	var (
		headers []string
		rows    []table.Row
	)

	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("th, td")
		if cells.Length() == 0 {
			return
		}

		// rows made up entirely of header cells are header rows
		if tr.Find("td").Length() == 0 {
			if headers == nil {
				cells.Each(func(_ int, c *goquery.Selection) {
					text := cellText(c)
					for i := 0; i < colspan(c); i++ {
						headers = append(headers, text)
					}
				})
			}
			return
		}

		var row table.Row
		cells.Each(func(_ int, c *goquery.Selection) {
			v := table.Text(cellText(c))
			for i := 0; i < colspan(c); i++ {
				row = append(row, v)
			}
		})
		rows = append(rows, row)
	})

	if headers == nil {
		return nil, errors.New(errors.ErrorTypeNotFound, "table has no header row")
	}
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrorTypeNotFound, "table has no data rows")
	}

	cols := make([]table.Column, len(headers))
	for i, name := range headers {
		cols[i] = table.Column{Name: name, Type: table.TypeText}
	}

	raw := table.New(table.NewSchema(cols...))
	for _, row := range rows {
		for len(row) < len(headers) {
			row = append(row, table.Missing())
		}
		if len(row) > len(headers) {
			row = row[:len(headers)]
		}
		if err := raw.Append(row); err != nil {
			return nil, err
		}
	}

	return raw, nil
}

func cellText(c *goquery.Selection) string {
	// wikitable cells pad figures with non-breaking spaces
	text := strings.ReplaceAll(c.Text(), "\u00a0", " ")
	return strings.TrimSpace(text)
}

func colspan(c *goquery.Selection) int {
	if v, ok := c.Attr("colspan"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 1 {
			return n
		}
	}
	return 1
}
