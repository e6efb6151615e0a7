package pipeline

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/swellmap/surfatlas/internal/model"
)

// fixedColumns are the record fields with dedicated CSV columns; every
// other column is carried as an opaque attribute.
var fixedColumns = map[string]bool{
	"name":               true,
	"link":               true,
	"region":             true,
	"country":            true,
	"country_std":        true,
	"country_confidence": true,
}

// ReadBreaksCSV loads a source snapshot. The header row is indexed by
// name, so column order does not matter; "name" and "country" are
// required. Unknown columns become attributes in header order. Rows
// with missing required values are kept; the resolver routes them to
// unmatched rather than dropping them silently.
func ReadBreaksCSV(path string, source model.Source) ([]model.Break, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "csv: read")
	}
	if len(records) < 1 {
		return nil, eris.New("csv: missing header row")
	}

	header := records[0]
	colIdx := make(map[string]int, len(header))
	var attrCols []string
	for i, col := range header {
		col = strings.TrimSpace(col)
		colIdx[col] = i
		if !fixedColumns[col] {
			attrCols = append(attrCols, col)
		}
	}

	for _, col := range []string{"name", "country"} {
		if _, ok := colIdx[col]; !ok {
			return nil, eris.Errorf("csv: missing required column %q", col)
		}
	}

	breaks := make([]model.Break, 0, len(records)-1)
	for _, row := range records[1:] {
		b := model.Break{
			Name:              getCol(row, colIdx, "name"),
			Link:              getCol(row, colIdx, "link"),
			Region:            getCol(row, colIdx, "region"),
			CountryRaw:        getCol(row, colIdx, "country"),
			CountryStd:        getCol(row, colIdx, "country_std"),
			CountryConfidence: model.Confidence(getCol(row, colIdx, "country_confidence")),
			Source:            source,
			Index:             len(breaks),
		}
		for _, col := range attrCols {
			if v := getCol(row, colIdx, col); v != "" {
				b.Attributes.Set(col, v)
			}
		}
		breaks = append(breaks, b)
	}
	return breaks, nil
}

func getCol(row []string, colIdx map[string]int, name string) string {
	i, ok := colIdx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// attributeColumns collects the union of attribute keys across records
// in first-seen order, keeping output columns stable across runs.
func attributeColumns(attrs []model.Attributes) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, a := range attrs {
		for _, key := range a.Keys() {
			if !seen[key] {
				seen[key] = true
				cols = append(cols, key)
			}
		}
	}
	return cols
}

// WriteBreaksCSV writes a source snapshot, standardized fields
// included, with attribute columns appended after the fixed ones.
func WriteBreaksCSV(path string, breaks []model.Break) error {
	attrs := make([]model.Attributes, len(breaks))
	for i, b := range breaks {
		attrs[i] = b.Attributes
	}
	attrCols := attributeColumns(attrs)

	header := append([]string{"name", "link", "region", "country", "country_std", "country_confidence"}, attrCols...)
	rows := make([][]string, 0, len(breaks))
	for _, b := range breaks {
		row := []string{b.Name, b.Link, b.Region, b.CountryRaw, b.CountryStd, string(b.CountryConfidence)}
		for _, col := range attrCols {
			v, _ := b.Attributes.Get(col)
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return writeCSV(path, header, rows)
}

// WriteMergedCSV writes the merged output table.
func WriteMergedCSV(path string, merged []model.MergedBreak) error {
	attrs := make([]model.Attributes, len(merged))
	for i, m := range merged {
		attrs[i] = m.Attributes
	}
	attrCols := attributeColumns(attrs)

	header := append([]string{
		"name", "alternative_name", "region", "country", "score",
		"primary_index", "secondary_index",
	}, attrCols...)
	rows := make([][]string, 0, len(merged))
	for _, m := range merged {
		row := []string{
			m.Name, m.AlternativeName, m.Region, m.Country,
			strconv.FormatFloat(m.Score, 'f', 4, 64),
			strconv.Itoa(m.PrimaryIndex), strconv.Itoa(m.SecondaryIndex),
		}
		for _, col := range attrCols {
			v, _ := m.Attributes.Get(col)
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return writeCSV(path, header, rows)
}

// WriteUnmatchedCSV writes one of the unmatched output tables. Rows
// pass through unchanged plus their reason code.
func WriteUnmatchedCSV(path string, unmatched []model.UnmatchedBreak) error {
	attrs := make([]model.Attributes, len(unmatched))
	for i, u := range unmatched {
		attrs[i] = u.Break.Attributes
	}
	attrCols := attributeColumns(attrs)

	header := append([]string{
		"name", "link", "region", "country", "country_std", "country_confidence", "reason",
	}, attrCols...)
	rows := make([][]string, 0, len(unmatched))
	for _, u := range unmatched {
		b := u.Break
		row := []string{
			b.Name, b.Link, b.Region, b.CountryRaw, b.CountryStd,
			string(b.CountryConfidence), string(u.Reason),
		}
		for _, col := range attrCols {
			v, _ := b.Attributes.Get(col)
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return writeCSV(path, header, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "csv: create")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "csv: flush")
	}
	return nil
}
