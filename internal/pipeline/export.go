package pipeline

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/swellmap/surfatlas/internal/model"
	"github.com/swellmap/surfatlas/internal/reconcile"
)

// WriteWorkbook exports a reconciliation result as a single XLSX
// workbook with one sheet per output table.
func WriteWorkbook(path string, res *reconcile.Result) error {
	file := xlsx.NewFile()

	if err := addMergedSheet(file, res.Merged); err != nil {
		return err
	}
	if err := addUnmatchedSheet(file, "Primary Unmatched", res.PrimaryUnmatched); err != nil {
		return err
	}
	if err := addUnmatchedSheet(file, "Secondary Unmatched", res.SecondaryUnmatched); err != nil {
		return err
	}

	if err := file.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	return nil
}

func addMergedSheet(file *xlsx.File, merged []model.MergedBreak) error {
	sheet, err := file.AddSheet("Merged")
	if err != nil {
		return eris.Wrap(err, "export: add merged sheet")
	}

	attrs := make([]model.Attributes, len(merged))
	for i, m := range merged {
		attrs[i] = m.Attributes
	}
	attrCols := attributeColumns(attrs)

	header := sheet.AddRow()
	for _, col := range append([]string{
		"name", "alternative_name", "region", "country", "score",
		"primary_index", "secondary_index",
	}, attrCols...) {
		header.AddCell().SetString(col)
	}

	for _, m := range merged {
		row := sheet.AddRow()
		row.AddCell().SetString(m.Name)
		row.AddCell().SetString(m.AlternativeName)
		row.AddCell().SetString(m.Region)
		row.AddCell().SetString(m.Country)
		row.AddCell().SetFloatWithFormat(m.Score, "0.0000")
		row.AddCell().SetInt(m.PrimaryIndex)
		row.AddCell().SetInt(m.SecondaryIndex)
		for _, col := range attrCols {
			v, _ := m.Attributes.Get(col)
			row.AddCell().SetString(v)
		}
	}
	return nil
}

func addUnmatchedSheet(file *xlsx.File, name string, unmatched []model.UnmatchedBreak) error {
	sheet, err := file.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}

	attrs := make([]model.Attributes, len(unmatched))
	for i, u := range unmatched {
		attrs[i] = u.Break.Attributes
	}
	attrCols := attributeColumns(attrs)

	header := sheet.AddRow()
	for _, col := range append([]string{
		"name", "region", "country", "country_std", "country_confidence", "reason", "index",
	}, attrCols...) {
		header.AddCell().SetString(col)
	}

	for _, u := range unmatched {
		b := u.Break
		row := sheet.AddRow()
		row.AddCell().SetString(b.Name)
		row.AddCell().SetString(b.Region)
		row.AddCell().SetString(b.CountryRaw)
		row.AddCell().SetString(b.CountryStd)
		row.AddCell().SetString(string(b.CountryConfidence))
		row.AddCell().SetString(string(u.Reason))
		row.AddCell().SetString(strconv.Itoa(b.Index))
		for _, col := range attrCols {
			v, _ := b.Attributes.Get(col)
			row.AddCell().SetString(v)
		}
	}
	return nil
}
