/*
   TheTruth - claim verification against live sources with a local LLM
   Copyright (C) 2025  Unbewohnte (Kasyanov Nikolay Alexeevich)

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package spreadsheet

import (
	"bytes"

	"Unbewohnte/TheTruth/internal/source"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v3"
)

const (
	SummarySheet = "Summary"
	SourcesSheet = "Sources"
	FeedSheet    = "Feed"
)

var sourceHeaders = []string{"#", "Title", "URL", "Snippet", "Published", "Source"}

// ResultToXLSX creates an in-memory workbook with the verdict on one sheet
// and the sources it was based on on another.
func ResultToXLSX(result *source.VerificationResult) (*bytes.Buffer, error) {
	file := xlsx.NewFile()

	summary, err := file.AddSheet(SummarySheet)
	if err != nil {
		return nil, eris.Wrap(err, "spreadsheet: add summary sheet")
	}

	addPair(summary, "Claim", result.Query)
	addPair(summary, "Category", string(result.Category))
	addPair(summary, "Language", string(result.Language))
	addPair(summary, "Verified", yesNo(result.IsVerified))
	addPair(summary, "Verdict", result.AISummary)
	row := summary.AddRow()
	row.AddCell().Value = "Checked at"
	row.AddCell().SetDateTime(result.CheckedAt)

	sources, err := file.AddSheet(SourcesSheet)
	if err != nil {
		return nil, eris.Wrap(err, "spreadsheet: add sources sheet")
	}
	writeItems(sources, result.Sources)

	return write(file)
}

// FeedToXLSX creates an in-memory workbook listing feed articles.
func FeedToXLSX(items []source.Item) (*bytes.Buffer, error) {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet(FeedSheet)
	if err != nil {
		return nil, eris.Wrap(err, "spreadsheet: add feed sheet")
	}
	writeItems(sheet, items)

	return write(file)
}

func addPair(sheet *xlsx.Sheet, key string, value string) {
	row := sheet.AddRow()
	row.AddCell().Value = key
	row.AddCell().Value = value
}

func writeItems(sheet *xlsx.Sheet, items []source.Item) {
	header := sheet.AddRow()
	for _, h := range sourceHeaders {
		header.AddCell().Value = h
	}

	for i, item := range items {
		row := sheet.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().Value = item.Title
		row.AddCell().Value = item.URL
		row.AddCell().Value = item.Snippet
		row.AddCell().Value = item.PublishedDate
		row.AddCell().Value = item.Source
	}
}

func write(file *xlsx.File) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	if err := file.Write(buf); err != nil {
		return nil, eris.Wrap(err, "spreadsheet: write workbook")
	}
	return buf, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
