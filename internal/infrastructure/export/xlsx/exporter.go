package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

const (
	SheetInsights   = "Insights"
	SheetHighlights = "Highlights"
	SheetWordCloud  = "Word Cloud"
)

var (
	insightsHeader   = []any{"Quote", "Theme", "Emotion", "Need", "Opportunity", "Solution"}
	highlightsHeader = []any{"ID", "Tag", "Text"}
	wordCloudHeader  = []any{"Word", "Count", "Sentiment"}
)

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// WriteInsights renders data as a workbook with one sheet per table.
func (e *Exporter) WriteInsights(w io.Writer, data domain.ResearchData) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", SheetInsights); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetHighlights); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetHighlights, err)
	}
	if _, err := f.NewSheet(SheetWordCloud); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetWordCloud, err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	rows := make([][]any, 0, len(data.Insights.Table))
	for _, row := range data.Insights.Table {
		rows = append(rows, []any{row.Text, row.Theme, row.Emotion, row.Need, row.Opportunity, row.Solution})
	}
	if err := writeSheet(f, SheetInsights, insightsHeader, rows, style); err != nil {
		return err
	}

	rows = make([][]any, 0, len(data.Highlights))
	for _, h := range data.Highlights {
		label := h.TagID
		if tag, ok := data.TagByID(h.TagID); ok {
			label = tag.Label
		}
		rows = append(rows, []any{h.ID, label, h.Text})
	}
	if err := writeSheet(f, SheetHighlights, highlightsHeader, rows, style); err != nil {
		return err
	}

	rows = make([][]any, 0, len(data.Insights.WordCloud))
	for _, word := range data.Insights.WordCloud {
		rows = append(rows, []any{word.Word, word.Count, word.Sentiment})
	}
	if err := writeSheet(f, SheetWordCloud, wordCloudHeader, rows, style); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
