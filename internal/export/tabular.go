package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"

	"go-film-diary/internal/model"
	"go-film-diary/internal/summary"
)

const sheetName = "diary"

// ToCSV 写出表头与全部记录。
func ToCSV(w io.Writer, recs []model.EnrichedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, r := range recs {
		if err := cw.Write(r.Strings()); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ToXLSX 写出单工作表的 xlsx 文件，数值列保留数值类型。
func ToXLSX(recs []model.EnrichedRecord, path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]any, len(model.Columns))
	for i, c := range model.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, r := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := r.Values()
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// ToTable 以终端表格输出记录。
func ToTable(w io.Writer, recs []model.EnrichedRecord) error {
	t := newTable(w)
	header := make(table.Row, len(model.Columns))
	for i, c := range model.Columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, r := range recs {
		row := make(table.Row, 0, len(model.Columns))
		for _, v := range r.Strings() {
			row = append(row, v)
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{"rows", strconv.Itoa(len(recs))})
	t.Render()
	return nil
}

// ToTopTable 输出某个维度的前 N 名。
func ToTopTable(w io.Writer, dim summary.Dimension, counts []summary.Count) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", string(dim), "count"})
	for i, c := range counts {
		t.AppendRow(table.Row{i + 1, c.Name, c.Count})
	}
	t.Render()
}

// ToEntryTable 输出尚未补全详情的日记条目（如订阅中的最近记录），空字段显示为 "-"。
func ToEntryTable(w io.Writer, entries []model.DiaryEntry) {
	t := newTable(w)
	t.AppendHeader(table.Row{"log_date", "film", "date", "rating", "liked", "url"})
	for _, e := range entries {
		t.AppendRow(table.Row{str(e.LogDate), str(e.Film), num(e.Year), num(e.Rating), boolStr(e.Liked), str(e.URL)})
	}
	t.Render()
}

func str(p *string) string {
	if p == nil {
		return "-"
	}
	return *p
}

func num(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func boolStr(p *bool) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatBool(*p)
}
