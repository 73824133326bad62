package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"

	"priceeda/internal/dataset"
	apierrors "priceeda/internal/errors"
)

func (l *Loader) loadXLSX(ctx context.Context, path string, opts Options) (*dataset.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets: %w", apierrors.ErrEmptyDataset)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %q has no data rows: %w", sheet, apierrors.ErrEmptyDataset)
	}

	l.logger.DebugContext(ctx, "read worksheet",
		"sheet", sheet,
		"rows", len(rows)-1)

	df := dataframe.LoadRecords(padRecords(rows), loadOptions()...)
	if df.Err != nil {
		return nil, fmt.Errorf("parse sheet %q: %w", sheet, df.Err)
	}

	return l.fromDataFrame(ctx, df, opts, excelSerialDate)
}

// padRecords squares off rows, since GetRows omits trailing empty cells
func padRecords(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}

// excelSerialDate reads dates stored as unformatted serial numbers
func excelSerialDate(cell string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || serial <= 0 {
		return time.Time{}, false
	}
	d, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return dataset.Normalize(d), true
}
