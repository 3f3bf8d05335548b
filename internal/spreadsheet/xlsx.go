// Package spreadsheet reads and writes inventory sheets: one row per
// item, product name in the first column and stock in the last.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx"

	"github.com/iliyamo/food-pantry/internal/inventory"
	"github.com/iliyamo/food-pantry/internal/model"
)

// SheetName is the sheet Encode writes to.
const SheetName = "Inventory"

// ContentType is the MIME type of an .xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrEmptyWorkbook is returned when there is no sheet to read.
var ErrEmptyWorkbook = errors.New("workbook has no sheets")

// Encode writes items as a workbook with a Product/Stock header row.
func Encode(w io.Writer, items []model.Item) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(SheetName)
	if err != nil {
		return err
	}
	header := sheet.AddRow()
	header.AddCell().SetString("Product")
	header.AddCell().SetString("Stock")
	for _, it := range items {
		row := sheet.AddRow()
		row.AddCell().SetString(it.Name)
		row.AddCell().SetInt(it.Stock)
	}
	return file.Write(w)
}

// Decode reads the first sheet of an .xlsx workbook.  Blank rows are
// skipped, and so is a first non-blank row whose last cell is not a
// number (a header).  Any other row without a non-negative integer stock is an
// error naming its 1-based row number.
func Decode(data []byte) ([]inventory.ItemSeed, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("parse workbook: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	seeds := make([]inventory.ItemSeed, 0)
	first := true
	for i, row := range file.Sheets[0].Rows {
		cells := nonEmpty(row)
		if len(cells) == 0 {
			continue
		}
		header := first
		first = false
		name := cells[0]
		stock, err := strconv.Atoi(cells[len(cells)-1])
		if err != nil || len(cells) < 2 {
			if header {
				continue
			}
			return nil, fmt.Errorf("row %d: stock must be an integer", i+1)
		}
		if stock < 0 {
			return nil, fmt.Errorf("row %d: stock must not be negative", i+1)
		}
		seeds = append(seeds, inventory.ItemSeed{Name: name, Stock: stock})
	}
	return seeds, nil
}

func nonEmpty(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	out := make([]string, 0, len(row.Cells))
	for _, c := range row.Cells {
		if v := strings.TrimSpace(c.String()); v != "" {
			out = append(out, v)
		}
	}
	return out
}
