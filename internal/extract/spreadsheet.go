package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// rowKeyPriority is the exact, case-sensitive key order used to pick the
// review cell from a spreadsheet row.
var rowKeyPriority = []string{"review", "text", "comment", "Review", "Text", "Comment"}

// cellKind is the decoded type of a spreadsheet cell. Only text cells can
// become reviews.
type cellKind int

const (
	kindString cellKind = iota
	kindNumber
	kindBool
	kindOther
)

// gridCell is one raw cell of a sheet as read from the workbook.
type gridCell struct {
	value string
	kind  cellKind
}

// cell is one populated (header, value) pair of a spreadsheet row.
type cell struct {
	key string
	gridCell
}

func extractSpreadsheet(data []byte) ([]string, error) {
	var (
		grid [][]gridCell
		err  error
	)

	switch {
	case bytes.HasPrefix(data, zipMagic):
		grid, err = readXLSX(data)
	case bytes.HasPrefix(data, ole2Magic):
		grid, err = readXLS(data)
	default:
		return nil, fmt.Errorf("%w: not an xlsx or xls workbook", ErrCorruptFile)
	}
	if err != nil {
		return nil, err
	}

	return textsFromGrid(grid), nil
}

// readXLSX returns the typed cell grid of the workbook's first sheet.
func readXLSX(data []byte) ([][]gridCell, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrCorruptFile, sheet, err)
	}

	grid := make([][]gridCell, len(rows))
	for r, row := range rows {
		cells := make([]gridCell, len(row))
		for c, v := range row {
			cells[c].value = v
			if v == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
			}
			typ, err := f.GetCellType(sheet, ref)
			if err != nil {
				return nil, fmt.Errorf("%w: cell %s: %v", ErrCorruptFile, ref, err)
			}
			cells[c].kind = xlsxKind(typ)
		}
		grid[r] = cells
	}
	return grid, nil
}

// xlsxKind maps the cell's t attribute. Numeric cells carry no t attribute
// and report CellTypeUnset.
func xlsxKind(t excelize.CellType) cellKind {
	switch t {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return kindString
	case excelize.CellTypeBool:
		return kindBool
	case excelize.CellTypeError:
		return kindOther
	default:
		return kindNumber
	}
}

// readXLS returns the cell grid of a legacy BIFF workbook's first sheet.
func readXLS(data []byte) ([][]gridCell, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}

	grid := make([][]gridCell, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]gridCell, 0, row.LastCol()+1)
		for c := 0; c <= row.LastCol(); c++ {
			v := row.Col(c)
			cells = append(cells, gridCell{value: v, kind: xlsKind(v)})
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// xlsKind recovers the record type from the rendered value, since the xls
// package only exposes cells as text. Numbers render via strconv with no
// padding, dates as RFC 3339 or "2006.01", formulas as the literal
// "FormulaCol".
func xlsKind(v string) cellKind {
	switch {
	case v == "":
		return kindString
	case v == "FormulaCol":
		return kindOther
	case isRenderedNumber(v):
		return kindNumber
	}
	if _, err := time.Parse(time.RFC3339, v); err == nil {
		return kindNumber
	}
	if _, err := time.Parse("2006.01", v); err == nil && len(v) == len("2006.01") {
		return kindNumber
	}
	return kindString
}

func isRenderedNumber(v string) bool {
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return strconv.FormatInt(i, 10) == v
	}
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && strconv.FormatFloat(f, 'f', -1, 64) == v
}

// textsFromGrid treats the first row as the header and turns each later row
// into an ordered list of populated cells before picking its review value.
func textsFromGrid(grid [][]gridCell) []string {
	if len(grid) < 2 {
		return nil
	}

	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}
	header := make([]string, len(grid[0]))
	for i, c := range grid[0] {
		header[i] = c.value
	}
	keys := headerKeys(header, width)

	var texts []string
	for _, row := range grid[1:] {
		cells := make([]cell, 0, len(row))
		for i, gc := range row {
			if gc.value == "" {
				continue
			}
			cells = append(cells, cell{key: keys[i], gridCell: gc})
		}

		picked, ok := pickCell(cells)
		if !ok || picked.kind != kindString {
			continue
		}
		if v := strings.TrimSpace(picked.value); v != "" {
			texts = append(texts, v)
		}
	}
	return texts
}

// pickCell walks the priority keys, passing over cells whose value is falsy
// (zero, FALSE), and otherwise falls back to the row's first cell.
func pickCell(cells []cell) (cell, bool) {
	if len(cells) == 0 {
		return cell{}, false
	}
	for _, want := range rowKeyPriority {
		for _, c := range cells {
			if c.key == want && c.truthy() {
				return c, true
			}
		}
	}
	return cells[0], true
}

func (c cell) truthy() bool {
	switch c.kind {
	case kindNumber:
		f, err := strconv.ParseFloat(c.value, 64)
		return err != nil || f != 0
	case kindBool:
		return c.value != "FALSE" && c.value != "0"
	default:
		return c.value != ""
	}
}

// headerKeys names each of width columns after its header cell. Blank headers
// become __EMPTY, __EMPTY_1, ... and repeated names get a _N suffix.
func headerKeys(header []string, width int) []string {
	keys := make([]string, width)
	seen := make(map[string]int, width)

	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = "__EMPTY"
		}

		key := name
		if n, dup := seen[name]; dup {
			key = fmt.Sprintf("%s_%d", name, n)
		}
		seen[name]++
		keys[i] = key
	}
	return keys
}
