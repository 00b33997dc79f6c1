package spreadsheet

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const maxXLSRows = 100000

var (
	ErrUnsupportedFile = errors.New("Only Excel files are allowed (.xls, .xlsx)")
	ErrNoWorksheet     = errors.New("no worksheet found")
)

// Supported reports whether filename has a spreadsheet extension we read.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls", ".xlsx":
		return true
	}
	return false
}

// ReadRows returns every row of the first worksheet of an .xls or .xlsx file.
func ReadRows(reader io.Reader, filename string) ([][]string, error) {
	if !Supported(filename) {
		return nil, ErrUnsupportedFile
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "read upload")
	}

	if strings.ToLower(filepath.Ext(filename)) == ".xls" {
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, errors.Wrap(err, "open xls")
		}
		first := workbook.GetSheet(0)
		if first == nil {
			return nil, ErrNoWorksheet
		}
		return firstSheet(workbook.ReadAllCells(maxXLSRows), first.MaxRow), nil
	}

	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrNoWorksheet
	}
	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %s", sheetName)
	}
	return rows, nil
}

// firstSheet trims the concatenated rows of every .xls sheet down to those of
// the first one. xls reports MaxRow as the last row index, and a sheet with
// MaxRow 0 contributes no rows at all.
func firstSheet(all [][]string, maxRow uint16) [][]string {
	if maxRow == 0 {
		return nil
	}
	n := int(maxRow) + 1
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}
