// Package extract pulls review texts out of uploaded tabular files whose
// column layout is not known in advance.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoReviewsFound    = errors.New("no valid reviews found in the file")
	ErrCorruptFile       = errors.New("file could not be decoded")
)

// Format is the declared layout of an uploaded file.
type Format int

const (
	FormatDelimited Format = iota + 1
	FormatSpreadsheet
)

func (f Format) String() string {
	switch f {
	case FormatDelimited:
		return "delimited"
	case FormatSpreadsheet:
		return "spreadsheet"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Recognized upload content types.
const (
	MIMETypeCSV  = "text/csv"
	MIMETypeXLS  = "application/vnd.ms-excel"
	MIMETypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// FormatForMIME maps an upload content type to a Format. Browsers frequently
// label plain CSV files as application/vnd.ms-excel, so that type is resolved
// by looking at the file's leading bytes.
func FormatForMIME(mimeType string, data []byte) (Format, error) {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
	}

	switch mediaType {
	case MIMETypeCSV:
		return FormatDelimited, nil
	case MIMETypeXLSX:
		return FormatSpreadsheet, nil
	case MIMETypeXLS:
		if bytes.HasPrefix(data, zipMagic) || bytes.HasPrefix(data, ole2Magic) {
			return FormatSpreadsheet, nil
		}
		return FormatDelimited, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
	}
}

// Extract returns the review texts found in data, in file order. Rows whose
// selected value is blank are skipped; a file with no surviving rows fails
// with ErrNoReviewsFound.
func Extract(data []byte, format Format) ([]string, error) {
	var (
		texts []string
		err   error
	)

	switch format {
	case FormatDelimited:
		texts, err = extractDelimited(data)
	case FormatSpreadsheet:
		texts, err = extractSpreadsheet(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	if len(texts) == 0 {
		return nil, ErrNoReviewsFound
	}
	return texts, nil
}

// headerKeywords are matched, in priority order, as substrings of lowercased
// delimited-file header names.
var headerKeywords = []string{"review", "text", "comment"}

// selectColumn returns the index of the review column for a delimited header.
// Falls back to column 0 when no header matches.
func selectColumn(header []string) int {
	lowered := make([]string, len(header))
	for i, h := range header {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for _, kw := range headerKeywords {
		for i, h := range lowered {
			if strings.Contains(h, kw) {
				return i
			}
		}
	}
	return 0
}
