package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func extractDelimited(data []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.ReuseRecord = false

	var (
		header []string
		column int
		texts  []string
	)

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("read delimited file: %w", err)
		}

		if isBlankRecord(record) {
			continue
		}

		if header == nil {
			header = record
			column = selectColumn(header)
			continue
		}

		value := record[0]
		if column < len(record) {
			value = record[column]
		}
		if value = strings.TrimSpace(value); value != "" {
			texts = append(texts, value)
		}
	}

	return texts, nil
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
