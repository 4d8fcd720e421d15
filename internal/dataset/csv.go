package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

func LoadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadCSV(f)
}

// LoadCSV parses a CSV document with a header row into a Dataset, inferring
// column types from the data rows.
func LoadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rows = append(rows, record)
	}

	return &Dataset{
		Columns: inferColumns(header, rows),
		Rows:    rows,
	}, nil
}

// LoadCSVString is a convenience wrapper for data held in memory, such as a
// session-cached upload.
func LoadCSVString(data string) (*Dataset, error) {
	return LoadCSV(strings.NewReader(data))
}
