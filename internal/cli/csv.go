package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// series holds the numeric columns of a CSV file keyed by lower-case header.
type series map[string][]float64

// readSeries parses a CSV file into columns. A file whose first row is not
// numeric is read with that row as header; a headerless file must have a
// single column, which is taken as close prices. Empty cells become NaN.
func readSeries(r io.Reader) (series, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("CSV input is empty")
	}

	var header []string
	if !numericRow(records[0]) {
		for _, h := range records[0] {
			header = append(header, strings.ToLower(strings.TrimSpace(h)))
		}
		records = records[1:]
	} else {
		if len(records[0]) != 1 {
			return nil, errors.New("CSV without a header must have a single close column")
		}
		header = []string{"close"}
	}

	out := make(series, len(header))
	for _, h := range header {
		out[h] = make([]float64, 0, len(records))
	}

	for line, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", line+1, len(header), len(rec))
		}
		for i, field := range rec {
			v, err := parseCell(field)
			if err != nil {
				// non-numeric columns such as timestamps are dropped
				delete(out, header[i])
				continue
			}
			if col, ok := out[header[i]]; ok {
				out[header[i]] = append(col, v)
			}
		}
	}
	return out, nil
}

func numericRow(rec []string) bool {
	for _, field := range rec {
		if _, err := parseCell(field); err != nil {
			return false
		}
	}
	return true
}

func parseCell(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(field, 64)
}

func readSeriesFile(path string) (series, error) {
	if path == "" || path == "-" {
		return readSeries(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return readSeries(f)
}

// writeOutputs writes one row per bar with an index column followed by the
// outputs in name order. NaN and infinities are written as empty cells.
func writeOutputs(w io.Writer, outputs map[string][]float64) error {
	names := make([]string, 0, len(outputs))
	length := 0
	for name, values := range outputs {
		names = append(names, name)
		if len(values) > length {
			length = len(values)
		}
	}
	sort.Strings(names)

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"index"}, names...)); err != nil {
		return err
	}

	row := make([]string, len(names)+1)
	for i := 0; i < length; i++ {
		row[0] = strconv.Itoa(i)
		for j, name := range names {
			row[j+1] = ""
			if values := outputs[name]; i < len(values) && !math.IsNaN(values[i]) && !math.IsInf(values[i], 0) {
				row[j+1] = strconv.FormatFloat(values[i], 'f', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
