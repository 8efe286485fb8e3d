package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// ErrMissingInputFile marks a required raw or artifact file that is absent.
var ErrMissingInputFile = errors.New("missing input file")

func missing(v string) bool {
	return v == "" || v == "NA" || v == "NaN" || v == "nan"
}

// LoadCSV reads a delimited file into a frame. A column is numeric when
// every non-missing cell parses as a float; everything else stays a string
// column. Column order is preserved.
func LoadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInputFile, path)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("read %s: empty file", path)
	}
	header := rows[0]
	body := rows[1:]

	f := NewFrame(len(body))
	for j, name := range header {
		numeric := false
		for _, row := range body {
			if j >= len(row) || missing(row[j]) {
				continue
			}
			if _, err := strconv.ParseFloat(row[j], 64); err != nil {
				numeric = false
				break
			}
			numeric = true
		}
		if numeric {
			vals := make([]float64, len(body))
			for i, row := range body {
				if j >= len(row) || missing(row[j]) {
					vals[i] = math.NaN()
					continue
				}
				vals[i], _ = strconv.ParseFloat(row[j], 64)
			}
			f.SetNumeric(name, vals)
		} else {
			vals := make([]string, len(body))
			for i, row := range body {
				if j < len(row) && !missing(row[j]) {
					vals[i] = row[j]
				}
			}
			f.SetStrings(name, vals)
		}
	}
	return f, nil
}

// WriteCSV writes the frame back out with its column order intact. NaN
// numeric cells and empty strings are written as empty cells.
func WriteCSV(path string, f *Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	names := f.Names()
	if err := w.Write(names); err != nil {
		return err
	}
	rec := make([]string, len(names))
	for i := 0; i < f.Rows(); i++ {
		for j, n := range names {
			if vals := f.Numeric(n); vals != nil {
				if math.IsNaN(vals[i]) {
					rec[j] = ""
				} else {
					rec[j] = strconv.FormatFloat(vals[i], 'g', -1, 64)
				}
			} else {
				rec[j] = f.Strings(n)[i]
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
