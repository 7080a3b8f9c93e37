package matrix

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gonum.org/v1/gonum/mat"
)

// ReadCSV loads a labeled matrix from a CSV file whose first column holds row
// labels and first row holds column labels. Files ending in .gz are
// decompressed transparently. Empty cells, "NA" and "NaN" parse as NaN.
func ReadCSV(path string) (*Labeled, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open matrix file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	return readCSV(r, path)
}

func readCSV(r io.Reader, path string) (*Labeled, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) < 2 || len(records[0]) < 2 {
		return nil, fmt.Errorf("parse %s: need at least one row and one column of data", path)
	}

	cols := append([]string(nil), records[0][1:]...)
	rows := make([]string, 0, len(records)-1)
	data := mat.NewDense(len(records)-1, len(cols), nil)

	for i, rec := range records[1:] {
		if len(rec) != len(cols)+1 {
			return nil, fmt.Errorf("parse %s: row %d has %d fields, want %d", path, i+2, len(rec), len(cols)+1)
		}
		rows = append(rows, rec[0])
		for j, cell := range rec[1:] {
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("parse %s: row %d col %d: %w", path, i+2, j+2, err)
			}
			data.Set(i, j, v)
		}
	}

	return &Labeled{Data: data, Rows: rows, Cols: cols}, nil
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch cell {
	case "", "NA", "NaN", "nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

// WriteCSV writes a labeled matrix in the same layout ReadCSV expects.
// NaN entries are written as "NA". A .gz path produces gzip output.
func WriteCSV(path, corner string, m *Labeled) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create matrix file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{corner}, m.Cols...)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	r, c := m.Data.Dims()
	rec := make([]string, c+1)
	for i := 0; i < r; i++ {
		rec[0] = m.Rows[i]
		for j := 0; j < c; j++ {
			v := m.Data.At(i, j)
			if math.IsNaN(v) {
				rec[j+1] = "NA"
			} else {
				rec[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
