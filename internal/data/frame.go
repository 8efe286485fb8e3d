// Package data holds the tabular frame the pipeline operates on and the
// CSV round-trip used for raw transactions and prediction output.
package data

import (
	"math"
)

type Kind int

const (
	Numeric Kind = iota
	String
)

// Column is a single named column. Numeric columns mark missing cells with
// NaN, string columns with the empty string.
type Column struct {
	Kind Kind
	Nums []float64
	Strs []string
}

// Frame is an ordered collection of equally sized columns.
type Frame struct {
	names []string
	cols  map[string]*Column
	rows  int
}

func NewFrame(rows int) *Frame {
	return &Frame{cols: map[string]*Column{}, rows: rows}
}

func (f *Frame) Rows() int { return f.rows }

func (f *Frame) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Numeric returns the values of a numeric column, or nil when the column is
// absent or non-numeric.
func (f *Frame) Numeric(name string) []float64 {
	c, ok := f.cols[name]
	if !ok || c.Kind != Numeric {
		return nil
	}
	return c.Nums
}

// Strings returns the values of a string column, or nil when the column is
// absent or numeric.
func (f *Frame) Strings(name string) []string {
	c, ok := f.cols[name]
	if !ok || c.Kind != String {
		return nil
	}
	return c.Strs
}

// SetNumeric adds or replaces a numeric column. Replacing keeps the
// column's position in the frame order.
func (f *Frame) SetNumeric(name string, vals []float64) {
	if _, ok := f.cols[name]; !ok {
		f.names = append(f.names, name)
	}
	f.cols[name] = &Column{Kind: Numeric, Nums: vals}
}

func (f *Frame) SetStrings(name string, vals []string) {
	if _, ok := f.cols[name]; !ok {
		f.names = append(f.names, name)
	}
	f.cols[name] = &Column{Kind: String, Strs: vals}
}

func (f *Frame) Drop(name string) {
	if _, ok := f.cols[name]; !ok {
		return
	}
	delete(f.cols, name)
	for i, n := range f.names {
		if n == name {
			f.names = append(f.names[:i], f.names[i+1:]...)
			break
		}
	}
}

// Rename changes a column name in place, keeping its order position.
func (f *Frame) Rename(old, name string) {
	c, ok := f.cols[old]
	if !ok || old == name {
		return
	}
	delete(f.cols, old)
	f.cols[name] = c
	for i, n := range f.names {
		if n == old {
			f.names[i] = name
			break
		}
	}
}

// NumericNames lists numeric column names in frame order.
func (f *Frame) NumericNames() []string {
	out := []string{}
	for _, n := range f.names {
		if f.cols[n].Kind == Numeric {
			out = append(out, n)
		}
	}
	return out
}

func (f *Frame) Copy() *Frame {
	out := NewFrame(f.rows)
	for _, n := range f.names {
		c := f.cols[n]
		if c.Kind == Numeric {
			vals := make([]float64, len(c.Nums))
			copy(vals, c.Nums)
			out.SetNumeric(n, vals)
		} else {
			vals := make([]string, len(c.Strs))
			copy(vals, c.Strs)
			out.SetStrings(n, vals)
		}
	}
	return out
}

// Subset returns a new frame containing the given rows, in the given order.
func (f *Frame) Subset(idx []int) *Frame {
	out := NewFrame(len(idx))
	for _, n := range f.names {
		c := f.cols[n]
		if c.Kind == Numeric {
			vals := make([]float64, len(idx))
			for i, j := range idx {
				vals[i] = c.Nums[j]
			}
			out.SetNumeric(n, vals)
		} else {
			vals := make([]string, len(idx))
			for i, j := range idx {
				vals[i] = c.Strs[j]
			}
			out.SetStrings(n, vals)
		}
	}
	return out
}

// Matrix extracts the named numeric columns as row vectors. Columns absent
// from the frame are filled with zeros, never dropped; NaN cells become
// zero as well.
func (f *Frame) Matrix(cols []string) [][]float64 {
	out := make([][]float64, f.rows)
	for i := range out {
		out[i] = make([]float64, len(cols))
	}
	for j, name := range cols {
		vals := f.Numeric(name)
		if vals == nil {
			continue
		}
		for i := 0; i < f.rows; i++ {
			if !math.IsNaN(vals[i]) && !math.IsInf(vals[i], 0) {
				out[i][j] = vals[i]
			}
		}
	}
	return out
}
