// Package pca fits a variance-maximizing linear projection over the
// prefix-matched numeric telemetry block. A basis is fit on one partition
// and applied read-only to any other; apply-time column alignment follows
// the ordered source list persisted with the basis.
package pca

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"frauddetect/internal/data"
)

// MinSourceColumns is the escape hatch: with fewer matching columns the
// reducer is a no-op.
const MinSourceColumns = 5

// fill replaces missing source cells and whole missing source columns. It
// sits outside the positive domain of the telemetry signal, so filled
// entries stay detectable downstream.
const fill = -1.0

// Basis owns the ordered source columns, their fit-time means, and the
// projection matrix (one row per component).
type Basis struct {
	Columns    []string
	Mean       []float64
	Components [][]float64
}

// SourceColumns lists the numeric columns the reducer would consume.
func SourceColumns(f *data.Frame, prefix string) []string {
	out := []string{}
	for _, name := range f.NumericNames() {
		if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		if len(name) >= 6 && name[:6] == "V_pca_" {
			// Never consume previously projected components.
			continue
		}
		out = append(out, name)
	}
	return out
}

// Fit centers the source block and extracts up to nComponents principal
// axes by singular-value decomposition, then appends the projected
// component columns to a copy of the input. Source columns are retained.
// When fewer than MinSourceColumns sources exist the input is returned
// unchanged with a nil basis.
func Fit(f *data.Frame, prefix string, nComponents int) (*Basis, *data.Frame, error) {
	cols := SourceColumns(f, prefix)
	if len(cols) < MinSourceColumns {
		return nil, f, nil
	}
	n, d := f.Rows(), len(cols)
	k := nComponents
	if d < k {
		k = d
	}
	if n < k {
		k = n
	}

	raw := sourceMatrix(f, cols)
	mean := make([]float64, d)
	for j := 0; j < d; j++ {
		for i := 0; i < n; i++ {
			mean[j] += raw[i][j]
		}
		mean[j] /= float64(n)
	}
	z := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			z.Set(i, j, raw[i][j]-mean[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(z, mat.SVDThin); !ok {
		return nil, nil, fmt.Errorf("pca: svd factorization failed (%d x %d)", n, d)
	}
	var v mat.Dense
	svd.VTo(&v)

	b := &Basis{Columns: cols, Mean: mean, Components: make([][]float64, k)}
	for c := 0; c < k; c++ {
		axis := make([]float64, d)
		for j := 0; j < d; j++ {
			axis[j] = v.At(j, c)
		}
		b.Components[c] = axis
	}
	return b, b.Apply(f), nil
}

// Apply projects a frame onto the stored basis and appends the component
// columns. Source columns present at fit time but absent now are
// synthesized with the fill constant before projection.
func (b *Basis) Apply(f *data.Frame) *data.Frame {
	out := f.Copy()
	for _, name := range b.Columns {
		if out.Numeric(name) == nil {
			vals := make([]float64, out.Rows())
			for i := range vals {
				vals[i] = fill
			}
			out.SetNumeric(name, vals)
		}
	}
	raw := sourceMatrix(out, b.Columns)
	n := out.Rows()
	for c, axis := range b.Components {
		vals := make([]float64, n)
		for i := 0; i < n; i++ {
			s := 0.0
			for j := range axis {
				s += (raw[i][j] - b.Mean[j]) * axis[j]
			}
			vals[i] = s
		}
		out.SetNumeric(fmt.Sprintf("V_pca_%d", c), vals)
	}
	return out
}

func sourceMatrix(f *data.Frame, cols []string) [][]float64 {
	out := make([][]float64, f.Rows())
	for i := range out {
		out[i] = make([]float64, len(cols))
	}
	for j, name := range cols {
		vals := f.Numeric(name)
		for i := range out {
			v := vals[i]
			if math.IsNaN(v) {
				v = fill
			}
			out[i][j] = v
		}
	}
	return out
}
