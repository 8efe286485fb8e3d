// Package encode implements smoothed target encoding for categorical
// columns. Encoders are fit on exactly one partition's labeled rows and are
// immutable afterwards; applying one never touches fit state.
package encode

import (
	"math"

	"frauddetect/internal/clean"
	"frauddetect/internal/data"
)

// TargetEncoder maps category values to shrunk per-category label means.
// Unseen categories fall back to the global label mean observed at fit
// time. All fields are exported for gob round-trips.
type TargetEncoder struct {
	Columns   []string
	Smoothing float64
	Fallback  float64
	Mapping   map[string]map[string]float64
}

// Fit computes the per-column mappings from rows with a non-null label:
// (sum(label) + smoothing*globalMean) / (count + smoothing).
// Identical inputs always produce identical mappings.
func Fit(f *data.Frame, catCols []string, label string, smoothing float64) *TargetEncoder {
	labels := f.Numeric(label)
	rows := []int{}
	var total float64
	for i, v := range labels {
		if !math.IsNaN(v) {
			rows = append(rows, i)
			total += v
		}
	}
	global := 0.0
	if len(rows) > 0 {
		global = total / float64(len(rows))
	}

	enc := &TargetEncoder{
		Columns:   append([]string(nil), catCols...),
		Smoothing: smoothing,
		Fallback:  global,
		Mapping:   map[string]map[string]float64{},
	}
	for _, col := range catCols {
		vals := f.Strings(col)
		m := map[string]float64{}
		if vals != nil {
			sums := map[string]float64{}
			counts := map[string]float64{}
			for _, i := range rows {
				v := vals[i]
				if v == "" {
					v = clean.MissingSentinel
				}
				sums[v] += labels[i]
				counts[v]++
			}
			for cat, count := range counts {
				m[cat] = (sums[cat] + smoothing*global) / (count + smoothing)
			}
		}
		enc.Mapping[col] = m
	}
	return enc
}

// Apply replaces each encoded column with its learned numeric values on a
// copy of the input. Columns the encoder expects but the frame lacks are
// synthesized with the missing sentinel before lookup; categories unseen at
// fit time map to the fallback.
func (e *TargetEncoder) Apply(f *data.Frame) *data.Frame {
	out := f.Copy()
	for _, col := range e.Columns {
		vals := out.Strings(col)
		if vals == nil && out.Numeric(col) == nil {
			vals = make([]string, out.Rows())
			for i := range vals {
				vals[i] = clean.MissingSentinel
			}
			out.SetStrings(col, vals)
		}
		if vals == nil {
			// Already numeric; nothing to look up.
			continue
		}
		m := e.Mapping[col]
		encoded := make([]float64, len(vals))
		for i, v := range vals {
			if v == "" {
				v = clean.MissingSentinel
			}
			if enc, ok := m[v]; ok {
				encoded[i] = enc
			} else {
				encoded[i] = e.Fallback
			}
		}
		out.SetNumeric(col, encoded)
	}
	return out
}
