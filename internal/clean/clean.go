// Package clean normalizes raw frames before feature work: all-null column
// removal, string normalization, and imputation. Medians are computed over
// the frame being cleaned, not a train-only statistic.
package clean

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"frauddetect/internal/data"
)

// ErrMissingLabelColumn marks a training request on data without ground
// truth.
var ErrMissingLabelColumn = errors.New("missing label column")

// MissingSentinel fills empty categorical cells and synthesized categorical
// columns.
const MissingSentinel = "missing"

// Basic drops columns that are entirely null, trims column names, and
// lower-cases string values.
func Basic(f *data.Frame) *data.Frame {
	out := f.Copy()
	for _, name := range out.Names() {
		if nums := out.Numeric(name); nums != nil {
			allNull := true
			for _, v := range nums {
				if !math.IsNaN(v) {
					allNull = false
					break
				}
			}
			if allNull {
				out.Drop(name)
			}
			continue
		}
		strs := out.Strings(name)
		allNull := true
		for i, v := range strs {
			strs[i] = strings.ToLower(strings.TrimSpace(v))
			if strs[i] != "" {
				allNull = false
			}
		}
		if allNull {
			out.Drop(name)
		}
	}
	for _, name := range out.Names() {
		trimmed := strings.TrimSpace(name)
		if trimmed != name {
			out.Rename(name, trimmed)
		}
	}
	return out
}

// Impute replaces numeric nulls with the column median and categorical
// nulls with the missing sentinel.
func Impute(f *data.Frame) *data.Frame {
	out := f.Copy()
	for _, name := range out.Names() {
		if nums := out.Numeric(name); nums != nil {
			med := median(nums)
			for i, v := range nums {
				if math.IsNaN(v) {
					nums[i] = med
				}
			}
			continue
		}
		strs := out.Strings(name)
		for i, v := range strs {
			if v == "" {
				strs[i] = MissingSentinel
			}
		}
	}
	return out
}

// DropUnlabeled removes rows whose label cell is null and reports how many
// were dropped. Requesting it on data without a label column is fatal.
func DropUnlabeled(f *data.Frame, label string) (*data.Frame, int, error) {
	vals := f.Numeric(label)
	if vals == nil {
		return nil, 0, fmt.Errorf("%w: %q", ErrMissingLabelColumn, label)
	}
	keep := make([]int, 0, f.Rows())
	for i, v := range vals {
		if !math.IsNaN(v) {
			keep = append(keep, i)
		}
	}
	dropped := f.Rows() - len(keep)
	if dropped == 0 {
		return f, 0, nil
	}
	return f.Subset(keep), dropped, nil
}

func median(vals []float64) float64 {
	clean := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return 0
	}
	sort.Float64s(clean)
	mid := len(clean) / 2
	if len(clean)%2 == 1 {
		return clean[mid]
	}
	return (clean[mid-1] + clean[mid]) / 2
}
