package money

import (
	"math"
	"testing"
)

// FuzzFormat checks boundary formatting never panics on hostile floats.
func FuzzFormat(f *testing.F) {
	f.Add(0.0)
	f.Add(12.5)
	f.Add(-12.5)
	f.Add(0.1 + 0.2)
	f.Add(1e15)

	f.Fuzz(func(t *testing.T, val float64) {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			t.Skip()
		}
		_ = Format(val)
		_ = FormatPerGram(val)
	})
}
