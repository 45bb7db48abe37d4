package pointer

import "math"

// ToFloat64 dereferences p. Missing and non-finite values are reported as absent.
func ToFloat64(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

func ToInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
