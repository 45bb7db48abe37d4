// Package deviation classifies vital sign values into alert levels.
//
// All classifiers are pure. Values are compared in hundredths, the precision readings are
// recorded with, so that boundaries such as "exactly 10% above the upper bound" are exact.
// Missing or non-finite inputs classify as None.
package deviation

import (
	"math"

	"github.com/lungcare/clinic/pointer"
)

// Level is the severity of a deviation, ordered so that a larger value is more urgent.
type Level int

const (
	None     Level = 0
	Mild     Level = 1
	Moderate Level = 2
	Severe   Level = 3
)

// Max returns the most severe of levels, None when there are none.
func Max(levels ...Level) Level {
	result := None
	for _, l := range levels {
		if l > result {
			result = l
		}
	}
	return result
}

// Range is a closed normal range.
type Range struct {
	Lower float64
	Upper float64
}

var (
	DefaultSystolicRange  = Range{Lower: 120, Upper: 140}
	DefaultDiastolicRange = Range{Lower: 80, Upper: 90}
	DefaultHeartRateRange = Range{Lower: 51, Upper: 90}
)

// RangeFromBaseline uses a configured baseline as both bounds of the normal range and falls
// back to def when the baseline is absent.
func RangeFromBaseline(baseline *float64, def Range) Range {
	if b, ok := pointer.ToFloat64(baseline); ok {
		return Range{Lower: b, Upper: b}
	}
	return def
}

const (
	spo2Normal   = 9500
	spo2Mild     = 9300
	spo2Moderate = 9000

	temperatureLow      = 3500
	temperatureSevere   = 3950
	temperatureModerate = 3850
	temperatureMild     = 3800
)

// SpO2Level combines the absolute value rule with the drop from the patient's baseline.
// A drop of at least 5% is mild, or moderate when it has been confirmed by an earlier
// reading. A drop of at least 3% is mild.
func SpO2Level(current, baseline *float64, confirmedDrop bool) Level {
	value, ok := pointer.ToFloat64(current)
	if !ok {
		return None
	}
	cur := hundredths(value)

	absolute := None
	switch {
	case cur >= spo2Normal:
		absolute = None
	case cur >= spo2Mild:
		absolute = Mild
	case cur >= spo2Moderate:
		absolute = Moderate
	default:
		absolute = Severe
	}

	relative := None
	if b, ok := pointer.ToFloat64(baseline); ok && b > 0 {
		switch {
		case DropAtLeast(value, b, 5):
			if confirmedDrop {
				relative = Moderate
			} else {
				relative = Mild
			}
		case DropAtLeast(value, b, 3):
			relative = Mild
		}
	}

	return Max(absolute, relative)
}

// DropAtLeast reports whether current is at least percent percent below baseline.
func DropAtLeast(current, baseline float64, percent int64) bool {
	b := hundredths(baseline)
	if b <= 0 {
		return false
	}
	return (b-hundredths(current))*100 >= percent*b
}

// BloodPressureLevel is the larger of the systolic and diastolic deviation levels.
func BloodPressureLevel(sbp, dbp *float64, sbpRange, dbpRange Range) Level {
	return Max(rangeLevel(sbp, sbpRange), rangeLevel(dbp, dbpRange))
}

// HeartRateLevel classifies a heart rate against the normal range r.
func HeartRateLevel(hr *float64, r Range) Level {
	return rangeLevel(hr, r)
}

// TemperatureLevel is the larger of the value level and the persistence level. Persistent
// fever for 72 hours is severe and for 48 hours moderate, whatever the current value.
func TemperatureLevel(temp *float64, has48hPersistentHigh, has72hPersistentHigh bool) Level {
	fromTime := None
	if has72hPersistentHigh {
		fromTime = Severe
	} else if has48hPersistentHigh {
		fromTime = Moderate
	}

	value, ok := pointer.ToFloat64(temp)
	if !ok {
		return fromTime
	}

	t := hundredths(value)
	fromValue := None
	switch {
	case t <= temperatureLow || t >= temperatureSevere:
		fromValue = Severe
	case t >= temperatureModerate:
		fromValue = Moderate
	case t > temperatureMild:
		fromValue = Mild
	}

	return Max(fromValue, fromTime)
}

// IsFever reports whether a temperature reading counts towards a persistent high window.
func IsFever(temp float64) bool {
	return hundredths(temp) >= temperatureMild
}

// rangeLevel maps the ratio by which value lies outside r to a level: below 10% is none,
// exactly 10% mild, up to 20% moderate and anything beyond severe. A range with a
// non-positive bound, or with lower above upper, cannot be classified against.
func rangeLevel(value *float64, r Range) Level {
	v, ok := pointer.ToFloat64(value)
	if !ok {
		return None
	}
	if !finite(r.Lower) || !finite(r.Upper) {
		return None
	}

	cur, lower, upper := hundredths(v), hundredths(r.Lower), hundredths(r.Upper)
	if lower <= 0 || upper <= 0 || lower > upper {
		return None
	}

	var diff, bound int64
	switch {
	case cur < lower:
		diff, bound = lower-cur, lower
	case cur > upper:
		diff, bound = cur-upper, upper
	default:
		return None
	}

	switch {
	case diff*10 < bound:
		return None
	case diff*10 == bound:
		return Mild
	case diff*5 <= bound:
		return Moderate
	default:
		return Severe
	}
}

func hundredths(v float64) int64 {
	return int64(math.Round(v * 100))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
