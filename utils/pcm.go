// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

const int16Scale = 32768.0

// Float32ToInt16 maps a sample in [-1,1] onto the int16 range.
// Values outside the range are clamped. The scale is 32768 so that
// Int16ToFloat32 followed by Float32ToInt16 returns the original sample.
func Float32ToInt16(x float32) int16 {
	v := math.Round(float64(x) * int16Scale)
	switch {
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	case math.IsNaN(v):
		return 0
	}
	return int16(v)
}

// Int16ToFloat32 maps an int16 sample into [-1,1).
func Int16ToFloat32(s int16) float32 {
	return float32(s) / int16Scale
}

// SaturateInt16 clamps v to the int16 range.
func SaturateInt16(v int32) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
