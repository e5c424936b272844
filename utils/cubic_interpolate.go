// SPDX-License-Identifier: EPL-2.0

package utils

// CubicInterpolate evaluates the Catmull-Rom spline through four
// consecutive samples at x in [0,1], where x=0 is y1 and x=1 is y2.
// Straight lines are reproduced exactly, and the midpoint is
// (-y0 + 9*y1 + 9*y2 - y3) / 16.
func CubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	// Horner form
	return ((a0*x+a1)*x+a2)*x + a3
}
