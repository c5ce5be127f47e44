package util

import "math"

// Round2 rounds to 2 decimal places, the precision quotes are stored at.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round4 rounds to 4 decimal places, used for volatility coefficients.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
