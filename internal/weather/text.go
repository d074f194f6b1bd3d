package weather

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RoundTemperature rounds half up, so 21.5 becomes 22 and -0.5 becomes 0.
func RoundTemperature(t float64) int {
	return int(math.Floor(t + 0.5))
}

// CapitalizeWords upper-cases the first letter of every word and leaves the rest as is.
func CapitalizeWords(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Title(language.Und, cases.NoLower).String(s)
}
