package extractor

import (
	"strconv"
	"strings"
)

var magnitudes = map[byte]int64{
	'K': 1e3,
	'M': 1e6,
	'B': 1e9,
}

// maxDigits keeps every intermediate product inside int64.
const (
	maxDigits = 18
	maxFrac   = 9
)

// ParseCount converts a displayed count such as "1,234", "12.3K" or "4M"
// into an integer. Fractional values are rounded half away from zero, so
// "1.2345K" is 1235. Empty, signed or unreadable text yields nil.
func ParseCount(s string) *int {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return nil
	}

	multiplier := int64(1)
	last := s[len(s)-1]
	if last >= 'a' && last <= 'z' {
		last -= 'a' - 'A'
	}
	if m, ok := magnitudes[last]; ok {
		multiplier = m
		s = s[:len(s)-1]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil
	}
	if !digits(whole) || !digits(frac) || len(whole) > maxDigits-zeros(multiplier) {
		return nil
	}
	if len(frac) > maxFrac {
		frac = frac[:maxFrac]
	}

	var w, f int64
	if whole != "" {
		w, _ = strconv.ParseInt(whole, 10, 64)
	}
	scale := int64(1)
	if frac != "" {
		f, _ = strconv.ParseInt(frac, 10, 64)
		for range frac {
			scale *= 10
		}
	}

	// w*m + f*m/scale, rounded half up on the remainder.
	n := w * multiplier
	q, r := (f*multiplier)/scale, (f*multiplier)%scale
	n += q
	if 2*r >= scale && r != 0 {
		n++
	}
	v := int(n)
	return &v
}

func zeros(n int64) int {
	z := 0
	for ; n >= 10; n /= 10 {
		z++
	}
	return z
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
