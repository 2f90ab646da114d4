package crawler

import (
	"strconv"
	"strings"
)

// PriceAmount extracts the numeric amount from the ad's display price.
// "Rs 75,000,000" yields 75000000. Prices without digits, such as
// "Price on request", yield ok=false and the ad is treated as unpriced.
func (a Ad) PriceAmount() (int64, bool) {
	return extractDigits(a.Price)
}

// extractDigits strips grouping commas and whitespace, then parses the first
// contiguous run of digits. Text before or after the run is ignored.
func extractDigits(price string) (int64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, price)

	start := -1
	end := len(cleaned)
	for i, r := range cleaned {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			end = i
			break
		}
	}
	if start < 0 {
		return 0, false
	}

	n, err := strconv.ParseInt(cleaned[start:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
