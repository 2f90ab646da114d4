package helpers

// Truncate shortens s to at most max runes, replacing the tail with "..."
// when something was cut. Max values of 3 or less return just the ellipsis.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return "..."
	}
	return string(runes[:max-3]) + "..."
}
