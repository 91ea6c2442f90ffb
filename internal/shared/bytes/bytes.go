// Package bytes holds small formatting helpers for byte quantities.
package bytes

import "fmt"

// FmtMem renders a byte count as a short human-readable string, e.g.
// "3MB 212KB". Used by telemetry logging.
func FmtMem(n uint64) string {
	const (
		kb = 1 << 10
		mb = kb << 10
		gb = mb << 10
		tb = gb << 10
	)

	switch {
	case n >= tb:
		return fmt.Sprintf("%dTB %dGB", n/tb, (n%tb)/gb)
	case n >= gb:
		return fmt.Sprintf("%dGB %dMB", n/gb, (n%gb)/mb)
	case n >= mb:
		return fmt.Sprintf("%dMB %dKB", n/mb, (n%mb)/kb)
	case n >= kb:
		return fmt.Sprintf("%dKB %dB", n/kb, n%kb)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
