package cli

import "fmt"

//nolint:gochecknoglobals // Config constant
var sizeUnits = []string{"KB", "MB", "GB", "TB", "PB"}

// FormatSize renders n in base-1024 units: "512 bytes", "1.50 KB", ..., "3.00 PB".
// PB is the largest unit; bigger values stay in PB.
func FormatSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d bytes", n)
	}

	size := float64(n) / 1024
	unit := 0

	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}

	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}
