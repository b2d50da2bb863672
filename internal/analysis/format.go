package analysis

import (
	"fmt"
	"math"
	"strconv"
)

// FormatElapsed renders seconds as "42s" under a minute and "2m 5s" above.
func FormatElapsed(seconds float64) string {
	total := int(math.Round(math.Max(seconds, 0)))
	if total < 60 {
		return fmt.Sprintf("%ds", total)
	}
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatSize renders a byte count with binary units and at most two
// decimals: "0 Bytes", "512 Bytes", "1.5 KB", "2 MB".
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := float64(n) / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + sizeUnits[i]
}
